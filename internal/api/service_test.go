package api_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdplc-io/simplc/internal/api"
	"github.com/sdplc-io/simplc/internal/codec"
	"github.com/sdplc-io/simplc/internal/modbusmap"
	"github.com/sdplc-io/simplc/internal/opcspace"
	"github.com/sdplc-io/simplc/internal/plcnode"
	"github.com/sdplc-io/simplc/internal/scheduler"
	"github.com/sdplc-io/simplc/internal/sync"
	"github.com/sdplc-io/simplc/internal/value"
)

const testNS = "urn:simplc:api-test"

func newService(t *testing.T) *api.Service {
	t.Helper()
	m := modbusmap.NewMap(codec.New(codec.BigEndian, codec.WordBigEndian))
	o := opcspace.NewAdapter()
	reg := plcnode.NewRegistry(m, o)

	_, err := reg.AddNode(plcnode.NodeSpec{
		QualifiedName: "tank.level.high",
		Value:         value.FromBool(false),
		OPCUA:         &plcnode.OPCUASpec{NamespaceURI: testNS, Writable: true},
		Modbus:        &plcnode.ModbusSpec{SlaveID: 1, Address: 1, Kind: modbusmap.Coil},
	})
	require.NoError(t, err)

	eng, err := sync.NewEngine(reg, m, o, sync.RoleNone, sync.RoleNone, nil)
	require.NoError(t, err)

	return &api.Service{
		Registry:  reg,
		Modbus:    m,
		OPCUA:     o,
		Scheduler: scheduler.New(0.1, nil),
		Engine:    eng,
	}
}

func TestHealthCheck(t *testing.T) {
	app := api.New(newService(t), nil)
	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestListAndReadWriteVariables(t *testing.T) {
	app := api.New(newService(t), nil)

	resp, err := app.Test(httptest.NewRequest("GET", "/variables", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/variables/write?qualified_name=tank.level.high&value=true", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/variables/read?qualified_name=tank.level.high", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "true")
}

func TestReadUnknownVariableReturns404(t *testing.T) {
	app := api.New(newService(t), nil)
	resp, err := app.Test(httptest.NewRequest("GET", "/variables/read?qualified_name=nope", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestModbusIntrospection(t *testing.T) {
	app := api.New(newService(t), nil)
	resp, err := app.Test(httptest.NewRequest("GET", "/modbus/slaves/1/coils", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "1")
}

func TestTimeScale(t *testing.T) {
	app := api.New(newService(t), nil)
	resp, err := app.Test(httptest.NewRequest("POST", "/time/scale?scale=2.5", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
