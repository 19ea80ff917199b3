package simfuncs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdplc-io/simplc/internal/codec"
	"github.com/sdplc-io/simplc/internal/modbusmap"
	"github.com/sdplc-io/simplc/internal/opcspace"
	"github.com/sdplc-io/simplc/internal/plcnode"
	"github.com/sdplc-io/simplc/internal/scheduler"
	"github.com/sdplc-io/simplc/internal/value"
	"github.com/sdplc-io/simplc/pkg/simplc/simfuncs"
)

func newRegistry(t *testing.T) *plcnode.Registry {
	t.Helper()
	m := modbusmap.NewMap(codec.New(codec.BigEndian, codec.WordBigEndian))
	o := opcspace.NewAdapter()
	return plcnode.NewRegistry(m, o)
}

func TestTankHysteresisFillsAtInletRateForTenSeconds(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.AddNode(plcnode.NodeSpec{
		QualifiedName: "tank.level",
		Value:         value.FromFloat(0),
		Modbus:        &plcnode.ModbusSpec{SlaveID: 0, Address: 0, Kind: modbusmap.HoldingRegister, RegisterWidth: 64},
	})
	require.NoError(t, err)
	_, err = reg.AddNode(plcnode.NodeSpec{
		QualifiedName: "tank.inlet",
		Value:         value.FromBool(true),
		Modbus:        &plcnode.ModbusSpec{SlaveID: 0, Address: 4, Kind: modbusmap.Coil},
	})
	require.NoError(t, err)
	_, err = reg.AddNode(plcnode.NodeSpec{
		QualifiedName: "tank.outlet",
		Value:         value.FromBool(false),
		Modbus:        &plcnode.ModbusSpec{SlaveID: 0, Address: 5, Kind: modbusmap.Coil},
	})
	require.NoError(t, err)

	s := scheduler.New(1, nil)
	s.SetTimeScale(1e6) // collapse the wall-clock sleep between ticks for the test
	_, err = simfuncs.TankHysteresis(s, reg, "tank.level", "tank.inlet", "tank.outlet", 10, 5, 1000, 1, 10)
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))

	n, err := reg.Lookup("tank.level")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, n.Value().Float(), 0.001)
}
