package simplc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdplc-io/simplc/internal/config"
	"github.com/sdplc-io/simplc/pkg/simplc"
)

func TestNewBuildsRegistryFromConfiguredNodes(t *testing.T) {
	cfg := &config.Config{
		Server: "OPCUA",
		OPCUAServer: &config.OPCUAConfig{
			URL: "opc.tcp://0.0.0.0:4840",
		},
		Nodes: []config.NodeConfig{
			{
				QualifiedName: "tank.level",
				Value:         3.14,
				OPCUA:         &config.OPCUANodeConfig{Namespace: "plant", NodeQualifiedName: ""},
				Modbus:        &config.ModbusNodeConfig{Slave: 1, Address: 0, Type: "h", RegisterSize: 64},
			},
			{
				QualifiedName: "tank.inlet",
				Value:         true,
				OPCUA:         &config.OPCUANodeConfig{Namespace: "plant"},
				Modbus:        &config.ModbusNodeConfig{Slave: 1, Address: 4, Type: "c"},
			},
		},
	}
	require.NoError(t, cfg.Validate())

	plc, err := simplc.New(cfg, nil)
	require.NoError(t, err)

	n, err := plc.Registry.Lookup("tank.level")
	require.NoError(t, err)
	assert.Equal(t, 3.14, n.Value().Float())

	addrs, err := plc.Modbus.ListCoils(1)
	require.NoError(t, err)
	assert.Contains(t, addrs, uint16(4))
}

func TestValidateRejectsRoleConflict(t *testing.T) {
	cfg := &config.Config{
		Server:      "OPCUA",
		Client:      "OPCUA",
		OPCUAServer: &config.OPCUAConfig{URL: "opc.tcp://0.0.0.0:4840"},
		OPCUAClient: &config.OPCUAConfig{URL: "opc.tcp://upstream:4840"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrConfigInvalid)
}
