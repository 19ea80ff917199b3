package plcnode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdplc-io/simplc/internal/codec"
	"github.com/sdplc-io/simplc/internal/modbusmap"
	"github.com/sdplc-io/simplc/internal/opcspace"
	"github.com/sdplc-io/simplc/internal/plcnode"
	"github.com/sdplc-io/simplc/internal/value"
)

func newRegistry() *plcnode.Registry {
	m := modbusmap.NewMap(codec.New(codec.BigEndian, codec.WordBigEndian))
	o := opcspace.NewAdapter()
	return plcnode.NewRegistry(m, o)
}

func TestAddNodeRequiresBinding(t *testing.T) {
	r := newRegistry()
	_, err := r.AddNode(plcnode.NodeSpec{QualifiedName: "orphan", Value: value.FromBool(false)})
	assert.ErrorIs(t, err, plcnode.ErrConfigInvalid)
}

func TestAddNodeRejectsFloat16(t *testing.T) {
	r := newRegistry()
	_, err := r.AddNode(plcnode.NodeSpec{
		QualifiedName: "Bad Node",
		Value:         value.FromFloat(3.14),
		Modbus: &plcnode.ModbusSpec{
			SlaveID:       0,
			Address:       0,
			Kind:          modbusmap.HoldingRegister,
			RegisterWidth: 16,
		},
	})
	assert.ErrorIs(t, err, codec.ErrUnsupported)
}

func TestAddNodeDualBinding(t *testing.T) {
	r := newRegistry()
	n, err := r.AddNode(plcnode.NodeSpec{
		QualifiedName: "Tank Level",
		Value:         value.FromFloat(0),
		OPCUA: &plcnode.OPCUASpec{
			NamespaceURI: "urn:simplc:test",
			Writable:     true,
		},
		Modbus: &plcnode.ModbusSpec{
			SlaveID:       0,
			Address:       0,
			Kind:          modbusmap.HoldingRegister,
			RegisterWidth: 64,
		},
	})
	require.NoError(t, err)
	assert.NotNil(t, n.OPCUA.AllocatedNodeID)
	assert.Equal(t, value.Float, n.Kind())

	// duplicate qualified name rejected
	_, err = r.AddNode(plcnode.NodeSpec{
		QualifiedName: "Tank Level",
		Value:         value.FromFloat(0),
		OPCUA:         &plcnode.OPCUASpec{NamespaceURI: "urn:simplc:test"},
	})
	assert.ErrorIs(t, err, plcnode.ErrConfigInvalid)
}

func TestAddNodeOverlappingWindowPropagatesOccupied(t *testing.T) {
	r := newRegistry()
	_, err := r.AddNode(plcnode.NodeSpec{
		QualifiedName: "a",
		Value:         value.FromInt(0),
		Modbus:        &plcnode.ModbusSpec{Kind: modbusmap.HoldingRegister, Address: 0, RegisterWidth: 32},
	})
	require.NoError(t, err)

	_, err = r.AddNode(plcnode.NodeSpec{
		QualifiedName: "b",
		Value:         value.FromInt(0),
		Modbus:        &plcnode.ModbusSpec{Kind: modbusmap.HoldingRegister, Address: 1, RegisterWidth: 16},
	})
	assert.ErrorIs(t, err, modbusmap.ErrAlreadyOccupied)
}

func TestLookupAndAll(t *testing.T) {
	r := newRegistry()
	_, err := r.AddNode(plcnode.NodeSpec{
		QualifiedName: "Blender",
		Value:         value.FromBool(false),
		Modbus:        &plcnode.ModbusSpec{Kind: modbusmap.Coil, Address: 0},
	})
	require.NoError(t, err)

	n, err := r.Lookup("Blender")
	require.NoError(t, err)
	assert.Equal(t, "Blender", n.QualifiedName)
	assert.Len(t, r.All(), 1)

	_, err = r.Lookup("missing")
	assert.ErrorIs(t, err, plcnode.ErrNotFound)
}
