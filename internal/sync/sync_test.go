package sync_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdplc-io/simplc/internal/codec"
	"github.com/sdplc-io/simplc/internal/modbusmap"
	"github.com/sdplc-io/simplc/internal/opcspace"
	"github.com/sdplc-io/simplc/internal/plcnode"
	"github.com/sdplc-io/simplc/internal/sync"
	"github.com/sdplc-io/simplc/internal/value"
)

const testNS = "urn:simplc:test"

func newRegistry(t *testing.T) (*plcnode.Registry, *modbusmap.Map, *opcspace.Adapter) {
	t.Helper()
	m := modbusmap.NewMap(codec.New(codec.BigEndian, codec.WordBigEndian))
	o := opcspace.NewAdapter()
	return plcnode.NewRegistry(m, o), m, o
}

func dualBoundNode(t *testing.T, reg *plcnode.Registry) *plcnode.Node {
	t.Helper()
	n, err := reg.AddNode(plcnode.NodeSpec{
		QualifiedName: "tank.level.high",
		Value:         value.FromBool(false),
		OPCUA: &plcnode.OPCUASpec{
			NamespaceURI: testNS,
			Writable:     true,
		},
		Modbus: &plcnode.ModbusSpec{
			SlaveID: 1,
			Address: 10,
			Kind:    modbusmap.Coil,
		},
	})
	require.NoError(t, err)
	return n
}

func TestNewEngineRejectsRoleConflict(t *testing.T) {
	reg, m, o := newRegistry(t)
	_, err := sync.NewEngine(reg, m, o, sync.RoleOPCUA, sync.RoleOPCUA, nil)
	require.ErrorIs(t, err, sync.ErrRoleConflict)
}

func TestNewEngineAllowsBothNone(t *testing.T) {
	reg, m, o := newRegistry(t)
	_, err := sync.NewEngine(reg, m, o, sync.RoleNone, sync.RoleNone, nil)
	require.NoError(t, err)
}

func TestReconcileFansOutLocalWriteThrough(t *testing.T) {
	reg, m, o := newRegistry(t)
	n := dualBoundNode(t, reg)

	eng, err := sync.NewEngine(reg, m, o, sync.RoleModbus, sync.RoleNone, nil)
	require.NoError(t, err)

	_, err = m.WriteCoil(n.Modbus.SlaveID, n.Modbus.Address, true)
	require.NoError(t, err)

	require.NoError(t, eng.Reconcile(context.Background(), n))

	assert.True(t, n.Value().Bool())
	opcVal, err := o.Read(n.QualifiedName)
	require.NoError(t, err)
	assert.True(t, opcVal.Bool())
}

func TestReconcileAdoptsExternalOPCUAWrite(t *testing.T) {
	reg, m, o := newRegistry(t)
	n := dualBoundNode(t, reg)

	eng, err := sync.NewEngine(reg, m, o, sync.RoleOPCUA, sync.RoleNone, nil)
	require.NoError(t, err)

	_, err = o.Write(n.QualifiedName, value.FromBool(true))
	require.NoError(t, err)

	require.NoError(t, eng.Reconcile(context.Background(), n))

	assert.True(t, n.Value().Bool())
	coil, err := m.ReadCoil(n.Modbus.SlaveID, n.Modbus.Address)
	require.NoError(t, err)
	assert.True(t, coil)
}

func TestReconcileMisconfiguredNodeReturnsError(t *testing.T) {
	reg, m, o := newRegistry(t)
	n, err := reg.AddNode(plcnode.NodeSpec{
		QualifiedName: "opcua.only",
		Value:         value.FromBool(false),
		OPCUA: &plcnode.OPCUASpec{
			NamespaceURI: testNS,
			Writable:     true,
		},
	})
	require.NoError(t, err)

	eng, err := sync.NewEngine(reg, m, o, sync.RoleModbus, sync.RoleNone, nil)
	require.NoError(t, err)

	err = eng.Reconcile(context.Background(), n)
	require.ErrorIs(t, err, sync.ErrMisconfiguredNode)
}

func TestWriteNodeFansOutImmediately(t *testing.T) {
	reg, m, o := newRegistry(t)
	n := dualBoundNode(t, reg)

	eng, err := sync.NewEngine(reg, m, o, sync.RoleNone, sync.RoleNone, nil)
	require.NoError(t, err)

	got, err := eng.WriteNode(context.Background(), n.QualifiedName, value.FromBool(true))
	require.NoError(t, err)
	assert.True(t, got.Bool())

	coil, err := m.ReadCoil(n.Modbus.SlaveID, n.Modbus.Address)
	require.NoError(t, err)
	assert.True(t, coil)

	opcVal, err := o.Read(n.QualifiedName)
	require.NoError(t, err)
	assert.True(t, opcVal.Bool())
}

func TestWriteNodeRejectsTypeMismatch(t *testing.T) {
	reg, m, o := newRegistry(t)
	n := dualBoundNode(t, reg)

	eng, err := sync.NewEngine(reg, m, o, sync.RoleNone, sync.RoleNone, nil)
	require.NoError(t, err)

	_, err = eng.WriteNode(context.Background(), n.QualifiedName, value.FromFloat(1.5))
	require.ErrorIs(t, err, value.ErrTypeError)
}

func TestReadNodeWithNoClientRoleReturnsCache(t *testing.T) {
	reg, m, o := newRegistry(t)
	n := dualBoundNode(t, reg)
	n.SetValue(value.FromBool(true))

	eng, err := sync.NewEngine(reg, m, o, sync.RoleNone, sync.RoleNone, nil)
	require.NoError(t, err)

	v, err := eng.ReadNode(context.Background(), n.QualifiedName)
	require.NoError(t, err)
	assert.True(t, v.Bool())
}
