package opcspace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdplc-io/simplc/internal/opcspace"
	"github.com/sdplc-io/simplc/internal/value"
)

const testNS = "urn:simplc:test"

func TestRegisterNamespaceValidatesURL(t *testing.T) {
	a := opcspace.NewAdapter()
	_, err := a.RegisterNamespace("not-a-url")
	assert.ErrorIs(t, err, opcspace.ErrInvalidNamespace)

	idx, err := a.RegisterNamespace(testNS)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, idx, uint16(2))

	// re-registering the same uri returns the same index
	idx2, err := a.RegisterNamespace(testNS)
	require.NoError(t, err)
	assert.Equal(t, idx, idx2)
}

func TestRegisterNodeRequiresNamespace(t *testing.T) {
	a := opcspace.NewAdapter()
	_, err := a.RegisterNode("Tank", testNS)
	assert.ErrorIs(t, err, opcspace.ErrNamespaceNotFound)

	_, err = a.RegisterNamespace(testNS)
	require.NoError(t, err)
	_, err = a.RegisterNode("Tank", testNS)
	require.NoError(t, err)
}

func TestRegisterVariableAndReadWrite(t *testing.T) {
	a := opcspace.NewAdapter()
	_, err := a.RegisterNamespace(testNS)
	require.NoError(t, err)
	_, err = a.RegisterNode("Tank", testNS)
	require.NoError(t, err)

	_, err = a.RegisterVariable("Tank.Level", testNS, true, value.FromFloat(0), "Tank")
	require.NoError(t, err)

	got, err := a.Read("Tank.Level")
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Float())

	written, err := a.Write("Tank.Level", value.FromFloat(42.5))
	require.NoError(t, err)
	assert.Equal(t, 42.5, written.Float())

	assert.Contains(t, a.VariablesUnder("Tank"), "Tank.Level")
}

func TestRegisterVariableUnknownParent(t *testing.T) {
	a := opcspace.NewAdapter()
	_, err := a.RegisterNamespace(testNS)
	require.NoError(t, err)
	_, err = a.RegisterVariable("Orphan", testNS, false, value.FromBool(false), "NoSuchObject")
	assert.ErrorIs(t, err, opcspace.ErrNodeNotFound)
}

func TestWriteUnknownVariable(t *testing.T) {
	a := opcspace.NewAdapter()
	_, err := a.Write("missing", value.FromInt(1))
	assert.ErrorIs(t, err, opcspace.ErrNodeNotFound)
}
