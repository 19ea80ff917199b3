package modbusmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdplc-io/simplc/internal/codec"
	"github.com/sdplc-io/simplc/internal/modbusmap"
	"github.com/sdplc-io/simplc/internal/value"
)

func newMap() *modbusmap.Map {
	return modbusmap.NewMap(codec.New(codec.BigEndian, codec.WordBigEndian))
}

func TestAddHoldingRegisterOccupancy(t *testing.T) {
	m := newMap()
	require.NoError(t, m.AddHoldingRegister(0, 10, value.FromFloat(3.14), 64))

	// overlapping window fails
	err := m.AddHoldingRegister(0, 11, value.FromInt(1), 16)
	assert.ErrorIs(t, err, modbusmap.ErrAlreadyOccupied)

	err = m.AddHoldingRegister(0, 13, value.FromInt(1), 32)
	assert.ErrorIs(t, err, modbusmap.ErrAlreadyOccupied)

	// adjacent, non-overlapping window succeeds
	require.NoError(t, m.AddHoldingRegister(0, 14, value.FromInt(7), 16))
}

func TestReadWriteHoldingRegister(t *testing.T) {
	m := newMap()
	require.NoError(t, m.AddHoldingRegister(0, 0, value.FromInt(0), 16))

	got, err := m.WriteHoldingRegister(0, 0, value.FromInt(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Int())

	got, err = m.ReadHoldingRegister(0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Int())
}

func TestCoilRoundTrip(t *testing.T) {
	m := newMap()
	require.NoError(t, m.AddCoil(1, 3, false))

	got, err := m.WriteCoil(1, 3, true)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = m.ReadCoil(1, 3)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestDiscreteInputNotOnWirePath(t *testing.T) {
	m := newMap()
	require.NoError(t, m.AddDiscreteInput(0, 0, false))
	_, err := m.WriteDiscreteInput(0, 0, true)
	require.NoError(t, err)
	v, err := m.ReadDiscreteInput(0, 0)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestReadUnallocatedFails(t *testing.T) {
	m := newMap()
	_, err := m.ReadHoldingRegister(0, 99)
	assert.ErrorIs(t, err, modbusmap.ErrNotFound)
}

func TestLazySlaveCreation(t *testing.T) {
	m := newMap()
	assert.Empty(t, m.Slaves())
	require.NoError(t, m.AddCoil(5, 0, true))
	assert.Contains(t, m.Slaves(), uint8(5))
}
