package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdplc-io/simplc/internal/value"
)

func TestEqual(t *testing.T) {
	assert.True(t, value.FromInt(7).Equal(value.FromInt(7)))
	assert.False(t, value.FromInt(7).Equal(value.FromInt(8)))
	assert.False(t, value.FromInt(0).Equal(value.FromBool(false)))
}

func TestCoerceSameKind(t *testing.T) {
	v, err := value.Coerce(value.FromFloat(3.14), value.Float)
	require.NoError(t, err)
	assert.Equal(t, 3.14, v.Float())
}

func TestCoerceNumericAxis(t *testing.T) {
	v, err := value.Coerce(value.FromInt(1), value.Bool)
	require.NoError(t, err)
	assert.True(t, v.Bool())

	v, err = value.Coerce(value.FromBool(true), value.Int)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Int())

	v, err = value.Coerce(value.FromFloat(2.9), value.Int)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Int())
}

func TestInterfaceAndFromInterfaceRoundTrip(t *testing.T) {
	assert.Equal(t, true, value.FromBool(true).Interface())
	assert.Equal(t, int64(42), value.FromInt(42).Interface())
	assert.Equal(t, 1.5, value.FromFloat(1.5).Interface())

	v, err := value.FromInterface(true)
	require.NoError(t, err)
	assert.Equal(t, value.Bool, v.Kind())

	v, err = value.FromInterface(7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Int())

	v, err = value.FromInterface(2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v.Float())

	_, err = value.FromInterface("nope")
	require.ErrorIs(t, err, value.ErrTypeError)
}

func TestMarshalJSON(t *testing.T) {
	b, err := value.FromBool(true).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "true", string(b))

	b, err = value.FromInt(3).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "3", string(b))
}

func TestCoerceRejectsUnknownKind(t *testing.T) {
	// Bool/Int/Float is the entire variant space, so Coerce can only ever
	// fail here if a future Kind is added without updating the switch.
	_, err := value.Coerce(value.Value{}, value.Kind(99))
	require.Error(t, err)
	assert.ErrorIs(t, err, value.ErrTypeError)
}
