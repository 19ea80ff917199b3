package codec_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdplc-io/simplc/internal/codec"
)

func allOrders() []*codec.Codec {
	var out []*codec.Codec
	for _, bo := range []codec.ByteOrder{codec.BigEndian, codec.LittleEndian} {
		for _, wo := range []codec.WordOrder{codec.WordBigEndian, codec.WordLittleEndian} {
			out = append(out, codec.New(bo, wo))
		}
	}
	return out
}

func TestIntRoundTrip(t *testing.T) {
	widths := []int{16, 32, 64}
	values := map[int][]int64{
		16: {0, -1, 1, math.MinInt16, math.MaxInt16},
		32: {0, -1, 1, math.MinInt32, math.MaxInt32},
		64: {0, -1, 1, math.MinInt64, math.MaxInt64},
	}
	for _, c := range allOrders() {
		for _, w := range widths {
			for _, v := range values[w] {
				words, err := c.EncodeInt(v, w)
				require.NoError(t, err)
				require.Len(t, words, w/16)
				got, err := c.DecodeInt(words)
				require.NoError(t, err)
				assert.Equal(t, v, got)
			}
		}
	}
}

func TestFloatRoundTrip(t *testing.T) {
	for _, c := range allOrders() {
		for _, w := range []int{32, 64} {
			for _, v := range []float64{0, -1.5, 3.14159, 1e10, -1e-10} {
				words, err := c.EncodeFloat(v, w)
				require.NoError(t, err)
				got, err := c.DecodeFloat(words)
				require.NoError(t, err)
				if w == 32 {
					assert.InDelta(t, v, got, 1e-3)
				} else {
					assert.Equal(t, v, got)
				}
			}
		}
	}
}

func TestEncodeFloat16Unsupported(t *testing.T) {
	c := codec.New(codec.BigEndian, codec.WordBigEndian)
	_, err := c.EncodeFloat(1.0, 16)
	assert.ErrorIs(t, err, codec.ErrUnsupported)
}

func TestDecodeInvalidWidth(t *testing.T) {
	c := codec.New(codec.BigEndian, codec.WordBigEndian)
	_, err := c.DecodeInt([]uint16{1, 2, 3})
	assert.ErrorIs(t, err, codec.ErrInvalidWidth)
}

func TestLittleEndianExample(t *testing.T) {
	// 0x01020304 under byte_order=Little, word_order=Little encodes to
	// [0x0403, 0x0201].
	c := codec.New(codec.LittleEndian, codec.WordLittleEndian)
	words, err := c.EncodeInt(0x01020304, 32)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x0403, 0x0201}, words)
}

func TestBigEndianExample(t *testing.T) {
	c := codec.New(codec.BigEndian, codec.WordBigEndian)
	words, err := c.EncodeInt(0x01020304, 32)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x0102, 0x0304}, words)
}
