package coding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixed32RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, math.MaxUint32} {
		got := DecodeFixed32(EncodeFixed32(v))
		assert.Equal(t, v, got)
	}
}

func TestFixed64RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, math.MaxUint32, math.MaxUint64} {
		got := DecodeFixed64(EncodeFixed64(v))
		assert.Equal(t, v, got)
	}
}

func TestVarint64RoundTripAndLength(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 16383, 16384, math.MaxUint32, math.MaxUint64}
	for _, v := range values {
		enc := PutVarint64(nil, v)
		assert.Equal(t, VarintLength64(v), len(enc))
		got, rest, ok := GetVarint64(enc)
		require.True(t, ok)
		assert.Empty(t, rest)
		assert.Equal(t, v, got)
	}
}

func TestVarintSmallValuesAreOneByte(t *testing.T) {
	for v := uint32(0); v < 128; v++ {
		enc := PutVarint32(nil, v)
		assert.Len(t, enc, 1)
	}
}

func TestVarstringRoundTrip(t *testing.T) {
	dst := PutVarstring(nil, []byte("hello"))
	dst = PutVarstring(dst, []byte(""))
	s1, rest, ok := GetVarstring(dst)
	require.True(t, ok)
	assert.Equal(t, "hello", string(s1))
	s2, rest, ok := GetVarstring(rest)
	require.True(t, ok)
	assert.Equal(t, "", string(s2))
	assert.Empty(t, rest)
}

func TestGetVarstringTruncated(t *testing.T) {
	dst := PutVarint32(nil, 10)
	_, _, ok := GetVarstring(dst)
	assert.False(t, ok)
}
