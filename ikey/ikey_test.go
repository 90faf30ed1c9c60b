package ikey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/comparator"
)

func TestEncodeParseRoundTrip(t *testing.T) {
	enc := Encode([]byte("hello"), 42, TypeValue)
	user, seq, typ, err := Parse(enc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(user))
	assert.Equal(t, uint64(42), seq)
	assert.Equal(t, TypeValue, typ)
}

func TestParseRejectsShortKey(t *testing.T) {
	_, _, _, err := Parse([]byte("short"))
	assert.Error(t, err)
}

func TestInternalComparatorOrdersByUserKeyThenSeqDesc(t *testing.T) {
	c := NewInternalComparator(comparator.New())

	a := Encode([]byte("a"), 1, TypeValue)
	b := Encode([]byte("b"), 1, TypeValue)
	assert.Less(t, c.Compare(a, b), 0)

	s1 := Encode([]byte("k"), 1, TypeValue)
	s2 := Encode([]byte("k"), 2, TypeValue)
	// Equal user key: higher sequence (s2) must sort first (be "less").
	assert.Less(t, c.Compare(s2, s1), 0)
	assert.Greater(t, c.Compare(s1, s2), 0)
}

func TestInternalComparatorTypeTieBreak(t *testing.T) {
	c := NewInternalComparator(comparator.New())
	del := Encode([]byte("k"), 5, TypeDeletion)
	val := Encode([]byte("k"), 5, TypeValue)
	// Same user key, same sequence: Value (larger type) sorts first.
	assert.Less(t, c.Compare(val, del), 0)
}

func TestLookupKeyViews(t *testing.T) {
	lk := New([]byte("user-key"), 7)
	assert.Equal(t, "user-key", string(lk.UserKey()))
	user, seq, typ, err := Parse(lk.InternalKey())
	require.NoError(t, err)
	assert.Equal(t, "user-key", string(user))
	assert.Equal(t, uint64(7), seq)
	assert.Equal(t, SeekValueType, typ)

	mk := lk.MemtableKey()
	assert.True(t, len(mk) > len(lk.InternalKey()))
}

func TestLookupKeyLargeKeyHeapAllocates(t *testing.T) {
	big := make([]byte, 500)
	lk := New(big, 1)
	assert.Len(t, lk.UserKey(), 500)
}

func TestFindShortestSeparatorPreservesBounds(t *testing.T) {
	c := NewInternalComparator(comparator.New())
	start := Encode([]byte("helloworld"), 10, TypeValue)
	limit := Encode([]byte("jellyfish"), 20, TypeValue)
	sep := c.FindShortestSeparator(append([]byte{}, start...), limit)
	assert.LessOrEqual(t, c.Compare(start, sep), 0)
	assert.Less(t, c.Compare(sep, limit), 0)
}
