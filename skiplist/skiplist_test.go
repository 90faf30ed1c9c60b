package skiplist

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/arena"
)

func intCmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func TestInsertAndContains(t *testing.T) {
	l := New(arena.New(), intCmp)
	perm := rand.New(rand.NewSource(1)).Perm(200)
	for _, v := range perm {
		l.Insert(v)
	}
	for v := 0; v < 200; v++ {
		assert.True(t, l.Contains(v))
	}
	assert.False(t, l.Contains(200))
	assert.False(t, l.Contains(-1))
}

func TestIteratesInAscendingOrder(t *testing.T) {
	l := New(arena.New(), intCmp)
	for _, v := range []int{5, 3, 1, 4, 2} {
		l.Insert(v)
	}
	it := l.NewIterator()
	it.SeekToFirst()
	var got []int
	for it.Valid() {
		got = append(got, it.Key())
		it.Next()
	}
	require.Equal(t, []int{1, 2, 3, 4, 5}, got)
}

func TestSeekLandsOnLeastGreaterOrEqual(t *testing.T) {
	l := New(arena.New(), intCmp)
	for _, v := range []int{10, 20, 30, 40} {
		l.Insert(v)
	}
	it := l.NewIterator()
	it.Seek(25)
	require.True(t, it.Valid())
	assert.Equal(t, 30, it.Key())

	it.Seek(100)
	assert.False(t, it.Valid())
}

func TestSeekToLastAndPrev(t *testing.T) {
	l := New(arena.New(), intCmp)
	for _, v := range []int{1, 2, 3} {
		l.Insert(v)
	}
	it := l.NewIterator()
	it.SeekToLast()
	require.True(t, it.Valid())
	assert.Equal(t, 3, it.Key())
	it.Prev()
	assert.Equal(t, 2, it.Key())
	it.Prev()
	assert.Equal(t, 1, it.Key())
	it.Prev()
	assert.False(t, it.Valid())
}

func TestEmptyListIteratorInvalid(t *testing.T) {
	l := New(arena.New(), intCmp)
	it := l.NewIterator()
	it.SeekToFirst()
	assert.False(t, it.Valid())
	it.SeekToLast()
	assert.False(t, it.Valid())
}
