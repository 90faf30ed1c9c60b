package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyFor(n byte) Key {
	var k Key
	k[0] = n
	return k
}

func TestInsertAndLookupHit(t *testing.T) {
	c := New(1000)
	h := c.Insert(keyFor(1), "v1", 10, nil)
	require.NotNil(t, h)
	assert.Equal(t, "v1", h.Value())

	h2, ok := c.Lookup(keyFor(1))
	require.True(t, ok)
	assert.Equal(t, "v1", h2.Value())

	c.Release(h)
	c.Release(h2)
}

func TestLookupMiss(t *testing.T) {
	c := New(1000)
	_, ok := c.Lookup(keyFor(1))
	assert.False(t, ok)
}

func TestPinnedEntriesAreNeverEvicted(t *testing.T) {
	c := New(100)
	var pinned []*Handle
	for i := 0; i < 20; i++ {
		pinned = append(pinned, c.Insert(keyFor(byte(i)), i, 10, nil))
	}
	// All 20 entries charge 200 total against a capacity of 100, but every
	// handle is still held, so nothing may be evicted.
	for i := 0; i < 20; i++ {
		_, ok := c.Lookup(keyFor(byte(i)))
		assert.True(t, ok, "entry %d should still be cached while pinned", i)
	}
}

func TestUnpinnedLRUEvictsOldestFirst(t *testing.T) {
	c := New(100)
	var deleted []int
	for i := 0; i < 20; i++ {
		h := c.Insert(keyFor(byte(i)), i, 10, func(k Key, v interface{}) {
			deleted = append(deleted, v.(int))
		})
		c.Release(h) // unpin immediately, capacity is 100 => only 10 fit
	}

	// The 10 most recently inserted should still hit.
	for i := 10; i < 20; i++ {
		_, ok := c.Lookup(keyFor(byte(i)))
		assert.True(t, ok, "entry %d should still be cached", i)
	}
	// The 10 oldest should have been evicted.
	for i := 0; i < 10; i++ {
		_, ok := c.Lookup(keyFor(byte(i)))
		assert.False(t, ok, "entry %d should have been evicted", i)
	}
}

func TestEraseUnpinsButDoesNotFreeUntilReleased(t *testing.T) {
	c := New(1000)
	freed := false
	h := c.Insert(keyFor(1), "v", 10, func(Key, interface{}) { freed = true })

	c.Erase(keyFor(1))
	assert.False(t, freed, "erase must not free while a handle is outstanding")

	_, ok := c.Lookup(keyFor(1))
	assert.False(t, ok, "erased key must not be found by a fresh lookup")

	c.Release(h)
	assert.True(t, freed, "releasing the last handle after erase must free the entry")
}

func TestPruneEvictsOnlyUnpinnedEntries(t *testing.T) {
	c := New(1000)
	pinnedHandle := c.Insert(keyFor(1), "pinned", 10, nil)
	unpinnedHandle := c.Insert(keyFor(2), "unpinned", 10, nil)
	c.Release(unpinnedHandle)

	c.Prune()

	_, ok := c.Lookup(keyFor(1))
	assert.True(t, ok, "pinned entry must survive Prune")
	_, ok = c.Lookup(keyFor(2))
	assert.False(t, ok, "unpinned entry must be pruned")

	c.Release(pinnedHandle)
}

func TestDifferentShardsDoNotEvictEachOther(t *testing.T) {
	// Use tiny per-shard capacity and keys engineered to land in distinct
	// shards (top 4 bits of the FNV hash), exercising shard independence.
	c := New(numShards * 10)
	seen := map[int]bool{}
	var keys []Key
	for i := 0; i < 64 && len(seen) < numShards; i++ {
		k := keyFor(byte(i))
		idx := shardIndex(k)
		if !seen[idx] {
			seen[idx] = true
			keys = append(keys, k)
		}
	}
	require.GreaterOrEqual(t, len(keys), 2)

	for _, k := range keys {
		h := c.Insert(k, "v", 5, nil)
		c.Release(h)
	}
	for _, k := range keys {
		_, ok := c.Lookup(k)
		assert.True(t, ok, "key in its own shard should not be evicted by another shard's inserts")
	}
}
