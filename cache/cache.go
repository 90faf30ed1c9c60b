// Package cache implements the sharded LRU block cache: 16 independent
// shards, each tracking pinned ("in use") versus evictable ("lru")
// entries via a reference count, so the SST reader can hand out handles
// that survive concurrent eviction pressure from other blocks.
package cache

import (
	"container/list"
	"expvar"
	"hash/fnv"
	"sync"
)

const numShards = 16

// Key is the cache's external key type: the SST reader forms it as
// (cache_id, block_offset), a 16-byte composite, but any fixed-size
// comparable key works.
type Key [16]byte

// Deleter is invoked exactly once, when an entry's last reference (cache
// or handle) goes away.
type Deleter func(key Key, value interface{})

// entry is one cache line. It lives on exactly one of a shard's two
// lists at a time: in_use_ while refs >= 2, lru_ while refs == 1 and
// still in_cache, and nowhere once refs drops to 0.
type entry struct {
	key     Key
	value   interface{}
	charge  int
	deleter Deleter
	refs    int
	inCache bool
	elem    *list.Element // this entry's node in whichever list it's on
}

// Handle is an opaque, pinned reference to a cache entry. It must be
// released exactly once via Cache.Release.
type Handle struct {
	shard *shard
	e     *entry
}

// Value returns the handle's cached value.
func (h *Handle) Value() interface{} { return h.e.value }

type shard struct {
	mu       sync.Mutex
	capacity int
	usage    int
	table    map[Key]*entry
	lru      *list.List // refs == 1, in_cache == true: evictable oldest-first from Front
	inUse    *list.List // refs >= 2: pinned, never evicted

	hits   *expvar.Int
	misses *expvar.Int
}

func newShard(capacity int) *shard {
	return &shard{
		capacity: capacity,
		table:    make(map[Key]*entry),
		lru:      list.New(),
		inUse:    list.New(),
	}
}

// Cache is a 16-way sharded LRU. Per-shard capacity is ceil(total/16).
type Cache struct {
	shards  [numShards]*shard
	idMu    sync.Mutex
	nextID  uint64
}

// New returns a Cache with the given total capacity (sum of all charges
// the cache will hold before it starts evicting).
func New(totalCapacity int) *Cache {
	perShard := (totalCapacity + numShards - 1) / numShards
	c := &Cache{}
	for i := range c.shards {
		c.shards[i] = newShard(perShard)
	}
	return c
}

// SetMetrics wires hit/miss counters into every shard.
func (c *Cache) SetMetrics(hits, misses *expvar.Int) {
	for _, s := range c.shards {
		s.mu.Lock()
		s.hits, s.misses = hits, misses
		s.mu.Unlock()
	}
}

// NewID vends a process-unique id for composing a Key from a table's
// cache_id and a block offset, guarded by a mutex as the spec prescribes.
func (c *Cache) NewID() uint64 {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	c.nextID++
	return c.nextID
}

func shardIndex(key Key) int {
	h := fnv.New32a()
	h.Write(key[:])
	// Top 4 bits of the hash choose the shard, per spec §4.H.
	return int(h.Sum32() >> 28)
}

func (c *Cache) shardFor(key Key) *shard { return c.shards[shardIndex(key)] }

// Insert admits (key, value) with the given charge against capacity. If
// key is already present the prior entry is evicted first. The returned
// handle is pinned (refs >= 1) and must be released by the caller.
func (c *Cache) Insert(key Key, value interface{}, charge int, deleter Deleter) *Handle {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.table[key]; ok {
		s.finishErase(old)
	}

	e := &entry{key: key, value: value, charge: charge, deleter: deleter, refs: 2, inCache: true}
	e.elem = s.inUse.PushBack(e)
	s.table[key] = e
	s.usage += charge

	for s.usage > s.capacity && s.lru.Len() > 0 {
		oldest := s.lru.Front().Value.(*entry)
		s.finishErase(oldest)
	}

	return &Handle{shard: s, e: e}
}

// Lookup probes key, pinning and returning a handle on hit.
func (c *Cache) Lookup(key Key) (*Handle, bool) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.table[key]
	if !ok {
		if s.misses != nil {
			s.misses.Add(1)
		}
		return nil, false
	}
	if s.hits != nil {
		s.hits.Add(1)
	}
	if e.refs == 1 {
		s.lru.Remove(e.elem)
		e.elem = s.inUse.PushBack(e)
	}
	e.refs++
	return &Handle{shard: s, e: e}, true
}

// Release drops one reference on h. Once refs reaches 1 and the entry is
// still in_cache, it moves to the lru list and becomes eligible for
// eviction; once refs reaches 0 (only reachable after Erase), its
// deleter fires.
func (c *Cache) Release(h *Handle) {
	s := h.shard
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release(h.e)
}

func (s *shard) release(e *entry) {
	e.refs--
	switch {
	case e.refs == 1 && e.inCache:
		s.inUse.Remove(e.elem)
		e.elem = s.lru.PushBack(e)
	case e.refs == 0:
		s.inUse.Remove(e.elem) // no-op if already removed from inUse by finishErase path
		if e.deleter != nil {
			e.deleter(e.key, e.value)
		}
	}
}

// Erase removes key from the cache's index immediately; the entry itself
// is only freed once every outstanding handle releases it.
func (c *Cache) Erase(key Key) {
	s := c.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.table[key]; ok {
		s.finishErase(e)
	}
}

// finishErase removes e from the hash table and marks it no longer
// in_cache, dropping the cache's own reference. If nothing else is
// pinning e, it moves straight into deletion.
func (s *shard) finishErase(e *entry) {
	delete(s.table, e.key)
	e.inCache = false
	s.usage -= e.charge
	if e.refs == 1 {
		s.lru.Remove(e.elem)
	} else if e.refs >= 2 {
		s.inUse.Remove(e.elem)
	}
	s.release(e)
}

// Prune erases every entry currently on every shard's lru list, i.e.
// every cached-but-unpinned entry.
func (c *Cache) Prune() {
	for _, s := range c.shards {
		s.mu.Lock()
		for s.lru.Len() > 0 {
			e := s.lru.Front().Value.(*entry)
			s.finishErase(e)
		}
		s.mu.Unlock()
	}
}

// TotalUsage sums the usage charge currently admitted across all shards.
func (c *Cache) TotalUsage() int {
	total := 0
	for _, s := range c.shards {
		s.mu.Lock()
		total += s.usage
		s.mu.Unlock()
	}
	return total
}
