// Package skiplist implements the concurrent skip list the memtable is
// built on: exactly one writer at a time, any number of concurrent
// readers, and no reader running while the list is destroyed. Forward
// pointers are published with release stores and observed with acquire
// loads so a reader never sees a half-constructed node.
package skiplist

import (
	"math/rand"
	"sync/atomic"

	"github.com/strata-db/strata/arena"
)

const (
	// MaxHeight bounds how tall any single node's tower can grow.
	MaxHeight = 12
	// Branching is the factor in P(height >= k) = (1/branching)^(k-1).
	Branching = 4
)

// Comparator orders two keys, returning -1, 0, or +1.
type Comparator[K any] func(a, b K) int

type node[K any] struct {
	key  K
	next []atomic.Pointer[node[K]]
}

func newNode[K any](key K, height int) *node[K] {
	return &node[K]{key: key, next: make([]atomic.Pointer[node[K]], height)}
}

func (n *node[K]) getNext(h int) *node[K] {
	return n.next[h].Load()
}

func (n *node[K]) setNext(h int, v *node[K]) {
	n.next[h].Store(v)
}

// NodeSize estimates the byte footprint of a node at the given height,
// used purely for the arena's memory-usage accounting: an arena-backed
// generic node with an atomic-pointer tower cannot be carved out of a
// raw []byte without unsafe pointer aliasing that would hide its
// pointers from the garbage collector, so nodes are ordinary heap
// objects and the arena instead tracks the memory they would have
// consumed had they been placed inline, exactly as approximate as the
// spec's own "approximate memory usage" wording allows.
func NodeSize(height int) int64 {
	const headerSize = 16 // key field + slice header overhead, approximate
	const pointerSize = 8
	return int64(headerSize + height*pointerSize)
}

// List is a single-writer, many-reader skip list over K, ordered by cmp.
// The zero value is not usable; construct with New.
type List[K any] struct {
	cmp    Comparator[K]
	arena  *arena.Arena
	head   *node[K]
	height atomic.Int32 // current max tower height in use, relaxed reads OK
	rnd    *rand.Rand
}

// New returns an empty skip list over the given arena and comparator.
// The arena is used only for memory-usage accounting (see NodeSize); it
// is typically the same arena that backs the owning memtable's encoded
// records.
func New[K any](a *arena.Arena, cmp Comparator[K]) *List[K] {
	l := &List[K]{
		cmp:   cmp,
		arena: a,
		head:  newNode[K](*new(K), MaxHeight),
		rnd:   rand.New(rand.NewSource(0xc0ffee)),
	}
	l.height.Store(1)
	return l
}

func (l *List[K]) randomHeight() int {
	h := 1
	for h < MaxHeight && l.rnd.Intn(Branching) == 0 {
		h++
	}
	return h
}

// findGreaterOrEqual walks from head to the first node whose key is >=
// key, recording the predecessor at each level in prev (if non-nil).
func (l *List[K]) findGreaterOrEqual(key K, prev []*node[K]) *node[K] {
	x := l.head
	level := int(l.height.Load()) - 1
	for {
		next := x.getNext(level)
		if next != nil && l.cmp(next.key, key) < 0 {
			x = next
			continue
		}
		if prev != nil {
			prev[level] = x
		}
		if level == 0 {
			return next
		}
		level--
	}
}

// findLessThan returns the last node strictly less than key, walking the
// full tower from head each time; there is no backward pointer so this
// costs O(log n) rather than O(1).
func (l *List[K]) findLessThan(key K) *node[K] {
	x := l.head
	level := int(l.height.Load()) - 1
	for {
		next := x.getNext(level)
		if next != nil && l.cmp(next.key, key) < 0 {
			x = next
			continue
		}
		if level == 0 {
			if x == l.head {
				return nil
			}
			return x
		}
		level--
	}
}

func (l *List[K]) findLast() *node[K] {
	x := l.head
	level := int(l.height.Load()) - 1
	for {
		next := x.getNext(level)
		if next != nil {
			x = next
			continue
		}
		if level == 0 {
			if x == l.head {
				return nil
			}
			return x
		}
		level--
	}
}

// Insert adds key to the list. The caller must guarantee key is not
// already present (spec invariant: a skip list never contains two equal
// keys) and that no other goroutine is concurrently inserting.
func (l *List[K]) Insert(key K) {
	var prev [MaxHeight]*node[K]
	l.findGreaterOrEqual(key, prev[:])

	height := l.randomHeight()
	if height > int(l.height.Load()) {
		for i := int(l.height.Load()); i < height; i++ {
			prev[i] = l.head
		}
		// Relaxed store: a reader observing the old height simply drops
		// to a lower level, which is still safe (the new node is
		// reachable through the levels it was properly linked into
		// first, below).
		l.height.Store(int32(height))
	}

	n := newNode(key, height)
	l.arena.Allocate(int(NodeSize(height))) // accounting only, see NodeSize

	for i := 0; i < height; i++ {
		// Link n before publishing it into prev[i] at this level, so a
		// concurrent reader that observes n can already follow its
		// successor pointer correctly.
		n.setNext(i, prev[i].getNext(i))
		prev[i].setNext(i, n)
	}
}

// Contains reports whether key is present in the list.
func (l *List[K]) Contains(key K) bool {
	n := l.findGreaterOrEqual(key, nil)
	return n != nil && l.cmp(n.key, key) == 0
}

// Iterator walks the list in ascending key order. It is safe to use
// concurrently with a single writer's Insert calls (per the package's
// concurrency contract) but a single Iterator value is not itself safe
// for concurrent use.
type Iterator[K any] struct {
	list *List[K]
	n    *node[K]
}

// NewIterator returns an iterator positioned before the first element.
func (l *List[K]) NewIterator() *Iterator[K] {
	return &Iterator[K]{list: l}
}

// Valid reports whether the iterator is positioned at an element.
func (it *Iterator[K]) Valid() bool { return it.n != nil }

// Key returns the key at the iterator's current position. Valid must be
// true.
func (it *Iterator[K]) Key() K { return it.n.key }

// Next advances to the next element.
func (it *Iterator[K]) Next() { it.n = it.n.getNext(0) }

// Prev moves to the previous element, costing O(log n) like the
// underlying list's findLessThan.
func (it *Iterator[K]) Prev() {
	if it.n == nil {
		return
	}
	it.n = it.list.findLessThan(it.n.key)
}

// Seek positions the iterator at the first element >= target.
func (it *Iterator[K]) Seek(target K) {
	it.n = it.list.findGreaterOrEqual(target, nil)
}

// SeekToFirst positions the iterator at the first element in the list.
func (it *Iterator[K]) SeekToFirst() {
	it.n = it.list.head.getNext(0)
}

// SeekToLast positions the iterator at the last element in the list, or
// invalid if the list is empty.
func (it *Iterator[K]) SeekToLast() {
	it.n = it.list.findLast()
}
