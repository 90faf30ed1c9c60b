// Package memtable implements the ordered, in-memory write buffer that
// sits in front of the SST levels: a skip list of arena-allocated,
// length-prefixed records keyed by internal key, with newest-version-first
// ordering so a lookup at any snapshot sequence lands on the right record
// in a single seek.
package memtable

import (
	"sync/atomic"

	"github.com/strata-db/strata/arena"
	"github.com/strata-db/strata/coding"
	"github.com/strata-db/strata/ikey"
	"github.com/strata-db/strata/skiplist"
)

// Memtable wraps a skip list whose keys are encoded records:
// varint32(len(internal_key)) ‖ internal_key ‖ varint32(len(value)) ‖ value.
// The skip list's comparator strips the length prefix and delegates to the
// internal-key comparator, so ordering is user-key ascending, then
// sequence descending, then type descending.
type Memtable struct {
	cmp  ikey.InternalComparator
	a    *arena.Arena
	list *skiplist.List[[]byte]
	refs atomic.Int32
}

// New returns an empty memtable ordered by cmp, starting with one
// reference held by the caller.
func New(cmp ikey.InternalComparator) *Memtable {
	a := arena.New()
	m := &Memtable{cmp: cmp, a: a}
	m.list = skiplist.New(a, func(x, y []byte) int {
		return m.cmp.Compare(recordInternalKey(x), recordInternalKey(y))
	})
	m.refs.Store(1)
	return m
}

// recordInternalKey strips the leading varint32 length prefix from an
// encoded memtable record, returning the internal-key bytes underneath.
func recordInternalKey(record []byte) []byte {
	klen, rest, ok := coding.GetVarint32(record)
	if !ok {
		return nil
	}
	return rest[:klen]
}

// Ref increments the memtable's external (compactor) reference count.
func (m *Memtable) Ref() { m.refs.Add(1) }

// Unref decrements the reference count, returning true once it reaches
// zero, signaling the caller that it may now discard the memtable.
func (m *Memtable) Unref() bool {
	return m.refs.Add(-1) == 0
}

// ApproximateMemoryUsage returns the arena's cumulative allocation, a
// close proxy for this memtable's heap footprint.
func (m *Memtable) ApproximateMemoryUsage() int64 {
	return m.a.MemoryUsage()
}

// Add inserts a new record for (seq, vtype, key, value). The caller must
// ensure (key, seq) has not already been added — a memtable never holds
// two equal keys.
func (m *Memtable) Add(seq uint64, vtype ikey.ValueType, key, value []byte) {
	internalKeyLen := len(key) + 8
	valLen := len(value)

	encodedLen := coding.VarintLength32(uint32(internalKeyLen)) + internalKeyLen +
		coding.VarintLength32(uint32(valLen)) + valLen

	buf := m.a.Allocate(encodedLen)[:0]
	buf = coding.PutVarint32(buf, uint32(internalKeyLen))
	buf = ikey.AppendEncode(buf, key, seq, vtype)
	buf = coding.PutVarint32(buf, uint32(valLen))
	buf = append(buf, value...)

	m.list.Insert(buf)
}

// Get looks up the newest visible value for key at lookup's snapshot
// sequence. found is false if no version of key at or below that sequence
// is present; when
// found is true, deleted indicates the newest visible version was a
// tombstone rather than a live value.
func (m *Memtable) Get(lookup *ikey.LookupKey) (value []byte, found bool, deleted bool) {
	it := m.list.NewIterator()
	it.Seek(lookup.MemtableKey())
	if !it.Valid() {
		return nil, false, false
	}

	record := it.Key()
	internal := recordInternalKey(record)
	if internal == nil {
		return nil, false, false
	}
	userKey, _, vtype, err := ikey.Parse(internal)
	if err != nil {
		return nil, false, false
	}
	if m.cmp.User.Compare(userKey, lookup.UserKey()) != 0 {
		return nil, false, false
	}

	klen, rest, _ := coding.GetVarint32(record)
	rest = rest[klen:]
	vlen, rest, ok := coding.GetVarint32(rest)
	if !ok {
		return nil, false, false
	}
	val := rest[:vlen]

	if vtype == ikey.TypeDeletion {
		return nil, true, true
	}
	return val, true, false
}

// NewIterator returns a fresh iterator over the memtable's encoded
// records, ordered by the internal-key comparator.
func (m *Memtable) NewIterator() *Iterator {
	return &Iterator{it: m.list.NewIterator()}
}
