package memtable

import (
	"github.com/strata-db/strata/coding"
	"github.com/strata-db/strata/ikey"
	"github.com/strata-db/strata/skiplist"
)

// Iterator walks a memtable's records in internal-key order: user key
// ascending, then sequence descending, then type descending, which is
// exactly the order compaction and merged reads want.
type Iterator struct {
	it *skiplist.Iterator[[]byte]
}

// Valid reports whether the iterator is positioned at a record.
func (it *Iterator) Valid() bool { return it.it.Valid() }

// Next advances to the next record.
func (it *Iterator) Next() { it.it.Next() }

// Prev moves to the previous record.
func (it *Iterator) Prev() { it.it.Prev() }

// Seek positions the iterator at the first record whose internal key is
// >= target.
func (it *Iterator) Seek(internalKey []byte) {
	encodedLen := coding.VarintLength32(uint32(len(internalKey))) + len(internalKey)
	buf := make([]byte, 0, encodedLen)
	buf = coding.PutVarint32(buf, uint32(len(internalKey)))
	buf = append(buf, internalKey...)
	it.it.Seek(buf)
}

// SeekToFirst positions the iterator at the first record.
func (it *Iterator) SeekToFirst() { it.it.SeekToFirst() }

// SeekToLast positions the iterator at the last record.
func (it *Iterator) SeekToLast() { it.it.SeekToLast() }

// InternalKey returns the full internal key (user key ‖ packed tag) at
// the iterator's current position. Valid must be true.
func (it *Iterator) InternalKey() []byte {
	return recordInternalKey(it.it.Key())
}

// UserKey returns the user-key portion of the current record.
func (it *Iterator) UserKey() []byte {
	return ikey.ExtractUserKey(it.InternalKey())
}

// Value returns the value bytes of the current record. For a deletion
// record this is always empty; callers must check Type.
func (it *Iterator) Value() []byte {
	record := it.it.Key()
	klen, rest, _ := coding.GetVarint32(record)
	rest = rest[klen:]
	vlen, rest, ok := coding.GetVarint32(rest)
	if !ok {
		return nil
	}
	return rest[:vlen]
}

// Type returns the value type of the current record.
func (it *Iterator) Type() ikey.ValueType {
	_, _, t, err := ikey.Parse(it.InternalKey())
	if err != nil {
		return ikey.TypeDeletion
	}
	return t
}
