// Package batch implements WriteBatch, the serialized, replayable record
// container that is both the WAL payload and the memtable apply input.
package batch

import (
	"fmt"

	"github.com/strata-db/strata/coding"
	"github.com/strata-db/strata/ikey"
)

// headerSize is fixed64(sequence) ‖ fixed32(count).
const headerSize = 8 + 4

// Handler receives one decoded record per call to Iterate.
type Handler interface {
	Put(seq uint64, key, value []byte)
	Delete(seq uint64, key []byte)
}

// Batch buffers a header followed by records and is the atomic unit of
// a write: every Put or Delete increments the header's count and
// appends exactly one record.
type Batch struct {
	buf []byte
}

// New returns an empty batch with its header pre-allocated.
func New() *Batch {
	b := &Batch{buf: make([]byte, headerSize)}
	return b
}

// Reset clears the batch back to an empty header, reusing its buffer.
func (b *Batch) Reset() {
	b.buf = b.buf[:headerSize]
	for i := range b.buf {
		b.buf[i] = 0
	}
}

// Put appends a Value record for (key, value).
func (b *Batch) Put(key, value []byte) {
	b.buf = append(b.buf, byte(ikey.TypeValue))
	b.buf = coding.PutVarstring(b.buf, key)
	b.buf = coding.PutVarstring(b.buf, value)
	b.setCount(b.Count() + 1)
}

// Delete appends a Deletion record for key.
func (b *Batch) Delete(key []byte) {
	b.buf = append(b.buf, byte(ikey.TypeDeletion))
	b.buf = coding.PutVarstring(b.buf, key)
	b.setCount(b.Count() + 1)
}

// Append concatenates other's records onto b and sums the counts; b's
// own header sequence is left untouched.
func (b *Batch) Append(other *Batch) {
	b.buf = append(b.buf, other.buf[headerSize:]...)
	b.setCount(b.Count() + other.Count())
}

// Count returns the number of records currently buffered.
func (b *Batch) Count() uint32 {
	return coding.DecodeFixed32(b.buf[8:12])
}

func (b *Batch) setCount(n uint32) {
	copy(b.buf[8:12], coding.EncodeFixed32(n))
}

// Sequence returns the batch's base sequence number.
func (b *Batch) Sequence() uint64 {
	return coding.DecodeFixed64(b.buf[0:8])
}

// SetSequence sets the batch's base sequence number; record i is
// conceptually assigned sequence Sequence()+i during Iterate.
func (b *Batch) SetSequence(seq uint64) {
	copy(b.buf[0:8], coding.EncodeFixed64(seq))
}

// Contents returns the batch's full serialized form (header ‖ records),
// suitable for writing directly to the WAL.
func (b *Batch) Contents() []byte { return b.buf }

// FromContents wraps an already-serialized batch body (as read from the
// WAL) without copying it.
func FromContents(contents []byte) *Batch {
	return &Batch{buf: contents}
}

// Iterate walks the batch's records, invoking h.Put or h.Delete for
// each, assigning sequence numbers Sequence(), Sequence()+1, ... in
// order. It fails with a descriptive error on a truncated header, an
// unknown tag, a malformed varstring, or a final count mismatch against
// the header.
func (b *Batch) Iterate(h Handler) error {
	if len(b.buf) < headerSize {
		return fmt.Errorf("batch: buffer shorter than header: %d bytes", len(b.buf))
	}
	seq := b.Sequence()
	wantCount := b.Count()

	data := b.buf[headerSize:]
	var found uint32
	for len(data) > 0 {
		tag := ikey.ValueType(data[0])
		data = data[1:]

		key, rest, ok := coding.GetVarstring(data)
		if !ok {
			return fmt.Errorf("batch: malformed key varstring at record %d", found)
		}
		data = rest

		switch tag {
		case ikey.TypeValue:
			value, rest, ok := coding.GetVarstring(data)
			if !ok {
				return fmt.Errorf("batch: malformed value varstring at record %d", found)
			}
			data = rest
			h.Put(seq+uint64(found), key, value)
		case ikey.TypeDeletion:
			h.Delete(seq+uint64(found), key)
		default:
			return fmt.Errorf("batch: unknown record tag %d at record %d", tag, found)
		}
		found++
	}
	if found != wantCount {
		return fmt.Errorf("batch: count mismatch: header says %d, found %d records", wantCount, found)
	}
	return nil
}
