package sstable

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/strata-db/strata/coding"
	"github.com/strata-db/strata/kvstatus"
)

// BlockBuilder accumulates key-value entries with prefix compression
// against the last key in the current restart interval. Every
// restartInterval-th entry is forced to a full key (shared = 0) and its
// offset recorded, so a reader can binary-search restarts before linear
// scanning.
type BlockBuilder struct {
	restartInterval int
	buf             bytes.Buffer
	restarts        []uint32
	counter         int
	lastKey         []byte
	finished        bool
}

// NewBlockBuilder returns a builder that emits a restart point at least
// every restartInterval entries.
func NewBlockBuilder(restartInterval int) *BlockBuilder {
	b := &BlockBuilder{restartInterval: restartInterval}
	b.restarts = append(b.restarts, 0)
	return b
}

// Reset clears the builder for reuse on the next block.
func (b *BlockBuilder) Reset() {
	b.buf.Reset()
	b.restarts = b.restarts[:0]
	b.restarts = append(b.restarts, 0)
	b.counter = 0
	b.lastKey = nil
	b.finished = false
}

// Empty reports whether any entries have been added since the last Reset.
func (b *BlockBuilder) Empty() bool { return b.buf.Len() == 0 }

// Add appends a key-value entry. Keys must be added in strictly
// increasing order.
func (b *BlockBuilder) Add(key, value []byte) {
	shared := 0
	if b.counter < b.restartInterval {
		shared = sharedPrefixLen(b.lastKey, key)
	} else {
		b.restarts = append(b.restarts, uint32(b.buf.Len()))
		b.counter = 0
	}
	nonShared := len(key) - shared

	var hdr [3 * coding.MaxVarint32Len]byte
	n := 0
	n += putVarint32Into(hdr[n:], uint32(shared))
	n += putVarint32Into(hdr[n:], uint32(nonShared))
	n += putVarint32Into(hdr[n:], uint32(len(value)))
	b.buf.Write(hdr[:n])
	b.buf.Write(key[shared:])
	b.buf.Write(value)

	b.lastKey = append(b.lastKey[:0], key...)
	b.counter++
}

func putVarint32Into(dst []byte, v uint32) int {
	out := coding.PutVarint32(dst[:0], v)
	return len(out)
}

func sharedPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// CurrentSizeEstimate returns the block's size if Finish were called now:
// body bytes, restart array, and the trailing restart-count word.
func (b *BlockBuilder) CurrentSizeEstimate() int {
	return b.buf.Len() + len(b.restarts)*4 + 4
}

// Finish appends the restart array and its count, returning the complete
// block body (the caller is responsible for the compression/CRC trailer).
func (b *BlockBuilder) Finish() []byte {
	for _, r := range b.restarts {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], r)
		b.buf.Write(tmp[:])
	}
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(len(b.restarts)))
	b.buf.Write(tmp[:])
	b.finished = true
	return b.buf.Bytes()
}

// BlockReader parses a finished block body (without its trailer) and
// serves seeks/scans over its entries.
type BlockReader struct {
	data          []byte
	restartOffset int // byte offset where the restart array begins
	numRestarts   int
}

// NewBlockReader validates and wraps a block's decompressed body.
func NewBlockReader(data []byte) (*BlockReader, error) {
	if len(data) < 4 {
		return nil, kvstatus.NewCorruption(fmt.Sprintf("sstable: block too short: %d bytes", len(data))).ToError()
	}
	numRestarts := int(binary.LittleEndian.Uint32(data[len(data)-4:]))
	restartOffset := len(data) - 4 - numRestarts*4
	if restartOffset < 0 {
		return nil, kvstatus.NewCorruption(fmt.Sprintf("sstable: block restart count %d overflows block of %d bytes", numRestarts, len(data))).ToError()
	}
	return &BlockReader{data: data, restartOffset: restartOffset, numRestarts: numRestarts}, nil
}

func (r *BlockReader) restartPoint(i int) uint32 {
	return binary.LittleEndian.Uint32(r.data[r.restartOffset+i*4:])
}

// decodeEntryAt parses one shared/non_shared/value_len entry starting at
// offset, returning the full reconstructed key (building on prevKey), the
// value, and the offset immediately after the entry. ok is false on
// malformed input.
func decodeEntryAt(data []byte, offset int, prevKey []byte) (key, value []byte, next int, ok bool) {
	if offset >= len(data) {
		return nil, nil, 0, false
	}
	p := data[offset:]
	shared, p, o1 := coding.GetVarint32(p)
	if !o1 {
		return nil, nil, 0, false
	}
	nonShared, p, o2 := coding.GetVarint32(p)
	if !o2 {
		return nil, nil, 0, false
	}
	valLen, p, o3 := coding.GetVarint32(p)
	if !o3 {
		return nil, nil, 0, false
	}
	if uint32(len(p)) < nonShared+valLen {
		return nil, nil, 0, false
	}
	if int(shared) > len(prevKey) {
		return nil, nil, 0, false
	}
	key = make([]byte, 0, shared+nonShared)
	key = append(key, prevKey[:shared]...)
	key = append(key, p[:nonShared]...)
	value = p[nonShared : nonShared+valLen]
	consumed := len(data[offset:]) - len(p) + int(nonShared+valLen)
	return key, value, offset + consumed, true
}

// BlockIterator walks a BlockReader's entries in key order.
type BlockIterator struct {
	r       *BlockReader
	offset  int // current entry's start offset, or len(r.data) past-end markers
	nextOff int
	key     []byte
	value   []byte
	valid   bool
}

// NewIterator returns an iterator positioned before the first entry.
func (r *BlockReader) NewIterator() *BlockIterator {
	return &BlockIterator{r: r}
}

// Valid reports whether the iterator sits on an entry.
func (it *BlockIterator) Valid() bool { return it.valid }

// Key returns the current entry's fully reconstructed key.
func (it *BlockIterator) Key() []byte { return it.key }

// Value returns the current entry's value.
func (it *BlockIterator) Value() []byte { return it.value }

func (it *BlockIterator) parseAt(offset int, prevKey []byte) bool {
	key, value, next, ok := decodeEntryAt(it.r.data[:it.r.restartOffset], offset, prevKey)
	if !ok {
		it.valid = false
		return false
	}
	it.key, it.value = key, value
	it.offset = offset
	it.nextOff = next
	it.valid = true
	return true
}

// SeekToFirst positions at the block's first entry.
func (it *BlockIterator) SeekToFirst() {
	it.parseAt(0, nil)
}

// seekToRestart positions exactly at restart index i, which is always a
// full key (shared = 0), so no previous key is needed.
func (it *BlockIterator) seekToRestart(i int) {
	it.parseAt(int(it.r.restartPoint(i)), nil)
}

// SeekToLast positions at the block's last entry by jumping to the last
// restart point and scanning forward to the end of the entries.
func (it *BlockIterator) SeekToLast() {
	if it.r.numRestarts == 0 {
		it.valid = false
		return
	}
	it.seekToRestart(it.r.numRestarts - 1)
	for it.valid && it.nextOff < it.r.restartOffset {
		it.Next()
	}
}

// Next advances to the next entry.
func (it *BlockIterator) Next() {
	if !it.valid {
		return
	}
	it.parseAt(it.nextOff, it.key)
}

// Prev moves to the entry before the current one. Since there are no
// backward entry links, this seeks to the restart before the current
// position and scans forward, costing O(restart_interval).
func (it *BlockIterator) Prev() {
	if !it.valid {
		return
	}
	current := it.offset
	restart := sort.Search(it.r.numRestarts, func(i int) bool {
		return int(it.r.restartPoint(i)) >= current
	}) - 1
	if restart < 0 {
		it.valid = false
		return
	}
	it.seekToRestart(restart)
	for it.valid && it.nextOff < current {
		it.Next()
	}
}

// Seek positions at the first entry whose key is >= target, using cmp to
// compare keys.
func (it *BlockIterator) Seek(target []byte, cmp func(a, b []byte) int) {
	if it.r.numRestarts == 0 {
		it.valid = false
		return
	}
	lo, hi := 0, it.r.numRestarts-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		key, _, _, ok := decodeEntryAt(it.r.data[:it.r.restartOffset], int(it.r.restartPoint(mid)), nil)
		if !ok {
			it.valid = false
			return
		}
		if cmp(key, target) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	it.seekToRestart(lo)
	for it.valid && cmp(it.key, target) < 0 {
		it.Next()
	}
}
