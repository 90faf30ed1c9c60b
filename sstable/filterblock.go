package sstable

import (
	"encoding/binary"
	"fmt"

	"github.com/strata-db/strata/filter"
	"github.com/strata-db/strata/kvstatus"
)

// FilterBlockBuilder buckets data-block starting offsets into FilterBase
// (2 KiB by default) ranges and, for each bucket boundary crossed while
// adding keys, closes out a Bloom filter over the keys accumulated so
// far for that bucket. Buckets a data block never touched still get a
// (possibly empty) filter so the reader can index by offset directly.
type FilterBlockBuilder struct {
	policy      filter.Policy
	keys        [][]byte
	result      []byte
	filterStart []uint32
}

// NewFilterBlockBuilder returns a builder for the given filter policy.
func NewFilterBlockBuilder(policy filter.Policy) *FilterBlockBuilder {
	return &FilterBlockBuilder{policy: policy}
}

// StartBlock notifies the builder that a new data block begins at
// blockOffset, closing out filters for every bucket boundary crossed
// since the previous call.
func (b *FilterBlockBuilder) StartBlock(blockOffset uint64) {
	bucket := blockOffset / FilterBase
	for uint64(len(b.filterStart)) < bucket {
		b.generateFilter()
	}
}

// AddKey records key as belonging to the filter bucket currently being
// built.
func (b *FilterBlockBuilder) AddKey(key []byte) {
	b.keys = append(b.keys, append([]byte(nil), key...))
}

func (b *FilterBlockBuilder) generateFilter() {
	b.filterStart = append(b.filterStart, uint32(len(b.result)))
	if len(b.keys) == 0 {
		return
	}
	f := b.policy.CreateFilter(b.keys)
	b.result = append(b.result, f...)
	b.keys = b.keys[:0]
}

// Finish closes out any pending bucket and appends the offset array,
// array-start word, and base-log2 byte.
func (b *FilterBlockBuilder) Finish() []byte {
	if len(b.keys) > 0 {
		b.generateFilter()
	}
	arrayStart := uint32(len(b.result))
	out := append([]byte(nil), b.result...)
	for _, off := range b.filterStart {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], off)
		out = append(out, tmp[:]...)
	}
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], arrayStart)
	out = append(out, tmp[:]...)
	out = append(out, FilterBaseLog2)
	return out
}

// FilterBlockReader answers key_may_match queries against a decoded
// filter block, given a data-block offset to resolve which bucket's
// filter applies.
type FilterBlockReader struct {
	policy      filter.Policy
	data        []byte
	offsetStart int
	numFilters  int
	baseLog2    uint
}

// NewFilterBlockReader wraps a finished filter block's bytes.
func NewFilterBlockReader(policy filter.Policy, data []byte) (*FilterBlockReader, error) {
	if len(data) < 5 {
		return nil, kvstatus.NewCorruption(fmt.Sprintf("sstable: filter block too short: %d bytes", len(data))).ToError()
	}
	baseLog2 := uint(data[len(data)-1])
	arrayStart := binary.LittleEndian.Uint32(data[len(data)-5:])
	if int(arrayStart) > len(data)-5 {
		return nil, kvstatus.NewCorruption("sstable: filter block array start out of range").ToError()
	}
	numFilters := (len(data) - 5 - int(arrayStart)) / 4
	return &FilterBlockReader{
		policy:      policy,
		data:        data,
		offsetStart: int(arrayStart),
		numFilters:  numFilters,
		baseLog2:    baseLog2,
	}, nil
}

func (r *FilterBlockReader) filterOffset(i int) uint32 {
	return binary.LittleEndian.Uint32(r.data[r.offsetStart+i*4:])
}

// KeyMayMatch reports whether key may be present in the data block
// starting at blockOffset. Out-of-range indices are treated as
// "possibly present" since filters are only ever an optimization.
func (r *FilterBlockReader) KeyMayMatch(blockOffset uint64, key []byte) bool {
	index := int(blockOffset >> r.baseLog2)
	if index < 0 || index >= r.numFilters {
		return true
	}
	start := r.filterOffset(index)
	var limit uint32
	if index+1 < r.numFilters {
		limit = r.filterOffset(index + 1)
	} else {
		limit = uint32(r.offsetStart)
	}
	if start > limit || int(limit) > r.offsetStart {
		return true
	}
	return r.policy.KeyMayMatch(key, r.data[start:limit])
}
