// Package filter defines the FilterPolicy capability set consumed by the
// SST filter meta block, plus a default Bloom-filter implementation.
// False positives are permitted; false negatives are forbidden, and any
// error or out-of-range condition must resolve to "may match" so a
// filter is only ever an optimization, never authoritative.
package filter

import (
	"hash/fnv"
	"math"
)

// Policy is the capability set a filter-block builder/reader needs. The
// table format records Name() in its metadata so an open-time mismatch
// against a differently-configured filter is detectable: sstable.Open
// then finds no filter block under the new name and reads without one.
type Policy interface {
	Name() string
	CreateFilter(keys [][]byte) []byte
	KeyMayMatch(key, filter []byte) bool
}

// DefaultBitsPerKey is the conventional LevelDB default (~1% FP rate).
const DefaultBitsPerKey = 10

// bloomPolicy implements Policy with a classic double-hashed Bloom
// filter: one FNV-1a 64-bit hash is split and combined to simulate k
// independent probes, avoiding k separate hash computations per key.
type bloomPolicy struct {
	bitsPerKey int
	k          int
}

// NewBloomFilterPolicy returns a Policy backed by a Bloom filter sized
// for bitsPerKey bits of filter state per key added.
func NewBloomFilterPolicy(bitsPerKey int) Policy {
	if bitsPerKey < 1 {
		bitsPerKey = DefaultBitsPerKey
	}
	k := int(math.Round(float64(bitsPerKey) * 0.69)) // ln(2)
	if k < 1 {
		k = 1
	}
	if k > 30 {
		k = 30
	}
	return &bloomPolicy{bitsPerKey: bitsPerKey, k: k}
}

func (p *bloomPolicy) Name() string { return "strata.BuiltinBloomFilter" }

// CreateFilter builds one filter over all of keys. An empty key list
// produces a zero-length filter, matching the "empty buckets emit
// zero-length filters" rule for the filter meta block's bucket scheme.
// Otherwise the layout is bits ‖ byte(k): the trailing byte records the
// probe count so a reader can decode filters from a differently-tuned
// writer, the same forward-compatible trick the block format uses for
// its filter-base exponent byte.
func (p *bloomPolicy) CreateFilter(keys [][]byte) []byte {
	if len(keys) == 0 {
		return nil
	}
	numBits := len(keys) * p.bitsPerKey
	if numBits < 64 {
		numBits = 64
	}
	numBytes := (numBits + 7) / 8
	numBits = numBytes * 8

	filterBytes := make([]byte, numBytes+1)
	for _, key := range keys {
		h := bloomHash(key)
		delta := (h >> 17) | (h << 15) // rotate, the standard double-hash trick
		for i := 0; i < p.k; i++ {
			bitPos := h % uint32(numBits)
			filterBytes[bitPos/8] |= 1 << (bitPos % 8)
			h += delta
		}
	}
	filterBytes[numBytes] = byte(p.k)
	return filterBytes
}

func (p *bloomPolicy) KeyMayMatch(key, filterBytes []byte) bool {
	if len(filterBytes) == 0 {
		return false // a deliberately empty filter means "no keys here"
	}
	if len(filterBytes) < 2 {
		return true // malformed: conservative
	}
	numBits := (len(filterBytes) - 1) * 8
	k := int(filterBytes[len(filterBytes)-1])
	if k > 30 {
		// Reserved encoding from a format this reader predates.
		return true
	}
	h := bloomHash(key)
	delta := (h >> 17) | (h << 15)
	for i := 0; i < k; i++ {
		bitPos := h % uint32(numBits)
		if filterBytes[bitPos/8]&(1<<(bitPos%8)) == 0 {
			return false
		}
		h += delta
	}
	return true
}

func bloomHash(data []byte) uint32 {
	h := fnv.New64a()
	h.Write(data)
	sum := h.Sum64()
	return uint32(sum) ^ uint32(sum>>32)
}
