// Package comparator defines the user-supplied key-ordering capability
// consumed throughout the engine: the memtable, the SST block/table
// builders, and the internal-key comparator all delegate user-key
// comparisons to a Comparator instance.
package comparator

// Comparator orders user keys and can shorten keys while preserving
// ordering bounds, which the SST table builder uses to keep index
// entries small.
type Comparator interface {
	// Name identifies the comparator. The SST builder does not record it
	// and sstable.Open does not check it, so a table opened with a
	// comparator other than the one it was built with is not detected.
	Name() string

	// Compare returns -1, 0, or +1 as a is less than, equal to, or
	// greater than b.
	Compare(a, b []byte) int

	// FindShortestSeparator may shrink start to any byte string s with
	// start <= s < limit. It is always safe to leave start unchanged.
	FindShortestSeparator(start, limit []byte) []byte

	// FindShortSuccessor may shrink key to any byte string s with
	// s >= key. It is always safe to leave key unchanged.
	FindShortSuccessor(key []byte) []byte
}

// BytewiseComparator orders keys by plain lexicographic byte order; it is
// the default comparator used when the caller supplies none.
type BytewiseComparator struct{}

var _ Comparator = BytewiseComparator{}

// New returns the default lexicographic comparator.
func New() Comparator { return BytewiseComparator{} }

func (BytewiseComparator) Name() string { return "strata.BytewiseComparator" }

func (BytewiseComparator) Compare(a, b []byte) int {
	switch {
	case len(a) < len(b):
		n := compareCommon(a, b)
		if n != 0 {
			return n
		}
		return -1
	case len(a) > len(b):
		n := compareCommon(a, b)
		if n != 0 {
			return n
		}
		return 1
	default:
		return compareCommon(a, b)
	}
}

func compareCommon(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// FindShortestSeparator finds the common prefix shared by start and
// limit, then bumps the first differing byte of start up by one when
// that still keeps the result < limit. If no shortening is possible it
// returns start unchanged.
func (c BytewiseComparator) FindShortestSeparator(start, limit []byte) []byte {
	minLen := len(start)
	if len(limit) < minLen {
		minLen = len(limit)
	}
	diffIdx := 0
	for diffIdx < minLen && start[diffIdx] == limit[diffIdx] {
		diffIdx++
	}
	if diffIdx >= minLen {
		// One is a prefix of the other; no shortening is safe.
		return start
	}
	b := start[diffIdx]
	if b < 0xff && int(b)+1 < limitByteAt(limit, diffIdx) {
		shortened := append([]byte{}, start[:diffIdx+1]...)
		shortened[diffIdx]++
		return shortened
	}
	return start
}

func limitByteAt(limit []byte, i int) int {
	if i >= len(limit) {
		return 256 // no byte at this position in limit; treat as unbounded
	}
	return int(limit[i])
}

// FindShortSuccessor finds the shortest key >= key by truncating at the
// first byte that can be incremented without overflow, or returns key
// unchanged if every byte is 0xff.
func (c BytewiseComparator) FindShortSuccessor(key []byte) []byte {
	for i := 0; i < len(key); i++ {
		if key[i] != 0xff {
			shortened := append([]byte{}, key[:i+1]...)
			shortened[i]++
			return shortened
		}
	}
	return key
}
