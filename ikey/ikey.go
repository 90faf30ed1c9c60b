// Package ikey implements the internal-key format that couples every
// user key with a sequence number and a value-type tag, the ordering it
// imposes, and the small owned LookupKey buffer used to probe the
// memtable and SST readers.
package ikey

import (
	"fmt"

	"github.com/strata-db/strata/coding"
	"github.com/strata-db/strata/comparator"
)

// ValueType tags whether an internal key records a live value or a
// tombstone.
type ValueType uint8

const (
	TypeDeletion ValueType = 0
	TypeValue    ValueType = 1
)

// MaxSequenceNumber is the largest representable 56-bit sequence number.
const MaxSequenceNumber uint64 = (uint64(1) << 56) - 1

// SeekValueType is used when constructing a seek target: it is numerically
// the largest ValueType, so a seek at a given sequence lands on or before
// any record with that same sequence regardless of its actual type.
const SeekValueType = TypeValue

// packTag combines a sequence number and type into the trailing 8 bytes
// of an internal key: (sequence << 8) | type, little-endian.
func packTag(seq uint64, t ValueType) uint64 {
	return (seq << 8) | uint64(t)
}

func unpackTag(tag uint64) (seq uint64, t ValueType) {
	return tag >> 8, ValueType(tag & 0xff)
}

// Encode returns user_key ‖ pack(seq, t).
func Encode(userKey []byte, seq uint64, t ValueType) []byte {
	buf := make([]byte, 0, len(userKey)+8)
	buf = append(buf, userKey...)
	buf = coding.PutFixed64(buf, packTag(seq, t))
	return buf
}

// AppendEncode is Encode but appending onto dst rather than allocating a
// fresh buffer, used by the memtable and LookupKey on their own
// buffers.
func AppendEncode(dst, userKey []byte, seq uint64, t ValueType) []byte {
	dst = append(dst, userKey...)
	dst = coding.PutFixed64(dst, packTag(seq, t))
	return dst
}

// Parse splits an internal key into its user-key slice, sequence number
// and type. An error is returned if the trailing type byte is out of
// range or the key is shorter than the 8-byte tag.
func Parse(internal []byte) (userKey []byte, seq uint64, t ValueType, err error) {
	if len(internal) < 8 {
		return nil, 0, 0, fmt.Errorf("ikey: corrupt internal key: length %d < 8", len(internal))
	}
	n := len(internal) - 8
	tag := coding.DecodeFixed64(internal[n:])
	seq, t = unpackTag(tag)
	if t != TypeValue && t != TypeDeletion {
		return nil, 0, 0, fmt.Errorf("ikey: corrupt internal key: type %d out of range", t)
	}
	return internal[:n], seq, t, nil
}

// ExtractUserKey returns the user-key slice of internal without
// validating the trailing tag; callers that only need the key (e.g. the
// internal comparator and the memtable iterator) use this fast path.
func ExtractUserKey(internal []byte) []byte {
	if len(internal) < 8 {
		return internal
	}
	return internal[:len(internal)-8]
}

// InternalComparator orders internal keys by user key ascending, then by
// sequence number descending, then by type descending, so that a forward
// scan at a fixed snapshot yields the newest visible version of each user
// key first.
type InternalComparator struct {
	User comparator.Comparator
}

var _ comparator.Comparator = InternalComparator{}

// NewInternalComparator wraps a user comparator.
func NewInternalComparator(user comparator.Comparator) InternalComparator {
	return InternalComparator{User: user}
}

func (c InternalComparator) Name() string {
	return "strata.InternalKeyComparator:" + c.User.Name()
}

func (c InternalComparator) Compare(a, b []byte) int {
	ua, ub := ExtractUserKey(a), ExtractUserKey(b)
	if n := c.User.Compare(ua, ub); n != 0 {
		return n
	}
	// Equal user keys: higher sequence sorts first (descending), and for
	// equal sequence, higher type sorts first.
	tagA := coding.DecodeFixed64(a[len(a)-8:])
	tagB := coding.DecodeFixed64(b[len(b)-8:])
	switch {
	case tagA > tagB:
		return -1
	case tagA < tagB:
		return 1
	default:
		return 0
	}
}

// FindShortestSeparator shortens the user-key portion of start using the
// wrapped comparator; if the user portion actually shrank (and the
// result increased relative to the original user key) it re-appends a
// trailing tag of (MaxSequenceNumber, SeekValueType) so the shortened
// internal key remains strictly greater than the original, preserving
// "start <= s' < limit" at the internal-key level.
func (c InternalComparator) FindShortestSeparator(start, limit []byte) []byte {
	userStart := ExtractUserKey(start)
	userLimit := ExtractUserKey(limit)
	shortUser := c.User.FindShortestSeparator(userStart, userLimit)
	if len(shortUser) < len(userStart) && c.User.Compare(userStart, shortUser) < 0 {
		return Encode(shortUser, MaxSequenceNumber, SeekValueType)
	}
	return start
}

// FindShortSuccessor is the single-argument analogue of
// FindShortestSeparator, used for the final index entry in a table.
func (c InternalComparator) FindShortSuccessor(key []byte) []byte {
	userKey := ExtractUserKey(key)
	shortUser := c.User.FindShortSuccessor(userKey)
	if len(shortUser) < len(userKey) && c.User.Compare(userKey, shortUser) < 0 {
		return Encode(shortUser, MaxSequenceNumber, SeekValueType)
	}
	return key
}

// maxLookupKeyInlineLen is the small-buffer-optimization threshold: total
// encoded length (varint32 prefix + internal key) at or under this many
// bytes uses the inline array; longer keys heap-allocate.
const maxLookupKeyInlineLen = 200

// LookupKey is a small owned buffer carrying the three views a memtable
// or SST probe needs: the varint32-length-prefixed memtable key, the
// internal key, and the bare user key. All three are slices into the
// same backing array and remain valid for the lifetime of the LookupKey.
type LookupKey struct {
	buf    [maxLookupKeyInlineLen]byte
	data   []byte // the live backing slice: varint32(len) ‖ internal_key
	keyLen int    // offset of the internal key within data
}

// New builds a LookupKey for (userKey, seq) with type = SeekValueType, so
// a seek using memtable_key() finds the newest record at or before seq.
func New(userKey []byte, seq uint64) *LookupKey {
	internalLen := len(userKey) + 8
	total := coding.VarintLength32(uint32(internalLen)) + internalLen

	lk := &LookupKey{}
	var dst []byte
	if total <= maxLookupKeyInlineLen {
		dst = lk.buf[:0]
	} else {
		dst = make([]byte, 0, total)
	}
	dst = coding.PutVarint32(dst, uint32(internalLen))
	lk.keyLen = len(dst)
	dst = AppendEncode(dst, userKey, seq, SeekValueType)
	lk.data = dst
	return lk
}

// MemtableKey returns varint32(len(internal_key)) ‖ internal_key.
func (lk *LookupKey) MemtableKey() []byte { return lk.data }

// InternalKey returns user_key ‖ pack(seq, type).
func (lk *LookupKey) InternalKey() []byte { return lk.data[lk.keyLen:] }

// UserKey returns the bare user key.
func (lk *LookupKey) UserKey() []byte {
	ik := lk.InternalKey()
	return ik[:len(ik)-8]
}
