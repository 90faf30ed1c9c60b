// Package coding provides the fixed-width and LEB128-style variable-length
// integer encodings every other component in the engine depends on: block
// trailers, block handles, varstrings, and the write-batch header all
// bottom out here.
package coding

import "encoding/binary"

const (
	// MaxVarint32Len is the longest encoding of a uint32 varint.
	MaxVarint32Len = 5
	// MaxVarint64Len is the longest encoding of a uint64 varint.
	MaxVarint64Len = 10
)

// PutFixed32 appends the little-endian 4-byte encoding of v to dst.
func PutFixed32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

// PutFixed64 appends the little-endian 8-byte encoding of v to dst.
func PutFixed64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// EncodeFixed32 returns the little-endian 4-byte encoding of v.
func EncodeFixed32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

// EncodeFixed64 returns the little-endian 8-byte encoding of v.
func EncodeFixed64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

// DecodeFixed32 decodes a little-endian 4-byte integer from the front of b.
func DecodeFixed32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// DecodeFixed64 decodes a little-endian 8-byte integer from the front of b.
func DecodeFixed64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// PutVarint32 appends the LEB128 encoding of v to dst.
func PutVarint32(dst []byte, v uint32) []byte { return PutVarint64(dst, uint64(v)) }

// PutVarint64 appends the LEB128 encoding of v to dst.
func PutVarint64(dst []byte, v uint64) []byte {
	var buf [MaxVarint64Len]byte
	n := binary.PutUvarint(buf[:], v)
	return append(dst, buf[:n]...)
}

// VarintLength32 returns the number of bytes PutVarint32 would emit for v.
func VarintLength32(v uint32) int { return VarintLength64(uint64(v)) }

// VarintLength64 returns the number of bytes PutVarint64 would emit for v.
func VarintLength64(v uint64) int {
	n := 1
	for v >= 128 {
		v >>= 7
		n++
	}
	return n
}

// GetVarint32 decodes a varint32 from the front of b, returning the value
// and the remaining bytes. ok is false if b contains no valid varint.
func GetVarint32(b []byte) (v uint32, rest []byte, ok bool) {
	u, n := binary.Uvarint(b)
	if n <= 0 || u > uint64(^uint32(0)) {
		return 0, b, false
	}
	return uint32(u), b[n:], true
}

// GetVarint64 decodes a varint64 from the front of b, returning the value
// and the remaining bytes. ok is false if b contains no valid varint.
func GetVarint64(b []byte) (v uint64, rest []byte, ok bool) {
	u, n := binary.Uvarint(b)
	if n <= 0 {
		return 0, b, false
	}
	return u, b[n:], true
}

// PutVarstring appends a length-prefixed string: varint32(len(s)) ‖ s.
func PutVarstring(dst []byte, s []byte) []byte {
	dst = PutVarint32(dst, uint32(len(s)))
	return append(dst, s...)
}

// GetVarstring decodes a length-prefixed string from the front of b.
func GetVarstring(b []byte) (s []byte, rest []byte, ok bool) {
	l, rest, ok := GetVarint32(b)
	if !ok || uint32(len(rest)) < l {
		return nil, b, false
	}
	return rest[:l], rest[l:], true
}
