// Package wal implements the 32 KiB block-framed write-ahead log: the
// physical record format, the writer that fragments payloads across
// block boundaries, and the reader that reassembles fragments and
// resynchronizes after corruption, mirroring the storage engine's
// "durability before visibility" write path.
package wal

import (
	"hash/crc32"
)

// BlockSize is the fixed size of every WAL block except the final,
// partially-written one.
const BlockSize = 32768

// HeaderSize is the size of a physical record's header: crc32 ‖
// length(2) ‖ type(1).
const HeaderSize = 7

// RecordType tags a physical record's role within a fragmented logical
// record.
type RecordType byte

const (
	// typeZero is reserved and never written; a read of this type marks
	// the remainder of the block as zero padding.
	typeZero RecordType = 0
	Full     RecordType = 1
	First    RecordType = 2
	Middle   RecordType = 3
	Last     RecordType = 4
)

// maskDelta is added to every record's rotated CRC (see mask) so that an
// all-zero region (e.g. a zero-padded block tail) cannot be mistaken for
// a valid record by coincidence.
const maskDelta = 0xa282ead8

// rawCRC computes the CRC32 of a record's type byte followed by its
// payload, matching the "crc(type ‖ payload)" the spec's writer computes.
func rawCRC(recType RecordType, payload []byte) uint32 {
	h := crc32.NewIEEE()
	h.Write([]byte{byte(recType)})
	h.Write(payload)
	return h.Sum32()
}

// mask rotates crc right by 15 bits and adds a constant delta, the
// standard trick (shared with the checksum conventions the rest of the
// storage engine uses) for ensuring an all-zero buffer never produces a
// crc that looks valid.
func mask(crc uint32) uint32 {
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

func unmask(masked uint32) uint32 {
	rot := masked - maskDelta
	return (rot << 15) | (rot >> 17)
}
