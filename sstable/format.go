// Package sstable implements the immutable, ordered on-disk table
// format: prefix-compressed data blocks with restart points, an optional
// Bloom-filter meta block, a meta-index block, an index block, and a
// fixed 48-byte footer — plus the table builder and table reader that
// produce and consume it, reading blocks through a shared sharded cache.
package sstable

import (
	"encoding/binary"
	"fmt"

	"github.com/strata-db/strata/coding"
	"github.com/strata-db/strata/kvstatus"
)

// Magic identifies a well-formed footer; it is the last 8 bytes of every
// table file.
const Magic uint64 = 0xdb4775248b80fb57

// FooterLength is the fixed on-disk size of the footer: two block
// handles, each up to coding.MaxVarint64Len*2 bytes, padded out to a
// constant size, followed by the 8-byte magic.
const FooterLength = 2*(2*coding.MaxVarint64Len) + 8

// BlockTrailerLength is the 5-byte trailer appended after every block:
// a 1-byte compression tag and a 4-byte masked CRC32.
const BlockTrailerLength = 5

// DefaultBlockSize is the target uncompressed size of a data block
// before the table builder flushes it.
const DefaultBlockSize = 4096

// DefaultBlockRestartInterval is the number of entries between full-key
// restart points in a data block.
const DefaultBlockRestartInterval = 16

// IndexBlockRestartInterval is always 1: index entries are already short
// separators, so there is nothing to gain from prefix compression.
const IndexBlockRestartInterval = 1

// FilterBaseLog2 is the exponent of the filter block's bucket size
// (2^11 = 2048 bytes), the granularity at which new Bloom filters begin.
const FilterBaseLog2 = 11

// FilterBase is the byte span of data-block offsets covered by a single
// filter bucket.
const FilterBase = 1 << FilterBaseLog2

// CompressionAcceptanceNumerator/Denominator: a compressed block is kept only
// if compressed_size < raw_size * Numerator/Denominator (7/8).
const (
	CompressionAcceptanceNumerator   = 7
	CompressionAcceptanceDenominator = 8
)

// BlockHandle points at a block within the file: its offset and encoded
// size (excluding the block's own trailer).
type BlockHandle struct {
	Offset uint64
	Size   uint64
}

// EncodeTo appends the handle's varint64 offset and size to dst.
func (h BlockHandle) EncodeTo(dst []byte) []byte {
	dst = coding.PutVarint64(dst, h.Offset)
	dst = coding.PutVarint64(dst, h.Size)
	return dst
}

// DecodeBlockHandle decodes a handle from the front of b, returning the
// handle and the remaining bytes.
func DecodeBlockHandle(b []byte) (BlockHandle, []byte, error) {
	offset, rest, ok := coding.GetVarint64(b)
	if !ok {
		return BlockHandle{}, b, kvstatus.NewCorruption("sstable: bad block handle offset varint").ToError()
	}
	size, rest, ok := coding.GetVarint64(rest)
	if !ok {
		return BlockHandle{}, b, kvstatus.NewCorruption("sstable: bad block handle size varint").ToError()
	}
	return BlockHandle{Offset: offset, Size: size}, rest, nil
}

// Footer is the fixed-size trailer identifying a table's metaindex and
// index blocks.
type Footer struct {
	MetaIndexHandle BlockHandle
	IndexHandle     BlockHandle
}

// EncodeTo writes the footer, zero-padded to FooterLength, terminated by
// the magic number.
func (f Footer) EncodeTo() []byte {
	buf := make([]byte, 0, FooterLength)
	buf = f.MetaIndexHandle.EncodeTo(buf)
	buf = f.IndexHandle.EncodeTo(buf)
	padded := make([]byte, FooterLength)
	copy(padded, buf)
	binary.LittleEndian.PutUint64(padded[FooterLength-8:], Magic)
	return padded
}

// DecodeFooter parses a FooterLength-byte buffer, verifying the magic.
func DecodeFooter(b []byte) (Footer, error) {
	if len(b) != FooterLength {
		return Footer{}, kvstatus.NewCorruption(fmt.Sprintf("sstable: footer length %d != %d", len(b), FooterLength)).ToError()
	}
	magic := binary.LittleEndian.Uint64(b[FooterLength-8:])
	if magic != Magic {
		return Footer{}, kvstatus.NewCorruption(fmt.Sprintf("sstable: bad footer magic %#x", magic)).ToError()
	}
	metaIndex, rest, err := DecodeBlockHandle(b)
	if err != nil {
		return Footer{}, kvstatus.NewCorruption("sstable: corrupt footer").Wrap(err)
	}
	index, _, err := DecodeBlockHandle(rest)
	if err != nil {
		return Footer{}, kvstatus.NewCorruption("sstable: corrupt footer").Wrap(err)
	}
	return Footer{MetaIndexHandle: metaIndex, IndexHandle: index}, nil
}
