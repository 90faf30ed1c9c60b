// Package compressors implements the pluggable block-compression codecs an
// SST writer/reader selects per table: none, Snappy, LZ4 and Zstd, matching
// the one-byte compression tag stored alongside each data block.
package compressors

import (
	"bytes"
	"fmt"
	"io"
)

// CompressionType is the one-byte tag persisted after every compressed
// block, so a reader can pick the matching codec without external context.
type CompressionType byte

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionLZ4
	CompressionZSTD
)

func (t CompressionType) String() string {
	switch t {
	case CompressionNone:
		return "none"
	case CompressionSnappy:
		return "snappy"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// Compressor compresses and decompresses block payloads for one codec.
type Compressor interface {
	Type() CompressionType
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) (io.ReadCloser, error)
	// CompressTo compresses src into dst, reusing dst's backing array
	// across calls to avoid a fresh allocation per block.
	CompressTo(dst *bytes.Buffer, src []byte) error
}

// Get returns the Compressor registered for t, or an error if t is unknown.
func Get(t CompressionType) (Compressor, error) {
	switch t {
	case CompressionNone:
		return &NoCompressionCompressor{}, nil
	case CompressionSnappy:
		return NewSnappyCompressor(), nil
	case CompressionLZ4:
		return NewLz4Compressor(), nil
	case CompressionZSTD:
		return NewZstdCompressor(), nil
	default:
		return nil, fmt.Errorf("compressors: unknown compression type %d", t)
	}
}
