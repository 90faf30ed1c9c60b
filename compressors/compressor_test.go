package compressors

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allCompressors() []Compressor {
	return []Compressor{
		&NoCompressionCompressor{},
		NewSnappyCompressor(),
		NewLz4Compressor(),
		NewZstdCompressor(),
	}
}

func TestRoundTripAllCodecs(t *testing.T) {
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)

	for _, c := range allCompressors() {
		t.Run(c.Type().String(), func(t *testing.T) {
			compressed, err := c.Compress(payload)
			require.NoError(t, err)

			rc, err := c.Decompress(compressed)
			require.NoError(t, err)
			defer rc.Close()

			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestCompressToMatchesCompress(t *testing.T) {
	payload := []byte("a short message to compress")

	for _, c := range allCompressors() {
		t.Run(c.Type().String(), func(t *testing.T) {
			want, err := c.Compress(payload)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, c.CompressTo(&buf, payload))
			assert.Equal(t, want, buf.Bytes())
		})
	}
}

func TestEmptyPayloadRoundTrips(t *testing.T) {
	for _, c := range allCompressors() {
		t.Run(c.Type().String(), func(t *testing.T) {
			compressed, err := c.Compress(nil)
			require.NoError(t, err)

			rc, err := c.Decompress(compressed)
			require.NoError(t, err)
			defer rc.Close()

			got, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestGetReturnsMatchingCodec(t *testing.T) {
	for _, want := range []CompressionType{CompressionNone, CompressionSnappy, CompressionLZ4, CompressionZSTD} {
		c, err := Get(want)
		require.NoError(t, err)
		assert.Equal(t, want, c.Type())
	}

	_, err := Get(CompressionType(99))
	assert.Error(t, err)
}
