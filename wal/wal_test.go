package wal

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFile is a WritableFile and SequentialFile backed by an in-memory
// buffer, standing in for the engine's real Env file abstractions in
// tests.
type memFile struct {
	data []byte
	pos  int
}

func (f *memFile) Append(b []byte) error {
	f.data = append(f.data, b...)
	return nil
}
func (f *memFile) Flush() error { return nil }
func (f *memFile) Sync() error  { return nil }

func (f *memFile) Read(buf []byte) (int, error) {
	if f.pos >= len(f.data) {
		return 0, io.EOF
	}
	n := copy(buf, f.data[f.pos:])
	f.pos += n
	return n, nil
}

func (f *memFile) Skip(n int64) error {
	f.pos += int(n)
	return nil
}

type collectingReporter struct {
	reports []string
	bytes   []int
}

func (r *collectingReporter) Corruption(n int, reason string) {
	r.reports = append(r.reports, reason)
	r.bytes = append(r.bytes, n)
}

func TestRoundTripSimplePayloads(t *testing.T) {
	f := &memFile{}
	w := NewWriter(f, 0, nil)
	payloads := [][]byte{[]byte("one"), {}, []byte("three")}
	for _, p := range payloads {
		require.NoError(t, w.AddRecord(p))
	}

	r, err := NewReader(f, nil, 0, nil)
	require.NoError(t, err)
	for _, want := range payloads {
		got, _, err := r.ReadRecord()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, _, err = r.ReadRecord()
	assert.Equal(t, io.EOF, err)
}

func TestFragmentationAcrossBlocks(t *testing.T) {
	f := &memFile{}
	w := NewWriter(f, 0, nil)
	small1 := bytes.Repeat([]byte("a"), 10)
	big := bytes.Repeat([]byte("b"), 40000)
	small2 := bytes.Repeat([]byte("c"), 7)

	require.NoError(t, w.AddRecord(small1))
	require.NoError(t, w.AddRecord(big))
	require.NoError(t, w.AddRecord(small2))

	r, err := NewReader(f, nil, 0, nil)
	require.NoError(t, err)

	got1, _, err := r.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, small1, got1)

	got2, _, err := r.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, big, got2)

	got3, _, err := r.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, small2, got3)

	_, _, err = r.ReadRecord()
	assert.Equal(t, io.EOF, err)
}

func TestCorruptionInMiddleRecordIsReportedAndSkipped(t *testing.T) {
	f := &memFile{}
	w := NewWriter(f, 0, nil)
	small1 := bytes.Repeat([]byte("a"), 10)
	big := bytes.Repeat([]byte("b"), 40000)
	small2 := bytes.Repeat([]byte("c"), 7)
	require.NoError(t, w.AddRecord(small1))
	require.NoError(t, w.AddRecord(big))
	require.NoError(t, w.AddRecord(small2))

	// Flip a byte inside the payload of the fragmented "big" record.
	f.data[HeaderSize+len(small1)+HeaderSize+5] ^= 0xff

	reporter := &collectingReporter{}
	r, err := NewReader(f, reporter, 0, nil)
	require.NoError(t, err)

	got1, _, err := r.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, small1, got1)

	got3, _, err := r.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, small2, got3)

	_, _, err = r.ReadRecord()
	assert.Equal(t, io.EOF, err)
	assert.NotEmpty(t, reporter.reports)
}

func TestTruncatedTailIsCleanEOF(t *testing.T) {
	f := &memFile{}
	w := NewWriter(f, 0, nil)
	require.NoError(t, w.AddRecord([]byte("hello")))
	require.NoError(t, w.AddRecord([]byte("world")))

	// Truncate mid-second-record: drop the last 3 bytes.
	f.data = f.data[:len(f.data)-3]

	reporter := &collectingReporter{}
	r, err := NewReader(f, reporter, 0, nil)
	require.NoError(t, err)

	got, _, err := r.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	_, _, err = r.ReadRecord()
	assert.Equal(t, io.EOF, err)
}

func TestResyncAtInitialOffsetSkipsEarlierFragments(t *testing.T) {
	f := &memFile{}
	w := NewWriter(f, 0, nil)
	big := bytes.Repeat([]byte("x"), 40000) // spans two blocks
	require.NoError(t, w.AddRecord(big))
	require.NoError(t, w.AddRecord([]byte("after")))

	r, err := NewReader(f, nil, BlockSize, nil)
	require.NoError(t, err)

	got, _, err := r.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, []byte("after"), got)
}

// TestResyncAtSubBlockInitialOffsetSkipsEarlierRecordInSameBlock covers a
// non-block-aligned initialOffset that falls inside a block already holding
// an earlier Full record: SkipToInitialBlock only rounds down to the block,
// so the reader must still drop that earlier record by physical offset
// rather than returning it once resync clears on the first non-Middle type.
func TestResyncAtSubBlockInitialOffsetSkipsEarlierRecordInSameBlock(t *testing.T) {
	f := &memFile{}
	w := NewWriter(f, 0, nil)
	require.NoError(t, w.AddRecord([]byte("first")))
	secondOffset := int64(len(f.data))
	require.NoError(t, w.AddRecord([]byte("second")))

	r, err := NewReader(f, nil, secondOffset, nil)
	require.NoError(t, err)

	got, _, err := r.ReadRecord()
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	_, _, err = r.ReadRecord()
	assert.Equal(t, io.EOF, err)
}
