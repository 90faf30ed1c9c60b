package sstable

import (
	"context"
	"fmt"
	"hash/crc32"
	"log/slog"

	"github.com/strata-db/strata/coding"
	"github.com/strata-db/strata/comparator"
	"github.com/strata-db/strata/compressors"
	"github.com/strata-db/strata/filter"
	"github.com/strata-db/strata/kvstatus"
	"github.com/strata-db/strata/sys"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Options configures a table builder; the reader that later opens its
// output is configured separately through OpenOptions.
type Options struct {
	Comparator      comparator.Comparator
	FilterPolicy    filter.Policy // nil disables the filter block
	Compression     compressors.CompressionType
	BlockSize       int
	RestartInterval int
	Logger          *slog.Logger
	Tracer          trace.Tracer // nil disables tracing
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.BlockSize == 0 {
		out.BlockSize = DefaultBlockSize
	}
	if out.RestartInterval == 0 {
		out.RestartInterval = DefaultBlockRestartInterval
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// Builder assembles a table file: sequential Add calls in strict
// internal-key order, terminated by Finish.
type Builder struct {
	opts Options
	file sys.WritableFile

	dataBlock  *BlockBuilder
	indexBlock *BlockBuilder
	filter     *FilterBlockBuilder

	offset           uint64
	lastKey          []byte
	numEntries       int
	pendingIndexEntry bool
	pendingHandle     BlockHandle

	compressor compressors.Compressor
}

// NewBuilder returns a table builder writing to file.
func NewBuilder(file sys.WritableFile, opts Options) (*Builder, error) {
	o := opts.withDefaults()
	compressor, err := compressors.Get(o.Compression)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		opts:       o,
		file:       file,
		dataBlock:  NewBlockBuilder(o.RestartInterval),
		indexBlock: NewBlockBuilder(IndexBlockRestartInterval),
		compressor: compressor,
	}
	if o.FilterPolicy != nil {
		b.filter = NewFilterBlockBuilder(o.FilterPolicy)
		b.filter.StartBlock(0)
	}
	return b, nil
}

// Add appends (key, value). Keys must arrive in strict internal-key
// order; value is stored as given for every key, deletions included — the
// caller encodes the internal key's type byte into key itself.
func (b *Builder) Add(key, value []byte) error {
	if b.opts.Tracer != nil {
		_, span := b.opts.Tracer.Start(context.Background(), "sstable.Builder.Add")
		span.SetAttributes(attribute.Int("sstable.key_len", len(key)), attribute.Int("sstable.value_len", len(value)))
		defer span.End()
	}
	if b.numEntries > 0 && b.opts.Comparator.Compare(b.lastKey, key) >= 0 {
		return kvstatus.NewInvalidArgument(fmt.Sprintf("sstable: keys out of order: %q >= %q", b.lastKey, key)).ToError()
	}

	if b.pendingIndexEntry {
		separator := b.opts.Comparator.FindShortestSeparator(b.lastKey, key)
		var handleEnc []byte
		handleEnc = b.pendingHandle.EncodeTo(handleEnc)
		b.indexBlock.Add(separator, handleEnc)
		b.pendingIndexEntry = false
	}

	if b.filter != nil {
		b.filter.AddKey(key)
	}

	b.lastKey = append(b.lastKey[:0], key...)
	b.numEntries++
	b.dataBlock.Add(key, value)

	if b.dataBlock.CurrentSizeEstimate() >= b.opts.BlockSize {
		return b.flush()
	}
	return nil
}

// flush finishes and writes the current data block, recording its handle
// as pending for the next index entry.
func (b *Builder) flush() error {
	if b.dataBlock.Empty() {
		return nil
	}
	handle, err := b.writeBlock(b.dataBlock)
	if err != nil {
		return err
	}
	b.dataBlock.Reset()
	b.pendingHandle = handle
	b.pendingIndexEntry = true
	if b.filter != nil {
		b.filter.StartBlock(b.offset)
	}
	return nil
}

// writeBlock finishes body, optionally compresses it (keeping the
// compressed form only if it saves at least 12.5%), and appends the
// block plus its 5-byte trailer to the file.
func (b *Builder) writeBlock(builder *BlockBuilder) (BlockHandle, error) {
	raw := builder.Finish()
	payload := raw
	ctype := compressors.CompressionNone

	if b.compressor.Type() != compressors.CompressionNone {
		compressed, err := b.compressor.Compress(raw)
		if err != nil {
			return BlockHandle{}, kvstatus.NewIOError("sstable: compress block").Wrap(err)
		}
		if len(compressed)*CompressionAcceptanceDenominator < len(raw)*CompressionAcceptanceNumerator {
			payload = compressed
			ctype = b.compressor.Type()
		}
	}

	handle := BlockHandle{Offset: b.offset, Size: uint64(len(payload))}

	crc := crc32.ChecksumIEEE(append(append([]byte(nil), payload...), byte(ctype)))
	trailerEncoded := append([]byte{byte(ctype)}, coding.EncodeFixed32(crc)...)

	if err := b.file.Append(payload); err != nil {
		return BlockHandle{}, kvstatus.NewIOError("sstable: write block").Wrap(err)
	}
	if err := b.file.Append(trailerEncoded); err != nil {
		return BlockHandle{}, kvstatus.NewIOError("sstable: write block trailer").Wrap(err)
	}
	b.offset += uint64(len(payload) + BlockTrailerLength)

	return handle, nil
}

// Finish flushes the final data block, writes the filter block, the
// meta-index block, the index block, and the footer.
func (b *Builder) Finish() (err error) {
	if b.opts.Tracer != nil {
		var span trace.Span
		_, span = b.opts.Tracer.Start(context.Background(), "sstable.Builder.Finish")
		span.SetAttributes(attribute.Int("sstable.num_entries", b.numEntries))
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "finish_failed")
			}
			span.End()
		}()
	}
	if err := b.flush(); err != nil {
		return err
	}
	if b.pendingIndexEntry {
		successor := b.opts.Comparator.FindShortSuccessor(b.lastKey)
		var handleEnc []byte
		handleEnc = b.pendingHandle.EncodeTo(handleEnc)
		b.indexBlock.Add(successor, handleEnc)
		b.pendingIndexEntry = false
	}

	metaIndex := NewBlockBuilder(IndexBlockRestartInterval)
	var filterHandle BlockHandle
	haveFilter := b.filter != nil
	if haveFilter {
		filterBytes := b.filter.Finish()
		filterHandle = BlockHandle{Offset: b.offset, Size: uint64(len(filterBytes))}
		crc := crc32.ChecksumIEEE(append(append([]byte(nil), filterBytes...), byte(compressors.CompressionNone)))
		if err := b.file.Append(filterBytes); err != nil {
			return kvstatus.NewIOError("sstable: write filter block").Wrap(err)
		}
		trailerEncoded := append([]byte{byte(compressors.CompressionNone)}, coding.EncodeFixed32(crc)...)
		if err := b.file.Append(trailerEncoded); err != nil {
			return kvstatus.NewIOError("sstable: write filter block trailer").Wrap(err)
		}
		b.offset += uint64(len(filterBytes) + BlockTrailerLength)

		var handleEnc []byte
		handleEnc = filterHandle.EncodeTo(handleEnc)
		metaIndex.Add([]byte("filter."+b.opts.FilterPolicy.Name()), handleEnc)
	}

	metaIndexHandle, err := b.writeBlock(metaIndex)
	if err != nil {
		return err
	}

	indexHandle, err := b.writeBlock(b.indexBlock)
	if err != nil {
		return err
	}

	footer := Footer{MetaIndexHandle: metaIndexHandle, IndexHandle: indexHandle}
	if err := b.file.Append(footer.EncodeTo()); err != nil {
		return kvstatus.NewIOError("sstable: write footer").Wrap(err)
	}

	if err := b.file.Flush(); err != nil {
		return kvstatus.NewIOError("sstable: flush").Wrap(err)
	}
	if err := b.file.Sync(); err != nil {
		return kvstatus.NewIOError("sstable: sync").Wrap(err)
	}
	return nil
}

// NumEntries returns the number of keys added so far.
func (b *Builder) NumEntries() int { return b.numEntries }

// FileSize returns the number of bytes written to the underlying file
// so far, not counting anything buffered in the current data block.
func (b *Builder) FileSize() uint64 { return b.offset }
