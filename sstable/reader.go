package sstable

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"

	"github.com/strata-db/strata/cache"
	"github.com/strata-db/strata/comparator"
	"github.com/strata-db/strata/compressors"
	"github.com/strata-db/strata/filter"
	"github.com/strata-db/strata/kvstatus"
	"github.com/strata-db/strata/sys"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RandomAccessFile is the minimal source a Table needs: reads at
// arbitrary offsets. Structurally identical to sys.RandomAccessFile so
// an *os.File-backed sys value satisfies it without an adapter.
type RandomAccessFile interface {
	Read(offset int64, n int) (data []byte, err error)
}

var _ RandomAccessFile = (sys.RandomAccessFile)(nil)

// Table is an opened, immutable SST file. Blocks are read through a
// shared cache keyed by (cacheID, block offset); concurrent readers are
// safe since nothing here mutates after Open.
type Table struct {
	file         RandomAccessFile
	cmp          comparator.Comparator
	filterPolicy filter.Policy
	blockCache   *cache.Cache
	cacheID      uint64
	logger       *slog.Logger
	tracer       trace.Tracer

	footer      Footer
	index       *BlockReader
	filterBlock *FilterBlockReader
}

// OpenOptions configures Open.
type OpenOptions struct {
	Comparator   comparator.Comparator
	FilterPolicy filter.Policy // must match what the table was built with, if any
	BlockCache   *cache.Cache  // nil disables caching; blocks are read fresh each time
	FileSize     int64
	Logger       *slog.Logger
	Tracer       trace.Tracer // nil disables tracing
}

// Open reads file's footer, index block, and (if configured) filter
// block, returning a ready-to-query Table.
func Open(file RandomAccessFile, opts OpenOptions) (*Table, error) {
	if opts.Tracer != nil {
		_, span := opts.Tracer.Start(context.Background(), "sstable.Open")
		span.SetAttributes(attribute.Int64("sstable.file_size", opts.FileSize))
		defer span.End()
	}
	if opts.FileSize < FooterLength {
		return nil, kvstatus.NewInvalidArgument(fmt.Sprintf("sstable: file too small to contain a footer: %d bytes", opts.FileSize)).ToError()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	footerBytes, err := file.Read(opts.FileSize-FooterLength, FooterLength)
	if err != nil {
		return nil, kvstatus.NewIOError("sstable: read footer").Wrap(err)
	}
	footer, err := DecodeFooter(footerBytes)
	if err != nil {
		return nil, err
	}

	t := &Table{
		file:         file,
		cmp:          opts.Comparator,
		filterPolicy: opts.FilterPolicy,
		blockCache:   opts.BlockCache,
		logger:       logger,
		tracer:       opts.Tracer,
		footer:       footer,
	}
	if opts.BlockCache != nil {
		t.cacheID = opts.BlockCache.NewID()
	}

	indexBytes, err := t.readBlockRaw(footer.IndexHandle)
	if err != nil {
		return nil, kvstatus.NewIOError("sstable: read index block").Wrap(err)
	}
	index, err := NewBlockReader(indexBytes)
	if err != nil {
		return nil, kvstatus.NewCorruption("sstable: corrupt index block").Wrap(err)
	}
	t.index = index

	if opts.FilterPolicy != nil {
		if err := t.loadFilterBlock(); err != nil {
			// Filters are an optimization; a missing/corrupt filter block
			// degrades to "no filtering", never fails Open.
			logger.Warn("sstable: filter block unavailable, disabling filter", "error", err)
		}
	}

	return t, nil
}

func (t *Table) loadFilterBlock() error {
	metaIndexBytes, err := t.readBlockRaw(t.footer.MetaIndexHandle)
	if err != nil {
		return err
	}
	metaIndex, err := NewBlockReader(metaIndexBytes)
	if err != nil {
		return err
	}
	it := metaIndex.NewIterator()
	name := []byte("filter." + t.filterPolicy.Name())
	for it.SeekToFirst(); it.Valid(); it.Next() {
		if string(it.Key()) == string(name) {
			handle, _, err := DecodeBlockHandle(it.Value())
			if err != nil {
				return err
			}
			filterBytes, err := t.readBlockRaw(handle)
			if err != nil {
				return err
			}
			fb, err := NewFilterBlockReader(t.filterPolicy, filterBytes)
			if err != nil {
				return err
			}
			t.filterBlock = fb
			return nil
		}
	}
	return kvstatus.NewNotFound(fmt.Sprintf("sstable: no filter block named %q", name)).ToError()
}

// cacheKey forms the 16-byte composite (cache_id ‖ block offset) the
// shared block cache indexes by.
func cacheKeyFor(cacheID, offset uint64) cache.Key {
	var k cache.Key
	binary.LittleEndian.PutUint64(k[0:8], cacheID)
	binary.LittleEndian.PutUint64(k[8:16], offset)
	return k
}

// readBlockRaw reads, verifies, and decompresses the block at handle,
// bypassing the cache (used for the index and meta-index blocks, which
// are read once per Open and not worth caching).
func (t *Table) readBlockRaw(handle BlockHandle) ([]byte, error) {
	buf, err := t.file.Read(int64(handle.Offset), int(handle.Size)+BlockTrailerLength)
	if err != nil {
		return nil, kvstatus.NewIOError("sstable: short read").Wrap(err)
	}
	if len(buf) != int(handle.Size)+BlockTrailerLength {
		return nil, kvstatus.NewIOError(fmt.Sprintf("sstable: short read: got %d bytes, want %d", len(buf), handle.Size+BlockTrailerLength)).ToError()
	}
	payload := buf[:handle.Size]
	trailer := buf[handle.Size:]
	ctype := compressors.CompressionType(trailer[0])
	wantCRC := binary.LittleEndian.Uint32(trailer[1:])
	gotCRC := crc32.ChecksumIEEE(append(append([]byte(nil), payload...), trailer[0]))
	if gotCRC != wantCRC {
		return nil, kvstatus.NewCorruption(fmt.Sprintf("sstable: block checksum mismatch at offset %d", handle.Offset)).ToError()
	}

	if ctype == compressors.CompressionNone {
		return payload, nil
	}
	codec, err := compressors.Get(ctype)
	if err != nil {
		return nil, kvstatus.NewNotSupported(fmt.Sprintf("sstable: unknown compression type %d", ctype)).Wrap(err)
	}
	rc, err := codec.Decompress(payload)
	if err != nil {
		return nil, kvstatus.NewCorruption("sstable: decompress block").Wrap(err)
	}
	defer rc.Close()
	out, err := io.ReadAll(rc)
	if err != nil {
		return nil, kvstatus.NewCorruption("sstable: decompress block").Wrap(err)
	}
	return out, nil
}

// readDataBlock reads the data block at handle, consulting/populating
// the shared cache when one is configured.
func (t *Table) readDataBlock(handle BlockHandle) (*BlockReader, error) {
	if t.blockCache == nil {
		data, err := t.readBlockRaw(handle)
		if err != nil {
			return nil, err
		}
		return NewBlockReader(data)
	}

	key := cacheKeyFor(t.cacheID, handle.Offset)
	if h, ok := t.blockCache.Lookup(key); ok {
		defer t.blockCache.Release(h)
		return h.Value().(*BlockReader), nil
	}

	data, err := t.readBlockRaw(handle)
	if err != nil {
		return nil, err
	}
	reader, err := NewBlockReader(data)
	if err != nil {
		return nil, err
	}
	h := t.blockCache.Insert(key, reader, len(data), nil)
	defer t.blockCache.Release(h)
	return reader, nil
}

// Get looks up key (already internal-key encoded) via the index block
// and, if a filter is loaded, a Bloom probe before touching the data
// block at all.
func (t *Table) Get(key []byte) (value []byte, found bool, err error) {
	if t.tracer != nil {
		var span trace.Span
		_, span = t.tracer.Start(context.Background(), "sstable.Table.Get")
		span.SetAttributes(attribute.Int("sstable.key_len", len(key)))
		defer func() {
			span.SetAttributes(attribute.Bool("sstable.found", found))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "get_failed")
			}
			span.End()
		}()
	}
	iit := t.index.NewIterator()
	iit.Seek(key, t.cmp.Compare)
	if !iit.Valid() {
		return nil, false, nil
	}
	handle, _, derr := DecodeBlockHandle(iit.Value())
	if derr != nil {
		return nil, false, kvstatus.NewCorruption("sstable: corrupt index entry").Wrap(derr)
	}

	if t.filterBlock != nil && !t.filterBlock.KeyMayMatch(handle.Offset, key) {
		return nil, false, nil
	}

	block, err := t.readDataBlock(handle)
	if err != nil {
		return nil, false, err
	}
	dit := block.NewIterator()
	dit.Seek(key, t.cmp.Compare)
	if dit.Valid() && t.cmp.Compare(dit.Key(), key) == 0 {
		return dit.Value(), true, nil
	}
	return nil, false, nil
}

// NewIterator returns a two-level iterator over every entry in the
// table, in key order.
func (t *Table) NewIterator() *Iterator {
	return &Iterator{table: t, indexIt: t.index.NewIterator()}
}
