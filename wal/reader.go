package wal

import (
	"encoding/binary"
	"io"
	"log/slog"
)

// SequentialFile is the minimal source a Reader needs. Read may return
// fewer than len(buf) bytes to signal EOF instead of an error, matching
// the engine's Env sequential-file abstraction (spec §6).
type SequentialFile interface {
	Read(buf []byte) (n int, err error)
	Skip(n int64) error
}

// Reporter receives an upcall whenever the reader drops bytes due to
// corruption; the reader itself never aborts on corruption.
type Reporter interface {
	Corruption(bytes int, reason string)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(bytes int, reason string)

func (f ReporterFunc) Corruption(bytes int, reason string) { f(bytes, reason) }

// Reader reassembles physical records into logical records, tolerating
// and reporting corruption rather than aborting.
type Reader struct {
	file     SequentialFile
	reporter Reporter
	checksum bool // unused toggle kept for API symmetry with the spec's "unless disabled" block-read option

	buf         []byte // the 32 KiB read buffer
	bufValid    []byte // the unconsumed portion of buf
	eof         bool
	endOfBufferOffset int64 // file offset just past the end of buf's valid bytes
	lastRecordOffset  int64
	initialOffset     int64 // every physical record starting before this is dropped, silently
	resyncing         bool

	logger *slog.Logger
}

// NewReader constructs a Reader over file. If initialOffset is non-zero,
// the reader aligns to the block containing that offset (rounding down;
// if the offset lies in a block's trailing 6 bytes, it advances to the
// next block) and discards fragments until a Last or Full record is
// seen, i.e. it starts in resync mode.
func NewReader(file SequentialFile, reporter Reporter, initialOffset int64, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reader{
		file:          file,
		reporter:      reporter,
		buf:           make([]byte, BlockSize),
		initialOffset: initialOffset,
		logger:        logger.With("component", "wal.Reader"),
	}
	if initialOffset > 0 {
		blockStart := initialOffset - initialOffset%BlockSize
		if initialOffset%BlockSize > BlockSize-HeaderSize {
			blockStart += BlockSize
		}
		if blockStart > 0 {
			if err := file.Skip(blockStart); err != nil {
				return nil, err
			}
		}
		r.endOfBufferOffset = blockStart
		r.resyncing = true
	}
	return r, nil
}

// ReadRecord returns the next logical record and the file offset of its
// first physical fragment. io.EOF signals a clean end of log.
func (r *Reader) ReadRecord() (record []byte, startOffset int64, err error) {
	var fragments []byte
	inFragmentedRecord := false
	var fragmentStart int64

	for {
		data, recType, ok := r.readPhysicalRecord()
		if !ok {
			if r.eof && len(r.bufValid) < HeaderSize {
				// A fragmented record truncated by EOF is dropped
				// silently: it means the writer crashed before fsync,
				// not corruption, so it is not reported.
				return nil, 0, io.EOF
			}
			// A bad record was already reported, or a record before
			// initialOffset was dropped silently; keep scanning.
			continue
		}

		physicalOffset := r.lastRecordOffset

		switch recType {
		case Full:
			if inFragmentedRecord {
				r.report(len(fragments), "partial record without end(1)")
			}
			fragments = nil
			return append([]byte{}, data...), physicalOffset, nil

		case First:
			if inFragmentedRecord {
				if len(fragments) == 0 {
					// Tolerates a known writer bug: an empty First at a
					// block tail followed immediately by another First.
					fragments = nil
				} else {
					r.report(len(fragments), "partial record without end(2)")
					fragments = nil
				}
			}
			fragments = append([]byte{}, data...)
			fragmentStart = physicalOffset
			inFragmentedRecord = true

		case Middle:
			if !inFragmentedRecord {
				r.report(len(data), "missing start of fragmented record(1)")
			} else {
				fragments = append(fragments, data...)
			}

		case Last:
			if !inFragmentedRecord {
				r.report(len(data), "missing start of fragmented record(2)")
			} else {
				fragments = append(fragments, data...)
				result := fragments
				fragments = nil
				inFragmentedRecord = false
				return result, fragmentStart, nil
			}
		}
	}
}

// readPhysicalRecord returns one physical record's payload and type, or
// ok=false if none is currently available (either a bad record was
// dropped-and-reported, or EOF was reached, signalled via r.eof).
func (r *Reader) readPhysicalRecord() (payload []byte, recType RecordType, ok bool) {
	for {
		if len(r.bufValid) < HeaderSize {
			if !r.fillBuffer() {
				return nil, 0, false
			}
			continue
		}

		header := r.bufValid[:HeaderSize]
		length := int(binary.LittleEndian.Uint16(header[4:6]))
		recType = RecordType(header[6])

		if HeaderSize+length > len(r.bufValid) {
			dropSize := len(r.bufValid)
			r.bufValid = nil
			if !r.eof {
				r.report(dropSize, "bad record length")
			}
			return nil, 0, false
		}

		if recType == typeZero && length == 0 {
			// Zero-padded block tail; treat as nothing to read here and
			// move on to the next block on the following fillBuffer.
			r.bufValid = nil
			continue
		}

		physicalOffset := r.endOfBufferOffset - int64(len(r.bufValid))
		payload = r.bufValid[HeaderSize : HeaderSize+length]
		storedCRC := binary.LittleEndian.Uint32(header[0:4])

		r.bufValid = r.bufValid[HeaderSize+length:]

		if r.resyncing {
			if recType == Middle {
				continue
			}
			if recType == Last {
				r.resyncing = false
				continue
			}
			r.resyncing = false
		}

		if unmask(storedCRC) != rawCRC(recType, payload) {
			dropSize := HeaderSize + length
			r.report(dropSize, "checksum mismatch")
			return nil, 0, false
		}

		// A physical record starting before initialOffset is silently
		// dropped, matching the C++ reader's unconditional, type-agnostic
		// check: Full and First records are just as subject to this as
		// Middle and Last, since SkipToInitialBlock only guarantees the
		// read starts at or before the block containing initialOffset, not
		// that every record in that block starts at or after it.
		if physicalOffset < r.initialOffset {
			return nil, 0, false
		}

		r.lastRecordOffset = physicalOffset
		return payload, recType, true
	}
}

// fillBuffer reads the next BlockSize chunk from the file, setting r.eof
// on a short read. It returns false when nothing more was read or the
// read failed. A remainder too small to hold even a header is still
// handed back; readPhysicalRecord's next call here then returns false,
// so such a tail ends the log cleanly (a truncated tail is a writer
// crash before fsync).
func (r *Reader) fillBuffer() bool {
	if r.eof {
		return false
	}
	r.bufValid = nil
	n, err := r.file.Read(r.buf)
	r.endOfBufferOffset += int64(n)
	if n < len(r.buf) {
		r.eof = true
	}
	if n == 0 {
		return false
	}
	if err != nil && err != io.EOF {
		r.report(n, err.Error())
		return false
	}
	r.bufValid = r.buf[:n]
	return true
}

func (r *Reader) report(bytes int, reason string) {
	if r.reporter != nil {
		r.reporter.Corruption(bytes, reason)
	}
}

// LastRecordOffset returns the file offset of the most recently returned
// record's first physical fragment.
func (r *Reader) LastRecordOffset() int64 { return r.lastRecordOffset }
