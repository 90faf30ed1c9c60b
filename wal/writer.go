package wal

import (
	"encoding/binary"
	"log/slog"

	"github.com/strata-db/strata/kvstatus"
)

// WritableFile is the minimal sink a Writer needs: append, flush, sync.
// It mirrors the engine's out-of-scope Env file abstraction (spec §6).
type WritableFile interface {
	Append(data []byte) error
	Flush() error
	Sync() error
}

// Writer fragments logical payloads into BlockSize-aligned physical
// records. It owns a single WritableFile and is not safe for concurrent
// callers; the enclosing database mutex is expected to serialize access,
// matching the spec's "exclusive ownership by the commit path" note.
type Writer struct {
	file        WritableFile
	blockOffset int // offset within the current BlockSize block
	logger      *slog.Logger
}

// NewWriter wraps file for append-only logical-record writes starting at
// the given byte offset within the file (0 for a fresh file; pass the
// file's current length when resuming an existing log so block framing
// lines up).
func NewWriter(file WritableFile, fileLength int64, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		file:        file,
		blockOffset: int(fileLength % BlockSize),
		logger:      logger.With("component", "wal.Writer"),
	}
}

// AddRecord writes payload as one or more physical records, fragmenting
// it across block boundaries as needed. An empty payload still emits
// exactly one Full record of zero length.
func (w *Writer) AddRecord(payload []byte) error {
	begin := true
	for {
		leftover := BlockSize - w.blockOffset
		// A tail of exactly HeaderSize bytes has no room for payload, so a
		// non-empty record skips it rather than emitting an empty First.
		if leftover < HeaderSize || (leftover == HeaderSize && len(payload) > 0) {
			if leftover > 0 {
				if err := w.file.Append(make([]byte, leftover)); err != nil {
					return kvstatus.NewIOError("wal: pad block tail").Wrap(err)
				}
			}
			w.blockOffset = 0
		}

		avail := BlockSize - w.blockOffset - HeaderSize
		fragmentLen := len(payload)
		end := true
		if fragmentLen > avail {
			fragmentLen = avail
			end = false
		}

		var recType RecordType
		switch {
		case begin && end:
			recType = Full
		case begin:
			recType = First
		case end:
			recType = Last
		default:
			recType = Middle
		}

		if err := w.emitPhysicalRecord(recType, payload[:fragmentLen]); err != nil {
			return err
		}
		payload = payload[fragmentLen:]
		begin = false
		if end {
			break
		}
	}
	return nil
}

func (w *Writer) emitPhysicalRecord(recType RecordType, payload []byte) error {
	var header [HeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], mask(rawCRC(recType, payload)))
	binary.LittleEndian.PutUint16(header[4:6], uint16(len(payload)))
	header[6] = byte(recType)

	if err := w.file.Append(header[:]); err != nil {
		return kvstatus.NewIOError("wal: write record header").Wrap(err)
	}
	if err := w.file.Append(payload); err != nil {
		return kvstatus.NewIOError("wal: write record payload").Wrap(err)
	}
	if err := w.file.Flush(); err != nil {
		return kvstatus.NewIOError("wal: flush").Wrap(err)
	}
	w.blockOffset += HeaderSize + len(payload)
	return nil
}

// Sync fsyncs the underlying file.
func (w *Writer) Sync() error {
	return w.file.Sync()
}
