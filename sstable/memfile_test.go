package sstable

import "fmt"

// memFile is an in-memory stand-in for sys.WritableFile/RandomAccessFile,
// used by table builder/reader tests so they don't need a real
// filesystem, mirroring the teacher's own in-memory fakes for sstable
// tests.
type memFile struct {
	buf     []byte
	flushed bool
	synced  bool
}

func (f *memFile) Append(p []byte) error {
	f.buf = append(f.buf, p...)
	return nil
}

func (f *memFile) Flush() error { f.flushed = true; return nil }
func (f *memFile) Sync() error  { f.synced = true; return nil }
func (f *memFile) Close() error { return nil }

func (f *memFile) Read(offset int64, n int) ([]byte, error) {
	if offset < 0 || int(offset)+n > len(f.buf) {
		return nil, fmt.Errorf("memfile: out of range read at %d, len %d", offset, n)
	}
	return f.buf[offset : int(offset)+n], nil
}
