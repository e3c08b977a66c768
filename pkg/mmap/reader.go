// Package mmap provides read-only memory-mapped access to column files so
// zone spans can be sliced without copying.
package mmap

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/ajitpratap0/strata/pkg/errors"
)

// Reader is a read-only mapping of one file. Slices returned by Bytes and
// ReadRange are valid until Close.
type Reader struct {
	path string
	data []byte
	size int64

	bytesRead atomic.Int64

	closeOnce sync.Once
	closeErr  error
}

// Open maps path into memory. An empty file yields a Reader with no data.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrorTypeMissingArtifact, "column file not found").
				WithDetail("path", path)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open file").
			WithDetail("path", path)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat file").
			WithDetail("path", path)
	}

	r := &Reader{path: path, size: stat.Size()}
	if r.size == 0 {
		return r, nil
	}

	r.data, err = mapFile(f, r.size)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to mmap file").
			WithDetail("path", path)
	}
	return r, nil
}

// Path returns the mapped file's path.
func (r *Reader) Path() string { return r.path }

// Size returns the file size in bytes.
func (r *Reader) Size() int64 { return r.size }

// Bytes returns the whole file.
func (r *Reader) Bytes() []byte {
	r.bytesRead.Add(r.size)
	return r.data
}

// ReadRange returns bytes [start, end) of the file.
func (r *Reader) ReadRange(start, end int64) ([]byte, error) {
	if start < 0 || end < start || end > r.size {
		return nil, errors.Newf(errors.ErrorTypeValidation, "range [%d,%d) out of bounds for %d byte file", start, end, r.size).
			WithDetail("path", r.path)
	}
	r.bytesRead.Add(end - start)
	return r.data[start:end], nil
}

// BytesRead returns the number of bytes handed out so far.
func (r *Reader) BytesRead() int64 { return r.bytesRead.Load() }

// Close unmaps the file. It is safe to call more than once.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		if r.data != nil {
			r.closeErr = unmap(r.data)
			r.data = nil
		}
	})
	return r.closeErr
}
