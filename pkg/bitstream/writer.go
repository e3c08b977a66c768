package bitstream

import (
	"encoding/binary"
	"io"

	"github.com/ajitpratap0/strata/pkg/errors"
)

// Writer appends fixed-width codes to an underlying io.Writer.
// Partial bytes are buffered across calls until Flush.
type Writer struct {
	w io.Writer

	acc   uint64 // pending bits, right aligned
	nbits uint   // number of valid bits in acc, always < 8 between calls

	buf     []byte
	written int64
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:   w,
		buf: make([]byte, 0, 4096),
	}
}

// WriteBits appends the low width bits of value.
func (bw *Writer) WriteBits(value uint32, width uint) error {
	if err := checkWidth(width); err != nil {
		return err
	}

	bw.acc = (bw.acc << width) | (uint64(value) & mask(width))
	bw.nbits += width

	for bw.nbits >= 8 {
		bw.nbits -= 8
		bw.buf = append(bw.buf, byte(bw.acc>>bw.nbits))
	}
	bw.acc &= mask(bw.nbits)

	if len(bw.buf) >= cap(bw.buf)-8 {
		return bw.drain()
	}
	return nil
}

// WriteUint32 writes v as four big-endian bytes. The stream must be on a byte
// boundary.
func (bw *Writer) WriteUint32(v uint32) error {
	if bw.nbits != 0 {
		return errors.New(errors.ErrorTypeInternal, "header integer written mid-byte").
			WithDetail("pending_bits", bw.nbits)
	}
	bw.buf = binary.BigEndian.AppendUint32(bw.buf, v)
	return nil
}

// Flush pads any partial trailing byte with zero bits and writes all
// buffered bytes to the underlying writer.
func (bw *Writer) Flush() error {
	if bw.nbits > 0 {
		bw.buf = append(bw.buf, byte(bw.acc<<(8-bw.nbits)))
		bw.acc = 0
		bw.nbits = 0
	}
	return bw.drain()
}

// BytesWritten returns the number of bytes handed to the underlying writer.
func (bw *Writer) BytesWritten() int64 {
	return bw.written
}

func (bw *Writer) drain() error {
	if len(bw.buf) == 0 {
		return nil
	}
	n, err := bw.w.Write(bw.buf)
	bw.written += int64(n)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write bit stream")
	}
	bw.buf = bw.buf[:0]
	return nil
}
