package bitstream

import (
	"encoding/binary"
	"io"

	"github.com/ajitpratap0/strata/pkg/errors"
)

// Reader consumes fixed-width codes from a byte slice in the order Writer
// produced them.
type Reader struct {
	data []byte
	pos  int // next byte to load

	acc   uint64
	nbits uint
}

// NewReader creates a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Seek positions the reader at byte offset off and discards buffered bits.
func (br *Reader) Seek(off int64) error {
	if off < 0 || off > int64(len(br.data)) {
		return errors.Newf(errors.ErrorTypeValidation, "seek offset %d out of range [0,%d]", off, len(br.data))
	}
	br.pos = int(off)
	br.acc = 0
	br.nbits = 0
	return nil
}

// Offset returns the offset of the next unread byte.
func (br *Reader) Offset() int64 {
	return int64(br.pos)
}

// ReadBits consumes exactly width bits and returns them as an unsigned code.
func (br *Reader) ReadBits(width uint) (uint32, error) {
	if err := checkWidth(width); err != nil {
		return 0, err
	}

	for br.nbits < width {
		if br.pos >= len(br.data) {
			return 0, errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeUnexpectedEOF, "bit stream exhausted").
				WithDetail("offset", br.pos).
				WithDetail("width", width)
		}
		br.acc = (br.acc << 8) | uint64(br.data[br.pos])
		br.pos++
		br.nbits += 8
	}

	br.nbits -= width
	v := (br.acc >> br.nbits) & mask(width)
	br.acc &= mask(br.nbits)
	return uint32(v), nil
}

// ReadUint32 reads four big-endian bytes. The reader must be on a byte boundary.
func (br *Reader) ReadUint32() (uint32, error) {
	if br.nbits != 0 {
		return 0, errors.New(errors.ErrorTypeInternal, "header integer read mid-byte").
			WithDetail("pending_bits", br.nbits)
	}
	if len(br.data)-br.pos < HeaderSize {
		return 0, errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeUnexpectedEOF, "stream too short for header integer").
			WithDetail("offset", br.pos)
	}
	v := binary.BigEndian.Uint32(br.data[br.pos:])
	br.pos += HeaderSize
	return v, nil
}
