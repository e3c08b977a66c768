// Package bitstream packs fixed-width unsigned codes into a byte stream and
// reads them back.
//
// Codes are written most-significant bit first and may straddle byte
// boundaries. Flush pads the final partial byte with zero bits on the low end.
// A 32-bit big-endian integer writer/reader is provided for stream headers;
// it is independent of the packing width and only valid on byte boundaries.
//
//	w := bitstream.NewWriter(&buf)
//	_ = w.WriteUint32(3)         // header: bits per value
//	_ = w.WriteBits(5, 3)        // 101
//	_ = w.WriteBits(2, 3)        // 010
//	_ = w.Flush()                // 10101000
//
//	r := bitstream.NewReader(buf.Bytes())
//	bits, _ := r.ReadUint32()
//	v, _ := r.ReadBits(uint(bits))
package bitstream

import (
	"github.com/ajitpratap0/strata/pkg/errors"
)

// MaxWidth is the widest code that can be packed in a single call.
const MaxWidth = 32

// HeaderSize is the size in bytes of one header integer.
const HeaderSize = 4

func checkWidth(width uint) error {
	if width == 0 || width > MaxWidth {
		return errors.Newf(errors.ErrorTypeValidation, "bit width %d out of range [1,%d]", width, MaxWidth)
	}
	return nil
}

func mask(width uint) uint64 {
	return (uint64(1) << width) - 1
}
