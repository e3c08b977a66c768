package columnar

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/ajitpratap0/strata/pkg/bitstream"
	"github.com/ajitpratap0/strata/pkg/dictionary"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/pool"
	"github.com/ajitpratap0/strata/pkg/zonemap"
)

// maxInterned bounds the distinct values SplitLines shares per call.
const maxInterned = 4096

var lineWriters = pool.New(
	func() *bufio.Writer { return bufio.NewWriterSize(nil, 64*1024) },
	func(w *bufio.Writer) { w.Reset(nil) },
)

// HeaderSize is the size of the .cmp header in bytes.
const HeaderSize = 2 * bitstream.HeaderSize

// Header is the fixed prefix of a .cmp file.
type Header struct {
	BitsPerValue uint
	Records      int
}

// EncodePlain writes values as newline-delimited text and returns the number
// of bytes written. Values must not contain a newline.
func EncodePlain(w io.Writer, values []string) (int64, error) {
	bw := lineWriters.Get()
	defer lineWriters.Put(bw)
	bw.Reset(w)

	var n int64
	for i, v := range values {
		if strings.ContainsAny(v, "\n\r") {
			return n, errors.New(errors.ErrorTypeMalformedInput, "value contains a line break").
				WithDetail("row", i)
		}
		bw.WriteString(v)
		bw.WriteByte('\n')
		n += int64(len(v)) + 1
	}
	if err := bw.Flush(); err != nil {
		return n, errors.Wrap(err, errors.ErrorTypeFile, "failed to write plain column")
	}
	return n, nil
}

// EncodeCompressed writes the .cmp representation of values using dict and
// returns the number of bytes written.
func EncodeCompressed(w io.Writer, dict *dictionary.Dictionary, values []string) (int64, error) {
	if len(values) != dict.Records() {
		return 0, errors.Newf(errors.ErrorTypeMetadataMismatch, "dictionary built from %d records, encoding %d", dict.Records(), len(values)).
			WithDetail("column", dict.Column())
	}

	bits := dict.BitsPerValue()
	bw := bitstream.NewWriter(w)
	if err := bw.WriteUint32(uint32(bits)); err != nil {
		return 0, err
	}
	if err := bw.WriteUint32(uint32(len(values))); err != nil {
		return 0, err
	}

	for i, v := range values {
		code, ok := dict.Code(v)
		if !ok {
			return bw.BytesWritten(), errors.New(errors.ErrorTypeUnknownCode, "value missing from dictionary").
				WithDetail("column", dict.Column()).
				WithDetail("row", i)
		}
		if err := bw.WriteBits(code, bits); err != nil {
			return bw.BytesWritten(), err
		}
	}

	if err := bw.Flush(); err != nil {
		return bw.BytesWritten(), err
	}
	return bw.BytesWritten(), nil
}

// ReadHeader parses the first HeaderSize bytes of a .cmp file.
func ReadHeader(data []byte) (Header, error) {
	r := bitstream.NewReader(data)
	bits, err := r.ReadUint32()
	if err != nil {
		return Header{}, err
	}
	records, err := r.ReadUint32()
	if err != nil {
		return Header{}, err
	}
	if bits == 0 || bits > bitstream.MaxWidth {
		return Header{}, errors.Newf(errors.ErrorTypeMalformedInput, "header declares %d bits per value", bits)
	}
	return Header{BitsPerValue: uint(bits), Records: int(records)}, nil
}

// CheckHeader verifies that a code stream header agrees with the dictionary
// loaded for the same column.
func CheckHeader(h Header, dict *dictionary.Dictionary) error {
	if h.BitsPerValue != dict.BitsPerValue() {
		return errors.Newf(errors.ErrorTypeMetadataMismatch, "header declares %d bits per value, dictionary %d", h.BitsPerValue, dict.BitsPerValue()).
			WithDetail("column", dict.Column())
	}
	if h.Records != dict.Records() {
		return errors.Newf(errors.ErrorTypeMetadataMismatch, "header declares %d records, dictionary %d", h.Records, dict.Records()).
			WithDetail("column", dict.Column())
	}
	return nil
}

// DecodeCompressed decodes a complete .cmp stream back to its values.
func DecodeCompressed(data []byte, dict *dictionary.Dictionary) ([]string, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	if err := CheckHeader(h, dict); err != nil {
		return nil, err
	}

	r := bitstream.NewReader(data)
	if err := r.Seek(HeaderSize); err != nil {
		return nil, err
	}
	out := make([]string, h.Records)
	if err := decodeInto(r, dict, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeSpans decodes the rows of each zone span from a .cmp stream. The header
// is read and checked once; each span seeds the reader at its start byte and
// consumes exactly span.Rows codes.
func DecodeSpans(data []byte, dict *dictionary.Dictionary, spans []zonemap.Span) ([][]string, error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	if err := CheckHeader(h, dict); err != nil {
		return nil, err
	}

	r := bitstream.NewReader(data)
	out := make([][]string, len(spans))
	for i, span := range spans {
		if span.Start < HeaderSize {
			return nil, errors.Newf(errors.ErrorTypeMetadataMismatch, "zone %d starts inside the header", span.Zone).
				WithDetail("column", dict.Column())
		}
		if err := r.Seek(span.Start); err != nil {
			return nil, err
		}
		out[i] = make([]string, span.Rows)
		if err := decodeInto(r, dict, out[i]); err != nil {
			var e *errors.Error
			if errors.As(err, &e) {
				e.WithDetail("zone", span.Zone)
			}
			return nil, err
		}
	}
	return out, nil
}

func decodeInto(r *bitstream.Reader, dict *dictionary.Dictionary, out []string) error {
	bits := dict.BitsPerValue()
	for i := range out {
		code, err := r.ReadBits(bits)
		if err != nil {
			return err
		}
		v, err := dict.Value(code)
		if err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

// SplitLines splits newline-delimited column text into exactly want values.
// Repeated values share one string.
func SplitLines(data []byte, want int) ([]string, error) {
	in := pool.NewInterner(maxInterned)
	out := make([]string, 0, want)
	for len(data) > 0 {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			return nil, errors.New(errors.ErrorTypeUnexpectedEOF, "column text does not end with a newline")
		}
		out = append(out, in.Intern(data[:idx]))
		data = data[idx+1:]
	}
	if len(out) != want {
		return nil, errors.Newf(errors.ErrorTypeMetadataMismatch, "expected %d values, found %d", want, len(out))
	}
	return out, nil
}
