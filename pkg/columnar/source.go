package columnar

import (
	"bytes"
	"context"
	"sync"

	"github.com/ajitpratap0/strata/pkg/bitstream"
	"github.com/ajitpratap0/strata/pkg/dictionary"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/metrics"
	"github.com/ajitpratap0/strata/pkg/mmap"
	"github.com/ajitpratap0/strata/pkg/zonemap"
)

// ColumnSource reads one column of a store whatever its physical
// representation. Values are always returned decoded, in row order.
type ColumnSource interface {
	// Name returns the column name.
	Name() string
	// IsCompressed reports whether the column is read from a .cmp stream.
	IsCompressed() bool
	// Records returns the number of rows.
	Records() int
	// ReadFull decodes every row.
	ReadFull(ctx context.Context) ([]string, error)
	// ReadZoneSpans decodes only the rows of the given spans. The result has
	// one slice per span, in the order given.
	ReadZoneSpans(ctx context.Context, spans []zonemap.Span) ([][]string, error)
	// Value returns the value of a single row.
	Value(row int) (string, error)
}

// CodedSource is implemented by dictionary-coded columns and lets callers
// compare codes instead of values.
type CodedSource interface {
	ColumnSource
	// Dictionary returns the column's dictionary.
	Dictionary() (*dictionary.Dictionary, error)
	// CodeStream returns a reader positioned at the first row's code.
	CodeStream() (*CodeReader, error)
}

type plainSource struct {
	name    string
	path    string
	records int
}

func (s *plainSource) Name() string       { return s.name }
func (s *plainSource) IsCompressed() bool { return false }
func (s *plainSource) Records() int       { return s.records }

func (s *plainSource) ReadFull(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := mmap.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	values, err := SplitLines(r.Bytes(), s.records)
	metrics.BytesRead.WithLabelValues(s.name).Add(float64(r.BytesRead()))
	if err != nil {
		return nil, annotate(err, s.name)
	}
	return values, nil
}

func (s *plainSource) ReadZoneSpans(ctx context.Context, spans []zonemap.Span) ([][]string, error) {
	r, err := mmap.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	defer func() { metrics.BytesRead.WithLabelValues(s.name).Add(float64(r.BytesRead())) }()

	out := make([][]string, len(spans))
	for i, span := range spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := r.ReadRange(span.Start, span.End)
		if err != nil {
			return nil, annotate(err, s.name)
		}
		if out[i], err = SplitLines(b, span.Rows); err != nil {
			return nil, annotate(err, s.name)
		}
	}
	return out, nil
}

func (s *plainSource) Value(row int) (string, error) {
	if row < 0 || row >= s.records {
		return "", errors.Newf(errors.ErrorTypeValidation, "row %d out of range [0,%d)", row, s.records)
	}
	r, err := mmap.Open(s.path)
	if err != nil {
		return "", err
	}
	defer r.Close()

	data := r.Bytes()
	for i := 0; i < row; i++ {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			return "", annotate(errors.New(errors.ErrorTypeUnexpectedEOF, "column text ended early"), s.name)
		}
		data = data[idx+1:]
	}
	idx := bytes.IndexByte(data, '\n')
	if idx < 0 {
		return "", annotate(errors.New(errors.ErrorTypeUnexpectedEOF, "column text ended early"), s.name)
	}
	return string(data[:idx]), nil
}

type codedSource struct {
	name     string
	cmpPath  string
	dictPath string
	records  int
	loader   ArtifactLoader

	mu   sync.Mutex
	dict *dictionary.Dictionary
}

func (s *codedSource) Name() string       { return s.name }
func (s *codedSource) IsCompressed() bool { return true }
func (s *codedSource) Records() int       { return s.records }

func (s *codedSource) Dictionary() (*dictionary.Dictionary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dict != nil {
		return s.dict, nil
	}
	d, err := s.loader.Dictionary(s.name, s.dictPath)
	if err != nil {
		return nil, err
	}
	if d.Records() != s.records {
		return nil, errors.Newf(errors.ErrorTypeMetadataMismatch, "dictionary declares %d records, store %d", d.Records(), s.records).
			WithDetail("column", s.name)
	}
	s.dict = d
	return d, nil
}

func (s *codedSource) open() (*mmap.Reader, *dictionary.Dictionary, error) {
	dict, err := s.Dictionary()
	if err != nil {
		return nil, nil, err
	}
	r, err := mmap.Open(s.cmpPath)
	if err != nil {
		return nil, nil, annotate(err, s.name)
	}
	return r, dict, nil
}

func (s *codedSource) ReadFull(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, dict, err := s.open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	values, err := DecodeCompressed(r.Bytes(), dict)
	metrics.BytesRead.WithLabelValues(s.name).Add(float64(r.Size()))
	if err != nil {
		return nil, annotate(err, s.name)
	}
	return values, nil
}

func (s *codedSource) ReadZoneSpans(ctx context.Context, spans []zonemap.Span) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, dict, err := s.open()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, span := range spans {
		if span.End > r.Size() || span.Start > span.End {
			return nil, errors.Newf(errors.ErrorTypeMetadataMismatch, "zone %d span [%d,%d) exceeds %d byte stream", span.Zone, span.Start, span.End, r.Size()).
				WithDetail("column", s.name)
		}
	}

	out, err := DecodeSpans(r.Bytes(), dict, spans)
	if err != nil {
		return nil, annotate(err, s.name)
	}

	read := int64(HeaderSize)
	for _, span := range spans {
		read += span.End - span.Start
	}
	metrics.BytesRead.WithLabelValues(s.name).Add(float64(read))
	return out, nil
}

func (s *codedSource) Value(row int) (string, error) {
	if row < 0 || row >= s.records {
		return "", errors.Newf(errors.ErrorTypeValidation, "row %d out of range [0,%d)", row, s.records)
	}
	r, dict, err := s.open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	h, err := ReadHeader(r.Bytes())
	if err != nil {
		return "", annotate(err, s.name)
	}
	if err := CheckHeader(h, dict); err != nil {
		return "", err
	}

	bitOffset := int64(row) * int64(h.BitsPerValue)
	br := bitstream.NewReader(r.Bytes())
	if err := br.Seek(HeaderSize + bitOffset/8); err != nil {
		return "", annotate(err, s.name)
	}
	if skip := uint(bitOffset % 8); skip > 0 {
		if _, err := br.ReadBits(skip); err != nil {
			return "", annotate(err, s.name)
		}
	}
	code, err := br.ReadBits(h.BitsPerValue)
	if err != nil {
		return "", annotate(err, s.name)
	}
	return dict.Value(code)
}

func (s *codedSource) CodeStream() (*CodeReader, error) {
	r, dict, err := s.open()
	if err != nil {
		return nil, err
	}

	h, err := ReadHeader(r.Bytes())
	if err == nil {
		err = CheckHeader(h, dict)
	}
	if err == nil && h.Records != s.records {
		err = errors.Newf(errors.ErrorTypeMetadataMismatch, "header declares %d records, store %d", h.Records, s.records)
	}
	if err != nil {
		r.Close()
		return nil, annotate(err, s.name)
	}

	br := bitstream.NewReader(r.Bytes())
	if err := br.Seek(HeaderSize); err != nil {
		r.Close()
		return nil, err
	}
	return &CodeReader{
		column:    s.name,
		mm:        r,
		r:         br,
		bits:      h.BitsPerValue,
		remaining: h.Records,
	}, nil
}

// CodeReader streams a column's codes in row order.
type CodeReader struct {
	column    string
	mm        *mmap.Reader
	r         *bitstream.Reader
	bits      uint
	remaining int
}

// Remaining returns the number of codes not yet read.
func (c *CodeReader) Remaining() int { return c.remaining }

// Next returns the next row's code.
func (c *CodeReader) Next() (uint32, error) {
	if c.remaining == 0 {
		return 0, errors.New(errors.ErrorTypeUnexpectedEOF, "code stream already consumed").
			WithDetail("column", c.column)
	}
	code, err := c.r.ReadBits(c.bits)
	if err != nil {
		return 0, annotate(err, c.column)
	}
	c.remaining--
	return code, nil
}

// Close releases the mapping and accounts the bytes read.
func (c *CodeReader) Close() error {
	metrics.BytesRead.WithLabelValues(c.column).Add(float64(c.r.Offset()))
	return c.mm.Close()
}

func annotate(err error, column string) error {
	var e *errors.Error
	if errors.As(err, &e) {
		if _, ok := e.Details["column"]; !ok {
			e.WithDetail("column", column)
		}
	}
	return err
}
