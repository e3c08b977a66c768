// Package table loads a delimited text table into column-major memory.
//
// The first record is the header and fixes the schema. Records with the wrong
// number of fields, unparsable quoting, or line breaks inside a value are
// skipped with a warning; loading continues.
package table

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/metrics"
)

// Table is a fixed-schema table stored column by column. Every column has
// the same length.
type Table struct {
	names   []string
	index   map[string]int
	columns [][]string
}

// New creates an empty table with the given column names.
func New(names ...string) (*Table, error) {
	t := &Table{
		names:   make([]string, 0, len(names)),
		index:   make(map[string]int, len(names)),
		columns: make([][]string, len(names)),
	}
	for i, raw := range names {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if err := checkName(name); err != nil {
			return nil, err
		}
		if _, dup := t.index[name]; dup {
			return nil, errors.Newf(errors.ErrorTypeValidation, "duplicate column %q", name)
		}
		t.index[name] = i
		t.names = append(t.names, name)
	}
	return t, nil
}

func checkName(name string) error {
	if name == "" {
		return errors.New(errors.ErrorTypeValidation, "empty column name")
	}
	if strings.ContainsAny(name, "/\\,\n\r") || name == "." || name == ".." {
		return errors.Newf(errors.ErrorTypeValidation, "column name %q cannot be used as a file name", name)
	}
	if strings.HasPrefix(name, "#") {
		return errors.Newf(errors.ErrorTypeValidation, "column name %q would read as a metadata comment", name)
	}
	return nil
}

// Names returns the column names in header order.
func (t *Table) Names() []string { return t.names }

// Len returns the number of rows.
func (t *Table) Len() int {
	if len(t.columns) == 0 {
		return 0
	}
	return len(t.columns[0])
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]string, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Append adds one row. values must be in header order.
func (t *Table) Append(values ...string) error {
	if len(values) != len(t.names) {
		return errors.Newf(errors.ErrorTypeMalformedInput, "row has %d fields, table has %d columns", len(values), len(t.names))
	}
	for i, v := range values {
		if strings.ContainsAny(v, "\n\r") {
			return errors.Newf(errors.ErrorTypeMalformedInput, "value of column %q contains a line break", t.names[i])
		}
	}
	for i, v := range values {
		t.columns[i] = append(t.columns[i], v)
	}
	return nil
}

// Row returns row i in header order.
func (t *Table) Row(i int) []string {
	row := make([]string, len(t.columns))
	for c := range t.columns {
		row[c] = t.columns[c][i]
	}
	return row
}

// Stats reports what Read consumed.
type Stats struct {
	Rows    int
	Skipped int
}

type options struct {
	logger *zap.Logger
	comma  rune
}

// Option configures Read and Load.
type Option func(*options)

// WithLogger sets the logger used for skipped-row warnings.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithComma sets the field delimiter. The default is ','.
func WithComma(r rune) Option {
	return func(o *options) { o.comma = r }
}

// Read parses a table from r.
func Read(ctx context.Context, r io.Reader, opts ...Option) (*Table, Stats, error) {
	o := options{logger: logger.Get(), comma: ','}
	for _, opt := range opts {
		opt(&o)
	}

	cr := csv.NewReader(r)
	cr.Comma = o.comma
	cr.FieldsPerRecord = -1 // field count is checked per row so bad rows can be skipped

	header, err := cr.Read()
	if err == io.EOF {
		return nil, Stats{}, errors.New(errors.ErrorTypeMalformedInput, "table has no header")
	}
	if err != nil {
		return nil, Stats{}, errors.Wrap(err, errors.ErrorTypeMalformedInput, "failed to read table header")
	}

	t, err := New(header...)
	if err != nil {
		return nil, Stats{}, err
	}

	var stats Stats
	n := 1
	for {
		if stats.Rows%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		n++

		if err == nil {
			err = t.Append(record...)
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) && !errors.IsType(err, errors.ErrorTypeMalformedInput) {
				return nil, stats, errors.Wrap(err, errors.ErrorTypeFile, "failed to read table")
			}
			stats.Skipped++
			metrics.MalformedRows.Inc()
			o.logger.Warn("skipping malformed row",
				zap.Int("record", n),
				zap.Error(err))
			continue
		}
		stats.Rows++
	}

	return t, stats, nil
}

// Load reads the table stored at path.
func Load(ctx context.Context, path string, opts ...Option) (*Table, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, errors.Wrap(err, errors.ErrorTypeFile, "failed to open table").
			WithDetail("path", path)
	}
	defer f.Close()

	t, stats, err := Read(ctx, f, opts...)
	if err != nil {
		var e *errors.Error
		if errors.As(err, &e) {
			e.WithDetail("path", path)
		}
		return nil, stats, err
	}
	return t, stats, nil
}

// Write emits t as CSV with a header record.
func Write(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.names); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write table header")
	}
	for i := 0; i < t.Len(); i++ {
		if err := cw.Write(t.Row(i)); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write table row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush table")
	}
	return nil
}
