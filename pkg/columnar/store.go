package columnar

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/metrics"
	"github.com/ajitpratap0/strata/pkg/zonemap"
)

// Store is a read-only handle on a store directory.
type Store struct {
	dir    string
	meta   *Metadata
	loader ArtifactLoader
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLoader sets the artifact loader. The default parses files on every call.
func WithLoader(l ArtifactLoader) Option {
	return func(s *Store) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open reads dir/metadata.txt and returns a handle on the store.
func Open(dir string, opts ...Option) (*Store, error) {
	meta, err := ReadMetadata(dir)
	if err != nil {
		return nil, err
	}

	s := &Store{
		dir:    dir,
		meta:   meta,
		loader: FileLoader{},
		logger: logger.Get(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("store", dir))
	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// Metadata returns the store metadata. It must not be modified.
func (s *Store) Metadata() *Metadata { return s.meta }

// Records returns the number of rows in the table.
func (s *Store) Records() int { return s.meta.Records }

// ChunkSize returns the number of rows per zone.
func (s *Store) ChunkSize() int { return s.meta.ChunkSize }

// Columns returns the column names in table order.
func (s *Store) Columns() []string { return s.meta.Names() }

// Loader returns the artifact loader in use.
func (s *Store) Loader() ArtifactLoader { return s.loader }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

func (s *Store) column(name string) (ColumnMeta, error) {
	c, ok := s.meta.Column(name)
	if !ok {
		return ColumnMeta{}, errors.Newf(errors.ErrorTypeValidation, "unknown column %q", name).
			WithDetail("store", s.dir)
	}
	return c, nil
}

// Source returns a reader for column. A dictionary-coded column whose .dict or
// .cmp file is missing degrades to its .col file when one exists.
func (s *Store) Source(column string) (ColumnSource, error) {
	c, err := s.column(column)
	if err != nil {
		return nil, err
	}

	if !c.Compressed {
		return &plainSource{name: column, path: s.path(ColFile(column)), records: s.meta.Records}, nil
	}

	coded := &codedSource{
		name:     column,
		cmpPath:  s.path(CmpFile(column)),
		dictPath: s.path(DictFile(column)),
		records:  s.meta.Records,
		loader:   s.loader,
	}
	if exists(coded.cmpPath) && exists(coded.dictPath) {
		return coded, nil
	}

	colPath := s.path(ColFile(column))
	if !exists(colPath) {
		// Reads will report the missing artifact.
		return coded, nil
	}
	s.logger.Warn("dictionary-coded column artifacts missing, reading plain column",
		zap.String("column", column),
		zap.String("path", colPath))
	metrics.QueryFallbacks.WithLabelValues("compressed_column", string(errors.ErrorTypeMissingArtifact)).Inc()
	return &plainSource{name: column, path: colPath, records: s.meta.Records}, nil
}

// ZoneMap loads the zone map of column. The zone map addresses the column's
// recorded representation, so it is reported missing when that
// representation is.
func (s *Store) ZoneMap(column string) (*zonemap.ZoneMap, error) {
	c, err := s.column(column)
	if err != nil {
		return nil, err
	}

	targets := []string{s.path(ColFile(column))}
	if c.Compressed {
		// Source reads .col when either coded artifact is gone; the
		// zone map's spans only address the code stream.
		targets = []string{s.path(CmpFile(column)), s.path(DictFile(column))}
	}
	for _, path := range targets {
		if !exists(path) {
			return nil, errors.New(errors.ErrorTypeMissingArtifact, "zone map target file not found").
				WithDetail("column", column).
				WithDetail("path", path)
		}
	}
	return s.loader.ZoneMap(column, s.path(zonemap.FileName(column)), s.meta.ChunkSize, s.meta.Records)
}

// Row returns every column's value at row i.
func (s *Store) Row(i int) (map[string]string, error) {
	if i < 0 || i >= s.meta.Records {
		return nil, errors.Newf(errors.ErrorTypeValidation, "row %d out of range [0,%d)", i, s.meta.Records)
	}
	row := make(map[string]string, len(s.meta.Columns))
	for _, c := range s.meta.Columns {
		src, err := s.Source(c.Name)
		if err != nil {
			return nil, err
		}
		v, err := src.Value(i)
		if err != nil {
			return nil, err
		}
		row[c.Name] = v
	}
	return row, nil
}

// ReadColumn decodes a whole column.
func (s *Store) ReadColumn(ctx context.Context, column string) ([]string, error) {
	src, err := s.Source(column)
	if err != nil {
		return nil, err
	}
	return src.ReadFull(ctx)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
