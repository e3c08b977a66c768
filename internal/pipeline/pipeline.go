// Package pipeline builds a strata store from an in-memory table.
//
// # Overview
//
// Build writes every column independently, so columns are encoded in
// parallel:
//   - decide the column's representation and write .col or .dict/.cmp
//   - build the column's zone map over that representation
//
// metadata.txt is written only after every column has finished, so a store
// directory without it is an incomplete build.
//
// # Basic Usage
//
//	tbl, _, err := table.Load(ctx, "resale.csv")
//	res, err := pipeline.Build(ctx, tbl, pipeline.Config{
//	    Dir:       "store/compressed",
//	    Layout:    columnar.LayoutCompressed,
//	    ChunkSize: 800,
//	}, logger)
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/strata/pkg/columnar"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/table"
	"github.com/ajitpratap0/strata/pkg/zonemap"
)

// Config configures a store build.
type Config struct {
	Dir           string
	Layout        columnar.Layout
	ChunkSize     int  // rows per zone, a positive multiple of 8
	BuildZoneMaps bool // write <column>_zone_map.txt files
	KeepPlain     bool // also write .col files for dictionary-coded columns
	Workers       int  // 0 = runtime.NumCPU()
}

// ColumnReport describes one written column.
type ColumnReport struct {
	Name         string        `json:"name"`
	Compressed   bool          `json:"compressed"`
	Distinct     int           `json:"distinct,omitempty"`
	BitsPerValue uint          `json:"bits_per_value,omitempty"`
	Bytes        int64         `json:"bytes"`
	Zones        int           `json:"zones"`
	Domain       string        `json:"domain,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// Result summarizes a build.
type Result struct {
	Dir      string             `json:"dir"`
	Metadata *columnar.Metadata `json:"-"`
	Columns  []ColumnReport     `json:"columns"`
	Duration time.Duration      `json:"duration"`
}

func (c *Config) validate() error {
	if c.Dir == "" {
		return errors.New(errors.ErrorTypeConfig, "store directory is required")
	}
	if _, err := columnar.ParseLayout(string(c.Layout)); err != nil {
		return err
	}
	if err := zonemap.CheckChunkSize(c.ChunkSize); err != nil {
		return err
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	return nil
}

// Build writes tbl into cfg.Dir. Columns are processed concurrently and joined
// before metadata.txt is written.
func Build(ctx context.Context, tbl *table.Table, cfg Config, logger *zap.Logger) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("store", cfg.Dir), zap.String("layout", string(cfg.Layout)))

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create store directory").
			WithDetail("dir", cfg.Dir)
	}
	// A stale metadata.txt would describe a store being rewritten.
	if err := os.Remove(filepath.Join(cfg.Dir, columnar.MetadataFile)); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to remove old store metadata")
	}

	start := time.Now()
	names := tbl.Names()
	reports := make([]ColumnReport, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			values, _ := tbl.Column(name)
			report, err := buildColumn(cfg, name, values)
			if err != nil {
				return err
			}
			reports[i] = report
			logger.Debug("column written",
				zap.String("column", name),
				zap.Bool("compressed", report.Compressed),
				zap.Int("distinct", report.Distinct),
				zap.Uint("bits_per_value", report.BitsPerValue),
				zap.Int64("bytes", report.Bytes),
				zap.Int("zones", report.Zones),
				zap.Duration("duration", report.Duration))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	meta := &columnar.Metadata{
		ChunkSize: cfg.ChunkSize,
		Records:   tbl.Len(),
		Columns:   make([]columnar.ColumnMeta, len(names)),
	}
	for i, r := range reports {
		meta.Columns[i] = columnar.ColumnMeta{Name: r.Name, Compressed: r.Compressed}
	}
	if err := columnar.WriteMetadata(cfg.Dir, meta); err != nil {
		return nil, err
	}

	res := &Result{
		Dir:      cfg.Dir,
		Metadata: meta,
		Columns:  reports,
		Duration: time.Since(start),
	}
	logger.Info("store built",
		zap.Int("records", meta.Records),
		zap.Int("columns", len(names)),
		zap.Int("compressed_columns", res.CompressedColumns()),
		zap.Duration("duration", res.Duration))
	return res, nil
}

func buildColumn(cfg Config, name string, values []string) (ColumnReport, error) {
	start := time.Now()

	written, err := columnar.WriteColumn(cfg.Dir, name, values, columnar.WriteOptions{
		Layout:    cfg.Layout,
		KeepPlain: cfg.KeepPlain,
	})
	if err != nil {
		return ColumnReport{}, err
	}

	report := ColumnReport{
		Name:       name,
		Compressed: written.Meta.Compressed,
		Bytes:      written.Bytes,
	}
	if written.Dictionary != nil {
		report.Distinct = written.Dictionary.Len()
		report.BitsPerValue = written.Dictionary.BitsPerValue()
	}

	if cfg.BuildZoneMaps {
		var zm *zonemap.ZoneMap
		if written.Meta.Compressed {
			zm, err = zonemap.BuildCoded(name, values, cfg.ChunkSize, report.BitsPerValue)
		} else {
			zm, err = zonemap.BuildPlain(name, values, cfg.ChunkSize)
		}
		if err != nil {
			return ColumnReport{}, err
		}
		if err := zm.WriteFile(filepath.Join(cfg.Dir, zonemap.FileName(name))); err != nil {
			return ColumnReport{}, err
		}
		report.Zones = zm.Len()
		report.Domain = zm.Domain.String()
	}

	report.Duration = time.Since(start)
	return report, nil
}

// CompressedColumns returns how many columns were dictionary-coded.
func (r *Result) CompressedColumns() int {
	n := 0
	for _, c := range r.Columns {
		if c.Compressed {
			n++
		}
	}
	return n
}
