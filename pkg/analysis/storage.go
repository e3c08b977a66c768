// Package analysis measures strata stores: on-disk size of each layout
// against general-purpose codecs, and process memory around loads and
// queries.
package analysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/strata/pkg/columnar"
	"github.com/ajitpratap0/strata/pkg/compression"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/zonemap"
)

// ColumnStorage compares one column across layouts. StoredBytes is .cmp plus
// .dict for a dictionary-coded column and .col otherwise.
type ColumnStorage struct {
	Name             string                          `json:"name"`
	Compressed       bool                            `json:"compressed"`
	PlainBytes       int64                           `json:"plain_bytes"`
	StoredBytes      int64                           `json:"stored_bytes"`
	ZoneMapBytes     int64                           `json:"zone_map_bytes"`
	ReductionPercent float64                         `json:"reduction_percent"`
	Baselines        map[compression.Algorithm]int64 `json:"baselines"`
}

// StorageReport compares a plain store with a compressed store of the same
// table.
type StorageReport struct {
	PlainDir         string                          `json:"plain_dir"`
	CompressedDir    string                          `json:"compressed_dir"`
	Records          int                             `json:"records"`
	Columns          []ColumnStorage                 `json:"columns"`
	PlainBytes       int64                           `json:"plain_bytes"`
	StoredBytes      int64                           `json:"stored_bytes"`
	ReductionPercent float64                         `json:"reduction_percent"`
	Baselines        map[compression.Algorithm]int64 `json:"baselines"`
}

// Options configures Compare.
type Options struct {
	// Baselines are compressed over each plain column; nil means
	// compression.Baselines.
	Baselines []compression.Algorithm
	Workers   int
	Logger    *zap.Logger
}

// Compare sizes every column of the compressed store against its plain
// counterpart and against the baseline codecs.
func Compare(ctx context.Context, plainDir, compressedDir string, opts Options) (*StorageReport, error) {
	if opts.Baselines == nil {
		opts.Baselines = compression.Baselines
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	plain, err := columnar.ReadMetadata(plainDir)
	if err != nil {
		return nil, err
	}
	coded, err := columnar.ReadMetadata(compressedDir)
	if err != nil {
		return nil, err
	}
	if plain.Records != coded.Records {
		return nil, errors.Newf(errors.ErrorTypeMetadataMismatch, "plain store has %d records, compressed store %d", plain.Records, coded.Records)
	}

	compressors := make([]compression.Compressor, len(opts.Baselines))
	for i, alg := range opts.Baselines {
		if compressors[i], err = compression.NewCompressor(&compression.Config{Algorithm: alg, Level: compression.Default}); err != nil {
			return nil, err
		}
	}

	for _, c := range coded.Columns {
		if _, ok := plain.Column(c.Name); !ok {
			return nil, errors.Newf(errors.ErrorTypeMetadataMismatch, "column %q missing from plain store", c.Name)
		}
	}

	columns := make([]ColumnStorage, len(coded.Columns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, c := range coded.Columns {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cs, err := compareColumn(plainDir, compressedDir, c, compressors)
			if err != nil {
				return err
			}
			columns[i] = cs
			opts.Logger.Debug("column measured",
				zap.String("column", c.Name),
				zap.Int64("plain_bytes", cs.PlainBytes),
				zap.Int64("stored_bytes", cs.StoredBytes))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := &StorageReport{
		PlainDir:      plainDir,
		CompressedDir: compressedDir,
		Records:       coded.Records,
		Columns:       columns,
		Baselines:     make(map[compression.Algorithm]int64, len(opts.Baselines)),
	}
	for _, c := range columns {
		r.PlainBytes += c.PlainBytes
		r.StoredBytes += c.StoredBytes
		for alg, n := range c.Baselines {
			r.Baselines[alg] += n
		}
	}
	r.ReductionPercent = reduction(r.PlainBytes, r.StoredBytes)
	return r, nil
}

func compareColumn(plainDir, compressedDir string, c columnar.ColumnMeta, compressors []compression.Compressor) (ColumnStorage, error) {
	cs := ColumnStorage{
		Name:       c.Name,
		Compressed: c.Compressed,
		Baselines:  make(map[compression.Algorithm]int64, len(compressors)),
	}

	var err error
	plainPath := filepath.Join(plainDir, columnar.ColFile(c.Name))
	if cs.PlainBytes, err = fileSize(plainPath); err != nil {
		return cs, err
	}

	if c.Compressed {
		cmp, err := fileSize(filepath.Join(compressedDir, columnar.CmpFile(c.Name)))
		if err != nil {
			return cs, err
		}
		dict, err := fileSize(filepath.Join(compressedDir, columnar.DictFile(c.Name)))
		if err != nil {
			return cs, err
		}
		cs.StoredBytes = cmp + dict
	} else if cs.StoredBytes, err = fileSize(filepath.Join(compressedDir, columnar.ColFile(c.Name))); err != nil {
		return cs, err
	}
	// Zone maps are optional.
	cs.ZoneMapBytes, _ = fileSize(filepath.Join(compressedDir, zonemap.FileName(c.Name)))
	cs.ReductionPercent = reduction(cs.PlainBytes, cs.StoredBytes)

	if len(compressors) == 0 {
		return cs, nil
	}
	data, err := os.ReadFile(plainPath) //nolint:gosec // G304: path built from store metadata
	if err != nil {
		return cs, errors.Wrap(err, errors.ErrorTypeFile, "failed to read column file").WithDetail("path", plainPath)
	}
	for _, comp := range compressors {
		n, err := baselineSize(comp, data)
		if err != nil {
			return cs, err
		}
		cs.Baselines[comp.Algorithm()] = n
	}
	return cs, nil
}

// baselineSize compresses data with comp and checks that it decompresses
// back to data before reporting the compressed length.
func baselineSize(comp compression.Compressor, data []byte) (int64, error) {
	packed, err := comp.Compress(data)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeInternal, "baseline compression failed").
			WithDetail("algorithm", string(comp.Algorithm()))
	}
	back, err := comp.Decompress(packed)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeInternal, "baseline decompression failed").
			WithDetail("algorithm", string(comp.Algorithm()))
	}
	if !bytes.Equal(back, data) {
		return 0, errors.New(errors.ErrorTypeInternal, "baseline does not round-trip").
			WithDetail("algorithm", string(comp.Algorithm()))
	}
	return int64(len(packed)), nil
}

func fileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, errors.New(errors.ErrorTypeMissingArtifact, "store file not found").WithDetail("path", path)
	}
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat store file").WithDetail("path", path)
	}
	return fi.Size(), nil
}

func reduction(before, after int64) float64 {
	if before == 0 {
		return 0
	}
	return (1 - float64(after)/float64(before)) * 100
}

// WriteText renders the report as an aligned table.
func (r *StorageReport) WriteText(w io.Writer) error {
	algs := make([]string, 0, len(r.Baselines))
	for alg := range r.Baselines {
		algs = append(algs, string(alg))
	}
	sort.Strings(algs)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "column\tcoded\tplain\tstored\treduction\t")
	for _, a := range algs {
		fmt.Fprintf(tw, "%s\t", a)
	}
	fmt.Fprintln(tw)

	row := func(name, coded string, plain, stored int64, red float64, base map[compression.Algorithm]int64) {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f%%\t", name, coded, plain, stored, red)
		for _, a := range algs {
			fmt.Fprintf(tw, "%d\t", base[compression.Algorithm(a)])
		}
		fmt.Fprintln(tw)
	}
	for _, c := range r.Columns {
		coded := "no"
		if c.Compressed {
			coded = "yes"
		}
		row(c.Name, coded, c.PlainBytes, c.StoredBytes, c.ReductionPercent, c.Baselines)
	}
	row("total", "", r.PlainBytes, r.StoredBytes, r.ReductionPercent, r.Baselines)
	return tw.Flush()
}
