package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/internal/pipeline"
	"github.com/ajitpratap0/strata/pkg/analysis"
	"github.com/ajitpratap0/strata/pkg/columnar"
	"github.com/ajitpratap0/strata/pkg/metrics"
	"github.com/ajitpratap0/strata/pkg/table"
)

type loadReport struct {
	Table        string                `json:"table"`
	Rows         int                   `json:"rows"`
	Skipped      int                   `json:"skipped"`
	LoadDuration time.Duration         `json:"load_duration"`
	Stores       []*pipeline.Result    `json:"stores"`
	Memory       analysis.MemorySample `json:"memory"`
	RSSDelta     int64                 `json:"rss_delta_bytes"`
}

func (a *app) loadCmd() *cobra.Command {
	var layouts []string
	cmd := &cobra.Command{
		Use:   "load <table.csv>",
		Short: "Build column stores from a CSV table",
		Long: `Load reads a CSV table whose first record is the header and writes one
store per layout under the data directory. Malformed rows are skipped with a
warning.`,
		Example: `  strata load resale.csv
  strata load resale.csv --layouts compressed --chunk-size 1600`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLoad(cmd, args[0], layouts)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&layouts, "layouts", []string{string(columnar.LayoutCompressed), string(columnar.LayoutPlain)}, "Layouts to build (compressed, plain)")
	f.Int("chunk-size", 0, "Rows per zone, a positive multiple of 8")
	f.Int("workers", 0, "Columns encoded in parallel")
	f.Bool("zone-maps", true, "Write a zone map per column")
	f.Bool("keep-plain", false, "Also write .col files for dictionary-coded columns")
	return cmd
}

func (a *app) runLoad(cmd *cobra.Command, path string, layouts []string) error {
	ctx := cmd.Context()

	parsed := make([]columnar.Layout, 0, len(layouts))
	for _, name := range layouts {
		layout, err := columnar.ParseLayout(name)
		if err != nil {
			return err
		}
		parsed = append(parsed, layout)
	}

	probe, err := analysis.NewMemoryProbe()
	if err != nil {
		return err
	}
	before := probe.Sample()

	timer := metrics.NewTimer("load")
	tbl, stats, err := table.Load(ctx, path, table.WithLogger(a.log))
	if err != nil {
		return err
	}
	r := &loadReport{
		Table:        path,
		Rows:         stats.Rows,
		Skipped:      stats.Skipped,
		LoadDuration: timer.Stop(),
	}
	a.log.Info("table loaded",
		zap.String("path", path),
		zap.Int("rows", stats.Rows),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("duration", r.LoadDuration))

	store := a.cfg.Store
	for _, layout := range parsed {
		res, err := pipeline.Build(ctx, tbl, pipeline.Config{
			Dir:           a.cfg.StoreDir(layout),
			Layout:        layout,
			ChunkSize:     store.ChunkSize,
			BuildZoneMaps: store.BuildZoneMaps,
			KeepPlain:     store.KeepPlain,
			Workers:       store.GetWorkers(),
		}, a.log)
		if err != nil {
			return err
		}
		r.Stores = append(r.Stores, res)
	}

	r.Memory = probe.Sample()
	r.RSSDelta = analysis.RSSDelta(before, r.Memory)
	return a.report(cmd, r, r.writeText)
}

func (r *loadReport) writeText(w io.Writer) error {
	fmt.Fprintf(w, "Loaded %s: %d rows, %d skipped in %v\n", r.Table, r.Rows, r.Skipped, r.LoadDuration.Round(time.Millisecond))
	for _, s := range r.Stores {
		fmt.Fprintf(w, "\n%s (%v)\n", s.Dir, s.Duration.Round(time.Millisecond))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "column\tcoded\tdistinct\tbits\tbytes\tzones\tdomain")
		for _, c := range s.Columns {
			fmt.Fprintf(tw, "%s\t%t\t%d\t%d\t%d\t%d\t%s\n", c.Name, c.Compressed, c.Distinct, c.BitsPerValue, c.Bytes, c.Zones, c.Domain)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "\nRSS %d MB (%+d MB), heap %d MB\n", r.Memory.RSS>>20, r.RSSDelta>>20, r.Memory.HeapAlloc>>20)
	return nil
}
