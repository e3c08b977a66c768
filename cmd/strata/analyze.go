package main

import (
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/strata/pkg/analysis"
	"github.com/ajitpratap0/strata/pkg/columnar"
	"github.com/ajitpratap0/strata/pkg/compression"
)

func (a *app) analyzeCmd() *cobra.Command {
	var plainDir, compressedDir string
	var baselines []string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compare the on-disk size of the plain and compressed stores",
		Long: `Analyze reports, per column, the bytes of the plain store, the bytes of the
compressed store (code stream plus dictionary for coded columns) and what
general-purpose codecs achieve over the plain column files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if plainDir == "" {
				plainDir = a.cfg.StoreDir(columnar.LayoutPlain)
			}
			if compressedDir == "" {
				compressedDir = a.cfg.StoreDir(columnar.LayoutCompressed)
			}
			algs := make([]compression.Algorithm, len(baselines))
			for i, b := range baselines {
				algs[i] = compression.Algorithm(b)
			}

			r, err := analysis.Compare(cmd.Context(), plainDir, compressedDir, analysis.Options{
				Baselines: algs,
				Workers:   a.cfg.Store.GetWorkers(),
				Logger:    a.log,
			})
			if err != nil {
				return err
			}
			return a.report(cmd, r, r.WriteText)
		},
	}

	f := cmd.Flags()
	f.StringVar(&plainDir, "plain-dir", "", "Plain store directory (default <data-dir>/plain)")
	f.StringVar(&compressedDir, "compressed-dir", "", "Compressed store directory (default <data-dir>/compressed)")
	f.StringSliceVar(&baselines, "baselines", []string{
		string(compression.Zstd),
		string(compression.S2),
		string(compression.LZ4),
	}, "General-purpose codecs to compare against (gzip, snappy, lz4, zstd, s2)")
	return cmd
}
