package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/analysis"
	"github.com/ajitpratap0/strata/pkg/columnar"
	"github.com/ajitpratap0/strata/pkg/query"
)

type benchReport struct {
	Month         string                  `json:"month"`
	Town          string                  `json:"town"`
	AreaThreshold float64                 `json:"area_threshold"`
	Results       []*analysis.BenchResult `json:"results"`
}

func (a *app) benchCmd() *cobra.Command {
	var (
		month, town         string
		layouts, strategies []string
		warmup, runs        int
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time a query against every layout and strategy",
		Long: `Bench runs the same query against each layout and query strategy,
after untimed warmup runs, and reports latency percentiles, the subset size,
the fraction of zones pruned and process memory.`,
		Example: `  strata bench --month 2016-04 --town "CHOA CHU KANG" --runs 10`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBench(cmd, month, town, layouts, strategies, warmup, runs)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&month, "month", "m", "", "Month in yyyy-mm form (required)")
	f.StringVarP(&town, "town", "t", "", "Town name (required)")
	f.StringSliceVar(&layouts, "layouts", []string{string(columnar.LayoutCompressed), string(columnar.LayoutPlain)}, "Layouts to benchmark")
	f.StringSliceVar(&strategies, "strategies", []string{
		string(query.StrategyZonePruned),
		string(query.StrategyCompressedScan),
		string(query.StrategyFullScan),
	}, "Query strategies to benchmark")
	f.IntVar(&warmup, "warmup", 2, "Untimed runs before measuring")
	f.IntVar(&runs, "runs", 5, "Timed runs per layout and strategy")
	f.Float64("threshold", 0, "Minimum floor area in square meters, inclusive")
	f.Bool("cache", false, "Cache parsed dictionaries and zone maps")
	_ = cmd.MarkFlagRequired("month")
	_ = cmd.MarkFlagRequired("town")
	return cmd
}

func (a *app) runBench(cmd *cobra.Command, month, town string, layouts, strategies []string, warmup, runs int) error {
	r := &benchReport{Month: month, Town: town, AreaThreshold: a.cfg.Query.AreaThreshold}
	for _, l := range layouts {
		layout, err := columnar.ParseLayout(l)
		if err != nil {
			return err
		}
		for _, s := range strategies {
			strategy, err := query.ParseStrategy(s)
			if err != nil {
				return err
			}
			engine, err := a.openEngine(layout, strategy)
			if err != nil {
				return err
			}
			res, err := analysis.Bench(cmd.Context(), engine, string(strategy), analysis.BenchOptions{
				Month:         month,
				Town:          town,
				AreaThreshold: a.cfg.Query.AreaThreshold,
				Warmup:        warmup,
				Runs:          runs,
				Logger:        a.log,
			})
			if err != nil {
				return err
			}
			a.log.Info("benchmark finished",
				zap.String("layout", string(layout)),
				zap.String("strategy", string(strategy)),
				zap.String("path", string(res.Path)),
				zap.Duration("p50", res.P50))
			r.Results = append(r.Results, res)
		}
	}
	return a.report(cmd, r, r.writeText)
}

func (r *benchReport) writeText(w io.Writer) error {
	fmt.Fprintf(w, "%s and the month after, %s, floor area >= %g\n\n", r.Month, r.Town, r.AreaThreshold)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "store\tstrategy\tpath\trows\tpruned\tmean\tp50\tp95\tmax\trss")
	for _, res := range r.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.1f%%\t%v\t%v\t%v\t%v\t%d MB\n",
			res.Store, res.Strategy, res.Path, res.SubsetSize, res.PrunedRatio*100,
			res.Mean.Round(time.Microsecond), res.P50.Round(time.Microsecond),
			res.P95.Round(time.Microsecond), res.Max.Round(time.Microsecond),
			res.Memory.RSS>>20)
	}
	return tw.Flush()
}
