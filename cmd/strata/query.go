package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/columnar"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/query"
)

func (a *app) queryCmd() *cobra.Command {
	var month, town, output string
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Aggregate prices for a town over a month and the month after it",
		Long: `Query selects the transactions of a town in the given month or the next
calendar month whose floor area is at least the threshold, then reports the
minimum, average and sample standard deviation of the price and the minimum
price per square meter. Aggregates over no rows are reported as "No result".`,
		Example: `  strata query --month 2016-04 --town "CHOA CHU KANG"
  strata query --month 2016-12 --town BEDOK --layout plain --strategy full_scan --json
  strata query --month 2016-04 --town YISHUN --output ScanResult.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runQuery(cmd, month, town, output)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&month, "month", "m", "", "Month in yyyy-mm form (required)")
	f.StringVarP(&town, "town", "t", "", "Town name, matched exactly (required)")
	f.StringVarP(&output, "output", "o", "", "Also write Year,Month,Town,Category,Value records to this CSV file")
	f.Float64("threshold", 0, "Minimum floor area in square meters, inclusive")
	f.String("layout", "", "Store layout to query (compressed, plain)")
	f.String("strategy", "", "First query path to try (auto, zone_pruned, compressed_scan, full_scan)")
	f.Bool("cache", false, "Cache parsed dictionaries and zone maps")
	_ = cmd.MarkFlagRequired("month")
	_ = cmd.MarkFlagRequired("town")
	return cmd
}

func (a *app) runQuery(cmd *cobra.Command, month, town, output string) error {
	layout, err := columnar.ParseLayout(a.cfg.Store.Layout)
	if err != nil {
		return err
	}
	strategy, err := query.ParseStrategy(a.cfg.Query.Strategy)
	if err != nil {
		return err
	}
	engine, err := a.openEngine(layout, strategy)
	if err != nil {
		return err
	}

	ctx := logger.WithStore(cmd.Context(), engine.Store().Dir())
	ctx = logger.WithQueryID(ctx, fmt.Sprintf("%s/%s", month, town))
	res, err := engine.RunQuery(ctx, month, town, a.cfg.Query.AreaThreshold)
	if err != nil {
		return err
	}
	a.log.Info("query answered",
		zap.String("path", string(res.Path)),
		zap.Int("subset_size", res.SubsetSize),
		zap.Duration("select", res.SelectDuration),
		zap.Duration("aggregate", res.AggregateDuration))

	if output != "" {
		if err := writeResultFile(output, res); err != nil {
			return err
		}
	}
	return a.report(cmd, res, func(w io.Writer) error { return writeResultText(w, res) })
}

func writeResultFile(path string, res *query.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create result file").WithDetail("path", path)
	}
	if err := res.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close result file").WithDetail("path", path)
	}
	return nil
}

func writeResultText(w io.Writer, res *query.Result) error {
	next, err := query.NextCalendarMonth(res.Month)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "month in {%s, %s}, town = %s, floor area >= %g\n", res.Month, next, res.Town, res.AreaThreshold)
	fmt.Fprintf(w, "path %s", res.Path)
	if res.Prune.Total > 0 {
		fmt.Fprintf(w, ", %d of %d zones pruned", res.Prune.Pruned(), res.Prune.Total)
	}
	for _, fb := range res.Fallbacks {
		fmt.Fprintf(w, ", fell back from %s (%s)", fb.From, fb.Reason)
	}
	fmt.Fprintf(w, "\n%d matching rows\n\n", res.SubsetSize)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, agg := range res.Aggregates() {
		fmt.Fprintf(tw, "%s\t%s\n", agg.Category, agg.Format())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nselect %v, aggregate %v\n",
		res.SelectDuration.Round(time.Microsecond), res.AggregateDuration.Round(time.Microsecond))
	return nil
}
