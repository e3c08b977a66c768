package analysis

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/metrics"
	"github.com/ajitpratap0/strata/pkg/query"
)

// BenchOptions configures Bench.
type BenchOptions struct {
	Month         string
	Town          string
	AreaThreshold float64
	Warmup        int
	Runs          int
	Logger        *zap.Logger
}

// BenchResult summarizes repeated runs of one query against one engine.
type BenchResult struct {
	Store       string        `json:"store"`
	Strategy    string        `json:"strategy"`
	Path        query.Path    `json:"path"`
	Runs        int           `json:"runs"`
	SubsetSize  int           `json:"subset_size"`
	PrunedRatio float64       `json:"pruned_ratio"`
	Mean        time.Duration `json:"mean"`
	P50         time.Duration `json:"p50"`
	P95         time.Duration `json:"p95"`
	Max         time.Duration `json:"max"`
	Memory      MemorySample  `json:"memory"`
	RSSDelta    int64         `json:"rss_delta_bytes"`
	LastResult  *query.Result `json:"result"`
}

// Bench runs the query opts.Warmup times untimed, then opts.Runs times timed.
// Every timed run must agree on the subset size.
func Bench(ctx context.Context, engine *query.Engine, strategy string, opts BenchOptions) (*BenchResult, error) {
	if opts.Runs <= 0 {
		return nil, errors.New(errors.ErrorTypeValidation, "bench needs at least one run")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	probe, err := NewMemoryProbe()
	if err != nil {
		return nil, err
	}

	for i := 0; i < opts.Warmup; i++ {
		if _, err := engine.RunQuery(ctx, opts.Month, opts.Town, opts.AreaThreshold); err != nil {
			return nil, err
		}
	}

	before := probe.Sample()
	latency := metrics.NewLatencyTracker(opts.Runs)
	r := &BenchResult{Store: engine.Store().Dir(), Strategy: strategy, Runs: opts.Runs}
	var total time.Duration
	for i := 0; i < opts.Runs; i++ {
		timer := metrics.NewTimer("bench")
		res, err := engine.RunQuery(ctx, opts.Month, opts.Town, opts.AreaThreshold)
		if err != nil {
			return nil, err
		}
		d := timer.Stop()
		latency.Record(d)
		total += d
		if d > r.Max {
			r.Max = d
		}

		if i > 0 && res.SubsetSize != r.SubsetSize {
			return nil, errors.Newf(errors.ErrorTypeInternal, "run %d matched %d rows, earlier runs %d", i, res.SubsetSize, r.SubsetSize)
		}
		r.SubsetSize = res.SubsetSize
		r.Path = res.Path
		r.PrunedRatio = res.Prune.PrunedRatio()
		r.LastResult = res

		opts.Logger.Debug("bench run",
			zap.Int("run", i+1),
			zap.String("path", string(res.Path)),
			zap.Duration("duration", d))
	}

	r.Mean = total / time.Duration(opts.Runs)
	r.P50 = latency.GetPercentile(50)
	r.P95 = latency.GetPercentile(95)
	r.Memory = probe.Sample()
	r.RSSDelta = RSSDelta(before, r.Memory)
	return r, nil
}
