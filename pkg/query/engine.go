// Package query answers the resale aggregate query over a strata store.
//
// # Overview
//
// Engine.Select resolves the rows matching a Predicate using the cheapest
// path the store supports, falling back in order:
//
//  1. zone_pruned: intersect the zone maps of month, town and floor area,
//     then decode only the surviving zones of each column
//  2. compressed_scan: resolve target values to dictionary codes once and
//     compare codes while streaming the month and town columns
//  3. full_scan: decode whole columns and test every row
//
// A path that fails for any reason other than cancellation hands over to the
// next one. The fallback is logged and counted; the result is the same on
// every path.
//
// # Basic Usage
//
//	store, err := columnar.Open("store/compressed")
//	engine, err := query.NewEngine(store, query.WithLogger(logger))
//	res, err := engine.RunQuery(ctx, "2016-04", "CHOA CHU KANG", query.DefaultAreaThreshold)
//	if res.MinPrice != nil {
//	    fmt.Println(*res.MinPrice)
//	}
package query

import (
	"context"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/strata/pkg/columnar"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/logger"
	"github.com/ajitpratap0/strata/pkg/metrics"
	"github.com/ajitpratap0/strata/pkg/observability"
	"github.com/ajitpratap0/strata/pkg/zonemap"
)

// Path identifies how a selection was computed.
type Path string

const (
	PathZonePruned     Path = "zone_pruned"
	PathCompressedScan Path = "compressed_scan"
	PathFullScan       Path = "full_scan"
)

// Strategy selects the first path Select tries.
type Strategy string

const (
	StrategyAuto           Strategy = "auto"
	StrategyZonePruned     Strategy = Strategy(PathZonePruned)
	StrategyCompressedScan Strategy = Strategy(PathCompressedScan)
	StrategyFullScan       Strategy = Strategy(PathFullScan)
)

// ParseStrategy parses a strategy name. The empty string means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyZonePruned, StrategyCompressedScan, StrategyFullScan:
		return st, nil
	default:
		return "", errors.Newf(errors.ErrorTypeConfig, "unknown query strategy %q", s)
	}
}

func (s Strategy) chain() []Path {
	switch s {
	case StrategyCompressedScan:
		return []Path{PathCompressedScan, PathFullScan}
	case StrategyFullScan:
		return []Path{PathFullScan}
	default:
		return []Path{PathZonePruned, PathCompressedScan, PathFullScan}
	}
}

// Fallback records a path that gave up.
type Fallback struct {
	From   Path   `json:"from"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Selection is the set of rows matching a predicate.
type Selection struct {
	Rows      *roaring.Bitmap
	Path      Path
	Prune     zonemap.PruneStats // zero unless Path is zone_pruned
	Fallbacks []Fallback
}

// Len returns the number of selected rows.
func (s *Selection) Len() int { return int(s.Rows.GetCardinality()) }

// Engine evaluates predicates against one store.
type Engine struct {
	store    *columnar.Store
	columns  Columns
	strategy Strategy
	logger   *zap.Logger
	tracer   trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithStrategy sets the first path Select tries.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithColumns overrides the column names.
func WithColumns(c Columns) Option {
	return func(e *Engine) { e.columns = c }
}

// WithTracer sets the tracer. The default is the global strata tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// NewEngine returns an engine over store. Every query column must exist in
// the store.
func NewEngine(store *columnar.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:    store,
		columns:  DefaultColumns(),
		strategy: StrategyAuto,
		logger:   logger.Get(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = observability.Tracer()
	}
	if _, err := ParseStrategy(string(e.strategy)); err != nil {
		return nil, err
	}
	for _, name := range e.columns.all() {
		if _, ok := store.Metadata().Column(name); !ok {
			return nil, errors.Newf(errors.ErrorTypeConfig, "store has no column %q", name).
				WithDetail("store", store.Dir())
		}
	}
	e.logger = e.logger.With(zap.String("store", store.Dir()))
	return e, nil
}

// Store returns the engine's store.
func (e *Engine) Store() *columnar.Store { return e.store }

// Select returns the rows matching pred.
func (e *Engine) Select(ctx context.Context, pred Predicate) (*Selection, error) {
	ctx, span := observability.StartSpan(ctx, e.tracer, "query.select")
	span.SetAttribute("month", pred.Months[0])
	span.SetAttribute("town", pred.Town)
	span.SetAttribute("strategy", string(e.strategy))

	log := logger.FromContext(ctx, e.logger)

	var fallbacks []Fallback
	for _, path := range e.strategy.chain() {
		timer := metrics.NewTimer(string(path))
		sel, err := e.run(ctx, path, pred)
		if err == nil {
			metrics.QueriesTotal.WithLabelValues(string(path)).Inc()
			metrics.QueryDuration.WithLabelValues(string(path)).Observe(timer.Stop().Seconds())
			sel.Fallbacks = fallbacks
			span.SetAttribute("path", string(path))
			span.SetAttribute("rows", sel.Len())
			span.End(nil)
			return sel, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			span.End(ctxErr)
			return nil, ctxErr
		}
		if path == PathFullScan {
			span.End(err)
			return nil, err
		}

		reason := reasonOf(err)
		metrics.QueryFallbacks.WithLabelValues(string(path), reason).Inc()
		log.Warn("query path unavailable, falling back",
			zap.String("path", string(path)),
			zap.String("reason", reason),
			zap.Error(err))
		fallbacks = append(fallbacks, Fallback{From: path, Reason: reason, Err: err})
	}

	// chain always ends with full_scan
	err := errors.New(errors.ErrorTypeInternal, "no query path available")
	span.End(err)
	return nil, err
}

func (e *Engine) run(ctx context.Context, path Path, pred Predicate) (*Selection, error) {
	ctx, span := observability.StartSpan(ctx, e.tracer, "query."+string(path))

	var sel *Selection
	var err error
	switch path {
	case PathZonePruned:
		sel, err = e.zonePruned(ctx, pred)
	case PathCompressedScan:
		sel, err = e.compressedScan(ctx, pred)
	default:
		sel, err = e.fullScan(ctx, pred)
	}
	if sel != nil {
		span.SetAttribute("rows", sel.Len())
	}
	span.End(err)
	return sel, err
}

func reasonOf(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return string(e.Type)
	}
	return string(errors.ErrorTypeInternal)
}

// Result is the answer to RunQuery. Every aggregate is nil when no row
// matched, and SampleStdDev is also nil for a single row.
type Result struct {
	Month             string             `json:"month"`
	Town              string             `json:"town"`
	AreaThreshold     float64            `json:"area_threshold"`
	SubsetSize        int                `json:"subset_size"`
	MinPrice          *float64           `json:"min_price"`
	AvgPrice          *float64           `json:"avg_price"`
	StdDevPrice       *float64           `json:"stddev_price"`
	MinPricePerArea   *float64           `json:"min_price_per_area"`
	Path              Path               `json:"path"`
	Prune             zonemap.PruneStats `json:"prune"`
	Fallbacks         []Fallback         `json:"fallbacks,omitempty"`
	SelectDuration    time.Duration      `json:"select_duration"`
	AggregateDuration time.Duration      `json:"aggregate_duration"`
}

// RunQuery selects the rows for (month, town, areaThreshold) and aggregates
// their prices.
func (e *Engine) RunQuery(ctx context.Context, month, town string, areaThreshold float64) (*Result, error) {
	pred, err := NewPredicate(month, town, areaThreshold)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	sel, err := e.Select(ctx, pred)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Month:          month,
		Town:           town,
		AreaThreshold:  areaThreshold,
		SubsetSize:     sel.Len(),
		Path:           sel.Path,
		Prune:          sel.Prune,
		Fallbacks:      sel.Fallbacks,
		SelectDuration: time.Since(start),
	}

	start = time.Now()
	prices, areas, err := e.priceAndArea(ctx, sel.Rows)
	if err != nil {
		return nil, err
	}
	res.MinPrice = MinPrice(prices)
	res.AvgPrice = AveragePrice(prices)
	res.StdDevPrice = SampleStdDev(prices)
	res.MinPricePerArea = MinPricePerArea(prices, areas)
	res.AggregateDuration = time.Since(start)

	logger.FromContext(ctx, e.logger).Debug("query answered",
		zap.String("month", month),
		zap.String("town", town),
		zap.Int("rows", res.SubsetSize),
		zap.String("path", string(res.Path)),
		zap.Duration("select", res.SelectDuration),
		zap.Duration("aggregate", res.AggregateDuration))
	return res, nil
}
