package query

import (
	"context"

	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/strata/pkg/columnar"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/metrics"
	"github.com/ajitpratap0/strata/pkg/zonemap"
)

func (e *Engine) zonePruned(ctx context.Context, pred Predicate) (*Selection, error) {
	names := e.columns.predicate()
	maps := make([]*zonemap.ZoneMap, len(names))
	for i, name := range names {
		zm, err := e.store.ZoneMap(name)
		if err != nil {
			return nil, err
		}
		maps[i] = zm
	}

	relevant := zonemap.Intersect(
		maps[0].RelevantAny(pred.Months[0], pred.Months[1]),
		maps[1].Relevant(pred.Town),
		maps[2].RelevantAtLeast(pred.AreaThreshold),
	)
	stats := zonemap.PruneStats{Total: maps[0].Len(), Surviving: int(relevant.GetCardinality())}
	metrics.ZonesTotal.Add(float64(stats.Total))
	metrics.ZonesPruned.Add(float64(stats.Pruned()))
	e.logger.Debug("zones pruned",
		zap.Int("total", stats.Total),
		zap.Int("surviving", stats.Surviving),
		zap.Float64("pruned_ratio", stats.PrunedRatio()))

	sel := &Selection{Rows: roaring.New(), Path: PathZonePruned, Prune: stats}
	if relevant.IsEmpty() {
		return sel, nil
	}

	zones := relevant.ToArray()
	spans := make([][]zonemap.Span, len(names))
	decoded := make([][][]string, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		spans[i] = maps[i].Spans(zones)
		g.Go(func() error {
			src, err := e.zonedSource(name)
			if err != nil {
				return err
			}
			decoded[i], err = src.ReadZoneSpans(gctx, spans[i])
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	months, towns, areas := decoded[0], decoded[1], decoded[2]
	for z := range zones {
		first := spans[0][z].FirstRow
		if len(towns[z]) != len(months[z]) || len(areas[z]) != len(months[z]) {
			return nil, errors.Newf(errors.ErrorTypeMetadataMismatch, "zone %d decodes to different row counts across columns", zones[z])
		}
		for k := range months[z] {
			if pred.Matches(months[z][k], towns[z][k], areas[z][k]) {
				sel.Rows.Add(uint32(first + k))
			}
		}
	}
	return sel, nil
}

func (e *Engine) compressedScan(ctx context.Context, pred Predicate) (*Selection, error) {
	month, err := e.codedSource(e.columns.Month)
	if err != nil {
		return nil, err
	}
	town, err := e.codedSource(e.columns.Town)
	if err != nil {
		return nil, err
	}

	monthDict, err := month.Dictionary()
	if err != nil {
		return nil, err
	}
	townDict, err := town.Dictionary()
	if err != nil {
		return nil, err
	}

	sel := &Selection{Rows: roaring.New(), Path: PathCompressedScan}

	// Targets missing from a dictionary cannot match any row.
	townCode, ok := townDict.Code(pred.Town)
	if !ok {
		return sel, nil
	}
	monthOK := make([]bool, monthDict.Len())
	found := false
	for _, m := range pred.Months {
		if c, ok := monthDict.Code(m); ok {
			monthOK[c] = true
			found = true
		}
	}
	if !found {
		return sel, nil
	}

	area, err := e.areaTest(ctx, pred)
	if err != nil {
		return nil, err
	}
	defer area.close()

	ms, err := month.CodeStream()
	if err != nil {
		return nil, err
	}
	defer ms.Close()
	ts, err := town.CodeStream()
	if err != nil {
		return nil, err
	}
	defer ts.Close()

	for row := 0; row < e.store.Records(); row++ {
		if row%65536 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		mc, err := ms.Next()
		if err != nil {
			return nil, err
		}
		tc, err := ts.Next()
		if err != nil {
			return nil, err
		}
		// The area stream must advance on every row.
		areaOK, err := area.next()
		if err != nil {
			return nil, err
		}
		if tc == townCode && int(mc) < len(monthOK) && monthOK[mc] && areaOK {
			sel.Rows.Add(uint32(row))
		}
	}
	return sel, nil
}

func (e *Engine) codedSource(column string) (columnar.CodedSource, error) {
	src, err := e.store.Source(column)
	if err != nil {
		return nil, err
	}
	coded, ok := src.(columnar.CodedSource)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeQuery, "column %q is not dictionary-coded", column)
	}
	return coded, nil
}

// areaIterator yields, row by row, whether the area reaches the threshold.
type areaIterator struct {
	codes  *columnar.CodeReader
	passes []bool // by code
	values []bool // by row, for plain columns
	row    int
}

func (a *areaIterator) next() (bool, error) {
	if a.codes != nil {
		c, err := a.codes.Next()
		if err != nil {
			return false, err
		}
		if int(c) >= len(a.passes) {
			return false, errors.Newf(errors.ErrorTypeUnknownCode, "code %d has no dictionary entry", c)
		}
		return a.passes[c], nil
	}
	if a.row >= len(a.values) {
		return false, errors.New(errors.ErrorTypeUnexpectedEOF, "area column shorter than store")
	}
	ok := a.values[a.row]
	a.row++
	return ok, nil
}

func (a *areaIterator) close() {
	if a.codes != nil {
		a.codes.Close()
	}
}

// areaTest evaluates the threshold once per dictionary code when the area
// column is coded, and once per row otherwise.
func (e *Engine) areaTest(ctx context.Context, pred Predicate) (*areaIterator, error) {
	src, err := e.store.Source(e.columns.Area)
	if err != nil {
		return nil, err
	}

	if coded, ok := src.(columnar.CodedSource); ok {
		dict, err := coded.Dictionary()
		if err != nil {
			return nil, err
		}
		it := &areaIterator{passes: make([]bool, dict.Len())}
		for code, v := range dict.Values() {
			it.passes[code] = pred.MatchesArea(v)
		}
		if it.codes, err = coded.CodeStream(); err != nil {
			return nil, err
		}
		return it, nil
	}

	values, err := src.ReadFull(ctx)
	if err != nil {
		return nil, err
	}
	it := &areaIterator{values: make([]bool, len(values))}
	for i, v := range values {
		it.values[i] = pred.MatchesArea(v)
	}
	return it, nil
}

func (e *Engine) fullScan(ctx context.Context, pred Predicate) (*Selection, error) {
	names := e.columns.predicate()
	values := make([][]string, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			v, err := e.store.ReadColumn(gctx, name)
			values[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	months, towns, areas := values[0], values[1], values[2]
	sel := &Selection{Rows: roaring.New(), Path: PathFullScan}
	for row := range months {
		if pred.Matches(months[row], towns[row], areas[row]) {
			sel.Rows.Add(uint32(row))
		}
	}
	return sel, nil
}

// zonedSource returns the source of column only if it reads the
// representation the column's zone map addresses.
func (e *Engine) zonedSource(column string) (columnar.ColumnSource, error) {
	src, err := e.store.Source(column)
	if err != nil {
		return nil, err
	}
	if !e.readsRecorded(column, src) {
		return nil, errors.New(errors.ErrorTypeMissingArtifact, "column is not readable in its recorded representation").
			WithDetail("column", column)
	}
	return src, nil
}

func (e *Engine) readsRecorded(column string, src columnar.ColumnSource) bool {
	meta, _ := e.store.Metadata().Column(column)
	return src.IsCompressed() == meta.Compressed
}
