package query

import (
	"context"
	"math"

	"github.com/RoaringBitmap/roaring"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/zonemap"
)

// MinPrice returns the smallest price, or nil for no prices.
func MinPrice(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}
	m := prices[0]
	for _, p := range prices[1:] {
		m = math.Min(m, p)
	}
	return &m
}

// AveragePrice returns the mean price, or nil for no prices.
func AveragePrice(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}
	var sum float64
	for _, p := range prices {
		sum += p
	}
	avg := sum / float64(len(prices))
	return &avg
}

// SampleStdDev returns the sample standard deviation (n-1 denominator). It is
// undefined, and nil, for fewer than two prices.
func SampleStdDev(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}
	mean := *AveragePrice(prices)
	var ss float64
	for _, p := range prices {
		d := p - mean
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(len(prices)-1))
	return &sd
}

// MinPricePerArea returns the smallest price/area ratio taken row by row,
// which is not min(price)/min(area). prices and areas are parallel.
func MinPricePerArea(prices, areas []float64) *float64 {
	if len(prices) == 0 || len(prices) != len(areas) {
		return nil
	}
	m := math.Inf(1)
	for i := range prices {
		m = math.Min(m, prices[i]/areas[i])
	}
	return &m
}

// priceAndArea decodes the price and area of every selected row, in row
// order.
func (e *Engine) priceAndArea(ctx context.Context, rows *roaring.Bitmap) (prices, areas []float64, err error) {
	if rows.IsEmpty() {
		return nil, nil, nil
	}

	var raw [2][]string
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range []string{e.columns.Price, e.columns.Area} {
		i, name := i, name
		g.Go(func() error {
			v, err := e.values(gctx, name, rows)
			raw[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	prices, err = parseAll(e.columns.Price, raw[0])
	if err != nil {
		return nil, nil, err
	}
	areas, err = parseAll(e.columns.Area, raw[1])
	if err != nil {
		return nil, nil, err
	}
	return prices, areas, nil
}

// values returns column's values at rows, in row order. Only the zones that
// hold a selected row are decoded when the column has a usable zone map.
func (e *Engine) values(ctx context.Context, column string, rows *roaring.Bitmap) ([]string, error) {
	src, err := e.store.Source(column)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, rows.GetCardinality())

	zm, err := e.store.ZoneMap(column)
	if err == nil && !e.readsRecorded(column, src) {
		err = errors.New(errors.ErrorTypeMissingArtifact, "zone map does not address the readable column file").
			WithDetail("column", column)
	}
	if err != nil {
		if !errors.IsRecoverable(err) {
			return nil, err
		}
		all, err := src.ReadFull(ctx)
		if err != nil {
			return nil, err
		}
		it := rows.Iterator()
		for it.HasNext() {
			r := int(it.Next())
			if r >= len(all) {
				return nil, errors.Newf(errors.ErrorTypeMetadataMismatch, "row %d beyond column %q", r, column)
			}
			out = append(out, all[r])
		}
		return out, nil
	}

	zones := zoneSet(rows, zm.ChunkSize)
	spans := zm.Spans(zones)
	decoded, err := src.ReadZoneSpans(ctx, spans)
	if err != nil {
		return nil, err
	}

	it := rows.Iterator()
	for it.HasNext() {
		r := int(it.Next())
		z := findSpan(spans, r)
		if z < 0 {
			return nil, errors.Newf(errors.ErrorTypeMetadataMismatch, "row %d not covered by a zone of column %q", r, column)
		}
		out = append(out, decoded[z][r-spans[z].FirstRow])
	}
	return out, nil
}

func zoneSet(rows *roaring.Bitmap, chunkSize int) []uint32 {
	zones := roaring.New()
	it := rows.Iterator()
	for it.HasNext() {
		zones.Add(it.Next() / uint32(chunkSize))
	}
	return zones.ToArray()
}

// findSpan returns the index of the span covering row. spans are ordered.
func findSpan(spans []zonemap.Span, row int) int {
	lo, hi := 0, len(spans)
	for lo < hi {
		mid := (lo + hi) / 2
		s := spans[mid]
		switch {
		case row < s.FirstRow:
			hi = mid
		case row >= s.FirstRow+s.Rows:
			lo = mid + 1
		default:
			return mid
		}
	}
	return -1
}

func parseAll(column string, values []string) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		f, ok := zonemap.ParseNumber(v)
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeMalformedInput, "value %q of column %q is not a number", v, column)
		}
		out[i] = f
	}
	return out, nil
}
