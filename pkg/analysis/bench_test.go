package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/columnar"
	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/query"
	"github.com/ajitpratap0/strata/pkg/testutil"
)

func TestBench(t *testing.T) {
	tbl := testutil.ResaleTable(t, testutil.ResaleOptions{Rows: 3000, Seed: 11})
	store := testutil.BuildStore(t, tbl, testutil.StoreOptions{Layout: columnar.LayoutCompressed})

	var results []*BenchResult
	for _, strategy := range []query.Strategy{query.StrategyZonePruned, query.StrategyFullScan} {
		engine, err := query.NewEngine(store, query.WithStrategy(strategy), query.WithLogger(testutil.TestLogger(t)))
		require.NoError(t, err)

		r, err := Bench(context.Background(), engine, string(strategy), BenchOptions{
			Month:         "2016-06",
			Town:          "BEDOK",
			AreaThreshold: query.DefaultAreaThreshold,
			Warmup:        1,
			Runs:          5,
		})
		require.NoError(t, err)
		assert.Equal(t, 5, r.Runs)
		assert.Equal(t, store.Dir(), r.Store)
		assert.LessOrEqual(t, r.P50, r.Max)
		assert.LessOrEqual(t, r.P95, r.Max)
		assert.Positive(t, r.Mean)
		require.NotNil(t, r.LastResult)
		assert.Equal(t, r.SubsetSize, r.LastResult.SubsetSize)
		results = append(results, r)
	}

	assert.Equal(t, query.PathZonePruned, results[0].Path)
	assert.Greater(t, results[0].PrunedRatio, 0.5)
	assert.Equal(t, query.PathFullScan, results[1].Path)
	assert.Zero(t, results[1].PrunedRatio)
	assert.Equal(t, results[0].SubsetSize, results[1].SubsetSize)
}

func TestBenchRejectsBadOptions(t *testing.T) {
	store := testutil.BuildStore(t, testutil.SampleTable(t), testutil.StoreOptions{})
	engine, err := query.NewEngine(store)
	require.NoError(t, err)

	_, err = Bench(context.Background(), engine, "auto", BenchOptions{Month: "2016-04", Town: "BEDOK"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = Bench(context.Background(), engine, "auto", BenchOptions{Month: "April", Town: "BEDOK", Runs: 1})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
