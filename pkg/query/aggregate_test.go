package query

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatesEmpty(t *testing.T) {
	assert.Nil(t, MinPrice(nil))
	assert.Nil(t, AveragePrice(nil))
	assert.Nil(t, SampleStdDev(nil))
	assert.Nil(t, MinPricePerArea(nil, nil))
}

func TestSampleStdDev(t *testing.T) {
	assert.Nil(t, SampleStdDev([]float64{300000}), "undefined for one value")

	sd := SampleStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	require.NotNil(t, sd)
	assert.InDelta(t, math.Sqrt(32.0/7.0), *sd, 1e-12)

	sd = SampleStdDev([]float64{5, 5})
	require.NotNil(t, sd)
	assert.Zero(t, *sd)
}

func TestMinAndAverage(t *testing.T) {
	prices := []float64{420000, 250000, 300000}
	assert.Equal(t, 250000.0, *MinPrice(prices))
	assert.InDelta(t, 323333.333, *AveragePrice(prices), 1e-3)
}

func TestMinPricePerAreaIsPerRow(t *testing.T) {
	prices := []float64{300, 100}
	areas := []float64{100, 10}

	got := MinPricePerArea(prices, areas)
	require.NotNil(t, got)
	// min(price)/min(area) would be 10.
	assert.Equal(t, 3.0, *got)

	assert.Nil(t, MinPricePerArea(prices, areas[:1]))
}
