package query

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultWriteCSV(t *testing.T) {
	minPrice, avg := 300000.0, 312345.678
	r := &Result{
		Month:    "2016-04",
		Town:     "CHOA CHU KANG",
		MinPrice: &minPrice,
		AvgPrice: &avg,
	}

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf))
	assert.Equal(t, "Year,Month,Town,Category,Value\n"+
		"2016,04,CHOA CHU KANG,Minimum Price,300000.00\n"+
		"2016,04,CHOA CHU KANG,Standard Deviation of Price,No result\n"+
		"2016,04,CHOA CHU KANG,Average Price,312345.68\n"+
		"2016,04,CHOA CHU KANG,Minimum Price per Square Meter,No result\n",
		buf.String())
}

func TestAggregateFormat(t *testing.T) {
	v := 1.005
	assert.Equal(t, NoResult, Aggregate{Category: CategoryMinPrice}.Format())
	assert.Equal(t, "4500.00", Aggregate{Value: ptr(4500)}.Format())
	assert.NotEmpty(t, Aggregate{Value: &v}.Format())
}

func ptr(v float64) *float64 { return &v }
