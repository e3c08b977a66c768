package query

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/ajitpratap0/strata/pkg/errors"
)

// Aggregate names as written by WriteCSV.
const (
	CategoryMinPrice        = "Minimum Price"
	CategoryStdDevPrice     = "Standard Deviation of Price"
	CategoryAvgPrice        = "Average Price"
	CategoryMinPricePerArea = "Minimum Price per Square Meter"
)

// NoResult is written in place of an aggregate with no value.
const NoResult = "No result"

// Aggregates returns the result's values keyed by category, in report order.
func (r *Result) Aggregates() []Aggregate {
	return []Aggregate{
		{CategoryMinPrice, r.MinPrice},
		{CategoryStdDevPrice, r.StdDevPrice},
		{CategoryAvgPrice, r.AvgPrice},
		{CategoryMinPricePerArea, r.MinPricePerArea},
	}
}

// Aggregate is one named, nullable aggregate.
type Aggregate struct {
	Category string
	Value    *float64
}

// Format renders the value with two decimals, or NoResult.
func (a Aggregate) Format() string {
	if a.Value == nil {
		return NoResult
	}
	return strconv.FormatFloat(*a.Value, 'f', 2, 64)
}

// WriteCSV writes the result as Year,Month,Town,Category,Value records.
func (r *Result) WriteCSV(w io.Writer) error {
	year, month, _ := strings.Cut(r.Month, "-")

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Year", "Month", "Town", "Category", "Value"}); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write result header")
	}
	for _, a := range r.Aggregates() {
		if err := cw.Write([]string{year, month, r.Town, a.Category, a.Format()}); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to write result")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to flush results")
	}
	return nil
}
