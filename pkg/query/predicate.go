package query

import (
	"math"
	"time"

	"github.com/ajitpratap0/strata/pkg/errors"
	"github.com/ajitpratap0/strata/pkg/zonemap"
)

// DefaultAreaThreshold is the floor area, inclusive, a row must reach.
const DefaultAreaThreshold = 80

const monthLayout = "2006-01"

// NextCalendarMonth returns the month after month, both in yyyy-mm form.
// December rolls over into January of the following year.
func NextCalendarMonth(month string) (string, error) {
	t, err := time.Parse(monthLayout, month)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeValidation, "month must be in yyyy-mm form").
			WithDetail("month", month)
	}
	return t.AddDate(0, 1, 0).Format(monthLayout), nil
}

// Predicate is the composite filter
//
//	(month = A OR month = next(A)) AND town = T AND area >= threshold
type Predicate struct {
	Months        [2]string
	Town          string
	AreaThreshold float64
}

// NewPredicate builds the predicate for a starting month.
func NewPredicate(month, town string, areaThreshold float64) (Predicate, error) {
	next, err := NextCalendarMonth(month)
	if err != nil {
		return Predicate{}, err
	}
	if math.IsNaN(areaThreshold) {
		return Predicate{}, errors.New(errors.ErrorTypeValidation, "area threshold is not a number")
	}
	return Predicate{
		Months:        [2]string{month, next},
		Town:          town,
		AreaThreshold: areaThreshold,
	}, nil
}

// MatchesMonth reports whether month is one of the two target months.
func (p Predicate) MatchesMonth(month string) bool {
	return month == p.Months[0] || month == p.Months[1]
}

// MatchesArea reports whether area parses as a number at or above the
// threshold.
func (p Predicate) MatchesArea(area string) bool {
	f, ok := zonemap.ParseNumber(area)
	return ok && f >= p.AreaThreshold
}

// Matches evaluates the whole predicate against one row.
func (p Predicate) Matches(month, town, area string) bool {
	return town == p.Town && p.MatchesMonth(month) && p.MatchesArea(area)
}
