package testutil

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/table"
)

// ResaleColumns is the header of generated resale tables.
var ResaleColumns = []string{
	"month", "town", "flat_type", "block", "street_name", "floor_area_sqm", "resale_price",
}

// ResaleTowns are the towns generated tables draw from.
var ResaleTowns = []string{
	"ANG MO KIO", "BEDOK", "BISHAN", "BUKIT BATOK", "BUKIT MERAH", "BUKIT PANJANG",
	"BUKIT TIMAH", "CENTRAL AREA", "CHOA CHU KANG", "CLEMENTI", "GEYLANG", "HOUGANG",
	"JURONG EAST", "JURONG WEST", "KALLANG/WHAMPOA", "MARINE PARADE", "PASIR RIS",
	"PUNGGOL", "QUEENSTOWN", "SEMBAWANG", "SENGKANG", "SERANGOON", "TAMPINES",
	"TOA PAYOH", "WOODLANDS", "YISHUN",
}

var flatTypes = []string{"1 ROOM", "2 ROOM", "3 ROOM", "4 ROOM", "5 ROOM", "EXECUTIVE", "MULTI-GENERATION"}

// ResaleOptions shapes a generated table.
type ResaleOptions struct {
	Rows      int
	Seed      int64
	FromMonth string // first month, yyyy-mm; default 2016-01
	Months    int    // distinct months, in ascending row order; default 24
}

// ResaleTable generates a deterministic resale transaction table. Rows are
// ordered by month like the published data set, so month zones are narrow
// and town zones are wide.
func ResaleTable(t testing.TB, opts ResaleOptions) *table.Table {
	t.Helper()
	if opts.FromMonth == "" {
		opts.FromMonth = "2016-01"
	}
	if opts.Months <= 0 {
		opts.Months = 24
	}

	var year, month int
	_, err := fmt.Sscanf(opts.FromMonth, "%d-%d", &year, &month)
	require.NoError(t, err)

	tbl, err := table.New(ResaleColumns...)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(opts.Seed))
	perMonth := (opts.Rows + opts.Months - 1) / opts.Months
	for i := 0; i < opts.Rows; i++ {
		offset := i / perMonth
		y, m := year+(month-1+offset)/12, (month-1+offset)%12+1

		area := 35 + rng.Intn(116)
		price := 150000 + area*3000 + rng.Intn(400)*500
		require.NoError(t, tbl.Append(
			fmt.Sprintf("%04d-%02d", y, m),
			ResaleTowns[rng.Intn(len(ResaleTowns))],
			flatTypes[rng.Intn(len(flatTypes))],
			fmt.Sprintf("%d%s", 1+rng.Intn(700), []string{"", "A", "B", "C"}[rng.Intn(4)]),
			fmt.Sprintf("STREET %d", rng.Intn(500)),
			fmt.Sprintf("%d", area),
			fmt.Sprintf("%d", price),
		))
	}
	return tbl
}

// SampleTable returns the two-row table from the resale documentation: only
// the first row satisfies (2016-04 or 2016-05, CHOA CHU KANG, area >= 80).
func SampleTable(t testing.TB) *table.Table {
	t.Helper()
	tbl, err := table.New("month", "town", "floor_area_sqm", "resale_price")
	require.NoError(t, err)
	require.NoError(t, tbl.Append("2016-04", "CHOA CHU KANG", "90", "300000"))
	require.NoError(t, tbl.Append("2016-05", "CHOA CHU KANG", "70", "250000"))
	return tbl
}
