// Package dictionary derives the sorted value-to-code mapping used to
// dictionary-compress a column and decides whether compression is worthwhile.
//
// Codes are dense and assigned in lexicographic order of the distinct values,
// so building the same column twice always yields the same dictionary.
package dictionary

import (
	"math/bits"
	"sort"

	"github.com/ajitpratap0/strata/pkg/errors"
)

// A column is compressed only when distinct/records is strictly below
// MaxDistinctRatio and it has more than one distinct value.
const MaxDistinctRatio = 0.10

// Dictionary is an immutable bijection between a column's distinct values and
// the codes 0..Len()-1.
type Dictionary struct {
	column  string
	values  []string // code -> value, sorted
	codes   map[string]uint32
	bits    uint
	records int
}

// Build collects the distinct values of column and assigns codes in sorted
// order. The dictionary is built even when the column is not eligible; callers
// check Eligible before encoding with it.
func Build(column string, values []string) *Dictionary {
	seen := make(map[string]struct{}, 64)
	for _, v := range values {
		seen[v] = struct{}{}
	}

	distinct := make([]string, 0, len(seen))
	for v := range seen {
		distinct = append(distinct, v)
	}
	sort.Strings(distinct)

	return newDictionary(column, distinct, len(values))
}

func newDictionary(column string, sorted []string, records int) *Dictionary {
	codes := make(map[string]uint32, len(sorted))
	for i, v := range sorted {
		codes[v] = uint32(i)
	}
	return &Dictionary{
		column:  column,
		values:  sorted,
		codes:   codes,
		bits:    BitsPerValue(len(sorted)),
		records: records,
	}
}

// Eligible reports whether a column with the given cardinality is worth
// dictionary-compressing.
func Eligible(distinct, records int) bool {
	if distinct <= 1 || records <= 0 {
		return false
	}
	// distinct/records < 0.10 without floating point rounding
	return distinct*10 < records
}

// BitsPerValue returns max(1, ceil(log2(distinct))).
func BitsPerValue(distinct int) uint {
	if distinct <= 2 {
		return 1
	}
	return uint(bits.Len(uint(distinct - 1)))
}

// Column returns the name of the column the dictionary was built for.
func (d *Dictionary) Column() string { return d.column }

// Len returns the number of distinct values.
func (d *Dictionary) Len() int { return len(d.values) }

// Records returns the number of rows the dictionary was built from.
func (d *Dictionary) Records() int { return d.records }

// BitsPerValue returns the packing width for this dictionary's codes.
func (d *Dictionary) BitsPerValue() uint { return d.bits }

// Eligible reports whether this column should be stored compressed.
func (d *Dictionary) Eligible() bool { return Eligible(len(d.values), d.records) }

// Values returns the distinct values in code order. The slice must not be modified.
func (d *Dictionary) Values() []string { return d.values }

// Code returns the code for value. ok is false when the value never occurs in
// the column.
func (d *Dictionary) Code(value string) (code uint32, ok bool) {
	code, ok = d.codes[value]
	return code, ok
}

// Value maps a code back to its original text.
func (d *Dictionary) Value(code uint32) (string, error) {
	if int64(code) >= int64(len(d.values)) {
		return "", errors.Newf(errors.ErrorTypeUnknownCode, "code %d has no dictionary entry", code).
			WithDetail("column", d.column).
			WithDetail("distinct", len(d.values))
	}
	return d.values[code], nil
}
