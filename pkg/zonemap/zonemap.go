// Package zonemap implements the per-column zone index used to prune chunks of
// rows before any column bytes are read.
//
// A column is cut into zones of a fixed number of rows. Each zone records the
// minimum and maximum value of its rows and the byte span those rows occupy in
// the column's physical representation: newline-delimited text for plain
// columns, or the bit-packed code stream for dictionary-compressed ones.
//
// Bounds are always kept in the decoded value domain, never in code space, so
// the same relevance test works for both representations. Whether bounds
// compare numerically or lexicographically is decided once per column.
package zonemap

import (
	"math"
	"strconv"
	"strings"

	"github.com/ajitpratap0/strata/pkg/bitstream"
	"github.com/ajitpratap0/strata/pkg/errors"
)

// DefaultChunkSize is the number of rows per zone used by the store.
const DefaultChunkSize = 800

// Domain selects how a column's zone bounds are compared.
type Domain int

const (
	// DomainText compares bounds as raw strings.
	DomainText Domain = iota
	// DomainNumeric compares bounds as parsed float64 values.
	DomainNumeric
)

func (d Domain) String() string {
	if d == DomainNumeric {
		return "numeric"
	}
	return "text"
}

// DetectDomain returns DomainNumeric when every value parses as a finite or
// infinite number, DomainText otherwise. An empty column is text.
func DetectDomain(values []string) Domain {
	if len(values) == 0 {
		return DomainText
	}
	for _, v := range values {
		if _, ok := ParseNumber(v); !ok {
			return DomainText
		}
	}
	return DomainNumeric
}

// ParseNumber parses a numeric cell. NaN is rejected because it has no order.
func ParseNumber(v string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Zone describes one chunk of rows of a column.
type Zone struct {
	Min   string
	Max   string
	Start int64 // first byte of the chunk
	End   int64 // one past the last byte of the chunk

	minNum float64
	maxNum float64
}

// Span is the physical location and row range of one zone.
type Span struct {
	Zone     int
	Start    int64
	End      int64
	FirstRow int
	Rows     int
}

// ZoneMap is the complete zone index of one column.
type ZoneMap struct {
	Column    string
	Domain    Domain
	ChunkSize int
	Records   int
	Zones     []Zone
}

// Len returns the number of zones.
func (zm *ZoneMap) Len() int { return len(zm.Zones) }

// RowRange returns the first row and row count covered by zone i.
func (zm *ZoneMap) RowRange(i int) (first, rows int) {
	first = i * zm.ChunkSize
	rows = zm.ChunkSize
	if first+rows > zm.Records {
		rows = zm.Records - first
	}
	return first, rows
}

// ZoneCount returns how many zones cover records rows at the given chunk size.
func ZoneCount(records, chunkSize int) int {
	if records <= 0 || chunkSize <= 0 {
		return 0
	}
	return (records + chunkSize - 1) / chunkSize
}

// CheckChunkSize validates a chunk size. It must be a positive multiple of 8 so
// every zone of a bit-packed column starts on a byte boundary whatever the
// packing width.
func CheckChunkSize(chunkSize int) error {
	if chunkSize <= 0 || chunkSize%8 != 0 {
		return errors.Newf(errors.ErrorTypeValidation, "chunk size %d must be a positive multiple of 8", chunkSize)
	}
	return nil
}

// BuildPlain builds the zone map of a column stored as newline-delimited text.
// Byte spans address the .col file, one value and one '\n' per row.
func BuildPlain(column string, values []string, chunkSize int) (*ZoneMap, error) {
	if err := CheckChunkSize(chunkSize); err != nil {
		return nil, err
	}

	var offset int64
	zm := build(column, values, chunkSize, func(first, rows int) (int64, int64) {
		start := offset
		for _, v := range values[first : first+rows] {
			offset += int64(len(v)) + 1
		}
		return start, offset
	})
	return zm, nil
}

// BuildCoded builds the zone map of a dictionary-compressed column. values are
// the decoded values in row order; byte spans address the .cmp file including
// its header, packed at bitsPerValue bits per row.
func BuildCoded(column string, values []string, chunkSize int, bitsPerValue uint) (*ZoneMap, error) {
	if err := CheckChunkSize(chunkSize); err != nil {
		return nil, err
	}
	if bitsPerValue == 0 || bitsPerValue > bitstream.MaxWidth {
		return nil, errors.Newf(errors.ErrorTypeValidation, "bits per value %d out of range", bitsPerValue)
	}

	zm := build(column, values, chunkSize, func(first, rows int) (int64, int64) {
		return CodedSpan(first, rows, bitsPerValue)
	})
	return zm, nil
}

// CodedSpan returns the byte span of rows [first, first+rows) in a .cmp file.
// first must be a multiple of 8.
func CodedSpan(first, rows int, bitsPerValue uint) (start, end int64) {
	header := int64(2 * bitstream.HeaderSize)
	bits := int64(bitsPerValue)
	start = header + int64(first)*bits/8
	end = header + (int64(first+rows)*bits+7)/8
	return start, end
}

func build(column string, values []string, chunkSize int, span func(first, rows int) (int64, int64)) *ZoneMap {
	zm := &ZoneMap{
		Column:    column,
		Domain:    DetectDomain(values),
		ChunkSize: chunkSize,
		Records:   len(values),
		Zones:     make([]Zone, 0, ZoneCount(len(values), chunkSize)),
	}

	for first := 0; first < len(values); first += chunkSize {
		rows := chunkSize
		if first+rows > len(values) {
			rows = len(values) - first
		}

		z := zm.bounds(values[first : first+rows])
		z.Start, z.End = span(first, rows)
		zm.Zones = append(zm.Zones, z)
	}
	return zm
}

func (zm *ZoneMap) bounds(chunk []string) Zone {
	z := Zone{Min: chunk[0], Max: chunk[0]}
	if zm.Domain == DomainNumeric {
		z.minNum, _ = ParseNumber(chunk[0])
		z.maxNum = z.minNum
		for _, v := range chunk[1:] {
			f, _ := ParseNumber(v)
			if f < z.minNum {
				z.minNum, z.Min = f, v
			}
			if f > z.maxNum {
				z.maxNum, z.Max = f, v
			}
		}
		return z
	}

	for _, v := range chunk[1:] {
		if v < z.Min {
			z.Min = v
		}
		if v > z.Max {
			z.Max = v
		}
	}
	return z
}

// Spans returns the spans of the given zone indices in ascending order.
func (zm *ZoneMap) Spans(zones []uint32) []Span {
	spans := make([]Span, 0, len(zones))
	for _, i := range zones {
		if int(i) >= len(zm.Zones) {
			continue
		}
		first, rows := zm.RowRange(int(i))
		spans = append(spans, Span{
			Zone:     int(i),
			Start:    zm.Zones[i].Start,
			End:      zm.Zones[i].End,
			FirstRow: first,
			Rows:     rows,
		})
	}
	return spans
}
