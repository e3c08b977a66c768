package zonemap

import (
	"github.com/RoaringBitmap/roaring"
)

// Relevant returns the zones whose [Min, Max] range contains target, compared
// in the column's domain. A target that does not parse as a number never
// matches a numeric column.
func (zm *ZoneMap) Relevant(target string) *roaring.Bitmap {
	out := roaring.New()

	if zm.Domain == DomainNumeric {
		f, ok := ParseNumber(target)
		if !ok {
			return out
		}
		for i, z := range zm.Zones {
			if f >= z.minNum && f <= z.maxNum {
				out.Add(uint32(i))
			}
		}
		return out
	}

	for i, z := range zm.Zones {
		if target >= z.Min && target <= z.Max {
			out.Add(uint32(i))
		}
	}
	return out
}

// RelevantAny returns the union of Relevant over every target.
func (zm *ZoneMap) RelevantAny(targets ...string) *roaring.Bitmap {
	sets := make([]*roaring.Bitmap, 0, len(targets))
	for _, t := range targets {
		sets = append(sets, zm.Relevant(t))
	}
	return roaring.FastOr(sets...)
}

// RelevantAtLeast returns the zones that may hold a value >= threshold. Text
// columns cannot be pruned this way and report every zone.
func (zm *ZoneMap) RelevantAtLeast(threshold float64) *roaring.Bitmap {
	out := roaring.New()
	if zm.Domain != DomainNumeric {
		out.AddRange(0, uint64(len(zm.Zones)))
		return out
	}
	for i, z := range zm.Zones {
		if z.maxNum >= threshold {
			out.Add(uint32(i))
		}
	}
	return out
}

// All returns every zone index.
func (zm *ZoneMap) All() *roaring.Bitmap {
	out := roaring.New()
	out.AddRange(0, uint64(len(zm.Zones)))
	return out
}

// Intersect returns the zones present in every set. A row can only match when
// each predicate column's zone covering it passed its own test.
func Intersect(sets ...*roaring.Bitmap) *roaring.Bitmap {
	if len(sets) == 0 {
		return roaring.New()
	}
	return roaring.FastAnd(sets...)
}

// PruneStats reports how much of a column's zone index survived pruning.
type PruneStats struct {
	Total     int `json:"total"`
	Surviving int `json:"surviving"`
}

// Pruned returns the number of zones skipped.
func (s PruneStats) Pruned() int { return s.Total - s.Surviving }

// PrunedRatio returns the fraction of zones skipped, 0 when there are none.
func (s PruneStats) PrunedRatio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Pruned()) / float64(s.Total)
}
