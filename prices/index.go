// Package prices indexes price observations into per-instrument time series.
//
// An instrument is identified by its key, SYMBOL/CURRENCY:PROVIDER (for
// example "EUR/USD:ECB", or "EUR/USD" without a provider). Each series is sorted
// by date and answers step-function lookups: the price on a day is the last
// price observed on or before that day.
//
// An Index is built once from a batch of observations and is read-only
// afterwards, so it can be shared between goroutines without locking. When the
// underlying records change, build a new Index.
package prices

import (
	"github.com/robinvdvleuten/ratebook/date"
	"golang.org/x/exp/slices"
)

// Index maps instrument keys to their price series.
type Index struct {
	series  map[string]*Series
	keys    []string // Sorted ascending
	dropped int
}

// Build groups the complete observations by instrument key and sorts each group
// by date. Incomplete observations are skipped and counted in Dropped. Points
// sharing a date keep their input order.
func Build(observations []Observation) *Index {
	idx := &Index{
		series: make(map[string]*Series),
	}

	for _, o := range observations {
		if !o.Complete() {
			idx.dropped++
			continue
		}

		key := o.Key()
		s, ok := idx.series[key]
		if !ok {
			s = &Series{key: key}
			idx.series[key] = s
			idx.keys = append(idx.keys, key)
		}
		s.points = append(s.points, Point{Date: o.Date, Price: o.Price.Decimal})
	}

	for _, s := range idx.series {
		slices.SortStableFunc(s.points, func(a, b Point) int {
			return a.Date.Compare(b.Date)
		})
	}
	slices.Sort(idx.keys)

	return idx
}

// Series returns the series for an instrument key.
func (idx *Index) Series(key string) (*Series, bool) {
	s, ok := idx.series[key]
	return s, ok
}

// Keys returns the instrument keys in ascending order.
func (idx *Index) Keys() []string {
	return slices.Clone(idx.keys)
}

// Len returns the number of series.
func (idx *Index) Len() int { return len(idx.keys) }

// Dropped returns how many observations were skipped for missing fields.
func (idx *Index) Dropped() int { return idx.dropped }

// Span returns the earliest and latest observation dates across all series.
// Both are zero when the index is empty.
func (idx *Index) Span() (from, to date.Date) {
	for _, s := range idx.series {
		if first := s.First().Date; from.IsZero() || first.Before(from) {
			from = first
		}
		if last := s.Last().Date; to.IsZero() || last.After(to) {
			to = last
		}
	}
	return from, to
}
