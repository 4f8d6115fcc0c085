package prices

import (
	"iter"

	"github.com/robinvdvleuten/ratebook/date"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

// Point is one dated price in a series.
type Point struct {
	Date  date.Date
	Price decimal.Decimal
}

// Series is the price history of one instrument, sorted ascending by date.
// A Series is never empty and never changes after Build returns it.
type Series struct {
	key    string
	points []Point
}

// Key returns the instrument key of the series.
func (s *Series) Key() string { return s.key }

// Len returns the number of points, duplicates included.
func (s *Series) Len() int { return len(s.points) }

// At returns the i-th point in date order.
func (s *Series) At(i int) Point { return s.points[i] }

// First returns the earliest point.
func (s *Series) First() Point { return s.points[0] }

// Last returns the latest point.
func (s *Series) Last() Point { return s.points[len(s.points)-1] }

// Points returns a copy of the points in date order.
func (s *Series) Points() []Point {
	return slices.Clone(s.points)
}

// All iterates over the points in date order.
func (s *Series) All() iter.Seq2[int, Point] {
	return func(yield func(int, Point) bool) {
		for i, p := range s.points {
			if !yield(i, p) {
				return
			}
		}
	}
}

// Lookup returns the price in effect on the given day: the last point dated on
// or before it. Prices are never interpolated. When several points share the
// day, the one that came last in the input wins.
//
// The second result is false when the day precedes the first point.
func (s *Series) Lookup(on date.Date) (Point, bool) {
	// cmp never reports equality, so the search lands on the first point
	// dated strictly after on.
	i, _ := slices.BinarySearchFunc(s.points, on, func(p Point, on date.Date) int {
		if p.Date.After(on) {
			return 1
		}
		return -1
	})
	if i == 0 {
		return Point{}, false
	}
	return s.points[i-1], true
}
