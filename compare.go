/*
Copyright © 2024 the BinMap authors.
This file is part of BinMap.

BinMap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

BinMap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with BinMap.  If not, see <http://www.gnu.org/licenses/>.
*/

package binmap

import (
	"fmt"
	"math"
	"strings"
)

// CompareMethod specifies how two grids are compared.
type CompareMethod int

// These are the comparison methods.
const (
	// CompareDiff subtracts the second grid from the first.
	CompareDiff CompareMethod = iota

	// CompareAbsDiff is the absolute value of CompareDiff.
	CompareAbsDiff

	// ComparePercentage gives the sample count of the second grid
	// as a percentage of the sample count of the first.
	ComparePercentage
)

type compareMethod struct {
	name  string
	title string
	field Field
	scale ScaleKind
}

var compareMethods = map[CompareMethod]compareMethod{
	CompareDiff:       {"diff", "Diff", Difference, SignedSymmetric},
	CompareAbsDiff:    {"absdiff", "Diff", Difference, SignedSymmetric},
	ComparePercentage: {"percentage", "Percentage", Percentage, LinearScale},
}

func (m CompareMethod) String() string {
	if c, ok := compareMethods[m]; ok {
		return c.name
	}
	return fmt.Sprintf("CompareMethod(%d)", int(m))
}

// LayerName returns the default name of a layer comparing first
// with second.
func (m CompareMethod) LayerName(first, second string) string {
	return fmt.Sprintf("%s Layer (%s - %s)", compareMethods[m].title, first, second)
}

// ParseCompareMethod returns the method with the given name.
func ParseCompareMethod(name string) (CompareMethod, error) {
	for m, c := range compareMethods {
		if strings.EqualFold(c.name, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, name)
}

// ValueFilter restricts the pixels of the first grid that take part
// in a comparison. At most one bound may be set.
type ValueFilter struct {
	GTE, LTE *float64
}

func (f ValueFilter) match(v float64) bool {
	if f.GTE != nil && v < *f.GTE {
		return false
	}
	if f.LTE != nil && v > *f.LTE {
		return false
	}
	return true
}

// CompareOptions holds the parameters of a comparison.
type CompareOptions struct {
	// Name is the name of the resulting grid. A name is generated
	// if it is empty.
	Name string

	MinimumSamples int
	Method         CompareMethod

	// FillValue, if not nil, is given to pixels of the first grid
	// that have no counterpart in the second.
	FillValue *float64

	Filter ValueFilter
}

// Comparison is the result of comparing two grids.
type Comparison struct {
	Grid   *Grid
	Legend *Legend

	// Filled is the number of pixels that were given the fill value.
	Filled int
}

// Compare compares grids a and b. Pixels are matched by key and the
// displayed field of a is used for both grids. The pixel sizes of the grids
// must match.
func Compare(a, b *Grid, opts CompareOptions) (*Comparison, error) {
	if a.PixelSize != b.PixelSize {
		return nil, fmt.Errorf("%w: %d != %d", ErrPixelSizeMismatch, a.PixelSize, b.PixelSize)
	}
	if opts.Filter.GTE != nil && opts.Filter.LTE != nil {
		return nil, ErrConflictingFilters
	}
	m, ok := compareMethods[opts.Method]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMethod, int(opts.Method))
	}
	name := opts.Name
	if name == "" {
		name = opts.Method.LayerName(a.Name, b.Name)
	}
	f := a.Field

	first := make(map[PixelKey]Record)
	for k, r := range a.Records {
		if r.Samples >= opts.MinimumSamples && opts.Filter.match(r.Value(f)) {
			first[k] = r
		}
	}

	out := NewGrid(name, a.PixelSize, m.field)
	for k, rb := range b.Records {
		if rb.Samples < opts.MinimumSamples {
			continue
		}
		ra, ok := first[k]
		if !ok {
			continue
		}
		var v float64
		switch opts.Method {
		case CompareDiff:
			v = ra.Value(f) - rb.Value(f)
		case CompareAbsDiff:
			v = math.Abs(ra.Value(f) - rb.Value(f))
		case ComparePercentage:
			if ra.Samples == 0 {
				continue
			}
			v = math.Round(float64(rb.Samples)/float64(ra.Samples)*100*100) / 100
		}
		r := Record{Samples: rb.Samples, Time: rb.Time}
		r.set(m.field, v)
		out.Records[k] = r
	}

	var filled int
	if opts.FillValue != nil {
		for k := range first {
			if _, ok := out.Records[k]; ok {
				continue
			}
			var r Record
			r.set(m.field, *opts.FillValue)
			out.Records[k] = r
			filled++
		}
	}

	if out.Len() == 0 {
		return nil, fmt.Errorf("%w: %s and %s", ErrNoOverlappingData, a.Name, b.Name)
	}
	d, err := out.Distribution()
	if err != nil {
		return nil, err
	}
	l, err := AutoLegend(name+" Legend", d, false, m.scale)
	if err != nil {
		return nil, err
	}
	return &Comparison{Grid: out, Legend: l, Filled: filled}, nil
}
