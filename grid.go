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
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Field is a statistic stored for each pixel. A layer displays
// one of them.
type Field int

// These are the available fields.
const (
	Mean Field = iota
	Variance
	StdDev
	Sum
	Maximum
	Minimum
	Difference
	Percentage
)

var fieldNames = []string{"mean", "variance", "stddev", "sum", "maximum",
	"minimum", "difference", "percentage"}

func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// ParseField returns the field with the given name.
func ParseField(name string) (Field, error) {
	for i, n := range fieldNames {
		if strings.EqualFold(n, name) {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Record holds the statistics of one pixel.
type Record struct {
	Samples    int
	Mean       float64
	Variance   float64
	StdDev     float64
	Sum        float64
	Min        float64
	Max        float64
	Difference float64
	Percentage float64

	// Time is the time the underlying data was collected, if known.
	Time time.Time
}

// NewRecord returns the finalized statistics held by a.
func NewRecord(a Accumulator) Record {
	return Record{
		Samples:  a.Count(),
		Mean:     a.Mean(),
		Variance: a.Variance(),
		StdDev:   a.StdDev(),
		Sum:      a.Sum(),
		Min:      a.Min(),
		Max:      a.Max(),
	}
}

// Value returns the value of field f.
func (r Record) Value(f Field) float64 {
	switch f {
	case Mean:
		return r.Mean
	case Variance:
		return r.Variance
	case StdDev:
		return r.StdDev
	case Sum:
		return r.Sum
	case Maximum:
		return r.Max
	case Minimum:
		return r.Min
	case Difference:
		return r.Difference
	case Percentage:
		return r.Percentage
	default:
		panic(fmt.Errorf("binmap: invalid field %d", int(f)))
	}
}

// set sets the value of field f to v.
func (r *Record) set(f Field, v float64) {
	switch f {
	case Mean:
		r.Mean = v
	case Variance:
		r.Variance = v
	case StdDev:
		r.StdDev = v
	case Sum:
		r.Sum = v
	case Maximum:
		r.Max = v
	case Minimum:
		r.Min = v
	case Difference:
		r.Difference = v
	case Percentage:
		r.Percentage = v
	default:
		panic(fmt.Errorf("binmap: invalid field %d", int(f)))
	}
}

// Pixel is a record together with its location.
type Pixel struct {
	Key PixelKey
	Record
}

// Grid holds aggregated records for a regular grid of pixels.
// A Grid is not modified after it has been finalized.
type Grid struct {
	Name      string
	PixelSize int

	// Field is the field that is displayed and compared.
	Field Field

	Records map[PixelKey]Record
}

// NewGrid returns an empty grid.
func NewGrid(name string, pixelSize int, field Field) *Grid {
	return &Grid{
		Name:      name,
		PixelSize: pixelSize,
		Field:     field,
		Records:   make(map[PixelKey]Record),
	}
}

// Len returns the number of pixels in the grid.
func (g *Grid) Len() int { return len(g.Records) }

// Keys returns the pixel keys in row-major order.
func (g *Grid) Keys() []PixelKey {
	keys := make([]PixelKey, 0, len(g.Records))
	for k := range g.Records {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

// Pixels returns the pixels in row-major order.
func (g *Grid) Pixels() []Pixel {
	keys := g.Keys()
	o := make([]Pixel, len(keys))
	for i, k := range keys {
		o[i] = Pixel{Key: k, Record: g.Records[k]}
	}
	return o
}

// Filter returns a copy of the grid holding only the pixels with
// at least minSamples samples.
func (g *Grid) Filter(minSamples int) *Grid {
	o := NewGrid(g.Name, g.PixelSize, g.Field)
	for k, r := range g.Records {
		if r.Samples >= minSamples {
			o.Records[k] = r
		}
	}
	return o
}

// Values returns the displayed field of every pixel, in row-major order.
func (g *Grid) Values() []float64 {
	keys := g.Keys()
	v := make([]float64, len(keys))
	for i, k := range keys {
		v[i] = g.Records[k].Value(g.Field)
	}
	return v
}

// Distribution summarizes a set of values.
type Distribution struct {
	Count        int
	Mean, StdDev float64
	Min, Max     float64
}

// Distribution returns the distribution of the displayed field.
// StdDev is the population standard deviation.
func (g *Grid) Distribution() (Distribution, error) {
	v := g.Values()
	if len(v) == 0 {
		return Distribution{}, fmt.Errorf("%w: grid %q is empty", ErrNoData, g.Name)
	}
	mean, std := stat.PopMeanStdDev(v, nil)
	return Distribution{
		Count:  len(v),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(v),
		Max:    floats.Max(v),
	}, nil
}

// Summary holds percentiles of the displayed field.
type Summary struct {
	P50, P67, P90 float64
}

// Summary returns percentiles of the displayed field.
func (g *Grid) Summary() (Summary, error) {
	v := g.Values()
	if len(v) == 0 {
		return Summary{}, fmt.Errorf("%w: grid %q is empty", ErrNoData, g.Name)
	}
	var s Summary
	var err error
	if s.P50, err = stats.Median(v); err != nil {
		return s, fmt.Errorf("binmap: calculating median: %v", err)
	}
	if s.P67, err = stats.Percentile(v, 67); err != nil {
		return s, fmt.Errorf("binmap: calculating percentile: %v", err)
	}
	if s.P90, err = stats.Percentile(v, 90); err != nil {
		return s, fmt.Errorf("binmap: calculating percentile: %v", err)
	}
	return s, nil
}

// Extent returns the bounds of all pixels in the grid.
func (g *Grid) Extent() *geom.Bounds {
	b := geom.NewBounds()
	for k := range g.Records {
		b.Extend(k.Polygon().Bounds())
	}
	return b
}

// Center returns the mean location of the lower-left corners of the
// pixels in the grid.
func (g *Grid) Center() (geom.Point, error) {
	if len(g.Records) == 0 {
		return geom.Point{}, fmt.Errorf("%w: grid %q is empty", ErrNoData, g.Name)
	}
	var x, y RunningStats
	for k := range g.Records {
		p := k.Point()
		x.Send(p.X)
		y.Send(p.Y)
	}
	return geom.Point{X: x.Mean(), Y: y.Mean()}, nil
}

// WriteShapefile writes the grid cells and their statistics to
// a shapefile at path.
func (g *Grid) WriteShapefile(path string) error {
	path = strings.TrimSuffix(path, ".shp")
	for _, ext := range []string{".shp", ".prj", ".dbf", ".shx"} {
		os.Remove(path + ext)
	}
	fields := []goshp.Field{
		goshp.NumberField("samples", 10),
		goshp.FloatField("mean", 24, 6),
		goshp.FloatField("variance", 24, 6),
		goshp.FloatField("stddev", 24, 6),
		goshp.FloatField("sum", 24, 6),
		goshp.FloatField("minimum", 24, 6),
		goshp.FloatField("maximum", 24, 6),
		goshp.FloatField("difference", 24, 6),
		goshp.FloatField("percentage", 24, 6),
	}
	e, err := shp.NewEncoderFromFields(path+".shp", goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("binmap: creating shapefile: %v", err)
	}
	for _, p := range g.Pixels() {
		r := p.Record
		err = e.EncodeFields(p.Key.Polygon(), r.Samples, r.Mean, r.Variance,
			r.StdDev, r.Sum, r.Min, r.Max, r.Difference, r.Percentage)
		if err != nil {
			e.Close()
			return fmt.Errorf("binmap: writing shapefile: %v", err)
		}
	}
	e.Close()
	return nil
}
