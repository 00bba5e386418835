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
)

// An Accumulator keeps running statistics of the values sent to it.
// The results of all methods other than Count are undefined until
// at least one value has been sent; zero is returned in that case.
type Accumulator interface {
	Send(v float64)
	Count() int
	Mean() float64
	Variance() float64
	StdDev() float64
	Sum() float64
	Min() float64
	Max() float64
}

// RunningStats calculates the running mean and sample variance of
// a stream of values in a single pass using Welford's method.
// The zero value is ready to use.
type RunningStats struct {
	count         int
	mean, s       float64
	sum, min, max float64
}

// Send adds v to the statistics.
func (r *RunningStats) Send(v float64) {
	r.count++
	if r.count == 1 {
		r.mean, r.s = v, 0
		r.sum, r.min, r.max = v, v, v
		return
	}
	delta := v - r.mean
	r.mean += delta / float64(r.count)
	r.s += delta * (v - r.mean)
	r.sum += v
	if v < r.min {
		r.min = v
	}
	if v > r.max {
		r.max = v
	}
}

// Count returns the number of values that have been sent.
func (r *RunningStats) Count() int { return r.count }

// Mean returns the arithmetic mean.
func (r *RunningStats) Mean() float64 { return r.mean }

// Variance returns the Bessel-corrected sample variance, which is zero
// when fewer than two values have been sent.
func (r *RunningStats) Variance() float64 {
	if r.count < 2 {
		return 0
	}
	return r.s / float64(r.count-1)
}

// StdDev returns the sample standard deviation.
func (r *RunningStats) StdDev() float64 { return math.Sqrt(r.Variance()) }

// Sum returns the sum of the values.
func (r *RunningStats) Sum() float64 { return r.sum }

// Min returns the smallest value.
func (r *RunningStats) Min() float64 { return r.min }

// Max returns the largest value.
func (r *RunningStats) Max() float64 { return r.max }

// DecibelStats keeps running statistics of values given in decibels.
// Each value v is converted to linear power 10^(v/10) before it is
// accumulated, so the mean is the mean power rather than the mean
// of the decibel values.
type DecibelStats struct {
	lin RunningStats
}

// Send adds v, in dB, to the statistics.
func (d *DecibelStats) Send(v float64) {
	d.lin.Send(math.Pow(10, v/10))
}

// Count returns the number of values that have been sent.
func (d *DecibelStats) Count() int { return d.lin.Count() }

// MeanDB returns the mean linear power, converted back to dB if asDB is true.
func (d *DecibelStats) MeanDB(asDB bool) float64 {
	if asDB {
		return toDB(d.lin.Mean())
	}
	return d.lin.Mean()
}

// VarianceDB returns the sample variance of the linear power, converted
// to dB if asDB is true.
func (d *DecibelStats) VarianceDB(asDB bool) float64 {
	if asDB {
		return toDB(d.lin.Variance())
	}
	return d.lin.Variance()
}

// StdDevDB returns 10*log10(sqrt(variance)) of the linear power.
// This is not a standard deviation in dB in any physical sense, but it
// is what historical layers were built with.
func (d *DecibelStats) StdDevDB() float64 {
	return toDB(math.Sqrt(d.lin.Variance()))
}

// Mean returns the mean power in dB.
func (d *DecibelStats) Mean() float64 { return d.MeanDB(true) }

// Variance returns the sample variance of the linear power.
func (d *DecibelStats) Variance() float64 { return d.VarianceDB(false) }

// StdDev returns StdDevDB.
func (d *DecibelStats) StdDev() float64 { return d.StdDevDB() }

// Sum returns the total power in dB.
func (d *DecibelStats) Sum() float64 { return toDB(d.lin.Sum()) }

// Min returns the smallest value in dB.
func (d *DecibelStats) Min() float64 { return toDB(d.lin.Min()) }

// Max returns the largest value in dB.
func (d *DecibelStats) Max() float64 { return toDB(d.lin.Max()) }

func toDB(x float64) float64 { return 10 * math.Log10(x) }

// AccumulatorKind specifies how values are accumulated.
type AccumulatorKind int

// These are the accumulator kinds.
const (
	Linear AccumulatorKind = iota
	Decibel
)

var accumulatorKinds = map[AccumulatorKind]struct {
	name  string
	newFn func() Accumulator
}{
	Linear:  {"linear", func() Accumulator { return new(RunningStats) }},
	Decibel: {"decibel", func() Accumulator { return new(DecibelStats) }},
}

func (k AccumulatorKind) String() string {
	if a, ok := accumulatorKinds[k]; ok {
		return a.name
	}
	return fmt.Sprintf("AccumulatorKind(%d)", int(k))
}

// NewAccumulatorFunc returns a function that creates empty accumulators
// of the given kind.
func NewAccumulatorFunc(k AccumulatorKind) (func() Accumulator, error) {
	a, ok := accumulatorKinds[k]
	if !ok {
		return nil, fmt.Errorf("binmap: invalid accumulator kind %d", int(k))
	}
	return a.newFn, nil
}
