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
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const testTolerance = 1.e-9

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func absDifferent(a, b float64) bool {
	return math.Abs(a-b) > testTolerance || math.IsNaN(a) || math.IsNaN(b)
}

func TestRunningStats(t *testing.T) {
	for _, test := range []struct {
		name   string
		values []float64
	}{
		{name: "simple", values: []float64{2, 4, 4, 4, 5, 5, 7, 9}},
		{name: "negative", values: []float64{-95.5, -101.25, -88, -110, -97}},
		{name: "large offset", values: []float64{1e9 + 4, 1e9 + 7, 1e9 + 13, 1e9 + 16}},
		{name: "identical", values: []float64{3, 3, 3}},
	} {
		t.Run(test.name, func(t *testing.T) {
			var r RunningStats
			for _, v := range test.values {
				r.Send(v)
			}
			if r.Count() != len(test.values) {
				t.Errorf("count: have %d, want %d", r.Count(), len(test.values))
			}
			mean, variance := stat.MeanVariance(test.values, nil)
			if different(r.Mean(), mean, testTolerance) {
				t.Errorf("mean: have %g, want %g", r.Mean(), mean)
			}
			if absDifferent(r.Variance(), variance) {
				t.Errorf("variance: have %g, want %g", r.Variance(), variance)
			}
			if absDifferent(r.StdDev(), math.Sqrt(variance)) {
				t.Errorf("stddev: have %g, want %g", r.StdDev(), math.Sqrt(variance))
			}
			if different(r.Sum(), floats.Sum(test.values), testTolerance) {
				t.Errorf("sum: have %g, want %g", r.Sum(), floats.Sum(test.values))
			}
			if r.Min() != floats.Min(test.values) || r.Max() != floats.Max(test.values) {
				t.Errorf("range: have [%g, %g], want [%g, %g]", r.Min(), r.Max(),
					floats.Min(test.values), floats.Max(test.values))
			}
		})
	}

	t.Run("large offset variance", func(t *testing.T) {
		var r RunningStats
		for _, v := range []float64{1e9 + 4, 1e9 + 7, 1e9 + 13, 1e9 + 16} {
			r.Send(v)
		}
		if absDifferent(r.Variance(), 30) {
			t.Errorf("have %g, want 30", r.Variance())
		}
	})

	t.Run("empty", func(t *testing.T) {
		var r RunningStats
		if r.Count() != 0 || r.Mean() != 0 || r.Variance() != 0 {
			t.Errorf("have count %d, mean %g, variance %g", r.Count(), r.Mean(), r.Variance())
		}
	})

	t.Run("single", func(t *testing.T) {
		var r RunningStats
		r.Send(-97)
		if r.Mean() != -97 || r.Variance() != 0 || r.StdDev() != 0 {
			t.Errorf("have mean %g, variance %g, stddev %g", r.Mean(), r.Variance(), r.StdDev())
		}
		if r.Min() != -97 || r.Max() != -97 || r.Sum() != -97 {
			t.Errorf("have min %g, max %g, sum %g", r.Min(), r.Max(), r.Sum())
		}
	})
}

func TestDecibelStats(t *testing.T) {
	t.Run("identical", func(t *testing.T) {
		var d DecibelStats
		for i := 0; i < 3; i++ {
			d.Send(-90)
		}
		if absDifferent(d.MeanDB(true), -90) {
			t.Errorf("mean: have %g, want -90", d.MeanDB(true))
		}
		if absDifferent(d.VarianceDB(false), 0) {
			t.Errorf("variance: have %g, want 0", d.VarianceDB(false))
		}
		if want := -90 + 10*math.Log10(3); absDifferent(d.Sum(), want) {
			t.Errorf("sum: have %g, want %g", d.Sum(), want)
		}
		if absDifferent(d.Min(), -90) || absDifferent(d.Max(), -90) {
			t.Errorf("range: have [%g, %g], want [-90, -90]", d.Min(), d.Max())
		}
	})

	t.Run("power domain", func(t *testing.T) {
		var d DecibelStats
		d.Send(10)
		d.Send(20)
		// 10 dB and 20 dB are powers of 10 and 100.
		if absDifferent(d.MeanDB(false), 55) {
			t.Errorf("linear mean: have %g, want 55", d.MeanDB(false))
		}
		if want := 10 * math.Log10(55); absDifferent(d.MeanDB(true), want) {
			t.Errorf("mean: have %g, want %g", d.MeanDB(true), want)
		}
		if absDifferent(d.VarianceDB(false), 4050) {
			t.Errorf("linear variance: have %g, want 4050", d.VarianceDB(false))
		}
		if want := 10 * math.Log10(4050); absDifferent(d.VarianceDB(true), want) {
			t.Errorf("variance: have %g, want %g", d.VarianceDB(true), want)
		}
		if want := 10 * math.Log10(math.Sqrt(4050)); absDifferent(d.StdDevDB(), want) {
			t.Errorf("stddev: have %g, want %g", d.StdDevDB(), want)
		}
		if d.Mean() != d.MeanDB(true) || d.StdDev() != d.StdDevDB() || d.Variance() != d.VarianceDB(false) {
			t.Error("Accumulator methods disagree with the dB methods")
		}
		if absDifferent(d.Min(), 10) || absDifferent(d.Max(), 20) {
			t.Errorf("range: have [%g, %g], want [10, 20]", d.Min(), d.Max())
		}
		// The mean power is dominated by the larger value.
		if d.Mean() <= 15 {
			t.Errorf("mean %g should be above the mean of the dB values", d.Mean())
		}
	})
}

func TestAccumulatorKind(t *testing.T) {
	for _, test := range []struct {
		kind AccumulatorKind
		name string
		want Accumulator
	}{
		{Linear, "linear", new(RunningStats)},
		{Decibel, "decibel", new(DecibelStats)},
	} {
		t.Run(test.name, func(t *testing.T) {
			if test.kind.String() != test.name {
				t.Errorf("have %q, want %q", test.kind, test.name)
			}
			f, err := NewAccumulatorFunc(test.kind)
			if err != nil {
				t.Fatal(err)
			}
			a, b := f(), f()
			a.Send(1)
			if b.Count() != 0 {
				t.Error("accumulators share state")
			}
			switch test.want.(type) {
			case *RunningStats:
				if _, ok := a.(*RunningStats); !ok {
					t.Errorf("have %T, want %T", a, test.want)
				}
			case *DecibelStats:
				if _, ok := a.(*DecibelStats); !ok {
					t.Errorf("have %T, want %T", a, test.want)
				}
			}
		})
	}
	if _, err := NewAccumulatorFunc(AccumulatorKind(7)); err == nil {
		t.Error("expected an error for an invalid kind")
	}
}
