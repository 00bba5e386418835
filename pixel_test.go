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
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/ctessum/geom"
)

func TestSnap(t *testing.T) {
	for _, test := range []struct {
		p    geom.Point
		size int
		want PixelKey
	}{
		{p: geom.Point{X: 0, Y: 0}, size: 5, want: PixelKey{0, 0, 5}},
		{p: geom.Point{X: 4.999, Y: 5}, size: 5, want: PixelKey{0, 1, 5}},
		{p: geom.Point{X: -0.001, Y: -5}, size: 5, want: PixelKey{-1, -1, 5}},
		{p: geom.Point{X: -5.001, Y: 12}, size: 5, want: PixelKey{-2, 2, 5}},
		{p: geom.Point{X: -13358.3, Y: 6710000}, size: 100, want: PixelKey{-134, 67100, 100}},
	} {
		t.Run(test.want.String(), func(t *testing.T) {
			have := Snap(test.p, test.size)
			if have != test.want {
				t.Errorf("have %+v, want %+v", have, test.want)
			}
			// The snapped cell contains the point.
			b := have.Polygon().Bounds()
			if test.p.X < b.Min.X || test.p.X >= b.Max.X || test.p.Y < b.Min.Y || test.p.Y >= b.Max.Y {
				t.Errorf("cell %v does not contain %v", b, test.p)
			}
		})
	}
}

func TestSnapValue(t *testing.T) {
	for _, test := range []struct {
		x, want float64
	}{
		{x: 7, want: 5},
		{x: 5, want: 5},
		{x: 0, want: 0},
		{x: -1, want: -5},
		{x: -5, want: -5},
		{x: -7.5, want: -10},
	} {
		if have := SnapValue(test.x, 5); have != test.want {
			t.Errorf("SnapValue(%g): have %g, want %g", test.x, have, test.want)
		}
	}
	if have := floorMod(-7, 5); have != 3 {
		t.Errorf("floorMod(-7, 5): have %g, want 3", have)
	}
	if have := floorMod(7, -5); have != -3 {
		t.Errorf("floorMod(7, -5): have %g, want -3", have)
	}
}

func TestPixelKey(t *testing.T) {
	k := PixelKey{Col: -2, Row: 3, Size: 10}
	if have, want := k.Point(), (geom.Point{X: -20, Y: 30}); have != want {
		t.Errorf("point: have %v, want %v", have, want)
	}
	want := geom.Polygon{{{X: -20, Y: 30}, {X: -10, Y: 30}, {X: -10, Y: 40}, {X: -20, Y: 40}, {X: -20, Y: 30}}}
	if have := k.Polygon(); !reflect.DeepEqual(have, want) {
		t.Errorf("polygon: have %v, want %v", have, want)
	}
	if have := k.Polygon().Area(); have != 100 {
		t.Errorf("area: have %g, want 100", have)
	}
	if have, want := k.String(), "(-20, 30)@10m"; have != want {
		t.Errorf("string: have %q, want %q", have, want)
	}
	if !k.less(PixelKey{Col: -3, Row: 4, Size: 10}) || !k.less(PixelKey{Col: -1, Row: 3, Size: 10}) {
		t.Error("keys should be ordered by row and then column")
	}
}

func TestGridIndexer(t *testing.T) {
	sc := DefaultSpatialConfig()

	t.Run("geographic", func(t *testing.T) {
		g, err := sc.NewGridIndexer(WGS84SRID, 100)
		if err != nil {
			t.Fatal(err)
		}
		if g.PixelSize() != 100 {
			t.Errorf("pixel size: have %d, want 100", g.PixelSize())
		}
		const r = 6378137.
		lon, lat := -0.12, 51.51
		x := r * lon * math.Pi / 180
		y := r * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
		want := Snap(geom.Point{X: x, Y: y}, 100)
		have, err := g.Index(lon, lat)
		if err != nil {
			t.Fatal(err)
		}
		if have != want {
			t.Errorf("have %+v, want %+v", have, want)
		}
		origin, err := g.Index(0, 0)
		if err != nil {
			t.Fatal(err)
		}
		if origin != (PixelKey{0, 0, 100}) {
			t.Errorf("origin: have %+v", origin)
		}
	})

	t.Run("planar", func(t *testing.T) {
		g, err := sc.NewGridIndexer(WebMercatorSRID, 100)
		if err != nil {
			t.Fatal(err)
		}
		have, err := g.Index(150, -250)
		if err != nil {
			t.Fatal(err)
		}
		if want := (PixelKey{1, -3, 100}); have != want {
			t.Errorf("have %+v, want %+v", have, want)
		}
	})

	t.Run("unprojectable", func(t *testing.T) {
		g, err := sc.NewGridIndexer(WGS84SRID, 100)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := g.Index(math.NaN(), 10); err == nil {
			t.Error("expected an error for a NaN coordinate")
		}
	})

	t.Run("errors", func(t *testing.T) {
		src, err := sc.SR(WGS84SRID)
		if err != nil {
			t.Fatal(err)
		}
		dst, err := sc.SR(WebMercatorSRID)
		if err != nil {
			t.Fatal(err)
		}
		for _, test := range []struct {
			name    string
			indexer func() (*GridIndexer, error)
			want    error
		}{
			{
				name:    "zero size",
				indexer: func() (*GridIndexer, error) { return NewGridIndexer(src, dst, 0) },
				want:    ErrInvalidPixelSize,
			},
			{
				name:    "negative size",
				indexer: func() (*GridIndexer, error) { return NewGridIndexer(src, dst, -5) },
				want:    ErrInvalidPixelSize,
			},
			{
				name:    "geographic grid",
				indexer: func() (*GridIndexer, error) { return NewGridIndexer(dst, src, 5) },
				want:    ErrGeographicGrid,
			},
			{
				name:    "unknown srid",
				indexer: func() (*GridIndexer, error) { return sc.NewGridIndexer(9999, 5) },
				want:    ErrUnknownSRID,
			},
		} {
			t.Run(test.name, func(t *testing.T) {
				_, err := test.indexer()
				if !errors.Is(err, test.want) {
					t.Errorf("have %v, want %v", err, test.want)
				}
				if Kind(err) != KindConfig {
					t.Errorf("kind: have %v, want %v", Kind(err), KindConfig)
				}
			})
		}
	})
}

func TestToGeographic(t *testing.T) {
	tr, err := DefaultSpatialConfig().ToGeographic()
	if err != nil {
		t.Fatal(err)
	}
	const r = 6378137.
	lon, lat, err := tr(r*10*math.Pi/180, 0)
	if err != nil {
		t.Fatal(err)
	}
	if absDifferent(lon, 10) || math.Abs(lat) > 1e-9 {
		t.Errorf("have (%g, %g), want (10, 0)", lon, lat)
	}
}
