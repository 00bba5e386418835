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
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func identity(x, y float64) (float64, float64, error) { return x, y, nil }

func TestLayer(t *testing.T) {
	g := testGrid()
	l := NewLayer(g, "/data/drive/2019-06-03.csv", 3, WebMercatorSRID)
	if err := l.Validate(); err != nil {
		t.Fatal(err)
	}
	if l.Opacity != DefaultOpacity || l.PixelSize != 10 || l.Field != Mean || l.MinimumSamples != 3 {
		t.Errorf("have %+v", l)
	}
	if have, want := l.String(), "test[mean-10m]"; have != want {
		t.Errorf("have %q, want %q", have, want)
	}
	if have, want := l.LegendName(), "test[mean-10m] Legend"; have != want {
		t.Errorf("have %q, want %q", have, want)
	}

	for _, test := range []struct {
		name   string
		modify func(*Layer)
		want   error
	}{
		{name: "opacity high", modify: func(l *Layer) { l.Opacity = 1.5 }, want: ErrInvalidOpacity},
		{name: "opacity negative", modify: func(l *Layer) { l.Opacity = -0.1 }, want: ErrInvalidOpacity},
		{name: "opacity NaN", modify: func(l *Layer) { l.Opacity = math.NaN() }, want: ErrInvalidOpacity},
		{name: "pixel size", modify: func(l *Layer) { l.PixelSize = 0 }, want: ErrInvalidPixelSize},
		{name: "field", modify: func(l *Layer) { l.Field = Percentage + 1 }, want: ErrUnknownField},
		{name: "valid", modify: func(l *Layer) { l.Opacity = 1 }},
	} {
		t.Run(test.name, func(t *testing.T) {
			c := *l
			test.modify(&c)
			if err := c.Validate(); !errors.Is(err, test.want) {
				t.Errorf("have %v, want %v", err, test.want)
			}
		})
	}
}

func TestLayerInfo(t *testing.T) {
	g := testGrid()
	l := NewLayer(g, "/data/drive.csv", 1, WebMercatorSRID)
	l.ID = 7
	l.LegendID = 2
	l.Created = time.Date(2019, 6, 3, 12, 0, 0, 0, time.UTC)

	t.Run("identity", func(t *testing.T) {
		info, err := l.Info(g, identity)
		if err != nil {
			t.Fatal(err)
		}
		want := LayerInfo{
			ID:        "binmap:raster:7",
			Name:      "test[mean-10m]",
			Source:    "drive.csv",
			Created:   "2019-06-03T12:00:00Z",
			Type:      "TileLayer-overlay",
			Extent:    [4]float64{-10, 0, 20, 20},
			Opacity:   DefaultOpacity,
			LegendID:  2,
			CenterLon: 0,
			CenterLat: 5,
		}
		if info != want {
			t.Errorf("have %+v, want %+v", info, want)
		}
		b, err := json.Marshal(info)
		if err != nil {
			t.Fatal(err)
		}
		var m map[string]interface{}
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatal(err)
		}
		for _, key := range []string{"id", "created_datetime", "centerlon", "centerlat", "extent"} {
			if _, ok := m[key]; !ok {
				t.Errorf("missing key %q in %s", key, b)
			}
		}
	})

	t.Run("geographic", func(t *testing.T) {
		toGeo, err := DefaultSpatialConfig().ToGeographic()
		if err != nil {
			t.Fatal(err)
		}
		info, err := l.Info(g, toGeo)
		if err != nil {
			t.Fatal(err)
		}
		// 10 m cells near the origin are a tiny fraction of a degree.
		if math.Abs(info.CenterLon) > 1e-3 || math.Abs(info.CenterLat) > 1e-3 {
			t.Errorf("center: have (%g, %g)", info.CenterLon, info.CenterLat)
		}
		if !(info.Extent[0] < info.Extent[2] && info.Extent[1] < info.Extent[3]) {
			t.Errorf("extent: have %v", info.Extent)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := l.Info(NewGrid("empty", 10, Mean), identity); !errors.Is(err, ErrNoData) {
			t.Errorf("have %v, want %v", err, ErrNoData)
		}
	})
}
