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

package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/binmap"
)

func testStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	opts = append([]Option{WithLogger(log)}, opts...)
	s, err := Open(filepath.Join(t.TempDir(), "binmap.db"), opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testGrid() *binmap.Grid {
	observed := time.Date(2019, 6, 3, 14, 22, 5, 0, time.UTC)
	g := binmap.NewGrid("rsrp", 5, binmap.Mean)
	for i, n := range []int{1, 3, 10} {
		k := binmap.PixelKey{Col: int64(i), Row: -int64(i), Size: 5}
		v := float64(i)
		g.Records[k] = binmap.Record{
			Samples:  n,
			Mean:     -100 + v,
			Variance: 2 * v,
			StdDev:   math.Sqrt(2 * v),
			Sum:      float64(n) * (-100 + v),
			Min:      -105 + v,
			Max:      -95 + v,
			Time:     observed,
		}
	}
	return g
}

type eventLog []binmap.Event

func (e *eventLog) Invalidate(ev binmap.Event) { *e = append(*e, ev) }

func TestMigrateTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "binmap.db")
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		s.Close()
	}
}

func TestPixels(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	g := testGrid()

	l := binmap.NewLayer(g, "/data/drive_test.csv", 1, binmap.WebMercatorSRID)
	if err := s.CreateLayer(ctx, l); err != nil {
		t.Fatal(err)
	}
	if l.ID == 0 {
		t.Fatal("layer id not set")
	}
	n, err := g.Flush(ctx, s.PixelSink(l.ID), 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("flushed pixels: have %d, want 3", n)
	}

	t.Run("round trip", func(t *testing.T) {
		have, err := s.Grid(ctx, l.ID, 0)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(g, have); diff != "" {
			t.Errorf("grid mismatch (-want +have):\n%s", diff)
		}
	})

	t.Run("minimum samples", func(t *testing.T) {
		have, err := s.Grid(ctx, l.ID, 3)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(g.Filter(3), have); diff != "" {
			t.Errorf("grid mismatch (-want +have):\n%s", diff)
		}
	})

	t.Run("NaN", func(t *testing.T) {
		k := binmap.PixelKey{Col: 7, Row: 7, Size: 5}
		err := s.WritePixels(ctx, l.ID, []binmap.Pixel{{Key: k, Record: binmap.Record{Samples: 1, Mean: 3, Variance: math.NaN()}}})
		if err != nil {
			t.Fatal(err)
		}
		have, err := s.Grid(ctx, l.ID, 0)
		if err != nil {
			t.Fatal(err)
		}
		r := have.Records[k]
		if r.Mean != 3 || !math.IsNaN(r.Variance) {
			t.Errorf("have mean %g and variance %g, want 3 and NaN", r.Mean, r.Variance)
		}
	})

	t.Run("replace", func(t *testing.T) {
		k := binmap.PixelKey{Col: 7, Row: 7, Size: 5}
		err := s.WritePixels(ctx, l.ID, []binmap.Pixel{{Key: k, Record: binmap.Record{Samples: 2, Mean: 4}}})
		if err != nil {
			t.Fatal(err)
		}
		have, err := s.Grid(ctx, l.ID, 0)
		if err != nil {
			t.Fatal(err)
		}
		if have.Len() != 4 {
			t.Errorf("pixels: have %d, want 4", have.Len())
		}
		if r := have.Records[k]; r.Samples != 2 || r.Mean != 4 {
			t.Errorf("have %+v, want replaced record", r)
		}
	})
}

func TestLayers(t *testing.T) {
	ctx := context.Background()
	var events eventLog
	s := testStore(t, WithInvalidator(&events))
	g := testGrid()

	a := binmap.NewLayer(g, "a.csv", 1, binmap.WebMercatorSRID)
	b := binmap.NewLayer(g, "b.csv", 2, binmap.WebMercatorSRID)
	b.Name = "rsrq"
	for _, l := range []*binmap.Layer{a, b} {
		if err := s.CreateLayer(ctx, l); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("list", func(t *testing.T) {
		layers, err := s.Layers(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(layers) != 2 {
			t.Fatalf("layers: have %d, want 2", len(layers))
		}
		have := layers[1]
		if have.Name != "rsrq" || have.MinimumSamples != 2 || have.Field != binmap.Mean ||
			have.Opacity != binmap.DefaultOpacity || !have.Created.Equal(b.Created) {
			t.Errorf("have %+v, want %+v", have, b)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.Layer(ctx, 99)
		if !errors.Is(err, binmap.ErrNotFound) {
			t.Errorf("have %v, want ErrNotFound", err)
		}
		if err := s.DeleteLayer(ctx, 99); !errors.Is(err, binmap.ErrNotFound) {
			t.Errorf("have %v, want ErrNotFound", err)
		}
		if err := s.SetLayerLegend(ctx, a.ID, 99); !errors.Is(err, binmap.ErrNotFound) {
			t.Errorf("have %v, want ErrNotFound", err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		l := binmap.NewLayer(g, "", 0, binmap.WebMercatorSRID)
		l.Opacity = 1.5
		if err := s.CreateLayer(ctx, l); !errors.Is(err, binmap.ErrInvalidOpacity) {
			t.Errorf("have %v, want ErrInvalidOpacity", err)
		}
	})

	t.Run("set legend", func(t *testing.T) {
		events = nil
		leg, err := binmap.NewLegend("rsrp Legend", -110, -90, binmap.Green, binmap.Red, 6, binmap.LinearScale)
		if err != nil {
			t.Fatal(err)
		}
		if _, err = s.SaveLegend(ctx, leg); err != nil {
			t.Fatal(err)
		}
		if err := s.SetLayerLegend(ctx, a.ID, leg.ID); err != nil {
			t.Fatal(err)
		}
		// Assigning the same legend again changes nothing.
		if err := s.SetLayerLegend(ctx, a.ID, leg.ID); err != nil {
			t.Fatal(err)
		}
		want := eventLog{{Kind: binmap.LayerLegendChanged, LayerID: a.ID, LegendID: leg.ID}}
		if diff := cmp.Diff(want, events); diff != "" {
			t.Errorf("events (-want +have):\n%s", diff)
		}
		have, err := s.Layer(ctx, a.ID)
		if err != nil {
			t.Fatal(err)
		}
		if have.LegendID != leg.ID {
			t.Errorf("legend id: have %d, want %d", have.LegendID, leg.ID)
		}
	})

	t.Run("delete", func(t *testing.T) {
		events = nil
		if _, err := g.Flush(ctx, s.PixelSink(b.ID), binmap.AggregateBatchSize); err != nil {
			t.Fatal(err)
		}
		if err := s.DeleteLayer(ctx, b.ID); err != nil {
			t.Fatal(err)
		}
		want := eventLog{{Kind: binmap.LayerRemoved, LayerID: b.ID}}
		if diff := cmp.Diff(want, events); diff != "" {
			t.Errorf("events (-want +have):\n%s", diff)
		}
		var n int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM pixels WHERE layer_id = ?`, b.ID).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("pixels remaining: have %d, want 0", n)
		}
		if _, err := s.Grid(ctx, b.ID, 0); !errors.Is(err, binmap.ErrNotFound) {
			t.Errorf("have %v, want ErrNotFound", err)
		}
	})
}

func TestLegends(t *testing.T) {
	ctx := context.Background()
	var events eventLog
	s := testStore(t, WithInvalidator(&events))

	l, err := binmap.NewLegend("diff Legend", -10, 15, binmap.Green, binmap.Red, 6, binmap.SignedSymmetric)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveLegend(ctx, l); err != nil {
		t.Fatal(err)
	}

	t.Run("get", func(t *testing.T) {
		have, err := s.Legend(ctx, l.ID)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(l, have); diff != "" {
			t.Errorf("legend mismatch (-want +have):\n%s", diff)
		}
		if _, err := s.LegendByName(ctx, "missing"); !errors.Is(err, binmap.ErrNotFound) {
			t.Errorf("have %v, want ErrNotFound", err)
		}
	})

	t.Run("name taken", func(t *testing.T) {
		other, err := binmap.NewLegend(l.Name, 0, 100, binmap.Red, binmap.Green, 4, binmap.LinearScale)
		if err != nil {
			t.Fatal(err)
		}
		have, err := s.SaveLegend(ctx, other)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(l, have); diff != "" {
			t.Errorf("legend mismatch (-want +have):\n%s", diff)
		}
	})

	t.Run("update", func(t *testing.T) {
		for _, test := range []struct {
			name   string
			change func(*binmap.Legend)
			events int
		}{
			{name: "bounds", change: func(l *binmap.Legend) { l.Min, l.Max = -20, 20 }, events: 1},
			{name: "color", change: func(l *binmap.Legend) { l.MaxColor = "0000ff" }, events: 1},
			{name: "bands", change: func(l *binmap.Legend) { l.BandCount = 10 }, events: 0},
			{name: "rename", change: func(l *binmap.Legend) { l.Name = "renamed" }, events: 0},
			{name: "none", change: func(l *binmap.Legend) {}, events: 0},
		} {
			t.Run(test.name, func(t *testing.T) {
				events = nil
				test.change(l)
				if err := s.UpdateLegend(ctx, l); err != nil {
					t.Fatal(err)
				}
				if len(events) != test.events {
					t.Errorf("events: have %d, want %d", len(events), test.events)
				}
				for _, e := range events {
					if e.Kind != binmap.LegendChanged || e.LegendID != l.ID {
						t.Errorf("have event %+v", e)
					}
				}
				have, err := s.Legend(ctx, l.ID)
				if err != nil {
					t.Fatal(err)
				}
				if diff := cmp.Diff(l, have); diff != "" {
					t.Errorf("legend mismatch (-want +have):\n%s", diff)
				}
			})
		}
	})

	t.Run("invalid update", func(t *testing.T) {
		bad := *l
		bad.Min = -1
		if err := s.UpdateLegend(ctx, &bad); !errors.Is(err, binmap.ErrAsymmetricLegend) {
			t.Errorf("have %v, want ErrAsymmetricLegend", err)
		}
	})
}
