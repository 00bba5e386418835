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

package binmaputil

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/binmap"
	"github.com/spatialmodel/binmap/cloud"
	"github.com/spatialmodel/binmap/internal/store"
)

// InputOptions describe an input file and the layers created from it.
type InputOptions struct {
	// Input is a local path or blob URL.
	Input string

	// Name is the name of the new layer. If empty, the name is
	// derived from the input.
	Name string

	SRID      int
	PixelSize int
	Columns   binmap.CSVColumns
	NoHeaders bool
	Opacity   float64
}

// RasterizeOptions specify how observations are aggregated.
type RasterizeOptions struct {
	InputOptions
	MinimumSamples int
	Include        []int
	Decibels       bool
}

// Rasterize aggregates the observations in o.Input into a new layer
// with an automatically created legend.
func Rasterize(ctx context.Context, st *store.Store, sc binmap.SpatialConfig, o RasterizeOptions) (*binmap.Layer, error) {
	log := logger.WithField("input", o.Input)
	r, err := openCSV(ctx, o.InputOptions)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	modTime, err := cloud.ModTime(ctx, o.Input)
	if err != nil {
		return nil, err
	}
	indexer, err := sc.NewGridIndexer(o.SRID, o.PixelSize)
	if err != nil {
		return nil, err
	}
	kind := binmap.Linear
	if o.Decibels {
		kind = binmap.Decibel
	}
	p, err := binmap.NewPipeline(binmap.PipelineConfig{
		Name:           layerName(o.InputOptions, r.ValueNames[0]),
		MinimumSamples: o.MinimumSamples,
		Kind:           kind,
		Include:        o.Include,
		Time:           modTime,
	}, indexer, log)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"pixel_size":  o.PixelSize,
		"srid":        o.SRID,
		"value_index": o.Columns.Values[0],
		"accumulator": kind,
	}).Info("rasterizing")
	if _, err := p.Run(r); err != nil {
		return nil, err
	}
	return saveLayer(ctx, st, p.Finalize(), o.Input, o.MinimumSamples, sc.GridSRID, o.Opacity)
}

// Load reads pre-aggregated pixels from o.Input, creating one layer for
// each value column.
func Load(ctx context.Context, st *store.Store, sc binmap.SpatialConfig, o InputOptions) ([]*binmap.Layer, error) {
	log := logger.WithField("input", o.Input)
	r, err := openCSV(ctx, o)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	indexer, err := sc.NewGridIndexer(o.SRID, o.PixelSize)
	if err != nil {
		return nil, err
	}
	grids, _, err := binmap.LoadAggregated(r.CSVReader, indexer, time.Now(), log)
	if err != nil {
		return nil, err
	}
	var layers []*binmap.Layer
	for i, g := range grids {
		g.Name = layerName(o, r.ValueNames[i])
		if o.Name != "" && len(grids) > 1 {
			g.Name = fmt.Sprintf("%s (%s)", o.Name, r.ValueNames[i])
		}
		if g.Len() == 0 {
			log.WithField("layer", g.Name).Warn("no pixels, skipping layer")
			continue
		}
		l, err := saveLayer(ctx, st, g, o.Input, 1, sc.GridSRID, o.Opacity)
		if err != nil {
			return layers, err
		}
		layers = append(layers, l)
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: no pixels in %s", binmap.ErrNoData, o.Input)
	}
	return layers, nil
}

func openCSV(ctx context.Context, o InputOptions) (*csvFile, error) {
	in, err := cloud.OpenInput(ctx, o.Input)
	if err != nil {
		return nil, err
	}
	r, err := binmap.NewCSVReader(in, o.Columns, !o.NoHeaders)
	if err != nil {
		in.Close()
		return nil, err
	}
	return &csvFile{CSVReader: r, closer: in.Close}, nil
}

// csvFile is a CSV reader that owns its input.
type csvFile struct {
	*binmap.CSVReader
	closer func() error
}

func (f *csvFile) Close() error {
	err := f.CSVReader.Close()
	if err2 := f.closer(); err == nil {
		err = err2
	}
	return err
}

func layerName(o InputOptions, valueName string) string {
	if o.Name != "" {
		return o.Name
	}
	return fmt.Sprintf("%s (%s)", path.Base(o.Input), valueName)
}

// saveLayer stores g as a new layer and gives it a legend covering
// its distribution, with larger values in green.
func saveLayer(ctx context.Context, st *store.Store, g *binmap.Grid, source string, minSamples, srid int, opacity float64) (*binmap.Layer, error) {
	if g.Len() == 0 {
		return nil, fmt.Errorf("%w: layer %q has no pixels", binmap.ErrNoData, g.Name)
	}
	l := binmap.NewLayer(g, source, minSamples, srid)
	l.Opacity = opacity
	if err := st.CreateLayer(ctx, l); err != nil {
		return nil, err
	}
	n, err := g.Flush(ctx, st.PixelSink(l.ID), binmap.AggregateBatchSize)
	if err != nil {
		return nil, err
	}
	d, err := g.Distribution()
	if err != nil {
		return nil, err
	}
	leg, err := binmap.AutoLegend(l.LegendName(), d, true, binmap.LinearScale)
	if err != nil {
		return nil, err
	}
	if leg, err = st.SaveLegend(ctx, leg); err != nil {
		return nil, err
	}
	if err := st.SetLayerLegend(ctx, l.ID, leg.ID); err != nil {
		return nil, err
	}
	l.LegendID = leg.ID
	logger.WithFields(logrus.Fields{
		"layer":  l.ID,
		"pixels": n,
		"legend": leg.String(),
	}).Infof("created layer %s", l)
	return l, nil
}
