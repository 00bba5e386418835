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

	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/binmap"
	"github.com/spatialmodel/binmap/internal/store"
)

// CompareLayers compares the layers with ids first and second and stores
// the result as a new layer with its own legend.
func CompareLayers(ctx context.Context, st *store.Store, first, second int64, opacity float64, opts binmap.CompareOptions) (*binmap.Layer, *binmap.Comparison, error) {
	a, err := st.Layer(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	ga, err := st.Grid(ctx, first, 0)
	if err != nil {
		return nil, nil, err
	}
	gb, err := st.Grid(ctx, second, 0)
	if err != nil {
		return nil, nil, err
	}
	// Layer names are not unique, and the legend is looked up by name.
	if opts.Name == "" {
		opts.Name = opts.Method.LayerName(fmt.Sprint(first), fmt.Sprint(second))
	}
	logger.WithFields(logrus.Fields{
		"first":       first,
		"second":      second,
		"method":      opts.Method,
		"min_samples": opts.MinimumSamples,
	}).Info("comparing layers")

	c, err := binmap.Compare(ga, gb, opts)
	if err != nil {
		return nil, nil, err
	}
	// Filled pixels have no samples, so the new layer has no minimum.
	l := binmap.NewLayer(c.Grid, fmt.Sprintf("layers %d, %d", first, second), 0, a.SRID)
	l.Opacity = opacity
	if err := st.CreateLayer(ctx, l); err != nil {
		return nil, nil, err
	}
	n, err := c.Grid.Flush(ctx, st.PixelSink(l.ID), binmap.CompareBatchSize)
	if err != nil {
		return nil, nil, err
	}
	leg, err := st.SaveLegend(ctx, c.Legend)
	if err != nil {
		return nil, nil, err
	}
	if err := st.SetLayerLegend(ctx, l.ID, leg.ID); err != nil {
		return nil, nil, err
	}
	l.LegendID = leg.ID
	c.Legend = leg
	logger.WithFields(logrus.Fields{
		"layer":  l.ID,
		"pixels": n,
		"filled": c.Filled,
		"legend": leg.String(),
	}).Infof("created layer %s", l)
	return l, c, nil
}
