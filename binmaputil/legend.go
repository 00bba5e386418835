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
	"strings"

	"github.com/spatialmodel/binmap"
	"github.com/spatialmodel/binmap/internal/store"
	"github.com/spatialmodel/binmap/internal/tilecache"
)

// LegendHTML returns the legend of a layer as an HTML fragment.
func LegendHTML(ctx context.Context, cache *tilecache.Cache, layerID int64, invert bool) (string, error) {
	src, err := cache.Source(ctx, layerID)
	if err != nil {
		return "", err
	}
	if src.Legend == nil {
		return "", fmt.Errorf("%w: layer %d has no legend", binmap.ErrNotFound, layerID)
	}
	return src.Legend.HTML(invert)
}

// LegendChanges holds changes to a legend. Zero values are left unchanged.
type LegendChanges struct {
	Min, Max           *float64
	MinColor, MaxColor string
	BandCount          int
	Scale              string
}

// UpdateLegend applies c to the legend with the given id.
func UpdateLegend(ctx context.Context, st *store.Store, id int64, c LegendChanges) (*binmap.Legend, error) {
	l, err := st.Legend(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Min != nil {
		l.Min = *c.Min
	}
	if c.Max != nil {
		l.Max = *c.Max
	}
	if c.MinColor != "" {
		l.MinColor = strings.ToLower(strings.TrimPrefix(c.MinColor, "#"))
	}
	if c.MaxColor != "" {
		l.MaxColor = strings.ToLower(strings.TrimPrefix(c.MaxColor, "#"))
	}
	if c.BandCount > 0 {
		l.BandCount = c.BandCount
	}
	if c.Scale != "" {
		if l.Scale, err = binmap.ParseScaleKind(c.Scale); err != nil {
			return nil, err
		}
	}
	if err := st.UpdateLegend(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}
