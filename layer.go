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
	"path/filepath"
	"time"

	"github.com/ctessum/geom/proj"
)

// DefaultOpacity is the suggested opacity of new layers.
const DefaultOpacity = 0.75

// Layer describes a stored grid.
type Layer struct {
	ID     int64
	Name   string
	Source string

	// Opacity is the suggested display opacity, between 0 and 1.
	Opacity float64

	// Field is the field that is displayed.
	Field Field

	PixelSize      int
	MinimumSamples int

	// SRID is the spatial reference id of the pixel coordinates.
	SRID int

	// LegendID is the id of the legend used to display the layer,
	// or 0 if there isn't one.
	LegendID int64

	Created time.Time
}

// NewLayer returns a layer describing g.
func NewLayer(g *Grid, source string, minimumSamples, srid int) *Layer {
	return &Layer{
		Name:           g.Name,
		Source:         source,
		Opacity:        DefaultOpacity,
		Field:          g.Field,
		PixelSize:      g.PixelSize,
		MinimumSamples: minimumSamples,
		SRID:           srid,
	}
}

// Validate checks the layer settings.
func (l *Layer) Validate() error {
	if l.Opacity < 0 || l.Opacity > 1 || math.IsNaN(l.Opacity) {
		return fmt.Errorf("%w: %g", ErrInvalidOpacity, l.Opacity)
	}
	if l.PixelSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPixelSize, l.PixelSize)
	}
	if l.Field < Mean || l.Field > Percentage {
		return fmt.Errorf("%w: %d", ErrUnknownField, int(l.Field))
	}
	return nil
}

func (l *Layer) String() string {
	return fmt.Sprintf("%s[%s-%dm]", l.Name, l.Field, l.PixelSize)
}

// LegendName returns the name of the legend created automatically
// for the layer.
func (l *Layer) LegendName() string {
	return l.String() + " Legend"
}

// LayerInfo is a summary of a layer for map clients.
type LayerInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Source    string     `json:"source,omitempty"`
	Created   string     `json:"created_datetime"`
	Type      string     `json:"type"`
	Extent    [4]float64 `json:"extent"`
	Opacity   float64    `json:"opacity"`
	LegendID  int64      `json:"legend_id,omitempty"`
	CenterLon float64    `json:"centerlon"`
	CenterLat float64    `json:"centerlat"`
}

// Info summarizes layer l, whose data is g. toGeo transforms grid
// coordinates to longitude and latitude.
func (l *Layer) Info(g *Grid, toGeo proj.Transformer) (LayerInfo, error) {
	info := LayerInfo{
		ID:       fmt.Sprintf("binmap:raster:%d", l.ID),
		Name:     l.String(),
		Created:  l.Created.Format(time.RFC3339),
		Type:     "TileLayer-overlay",
		Opacity:  l.Opacity,
		LegendID: l.LegendID,
	}
	if l.Source != "" {
		info.Source = filepath.Base(l.Source)
	}
	c, err := g.Center()
	if err != nil {
		return info, err
	}
	if info.CenterLon, info.CenterLat, err = toGeo(c.X, c.Y); err != nil {
		return info, fmt.Errorf("binmap: transforming layer center: %v", err)
	}
	info.CenterLon = math.Round(info.CenterLon*1e6) / 1e6
	info.CenterLat = math.Round(info.CenterLat*1e6) / 1e6

	b := g.Extent()
	if info.Extent[0], info.Extent[1], err = toGeo(b.Min.X, b.Min.Y); err != nil {
		return info, fmt.Errorf("binmap: transforming layer extent: %v", err)
	}
	if info.Extent[2], info.Extent[3], err = toGeo(b.Max.X, b.Max.Y); err != nil {
		return info, fmt.Errorf("binmap: transforming layer extent: %v", err)
	}
	return info, nil
}
