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

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// Spatial reference ids of the two supported coordinate systems.
const (
	WGS84SRID       = 4326
	WebMercatorSRID = 3857
)

// SpatialConfig holds the spatial reference systems that are available
// for input data and grids.
type SpatialConfig struct {
	// Projections maps spatial reference ids to proj4 strings.
	Projections map[int]string

	// GeographicSRID is the id of the longitude/latitude system.
	GeographicSRID int

	// GridSRID is the id of the planar system, in meters, that grids
	// are built in.
	GridSRID int
}

// DefaultSpatialConfig returns a configuration where inputs are given in
// WGS84 longitude and latitude and grids are built in web mercator.
func DefaultSpatialConfig() SpatialConfig {
	return SpatialConfig{
		Projections: map[int]string{
			WGS84SRID:       "+proj=longlat +datum=WGS84 +no_defs",
			WebMercatorSRID: "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +wktext +no_defs",
		},
		GeographicSRID: WGS84SRID,
		GridSRID:       WebMercatorSRID,
	}
}

// SR returns the spatial reference with the given id.
func (c SpatialConfig) SR(srid int) (*proj.SR, error) {
	s, ok := c.Projections[srid]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSRID, srid)
	}
	sr, err := proj.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("binmap: parsing projection for srid %d: %v", srid, err)
	}
	return sr, nil
}

// NewGridIndexer returns an indexer for points given in the srcSRID system.
func (c SpatialConfig) NewGridIndexer(srcSRID, pixelSize int) (*GridIndexer, error) {
	src, err := c.SR(srcSRID)
	if err != nil {
		return nil, err
	}
	dst, err := c.SR(c.GridSRID)
	if err != nil {
		return nil, err
	}
	return NewGridIndexer(src, dst, pixelSize)
}

// ToGeographic returns a function that transforms points in the grid
// system to longitude and latitude.
func (c SpatialConfig) ToGeographic() (proj.Transformer, error) {
	src, err := c.SR(c.GridSRID)
	if err != nil {
		return nil, err
	}
	dst, err := c.SR(c.GeographicSRID)
	if err != nil {
		return nil, err
	}
	return src.NewTransform(dst)
}

// PixelKey identifies a grid cell by its integer column and row
// and the pixel size of the grid it belongs to.
type PixelKey struct {
	Col, Row int64
	Size     int
}

// Snap returns the key of the cell of size size that contains p.
// p must be in planar coordinates.
func Snap(p geom.Point, size int) PixelKey {
	s := float64(size)
	return PixelKey{
		Col:  int64(math.Floor(p.X / s)),
		Row:  int64(math.Floor(p.Y / s)),
		Size: size,
	}
}

// SnapValue rounds x down to the nearest multiple of size.
func SnapValue(x float64, size int) float64 {
	return x - floorMod(x, float64(size))
}

// floorMod returns x modulo m with the sign of m.
func floorMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r != 0 && (r < 0) != (m < 0) {
		r += m
	}
	return r
}

// Point returns the lower-left corner of the cell.
func (k PixelKey) Point() geom.Point {
	s := float64(k.Size)
	return geom.Point{X: float64(k.Col) * s, Y: float64(k.Row) * s}
}

// Polygon returns the outline of the cell.
func (k PixelKey) Polygon() geom.Polygon {
	p := k.Point()
	s := float64(k.Size)
	return geom.Polygon{{
		{X: p.X, Y: p.Y},
		{X: p.X + s, Y: p.Y},
		{X: p.X + s, Y: p.Y + s},
		{X: p.X, Y: p.Y + s},
		{X: p.X, Y: p.Y},
	}}
}

func (k PixelKey) String() string {
	p := k.Point()
	return fmt.Sprintf("(%g, %g)@%dm", p.X, p.Y, k.Size)
}

// less orders keys by row and then by column.
func (k PixelKey) less(o PixelKey) bool {
	if k.Row != o.Row {
		return k.Row < o.Row
	}
	return k.Col < o.Col
}

// GridIndexer maps points to the cells of a planar grid.
type GridIndexer struct {
	transform proj.Transformer
	size      int
}

// NewGridIndexer returns a GridIndexer for points in the src spatial
// reference. Points are transformed to dst before they are snapped to
// a grid with square cells of edge length size.
func NewGridIndexer(src, dst *proj.SR, size int) (*GridIndexer, error) {
	if size <= 0 {
		return nil, ErrInvalidPixelSize
	}
	if dst.Name == "longlat" {
		return nil, ErrGeographicGrid
	}
	t, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("binmap: creating grid transform: %v", err)
	}
	return &GridIndexer{transform: t, size: size}, nil
}

// PixelSize returns the edge length of the grid cells.
func (g *GridIndexer) PixelSize() int { return g.size }

// Index returns the key of the cell containing the point (x, y), where
// the coordinates are in the source spatial reference.
func (g *GridIndexer) Index(x, y float64) (PixelKey, error) {
	px, py, err := g.transform(x, y)
	if err != nil {
		return PixelKey{}, err
	}
	if math.IsNaN(px) || math.IsNaN(py) || math.IsInf(px, 0) || math.IsInf(py, 0) {
		return PixelKey{}, fmt.Errorf("binmap: point (%g, %g) cannot be projected", x, y)
	}
	return Snap(geom.Point{X: px, Y: py}, g.size), nil
}
