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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/spatialmodel/binmap"
	"github.com/spatialmodel/binmap/internal/store"
	"github.com/spatialmodel/binmap/internal/tilecache"
)

// SpatialConfig returns the spatial reference systems specified in cfg.
func SpatialConfig(cfg *viper.Viper) (binmap.SpatialConfig, error) {
	sc := binmap.DefaultSpatialConfig()
	var err error
	if sc.GridSRID, err = cast.ToIntE(cfg.Get("Spatial.GridSRID")); err != nil {
		return sc, fmt.Errorf("binmap: Spatial.GridSRID: %v", err)
	}
	if sc.GeographicSRID, err = cast.ToIntE(cfg.Get("Spatial.GeographicSRID")); err != nil {
		return sc, fmt.Errorf("binmap: Spatial.GeographicSRID: %v", err)
	}
	projections, err := cast.ToStringMapStringE(cfg.Get("Spatial.Projections"))
	if err != nil {
		return sc, fmt.Errorf("binmap: Spatial.Projections: %v", err)
	}
	for id, def := range projections {
		srid, err := cast.ToIntE(id)
		if err != nil {
			return sc, fmt.Errorf("binmap: Spatial.Projections: invalid SRID %q", id)
		}
		sc.Projections[srid] = def
	}
	for _, srid := range []int{sc.GridSRID, sc.GeographicSRID} {
		if _, err := sc.SR(srid); err != nil {
			return sc, err
		}
	}
	return sc, nil
}

// csvColumns returns the input column layout specified in cfg.
func csvColumns(cfg *viper.Viper) (binmap.CSVColumns, error) {
	values, err := cast.ToIntSliceE(cfg.Get("values"))
	if err != nil {
		return binmap.CSVColumns{}, fmt.Errorf("binmap: values: %v", err)
	}
	c := binmap.DefaultCSVColumns()
	c.Lon = cfg.GetInt("lon")
	c.Lat = cfg.GetInt("lat")
	c.Values = values
	return c, nil
}

// optionalFloat returns the value of the named option, or nil if the
// option is empty.
func optionalFloat(cfg *viper.Viper, name string) (*float64, error) {
	s := strings.TrimSpace(cfg.GetString(name))
	if s == "" {
		return nil, nil
	}
	v, err := cast.ToFloat64E(s)
	if err != nil {
		return nil, fmt.Errorf("binmap: %s: %v", name, err)
	}
	return &v, nil
}

// openStore opens the database specified in cfg, along with a cache of
// layer data that is invalidated by changes to the database.
func openStore(cfg *viper.Viper) (*store.Store, *tilecache.Cache, error) {
	var cache *tilecache.Cache
	inv := binmap.InvalidatorFunc(func(e binmap.Event) {
		if cache != nil {
			cache.Invalidate(e)
		}
	})
	st, err := store.Open(os.ExpandEnv(cfg.GetString("db")),
		store.WithLogger(logger), store.WithInvalidator(inv))
	if err != nil {
		return nil, nil, err
	}
	cache = tilecache.New(st, cfg.GetInt("cachesize"), logger)
	return st, cache, nil
}
