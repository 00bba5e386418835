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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spatialmodel/binmap"
	"github.com/spatialmodel/binmap/cloud"
	"github.com/spatialmodel/binmap/internal/store"
	"github.com/spatialmodel/binmap/internal/tilecache"
)

// List writes a summary of every layer to w, either as one line per
// layer or as JSON.
func List(ctx context.Context, st *store.Store, cache *tilecache.Cache, sc binmap.SpatialConfig, w io.Writer, asJSON bool) error {
	layers, err := st.Layers(ctx)
	if err != nil {
		return err
	}
	toGeo, err := sc.ToGeographic()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, l := range layers {
		src, err := cache.Source(ctx, l.ID)
		if err != nil {
			return err
		}
		info, err := l.Info(src.Grid, toGeo)
		empty := errors.Is(err, binmap.ErrNoData)
		if err != nil && !empty {
			return err
		}
		if asJSON {
			if err := enc.Encode(info); err != nil {
				return err
			}
			continue
		}
		if empty {
			fmt.Fprintf(w, "[%d] %s (none)\n", l.ID, l)
		} else {
			fmt.Fprintf(w, "[%d] %s (%.5f, %.5f)\n", l.ID, l, info.CenterLon, info.CenterLat)
		}
	}
	return nil
}

// Remove deletes the layers with the given ids along with their pixels.
func Remove(ctx context.Context, st *store.Store, w io.Writer, ids ...int64) error {
	for _, id := range ids {
		l, err := st.Layer(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Removing layer: [%d] %s\n", l.ID, l.Name)
		if err := st.DeleteLayer(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Export writes the pixels of a layer to a shapefile at output, which
// is a local path or a blob URL.
func Export(ctx context.Context, cache *tilecache.Cache, id int64, output string) error {
	src, err := cache.Source(ctx, id)
	if err != nil {
		return err
	}
	if !cloud.IsBlob(output) {
		return src.Grid.WriteShapefile(output)
	}
	dir, err := os.MkdirTemp("", "binmap")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)
	shp := filepath.Join(dir, "layer.shp")
	if err := src.Grid.WriteShapefile(shp); err != nil {
		return err
	}
	keys, err := cloud.Export(ctx, shp, output)
	if err != nil {
		return err
	}
	logger.WithField("layer", id).Infof("exported to %v", keys)
	return nil
}
