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

// Package tilecache holds the layer data that tile renderers draw from,
// and drops it when the store reports that rendered tiles are stale.
package tilecache

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/ctessum/requestcache"
	"github.com/golang/groupcache/lru"
	"github.com/sirupsen/logrus"

	"github.com/spatialmodel/binmap"
)

// Loader reads layers, grids and legends. *store.Store is a Loader.
type Loader interface {
	Layer(ctx context.Context, id int64) (*binmap.Layer, error)
	Grid(ctx context.Context, layerID int64, minSamples int) (*binmap.Grid, error)
	Legend(ctx context.Context, id int64) (*binmap.Legend, error)
}

// Source is everything a renderer needs to draw a layer. Legend is nil
// if the layer has no legend. Sources are shared and must not be modified.
type Source struct {
	Layer  *binmap.Layer
	Grid   *binmap.Grid
	Legend *binmap.Legend
}

// Color returns the color of the pixel k, and false if the pixel has
// no data or the layer has no legend.
func (s *Source) Color(k binmap.PixelKey) (string, bool) {
	r, ok := s.Grid.Records[k]
	if !ok || s.Legend == nil {
		return "", false
	}
	return s.Legend.GetColorStr(r, s.Layer.Field), true
}

// Cache is a concurrency-safe, least-recently-used cache of Sources.
type Cache struct {
	Log logrus.FieldLogger

	load *requestcache.Cache

	mu      sync.Mutex
	sources *lru.Cache
	// legends maps legend ids to the ids of cached layers that use them.
	legends map[int64]map[int64]bool
	// gen is incremented on every invalidation so that loads that
	// started before it are not cached.
	gen uint64
}

type loadRequest struct {
	id  int64
	gen uint64
}

// New returns a cache holding up to maxEntries layers read from l.
func New(l Loader, maxEntries int, log logrus.FieldLogger) *Cache {
	c := &Cache{
		Log:     log,
		sources: lru.New(maxEntries),
		legends: make(map[int64]map[int64]bool),
	}
	c.sources.OnEvicted = func(key lru.Key, value interface{}) {
		s := value.(*Source)
		delete(c.legends[s.Layer.LegendID], s.Layer.ID)
		if len(c.legends[s.Layer.LegendID]) == 0 {
			delete(c.legends, s.Layer.LegendID)
		}
	}
	c.load = requestcache.NewCache(func(ctx context.Context, payload interface{}) (interface{}, error) {
		return loadSource(ctx, l, payload.(loadRequest).id)
	}, runtime.GOMAXPROCS(-1), requestcache.Deduplicate())
	return c
}

func loadSource(ctx context.Context, l Loader, id int64) (*Source, error) {
	layer, err := l.Layer(ctx, id)
	if err != nil {
		return nil, err
	}
	g, err := l.Grid(ctx, id, layer.MinimumSamples)
	if err != nil {
		return nil, err
	}
	s := &Source{Layer: layer, Grid: g}
	if layer.LegendID != 0 {
		if s.Legend, err = l.Legend(ctx, layer.LegendID); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Source returns the data for the layer with the given id. Concurrent
// requests for the same layer share a single load.
func (c *Cache) Source(ctx context.Context, layerID int64) (*Source, error) {
	c.mu.Lock()
	if v, ok := c.sources.Get(layerID); ok {
		c.mu.Unlock()
		return v.(*Source), nil
	}
	gen := c.gen
	c.mu.Unlock()

	req := c.load.NewRequest(ctx, loadRequest{id: layerID, gen: gen}, fmt.Sprintf("%d_%d", layerID, gen))
	v, err := req.Result()
	if err != nil {
		return nil, err
	}
	s := v.(*Source)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.sources.Add(layerID, s)
		if c.legends[s.Layer.LegendID] == nil {
			c.legends[s.Layer.LegendID] = make(map[int64]bool)
		}
		c.legends[s.Layer.LegendID][layerID] = true
	}
	return s, nil
}

// Len returns the number of cached layers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sources.Len()
}

// Invalidate drops the cached layers affected by e.
func (c *Cache) Invalidate(e binmap.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	var layers []int64
	switch e.Kind {
	case binmap.LegendChanged:
		for id := range c.legends[e.LegendID] {
			layers = append(layers, id)
		}
	case binmap.LayerLegendChanged, binmap.LayerRemoved:
		layers = append(layers, e.LayerID)
	default:
		c.sources.Clear()
		c.legends = make(map[int64]map[int64]bool)
	}
	for _, id := range layers {
		c.sources.Remove(id)
	}
	c.Log.WithFields(logrus.Fields{
		"event":   e.Kind,
		"dropped": len(layers),
	}).Debug("tile cache invalidated")
}
