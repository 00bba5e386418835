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
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Batch sizes for handing pixels to a PixelSink.
const (
	AggregateBatchSize = 50000
	CompareBatchSize   = 5000
)

// Observation is a single measurement at a point. X and Y are in the
// spatial reference of the input, typically longitude and latitude.
type Observation struct {
	X, Y  float64
	Value float64
	Time  time.Time
}

// ObservationReader is a source of observations. Read returns io.EOF when
// there are no more observations and a *RowError for an observation that
// should be skipped.
type ObservationReader interface {
	Read() (Observation, error)
}

// PixelSink receives finalized pixels.
type PixelSink interface {
	WritePixels(ctx context.Context, pixels []Pixel) error
}

// PipelineConfig specifies how observations are aggregated.
type PipelineConfig struct {
	// Name is the name of the resulting grid.
	Name string

	// MinimumSamples is the number of observations a pixel needs
	// to be kept.
	MinimumSamples int

	// Kind is the type of accumulator.
	Kind AccumulatorKind

	// Include, if not empty, limits the observations to those whose
	// value is one of the given integers.
	Include []int

	// Time is assigned to pixels whose observations have no time.
	Time time.Time
}

// RunStats counts what happened to the observations in a run.
type RunStats struct {
	Read, Skipped, Excluded int
}

// Pipeline aggregates observations into a grid. A Pipeline is not safe
// for concurrent use.
type Pipeline struct {
	cfg     PipelineConfig
	indexer *GridIndexer
	newAcc  func() Accumulator
	include map[int]bool

	acc   map[PixelKey]Accumulator
	times map[PixelKey]time.Time

	Log logrus.FieldLogger
}

// NewPipeline returns a new pipeline that bins observations
// using indexer.
func NewPipeline(cfg PipelineConfig, indexer *GridIndexer, log logrus.FieldLogger) (*Pipeline, error) {
	if cfg.MinimumSamples < 0 {
		return nil, fmt.Errorf("binmap: minimum samples must not be negative, got %d", cfg.MinimumSamples)
	}
	newAcc, err := NewAccumulatorFunc(cfg.Kind)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	p := &Pipeline{
		cfg:     cfg,
		indexer: indexer,
		newAcc:  newAcc,
		acc:     make(map[PixelKey]Accumulator),
		times:   make(map[PixelKey]time.Time),
		Log:     log,
	}
	if len(cfg.Include) > 0 {
		p.include = make(map[int]bool)
		for _, v := range cfg.Include {
			p.include[v] = true
		}
	}
	return p, nil
}

// included returns whether v passes the include filter.
func (p *Pipeline) included(v float64) bool {
	if p.include == nil {
		return true
	}
	return v == math.Trunc(v) && p.include[int(v)]
}

// Add adds an observation to the pipeline. It returns a *RowError if
// the observation cannot be used.
func (p *Pipeline) Add(o Observation) error {
	if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
		return &RowError{Reason: fmt.Sprintf("invalid value %g", o.Value)}
	}
	k, err := p.indexer.Index(o.X, o.Y)
	if err != nil {
		return &RowError{Reason: err.Error()}
	}
	a, ok := p.acc[k]
	if !ok {
		a = p.newAcc()
		p.acc[k] = a
	}
	a.Send(o.Value)
	if o.Time.After(p.times[k]) {
		p.times[k] = o.Time
	}
	return nil
}

// Run adds all of the observations in r to the pipeline. Observations
// that cannot be used are logged and skipped; any other read error
// stops the run.
func (p *Pipeline) Run(r ObservationReader) (RunStats, error) {
	var s RunStats
	for {
		o, err := r.Read()
		if err == io.EOF {
			break
		}
		if err == nil && !p.included(o.Value) {
			s.Excluded++
			continue
		}
		if err == nil {
			err = p.Add(o)
		}
		if err != nil {
			var rowErr *RowError
			if !errors.As(err, &rowErr) {
				return s, fmt.Errorf("binmap: reading observations: %w", err)
			}
			s.Skipped++
			p.Log.WithFields(logrus.Fields{
				"line":   rowErr.Line,
				"reason": rowErr.Reason,
			}).Warn("skipping observation")
			continue
		}
		s.Read++
	}
	p.Log.WithFields(logrus.Fields{
		"read":     s.Read,
		"skipped":  s.Skipped,
		"excluded": s.Excluded,
		"pixels":   len(p.acc),
	}).Info("aggregated observations")
	return s, nil
}

// Finalize returns the aggregated grid. Pixels with fewer than the
// minimum number of samples are left out.
func (p *Pipeline) Finalize() *Grid {
	g := NewGrid(p.cfg.Name, p.indexer.PixelSize(), Mean)
	for k, a := range p.acc {
		if a.Count() < p.cfg.MinimumSamples {
			continue
		}
		r := NewRecord(a)
		r.Time = p.times[k]
		if r.Time.IsZero() {
			r.Time = p.cfg.Time
		}
		g.Records[k] = r
	}
	return g
}

// Flush writes the pixels of the grid to sink in batches of at most
// batchSize pixels. It returns the number of pixels written.
func (g *Grid) Flush(ctx context.Context, sink PixelSink, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = AggregateBatchSize
	}
	var n int
	batch := make([]Pixel, 0, min(batchSize, g.Len()))
	for _, px := range g.Pixels() {
		batch = append(batch, px)
		if len(batch) >= batchSize {
			if err := sink.WritePixels(ctx, batch); err != nil {
				return n, err
			}
			n += len(batch)
			batch = make([]Pixel, 0, batchSize)
		}
	}
	if len(batch) > 0 {
		if err := sink.WritePixels(ctx, batch); err != nil {
			return n, err
		}
		n += len(batch)
	}
	return n, nil
}
