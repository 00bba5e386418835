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
	"database/sql"
	"fmt"
	"math"

	"github.com/spatialmodel/binmap"
)

func nullFloat(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// WritePixels inserts pixels into the layer with the given id in
// a single transaction. Existing pixels with the same keys are replaced.
func (s *Store) WritePixels(ctx context.Context, layerID int64, pixels []binmap.Pixel) error {
	err := s.retry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO pixels (layer_id,
			col, row, x, y, observed_at, samples, mean, variance, stddev, sum,
			minimum, maximum, difference, percentage)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, p := range pixels {
			pt := p.Key.Point()
			_, err = stmt.ExecContext(ctx, layerID, p.Key.Col, p.Key.Row, pt.X, pt.Y,
				formatTime(p.Time), p.Samples, nullFloat(p.Mean), nullFloat(p.Variance),
				nullFloat(p.StdDev), nullFloat(p.Sum), nullFloat(p.Min), nullFloat(p.Max),
				nullFloat(p.Difference), nullFloat(p.Percentage))
			if err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("store: writing %d pixels to layer %d: %w", len(pixels), layerID, err)
	}
	s.Log.WithField("layer", layerID).Debugf("wrote %d pixels", len(pixels))
	return nil
}

type layerSink struct {
	s  *Store
	id int64
}

func (l layerSink) WritePixels(ctx context.Context, pixels []binmap.Pixel) error {
	return l.s.WritePixels(ctx, l.id, pixels)
}

// PixelSink returns a sink that writes pixels to the layer with the
// given id.
func (s *Store) PixelSink(layerID int64) binmap.PixelSink {
	return layerSink{s: s, id: layerID}
}

// Grid returns the pixels of a layer that have at least minSamples samples.
func (s *Store) Grid(ctx context.Context, layerID int64, minSamples int) (*binmap.Grid, error) {
	l, err := s.Layer(ctx, layerID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT col, row, observed_at, samples, mean,
		variance, stddev, sum, minimum, maximum, difference, percentage
		FROM pixels WHERE layer_id = ? AND samples >= ?`, layerID, minSamples)
	if err != nil {
		return nil, fmt.Errorf("store: reading pixels of layer %d: %w", layerID, err)
	}
	defer rows.Close()

	g := binmap.NewGrid(l.Name, l.PixelSize, l.Field)
	for rows.Next() {
		k := binmap.PixelKey{Size: l.PixelSize}
		var r binmap.Record
		var observed sql.NullString
		var v [8]sql.NullFloat64
		err := rows.Scan(&k.Col, &k.Row, &observed, &r.Samples, &v[0], &v[1], &v[2],
			&v[3], &v[4], &v[5], &v[6], &v[7])
		if err != nil {
			return nil, fmt.Errorf("store: reading pixels of layer %d: %w", layerID, err)
		}
		if r.Time, err = parseTime(observed); err != nil {
			return nil, fmt.Errorf("store: reading pixels of layer %d: %w", layerID, err)
		}
		r.Mean, r.Variance, r.StdDev, r.Sum = floatOrNaN(v[0]), floatOrNaN(v[1]), floatOrNaN(v[2]), floatOrNaN(v[3])
		r.Min, r.Max, r.Difference, r.Percentage = floatOrNaN(v[4]), floatOrNaN(v[5]), floatOrNaN(v[6]), floatOrNaN(v[7])
		g.Records[k] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: reading pixels of layer %d: %w", layerID, err)
	}
	return g, nil
}
