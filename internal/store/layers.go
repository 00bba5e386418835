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
	"errors"
	"fmt"
	"time"

	"github.com/spatialmodel/binmap"
)

const layerColumns = `id, name, source, opacity, field, pixel_size,
	minimum_samples, srid, legend_id, created_at`

func scanLayer(row scanner) (*binmap.Layer, error) {
	var l binmap.Layer
	var field, created string
	var legend sql.NullInt64
	err := row.Scan(&l.ID, &l.Name, &l.Source, &l.Opacity, &field, &l.PixelSize,
		&l.MinimumSamples, &l.SRID, &legend, &created)
	if err != nil {
		return nil, err
	}
	if l.Field, err = binmap.ParseField(field); err != nil {
		return nil, err
	}
	l.LegendID = legend.Int64
	if l.Created, err = time.Parse(timeFormat, created); err != nil {
		return nil, fmt.Errorf("store: layer %d: invalid creation time: %v", l.ID, err)
	}
	return &l, nil
}

func nullID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}

// CreateLayer adds l to the database and sets its ID.
func (s *Store) CreateLayer(ctx context.Context, l *binmap.Layer) error {
	if err := l.Validate(); err != nil {
		return err
	}
	if l.Created.IsZero() {
		l.Created = time.Now().UTC()
	}
	err := s.retry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `INSERT INTO layers (name, source, opacity,
			field, pixel_size, minimum_samples, srid, legend_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.Name, l.Source, l.Opacity, l.Field.String(), l.PixelSize,
			l.MinimumSamples, l.SRID, nullID(l.LegendID), formatTime(l.Created))
		if err != nil {
			return err
		}
		l.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return fmt.Errorf("store: creating layer %q: %w", l.Name, err)
	}
	return nil
}

// Layer returns the layer with the given id.
func (s *Store) Layer(ctx context.Context, id int64) (*binmap.Layer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+layerColumns+` FROM layers WHERE id = ?`, id)
	l, err := scanLayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: layer %d", binmap.ErrNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("store: reading layer %d: %w", id, err)
	}
	return l, nil
}

// Layers returns all layers in order of creation.
func (s *Store) Layers(ctx context.Context) ([]*binmap.Layer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+layerColumns+` FROM layers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: listing layers: %w", err)
	}
	defer rows.Close()
	var layers []*binmap.Layer
	for rows.Next() {
		l, err := scanLayer(rows)
		if err != nil {
			return nil, fmt.Errorf("store: listing layers: %w", err)
		}
		layers = append(layers, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: listing layers: %w", err)
	}
	return layers, nil
}

// UpdateLayer saves changes to the settings of l. Assigning a different
// legend invalidates the layer's tiles.
func (s *Store) UpdateLayer(ctx context.Context, l *binmap.Layer) error {
	if err := l.Validate(); err != nil {
		return err
	}
	prev, err := s.Layer(ctx, l.ID)
	if err != nil {
		return err
	}
	err = s.retry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `UPDATE layers SET name = ?, source = ?,
			opacity = ?, field = ?, minimum_samples = ?, legend_id = ? WHERE id = ?`,
			l.Name, l.Source, l.Opacity, l.Field.String(), l.MinimumSamples,
			nullID(l.LegendID), l.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("store: updating layer %d: %w", l.ID, err)
	}
	if prev.LegendID != l.LegendID {
		s.emit(binmap.Event{Kind: binmap.LayerLegendChanged, LayerID: l.ID, LegendID: l.LegendID})
	}
	return nil
}

// SetLayerLegend assigns a legend to a layer.
func (s *Store) SetLayerLegend(ctx context.Context, layerID, legendID int64) error {
	if _, err := s.Legend(ctx, legendID); err != nil {
		return err
	}
	l, err := s.Layer(ctx, layerID)
	if err != nil {
		return err
	}
	l.LegendID = legendID
	return s.UpdateLayer(ctx, l)
}

// DeleteLayer removes a layer and its pixels.
func (s *Store) DeleteLayer(ctx context.Context, id int64) error {
	var n int64
	err := s.retry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if _, err = tx.ExecContext(ctx, `DELETE FROM pixels WHERE layer_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM layers WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, err = res.RowsAffected(); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("store: deleting layer %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: layer %d", binmap.ErrNotFound, id)
	}
	s.emit(binmap.Event{Kind: binmap.LayerRemoved, LayerID: id})
	return nil
}
