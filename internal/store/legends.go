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
	"github.com/spatialmodel/binmap/internal/hash"
)

const legendColumns = `id, name, min_color, max_color, band_count,
	minimum_value, maximum_value, scale`

func scanLegend(row scanner) (*binmap.Legend, error) {
	var l binmap.Legend
	var scale string
	err := row.Scan(&l.ID, &l.Name, &l.MinColor, &l.MaxColor, &l.BandCount,
		&l.Min, &l.Max, &scale)
	if err != nil {
		return nil, err
	}
	if l.Scale, err = binmap.ParseScaleKind(scale); err != nil {
		return nil, err
	}
	return &l, nil
}

// appearance returns a fingerprint of the properties of l that affect
// the colors of rendered tiles.
func appearance(l *binmap.Legend) string {
	return hash.Fingerprint(l.Min, l.Max, l.MinColor, l.MaxColor, l.Scale)
}

func (s *Store) queryLegend(ctx context.Context, desc, where string, arg interface{}) (*binmap.Legend, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+legendColumns+` FROM legends WHERE `+where, arg)
	l, err := scanLegend(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: legend %s", binmap.ErrNotFound, desc)
	} else if err != nil {
		return nil, fmt.Errorf("store: reading legend %s: %w", desc, err)
	}
	return l, nil
}

// Legend returns the legend with the given id.
func (s *Store) Legend(ctx context.Context, id int64) (*binmap.Legend, error) {
	return s.queryLegend(ctx, fmt.Sprint(id), "id = ?", id)
}

// LegendByName returns the legend with the given name.
func (s *Store) LegendByName(ctx context.Context, name string) (*binmap.Legend, error) {
	return s.queryLegend(ctx, fmt.Sprintf("%q", name), "name = ?", name)
}

// SaveLegend stores l and sets its ID. Legend names are unique: if
// a legend named l.Name already exists, it is returned instead and l is
// not stored.
func (s *Store) SaveLegend(ctx context.Context, l *binmap.Legend) (*binmap.Legend, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.LegendByName(ctx, l.Name)
	if err == nil {
		return existing, nil
	} else if !errors.Is(err, binmap.ErrNotFound) {
		return nil, err
	}
	err = s.retry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `INSERT INTO legends (name, min_color,
			max_color, band_count, minimum_value, maximum_value, scale, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			l.Name, l.MinColor, l.MaxColor, l.BandCount, l.Min, l.Max,
			l.Scale.String(), formatTime(time.Now()))
		if err != nil {
			return err
		}
		l.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: saving legend %q: %w", l.Name, err)
	}
	return l, nil
}

// UpdateLegend saves changes to l. Changing the colors, bounds or scale
// invalidates the tiles drawn with the legend.
func (s *Store) UpdateLegend(ctx context.Context, l *binmap.Legend) error {
	if err := l.Validate(); err != nil {
		return err
	}
	prev, err := s.Legend(ctx, l.ID)
	if err != nil {
		return err
	}
	err = s.retry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `UPDATE legends SET name = ?, min_color = ?,
			max_color = ?, band_count = ?, minimum_value = ?, maximum_value = ?,
			scale = ? WHERE id = ?`,
			l.Name, l.MinColor, l.MaxColor, l.BandCount, l.Min, l.Max,
			l.Scale.String(), l.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("store: updating legend %d: %w", l.ID, err)
	}
	if appearance(prev) != appearance(l) {
		s.emit(binmap.Event{Kind: binmap.LegendChanged, LegendID: l.ID})
	}
	return nil
}
