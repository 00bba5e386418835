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
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// LoadAggregated reads rows that have already been aggregated to pixels,
// returning one grid for each value column of r. Each value becomes the
// mean of a single-sample pixel. Rows without a time are stamped with now.
// If two rows fall in the same pixel, the later row wins.
func LoadAggregated(r *CSVReader, indexer *GridIndexer, now time.Time, log logrus.FieldLogger) ([]*Grid, RunStats, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	grids := make([]*Grid, len(r.ValueNames))
	for i, name := range r.ValueNames {
		grids[i] = NewGrid(name, indexer.PixelSize(), Mean)
	}
	var s RunStats
	var duplicates int
	for {
		row, err := r.ReadRow()
		if err == io.EOF {
			break
		}
		var k PixelKey
		if err == nil {
			k, err = indexer.Index(row.X, row.Y)
			if err != nil {
				err = &RowError{Line: r.line, Reason: err.Error()}
			}
		}
		if err != nil {
			var rowErr *RowError
			if !errors.As(err, &rowErr) {
				return nil, s, fmt.Errorf("binmap: reading aggregated data: %w", err)
			}
			s.Skipped++
			log.WithFields(logrus.Fields{
				"line":   rowErr.Line,
				"reason": rowErr.Reason,
			}).Warn("skipping row")
			continue
		}
		t := row.Time
		if t.IsZero() {
			t = now
		}
		for i, v := range row.Values {
			if math.IsNaN(v) {
				continue
			}
			if _, ok := grids[i].Records[k]; ok {
				duplicates++
			}
			grids[i].Records[k] = Record{
				Samples: 1,
				Mean:    v,
				Sum:     v,
				Min:     v,
				Max:     v,
				Time:    t,
			}
		}
		s.Read++
	}
	log.WithFields(logrus.Fields{
		"read":       s.Read,
		"skipped":    s.Skipped,
		"duplicates": duplicates,
	}).Info("loaded aggregated rows")
	return grids, s, nil
}
