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
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// NoHeaderName is the value name used for files without a header row.
const NoHeaderName = "Unknown (no-headers)"

// CSVColumns gives the zero-based column indices of the fields of
// an input file.
type CSVColumns struct {
	Lon, Lat int

	// Values holds the indices of the value columns. Only the first
	// one is used when reading observations.
	Values []int

	// Time is the index of the time column, or a negative number
	// if there isn't one.
	Time int

	// TimeLayout is the layout of the time column, in the format
	// accepted by time.Parse.
	TimeLayout string
}

// DefaultCSVColumns returns the default column layout.
func DefaultCSVColumns() CSVColumns {
	return CSVColumns{
		Lon:        1,
		Lat:        2,
		Values:     []int{3},
		Time:       -1,
		TimeLayout: "15:04:05.000000 02-01-2006",
	}
}

func (c CSVColumns) maxIndex() int {
	m := max(c.Lon, c.Lat, c.Time)
	for _, v := range c.Values {
		m = max(m, v)
	}
	return m
}

// Row is one parsed row of an input file. Missing or invalid values
// are NaN.
type Row struct {
	X, Y   float64
	Values []float64
	Time   time.Time
}

// CSVReader reads observations from delimited text. Gzip-compressed
// input is decompressed transparently.
type CSVReader struct {
	r    *csv.Reader
	gz   *gzip.Reader
	cols CSVColumns
	line int

	// ValueNames holds the header names of the value columns.
	ValueNames []string
}

// NewCSVReader returns a reader for r. If hasHeader is true, the first row
// is used to name the value columns.
func NewCSVReader(r io.Reader, cols CSVColumns, hasHeader bool) (*CSVReader, error) {
	if len(cols.Values) == 0 {
		return nil, fmt.Errorf("binmap: no value columns specified")
	}
	if cols.Lon < 0 || cols.Lat < 0 {
		return nil, fmt.Errorf("binmap: invalid coordinate columns %d, %d", cols.Lon, cols.Lat)
	}
	c := &CSVReader{cols: cols}
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		c.gz, err = gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("binmap: opening gzip stream: %v", err)
		}
		c.r = csv.NewReader(c.gz)
	} else {
		c.r = csv.NewReader(br)
	}
	c.r.FieldsPerRecord = -1
	c.r.LazyQuotes = true
	c.r.TrimLeadingSpace = true

	c.ValueNames = make([]string, len(cols.Values))
	if !hasHeader {
		for i := range c.ValueNames {
			c.ValueNames[i] = NoHeaderName
		}
		return c, nil
	}
	header, err := c.r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("binmap: input has no header row")
	} else if err != nil {
		return nil, fmt.Errorf("binmap: reading header: %v", err)
	}
	for i, idx := range cols.Values {
		if idx >= len(header) || strings.TrimSpace(header[idx]) == "" {
			return nil, fmt.Errorf("binmap: header has no name for value column %d", idx)
		}
		c.ValueNames[i] = strings.TrimSpace(header[idx])
	}
	return c, nil
}

// Close releases the decompressor, if any. It does not close the
// underlying reader.
func (c *CSVReader) Close() error {
	if c.gz != nil {
		return c.gz.Close()
	}
	return nil
}

// ReadRow returns the next row. It returns a *RowError if the row
// cannot be used and io.EOF at the end of the input.
func (c *CSVReader) ReadRow() (Row, error) {
	rec, err := c.r.Read()
	if err == io.EOF {
		return Row{}, io.EOF
	}
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			c.line = perr.StartLine
			return Row{}, &RowError{Line: c.line, Reason: perr.Err.Error()}
		}
		return Row{}, err
	}
	// Quoted fields may span lines.
	c.line, _ = c.r.FieldPos(0)
	if len(rec) <= c.cols.maxIndex() {
		return Row{}, &RowError{Line: c.line,
			Reason: fmt.Sprintf("expected at least %d columns, got %d", c.cols.maxIndex()+1, len(rec))}
	}
	rawX, rawY := strings.TrimSpace(rec[c.cols.Lon]), strings.TrimSpace(rec[c.cols.Lat])
	x, errX := strconv.ParseFloat(rawX, 64)
	y, errY := strconv.ParseFloat(rawY, 64)
	if errX != nil || errY != nil || !finite(x) || !finite(y) {
		return Row{}, &RowError{Line: c.line,
			Reason: fmt.Sprintf("invalid lon/lat fields: %q, %q", rawX, rawY)}
	}
	row := Row{X: x, Y: y, Values: make([]float64, len(c.cols.Values))}
	for i, idx := range c.cols.Values {
		row.Values[i] = parseValue(rec[idx])
	}
	if c.cols.Time >= 0 {
		row.Time, err = time.Parse(c.cols.TimeLayout, strings.TrimSpace(rec[c.cols.Time]))
		if err != nil {
			return Row{}, &RowError{Line: c.line, Reason: fmt.Sprintf("invalid time: %v", err)}
		}
	}
	return row, nil
}

// Read implements ObservationReader using the first value column.
func (c *CSVReader) Read() (Observation, error) {
	row, err := c.ReadRow()
	if err != nil {
		return Observation{}, err
	}
	if math.IsNaN(row.Values[0]) {
		return Observation{}, &RowError{Line: c.line, Reason: "empty or invalid value"}
	}
	return Observation{X: row.X, Y: row.Y, Value: row.Values[0], Time: row.Time}, nil
}

func parseValue(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !finite(v) {
		return math.NaN()
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
