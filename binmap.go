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

// Package binmap aggregates geospatial point measurements into regular
// planar grids of fixed-size pixels, compares aggregated grids, and maps
// aggregated values to colors for display on a web map.
package binmap

import (
	"errors"
	"fmt"
)

// Version gives the version number.
const Version = "0.3.0"

// Configuration errors. These are returned before any work is committed.
var (
	ErrPixelSizeMismatch  = errors.New("binmap: layers have different pixel sizes")
	ErrConflictingFilters = errors.New("binmap: only one of the gte and lte filters may be given")
	ErrInvalidColor       = errors.New("binmap: legend colors must be 6 hexadecimal digits")
	ErrInvalidOpacity     = errors.New("binmap: opacity must be between 0 and 1")
	ErrInvalidPixelSize   = errors.New("binmap: pixel size must be a positive integer")
	ErrInvalidBands       = errors.New("binmap: legend must have at least two bands")
	ErrAsymmetricLegend   = errors.New("binmap: symmetric legend requires abs(min) == max")
	ErrGeographicGrid     = errors.New("binmap: grids cannot be snapped in a geographic coordinate system")
	ErrUnknownMethod      = errors.New("binmap: unknown comparison method")
	ErrUnknownField       = errors.New("binmap: unknown aggregation field")
	ErrUnknownSRID        = errors.New("binmap: unknown spatial reference id")
	ErrUnknownScale       = errors.New("binmap: unknown legend scale")
)

// Data errors.
var (
	ErrNoOverlappingData = errors.New("binmap: compared layers have no overlapping data")
	ErrNoData            = errors.New("binmap: no data")
)

// ErrNotFound is returned when a layer, legend or data model
// does not exist.
var ErrNotFound = errors.New("binmap: not found")

// ErrorKind classifies errors for callers that need to react differently to
// bad configuration, missing data and failed lookups.
type ErrorKind int

// These are the error kinds.
const (
	KindUnknown ErrorKind = iota
	KindInput
	KindConfig
	KindData
	KindLookup
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindConfig:
		return "configuration"
	case KindData:
		return "data"
	case KindLookup:
		return "lookup"
	default:
		return "unknown"
	}
}

var configErrs = []error{
	ErrPixelSizeMismatch, ErrConflictingFilters, ErrInvalidColor,
	ErrInvalidOpacity, ErrInvalidPixelSize, ErrInvalidBands,
	ErrAsymmetricLegend, ErrGeographicGrid, ErrUnknownMethod,
	ErrUnknownField, ErrUnknownSRID, ErrUnknownScale,
}

// Kind returns the kind of err.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var rowErr *RowError
	if errors.As(err, &rowErr) {
		return KindInput
	}
	for _, e := range configErrs {
		if errors.Is(err, e) {
			return KindConfig
		}
	}
	if errors.Is(err, ErrNoOverlappingData) || errors.Is(err, ErrNoData) {
		return KindData
	}
	if errors.Is(err, ErrNotFound) {
		return KindLookup
	}
	return KindUnknown
}

// RowError is returned by an ObservationReader for an input row that
// cannot be used. Rows that cause a RowError are skipped.
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("binmap: line %d: %s", e.Line, e.Reason)
}
