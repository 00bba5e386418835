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

import "fmt"

// EventKind is the kind of change that makes rendered tiles stale.
type EventKind int

// These are the kinds of invalidation events.
const (
	// LegendChanged means the colors or bounds of a legend changed.
	LegendChanged EventKind = iota + 1

	// LayerLegendChanged means a layer was assigned a different legend.
	LayerLegendChanged

	// LayerRemoved means a layer and its pixels were deleted.
	LayerRemoved
)

func (k EventKind) String() string {
	switch k {
	case LegendChanged:
		return "legend changed"
	case LayerLegendChanged:
		return "layer legend changed"
	case LayerRemoved:
		return "layer removed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event describes a change that invalidates rendered output.
type Event struct {
	Kind     EventKind
	LayerID  int64
	LegendID int64
}

// Invalidator is notified of changes to stored layers and legends.
// Invalidate is called synchronously, once for each change.
type Invalidator interface {
	Invalidate(Event)
}

// InvalidatorFunc is a function that implements Invalidator.
type InvalidatorFunc func(Event)

// Invalidate calls f(e).
func (f InvalidatorFunc) Invalidate(e Event) { f(e) }
