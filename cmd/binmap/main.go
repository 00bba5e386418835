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

// Command binmap is a command-line interface for aggregating point
// measurements into map layers.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/binmap"
	"github.com/spatialmodel/binmap/binmaputil"
)

func main() {
	if err := binmaputil.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes configuration problems from problems with
// the data.
func exitCode(err error) int {
	switch binmap.Kind(err) {
	case binmap.KindConfig:
		return 2
	case binmap.KindData:
		return 3
	case binmap.KindLookup:
		return 4
	default:
		return 1
	}
}
