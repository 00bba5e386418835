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

package hash

import (
	"math"
	"testing"
)

type legend struct {
	Min, Max float64
	Colors   map[string]string
}

func TestFingerprint(t *testing.T) {
	a := &legend{Min: -5, Max: 5, Colors: map[string]string{"min": "66b219", "max": "cc0000"}}
	b := &legend{Min: -5, Max: 5, Colors: map[string]string{"max": "cc0000", "min": "66b219"}}
	if Fingerprint(a) != Fingerprint(b) {
		t.Errorf("equal values have different fingerprints")
	}
	if len(Fingerprint(a)) != 32 {
		t.Errorf("fingerprint length: have %d, want 32", len(Fingerprint(a)))
	}

	b.Max = 10
	if Fingerprint(a) == Fingerprint(b) {
		t.Errorf("different values have equal fingerprints")
	}

	t.Run("NaN", func(t *testing.T) {
		c := legend{Min: math.NaN()}
		d := legend{Min: math.NaN()}
		if Fingerprint(c) != Fingerprint(d) {
			t.Errorf("NaN values have different fingerprints")
		}
	})
	t.Run("multiple", func(t *testing.T) {
		if Fingerprint(1, 2) == Fingerprint(2, 1) {
			t.Errorf("argument order should matter")
		}
	})
}
