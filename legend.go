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
	"bytes"
	"encoding/hex"
	"fmt"
	"html/template"
	"image/color"
	"math"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Default legend colors, as 6-digit RGB hex strings.
const (
	Green = "66b219"
	Red   = "cc0000"
)

// DefaultBandCount is the default number of bands in a rendered legend.
const DefaultBandCount = 6

// ScaleKind specifies how a legend maps values to colors.
type ScaleKind int

// These are the legend scales.
const (
	// LinearScale interpolates hue, saturation and lightness between
	// the minimum and maximum colors.
	LinearScale ScaleKind = iota

	// SignedSymmetric uses the maximum color for non-negative values and
	// the minimum color for negative values, fading to white at zero.
	SignedSymmetric
)

var scaleKinds = map[ScaleKind]struct {
	name  string
	toHSL func(l *Legend, v float64) HSL
}{
	LinearScale:     {"linear", (*Legend).linearHSL},
	SignedSymmetric: {"symmetric", (*Legend).symmetricHSL},
}

func (s ScaleKind) String() string {
	if k, ok := scaleKinds[s]; ok {
		return k.name
	}
	return fmt.Sprintf("ScaleKind(%d)", int(s))
}

// ParseScaleKind returns the scale with the given name.
func ParseScaleKind(name string) (ScaleKind, error) {
	for s, k := range scaleKinds {
		if strings.EqualFold(k.name, name) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownScale, name)
}

// HSL is a color with hue in degrees and saturation and lightness
// in percent.
type HSL struct {
	H, S, L int
}

func (c HSL) String() string {
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", c.H, c.S, c.L)
}

// Color returns c as an RGB color.
func (c HSL) Color() color.NRGBA {
	r, g, b := colorful.Hsl(float64(c.H), float64(c.S)/100, float64(c.L)/100).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// Legend maps values to colors.
type Legend struct {
	ID   int64
	Name string

	Min, Max float64

	// MinColor and MaxColor are 6-digit RGB hex strings
	// without a leading '#'.
	MinColor, MaxColor string

	BandCount int
	Scale     ScaleKind
}

// NewLegend returns a validated legend. For a SignedSymmetric scale, the
// bound with the larger magnitude is reduced so that -min == max.
func NewLegend(name string, min, max float64, minColor, maxColor string, bandCount int, scale ScaleKind) (*Legend, error) {
	if scale == SignedSymmetric {
		m := math.Min(math.Abs(min), math.Abs(max))
		min, max = -m, m
	}
	l := &Legend{
		Name:      name,
		Min:       min,
		Max:       max,
		MinColor:  strings.ToLower(minColor),
		MaxColor:  strings.ToLower(maxColor),
		BandCount: bandCount,
		Scale:     scale,
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate checks that the legend can be used.
func (l *Legend) Validate() error {
	for _, c := range []string{l.MinColor, l.MaxColor} {
		if len(c) != 6 {
			return fmt.Errorf("%w: %q", ErrInvalidColor, c)
		}
		if _, err := hex.DecodeString(c); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidColor, c)
		}
	}
	if l.BandCount < 2 {
		return fmt.Errorf("%w: %d", ErrInvalidBands, l.BandCount)
	}
	if _, ok := scaleKinds[l.Scale]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownScale, int(l.Scale))
	}
	if l.Scale == SignedSymmetric && math.Abs(l.Min) != l.Max {
		return fmt.Errorf("%w: min=%g, max=%g", ErrAsymmetricLegend, l.Min, l.Max)
	}
	return nil
}

func (l *Legend) String() string {
	return fmt.Sprintf("[%d] %s (%g to %g)", l.ID, l.Name, l.Min, l.Max)
}

// hexHSL returns the hue in degrees and the saturation and lightness
// in [0, 1] of the given hex color.
func hexHSL(c string) (h, s, lum float64) {
	col, err := colorful.Hex("#" + c)
	if err != nil {
		panic(fmt.Errorf("binmap: invalid color %q: %v", c, err))
	}
	return col.Hsl()
}

// ValueToHSL returns the color of v.
func (l *Legend) ValueToHSL(v float64) HSL {
	return scaleKinds[l.Scale].toHSL(l, v)
}

func (l *Legend) linearHSL(v float64) HSL {
	lo, hi := l.Min, l.Max
	if v < lo {
		v = lo
	} else if v > hi {
		v = hi
	}
	if lo < 0 {
		off := math.Abs(lo)
		lo, hi, v = lo+off, hi+off, v+off
	}
	scale := 1.0
	if hi != lo {
		scale = (v - lo) / (hi - lo)
	}
	h0, s0, l0 := hexHSL(l.MinColor)
	h1, s1, l1 := hexHSL(l.MaxColor)
	return HSL{
		H: roundClamp(h0+scale*(h1-h0), 360),
		S: roundClamp((s0+scale*(s1-s0))*100, 100),
		L: roundClamp((l0+scale*(l1-l0))*100, 100),
	}
}

func (l *Legend) symmetricHSL(v float64) HSL {
	const fullColor, white = 50.0, 100.0
	base := l.MaxColor
	if v < 0 {
		base = l.MinColor
	}
	h, s, _ := hexHSL(base)
	v = math.Min(math.Abs(v), l.Max)
	var scale float64
	if l.Max > 0 {
		scale = v / l.Max
	}
	return HSL{
		H: roundClamp(h, 360),
		S: roundClamp(s*100, 100),
		L: roundClamp(scale*(fullColor-white)+white, 100),
	}
}

func roundClamp(v, max float64) int {
	return int(math.Round(math.Max(0, math.Min(v, max))))
}

// ValueToRGB returns the color of v as RGB.
func (l *Legend) ValueToRGB(v float64) color.NRGBA {
	return l.ValueToHSL(v).Color()
}

// HexColor returns the color of v in the format "#rrggbb".
func (l *Legend) HexColor(v float64) string {
	c := l.ValueToRGB(v)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ColorString returns the color of v in the format "hsl(h, s%, l%)".
func (l *Legend) ColorString(v float64) string {
	return l.ValueToHSL(v).String()
}

// GetColorStr returns the color of field f of r, for use by tile renderers.
func (l *Legend) GetColorStr(r Record, f Field) string {
	return l.ColorString(r.Value(f))
}

// Band is one entry of a rendered legend.
type Band struct {
	Color        string
	Lower, Upper float64

	// Open is true for the last band, which has no upper bound.
	Open bool
}

// Bands divides the legend range into BandCount-1 equal bands and adds
// a final band for values above the maximum. If invert is true, the bands
// are returned from largest to smallest.
func (l *Legend) Bands(invert bool) []Band {
	n := l.BandCount - 1
	step := (l.Max - l.Min) / float64(n)
	bands := make([]Band, 0, l.BandCount)
	for i := 0; i < n; i++ {
		lower := l.Min + float64(i)*step
		bands = append(bands, Band{
			Color: l.HexColor(lower),
			Lower: lower,
			Upper: lower + step,
		})
	}
	bands = append(bands, Band{
		Color: l.HexColor(l.Max),
		Lower: l.Max,
		Upper: math.Inf(1),
		Open:  true,
	})
	if invert {
		for i, j := 0, len(bands)-1; i < j; i, j = i+1, j-1 {
			bands[i], bands[j] = bands[j], bands[i]
		}
	}
	return bands
}

var legendHTML = template.Must(template.New("legend").Funcs(template.FuncMap{
	"round2": func(v float64) string {
		return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
	},
}).Parse(`{{range .}}<i style="background:{{.Color}}"></i>{{round2 .Lower}}{{if .Open}} +{{else}} &#126; {{round2 .Upper}}{{end}}<br>{{end}}`))

// HTML renders the legend bands as an HTML fragment for display
// alongside a web map.
func (l *Legend) HTML(invert bool) (string, error) {
	var b bytes.Buffer
	if err := legendHTML.Execute(&b, l.Bands(invert)); err != nil {
		return "", fmt.Errorf("binmap: rendering legend: %v", err)
	}
	return b.String(), nil
}

// AutoLegend creates a legend covering the bulk of distribution d. The
// bounds are placed 1.5 standard deviations either side of the rounded mean,
// limited to the range of the data and rounded down to a multiple of 5
// (or 25 for means above 1000). If moreIsBetter is true, larger values
// are green and smaller values are red.
func AutoLegend(name string, d Distribution, moreIsBetter bool, scale ScaleKind) (*Legend, error) {
	if d.Count == 0 {
		return nil, fmt.Errorf("%w: cannot create legend %q", ErrNoData, name)
	}
	std := d.StdDev
	if math.IsNaN(std) {
		std = 0
	}
	avg := math.RoundToEven(d.Mean)
	mod := 5.0
	if avg > 1000 {
		mod = 25
	}
	mid := avg - floorMod(avg, mod)

	max := math.Min(mid+1.5*std, d.Max)
	max -= floorMod(max, mod)
	min := math.Max(mid-1.5*std, d.Min)
	min -= floorMod(min, mod)
	if min > max {
		min = max
	}

	minColor, maxColor := Green, Red
	if moreIsBetter {
		minColor, maxColor = Red, Green
	}
	if scale == SignedSymmetric && math.Min(math.Abs(min), math.Abs(max)) == 0 {
		// A zero bound gives an empty symmetric range, so use the larger
		// magnitude instead of the smaller one.
		m := math.Max(math.Abs(min), math.Abs(max))
		min, max = -m, m
	}
	return NewLegend(name, min, max, minColor, maxColor, DefaultBandCount, scale)
}
