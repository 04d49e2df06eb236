/*
Copyright (C) 2026 the gridbench authors.
This file is part of gridbench.

gridbench is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridbench is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridbench.  If not, see <http://www.gnu.org/licenses/>.
*/

package gridbench

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ctessum/unit"
)

// unitAtoms maps unit symbols to their SI scale factor and physical
// dimensions. The table is deliberately small: it covers the units this
// engine itself produces (d, m2) plus the symbols common in the data it
// consumes. Correctness of the table entries is the caller's concern;
// this package only guarantees correct use of them.
var unitAtoms = map[string]struct {
	scale float64
	dims  unit.Dimensions
}{
	"1":  {1, unit.Dimless},
	"kg": {1, unit.Dimensions{unit.MassDim: 1}},
	"g":  {1e-3, unit.Dimensions{unit.MassDim: 1}},
	"Pg": {1e12, unit.Dimensions{unit.MassDim: 1}},
	"m":  {1, unit.Dimensions{unit.LengthDim: 1}},
	"cm": {1e-2, unit.Dimensions{unit.LengthDim: 1}},
	"km": {1e3, unit.Dimensions{unit.LengthDim: 1}},
	"s":  {1, unit.Dimensions{unit.TimeDim: 1}},
	"h":  {3600, unit.Dimensions{unit.TimeDim: 1}},
	"d":  {86400, unit.Dimensions{unit.TimeDim: 1}},
	"yr": {86400 * 365, unit.Dimensions{unit.TimeDim: 1}},
	"K":  {1, unit.Dimensions{unit.TemperatureDim: 1}},
	"W": {1, unit.Dimensions{
		unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -3}},
}

// parseUnits parses a unit string such as "kg m-2 s-1" or a product such
// as "(kg m-2 s-1)*(m2)" into a quantity whose value is the scale to SI
// base units and whose dimensions describe physical compatibility. The
// empty string parses as dimensionless unity.
func parseUnits(s string) (*unit.Unit, error) {
	clean := strings.NewReplacer("(", " ", ")", " ", "*", " ").Replace(s)
	scale := 1.0
	dims := unit.Dimensions{}
	for _, tok := range strings.Fields(clean) {
		sym, exp, err := splitUnitToken(tok)
		if err != nil {
			return nil, err
		}
		atom, ok := unitAtoms[sym]
		if !ok {
			return nil, fmt.Errorf("gridbench: unknown unit %q in %q", tok, s)
		}
		scale *= math.Pow(atom.scale, float64(exp))
		for d, p := range atom.dims {
			dims[d] += p * exp
		}
	}
	for d, p := range dims {
		if p == 0 {
			delete(dims, d)
		}
	}
	return unit.New(scale, dims), nil
}

// splitUnitToken splits a token like "m-2" into its symbol and integer
// exponent. A bare "1" denotes a dimensionless factor.
func splitUnitToken(tok string) (string, int, error) {
	i := len(tok)
	for i > 0 && tok[i-1] >= '0' && tok[i-1] <= '9' {
		i--
	}
	if i > 0 && i < len(tok) && (tok[i-1] == '-' || tok[i-1] == '+') {
		i--
	}
	if i == len(tok) {
		return tok, 1, nil
	}
	exp, err := strconv.Atoi(tok[i:])
	if err != nil {
		return "", 0, fmt.Errorf("gridbench: bad unit exponent in %q", tok)
	}
	if i == 0 {
		// The whole token was numeric, e.g. "1".
		return "1", 1, nil
	}
	return tok[:i], exp, nil
}

// sameDims reports whether two dimension sets match, ignoring zero
// exponents.
func sameDims(a, b unit.Dimensions) bool {
	for d, p := range a {
		if p != 0 && b[d] != p {
			return false
		}
	}
	for d, p := range b {
		if p != 0 && a[d] != p {
			return false
		}
	}
	return true
}

// Convert returns the field expressed in the target unit. The target must
// have the same physical dimensions as the field's current unit.
func Convert(f *Field, to string) (*Field, error) {
	from, err := parseUnits(f.Units)
	if err != nil {
		return nil, err
	}
	target, err := parseUnits(to)
	if err != nil {
		return nil, err
	}
	if !sameDims(from.Dimensions(), target.Dimensions()) {
		return nil, fmt.Errorf("%w: cannot convert %q to %q", ErrUnitMismatch, f.Units, to)
	}
	factor := from.Value() / target.Value()
	out := f.Copy()
	for i, v := range out.Data.Elements {
		out.Data.Elements[i] = v * factor
	}
	out.Units = to
	return out, nil
}

// unitProduct composes the unit tag of a product quantity, as when an
// integral multiplies a variable by its measure.
func unitProduct(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return "(" + a + ")*(" + b + ")"
}

// AdjustLon puts the longitudes of two fields on a shared convention,
// either [0,360] or [-180,180). When the conventions differ the second
// field's longitudes (and their bounds, if present) are remapped and the
// field re-sorted by the new coordinate. When either field lacks a
// longitude axis, or both already share a convention, the pair is returned
// unchanged.
func AdjustLon(a, b *Field) (*Field, *Field) {
	alon, _, errA := a.Axis("lon")
	blon, bpos, errB := b.Axis("lon")
	if errA != nil || errB != nil {
		return a, b
	}
	a360 := lonIn360(alon.Values)
	b360 := lonIn360(blon.Values)
	if a360 == b360 {
		return a, b
	}
	remap := lonTo180
	if a360 {
		remap = lonTo360
	}
	out := b.Copy()
	ax := out.Axes[bpos]
	for i, v := range ax.Values {
		nv := remap(v)
		if ax.Bounds != nil {
			// Bounds follow the coordinate by their original offsets, so a
			// cell straddling the convention cut keeps its width and still
			// contains its coordinate.
			bd := ax.Bounds[i]
			ax.Bounds[i] = [2]float64{nv - (v - bd[0]), nv + (bd[1] - v)}
		}
		ax.Values[i] = nv
	}
	return a, out.sortAxis(bpos)
}

// lonIn360 classifies a longitude range as the [0,360] convention.
func lonIn360(vals []float64) bool {
	for _, v := range vals {
		if v < 0 || v > 360 {
			return false
		}
	}
	return true
}

func lonTo360(x float64) float64 {
	m := math.Mod(x, 360)
	if m < 0 {
		m += 360
	}
	return m
}

func lonTo180(x float64) float64 {
	m := math.Mod(x+180, 360)
	if m < 0 {
		m += 360
	}
	return m - 180
}
