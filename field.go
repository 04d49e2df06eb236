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

// Package gridbench aligns and integrates gridded geophysical fields so
// that model output can be benchmarked against reference observations on
// heterogeneous grids. It derives conservative integration weights from
// coordinates and bounds, performs weighted reductions in time, space and
// depth, masks by named geographic region, and scores the similarity of
// bivariate functional responses between two fields.
package gridbench

import (
	"fmt"
	"sort"

	"github.com/ctessum/sparse"
)

// Reserved names under which derived measures may be cached on a Field.
const (
	TimeMeasureKey = "time_measures"
	CellMeasureKey = "cell_measures"
)

// axisAliases maps each canonical axis name to the names under which it
// may appear in data. Not all data calls its dimensions the same thing
// ("lat", "Latitude", "y", ...), and we want resolution to work even for
// data that is not CF-compliant.
var axisAliases = map[string][]string{
	"time":  {"time"},
	"lat":   {"lat", "latitude", "Latitude", "y"},
	"lon":   {"lon", "longitude", "Longitude", "x"},
	"depth": {"depth"},
	"site":  {"site"},
}

// An Axis is one named dimension of a Field: ordered coordinate values and
// an optional per-cell bound pair.
type Axis struct {
	Name   string
	Values []float64
	// Bounds, when present, holds one [lo, hi] interval per coordinate
	// with Bounds[i][0] <= Values[i] <= Bounds[i][1]. Cell widths are
	// taken from the bounds rather than assuming uniform spacing.
	Bounds [][2]float64
}

// Copy returns a deep copy of the axis.
func (a *Axis) Copy() *Axis {
	o := &Axis{Name: a.Name, Values: make([]float64, len(a.Values))}
	copy(o.Values, a.Values)
	if a.Bounds != nil {
		o.Bounds = make([][2]float64, len(a.Bounds))
		copy(o.Bounds, a.Bounds)
	}
	return o
}

// A Field is a labeled array: a dense payload over a set of named axes,
// carrying a physical unit tag and zero or more cached measure arrays.
// Coordinates are float64 throughout; time coordinates are fractional days
// since the Unix epoch.
type Field struct {
	Name  string
	Data  *sparse.DenseArray
	Axes  []*Axis
	Units string

	measures map[string]*Field
}

// NewField assembles a field from a data array and its axes, validating
// that axis names are unique and lengths match the array shape. Axes whose
// coordinates are not sorted ascending are sorted, permuting the data (and
// bounds) along with them.
func NewField(name string, data *sparse.DenseArray, units string, axes ...*Axis) (*Field, error) {
	if len(axes) != len(data.Shape) {
		return nil, fmt.Errorf("gridbench: field %s has %d axes for a %d-dimensional array",
			name, len(axes), len(data.Shape))
	}
	seen := make(map[string]bool)
	for i, ax := range axes {
		if seen[ax.Name] {
			return nil, fmt.Errorf("gridbench: field %s has duplicate axis %q", name, ax.Name)
		}
		seen[ax.Name] = true
		if len(ax.Values) != data.Shape[i] {
			return nil, fmt.Errorf("gridbench: axis %q has %d coordinates for dimension of size %d",
				ax.Name, len(ax.Values), data.Shape[i])
		}
		if ax.Bounds != nil && len(ax.Bounds) != len(ax.Values) {
			return nil, fmt.Errorf("gridbench: axis %q has %d bounds for %d coordinates",
				ax.Name, len(ax.Bounds), len(ax.Values))
		}
	}
	f := &Field{Name: name, Data: data, Axes: axes, Units: units}
	for pos := range f.Axes {
		f = f.sortAxis(pos)
	}
	return f, nil
}

// Copy returns a deep copy of the field. Cached measures are carried over.
func (f *Field) Copy() *Field {
	o := &Field{Name: f.Name, Data: f.Data.Copy(), Units: f.Units}
	o.Axes = make([]*Axis, len(f.Axes))
	for i, ax := range f.Axes {
		o.Axes[i] = ax.Copy()
	}
	if f.measures != nil {
		o.measures = make(map[string]*Field, len(f.measures))
		for k, v := range f.measures {
			o.measures[k] = v
		}
	}
	return o
}

// AxisName resolves the canonical axis name ("time", "lat", "lon", "depth",
// "site") to the name the field actually uses. Exactly one of the field's
// axes must match the alias set.
func (f *Field) AxisName(canonical string) (string, error) {
	aliases, ok := axisAliases[canonical]
	if !ok {
		return "", fmt.Errorf("%w: %q is not a known canonical axis", ErrAxisNotFound, canonical)
	}
	var matches []string
	for _, ax := range f.Axes {
		for _, alias := range aliases {
			if ax.Name == alias {
				matches = append(matches, ax.Name)
			}
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s dimension not in field %s", ErrAxisNotFound, canonical, f.Name)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("%w: %s matches %v in field %s", ErrAxisAmbiguous, canonical, matches, f.Name)
}

// Axis resolves a canonical axis name and returns the axis together with
// its position in the field's dimension order.
func (f *Field) Axis(canonical string) (*Axis, int, error) {
	name, err := f.AxisName(canonical)
	if err != nil {
		return nil, -1, err
	}
	for i, ax := range f.Axes {
		if ax.Name == name {
			return ax, i, nil
		}
	}
	// Unreachable: AxisName only returns names present on the field.
	return nil, -1, fmt.Errorf("%w: %s", ErrAxisNotFound, canonical)
}

// HasAxis reports whether the canonical axis resolves on this field.
func (f *Field) HasAxis(canonical string) bool {
	_, err := f.AxisName(canonical)
	return err == nil
}

// SetMeasure caches a derived measure on the field under the given
// reserved name. The measure's axes must be a subset of the field's.
func (f *Field) SetMeasure(key string, m *Field) {
	if f.measures == nil {
		f.measures = make(map[string]*Field)
	}
	f.measures[key] = m
}

// Measure returns the cached measure stored under key, if any.
func (f *Field) Measure(key string) (*Field, bool) {
	m, ok := f.measures[key]
	return m, ok
}

// SelectRange returns the subset of the field whose coordinates on the
// given canonical axis lie within [lo, hi]. An empty selection yields an
// empty axis, not an error.
func (f *Field) SelectRange(canonical string, lo, hi float64) (*Field, error) {
	ax, pos, err := f.Axis(canonical)
	if err != nil {
		return nil, err
	}
	var idx []int
	for i, v := range ax.Values {
		if v >= lo && v <= hi {
			idx = append(idx, i)
		}
	}
	return f.takeAlong(pos, idx), nil
}

// Sel slices the field on the given canonical axis to the cells whose
// bounds contain [cmin, cmax], then clips the outermost bounds to exactly
// cmin and cmax and recenters the edge coordinates. The axis must carry
// bounds.
func Sel(f *Field, canonical string, cmin, cmax float64) (*Field, error) {
	ax, pos, err := f.Axis(canonical)
	if err != nil {
		return nil, err
	}
	if ax.Bounds == nil {
		return nil, fmt.Errorf("gridbench: axis %q must have bounds to select on", ax.Name)
	}
	ilo, err := boundInterval(ax.Bounds, cmin, true)
	if err != nil {
		return nil, err
	}
	ihi, err := boundInterval(ax.Bounds, cmax, false)
	if err != nil {
		return nil, err
	}
	idx := make([]int, 0, ihi-ilo+1)
	for i := ilo; i <= ihi; i++ {
		idx = append(idx, i)
	}
	out := f.takeAlong(pos, idx)
	b := out.Axes[pos].Bounds
	b[0][0] = cmin
	b[len(b)-1][1] = cmax
	v := out.Axes[pos].Values
	v[0] = b[0][0] + 0.5*(b[0][1]-b[0][0])
	v[len(v)-1] = b[len(b)-1][0] + 0.5*(b[len(b)-1][1]-b[len(b)-1][0])
	return out, nil
}

// boundInterval locates the cell whose bounds contain value. When the value
// falls exactly on a shared edge two cells match; the low side of a slice
// takes the later one and the high side the earlier one.
func boundInterval(bounds [][2]float64, value float64, low bool) (int, error) {
	var hits []int
	for i, b := range bounds {
		if b[0] <= value && value <= b[1] {
			hits = append(hits, i)
		}
	}
	switch {
	case len(hits) == 0:
		return 0, fmt.Errorf("gridbench: value %g outside all coordinate bounds", value)
	case len(hits) > 1 && low:
		return hits[1], nil
	}
	return hits[0], nil
}

// sortAxis returns the field with the axis at pos sorted ascending, data
// permuted along with it. A no-op if the axis is already sorted.
func (f *Field) sortAxis(pos int) *Field {
	vals := f.Axes[pos].Values
	if sort.Float64sAreSorted(vals) {
		return f
	}
	perm := make([]int, len(vals))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool { return vals[perm[i]] < vals[perm[j]] })
	return f.takeAlong(pos, perm)
}

// takeAlong gathers the given indices along dimension pos, like taking
// rows out of a matrix, and subsets that axis's coordinates and bounds to
// match. Cached measures are not carried: the grid changed.
func (f *Field) takeAlong(pos int, idx []int) *Field {
	shape := make([]int, len(f.Data.Shape))
	copy(shape, f.Data.Shape)
	shape[pos] = len(idx)
	out := sparse.ZerosDense(shape...)
	inStrides := stridesOf(f.Data.Shape)
	ii := make([]int, len(shape))
	for flat := range out.Elements {
		unravel(flat, shape, ii)
		src := 0
		for d, v := range ii {
			if d == pos {
				v = idx[v]
			}
			src += v * inStrides[d]
		}
		out.Elements[flat] = f.Data.Elements[src]
	}
	axes := make([]*Axis, len(f.Axes))
	for i, ax := range f.Axes {
		if i != pos {
			axes[i] = ax.Copy()
			continue
		}
		na := &Axis{Name: ax.Name, Values: make([]float64, len(idx))}
		if ax.Bounds != nil {
			na.Bounds = make([][2]float64, len(idx))
		}
		for j, k := range idx {
			na.Values[j] = ax.Values[k]
			if ax.Bounds != nil {
				na.Bounds[j] = ax.Bounds[k]
			}
		}
		axes[i] = na
	}
	return &Field{Name: f.Name, Data: out, Axes: axes, Units: f.Units}
}

// resampleNearest moves the field onto new coordinates along the given
// canonical axis by nearest-neighbor lookup. No interpolation or averaging
// happens: every original value survives unmodified at its nearest new
// grid point. Bounds on the resampled axis are dropped since they no
// longer describe the cells.
func resampleNearest(f *Field, canonical string, newValues []float64) (*Field, error) {
	ax, pos, err := f.Axis(canonical)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(newValues))
	for i, v := range newValues {
		idx[i] = nearestIndex(ax.Values, v)
	}
	out := f.takeAlong(pos, idx)
	na := out.Axes[pos]
	na.Values = make([]float64, len(newValues))
	copy(na.Values, newValues)
	na.Bounds = nil
	return out, nil
}

// nearestIndex returns the index of the value in the ascending slice vals
// nearest to x, preferring the lower index on ties.
func nearestIndex(vals []float64, x float64) int {
	i := sort.SearchFloat64s(vals, x)
	if i == 0 {
		return 0
	}
	if i == len(vals) {
		return len(vals) - 1
	}
	if x-vals[i-1] <= vals[i]-x {
		return i - 1
	}
	return i
}

// stridesOf returns row-major strides for the given shape.
func stridesOf(shape []int) []int {
	str := make([]int, len(shape))
	s := 1
	for i := len(shape) - 1; i >= 0; i-- {
		str[i] = s
		s *= shape[i]
	}
	return str
}

// unravel decomposes a flat row-major index into idx, which must have
// len(shape) elements.
func unravel(flat int, shape []int, idx []int) {
	for i := len(shape) - 1; i >= 0; i-- {
		idx[i] = flat % shape[i]
		flat /= shape[i]
	}
}
