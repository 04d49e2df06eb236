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

	"github.com/ctessum/sparse"
)

// IntegrateTime returns the time integral of the field, or the weighted
// time mean when mean is set. Weights are the cached time measures when
// present, freshly computed otherwise. Sums carry unit(variable) ×
// unit(measure); means keep the variable's unit unchanged.
//
// Many analyses report the total of a quantity (mass of carbon) while
// others report the mean (temperature); the flag lets calling code read
// the same either way.
func IntegrateTime(f *Field, mean bool) (*Field, error) {
	name, err := f.AxisName("time")
	if err != nil {
		return nil, err
	}
	msr, ok := f.Measure(TimeMeasureKey)
	if !ok {
		if msr, err = TimeMeasure(f); err != nil {
			return nil, err
		}
	}
	out, err := f.reduceWeighted([]string{name}, msr, mean)
	if err != nil {
		return nil, err
	}
	if mean {
		out.Units = f.Units
	} else {
		out.Units = unitProduct(f.Units, msr.Units)
	}
	return out, nil
}

// StdTime returns the weighted standard deviation of the field in time,
// using the time measures as weights.
func StdTime(f *Field) (*Field, error) {
	name, err := f.AxisName("time")
	if err != nil {
		return nil, err
	}
	msr, ok := f.Measure(TimeMeasureKey)
	if !ok {
		if msr, err = TimeMeasure(f); err != nil {
			return nil, err
		}
	}
	mu, err := f.reduceWeighted([]string{name}, msr, true)
	if err != nil {
		return nil, err
	}
	out, err := f.reduceVariance([]string{name}, msr, mu)
	if err != nil {
		return nil, err
	}
	out.Units = f.Units
	return out, nil
}

// IntegrateSpace returns the spatial integral of the field over lat and
// lon, or the area-weighted mean when mean is set. A non-empty region
// label restricts the field to that region first; masked cells contribute
// zero weight rather than corrupting the sum.
func IntegrateSpace(f *Field, cat *RegionCatalog, region string, mean bool) (*Field, error) {
	if region != "" {
		if cat == nil {
			cat = DefaultRegions()
		}
		r, err := cat.Restrict(region, f)
		if err != nil {
			return nil, err
		}
		r.measures = f.measures
		f = r
	}
	latName, err := f.AxisName("lat")
	if err != nil {
		return nil, err
	}
	lonName, err := f.AxisName("lon")
	if err != nil {
		return nil, err
	}
	msr, ok := f.Measure(CellMeasureKey)
	if !ok {
		if msr, err = CellMeasure(f); err != nil {
			return nil, err
		}
	}
	out, err := f.reduceWeighted([]string{latName, lonName}, msr, mean)
	if err != nil {
		return nil, err
	}
	if mean {
		out.Units = f.Units
	} else {
		out.Units = unitProduct(f.Units, msr.Units)
	}
	return out, nil
}

// IntegrateDepth returns the depth integral of the field, or the
// depth-weighted mean when mean is set. The absence of a depth axis is a
// hard error. Weights are the depth bound widths, synthesized from the
// centroids when the axis has no bounds.
func IntegrateDepth(f *Field, mean bool) (*Field, error) {
	ax, _, err := f.Axis("depth")
	if err != nil {
		return nil, fmt.Errorf("%w: cannot integrate in depth without a depth axis", ErrMissingAxis)
	}
	bounds, err := cellBounds(ax)
	if err != nil {
		return nil, err
	}
	arr := sparse.ZerosDense(len(bounds))
	for i, b := range bounds {
		arr.Elements[i] = b[1] - b[0]
	}
	msr, err := NewField("depth_measures", arr, "m", ax.Copy())
	if err != nil {
		return nil, err
	}
	out, err := f.reduceWeighted([]string{ax.Name}, msr, mean)
	if err != nil {
		return nil, err
	}
	if mean {
		out.Units = f.Units
	} else {
		out.Units = unitProduct(f.Units, msr.Units)
	}
	return out, nil
}

// reduceWeighted reduces the field over the named axes with the given
// weight field, whose axes must be a subset of the field's. The result is
// the weighted sum, or the weighted sum over the summed weights when mean
// is set. NaN cells contribute neither value nor weight; an all-NaN mean
// is NaN.
func (f *Field) reduceWeighted(over []string, w *Field, mean bool) (*Field, error) {
	p, err := f.reductionPlan(over, w)
	if err != nil {
		return nil, err
	}
	sums := make([]float64, p.outSize)
	wsums := make([]float64, p.outSize)
	idx := make([]int, len(f.Data.Shape))
	for flat, v := range f.Data.Elements {
		if math.IsNaN(v) {
			continue
		}
		unravel(flat, f.Data.Shape, idx)
		wv := p.weightAt(idx)
		if math.IsNaN(wv) {
			continue
		}
		o := p.outFlat(idx)
		sums[o] += wv * v
		wsums[o] += wv
	}
	out := p.newOutput(f)
	for i := range sums {
		if mean {
			if wsums[i] == 0 {
				out.Data.Elements[i] = math.NaN()
			} else {
				out.Data.Elements[i] = sums[i] / wsums[i]
			}
		} else {
			out.Data.Elements[i] = sums[i]
		}
	}
	return out, nil
}

// reduceVariance reduces the field over the named axes to the weighted
// standard deviation around the supplied weighted means.
func (f *Field) reduceVariance(over []string, w, mu *Field) (*Field, error) {
	p, err := f.reductionPlan(over, w)
	if err != nil {
		return nil, err
	}
	sq := make([]float64, p.outSize)
	wsums := make([]float64, p.outSize)
	idx := make([]int, len(f.Data.Shape))
	for flat, v := range f.Data.Elements {
		if math.IsNaN(v) {
			continue
		}
		unravel(flat, f.Data.Shape, idx)
		wv := p.weightAt(idx)
		if math.IsNaN(wv) {
			continue
		}
		o := p.outFlat(idx)
		d := v - mu.Data.Elements[o]
		sq[o] += wv * d * d
		wsums[o] += wv
	}
	out := p.newOutput(f)
	for i := range sq {
		if wsums[i] == 0 {
			out.Data.Elements[i] = math.NaN()
		} else {
			out.Data.Elements[i] = math.Sqrt(sq[i] / wsums[i])
		}
	}
	return out, nil
}

// reductionPlan precomputes the index bookkeeping shared by the weighted
// reductions: how a field index maps into the weight array and into the
// reduced output array.
type reductionPlan struct {
	outDim     []int // field dim -> output dim, -1 when reduced away
	outStrides []int
	outAxes    []*Axis
	outSize    int
	wDims      []int // weight dim -> field dim
	wStrides   []int
	w          *Field
}

func (f *Field) reductionPlan(over []string, w *Field) (*reductionPlan, error) {
	reduced := make(map[string]bool, len(over))
	for _, name := range over {
		reduced[name] = true
	}
	p := &reductionPlan{w: w, outDim: make([]int, len(f.Axes))}
	var outShape []int
	for i, ax := range f.Axes {
		if reduced[ax.Name] {
			p.outDim[i] = -1
			continue
		}
		p.outDim[i] = len(outShape)
		outShape = append(outShape, len(ax.Values))
		p.outAxes = append(p.outAxes, ax.Copy())
	}
	p.outStrides = stridesOf(outShape)
	p.outSize = 1
	for _, s := range outShape {
		p.outSize *= s
	}
	p.wDims = make([]int, len(w.Axes))
	for i, wax := range w.Axes {
		found := -1
		for j, ax := range f.Axes {
			if ax.Name == wax.Name {
				found = j
				break
			}
		}
		if found < 0 || len(f.Axes[found].Values) != len(wax.Values) {
			return nil, fmt.Errorf("gridbench: weight axis %q does not match field %s", wax.Name, f.Name)
		}
		p.wDims[i] = found
	}
	p.wStrides = stridesOf(w.Data.Shape)
	return p, nil
}

func (p *reductionPlan) weightAt(idx []int) float64 {
	flat := 0
	for d, fd := range p.wDims {
		flat += idx[fd] * p.wStrides[d]
	}
	return p.w.Data.Elements[flat]
}

func (p *reductionPlan) outFlat(idx []int) int {
	flat := 0
	for d, od := range p.outDim {
		if od >= 0 {
			flat += idx[d] * p.outStrides[od]
		}
	}
	return flat
}

func (p *reductionPlan) newOutput(f *Field) *Field {
	shape := make([]int, len(p.outAxes))
	for i, ax := range p.outAxes {
		shape[i] = len(ax.Values)
	}
	return &Field{
		Name:  f.Name,
		Data:  sparse.ZerosDense(shape...),
		Axes:  p.outAxes,
		Units: f.Units,
	}
}
