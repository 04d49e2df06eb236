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
	"math"

	"github.com/ctessum/sparse"
)

// Coarsen resamples the field to the target spatial resolution in degrees
// while conserving the area-weighted integral. Fine cells are integrated
// (value × area) over block tiles, and the summed mass is divided by cell
// areas computed independently at the coarse resolution; the
// integrate-then-divide order is what preserves the total, as opposed to a
// plain block average. Incomplete boundary tiles are padded with zero
// weight: a partial tile sums only the fine cells it has.
//
// A coarse cell is valid only when at least one contributing fine cell
// held valid data; otherwise it is NaN. The coarse cell areas are cached
// on the result under CellMeasureKey so later integrals use the same
// measure that the reconstruction divided by.
func Coarsen(f *Field, res float64) (*Field, error) {
	latAx, latPos, err := f.Axis("lat")
	if err != nil {
		return nil, err
	}
	lonAx, lonPos, err := f.Axis("lon")
	if err != nil {
		return nil, err
	}
	factor := blockFactor(latAx.Values, res)

	msr, ok := f.Measure(CellMeasureKey)
	if !ok {
		if msr, err = CellMeasure(f); err != nil {
			return nil, err
		}
	}

	latC := blockMeans(latAx.Values, factor)
	lonC := blockMeans(lonAx.Values, factor)

	outShape := make([]int, len(f.Data.Shape))
	copy(outShape, f.Data.Shape)
	outShape[latPos] = len(latC)
	outShape[lonPos] = len(lonC)
	outStrides := stridesOf(outShape)

	// Coarse cell areas at the new resolution, independent of the fine grid.
	grid, err := NewField("", sparse.ZerosDense(len(latC), len(lonC)), "",
		&Axis{Name: latAx.Name, Values: latC},
		&Axis{Name: lonAx.Name, Values: lonC})
	if err != nil {
		return nil, err
	}
	coarseMsr, err := CellMeasure(grid)
	if err != nil {
		return nil, err
	}

	mass := make([]float64, size(outShape))
	valid := make([]int, size(outShape))
	mStrides := stridesOf(msr.Data.Shape)
	mLat, mLon := msr.axisPos(latAx.Name), msr.axisPos(lonAx.Name)

	idx := make([]int, len(f.Data.Shape))
	for flat, v := range f.Data.Elements {
		if math.IsNaN(v) {
			continue
		}
		unravel(flat, f.Data.Shape, idx)
		m := msr.Data.Elements[idx[latPos]*mStrides[mLat]+idx[lonPos]*mStrides[mLon]]
		o := 0
		for d, i := range idx {
			switch d {
			case latPos, lonPos:
				o += (i / factor) * outStrides[d]
			default:
				o += i * outStrides[d]
			}
		}
		mass[o] += v * m
		valid[o]++
	}

	axes := make([]*Axis, len(f.Axes))
	for i, ax := range f.Axes {
		switch i {
		case latPos:
			axes[i] = &Axis{Name: latAx.Name, Values: latC}
		case lonPos:
			axes[i] = &Axis{Name: lonAx.Name, Values: lonC}
		default:
			axes[i] = ax.Copy()
		}
	}
	out := &Field{Name: f.Name, Data: sparse.ZerosDense(outShape...), Axes: axes, Units: f.Units}
	cStrides := stridesOf(coarseMsr.Data.Shape)
	oidx := make([]int, len(outShape))
	for flat := range out.Data.Elements {
		if valid[flat] == 0 {
			out.Data.Elements[flat] = math.NaN()
			continue
		}
		unravel(flat, outShape, oidx)
		area := coarseMsr.Data.Elements[oidx[latPos]*cStrides[0]+oidx[lonPos]*cStrides[1]]
		out.Data.Elements[flat] = mass[flat] / area
	}
	out.SetMeasure(CellMeasureKey, coarseMsr)
	return out, nil
}

// blockFactor is the number of fine cells per coarse cell, from the ratio
// of the target resolution to the mean fine latitude spacing.
func blockFactor(lat []float64, res float64) int {
	if len(lat) < 2 {
		return 1
	}
	mean := (lat[len(lat)-1] - lat[0]) / float64(len(lat)-1)
	factor := int(math.Round(res / math.Abs(mean)))
	if factor < 1 {
		factor = 1
	}
	return factor
}

// blockMeans averages consecutive runs of factor values; a trailing
// partial run averages what remains.
func blockMeans(v []float64, factor int) []float64 {
	var out []float64
	for i := 0; i < len(v); i += factor {
		j := i + factor
		if j > len(v) {
			j = len(v)
		}
		sum := 0.0
		for _, x := range v[i:j] {
			sum += x
		}
		out = append(out, sum/float64(j-i))
	}
	return out
}

// axisPos returns the position of the literally-named axis, or -1.
func (f *Field) axisPos(name string) int {
	for i, ax := range f.Axes {
		if ax.Name == name {
			return i
		}
	}
	return -1
}

// size is the number of elements in an array of the given shape.
func size(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
