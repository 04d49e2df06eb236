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
	"sort"

	"gonum.org/v1/gonum/floats"
)

const (
	// trimPadDays pads the shared time window on both ends.
	trimPadDays = 1.0
	// alignTol is the absolute coordinate tolerance for grid equality.
	alignTol = 1e-5
	// edgeTol collapses duplicate cell edges when unioning grids.
	edgeTol = 1e-9
)

// TimeExtent returns the [min, max] time extent of the field in days,
// preferring the bounds over the point coordinates.
func TimeExtent(f *Field) (tmin, tmax float64, err error) {
	ax, _, err := f.Axis("time")
	if err != nil {
		return 0, 0, err
	}
	if ax.Bounds != nil && len(ax.Bounds) > 0 {
		return ax.Bounds[0][0], ax.Bounds[len(ax.Bounds)-1][1], nil
	}
	if len(ax.Values) == 0 {
		return math.Inf(1), math.Inf(-1), nil
	}
	return ax.Values[0], ax.Values[len(ax.Values)-1], nil
}

// TrimTime slices both fields to their maximal shared time window, padded
// by one day on each end. Fields without a time axis pass through
// unchanged. A pair with no temporal overlap comes back with empty time
// axes on both sides; that is for the caller to judge, not an error here.
func TrimTime(a, b *Field) (*Field, *Field, error) {
	if !a.HasAxis("time") || !b.HasAxis("time") {
		return a, b, nil
	}
	a0, af, err := TimeExtent(a)
	if err != nil {
		return nil, nil, err
	}
	b0, bf, err := TimeExtent(b)
	if err != nil {
		return nil, nil, err
	}
	t0 := math.Max(a0, b0) - trimPadDays
	t1 := math.Min(af, bf) + trimPadDays
	at, err := a.SelectRange("time", t0, t1)
	if err != nil {
		return nil, nil, err
	}
	bt, err := b.SelectRange("time", t0, t1)
	if err != nil {
		return nil, nil, err
	}
	return at, bt, nil
}

// SpatiallyAligned reports whether two fields share a grid: equal lat and
// lon sizes with coordinates agreeing within an absolute tolerance.
func SpatiallyAligned(a, b *Field) bool {
	alat, _, err := a.Axis("lat")
	if err != nil {
		return false
	}
	blat, _, err := b.Axis("lat")
	if err != nil {
		return false
	}
	alon, _, err := a.Axis("lon")
	if err != nil {
		return false
	}
	blon, _, err := b.Axis("lon")
	if err != nil {
		return false
	}
	if len(alat.Values) != len(blat.Values) || len(alon.Values) != len(blon.Values) {
		return false
	}
	return floats.EqualApprox(alat.Values, blat.Values, alignTol) &&
		floats.EqualApprox(alon.Values, blon.Values, alignTol)
}

// NestGrids resamples all fields onto their nested union grid. For each
// spatial axis the cell boundary edges of every input (explicit bounds, or
// synthesized from centroids) are unioned, and the new coordinates are the
// midpoints of consecutive union edges. Inputs are moved onto the union
// grid by nearest-neighbor lookup only, never interpolation, so no values
// are invented between sources of differing resolution.
func NestGrids(fields ...*Field) ([]*Field, error) {
	out := make([]*Field, len(fields))
	copy(out, fields)
	for _, canonical := range []string{"lat", "lon"} {
		var union []float64
		for _, f := range out {
			ax, _, err := f.Axis(canonical)
			if err != nil {
				return nil, err
			}
			edges, err := axisEdges(ax)
			if err != nil {
				return nil, err
			}
			union = append(union, edges...)
		}
		sort.Float64s(union)
		edges := dedupSorted(union, edgeTol)
		mids := make([]float64, len(edges)-1)
		for i := range mids {
			mids[i] = 0.5 * (edges[i] + edges[i+1])
		}
		for i, f := range out {
			g, err := resampleNearest(f, canonical, mids)
			if err != nil {
				return nil, err
			}
			out[i] = g
		}
	}
	return out, nil
}

// dedupSorted removes near-duplicate values from a sorted slice.
func dedupSorted(v []float64, tol float64) []float64 {
	if len(v) == 0 {
		return v
	}
	out := v[:1]
	for _, x := range v[1:] {
		if x-out[len(out)-1] > tol {
			out = append(out, x)
		}
	}
	return out
}

// PickGridAligned returns a grid-aligned version of the raw pair (ref0,
// com0) without recomputing an expensive nesting when one is not needed:
// the raw pair itself when already aligned, a previously nested pair when
// supplied and still aligned, and a fresh nesting otherwise. The fallback
// to recomputation is a normal branch, not an error.
func PickGridAligned(ref0, com0, ref, com *Field) (*Field, *Field, error) {
	if SpatiallyAligned(ref0, com0) {
		return ref0, com0, nil
	}
	if ref != nil && com != nil && SpatiallyAligned(ref, com) {
		return ref, com, nil
	}
	nested, err := NestGrids(ref0, com0)
	if err != nil {
		return nil, nil, err
	}
	return nested[0], nested[1], nil
}

// MakeComparable makes two arbitrarily-gridded, arbitrarily-unitized
// fields mutually comparable: trim to the shared time window, convert the
// comparison field to the reference's unit, put longitudes on one
// convention, and align the grids.
func MakeComparable(ref, com *Field) (*Field, *Field, error) {
	ref, com, err := TrimTime(ref, com)
	if err != nil {
		return nil, nil, err
	}
	com, err = Convert(com, ref.Units)
	if err != nil {
		return nil, nil, err
	}
	ref, com = AdjustLon(ref, com)
	if !ref.HasAxis("lat") || !ref.HasAxis("lon") ||
		!com.HasAxis("lat") || !com.HasAxis("lon") {
		// Site or scalar data has no grid to align.
		return ref, com, nil
	}
	return PickGridAligned(ref, com, nil, nil)
}
