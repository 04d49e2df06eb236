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

// EarthRadius is the spherical earth radius in meters used for cell areas.
const EarthRadius = 6.371e6

// TimeMeasure derives the width of each time step in days. Widths come
// from the time bounds when present. Otherwise they are synthesized from
// the coordinates: forward differences with the first and last gaps
// replicated, each point taking the running average of its neighboring
// gaps. A single time point without bounds has no defined width.
func TimeMeasure(f *Field) (*Field, error) {
	ax, _, err := f.Axis("time")
	if err != nil {
		return nil, err
	}
	n := len(ax.Values)
	w := make([]float64, n)
	if ax.Bounds != nil {
		for i, b := range ax.Bounds {
			w[i] = b[1] - b[0]
		}
	} else {
		if n < 2 {
			return nil, fmt.Errorf("%w: cannot estimate time measures from a single value without bounds",
				ErrMeasureUndefined)
		}
		delt := make([]float64, 0, n+1)
		delt = append(delt, ax.Values[1]-ax.Values[0])
		for i := 1; i < n; i++ {
			delt = append(delt, ax.Values[i]-ax.Values[i-1])
		}
		delt = append(delt, ax.Values[n-1]-ax.Values[n-2])
		for i := 0; i < n; i++ {
			w[i] = 0.5 * (delt[i] + delt[i+1])
		}
	}
	arr := sparse.ZerosDense(n)
	copy(arr.Elements, w)
	return NewField(TimeMeasureKey, arr, "d", ax.Copy())
}

// CellMeasure derives the spherical area of each lat/lon cell in m²,
// preferring the axis bounds and synthesizing them from centroid midpoints
// otherwise. The band formula is exact on the sphere:
// R²·(sin(lat_hi)−sin(lat_lo))·(lon_hi−lon_lo), longitudes in radians.
func CellMeasure(f *Field) (*Field, error) {
	latAx, _, err := f.Axis("lat")
	if err != nil {
		return nil, err
	}
	lonAx, _, err := f.Axis("lon")
	if err != nil {
		return nil, err
	}
	latB, err := cellBounds(latAx)
	if err != nil {
		return nil, err
	}
	lonB, err := cellBounds(lonAx)
	if err != nil {
		return nil, err
	}
	const degToRad = math.Pi / 180
	dy := make([]float64, len(latB))
	for i, b := range latB {
		dy[i] = math.Abs(EarthRadius * (math.Sin(b[1]*degToRad) - math.Sin(b[0]*degToRad)))
	}
	dx := make([]float64, len(lonB))
	for j, b := range lonB {
		dx[j] = math.Abs(EarthRadius * (b[1] - b[0]) * degToRad)
	}
	arr := sparse.ZerosDense(len(dy), len(dx))
	for i := range dy {
		for j := range dx {
			arr.Elements[i*len(dx)+j] = dy[i] * dx[j]
		}
	}
	return NewField(CellMeasureKey, arr, "m2", latAx.Copy(), lonAx.Copy())
}

// cellBounds returns per-cell [lo, hi] intervals for the axis, taking the
// explicit bounds when present and synthesizing them from the centroids
// otherwise.
func cellBounds(ax *Axis) ([][2]float64, error) {
	if ax.Bounds != nil {
		b := make([][2]float64, len(ax.Bounds))
		copy(b, ax.Bounds)
		return b, nil
	}
	edges, err := centroidEdges(ax.Values)
	if err != nil {
		return nil, fmt.Errorf("%w: axis %q", err, ax.Name)
	}
	b := make([][2]float64, len(ax.Values))
	for i := range b {
		b[i] = [2]float64{edges[i], edges[i+1]}
	}
	return b, nil
}

// axisEdges returns the n+1 cell boundary edges of the axis, from the
// explicit bounds when present and from centroid midpoints otherwise.
func axisEdges(ax *Axis) ([]float64, error) {
	if ax.Bounds != nil {
		edges := make([]float64, 0, len(ax.Bounds)+1)
		for _, b := range ax.Bounds {
			edges = append(edges, b[0])
		}
		edges = append(edges, ax.Bounds[len(ax.Bounds)-1][1])
		return edges, nil
	}
	return centroidEdges(ax.Values)
}

// centroidEdges synthesizes n+1 cell edges from n centroids: interior
// edges at the midpoints of adjacent centroids, the outer edges
// extrapolated by half the adjacent spacing.
func centroidEdges(v []float64) ([]float64, error) {
	n := len(v)
	if n < 2 {
		return nil, fmt.Errorf("%w: cannot synthesize bounds from fewer than two coordinates",
			ErrMeasureUndefined)
	}
	edges := make([]float64, n+1)
	edges[0] = v[0] - 0.5*(v[1]-v[0])
	for i := 1; i < n; i++ {
		edges[i] = 0.5 * (v[i-1] + v[i])
	}
	edges[n] = v[n-1] + 0.5*(v[n-1]-v[n-2])
	return edges, nil
}
