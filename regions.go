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
	"sort"

	"github.com/ctessum/sparse"
)

// Region kinds.
const (
	regionBounds = iota
	regionRaster
)

// A Region is a named spatial subset of the globe, defined either by
// lat/lon bounds or by membership in an integer code raster.
type Region struct {
	Label  string
	Name   string
	Source string

	kind     int
	latRange [2]float64
	lonRange [2]float64
	codes    *Field // raster of integer codes, shared between its regions
	code     int
}

// A RegionCatalog maps labels to regions. It is an explicit value passed
// by the caller, not process-global state; it is mutable and not
// internally serialized, so concurrent registration must be guarded by
// the caller. Re-adding an existing label overwrites it.
type RegionCatalog struct {
	regions map[string]*Region
}

// NewRegionCatalog returns an empty catalog.
func NewRegionCatalog() *RegionCatalog {
	return &RegionCatalog{regions: make(map[string]*Region)}
}

// DefaultRegions returns a catalog seeded with the whole globe and the
// macro-regions of the Global Fire Emissions Database (GFED).
func DefaultRegions() *RegionCatalog {
	c := NewRegionCatalog()
	src := "gridbench internal"
	c.AddBounds("global", "Globe", [2]float64{-89.999, 89.999}, [2]float64{-179.999, 179.999}, src)
	c.AddBounds("globe", "Global - All", [2]float64{-89.999, 89.999}, [2]float64{-179.999, 179.999}, src)
	src = "Global Fire Emissions Database (GFED)"
	c.AddBounds("bona", "Boreal North America", [2]float64{49.75, 79.75}, [2]float64{-170.25, -60.25}, src)
	c.AddBounds("tena", "Temperate North America", [2]float64{30.25, 49.75}, [2]float64{-125.25, -66.25}, src)
	c.AddBounds("ceam", "Central America", [2]float64{9.75, 30.25}, [2]float64{-115.25, -80.25}, src)
	c.AddBounds("nhsa", "Northern Hemisphere South America", [2]float64{0.25, 12.75}, [2]float64{-80.25, -50.25}, src)
	c.AddBounds("shsa", "Southern Hemisphere South America", [2]float64{-59.75, 0.25}, [2]float64{-80.25, -33.25}, src)
	c.AddBounds("euro", "Europe", [2]float64{35.25, 70.25}, [2]float64{-10.25, 30.25}, src)
	c.AddBounds("mide", "Middle East", [2]float64{20.25, 40.25}, [2]float64{-10.25, 60.25}, src)
	c.AddBounds("nhaf", "Northern Hemisphere Africa", [2]float64{0.25, 20.25}, [2]float64{-20.25, 45.25}, src)
	c.AddBounds("shaf", "Southern Hemisphere Africa", [2]float64{-34.75, 0.25}, [2]float64{10.25, 45.25}, src)
	c.AddBounds("boas", "Boreal Asia", [2]float64{54.75, 70.25}, [2]float64{30.25, 179.75}, src)
	c.AddBounds("ceas", "Central Asia", [2]float64{30.25, 54.75}, [2]float64{30.25, 142.58}, src)
	c.AddBounds("seas", "Southeast Asia", [2]float64{5.25, 30.25}, [2]float64{65.25, 120.25}, src)
	c.AddBounds("eqas", "Equatorial Asia", [2]float64{-10.25, 10.25}, [2]float64{99.75, 150.25}, src)
	c.AddBounds("aust", "Australia", [2]float64{-41.25, -10.50}, [2]float64{112.00, 154.00}, src)
	return c
}

// Labels returns the registered region labels, sorted.
func (c *RegionCatalog) Labels() []string {
	labels := make([]string, 0, len(c.regions))
	for l := range c.regions {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Clone returns a catalog that can be extended without touching the
// original.
func (c *RegionCatalog) Clone() *RegionCatalog {
	o := NewRegionCatalog()
	for l, r := range c.regions {
		o.regions[l] = r
	}
	return o
}

// AddBounds registers a region defined by lat/lon ranges, overwriting any
// existing region with the same label.
func (c *RegionCatalog) AddBounds(label, name string, lats, lons [2]float64, source string) {
	c.regions[label] = &Region{
		Label:    label,
		Name:     name,
		Source:   source,
		kind:     regionBounds,
		latRange: lats,
		lonRange: lons,
	}
}

// An IntRaster is a 2D integer code array, dimensioned [lat][lon], with
// the names of its label and full-name lookup arrays.
type IntRaster struct {
	Data   [][]int
	Labels string // name of the lookup array holding region labels
	Names  string // name of the lookup array holding display names
}

// A RegionRaster is the in-memory form of a region-mask dataset as handed
// over by the external data-loading collaborator: candidate integer code
// arrays by name, plus 1D string lookup arrays by name.
type RegionRaster struct {
	Source  string
	Lat     []float64
	Lon     []float64
	Ints    map[string]*IntRaster
	Lookups map[string][]string
}

// AddRaster registers one region per code in the raster, overwriting
// existing labels, and returns the labels found. The code array is the one
// named "ids" when present, otherwise the sole integer array; zero or more
// than one candidate is an ambiguity error. Codes are indices into the
// label lookup array, whose length must match the number of distinct
// codes.
func (c *RegionCatalog) AddRaster(r *RegionRaster) ([]string, error) {
	ids, ok := r.Ints["ids"]
	if !ok {
		switch len(r.Ints) {
		case 0:
			return nil, fmt.Errorf("%w: found no 2d integer arrays in region source %s",
				ErrRegionAmbiguous, r.Source)
		case 1:
			for _, v := range r.Ints {
				ids = v
			}
		default:
			names := make([]string, 0, len(r.Ints))
			for n := range r.Ints {
				names = append(names, n)
			}
			sort.Strings(names)
			return nil, fmt.Errorf("%w: which 2d integer array to use as regions in %s: %v",
				ErrRegionAmbiguous, r.Source, names)
		}
	}
	labels, ok := r.Lookups[ids.Labels]
	if !ok {
		return nil, fmt.Errorf("%w: region source %s has no label lookup array %q",
			ErrRegionAmbiguous, r.Source, ids.Labels)
	}
	names, ok := r.Lookups[ids.Names]
	if !ok {
		return nil, fmt.Errorf("%w: region source %s has no name lookup array %q",
			ErrRegionAmbiguous, r.Source, ids.Names)
	}
	if len(names) != len(labels) {
		return nil, fmt.Errorf("%w: region source %s has %d labels but %d names",
			ErrRegionAmbiguous, r.Source, len(labels), len(names))
	}

	distinct := make(map[int]bool)
	arr := sparse.ZerosDense(len(r.Lat), len(r.Lon))
	for i, row := range ids.Data {
		for j, code := range row {
			distinct[code] = true
			arr.Elements[i*len(r.Lon)+j] = float64(code)
		}
	}
	if len(distinct) != len(labels) {
		return nil, fmt.Errorf("%w: region source %s has %d distinct codes for %d labels",
			ErrRegionAmbiguous, r.Source, len(distinct), len(labels))
	}
	codes, err := NewField("ids", arr, "",
		&Axis{Name: "lat", Values: r.Lat}, &Axis{Name: "lon", Values: r.Lon})
	if err != nil {
		return nil, err
	}
	for i, label := range labels {
		c.regions[label] = &Region{
			Label:  label,
			Name:   names[i],
			Source: r.Source,
			kind:   regionRaster,
			codes:  codes,
			code:   i,
		}
	}
	return labels, nil
}

// Name returns the display name of the labeled region.
func (c *RegionCatalog) Name(label string) (string, error) {
	r, ok := c.regions[label]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrRegionNotFound, label)
	}
	return r.Name, nil
}

// SourceOf returns the provenance of the labeled region.
func (c *RegionCatalog) SourceOf(label string) (string, error) {
	r, ok := c.regions[label]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrRegionNotFound, label)
	}
	return r.Source, nil
}

// Mask returns a field over the given field's lat/lon grid holding 1
// inside the labeled region and 0 outside. Raster regions are moved onto
// the field's grid by nearest-neighbor lookup.
func (c *RegionCatalog) Mask(label string, f *Field) (*Field, error) {
	r, ok := c.regions[label]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRegionNotFound, label)
	}
	latAx, _, err := f.Axis("lat")
	if err != nil {
		return nil, err
	}
	lonAx, _, err := f.Axis("lon")
	if err != nil {
		return nil, err
	}
	arr := sparse.ZerosDense(len(latAx.Values), len(lonAx.Values))
	switch r.kind {
	case regionBounds:
		for i, lat := range latAx.Values {
			for j, lon := range lonAx.Values {
				if lat >= r.latRange[0] && lat <= r.latRange[1] &&
					lon >= r.lonRange[0] && lon <= r.lonRange[1] {
					arr.Elements[i*len(lonAx.Values)+j] = 1
				}
			}
		}
	case regionRaster:
		codes, err := resampleNearest(r.codes, "lat", latAx.Values)
		if err != nil {
			return nil, err
		}
		codes, err = resampleNearest(codes, "lon", lonAx.Values)
		if err != nil {
			return nil, err
		}
		for i, code := range codes.Data.Elements {
			if int(code) == r.code {
				arr.Elements[i] = 1
			}
		}
	}
	return NewField("mask", arr, "", latAx.Copy(), lonAx.Copy())
}

// Restrict returns the field with NaN outside the labeled region, without
// changing its shape.
func (c *RegionCatalog) Restrict(label string, f *Field) (*Field, error) {
	mask, err := c.Mask(label, f)
	if err != nil {
		return nil, err
	}
	_, latPos, err := f.Axis("lat")
	if err != nil {
		return nil, err
	}
	_, lonPos, err := f.Axis("lon")
	if err != nil {
		return nil, err
	}
	nLon := len(mask.Axes[1].Values)
	out := f.Copy()
	idx := make([]int, len(f.Data.Shape))
	for flat := range out.Data.Elements {
		unravel(flat, f.Data.Shape, idx)
		if mask.Data.Elements[idx[latPos]*nLon+idx[lonPos]] == 0 {
			out.Data.Elements[flat] = math.NaN()
		}
	}
	return out, nil
}

// HasData reports whether the field holds any finite value inside the
// labeled region.
func (c *RegionCatalog) HasData(label string, f *Field) (bool, error) {
	r, err := c.Restrict(label, f)
	if err != nil {
		return false, err
	}
	for _, v := range r.Data.Elements {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return true, nil
		}
	}
	return false, nil
}
