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
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Defaults for building functional responses.
const (
	// DefaultBins is the number of histogram bins in each dimension.
	DefaultBins = 25
	// DefaultMinBinFraction is the fraction of samples an independent-axis
	// bin needs before it enters the functional response.
	DefaultMinBinFraction = 3e-3
)

// A Relationship pairs a dependent with an independent field (optionally a
// third color channel) on exactly matching grids, for studying the
// functional dependence of one variable on another. The inputs are
// immutable once constructed; derived state is built separately with
// Limits and BuildResponse.
type Relationship struct {
	Dep, Ind, Color *Field
	DepLog, IndLog  bool
	DepLabel        string
	IndLabel        string
}

// NewRelationship validates and masks the input fields: every axis is
// sorted ascending, the fields must align exactly (coordinates equal, not
// merely within tolerance), and cells where any input is non-finite are
// masked from all of them. A log-scaled axis requires strictly positive
// values.
func NewRelationship(dep, ind, color *Field, depLog, indLog bool) (*Relationship, error) {
	dep, ind = dep.Copy(), ind.Copy()
	for pos := range dep.Axes {
		dep = dep.sortAxis(pos)
	}
	for pos := range ind.Axes {
		ind = ind.sortAxis(pos)
	}
	if color != nil {
		color = color.Copy()
		for pos := range color.Axes {
			color = color.sortAxis(pos)
		}
	}
	if err := exactlyAligned(dep, ind); err != nil {
		return nil, err
	}
	if color != nil {
		if err := exactlyAligned(dep, color); err != nil {
			return nil, err
		}
	}

	for i := range dep.Data.Elements {
		keep := isFinite(dep.Data.Elements[i]) && isFinite(ind.Data.Elements[i])
		if color != nil {
			keep = keep && isFinite(color.Data.Elements[i])
		}
		if !keep {
			dep.Data.Elements[i] = math.NaN()
			ind.Data.Elements[i] = math.NaN()
			if color != nil {
				color.Data.Elements[i] = math.NaN()
			}
		}
	}
	if depLog {
		if err := requirePositive(dep); err != nil {
			return nil, err
		}
	}
	if indLog {
		if err := requirePositive(ind); err != nil {
			return nil, err
		}
	}
	return &Relationship{
		Dep: dep, Ind: ind, Color: color,
		DepLog: depLog, IndLog: indLog,
		DepLabel: dep.Name, IndLabel: ind.Name,
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func requirePositive(f *Field) error {
	for _, v := range f.Data.Elements {
		if isFinite(v) && v <= 0 {
			return fmt.Errorf("%w: %s holds %g on a log-scaled axis", ErrNonPositiveLog, f.Name, v)
		}
	}
	return nil
}

// exactlyAligned errors unless the two fields share identical axis names
// and coordinate values.
func exactlyAligned(a, b *Field) error {
	if len(a.Axes) != len(b.Axes) {
		return fmt.Errorf("gridbench: fields %s and %s have different dimensions", a.Name, b.Name)
	}
	for i, ax := range a.Axes {
		bx := b.Axes[i]
		if ax.Name != bx.Name || len(ax.Values) != len(bx.Values) {
			return fmt.Errorf("gridbench: fields %s and %s are not exactly aligned on %q",
				a.Name, b.Name, ax.Name)
		}
		for j, v := range ax.Values {
			if v != bx.Values[j] {
				return fmt.Errorf("gridbench: fields %s and %s are not exactly aligned on %q",
					a.Name, b.Name, ax.Name)
			}
		}
	}
	return nil
}

// Limits are the value ranges over which a response is binned.
type Limits struct {
	Dep [2]float64
	Ind [2]float64
}

// Limits returns the per-axis [min, max] ranges of the relationship,
// expanded by 1e-8 of the range so binning never clips the extremes. When
// other is non-nil the result is the elementwise union of both
// relationships' limits, letting two responses share one binning scheme.
func (r *Relationship) Limits(other *Relationship) Limits {
	lim := Limits{Dep: valueRange(r.Dep), Ind: valueRange(r.Ind)}
	if other != nil {
		olim := other.Limits(nil)
		lim.Dep[0] = math.Min(lim.Dep[0], olim.Dep[0])
		lim.Dep[1] = math.Max(lim.Dep[1], olim.Dep[1])
		lim.Ind[0] = math.Min(lim.Ind[0], olim.Ind[0])
		lim.Ind[1] = math.Max(lim.Ind[1], olim.Ind[1])
	}
	return lim
}

func valueRange(f *Field) [2]float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range f.Data.Elements {
		if !isFinite(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	delta := 1e-8 * (hi - lo)
	return [2]float64{lo - delta, hi + delta}
}

// A Response is the immutable derived state of a relationship: a joint
// density histogram of (independent, dependent) and the per-bin functional
// response of the dependent variable. Mean and Std are NaN in bins whose
// population fraction fell below the threshold.
type Response struct {
	Dist     *sparse.DenseArray // density, dimensioned [dep bin][ind bin]
	IndEdges []float64
	DepEdges []float64
	Mean     []float64
	Std      []float64
	Count    []float64
}

// BuildResponse bins the relationship over the given limits into an
// nbin×nbin joint density plus a per-independent-bin mean and standard
// deviation of the dependent variable. Log-scaled axes get log-spaced bin
// edges, and a log-scaled dependent has its bin statistics computed in
// log space and exponentiated back. Bins holding less than eps of the
// samples are masked from the functional response.
func (r *Relationship) BuildResponse(lim Limits, nbin int, eps float64) (*Response, error) {
	if nbin <= 0 {
		nbin = DefaultBins
	}
	if eps <= 0 {
		eps = DefaultMinBinFraction
	}
	indEdges, err := binEdges(lim.Ind, nbin, r.IndLog)
	if err != nil {
		return nil, err
	}
	depEdges, err := binEdges(lim.Dep, nbin, r.DepLog)
	if err != nil {
		return nil, err
	}

	var ind, dep []float64
	for i, v := range r.Ind.Data.Elements {
		d := r.Dep.Data.Elements[i]
		if isFinite(v) && isFinite(d) {
			ind = append(ind, v)
			dep = append(dep, d)
		}
	}

	resp := &Response{
		Dist:     sparse.ZerosDense(nbin, nbin),
		IndEdges: indEdges,
		DepEdges: depEdges,
		Mean:     make([]float64, nbin),
		Std:      make([]float64, nbin),
		Count:    make([]float64, nbin),
	}
	perBin := make([][]float64, nbin)
	for k := range ind {
		i := binIndex(indEdges, ind[k])
		j := binIndex(depEdges, dep[k])
		resp.Dist.Elements[j*nbin+i]++
		resp.Count[i]++
		perBin[i] = append(perBin[i], dep[k])
	}
	total := float64(len(ind))
	if total > 0 {
		for i, v := range resp.Dist.Elements {
			resp.Dist.Elements[i] = v / total
		}
	}
	for i, vals := range perBin {
		if resp.Count[i] == 0 || resp.Count[i]/total < eps {
			resp.Mean[i] = math.NaN()
			resp.Std[i] = math.NaN()
			continue
		}
		if r.DepLog {
			logs := make([]float64, len(vals))
			for k, v := range vals {
				logs[k] = math.Log10(v)
			}
			resp.Mean[i] = math.Pow(10, stat.Mean(logs, nil))
			resp.Std[i] = math.Pow(10, stat.PopStdDev(logs, nil))
		} else {
			resp.Mean[i] = stat.Mean(vals, nil)
			resp.Std[i] = stat.PopStdDev(vals, nil)
		}
	}
	return resp, nil
}

// binEdges returns nbin+1 edges over lim, log-spaced when log is set.
func binEdges(lim [2]float64, nbin int, log bool) ([]float64, error) {
	edges := make([]float64, nbin+1)
	if log {
		if lim[0] <= 0 {
			return nil, fmt.Errorf("%w: limit %g on a log-scaled axis", ErrNonPositiveLog, lim[0])
		}
		lo, hi := math.Log10(lim[0]), math.Log10(lim[1])
		for i := range edges {
			edges[i] = math.Pow(10, lo+(hi-lo)*float64(i)/float64(nbin))
		}
		return edges, nil
	}
	for i := range edges {
		edges[i] = lim[0] + (lim[1]-lim[0])*float64(i)/float64(nbin)
	}
	return edges, nil
}

// binIndex places x into its right-open bin [edges[k], edges[k+1]), so a
// sample exactly on an interior edge belongs to the bin above it. Values
// outside the edges clamp into the first or last bin.
func binIndex(edges []float64, x float64) int {
	n := len(edges) - 1
	i := sort.Search(len(edges), func(k int) bool { return edges[k] > x }) - 1
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

// Score compares two functional responses over the bins unmasked in both:
// exp(−‖mean_a − mean_b‖₂ / ‖mean_a‖₂), in (0,1] with 1 meaning
// identical responses.
func (a *Response) Score(b *Response) float64 {
	var diff, self []float64
	n := len(a.Mean)
	if len(b.Mean) < n {
		n = len(b.Mean)
	}
	for i := 0; i < n; i++ {
		if math.IsNaN(a.Mean[i]) || math.IsNaN(b.Mean[i]) {
			continue
		}
		diff = append(diff, a.Mean[i]-b.Mean[i])
		self = append(self, a.Mean[i])
	}
	selfNorm := floats.Norm(self, 2)
	diffNorm := floats.Norm(diff, 2)
	if diffNorm == 0 {
		return 1
	}
	if selfNorm == 0 {
		// An all-zero reference response leaves no scale to normalize by;
		// the difference's own magnitude stands in so the score stays in
		// (0, 1].
		selfNorm = diffNorm
	}
	return math.Exp(-diffNorm / selfNorm)
}

// A Record is one row of the flat result set handed to downstream
// reporting: the fixed column contract is source, region, analysis, name,
// type, units, value.
type Record struct {
	Source   string
	Region   string
	Analysis string
	Name     string
	Type     string
	Units    string
	Value    float64
}

// A RelationshipAnalysis scores how well a comparison source reproduces
// the reference's functional response between two variables, per region.
type RelationshipAnalysis struct {
	DepName string
	IndName string
	DepLog  bool
	IndLog  bool

	// Catalog supplies the region masks; DefaultRegions when nil.
	Catalog *RegionCatalog
	// Regions to analyze; the empty label means the unrestricted whole
	// domain, and an empty list means only that.
	Regions []string

	Bins           int
	MinBinFraction float64
}

// Run makes each variable pair comparable, then for every requested
// region restricts both sources, builds the two relationships on pooled
// limits and identical binning, and scores them. One record per region.
func (ra *RelationshipAnalysis) Run(refDep, refInd, comDep, comInd *Field) ([]Record, error) {
	refDep, comDep, err := MakeComparable(refDep, comDep)
	if err != nil {
		return nil, err
	}
	refInd, comInd, err = MakeComparable(refInd, comInd)
	if err != nil {
		return nil, err
	}
	cat := ra.Catalog
	if cat == nil {
		cat = DefaultRegions()
	}
	regions := ra.Regions
	if len(regions) == 0 {
		regions = []string{""}
	}
	var records []Record
	for _, region := range regions {
		rd, ri, cd, ci := refDep, refInd, comDep, comInd
		if region != "" {
			if rd, err = cat.Restrict(region, rd); err != nil {
				return nil, err
			}
			if ri, err = cat.Restrict(region, ri); err != nil {
				return nil, err
			}
			if cd, err = cat.Restrict(region, cd); err != nil {
				return nil, err
			}
			if ci, err = cat.Restrict(region, ci); err != nil {
				return nil, err
			}
		}
		relRef, err := NewRelationship(rd, ri, nil, ra.DepLog, ra.IndLog)
		if err != nil {
			return nil, err
		}
		relCom, err := NewRelationship(cd, ci, nil, ra.DepLog, ra.IndLog)
		if err != nil {
			return nil, err
		}
		lim := relRef.Limits(relCom)
		respRef, err := relRef.BuildResponse(lim, ra.Bins, ra.MinBinFraction)
		if err != nil {
			return nil, err
		}
		respCom, err := relCom.BuildResponse(lim, ra.Bins, ra.MinBinFraction)
		if err != nil {
			return nil, err
		}
		records = append(records, Record{
			Source:   "Comparison",
			Region:   region,
			Analysis: "Relationship",
			Name:     fmt.Sprintf("Score %s vs %s", ra.DepName, ra.IndName),
			Type:     "score",
			Units:    "",
			Value:    respRef.Score(respCom),
		})
	}
	return records, nil
}
