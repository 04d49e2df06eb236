package gridbench

import (
	"math"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/require"
)

const Tolerance = 1.e-9

// diff reports whether the fractional difference between two numbers
// exceeds the tolerance.
func diff(val1, val2 float64) bool {
	if val1 == 0. && val2 == 0. {
		return false
	}
	return math.Abs((val1-val2)/(val1+val2)*2) > Tolerance
}

// sum adds up a field's raw values.
func sum(f *Field) float64 {
	var s float64
	for _, v := range f.Data.Elements {
		s += v
	}
	return s
}

// uniformAxis builds an axis with n coordinates starting at start with the
// given step, without bounds.
func uniformAxis(name string, start, step float64, n int) *Axis {
	v := make([]float64, n)
	for i := range v {
		v[i] = start + float64(i)*step
	}
	return &Axis{Name: name, Values: v}
}

// gridField builds a 2D lat/lon field filled with a constant value.
func gridField(t *testing.T, lat0, dlat float64, nlat int, lon0, dlon float64, nlon int, value float64, units string) *Field {
	t.Helper()
	arr := sparse.ZerosDense(nlat, nlon)
	for i := range arr.Elements {
		arr.Elements[i] = value
	}
	f, err := NewField("v", arr, units,
		uniformAxis("lat", lat0, dlat, nlat),
		uniformAxis("lon", lon0, dlon, nlon))
	require.NoError(t, err)
	return f
}

// globalGrid builds a global grid at the given resolution in degrees.
func globalGrid(t *testing.T, res, value float64, units string) *Field {
	t.Helper()
	nlat := int(math.Round(180 / res))
	nlon := int(math.Round(360 / res))
	return gridField(t, -90+res/2, res, nlat, -180+res/2, res, nlon, value, units)
}

// gradientGrid builds a 2D lat/lon field whose value at (i, j) is
// scale*(i*nlon+j) + offset.
func gradientGrid(t *testing.T, nlat, nlon int, scale, offset float64) *Field {
	t.Helper()
	arr := sparse.ZerosDense(nlat, nlon)
	for i := range arr.Elements {
		arr.Elements[i] = scale*float64(i) + offset
	}
	f, err := NewField("v", arr, "",
		uniformAxis("lat", 0.5, 1, nlat),
		uniformAxis("lon", 0.5, 1, nlon))
	require.NoError(t, err)
	return f
}
