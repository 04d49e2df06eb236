package gridbench

import (
	"math"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/require"
)

func TestIntegrateTimeSum(t *testing.T) {
	arr := sparse.ZerosDense(3)
	copy(arr.Elements, []float64{1, 2, 3})
	f, err := NewField("mass_flux", arr, "kg d-1", &Axis{
		Name:   "time",
		Values: []float64{15, 45, 76},
		Bounds: [][2]float64{{0, 31}, {31, 59}, {59, 90}},
	})
	require.NoError(t, err)

	got, err := IntegrateTime(f, false)
	require.NoError(t, err)
	require.Empty(t, got.Axes)
	require.Equal(t, "(kg d-1)*(d)", got.Units)
	// 1*31 + 2*28 + 3*31 = 180.
	if diff(got.Data.Elements[0], 180) {
		t.Errorf("time integral %v, want 180", got.Data.Elements[0])
	}
}

func TestIntegrateTimeMean(t *testing.T) {
	arr := sparse.ZerosDense(2)
	copy(arr.Elements, []float64{10, 20})
	f, err := NewField("t2m", arr, "K", &Axis{
		Name:   "time",
		Values: []float64{5, 25},
		Bounds: [][2]float64{{0, 10}, {10, 40}},
	})
	require.NoError(t, err)

	got, err := IntegrateTime(f, true)
	require.NoError(t, err)
	require.Equal(t, "K", got.Units)
	// (10*10 + 20*30) / 40 = 17.5.
	if diff(got.Data.Elements[0], 17.5) {
		t.Errorf("time mean %v, want 17.5", got.Data.Elements[0])
	}
}

func TestIntegrateTimePrefersCachedMeasure(t *testing.T) {
	arr := sparse.ZerosDense(2)
	copy(arr.Elements, []float64{1, 1})
	f, err := NewField("v", arr, "K", uniformAxis("time", 0, 10, 2))
	require.NoError(t, err)

	w := sparse.ZerosDense(2)
	copy(w.Elements, []float64{1, 3})
	msr, err := NewField(TimeMeasureKey, w, "d", f.Axes[0].Copy())
	require.NoError(t, err)
	f.SetMeasure(TimeMeasureKey, msr)

	got, err := IntegrateTime(f, false)
	require.NoError(t, err)
	// Cached weights 1+3, not the synthesized 10+10.
	if diff(got.Data.Elements[0], 4) {
		t.Errorf("integral %v, want 4 from cached measures", got.Data.Elements[0])
	}
}

func TestIntegrateTimeKeepsSpace(t *testing.T) {
	arr := sparse.ZerosDense(2, 3)
	for i := range arr.Elements {
		arr.Elements[i] = float64(i + 1)
	}
	f, err := NewField("v", arr, "K",
		uniformAxis("time", 0, 1, 2), uniformAxis("lat", 0.5, 1, 3))
	require.NoError(t, err)

	got, err := IntegrateTime(f, true)
	require.NoError(t, err)
	require.Len(t, got.Axes, 1)
	require.Equal(t, "lat", got.Axes[0].Name)
	// Equal weights, so the mean over time of columns {1,4},{2,5},{3,6}.
	want := []float64{2.5, 3.5, 4.5}
	for i, w := range want {
		if diff(got.Data.Elements[i], w) {
			t.Errorf("column %d: got %v want %v", i, got.Data.Elements[i], w)
		}
	}
}

func TestStdTime(t *testing.T) {
	arr := sparse.ZerosDense(4)
	copy(arr.Elements, []float64{1, 3, 1, 3})
	f, err := NewField("v", arr, "K", uniformAxis("time", 0, 1, 4))
	require.NoError(t, err)

	got, err := StdTime(f)
	require.NoError(t, err)
	require.Equal(t, "K", got.Units)
	// Equal weights around mean 2: population std is 1.
	if diff(got.Data.Elements[0], 1) {
		t.Errorf("std %v, want 1", got.Data.Elements[0])
	}
}

func TestIntegrateSpaceGlobal(t *testing.T) {
	f := globalGrid(t, 2, 3, "kg m-2")

	total, err := IntegrateSpace(f, nil, "", false)
	require.NoError(t, err)
	require.Equal(t, "(kg m-2)*(m2)", total.Units)
	want := 3 * 4 * math.Pi * EarthRadius * EarthRadius
	if diff(total.Data.Elements[0], want) {
		t.Errorf("global integral %.8e, want %.8e", total.Data.Elements[0], want)
	}

	mean, err := IntegrateSpace(f, nil, "", true)
	require.NoError(t, err)
	require.Equal(t, "kg m-2", mean.Units)
	if diff(mean.Data.Elements[0], 3) {
		t.Errorf("global mean %v, want 3", mean.Data.Elements[0])
	}
}

func TestIntegrateSpaceRegion(t *testing.T) {
	f := globalGrid(t, 2, 1, "")
	cat := NewRegionCatalog()
	cat.AddBounds("nh", "Northern Hemisphere", [2]float64{0, 90}, [2]float64{-180, 180}, "test")

	mean, err := IntegrateSpace(f, cat, "nh", true)
	require.NoError(t, err)
	if diff(mean.Data.Elements[0], 1) {
		t.Errorf("restricted mean %v, want 1", mean.Data.Elements[0])
	}

	total, err := IntegrateSpace(f, cat, "nh", false)
	require.NoError(t, err)
	// Half the sphere.
	want := 2 * math.Pi * EarthRadius * EarthRadius
	if diff(total.Data.Elements[0], want) {
		t.Errorf("restricted integral %.8e, want %.8e", total.Data.Elements[0], want)
	}

	_, err = IntegrateSpace(f, cat, "mars", true)
	require.ErrorIs(t, err, ErrRegionNotFound)
}

func TestIntegrateSpaceSkipsNaN(t *testing.T) {
	f := globalGrid(t, 30, 5, "")
	f.Data.Elements[0] = math.NaN()

	mean, err := IntegrateSpace(f, nil, "", true)
	require.NoError(t, err)
	// The remaining cells are all 5, so masking one cannot move the mean.
	if diff(mean.Data.Elements[0], 5) {
		t.Errorf("mean with NaN %v, want 5", mean.Data.Elements[0])
	}

	for i := range f.Data.Elements {
		f.Data.Elements[i] = math.NaN()
	}
	mean, err = IntegrateSpace(f, nil, "", true)
	require.NoError(t, err)
	require.True(t, math.IsNaN(mean.Data.Elements[0]))
	total, err := IntegrateSpace(f, nil, "", false)
	require.NoError(t, err)
	require.Equal(t, 0.0, total.Data.Elements[0])
}

func TestIntegrateDepth(t *testing.T) {
	arr := sparse.ZerosDense(3)
	copy(arr.Elements, []float64{2, 4, 6})
	f, err := NewField("soilc", arr, "kg m-3", &Axis{
		Name:   "depth",
		Values: []float64{0.05, 0.2, 0.6},
		Bounds: [][2]float64{{0, 0.1}, {0.1, 0.3}, {0.3, 0.9}},
	})
	require.NoError(t, err)

	got, err := IntegrateDepth(f, false)
	require.NoError(t, err)
	require.Equal(t, "(kg m-3)*(m)", got.Units)
	// 2*0.1 + 4*0.2 + 6*0.6 = 4.6.
	if diff(got.Data.Elements[0], 4.6) {
		t.Errorf("depth integral %v, want 4.6", got.Data.Elements[0])
	}

	mean, err := IntegrateDepth(f, true)
	require.NoError(t, err)
	require.Equal(t, "kg m-3", mean.Units)
	if diff(mean.Data.Elements[0], 4.6/0.9) {
		t.Errorf("depth mean %v, want %v", mean.Data.Elements[0], 4.6/0.9)
	}
}

func TestIntegrateDepthMissingAxis(t *testing.T) {
	f := gridField(t, 0.5, 1, 2, 0.5, 1, 2, 1, "")
	_, err := IntegrateDepth(f, false)
	require.ErrorIs(t, err, ErrMissingAxis)
}
