package gridbench

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultRegions(t *testing.T) {
	cat := DefaultRegions()
	labels := cat.Labels()
	require.Contains(t, labels, "global")
	require.Contains(t, labels, "globe")
	for _, l := range []string{"bona", "tena", "ceam", "nhsa", "shsa", "euro",
		"mide", "nhaf", "shaf", "boas", "ceas", "seas", "eqas", "aust"} {
		require.Contains(t, labels, l)
	}

	name, err := cat.Name("euro")
	require.NoError(t, err)
	require.Equal(t, "Europe", name)
	src, err := cat.SourceOf("euro")
	require.NoError(t, err)
	require.Contains(t, src, "GFED")

	_, err = cat.Name("atlantis")
	require.ErrorIs(t, err, ErrRegionNotFound)
}

func TestRestrictGlobalIsNoOp(t *testing.T) {
	f := globalGrid(t, 10, 4, "")
	cat := DefaultRegions()
	r, err := cat.Restrict("global", f)
	require.NoError(t, err)
	for i, v := range r.Data.Elements {
		if diff(v, 4) {
			t.Fatalf("cell %d masked by the global region: %v", i, v)
		}
	}
}

func TestBoundsMask(t *testing.T) {
	f := globalGrid(t, 30, 1, "")
	cat := NewRegionCatalog()
	cat.AddBounds("tropics", "Tropics", [2]float64{-30, 30}, [2]float64{-180, 180}, "test")

	mask, err := cat.Mask("tropics", f)
	require.NoError(t, err)
	lat, _, err := mask.Axis("lat")
	require.NoError(t, err)
	nlon := len(mask.Axes[1].Values)
	for i, v := range lat.Values {
		inside := v >= -30 && v <= 30
		for j := 0; j < nlon; j++ {
			got := mask.Data.Elements[i*nlon+j] == 1
			if got != inside {
				t.Errorf("lat %v: mask %v, want %v", v, got, inside)
			}
		}
	}
}

func TestCatalogClone(t *testing.T) {
	cat := DefaultRegions()
	n := len(cat.Labels())
	c2 := cat.Clone()
	c2.AddBounds("extra", "Extra", [2]float64{0, 1}, [2]float64{0, 1}, "test")
	require.Len(t, cat.Labels(), n)
	require.Len(t, c2.Labels(), n+1)
}

func testRaster() *RegionRaster {
	// 2x4 raster: west half code 0 ("land"), east half code 1 ("sea").
	return &RegionRaster{
		Source: "test",
		Lat:    []float64{-45, 45},
		Lon:    []float64{-135, -45, 45, 135},
		Ints: map[string]*IntRaster{
			"ids": {
				Data:   [][]int{{0, 0, 1, 1}, {0, 0, 1, 1}},
				Labels: "labels",
				Names:  "names",
			},
		},
		Lookups: map[string][]string{
			"labels": {"land", "sea"},
			"names":  {"Land", "Sea"},
		},
	}
}

func TestAddRaster(t *testing.T) {
	cat := NewRegionCatalog()
	labels, err := cat.AddRaster(testRaster())
	require.NoError(t, err)
	require.Equal(t, []string{"land", "sea"}, labels)

	name, err := cat.Name("sea")
	require.NoError(t, err)
	require.Equal(t, "Sea", name)

	// Mask on a finer grid picks up the nearest raster cell.
	f := globalGrid(t, 30, 1, "")
	mask, err := cat.Mask("land", f)
	require.NoError(t, err)
	nlon := len(mask.Axes[1].Values)
	for i := range mask.Axes[0].Values {
		for j, lon := range mask.Axes[1].Values {
			want := 0.0
			if lon < 0 {
				want = 1
			}
			if got := mask.Data.Elements[i*nlon+j]; got != want {
				t.Errorf("lon %v: mask %v, want %v", lon, got, want)
			}
		}
	}
}

func TestAddRasterSoleArrayFallback(t *testing.T) {
	r := testRaster()
	r.Ints["basins"] = r.Ints["ids"]
	delete(r.Ints, "ids")
	cat := NewRegionCatalog()
	labels, err := cat.AddRaster(r)
	require.NoError(t, err)
	require.Len(t, labels, 2)
}

func TestAddRasterAmbiguity(t *testing.T) {
	r := testRaster()
	r.Ints["basins"] = r.Ints["ids"]
	r.Ints["zones"] = r.Ints["ids"]
	delete(r.Ints, "ids")
	cat := NewRegionCatalog()
	_, err := cat.AddRaster(r)
	require.ErrorIs(t, err, ErrRegionAmbiguous)

	r = testRaster()
	r.Ints = map[string]*IntRaster{}
	_, err = cat.AddRaster(r)
	require.ErrorIs(t, err, ErrRegionAmbiguous)

	// Lookup length must match the distinct codes.
	r = testRaster()
	r.Lookups["labels"] = []string{"land", "sea", "ice"}
	r.Lookups["names"] = []string{"Land", "Sea", "Ice"}
	_, err = cat.AddRaster(r)
	require.ErrorIs(t, err, ErrRegionAmbiguous)

	// Missing lookup arrays.
	r = testRaster()
	delete(r.Lookups, "names")
	_, err = cat.AddRaster(r)
	require.ErrorIs(t, err, ErrRegionAmbiguous)
}

func TestAddRasterOverwrites(t *testing.T) {
	cat := DefaultRegions()
	r := testRaster()
	r.Lookups["labels"] = []string{"euro", "sea"}
	_, err := cat.AddRaster(r)
	require.NoError(t, err)
	name, err := cat.Name("euro")
	require.NoError(t, err)
	require.Equal(t, "Land", name)
}

func TestHasData(t *testing.T) {
	f := globalGrid(t, 10, 1, "")
	cat := DefaultRegions()

	ok, err := cat.HasData("euro", f)
	require.NoError(t, err)
	require.True(t, ok)

	// Blank out Europe and it no longer has data.
	masked, err := cat.Restrict("euro", f)
	require.NoError(t, err)
	g := f.Copy()
	for i, v := range masked.Data.Elements {
		if !math.IsNaN(v) {
			g.Data.Elements[i] = math.NaN()
		}
	}
	ok, err = cat.HasData("euro", g)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = cat.HasData("aust", g)
	require.NoError(t, err)
	require.True(t, ok)
}
