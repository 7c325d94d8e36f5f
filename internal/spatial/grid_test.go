package spatial_test

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/county-api/internal/boundary"
	"github.com/sells-group/county-api/internal/boundary/boundarytest"
	"github.com/sells-group/county-api/internal/spatial"
)

func fipsOf(t *testing.T, s *boundary.Store, ords []int) []string {
	t.Helper()
	out := make([]string, 0, len(ords))
	for _, o := range ords {
		out = append(out, s.At(o).FIPS)
	}
	return out
}

func TestGrid_QueryReturnsAscendingCandidates(t *testing.T) {
	s := boundarytest.Store(t)
	g := spatial.Build(s, spatial.Options{CellDegrees: 0.25})

	got := fipsOf(t, s, g.Query(boundary.Point{Lat: 37.7749, Lon: -122.4194}))
	assert.Contains(t, got, boundarytest.SanFrancisco)
	assert.IsIncreasing(t, got)
}

func TestGrid_QueryOutsideExtent(t *testing.T) {
	s := boundarytest.Store(t)
	g := spatial.Build(s, spatial.Options{})

	assert.Nil(t, g.Query(boundary.Point{Lat: 0, Lon: 0}))
	assert.Nil(t, g.Query(boundary.Point{Lat: 37.5, Lon: -100}), "inside extent but in an empty cell")
}

func TestGrid_QueryIncludesBorderNeighbours(t *testing.T) {
	s := boundarytest.Store(t)
	g := spatial.Build(s, spatial.Options{CellDegrees: 0.1})

	// Exactly on the shared San Francisco / San Mateo edge.
	got := fipsOf(t, s, g.Query(boundary.Point{Lat: 37.70, Lon: -122.45}))
	assert.Contains(t, got, boundarytest.SanFrancisco)
	assert.Contains(t, got, boundarytest.SanMateo)
}

// Every county whose box contains a point must appear among its candidates.
func TestGrid_CandidatesAreSuperset(t *testing.T) {
	s := boundarytest.Store(t)
	rng := rand.New(rand.NewSource(42))

	for _, opts := range []spatial.Options{
		{},
		{CellDegrees: 0.05},
		{CellDegrees: 0.37},
		{CellDegrees: 10},
	} {
		g := spatial.Build(s, opts)
		e := s.Extent()
		for i := 0; i < 2000; i++ {
			p := boundary.Point{
				Lat: e.MinLat + rng.Float64()*(e.MaxLat-e.MinLat),
				Lon: e.MinLon + rng.Float64()*(e.MaxLon-e.MinLon),
			}
			cands := map[int]bool{}
			for _, o := range g.Query(p) {
				cands[o] = true
			}
			for ord, c := range s.All() {
				for _, poly := range c.Polygons {
					if poly.BBox.Contains(p) {
						require.Truef(t, cands[ord], "cell %.2f: %s missing at %+v", opts.CellDegrees, c.FIPS, p)
					}
				}
			}
		}
	}
}

func TestGrid_QueryBBox(t *testing.T) {
	s := boundarytest.Store(t)
	g := spatial.Build(s, spatial.Options{CellDegrees: 0.1})

	got := fipsOf(t, s, g.QueryBBox(boundary.BBox{MinLat: 37.5, MinLon: -77.5, MaxLat: 37.55, MaxLon: -77.45}))
	want := []string{boundarytest.Henrico, boundarytest.Richmond}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("QueryBBox mismatch (-want +got):\n%s", diff)
	}

	assert.Nil(t, g.QueryBBox(boundary.BBox{MinLat: 0, MinLon: 0, MaxLat: 1, MaxLon: 1}))
	assert.Nil(t, g.QueryBBox(boundary.EmptyBBox()))
}

func TestGrid_QueryBBoxDeduplicates(t *testing.T) {
	s := boundarytest.Store(t)
	g := spatial.Build(s, spatial.Options{CellDegrees: 0.05})

	got := g.QueryBBox(s.Extent())
	assert.Len(t, got, s.Len())
	if diff := cmp.Diff([]int{0, 1, 2, 3, 4, 5}, got); diff != "" {
		t.Errorf("QueryBBox mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_CellSearch(t *testing.T) {
	// A dense block of 400 tiny counties stacked on the same spot forces
	// the search down to the minimum cell size.
	var counties []boundary.County
	for i := 0; i < 400; i++ {
		c := boundarytest.Rect(
			string(rune('A'+i/26))+string(rune('a'+i%26))+"000",
			"Stacked",
			10, 10, 10.04, 10.04,
		)
		counties = append(counties, c)
	}
	counties = append(counties, boundarytest.Rect("ZZ999", "Far", 20, 20, 21, 21))
	s, err := boundary.NewStore(counties)
	require.NoError(t, err)

	st := spatial.Build(s, spatial.Options{TargetCandidates: 4, MinCellDegrees: 0.5}).Stats()
	assert.InDelta(t, 0.5, st.CellDegrees, 1e-9)
	assert.Equal(t, 401, st.Counties)
	assert.Equal(t, 400, st.MaxCandidates)
}

func TestBuild_SearchStopsAtTarget(t *testing.T) {
	s := boundarytest.Store(t)

	st := spatial.Build(s, spatial.Options{}).Stats()
	assert.LessOrEqual(t, st.MeanCandidates, float64(spatial.DefaultTargetCandidates))
	assert.GreaterOrEqual(t, st.CellDegrees, spatial.DefaultMinCellDegrees)
	assert.Positive(t, st.NonEmptyCells)
	assert.Equal(t, s.Len(), st.Counties)
}

func TestBuild_FixedCell(t *testing.T) {
	s := boundarytest.Store(t)

	st := spatial.Build(s, spatial.Options{CellDegrees: 1}).Stats()
	assert.InDelta(t, 1.0, st.CellDegrees, 1e-9)
	// Extent spans 1 degree of latitude and 45.85 of longitude.
	assert.Equal(t, 1, st.Rows)
	assert.Equal(t, 46, st.Cols)
}

func TestBuild_TinyFixedCellIsCapped(t *testing.T) {
	s := boundarytest.Store(t)

	g := spatial.Build(s, spatial.Options{CellDegrees: 1e-5})
	st := g.Stats()
	assert.Greater(t, st.CellDegrees, 1e-5)
	assert.LessOrEqual(t, st.Rows*st.Cols, 1<<22)

	got := fipsOf(t, s, g.Query(boundary.Point{Lat: 37.76, Lon: -122.45}))
	assert.Contains(t, got, boundarytest.SanFrancisco)
}
