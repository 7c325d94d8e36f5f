package resolver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/county-api/internal/boundary"
	"github.com/sells-group/county-api/internal/boundary/boundarytest"
)

func storedCounty(t *testing.T, fips string) boundary.County {
	t.Helper()
	c, ok := boundarytest.Store(t).Get(fips)
	require.True(t, ok)
	return c
}

func TestContains_Rectangle(t *testing.T) {
	c := storedCounty(t, boundarytest.SanFrancisco)

	tests := []struct {
		name string
		p    boundary.Point
		want bool
	}{
		{"interior", boundary.Point{Lat: 37.7749, Lon: -122.4194}, true},
		{"south edge", boundary.Point{Lat: 37.70, Lon: -122.45}, true},
		{"corner", boundary.Point{Lat: 37.83, Lon: -122.52}, true},
		{"just outside", boundary.Point{Lat: 37.6999, Lon: -122.45}, false},
		{"far away", boundary.Point{Lat: 0, Lon: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Contains(c, tt.p)
			require.NoError(t, got.Err)
			assert.Equal(t, tt.want, got.Inside)
		})
	}
}

func TestContains_Hole(t *testing.T) {
	c := storedCounty(t, boundarytest.Henrico)

	assert.False(t, Contains(c, boundary.Point{Lat: 37.52, Lon: -77.46}).Inside, "inside the hole")
	assert.True(t, Contains(c, boundary.Point{Lat: 37.70, Lon: -77.30}).Inside, "between hole and outer ring")
	assert.True(t, Contains(c, boundary.Point{Lat: 37.45, Lon: -77.46}).Inside, "hole edge belongs to the county")
}

func TestContains_Concave(t *testing.T) {
	// U shape opening north.
	ring := boundary.Ring{
		{Lat: 0, Lon: 0}, {Lat: 3, Lon: 0}, {Lat: 3, Lon: 1}, {Lat: 1, Lon: 1},
		{Lat: 1, Lon: 2}, {Lat: 3, Lon: 2}, {Lat: 3, Lon: 3}, {Lat: 0, Lon: 3},
		{Lat: 0, Lon: 0},
	}
	s, err := boundary.NewStore([]boundary.County{{FIPS: "99001", Polygons: []boundary.Polygon{{Outer: ring}}}})
	require.NoError(t, err)
	c := s.At(0)

	assert.True(t, Contains(c, boundary.Point{Lat: 2, Lon: 0.5}).Inside, "left arm")
	assert.True(t, Contains(c, boundary.Point{Lat: 2, Lon: 2.5}).Inside, "right arm")
	assert.False(t, Contains(c, boundary.Point{Lat: 2, Lon: 1.5}).Inside, "notch")
	// Ray through a vertex.
	assert.True(t, Contains(c, boundary.Point{Lat: 1, Lon: 0.5}).Inside)
	assert.True(t, Contains(c, boundary.Point{Lat: 1, Lon: 1.5}).Inside, "notch floor edge")
}

func TestContains_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		ring   boundary.Ring
		reason string
	}{
		{"too few vertices", boundary.Ring{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 1}, {Lat: 0, Lon: 0}}, "vertices"},
		{"unclosed", boundary.Ring{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 0}, {Lat: 1, Lon: 1}, {Lat: 0, Lon: 1}}, "not closed"},
		{"non finite", boundary.Ring{{Lat: 0, Lon: 0}, {Lat: math.NaN(), Lon: 0}, {Lat: 1, Lon: 1}, {Lat: 0, Lon: 0}}, "non-finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := boundary.County{FIPS: "99001", Polygons: []boundary.Polygon{{Outer: tt.ring}}}
			got := Contains(c, boundary.Point{Lat: 0.5, Lon: 0.5})
			assert.False(t, got.Inside)

			var me *MalformedBoundaryError
			require.ErrorAs(t, got.Err, &me)
			assert.Equal(t, "99001", me.FIPS)
			assert.Equal(t, 0, me.Ring)
			assert.Contains(t, me.Reason, tt.reason)
			assert.True(t, IsMalformedBoundary(got.Err))
		})
	}
}

func TestContains_MalformedHole(t *testing.T) {
	c := boundarytest.Rect("99001", "", 0, 0, 1, 1)
	c.Polygons[0].Holes = []boundary.Ring{{{Lat: 0.2, Lon: 0.2}, {Lat: 0.4, Lon: 0.4}}}

	var me *MalformedBoundaryError
	require.ErrorAs(t, Contains(c, boundary.Point{Lat: 0.5, Lon: 0.5}).Err, &me)
	assert.Equal(t, 1, me.Ring)
}

func TestSegmentsIntersect(t *testing.T) {
	p := func(lat, lon float64) boundary.Point { return boundary.Point{Lat: lat, Lon: lon} }

	assert.True(t, segmentsIntersect(p(0, 0), p(2, 2), p(0, 2), p(2, 0)), "crossing")
	assert.True(t, segmentsIntersect(p(0, 0), p(1, 1), p(1, 1), p(2, 0)), "shared endpoint")
	assert.True(t, segmentsIntersect(p(0, 0), p(0, 2), p(0, 1), p(0, 3)), "collinear overlap")
	assert.False(t, segmentsIntersect(p(0, 0), p(0, 1), p(0, 2), p(0, 3)), "collinear disjoint")
	assert.False(t, segmentsIntersect(p(0, 0), p(1, 0), p(0, 1), p(1, 1)), "parallel")
}
