// Package boundarytest provides small synthetic county datasets for tests.
package boundarytest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/county-api/internal/boundary"
)

// Well-known fixture FIPS codes.
const (
	Alameda      = "06001"
	Broken       = "06070"
	SanFrancisco = "06075"
	SanMateo     = "06081"
	Henrico      = "51087"
	Richmond     = "51760"
)

// RectRing returns a closed rectangular ring.
func RectRing(minLat, minLon, maxLat, maxLon float64) boundary.Ring {
	return boundary.Ring{
		{Lat: minLat, Lon: minLon},
		{Lat: maxLat, Lon: minLon},
		{Lat: maxLat, Lon: maxLon},
		{Lat: minLat, Lon: maxLon},
		{Lat: minLat, Lon: minLon},
	}
}

// Rect returns a county whose single polygon is a rectangle.
func Rect(fips, name string, minLat, minLon, maxLat, maxLon float64) boundary.County {
	return boundary.County{
		FIPS:     fips,
		Name:     name,
		Polygons: []boundary.Polygon{{Outer: RectRing(minLat, minLon, maxLat, maxLon)}},
	}
}

// Counties returns a hand-drawn dataset:
//   - San Francisco, San Mateo and Alameda are rectangles; San Francisco
//     shares its southern edge (lat 37.70) with San Mateo and its eastern
//     edge (lon -122.35) with Alameda. San Mateo and Alameda overlap for
//     lat 37.45..37.70, lon -122.35..-122.08.
//   - Henrico has a hole filled exactly by Richmond city.
//   - Broken has an unclosed two-vertex ring whose box covers San Francisco.
func Counties() []boundary.County {
	henrico := Rect(Henrico, "Henrico County", 37.40, -77.65, 37.80, -77.15)
	henrico.Polygons[0].Holes = []boundary.Ring{RectRing(37.45, -77.55, 37.60, -77.38)}

	broken := boundary.County{
		FIPS: Broken,
		Name: "Broken County",
		Polygons: []boundary.Polygon{{Outer: boundary.Ring{
			{Lat: 37.00, Lon: -123.00},
			{Lat: 38.00, Lon: -122.00},
		}}},
	}

	return []boundary.County{
		Rect(SanFrancisco, "San Francisco County", 37.70, -122.52, 37.83, -122.35),
		Rect(SanMateo, "San Mateo County", 37.10, -122.55, 37.70, -122.08),
		Rect(Alameda, "Alameda County", 37.45, -122.35, 37.91, -121.47),
		henrico,
		Rect(Richmond, "Richmond city", 37.45, -77.55, 37.60, -77.38),
		broken,
	}
}

// Store builds a store over Counties.
func Store(t testing.TB) *boundary.Store {
	t.Helper()
	s, err := boundary.NewStore(Counties())
	require.NoError(t, err)
	return s
}
