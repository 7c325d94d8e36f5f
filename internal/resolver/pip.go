package resolver

import (
	"fmt"
	"math"

	"github.com/sells-group/county-api/internal/boundary"
)

// Containment is the outcome of testing one county against one point. Err is
// set when the county's geometry cannot be tested; Inside is then false.
type Containment struct {
	Inside bool
	Err    error
}

// Contains tests whether p lies in c. Points on an outer edge or on a hole
// edge count as inside.
func Contains(c boundary.County, p boundary.Point) Containment {
	if err := validateCounty(c); err != nil {
		return Containment{Err: err}
	}
	return Containment{Inside: containsValid(c, p)}
}

// validateCounty checks every ring of every polygon: at least four vertices,
// closed, finite.
func validateCounty(c boundary.County) error {
	for pi, poly := range c.Polygons {
		if reason := checkRing(poly.Outer); reason != "" {
			return &MalformedBoundaryError{FIPS: c.FIPS, Polygon: pi, Ring: 0, Reason: reason}
		}
		for hi, h := range poly.Holes {
			if reason := checkRing(h); reason != "" {
				return &MalformedBoundaryError{FIPS: c.FIPS, Polygon: pi, Ring: hi + 1, Reason: reason}
			}
		}
	}
	return nil
}

func checkRing(r boundary.Ring) string {
	if len(r) < 4 {
		return fmt.Sprintf("ring has %d vertices, need at least 4", len(r))
	}
	for _, v := range r {
		if math.IsNaN(v.Lat) || math.IsNaN(v.Lon) || math.IsInf(v.Lat, 0) || math.IsInf(v.Lon, 0) {
			return "ring has a non-finite coordinate"
		}
	}
	if r[0] != r[len(r)-1] {
		return "ring is not closed"
	}
	return ""
}

// containsValid assumes validateCounty passed.
func containsValid(c boundary.County, p boundary.Point) bool {
	if !c.BBox.Contains(p) {
		return false
	}
	for _, poly := range c.Polygons {
		if polygonContains(poly, p) {
			return true
		}
	}
	return false
}

func polygonContains(poly boundary.Polygon, p boundary.Point) bool {
	if !poly.BBox.Contains(p) {
		return false
	}
	in, edge := locate(poly.Outer, p)
	if edge {
		return true
	}
	if !in {
		return false
	}
	for _, h := range poly.Holes {
		in, edge := locate(h, p)
		if edge {
			return true
		}
		if in {
			return false
		}
	}
	return true
}

// locate runs the even-odd ray cast for p against a closed ring and reports
// whether p is strictly inside and whether it lies on an edge.
func locate(r boundary.Ring, p boundary.Point) (inside, onEdge bool) {
	for i := 1; i < len(r); i++ {
		a, b := r[i-1], r[i]
		if onSegment(a, b, p) {
			return false, true
		}
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			x := a.Lon + (p.Lat-a.Lat)*(b.Lon-a.Lon)/(b.Lat-a.Lat)
			if p.Lon < x {
				inside = !inside
			}
		}
	}
	return inside, false
}

// onSegment reports whether p lies on segment ab (collinear and within its
// box).
func onSegment(a, b, p boundary.Point) bool {
	if p.Lon < math.Min(a.Lon, b.Lon) || p.Lon > math.Max(a.Lon, b.Lon) ||
		p.Lat < math.Min(a.Lat, b.Lat) || p.Lat > math.Max(a.Lat, b.Lat) {
		return false
	}
	cross := (b.Lon-a.Lon)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lon-a.Lon)
	return math.Abs(cross) <= edgeEpsilon
}

// edgeEpsilon is the cross-product tolerance, in square degrees, for treating
// a point as lying on an edge.
const edgeEpsilon = 1e-12
