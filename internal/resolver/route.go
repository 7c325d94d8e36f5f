package resolver

import (
	"math"
	"sort"
	"strconv"

	"github.com/umahmood/haversine"
	"go.uber.org/zap"

	"github.com/sells-group/county-api/internal/boundary"
	"github.com/sells-group/county-api/internal/metrics"
	"github.com/sells-group/county-api/internal/spatial"
)

// RouteCounty is one county crossed by a route. AlongKm is the distance
// along the route to the projection of the county's interior point.
type RouteCounty struct {
	FIPS    string  `json:"fips"`
	Name    string  `json:"county_name"`
	AlongKm float64 `json:"along_km"`
}

// ResolveRoute returns every county whose boundary intersects the polyline,
// ordered by where its interior point projects onto the route (ties by
// FIPS). The path needs at least two valid points.
func (r *Resolver) ResolveRoute(path []boundary.Point) ([]RouteCounty, error) {
	if len(path) < 2 {
		return nil, &InvalidInputError{Field: "polyline length", Value: float64(len(path))}
	}
	for i, p := range path {
		if err := validatePoint(p.Lat, p.Lon); err != nil {
			err.Field = "polyline[" + strconv.Itoa(i) + "]." + err.Field
			return nil, err
		}
	}

	segs := spatial.NewSegmentIndex(path)

	var cands []int
	seen := make(map[int]bool)
	for _, s := range segs.Segments() {
		for _, ord := range r.grid.QueryBBox(s.BBox()) {
			if !seen[ord] {
				seen[ord] = true
				cands = append(cands, ord)
			}
		}
	}
	sort.Ints(cands)

	proj := newProjector(path)
	var out []RouteCounty
	for _, ord := range cands {
		if err := r.invalid[ord]; err != nil {
			metrics.MalformedCandidatesTotal.Inc()
			r.log.Debug("skipping malformed route candidate", zap.Error(err))
			continue
		}
		c := r.store.At(ord)
		if !countyCrosses(c, segs) {
			continue
		}
		out = append(out, RouteCounty{FIPS: c.FIPS, Name: c.Name, AlongKm: proj.along(c.Interior)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AlongKm != out[j].AlongKm {
			return out[i].AlongKm < out[j].AlongKm
		}
		return out[i].FIPS < out[j].FIPS
	})
	metrics.RouteCountiesTotal.Add(float64(len(out)))
	return out, nil
}

// countyCrosses reports whether any segment touches any polygon of c.
func countyCrosses(c boundary.County, segs *spatial.SegmentIndex) bool {
	for _, poly := range c.Polygons {
		for _, s := range segs.Intersecting(poly.BBox) {
			if segmentTouchesPolygon(s, poly) {
				return true
			}
		}
	}
	return false
}

func segmentTouchesPolygon(s spatial.Segment, poly boundary.Polygon) bool {
	if polygonContains(poly, s.From) || polygonContains(poly, s.To) {
		return true
	}
	if segmentCrossesRing(s, poly.Outer) {
		return true
	}
	for _, h := range poly.Holes {
		if segmentCrossesRing(s, h) {
			return true
		}
	}
	return false
}

func segmentCrossesRing(s spatial.Segment, ring boundary.Ring) bool {
	for i := 1; i < len(ring); i++ {
		if segmentsIntersect(s.From, s.To, ring[i-1], ring[i]) {
			return true
		}
	}
	return false
}

// segmentsIntersect reports whether segments p1p2 and q1q2 share a point.
func segmentsIntersect(p1, p2, q1, q2 boundary.Point) bool {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return onSegment(q1, q2, p1) || onSegment(q1, q2, p2) ||
		onSegment(p1, p2, q1) || onSegment(p1, p2, q2)
}

func orient(a, b, c boundary.Point) float64 {
	v := (b.Lon-a.Lon)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lon-a.Lon)
	if math.Abs(v) <= edgeEpsilon {
		return 0
	}
	return v
}

// projector measures distance along a polyline.
type projector struct {
	path []boundary.Point
	// cum[i] is the route length in km from path[0] to path[i].
	cum []float64
}

func newProjector(path []boundary.Point) *projector {
	cum := make([]float64, len(path))
	for i := 1; i < len(path); i++ {
		cum[i] = cum[i-1] + distanceKm(path[i-1], path[i])
	}
	return &projector{path: path, cum: cum}
}

// along projects p onto the closest segment (in a local equirectangular
// plane) and returns the route distance to that projection.
func (pr *projector) along(p boundary.Point) float64 {
	best := math.Inf(1)
	var at float64
	for i := 1; i < len(pr.path); i++ {
		a, b := pr.path[i-1], pr.path[i]
		k := math.Cos((a.Lat + b.Lat) / 2 * math.Pi / 180)

		dx, dy := (b.Lon-a.Lon)*k, b.Lat-a.Lat
		px, py := (p.Lon-a.Lon)*k, p.Lat-a.Lat

		var t float64
		if l2 := dx*dx + dy*dy; l2 > 0 {
			t = math.Max(0, math.Min(1, (px*dx+py*dy)/l2))
		}
		ex, ey := px-t*dx, py-t*dy
		if d := ex*ex + ey*ey; d < best {
			best = d
			foot := boundary.Point{Lat: a.Lat + t*(b.Lat-a.Lat), Lon: a.Lon + t*(b.Lon-a.Lon)}
			at = pr.cum[i-1] + distanceKm(a, foot)
		}
	}
	return at
}

func distanceKm(a, b boundary.Point) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: a.Lat, Lon: a.Lon},
		haversine.Coord{Lat: b.Lat, Lon: b.Lon},
	)
	return km
}
