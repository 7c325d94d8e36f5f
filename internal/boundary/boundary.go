// Package boundary loads US county boundary polygons into an immutable,
// in-memory store keyed by FIPS code.
package boundary

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrEmptyDataset is returned when a source yields no usable county.
var ErrEmptyDataset = errors.New("boundary: dataset contains no counties")

// Point is a WGS84/NAD83 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies within [-90,90]x[-180,180].
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// BBox is an axis-aligned bounding box in degrees.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// EmptyBBox returns a box that contains nothing and grows on Extend.
func EmptyBBox() BBox {
	return BBox{MinLat: math.Inf(1), MinLon: math.Inf(1), MaxLat: math.Inf(-1), MaxLon: math.Inf(-1)}
}

// IsEmpty reports whether the box has never been extended.
func (b BBox) IsEmpty() bool {
	return b.MinLat > b.MaxLat || b.MinLon > b.MaxLon
}

// Extend returns b grown to include p. Non-finite points are ignored.
func (b BBox) Extend(p Point) BBox {
	if !finite(p.Lat) || !finite(p.Lon) {
		return b
	}
	b.MinLat = math.Min(b.MinLat, p.Lat)
	b.MinLon = math.Min(b.MinLon, p.Lon)
	b.MaxLat = math.Max(b.MaxLat, p.Lat)
	b.MaxLon = math.Max(b.MaxLon, p.Lon)
	return b
}

// Union returns the smallest box containing both b and o.
func (b BBox) Union(o BBox) BBox {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return BBox{
		MinLat: math.Min(b.MinLat, o.MinLat),
		MinLon: math.Min(b.MinLon, o.MinLon),
		MaxLat: math.Max(b.MaxLat, o.MaxLat),
		MaxLon: math.Max(b.MaxLon, o.MaxLon),
	}
}

// Contains reports whether p lies inside or on the edge of b.
func (b BBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// Covers reports whether o lies entirely within b.
func (b BBox) Covers(o BBox) bool {
	return o.MinLat >= b.MinLat && o.MaxLat <= b.MaxLat && o.MinLon >= b.MinLon && o.MaxLon <= b.MaxLon
}

// Intersects reports whether b and o share at least one point.
func (b BBox) Intersects(o BBox) bool {
	return b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat && b.MinLon <= o.MaxLon && o.MinLon <= b.MaxLon
}

// Area returns the box area in square degrees.
func (b BBox) Area() float64 {
	if b.IsEmpty() {
		return 0
	}
	return (b.MaxLat - b.MinLat) * (b.MaxLon - b.MinLon)
}

// Center returns the box midpoint.
func (b BBox) Center() Point {
	return Point{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// Ring is a closed sequence of vertices; the first vertex repeats as the last.
type Ring []Point

// BBox returns the bounding box of the ring.
func (r Ring) BBox() BBox {
	b := EmptyBBox()
	for _, p := range r {
		b = b.Extend(p)
	}
	return b
}

// Polygon is an outer ring with optional interior holes.
type Polygon struct {
	Outer Ring   `json:"-"`
	Holes []Ring `json:"-"`
	BBox  BBox   `json:"bbox"`
}

// County is one county boundary. Polygons holds every part of the county
// (islands are separate polygons).
type County struct {
	FIPS     string    `json:"fips"`
	Name     string    `json:"name"`
	Polygons []Polygon `json:"-"`
	BBox     BBox      `json:"bbox"`
	Interior Point     `json:"interior"`
}

// Store is the immutable set of county boundaries. It is safe for concurrent
// readers because nothing mutates it after NewStore returns.
type Store struct {
	counties []County
	byFIPS   map[string]int
	folded   []string
	extent   BBox
}

// NewStore builds a store from counties. Records sharing a FIPS code are
// merged into one county. Records with no FIPS code, no polygon, no finite
// vertex or a vertex outside geographic coordinates are dropped with a
// warning. Returns ErrEmptyDataset if nothing remains, or a reprojection
// error when every county was out of range.
func NewStore(counties []County) (*Store, error) {
	log := zap.L().With(zap.String("component", "boundary.store"))

	byFIPS := make(map[string]int, len(counties))
	merged := make([]County, 0, len(counties))
	var skipped int

	for _, c := range counties {
		c.FIPS = strings.TrimSpace(c.FIPS)
		if c.FIPS == "" || len(c.Polygons) == 0 {
			skipped++
			continue
		}
		if i, ok := byFIPS[c.FIPS]; ok {
			merged[i].Polygons = append(merged[i].Polygons, c.Polygons...)
			continue
		}
		byFIPS[c.FIPS] = len(merged)
		merged = append(merged, County{
			FIPS:     c.FIPS,
			Name:     strings.TrimSpace(c.Name),
			Polygons: append([]Polygon(nil), c.Polygons...),
			Interior: c.Interior,
		})
	}

	if skipped > 0 {
		log.Warn("skipped county records without fips or geometry", zap.Int("skipped", skipped))
	}

	// Counties with no finite vertex or lying outside geographic coordinates
	// cannot be indexed; they are dropped so the rest of the dataset loads.
	world := BBox{MinLat: -90, MinLon: -180, MaxLat: 90, MaxLon: 180}
	usable := merged[:0]
	var outOfRange int
	for _, c := range merged {
		c.BBox = EmptyBBox()
		for j := range c.Polygons {
			c.Polygons[j].BBox = c.Polygons[j].Outer.BBox()
			c.BBox = c.BBox.Union(c.Polygons[j].BBox)
		}
		switch {
		case c.BBox.IsEmpty():
			log.Warn("dropping county without finite coordinates", zap.String("fips", c.FIPS))
			continue
		case !world.Covers(c.BBox):
			outOfRange++
			log.Warn("dropping county outside geographic coordinates",
				zap.String("fips", c.FIPS),
				zap.Any("bbox", c.BBox),
			)
			continue
		}
		usable = append(usable, c)
	}

	if len(usable) == 0 {
		if outOfRange > 0 {
			return nil, eris.Errorf("boundary: all %d counties are outside geographic coordinates; reproject the dataset to EPSG:4326", outOfRange)
		}
		return nil, ErrEmptyDataset
	}

	sort.SliceStable(usable, func(i, j int) bool { return usable[i].FIPS < usable[j].FIPS })

	s := &Store{
		counties: usable,
		byFIPS:   make(map[string]int, len(usable)),
		folded:   make([]string, len(usable)),
		extent:   EmptyBBox(),
	}
	for i := range s.counties {
		c := &s.counties[i]
		if c.Interior == (Point{}) {
			c.Interior = c.BBox.Center()
		}
		s.byFIPS[c.FIPS] = i
		s.folded[i] = foldName(c.Name)
		s.extent = s.extent.Union(c.BBox)
	}

	log.Debug("county store built", zap.Int("counties", len(s.counties)))
	return s, nil
}

// All returns every county ordered by FIPS code. Callers must not modify the
// returned slice.
func (s *Store) All() []County {
	return s.counties
}

// At returns the county with the given ordinal, as used by the spatial index.
func (s *Store) At(i int) County {
	return s.counties[i]
}

// Get returns the county with the given FIPS code.
func (s *Store) Get(fips string) (County, bool) {
	i, ok := s.byFIPS[fips]
	if !ok {
		return County{}, false
	}
	return s.counties[i], true
}

// Len returns the number of counties.
func (s *Store) Len() int {
	return len(s.counties)
}

// Extent returns the bounding box of all counties.
func (s *Store) Extent() BBox {
	return s.extent
}

// Search returns counties whose name contains q, ignoring case and accents.
func (s *Store) Search(q string) []County {
	needle := foldName(q)
	if needle == "" {
		return nil
	}
	var out []County
	for i, name := range s.folded {
		if strings.Contains(name, needle) {
			out = append(out, s.counties[i])
		}
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
