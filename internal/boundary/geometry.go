package boundary

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// polygonsFromGeom converts a go-geom Polygon or MultiPolygon into county
// polygons. X is longitude and Y is latitude. Other geometry types are
// rejected.
func polygonsFromGeom(g geom.T) ([]Polygon, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		if t.Empty() {
			return nil, nil
		}
		return []Polygon{polygonFromGeom(t)}, nil
	case *geom.MultiPolygon:
		out := make([]Polygon, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			p := t.Polygon(i)
			if p.Empty() {
				continue
			}
			out = append(out, polygonFromGeom(p))
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, eris.Errorf("boundary: unsupported geometry type %T", g)
	}
}

func polygonFromGeom(p *geom.Polygon) Polygon {
	var poly Polygon
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := ringFromCoords(p.LinearRing(i).Coords())
		if i == 0 {
			poly.Outer = ring
			continue
		}
		poly.Holes = append(poly.Holes, ring)
	}
	return poly
}

func ringFromCoords(coords []geom.Coord) Ring {
	r := make(Ring, 0, len(coords))
	for _, c := range coords {
		r = append(r, Point{Lat: c.Y(), Lon: c.X()})
	}
	return r
}

// shapeToGeom converts a shapefile polygon into a go-geom MultiPolygon.
// Shapefile parts carry no explicit nesting: clockwise rings are outer
// boundaries and counter-clockwise rings are holes. Each hole is attached to
// the smallest outer ring whose bounding box covers it.
func shapeToGeom(shape shp.Shape) (*geom.MultiPolygon, error) {
	p, ok := shape.(*shp.Polygon)
	if !ok {
		return nil, eris.Errorf("boundary: unsupported shape type %T", shape)
	}
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil, nil
	}

	type outer struct {
		rings [][]geom.Coord
		bbox  BBox
	}
	var outers []*outer
	var holes [][]geom.Coord

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if start < 0 || end > int32(len(p.Points)) || start >= end {
			zap.L().Debug("boundary: skipping out of range polygon part", zap.Int32("part", i))
			continue
		}

		coords := make([]geom.Coord, 0, end-start)
		for j := start; j < end; j++ {
			coords = append(coords, geom.Coord{p.Points[j].X, p.Points[j].Y})
		}

		if signedArea(coords) > 0 && len(outers) > 0 {
			holes = append(holes, coords)
			continue
		}
		outers = append(outers, &outer{rings: [][]geom.Coord{coords}, bbox: coordsBBox(coords)})
	}

	for _, h := range holes {
		hb := coordsBBox(h)
		var best *outer
		for _, o := range outers {
			if !o.bbox.Covers(hb) {
				continue
			}
			if best == nil || o.bbox.Area() < best.bbox.Area() {
				best = o
			}
		}
		if best == nil {
			// Counter-clockwise ring outside every outer ring: treat it as an
			// outer ring written with the wrong orientation.
			outers = append(outers, &outer{rings: [][]geom.Coord{h}, bbox: hb})
			continue
		}
		best.rings = append(best.rings, h)
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for i, o := range outers {
		poly := geom.NewPolygon(geom.XY)
		for _, ring := range o.rings {
			if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flatCoords(ring))); err != nil {
				zap.L().Debug("boundary: skipping malformed polygon ring", zap.Int("part", i), zap.Error(err))
			}
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("boundary: skipping malformed polygon part", zap.Int("part", i), zap.Error(err))
		}
	}

	if mp.NumPolygons() == 0 {
		return nil, nil
	}
	return mp, nil
}

// signedArea returns the shoelace area; negative for clockwise rings.
func signedArea(coords []geom.Coord) float64 {
	var sum float64
	for i := 0; i+1 < len(coords); i++ {
		sum += coords[i][0]*coords[i+1][1] - coords[i+1][0]*coords[i][1]
	}
	return sum / 2
}

func coordsBBox(coords []geom.Coord) BBox {
	b := EmptyBBox()
	for _, c := range coords {
		b = b.Extend(Point{Lat: c[1], Lon: c[0]})
	}
	return b
}

// flatCoords converts a slice of Coord to flat coordinate pairs for go-geom.
func flatCoords(coords []geom.Coord) []float64 {
	flat := make([]float64, 0, len(coords)*2)
	for _, c := range coords {
		flat = append(flat, c[0], c[1])
	}
	return flat
}
