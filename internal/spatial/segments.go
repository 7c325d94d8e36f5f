package spatial

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"github.com/sells-group/county-api/internal/boundary"
)

// pad widens every rectangle so degenerate (horizontal, vertical or
// zero-length) segments still have positive extent and touching boxes
// intersect.
const pad = 1e-9

// Segment is one leg of a polyline, From at Index and To at Index+1.
type Segment struct {
	Index    int
	From, To boundary.Point
}

// BBox returns the segment's bounding box.
func (s Segment) BBox() boundary.BBox {
	return boundary.EmptyBBox().Extend(s.From).Extend(s.To)
}

type segmentItem struct {
	seg  Segment
	rect rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (s *segmentItem) Bounds() rtreego.Rect {
	return s.rect
}

// SegmentIndex is an R-tree over the legs of a polyline.
type SegmentIndex struct {
	tree *rtreego.Rtree
	segs []Segment
}

// NewSegmentIndex indexes consecutive pairs of path. Paths shorter than two
// points produce an empty index.
func NewSegmentIndex(path []boundary.Point) *SegmentIndex {
	idx := &SegmentIndex{tree: rtreego.NewTree(2, 4, 16)}
	for i := 0; i+1 < len(path); i++ {
		seg := Segment{Index: i, From: path[i], To: path[i+1]}
		rect, err := toRect(seg.BBox())
		if err != nil {
			continue
		}
		idx.tree.Insert(&segmentItem{seg: seg, rect: rect})
		idx.segs = append(idx.segs, seg)
	}
	return idx
}

// Len returns the number of indexed segments.
func (x *SegmentIndex) Len() int {
	return len(x.segs)
}

// Segments returns every indexed segment in path order.
func (x *SegmentIndex) Segments() []Segment {
	return x.segs
}

// BBox returns the box covering the whole path.
func (x *SegmentIndex) BBox() boundary.BBox {
	b := boundary.EmptyBBox()
	for _, s := range x.segs {
		b = b.Union(s.BBox())
	}
	return b
}

// Intersecting returns the segments whose boxes touch b, in path order.
func (x *SegmentIndex) Intersecting(b boundary.BBox) []Segment {
	if b.IsEmpty() || x.tree.Size() == 0 {
		return nil
	}
	rect, err := toRect(b)
	if err != nil {
		return nil
	}
	hits := x.tree.SearchIntersect(rect)
	out := make([]Segment, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*segmentItem).seg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// toRect converts b to an rtreego rectangle with lon as the first axis.
func toRect(b boundary.BBox) (rtreego.Rect, error) {
	return rtreego.NewRect(
		rtreego.Point{b.MinLon - pad, b.MinLat - pad},
		[]float64{b.MaxLon - b.MinLon + 2*pad, b.MaxLat - b.MinLat + 2*pad},
	)
}
