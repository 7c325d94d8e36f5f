// Package spatial builds the in-memory indexes used to narrow point and route
// lookups to a handful of candidate counties.
package spatial

import (
	"math"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/county-api/internal/boundary"
)

// Defaults for Options.
const (
	DefaultTargetCandidates = 16
	DefaultMinCellDegrees   = 0.05

	// maxCells caps the grid size regardless of the requested cell size.
	maxCells = 1 << 22
)

// Options tunes grid construction.
type Options struct {
	// CellDegrees fixes the cell edge length. Zero searches for one.
	CellDegrees float64
	// TargetCandidates is the mean number of candidates per non-empty cell
	// the search aims for.
	TargetCandidates int
	// MinCellDegrees bounds the search from below.
	MinCellDegrees float64
}

func (o Options) withDefaults() Options {
	if o.TargetCandidates <= 0 {
		o.TargetCandidates = DefaultTargetCandidates
	}
	if o.MinCellDegrees <= 0 {
		o.MinCellDegrees = DefaultMinCellDegrees
	}
	return o
}

// GridStats describes a built grid.
type GridStats struct {
	Counties       int     `json:"counties"`
	Rows           int     `json:"rows"`
	Cols           int     `json:"cols"`
	CellDegrees    float64 `json:"cell_degrees"`
	NonEmptyCells  int     `json:"non_empty_cells"`
	MeanCandidates float64 `json:"mean_candidates"`
	MaxCandidates  int     `json:"max_candidates"`
}

// Grid is a uniform lat/lon grid over the store extent. Each cell lists the
// ordinals of every county whose polygon boxes touch it, so a point's cell
// yields a superset of the counties that can contain it. A Grid is immutable
// once built and safe for concurrent use.
type Grid struct {
	extent     boundary.BBox
	cell       float64
	rows, cols int

	// CSR layout: candidates of cell k are ids[offsets[k]:offsets[k+1]].
	offsets []int32
	ids     []int32

	stats GridStats
}

// Build indexes every polygon box of the store.
func Build(store *boundary.Store, opts Options) *Grid {
	opts = opts.withDefaults()
	log := zap.L().With(zap.String("component", "spatial.grid"))
	start := time.Now()

	extent := store.Extent()
	counties := store.All()

	cell := opts.CellDegrees
	search := cell <= 0
	if search {
		cell = math.Sqrt(extent.Area() / float64(max(len(counties), 1)))
		if cell <= 0 || math.IsNaN(cell) || math.IsInf(cell, 0) {
			cell = opts.MinCellDegrees
		}
	}

	if fitted := fitCells(extent, cell); fitted != cell {
		log.Warn("grid cell size raised to stay under size cap",
			zap.Float64("requested_cell_degrees", cell),
			zap.Float64("cell_degrees", fitted),
		)
		cell = fitted
	}

	g := rasterise(extent, counties, cell)
	for search && g.stats.MeanCandidates > float64(opts.TargetCandidates) && cell > opts.MinCellDegrees {
		next := math.Max(cell/2, opts.MinCellDegrees)
		if n := cellCount(extent, next); n > maxCells {
			log.Warn("grid cell search stopped at size cap",
				zap.Float64("cell_degrees", cell),
				zap.Float64("cells", n),
			)
			break
		}
		cell = next
		g = rasterise(extent, counties, cell)
	}

	log.Info("spatial grid built",
		zap.Int("rows", g.rows),
		zap.Int("cols", g.cols),
		zap.Float64("cell_degrees", g.cell),
		zap.Int("non_empty_cells", g.stats.NonEmptyCells),
		zap.Float64("mean_candidates", g.stats.MeanCandidates),
		zap.Int("max_candidates", g.stats.MaxCandidates),
		zap.Duration("elapsed", time.Since(start)),
	)
	return g
}

// cellCount is the number of cells a grid with the given cell size would
// have, computed in floating point so tiny cells cannot overflow.
func cellCount(extent boundary.BBox, cell float64) float64 {
	rows := math.Max(1, math.Ceil((extent.MaxLat-extent.MinLat)/cell))
	cols := math.Max(1, math.Ceil((extent.MaxLon-extent.MinLon)/cell))
	return rows * cols
}

// fitCells returns cell, doubled as often as needed to keep the grid within
// maxCells.
func fitCells(extent boundary.BBox, cell float64) float64 {
	for cellCount(extent, cell) > maxCells {
		cell *= 2
	}
	return cell
}

func dims(extent boundary.BBox, cell float64) (rows, cols int) {
	rows = max(1, int(math.Ceil((extent.MaxLat-extent.MinLat)/cell)))
	cols = max(1, int(math.Ceil((extent.MaxLon-extent.MinLon)/cell)))
	return rows, cols
}

// rasterise builds the grid in two passes: count, then fill.
func rasterise(extent boundary.BBox, counties []boundary.County, cell float64) *Grid {
	rows, cols := dims(extent, cell)
	g := &Grid{extent: extent, cell: cell, rows: rows, cols: cols}
	n := rows * cols

	// lastSeen dedupes a county that touches a cell through several polygons;
	// ordinals are visited in ascending order.
	lastSeen := make([]int32, n)
	for i := range lastSeen {
		lastSeen[i] = -1
	}
	counts := make([]int32, n+1)

	visit := func(fn func(k int, ord int32)) {
		for i := range lastSeen {
			lastSeen[i] = -1
		}
		for ord, c := range counties {
			for _, p := range c.Polygons {
				if p.BBox.IsEmpty() {
					continue
				}
				r0, c0 := g.cellOf(p.BBox.MinLat, p.BBox.MinLon)
				r1, c1 := g.cellOf(p.BBox.MaxLat, p.BBox.MaxLon)
				for r := r0; r <= r1; r++ {
					for col := c0; col <= c1; col++ {
						k := r*cols + col
						if lastSeen[k] == int32(ord) {
							continue
						}
						lastSeen[k] = int32(ord)
						fn(k, int32(ord))
					}
				}
			}
		}
	}

	visit(func(k int, _ int32) { counts[k+1]++ })

	g.offsets = make([]int32, n+1)
	for k := 1; k <= n; k++ {
		g.offsets[k] = g.offsets[k-1] + counts[k]
	}
	g.ids = make([]int32, g.offsets[n])

	fill := make([]int32, n)
	copy(fill, g.offsets[:n])
	visit(func(k int, ord int32) {
		g.ids[fill[k]] = ord
		fill[k]++
	})

	g.stats = GridStats{
		Counties:    len(counties),
		Rows:        rows,
		Cols:        cols,
		CellDegrees: cell,
	}
	var total int
	for k := 0; k < n; k++ {
		size := int(g.offsets[k+1] - g.offsets[k])
		if size == 0 {
			continue
		}
		g.stats.NonEmptyCells++
		total += size
		g.stats.MaxCandidates = max(g.stats.MaxCandidates, size)
	}
	if g.stats.NonEmptyCells > 0 {
		g.stats.MeanCandidates = float64(total) / float64(g.stats.NonEmptyCells)
	}
	return g
}

// cellOf maps a coordinate to its (row, col), clamped to the grid. The same
// floor-based mapping is used for boxes and points so a point inside a box
// always lands in one of the box's cells.
func (g *Grid) cellOf(lat, lon float64) (int, int) {
	r := int(math.Floor((lat - g.extent.MinLat) / g.cell))
	c := int(math.Floor((lon - g.extent.MinLon) / g.cell))
	return min(max(r, 0), g.rows-1), min(max(c, 0), g.cols-1)
}

func (g *Grid) cellIDs(r, c int) []int32 {
	k := r*g.cols + c
	return g.ids[g.offsets[k]:g.offsets[k+1]]
}

// Query returns the candidate ordinals for p in ascending order. Points
// outside the indexed extent have no candidates.
func (g *Grid) Query(p boundary.Point) []int {
	if !g.extent.Contains(p) {
		return nil
	}
	ids := g.cellIDs(g.cellOf(p.Lat, p.Lon))
	if len(ids) == 0 {
		return nil
	}
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}

// QueryBBox returns the ascending, deduplicated candidates of every cell b
// touches.
func (g *Grid) QueryBBox(b boundary.BBox) []int {
	if b.IsEmpty() || !g.extent.Intersects(b) {
		return nil
	}
	r0, c0 := g.cellOf(b.MinLat, b.MinLon)
	r1, c1 := g.cellOf(b.MaxLat, b.MaxLon)

	var out []int
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			for _, id := range g.cellIDs(r, c) {
				out = append(out, int(id))
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Stats reports the grid shape and candidate density.
func (g *Grid) Stats() GridStats {
	return g.stats
}
