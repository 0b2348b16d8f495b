// Package spatial provides the bounds store backing viewport culling: a
// uniform grid over world space that answers rectangle-intersection queries.
//
// Generational layouts are roughly grid-like (fixed rows, spreading x), so a
// uniform grid bucketed by generation row and x-range beats a general tree
// here. Entries spanning several cells are inserted into each; queries
// deduplicate by id.
package spatial

import (
	"math"
	"sort"

	"github.com/vanderheijden86/kinview/pkg/geom"
	"github.com/vanderheijden86/kinview/pkg/metrics"
)

// Kind distinguishes node boxes from connection-line boxes.
type Kind int

const (
	KindNode Kind = iota
	KindConnection
)

// Entry is one indexed bounding box.
type Entry struct {
	ID     string
	Kind   Kind
	Bounds geom.Rect
}

type cellKey struct {
	row int
	col int
}

// Grid is a uniform spatial grid. It is owned by a single engine instance
// and is not safe for concurrent use.
type Grid struct {
	cellW float64
	cellH float64

	cells   map[cellKey][]string
	entries map[string]Entry
}

// NewGrid creates a grid with the given cell dimensions. Cell height should
// match the generation gap so each generation row maps to one grid row.
func NewGrid(cellW, cellH float64) *Grid {
	if cellW <= 0 {
		cellW = 256
	}
	if cellH <= 0 {
		cellH = 256
	}
	return &Grid{
		cellW:   cellW,
		cellH:   cellH,
		cells:   make(map[cellKey][]string),
		entries: make(map[string]Entry),
	}
}

// Len returns the number of indexed entries.
func (g *Grid) Len() int { return len(g.entries) }

// Insert adds or replaces an entry.
func (g *Grid) Insert(e Entry) {
	if old, ok := g.entries[e.ID]; ok {
		if old.Bounds == e.Bounds && old.Kind == e.Kind {
			return
		}
		g.removeFromCells(old)
	}
	g.entries[e.ID] = e
	for _, key := range g.keysFor(e.Bounds) {
		g.cells[key] = append(g.cells[key], e.ID)
	}
}

// Remove deletes an entry by id. Unknown ids are ignored.
func (g *Grid) Remove(id string) {
	e, ok := g.entries[id]
	if !ok {
		return
	}
	g.removeFromCells(e)
	delete(g.entries, id)
}

// Query returns all entries whose bounds intersect r, ordered by id for
// deterministic output.
func (g *Grid) Query(r geom.Rect) []Entry {
	defer metrics.Timer(metrics.SpatialQuery)()

	seen := make(map[string]struct{})
	var out []Entry
	for _, key := range g.keysFor(r) {
		for _, id := range g.cells[key] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			e := g.entries[id]
			if e.Bounds.Intersects(r) {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Sync reconciles the grid with a complete replacement entry set, touching
// only entries that actually changed. When a layout pass moved a single
// subtree this degrades to a handful of cell updates instead of a wholesale
// rebuild.
func (g *Grid) Sync(entries []Entry) {
	defer metrics.Timer(metrics.SpatialSync)()

	keep := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		keep[e.ID] = struct{}{}
		g.Insert(e) // no-op when bounds are unchanged
	}
	for id := range g.entries {
		if _, ok := keep[id]; !ok {
			g.Remove(id)
		}
	}
}

// Bounds returns the union of all indexed bounds.
func (g *Grid) Bounds() geom.Rect {
	var u geom.Rect
	for _, e := range g.entries {
		u = u.Union(e.Bounds)
	}
	return u
}

func (g *Grid) removeFromCells(e Entry) {
	for _, key := range g.keysFor(e.Bounds) {
		ids := g.cells[key]
		for i, id := range ids {
			if id == e.ID {
				ids[i] = ids[len(ids)-1]
				ids = ids[:len(ids)-1]
				break
			}
		}
		if len(ids) == 0 {
			delete(g.cells, key)
		} else {
			g.cells[key] = ids
		}
	}
}

func (g *Grid) keysFor(r geom.Rect) []cellKey {
	minCol := int(math.Floor(r.MinX / g.cellW))
	maxCol := int(math.Floor(r.MaxX / g.cellW))
	minRow := int(math.Floor(r.MinY / g.cellH))
	maxRow := int(math.Floor(r.MaxY / g.cellH))

	keys := make([]cellKey, 0, (maxCol-minCol+1)*(maxRow-minRow+1))
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			keys = append(keys, cellKey{row: row, col: col})
		}
	}
	return keys
}
