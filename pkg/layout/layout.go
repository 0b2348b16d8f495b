// Package layout converts a forest of person records plus marriages into
// absolute 2D coordinates: one Node per included person, one Connection per
// parent/child and current-spouse pair.
//
// Computation is pure: identical (topology, ordering, sizing constants)
// inputs always yield identical outputs. Results are replaced wholesale per
// recomputation pass, never mutated in place, so the render path can hold a
// result value without seeing partial state.
package layout

import (
	"fmt"
	"sort"

	"github.com/vanderheijden86/kinview/pkg/config"
	"github.com/vanderheijden86/kinview/pkg/debug"
	"github.com/vanderheijden86/kinview/pkg/geom"
	"github.com/vanderheijden86/kinview/pkg/metrics"
	"github.com/vanderheijden86/kinview/pkg/model"
)

// connectionPad gives connector segments a nonzero-height bounding box so
// horizontal and vertical lines survive intersection tests.
const connectionPad = 1.0

// Node is a positioned person. X/Y are the node center; Y is the generation
// row coordinate.
type Node struct {
	ID           model.PersonID
	X            float64
	Y            float64
	Generation   int
	SubtreeWidth float64
	Bounds       geom.Rect

	// SpousePlaced is true when the node was positioned adjacent to a
	// partner rather than inside a sibling span.
	SpousePlaced bool
}

// ConnectionKind distinguishes parent/child drops from spouse links.
type ConnectionKind int

const (
	ConnParentChild ConnectionKind = iota
	ConnSpouse
)

// Connection is a derived line segment between two laid-out nodes. It
// carries its own bounding box for culling.
type Connection struct {
	ID     string
	Kind   ConnectionKind
	From   model.PersonID
	To     model.PersonID
	X1, Y1 float64
	X2, Y2 float64
	Bounds geom.Rect
}

// Diagnostic records a node excluded from layout and why. Malformed input
// never aborts the whole pass; the offending node is dropped and reported.
type Diagnostic struct {
	ID     model.PersonID `json:"id"`
	Code   string         `json:"code"` // "invalid", "self_parent", "cycle"
	Detail string         `json:"detail"`
}

// Result is one complete layout pass output.
type Result struct {
	Nodes       map[model.PersonID]Node
	Order       []model.PersonID // node ids sorted for deterministic iteration
	Connections []Connection
	Diagnostics []Diagnostic
	Bounds      geom.Rect
}

// Node ids are stable, so spatial-index entry ids reuse them directly;
// connection entry ids get a prefix to avoid colliding with person ids.
func ConnectionEntryID(c Connection) string { return "conn/" + c.ID }

// Sizing holds the effective (clamped) layout constants.
type Sizing struct {
	NodeWidth     float64
	NodeHeight    float64
	SiblingGap    float64
	GenerationGap float64
	SpouseGap     float64
}

// SizingFromConfig clamps the configured gap defaults into their ranges.
func SizingFromConfig(cfg config.LayoutConfig) Sizing {
	return Sizing{
		NodeWidth:     cfg.NodeWidth,
		NodeHeight:    cfg.NodeHeight,
		SiblingGap:    cfg.SiblingGap.Clamped(),
		GenerationGap: cfg.GenerationGap.Clamped(),
		SpouseGap:     cfg.SpouseGap,
	}
}

// Engine computes layouts for one tree view. It holds only sizing constants;
// every Compute call is independent of prior calls.
type Engine struct {
	sizing Sizing
}

// New creates a layout engine with the given sizing constants.
func New(sizing Sizing) *Engine {
	return &Engine{sizing: sizing}
}

// Sizing returns the engine's effective sizing constants.
func (e *Engine) Sizing() Sizing { return e.sizing }

// Compute lays out the given people and marriages. People whose parent is
// absent from the input are treated as synthetic roots (partial-tree
// rendering during progressive loading). Cyclic or self-referential parent
// links are excluded with a diagnostic.
func (e *Engine) Compute(people []model.Person, marriages []model.Marriage) *Result {
	defer metrics.Timer(metrics.LayoutPass)()

	res := &Result{Nodes: make(map[model.PersonID]Node, len(people))}

	byID := make(map[model.PersonID]model.Person, len(people))
	for _, p := range people {
		if err := p.Validate(); err != nil {
			code := "invalid"
			if p.ID != "" && p.ID == p.ParentID {
				code = "self_parent"
			}
			res.Diagnostics = append(res.Diagnostics, Diagnostic{ID: p.ID, Code: code, Detail: err.Error()})
			continue
		}
		if _, dup := byID[p.ID]; dup {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{ID: p.ID, Code: "invalid", Detail: "duplicate id"})
			continue
		}
		byID[p.ID] = p
	}

	// Drop members of parent-link cycles before building the forest so the
	// traversal below can never loop.
	for _, d := range excludeCycles(byID) {
		res.Diagnostics = append(res.Diagnostics, d)
		delete(byID, d.ID)
	}

	children := make(map[model.PersonID][]model.PersonID)
	for id, p := range byID {
		if p.ParentID == "" {
			continue
		}
		if _, ok := byID[p.ParentID]; !ok {
			continue // absent parent: id becomes a synthetic root below
		}
		children[p.ParentID] = append(children[p.ParentID], id)
	}
	for parent := range children {
		sortSiblings(children[parent], byID)
	}

	spouses := currentSpouses(byID, marriages)
	anchored := spousePlacedSet(byID, children, spouses)

	// Roots: parentless (or orphaned) people not placed as spouses.
	var roots []model.PersonID
	for id, p := range byID {
		if anchored[id] {
			continue
		}
		if p.ParentID == "" {
			roots = append(roots, id)
			continue
		}
		if _, ok := byID[p.ParentID]; !ok {
			roots = append(roots, id)
		}
	}
	sort.Slice(roots, func(i, j int) bool {
		a, b := byID[roots[i]], byID[roots[j]]
		if a.Generation != b.Generation {
			return a.Generation < b.Generation
		}
		if a.SiblingOrder != b.SiblingOrder {
			return a.SiblingOrder < b.SiblingOrder
		}
		return a.ID < b.ID
	})

	widths := make(map[model.PersonID]float64, len(byID))
	for _, root := range roots {
		e.measure(root, children, widths)
	}

	cursor := 0.0
	for _, root := range roots {
		e.place(root, cursor, byID, children, widths, res)
		cursor += widths[root] + e.sizing.SiblingGap
	}

	e.placeSpouses(anchored, spouses, byID, res)
	e.connect(children, spouses, res)

	res.Order = make([]model.PersonID, 0, len(res.Nodes))
	for id := range res.Nodes {
		res.Order = append(res.Order, id)
	}
	sort.Slice(res.Order, func(i, j int) bool { return res.Order[i] < res.Order[j] })

	for _, id := range res.Order {
		res.Bounds = res.Bounds.Union(res.Nodes[id].Bounds)
	}
	for _, c := range res.Connections {
		res.Bounds = res.Bounds.Union(c.Bounds)
	}

	sort.Slice(res.Diagnostics, func(i, j int) bool { return res.Diagnostics[i].ID < res.Diagnostics[j].ID })
	debug.Log("layout: %d nodes, %d connections, %d excluded",
		len(res.Nodes), len(res.Connections), len(res.Diagnostics))
	return res
}

// measure computes subtree widths post-order. A leaf occupies its own node
// width; an internal node's width is the children sum plus sibling gaps, but
// never narrower than a single node.
func (e *Engine) measure(id model.PersonID, children map[model.PersonID][]model.PersonID, widths map[model.PersonID]float64) float64 {
	kids := children[id]
	if len(kids) == 0 {
		widths[id] = e.sizing.NodeWidth
		return widths[id]
	}
	total := 0.0
	for _, kid := range kids {
		total += e.measure(kid, children, widths)
	}
	total += float64(len(kids)-1) * e.sizing.SiblingGap
	if total < e.sizing.NodeWidth {
		total = e.sizing.NodeWidth
	}
	widths[id] = total
	return total
}

// place assigns coordinates: the node sits at the horizontal midpoint of its
// subtree span; children split the span left to right in sibling order.
func (e *Engine) place(id model.PersonID, spanMinX float64, byID map[model.PersonID]model.Person, children map[model.PersonID][]model.PersonID, widths map[model.PersonID]float64, res *Result) {
	p := byID[id]
	w := widths[id]
	x := spanMinX + w/2
	y := float64(p.Generation) * e.sizing.GenerationGap

	res.Nodes[id] = Node{
		ID:           id,
		X:            x,
		Y:            y,
		Generation:   p.Generation,
		SubtreeWidth: w,
		Bounds:       geom.RectAround(x, y, e.sizing.NodeWidth, e.sizing.NodeHeight),
	}

	kids := children[id]
	if len(kids) == 0 {
		return
	}
	kidsTotal := 0.0
	for _, kid := range kids {
		kidsTotal += widths[kid]
	}
	kidsTotal += float64(len(kids)-1) * e.sizing.SiblingGap

	// Center narrower child spans under the parent.
	cursor := spanMinX + (w-kidsTotal)/2
	for _, kid := range kids {
		e.place(kid, cursor, byID, children, widths, res)
		cursor += widths[kid] + e.sizing.SiblingGap
	}
}

// placeSpouses positions spouse-only nodes adjacent to their partner on the
// partner's row. They occupy no sibling-gap spacing of the owning
// generation, so they may overlap an adjacent subtree.
func (e *Engine) placeSpouses(anchored map[model.PersonID]bool, spouses map[model.PersonID][]model.Marriage, byID map[model.PersonID]model.Person, res *Result) {
	ids := make([]model.PersonID, 0, len(anchored))
	for id := range anchored {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		partner, slot := anchorFor(id, spouses, res)
		if partner == "" {
			// Partner itself was excluded or unplaced; fall back to a lone
			// node at its own generation row, column zero.
			p := byID[id]
			y := float64(p.Generation) * e.sizing.GenerationGap
			res.Nodes[id] = Node{
				ID:         id,
				X:          0,
				Y:          y,
				Generation: p.Generation,
				Bounds:     geom.RectAround(0, y, e.sizing.NodeWidth, e.sizing.NodeHeight),
			}
			continue
		}
		anchor := res.Nodes[partner]
		x := anchor.X + float64(slot+1)*(e.sizing.NodeWidth+e.sizing.SpouseGap)
		res.Nodes[id] = Node{
			ID:           id,
			X:            x,
			Y:            anchor.Y,
			Generation:   anchor.Generation,
			SpousePlaced: true,
			Bounds:       geom.RectAround(x, anchor.Y, e.sizing.NodeWidth, e.sizing.NodeHeight),
		}
	}
}

// anchorFor picks the laid-out partner a spouse node attaches to, and the
// slot index among that partner's ordered spouses.
func anchorFor(id model.PersonID, spouses map[model.PersonID][]model.Marriage, res *Result) (model.PersonID, int) {
	for _, m := range spouses[id] {
		partner := m.Other(id)
		if _, ok := res.Nodes[partner]; !ok {
			continue
		}
		for slot, pm := range spouses[partner] {
			if pm.Other(partner) == id {
				return partner, slot
			}
		}
		return partner, 0
	}
	return "", 0
}

// connect derives the line segments. Parent/child drops run from the parent
// bottom edge to the child top edge; spouse links run between node centers.
func (e *Engine) connect(children map[model.PersonID][]model.PersonID, spouses map[model.PersonID][]model.Marriage, res *Result) {
	halfH := e.sizing.NodeHeight / 2

	parents := make([]model.PersonID, 0, len(children))
	for parent := range children {
		parents = append(parents, parent)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })

	for _, parent := range parents {
		pn, ok := res.Nodes[parent]
		if !ok {
			continue
		}
		for _, child := range children[parent] {
			cn, ok := res.Nodes[child]
			if !ok {
				continue
			}
			conn := Connection{
				ID:   fmt.Sprintf("pc:%s:%s", parent, child),
				Kind: ConnParentChild,
				From: parent,
				To:   child,
				X1:   pn.X,
				Y1:   pn.Y + halfH,
				X2:   cn.X,
				Y2:   cn.Y - halfH,
			}
			conn.Bounds = geom.RectFromSegment(conn.X1, conn.Y1, conn.X2, conn.Y2).Expand(connectionPad, connectionPad)
			res.Connections = append(res.Connections, conn)
		}
	}

	seen := make(map[string]bool)
	ids := make([]model.PersonID, 0, len(spouses))
	for id := range spouses {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		for _, m := range spouses[id] {
			if seen[m.Key()] {
				continue
			}
			a, aok := res.Nodes[m.A]
			b, bok := res.Nodes[m.B]
			if !aok || !bok {
				continue
			}
			seen[m.Key()] = true
			conn := Connection{
				ID:   "sp:" + m.Key(),
				Kind: ConnSpouse,
				From: m.A,
				To:   m.B,
				X1:   a.X,
				Y1:   a.Y,
				X2:   b.X,
				Y2:   b.Y,
			}
			conn.Bounds = geom.RectFromSegment(conn.X1, conn.Y1, conn.X2, conn.Y2).Expand(connectionPad, connectionPad)
			res.Connections = append(res.Connections, conn)
		}
	}

	sort.Slice(res.Connections, func(i, j int) bool { return res.Connections[i].ID < res.Connections[j].ID })
}

// sortSiblings orders children by the explicit order field, ties broken by
// id, never by insertion order.
func sortSiblings(ids []model.PersonID, byID map[model.PersonID]model.Person) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := byID[ids[i]], byID[ids[j]]
		if a.SiblingOrder != b.SiblingOrder {
			return a.SiblingOrder < b.SiblingOrder
		}
		return a.ID < b.ID
	})
}

// currentSpouses indexes current marriages per person, ordered by the
// explicit spouse-order field with id tie-break.
func currentSpouses(byID map[model.PersonID]model.Person, marriages []model.Marriage) map[model.PersonID][]model.Marriage {
	out := make(map[model.PersonID][]model.Marriage)
	for _, m := range marriages {
		if m.Status != model.MarriageCurrent {
			continue
		}
		if m.Validate() != nil {
			continue
		}
		if _, ok := byID[m.A]; !ok {
			continue
		}
		if _, ok := byID[m.B]; !ok {
			continue
		}
		out[m.A] = append(out[m.A], m)
		out[m.B] = append(out[m.B], m)
	}
	for id := range out {
		ms := out[id]
		sort.Slice(ms, func(i, j int) bool {
			if ms[i].SpouseOrder != ms[j].SpouseOrder {
				return ms[i].SpouseOrder < ms[j].SpouseOrder
			}
			return ms[i].Other(id) < ms[j].Other(id)
		})
		out[id] = ms
	}
	return out
}

// spousePlacedSet identifies people placed by marriage adjacency instead of
// tree membership: no materialized parent, no materialized children, and a
// current marriage to someone who is tree-anchored.
func spousePlacedSet(byID map[model.PersonID]model.Person, children map[model.PersonID][]model.PersonID, spouses map[model.PersonID][]model.Marriage) map[model.PersonID]bool {
	treeAnchored := func(id model.PersonID) bool {
		p := byID[id]
		if p.ParentID != "" {
			if _, ok := byID[p.ParentID]; ok {
				return true
			}
		}
		return len(children[id]) > 0
	}

	out := make(map[model.PersonID]bool)
	for id := range byID {
		if treeAnchored(id) {
			continue
		}
		for _, m := range spouses[id] {
			if treeAnchored(m.Other(id)) {
				out[id] = true
				break
			}
		}
	}
	return out
}
