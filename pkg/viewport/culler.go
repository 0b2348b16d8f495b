package viewport

import (
	"github.com/vanderheijden86/kinview/pkg/geom"
	"github.com/vanderheijden86/kinview/pkg/metrics"
	"github.com/vanderheijden86/kinview/pkg/spatial"
)

// CullResult is one culling pass output. The entry sets are a superset of
// anything actually on screen (the margin provides panning lookahead) and
// exclude everything provably outside the expanded rectangle.
type CullResult struct {
	// Visible is the unexpanded world-space viewport. Eviction pinning uses
	// this rectangle, not the expanded one.
	Visible geom.Rect
	// Expanded is Visible grown by the lookahead margins.
	Expanded geom.Rect

	Nodes       []spatial.Entry
	Connections []spatial.Entry

	// Uncovered is non-nil when the expanded rectangle extends past the
	// region the materialized set covers; the progressive loader should be
	// signaled with it rather than silently rendering nothing.
	Uncovered *geom.Rect
}

// Culler filters the spatial index against the padded visible rectangle.
// Margins may be asymmetric between axes.
type Culler struct {
	marginX float64
	marginY float64
	index   *spatial.Grid
}

// NewCuller creates a culler over the given spatial index.
func NewCuller(index *spatial.Grid, marginX, marginY float64) *Culler {
	return &Culler{index: index, marginX: marginX, marginY: marginY}
}

// Cull computes the visible and expanded rectangles for the camera and
// screen size, queries the spatial index, and reports whether the expanded
// rectangle escapes the covered region. covered is the union of regions the
// loader has materialized; pass an empty rect before the first load.
func (c *Culler) Cull(cam Camera, screenW, screenH float64, covered geom.Rect) (CullResult, error) {
	if err := cam.Validate(); err != nil {
		return CullResult{}, err
	}
	defer metrics.Timer(metrics.CullPass)()

	visible := cam.WorldRect(screenW, screenH)
	expanded := visible.Expand(c.marginX, c.marginY)

	res := CullResult{Visible: visible, Expanded: expanded}
	for _, e := range c.index.Query(expanded) {
		switch e.Kind {
		case spatial.KindNode:
			res.Nodes = append(res.Nodes, e)
		case spatial.KindConnection:
			res.Connections = append(res.Connections, e)
		}
	}

	if !covered.ContainsRect(expanded) {
		uncovered := expanded
		res.Uncovered = &uncovered
	}
	return res, nil
}
