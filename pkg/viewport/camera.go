// Package viewport computes the world-space visible rectangle from the
// camera transform and filters the spatial index down to the renderable set.
package viewport

import (
	"fmt"
	"math"

	"github.com/vanderheijden86/kinview/pkg/geom"
)

// Camera zoom bounds. Scale is clamped into this range; values outside it
// coming from a gesture adapter are pinned, while non-finite values are
// rejected outright.
const (
	MinZoom = 0.1
	MaxZoom = 4.0
)

// Camera is the normalized transform fed by the gesture adapter: a
// translation in screen pixels and a scale factor. A world point maps to
// screen as world*Scale + translation.
type Camera struct {
	X     float64
	Y     float64
	Scale float64
}

// Validate rejects transforms that would poison downstream math. This is
// the synchronous whole-pass error surface: the caller that moved the
// camera gets it immediately.
func (c Camera) Validate() error {
	if math.IsNaN(c.X) || math.IsInf(c.X, 0) ||
		math.IsNaN(c.Y) || math.IsInf(c.Y, 0) {
		return fmt.Errorf("camera: non-finite translation (%g, %g)", c.X, c.Y)
	}
	if math.IsNaN(c.Scale) || math.IsInf(c.Scale, 0) || c.Scale <= 0 {
		return fmt.Errorf("camera: invalid scale %g", c.Scale)
	}
	return nil
}

// Clamped returns the camera with scale pinned into [MinZoom, MaxZoom].
func (c Camera) Clamped() Camera {
	if c.Scale < MinZoom {
		c.Scale = MinZoom
	}
	if c.Scale > MaxZoom {
		c.Scale = MaxZoom
	}
	return c
}

// WorldRect maps the screen rectangle (0,0)-(screenW,screenH) into world
// space under the camera transform.
func (c Camera) WorldRect(screenW, screenH float64) geom.Rect {
	return geom.Rect{
		MinX: (0 - c.X) / c.Scale,
		MinY: (0 - c.Y) / c.Scale,
		MaxX: (screenW - c.X) / c.Scale,
		MaxY: (screenH - c.Y) / c.Scale,
	}
}

// ToScreen maps a world point to screen coordinates.
func (c Camera) ToScreen(p geom.Point) geom.Point {
	return geom.Point{X: p.X*c.Scale + c.X, Y: p.Y*c.Scale + c.Y}
}
