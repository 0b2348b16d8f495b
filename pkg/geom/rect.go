// Package geom provides the small world-space geometry vocabulary shared by
// the layout, spatial-index, and viewport packages: axis-aligned rectangles
// and points in float64 world coordinates.
package geom

import "math"

// Point is a position in world space.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle in world space.
// A Rect is valid when MinX <= MaxX and MinY <= MaxY.
type Rect struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// RectAround returns the rectangle of the given width and height centered on
// (cx, cy).
func RectAround(cx, cy, w, h float64) Rect {
	return Rect{
		MinX: cx - w/2,
		MinY: cy - h/2,
		MaxX: cx + w/2,
		MaxY: cy + h/2,
	}
}

// RectFromSegment returns the bounding box of the line segment (x1,y1)-(x2,y2).
func RectFromSegment(x1, y1, x2, y2 float64) Rect {
	return Rect{
		MinX: math.Min(x1, x2),
		MinY: math.Min(y1, y2),
		MaxX: math.Max(x1, x2),
		MaxY: math.Max(y1, y2),
	}
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.MaxX <= r.MinX || r.MaxY <= r.MinY
}

// Intersects reports whether r and o overlap. Touching edges count as an
// intersection so that culling errs on the inclusive side.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX <= o.MaxX && o.MinX <= r.MaxX &&
		r.MinY <= o.MaxY && o.MinY <= r.MaxY
}

// Contains reports whether p lies inside r (inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
}

// ContainsRect reports whether o lies entirely inside r.
func (r Rect) ContainsRect(o Rect) bool {
	return o.MinX >= r.MinX && o.MaxX <= r.MaxX &&
		o.MinY >= r.MinY && o.MaxY <= r.MaxY
}

// Expand grows the rectangle by dx on both horizontal sides and dy on both
// vertical sides. Negative values shrink it.
func (r Rect) Expand(dx, dy float64) Rect {
	return Rect{
		MinX: r.MinX - dx,
		MinY: r.MinY - dy,
		MaxX: r.MaxX + dx,
		MaxY: r.MaxY + dy,
	}
}

// Union returns the smallest rectangle covering both r and o. An empty
// rectangle acts as the identity so unions can be accumulated from a zero
// value.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		MinX: math.Min(r.MinX, o.MinX),
		MinY: math.Min(r.MinY, o.MinY),
		MaxX: math.Max(r.MaxX, o.MaxX),
		MaxY: math.Max(r.MaxY, o.MaxY),
	}
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() Point {
	return Point{X: (r.MinX + r.MaxX) / 2, Y: (r.MinY + r.MaxY) / 2}
}
