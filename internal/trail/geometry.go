// Package trail implements lightribbon geometry and the leading-edge
// collision model used by the local practice authority.
package trail

import (
	"math"

	"webtron/client/internal/arena"
)

// DefaultLeadOffset is how far ahead of a bike's centre its leading edge sits.
const DefaultLeadOffset = 4.0

// DefaultTolerance widens segment hit boxes so that a point moving at most
// this far per step cannot skip over a perpendicular trail.
const DefaultTolerance = 1.0

// Segment is one straight, axis-aligned stretch of a ribbon.
type Segment struct {
	From arena.Point
	To   arena.Point
}

// Segments splits a polyline into consecutive segments.
func Segments(points []arena.Point) []Segment {
	if len(points) < 2 {
		return nil
	}
	segments := make([]Segment, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		segments = append(segments, Segment{From: points[i-1], To: points[i]})
	}
	return segments
}

// Contains is the inclusive bounding box test: p lies on s when both of its
// coordinates fall between the endpoints.
func (s Segment) Contains(p arena.Point) bool {
	return s.Near(p, 0)
}

// Near is Contains with the box grown by tolerance on every side.
func (s Segment) Near(p arena.Point, tolerance float64) bool {
	minX, maxX := math.Min(s.From.X, s.To.X), math.Max(s.From.X, s.To.X)
	minY, maxY := math.Min(s.From.Y, s.To.Y), math.Max(s.From.Y, s.To.Y)
	return p.X >= minX-tolerance && p.X <= maxX+tolerance &&
		p.Y >= minY-tolerance && p.Y <= maxY+tolerance
}

// Length returns the Manhattan length of the segment.
func (s Segment) Length() float64 {
	return math.Abs(s.To.X-s.From.X) + math.Abs(s.To.Y-s.From.Y)
}

// OnTrail reports whether p lies on any segment of points.
func OnTrail(p arena.Point, points []arena.Point, tolerance float64) bool {
	for i := 1; i < len(points); i++ {
		if (Segment{From: points[i-1], To: points[i]}).Near(p, tolerance) {
			return true
		}
	}
	return false
}

// Collides tests p against every ribbon in a and returns the owner of the
// first ribbon hit. Ribbons are visited in id order.
func Collides(p arena.Point, a arena.Arena, tolerance float64) (arena.ID, bool) {
	for _, id := range a.LightribbonIDs() {
		ribbon, _ := a.Lightribbon(id)
		if OnTrail(p, ribbon.Points, tolerance) {
			return id, true
		}
	}
	return arena.ID{}, false
}

// LeadingEdge returns the point offset ahead of pos along dir.
func LeadingEdge(pos arena.Point, dir arena.Direction, offset float64) arena.Point {
	return pos.Add(dir.Unit().Scale(offset))
}

// InBounds reports whether p lies inside a width by height arena, edges
// included.
func InBounds(p arena.Point, width, height float64) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= width && p.Y <= height
}
