// Package geometry provides convex polygon operations used for collision handling.
package geometry

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/Faultbox/tdr2024/pkg/math"
)

// ErrInvalidShape is returned by the polygon factories for degenerate input.
var ErrInvalidShape = errors.New("invalid shape")

// Line is a pair of points.
type Line [2]math.Vec2

// Polygon is a convex polygon stored as points in winding order.
//
// Polygons can only be built by the factory functions, all of which produce
// convex shapes; ContainsPoint and IsTouching rely on that.
type Polygon struct {
	points []math.Vec2
}

// Rect returns an axis-aligned rectangle of the given size centred on the origin.
func Rect(size math.Vec2) (Polygon, error) {
	if size.X <= 0 || size.Y <= 0 {
		return Polygon{}, fmt.Errorf("%w: size %v", ErrInvalidShape, size)
	}
	w, h := size.X/2, size.Y/2
	return Polygon{points: []math.Vec2{
		{X: -w, Y: h}, {X: w, Y: h}, {X: w, Y: -h}, {X: -w, Y: -h},
	}}, nil
}

// RoundedRect returns an octagon approximating a rectangle with rounded corners.
// percent is the share of the shorter half-edge kept straight on each side.
func RoundedRect(size math.Vec2, percent float32) (Polygon, error) {
	if size.X <= 0 || size.Y <= 0 {
		return Polygon{}, fmt.Errorf("%w: size %v", ErrInvalidShape, size)
	}
	if percent <= 0 || percent >= 100 {
		return Polygon{}, fmt.Errorf("%w: rounding %v%% out of range (0, 100)", ErrInvalidShape, percent)
	}
	w, h := size.X/2, size.Y/2
	m := min(w, h)
	c := m - 0.01*m*percent

	return Polygon{points: []math.Vec2{
		{X: c - w, Y: h},
		{X: w - c, Y: h},
		{X: w, Y: h - c},
		{X: w, Y: c - h},
		{X: w - c, Y: -h},
		{X: c - w, Y: -h},
		{X: -w, Y: c - h},
		{X: -w, Y: h - c},
	}}, nil
}

// Points returns a copy of the polygon's points.
func (p Polygon) Points() []math.Vec2 {
	out := make([]math.Vec2, len(p.points))
	copy(out, p.points)
	return out
}

// Lines returns every edge, closing the loop back to the first point.
func (p Polygon) Lines() []Line {
	n := len(p.points)
	lines := make([]Line, n)
	for i := range p.points {
		lines[i] = Line{p.points[i], p.points[(i+1)%n]}
	}
	return lines
}

// ContainsPoint reports whether pt lies inside or on the polygon.
func (p Polygon) ContainsPoint(pt math.Vec2) bool {
	n := len(p.points)
	if n < 3 {
		return false
	}
	for i := range p.points {
		a, b, c := p.points[i], p.points[(i+1)%n], p.points[(i+2)%n]
		if !sameSide(pt, a, Line{b, c}) {
			return false
		}
	}
	return true
}

// ClosestEdge returns the edge whose infinite line is nearest to pt.
func (p Polygon) ClosestEdge(pt math.Vec2) Line {
	var (
		best     Line
		bestDist = float32(gomath.Inf(1))
	)
	for _, l := range p.Lines() {
		if d := DistanceToLine(pt, l); d < bestDist {
			best, bestDist = l, d
		}
	}
	return best
}

// IsTouching reports whether any corner of either polygon is inside the other.
func (p Polygon) IsTouching(other Polygon) bool {
	for _, pt := range other.points {
		if p.ContainsPoint(pt) {
			return true
		}
	}
	for _, pt := range p.points {
		if other.ContainsPoint(pt) {
			return true
		}
	}
	return false
}

// FirstPointInside returns the first of p's corners lying inside other.
func (p Polygon) FirstPointInside(other Polygon) (math.Vec2, bool) {
	for _, pt := range p.points {
		if other.ContainsPoint(pt) {
			return pt, true
		}
	}
	return math.Vec2{}, false
}

// Transform rotates the polygon by rotation radians and then translates it.
func (p Polygon) Transform(translation math.Vec2, rotation float32) Polygon {
	out := make([]math.Vec2, len(p.points))
	for i, pt := range p.points {
		out[i] = pt.Rotate(rotation).Add(translation)
	}
	return Polygon{points: out}
}

func sameSide(p1, p2 math.Vec2, l Line) bool {
	edge := l[1].Sub(l[0])
	cp1 := edge.Cross(p1.Sub(l[0]))
	cp2 := edge.Cross(p2.Sub(l[0]))
	return cp1*cp2 >= 0
}

// LengthOfLine returns the distance between the line's end points.
func LengthOfLine(l Line) float32 {
	return l[0].Distance(l[1])
}

// AreaOfTriangle returns the area of the triangle abc.
func AreaOfTriangle(a, b, c math.Vec2) float32 {
	area := (a.X-c.X)*(b.Y-a.Y) - (a.X-b.X)*(c.Y-a.Y)
	return float32(gomath.Abs(float64(area))) / 2
}

// DistanceToLine returns the shortest distance from pt to the infinite line through l.
func DistanceToLine(pt math.Vec2, l Line) float32 {
	length := LengthOfLine(l)
	if length == 0 {
		return pt.Distance(l[0])
	}
	return 2 * AreaOfTriangle(pt, l[0], l[1]) / length
}

// ReflectAgainstLine reflects v off the line l.
func ReflectAgainstLine(v math.Vec2, l Line) math.Vec2 {
	normal := l[1].Sub(l[0]).Perp().Normalize()
	return v.Sub(normal.Scale(2 * v.Dot(normal)))
}

// ReflectAgainstSegment reflects v off the corner formed by a-b-c using the
// average of the two edge normals.
func ReflectAgainstSegment(v, a, b, c math.Vec2) math.Vec2 {
	n1 := b.Sub(a).Perp().Normalize()
	n2 := c.Sub(b).Perp().Normalize()
	semi := n1.Add(n2).Normalize()
	return v.Sub(semi.Scale(2 * v.Dot(semi)))
}
