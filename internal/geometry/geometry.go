// Package geometry provides the pure coordinate and curve math used by the
// flow editor: conversions between screen pixels and logical canvas units,
// port anchor placement, and cubic connection curves. Nothing here holds
// state; every function is deterministic in its arguments.
package geometry

import "math"

// Node bounding box in logical (unscaled) canvas units. All port anchors
// are derived from these dimensions.
const (
	NodeWidth  = 200.0
	NodeHeight = 150.0
)

// maxControlOffset caps how far a curve's control points extend from their
// endpoints, keeping short connections from ballooning.
const maxControlOffset = 100.0

// Point is a position in either screen or logical space; which one is a
// matter of convention at the call site.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p minus q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p with both components multiplied by f.
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }

// Dist returns the euclidean distance between p and q.
func Dist(p, q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Viewport is the pan/zoom transform between logical canvas units and
// screen pixels. Origin is the canvas's top-left corner in screen space.
type Viewport struct {
	Scale   float64
	ScrollX float64
	ScrollY float64
	OriginX float64
	OriginY float64
}

// ScreenToLogical converts a screen-space point into logical canvas units:
// logical = (screen - origin + scroll) / scale.
func ScreenToLogical(p Point, v Viewport) Point {
	return Point{
		X: (p.X - v.OriginX + v.ScrollX) / v.Scale,
		Y: (p.Y - v.OriginY + v.ScrollY) / v.Scale,
	}
}

// LogicalToScreen is the inverse of ScreenToLogical.
func LogicalToScreen(p Point, v Viewport) Point {
	return Point{
		X: p.X*v.Scale + v.OriginX - v.ScrollX,
		Y: p.Y*v.Scale + v.OriginY - v.ScrollY,
	}
}

// Port identifies which side of a node a connection attaches to.
type Port int

const (
	// PortIn is the input anchor on the node's left edge.
	PortIn Port = iota
	// PortOut is the output anchor on the node's right edge.
	PortOut
)

// PortAnchor returns the logical anchor point for a port on a node whose
// top-left corner sits at pos. Output ports sit at the right-center edge,
// input ports at the left-center edge.
func PortAnchor(pos Point, port Port) Point {
	y := pos.Y + NodeHeight/2
	if port == PortOut {
		return Point{pos.X + NodeWidth, y}
	}
	return Point{pos.X, y}
}

// Curve is a cubic bezier from P1 to P2 with control points C1 and C2.
type Curve struct {
	P1 Point
	C1 Point
	C2 Point
	P2 Point
}

// CubicPath builds the horizontally-biased S-curve used for connections.
// The control offset is min(dist(p1,p2)/2, 100), applied horizontally from
// each endpoint toward the other. The result depends only on p1 and p2.
func CubicPath(p1, p2 Point) Curve {
	offset := math.Min(Dist(p1, p2)/2, maxControlOffset)
	dir := 1.0
	if p2.X < p1.X {
		dir = -1.0
	}
	return Curve{
		P1: p1,
		C1: Point{p1.X + dir*offset, p1.Y},
		C2: Point{p2.X - dir*offset, p2.Y},
		P2: p2,
	}
}

// At evaluates the curve at parameter t in [0, 1].
func (c Curve) At(t float64) Point {
	u := 1 - t
	b0 := u * u * u
	b1 := 3 * u * u * t
	b2 := 3 * u * t * t
	b3 := t * t * t
	return Point{
		X: b0*c.P1.X + b1*c.C1.X + b2*c.C2.X + b3*c.P2.X,
		Y: b0*c.P1.Y + b1*c.C1.Y + b2*c.C2.Y + b3*c.P2.Y,
	}
}

// Midpoint returns the curve's geometric midpoint (t = 0.5).
func (c Curve) Midpoint() Point { return c.At(0.5) }

// curveSamples is the sampling resolution for distance queries. Connection
// curves are smooth enough that a fixed subdivision is accurate to well
// under a pixel at any practical zoom.
const curveSamples = 64

// DistanceTo returns the shortest distance from p to the curve, computed
// by sampling. Used for the edge hit corridor.
func (c Curve) DistanceTo(p Point) float64 {
	best := math.Inf(1)
	prev := c.P1
	for i := 1; i <= curveSamples; i++ {
		t := float64(i) / curveSamples
		cur := c.At(t)
		if d := distToSegment(p, prev, cur); d < best {
			best = d
		}
		prev = cur
	}
	return best
}

// distToSegment returns the distance from p to the segment ab.
func distToSegment(p, a, b Point) float64 {
	ab := b.Sub(a)
	lenSq := ab.X*ab.X + ab.Y*ab.Y
	if lenSq == 0 {
		return Dist(p, a)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / lenSq
	t = math.Max(0, math.Min(1, t))
	return Dist(p, a.Add(ab.Scale(t)))
}

// NodeContains reports whether the logical point p falls inside the
// bounding box of a node whose top-left corner is at pos.
func NodeContains(pos, p Point) bool {
	return p.X >= pos.X && p.X <= pos.X+NodeWidth &&
		p.Y >= pos.Y && p.Y <= pos.Y+NodeHeight
}
