// Package obstacle defines the planner's 2-D obstacle model: convex,
// signed-distance shapes with a priority and a name, generalized from the
// rigid-body collision geometry this repo's 3-D spatialmath package used
// for arm kinematics (spatialmath/box.go, spatialmath/triangle.go,
// spatialmath/capsule.go) down to the 2-D field-plane shapes a ground-robot
// path planner actually needs.
package obstacle

import (
	"math"

	"github.com/golang/geo/r2"
)

// Obstacle is a convex region of the field plane with a signed distance function:
// negative inside, positive outside, zero on the boundary. Moving obstacles add a
// time parameter; static ones ignore it.
type Obstacle interface {
	// Distance returns the signed distance from pt to the obstacle boundary at
	// time t (seconds from now). Static obstacles ignore t.
	Distance(pt r2.Point, t float64) float64
	Priority() int
	Name() string
}

// Static is a marker interface for obstacles. The planner does not consult it,
// and a Circle implements it whether or not it is given a Track.
type Static interface {
	Obstacle
	staticMarker()
}

// Inflatable obstacles can be grown by a radius, used to inflate every
// static obstacle by the robot radius before planning against it.
type Inflatable interface {
	Obstacle
	Inflated(extra float64) Obstacle
}

// Circle is a static or moving disc.
type Circle struct {
	NameStr  string
	Prio     int
	Center   r2.Point // ignored if Track is set
	Radius   float64
	Track    func(t float64) r2.Point // non-nil for a moving obstacle
}

func (c Circle) centerAt(t float64) r2.Point {
	if c.Track != nil {
		return c.Track(t)
	}
	return c.Center
}

func (c Circle) Distance(pt r2.Point, t float64) float64 {
	return pt.Sub(c.centerAt(t)).Norm() - c.Radius
}

func (c Circle) Priority() int { return c.Prio }
func (c Circle) Name() string  { return c.NameStr }

func (c Circle) staticMarker() {}

// Inflated returns a copy of c grown by extra.
func (c Circle) Inflated(extra float64) Obstacle {
	c.Radius += extra
	return c
}

// Rect is an axis-aligned or rotated rectangle, adapted from the
// center+half-extent representation of spatialmath/box.go's closestPoint, reduced
// from 3-D to the field plane.
type Rect struct {
	NameStr       string
	Prio          int
	Center        r2.Point
	HalfWidth     float64 // along local x
	HalfHeight    float64 // along local y
	RotationRad   float64 // rotation of local axes from field axes
}

func (r Rect) localize(pt r2.Point) r2.Point {
	d := pt.Sub(r.Center)
	cosA, sinA := math.Cos(-r.RotationRad), math.Sin(-r.RotationRad)
	return r2.Point{X: d.X*cosA - d.Y*sinA, Y: d.X*sinA + d.Y*cosA}
}

func (r Rect) Distance(pt r2.Point, _ float64) float64 {
	local := r.localize(pt)
	dx := math.Abs(local.X) - r.HalfWidth
	dy := math.Abs(local.Y) - r.HalfHeight
	if dx <= 0 && dy <= 0 {
		// inside: signed distance is the negative of the smallest penetration
		return math.Max(dx, dy)
	}
	outsideX := math.Max(dx, 0)
	outsideY := math.Max(dy, 0)
	return math.Hypot(outsideX, outsideY)
}

func (r Rect) Priority() int    { return r.Prio }
func (r Rect) Name() string     { return r.NameStr }
func (r Rect) staticMarker()    {}

func (r Rect) Inflated(extra float64) Obstacle {
	r.HalfWidth += extra
	r.HalfHeight += extra
	return r
}

// Segment is a capacitated line segment with a radius, i.e. a capsule in 2-D,
// adapted from spatialmath/capsule.go's segment-to-point distance.
type Segment struct {
	NameStr  string
	Prio     int
	P1, P2   r2.Point
	Radius   float64
}

// closestPointOnSegment is the 2-D analogue of
// spatialmath/triangle.go's ClosestPointSegmentPoint helper.
func closestPointOnSegment(a, b, pt r2.Point) r2.Point {
	ab := b.Sub(a)
	denom := ab.Dot(ab)
	if denom == 0 {
		return a
	}
	t := pt.Sub(a).Dot(ab) / denom
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a.Add(ab.Mul(t))
}

func (s Segment) Distance(pt r2.Point, _ float64) float64 {
	closest := closestPointOnSegment(s.P1, s.P2, pt)
	return pt.Sub(closest).Norm() - s.Radius
}

func (s Segment) Priority() int { return s.Prio }
func (s Segment) Name() string  { return s.NameStr }
func (s Segment) staticMarker() {}

func (s Segment) Inflated(extra float64) Obstacle {
	s.Radius += extra
	return s
}

// Triangle is a convex triangular obstacle, adapted from
// spatialmath/triangle.go's ClosestPointToPoint (3-D, coplanar-point case) reduced
// to the 2-D field plane (no coplanarity test needed).
type Triangle struct {
	NameStr    string
	Prio       int
	P0, P1, P2 r2.Point
	Radius     float64 // optional buffer, e.g. for inflation
}

func cross2(o, a, b r2.Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func (tr Triangle) inside(pt r2.Point) bool {
	d1 := cross2(tr.P0, tr.P1, pt)
	d2 := cross2(tr.P1, tr.P2, pt)
	d3 := cross2(tr.P2, tr.P0, pt)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

func (tr Triangle) closestBoundaryPoint(pt r2.Point) r2.Point {
	best := closestPointOnSegment(tr.P0, tr.P1, pt)
	bestDist := pt.Sub(best).Norm2()
	if c := closestPointOnSegment(tr.P1, tr.P2, pt); pt.Sub(c).Norm2() < bestDist {
		best, bestDist = c, pt.Sub(c).Norm2()
	}
	if c := closestPointOnSegment(tr.P2, tr.P0, pt); pt.Sub(c).Norm2() < bestDist {
		best = c
	}
	return best
}

func (tr Triangle) Distance(pt r2.Point, _ float64) float64 {
	if tr.inside(pt) {
		closest := tr.closestBoundaryPoint(pt)
		return -pt.Sub(closest).Norm() - tr.Radius
	}
	closest := tr.closestBoundaryPoint(pt)
	return pt.Sub(closest).Norm() - tr.Radius
}

func (tr Triangle) Priority() int { return tr.Prio }
func (tr Triangle) Name() string  { return tr.NameStr }
func (tr Triangle) staticMarker() {}

func (tr Triangle) Inflated(extra float64) Obstacle {
	tr.Radius += extra
	return tr
}

// ProjectOut returns a point moved radially outward from the nearest boundary
// of o by at least margin. Works for any Obstacle by finite-differencing the
// signed-distance gradient.
func ProjectOut(o Obstacle, pt r2.Point, margin float64) r2.Point {
	const h = 1e-4
	d := o.Distance(pt, 0)
	gx := (o.Distance(r2.Point{X: pt.X + h, Y: pt.Y}, 0) - o.Distance(r2.Point{X: pt.X - h, Y: pt.Y}, 0)) / (2 * h)
	gy := (o.Distance(r2.Point{X: pt.X, Y: pt.Y + h}, 0) - o.Distance(r2.Point{X: pt.X, Y: pt.Y - h}, 0)) / (2 * h)
	grad := r2.Point{X: gx, Y: gy}
	norm := grad.Norm()
	if norm < 1e-9 {
		return pt
	}
	grad = grad.Mul(1 / norm)
	needed := margin - d
	return pt.Add(grad.Mul(needed))
}
