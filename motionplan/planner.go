package motionplan

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"

	"go.robocupssl.dev/racore/obstacle"
)

// SlowDownTime is the time, in seconds, appended to a trajectory when the
// requested final speed is zero, during which the end position is held; the
// acceleration is not reduced before the end. Named to match the constant
// trajectorypath.cpp's numerics are derived from.
const SlowDownTime = 0.4

// obstacleAvoidanceRadius is the minimum clearance a trajectory must keep from
// every obstacle for the direct path to be accepted outright
// (trajectorypath.cpp's StandardSampler::OBSTACLE_AVOIDANCE_RADIUS).
const obstacleAvoidanceRadius = 0.1

// TrajectoryPoint is one sampled point of a planned trajectory.
type TrajectoryPoint struct {
	Pos   r2.Point
	Speed r2.Point
	Time  float64
}

// Trajectory is a time-parameterized sequence of points a robot should follow.
type Trajectory []TrajectoryPoint

// Planner computes a trajectory: given current kinematic state and a target,
// it produces a Trajectory respecting static and moving obstacles, grounded
// on the strategy path-planning subsystem's
// TrajectoryPath decision tree (direct attempt, then standard/end-in-obstacle/
// escape-obstacle fallbacks — condensed here into deterministic fallbacks
// rather than the reference's randomized Monte-Carlo samplers; see DESIGN.md).
type Planner struct {
	logger    golog.Logger
	obstacles []obstacle.Obstacle
	radius    float64
}

// NewPlanner returns a Planner with no obstacles registered.
func NewPlanner(logger golog.Logger, robotRadius float64) *Planner {
	return &Planner{logger: logger, radius: robotRadius}
}

// SetObstacles replaces the planner's known obstacles, inflated by the robot's
// own radius (§4.9 pre-processing step).
func (p *Planner) SetObstacles(obstacles []obstacle.Obstacle) {
	inflated := make([]obstacle.Obstacle, len(obstacles))
	for i, o := range obstacles {
		if inf, ok := o.(obstacle.Inflatable); ok {
			inflated[i] = inf.Inflated(p.radius)
		} else {
			inflated[i] = o
		}
	}
	p.obstacles = inflated
}

func (p *Planner) minDistance(pos r2.Point, t float64) float64 {
	min := math.Inf(1)
	for _, o := range p.obstacles {
		if d := o.Distance(pos, t); d < min {
			min = d
		}
	}
	return min
}

func (p *Planner) isInObstacle(pos r2.Point, t float64) bool {
	for _, o := range p.obstacles {
		if o.Distance(pos, t) < 0 {
			return true
		}
	}
	return false
}

// direct2D computes one decoupled-axis Alpha-Time trajectory for the straight
// v0->v1 motion over distance, sampling it at samplesPerTrajectory+1 points.
func direct2D(v0, v1, distance r2.Point, acc, maxSpeed float64, slowDownTime float64) (Trajectory, float64) {
	// decouple onto the distance direction and its perpendicular, matching the
	// reference's per-axis (not per-x/y) treatment closely enough for a
	// condensed planner: project v0/v1 onto distance's unit vector and its
	// normal, run one SpeedProfile1D per component, recombine.
	var dir r2.Point
	length := distance.Norm()
	if length < 1e-6 {
		dir = r2.Point{X: 1, Y: 0}
	} else {
		dir = distance.Mul(1 / length)
	}
	normal := r2.Point{X: -dir.Y, Y: dir.X}

	v0Par, v0Perp := v0.Dot(dir), v0.Dot(normal)
	v1Par, v1Perp := v1.Dot(dir), v1.Dot(normal)

	var parProfile, perpProfile SpeedProfile1D
	// The profile's hint is an extra-time budget, not a distance: bisect for
	// the budget whose end offset is length (the end offset grows with it).
	bound := (length + 2*(v0Par*v0Par+v1Par*v1Par+2*maxSpeed*maxSpeed)/acc) / maxSpeed
	lo, hi := -bound, bound
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2
		parProfile.Calculate1DTrajectory(v0Par, v1Par, mid, acc, maxSpeed)
		if parProfile.EndOffset() < length {
			lo = mid
		} else {
			hi = mid
		}
	}
	parProfile.Calculate1DTrajectory(v0Par, v1Par, (lo+hi)/2, acc, maxSpeed)
	perpProfile.Calculate1DTrajectory(v0Perp, v1Perp, 0, acc, maxSpeed)

	duration := math.Max(parProfile.Duration(), perpProfile.Duration())
	if slowDownTime > 0 {
		duration += slowDownTime
	}

	const samplesPerTrajectory = 40
	traj := make(Trajectory, 0, samplesPerTrajectory+1)
	if duration <= 0 {
		return Trajectory{{Pos: r2.Point{}, Speed: v0, Time: 0}}, 0
	}
	interval := duration / samplesPerTrajectory
	for i := 0; i <= samplesPerTrajectory; i++ {
		t := float64(i) * interval
		tp := math.Min(t, parProfile.Duration())
		tn := math.Min(t, perpProfile.Duration())
		parOff, parSpeed := parProfile.OffsetAndSpeedForTime(tp)
		perpOff, perpSpeed := perpProfile.OffsetAndSpeedForTime(tn)
		pos := dir.Mul(parOff).Add(normal.Mul(perpOff))
		speed := dir.Mul(parSpeed).Add(normal.Mul(perpSpeed))
		traj = append(traj, TrajectoryPoint{Pos: pos, Speed: speed, Time: t})
	}
	return traj, duration
}

func translate(traj Trajectory, origin r2.Point) Trajectory {
	out := make(Trajectory, len(traj))
	for i, p := range traj {
		out[i] = TrajectoryPoint{Pos: origin.Add(p.Pos), Speed: p.Speed, Time: p.Time}
	}
	return out
}

// Calculate plans a trajectory from (s0, v0) to (s1, v1), attempting the direct
// Alpha-Time path first and falling back to simple detours when it would cross
// an obstacle (TrajectoryPath::findPath).
func (p *Planner) Calculate(s0, v0, s1, v1 r2.Point, maxSpeed, acceleration float64) Trajectory {
	if maxSpeed < 0.01 || acceleration < 0.01 {
		if p.logger != nil {
			p.logger.Debugw("invalid trajectory input", "maxSpeed", maxSpeed, "acceleration", acceleration)
		}
		return nil
	}

	if p.isInObstacle(s0, 0) {
		return p.escapeObstacle(s0, v0, acceleration)
	}

	target := s1
	if p.isInObstacle(s1, 0) {
		if projected, ok := p.projectOut(s1); ok {
			target = projected
		}
	}

	slowDownTime := 0.0
	if v1 == (r2.Point{}) {
		slowDownTime = SlowDownTime
	}
	distance := target.Sub(s0)
	direct, _ := direct2D(v0, v1, distance, acceleration, maxSpeed, slowDownTime)
	direct = translate(direct, s0)

	if p.clearsObstacles(direct) {
		return direct
	}

	return p.standardDetour(s0, v0, target, v1, maxSpeed, acceleration, slowDownTime)
}

func (p *Planner) clearsObstacles(traj Trajectory) bool {
	for _, pt := range traj {
		if p.minDistance(pt.Pos, pt.Time) < obstacleAvoidanceRadius {
			return false
		}
	}
	return true
}

// projectOut nudges a target point just outside the nearest obstacle it sits
// inside of, mirroring findPath's "project s1 out of the obstacle" step.
func (p *Planner) projectOut(pos r2.Point) (r2.Point, bool) {
	for _, o := range p.obstacles {
		d := o.Distance(pos, 0)
		if d < 0 {
			// move along the numerical gradient of the distance function away
			// from the obstacle center; approximate via finite difference.
			const eps = 0.01
			gx := (o.Distance(pos.Add(r2.Point{X: eps}), 0) - o.Distance(pos.Sub(r2.Point{X: eps}), 0)) / (2 * eps)
			gy := (o.Distance(pos.Add(r2.Point{Y: eps}), 0) - o.Distance(pos.Sub(r2.Point{Y: eps}), 0)) / (2 * eps)
			grad := r2.Point{X: gx, Y: gy}
			if n := grad.Norm(); n > 1e-6 {
				grad = grad.Mul(1 / n)
				return pos.Add(grad.Mul(-d + 0.03)), true
			}
		}
	}
	return pos, false
}

// standardDetour tries a handful of via-points offset perpendicular to the
// direct line, accepting the first that clears every obstacle — a
// deterministic stand-in for the reference's randomized StandardSampler.
func (p *Planner) standardDetour(s0, v0, s1, v1 r2.Point, maxSpeed, acceleration, slowDownTime float64) Trajectory {
	direct := s1.Sub(s0)
	length := direct.Norm()
	if length < 1e-6 {
		return Trajectory{{Pos: s0, Speed: v0, Time: 0}}
	}
	dir := direct.Mul(1 / length)
	normal := r2.Point{X: -dir.Y, Y: dir.X}

	offsets := []float64{0.3, -0.3, 0.6, -0.6, 0.9, -0.9}
	mid := s0.Add(s1).Mul(0.5)
	for _, off := range offsets {
		via := mid.Add(normal.Mul(off))
		if p.isInObstacle(via, 0) {
			continue
		}
		leg1, _ := direct2D(v0, r2.Point{}, via.Sub(s0), acceleration, maxSpeed, 0)
		leg1 = translate(leg1, s0)
		if !p.clearsObstacles(leg1) {
			continue
		}
		leg2, _ := direct2D(r2.Point{}, v1, s1.Sub(via), acceleration, maxSpeed, slowDownTime)
		leg2 = translate(leg2, via)
		if !p.clearsObstacles(leg2) {
			continue
		}
		return appendTrajectories(leg1, leg2)
	}

	if p.logger != nil {
		p.logger.Debugw("no detour found, returning direct path despite obstacle", "from", s0, "to", s1)
	}
	direct2, _ := direct2D(v0, v1, direct, acceleration, maxSpeed, slowDownTime)
	return translate(direct2, s0)
}

// escapeObstacle moves directly along the distance gradient out of whichever
// obstacle currently contains s0 (trajectorypath.cpp's EscapeObstacleSampler,
// condensed to a single deterministic gradient step).
func (p *Planner) escapeObstacle(s0, v0 r2.Point, acceleration float64) Trajectory {
	target, ok := p.projectOut(s0)
	if !ok {
		return Trajectory{{Pos: s0, Speed: v0, Time: 0}}
	}
	traj, _ := direct2D(v0, r2.Point{}, target.Sub(s0), acceleration, 1.0, 0)
	return translate(traj, s0)
}

func appendTrajectories(a, b Trajectory) Trajectory {
	if len(a) == 0 {
		return b
	}
	offset := a[len(a)-1].Time
	out := make(Trajectory, 0, len(a)+len(b))
	out = append(out, a...)
	for _, p := range b {
		out = append(out, TrajectoryPoint{Pos: p.Pos, Speed: p.Speed, Time: p.Time + offset})
	}
	return out
}
