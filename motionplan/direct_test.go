package motionplan

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

// With no extra time budget, a 1-D profile is a single constant-acceleration
// ramp from v0 to v1: a straightforward case to verify against closed-form
// kinematics.
func TestSpeedProfile1DPureRamp(t *testing.T) {
	var p SpeedProfile1D
	p.Calculate1DTrajectory(0, 2, 0, 2, 5)

	test.That(t, p.Duration(), test.ShouldAlmostEqual, 1.0, 1e-9)
	test.That(t, p.EndOffset(), test.ShouldAlmostEqual, 1.0, 1e-9)

	offset, speed := p.OffsetAndSpeedForTime(0.5)
	test.That(t, speed, test.ShouldAlmostEqual, 1.0, 1e-9)
	test.That(t, offset, test.ShouldAlmostEqual, 0.25, 1e-9)
}

// A direct, obstacle-free trajectory should start at rest at the origin and
// make steady progress toward the target without overshooting wildly.
func TestPlannerDirectNoObstacles(t *testing.T) {
	p := NewPlanner(golog.NewTestLogger(t), 0.09)

	s0 := r2.Point{X: 0, Y: 0}
	s1 := r2.Point{X: 1, Y: 0}
	traj := p.Calculate(s0, r2.Point{}, s1, r2.Point{}, 2.0, 3.0)

	test.That(t, len(traj), test.ShouldBeGreaterThan, 1)
	test.That(t, traj[0].Pos.X, test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, traj[0].Time, test.ShouldAlmostEqual, 0.0, 1e-9)

	last := traj[len(traj)-1]
	test.That(t, last.Pos.X, test.ShouldAlmostEqual, 1.0, 0.15)
	test.That(t, last.Pos.Y, test.ShouldAlmostEqual, 0.0, 1e-6)
	test.That(t, last.Time, test.ShouldBeGreaterThan, 0.0)

	for i := 1; i < len(traj); i++ {
		test.That(t, traj[i].Time, test.ShouldBeGreaterThanOrEqualTo, traj[i-1].Time)
	}
}
