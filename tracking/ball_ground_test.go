package tracking

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"go.robocupssl.dev/racore/clock"
	"go.robocupssl.dev/racore/vision"
)

func newGroundTestTracker(t testing.TB) *Tracker {
	tr := NewTracker(golog.NewTestLogger(t))
	tr.UpdateGeometry(vision.GeometryUpdate{
		Cameras: []vision.CameraCalibrationUpdate{
			{CameraID: 0, HasDerivedWorld: true, DerivedWorldTZmm: 5000, FocalLength: 400},
		},
	})
	return tr
}

// A ball sitting still under one camera should settle on its true position
// with near-zero velocity.
func TestBallGroundStillBall(t *testing.T) {
	tr := newGroundTestTracker(t)

	var now clock.Time
	for i := 0; i < 10; i++ {
		tr.AddBallDetection(0, vision.BallDetection{X: 2.0, Y: -1.0, CameraID: 0, SourceTime: now}, now)
		tr.Process(now)
		now += 10 * clock.Time(1e6)
	}

	ws := tr.WorldState(now)
	test.That(t, ws.HaveBall, test.ShouldBeTrue)
	test.That(t, ws.Ball.Pos.X, test.ShouldAlmostEqual, 1.0, 0.02)
	test.That(t, ws.Ball.Pos.Y, test.ShouldAlmostEqual, 2.0, 0.02)
	test.That(t, ws.Ball.Vel.X, test.ShouldAlmostEqual, 0.0, 0.2)
	test.That(t, ws.Ball.Vel.Y, test.ShouldAlmostEqual, 0.0, 0.2)
}

// A ball rolling at a constant velocity should be tracked as moving in the
// expected direction, reaching roughly the extrapolated position.
func TestBallGroundStraightRoll(t *testing.T) {
	tr := newGroundTestTracker(t)

	const vx = 1.0 // m/s, field-frame
	const dt = 10 * clock.Time(1e6)

	var now clock.Time
	var fieldX float64
	for i := 0; i < 20; i++ {
		// detection coordinates are pre-axis-swap: field (fieldX, 0) requires
		// d.Y = -fieldX, d.X = 0.
		tr.AddBallDetection(0, vision.BallDetection{X: 0, Y: -fieldX, CameraID: 0, SourceTime: now}, now)
		tr.Process(now)
		now += dt
		fieldX += vx * (float64(dt) * 1e-9)
	}

	ws := tr.WorldState(now)
	test.That(t, ws.HaveBall, test.ShouldBeTrue)
	test.That(t, ws.Ball.Vel.X, test.ShouldBeGreaterThan, 0.3)
	test.That(t, ws.Ball.Vel.Y, test.ShouldAlmostEqual, 0.0, 0.3)
	test.That(t, ws.Ball.Pos.X, test.ShouldBeGreaterThan, fieldX-0.3)
}
