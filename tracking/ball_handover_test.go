package tracking

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"go.robocupssl.dev/racore/clock"
	"go.robocupssl.dev/racore/vision"
)

// When a second camera starts reporting the same ball and the original
// primary camera goes quiet, the Tracker should hand the ball hypothesis over
// to the new camera rather than losing track of it.
func TestBallCameraHandover(t *testing.T) {
	tr := NewTracker(golog.NewTestLogger(t))
	tr.UpdateGeometry(vision.GeometryUpdate{
		Cameras: []vision.CameraCalibrationUpdate{
			{CameraID: 0, HasDerivedWorld: true, DerivedWorldTXmm: -2000, DerivedWorldTZmm: 5000, FocalLength: 400},
			{CameraID: 1, HasDerivedWorld: true, DerivedWorldTXmm: 2000, DerivedWorldTZmm: 5000, FocalLength: 400},
		},
	})

	const dt = 10 * clock.Time(1e6)
	const fieldX, fieldY = 1.5, 0.5
	det := vision.BallDetection{X: fieldY, Y: -fieldX, AreaPixels: 50}

	var now clock.Time
	for i := 0; i < 20; i++ {
		d := det
		d.CameraID = 0
		d.SourceTime = now
		tr.AddBallDetection(0, d, now)
		tr.Process(now)
		now += dt
	}

	test.That(t, len(tr.balls), test.ShouldEqual, 1)
	test.That(t, tr.balls[0].PrimaryCamera(), test.ShouldEqual, 0)

	// camera 1 starts seeing the same ball; camera 0 goes quiet.
	for i := 0; i < 20; i++ {
		d := det
		d.CameraID = 1
		d.SourceTime = now
		tr.AddBallDetection(1, d, now)
		tr.Process(now)
		now += dt
	}

	test.That(t, len(tr.balls), test.ShouldEqual, 1)
	test.That(t, tr.balls[0].PrimaryCamera(), test.ShouldEqual, 1)

	ws := tr.WorldState(now)
	test.That(t, ws.HaveBall, test.ShouldBeTrue)
	test.That(t, ws.Ball.Pos.X, test.ShouldAlmostEqual, fieldX, 0.05)
	test.That(t, ws.Ball.Pos.Y, test.ShouldAlmostEqual, fieldY, 0.05)
}
