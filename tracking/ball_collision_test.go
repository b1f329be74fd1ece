package tracking

import (
	"math"
	"testing"

	"go.viam.com/test"

	"go.robocupssl.dev/racore/clock"
	"go.robocupssl.dev/racore/vision"
)

// A ball dribbled by a robot should stay locked to the robot's dribbler and
// follow it through a turn even while no further ball detections arrive
// (the robot's body hides the ball from every camera). The lock only
// engages once the ball has spent more than collisionDribbleLockFrames
// consecutive frames inside the dribbler rectangle, so a single glancing
// detection can't falsely glue it to the robot.
func TestBallDribbleLockFollowsRotation(t *testing.T) {
	tr := newGroundTestTracker(t)

	const dt = 10 * clock.Time(1e6)
	var now clock.Time

	// settle a stationary robot, facing the +Y field axis (Orientation=0 maps
	// to a raw heading of +pi/2 under the sslvision axis convention).
	for i := 0; i < 5; i++ {
		tr.AddRobotDetection(0, vision.RobotDetection{ID: 3, X: 0, Y: 0, Orientation: 0, CameraID: 0, SourceTime: now}, false, now)
		tr.Process(now)
		now += dt
	}

	// the robot's dribbler sits 0.08m ahead of center along its heading.
	const dribblerOffset = 0.08
	dribblerX, dribblerY := dribblerOffset*math.Cos(math.Pi/2), dribblerOffset*math.Sin(math.Pi/2)
	ballDet := vision.BallDetection{X: dribblerY, Y: -dribblerX, CameraID: 0}

	// exactly collisionDribbleLockFrames frames in the rectangle: not yet
	// enough to lock.
	for i := 0; i < collisionDribbleLockFrames; i++ {
		d := ballDet
		d.SourceTime = now
		tr.AddBallDetection(0, d, now)
		tr.Process(now)
		now += dt
	}
	_, locked := tr.balls[0].Collision.DribbleOffsetInfo()
	test.That(t, locked, test.ShouldBeFalse)

	// one more frame past the threshold engages the lock.
	d := ballDet
	d.SourceTime = now
	tr.AddBallDetection(0, d, now)
	tr.Process(now)
	now += dt

	ws := tr.WorldState(now)
	test.That(t, ws.HaveBall, test.ShouldBeTrue)
	_, locked = tr.balls[0].Collision.DribbleOffsetInfo()
	test.That(t, locked, test.ShouldBeTrue)

	// rotate the robot 45 degrees without any further ball detections; the
	// locked ball should turn with it.
	for i := 0; i < 15; i++ {
		tr.AddRobotDetection(0, vision.RobotDetection{ID: 3, X: 0, Y: 0, Orientation: math.Pi / 4, CameraID: 0, SourceTime: now}, false, now)
		tr.Process(now)
		now += dt
	}

	wantPhi := math.Pi/4 + math.Pi/2
	wantX, wantY := dribblerOffset*math.Cos(wantPhi), dribblerOffset*math.Sin(wantPhi)

	ws = tr.WorldState(now)
	test.That(t, ws.HaveBall, test.ShouldBeTrue)
	test.That(t, ws.Ball.Pos.X, test.ShouldAlmostEqual, wantX, 0.02)
	test.That(t, ws.Ball.Pos.Y, test.ShouldAlmostEqual, wantY, 0.02)
}
