package tracking

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.robocupssl.dev/racore/clock"
	"go.robocupssl.dev/racore/geometry"
)

// BallTracker owns one ball hypothesis's ground filter, fly filter and the
// collision filter wrapping the ground filter, matching a single primary
// camera at a time. At most one BallTracker is the Tracker's "current" one;
// others are kept briefly during camera hand-over.
type BallTracker struct {
	primaryCamera  int
	initTime       clock.Time
	frameCounter   int
	lastSourceTime clock.Time

	Ground    *BallGroundFilter
	Fly       *BallFlyFilter
	Collision *BallCollisionFilter
}

// NewBallTracker spawns a tracker from an unassociated ball detection.
func NewBallTracker(cameraID int, pos r2.Point, t clock.Time, cameras *geometry.CameraRegistry) *BallTracker {
	ground := NewBallGroundFilter(BallGroundVisionFrame{Pos: xyz(pos), CameraID: cameraID, Time: t})
	return &BallTracker{
		primaryCamera:  cameraID,
		initTime:       t,
		frameCounter:   1,
		lastSourceTime: t,
		Ground:         ground,
		Fly:            NewBallFlyFilter(cameras),
		Collision:      NewBallCollisionFilter(ground, t),
	}
}

// CloneForCamera hands this tracker's ground-filter state over to a new primary
// camera, used on the first accepted detection from a camera that is not yet
// primary for any tracker (tracker.cpp's per-object camera hand-over, applied
// to balls).
func (bt *BallTracker) CloneForCamera(cameraID int, cameras *geometry.CameraRegistry) *BallTracker {
	ground := bt.Ground.Clone()
	return &BallTracker{
		primaryCamera:  cameraID,
		initTime:       bt.initTime,
		frameCounter:   bt.frameCounter,
		lastSourceTime: bt.lastSourceTime,
		Ground:         ground,
		Fly:            NewBallFlyFilter(cameras),
		Collision:      NewBallCollisionFilter(ground, bt.Collision.lastSeenTime),
	}
}

// AddDetection applies one ball vision detection to whichever sub-filter is
// currently authoritative: the fly filter while a chip-kick hypothesis is
// active and still accepting the detection, the collision-wrapped ground
// filter otherwise.
func (bt *BallTracker) AddDetection(cameraID int, pos r2.Point, areaPixels float64, robots []FrameRobot, t clock.Time) {
	if cameraID == bt.primaryCamera {
		bt.frameCounter++
	}
	bt.lastSourceTime = t
	if bt.Fly.IsActive() && bt.Fly.AcceptDetection(pos, t) {
		bt.Fly.AddDetection(FlyDetection{Pos: pos, AreaPixels: areaPixels, CameraID: cameraID, Time: t})
		return
	}
	bt.Collision.ProcessVisionFrame(BallGroundVisionFrame{Pos: xyz(pos), CameraID: cameraID, Time: t}, robots)
	bt.Fly.AddDetection(FlyDetection{Pos: pos, AreaPixels: areaPixels, CameraID: cameraID, Time: t})
}

// LastSourceTime returns the source time of the most recently applied
// detection, used by the Tracker to drop a stale/duplicate one before it
// ever reaches this tracker's filters.
func (bt *BallTracker) LastSourceTime() clock.Time { return bt.lastSourceTime }

// InitTime returns the virtual time this ball hypothesis was first created,
// used by WorldState's oldest-hypothesis selection policy.
func (bt *BallTracker) InitTime() clock.Time { return bt.initTime }

// State returns the tracker's best estimate at time t: the fly filter's
// parabolic prediction while airborne, otherwise the ground/collision state.
func (bt *BallTracker) State(t clock.Time, robots []FrameRobot) BallState {
	if bt.Fly.IsActive() {
		pred := bt.Fly.Predict(t)
		return BallState{Pos: pred.Pos, Vel: pred.Vel}
	}
	return bt.Collision.State(t, robots)
}

// PrimaryCamera returns the tracker's current primary camera id.
func (bt *BallTracker) PrimaryCamera() int { return bt.primaryCamera }

// FrameCount returns how many primary-camera frames this tracker has consumed.
func (bt *BallTracker) FrameCount() int { return bt.frameCounter }

func xyz(p r2.Point) r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: 0}
}
