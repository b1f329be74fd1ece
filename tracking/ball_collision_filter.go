package tracking

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.robocupssl.dev/racore/clock"
)

// Dribbler geometry constants shared with the ground-collision reconstruction
// this filter is grounded on.
const (
	collisionDribblerWidth = 0.07
	collisionBallRadius    = 0.0215
	collisionAcceptBallDist = 0.5
	collisionMaxFrontDist  = collisionBallRadius + 0.03
	collisionMaxSideDist   = collisionDribblerWidth + 0.02
	collisionInvisibleTimeoutMs = 300

	// collisionDribbleLockFrames is how many consecutive frames the ball must
	// stay inside a robot's dribbler rectangle before the lock is recorded,
	// so a single noisy detection can't falsely glue the ball to a robot.
	collisionDribbleLockFrames = 15

	// collisionRobotBodyRadius is the robot footprint radius used to detect
	// the ball's trajectory entering a robot for disappearance inference.
	collisionRobotBodyRadius = 0.09
)

// DribbleOffset records the ball's position relative to the dribbling
// robot's frame, held while the ball is considered locked in a robot's
// dribbler.
type DribbleOffset struct {
	RobotID    int
	IsBlue     bool
	Offset     r2.Point // in robot-local (forward, sideways) frame
	FrameCount int
}

// FrameRobot is the minimal robot state the collision filter needs to test
// dribbling contact and visibility, decoupled from the full RobotState so this
// package doesn't need a Processor-level world snapshot to run its tests.
type FrameRobot struct {
	ID       int
	IsBlue   bool
	Pos      r2.Point
	Heading  float64 // radians
	Dribbler r2.Point
	Velocity r2.Point // world-frame linear velocity, m/s
}

// BallCollisionFilter wraps a BallGroundFilter with dribbling-lock and
// visibility-loss reasoning: once the ball has spent long enough inside a
// robot's dribbler rectangle, its reported position is replaced by the
// dribble offset rather than trusting (usually absent or noisy) vision
// detections; it is released once the ball moves clear or the dribbling
// robot vanishes. While the ball is invisible after its last known position
// entered a robot's body, the last entry point and that robot's velocity are
// reported in its place, rather than a frozen last-seen point (a condensed
// version of the reference's collision/visibility state machine — see
// DESIGN.md for what was dropped: volley-shot pre-emption and
// camera-occlusion feasibility checks).
type BallCollisionFilter struct {
	ground *BallGroundFilter
	offset *DribbleOffset

	// dribble-lock candidacy: the rectangle test must pass for the same
	// robot on collisionDribbleLockFrames+1 consecutive frames before offset
	// is actually recorded.
	hasCandidate    bool
	candidateID     int
	candidateIsBlue bool
	candidateCount  int

	// collision-on-disappearance bookkeeping: the last robot the ball's
	// trajectory was seen entering, and where.
	hasEntry         bool
	entryRobotID     int
	entryRobotIsBlue bool
	entryPoint       r2.Point

	lastReportedPos r2.Point
	lastSeenTime    clock.Time
}

// NewBallCollisionFilter wraps an existing ground filter.
func NewBallCollisionFilter(ground *BallGroundFilter, t clock.Time) *BallCollisionFilter {
	return &BallCollisionFilter{
		ground:          ground,
		lastSeenTime:    t,
		lastReportedPos: r2.Point{X: ground.kalman.X.AtVec(0), Y: ground.kalman.X.AtVec(1)},
	}
}

func perpendicular(dir r2.Point) r2.Point {
	return r2.Point{X: -dir.Y, Y: dir.X}
}

// updateDribbleAndRotate tests whether ballPos is within dribbling range of any
// robot's dribbler and, if the same robot passes the test on
// collisionDribbleLockFrames+1 consecutive frames, (re)acquires the dribble
// lock.
func (f *BallCollisionFilter) updateDribbleAndRotate(ballPos r2.Point, robots []FrameRobot, t clock.Time) bool {
	for _, r := range robots {
		toDribbler := r2.Point{X: math.Cos(r.Heading), Y: math.Sin(r.Heading)}
		sideways := perpendicular(toDribbler)
		rel := ballPos.Sub(r.Dribbler)
		frontDist := math.Abs(rel.Dot(toDribbler))
		sideDist := math.Abs(rel.Dot(sideways))
		if frontDist < collisionMaxFrontDist && sideDist < collisionMaxSideDist {
			if f.hasCandidate && f.candidateID == r.ID && f.candidateIsBlue == r.IsBlue {
				f.candidateCount++
			} else {
				f.hasCandidate = true
				f.candidateID = r.ID
				f.candidateIsBlue = r.IsBlue
				f.candidateCount = 1
			}
			if f.candidateCount <= collisionDribbleLockFrames {
				return false
			}
			f.offset = &DribbleOffset{
				RobotID: r.ID,
				IsBlue:  r.IsBlue,
				Offset:  r2.Point{X: rel.Dot(toDribbler), Y: rel.Dot(sideways)},
			}
			f.hasCandidate = false
			f.candidateCount = 0
			return true
		}
	}
	f.hasCandidate = false
	f.candidateCount = 0
	return false
}

// dribbledPos reconstructs the ball's world position from the current dribble
// offset and the dribbling robot's current pose.
func (f *BallCollisionFilter) dribbledPos(robots []FrameRobot) (r2.Point, bool) {
	if f.offset == nil {
		return r2.Point{}, false
	}
	for _, r := range robots {
		if r.ID != f.offset.RobotID || r.IsBlue != f.offset.IsBlue {
			continue
		}
		toDribbler := r2.Point{X: math.Cos(r.Heading), Y: math.Sin(r.Heading)}
		sideways := perpendicular(toDribbler)
		pos := r.Dribbler.Add(toDribbler.Mul(f.offset.Offset.X)).Add(sideways.Mul(f.offset.Offset.Y))
		return pos, true
	}
	// dribbling robot vanished from the world frame; release the lock.
	f.offset = nil
	return r2.Point{}, false
}

// ProcessVisionFrame applies a ground detection, releasing any dribble lock that
// the new measurement clearly contradicts (ball reported far from the locked
// robot's dribbler).
func (f *BallCollisionFilter) ProcessVisionFrame(frame BallGroundVisionFrame, robots []FrameRobot) {
	f.lastSeenTime = frame.Time
	pos2 := r2.Point{X: frame.Pos.X, Y: frame.Pos.Y}

	if f.offset != nil {
		if dribbled, ok := f.dribbledPos(robots); ok {
			if pos2.Sub(dribbled).Norm() > collisionMaxFrontDist+collisionMaxSideDist {
				f.offset = nil
				f.hasCandidate = false
				f.candidateCount = 0
			}
		}
	}
	if f.offset == nil {
		f.updateDribbleAndRotate(pos2, robots, frame.Time)
	}
	f.updateEntryState(pos2, robots)
	f.ground.ProcessVisionFrame(frame)
}

// updateEntryState records whether the ball's latest known position overlaps
// a robot's body, so a subsequent disappearance can be explained by that
// robot carrying it rather than reporting a frozen last-seen point.
func (f *BallCollisionFilter) updateEntryState(pos r2.Point, robots []FrameRobot) {
	f.hasEntry = false
	for _, r := range robots {
		if pos.Sub(r.Pos).Norm() < collisionRobotBodyRadius {
			f.hasEntry = true
			f.entryRobotID = r.ID
			f.entryRobotIsBlue = r.IsBlue
			f.entryPoint = pos
			return
		}
	}
}

// State returns the collision filter's best estimate at time t: the dribble
// offset's reconstruction while locked; the last trajectory-entry point and
// the carrying robot's velocity while the ball is invisible after having
// entered that robot; otherwise the ground filter's own prediction.
func (f *BallCollisionFilter) State(t clock.Time, robots []FrameRobot) BallState {
	state := f.computeState(t, robots)
	f.lastReportedPos = r2.Point{X: state.Pos.X, Y: state.Pos.Y}
	return state
}

func (f *BallCollisionFilter) computeState(t clock.Time, robots []FrameRobot) BallState {
	if f.offset != nil {
		if pos, ok := f.dribbledPos(robots); ok {
			f.offset.FrameCount++
			return BallState{Pos: r3.Vector{X: pos.X, Y: pos.Y}}
		}
	}
	if !f.Visible(t) && f.hasEntry {
		for _, r := range robots {
			if r.ID == f.entryRobotID && r.IsBlue == f.entryRobotIsBlue {
				return BallState{
					Pos: r3.Vector{X: f.entryPoint.X, Y: f.entryPoint.Y},
					Vel: r3.Vector{X: r.Velocity.X, Y: r.Velocity.Y},
				}
			}
		}
	}
	return f.ground.WriteBallState(t)
}

// AcceptDetection reports whether pos belongs to this ball hypothesis: it is
// accepted either when it is close to the last position this filter actually
// reported (covering the dribble-locked case, where the raw ground Kalman
// estimate can drift away from the true, robot-carried position) or when the
// underlying ground filter's own planar-distance gate accepts it.
func (f *BallCollisionFilter) AcceptDetection(pos r3.Vector) bool {
	p2 := r2.Point{X: pos.X, Y: pos.Y}
	if p2.Sub(f.lastReportedPos).Norm() < collisionAcceptBallDist {
		return true
	}
	return f.ground.AcceptDetection(pos)
}

// Visible reports whether the ball has been seen recently enough that its
// absence from the latest vision frame is not yet suspicious.
func (f *BallCollisionFilter) Visible(t clock.Time) bool {
	return t-f.lastSeenTime < clock.Time(collisionInvisibleTimeoutMs)*clock.Time(1e6)
}

// DribbleOffsetInfo returns the current dribble lock, if any.
func (f *BallCollisionFilter) DribbleOffsetInfo() (DribbleOffset, bool) {
	if f.offset == nil {
		return DribbleOffset{}, false
	}
	return *f.offset, true
}
