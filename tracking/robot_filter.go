package tracking

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"go.robocupssl.dev/racore/clock"
	"go.robocupssl.dev/racore/radio"
	"go.robocupssl.dev/racore/vision"
)

const (
	processorTickDuration  = 10 * clock.Time(1e6) // 10ms in nanoseconds
	maxLinearAcceleration  = 10.0                  // m/s^2
	maxRotationAcceleration = 60.0                 // rad/s^2
	omegaMax               = 10 * 2 * math.Pi
	robotDribblerOffset     = 0.08 // meters, center to dribbler
)

// radioCommandAt pairs a command with the virtual time it was issued.
type radioCommandAt struct {
	cmd  radio.Command
	time clock.Time
}

// visionFrameAt pairs one camera's robot detection with its recovered source time.
type visionFrameAt struct {
	cameraID  int
	detection vision.RobotDetection
	time      clock.Time
}

// RobotState is the Kalman-tracked snapshot of one robot, already converted
// into global-frame position and velocity.
type RobotState struct {
	ID            int
	Pos           r2.Point
	Phi           float64 // wrapped to (-pi, pi]
	VX, VY, Omega float64
}

// RobotFilter tracks one robot's Kalman state on two timelines: a permanent
// "current" filter advanced only by applied vision frames and radio commands
// already in effect, and a disposable "future" filter re-derived from it
// every tick to predict ahead to the Processor's +1-tick horizon.
type RobotFilter struct {
	id            int
	primaryCamera int

	kalman       *Kalman
	futureKalman *Kalman
	lastTime     clock.Time
	futureTime   clock.Time

	pendingFrames   []visionFrameAt
	radioCommands   []radioCommandAt
	lastRadioCmd    radioCommandAt
	futureRadioCmd  radioCommandAt

	frameCounter int
}

// NewRobotFilter seeds a filter from the first unmatched detection that spawned it.
func NewRobotFilter(id int, d vision.RobotDetection, cameraID int, t clock.Time) *RobotFilter {
	x0 := mat.NewVecDense(6, []float64{
		-d.X, // placeholder, overwritten below with the axis-swapped x' = -y
		0,    // filled below (y' = x); kept separate for clarity of grounding
		d.Orientation + math.Pi/2,
		0, 0, 0,
	})
	x0.SetVec(0, -d.Y)
	x0.SetVec(1, d.X)

	k := NewKalman(6, x0)
	k.H = mat.NewDense(3, 6, nil)
	k.H.Set(0, 0, 1)
	k.H.Set(1, 1, 1)
	k.H.Set(2, 2, 1)

	rf := &RobotFilter{
		id:            id,
		primaryCamera: cameraID,
		kalman:        k,
		lastTime:      t,
	}
	rf.resetFutureKalman()
	return rf
}

func (rf *RobotFilter) resetFutureKalman() {
	rf.futureKalman = rf.kalman.Clone()
	rf.futureTime = rf.lastTime
	rf.futureKalman.H = mat.NewDense(3, 6, nil)
	rf.futureKalman.H.Set(0, 3, 1)
	rf.futureKalman.H.Set(1, 4, 1)
	rf.futureKalman.H.Set(2, 5, 1)
}

// AddDetection enqueues a vision detection to be applied on the next Update.
func (rf *RobotFilter) AddDetection(cameraID int, d vision.RobotDetection, t clock.Time) {
	rf.pendingFrames = append(rf.pendingFrames, visionFrameAt{cameraID: cameraID, detection: d, time: t})
	if rf.primaryCamera == -1 || rf.primaryCamera == cameraID {
		rf.frameCounter++
	}
}

// AddRadioCommand enqueues a command for control-input prediction.
func (rf *RobotFilter) AddRadioCommand(cmd radio.Command, t clock.Time) {
	rf.radioCommands = append(rf.radioCommands, radioCommandAt{cmd: cmd, time: t})
}

func wrapAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// checkCamera decides whether the primary camera should switch to cameraID
// because the current primary has gone stale, mirroring tracker.cpp's per-filter
// camera hand-over test. staleNanos is the timeout chosen by the caller
// (RobotFilter.Update passes 500 ms).
func (rf *RobotFilter) checkCamera(cameraID int, staleNanos clock.Time, lastSeenOnPrimary clock.Time, t clock.Time) bool {
	if cameraID == rf.primaryCamera {
		return false
	}
	if t-lastSeenOnPrimary <= staleNanos {
		return false
	}
	rf.primaryCamera = cameraID
	return true
}

// predict runs one linearized Kalman predict step on either the current or
// future timeline, following robotfilter.cpp::predict exactly: F/B are
// recomputed from the pre-step state, a clamped control input nudges velocity
// toward the most recent radio command if it is still fresh, and Q gains extra
// variance on a camera switch.
func (rf *RobotFilter) predict(t clock.Time, updateFuture, permanentUpdate, cameraSwitched bool, cmd radioCommandAt) {
	k := rf.kalman
	lastTime := rf.lastTime
	if updateFuture {
		k = rf.futureKalman
		lastTime = rf.futureTime
	}
	timeDiff := float64(t-lastTime) * 1e-9

	phi := k.State(2) - math.Pi/2
	vs := k.State(3)
	vf := k.State(4)
	omega := k.State(5)

	k.F = mat.NewDense(6, 6, nil)
	k.F.Set(0, 3, math.Cos(phi)*timeDiff)
	k.F.Set(0, 4, -math.Sin(phi)*timeDiff)
	k.F.Set(1, 3, math.Sin(phi)*timeDiff)
	k.F.Set(1, 4, math.Cos(phi)*timeDiff)
	k.F.Set(2, 5, timeDiff)
	k.F.Set(0, 0, 1)
	k.F.Set(1, 1, 1)
	k.F.Set(2, 2, 1)
	k.F.Set(3, 3, 1)
	k.F.Set(4, 4, 1)
	k.F.Set(5, 5, 1)

	u := mat.NewVecDense(6, nil)
	if t < cmd.time+2*processorTickDuration {
		cmdInterval := math.Max(float64(processorTickDuration)*1e-9, timeDiff)
		accelS := clampf((cmd.cmd.VS-vs)/cmdInterval, -maxLinearAcceleration, maxLinearAcceleration)
		accelF := clampf((cmd.cmd.VF-vf)/cmdInterval, -maxLinearAcceleration, maxLinearAcceleration)
		accelOmega := clampf((cmd.cmd.Omega-omega)/cmdInterval, -maxRotationAcceleration, maxRotationAcceleration)
		u.SetVec(3, accelS*timeDiff)
		u.SetVec(4, accelF*timeDiff)
		u.SetVec(5, accelOmega*timeDiff)
	}
	if omega > omegaMax {
		u.SetVec(5, math.Min(u.AtVec(5), omegaMax-omega))
	} else if omega < -omegaMax {
		u.SetVec(5, math.Max(u.AtVec(5), -omegaMax-omega))
	}
	k.U = u

	k.B = mat.DenseCopyOf(k.F)
	k.B.Set(0, 2, -(vs*math.Sin(phi)+vf*math.Cos(phi))*timeDiff)
	k.B.Set(1, 2, (vs*math.Cos(phi)-vf*math.Sin(phi))*timeDiff)

	const sigmaAX, sigmaAY, sigmaAPhi = 4.0, 4.0, 10.0
	g0 := timeDiff * timeDiff / 2 * sigmaAX
	g1 := timeDiff * timeDiff / 2 * sigmaAY
	g2 := timeDiff * timeDiff / 2 * sigmaAPhi
	g3 := timeDiff * sigmaAX
	g4 := timeDiff * sigmaAY
	g5 := timeDiff * sigmaAPhi
	if cameraSwitched {
		g0 += 0.02
		g1 += 0.02
		g2 += 0.05
	}

	q := mat.NewDense(6, 6, nil)
	q.Set(0, 0, g0*g0)
	q.Set(0, 3, g0*g3)
	q.Set(3, 0, g3*g0)
	q.Set(3, 3, g3*g3)
	q.Set(1, 1, g1*g1)
	q.Set(1, 4, g1*g4)
	q.Set(4, 1, g4*g1)
	q.Set(4, 4, g4*g4)
	q.Set(2, 2, g2*g2)
	q.Set(2, 5, g2*g5)
	q.Set(5, 2, g5*g2)
	q.Set(5, 5, g5*g5)
	k.Q = q

	k.Predict()
	if permanentUpdate {
		if updateFuture {
			rf.futureTime = t
		} else {
			rf.lastTime = t
		}
	}
}

func (rf *RobotFilter) applyVisionFrame(frame visionFrameAt) {
	pRot := rf.kalman.State(2)
	pRotLimited := wrapAngle(pRot)
	if pRot != pRotLimited {
		rf.kalman.ModifyState(2, pRotLimited)
	}
	rot := frame.detection.Orientation + math.Pi/2
	diff := wrapAngle(rot - pRotLimited)

	px := -frame.detection.Y
	py := frame.detection.X
	phi := pRotLimited + diff

	rf.kalman.Z = mat.NewVecDense(3, []float64{px, py, phi})

	r := mat.NewDense(3, 3, nil)
	if frame.cameraID == rf.primaryCamera {
		r.Set(0, 0, 0.004*0.004)
		r.Set(1, 1, 0.004*0.004)
		r.Set(2, 2, 0.01*0.01)
	} else {
		r.Set(0, 0, 0.02*0.02)
		r.Set(1, 1, 0.02*0.02)
		r.Set(2, 2, 0.03*0.03)
	}
	rf.kalman.R = r
	rf.kalman.Update()
}

// Update replays every pending vision frame and eligible radio command up to
// now, then predicts the future timeline forward to now (RobotFilter::update).
func (rf *RobotFilter) Update(now clock.Time) {
	updated := false
	for len(rf.pendingFrames) > 0 {
		frame := rf.pendingFrames[0]
		if frame.time > now {
			break
		}
		if frame.time <= rf.lastTime {
			// stale or duplicate source time: drop without a second Kalman
			// correction and keep draining the rest of the queue.
			rf.pendingFrames = rf.pendingFrames[1:]
			continue
		}
		for len(rf.radioCommands) > 0 {
			c := rf.radioCommands[0]
			if c.time > frame.time {
				break
			}
			rf.predict(c.time, false, true, false, rf.lastRadioCmd)
			rf.lastRadioCmd = c
			rf.radioCommands = rf.radioCommands[1:]
		}
		for len(rf.radioCommands) > 0 && rf.radioCommands[0].time <= frame.time {
			rf.radioCommands = rf.radioCommands[1:]
		}

		cameraSwitched := rf.checkCamera(frame.cameraID, 500*clock.Time(1e6), rf.lastTime, frame.time)
		rf.predict(frame.time, false, true, cameraSwitched, rf.lastRadioCmd)
		rf.applyVisionFrame(frame)

		updated = true
		rf.pendingFrames = rf.pendingFrames[1:]
	}
	if updated || now < rf.futureTime {
		rf.resetFutureKalman()
		rf.futureRadioCmd = rf.lastRadioCmd
	}

	for _, c := range rf.radioCommands {
		if c.time > now {
			break
		}
		if c.time > rf.futureTime {
			rf.predict(c.time, true, true, false, rf.futureRadioCmd)
			rf.futureRadioCmd = c
		}
	}

	rf.predict(now, true, false, false, rf.futureRadioCmd)
}

// Get returns the current world-frame snapshot from the future timeline; the
// Processor always reads through this horizon.
func (rf *RobotFilter) Get() RobotState {
	px := rf.futureKalman.State(0)
	py := rf.futureKalman.State(1)
	phi := rf.futureKalman.State(2)
	vs := rf.futureKalman.State(3)
	vf := rf.futureKalman.State(4)
	tmpPhi := phi - math.Pi/2
	vx := math.Cos(tmpPhi)*vs - math.Sin(tmpPhi)*vf
	vy := math.Sin(tmpPhi)*vs + math.Cos(tmpPhi)*vf
	omega := rf.futureKalman.State(5)

	return RobotState{
		ID:    rf.id,
		Pos:   r2.Point{X: px, Y: py},
		Phi:   wrapAngle(phi),
		VX:    vx,
		VY:    vy,
		Omega: omega,
	}
}

// DistanceTo is the vision-only distance used by the Tracker's 0.5m nearest-
// filter data-association test (tracker.cpp::trackRobot).
func (rf *RobotFilter) DistanceTo(d vision.RobotDetection) float64 {
	bx, by := -d.Y, d.X
	px, py := rf.kalman.State(0), rf.kalman.State(1)
	return math.Hypot(bx-px, by-py)
}

// DribblerPos returns the dribbler's world position, offset from the robot
// center along its current heading.
func (rf *RobotFilter) DribblerPos() r2.Point {
	phi := wrapAngle(rf.kalman.State(2))
	return r2.Point{
		X: rf.kalman.State(0) + robotDribblerOffset*math.Cos(phi),
		Y: rf.kalman.State(1) + robotDribblerOffset*math.Sin(phi),
	}
}

// ID returns the robot's id.
func (rf *RobotFilter) ID() int { return rf.id }

// FrameCount returns how many primary-camera frames this filter has consumed.
func (rf *RobotFilter) FrameCount() int { return rf.frameCounter }

// LastUpdate returns the time of the last permanently-applied vision frame.
func (rf *RobotFilter) LastUpdate() clock.Time { return rf.lastTime }

// LatestKnownTime returns the source time of the most recently queued
// detection, applied or still pending, used by the Tracker to drop a
// stale/duplicate detection before it ever reaches this filter.
func (rf *RobotFilter) LatestKnownTime() clock.Time {
	if n := len(rf.pendingFrames); n > 0 {
		return rf.pendingFrames[n-1].time
	}
	return rf.lastTime
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
