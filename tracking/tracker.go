package tracking

import (
	"github.com/edaniels/golog"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.robocupssl.dev/racore/clock"
	"go.robocupssl.dev/racore/geometry"
	"go.robocupssl.dev/racore/radio"
	"go.robocupssl.dev/racore/vision"
)

// Invalidation timeouts, in nanoseconds, grounded on tracker.cpp's
// invalidate/invalidateBall/invalidateRobots: filters are pruned faster while a
// same-id duplicate exists than when they are the last of their kind.
const (
	ballMaxTimeMultiple      = 100 * int64(1e6)
	ballMaxTimeLast          = 1000 * int64(1e6)
	robotMaxTimeMultiple     = 200 * int64(1e6)
	robotMaxTimeLast         = 1000 * int64(1e6)
	minFrameCountForInvalidate = 5

	robotAssociationRadius = 0.5 // meters, trackRobot's nearest-filter test
)

// WorldRobot is one tracked robot's snapshot in the Tracker's world state.
type WorldRobot struct {
	RobotState
	IsBlue bool
}

// WorldState is the Tracker's consolidated snapshot at a point in time,
// emitted once per tick.
type WorldState struct {
	Time   clock.Time
	Yellow []WorldRobot
	Blue   []WorldRobot
	Ball   *BallState
	HaveBall bool
}

// Tracker owns every RobotFilter and BallTracker, performs nearest-filter
// data association on each incoming detection, prunes stale filters, and
// emits the consolidated world state, grounded on the tracking subsystem's
// top-level driver.
type Tracker struct {
	logger  golog.Logger
	cameras *geometry.CameraRegistry
	field   geometry.Field

	yellow map[int][]*RobotFilter
	blue   map[int][]*RobotFilter

	balls []*BallTracker

	resetTime clock.Time

	// aoi is the optional area-of-interest rectangle; detections whose field
	// position falls outside it are dropped before they reach any filter.
	// nil means unrestricted.
	aoi *AOIRect
}

// AOIRect is an axis-aligned area-of-interest rectangle in field-frame
// meters, used to bound which detections the Tracker will accept.
type AOIRect struct {
	Min, Max r2.Point
}

// Contains reports whether p falls within the rectangle, inclusive of its
// boundary.
func (r AOIRect) Contains(p r2.Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// NewTracker constructs an empty Tracker.
func NewTracker(logger golog.Logger) *Tracker {
	return &Tracker{
		logger:  logger,
		cameras: geometry.NewCameraRegistry(),
		yellow:  make(map[int][]*RobotFilter),
		blue:    make(map[int][]*RobotFilter),
	}
}

// Reset discards all filter state, used on a team roster change or
// simulator toggle.
func (tr *Tracker) Reset(now clock.Time) {
	tr.yellow = make(map[int][]*RobotFilter)
	tr.blue = make(map[int][]*RobotFilter)
	tr.balls = nil
	tr.resetTime = now
}

// UpdateGeometry rebuilds the field geometry and camera registry from a parsed
// geometry frame.
func (tr *Tracker) UpdateGeometry(g vision.GeometryUpdate) {
	lines := make([]geometry.FieldLine, len(g.Lines))
	for i, l := range g.Lines {
		lines[i] = geometry.FieldLine{Name: l.Name, P1: l.P1, P2: l.P2, ThicknessMM: l.ThicknessMM}
	}
	arcs := make([]geometry.FieldArc, len(g.Arcs))
	for i, a := range g.Arcs {
		arcs[i] = geometry.FieldArc{Name: a.Name, RadiusMM: a.RadiusMM, ThicknessMM: a.ThicknessMM}
	}
	tr.field = geometry.BuildField(geometry.GeometryFrame{
		FieldWidthMM: g.FieldWidthMM, FieldHeightMM: g.FieldHeightMM,
		GoalWidthMM: g.GoalWidthMM, GoalDepthMM: g.GoalDepthMM,
		BoundaryWidthMM: g.BoundaryWidthMM,
		Lines: lines, Arcs: arcs,
	})
	for _, c := range g.Cameras {
		if !c.HasDerivedWorld {
			continue
		}
		// vision-to-field axis swap, matching tracker.cpp::updateCamera.
		tr.cameras.Update(c.CameraID, geometry.CameraCalibration{
			Position:    r3.Vector{X: -c.DerivedWorldTYmm / 1000.0, Y: c.DerivedWorldTXmm / 1000.0, Z: c.DerivedWorldTZmm / 1000.0},
			FocalLength: c.FocalLength,
		})
	}
}

// Field returns the currently known field geometry.
func (tr *Tracker) Field() geometry.Field { return tr.field }

// SetAOI installs an area-of-interest rectangle; detections outside it are
// dropped before reaching any filter. A nil rect disables the filter.
func (tr *Tracker) SetAOI(rect *AOIRect) {
	tr.aoi = rect
}

// AddRobotDetection runs nearest-filter data association for one robot
// detection, creating a new filter if none is within robotAssociationRadius
// (tracker.cpp::trackRobot).
func (tr *Tracker) AddRobotDetection(cameraID int, d vision.RobotDetection, isBlue bool, receiveTime clock.Time) {
	if tr.aoi != nil && !tr.aoi.Contains(r2.Point{X: -d.Y, Y: d.X}) {
		return
	}
	m := tr.yellow
	if isBlue {
		m = tr.blue
	}
	list := m[d.ID]
	nearest := robotAssociationRadius
	var nearestFilter *RobotFilter
	for _, f := range list {
		f.Update(receiveTime)
		if dist := f.DistanceTo(d); dist < nearest {
			nearest = dist
			nearestFilter = f
		}
	}
	if nearestFilter == nil {
		nearestFilter = NewRobotFilter(d.ID, d, cameraID, receiveTime)
		list = append(list, nearestFilter)
		m[d.ID] = list
	} else if receiveTime <= nearestFilter.LatestKnownTime() {
		// stale or duplicate source time: dropped before reaching the filter.
		tr.logger.Debugw("dropping stale robot detection", "id", d.ID, "isBlue", isBlue, "sourceTime", receiveTime)
		return
	}
	nearestFilter.AddDetection(cameraID, d, receiveTime)
}

// AddRadioCommand enqueues a command for control-input prediction on every
// filter matching the command's (id, team).
func (tr *Tracker) AddRadioCommand(cmd radio.Command, t clock.Time) {
	m := tr.yellow
	if cmd.IsBlue {
		m = tr.blue
	}
	for _, f := range m[cmd.ID] {
		f.AddRadioCommand(cmd, t)
	}
}

// bestRobots returns, per robot id and team, the best filter's state at
// currentTime as FrameRobots; within 100 ms of a reset no frame minimum applies.
func (tr *Tracker) bestRobots(currentTime clock.Time) []FrameRobot {
	minFrameCount := 0
	if currentTime > tr.resetTime+clock.Time(100*int64(1e6)) {
		minFrameCount = minFrameCountForInvalidate
	}
	var out []FrameRobot
	collect := func(m map[int][]*RobotFilter, isBlue bool) {
		for _, list := range m {
			best := bestFilter(list, minFrameCount)
			if best == nil {
				continue
			}
			best.Update(currentTime)
			st := best.Get()
			out = append(out, FrameRobot{
				ID: best.ID(), IsBlue: isBlue, Pos: st.Pos, Heading: st.Phi,
				Dribbler: best.DribblerPos(), Velocity: r2.Point{X: st.VX, Y: st.VY},
			})
		}
	}
	collect(tr.yellow, false)
	collect(tr.blue, true)
	return out
}

func bestFilter(list []*RobotFilter, minFrameCount int) *RobotFilter {
	for _, f := range list {
		if f.FrameCount() >= minFrameCount {
			return f
		}
	}
	return nil
}

// AddBallDetection runs camera hand-over association for one ball detection
// across all live BallTrackers, cloning state onto a new primary camera when
// needed (tracker.cpp::trackBall).
func (tr *Tracker) AddBallDetection(cameraID int, d vision.BallDetection, receiveTime clock.Time) {
	if !tr.cameras.Has(cameraID) {
		return
	}
	pos := r2.Point{X: -d.Y, Y: d.X}
	if tr.aoi != nil && !tr.aoi.Contains(pos) {
		return
	}
	robots := tr.bestRobots(receiveTime)

	var acceptingSameCam *BallTracker
	var acceptingOtherCam *BallTracker
	for _, bt := range tr.balls {
		if bt.Fly.IsActive() && bt.Fly.AcceptDetection(pos, receiveTime) ||
			bt.Collision.AcceptDetection(xyz(pos)) {
			if bt.PrimaryCamera() == cameraID {
				acceptingSameCam = bt
			} else {
				acceptingOtherCam = bt
			}
		}
	}

	if acceptingSameCam != nil {
		if receiveTime <= acceptingSameCam.LastSourceTime() {
			tr.logger.Debugw("dropping stale ball detection", "camera", cameraID, "sourceTime", receiveTime)
			return
		}
		acceptingSameCam.AddDetection(cameraID, pos, d.AreaPixels, robots, receiveTime)
		return
	}

	var bt *BallTracker
	if acceptingOtherCam != nil {
		bt = acceptingOtherCam.CloneForCamera(cameraID, tr.cameras)
	} else {
		bt = NewBallTracker(cameraID, pos, receiveTime, tr.cameras)
	}
	bt.AddDetection(cameraID, pos, d.AreaPixels, robots, receiveTime)
	tr.balls = append(tr.balls, bt)
}

// Process advances every filter and prunes stale ones: balls after
// 0.1s (multiple)/1s (last), robots after 0.2s (multiple)/1s (last).
func (tr *Tracker) Process(now clock.Time) {
	invalidateBalls := func() {
		if len(tr.balls) == 0 {
			return
		}
		limit := clock.Time(ballMaxTimeMultiple)
		if len(tr.balls) == 1 {
			limit = clock.Time(ballMaxTimeLast)
		}
		kept := tr.balls[:0]
		for _, bt := range tr.balls {
			if now-bt.Collision.lastSeenTime < limit {
				kept = append(kept, bt)
			}
		}
		tr.balls = kept
	}
	invalidateRobots := func(m map[int][]*RobotFilter) {
		for id, list := range m {
			limit := clock.Time(robotMaxTimeMultiple)
			if len(list) == 1 && list[0].FrameCount() >= minFrameCountForInvalidate {
				limit = clock.Time(robotMaxTimeLast)
			}
			kept := list[:0]
			for _, f := range list {
				if now-f.LastUpdate() < limit {
					kept = append(kept, f)
				}
			}
			if len(kept) == 0 {
				delete(m, id)
			} else {
				m[id] = kept
			}
		}
	}

	invalidateBalls()
	invalidateRobots(tr.yellow)
	invalidateRobots(tr.blue)

	for _, list := range tr.yellow {
		for _, f := range list {
			f.Update(now)
		}
	}
	for _, list := range tr.blue {
		for _, f := range list {
			f.Update(now)
		}
	}
}

// WorldState returns the tracker's consolidated snapshot at t, reading the
// best (longest-lived) filter per robot id and the current ball tracker.
func (tr *Tracker) WorldState(t clock.Time) WorldState {
	minFrameCount := 0
	if t > tr.resetTime+clock.Time(500*int64(1e6)) {
		minFrameCount = minFrameCountForInvalidate
	}
	ws := WorldState{Time: t}
	for _, list := range tr.yellow {
		if f := bestFilter(list, minFrameCount); f != nil {
			ws.Yellow = append(ws.Yellow, WorldRobot{RobotState: f.Get(), IsBlue: false})
		}
	}
	for _, list := range tr.blue {
		if f := bestFilter(list, minFrameCount); f != nil {
			ws.Blue = append(ws.Blue, WorldRobot{RobotState: f.Get(), IsBlue: true})
		}
	}
	if len(tr.balls) > 0 {
		robots := tr.bestRobots(t)
		best := tr.balls[0]
		for _, bt := range tr.balls[1:] {
			if betterBallTracker(bt, best, t) {
				best = bt
			}
		}
		state := best.State(t, robots)
		ws.Ball = &state
		ws.HaveBall = true
	}
	return ws
}

// betterBallTracker reports whether candidate should be preferred over
// current as the Tracker's reported ball hypothesis: the oldest init-time
// wins, ties broken in favor of whichever one's primary camera currently
// sees the ball.
func betterBallTracker(candidate, current *BallTracker, t clock.Time) bool {
	if candidate.InitTime() != current.InitTime() {
		return candidate.InitTime() < current.InitTime()
	}
	return candidate.Collision.Visible(t) && !current.Collision.Visible(t)
}

