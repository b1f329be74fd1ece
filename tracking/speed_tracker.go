package tracking

import (
	"go.robocupssl.dev/racore/clock"
	"go.robocupssl.dev/racore/radio"
)

// speedTimeout is how long a robot's last telemetry response stays valid before
// SpeedTracker treats it as stopped, mirroring the vision invalidation timeouts
// this package uses elsewhere rather than inventing an unrelated constant.
const speedTimeout = 200 * clock.Time(1e6)

type speedEntry struct {
	vs, vf, omega float64
	lastSeen      clock.Time
}

// SpeedTracker is the parallel, commanded-only tracker run alongside the
// vision Tracker each tick: it carries no Kalman state and does no vision
// data association, since radio telemetry already reports local-frame speed
// directly, so it only needs to remember the most recent sample per robot
// and expire it once stale. Grounded on processor.cpp's m_speedTracker
// wiring: reset and process are driven the same way the vision Tracker's
// are, and MeasuredFor serves its per-robot samples.
type SpeedTracker struct {
	yellow map[int]*speedEntry
	blue   map[int]*speedEntry
}

// NewSpeedTracker returns an empty SpeedTracker.
func NewSpeedTracker() *SpeedTracker {
	return &SpeedTracker{
		yellow: make(map[int]*speedEntry),
		blue:   make(map[int]*speedEntry),
	}
}

// Reset discards all telemetry state (processor.cpp's m_speedTracker->reset()).
func (st *SpeedTracker) Reset() {
	st.yellow = make(map[int]*speedEntry)
	st.blue = make(map[int]*speedEntry)
}

// AddResponse records one robot's telemetry reply as its current measured speed.
func (st *SpeedTracker) AddResponse(r radio.Response) {
	m := st.yellow
	if r.IsBlue {
		m = st.blue
	}
	e, ok := m[r.ID]
	if !ok {
		e = &speedEntry{}
		m[r.ID] = e
	}
	e.vs, e.vf, e.omega = r.VS, r.VF, r.Omega
	e.lastSeen = r.Time
}

// Process prunes robots whose last telemetry reply is older than speedTimeout.
func (st *SpeedTracker) Process(now clock.Time) {
	prune := func(m map[int]*speedEntry) {
		for id, e := range m {
			if now-e.lastSeen > speedTimeout {
				delete(m, id)
			}
		}
	}
	prune(st.yellow)
	prune(st.blue)
}

// Measured is the local-frame speed SpeedTracker reports for one robot, the shape
// the Command Evaluator consumes as feedback (§4.7 step 3).
type Measured struct {
	VS, VF, Omega float64
}

// MeasuredFor returns the last known measured speed for a robot, and whether any
// (non-expired) telemetry has been recorded for it.
func (st *SpeedTracker) MeasuredFor(id int, isBlue bool) (Measured, bool) {
	m := st.yellow
	if isBlue {
		m = st.blue
	}
	e, ok := m[id]
	if !ok {
		return Measured{}, false
	}
	return Measured{VS: e.vs, VF: e.vf, Omega: e.omega}, true
}
