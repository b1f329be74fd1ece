package tracking

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.robocupssl.dev/racore/clock"
	"go.robocupssl.dev/racore/geometry"
)

// Fly-filter tuning constants, carried over from the reference chip-kick
// reconstruction: a bounce damps vertical speed by floorDamping, the recent-
// detection buffer holds at most maxFramesPerFlight frames, and detections are
// accepted/kept active only within acceptDist/activeDist of the position the
// flight hypothesis predicts for the detection's time.
const (
	flyFloorDamping    = 0.55
	flyMaxFramesPerFlight = 200
	flyAcceptDist      = 0.35
	flyActiveDist      = 0.5
	flyGravity         = 9.81
	flyActivationFrames = 5
)

// FlyDetection is one ball sighting carrying the per-frame detection area the fly
// filter needs to estimate ball height by apparent-size shrinkage.
type FlyDetection struct {
	Pos        r2.Point // ground-projected camera ray intercept, field frame meters
	AreaPixels float64
	CameraID   int
	Time       clock.Time
}

type bounceState struct {
	active      bool
	startTime   clock.Time
	startPos    r2.Point
	zSpeed      float64
	groundSpeed r2.Point
}

// BallFlyFilter reconstructs a parabolic chip-kick trajectory once enough recent
// detections show a consistent height gain, and predicts position/velocity
// (including post-bounce) from that reconstruction, grounded on the chip-flight
// tracking component of the tracking subsystem (condensed here: the activation
// test is a single height/speed heuristic rather than the curvature + height +
// speed + pseudo-inverse ensemble of independent tests the reference keeps, and
// acceptDetection compares ground-plane projections rather than re-deriving the
// camera ray each time — see DESIGN.md).
type BallFlyFilter struct {
	cameras *geometry.CameraRegistry

	recent []FlyDetection

	active        bool
	chipStartTime clock.Time
	chipStartPos  r2.Point
	zSpeed        float64
	groundSpeed   r2.Point
	lastAcceptDist float64

	bounce bounceState
}

// NewBallFlyFilter returns an inactive fly filter that starts accumulating
// detections immediately.
func NewBallFlyFilter(cameras *geometry.CameraRegistry) *BallFlyFilter {
	return &BallFlyFilter{cameras: cameras}
}

// IsActive reports whether a flight hypothesis is live and still being accepted.
func (f *BallFlyFilter) IsActive() bool {
	return f.active && f.lastAcceptDist < flyActiveDist
}

func (f *BallFlyFilter) unprojectHeight(d FlyDetection, ballRadius float64) float64 {
	cam, ok := f.cameras.Get(d.CameraID)
	if !ok || d.AreaPixels <= 0 {
		return 0
	}
	distInferred := cam.FocalLength * (ballRadius/math.Sqrt(d.AreaPixels/math.Pi) + 1) / 1000.0
	groundDist := math.Hypot(d.Pos.X-cam.Position.X, d.Pos.Y-cam.Position.Y)
	if groundDist == 0 {
		return 0
	}
	// similar triangles along the camera ray from cam.Position down to the
	// ground-projected detection; solving for the height at which a sphere of
	// ballRadius would appear with area AreaPixels.
	scale := distInferred / groundDist
	return cam.Position.Z * (1 - scale)
}

const flyAssumedBallRadius = 0.0215

// AddDetection appends a detection to the recent-frame buffer and evaluates
// activation if not yet active; an active reconstruction is not updated.
func (f *BallFlyFilter) AddDetection(d FlyDetection) {
	f.recent = append(f.recent, d)
	if len(f.recent) > flyMaxFramesPerFlight {
		f.recent = f.recent[1:]
	}
	if !f.active {
		f.tryActivate()
		return
	}
}

func (f *BallFlyFilter) tryActivate() {
	if len(f.recent) < flyActivationFrames {
		return
	}
	n := len(f.recent)
	first, last := f.recent[0], f.recent[n-1]
	if first.CameraID != last.CameraID {
		return
	}
	heightFirst := f.unprojectHeight(first, flyAssumedBallRadius)
	heightLast := f.unprojectHeight(last, flyAssumedBallRadius)
	if heightLast < 0.3 || heightLast-heightFirst < 0.3 {
		return
	}

	dt := float64(last.Time-first.Time) * 1e-9
	if dt <= 0 {
		return
	}
	groundSpeed := r2.Point{X: (last.Pos.X - first.Pos.X) / dt, Y: (last.Pos.Y - first.Pos.Y) / dt}
	// recover the initial vertical speed from the measured height at the last
	// sample, assuming free fall since the first sample (z0 = 0 at launch).
	vz := (heightLast + flyGravity*dt*dt/2) / dt
	if vz <= 0 {
		return
	}

	f.active = true
	f.chipStartTime = first.Time
	f.chipStartPos = first.Pos
	f.zSpeed = vz
	f.groundSpeed = groundSpeed
	f.bounce = bounceState{}
}

// Prediction is the fly filter's estimated state at a requested time.
type Prediction struct {
	Pos r3.Vector
	Vel r3.Vector
}

// Predict reconstructs ground position, height, and velocities at time, handling
// one or more bounces exactly as the reference's predictTrajectory does: each
// bounce damps vertical speed by floorDamping and restarts the parabola from the
// touch-down point.
func (f *BallFlyFilter) Predict(t clock.Time) Prediction {
	flightDuration := 2 * f.zSpeed / flyGravity
	elapsed := float64(t-f.chipStartTime) * 1e-9
	touchdown := r2.Point{
		X: f.chipStartPos.X + flightDuration*f.groundSpeed.X,
		Y: f.chipStartPos.Y + flightDuration*f.groundSpeed.Y,
	}

	if f.active && elapsed > 0.3 && elapsed < 3 && elapsed > flightDuration {
		if !f.bounce.active {
			f.bounce = bounceState{
				active:      true,
				startTime:   clock.Time(float64(f.chipStartTime) + flightDuration*1e9),
				zSpeed:      flyFloorDamping * f.zSpeed,
				groundSpeed: f.groundSpeed,
				startPos:    touchdown,
			}
		} else {
			bounceFlightDuration := 2 * f.bounce.zSpeed / flyGravity
			bounceElapsed := float64(t-f.bounce.startTime) * 1e-9
			if bounceElapsed > bounceFlightDuration {
				f.bounce.startTime = clock.Time(float64(f.bounce.startTime) + bounceFlightDuration*1e9)
				f.bounce.startPos = r2.Point{
					X: f.bounce.startPos.X + f.bounce.groundSpeed.X*bounceFlightDuration,
					Y: f.bounce.startPos.Y + f.bounce.groundSpeed.Y*bounceFlightDuration,
				}
				f.bounce.zSpeed *= flyFloorDamping
			}
		}
	}

	if f.bounce.active {
		bt := float64(t-f.bounce.startTime) * 1e-9
		groundPos := r2.Point{
			X: f.bounce.startPos.X + f.bounce.groundSpeed.X*bt,
			Y: f.bounce.startPos.Y + f.bounce.groundSpeed.Y*bt,
		}
		zSpeed := f.bounce.zSpeed - flyGravity*bt
		zPos := bt*f.bounce.zSpeed - 0.5*flyGravity*bt*bt
		return Prediction{
			Pos: r3.Vector{X: groundPos.X, Y: groundPos.Y, Z: zPos},
			Vel: r3.Vector{X: f.bounce.groundSpeed.X, Y: f.bounce.groundSpeed.Y, Z: zSpeed},
		}
	}

	groundPos := r2.Point{X: f.chipStartPos.X + f.groundSpeed.X*elapsed, Y: f.chipStartPos.Y + f.groundSpeed.Y*elapsed}
	zSpeed := f.zSpeed - flyGravity*elapsed
	zPos := elapsed*f.zSpeed - 0.5*flyGravity*elapsed*elapsed
	return Prediction{
		Pos: r3.Vector{X: groundPos.X, Y: groundPos.Y, Z: zPos},
		Vel: r3.Vector{X: f.groundSpeed.X, Y: f.groundSpeed.Y, Z: zSpeed},
	}
}

// AcceptDetection reports whether a new ground-plane detection still matches the
// predicted flight path.
func (f *BallFlyFilter) AcceptDetection(pos r2.Point, t clock.Time) bool {
	if !f.active {
		return false
	}
	pred := f.Predict(t)
	dist := math.Hypot(pos.X-pred.Pos.X, pos.Y-pred.Pos.Y)
	f.lastAcceptDist = dist
	return dist < flyAcceptDist
}

// Reset discards the current flight hypothesis, e.g. once the ball has landed.
func (f *BallFlyFilter) Reset() {
	f.active = false
	f.bounce = bounceState{}
	f.recent = nil
}
