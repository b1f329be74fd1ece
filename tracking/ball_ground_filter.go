package tracking

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.robocupssl.dev/racore/clock"
)

const groundFilterAcceptDist = 0.45 // meters; FIXME mahalanobis

// BallGroundVisionFrame is one ball sighting already rotated/rescaled into field
// frame meters.
type BallGroundVisionFrame struct {
	Pos      r3.Vector // z=0 for a pure ground sighting
	CameraID int
	Time     clock.Time
}

// BallGroundFilter tracks the ball's 3-D position/velocity (x,y,z,vx,vy,vz) under
// a simple rolling-friction/gravity control-input model, grounded on the ball
// ground filter's Kalman predict step. Height tracking is folded into the same
// filter rather than split out, matching the original's single 6-state design.
type BallGroundFilter struct {
	kalman     *Kalman
	lastUpdate clock.Time
}

// NewBallGroundFilter seeds a filter at the given ground detection.
func NewBallGroundFilter(frame BallGroundVisionFrame) *BallGroundFilter {
	x0 := mat.NewVecDense(6, []float64{frame.Pos.X, frame.Pos.Y, frame.Pos.Z, 0, 0, 0})
	k := NewKalman(6, x0)
	k.H = mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		k.H.Set(i, i, 1)
	}
	return &BallGroundFilter{kalman: k, lastUpdate: frame.Time}
}

// Clone deep-copies the filter, used when a ball hypothesis is handed over to a
// new primary camera.
func (f *BallGroundFilter) Clone() *BallGroundFilter {
	return &BallGroundFilter{kalman: f.kalman.Clone(), lastUpdate: f.lastUpdate}
}

func (f *BallGroundFilter) predict(t clock.Time) {
	if t == f.lastUpdate {
		return
	}
	timeDiff := float64(t-f.lastUpdate) * 1e-9

	k := f.kalman
	k.F = mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		k.F.Set(i, i, 1)
	}
	k.F.Set(0, 3, timeDiff)
	k.F.Set(1, 4, timeDiff)
	k.F.Set(2, 5, timeDiff)
	k.B = mat.DenseCopyOf(k.F)

	const deceleration0 = 0.4
	deceleration := deceleration0 * timeDiff
	d := k.X
	v := math.Hypot(d.AtVec(3), d.AtVec(4))
	phi := math.Atan2(d.AtVec(4), d.AtVec(3))

	u := mat.NewVecDense(6, nil)
	switch {
	case v < deceleration:
		u.SetVec(0, -v*math.Cos(phi)*timeDiff/2)
		u.SetVec(1, -v*math.Sin(phi)*timeDiff/2)
		u.SetVec(3, -d.AtVec(3)/2)
		u.SetVec(4, -d.AtVec(4)/2)
		u.SetVec(2, -d.AtVec(2)/2)
		u.SetVec(5, -d.AtVec(5)/2)
	case d.AtVec(2) < 0.1:
		u.SetVec(0, -deceleration*math.Cos(phi)*timeDiff/2)
		u.SetVec(1, -deceleration*math.Sin(phi)*timeDiff/2)
		u.SetVec(3, -deceleration*math.Cos(phi))
		u.SetVec(4, -deceleration*math.Sin(phi))
		u.SetVec(2, -d.AtVec(2)/2)
		u.SetVec(5, -d.AtVec(5)/2)
	default:
		const gravity = 9.81
		u.SetVec(2, -gravity*timeDiff*timeDiff/2)
		u.SetVec(5, -gravity*timeDiff)
	}
	k.U = u

	const sigmaAX, sigmaAY, sigmaAZ = 4.0, 4.0, 4.0
	g0 := timeDiff * timeDiff / 2 * sigmaAX
	g1 := timeDiff * timeDiff / 2 * sigmaAY
	g2 := timeDiff * timeDiff / 2 * sigmaAZ
	g3 := timeDiff * sigmaAX
	g4 := timeDiff * sigmaAY
	g5 := timeDiff * sigmaAZ

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
}

// ProcessVisionFrame predicts to frame.Time then applies the x/y position
// measurement. A frame at or before the last applied source time is stale
// (or a duplicate) and is silently dropped without touching the filter.
func (f *BallGroundFilter) ProcessVisionFrame(frame BallGroundVisionFrame) {
	if frame.Time <= f.lastUpdate {
		return
	}
	f.predict(frame.Time)
	f.kalman.Z = mat.NewVecDense(2, []float64{frame.Pos.X, frame.Pos.Y})
	h := mat.NewDense(2, 6, nil)
	h.Set(0, 0, 1)
	h.Set(1, 1, 1)
	f.kalman.H = h
	r := mat.NewDense(2, 2, nil)
	r.Set(0, 0, 0.003*0.003)
	r.Set(1, 1, 0.003*0.003)
	f.kalman.R = r
	f.kalman.Update()
	f.lastUpdate = frame.Time
}

// AcceptDetection reports whether pos is close enough to the filter's current
// estimate to belong to the same ball hypothesis.
func (f *BallGroundFilter) AcceptDetection(pos r3.Vector) bool {
	return f.DistanceTo(pos) < groundFilterAcceptDist
}

// DistanceTo is the planar distance from pos to the filter's current estimate.
func (f *BallGroundFilter) DistanceTo(pos r3.Vector) float64 {
	return math.Hypot(pos.X-f.kalman.X.AtVec(0), pos.Y-f.kalman.X.AtVec(1))
}

// BallState is the ground filter's predicted state at a requested time.
type BallState struct {
	Pos r3.Vector
	Vel r3.Vector
}

// WriteBallState predicts to t and returns the resulting state, without
// permanently advancing the filter's own clock (matches writeBallState's
// read-only predict()).
func (f *BallGroundFilter) WriteBallState(t clock.Time) BallState {
	saved := f.kalman.Clone()
	savedTime := f.lastUpdate
	f.predict(t)
	state := BallState{
		Pos: r3.Vector{X: f.kalman.X.AtVec(0), Y: f.kalman.X.AtVec(1), Z: f.kalman.X.AtVec(2)},
		Vel: r3.Vector{X: f.kalman.X.AtVec(3), Y: f.kalman.X.AtVec(4), Z: f.kalman.X.AtVec(5)},
	}
	f.kalman = saved
	f.lastUpdate = savedTime
	return state
}
