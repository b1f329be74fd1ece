// Package tracking implements the per-object Kalman filters and the Tracker
// that owns them: robot and ball state estimation from vision detections,
// re-derived every tick from the last applied measurement rather than
// integrated once and forgotten.
package tracking

import "gonum.org/v1/gonum/mat"

// Kalman is a linear-Gaussian estimator whose transition Jacobians are
// recomputed every predict step from the current state, effectively a
// single-step-linearized extended Kalman filter, the same shape the robot
// and ball filters both build on top of.
type Kalman struct {
	X *mat.VecDense // state, n x 1
	P *mat.Dense    // covariance, n x n

	F *mat.Dense    // state transition used for X' = F*X + U
	B *mat.Dense    // Jacobian used for covariance propagation (may differ from F)
	Q *mat.Dense    // process noise, n x n
	U *mat.VecDense // control input, n x 1

	H *mat.Dense    // measurement matrix, m x n
	R *mat.Dense    // measurement noise, m x m
	Z *mat.VecDense // measurement, m x 1
}

// NewKalman returns a Kalman filter of state dimension n seeded at x0 with unit
// initial covariance.
func NewKalman(n int, x0 *mat.VecDense) *Kalman {
	k := &Kalman{
		X: mat.VecDenseCopyOf(x0),
		P: mat.NewDense(n, n, nil),
		F: mat.NewDense(n, n, nil),
		B: mat.NewDense(n, n, nil),
		Q: mat.NewDense(n, n, nil),
		U: mat.NewVecDense(n, nil),
	}
	for i := 0; i < n; i++ {
		k.P.Set(i, i, 1)
	}
	return k
}

// Clone returns a deep copy, used to rebase the future timeline onto the
// current one (RobotFilter.resetFutureKalman, BallGroundFilter equivalents).
func (k *Kalman) Clone() *Kalman {
	n, _ := k.P.Dims()
	c := &Kalman{
		X: mat.VecDenseCopyOf(k.X),
		P: mat.NewDense(n, n, nil),
		F: mat.NewDense(n, n, nil),
		B: mat.NewDense(n, n, nil),
		Q: mat.NewDense(n, n, nil),
		U: mat.NewVecDense(n, nil),
	}
	c.P.Copy(k.P)
	return c
}

// State returns the i-th state component.
func (k *Kalman) State(i int) float64 { return k.X.AtVec(i) }

// ModifyState overwrites the i-th state component directly, used to unwrap an
// angle before taking the next residual (RobotFilter.applyVisionFrame).
func (k *Kalman) ModifyState(i int, v float64) { k.X.SetVec(i, v) }

// Predict advances the state and covariance by one step using the currently
// configured F, B, Q and U.
func (k *Kalman) Predict() {
	n, _ := k.P.Dims()

	var nx mat.VecDense
	nx.MulVec(k.F, k.X)
	nx.AddVec(&nx, k.U)
	k.X = mat.VecDenseCopyOf(&nx)

	var bp mat.Dense
	bp.Mul(k.B, k.P)
	var bpbt mat.Dense
	bpbt.Mul(&bp, k.B.T())
	var np mat.Dense
	np.Add(&bpbt, k.Q)
	k.P = mat.NewDense(n, n, nil)
	k.P.Copy(&np)
}

// Update applies the configured measurement (H, R, Z) via the standard Kalman
// gain correction. A singular innovation covariance leaves the state unchanged.
func (k *Kalman) Update() {
	n, _ := k.P.Dims()

	var hx mat.VecDense
	hx.MulVec(k.H, k.X)
	var y mat.VecDense
	y.SubVec(k.Z, &hx)

	var ph mat.Dense
	ph.Mul(k.P, k.H.T())

	var s mat.Dense
	s.Mul(k.H, &ph)
	s.Add(&s, k.R)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return
	}

	var kg mat.Dense
	kg.Mul(&ph, &sInv)

	var correction mat.VecDense
	correction.MulVec(&kg, &y)
	var nx mat.VecDense
	nx.AddVec(k.X, &correction)
	k.X = mat.VecDenseCopyOf(&nx)

	var kh mat.Dense
	kh.Mul(&kg, k.H)
	ident := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		ident.Set(i, i, 1)
	}
	var imkh mat.Dense
	imkh.Sub(ident, &kh)
	var np mat.Dense
	np.Mul(&imkh, k.P)
	k.P = mat.NewDense(n, n, nil)
	k.P.Copy(&np)
}
