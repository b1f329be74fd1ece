package control

import "math"

// RateLimiter clamps the rate of change of a command signal to maxAcc, the
// slew-rate clamp at the heart of the trapezoidal velocity generator this is
// adapted from, but driving straight toward a commanded velocity rather than
// ramping a position profile (the strategy layer already supplies a velocity
// set-point each tick, so no position trapezoid is needed here).
type RateLimiter struct {
	Name   string
	MaxAcc float64 // m/s^2 or rad/s^2, axis-dependent
	MaxVel float64 // m/s or rad/s

	last   float64
	primed bool
}

// Next clamps x toward the limiter's bounds given the elapsed tick duration.
func (r *RateLimiter) Next(x Signal, dtSeconds float64) Signal {
	target := x.Value()
	if target > r.MaxVel {
		target = r.MaxVel
	} else if target < -r.MaxVel {
		target = -r.MaxVel
	}
	if !r.primed {
		r.last = 0
		r.primed = true
	}
	step := r.MaxAcc * dtSeconds
	up := math.Min(r.last+step, r.MaxVel)
	down := math.Max(r.last-step, -r.MaxVel)
	if target > up {
		target = up
	} else if target < down {
		target = down
	}
	r.last = target
	return makeSignal(r.Name, target)
}

// Reset clears the limiter's last commanded value; the Evaluator calls it from
// Halt and Evaluator.Reset.
func (r *RateLimiter) Reset() {
	r.last = 0
	r.primed = false
}
