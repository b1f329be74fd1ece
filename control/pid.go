package control

import "math"

// PID is a discrete-time PID with clamped anti-windup integral action, adapted for
// axis velocity feedback: x is the error (desired - measured), output is an
// additive velocity correction.
type PID struct {
	Name                     string
	Kp, Ki, Kd               float64
	IntegralMin, IntegralMax float64

	lastError float64
	integral  float64
	primed    bool
}

// Next computes one PID step given the current error and the tick duration.
func (p *PID) Next(errSignal Signal, dtSeconds float64) Signal {
	e := errSignal.Value()
	if !p.primed {
		p.lastError = e
		p.primed = true
	}
	p.integral += p.Ki * e * dtSeconds
	p.integral = math.Min(math.Max(p.integral, p.IntegralMin), p.IntegralMax)
	deriv := 0.0
	if dtSeconds > 0 {
		deriv = (e - p.lastError) / dtSeconds
	}
	out := p.Kp*e + p.integral + p.Kd*deriv
	p.lastError = e
	return makeSignal(p.Name, out)
}

// Reset clears the controller's integral and derivative history; the Evaluator
// calls it from Halt and Evaluator.Reset.
func (p *PID) Reset() {
	p.lastError = 0
	p.integral = 0
	p.primed = false
}
