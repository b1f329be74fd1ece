package control

import (
	"github.com/edaniels/golog"

	"go.robocupssl.dev/racore/radio"
)

// Target is the per-robot desired state the Command Evaluator converts into a
// low-level command: a strategy's requested local-frame velocity plus
// kick/dribbler intent.
type Target struct {
	VS, VF, Omega float64
	Kick          radio.KickStyle
	KickPower     float64
	Dribbler      float64
	ForceKick     bool
	Halt          bool
}

// Measured is the robot's current feedback state: the local speed
// SpeedTracker derived from telemetry. When no telemetry has arrived the
// Processor passes zeros; there is no fallback to the tracked state.
type Measured struct {
	VS, VF, Omega float64
}

// AxisGains bundles one axis's feedforward gain, feedback PID and rate limiter.
type AxisGains struct {
	FeedforwardGain float64
	Kp, Ki, Kd      float64
	IntegralMin     float64
	IntegralMax     float64
	MaxAcc          float64
	MaxVel          float64
}

// EvaluatorConfig holds the three axes' tunings for one robot's Command Evaluator.
type EvaluatorConfig struct {
	Strafe  AxisGains
	Forward AxisGains
	Angular AxisGains
}

type axisController struct {
	feedforward Gain
	feedback    PID
	sum         Sum
	limiter     RateLimiter
}

func newAxisController(name string, g AxisGains) *axisController {
	return &axisController{
		feedforward: Gain{Name: name + "_ff", Factor: g.FeedforwardGain},
		feedback: PID{
			Name:        name + "_fb",
			Kp:          g.Kp,
			Ki:          g.Ki,
			Kd:          g.Kd,
			IntegralMin: g.IntegralMin,
			IntegralMax: g.IntegralMax,
		},
		sum:     Sum{Name: name + "_sum"},
		limiter: RateLimiter{Name: name, MaxAcc: g.MaxAcc, MaxVel: g.MaxVel},
	}
}

func (a *axisController) next(desired, measured float64, dtSeconds float64) float64 {
	ff := a.feedforward.Next(makeSignal("desired", desired))
	fb := a.feedback.Next(makeSignal("error", desired-measured), dtSeconds)
	sum := a.sum.Next(ff, fb)
	return a.limiter.Next(sum, dtSeconds).Value()
}

func (a *axisController) reset() {
	a.feedback.Reset()
	a.limiter.Reset()
}

// Evaluator is one robot's Command Evaluator: deterministic given its inputs,
// never touching anything outside its own per-axis controller memory. It
// owns no reference to the Tracker, the clock, or any other robot.
type Evaluator struct {
	id     int
	isBlue bool
	logger golog.Logger

	strafe  *axisController
	forward *axisController
	angular *axisController
}

// NewEvaluator constructs the Command Evaluator for one robot.
func NewEvaluator(id int, isBlue bool, cfg EvaluatorConfig, logger golog.Logger) *Evaluator {
	return &Evaluator{
		id:      id,
		isBlue:  isBlue,
		logger:  logger,
		strafe:  newAxisController("vs", cfg.Strafe),
		forward: newAxisController("vf", cfg.Forward),
		angular: newAxisController("omega", cfg.Angular),
	}
}

// Reset clears all per-axis controller memory. The Processor does not call it;
// dropping a robot from the world state leaves its Evaluator's memory as is.
func (e *Evaluator) Reset() {
	e.strafe.reset()
	e.forward.reset()
	e.angular.reset()
}

// Next computes one tick's radio.Command from the desired target and the robot's
// measured local speed feedback.
func (e *Evaluator) Next(target Target, measured Measured, dtSeconds float64) radio.Command {
	cmd := radio.Command{
		ID:     e.id,
		IsBlue: e.isBlue,
	}
	if target.Halt {
		cmd.Halt = true
		e.strafe.reset()
		e.forward.reset()
		e.angular.reset()
		return cmd
	}
	cmd.VS = e.strafe.next(target.VS, measured.VS, dtSeconds)
	cmd.VF = e.forward.next(target.VF, measured.VF, dtSeconds)
	cmd.Omega = e.angular.next(target.Omega, measured.Omega, dtSeconds)
	cmd.Kick = target.Kick
	cmd.KickPower = target.KickPower
	cmd.Dribbler = target.Dribbler
	cmd.ForceKick = target.ForceKick
	return cmd
}
