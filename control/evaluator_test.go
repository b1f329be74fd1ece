package control

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"go.robocupssl.dev/racore/radio"
)

func testGains() AxisGains {
	return AxisGains{
		FeedforwardGain: 1.0,
		Kp:              2.0,
		Ki:              0.0,
		Kd:              0.0,
		IntegralMin:     -1,
		IntegralMax:     1,
		MaxAcc:          10,
		MaxVel:          5,
	}
}

func TestEvaluatorTracksFeedforwardAtRest(t *testing.T) {
	cfg := EvaluatorConfig{Strafe: testGains(), Forward: testGains(), Angular: testGains()}
	ev := NewEvaluator(7, true, cfg, golog.NewTestLogger(t))

	cmd := ev.Next(Target{VF: 1.0}, Measured{}, 0.01)
	test.That(t, cmd.ID, test.ShouldEqual, 7)
	test.That(t, cmd.IsBlue, test.ShouldBeTrue)
	test.That(t, cmd.VF, test.ShouldBeGreaterThan, 0)
	test.That(t, cmd.VF, test.ShouldBeLessThanOrEqualTo, 1.0)
}

func TestEvaluatorRateLimitsLargeJumps(t *testing.T) {
	gains := testGains()
	gains.MaxAcc = 1 // tight limit so a single 10ms tick cannot reach the target
	cfg := EvaluatorConfig{Strafe: gains, Forward: gains, Angular: gains}
	ev := NewEvaluator(1, false, cfg, golog.NewTestLogger(t))

	cmd := ev.Next(Target{VS: 5}, Measured{}, 0.01)
	test.That(t, cmd.VS, test.ShouldBeLessThan, 5)
}

func TestEvaluatorHaltZeroesOutputAndResetsMemory(t *testing.T) {
	cfg := EvaluatorConfig{Strafe: testGains(), Forward: testGains(), Angular: testGains()}
	ev := NewEvaluator(3, true, cfg, golog.NewTestLogger(t))

	ev.Next(Target{VF: 2}, Measured{}, 0.01)
	cmd := ev.Next(Target{Halt: true}, Measured{}, 0.01)
	test.That(t, cmd.Halt, test.ShouldBeTrue)
	test.That(t, cmd.VS, test.ShouldEqual, 0.0)
	test.That(t, cmd.VF, test.ShouldEqual, 0.0)
	test.That(t, cmd.Omega, test.ShouldEqual, 0.0)
}

func TestEvaluatorPassesThroughKickAndDribbler(t *testing.T) {
	cfg := EvaluatorConfig{Strafe: testGains(), Forward: testGains(), Angular: testGains()}
	ev := NewEvaluator(9, false, cfg, golog.NewTestLogger(t))

	cmd := ev.Next(Target{Kick: radio.KickChip, KickPower: 3.5, Dribbler: 0.8, ForceKick: true}, Measured{}, 0.01)
	test.That(t, cmd.Kick, test.ShouldEqual, radio.KickChip)
	test.That(t, cmd.KickPower, test.ShouldEqual, 3.5)
	test.That(t, cmd.Dribbler, test.ShouldEqual, 0.8)
	test.That(t, cmd.ForceKick, test.ShouldBeTrue)
}
