package processor

import (
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"go.robocupssl.dev/racore/clock"
	"go.robocupssl.dev/racore/control"
	"go.robocupssl.dev/racore/vision"
)

func testEvaluatorConfig() control.EvaluatorConfig {
	gains := control.AxisGains{
		FeedforwardGain: 1, Kp: 1, IntegralMin: -1, IntegralMax: 1,
		MaxAcc: 10, MaxVel: 5,
	}
	return control.EvaluatorConfig{Strafe: gains, Forward: gains, Angular: gains}
}

func TestTickPublishesCurrentAndPredictedWorld(t *testing.T) {
	clk := clock.NewMock()
	p := New(golog.NewTestLogger(t), clk, testEvaluatorConfig())
	p.Start()
	defer p.Stop()

	geo := vision.GeometryUpdate{
		FieldWidthMM: 9000, FieldHeightMM: 6000,
		Cameras: []vision.CameraCalibrationUpdate{
			{CameraID: 0, HasDerivedWorld: true, FocalLength: 400},
		},
	}
	p.VisionIn() <- vision.Packet{Geometry: &geo, ReceiveTime: clk.Now()}

	detection := vision.DetectionFrame{
		CameraID: 0,
		YellowRobots: []vision.RobotDetection{
			{ID: 5, X: 1, Y: 2, Orientation: 0, CameraID: 0},
		},
	}
	p.VisionIn() <- vision.Packet{Detection: &detection, ReceiveTime: clk.Now()}

	clk.Mock().Add(DefaultTickPeriod)

	var statuses int
	for statuses < 2 {
		select {
		case <-p.StatusOut():
			statuses++
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for world status")
		}
	}
	test.That(t, statuses, test.ShouldEqual, 2)
}

func TestTargetPriorityManualOverStrategy(t *testing.T) {
	clk := clock.NewMock()
	p := New(golog.NewTestLogger(t), clk, testEvaluatorConfig())

	p.SetStrategyTarget(1, false, control.Target{VF: 2})
	p.SetManualOverride(1, false, control.Target{VF: 5})

	got := p.targetFor(robotKey{1, false})
	test.That(t, got.VF, test.ShouldEqual, 5.0)

	p.ClearManualOverride(1, false)
	got = p.targetFor(robotKey{1, false})
	test.That(t, got.VF, test.ShouldEqual, 2.0)
}
