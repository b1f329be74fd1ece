package motionplan

import (
	"testing"

	"go.viam.com/test"
)

func TestCalculate1DTrajectoryDirectRamp(t *testing.T) {
	var p SpeedProfile1D
	p.Calculate1DTrajectory(0, 2, 0, 1, 3)
	test.That(t, p.Duration(), test.ShouldEqual, 2.0)
	test.That(t, p.EndOffset(), test.ShouldEqual, 2.0) // 0.5*(0+2)*2
}

func TestOffsetAndSpeedForTimeMatchesEndOffset(t *testing.T) {
	var p SpeedProfile1D
	p.Calculate1DTrajectory(1, 1, 5, 2, 3)
	offset, _ := p.OffsetAndSpeedForTime(p.Duration())
	test.That(t, offset, test.ShouldAlmostEqual, p.EndOffset())
}

func TestCalculateEndPos1DZeroHint(t *testing.T) {
	d, top := CalculateEndPos1D(0, 2, 0, 1, 5)
	test.That(t, d, test.ShouldEqual, 2.0)
	test.That(t, top, test.ShouldEqual, 2.0)
}

func TestOffsetAndSpeedForTimeAtStart(t *testing.T) {
	var p SpeedProfile1D
	p.Calculate1DTrajectory(1, 3, 0, 2, 5)
	offset, speed := p.OffsetAndSpeedForTime(0)
	test.That(t, offset, test.ShouldEqual, 0.0)
	test.That(t, speed, test.ShouldEqual, 1.0)
}
