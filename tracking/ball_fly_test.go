package tracking

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.robocupssl.dev/racore/clock"
	"go.robocupssl.dev/racore/geometry"
)

// areaForHeight back-solves the AreaPixels value unprojectHeight would need to
// see in order to report the given height, for a fixed camera and ground
// distance. The round trip holds only while the computed ratio is positive;
// otherwise the returned area unprojects to a different height.
func areaForHeight(focalLength, camZ, groundDist, height float64) float64 {
	scale := 1 - height/camZ
	distInferred := scale * groundDist
	ratio := distInferred*1000/focalLength - 1
	sqrtAreaOverPi := flyAssumedBallRadius / ratio
	return math.Pi * sqrtAreaOverPi * sqrtAreaOverPi
}

// A chip kick should activate the fly hypothesis within a handful of frames
// and reconstruct a touchdown point consistent with simple projectile motion.
func TestBallFlyChipKickTouchdown(t *testing.T) {
	cameras := geometry.NewCameraRegistry()
	const camZ, focalLength = 5.0, 400.0
	cameras.Update(0, geometry.CameraCalibration{Position: r3.Vector{X: 0, Y: 0, Z: camZ}, FocalLength: focalLength})

	f := NewBallFlyFilter(cameras)

	const vx = 2.0  // m/s ground speed
	const dt = 0.5  // seconds between the first and activating sample
	const steps = 4 // 4 more samples after the launch frame (5 total)
	const stepDt = dt / steps

	// launch frame: directly under the camera, so its ground distance (and
	// therefore its unprojected height) is exactly zero.
	f.AddDetection(FlyDetection{Pos: r2.Point{X: 0, Y: 0}, AreaPixels: 1.0, CameraID: 0, Time: 0})
	for i := 1; i <= steps; i++ {
		tt := clock.Time(float64(i) * stepDt * 1e9)
		x := vx * float64(i) * stepDt
		height := 0.5
		if i == steps {
			height = 1.0
		}
		area := areaForHeight(focalLength, camZ, x, height)
		f.AddDetection(FlyDetection{Pos: r2.Point{X: x, Y: 0}, AreaPixels: area, CameraID: 0, Time: tt})
	}

	test.That(t, f.IsActive(), test.ShouldBeTrue)

	const zSpeed = (1.0 + 9.81*dt*dt/2) / dt
	const flightDuration = 2 * zSpeed / 9.81
	wantX := vx * flightDuration

	pred := f.Predict(clock.Time(flightDuration * 1e9))
	test.That(t, pred.Pos.X, test.ShouldAlmostEqual, wantX, 0.1)
	test.That(t, pred.Pos.Z, test.ShouldAlmostEqual, 0.0, 0.05)
}

