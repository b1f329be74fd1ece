// Package vision holds the detection records handed from the (external) wire
// parser to the tracking layer each frame. Detection records are transient:
// they are not retained past the tick that consumed them.
package vision

import "go.robocupssl.dev/racore/clock"

// BallDetection is one camera's sighting of the ball in a single vision frame.
// Position is in meters but still in the SSL-vision axes; the Tracker applies
// the axis swap (field x = -Y, field y = X).
type BallDetection struct {
	X, Y         float64 // meters, SSL-vision axes (pre axis-swap)
	CameraID     int
	SourceTime   clock.Time
	AreaPixels   float64 // per-frame detection area, used by the fly filter's area fallback
}

// RobotDetection is one camera's sighting of a single robot.
type RobotDetection struct {
	ID          int
	X, Y        float64
	Orientation float64 // radians, SSL-vision convention (pre axis-swap)
	CameraID    int
	SourceTime  clock.Time
}

// DetectionFrame is the parsed body of one vision wrapper packet's detection
// message: zero or more ball and robot sightings from one camera, at one instant.
type DetectionFrame struct {
	CameraID       int
	CaptureTimeSec float64
	SentTimeSec    float64
	Balls          []BallDetection
	YellowRobots   []RobotDetection
	BlueRobots     []RobotDetection
}

// ProcessingTime is the vision pipeline's own processing delay for this
// frame, derived as SentTime - CaptureTime, used by the Tracker to recover
// the true source time of a detection.
func (f DetectionFrame) ProcessingTime() clock.Time {
	return clock.Time((f.SentTimeSec - f.CaptureTimeSec) * 1e9)
}

// Packet is a parsed vision wrapper packet: an optional geometry update and/or an
// optional detection frame, queued on the Processor's vision channel and drained
// at the next tick.
type Packet struct {
	Geometry  *GeometryUpdate
	Detection *DetectionFrame
	// ReceiveTime is when the packet was received, in virtual time.
	ReceiveTime clock.Time
}

// GeometryUpdate carries field geometry and camera calibration, parsed from a
// wrapper packet's geometry sub-message.
type GeometryUpdate struct {
	FieldWidthMM, FieldHeightMM float64
	GoalWidthMM, GoalDepthMM    float64
	BoundaryWidthMM             float64
	Lines                       []GeometryLine
	Arcs                        []GeometryArc
	Cameras                     []CameraCalibrationUpdate
}

// GeometryLine mirrors geometry.FieldLine at the wire boundary.
type GeometryLine struct {
	Name        string
	P1, P2      [2]float64
	ThicknessMM float64
}

// GeometryArc mirrors geometry.FieldArc at the wire boundary.
type GeometryArc struct {
	Name        string
	RadiusMM    float64
	ThicknessMM float64
}

// CameraCalibrationUpdate is one camera's derived world transform from a geometry
// frame, in the raw SSL-vision axes (millimeters, un-swapped).
type CameraCalibrationUpdate struct {
	CameraID                               int
	DerivedWorldTXmm, DerivedWorldTYmm, DerivedWorldTZmm float64
	HasDerivedWorld                        bool
	FocalLength                            float64
}
