// Package geometry holds the field dimensions and per-camera calibration
// registry, rebuilt from vision geometry frames and read (never written) by
// the ball filters.
package geometry

import (
	"sync"

	"github.com/golang/geo/r3"
)

// RuleVersion distinguishes field-marking conventions across SSL rule years, mirroring
// the 2014/2018 split original_source/.../tracker.cpp derives from line/arc names.
type RuleVersion int

const (
	// RuleVersionUnknown means no geometry frame has been applied yet.
	RuleVersionUnknown RuleVersion = iota
	RuleVersion2014
	RuleVersion2018
)

// Field is the fully-populated field geometry. A zero Field is not valid for
// downstream consumers; Populated reports whether a geometry frame has been applied.
type Field struct {
	Width, Height       float64
	GoalWidth, GoalDepth float64
	GoalHeight          float64
	GoalWallWidth       float64
	BoundaryWidth       float64
	LineWidth           float64
	DefenseWidth        float64
	DefenseHeight       float64
	DefenseStretch      float64
	DefenseRadius       float64
	CenterCircleRadius  float64
	RefereeWidth        float64
	FreeKickFromDefenseDist    float64
	PenaltyLineFromSpotDist    float64
	PenaltySpotFromFieldLineDist float64
	Rule                RuleVersion
}

// Populated reports whether this Field was built from a real geometry frame.
func (f Field) Populated() bool {
	return f.Rule != RuleVersionUnknown
}

// FieldLine is one line segment from a geometry frame, identified by its SSL-vision
// marking name (e.g. "LeftPenaltyStretch").
type FieldLine struct {
	Name           string
	P1, P2         [2]float64 // millimeters, as received
	ThicknessMM    float64
}

// FieldArc is one circular arc marking from a geometry frame.
type FieldArc struct {
	Name        string
	RadiusMM    float64
	ThicknessMM float64
}

// GeometryFrame is the subset of a vision geometry packet the Field builder needs,
// already split out from whatever wire format the external collaborator parses.
type GeometryFrame struct {
	FieldWidthMM, FieldHeightMM     float64
	GoalWidthMM, GoalDepthMM        float64
	BoundaryWidthMM                 float64
	Lines                           []FieldLine
	Arcs                            []FieldArc
}

// BuildField derives a Field from a geometry frame, following the same
// name-sniffing convention original_source/.../tracker.cpp::updateGeometry uses to
// recover defense-area dimensions and rule version from line/arc names.
func BuildField(g GeometryFrame) Field {
	f := Field{
		Width:                     g.FieldWidthMM / 1000.0,
		Height:                    g.FieldHeightMM / 1000.0,
		GoalWidth:                 g.GoalWidthMM / 1000.0,
		GoalDepth:                 g.GoalDepthMM / 1000.0,
		BoundaryWidth:             g.BoundaryWidthMM / 1000.0,
		GoalHeight:                0.155,
		GoalWallWidth:             0.02,
		FreeKickFromDefenseDist:   0.20,
		PenaltyLineFromSpotDist:   0.40,
	}

	minThickness := -1.0
	is2014 := true
	haveArcRadius := false

	track := func(thickness float64) {
		if minThickness < 0 || thickness < minThickness {
			minThickness = thickness
		}
	}

	for _, line := range g.Lines {
		track(line.ThicknessMM)
		switch line.Name {
		case "LeftPenaltyStretch":
			d := absf(line.P1[1]-line.P2[1]) / 1000.0
			f.DefenseStretch = d
			f.DefenseWidth = d
		case "LeftFieldLeftPenaltyStretch":
			f.DefenseHeight = absf(line.P1[0]-line.P2[0]) / 1000.0
			is2014 = false
		}
	}
	for _, arc := range g.Arcs {
		track(arc.ThicknessMM)
		switch arc.Name {
		case "LeftFieldLeftPenaltyArc":
			is2014 = true
			f.DefenseRadius = arc.RadiusMM / 1000.0
			haveArcRadius = true
		case "CenterCircle":
			f.CenterCircleRadius = arc.RadiusMM / 1000.0
		}
	}
	if minThickness < 0 {
		minThickness = 0
	}
	f.LineWidth = minThickness / 1000.0

	if is2014 {
		f.RefereeWidth = 0.425
		f.PenaltySpotFromFieldLineDist = 1.00
		f.Rule = RuleVersion2014
	} else {
		f.RefereeWidth = 0.40
		f.PenaltySpotFromFieldLineDist = 1.20
		f.Rule = RuleVersion2018
	}
	if !haveArcRadius {
		f.DefenseRadius = f.DefenseHeight
	}
	return f
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// CameraCalibration is one camera's 3-D position and focal length, in field-frame
// meters, as recovered from a geometry frame's derived camera world transform.
type CameraCalibration struct {
	Position    r3.Vector
	FocalLength float64
}

// CameraRegistry is the process-wide (but not a singleton — passed by reference)
// map of camera id to calibration. Written only by the Tracker on geometry frames,
// read by BallFlyFilter and BallCollisionFilter for the lifetime of their owning
// ball hypothesis.
type CameraRegistry struct {
	mu    sync.RWMutex
	byCam map[int]CameraCalibration
}

// NewCameraRegistry returns an empty registry.
func NewCameraRegistry() *CameraRegistry {
	return &CameraRegistry{byCam: make(map[int]CameraCalibration)}
}

// Update adds or overwrites the calibration for a camera id. Raw camera-world
// translation arrives in meters with the vision-to-field axis swap applied by
// the caller (x' = -ty, y' = tx, z' = tz), matching
// original_source/.../tracker.cpp::updateCamera.
func (r *CameraRegistry) Update(cameraID int, calib CameraCalibration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byCam[cameraID] = calib
}

// Get returns the calibration for a camera id, and whether it is known.
func (r *CameraRegistry) Get(cameraID int) (CameraCalibration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byCam[cameraID]
	return c, ok
}

// Has reports whether a camera id has ever been calibrated.
func (r *CameraRegistry) Has(cameraID int) bool {
	_, ok := r.Get(cameraID)
	return ok
}
