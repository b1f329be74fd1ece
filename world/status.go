// Package world holds the Processor's externally-visible per-tick snapshots:
// a current worldstate and a predicted one published every tick.
package world

import (
	"go.robocupssl.dev/racore/clock"
	"go.robocupssl.dev/racore/referee"
	"go.robocupssl.dev/racore/tracking"
)

// Status is one published snapshot: the Tracker's world state at a point in
// time, overlaid with the currently merged referee state.
type Status struct {
	Time    clock.Time
	World   tracking.WorldState
	Referee referee.State
	HaveReferee bool

	// IsBlue and FlipSides mirror the Processor's current team-color and
	// field-side assignment, set via the command surface, so a consumer
	// doesn't need a second side channel to know which color/half this
	// status was produced for.
	IsBlue    bool
	FlipSides bool
}

// Timing is the per-tick debug status published alongside each world status.
type Timing struct {
	Tick         clock.Time
	TrackingTime clock.Time // wall-clock spent on tracking this tick, in ns
	TotalTime    clock.Time // wall-clock spent on the whole tick, in ns
}
