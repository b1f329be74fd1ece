// Package radio holds the outbound per-robot command and inbound
// telemetry-response records exchanged with the motion controller / radio
// link.
package radio

import "go.robocupssl.dev/racore/clock"

// KickStyle selects how a kick command is executed.
type KickStyle int

const (
	KickNone KickStyle = iota
	KickStraight
	KickChip
)

// Command is one robot's low-level command for a single tick. Generation+ID
// is unique within a tick.
type Command struct {
	Generation int
	ID         int
	IsBlue     bool

	VS, VF, Omega float64 // commanded strafe/forward/angular velocity

	Kick      KickStyle
	KickPower float64
	Dribbler  float64 // 0..1

	ForceKick bool
	Halt      bool
}

// Response is one robot's telemetry reply to a previously issued Command, used by
// the SpeedTracker to derive measured local speed feedback.
type Response struct {
	ID        int
	IsBlue    bool
	Time      clock.Time
	VS, VF, Omega float64 // measured local speed
}

// Batch is everything dispatched to the radio link in a single tick.
type Batch struct {
	Time     clock.Time
	Commands []Command
}

// Converter turns a tick's outgoing commands into whatever bytes the radio
// link actually transmits. No concrete wire codec lives in this module; a
// transport-specific implementation (protobuf, a team's own binary framing)
// is wired in by the binary that embeds the Processor.
type Converter interface {
	Convert(cmds []Command) ([]byte, error)
}
