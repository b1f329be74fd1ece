// Package referee holds the merge rule for the external referee packet
// stream: the Processor treats referee state as an input to copy into the
// world state, not something this module parses off the wire.
package referee

import (
	"github.com/golang/geo/r2"

	"go.robocupssl.dev/racore/clock"
)

// Command is the current referee command, opaque to this package beyond
// equality — the Processor and strategy layer interpret its meaning.
type Command int

// Stage is the current match stage (halves, breaks, overtime, penalty shootout).
type Stage int

// TeamInfo is one team's roster/score bookkeeping, refreshed on every packet
// regardless of whether command/stage changed.
type TeamInfo struct {
	Name           string
	Score          int
	RedCards       int
	YellowCards    int
	Timeouts       int
	TimeoutTimeLeft clock.Time
	Goalkeeper     int
}

// Packet is one parsed referee packet: command, stage, team info, a command
// counter, and a timestamp.
type Packet struct {
	Command        Command
	Stage          Stage
	Yellow         TeamInfo
	Blue           TeamInfo
	CommandCounter uint32
	Timestamp      clock.Time
}

// State is the Merger's currently held referee state, read by the Processor
// once per tick to copy into the world state.
type State struct {
	Command Command
	Stage   Stage
	Yellow  TeamInfo
	Blue    TeamInfo
	Timestamp clock.Time
}

// Merger holds the last applied referee packet and exposes an idempotent
// Apply: a packet whose command/stage/commandCounter all equal the stored
// ones only refreshes team info, never bumps the generation counter the
// Processor uses to detect "referee state changed".
type Merger struct {
	state      State
	haveState  bool
	commandCounter uint32
	generation uint64
}

// NewMerger returns an empty Merger.
func NewMerger() *Merger {
	return &Merger{}
}

// Apply merges one referee packet, returning the generation counter after the
// merge. The counter only advances when command, stage, or commandCounter
// actually change; applying the same triple repeatedly is a no-op beyond
// refreshing TeamInfo.
func (m *Merger) Apply(p Packet) uint64 {
	unchanged := m.haveState &&
		p.Command == m.state.Command &&
		p.Stage == m.state.Stage &&
		p.CommandCounter == m.commandCounter

	m.state.Yellow = p.Yellow
	m.state.Blue = p.Blue
	m.state.Timestamp = p.Timestamp

	if unchanged {
		return m.generation
	}

	m.state.Command = p.Command
	m.state.Stage = p.Stage
	m.commandCounter = p.CommandCounter
	m.haveState = true
	m.generation++
	return m.generation
}

// State returns the currently merged referee state and whether any packet has
// ever been applied.
func (m *Merger) State() (State, bool) {
	return m.state, m.haveState
}

// Generation returns the current merge generation, incremented only on an
// actual command/stage/commandCounter change.
func (m *Merger) Generation() uint64 {
	return m.generation
}

// BallPlacementPosition reports the ball-placement spot a foul implies. The
// source this is ported from only carries this under a protocol extension
// not present here; rather than guess a rule, this returns ok=false until a
// protocol version that actually carries it is wired in.
func (m *Merger) BallPlacementPosition() (r2.Point, bool) {
	return r2.Point{}, false
}
