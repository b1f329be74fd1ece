// Package processor implements the 100 Hz tick driver tying tracking, referee
// merging, per-robot command evaluation, and radio dispatch together.
package processor

import (
	"context"
	"time"

	"github.com/edaniels/golog"

	"go.robocupssl.dev/racore/clock"
	"go.robocupssl.dev/racore/control"
	"go.robocupssl.dev/racore/radio"
	"go.robocupssl.dev/racore/referee"
	"go.robocupssl.dev/racore/tracking"
	"go.robocupssl.dev/racore/utils"
	"go.robocupssl.dev/racore/vision"
	"go.robocupssl.dev/racore/world"
)

// DefaultTickPeriod is the nominal 100 Hz tick period this driver runs at.
const DefaultTickPeriod = 10 * time.Millisecond

// TrackingCommand toggles the Tracker's area-of-interest filtering, its
// assumed processing-delay compensation, and lets the caller force a reset.
type TrackingCommand struct {
	AOIEnable     *bool
	AOIRect       *tracking.AOIRect
	SystemDelayNs *int64
	Reset         *bool
}

// RefereeCommand optionally injects a referee packet synthetically
// (autoref/remote-control path). Active and Autoref are accepted but not read:
// every received referee packet is applied regardless of them.
type RefereeCommand struct {
	Active  *bool
	Packet  *referee.Packet
	Autoref *bool
}

// Command is the tagged command-surface message accepted on CommandIn: every
// field is independently optional so a partial update can distinguish
// "not set" from "set to false", the same pattern this repo's attribute-map
// config type uses elsewhere.
type Command struct {
	SetTeamBlue       *bool
	SimulatorEnable   *bool
	FlipSides         *bool
	Tracking          *TrackingCommand
	Referee           *RefereeCommand
	Control           []radio.Command // manual overrides, applied this tick
	TransceiverEnable *bool
}

type robotKey struct {
	id     int
	isBlue bool
}

// Processor is the fixed-frequency driver: on every tick it runs the Tracker
// and SpeedTracker, merges referee state, evaluates one Command per tracked
// robot, and dispatches radio commands, publishing a current-world status, a
// predicted +1-tick world status, and a timing debug status.
type Processor struct {
	logger golog.Logger
	clk    *clock.Clock

	tracker      *tracking.Tracker
	speedTracker *tracking.SpeedTracker
	merger       *referee.Merger

	evaluatorCfg control.EvaluatorConfig
	evaluators   map[robotKey]*control.Evaluator

	strategyTargets map[robotKey]control.Target
	manualOverrides map[robotKey]control.Target

	transceiverEnabled bool
	systemDelay        clock.Time

	// isBlue, simulatorEnabled and flipSides mirror the last applied
	// command-surface values; changing isBlue or simulatorEnabled discards
	// all tracker state, per the reset-on-roster/simulator-change rule.
	isBlue           bool
	simulatorEnabled bool
	flipSides        bool

	period time.Duration

	visionIn   chan vision.Packet
	radioRespIn chan radio.Response
	refereeIn  chan referee.Packet
	commandIn  chan Command

	statusOut chan world.Status
	timingOut chan world.Timing
	radioOut  chan radio.Batch

	workers utils.StoppableWorkers
}

// New constructs a Processor. Call Start to begin ticking.
func New(logger golog.Logger, clk *clock.Clock, evaluatorCfg control.EvaluatorConfig) *Processor {
	return &Processor{
		logger:       logger,
		clk:          clk,
		tracker:      tracking.NewTracker(logger),
		speedTracker: tracking.NewSpeedTracker(),
		merger:       referee.NewMerger(),
		evaluatorCfg: evaluatorCfg,
		evaluators:   make(map[robotKey]*control.Evaluator),

		strategyTargets: make(map[robotKey]control.Target),
		manualOverrides: make(map[robotKey]control.Target),

		period: DefaultTickPeriod,

		visionIn:    make(chan vision.Packet, 256),
		radioRespIn: make(chan radio.Response, 256),
		refereeIn:   make(chan referee.Packet, 16),
		commandIn:   make(chan Command, 16),

		statusOut: make(chan world.Status, 16),
		timingOut: make(chan world.Timing, 16),
		radioOut:  make(chan radio.Batch, 16),
	}
}

// VisionIn returns the channel vision packets are submitted on.
func (p *Processor) VisionIn() chan<- vision.Packet { return p.visionIn }

// RadioResponseIn returns the channel radio telemetry responses are submitted on.
func (p *Processor) RadioResponseIn() chan<- radio.Response { return p.radioRespIn }

// RefereeIn returns the channel referee packets are submitted on.
func (p *Processor) RefereeIn() chan<- referee.Packet { return p.refereeIn }

// CommandIn returns the channel command-surface updates are submitted on.
func (p *Processor) CommandIn() chan<- Command { return p.commandIn }

// StatusOut returns the channel current/predicted world statuses are published on.
func (p *Processor) StatusOut() <-chan world.Status { return p.statusOut }

// TimingOut returns the channel per-tick timing debug statuses are published on.
func (p *Processor) TimingOut() <-chan world.Timing { return p.timingOut }

// RadioOut returns the channel dispatched radio command batches are published on.
func (p *Processor) RadioOut() <-chan radio.Batch { return p.radioOut }

// SetStrategyTarget records the strategy layer's requested target for one
// robot, merged below manual overrides each tick.
func (p *Processor) SetStrategyTarget(id int, isBlue bool, target control.Target) {
	p.strategyTargets[robotKey{id, isBlue}] = target
}

// SetManualOverride records an operator's manual override for one robot, which
// always takes priority over the strategy's command.
func (p *Processor) SetManualOverride(id int, isBlue bool, target control.Target) {
	p.manualOverrides[robotKey{id, isBlue}] = target
}

// ClearManualOverride removes a previously set manual override.
func (p *Processor) ClearManualOverride(id int, isBlue bool) {
	delete(p.manualOverrides, robotKey{id, isBlue})
}

// Start begins the tick loop as a background goroutine. Stop tears it down,
// waiting for the in-flight tick to finish publishing before returning.
func (p *Processor) Start() {
	p.workers = utils.NewStoppableWorkers(p.run)
}

// Stop cancels the tick loop and waits for it to exit.
func (p *Processor) Stop() {
	if p.workers != nil {
		p.workers.Stop()
	}
}

func (p *Processor) run(ctx context.Context) {
	ticker := p.clk.NewTicker(p.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			p.drainInputs()
			p.tick(p.clk.Now())
		}
	}
}

func (p *Processor) drainInputs() {
	for {
		select {
		case pkt := <-p.visionIn:
			p.applyVisionPacket(pkt)
		case resp := <-p.radioRespIn:
			p.speedTracker.AddResponse(resp)
		case pkt := <-p.refereeIn:
			p.merger.Apply(pkt)
		case cmd := <-p.commandIn:
			p.applyCommand(cmd)
		default:
			return
		}
	}
}

func (p *Processor) applyVisionPacket(pkt vision.Packet) {
	if pkt.Geometry != nil {
		p.tracker.UpdateGeometry(*pkt.Geometry)
	}
	if pkt.Detection != nil {
		delay := pkt.Detection.ProcessingTime()
		sourceTime := pkt.ReceiveTime - delay - p.systemDelay
		for _, b := range pkt.Detection.Balls {
			p.tracker.AddBallDetection(pkt.Detection.CameraID, b, sourceTime)
		}
		for _, r := range pkt.Detection.YellowRobots {
			p.tracker.AddRobotDetection(pkt.Detection.CameraID, r, false, sourceTime)
		}
		for _, r := range pkt.Detection.BlueRobots {
			p.tracker.AddRobotDetection(pkt.Detection.CameraID, r, true, sourceTime)
		}
	}
}

// resetTrackers discards all tracker/speed-tracker filter state, used on a
// team-roster change, a simulator-enable flip, or an explicit reset command.
func (p *Processor) resetTrackers() {
	p.tracker.Reset(p.clk.Now())
	p.speedTracker.Reset()
}

func (p *Processor) applyCommand(cmd Command) {
	if cmd.SetTeamBlue != nil && *cmd.SetTeamBlue != p.isBlue {
		p.isBlue = *cmd.SetTeamBlue
		p.resetTrackers()
	}
	if cmd.SimulatorEnable != nil && *cmd.SimulatorEnable != p.simulatorEnabled {
		p.simulatorEnabled = *cmd.SimulatorEnable
		p.resetTrackers()
	}
	if cmd.FlipSides != nil {
		p.flipSides = *cmd.FlipSides
	}
	if cmd.Tracking != nil {
		if cmd.Tracking.Reset != nil && *cmd.Tracking.Reset {
			p.resetTrackers()
		}
		if cmd.Tracking.SystemDelayNs != nil {
			p.systemDelay = clock.Time(*cmd.Tracking.SystemDelayNs)
		}
		if cmd.Tracking.AOIEnable != nil {
			if *cmd.Tracking.AOIEnable {
				p.tracker.SetAOI(cmd.Tracking.AOIRect)
			} else {
				p.tracker.SetAOI(nil)
			}
		} else if cmd.Tracking.AOIRect != nil {
			p.tracker.SetAOI(cmd.Tracking.AOIRect)
		}
	}
	if cmd.Referee != nil && cmd.Referee.Packet != nil {
		p.merger.Apply(*cmd.Referee.Packet)
	}
	if cmd.TransceiverEnable != nil {
		p.transceiverEnabled = *cmd.TransceiverEnable
	}
	for _, manual := range cmd.Control {
		p.manualOverrides[robotKey{manual.ID, manual.IsBlue}] = control.Target{
			VS: manual.VS, VF: manual.VF, Omega: manual.Omega,
			Kick: manual.Kick, KickPower: manual.KickPower,
			Dribbler: manual.Dribbler, ForceKick: manual.ForceKick, Halt: manual.Halt,
		}
	}
}

func (p *Processor) evaluatorFor(key robotKey) *control.Evaluator {
	ev, ok := p.evaluators[key]
	if !ok {
		ev = control.NewEvaluator(key.id, key.isBlue, p.evaluatorCfg, p.logger)
		p.evaluators[key] = ev
	}
	return ev
}

func (p *Processor) targetFor(key robotKey) control.Target {
	if t, ok := p.manualOverrides[key]; ok {
		return t
	}
	if t, ok := p.strategyTargets[key]; ok {
		return t
	}
	return control.Target{Halt: true}
}

// tick runs the six ordered steps for the tick starting at now.
func (p *Processor) tick(now clock.Time) {
	dtSeconds := p.period.Seconds()
	horizon := now + clock.Time(p.period.Nanoseconds())
	start := p.clk.SystemTime()

	// 1. advance tracking.
	p.tracker.Process(now)
	p.speedTracker.Process(now)
	trackingDone := p.clk.SystemTime()

	// 2. current world status.
	currentWorld := p.tracker.WorldState(now)
	refState, haveRef := p.merger.State()
	p.publishStatus(world.Status{
		Time: now, World: currentWorld, Referee: refState, HaveReferee: haveRef,
		IsBlue: p.isBlue, FlipSides: p.flipSides,
	})

	// 3. evaluate a command per known robot.
	var commands []radio.Command
	for _, r := range currentWorld.Yellow {
		commands = append(commands, p.evaluateRobot(r.ID, false, dtSeconds))
	}
	for _, r := range currentWorld.Blue {
		commands = append(commands, p.evaluateRobot(r.ID, true, dtSeconds))
	}

	// 4. dispatch, if enabled, and feed commands back for next-tick prediction.
	if p.transceiverEnabled && len(commands) > 0 {
		for _, c := range commands {
			p.tracker.AddRadioCommand(c, now)
		}
		select {
		case p.radioOut <- radio.Batch{Time: now, Commands: commands}:
		default:
			p.logger.Debugw("dropping radio batch, consumer too slow", "time", now)
		}
	}

	// 5. predicted world at +1 tick.
	predictedWorld := p.tracker.WorldState(horizon)
	p.publishStatus(world.Status{
		Time: horizon, World: predictedWorld, Referee: refState, HaveReferee: haveRef,
		IsBlue: p.isBlue, FlipSides: p.flipSides,
	})

	// 6. timing debug status.
	select {
	case p.timingOut <- world.Timing{Tick: now, TrackingTime: trackingDone - start, TotalTime: p.clk.SystemTime() - start}:
	default:
	}
}

func (p *Processor) evaluateRobot(id int, isBlue bool, dtSeconds float64) radio.Command {
	key := robotKey{id, isBlue}
	target := p.targetFor(key)
	measured, _ := p.speedTracker.MeasuredFor(id, isBlue)
	ev := p.evaluatorFor(key)
	return ev.Next(target, control.Measured(measured), dtSeconds)
}

func (p *Processor) publishStatus(s world.Status) {
	select {
	case p.statusOut <- s:
	default:
		p.logger.Debugw("dropping world status, consumer too slow", "time", s.Time)
	}
}
