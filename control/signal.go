// Package control implements the per-robot Command Evaluator: a small fixed
// pipeline of feedforward gain, PID feedback and slew-rate limiting that
// turns a strategy's desired local-frame velocity into a radio.Command, run
// once per robot per tick by the Processor. There is no runtime block graph
// here: the pipeline shape is fixed at compile time and the blocks are
// called directly, unlike the general-purpose, config-driven control loop
// this package's blocks are adapted from.
package control

// Signal is a single named scalar value passed between blocks within one tick.
// Blocks are single-input/single-output in this pipeline, so Signal carries no
// dimension or history, unlike the generic multi-dimensional signal it is adapted
// from.
type Signal struct {
	name  string
	value float64
}

func makeSignal(name string, value float64) Signal {
	return Signal{name: name, value: value}
}

// Value returns the signal's scalar value.
func (s Signal) Value() float64 { return s.value }

// Name returns the signal's originating block name.
func (s Signal) Name() string { return s.name }
