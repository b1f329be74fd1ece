// Package clock implements the virtual time source every periodic component
// in this module derives its deadlines from.
package clock

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Time is a monotone nanosecond timestamp on a Clock. It never decreases for
// a given Clock.
type Time int64

// Duration returns the signed difference t - other as a time.Duration.
func (t Time) Duration(other Time) time.Duration {
	return time.Duration(t - other)
}

// ScaleChangeFunc is invoked whenever the scaling factor changes. Periodic timers
// observe it to re-arm at the new effective period.
type ScaleChangeFunc func(scaling float64)

// Clock is the process-wide virtual time source. It is never a package-level
// singleton; callers hold a borrowed reference instead.
type Clock struct {
	mu sync.Mutex

	real clock.Clock

	// baseWall/baseVirtual anchor the piecewise-linear map from wall time to
	// virtual time; rebased every time the scaling factor changes so the
	// virtual clock stays continuous across rate changes.
	baseWall    time.Time
	baseVirtual int64 // ns
	scaling     float64

	onScaleChange []ScaleChangeFunc
}

// New returns a Clock backed by the real wall clock, running at real-time speed.
func New() *Clock {
	return newWithSource(clock.New())
}

// NewMock returns a Clock backed by a benbjohnson/clock.Mock, for deterministic
// tests. Advance time on the returned Clock with Mock().
func NewMock() *Clock {
	return newWithSource(clock.NewMock())
}

func newWithSource(src clock.Clock) *Clock {
	return &Clock{
		real:        src,
		baseWall:    src.Now(),
		baseVirtual: 0,
		scaling:     1,
	}
}

// Mock returns the underlying mock clock, or nil if this Clock was built with New().
func (c *Clock) Mock() *clock.Mock {
	m, _ := c.real.(*clock.Mock)
	return m
}

// Now returns the current virtual time in nanoseconds. Monotone for a fixed scaling
// factor; still monotone across scaling changes since rebasing preserves continuity.
func (c *Clock) Now() Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowLocked()
}

func (c *Clock) nowLocked() Time {
	elapsed := c.real.Now().Sub(c.baseWall)
	return Time(c.baseVirtual + int64(float64(elapsed)*c.scaling))
}

// SystemTime returns the real (unscaled) wall-clock time in nanoseconds since the
// Unix epoch, for components that must timestamp against the outside world
// (e.g. system-delay bookkeeping) rather than the scaled simulation time.
func (c *Clock) SystemTime() Time {
	return Time(c.real.Now().UnixNano())
}

// Scaling returns the current scaling factor: 0 means paused, 1 means real-time.
func (c *Clock) Scaling() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scaling
}

// SetScaling rebases the virtual clock at the current instant and changes the rate
// at which virtual time advances relative to wall time going forward. Negative
// values are rejected.
func (c *Clock) SetScaling(scaling float64) error {
	if scaling < 0 {
		return errors.Errorf("clock: negative scaling factor %v", scaling)
	}
	c.mu.Lock()
	now := c.nowLocked()
	c.baseWall = c.real.Now()
	c.baseVirtual = int64(now)
	c.scaling = scaling
	callbacks := append([]ScaleChangeFunc(nil), c.onScaleChange...)
	c.mu.Unlock()

	for _, cb := range callbacks {
		cb(scaling)
	}
	return nil
}

// OnScaleChange registers a callback invoked synchronously from SetScaling whenever
// the scaling factor changes. Periodic timers use this to re-arm themselves.
func (c *Clock) OnScaleChange(fn ScaleChangeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onScaleChange = append(c.onScaleChange, fn)
}

// After returns a channel that fires once the given virtual duration has elapsed,
// measured against the real clock at the current scaling factor. A zero or paused
// (scaling == 0) clock never fires; callers needing a guaranteed-fire timer should
// use Ticker, which re-arms on scale change.
func (c *Clock) After(d time.Duration) <-chan time.Time {
	scaling := c.Scaling()
	if scaling <= 0 {
		ch := make(chan time.Time)
		return ch
	}
	real := time.Duration(float64(d) / scaling)
	return c.real.After(real)
}

// MinTickInterval is the floor below which a re-armed periodic timer is
// clamped.
const MinTickInterval = time.Millisecond

// Ticker is a periodic timer whose real-world firing interval is
// baseInterval/scaling, clamped to MinTickInterval, and which re-arms itself
// whenever the Clock's scaling factor changes.
type Ticker struct {
	mu           sync.Mutex
	c            *Clock
	baseInterval time.Duration
	timer        *clock.Timer
	ch           chan time.Time
	stopped      bool
}

// NewTicker creates a Ticker that fires roughly every baseInterval of virtual time.
func (c *Clock) NewTicker(baseInterval time.Duration) *Ticker {
	t := &Ticker{
		c:            c,
		baseInterval: baseInterval,
		ch:           make(chan time.Time, 1),
	}
	t.arm()
	c.OnScaleChange(func(float64) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.stopped {
			return
		}
		if t.timer != nil {
			t.timer.Stop()
		}
		t.armLocked()
	})
	return t
}

func (t *Ticker) arm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armLocked()
}

func (t *Ticker) armLocked() {
	interval := t.realInterval()
	t.timer = t.c.real.AfterFunc(interval, t.fire)
}

func (t *Ticker) realInterval() time.Duration {
	scaling := t.c.Scaling()
	if scaling <= 0 {
		// paused: arm far in the future, scale changes will re-arm immediately
		return 365 * 24 * time.Hour
	}
	interval := time.Duration(float64(t.baseInterval) / scaling)
	if interval < MinTickInterval {
		interval = MinTickInterval
	}
	return interval
}

func (t *Ticker) fire() {
	select {
	case t.ch <- t.c.real.Now():
	default:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.armLocked()
}

// C returns the channel on which tick times are delivered.
func (t *Ticker) C() <-chan time.Time {
	return t.ch
}

// Stop disarms the ticker. It is safe to call multiple times.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
}
