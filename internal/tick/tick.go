// Package tick implements the fixed-step simulation loop described in
// spec.md §4.F: one deterministic pass per simulated second, advancing
// every piece of equipment in dependency order and publishing a
// consistent snapshot at the tick boundary.
package tick

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"campussim/internal/campus"
	"campussim/internal/clock"
	"campussim/internal/equipment"
	"campussim/internal/registry"
)

// DefaultQuantum is the default simulated-time step between ticks.
const DefaultQuantum = time.Second

// DefaultMaxCatchup bounds how many ticks a single Run iteration may
// execute back-to-back when simulated time has fallen behind (e.g.
// after a slow GC pause), preventing a runaway catch-up loop.
const DefaultMaxCatchup = 60

// Snapshot is an immutable, point-in-time view of a registry prefix,
// published atomically at each tick boundary so readers never observe a
// partially-advanced tick (spec.md §4.F ordering guarantee, testable
// property 4).
type Snapshot struct {
	SimNow  time.Time
	Entries []registry.Entry
}

// Driver runs the tick loop over one Campus.
type Driver struct {
	Clock    *clock.Clock
	Campus   *campus.Campus
	Reg      *registry.Registry
	Quantum  time.Duration
	MaxCatchup int
	Logger   *slog.Logger

	last     time.Time
	snapshot atomic.Pointer[Snapshot]
	ticks    uint64
}

// New creates a Driver with the documented defaults for quantum and
// catch-up cap.
func New(clk *clock.Clock, c *campus.Campus, reg *registry.Registry, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		Clock:      clk,
		Campus:     c,
		Reg:        reg,
		Quantum:    DefaultQuantum,
		MaxCatchup: DefaultMaxCatchup,
		Logger:     logger,
		last:       clk.Now(),
	}
}

// Run drives the tick loop until ctx is cancelled. It sleeps between
// polls at a fraction of the quantum so wall-clock drift doesn't starve
// the catch-up logic, and is safe to run in its own goroutine.
func (d *Driver) Run(ctx context.Context) {
	pollEvery := d.Quantum / 4
	if pollEvery <= 0 {
		pollEvery = time.Millisecond
	}
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.catchUp()
		}
	}
}

// catchUp runs as many ticks as simulated time has advanced past last,
// capped at MaxCatchup per call.
func (d *Driver) catchUp() {
	now := d.Clock.Now()
	ran := 0
	for now.Sub(d.last) >= d.Quantum && ran < d.MaxCatchup {
		d.last = d.last.Add(d.Quantum)
		d.runOneTick(d.last)
		ran++
		now = d.Clock.Now()
	}
	if ran == d.MaxCatchup {
		d.Logger.Warn("tick: hit max_catchup, simulated time is falling behind", "quantum", d.Quantum)
	}
}

// runOneTick executes one full dependency-ordered pass: expire overdue
// overrides, advance weather, advance every equipment model, then
// publish a fresh snapshot pointer.
func (d *Driver) runOneTick(simNow time.Time) {
	d.Reg.Expire(simNow)
	cond := d.Campus.AdvanceWeather(simNow)

	ctx := &equipment.Context{
		Reg:     d.Reg,
		Weather: cond,
		Params:  d.Campus.Params,
		Now:     simNow,
	}
	d.Campus.AdvanceAll(d.Quantum, ctx)

	d.publishSnapshot(simNow)
	d.ticks++
}

// publishSnapshot takes a full-registry snapshot and atomically
// installs it as the current frozen view, consumed by API handlers that
// need tick-boundary atomicity across multiple points (spec.md §4.F).
func (d *Driver) publishSnapshot(simNow time.Time) {
	entries := d.Reg.Snapshot("")
	d.snapshot.Store(&Snapshot{SimNow: simNow, Entries: entries})
}

// LatestSnapshot returns the most recently published tick-boundary
// snapshot, or ok=false before the first tick has run.
func (d *Driver) LatestSnapshot() (*Snapshot, bool) {
	s := d.snapshot.Load()
	if s == nil {
		return nil, false
	}
	return s, true
}

// Ticks returns the number of ticks executed so far, for diagnostics.
func (d *Driver) Ticks() uint64 {
	return d.ticks
}
