// Package equipment implements the stateful physics+control models for
// every device class in the campus, per spec.md §4.D. Each model reads
// inputs from the registry (including its own overrides where it makes
// physical sense), computes new state under a bounded first-order
// response, and writes exactly the points it owns.
package equipment

import (
	"time"

	"campussim/internal/params"
	"campussim/internal/registry"
	"campussim/internal/weather"
)

// Context is passed to every Advance call. It bundles the registry
// handle, current weather, physics parameters and the simulated "now",
// so equipment models never reach for ambient globals (Design Notes §9).
type Context struct {
	Reg     *registry.Registry
	Weather weather.Conditions
	Params  *params.Parameters
	Now     time.Time
}

// Advancer is the single-operation capability every equipment model
// implements (Design Notes §9: a small capability set instead of deep
// inheritance).
type Advancer interface {
	Advance(dt time.Duration, ctx *Context)
}

// approach is the bounded first-order response used throughout:
// x += (target-x) * min(1, dt/tau). tau is a time constant in seconds;
// dt is the tick duration.
func approach(x, target, tau float64, dt time.Duration) float64 {
	if tau <= 0 {
		return target
	}
	frac := dt.Seconds() / tau
	if frac > 1 {
		frac = 1
	}
	if frac < 0 {
		frac = 0
	}
	return x + (target-x)*frac
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// point is a small helper embedded by every equipment model: it owns a
// path prefix and a registry handle, and centralizes the clamp-and-fault
// pattern shared by every model (spec.md §4.D: equipment never fails
// loudly; out-of-range inputs clamp and set a fault bit).
type point struct {
	reg    *registry.Registry
	owner  string
	prefix string
}

func newPoint(reg *registry.Registry, owner, prefix string) point {
	return point{reg: reg, owner: owner, prefix: prefix}
}

func (p point) path(name string) string {
	return p.prefix + "." + name
}

func (p point) register(name string, kind registry.Kind, units string, writable bool) {
	p.reg.Register(registry.Metadata{
		Path:     p.path(name),
		Kind:     kind,
		Units:    units,
		Writable: writable,
		Label:    name,
	}, p.owner)
}

func (p point) write(name string, v float64) {
	_ = p.reg.WritePresent(p.owner, p.path(name), v)
}

// read returns the effective value of one of this equipment's own
// points (e.g. a setpoint an operator may have overridden), or the
// fallback if the point is unknown.
func (p point) read(name string, fallback float64) float64 {
	v, err := p.reg.Read(p.path(name))
	if err != nil {
		return fallback
	}
	return v.Effective
}

// clampFault writes v clamped to [lo,hi] to name, and sets the fault bit
// if clamping was necessary.
func (p point) clampFault(name string, v, lo, hi float64) float64 {
	c := clamp(v, lo, hi)
	p.write(name, c)
	if c != v {
		p.write("fault", 1)
	}
	return c
}
