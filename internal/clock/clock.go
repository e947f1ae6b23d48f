// Package clock produces the monotonically increasing simulated time that
// drives the rest of BASim, at a configurable speed relative to wall time.
package clock

import (
	"sync"
	"time"
)

// Clock tracks simulated time as a function of wall time and speed.
// sim_now() = start_sim + (wall_now - start_wall) * speed. SetSpeed
// rebases start_wall/start_sim so sim_now stays continuous across a
// speed change.
type Clock struct {
	mu        sync.RWMutex
	startWall time.Time
	startSim  time.Time
	speed     float64
	nowFn     func() time.Time
}

// New creates a Clock seeded at simStart, ticking at the given speed
// (simulated seconds per real second).
func New(simStart time.Time, speed float64) *Clock {
	return NewWithNowFunc(simStart, speed, time.Now)
}

// NewWithNowFunc is New with an injectable wall-clock source, for tests.
func NewWithNowFunc(simStart time.Time, speed float64, nowFn func() time.Time) *Clock {
	return &Clock{
		startWall: nowFn(),
		startSim:  simStart,
		speed:     speed,
		nowFn:     nowFn,
	}
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now()
}

func (c *Clock) now() time.Time {
	elapsed := c.nowFn().Sub(c.startWall)
	return c.startSim.Add(time.Duration(float64(elapsed) * c.speed))
}

// Speed returns the current simulated-seconds-per-real-second multiplier.
func (c *Clock) Speed() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.speed
}

// SetSpeed changes the speed multiplier, rebasing so Now() is continuous.
func (c *Clock) SetSpeed(speed float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startSim = c.now()
	c.startWall = c.nowFn()
	c.speed = speed
}
