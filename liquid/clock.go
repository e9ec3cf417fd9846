package liquid

import (
	"time"
)

// Clock is the time source the pipeline reads.
// Time is measured from an arbitrary origin, like the global timer
// of an ebiten game that only advances on ticks.
type Clock interface {
	Now() time.Duration
}

// TickClock advances by a fixed delta every tick.
type TickClock struct {
	Delta   time.Duration
	current time.Duration
}

func NewTickClock(tps int) *TickClock {
	if tps <= 0 {
		tps = 60
	}
	return &TickClock{
		Delta: time.Second / time.Duration(tps),
	}
}

func (c *TickClock) Tick() {
	c.current += c.Delta
}

func (c *TickClock) Now() time.Duration {
	return c.current
}

// ManualClock is set explicitly. Handy for feeding synthetic traces.
type ManualClock struct {
	T time.Duration
}

func (c *ManualClock) Now() time.Duration {
	return c.T
}

func (c *ManualClock) Advance(d time.Duration) {
	c.T += d
}

// Timer for profiling.
// Usage :
//
//	timer := NewProfTimer("simulate")
//	backend.Simulate(...)
//	logger.Debug(timer.Name, zap.Duration("took", timer.Elapsed()))
type ProfTimer struct {
	Start time.Time
	Name  string
}

func NewProfTimer(name string) ProfTimer {
	return ProfTimer{
		Start: time.Now(),
		Name:  name,
	}
}

func (p ProfTimer) Elapsed() time.Duration {
	return time.Since(p.Start)
}
