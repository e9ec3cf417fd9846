package liquid

import (
	"time"
)

// PointerState is what the simulation reads each frame.
// Positions are in field space: 0..1 on both axes, y pointing up.
type PointerState struct {
	Pos    FPoint
	Prev   FPoint
	Moving bool
}

// PointerTracker turns raw pointer positions into PointerState.
//
// Update is meant to be called whenever a pointer event arrives,
// which may happen at a different rate than frames.
// It only writes plain state and never touches the field.
type PointerTracker struct {
	Quiescence time.Duration

	bounds FRectangle

	pos  FPoint
	prev FPoint

	hasInput    bool
	movingUntil time.Duration
}

func NewPointerTracker(quiescence time.Duration) *PointerTracker {
	return &PointerTracker{
		Quiescence: quiescence,
	}
}

// SetBounds sets the target surface rectangle in raw coordinates.
func (pt *PointerTracker) SetBounds(bounds FRectangle) {
	pt.bounds = bounds
}

func (pt *PointerTracker) Bounds() FRectangle {
	return pt.bounds
}

// Normalize maps a raw position into field space.
// ok is false when raw is outside the target surface.
func (pt *PointerTracker) Normalize(raw FPoint) (FPoint, bool) {
	if pt.bounds.Empty() || !raw.In(pt.bounds) {
		return FPoint{}, false
	}

	x := (raw.X - pt.bounds.Min.X) / pt.bounds.Dx()
	y := 1 - (raw.Y-pt.bounds.Min.Y)/pt.bounds.Dy()

	return FPt(x, y), true
}

// Update records a pointer event at time now.
// Events outside the surface are dropped and false is returned.
func (pt *PointerTracker) Update(raw FPoint, now time.Duration) bool {
	norm, ok := pt.Normalize(raw)
	if !ok {
		return false
	}

	if pt.hasInput {
		pt.prev = pt.pos
	} else {
		// first event, nothing to connect to yet
		pt.prev = norm
		pt.hasInput = true
	}
	pt.pos = norm

	pt.movingUntil = now + pt.Quiescence

	return true
}

// HasInput reports whether an event was accepted since the last Reset.
func (pt *PointerTracker) HasInput() bool {
	return pt.hasInput
}

func (pt *PointerTracker) Snapshot(now time.Duration) PointerState {
	return PointerState{
		Pos:    pt.pos,
		Prev:   pt.prev,
		Moving: pt.hasInput && now < pt.movingUntil,
	}
}

// Reset forgets every event so the next one starts a new stroke.
func (pt *PointerTracker) Reset() {
	pt.pos = FPoint{}
	pt.prev = FPoint{}
	pt.hasInput = false
	pt.movingUntil = 0
}
