package pipeline

import (
	"liquidhero/liquid"
)

// Trace is a scripted pointer path for headless runs.
// Positions are in field space, 0..1 with y up.
type Trace interface {
	// Event returns the pointer position for frame i, if there is one.
	Event(frame int) (liquid.FPoint, bool)
}

// NoTrace never moves the pointer.
type NoTrace struct{}

func (NoTrace) Event(int) (liquid.FPoint, bool) {
	return liquid.FPoint{}, false
}

// LineTrace moves the pointer in a straight line from From to To,
// one event per frame starting at frame Start.
type LineTrace struct {
	From, To liquid.FPoint
	Start    int
	Frames   int
}

func (t LineTrace) Event(frame int) (liquid.FPoint, bool) {
	i := frame - t.Start
	if i < 0 || i >= t.Frames {
		return liquid.FPoint{}, false
	}
	if t.Frames == 1 {
		return t.To, true
	}

	f := float64(i) / float64(t.Frames-1)
	return liquid.FPt(
		liquid.Lerp(t.From.X, t.To.X, f),
		liquid.Lerp(t.From.Y, t.To.Y, f),
	), true
}

// RawFromUV maps a field space position onto the viewport, the inverse of
// what the pointer tracker does.
func RawFromUV(view liquid.Viewport, uv liquid.FPoint) liquid.FPoint {
	return liquid.FPt(
		uv.X*float64(view.Width),
		(1-uv.Y)*float64(view.Height),
	)
}
