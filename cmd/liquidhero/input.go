package main

import (
	eb "github.com/hajimehoshi/ebiten/v2"
	ebi "github.com/hajimehoshi/ebiten/v2/inpututil"

	"liquidhero/liquid"
	"liquidhero/pipeline"
)

// PointerInput turns cursor and touch movement into pointer events.
// Positions ebitengine reports are in render pixels, the pipeline wants
// layout pixels, so they are divided by the render scale.
type PointerInput struct {
	cursorSeen bool
	lastCursor liquid.FPoint

	touches map[eb.TouchID]liquid.FPoint

	TouchingBuf     []eb.TouchID
	JustReleasedBuf []eb.TouchID
}

func NewPointerInput() *PointerInput {
	return &PointerInput{
		touches: make(map[eb.TouchID]liquid.FPoint),
	}
}

func CursorFPt() liquid.FPoint {
	mx, my := eb.CursorPosition()
	return liquid.FPt(float64(mx), float64(my))
}

func TouchFPt(id eb.TouchID) liquid.FPoint {
	tx, ty := eb.TouchPosition(id)
	return liquid.FPt(float64(tx), float64(ty))
}

func (pi *PointerInput) Update(p *pipeline.Pipeline, renderScale float64) {
	if renderScale <= 0 {
		renderScale = 1
	}
	toLayout := func(pt liquid.FPoint) liquid.FPoint {
		return pt.Scale(1 / renderScale)
	}

	// =============================
	// cursor
	// =============================
	cursor := CursorFPt()
	if !pi.cursorSeen {
		// the first reading is wherever the cursor happens to be,
		// not a movement
		pi.cursorSeen = true
		pi.lastCursor = cursor
	} else if !cursor.Eq(pi.lastCursor) {
		pi.lastCursor = cursor
		p.Pointer(toLayout(cursor))
	}

	// =============================
	// touches
	// =============================
	pi.TouchingBuf = eb.AppendTouchIDs(pi.TouchingBuf[:0])
	pi.JustReleasedBuf = ebi.AppendJustReleasedTouchIDs(pi.JustReleasedBuf[:0])

	for _, id := range pi.TouchingBuf {
		pos := TouchFPt(id)
		if last, ok := pi.touches[id]; !ok || !last.Eq(pos) {
			pi.touches[id] = pos
			p.Pointer(toLayout(pos))
		}
	}

	for _, id := range pi.JustReleasedBuf {
		delete(pi.touches, id)
	}

	// lifting the last finger ends the stroke
	if len(pi.JustReleasedBuf) > 0 && len(pi.TouchingBuf) == 0 {
		p.PointerLeave()
	}
}
