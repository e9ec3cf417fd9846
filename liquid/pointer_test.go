package liquid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker() *PointerTracker {
	pt := NewPointerTracker(100 * time.Millisecond)
	pt.SetBounds(FRect(100, 50, 500, 250))
	return pt
}

func TestPointerTrackerNormalize(t *testing.T) {
	pt := newTestTracker()

	norm, ok := pt.Normalize(FPt(100, 50))
	require.True(t, ok)
	// top left corner of the surface is the top of field space
	assert.InDelta(t, 0.0, norm.X, 1e-12)
	assert.InDelta(t, 1.0, norm.Y, 1e-12)

	norm, ok = pt.Normalize(FPt(300, 200))
	require.True(t, ok)
	assert.InDelta(t, 0.5, norm.X, 1e-12)
	assert.InDelta(t, 0.25, norm.Y, 1e-12)

	_, ok = pt.Normalize(FPt(99, 100))
	assert.False(t, ok)
	_, ok = pt.Normalize(FPt(200, 251))
	assert.False(t, ok)
}

func TestPointerTrackerOutOfBoundsIgnored(t *testing.T) {
	pt := newTestTracker()

	require.True(t, pt.Update(FPt(300, 150), 0))
	before := pt.Snapshot(0)

	assert.False(t, pt.Update(FPt(600, 150), time.Millisecond))
	after := pt.Snapshot(time.Millisecond)

	assert.Equal(t, before.Pos, after.Pos)
	assert.Equal(t, before.Prev, after.Prev)
}

func TestPointerTrackerPrevFollowsEvents(t *testing.T) {
	pt := newTestTracker()

	// first event seeds both ends
	pt.Update(FPt(100, 250), 0)
	s := pt.Snapshot(0)
	assert.Equal(t, s.Pos, s.Prev)
	assert.True(t, s.Moving)

	pt.Update(FPt(300, 250), 5*time.Millisecond)
	pt.Update(FPt(500, 250), 10*time.Millisecond)

	// several frames may pass, prev stays at the previous event
	for _, now := range []time.Duration{11, 20, 40} {
		s = pt.Snapshot(now * time.Millisecond)
		assert.InDelta(t, 0.5, s.Prev.X, 1e-12)
		assert.InDelta(t, 1.0, s.Pos.X, 1e-12)
		assert.InDelta(t, 0.0, s.Pos.Y, 1e-12)
	}
}

func TestPointerTrackerQuiescence(t *testing.T) {
	pt := newTestTracker()

	assert.False(t, pt.Snapshot(0).Moving, "no input yet")

	pt.Update(FPt(200, 100), 0)
	assert.True(t, pt.Snapshot(99*time.Millisecond).Moving)
	assert.False(t, pt.Snapshot(100*time.Millisecond).Moving)

	// another event reschedules the expiry
	pt.Update(FPt(210, 100), 90*time.Millisecond)
	assert.True(t, pt.Snapshot(150*time.Millisecond).Moving)
	assert.False(t, pt.Snapshot(190*time.Millisecond).Moving)
}

func TestPointerTrackerReset(t *testing.T) {
	pt := newTestTracker()

	pt.Update(FPt(200, 100), 0)
	pt.Update(FPt(400, 100), 0)
	pt.Reset()

	assert.False(t, pt.Snapshot(0).Moving)

	pt.Update(FPt(300, 100), 0)
	s := pt.Snapshot(0)
	assert.Equal(t, s.Pos, s.Prev, "a reset starts a new stroke")
}

func TestPointerTrackerEmptyBounds(t *testing.T) {
	pt := NewPointerTracker(time.Second)
	assert.False(t, pt.Update(FPt(0, 0), 0))
}
