package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"liquidhero/liquid"
	"liquidhero/loader"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type call struct {
	op       string
	src, dst int
}

type fakeBackend struct {
	calls    []call
	inputs   []liquid.StepInput
	views    []liquid.Viewport
	disposed bool
}

func (b *fakeBackend) Simulate(src, dst int, in liquid.StepInput) {
	b.calls = append(b.calls, call{op: "simulate", src: src, dst: dst})
	b.inputs = append(b.inputs, in)
}

func (b *fakeBackend) Present(front int) {
	b.calls = append(b.calls, call{op: "present", src: front})
}

func (b *fakeBackend) Resize(view liquid.Viewport) {
	b.views = append(b.views, view)
}

func (b *fakeBackend) Dispose() {
	b.disposed = true
}

type fakeFactory struct {
	backend *fakeBackend
	err     error
	calls   int
}

func (f *fakeFactory) build(pair loader.Pair, params liquid.Params, view liquid.Viewport) (Backend, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.backend = &fakeBackend{}
	return f.backend, nil
}

func solidTexture(clr color.NRGBA, w, h int) liquid.Texture {
	return liquid.NewTexture(loader.Placeholder(clr, w, h), "solid")
}

func gradientTexture(w, h int) liquid.Texture {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / (w - 1)),
				G: uint8(y * 255 / (h - 1)),
				B: 90,
				A: 255,
			})
		}
	}
	return liquid.NewTexture(img, "gradient")
}

func blackWhitePair() loader.Pair {
	return loader.Pair{
		First:  solidTexture(color.NRGBA{0, 0, 0, 255}, 8, 8),
		Second: solidTexture(color.NRGBA{255, 255, 255, 255}, 8, 8),
	}
}

func loadNow(pair loader.Pair) LoadFunc {
	return func(ctx context.Context) (loader.Pair, error) {
		return pair, nil
	}
}

func testParams() liquid.Params {
	p := liquid.DefaultParams()
	p.FieldSize = 64
	return p
}

var testView = liquid.Viewport{Width: 64, Height: 64, PixelRatio: 1}

func newFakePipeline(t *testing.T) (*Pipeline, *fakeFactory, *liquid.ManualClock) {
	t.Helper()
	factory := &fakeFactory{}
	clock := &liquid.ManualClock{}
	p, err := New(Options{
		Params:  testParams(),
		Clock:   clock,
		Factory: factory.build,
	})
	require.NoError(t, err)
	return p, factory, clock
}

func TestNewRejectsInvalidParams(t *testing.T) {
	params := testParams()
	params.Decay = 1

	_, err := New(Options{Params: params, Factory: SoftwareFactory})
	assert.ErrorIs(t, err, liquid.ErrInvalidParams)

	_, err = New(Options{Params: testParams()})
	assert.Error(t, err)
}

func TestStateTransitions(t *testing.T) {
	ctx := context.Background()
	p, factory, _ := newFakePipeline(t)

	assert.Equal(t, StateUninitialized, p.State())

	// frames before loading are no-ops
	p.Frame()
	assert.Zero(t, p.Frames())

	p.Resize(testView)
	require.NoError(t, p.Start(ctx, loadNow(blackWhitePair())))
	assert.Equal(t, StateLoading, p.State())
	assert.ErrorIs(t, p.Start(ctx, loadNow(blackWhitePair())), ErrAlreadyStarted)

	require.NoError(t, p.Await(ctx))
	assert.Equal(t, StateReady, p.State())
	assert.Equal(t, 1, factory.calls)

	p.Frame()
	p.Frame()
	assert.Equal(t, uint64(2), p.Frames())
	assert.Len(t, factory.backend.calls, 4)

	p.Dispose()
	assert.Equal(t, StateDisposed, p.State())
	assert.True(t, factory.backend.disposed)
	assert.Nil(t, p.Backend())

	p.Frame()
	assert.Equal(t, uint64(2), p.Frames())

	assert.ErrorIs(t, p.Start(ctx, loadNow(blackWhitePair())), ErrDisposed)

	// a second dispose is harmless
	p.Dispose()
}

func TestPollIsNonBlocking(t *testing.T) {
	p, factory, _ := newFakePipeline(t)
	p.Resize(testView)

	release := make(chan struct{})
	require.NoError(t, p.Start(context.Background(), func(ctx context.Context) (loader.Pair, error) {
		<-release
		return blackWhitePair(), nil
	}))

	for range 10 {
		p.Poll()
		p.Frame()
	}
	assert.Equal(t, StateLoading, p.State())
	assert.Zero(t, factory.calls)

	close(release)
	require.Eventually(t, func() bool {
		p.Poll()
		return p.State() == StateReady
	}, time.Second, time.Millisecond)
}

func TestLoadFailure(t *testing.T) {
	boom := errors.New("404")
	p, factory, _ := newFakePipeline(t)
	p.Resize(testView)

	require.NoError(t, p.Start(context.Background(), func(ctx context.Context) (loader.Pair, error) {
		return loader.Pair{}, boom
	}))

	err := p.Await(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, p.State())
	assert.ErrorIs(t, p.Err(), boom)
	assert.Zero(t, factory.calls)

	p.Frame()
	assert.Zero(t, p.Frames())
}

func TestFactoryFailure(t *testing.T) {
	noGPU := errors.New("shader compile failed")
	p, factory, _ := newFakePipeline(t)
	factory.err = noGPU
	p.Resize(testView)

	require.NoError(t, p.Start(context.Background(), loadNow(blackWhitePair())))

	assert.ErrorIs(t, p.Await(context.Background()), noGPU)
	assert.Equal(t, StateFailed, p.State())
}

func TestDisposeDropsLateResult(t *testing.T) {
	p, factory, _ := newFakePipeline(t)
	p.Resize(testView)

	release := make(chan struct{})
	require.NoError(t, p.Start(context.Background(), func(ctx context.Context) (loader.Pair, error) {
		<-release
		return blackWhitePair(), nil
	}))

	p.Dispose()
	close(release)

	require.Eventually(t, func() bool {
		return len(p.results) == 1
	}, time.Second, time.Millisecond)

	p.Poll()
	assert.Equal(t, StateDisposed, p.State())
	assert.Zero(t, factory.calls)
	assert.Nil(t, p.Backend())
}

func TestDisposeCancelsLoading(t *testing.T) {
	p, _, _ := newFakePipeline(t)

	canceled := make(chan struct{})
	require.NoError(t, p.Start(context.Background(), func(ctx context.Context) (loader.Pair, error) {
		<-ctx.Done()
		close(canceled)
		return loader.Pair{}, ctx.Err()
	}))

	p.Dispose()

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("loader was not canceled")
	}
}

func TestBackendWaitsForSurface(t *testing.T) {
	p, factory, _ := newFakePipeline(t)

	require.NoError(t, p.Start(context.Background(), loadNow(blackWhitePair())))
	require.NoError(t, p.Await(context.Background()))

	assert.Equal(t, StateLoading, p.State())
	assert.Zero(t, factory.calls)

	p.Resize(testView)
	p.Poll()
	assert.Equal(t, StateReady, p.State())
	assert.Equal(t, 1, factory.calls)
}

func TestBufferAlternation(t *testing.T) {
	p, factory, _ := newFakePipeline(t)
	p.Resize(testView)
	require.NoError(t, p.Start(context.Background(), loadNow(blackWhitePair())))
	require.NoError(t, p.Await(context.Background()))

	for n := 0; n < 7; n++ {
		front := p.Front()
		p.Frame()

		calls := factory.backend.calls[len(factory.backend.calls)-2:]
		sim, present := calls[0], calls[1]

		// the step reads the old front and writes the other slot
		assert.Equal(t, "simulate", sim.op)
		assert.Equal(t, front, sim.src)
		assert.Equal(t, 1-front, sim.dst)

		// which then becomes the front that gets presented
		assert.Equal(t, "present", present.op)
		assert.Equal(t, sim.dst, present.src)
		assert.Equal(t, sim.dst, p.Front())
	}
}

func TestResize(t *testing.T) {
	p, factory, clock := newFakePipeline(t)
	p.Resize(testView)
	require.NoError(t, p.Start(context.Background(), loadNow(blackWhitePair())))
	require.NoError(t, p.Await(context.Background()))

	require.True(t, p.Pointer(liquid.FPt(32, 32)))
	assert.False(t, p.Pointer(liquid.FPt(100, 32)), "outside the surface")

	wide := liquid.Viewport{Width: 200, Height: 100, PixelRatio: 3}
	p.Resize(wide)
	require.Equal(t, []liquid.Viewport{wide}, factory.backend.views)
	assert.Equal(t, liquid.FRectWH(200, 100), p.Tracker().Bounds())

	// the stroke doesn't survive a size change
	assert.False(t, p.Tracker().HasInput())

	require.True(t, p.Pointer(liquid.FPt(100, 32)))
	clock.Advance(time.Millisecond)
	p.Frame()

	in := factory.backend.inputs[0]
	assert.InDelta(t, 2.0, in.Aspect, 1e-12)
	assert.True(t, in.Pointer.Moving)
	assert.InDelta(t, 0.5, in.Pointer.Pos.X, 1e-12)
	assert.InDelta(t, 0.68, in.Pointer.Pos.Y, 1e-12)

	// same viewport again is not forwarded
	p.Resize(wide)
	assert.Len(t, factory.backend.views, 1)
}

func TestQuiescence(t *testing.T) {
	p, factory, clock := newFakePipeline(t)
	p.Resize(testView)
	require.NoError(t, p.Start(context.Background(), loadNow(blackWhitePair())))
	require.NoError(t, p.Await(context.Background()))

	p.Pointer(liquid.FPt(10, 10))
	p.Pointer(liquid.FPt(20, 10))

	clock.Advance(50 * time.Millisecond)
	p.Frame()
	clock.Advance(50 * time.Millisecond)
	p.Frame()

	inputs := factory.backend.inputs
	assert.True(t, inputs[0].Pointer.Moving)
	assert.False(t, inputs[1].Pointer.Moving)
}

func runSoftware(t *testing.T, params liquid.Params, pair loader.Pair, view liquid.Viewport, trace Trace, frames int) (*Pipeline, *Software) {
	t.Helper()

	clock := liquid.NewTickClock(60)
	p, err := New(Options{
		Params:  params,
		Clock:   clock,
		Factory: SoftwareFactory,
	})
	require.NoError(t, err)

	p.Resize(view)
	require.NoError(t, p.Start(context.Background(), loadNow(pair)))

	err = p.Run(context.Background(), RunOptions{
		Ticker: clock,
		Trace:  trace,
		Frames: frames,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(frames), p.Frames())

	sw, ok := p.Backend().(*Software)
	require.True(t, ok)
	return p, sw
}

func TestStraightLineContrast(t *testing.T) {
	trace := LineTrace{
		From:   liquid.FPt(0.2, 0.5),
		To:     liquid.FPt(0.8, 0.5),
		Frames: 30,
	}
	p, sw := runSoftware(t, testParams(), blackWhitePair(), testView, trace, 30)

	field := sw.Field(p.Front())
	interior := field.Sample(liquid.FPt(0.5, 0.5))
	left := field.Sample(liquid.FPt(0.1, 0.5))
	right := field.Sample(liquid.FPt(0.9, 0.5))

	assert.Greater(t, interior, 0.25)
	assert.Less(t, left, interior/4)
	assert.Less(t, right, interior/4)

	// same thing in the output: the stroke shows the second (white) texture
	frame := sw.Frame()
	require.Equal(t, image.Rect(0, 0, 64, 64), frame.Bounds())

	assert.Greater(t, frame.NRGBAAt(32, 32).R, uint8(128))
	assert.Less(t, frame.NRGBAAt(6, 32).R, uint8(64))
	assert.Less(t, frame.NRGBAAt(58, 32).R, uint8(64))
}

func TestNoInputShowsFirstTexture(t *testing.T) {
	pair := loader.Pair{
		First:  gradientTexture(40, 20),
		Second: solidTexture(color.NRGBA{255, 255, 255, 255}, 8, 8),
	}
	view := liquid.Viewport{Width: 30, Height: 20, PixelRatio: 1}

	p, sw := runSoftware(t, testParams(), pair, view, NoTrace{}, 12)

	assert.Zero(t, sw.Field(p.Front()).Max())

	frame := sw.Frame()
	w, h := frame.Bounds().Dx(), frame.Bounds().Dy()
	scale := liquid.CoverScale(view.Aspect(), pair.First.Aspect)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			uv := liquid.CoverUV(liquid.PixelUV(x, y, w, h), scale)
			want := liquid.ToNRGBA(liquid.SampleNRGBA(pair.First.Image, uv))
			require.Equal(t, want, frame.NRGBAAt(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestMetaballMode(t *testing.T) {
	params := testParams()
	params.Mode = liquid.ModeMetaball
	params.FieldSize = 32

	t.Run("no input", func(t *testing.T) {
		p, sw := runSoftware(t, params, blackWhitePair(), testView, NoTrace{}, 20)
		assert.Zero(t, sw.Field(p.Front()).Max())
	})

	t.Run("pointer pulls the blobs in", func(t *testing.T) {
		trace := LineTrace{
			From:   liquid.FPt(0.5, 0.5),
			To:     liquid.FPt(0.5, 0.5),
			Frames: 60,
		}
		p, sw := runSoftware(t, params, blackWhitePair(), testView, trace, 60)
		assert.Greater(t, sw.Field(p.Front()).Sample(liquid.FPt(0.5, 0.5)), 0.9)
	})
}

func TestRunErrors(t *testing.T) {
	t.Run("not started", func(t *testing.T) {
		p, _, _ := newFakePipeline(t)
		assert.Error(t, p.Run(context.Background(), RunOptions{Frames: 1}))
	})

	t.Run("no surface", func(t *testing.T) {
		p, _, _ := newFakePipeline(t)
		require.NoError(t, p.Start(context.Background(), loadNow(blackWhitePair())))
		assert.ErrorIs(t, p.Run(context.Background(), RunOptions{Frames: 1}), ErrNoSurface)
	})

	t.Run("canceled", func(t *testing.T) {
		p, _, _ := newFakePipeline(t)
		p.Resize(testView)
		require.NoError(t, p.Start(context.Background(), loadNow(blackWhitePair())))

		ctx, cancel := context.WithCancel(context.Background())
		frames := 0
		err := p.Run(ctx, RunOptions{
			OnFrame: func(int) error {
				frames++
				if frames == 3 {
					cancel()
				}
				return nil
			},
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 3, frames)
	})
}

func TestLineTrace(t *testing.T) {
	trace := LineTrace{From: liquid.FPt(0, 0), To: liquid.FPt(1, 0.5), Start: 2, Frames: 3}

	_, ok := trace.Event(1)
	assert.False(t, ok)

	pos, ok := trace.Event(2)
	require.True(t, ok)
	assert.Equal(t, liquid.FPt(0, 0), pos)

	pos, ok = trace.Event(3)
	require.True(t, ok)
	assert.Equal(t, liquid.FPt(0.5, 0.25), pos)

	pos, ok = trace.Event(4)
	require.True(t, ok)
	assert.Equal(t, liquid.FPt(1, 0.5), pos)

	_, ok = trace.Event(5)
	assert.False(t, ok)

	raw := RawFromUV(liquid.Viewport{Width: 200, Height: 100}, liquid.FPt(0.25, 0.75))
	assert.Equal(t, liquid.FPt(50, 25), raw)
}
