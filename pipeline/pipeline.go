// Package pipeline drives the reveal effect: it waits for the textures,
// builds a backend once they are there and then runs one simulation step
// followed by one display pass per frame.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"liquidhero/liquid"
	"liquidhero/loader"
)

type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateDisposed:
		return "disposed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	ErrAlreadyStarted = errors.New("pipeline already started")
	ErrDisposed       = errors.New("pipeline disposed")
)

// Backend owns the two field buffers and the frame target.
// The pipeline only ever passes slot indices (0 or 1).
type Backend interface {
	// Simulate reads field slot src and writes field slot dst.
	Simulate(src, dst int, in liquid.StepInput)
	// Present renders the frame from field slot front.
	Present(front int)
	// Resize replaces the frame target. Fields keep their size.
	Resize(view liquid.Viewport)
	Dispose()
}

// BackendFactory builds a backend once the textures are loaded.
// An error means the effect can't be rendered at all.
type BackendFactory func(pair loader.Pair, params liquid.Params, view liquid.Viewport) (Backend, error)

// LoadFunc loads the two textures. It must honor ctx.
type LoadFunc func(ctx context.Context) (loader.Pair, error)

type loadResult struct {
	pair loader.Pair
	err  error
}

type Options struct {
	Params  liquid.Params
	Clock   liquid.Clock
	Factory BackendFactory
	Logger  *zap.Logger
}

type Pipeline struct {
	params  liquid.Params
	clock   liquid.Clock
	factory BackendFactory
	logger  *zap.Logger

	state State
	err   error

	cancel  context.CancelFunc
	results chan loadResult

	// pair is held here when it arrives before there is a surface
	pending *loader.Pair

	tracker *liquid.PointerTracker
	chain   *liquid.MetaballChain
	// last pointer position the metaballs chase
	chainTarget liquid.FPoint

	backend Backend
	buffers liquid.BufferPair
	view    liquid.Viewport

	frames uint64
}

// offscreen is where the metaballs wait before the first pointer event
var offscreen = liquid.FPt(-10, -10)

func New(opts Options) (*Pipeline, error) {
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	if opts.Factory == nil {
		return nil, errors.New("pipeline: nil backend factory")
	}
	if opts.Clock == nil {
		opts.Clock = liquid.NewTickClock(60)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	p := &Pipeline{
		params:  opts.Params,
		clock:   opts.Clock,
		factory: opts.Factory,
		logger:  opts.Logger,

		tracker: liquid.NewPointerTracker(opts.Params.Quiescence),

		chainTarget: offscreen,
	}

	if p.params.Mode == liquid.ModeMetaball {
		p.chain = liquid.NewMetaballChain(p.params.Metaball, offscreen)
	}

	return p, nil
}

func (p *Pipeline) State() State {
	return p.state
}

// Err is the reason the pipeline failed, if it did.
func (p *Pipeline) Err() error {
	return p.err
}

func (p *Pipeline) Params() liquid.Params {
	return p.params
}

func (p *Pipeline) Viewport() liquid.Viewport {
	return p.view
}

// Backend is nil unless the pipeline is Ready.
func (p *Pipeline) Backend() Backend {
	return p.backend
}

// Front is the field slot holding the latest simulation output.
func (p *Pipeline) Front() int {
	return p.buffers.Front()
}

func (p *Pipeline) Frames() uint64 {
	return p.frames
}

func (p *Pipeline) Tracker() *liquid.PointerTracker {
	return p.tracker
}

func (p *Pipeline) setState(s State) {
	if p.state == s {
		return
	}
	p.logger.Debug("state changed",
		zap.Stringer("from", p.state),
		zap.Stringer("to", s),
	)
	p.state = s
}

// Start kicks off texture loading in the background.
func (p *Pipeline) Start(ctx context.Context, load LoadFunc) error {
	switch p.state {
	case StateUninitialized:
	case StateDisposed:
		return ErrDisposed
	default:
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	// buffered so the loader never blocks, even when nobody polls anymore
	results := make(chan loadResult, 1)
	p.results = results

	go func() {
		pair, err := load(ctx)
		results <- loadResult{pair: pair, err: err}
	}()

	p.setState(StateLoading)
	return nil
}

// Poll checks for the load result without blocking.
// It is meant to be called once per tick.
func (p *Pipeline) Poll() {
	if p.results == nil {
		return
	}

	select {
	case res := <-p.results:
		p.results = nil
		p.handleResult(res)
	default:
	}

	if p.pending != nil && p.state == StateLoading {
		p.build()
	}
}

// Await blocks until the load result is in and handled.
func (p *Pipeline) Await(ctx context.Context) error {
	if p.results != nil {
		select {
		case res := <-p.results:
			p.results = nil
			p.handleResult(res)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if p.pending != nil && p.state == StateLoading {
		p.build()
	}

	switch p.state {
	case StateFailed:
		return p.err
	case StateDisposed:
		return ErrDisposed
	}
	return nil
}

func (p *Pipeline) handleResult(res loadResult) {
	if p.state != StateLoading {
		p.logger.Debug("dropping late load result", zap.Stringer("state", p.state))
		return
	}

	if res.err != nil {
		p.fail(fmt.Errorf("failed to load textures: %w", res.err))
		return
	}

	pair := res.pair
	p.pending = &pair
}

// build constructs the backend as soon as there is both a texture pair
// and a surface to draw on.
func (p *Pipeline) build() {
	if p.view.Empty() {
		return
	}

	pair := *p.pending
	p.pending = nil

	timer := liquid.NewProfTimer("build backend")
	backend, err := p.factory(pair, p.params, p.view)
	if err != nil {
		p.fail(fmt.Errorf("failed to create backend: %w", err))
		return
	}

	p.backend = backend
	p.buffers = liquid.BufferPair{}
	p.setState(StateReady)

	p.logger.Info("pipeline ready",
		zap.String("first", pair.First.Source),
		zap.String("second", pair.Second.Source),
		zap.Int("field_size", p.params.FieldSize),
		zap.Duration(timer.Name, timer.Elapsed()),
	)
}

func (p *Pipeline) fail(err error) {
	p.err = err
	p.setState(StateFailed)
	p.logger.Warn("showing fallback", zap.Error(err))
}

// Pointer feeds a raw pointer position, in the same coordinates as the
// viewport. It can be called any number of times between frames.
func (p *Pipeline) Pointer(raw liquid.FPoint) bool {
	return p.tracker.Update(raw, p.clock.Now())
}

// PointerLeave ends the current stroke.
func (p *Pipeline) PointerLeave() {
	p.tracker.Reset()
}

// Resize is called whenever the surface size or pixel ratio changes.
func (p *Pipeline) Resize(view liquid.Viewport) {
	if view == p.view {
		return
	}

	sizeChanged := view.Width != p.view.Width || view.Height != p.view.Height
	p.view = view

	p.tracker.SetBounds(liquid.FRectWH(float64(view.Width), float64(view.Height)))
	if sizeChanged {
		p.tracker.Reset()
	}

	if p.backend != nil && !view.Empty() {
		p.backend.Resize(view)
	}

	w, h := view.RenderSize(p.params.MaxPixelRatio)
	p.logger.Debug("resized",
		zap.Int("width", view.Width),
		zap.Int("height", view.Height),
		zap.Float64("pixel_ratio", view.PixelRatio),
		zap.Int("render_width", w),
		zap.Int("render_height", h),
	)
}

// Frame runs one simulation step and one display pass.
// It does nothing unless the pipeline is Ready.
func (p *Pipeline) Frame() {
	if p.state != StateReady || p.view.Empty() {
		return
	}

	ptr := p.tracker.Snapshot(p.clock.Now())

	in := liquid.StepInput{
		Pointer: ptr,
		Aspect:  p.view.Aspect(),
	}

	if p.chain != nil {
		if p.tracker.HasInput() {
			p.chainTarget = ptr.Pos
		}
		p.chain.Update(p.chainTarget)
		in.Balls = p.chain.Balls()
	}

	p.backend.Simulate(p.buffers.Front(), p.buffers.Back(), in)
	p.buffers.Swap()
	p.backend.Present(p.buffers.Front())

	p.frames++
}

// Dispose stops loading and releases the backend.
// A load result that shows up afterwards is dropped.
func (p *Pipeline) Dispose() {
	if p.state == StateDisposed {
		return
	}

	if p.cancel != nil {
		p.cancel()
	}
	if p.backend != nil {
		p.backend.Dispose()
		p.backend = nil
	}
	p.pending = nil

	p.setState(StateDisposed)
}
