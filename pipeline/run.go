package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Ticker advances the clock the pipeline reads. *liquid.TickClock is one.
type Ticker interface {
	Tick()
}

type RunOptions struct {
	Ticker Ticker
	Trace  Trace

	// Frames to run. 0 runs until ctx is done.
	Frames int

	// OnFrame is called after every frame.
	OnFrame func(frame int) error
}

// Run is the headless frame loop. It waits for loading to finish,
// then on every tick advances the clock, replays the trace, polls and
// renders one frame.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) error {
	if err := p.Await(ctx); err != nil {
		return err
	}

	switch p.state {
	case StateReady:
	case StateLoading:
		// textures are in but Resize was never called
		return ErrNoSurface
	default:
		return fmt.Errorf("can't run a pipeline that is %s", p.state)
	}

	if opts.Trace == nil {
		opts.Trace = NoTrace{}
	}

	for i := 0; opts.Frames <= 0 || i < opts.Frames; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if opts.Ticker != nil {
			opts.Ticker.Tick()
		}

		if uv, ok := opts.Trace.Event(i); ok {
			p.Pointer(RawFromUV(p.view, uv))
		}

		p.Poll()
		p.Frame()

		if p.state != StateReady {
			break
		}

		if opts.OnFrame != nil {
			if err := opts.OnFrame(i); err != nil {
				return err
			}
		}
	}

	p.logger.Debug("run finished", zap.Uint64("frames", p.frames))

	if p.state == StateFailed {
		return p.err
	}
	return nil
}
