package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/overlay"
	"github.com/ayusman/mudra/internal/source"
)

// Run connects the source and processes frames until the user quits, ctx
// is cancelled, the source is lost or an iteration panics. Resources are
// released before Run returns, whatever the outcome. Quitting and
// cancellation are not errors.
func (a *App) Run(ctx context.Context) (Result, error) {
	a.setPhase(Init)
	defer a.drain()

	if err := a.source.Connect(ctx); err != nil {
		return Result{Reason: ReasonConnectFailed}, err
	}

	a.setPhase(Running)
	a.log.Info("hand tracking started",
		zap.Stringer("mode", a.source.Mode()),
		zap.String("source", a.source.Describe()))
	for _, fn := range a.onConnect {
		fn(a.source)
	}

	state := source.NewState(a.source.Mode(), a.config.MaxEmptyFrames)
	for {
		reason, err := a.iterate(ctx, state)
		if reason == ReasonNone {
			continue
		}

		result := Result{Frames: a.Frames(), Reason: reason}
		if err != nil {
			a.log.Error("frame loop stopped", zap.Stringer("reason", reason), zap.Error(err))
		} else {
			a.log.Info("frame loop stopped", zap.Stringer("reason", reason))
		}
		return result, err
	}
}

// iterate runs one loop body. A panic is recovered into ErrPanic.
func (a *App) iterate(ctx context.Context, state *source.State) (reason Reason, err error) {
	defer func() {
		if r := recover(); r != nil {
			reason, err = ReasonPanic, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	if r := a.pollStop(ctx); r != ReasonNone {
		return r, nil
	}

	frame, ok := a.source.Frame()
	if state.Observe(ok) {
		return ReasonSourceLost, fmt.Errorf("%w: no frame for %d consecutive reads", ErrSourceLost, state.ConsecutiveEmpty())
	}

	if !ok {
		if n := state.ConsecutiveEmpty(); n%a.config.LogEvery == 0 {
			a.log.Warn("no frame received", zap.Int("empty", n), zap.Int("max", state.Ceiling()))
		}
		if a.display.PollQuit() {
			return ReasonQuit, nil
		}
		return a.backoff(ctx), nil
	}
	defer frame.Close()

	n := int(a.frames.Add(1))

	observations := []hand.Observation{}
	if a.IsEnabled() {
		observations = a.extractor.Extract(frame)
		for _, b := range a.broadcasters {
			b.Broadcast(observations)
		}
	}

	overlay.Draw(frame, observations, overlay.Status{
		Source: a.source.Describe(),
		Frame:  n,
		Hands:  len(observations),
	})
	for _, s := range a.sinks {
		s.Publish(frame)
	}
	a.display.Show(frame)

	if a.display.PollQuit() {
		return ReasonQuit, nil
	}
	return ReasonNone, nil
}

// pollStop checks the quit channel and ctx without blocking.
func (a *App) pollStop(ctx context.Context) Reason {
	select {
	case <-ctx.Done():
		return ReasonCancelled
	case <-a.quit:
		return ReasonQuit
	default:
		return ReasonNone
	}
}

// backoff waits after an empty read, returning early on a stop request.
func (a *App) backoff(ctx context.Context) Reason {
	if a.config.EmptyBackoff <= 0 {
		return ReasonNone
	}

	timer := time.NewTimer(a.config.EmptyBackoff)
	defer timer.Stop()

	select {
	case <-timer.C:
		return ReasonNone
	case <-ctx.Done():
		return ReasonCancelled
	case <-a.quit:
		return ReasonQuit
	}
}
