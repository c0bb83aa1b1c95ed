package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Fallback connects the first candidate that succeeds, in order.
type Fallback struct {
	candidates []Source
	log        *zap.Logger

	mu      sync.Mutex
	active  Source
	cleanup sync.Once
	err     error
}

// NewFallback returns a source trying candidates in order. Nil candidates
// are skipped.
func NewFallback(log *zap.Logger, candidates ...Source) *Fallback {
	if log == nil {
		log = zap.NewNop()
	}
	var list []Source
	for _, c := range candidates {
		if c != nil {
			list = append(list, c)
		}
	}
	return &Fallback{candidates: list, log: log}
}

// Connect tries each candidate. When all fail, the returned error wraps
// ErrConnect and every candidate's error.
func (f *Fallback) Connect(ctx context.Context) error {
	var errs []error
	for i, c := range f.candidates {
		if i > 0 {
			f.log.Warn("falling back to next source",
				zap.Stringer("from", f.candidates[i-1].Mode()),
				zap.Stringer("to", c.Mode()))
		}

		err := c.Connect(ctx)
		if err == nil {
			f.mu.Lock()
			f.active = c
			f.mu.Unlock()
			f.log.Info("source connected", zap.Stringer("mode", c.Mode()), zap.String("source", c.Describe()))
			return nil
		}

		f.log.Warn("source unavailable", zap.Stringer("mode", c.Mode()), zap.Error(err))
		c.Cleanup()
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}
	if len(errs) == 0 {
		return ErrConnect
	}
	return fmt.Errorf("%w: %w", ErrConnect, errors.Join(errs...))
}

// Active returns the connected candidate, or nil.
func (f *Fallback) Active() Source {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *Fallback) Frame() (*gocv.Mat, bool) {
	if a := f.Active(); a != nil {
		return a.Frame()
	}
	return nil, false
}

func (f *Fallback) IsConnected() bool {
	a := f.Active()
	return a != nil && a.IsConnected()
}

func (f *Fallback) Mode() Mode {
	if a := f.Active(); a != nil {
		return a.Mode()
	}
	return Disconnected
}

func (f *Fallback) Describe() string {
	if a := f.Active(); a != nil {
		return a.Describe()
	}
	return "No source"
}

// Cleanup releases every candidate once.
func (f *Fallback) Cleanup() error {
	f.cleanup.Do(func() {
		var errs []error
		for _, c := range f.candidates {
			if err := c.Cleanup(); err != nil {
				errs = append(errs, err)
			}
		}
		f.mu.Lock()
		f.active = nil
		f.mu.Unlock()
		f.err = errors.Join(errs...)
	})
	return f.err
}
