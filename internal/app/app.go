// Package app runs the tracking loop: read a frame, extract hands, publish
// observations, draw the preview.
package app

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/source"
)

// Loop defaults.
const (
	// DefaultLogEvery is how often a run of empty reads is logged.
	DefaultLogEvery = 20
	// DefaultEmptyBackoff is the pause after an empty read.
	DefaultEmptyBackoff = 10 * time.Millisecond
)

var (
	// ErrSourceLost is returned when the source stops delivering frames.
	ErrSourceLost = errors.New("video source lost")
	// ErrPanic is returned when a loop iteration panicked.
	ErrPanic = errors.New("frame loop panicked")
)

// Extractor computes observations for a frame.
type Extractor interface {
	Extract(frame *gocv.Mat) []hand.Observation
}

// Broadcaster receives every frame's observations, including empty ones.
type Broadcaster interface {
	Broadcast(observations []hand.Observation)
}

// FrameSink receives the annotated frame. It must copy what it keeps.
type FrameSink interface {
	Publish(frame *gocv.Mat)
}

// Config holds loop settings.
type Config struct {
	// MaxEmptyFrames is the number of consecutive empty reads tolerated.
	MaxEmptyFrames int
	LogEvery       int
	EmptyBackoff   time.Duration
}

// DefaultConfig returns the loop defaults.
func DefaultConfig() Config {
	return Config{
		MaxEmptyFrames: source.DefaultMaxEmptyFrames,
		LogEvery:       DefaultLogEvery,
		EmptyBackoff:   DefaultEmptyBackoff,
	}
}

// Option configures an App.
type Option func(*App)

// WithBroadcasters adds observation consumers, called in order.
func WithBroadcasters(b ...Broadcaster) Option {
	return func(a *App) { a.broadcasters = append(a.broadcasters, b...) }
}

// WithFrameSinks adds consumers of the annotated frame.
func WithFrameSinks(s ...FrameSink) Option {
	return func(a *App) { a.sinks = append(a.sinks, s...) }
}

// WithDisplay sets the preview surface. The default is NopDisplay.
func WithDisplay(d Display) Option {
	return func(a *App) { a.display = d }
}

// WithQuit stops the loop when quit is closed or receives a value.
func WithQuit(quit <-chan struct{}) Option {
	return func(a *App) { a.quit = quit }
}

// WithClosers registers resources released when the loop drains, in
// reverse order.
func WithClosers(c ...io.Closer) Option {
	return func(a *App) { a.closers = append(a.closers, c...) }
}

// WithOnConnect registers fn to run once the source is connected.
func WithOnConnect(fn func(src source.Source)) Option {
	return func(a *App) { a.onConnect = append(a.onConnect, fn) }
}

// App owns the frame loop and everything it drives.
type App struct {
	config       Config
	source       source.Source
	extractor    Extractor
	broadcasters []Broadcaster
	sinks        []FrameSink
	display      Display
	quit         <-chan struct{}
	closers      []io.Closer
	onConnect    []func(source.Source)
	log          *zap.Logger

	phase   atomic.Int32
	frames  atomic.Int64
	enabled atomic.Bool
	cleanup sync.Once
}

// New creates an App. Nothing is connected until Run.
func New(src source.Source, extractor Extractor, log *zap.Logger, config Config, opts ...Option) *App {
	if config.LogEvery <= 0 {
		config.LogEvery = DefaultLogEvery
	}
	if log == nil {
		log = zap.NewNop()
	}

	a := &App{
		config:    config,
		source:    src,
		extractor: extractor,
		display:   NopDisplay{},
		log:       log,
	}
	a.enabled.Store(true)

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetEnabled pauses or resumes tracking. While paused frames are still
// shown but nothing is extracted or broadcast.
func (a *App) SetEnabled(enabled bool) {
	if a.enabled.Swap(enabled) != enabled {
		a.log.Info("tracking toggled", zap.Bool("enabled", enabled))
	}
}

// IsEnabled returns whether tracking is currently enabled.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// Phase returns the loop's current phase.
func (a *App) Phase() Phase {
	return Phase(a.phase.Load())
}

// Frames returns the number of frames processed so far.
func (a *App) Frames() int {
	return int(a.frames.Load())
}

// Source returns the frame source.
func (a *App) Source() source.Source {
	return a.source
}

func (a *App) setPhase(p Phase) {
	a.phase.Store(int32(p))
	a.log.Debug("phase", zap.Stringer("phase", p))
}

// drain releases the source, the display and registered closers once.
func (a *App) drain() {
	a.cleanup.Do(func() {
		a.setPhase(Draining)
		a.log.Info("cleaning up")

		if err := a.source.Cleanup(); err != nil {
			a.log.Warn("source cleanup failed", zap.Error(err))
		}
		if err := a.display.Close(); err != nil {
			a.log.Warn("display close failed", zap.Error(err))
		}
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i].Close(); err != nil {
				a.log.Warn("close failed", zap.Error(err))
			}
		}

		a.setPhase(Terminated)
		a.log.Info("hand tracking stopped", zap.Int("frames", a.Frames()))
	})
}
