// Package source provides the frame sources the tracker reads from: an NDI
// network stream, a local camera, and an ordered fallback over both.
package source

import (
	"context"
	"errors"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/ndi"
)

// DefaultMaxEmptyFrames is the number of consecutive empty reads tolerated
// before a source is considered lost.
const DefaultMaxEmptyFrames = 100

var (
	// ErrConnect is returned when no candidate source could be connected.
	ErrConnect = errors.New("no video source available")
	// ErrNoSources is returned when discovery finds no NDI sources.
	ErrNoSources = ndi.ErrNoSources
)

// Mode describes where frames are coming from.
type Mode int

const (
	Disconnected Mode = iota
	Network
	LocalCamera
)

func (m Mode) String() string {
	switch m {
	case Network:
		return "NETWORK"
	case LocalCamera:
		return "LOCAL_CAMERA"
	default:
		return "DISCONNECTED"
	}
}

// Source delivers BGR frames to the frame loop.
type Source interface {
	// Connect acquires the underlying device or stream.
	Connect(ctx context.Context) error
	// Frame returns the next frame, or false if none is available right
	// now. It never blocks indefinitely. The caller closes the Mat.
	Frame() (*gocv.Mat, bool)
	IsConnected() bool
	Mode() Mode
	// Describe returns a short label for status text.
	Describe() string
	// Cleanup releases the source. It is safe to call more than once.
	Cleanup() error
}

// State tracks consecutive empty reads against a ceiling.
type State struct {
	mode    Mode
	ceiling int
	empty   int
}

// NewState returns a tracker for a source in mode. A non-positive ceiling
// uses DefaultMaxEmptyFrames.
func NewState(mode Mode, ceiling int) *State {
	if ceiling <= 0 {
		ceiling = DefaultMaxEmptyFrames
	}
	return &State{mode: mode, ceiling: ceiling}
}

// Observe records the result of one read. It reports true once the number
// of consecutive empty reads exceeds the ceiling, after which the mode is
// Disconnected.
func (s *State) Observe(gotFrame bool) bool {
	if gotFrame {
		s.empty = 0
		return false
	}

	s.empty++
	if s.empty > s.ceiling {
		s.mode = Disconnected
		return true
	}
	return false
}

func (s *State) Mode() Mode            { return s.mode }
func (s *State) ConsecutiveEmpty() int { return s.empty }
func (s *State) Ceiling() int          { return s.ceiling }
