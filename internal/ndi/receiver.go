package ndi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Receiver errors.
var (
	ErrNotConnected      = errors.New("ndi receiver not connected")
	ErrNoBridge          = errors.New("no ndi bridge command configured")
	ErrFirstFrameTimeout = errors.New("timed out waiting for first ndi frame")
)

// DefaultFirstFrameTimeout bounds the wait for the first frame after connecting.
const DefaultFirstFrameTimeout = 10 * time.Second

// ReceiverConfig configures a Receiver.
type ReceiverConfig struct {
	// Command starts the bridge; "--source <name>" is appended.
	Command []string
	// FirstFrameTimeout bounds Connect after the bridge has started.
	FirstFrameTimeout time.Duration
}

// Receiver pulls frames from an NDI bridge subprocess. A reader goroutine
// keeps the most recent frame; Latest never blocks.
type Receiver struct {
	config ReceiverConfig
	log    *zap.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	stream    io.ReadCloser
	latest    VideoFrame
	hasFrame  bool
	connected bool
	done      chan struct{}
	source    SourceInfo
}

// NewReceiver creates an unconnected receiver.
func NewReceiver(config ReceiverConfig, log *zap.Logger) *Receiver {
	if config.FirstFrameTimeout <= 0 {
		config.FirstFrameTimeout = DefaultFirstFrameTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Receiver{
		config: config,
		log:    log,
	}
}

// Connect starts the bridge for src and waits for its first frame.
func (r *Receiver) Connect(ctx context.Context, src SourceInfo) error {
	if len(r.config.Command) == 0 {
		return ErrNoBridge
	}

	args := append(append([]string{}, r.config.Command[1:]...), "--source", src.Name)
	cmd := exec.Command(r.config.Command[0], args...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ndi bridge: %w", err)
	}

	r.mu.Lock()
	r.cmd = cmd
	r.source = src
	r.mu.Unlock()

	if err := r.attach(ctx, stdout); err != nil {
		r.Close()
		return err
	}

	r.log.Info("ndi receiver connected", zap.String("source", src.Name))
	return nil
}

// attach starts reading frames from stream and waits for the first one.
func (r *Receiver) attach(ctx context.Context, stream io.ReadCloser) error {
	done := make(chan struct{})
	first := make(chan struct{})

	r.mu.Lock()
	r.stream = stream
	r.done = done
	r.hasFrame = false
	r.mu.Unlock()

	go r.readLoop(stream, done, first)

	timer := time.NewTimer(r.config.FirstFrameTimeout)
	defer timer.Stop()

	select {
	case <-first:
		// readLoop may already have seen EOF after the first frame.
		if !r.IsConnected() {
			return fmt.Errorf("%w: bridge stream ended after first frame", ErrNotConnected)
		}
		return nil
	case <-done:
		return fmt.Errorf("%w: bridge stream ended before first frame", ErrNotConnected)
	case <-timer.C:
		return ErrFirstFrameTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Receiver) readLoop(stream io.Reader, done, first chan struct{}) {
	defer close(done)
	defer func() {
		r.mu.Lock()
		r.connected = false
		r.mu.Unlock()
	}()

	var once sync.Once
	for {
		f, err := ReadFrame(stream)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				r.log.Warn("ndi stream ended", zap.Error(err))
			}
			return
		}
		if f.Width == 0 || f.Height == 0 || len(f.Data) == 0 {
			continue
		}

		r.mu.Lock()
		r.latest = f
		r.hasFrame = true
		r.connected = true
		r.mu.Unlock()

		once.Do(func() { close(first) })
	}
}

// Latest returns the most recent frame. The same frame is returned again
// until a newer one arrives, matching NDI frame-sync semantics.
func (r *Receiver) Latest() (VideoFrame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.connected || !r.hasFrame {
		return VideoFrame{}, false
	}
	return r.latest, true
}

// IsConnected reports whether the bridge is still delivering frames.
func (r *Receiver) IsConnected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected
}

// Source returns the source passed to the last Connect.
func (r *Receiver) Source() SourceInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.source
}

// Close stops the bridge and waits for the reader to exit. It is safe to
// call more than once.
func (r *Receiver) Close() error {
	r.mu.Lock()
	cmd, stream, done := r.cmd, r.stream, r.done
	r.cmd, r.stream, r.done = nil, nil, nil
	r.connected = false
	r.hasFrame = false
	r.mu.Unlock()

	var err error
	if cmd != nil {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
		cmd.Wait()
	} else if stream != nil {
		err = stream.Close()
	}

	if done != nil {
		<-done
	}
	return err
}
