package source

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/ndi"
)

// FrameReceiver is the part of ndi.Receiver the network source uses.
type FrameReceiver interface {
	Connect(ctx context.Context, src ndi.SourceInfo) error
	Latest() (ndi.VideoFrame, bool)
	IsConnected() bool
	Close() error
}

// NetworkConfig configures a NetworkSource.
type NetworkConfig struct {
	// Name selects a source by full name, stream name or substring.
	// Empty takes the first discovered source.
	Name             string
	DiscoveryTimeout time.Duration
}

// NetworkSource reads frames from an NDI stream.
type NetworkSource struct {
	config   NetworkConfig
	finder   ndi.Finder
	receiver FrameReceiver
	log      *zap.Logger

	mu       sync.Mutex
	selected ndi.SourceInfo
	lost     bool
	closed   bool
}

// NewNetwork creates a network source. It does nothing until Connect.
func NewNetwork(config NetworkConfig, finder ndi.Finder, receiver FrameReceiver, log *zap.Logger) *NetworkSource {
	if config.DiscoveryTimeout <= 0 {
		config.DiscoveryTimeout = ndi.DefaultDiscoveryTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &NetworkSource{
		config:   config,
		finder:   finder,
		receiver: receiver,
		log:      log,
	}
}

// Connect discovers sources, selects one and waits for its first frame.
func (n *NetworkSource) Connect(ctx context.Context) error {
	n.log.Info("searching for NDI sources", zap.Duration("timeout", n.config.DiscoveryTimeout))

	findCtx, cancel := context.WithTimeout(ctx, n.config.DiscoveryTimeout)
	sources, err := n.finder.Find(findCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("discover ndi sources: %w", err)
	}

	for i, s := range sources {
		n.log.Info("found NDI source", zap.Int("index", i), zap.String("name", s.Name))
	}

	src, matched, err := ndi.Select(sources, n.config.Name)
	if err != nil {
		return err
	}
	if !matched {
		n.log.Warn("requested NDI source not found, using first source",
			zap.String("requested", n.config.Name),
			zap.String("using", src.Name))
	}

	if err := n.receiver.Connect(ctx, src); err != nil {
		return fmt.Errorf("connect to %q: %w", src.Name, err)
	}

	n.mu.Lock()
	n.selected = src
	n.lost = false
	n.mu.Unlock()

	n.log.Info("connected to NDI source", zap.String("name", src.Name))
	return nil
}

// Frame converts the receiver's latest frame to BGR. Frames in an
// unsupported layout are dropped.
func (n *NetworkSource) Frame() (*gocv.Mat, bool) {
	if !n.receiver.IsConnected() {
		n.mu.Lock()
		if !n.lost && !n.closed {
			n.log.Warn("NDI source disconnected", zap.String("name", n.selected.Name))
		}
		n.lost = true
		n.mu.Unlock()
		return nil, false
	}

	f, ok := n.receiver.Latest()
	if !ok {
		return nil, false
	}

	mat, err := f.ToBGR()
	if err != nil {
		mat.Close()
		n.log.Debug("dropping frame", zap.Stringer("fourcc", f.FourCC), zap.Error(err))
		return nil, false
	}
	return &mat, true
}

func (n *NetworkSource) IsConnected() bool { return n.receiver.IsConnected() }

func (n *NetworkSource) Mode() Mode { return Network }

func (n *NetworkSource) Describe() string { return "NDI" }

// Selected returns the source chosen by Connect.
func (n *NetworkSource) Selected() ndi.SourceInfo {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.selected
}

func (n *NetworkSource) Cleanup() error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	return n.receiver.Close()
}
