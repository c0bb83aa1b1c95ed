package source

import (
	"context"
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back a scripted sequence of reads for testing. A nil
// entry in the sequence is an empty read.
type MockSource struct {
	mu         sync.Mutex
	mode       Mode
	label      string
	frames     []*gocv.Mat
	index      int
	loop       bool
	connectErr error
	connected  bool
	reads      int
	cleanups   int
}

func NewMockSource(mode Mode, frames []*gocv.Mat) *MockSource {
	return &MockSource{mode: mode, label: "Mock", frames: frames}
}

// SetConnectError makes Connect fail with err.
func (m *MockSource) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
}

// SetLoop restarts the sequence when it runs out instead of returning
// empty reads.
func (m *MockSource) SetLoop(loop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loop = loop
}

// SetLabel sets the Describe text.
func (m *MockSource) SetLabel(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.label = label
}

func (m *MockSource) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

func (m *MockSource) Frame() (*gocv.Mat, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil, false
	}
	m.reads++

	if m.index >= len(m.frames) {
		if !m.loop || len(m.frames) == 0 {
			return nil, false
		}
		m.index = 0
	}

	f := m.frames[m.index]
	m.index++
	if f == nil {
		return nil, false
	}

	clone := f.Clone()
	return &clone, true
}

func (m *MockSource) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockSource) Mode() Mode { return m.mode }

func (m *MockSource) Describe() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.label
}

func (m *MockSource) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.cleanups++
	return nil
}

// Reads returns the number of Frame calls made while connected.
func (m *MockSource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Cleanups returns the number of Cleanup calls.
func (m *MockSource) Cleanups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleanups
}
