package demo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/hand"
)

type collector struct {
	mu     sync.Mutex
	frames [][]hand.Observation
}

func (c *collector) Broadcast(obs []hand.Observation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, obs)
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestFrame_Start(t *testing.T) {
	obs := Frame(0, 0)
	require.Len(t, obs, 2)

	h0 := obs[0]
	assert.Equal(t, 0, h0.HandID)
	assert.InDelta(t, 0.8, h0.Center.X, 1e-9)
	assert.InDelta(t, 0.5, h0.Center.Y, 1e-9)
	assert.InDelta(t, 0.1, h0.PinchLength, 1e-9)
	assert.InDelta(t, -180, h0.PinchAngle, 1e-9)
	assert.False(t, h0.IsPinching)

	h1 := obs[1]
	assert.Equal(t, 1, h1.HandID)
	assert.InDelta(t, 0.3, h1.Center.X, 1e-9)
	assert.Equal(t, 0.15, h1.PinchLength)
	assert.Equal(t, 45.0, h1.PinchAngle)
}

func TestFrame_SecondHandAlternates(t *testing.T) {
	assert.Len(t, Frame(time.Second, 29), 2)
	assert.Len(t, Frame(time.Second, 30), 1)
	assert.Len(t, Frame(time.Second, 59), 1)
	assert.Len(t, Frame(time.Second, 60), 2)
}

func TestFrame_StaysInRange(t *testing.T) {
	for i := 0; i < 600; i++ {
		for _, o := range Frame(time.Duration(i)*33*time.Millisecond, i) {
			assert.GreaterOrEqual(t, o.Center.X, 0.0)
			assert.LessOrEqual(t, o.Center.X, 1.0)
			assert.GreaterOrEqual(t, o.Center.Y, 0.0)
			assert.LessOrEqual(t, o.Center.Y, 1.0)
			assert.GreaterOrEqual(t, o.PinchAngle, -180.0)
			assert.Less(t, o.PinchAngle, 180.0)
		}
	}
}

func TestRun_StopsAfterDuration(t *testing.T) {
	c := &collector{}
	n := Run(context.Background(), c, 100*time.Millisecond, 100, nil)

	assert.Equal(t, n, c.len())
	assert.Greater(t, n, 1)
	assert.Less(t, n, 50)
}

func TestRun_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &collector{}
	n := Run(ctx, c, time.Hour, DefaultFPS, nil)
	assert.Equal(t, 1, n)
}
