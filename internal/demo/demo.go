// Package demo generates synthetic hand observations for testing OSC
// receivers without a video source.
package demo

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/hand"
)

// DefaultFPS is the synthetic frame rate.
const DefaultFPS = 30

// Broadcaster receives each synthetic frame.
type Broadcaster interface {
	Broadcast(observations []hand.Observation)
}

// Frame returns the observations for frame n at elapsed time t. Hand 0
// circles the center while its pinch length oscillates; hand 1 is present
// for the first half of every 60 frames.
func Frame(t time.Duration, n int) []hand.Observation {
	s := t.Seconds()

	length := 0.1 + 0.05*math.Sin(s*2)
	observations := []hand.Observation{{
		HandID:      0,
		Center:      hand.Point{X: 0.5 + 0.3*math.Cos(s), Y: 0.5 + 0.3*math.Sin(s)},
		PinchLength: length,
		PinchAngle:  math.Mod(s*45, 360) - 180,
		IsPinching:  hand.IsPinching(length),
	}}

	if n%60 < 30 {
		observations = append(observations, hand.Observation{
			HandID:      1,
			Center:      hand.Point{X: 0.5 - 0.2*math.Cos(s*0.5), Y: 0.5 + 0.2*math.Sin(s*0.5)},
			PinchLength: 0.15,
			PinchAngle:  45,
		})
	}
	return observations
}

// Run broadcasts synthetic frames at fps until duration elapses or ctx is
// done, and returns the number of frames sent.
func Run(ctx context.Context, b Broadcaster, duration time.Duration, fps int, log *zap.Logger) int {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if log == nil {
		log = zap.NewNop()
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	start := time.Now()
	deadline := time.NewTimer(duration)
	defer deadline.Stop()

	frames := 0
	for {
		elapsed := time.Since(start)
		observations := Frame(elapsed, frames)
		b.Broadcast(observations)
		frames++

		if frames%fps == 0 {
			h := observations[0]
			log.Info("demo frame",
				zap.Int("frame", frames),
				zap.Duration("elapsed", elapsed.Round(100*time.Millisecond)),
				zap.Float64("x", h.Center.X),
				zap.Float64("y", h.Center.Y),
				zap.Float64("pinch", h.PinchLength))
		}

		select {
		case <-ctx.Done():
			return frames
		case <-deadline.C:
			return frames
		case <-ticker.C:
		}
	}
}
