package hand

import (
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
)

// Extractor runs the landmark detector on frames and computes observations.
type Extractor struct {
	detector detector.Detector
	maxHands int
	log      *zap.Logger
}

// NewExtractor wraps d. maxHands caps the hands reported per frame; zero
// means no cap.
func NewExtractor(d detector.Detector, maxHands int, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{detector: d, maxHands: maxHands, log: log}
}

// Extract returns the observations for frame. Detection failures are
// logged and reported as no hands.
func (e *Extractor) Extract(frame *gocv.Mat) []Observation {
	if frame == nil || frame.Empty() {
		return []Observation{}
	}

	hands, err := e.detector.Detect(frame)
	if err != nil {
		e.log.Warn("hand detection failed", zap.Error(err))
		return []Observation{}
	}

	if e.maxHands > 0 && len(hands) > e.maxHands {
		hands = hands[:e.maxHands]
	}
	return FromLandmarks(hands, frame.Cols(), frame.Rows())
}

// Close releases the detector.
func (e *Extractor) Close() error {
	return e.detector.Close()
}
