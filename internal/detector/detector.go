package detector

import "gocv.io/x/gocv"

// Detector defines the interface for hand landmark detection implementations.
type Detector interface {
	// Detect analyzes a BGR video frame and returns detected hands in the
	// model's output order. Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// Script overrides the location of the MediaPipe service script.
	Script string

	// Python overrides the interpreter used to run the service script.
	Python string
}

// DefaultConfig returns a Config with the thresholds used for pinch tracking.
// Higher confidence than MediaPipe's defaults keeps false positives down.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.75,
		MinTrackingConf: 0.75,
	}
}
