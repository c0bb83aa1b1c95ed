// Package hand turns detected landmarks into per-hand pinch observations.
package hand

import (
	"image"
	"math"

	"github.com/ayusman/mudra/internal/detector"
)

// PinchThreshold is the normalized thumb-index distance below which a hand
// is pinching.
const PinchThreshold = 0.05

// Point is a position in normalized image coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Observation holds the features computed for one hand in one frame.
type Observation struct {
	// HandID is the hand's position in the frame's detection order. It is
	// not tracked across frames.
	HandID      int     `json:"hand_id"`
	Center      Point   `json:"center"`
	PinchLength float64 `json:"pinch_length"`
	PinchAngle  float64 `json:"pinch_angle"`
	IsPinching  bool    `json:"is_pinching"`

	ThumbTip  image.Point        `json:"-"`
	IndexTip  image.Point        `json:"-"`
	Landmarks []detector.Point3D `json:"-"`
}

// Center returns the unweighted mean of the points.
func Center(points []detector.Point3D) Point {
	if len(points) == 0 {
		return Point{}
	}

	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point{X: sumX / n, Y: sumY / n}
}

// ToPixel converts a normalized point to pixel coordinates, truncating
// toward zero.
func ToPixel(p detector.Point3D, width, height int) image.Point {
	return image.Point{
		X: int(p.X * float64(width)),
		Y: int(p.Y * float64(height)),
	}
}

// Pinch returns the thumb-to-index distance divided by the frame diagonal,
// and the direction of the thumb-to-index vector in degrees. In image
// coordinates 0 points right and 90 points down.
func Pinch(thumb, index image.Point, width, height int) (length, angle float64) {
	dx := float64(index.X - thumb.X)
	dy := float64(index.Y - thumb.Y)

	diagonal := math.Hypot(float64(width), float64(height))
	if diagonal > 0 {
		length = math.Hypot(dx, dy) / diagonal
	}
	angle = math.Atan2(dy, dx) * 180 / math.Pi
	return length, angle
}

// IsPinching reports whether a normalized pinch length is a pinch.
func IsPinching(length float64) bool {
	return length < PinchThreshold
}

// Observe computes the observation for one hand. It reports false if the
// hand lacks the thumb or index tip.
func Observe(id int, hand detector.HandLandmarks, width, height int) (Observation, bool) {
	if !hand.Has(detector.ThumbTip) || !hand.Has(detector.IndexTip) {
		return Observation{}, false
	}

	thumb := ToPixel(hand.Points[detector.ThumbTip], width, height)
	index := ToPixel(hand.Points[detector.IndexTip], width, height)
	length, angle := Pinch(thumb, index, width, height)

	return Observation{
		HandID:      id,
		Center:      Center(hand.Points),
		PinchLength: length,
		PinchAngle:  angle,
		IsPinching:  IsPinching(length),
		ThumbTip:    thumb,
		IndexTip:    index,
		Landmarks:   hand.Points,
	}, true
}

// FromLandmarks builds observations for every usable hand, numbering them
// 0..n-1 in detection order.
func FromLandmarks(hands []detector.HandLandmarks, width, height int) []Observation {
	out := make([]Observation, 0, len(hands))
	for _, h := range hands {
		if obs, ok := Observe(len(out), h, width, height); ok {
			out = append(out, obs)
		}
	}
	return out
}
