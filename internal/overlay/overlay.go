// Package overlay draws hand tracking annotations onto preview frames.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/hand"
)

var (
	white    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	green    = color.RGBA{G: 255, A: 255}
	blue     = color.RGBA{B: 255, A: 255}
	yellow   = color.RGBA{R: 255, G: 255, A: 255}
	cyan     = color.RGBA{G: 255, B: 255, A: 255}
	red      = color.RGBA{R: 255, A: 255}
	boneGray = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// Status is the text shown in the top bar.
type Status struct {
	Source string
	Frame  int
	Hands  int
}

// StatusLine formats the top bar text.
func (s Status) StatusLine() string {
	return fmt.Sprintf("%s | Hands: %d | Frame: %d", s.Source, s.Hands, s.Frame)
}

// Draw annotates img in place.
func Draw(img *gocv.Mat, observations []hand.Observation, status Status) {
	if img == nil || img.Empty() {
		return
	}
	w, h := img.Cols(), img.Rows()

	for _, obs := range observations {
		drawSkeleton(img, obs.Landmarks, w, h)
	}

	for _, obs := range observations {
		drawPinch(img, obs)

		center := image.Pt(int(obs.Center.X*float64(w)), int(obs.Center.Y*float64(h)))
		gocv.Circle(img, center, 5, cyan, -1)

		drawInfo(img, obs)
	}

	gocv.PutText(img, status.StatusLine(), image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, white, 2)
	gocv.PutText(img, "Press 'q' to quit", image.Pt(10, 60), gocv.FontHersheySimplex, 0.6, white, 1)
	gocv.PutText(img, "OSC Broadcasting", image.Pt(10, 90), gocv.FontHersheySimplex, 0.5, green, 1)
}

func drawSkeleton(img *gocv.Mat, points []detector.Point3D, w, h int) {
	for _, c := range detector.HandConnections {
		if c[0] >= len(points) || c[1] >= len(points) {
			continue
		}
		gocv.Line(img, hand.ToPixel(points[c[0]], w, h), hand.ToPixel(points[c[1]], w, h), boneGray, 2)
	}
	for _, p := range points {
		gocv.Circle(img, hand.ToPixel(p, w, h), 3, red, -1)
	}
}

func drawPinch(img *gocv.Mat, obs hand.Observation) {
	segment, thickness := blue, 2
	if obs.IsPinching {
		segment, thickness = green, 3
	}

	gocv.Line(img, obs.ThumbTip, obs.IndexTip, segment, thickness)
	gocv.Circle(img, obs.ThumbTip, 8, yellow, -1)
	gocv.Circle(img, obs.IndexTip, 8, yellow, -1)
}

// drawInfo writes the per-hand text block, stacked by hand ID.
func drawInfo(img *gocv.Mat, obs hand.Observation) {
	y := 120 + obs.HandID*80

	gocv.PutText(img, fmt.Sprintf("Hand %d: (%.2f, %.2f)", obs.HandID, obs.Center.X, obs.Center.Y),
		image.Pt(10, y), gocv.FontHersheySimplex, 0.5, white, 1)
	gocv.PutText(img, fmt.Sprintf("  Pinch: %.3f @ %.1f deg", obs.PinchLength, obs.PinchAngle),
		image.Pt(10, y+20), gocv.FontHersheySimplex, 0.5, white, 1)
	if obs.IsPinching {
		gocv.PutText(img, "  PINCHING!", image.Pt(10, y+40), gocv.FontHersheySimplex, 0.5, green, 2)
	}
}
