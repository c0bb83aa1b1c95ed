package app

import (
	"gocv.io/x/gocv"
)

// Display shows frames and reports quit requests.
type Display interface {
	Show(frame *gocv.Mat)
	// PollQuit services the display's event loop once and reports whether
	// the user asked to quit.
	PollQuit() bool
	Close() error
}

// NopDisplay is used when running headless.
type NopDisplay struct{}

func (NopDisplay) Show(*gocv.Mat) {}
func (NopDisplay) PollQuit() bool { return false }
func (NopDisplay) Close() error   { return nil }

// Keys that quit the preview window.
const (
	keyQuit   = 'q'
	keyEscape = 27
)

// WindowDisplay shows frames in an OpenCV window.
type WindowDisplay struct {
	window *gocv.Window
}

// NewWindowDisplay opens a window with the given title.
func NewWindowDisplay(title string) *WindowDisplay {
	return &WindowDisplay{window: gocv.NewWindow(title)}
}

func (d *WindowDisplay) Show(frame *gocv.Mat) {
	d.window.IMShow(*frame)
}

func (d *WindowDisplay) PollQuit() bool {
	key := d.window.WaitKey(1) & 0xFF
	return key == keyQuit || key == keyEscape
}

func (d *WindowDisplay) Close() error {
	return d.window.Close()
}
