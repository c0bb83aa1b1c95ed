// Package tray provides a system tray interface for the mudra hand tracker.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/hand"
)

// menuItem is the part of *systray.MenuItem the tray updates.
type menuItem interface {
	SetTitle(title string)
}

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onQuit   func()
	enabled  bool
	hands    int
	status   string
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle menuItem
	menuStatus menuItem
	menuHands  menuItem
}

// New creates a new Tray instance with tracking enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
		status:  "Connecting...",
	}
}

// OnToggle sets the callback function to be called when tracking is paused or resumed.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called and must run on the main thread.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray event loop.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra Hand Tracking")

	t.mu.Lock()
	status := systray.AddMenuItem(t.status, "Frame source")
	status.Disable()
	t.menuStatus = status

	hands := systray.AddMenuItem(handsTitle(t.hands), "Hands in the last frame")
	hands.Disable()
	t.menuHands = hands
	systray.AddSeparator()

	toggle := systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume hand tracking")
	t.menuToggle = toggle
	t.mu.Unlock()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-toggle.ClickedCh:
				t.handleToggle()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle flips the enabled state and notifies the toggle callback.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetStatus updates the source line in the menu.
func (t *Tray) SetStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = status
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(status)
	}
}

// Broadcast shows the hand count of the latest frame. The menu is only
// touched when the count changes.
func (t *Tray) Broadcast(observations []hand.Observation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(observations) == t.hands {
		return
	}
	t.hands = len(observations)
	if t.menuHands != nil {
		t.menuHands.SetTitle(handsTitle(t.hands))
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Hands returns the hand count last shown.
func (t *Tray) Hands() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hands
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}

func handsTitle(n int) string {
	return fmt.Sprintf("Hands: %d", n)
}
