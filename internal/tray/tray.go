// Package tray provides a system tray interface for handvolume. Its menu
// items raise the operator signals, and it shows the loop's live state.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/handvolume/internal/control"
	"github.com/ayusman/handvolume/internal/input"
)

// Tray represents the system tray application.
type Tray struct {
	title  string
	latch  *input.Latch
	onQuit func()
	mu     sync.RWMutex

	// Menu items stored for later updates
	menuStatus *systray.MenuItem
	menuLevel  *systray.MenuItem

	status string
	level  string
}

// New creates a new Tray whose menu items trigger latch.
func New(title string, latch *input.Latch) *Tray {
	return &Tray{
		title:  title,
		latch:  latch,
		status: StatusLabel(control.Frame{Phase: control.CalibratingMin}),
		level:  LevelLabel(control.Frame{}),
	}
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application and calls started once the menu
// exists. It blocks until Quit is called and must run on the main thread.
func (t *Tray) Run(started func()) {
	systray.Run(func() {
		t.onReady()
		if started != nil {
			started()
		}
	}, t.onExit)
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle(t.title)
	systray.SetTooltip("Hand gesture volume control")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(t.status, "Current phase")
	t.menuStatus.Disable()
	t.menuLevel = systray.AddMenuItem(t.level, "Current volume")
	t.menuLevel.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuMin := systray.AddMenuItem("Confirm min (fist)", "Record the closed-hand distance")
	menuMax := systray.AddMenuItem("Confirm max (open hand)", "Record the open-hand distance")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit handvolume")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuMin.ClickedCh:
				t.handleConfirmMin()
			case <-menuMax.ClickedCh:
				t.handleConfirmMax()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
	t.mu.Lock()
	t.menuStatus = nil
	t.menuLevel = nil
	t.mu.Unlock()
}

func (t *Tray) handleConfirmMin() {
	t.latch.Trigger(control.Signals{ConfirmMin: true})
}

func (t *Tray) handleConfirmMax() {
	t.latch.Trigger(control.Signals{ConfirmMax: true})
}

// handleQuit raises the quit signal and runs the quit callback. The tray
// itself stays up until Quit so the loop can finish its last frame.
func (t *Tray) handleQuit() {
	t.latch.Trigger(control.Signals{Quit: true})

	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// ObserveFrame refreshes the status and level items. Titles are only
// rewritten when their text changes.
func (t *Tray) ObserveFrame(f control.Frame) {
	status := StatusLabel(f)
	level := t.level
	if f.Applied {
		level = LevelLabel(f)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if status != t.status {
		t.status = status
		if t.menuStatus != nil {
			t.menuStatus.SetTitle(status)
		}
	}
	if level != t.level {
		t.level = level
		if t.menuLevel != nil {
			t.menuLevel.SetTitle(level)
		}
	}
}

// Labels returns the current status and level texts.
func (t *Tray) Labels() (status, level string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status, t.level
}

// StatusLabel describes f's phase for the menu.
func StatusLabel(f control.Frame) string {
	switch f.Phase {
	case control.CalibratingMin, control.CalibratingMax:
		prompt := f.Prompt
		if prompt == "" {
			prompt = "Calibrating"
		}
		return fmt.Sprintf("%s, %d samples", prompt, f.Samples)
	case control.Running:
		return "Running"
	default:
		return "Stopped"
	}
}

// LevelLabel shows the applied level of f, or a placeholder before any.
func LevelLabel(f control.Frame) string {
	if !f.Applied {
		return "Volume: -"
	}
	return fmt.Sprintf("Volume: %d%%", f.AdjustedPercent)
}
