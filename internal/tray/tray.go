// Package tray provides a system tray menu for the mimic hand controller.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray menu.
type Tray struct {
	onToggle      func(enabled bool)
	onCalibrate   func() (calibrating bool)
	onSettings    func()
	onQuit        func()
	enabled       bool
	calibrating   bool
	mu            sync.RWMutex
	menuToggle    *systray.MenuItem
	menuCalibrate *systray.MenuItem
	menuCommand   *systray.MenuItem
	menuLink      *systray.MenuItem
}

// New creates a new Tray with actuation enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback run when actuation is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnCalibrate sets the callback run when calibration is toggled. It returns
// whether a session is now running.
func (t *Tray) OnCalibrate(fn func() bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCalibrate = fn
}

// OnSettings sets the callback run when the status page item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback run when quit is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu, e.g. on a signal.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Mimic")
	systray.SetTooltip("Mimic hand control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle hand actuation")
	t.menuCalibrate = systray.AddMenuItem(calibrateTitle(t.calibrating), "Start or stop range calibration")
	systray.AddSeparator()

	t.menuCommand = systray.AddMenuItem("Last: none", "Last command sent to the hand")
	t.menuCommand.Disable()
	t.menuLink = systray.AddMenuItem("Link: unknown", "Serial link state")
	t.menuLink.Disable()
	systray.AddSeparator()
	t.mu.Unlock()

	menuSettings := systray.AddMenuItem("Open Status Page...", "Open the status page in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Stop the hand and quit")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuCalibrate.ClickedCh:
				t.handleCalibrate()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Actuation on"
	}
	return "○ Actuation off"
}

func calibrateTitle(calibrating bool) string {
	if calibrating {
		return "Stop Calibration"
	}
	return "Start Calibration"
}

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

func (t *Tray) handleCalibrate() {
	t.mu.RLock()
	callback := t.onCalibrate
	t.mu.RUnlock()

	if callback == nil {
		return
	}
	t.SetCalibrating(callback())
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetCalibrating updates the calibration item.
func (t *Tray) SetCalibrating(calibrating bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calibrating = calibrating
	if t.menuCalibrate != nil {
		t.menuCalibrate.SetTitle(calibrateTitle(calibrating))
	}
}

// SetLastCommand updates the last command display.
func (t *Tray) SetLastCommand(line string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuCommand != nil {
		if line == "" {
			t.menuCommand.SetTitle("Last: none")
		} else {
			t.menuCommand.SetTitle("Last: " + line)
		}
	}
}

// SetAvailable updates the serial link display.
func (t *Tray) SetAvailable(available bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLink != nil {
		if available {
			t.menuLink.SetTitle("Link: connected")
		} else {
			t.menuLink.SetTitle("Link: disconnected")
		}
	}
}

// IsEnabled returns the current actuation state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// IsCalibrating returns the calibration state last shown.
func (t *Tray) IsCalibrating() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.calibrating
}
