// Package gate decides which smoothed actuator sets are worth transmitting.
package gate

import (
	"fmt"

	"github.com/ayusman/mimic/internal/finger"
)

// Defaults.
const (
	DefaultInterval  = 2
	DefaultThreshold = 5
)

// Config controls when a reading is sent.
type Config struct {
	// Interval forces a send once this many frames have passed without one.
	Interval int `yaml:"update_interval"`
	// Threshold sends immediately when any channel moved strictly more than
	// this since the last transmitted set.
	Threshold int `yaml:"threshold"`
}

// DefaultConfig returns the stock gating configuration.
func DefaultConfig() Config {
	return Config{Interval: DefaultInterval, Threshold: DefaultThreshold}
}

// Validate checks that c is usable.
func (c Config) Validate() error {
	if c.Interval < 1 {
		return fmt.Errorf("update interval must be >= 1, got %d", c.Interval)
	}
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be >= 0, got %d", c.Threshold)
	}
	return nil
}

// State is the gating state between frames.
type State struct {
	// FramesSinceSend counts frames that were not transmitted.
	FramesSinceSend int
	// LastSent is the last set that was actually transmitted.
	LastSent finger.Actuators
	// HasSent is false until the first successful transmission.
	HasSent bool
}

// ShouldSend reports whether set must be transmitted given st.
func (c Config) ShouldSend(st State, set finger.Actuators) bool {
	if !st.HasSent {
		return true
	}
	if st.FramesSinceSend >= c.Interval {
		return true
	}
	return set.MaxDelta(st.LastSent) > c.Threshold
}

// Gate pairs a Config with the State it decides over.
type Gate struct {
	config Config
	state  State
}

// New creates a Gate with empty state.
func New(config Config) *Gate {
	return &Gate{config: config}
}

// ShouldSend reports whether set must be transmitted this frame.
func (g *Gate) ShouldSend(set finger.Actuators) bool {
	return g.config.ShouldSend(g.state, set)
}

// Sent records a confirmed transmission of set.
func (g *Gate) Sent(set finger.Actuators) {
	g.state.FramesSinceSend = 0
	g.state.LastSent = set
	g.state.HasSent = true
}

// Skipped records a frame that did not result in a transmission.
func (g *Gate) Skipped() {
	g.state.FramesSinceSend++
}

// State returns a copy of the current state.
func (g *Gate) State() State {
	return g.state
}

// Config returns the gate configuration.
func (g *Gate) Config() Config {
	return g.config
}
