package calibration

import (
	"errors"
	"fmt"

	"github.com/ayusman/mimic/internal/angle"
	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/finger"
)

// ErrFinished is returned when a finished session is used again.
var ErrFinished = errors.New("calibration session finished")

// State is the calibration session state.
type State int

const (
	// Idle observes frames without updating ranges.
	Idle State = iota
	// Calibrating folds every observed frame into the running ranges.
	Calibrating
	// Finished is terminal; the learned ranges have been reported.
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Calibrating:
		return "calibrating"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Seed values for the running min/max. Raw angles live in [0,180], so any
// real sample replaces them.
const (
	seedMin = 180.0
	seedMax = 0.0
)

// Result is the outcome of a calibration session.
type Result struct {
	Ranges  map[finger.Channel]Range
	Samples int
}

// Session learns per-channel raw-angle ranges from observed frames.
// It is not safe for concurrent use.
type Session struct {
	state   State
	min     finger.RawAngles
	max     finger.RawAngles
	samples int
	frames  int
}

// NewSession creates a session in the Idle state.
func NewSession() *Session {
	s := &Session{}
	for ch := range s.min {
		s.min[ch] = seedMin
		s.max[ch] = seedMax
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Start moves an idle session into Calibrating.
func (s *Session) Start() error {
	if s.state == Finished {
		return ErrFinished
	}
	s.state = Calibrating
	return nil
}

// Stop pauses a calibrating session back to Idle. Ranges are kept.
func (s *Session) Stop() error {
	if s.state == Finished {
		return ErrFinished
	}
	s.state = Idle
	return nil
}

// Toggle switches between Idle and Calibrating and returns the new state.
func (s *Session) Toggle() (State, error) {
	switch s.state {
	case Idle:
		s.state = Calibrating
	case Calibrating:
		s.state = Idle
	default:
		return s.state, ErrFinished
	}
	return s.state, nil
}

// Observe records one frame of raw angles. Ranges only change while
// Calibrating; idle frames are counted but otherwise ignored.
func (s *Session) Observe(raw finger.RawAngles) error {
	if s.state == Finished {
		return ErrFinished
	}
	s.frames++
	if s.state != Calibrating {
		return nil
	}

	for ch, v := range raw {
		if v < s.min[ch] {
			s.min[ch] = v
		}
		if v > s.max[ch] {
			s.max[ch] = v
		}
	}
	s.samples++
	return nil
}

// ObserveLandmarks extracts raw angles from points and observes them.
func (s *Session) ObserveLandmarks(points []detector.Point3D) (finger.RawAngles, error) {
	raw, err := angle.Extract(points)
	if err != nil {
		return raw, err
	}
	return raw, s.Observe(raw)
}

// Snapshot returns the ranges learned so far without finishing the session.
func (s *Session) Snapshot() Result {
	ranges := make(map[finger.Channel]Range, finger.NumChannels)
	for _, ch := range finger.All() {
		ranges[ch] = Range{Min: s.min[ch], Max: s.max[ch]}
	}
	return Result{Ranges: ranges, Samples: s.samples}
}

// Frames returns the number of frames observed in any non-terminal state.
func (s *Session) Frames() int {
	return s.frames
}

// Finish ends the session and reports the learned ranges. With no samples
// every range is still at its seed (Min 180, Max 0); callers should check
// Result.Samples before using it.
func (s *Session) Finish() (Result, error) {
	if s.state == Finished {
		return Result{}, ErrFinished
	}
	s.state = Finished
	return s.Snapshot(), nil
}
