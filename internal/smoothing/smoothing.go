// Package smoothing applies exponential smoothing to actuator values across frames.
package smoothing

import (
	"fmt"
	"math"

	"github.com/ayusman/mimic/internal/finger"
)

// DefaultFactor is the weight given to the previous smoothed value.
const DefaultFactor = 0.7

// Smoother keeps the previously smoothed actuator set and blends each new
// reading into it. Higher factors lag more and jitter less.
type Smoother struct {
	factor float64
	prev   finger.Actuators
	primed bool
}

// New creates a Smoother. factor must be in [0,1).
func New(factor float64) (*Smoother, error) {
	if err := ValidateFactor(factor); err != nil {
		return nil, err
	}
	return &Smoother{factor: factor}, nil
}

// ValidateFactor reports whether factor is a usable smoothing factor.
func ValidateFactor(factor float64) error {
	if math.IsNaN(factor) || factor < 0 || factor >= 1 {
		return fmt.Errorf("smoothing factor must be in [0,1), got %v", factor)
	}
	return nil
}

// Factor returns the configured smoothing factor.
func (s *Smoother) Factor() float64 {
	return s.factor
}

// Smooth blends current into the running state and returns the result.
// The first reading passes through unchanged. The stored state is always the
// smoothed output, so the blend compounds over the whole session.
func (s *Smoother) Smooth(current finger.Actuators) finger.Actuators {
	if !s.primed {
		s.prev = current
		s.primed = true
		return current
	}

	var out finger.Actuators
	for ch := range current {
		v := s.factor*float64(s.prev[ch]) + (1-s.factor)*float64(current[ch])
		out[ch] = int(math.Round(v))
	}
	s.prev = out
	return out
}

// Previous returns the last smoothed set and whether one exists.
func (s *Smoother) Previous() (finger.Actuators, bool) {
	return s.prev, s.primed
}

// Reset discards the running state.
func (s *Smoother) Reset() {
	s.prev = finger.Actuators{}
	s.primed = false
}
