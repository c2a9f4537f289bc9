// Package calibration maps raw joint angles onto the servo range of each
// finger and learns per-device angle ranges from a live stream.
package calibration

import (
	"math"

	"github.com/ayusman/mimic/internal/finger"
)

// Servo output limits.
const (
	ServoMin = 0
	ServoMax = 180
)

// Range is the raw-angle span of one channel and its mapping polarity.
//
// A non-inverted range maps Min to ServoMax and Max to ServoMin (closing a
// finger shrinks its raw angle). An inverted range maps Min to ServoMin and
// Max to ServoMax, which is how the thumb joints behave on the rig.
//
// Min must be below Max. When Min > Max the interpolation still runs and the
// output is still clamped, but the mapping direction flips. When Min == Max
// the mapping degenerates to a step at Min: raw values at or below Min map to
// the Min endpoint and values above it to the Max endpoint.
type Range struct {
	Min      float64 `json:"min" yaml:"min"`
	Max      float64 `json:"max" yaml:"max"`
	Inverted bool    `json:"inverted,omitempty" yaml:"inverted,omitempty"`
}

// DefaultRange is used for channels that have no configured range.
var DefaultRange = Range{Min: 120, Max: 170}

// endpoints returns the servo values that Min and Max map to.
func (r Range) endpoints() (atMin, atMax float64) {
	if r.Inverted {
		return ServoMin, ServoMax
	}
	return ServoMax, ServoMin
}

// Value maps a raw angle to a servo value clamped to [ServoMin, ServoMax].
// Inputs outside [Min, Max] are extrapolated before clamping. Rounding is to
// the nearest integer with halves away from zero.
func (r Range) Value(raw float64) int {
	atMin, atMax := r.endpoints()

	var v float64
	if r.Max == r.Min {
		if raw <= r.Min {
			v = atMin
		} else {
			v = atMax
		}
	} else {
		v = atMin + (raw-r.Min)*(atMax-atMin)/(r.Max-r.Min)
	}

	return clampServo(math.Round(v))
}

func clampServo(v float64) int {
	if math.IsNaN(v) || v < ServoMin {
		return ServoMin
	}
	if v > ServoMax {
		return ServoMax
	}
	return int(v)
}

// Map holds a Range per channel.
type Map struct {
	ranges [finger.NumChannels]Range
	set    [finger.NumChannels]bool
}

// NewMap builds a Map from per-channel ranges. Channels missing from ranges
// fall back to DefaultRange. A zero Range that is present is kept as is.
func NewMap(ranges map[finger.Channel]Range) *Map {
	m := &Map{}
	for ch, r := range ranges {
		if ch.Valid() {
			m.ranges[ch] = r
			m.set[ch] = true
		}
	}
	return m
}

// DefaultRanges returns the factory ranges of the reference rig.
func DefaultRanges() map[finger.Channel]Range {
	return map[finger.Channel]Range{
		finger.ThumbMCP: {Min: 154.0, Max: 180.0, Inverted: true},
		finger.ThumbIP:  {Min: 122.4, Max: 180.0, Inverted: true},
		finger.Index:    {Min: 11.5, Max: 180.0},
		finger.Middle:   {Min: 10.8, Max: 180.0},
		finger.Ring:     {Min: 13.8, Max: 177.6},
		finger.Pinky:    {Min: 24.9, Max: 174.1},
	}
}

// Range returns the effective range of ch.
func (m *Map) Range(ch finger.Channel) Range {
	if !ch.Valid() || !m.set[ch] {
		return DefaultRange
	}
	return m.ranges[ch]
}

// Ranges returns the effective range of every channel.
func (m *Map) Ranges() map[finger.Channel]Range {
	out := make(map[finger.Channel]Range, finger.NumChannels)
	for _, ch := range finger.All() {
		out[ch] = m.Range(ch)
	}
	return out
}

// Value maps raw for channel ch.
func (m *Map) Value(raw float64, ch finger.Channel) int {
	return m.Range(ch).Value(raw)
}

// ValueNamed maps raw for the channel called name. Unknown names use
// DefaultRange, non-inverted.
func (m *Map) ValueNamed(raw float64, name string) int {
	ch, err := finger.ParseChannel(name)
	if err != nil {
		return DefaultRange.Value(raw)
	}
	return m.Value(raw, ch)
}

// Apply maps every channel of raw.
func (m *Map) Apply(raw finger.RawAngles) finger.Actuators {
	var out finger.Actuators
	for ch, v := range raw {
		out[ch] = m.Value(v, finger.Channel(ch))
	}
	return out
}

// WithRanges returns a copy of m whose Min/Max are replaced by learned, keeping
// the polarity already configured in m. Channels absent from learned keep
// their current range.
func (m *Map) WithRanges(learned map[finger.Channel]Range) *Map {
	out := &Map{ranges: m.ranges, set: m.set}
	for ch, r := range learned {
		if !ch.Valid() {
			continue
		}
		out.ranges[ch] = Range{Min: r.Min, Max: r.Max, Inverted: m.Range(ch).Inverted}
		out.set[ch] = true
	}
	return out
}
