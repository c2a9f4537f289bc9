// Package finger defines the six actuated finger channels of the robotic hand
// and the fixed-size value sets indexed by them.
package finger

import (
	"fmt"
	"strings"
)

// Channel identifies one tracked finger joint.
// The numeric order is the wire order of the movefingers command.
type Channel int

// Finger channels in wire order.
const (
	ThumbMCP Channel = iota
	ThumbIP
	Index
	Middle
	Ring
	Pinky
	NumChannels = 6
)

var channelNames = [NumChannels]string{
	ThumbMCP: "thumb_mcp",
	ThumbIP:  "thumb_ip",
	Index:    "index",
	Middle:   "middle",
	Ring:     "ring",
	Pinky:    "pinky",
}

// All returns every channel in wire order.
func All() []Channel {
	return []Channel{ThumbMCP, ThumbIP, Index, Middle, Ring, Pinky}
}

// String returns the configuration name of the channel (e.g. "thumb_mcp").
func (c Channel) String() string {
	if !c.Valid() {
		return fmt.Sprintf("channel(%d)", int(c))
	}
	return channelNames[c]
}

// Valid reports whether c is one of the six known channels.
func (c Channel) Valid() bool {
	return c >= 0 && c < NumChannels
}

// ParseChannel converts a channel name into a Channel.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseChannel(name string) (Channel, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for i, n := range channelNames {
		if n == normalized {
			return Channel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown finger channel %q", name)
}

// RawAngles holds one geometric joint angle in degrees per channel.
type RawAngles [NumChannels]float64

// Actuators holds one servo command in [0,180] per channel.
type Actuators [NumChannels]int

// Map returns the values keyed by channel name.
func (r RawAngles) Map() map[string]float64 {
	m := make(map[string]float64, NumChannels)
	for i, v := range r {
		m[channelNames[i]] = v
	}
	return m
}

// Map returns the values keyed by channel name.
func (a Actuators) Map() map[string]int {
	m := make(map[string]int, NumChannels)
	for i, v := range a {
		m[channelNames[i]] = v
	}
	return m
}

// MaxDelta returns the largest absolute per-channel difference between a and b.
func (a Actuators) MaxDelta(b Actuators) int {
	largest := 0
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		if d > largest {
			largest = d
		}
	}
	return largest
}
