// Package protocol encodes actuator commands for the hand controller and
// parses its replies. The link is line-delimited ASCII.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ayusman/mimic/internal/finger"
)

// ErrProtocolMismatch is returned for absent or unparseable device replies.
var ErrProtocolMismatch = errors.New("protocol mismatch")

// Control lines, without the trailing newline.
const (
	StartLine  = "start"
	StopLine   = "stop"
	StatusLine = "status"
)

// commandPrefix starts every actuator command.
const commandPrefix = "movefingers"

// Command is an encoded actuator command. The zero value is not valid.
type Command struct {
	values finger.Actuators
	line   string
}

// Encode builds the movefingers command for set, in wire channel order.
// Values are clamped to [0,180] so the line never carries a sign.
func Encode(set finger.Actuators) Command {
	var b strings.Builder
	b.Grow(len(commandPrefix) + finger.NumChannels*4)
	b.WriteString(commandPrefix)

	for i, v := range set {
		if v < 0 {
			v = 0
		} else if v > 180 {
			v = 180
		}
		set[i] = v
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(v))
	}

	return Command{values: set, line: b.String()}
}

// Values returns the actuator values carried by the command.
func (c Command) Values() finger.Actuators {
	return c.values
}

// Line returns the command without its trailing newline.
func (c Command) Line() string {
	return c.line
}

// Bytes returns the exact bytes to write, including the trailing newline.
func (c Command) Bytes() []byte {
	return append([]byte(c.line), '\n')
}

func (c Command) String() string {
	return c.line
}

// Decode parses a movefingers line back into actuator values.
// It accepts the line with or without a trailing newline.
func Decode(line string) (finger.Actuators, error) {
	var set finger.Actuators

	parts := strings.Split(strings.TrimRight(line, "\r\n"), ":")
	if len(parts) != finger.NumChannels+1 || parts[0] != commandPrefix {
		return set, fmt.Errorf("%w: not a movefingers command: %q", ErrProtocolMismatch, line)
	}

	for i, p := range parts[1:] {
		if p == "" || p[0] < '0' || p[0] > '9' || (len(p) > 1 && p[0] == '0') {
			return set, fmt.Errorf("%w: bad value %q for %s", ErrProtocolMismatch, p, finger.Channel(i))
		}
		v, err := strconv.Atoi(p)
		if err != nil || v > 180 {
			return set, fmt.Errorf("%w: bad value %q for %s", ErrProtocolMismatch, p, finger.Channel(i))
		}
		set[i] = v
	}
	return set, nil
}

// Ack is a reply line from the device. Replies are free-form; Fields splits
// the text on ':' for callers that recognize a particular firmware's format.
type Ack struct {
	Text   string
	Fields []string
}

// ParseAck parses one reply line. Empty replies and lines containing
// non-printable bytes yield ErrProtocolMismatch.
func ParseAck(line string) (Ack, error) {
	text := strings.TrimSpace(line)
	if text == "" {
		return Ack{}, fmt.Errorf("%w: empty reply", ErrProtocolMismatch)
	}
	for i := 0; i < len(text); i++ {
		if c := text[i]; c < 0x20 || c > 0x7e {
			return Ack{}, fmt.Errorf("%w: garbled reply %q", ErrProtocolMismatch, text)
		}
	}
	return Ack{Text: text, Fields: strings.Split(text, ":")}, nil
}
