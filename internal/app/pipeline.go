package app

import (
	"time"

	"github.com/ayusman/mimic/internal/angle"
	"github.com/ayusman/mimic/internal/calibration"
	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/finger"
	"github.com/ayusman/mimic/internal/gate"
	"github.com/ayusman/mimic/internal/protocol"
	"github.com/ayusman/mimic/internal/smoothing"
)

// Sender transmits commands to the hand. device.Hand implements it.
type Sender interface {
	// Send returns false when the command was not transmitted.
	Send(cmd protocol.Command) bool
	Available() bool
}

// Frame is the outcome of one pass through the pipeline.
type Frame struct {
	Seq  int64     `json:"seq"`
	Time time.Time `json:"time"`
	Hand bool      `json:"hand"`

	// Landmarks are the input points, kept for recording.
	Landmarks []detector.Point3D `json:"-"`

	Raw      finger.RawAngles `json:"raw"`
	Instant  finger.Actuators `json:"instant"`
	Smoothed finger.Actuators `json:"smoothed"`

	// Due is the gate decision; Sent is whether the transport accepted it.
	Due       bool   `json:"due"`
	Sent      bool   `json:"sent"`
	Command   string `json:"command,omitempty"`
	Available bool   `json:"available"`

	Calibration string `json:"calibration,omitempty"`
}

// Pipeline runs extraction, mapping, smoothing, gating and encoding for one
// hand and hands gated commands to a Sender. It owns the smoother and gate
// state and is not safe for concurrent use.
type Pipeline struct {
	mapping  *calibration.Map
	smoother *smoothing.Smoother
	gate     *gate.Gate
	sender   Sender
	seq      int64
	now      func() time.Time
}

// NewPipeline creates a Pipeline. A nil sender computes without actuating.
func NewPipeline(mapping *calibration.Map, smoother *smoothing.Smoother, g *gate.Gate, sender Sender) *Pipeline {
	return &Pipeline{
		mapping:  mapping,
		smoother: smoother,
		gate:     g,
		sender:   sender,
		now:      time.Now,
	}
}

// Process runs one frame of landmarks through the pipeline. On invalid input
// it returns the error and leaves all state untouched.
func (p *Pipeline) Process(points []detector.Point3D) (Frame, error) {
	raw, err := angle.Extract(points)
	if err != nil {
		return Frame{}, err
	}

	p.seq++
	f := Frame{
		Seq:       p.seq,
		Time:      p.now(),
		Hand:      true,
		Landmarks: points,
		Raw:       raw,
	}

	f.Instant = p.mapping.Apply(raw)
	f.Smoothed = p.smoother.Smooth(f.Instant)
	f.Due = p.gate.ShouldSend(f.Smoothed)

	if f.Due {
		cmd := protocol.Encode(f.Smoothed)
		f.Command = cmd.Line()
		if p.sender != nil && p.sender.Send(cmd) {
			p.gate.Sent(f.Smoothed)
			f.Sent = true
		} else {
			p.gate.Skipped()
		}
	} else {
		p.gate.Skipped()
	}

	f.Available = p.sender != nil && p.sender.Available()
	return f, nil
}

// Idle records a frame without a detected hand. No state changes.
func (p *Pipeline) Idle() Frame {
	p.seq++
	return Frame{
		Seq:       p.seq,
		Time:      p.now(),
		Available: p.sender != nil && p.sender.Available(),
	}
}

// Map returns the calibration map in use.
func (p *Pipeline) Map() *calibration.Map {
	return p.mapping
}

// SetMap replaces the calibration map. Smoothing state is kept so the hand
// eases into the new mapping.
func (p *Pipeline) SetMap(m *calibration.Map) {
	p.mapping = m
}

// GateState returns a copy of the gate state.
func (p *Pipeline) GateState() gate.State {
	return p.gate.State()
}

// Reset clears smoothing and gating state, as at session start.
func (p *Pipeline) Reset() {
	p.smoother.Reset()
	p.gate = gate.New(p.gate.Config())
}
