// Package recording reads and writes landmark recordings: JSON lines with one
// object per video frame, {"points":[{"x":..,"y":..,"z":..}, ...]} when a hand
// was tracked and {} when none was.
package recording

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mimic/internal/detector"
)

// maxLine bounds one encoded frame.
const maxLine = 64 * 1024

// Entry is one recorded frame.
type Entry struct {
	Points []detector.Point3D `json:"points,omitempty"`
}

// HasHand reports whether a hand was tracked in this frame.
func (e Entry) HasHand() bool {
	return len(e.Points) > 0
}

// Reader decodes a recording one frame at a time.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 4096), maxLine)
	return &Reader{scanner: s}
}

// Next returns the next frame, or io.EOF at the end. Blank lines are skipped.
func (r *Reader) Next() (Entry, error) {
	for r.scanner.Scan() {
		r.line++
		b := r.scanner.Bytes()
		if len(bytes.TrimSpace(b)) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			return Entry{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return e, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Entry{}, err
	}
	return Entry{}, io.EOF
}

// ReadAll decodes every frame in r.
func ReadAll(r io.Reader) ([]Entry, error) {
	rd := NewReader(r)
	var entries []Entry
	for {
		e, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
}

// Load reads the recording at path.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAll(f)
}

// Writer appends frames to a recording.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriter creates a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: json.NewEncoder(w)}
}

// Write appends one frame. nil or empty points record a frame without a hand.
func (w *Writer) Write(points []detector.Point3D) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(Entry{Points: points})
}

// Detector replays a recording as a detector.Detector, one entry per Detect
// call. After the last entry it reports no hand.
type Detector struct {
	mu      sync.Mutex
	entries []Entry
	next    int
}

// NewDetector creates a Detector over entries.
func NewDetector(entries []Entry) *Detector {
	return &Detector{entries: entries}
}

// Detect ignores the frame and returns the next recorded hand, if any.
func (d *Detector) Detect(frame *gocv.Mat) ([]detector.HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.next >= len(d.entries) {
		return nil, nil
	}
	e := d.entries[d.next]
	d.next++
	if !e.HasHand() {
		return nil, nil
	}
	if len(e.Points) < detector.NumLandmarks {
		return nil, fmt.Errorf("recorded frame %d has %d points, want at least %d", d.next, len(e.Points), detector.NumLandmarks)
	}

	// Points past the hand landmarks are ignored, as angle.Extract does.
	var h detector.HandLandmarks
	copy(h.Points[:], e.Points)
	return []detector.HandLandmarks{h}, nil
}

// Remaining returns how many entries have not been replayed yet.
func (d *Detector) Remaining() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries) - d.next
}

// Close is a no-op.
func (d *Detector) Close() error {
	return nil
}
