package device

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// LineWriter is a write-only Device that copies every line to w.
// It never replies, which the protocol tolerates. Used for dry runs.
type LineWriter struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewLineWriter creates a LineWriter over w.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

// WriterOpener returns an Opener that always yields a LineWriter over w.
func WriterOpener(w io.Writer) Opener {
	return func() (Device, error) {
		return NewLineWriter(w), nil
	}
}

// WriteLine writes s followed by '\n'.
func (l *LineWriter) WriteLine(s string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrUnavailable
	}
	_, err := fmt.Fprintln(l.w, s)
	return err
}

// TryReadLine never returns a line.
func (l *LineWriter) TryReadLine(timeout time.Duration) (string, bool, error) {
	return "", false, nil
}

// Close marks the writer closed. The underlying writer is left open.
func (l *LineWriter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
