// Package device implements the serial transport to the hand controller.
// It abstracts line-based reads and writes so the pipeline can run against a
// real port, a dry-run writer or a test fake.
package device

import (
	"errors"
	"time"
)

// ErrUnavailable is returned when the transport is absent or has dropped.
var ErrUnavailable = errors.New("transport unavailable")

// Device is a line-delimited, exclusively owned channel to the controller.
type Device interface {
	// WriteLine writes s followed by '\n'.
	WriteLine(s string) error

	// TryReadLine waits at most timeout for one line. ok is false when no
	// complete line arrived in time; that is not an error.
	TryReadLine(timeout time.Duration) (line string, ok bool, err error)

	// Close closes the device and releases underlying resources.
	Close() error
}

// Opener opens a fresh Device. It is called once per connection attempt.
type Opener func() (Device, error)
