package device

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	serial "go.bug.st/serial"
)

// maxPending bounds buffered bytes that never formed a complete line.
const maxPending = 4096

// Port is the subset of serial.Port used by SerialDevice.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// SerialDevice implements Device using go.bug.st/serial.
type SerialDevice struct {
	mu      sync.Mutex
	port    Port
	pending []byte
	buf     []byte
}

// OpenSerial opens a serial device with the given path and baudrate.
func OpenSerial(dev string, baud int) (*SerialDevice, error) {
	p, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial %s: %w", dev, err)
	}
	return NewSerialDevice(p), nil
}

// SerialOpener returns an Opener for the serial device at dev.
func SerialOpener(dev string, baud int) Opener {
	return func() (Device, error) {
		return OpenSerial(dev, baud)
	}
}

// NewSerialDevice wraps an already open port.
func NewSerialDevice(p Port) *SerialDevice {
	return &SerialDevice{port: p, buf: make([]byte, 256)}
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// WriteLine writes a single line followed by '\n' to the serial port.
func (s *SerialDevice) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return ErrUnavailable
	}
	_, err := s.port.Write(append([]byte(line), '\n'))
	return err
}

// TryReadLine reads one line, giving up after timeout. Partial lines are kept
// for the next call.
func (s *SerialDevice) TryReadLine(timeout time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return "", false, ErrUnavailable
	}
	if line, ok := s.takeLine(); ok {
		return line, true, nil
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", false, nil
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return "", false, err
		}

		n, err := s.port.Read(s.buf)
		if n > 0 {
			s.pending = append(s.pending, s.buf[:n]...)
			if line, ok := s.takeLine(); ok {
				return line, true, nil
			}
			if len(s.pending) > maxPending {
				s.pending = s.pending[:0]
			}
		}
		if err != nil {
			return "", false, err
		}
		// go.bug.st/serial reports a read timeout as (0, nil).
		if n == 0 {
			return "", false, nil
		}
	}
}

// takeLine pops the first complete line from pending, without its terminator.
func (s *SerialDevice) takeLine() (string, bool) {
	i := bytes.IndexByte(s.pending, '\n')
	if i < 0 {
		return "", false
	}
	line := string(bytes.TrimRight(s.pending[:i], "\r"))
	s.pending = append(s.pending[:0], s.pending[i+1:]...)
	return line, true
}

// Close closes the underlying serial connection.
func (s *SerialDevice) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.pending = nil
	return err
}
