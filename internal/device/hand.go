package device

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/mimic/internal/protocol"
)

// Options controls handshake timing and reconnection.
type Options struct {
	// ResetDelay is waited after opening; the controller resets on open.
	ResetDelay time.Duration
	// HandshakeWait bounds the reply read after start, stop and status.
	HandshakeWait time.Duration
	// AckWait bounds the reply read after each movefingers command.
	AckWait time.Duration
	// ReconnectInterval is the minimum time between reopen attempts while
	// the transport is down. Zero disables reconnection.
	ReconnectInterval time.Duration
}

// DefaultOptions returns the timings used with the reference controller.
func DefaultOptions() Options {
	return Options{
		ResetDelay:        2 * time.Second,
		HandshakeWait:     500 * time.Millisecond,
		AckWait:           100 * time.Millisecond,
		ReconnectInterval: 5 * time.Second,
	}
}

// Hand is a session with the robotic hand controller. It owns one Device at
// a time, performs the start/stop handshake and degrades to "not sent" when
// the transport is missing or drops.
type Hand struct {
	mu      sync.Mutex
	open    Opener
	opts    Options
	dev     Device
	tried   bool
	lastTry time.Time
	lastAck *protocol.Ack

	now   func() time.Time
	sleep func(time.Duration)
}

// NewHand creates a Hand that connects through open.
func NewHand(open Opener, opts Options) *Hand {
	return &Hand{
		open:  open,
		opts:  opts,
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// NewSerialHand creates a Hand on the serial port at addr.
func NewSerialHand(addr string, baud int, opts Options) *Hand {
	return NewHand(SerialOpener(addr, baud), opts)
}

// Open connects and performs the start handshake. A missing reply is logged
// and tolerated. Open on a connected Hand is a no-op.
func (h *Hand) Open() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connect()
}

func (h *Hand) connect() error {
	if h.dev != nil {
		return nil
	}

	h.tried = true
	h.lastTry = h.now()

	dev, err := h.open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if h.opts.ResetDelay > 0 {
		h.sleep(h.opts.ResetDelay)
	}

	if err := dev.WriteLine(protocol.StartLine); err != nil {
		dev.Close()
		return fmt.Errorf("%w: write start: %v", ErrUnavailable, err)
	}
	h.dev = dev
	log.Println("Hand controller connected")

	h.readReply(protocol.StartLine, h.opts.HandshakeWait)
	return nil
}

// Available reports whether a transport is currently open.
func (h *Hand) Available() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dev != nil
}

// Send writes cmd and reads an optional acknowledgement. It returns false,
// without error, when the transport is unavailable or the write fails; the
// caller keeps its gate state untouched in that case.
func (h *Hand) Send(cmd protocol.Command) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dev == nil && !h.reconnect() {
		return false
	}

	if err := h.dev.WriteLine(cmd.Line()); err != nil {
		log.Printf("Hand write failed, transport unavailable: %v", err)
		h.drop()
		return false
	}

	h.readReply("movefingers", h.opts.AckWait)
	return true
}

// reconnect tries to reopen the transport if the reconnect interval allows.
func (h *Hand) reconnect() bool {
	if h.tried && h.opts.ReconnectInterval <= 0 {
		return false
	}
	if h.tried && h.now().Sub(h.lastTry) < h.opts.ReconnectInterval {
		return false
	}
	if err := h.connect(); err != nil {
		log.Printf("Hand reconnect failed: %v", err)
		return false
	}
	return true
}

func (h *Hand) drop() {
	if h.dev == nil {
		return
	}
	if err := h.dev.Close(); err != nil {
		log.Printf("Error closing hand transport: %v", err)
	}
	h.dev = nil
	h.lastTry = h.now()
}

// readReply reads and logs one reply line. Replies are diagnostic only.
func (h *Hand) readReply(after string, wait time.Duration) {
	if wait <= 0 {
		return
	}
	line, ok, err := h.dev.TryReadLine(wait)
	if err != nil {
		log.Printf("Hand reply read after %s failed: %v", after, err)
		return
	}
	if !ok {
		return
	}
	ack, err := protocol.ParseAck(line)
	if err != nil {
		log.Printf("Hand reply after %s ignored: %v", after, err)
		return
	}
	h.lastAck = &ack
	log.Printf("Hand reply after %s: %s", after, ack.Text)
}

// LastAck returns the most recent valid reply from the controller.
func (h *Hand) LastAck() (protocol.Ack, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastAck == nil {
		return protocol.Ack{}, false
	}
	return *h.lastAck, true
}

// Close sends the stop line, waits briefly for a reply and releases the
// transport. Closing an unavailable Hand is a no-op.
func (h *Hand) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dev == nil {
		return nil
	}

	if err := h.dev.WriteLine(protocol.StopLine); err != nil {
		log.Printf("Hand stop write failed: %v", err)
	} else {
		h.readReply(protocol.StopLine, h.opts.HandshakeWait)
	}

	err := h.dev.Close()
	h.dev = nil
	if err != nil {
		return fmt.Errorf("%w: close: %v", ErrUnavailable, err)
	}
	log.Println("Hand controller closed")
	return nil
}

// Probe sends the status line on the open transport and returns the reply.
// ok is false when the controller stayed silent.
func (h *Hand) Probe() (protocol.Ack, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.dev == nil {
		return protocol.Ack{}, false, ErrUnavailable
	}
	if err := h.dev.WriteLine(protocol.StatusLine); err != nil {
		h.drop()
		return protocol.Ack{}, false, fmt.Errorf("%w: write status: %v", ErrUnavailable, err)
	}
	line, ok, err := h.dev.TryReadLine(h.opts.HandshakeWait)
	if err != nil || !ok {
		return protocol.Ack{}, false, err
	}
	ack, err := protocol.ParseAck(line)
	if err != nil {
		return protocol.Ack{}, false, err
	}
	h.lastAck = &ack
	return ack, true, nil
}

// Probe opens a device, waits for its reset, sends the status line and
// returns the first reply. ok is false when the device stayed silent.
func Probe(open Opener, opts Options) (ack protocol.Ack, ok bool, err error) {
	dev, err := open()
	if err != nil {
		return ack, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		if cerr := dev.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if opts.ResetDelay > 0 {
		time.Sleep(opts.ResetDelay)
	}
	if err := dev.WriteLine(protocol.StatusLine); err != nil {
		return ack, false, fmt.Errorf("%w: write status: %v", ErrUnavailable, err)
	}

	line, got, err := dev.TryReadLine(opts.HandshakeWait)
	if err != nil {
		return ack, false, err
	}
	if !got {
		return ack, false, nil
	}
	ack, err = protocol.ParseAck(line)
	if err != nil {
		return ack, false, err
	}
	return ack, true, nil
}

// IsUnavailable reports whether err is a transport availability failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
