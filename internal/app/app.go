// Package app drives the camera, the landmark detector and the angle pipeline
// that actuates the robotic hand.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/mimic/internal/calibration"
	"github.com/ayusman/mimic/internal/capture"
	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/gate"
	"github.com/ayusman/mimic/internal/smoothing"
)

// Actuator is the hand transport as seen by the App. device.Hand implements
// it. Close performs the stop handshake.
type Actuator interface {
	Sender
	Close() error
}

// Config holds the collaborators and tuning of an App.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector
	// Hand may be nil, in which case frames are computed but never sent.
	Hand Actuator

	Map       *calibration.Map
	Smoothing float64
	Gate      gate.Config
}

// FrameCallback receives every processed frame, in order, on the frame loop.
type FrameCallback func(Frame)

// App runs the frame loop.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	hand     Actuator

	enabled bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.RWMutex

	// pmu guards the pipeline, the calibration session and the latest frame.
	pmu       sync.Mutex
	pipeline  *Pipeline
	session   *calibration.Session
	latest    Frame
	available bool

	cbMu      sync.RWMutex
	callbacks []FrameCallback
}

// New creates an App. Camera and Detector are required.
func New(config Config) (*App, error) {
	if config.Camera == nil {
		return nil, errors.New("camera is required")
	}
	if config.Detector == nil {
		return nil, errors.New("detector is required")
	}
	if config.Map == nil {
		config.Map = calibration.NewMap(calibration.DefaultRanges())
	}
	if err := config.Gate.Validate(); err != nil {
		return nil, err
	}

	smoother, err := smoothing.New(config.Smoothing)
	if err != nil {
		return nil, err
	}

	var sender Sender
	if config.Hand != nil {
		sender = config.Hand
	}

	return &App{
		config:   config,
		camera:   config.Camera,
		detector: config.Detector,
		hand:     config.Hand,
		enabled:  true,
		pipeline: NewPipeline(config.Map, smoother, gate.New(config.Gate), sender),
		session:  calibration.NewSession(),
	}, nil
}

// SetEnabled pauses or resumes frame processing. While disabled no frames
// are read and nothing is sent; the hand keeps its last command.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled != enabled {
		log.Printf("Actuation enabled: %v", enabled)
	}
	a.enabled = enabled
}

// IsEnabled returns whether frame processing is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// OnFrame registers cb to receive every processed frame.
func (a *App) OnFrame(cb FrameCallback) {
	a.cbMu.Lock()
	defer a.cbMu.Unlock()
	a.callbacks = append(a.callbacks, cb)
}

// Start opens the camera and begins the frame loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runLoop(a.stopCh, a.doneCh)

	log.Println("Frame loop started")
	return nil
}

// Done is closed when the frame loop exits, either after Stop or because the
// camera ran out of frames. It is nil before Start.
func (a *App) Done() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.doneCh
}

// Stop ends the frame loop, waits for the frame in flight to finish and then
// releases the camera, the detector and the hand (sending the stop line).
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh = nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	if err := a.detector.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
	}
	if a.hand != nil {
		if err := a.hand.Close(); err != nil {
			log.Printf("Error closing hand: %v", err)
		}
	}

	log.Println("Frame loop stopped")
}

// Latest returns the most recently processed frame.
func (a *App) Latest() Frame {
	a.pmu.Lock()
	defer a.pmu.Unlock()
	return a.latest
}

// CalibrationState returns the state of the current calibration session.
func (a *App) CalibrationState() calibration.State {
	a.pmu.Lock()
	defer a.pmu.Unlock()
	return a.session.State()
}

// StartCalibration begins folding frames into the calibration ranges.
func (a *App) StartCalibration() error {
	a.pmu.Lock()
	defer a.pmu.Unlock()
	return a.session.Start()
}

// StopCalibration pauses range updates without finishing the session.
func (a *App) StopCalibration() error {
	a.pmu.Lock()
	defer a.pmu.Unlock()
	return a.session.Stop()
}

// ToggleCalibration flips the session between idle and calibrating. It is
// the external start/stop signal used by the tray and the HTTP API.
func (a *App) ToggleCalibration() (calibration.State, error) {
	a.pmu.Lock()
	defer a.pmu.Unlock()

	state, err := a.session.Toggle()
	if err == nil {
		log.Printf("Calibration %s", state)
	}
	return state, err
}

// CalibrationSnapshot returns the ranges learned so far.
func (a *App) CalibrationSnapshot() calibration.Result {
	a.pmu.Lock()
	defer a.pmu.Unlock()
	return a.session.Snapshot()
}

// FinishCalibration ends the current session and returns its result. When
// the session saw samples and apply is set, the learned ranges replace those
// of the live map, keeping each channel's polarity. A fresh idle session
// replaces the finished one.
func (a *App) FinishCalibration(apply bool) (calibration.Result, error) {
	a.pmu.Lock()
	defer a.pmu.Unlock()

	res, err := a.session.Finish()
	if err != nil {
		return res, err
	}
	a.session = calibration.NewSession()

	if apply && res.Samples > 0 {
		a.pipeline.SetMap(a.pipeline.Map().WithRanges(res.Ranges))
		log.Printf("Applied calibration from %d samples", res.Samples)
	}
	return res, nil
}

// Map returns the calibration map in use.
func (a *App) Map() *calibration.Map {
	a.pmu.Lock()
	defer a.pmu.Unlock()
	return a.pipeline.Map()
}

// SetMap replaces the calibration map in use.
func (a *App) SetMap(m *calibration.Map) {
	a.pmu.Lock()
	defer a.pmu.Unlock()
	a.pipeline.SetMap(m)
}

// ProcessHand runs one hand through the pipeline and the calibration session
// and publishes the frame. A nil hand publishes an idle frame.
func (a *App) ProcessHand(hand *detector.HandLandmarks) (Frame, error) {
	a.pmu.Lock()

	var f Frame
	if hand == nil {
		f = a.pipeline.Idle()
	} else {
		var err error
		f, err = a.pipeline.Process(hand.Slice())
		if err != nil {
			a.pmu.Unlock()
			return f, err
		}
		if err := a.session.Observe(f.Raw); err != nil {
			log.Printf("Calibration observe failed: %v", err)
		}
	}
	f.Calibration = a.session.State().String()
	a.latest = f

	if f.Available != a.available {
		if f.Available {
			log.Println("Hand transport available")
		} else {
			log.Println("Hand transport unavailable, computing without actuation")
		}
		a.available = f.Available
	}
	a.pmu.Unlock()

	a.cbMu.RLock()
	callbacks := a.callbacks
	a.cbMu.RUnlock()
	for _, cb := range callbacks {
		cb(f)
	}
	return f, nil
}
