package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It replays a scripted sequence of detections, one per call, and then
// keeps returning the last configured result.
type MockDetector struct {
	mu     sync.Mutex
	script [][]HandLandmarks
	hands  []HandLandmarks
	err    error
	calls  int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetScript queues per-call results. A nil entry means no hand on that frame.
func (m *MockDetector) SetScript(script [][]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = script
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next scripted result, the configured hands, or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		return next, nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// OpenHandLandmarks returns a right hand with every finger straight.
// Finger joints are colinear, so non-thumb raw angles are 180 degrees.
func OpenHandLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.9, Z: 0.0}

	// Thumb laid out along a straight diagonal
	landmarks.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.84, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.78, Z: 0.0}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.72, Z: 0.0}
	landmarks.Points[ThumbTip] = Point3D{X: 0.74, Y: 0.66, Z: 0.0}

	// Four fingers extended straight up
	for f, x := range []float64{0.56, 0.50, 0.44, 0.38} {
		base := IndexMCP + f*4
		landmarks.Points[base] = Point3D{X: x, Y: 0.70, Z: 0.0}
		landmarks.Points[base+1] = Point3D{X: x, Y: 0.60, Z: 0.0}
		landmarks.Points[base+2] = Point3D{X: x, Y: 0.50, Z: 0.0}
		landmarks.Points[base+3] = Point3D{X: x, Y: 0.40, Z: 0.0}
	}

	return landmarks
}

// FistLandmarks returns a right hand with the four fingers folded back at the
// PIP joint and the thumb bent at a right angle.
func FistLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.9, Z: 0.0}

	landmarks.Points[ThumbCMC] = Point3D{X: 0.56, Y: 0.84, Z: 0.0}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.78, Z: 0.0}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.84, Z: 0.0}
	landmarks.Points[ThumbTip] = Point3D{X: 0.62, Y: 0.90, Z: 0.0}

	// Tip and DIP fold back down past the MCP: MCP->PIP->TIP is a hairpin.
	for f, x := range []float64{0.56, 0.50, 0.44, 0.38} {
		base := IndexMCP + f*4
		landmarks.Points[base] = Point3D{X: x, Y: 0.70, Z: -0.02}
		landmarks.Points[base+1] = Point3D{X: x, Y: 0.60, Z: -0.05}
		landmarks.Points[base+2] = Point3D{X: x + 0.01, Y: 0.66, Z: -0.04}
		landmarks.Points[base+3] = Point3D{X: x + 0.01, Y: 0.72, Z: -0.02}
	}

	return landmarks
}
