package app

import (
	"errors"
	"log"
	"time"

	"github.com/ayusman/mimic/internal/capture"
	"github.com/ayusman/mimic/internal/detector"
)

// runLoop reads, detects and processes one frame per tick until stopCh is
// closed or the camera reports the end of its stream. Frames never overlap:
// a slow detector or transport stalls the loop rather than queueing work.
func (a *App) runLoop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			if !a.step() {
				log.Println("Frame source exhausted")
				return
			}
		}
	}
}

// step handles one frame. It returns false when the source has no more frames.
func (a *App) step() bool {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		if errors.Is(err, capture.ErrEndOfStream) {
			return false
		}
		log.Printf("Error reading frame: %v", err)
		return true
	}

	hands, err := a.detector.Detect(frame)
	frame.Close()
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		return true
	}

	// Only the first hand drives the actuators.
	if _, err := a.ProcessHand(detector.First(hands)); err != nil {
		log.Printf("Skipping frame: %v", err)
	}
	return true
}
