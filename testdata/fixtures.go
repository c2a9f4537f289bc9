// Package testdata holds landmark recordings shared by tests and demos.
package testdata

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/ayusman/mimic/internal/recording"
)

//go:embed recordings/*.jsonl
var recordingsFS embed.FS

// Recording names.
const (
	// OpenClose opens, closes and reopens one hand, with a few frames lost.
	OpenClose = "open_close.jsonl"
	// CalibrationSweep closes and reopens the hand once, slowly.
	CalibrationSweep = "calibration_sweep.jsonl"
	// Truncated contains a frame with fewer than 21 points.
	Truncated = "truncated.jsonl"
)

// Raw returns the bytes of the named recording.
func Raw(name string) ([]byte, error) {
	data, err := recordingsFS.ReadFile("recordings/" + name)
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}
	return data, nil
}

// LoadRecording decodes the named recording.
func LoadRecording(name string) ([]recording.Entry, error) {
	data, err := Raw(name)
	if err != nil {
		return nil, err
	}
	entries, err := recording.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode recording %s: %w", name, err)
	}
	return entries, nil
}

// Names lists the embedded recordings.
func Names() ([]string, error) {
	entries, err := recordingsFS.ReadDir("recordings")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
