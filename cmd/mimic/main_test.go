package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/mimic/internal/app"
	"github.com/ayusman/mimic/internal/calibration"
	"github.com/ayusman/mimic/internal/config"
	"github.com/ayusman/mimic/internal/device"
	"github.com/ayusman/mimic/internal/finger"
	"github.com/ayusman/mimic/internal/gate"
	"github.com/ayusman/mimic/internal/smoothing"
	"github.com/ayusman/mimic/internal/store"
	"github.com/ayusman/mimic/testdata"
)

func TestReplayEntries_Truncated(t *testing.T) {
	entries, err := testdata.LoadRecording(testdata.Truncated)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	hand := device.NewHand(device.WriterOpener(&out), device.Options{})
	if err := hand.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	smoother, _ := smoothing.New(smoothing.DefaultFactor)
	p := app.NewPipeline(calibration.NewMap(calibration.DefaultRanges()), smoother, gate.New(gate.DefaultConfig()), hand)

	stats := replayEntries(p, entries, func() bool { return true })

	want := replayStats{Frames: 4, Hands: 2, Invalid: 1, Due: 2, Sent: 2}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	wantLines := []string{"start", "movefingers:180:180:0:0:0:0", "movefingers:126:126:54:54:54:54"}
	if len(lines) != len(wantLines) {
		t.Fatalf("lines = %q, want %q", lines, wantLines)
	}
	for i := range wantLines {
		if lines[i] != wantLines[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], wantLines[i])
		}
	}
}

func TestReplayEntries_HandUnavailable(t *testing.T) {
	entries, err := testdata.LoadRecording(testdata.Truncated)
	if err != nil {
		t.Fatal(err)
	}

	hand := device.NewHand(func() (device.Device, error) {
		return nil, errors.New("no such port")
	}, device.Options{})
	if connectHand(hand) {
		t.Fatal("connectHand() should report a failed open")
	}
	defer hand.Close()

	smoother, _ := smoothing.New(smoothing.DefaultFactor)
	p := app.NewPipeline(calibration.NewMap(calibration.DefaultRanges()), smoother, gate.New(gate.DefaultConfig()), hand)

	stats := replayEntries(p, entries, func() bool { return true })

	// Nothing was sent, so every hand frame stays due.
	want := replayStats{Frames: 4, Hands: 2, Invalid: 1, Due: 2, Sent: 0}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestReplayEntries_Stop(t *testing.T) {
	entries, err := testdata.LoadRecording(testdata.OpenClose)
	if err != nil {
		t.Fatal(err)
	}

	smoother, _ := smoothing.New(smoothing.DefaultFactor)
	p := app.NewPipeline(calibration.NewMap(calibration.DefaultRanges()), smoother, gate.New(gate.DefaultConfig()), nil)

	n := 0
	stats := replayEntries(p, entries, func() bool {
		n++
		return n < 5
	})
	if stats.Frames != 5 {
		t.Errorf("Frames = %d, want 5", stats.Frames)
	}
	// Without a sender nothing is ever sent.
	if stats.Sent != 0 {
		t.Errorf("Sent = %d, want 0", stats.Sent)
	}
}

func TestResolveMap(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	learned := map[finger.Channel]calibration.Range{
		finger.Index: {Min: 30, Max: 170},
	}
	if err := st.Profiles().Save(&store.Profile{Name: "desk", Ranges: learned, Samples: 10}); err != nil {
		t.Fatal(err)
	}

	t.Run("no profile", func(t *testing.T) {
		m, name, err := resolveMap(config.Default(), st)
		if err != nil || name != "" {
			t.Fatalf("resolveMap() = %q, %v", name, err)
		}
		if got := m.Range(finger.Index); got != calibration.DefaultRanges()[finger.Index] {
			t.Errorf("index = %+v", got)
		}
	})

	t.Run("named profile", func(t *testing.T) {
		cfg := config.Default()
		cfg.Profile = "desk"
		m, name, err := resolveMap(cfg, st)
		if err != nil || name != "desk" {
			t.Fatalf("resolveMap() = %q, %v", name, err)
		}
		if got := m.Range(finger.Index); got != (calibration.Range{Min: 30, Max: 170}) {
			t.Errorf("index = %+v", got)
		}
		// Polarity stays with the configuration.
		if !m.Range(finger.ThumbMCP).Inverted {
			t.Error("thumb_mcp should stay inverted")
		}
	})

	t.Run("active profile", func(t *testing.T) {
		if err := st.Settings().Set(store.SettingActiveProfile, "desk"); err != nil {
			t.Fatal(err)
		}
		_, name, err := resolveMap(config.Default(), st)
		if err != nil || name != "desk" {
			t.Errorf("resolveMap() = %q, %v", name, err)
		}
	})

	t.Run("missing profile", func(t *testing.T) {
		cfg := config.Default()
		cfg.Profile = "nope"
		if _, _, err := resolveMap(cfg, st); err == nil {
			t.Error("expected error for a missing profile")
		}
	})

	t.Run("no store", func(t *testing.T) {
		cfg := config.Default()
		cfg.Profile = "desk"
		if _, _, err := resolveMap(cfg, nil); err == nil {
			t.Error("expected error without a store")
		}
	})
}

func TestPrintCalibration(t *testing.T) {
	var out bytes.Buffer
	if err := printCalibration(&out, calibration.DefaultRanges(), 42); err != nil {
		t.Fatalf("printCalibration() error = %v", err)
	}

	s := out.String()
	for _, want := range []string{"42 frames", "CHANNEL", "thumb_mcp", "pinky", "ranges:\n"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}

func TestStatusURL(t *testing.T) {
	tests := map[string]string{
		":8080":          "http://localhost:8080/",
		"127.0.0.1:9000": "http://127.0.0.1:9000/",
	}
	for addr, want := range tests {
		if got := statusURL(addr); got != want {
			t.Errorf("statusURL(%q) = %q, want %q", addr, got, want)
		}
	}
}
