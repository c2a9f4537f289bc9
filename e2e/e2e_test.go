package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mimic/internal/app"
	"github.com/ayusman/mimic/internal/calibration"
	"github.com/ayusman/mimic/internal/capture"
	"github.com/ayusman/mimic/internal/device"
	"github.com/ayusman/mimic/internal/finger"
	"github.com/ayusman/mimic/internal/gate"
	"github.com/ayusman/mimic/internal/protocol"
	"github.com/ayusman/mimic/internal/recording"
	"github.com/ayusman/mimic/internal/server"
	"github.com/ayusman/mimic/internal/smoothing"
	"github.com/ayusman/mimic/internal/store"
	"github.com/ayusman/mimic/testdata"
)

// lockedBuffer is written by the frame loop and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimSpace(b.buf.String()), "\n")
}

// newReplayApp builds an App that replays the named recording as fast as the
// loop allows and writes its commands to out.
func newReplayApp(t *testing.T, name string, out *lockedBuffer) *app.App {
	t.Helper()

	entries, err := testdata.LoadRecording(name)
	if err != nil {
		t.Fatal(err)
	}

	cam := capture.NewBlankCamera(len(entries), false)
	cam.SetFPS(500)
	t.Cleanup(cam.Release)

	var hand app.Actuator
	if out != nil {
		h := device.NewHand(device.WriterOpener(out), device.Options{})
		if err := h.Open(); err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		hand = h
	}

	a, err := app.New(app.Config{
		Camera:    cam,
		Detector:  recording.NewDetector(entries),
		Hand:      hand,
		Map:       calibration.NewMap(calibration.DefaultRanges()),
		Smoothing: smoothing.DefaultFactor,
		Gate:      gate.DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	return a
}

func runToEnd(t *testing.T, a *app.App) {
	t.Helper()
	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	select {
	case <-a.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("replay did not finish")
	}
	a.Stop()
}

func TestE2E_ReplayToDevice(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	var out lockedBuffer
	a := newReplayApp(t, testdata.OpenClose, &out)

	var (
		mu     sync.Mutex
		frames []app.Frame
	)
	a.OnFrame(func(f app.Frame) {
		mu.Lock()
		frames = append(frames, f)
		mu.Unlock()
	})

	runToEnd(t, a)

	mu.Lock()
	defer mu.Unlock()

	if len(frames) != 15 {
		t.Fatalf("processed %d frames, want 15", len(frames))
	}
	idle := 0
	for i, f := range frames {
		if f.Seq != int64(i+1) {
			t.Errorf("frame %d has seq %d", i, f.Seq)
		}
		if !f.Hand {
			idle++
			if f.Due || f.Sent {
				t.Errorf("idle frame %d was gated", i)
			}
		}
	}
	if idle != 3 {
		t.Errorf("idle frames = %d, want 3", idle)
	}

	lines := out.Lines()
	if lines[0] != protocol.StartLine || lines[len(lines)-1] != protocol.StopLine {
		t.Fatalf("session not framed by start/stop: %q", lines)
	}
	if lines[1] != "movefingers:180:180:0:0:0:0" {
		t.Errorf("first command = %q", lines[1])
	}

	sent := 0
	for _, f := range frames {
		if f.Sent {
			sent++
		}
	}
	commands := lines[1 : len(lines)-1]
	if len(commands) != sent {
		t.Errorf("%d command lines for %d sent frames", len(commands), sent)
	}
	for _, line := range commands {
		set, err := protocol.Decode(line)
		if err != nil {
			t.Errorf("Decode(%q) error = %v", line, err)
			continue
		}
		for _, v := range set {
			if v < 0 || v > 180 {
				t.Errorf("%q out of range", line)
			}
		}
	}
}

func TestE2E_CalibrateSaveApply(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	a := newReplayApp(t, testdata.CalibrationSweep, nil)

	srv := server.New(server.Config{Store: s, Controller: a})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	post := func(path, body string) *http.Response {
		t.Helper()
		resp, err := client.Post(ts.URL+path, "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("POST %s error = %v", path, err)
		}
		return resp
	}

	resp := post("/api/calibration/start", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}

	runToEnd(t, a)

	resp = post("/api/profiles", `{"name": "sweep"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("save status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created struct {
		ID      string `json:"id"`
		Samples int    `json:"samples"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	if created.Samples != 30 {
		t.Errorf("samples = %d, want 30", created.Samples)
	}

	resp = post("/api/profiles/"+created.ID+"/apply", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply status = %d", resp.StatusCode)
	}

	// The sweep bends every finger well past the factory minimum.
	r := a.Map().Range(finger.Index)
	if r.Min >= calibration.DefaultRanges()[finger.Index].Min || r.Max < 170 {
		t.Errorf("index range after apply = %+v", r)
	}
	if !a.Map().Range(finger.ThumbMCP).Inverted {
		t.Error("thumb_mcp polarity lost")
	}

	p, err := s.Profiles().GetByName("sweep")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if p.Ranges[finger.Index] != r {
		t.Errorf("stored index = %+v, live = %+v", p.Ranges[finger.Index], r)
	}
}
