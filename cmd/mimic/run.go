package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ayusman/mimic/internal/app"
	"github.com/ayusman/mimic/internal/calibration"
	"github.com/ayusman/mimic/internal/capture"
	"github.com/ayusman/mimic/internal/device"
	"github.com/ayusman/mimic/internal/recording"
	"github.com/ayusman/mimic/internal/server"
	"github.com/ayusman/mimic/internal/tray"
)

type runOptions struct {
	Tray   bool
	DryRun bool
	Record string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Track the hand on camera and drive the robotic hand",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRun(cmd, runOpts)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runOpts.Tray, "tray", false, "Show a system tray menu")
	runCmd.Flags().BoolVar(&runOpts.DryRun, "dry-run", false, "Print commands to stdout instead of the serial port")
	runCmd.Flags().StringVar(&runOpts.Record, "record", "", "Append detected landmarks to this JSON-lines file")
	rootCmd.AddCommand(runCmd)
}

func newHand(port string, baud int, opts device.Options, dryRun bool) *device.Hand {
	if dryRun {
		return device.NewHand(device.WriterOpener(os.Stdout), device.Options{})
	}
	return device.NewSerialHand(port, baud, opts)
}

// connectHand opens hand and reports whether it connected. A failed open is
// logged only; the hand reconnects on its own once the port appears.
func connectHand(hand *device.Hand) bool {
	if err := hand.Open(); err != nil {
		log.Printf("Hand not connected (%v), continuing without actuation", err)
		return false
	}
	return true
}

func runRun(cmd *cobra.Command, opts runOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	m, profile, err := resolveMap(cfg, st)
	if err != nil {
		return err
	}
	if profile != "" {
		log.Printf("Using calibration profile %q", profile)
	}

	hand := newHand(cfg.Serial.Port, cfg.Serial.Baud, cfg.Serial.Options(), opts.DryRun)
	connectHand(hand)

	a, err := app.New(app.Config{
		Camera:    capture.NewCameraWithConfig(cfg.Camera),
		Detector:  newDetector(cfg.Detector),
		Hand:      hand,
		Map:       m,
		Smoothing: cfg.Smoothing.Factor,
		Gate:      cfg.Gate,
	})
	if err != nil {
		hand.Close()
		return err
	}

	if opts.Record != "" {
		f, err := os.OpenFile(opts.Record, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			hand.Close()
			return fmt.Errorf("open recording: %w", err)
		}
		defer f.Close()
		rec := recording.NewWriter(f)
		a.OnFrame(func(fr app.Frame) {
			if err := rec.Write(fr.Landmarks); err != nil {
				log.Printf("Error writing recording: %v", err)
			}
		})
		log.Printf("Recording landmarks to %s", opts.Record)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if cfg.Server.Addr != "" {
		hub := server.NewTelemetryHub()
		a.OnFrame(hub.Publish)

		webDir := findWebDir()
		if webDir != "" {
			log.Printf("Serving static files from: %s", webDir)
		}
		srv := server.New(server.Config{
			StaticDir:  webDir,
			Store:      st,
			Controller: a,
			Telemetry:  hub,
		})
		go func() {
			log.Printf("Starting server on %s", cfg.Server.Addr)
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
				log.Printf("Server failed: %v", err)
			}
		}()
	}

	if err := a.Start(); err != nil {
		hand.Close()
		return err
	}
	defer a.Stop()

	if !opts.Tray {
		select {
		case <-ctx.Done():
		case <-a.Done():
		}
		return nil
	}

	tr := newTray(a, cfg.Server.Addr)
	tr.OnQuit(cancel)
	go func() {
		select {
		case <-ctx.Done():
		case <-a.Done():
		}
		tr.Quit()
	}()
	tr.Run()
	return nil
}

// newTray wires the tray menu to a. The tray items drive the same operations
// as the HTTP API.
func newTray(a *app.App, addr string) *tray.Tray {
	tr := tray.New()
	tr.OnToggle(a.SetEnabled)
	tr.OnCalibrate(func() bool {
		state, err := a.ToggleCalibration()
		if err != nil {
			log.Printf("Calibration toggle failed: %v", err)
		}
		return state == calibration.Calibrating
	})
	if addr != "" {
		tr.OnSettings(func() { openBrowser(statusURL(addr)) })
	}

	a.OnFrame(func(f app.Frame) {
		if f.Sent {
			tr.SetLastCommand(f.Command)
		}
		tr.SetAvailable(f.Available)
	})
	return tr
}

func statusURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
