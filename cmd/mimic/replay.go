package main

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ayusman/mimic/internal/app"
	"github.com/ayusman/mimic/internal/gate"
	"github.com/ayusman/mimic/internal/recording"
	"github.com/ayusman/mimic/internal/smoothing"
	"github.com/ayusman/mimic/internal/store"
)

type replayOptions struct {
	DryRun bool
	FPS    int
}

var replayOpts replayOptions

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Drive the hand from a JSON-lines landmark recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(cmd, args[0], replayOpts)
	},
}

func init() {
	replayCmd.Flags().BoolVar(&replayOpts.DryRun, "dry-run", false, "Print commands to stdout instead of the serial port")
	replayCmd.Flags().IntVar(&replayOpts.FPS, "fps", 0, "Replay at this frame rate (default: camera fps, 0 with --dry-run)")
	rootCmd.AddCommand(replayCmd)
}

// replayStats summarizes a replay.
type replayStats struct {
	Frames  int
	Hands   int
	Invalid int
	Due     int
	Sent    int
}

func runReplay(cmd *cobra.Command, path string, opts replayOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	entries, err := recording.Load(path)
	if err != nil {
		return err
	}

	var st *store.Store
	if cfg.Profile != "" {
		if st, err = openStore(cfg); err != nil {
			return err
		}
		defer st.Close()
	}
	m, _, err := resolveMap(cfg, st)
	if err != nil {
		return err
	}

	smoother, err := smoothing.New(cfg.Smoothing.Factor)
	if err != nil {
		return err
	}

	hand := newHand(cfg.Serial.Port, cfg.Serial.Baud, cfg.Serial.Options(), opts.DryRun)
	connectHand(hand)
	defer hand.Close()

	fps := opts.FPS
	if fps == 0 && !opts.DryRun {
		fps = cfg.Camera.FPS
	}
	var tick <-chan time.Time
	if fps > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(fps))
		defer ticker.Stop()
		tick = ticker.C
	}

	bar := progressbar.NewOptions(len(entries),
		progressbar.OptionSetDescription("Replaying"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	p := app.NewPipeline(m, smoother, gate.New(cfg.Gate), hand)
	stats := replayEntries(p, entries, func() bool {
		bar.Add(1)
		if tick == nil {
			return cmd.Context().Err() == nil
		}
		select {
		case <-tick:
			return true
		case <-cmd.Context().Done():
			return false
		}
	})
	bar.Finish()

	fmt.Fprintf(os.Stderr, "\nReplayed %d frames (%d with a hand, %d invalid): %d due, %d sent\n",
		stats.Frames, stats.Hands, stats.Invalid, stats.Due, stats.Sent)
	return nil
}

// replayEntries runs entries through p. next is called after every frame
// and stops the replay when it returns false.
func replayEntries(p *app.Pipeline, entries []recording.Entry, next func() bool) replayStats {
	var stats replayStats
	for _, e := range entries {
		stats.Frames++
		if !e.HasHand() {
			p.Idle()
		} else if f, err := p.Process(e.Points); err != nil {
			stats.Invalid++
		} else {
			stats.Hands++
			if f.Due {
				stats.Due++
			}
			if f.Sent {
				stats.Sent++
			}
		}
		if !next() {
			break
		}
	}
	return stats
}
