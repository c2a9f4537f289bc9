package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ayusman/mimic/internal/app"
	"github.com/ayusman/mimic/internal/calibration"
	"github.com/ayusman/mimic/internal/capture"
	"github.com/ayusman/mimic/internal/config"
	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/finger"
	"github.com/ayusman/mimic/internal/recording"
	"github.com/ayusman/mimic/internal/store"
)

type calibrateOptions struct {
	From     string
	Duration time.Duration
	Save     string
}

var calibrateOpts calibrateOptions

var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Learn per-finger angle ranges by opening and closing the hand",
	Long: `Calibrate watches the hand without driving the robot and records the
smallest and largest angle seen for every finger. Open and close the hand
fully a few times, then press Ctrl+C. The learned ranges are printed as a
YAML block for the configuration file and can be stored as a profile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCalibrate(cmd, calibrateOpts)
	},
}

func init() {
	calibrateCmd.Flags().StringVar(&calibrateOpts.From, "from", "", "Calibrate from a JSON-lines recording instead of the camera")
	calibrateCmd.Flags().DurationVarP(&calibrateOpts.Duration, "duration", "d", 0, "Stop after this long (default: until Ctrl+C)")
	calibrateCmd.Flags().StringVar(&calibrateOpts.Save, "save", "", "Store the result as a profile with this name")
	rootCmd.AddCommand(calibrateCmd)
}

// offlineFPS paces recorded frames. Recordings have no timing of their own.
const offlineFPS = 1000

func runCalibrate(cmd *cobra.Command, opts calibrateOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var (
		cam capture.Camera
		det detector.Detector
	)
	if opts.From != "" {
		entries, err := recording.Load(opts.From)
		if err != nil {
			return err
		}
		blank := capture.NewBlankCamera(len(entries), false)
		defer blank.Release()
		blank.SetFPS(offlineFPS)
		cam, det = blank, recording.NewDetector(entries)
	} else {
		cam, det = capture.NewCameraWithConfig(cfg.Camera), newDetector(cfg.Detector)
	}

	a, err := app.New(app.Config{
		Camera:    cam,
		Detector:  det,
		Map:       cfg.CalibrationMap(),
		Smoothing: cfg.Smoothing.Factor,
		Gate:      cfg.Gate,
	})
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Calibrating"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
	)
	a.OnFrame(func(f app.Frame) {
		if f.Hand {
			bar.Add(1)
		}
	})

	if err := a.StartCalibration(); err != nil {
		return err
	}
	if err := a.Start(); err != nil {
		return err
	}

	var timeout <-chan time.Time
	if opts.Duration > 0 {
		timeout = time.After(opts.Duration)
	}
	select {
	case <-cmd.Context().Done():
	case <-a.Done():
	case <-timeout:
	}
	a.Stop()
	bar.Finish()
	fmt.Fprintln(os.Stderr)

	res, err := a.FinishCalibration(false)
	if err != nil {
		return err
	}
	if res.Samples == 0 {
		return errors.New("no hand was seen, nothing calibrated")
	}

	// Learned ranges carry no polarity; take it from the configuration.
	ranges := cfg.CalibrationMap().WithRanges(res.Ranges).Ranges()
	if err := printCalibration(os.Stdout, ranges, res.Samples); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "\nPaste the ranges block into %s to make it the default.\n", configPathHint())

	if opts.Save != "" {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		p := &store.Profile{Name: opts.Save, Ranges: ranges, Samples: res.Samples}
		if err := st.Profiles().Save(p); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}
		fmt.Printf("\nSaved profile %q (%s)\n", p.Name, p.ID)
	}
	return nil
}

// printCalibration writes a per-channel table followed by a ranges block.
func printCalibration(w io.Writer, ranges map[finger.Channel]calibration.Range, samples int) error {
	fmt.Fprintf(w, "Calibrated from %d frames\n\n", samples)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tMIN\tMAX\tINVERTED")
	fmt.Fprintln(tw, "-------\t---\t---\t--------")
	for _, ch := range finger.All() {
		r := ranges[ch]
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%v\n", ch, r.Min, r.Max, r.Inverted)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	block, err := config.RangesYAML(ranges)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%s", block)
	return nil
}

// configPathHint names the configuration file in effect.
func configPathHint() string {
	if globals.ConfigPath != "" {
		return globals.ConfigPath
	}
	return config.DefaultPath()
}
