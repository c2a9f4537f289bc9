package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ayusman/mimic/internal/calibration"
	"github.com/ayusman/mimic/internal/config"
	"github.com/ayusman/mimic/internal/detector"
	"github.com/ayusman/mimic/internal/store"
)

// newDetector tries MediaPipe first and falls back to the mock detector,
// which never reports a hand.
func newDetector(cfg detector.Config) detector.Detector {
	mp, err := detector.NewMediaPipeDetector(cfg)
	if err != nil {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		return detector.NewMockDetector()
	}
	log.Println("Using MediaPipe hand detection")
	return mp
}

// resolveMap builds the calibration map for a run. The configured profile
// wins, then the profile last applied through the API. st may be nil.
func resolveMap(cfg config.Config, st *store.Store) (*calibration.Map, string, error) {
	m := cfg.CalibrationMap()
	if st == nil {
		if cfg.Profile != "" {
			return nil, "", fmt.Errorf("profile %q requested but no store is open", cfg.Profile)
		}
		return m, "", nil
	}

	name := cfg.Profile
	explicit := name != ""
	if !explicit {
		active, err := st.Settings().Get(store.SettingActiveProfile)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, "", err
		}
		name = active
	}
	if name == "" {
		return m, "", nil
	}

	p, err := st.Profiles().GetByName(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) && !explicit {
			log.Printf("Active profile %q no longer exists, using configured ranges", name)
			return m, "", nil
		}
		return nil, "", fmt.Errorf("load profile %q: %w", name, err)
	}
	return m.WithRanges(p.Ranges), p.Name, nil
}

// findWebDir searches for the status page assets in common locations:
// "web", "../web", "../../web" and ~/.mimic/web. It returns "" when none
// exists.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.Dir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
