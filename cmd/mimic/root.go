package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/mimic/internal/config"
	"github.com/ayusman/mimic/internal/store"
)

// Version is the application version.
const Version = "0.1.0"

// globalOptions override values from the configuration file.
type globalOptions struct {
	ConfigPath string
	Port       string
	Baud       int
	Profile    string
	Addr       string
}

var globals globalOptions

var rootCmd = &cobra.Command{
	Use:           "mimic",
	Short:         "Mirror a tracked hand onto a serial robotic hand",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with a context cancelled on Ctrl+C.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&globals.ConfigPath, "config", "c", "", "Configuration file (default ~/.mimic/config.yaml)")
	flags.StringVarP(&globals.Port, "port", "p", "", "Serial port of the hand controller")
	flags.IntVar(&globals.Baud, "baud", 0, "Serial baud rate")
	flags.StringVar(&globals.Profile, "profile", "", "Stored calibration profile to use")
	flags.StringVar(&globals.Addr, "addr", "", "Address of the HTTP status server, e.g. :8080")
}

// loadConfig reads the configuration file and applies flag overrides. A
// missing default file yields the built-in defaults; an explicit --config
// must exist.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if globals.ConfigPath != "" {
		cfg, err = config.Load(globals.ConfigPath)
	} else {
		cfg, err = config.LoadOrDefault(config.DefaultPath())
	}
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Serial.Port = globals.Port
	}
	if flags.Changed("baud") {
		cfg.Serial.Baud = globals.Baud
	}
	if flags.Changed("profile") {
		cfg.Profile = globals.Profile
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = globals.Addr
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func openStore(cfg config.Config) (*store.Store, error) {
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}
