package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/mimic/internal/device"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := device.ListPorts()
		if err != nil {
			return fmt.Errorf("list ports: %w", err)
		}
		if len(ports) == 0 {
			fmt.Println("No serial ports found.")
			return nil
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return nil
	},
}

var probeWait time.Duration

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the hand controller answers on the serial port",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := cfg.Serial.Options()
		if probeWait > 0 {
			opts.HandshakeWait = probeWait
		}

		fmt.Printf("Probing %s at %d baud...\n", cfg.Serial.Port, cfg.Serial.Baud)
		ack, ok, err := device.Probe(device.SerialOpener(cfg.Serial.Port, cfg.Serial.Baud), opts)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Port opened but the controller did not reply.")
			return nil
		}
		fmt.Printf("Reply: %s\n", ack.Text)
		return nil
	},
}

func init() {
	probeCmd.Flags().DurationVar(&probeWait, "wait", 0, "How long to wait for a reply (default: handshake wait)")
	rootCmd.AddCommand(portsCmd, probeCmd)
}
