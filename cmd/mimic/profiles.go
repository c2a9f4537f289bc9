package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/mimic/internal/store"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List stored calibration profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, listProfiles)
	},
}

var profilesShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a profile as a ranges block",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(st *store.Store) error {
			p, err := st.Profiles().GetByName(args[0])
			if err != nil {
				return profileErr(args[0], err)
			}
			return printCalibration(os.Stdout, p.Ranges, p.Samples)
		})
	},
}

var profilesUseCmd = &cobra.Command{
	Use:   "use NAME",
	Short: "Make a profile the default for run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(st *store.Store) error {
			p, err := st.Profiles().GetByName(args[0])
			if err != nil {
				return profileErr(args[0], err)
			}
			if err := st.Settings().Set(store.SettingActiveProfile, p.Name); err != nil {
				return err
			}
			fmt.Printf("Active profile: %s\n", p.Name)
			return nil
		})
	},
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Remove a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(st *store.Store) error {
			p, err := st.Profiles().GetByName(args[0])
			if err != nil {
				return profileErr(args[0], err)
			}
			if err := st.Profiles().Delete(p.ID); err != nil {
				return err
			}
			if active, err := st.Settings().Get(store.SettingActiveProfile); err == nil && active == p.Name {
				if err := st.Settings().Delete(store.SettingActiveProfile); err != nil {
					return err
				}
			}
			fmt.Printf("Deleted profile %s\n", p.Name)
			return nil
		})
	},
}

func init() {
	profilesCmd.AddCommand(profilesShowCmd, profilesUseCmd, profilesDeleteCmd)
	rootCmd.AddCommand(profilesCmd)
}

func withStore(cmd *cobra.Command, fn func(*store.Store) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func profileErr(name string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no profile named %q", name)
	}
	return err
}

func listProfiles(st *store.Store) error {
	profiles, err := st.Profiles().List()
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}

	if len(profiles) == 0 {
		fmt.Printf("No profiles in %s. Create one with: mimic calibrate --save NAME\n", st.Path())
		return nil
	}

	active, _ := st.Settings().Get(store.SettingActiveProfile)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tSAMPLES\tUPDATED\tID")
	fmt.Fprintln(w, "----\t-------\t-------\t--")
	for _, p := range profiles {
		name := p.Name
		if name == active {
			name += " *"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", name, p.Samples, p.UpdatedAt.Local().Format("2006-01-02 15:04"), p.ID)
	}
	return w.Flush()
}
