package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/useradmin/internal/backend"
	"github.com/muurk/useradmin/internal/config"
	"github.com/muurk/useradmin/internal/ui"
)

var (
	setProfileYes     bool
	setProfileNoCheck bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and edit backend profiles",
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetProfileCmd)
	configCmd.AddCommand(configUseCmd)
	rootCmd.AddCommand(configCmd)

	configSetProfileCmd.Flags().BoolVarP(&setProfileYes, "yes", "y", false, "Replace an existing profile's URL without asking")
	configSetProfileCmd.Flags().BoolVar(&setProfileNoCheck, "no-check", false, "Skip the reachability check of the new URL")
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List configured profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}

		current, _ := registry.Current()
		rows := make([][]string, 0, len(registry.Profiles))
		for _, name := range registry.ProfileNames() {
			p := registry.Profiles[name]
			marker, lastUsed := "", "never"
			if name == current {
				marker = "*"
			}
			if !p.LastUsed.IsZero() {
				lastUsed = p.LastUsed.Local().Format("2006-01-02 15:04")
			}
			rows = append(rows, []string{marker, name, p.BaseURL, p.Category(), lastUsed})
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderProfilesTable(rows))
		return nil
	},
}

var configSetProfileCmd = &cobra.Command{
	Use:     "set-profile <name> <base-url>",
	Short:   "Create or update a profile",
	Example: `  useradmin config set-profile staging https://staging.example.com`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}

		name, url := args[0], strings.TrimRight(args[1], "/")
		if err := config.ValidateBaseURL(url); err != nil {
			return err
		}
		if existing := registry.GetProfile(name); existing != nil && existing.BaseURL != url {
			ok, err := confirmOverwrite(cmd.InOrStdin(), cmd.ErrOrStderr(), name, existing.BaseURL, url, setProfileYes, ui.IsTerminal())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Profile %q left unchanged\n", name)
				return nil
			}
		}

		if err := registry.SetProfile(name, url); err != nil {
			return err
		}
		if err := config.SaveGlobal(); err != nil {
			return err
		}
		profile := registry.GetProfile(name)
		fmt.Fprintf(cmd.OutOrStdout(), "Profile %q now points at %s\n", name, profile.BaseURL)

		if setProfileNoCheck {
			return nil
		}
		if reason := checkReachable(cmd.Context(), profile); reason != "" {
			fmt.Fprintln(cmd.OutOrStdout(), ui.RenderWarning("Backend not reachable", map[string]string{
				"Backend": profile.BaseURL,
				"Reason":  reason,
			}))
		}
		return nil
	},
}

// confirmOverwrite asks before a profile's URL is replaced. Without a
// terminal the caller must pass --yes.
func confirmOverwrite(in io.Reader, out io.Writer, name, from, to string, assumeYes, interactive bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if !interactive {
		return false, fmt.Errorf("profile %q already points at %s, pass --yes to replace it: %w", name, from, ui.ErrNotInteractive)
	}
	return ui.Confirm(in, out, fmt.Sprintf("Profile %q points at %s. Replace with %s?", name, from, to))
}

// checkReachable pings the profile's backend and describes why it failed.
// An empty string means the backend answered.
func checkReachable(ctx context.Context, profile *config.Profile) string {
	client := backend.NewClient(profile.BaseURL)
	client.SetTimeout(profile.Timeout())
	client.SetToken(resolveToken())

	ctx, cancel := context.WithTimeout(ctx, profile.Timeout())
	defer cancel()
	return describeReachability(client.Ping(ctx))
}

func describeReachability(err error) string {
	switch {
	case err == nil:
		return ""
	case backend.IsNetworkError(err):
		return backend.GetShortErrorMessage(err)
	case backend.IsAuthError(err):
		return "Backend answered but rejected the token (set " + TokenEnvVar + " or --token)"
	case backend.IsHTTPError(err):
		return backend.GetShortErrorMessage(err) + ", is the base URL the API root?"
	case backend.IsParseError(err):
		return "Response is not the admin API, check the base URL"
	default:
		return backend.GetShortErrorMessage(err)
	}
}

var configUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Make a profile the current one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		if err := registry.UseProfile(args[0]); err != nil {
			return err
		}
		if err := config.SaveGlobal(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Using profile %q\n", args[0])
		return nil
	},
}
