package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/useradmin/internal/events"
	"github.com/muurk/useradmin/internal/logging"
	"github.com/muurk/useradmin/internal/tui"
)

var noEvents bool

// formCmd launches the interactive console
var formCmd = &cobra.Command{
	Use:     "form",
	Aliases: []string{"console"},
	Short:   "Launch the interactive user console",
	Long: `Launch the interactive console: a paginated user table with a modal form
for creating and editing users.

The console subscribes to the backend's event stream when it offers one, so
changes made elsewhere refresh the table. Logging is silent unless --log-file
is given, since log lines would corrupt the screen.`,
	Example: `  # Launch the console against the current profile
  useradmin
  # Or explicitly:
  useradmin form

  # Against another backend, with logs in a file
  useradmin form --base-url http://10.0.0.5:8000 --log-level debug --log-file useradmin.log`,
	RunE: runForm,
}

func init() {
	formCmd.Flags().BoolVar(&noEvents, "no-events", false, "Do not subscribe to backend change events")
	rootCmd.AddCommand(formCmd)
}

func runForm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if logFile == "" && os.Getenv(logging.LogFileEnvVar) == "" {
		// Log lines on stdout would corrupt the alt screen
		logging.SetLogger(zap.NewNop())
	}

	s, err := newSession(ctx)
	if err != nil {
		return err
	}

	opts := tui.Options{
		Backend:        s.Client,
		BackendURL:     s.BaseURL,
		Category:       s.Profile.Category(),
		PageSize:       s.Profile.PageSize,
		SearchDebounce: s.Preferences.SearchDebounce(),
		RequestTimeout: s.Profile.Timeout(),
	}

	if !noEvents {
		// The event stream is optional; the console works without it
		if sub, err := events.NewSubscriber(s.BaseURL, s.Token); err == nil {
			if ch, err := sub.Subscribe(ctx); err == nil {
				opts.Events = ch
			} else {
				logging.Info("Event stream unavailable", zap.Error(err))
			}
		}
	}

	if err := tui.Run(ctx, opts); err != nil {
		return fmt.Errorf("console error: %w", err)
	}
	return nil
}
