package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muurk/useradmin/internal/events"
)

// watchCmd prints backend change events
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print user change events as they happen",
	Long: `Subscribe to the backend's event stream and print every user change until
interrupted. Dropped connections are retried with backoff.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd.Context())
	if err != nil {
		return err
	}

	sub, err := events.NewSubscriber(s.BaseURL, s.Token)
	if err != nil {
		return err
	}
	ch, err := sub.Subscribe(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", sub.URL, err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", sub.URL)
	for ev := range ch {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", ev.At.Local().Format("15:04:05"), ev)
	}
	return nil
}
