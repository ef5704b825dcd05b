// Useradmin is an admin console for the users of a REST backend.
//
// Running without arguments opens the interactive console: a paginated
// user table with a modal form for creating and editing users, including
// avatar upload and searchable company and role pickers. One-shot commands
// cover the same operations for scripting.
//
// Usage:
//
//	useradmin [command] [flags]
//
// See 'useradmin --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/useradmin/internal/backend"
	"github.com/muurk/useradmin/internal/config"
	"github.com/muurk/useradmin/internal/discovery"
	"github.com/muurk/useradmin/internal/logging"
	"github.com/muurk/useradmin/internal/version"
)

// TokenEnvVar supplies the API token when --token is not given.
const TokenEnvVar = "USERADMIN_TOKEN"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	profileName string
	baseURL     string
	apiToken    string
	logLevel    string
	logFile     string
)

var rootCmd = &cobra.Command{
	Use:   "useradmin",
	Short: "User administration console",
	Long: `An admin console for managing the users of a REST backend.

Provides an interactive console with a create/edit form, and direct commands
for listing, creating, and updating users, searching companies and roles,
and uploading avatars.

If no command is specified, the interactive console will launch automatically.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitializeWithOutput(logLevel, logFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: open the console when no subcommand provided
		return runForm(cmd, args)
	},
	SilenceUsage: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Backend profile to use (default: current profile)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Backend base URL (overrides the profile)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "API bearer token (env "+TokenEnvVar+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error; default: silent)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stdout")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("useradmin %s (commit: %s)\n", version.Version, version.Commit)
	},
}

// session is the resolved backend for one command.
type session struct {
	ProfileName string
	Profile     *config.Profile
	Preferences *config.Preferences
	BaseURL     string
	Token       string
	Client      *backend.Client
}

// newSession resolves the profile, base URL, and token from flags, the
// config file, and the environment. When the profile has never been
// configured and auto-discovery is on, the first backend found over mDNS is
// used.
func newSession(ctx context.Context) (*session, error) {
	registry, err := config.LoadRegistry()
	if err != nil {
		return nil, err
	}

	name := profileName
	var profile *config.Profile
	if name == "" {
		name, profile = registry.Current()
	} else if profile = registry.GetProfile(name); profile == nil {
		return nil, fmt.Errorf("unknown profile %q (see 'useradmin config show')", name)
	}

	url := profile.BaseURL
	switch {
	case baseURL != "":
		if err := config.ValidateBaseURL(baseURL); err != nil {
			return nil, err
		}
		url = baseURL
	case registry.Preferences.AutoDiscover && profile.LastUsed.IsZero():
		if found := discoverBackend(ctx, registry.Preferences); found != "" {
			url = found
		}
	}

	token := resolveToken()

	client := backend.NewClient(url)
	client.SetTimeout(profile.Timeout())
	client.SetToken(token)

	logging.Debug("Session resolved",
		zap.String("profile", name),
		zap.String("base_url", url),
		zap.Bool("token", token != ""),
	)

	registry.TouchProfile(name)
	if err := registry.Save(); err != nil {
		logging.Warn("Failed to record profile use", zap.Error(err))
	}

	return &session{
		ProfileName: name,
		Profile:     profile,
		Preferences: registry.Preferences,
		BaseURL:     url,
		Token:       token,
		Client:      client,
	}, nil
}

// resolveToken prefers the --token flag over the environment.
func resolveToken() string {
	if apiToken != "" {
		return apiToken
	}
	return os.Getenv(TokenEnvVar)
}

func discoverBackend(ctx context.Context, prefs *config.Preferences) string {
	scanner := discovery.NewScanner()
	if prefs.DiscoverTimeout > 0 {
		scanner.Timeout = time.Duration(prefs.DiscoverTimeout) * time.Second
	}
	backends, err := scanner.Scan(ctx)
	if err != nil || len(backends) == 0 {
		logging.Debug("Auto-discovery found no backend", zap.Error(err))
		return ""
	}
	logging.Info("Auto-discovered backend", zap.Stringer("backend", backends[0]))
	return backends[0].BaseURL()
}

// headerParams describes the session for command headers.
func (s *session) headerParams() map[string]string {
	params := map[string]string{
		"Profile": s.ProfileName,
		"Backend": s.BaseURL,
	}
	if s.Token == "" {
		params["Auth"] = "none"
	} else {
		params["Auth"] = "bearer token"
	}
	return params
}

// requestContext bounds one-shot commands by the profile timeout.
func (s *session) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, s.Profile.Timeout()*3)
}
