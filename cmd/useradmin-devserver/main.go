// Useradmin-devserver is an in-memory backend for the useradmin console.
//
// It serves the users, companies, roles, and file upload endpoints the
// console talks to, plus a WebSocket stream of change events. Data lives in
// memory and is lost on exit.
//
// Usage:
//
//	useradmin-devserver serve [flags]
//
// See 'useradmin-devserver serve --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/useradmin/internal/devserver"
	"github.com/muurk/useradmin/internal/discovery"
	"github.com/muurk/useradmin/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "useradmin-devserver",
	Short: "User admin development backend",
	Long: `An in-memory development backend for the useradmin console.

Serves the /api/v1 users, companies, roles, and files endpoints with the same
response envelope as the production backend, and pushes user changes to
connected consoles over /api/v1/events.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	certPath    string
	keyPath     string
	host        string
	port        int
	token       string
	logLevel    string
	advertise   bool
	instance    string
	corsOrigins []string
	seed        bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the development backend",
	Long: `Start the development backend and block until interrupted.

The server speaks plain HTTP unless both --cert and --key are given. When a
token is set, every /api/v1 route requires "Authorization: Bearer <token>";
uploaded images under /images are always public.

With --advertise the server registers itself over mDNS so that
'useradmin scan' can find it on the local network.`,
	Example: `  # Start on the default port with demo companies and roles
  useradmin-devserver serve

  # Require a token and advertise over mDNS
  useradmin-devserver serve --token secret --advertise

  # Serve over TLS with a browser front-end allowed
  useradmin-devserver serve --cert cert.pem --key key.pem --cors-origin http://localhost:3000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&certPath, "cert", "", "Path to TLS certificate file (optional)")
	serveCmd.Flags().StringVar(&keyPath, "key", "", "Path to TLS private key file (optional)")
	serveCmd.Flags().StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", discovery.DefaultPort, "Server port")
	serveCmd.Flags().StringVar(&token, "token", os.Getenv("USERADMIN_TOKEN"), "Bearer token required on API routes (env USERADMIN_TOKEN)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&advertise, "advertise", false, "Advertise the server over mDNS")
	serveCmd.Flags().StringVar(&instance, "instance", discovery.DefaultInstance, "mDNS instance name")
	serveCmd.Flags().StringSliceVar(&corsOrigins, "cors-origin", nil, "Allowed CORS origin (repeatable)")
	serveCmd.Flags().BoolVar(&seed, "seed", true, "Seed demo companies and roles")
}

func runServe(cmd *cobra.Command, args []string) error {
	if (certPath != "") != (keyPath != "") {
		return fmt.Errorf("both --cert and --key must be provided together, or neither")
	}
	for _, p := range []string{certPath, keyPath} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", p)
		}
	}

	srv, err := devserver.New(&devserver.Config{
		Host:        host,
		Port:        port,
		Token:       token,
		CertPath:    certPath,
		KeyPath:     keyPath,
		LogLevel:    logLevel,
		Advertise:   advertise,
		Instance:    instance,
		CORSOrigins: corsOrigins,
		Seed:        seed,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("useradmin-devserver %s (commit: %s)\n", version.Version, version.Commit)
	},
}
