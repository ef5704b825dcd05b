package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/useradmin/internal/config"
	"github.com/muurk/useradmin/internal/discovery"
	"github.com/muurk/useradmin/internal/ui"
)

var (
	scanTimeout int
	scanSave    string
)

// scanCmd discovers development backends on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for development backends on the network",
	Long: `Scan for useradmin development backends using mDNS/DNS-SD discovery.

Backends started with 'useradmin-devserver serve --advertise' announce
themselves as ` + discovery.ServiceType + `.`,
	Example: `  # Scan for 5 seconds (default)
  useradmin scan

  # Save the first backend found as the "lab" profile
  useradmin scan --save lab`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", int(discovery.DefaultScanTimeout/time.Second), "Scan timeout in seconds")
	scanCmd.Flags().StringVar(&scanSave, "save", "", "Save the first backend found as this profile")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for backends (timeout: %ds)...\n\n", scanTimeout)

	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second

	backends, err := scanner.Scan(cmd.Context())
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(backends) == 0 {
		fmt.Println(ui.RenderWarning("No backends found", nil))
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Start the development server with --advertise")
		fmt.Println("  - Check that this machine is on the same network segment")
		fmt.Println("  - Try increasing --timeout for slower networks")
		fmt.Println("  - Use --base-url to specify the backend manually")
		return nil
	}

	fmt.Printf("Found %d backend(s):\n\n", len(backends))
	for i, b := range backends {
		fmt.Printf("%d. %s\n", i+1, b.Instance)
		fmt.Printf("   URL:     %s\n", b.BaseURL())
		fmt.Printf("   Host:    %s\n", b.Hostname)
		if v := b.GetMetadata("version"); v != "" {
			fmt.Printf("   Version: %s\n", v)
		}
		fmt.Println()
	}

	if scanSave == "" {
		fmt.Println("Use 'useradmin --base-url <url>' or 'useradmin scan --save <profile>' to connect")
		return nil
	}

	registry, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	if err := registry.SetProfile(scanSave, backends[0].BaseURL()); err != nil {
		return err
	}
	if err := config.SaveGlobal(); err != nil {
		return err
	}
	fmt.Println(ui.RenderSuccess("Profile saved", map[string]string{
		"Profile": scanSave,
		"Backend": backends[0].BaseURL(),
	}))
	return nil
}
