// Package config manages the useradmin configuration file.
//
// The file holds named backend profiles (base URL, upload category, request
// timeout, page size) and console preferences such as the dropdown search
// debounce. It lives in the platform configuration directory:
//   - Linux: $XDG_CONFIG_HOME/useradmin/config.yaml or $HOME/.config/useradmin/config.yaml
//   - macOS: $HOME/.config/useradmin/config.yaml
//   - Windows: %LOCALAPPDATA%\useradmin\config.yaml
//
// USERADMIN_CONFIG overrides the location.
//
// # Security
//
// API tokens and user passwords are never written to this file.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := registry.SetProfile("staging", "https://staging.example.com"); err != nil {
//	    log.Fatal(err)
//	}
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// The global registry is loaded once per process. Writes go through a
// temporary file and a rename.
package config
