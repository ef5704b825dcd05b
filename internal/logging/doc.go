// Package logging provides structured logging for the useradmin tools.
//
// This package wraps a zap logger with package-level helpers so every
// command, the interactive form and the development server share one logger.
//
// # Log Levels
//
//   - Debug: outgoing API calls, WebSocket frames
//   - Info: form lifecycle, uploads, server connections
//   - Warn: recoverable failures (an option search that returned nothing)
//   - Error: failures shown to the operator
//
// # Silent by default
//
// Logging is off unless USERADMIN_LOG_LEVEL (or --log-level) is set. The
// interactive form owns the terminal, so it should be paired with
// USERADMIN_LOG_FILE (or --log-file):
//
//	USERADMIN_LOG_LEVEL=debug USERADMIN_LOG_FILE=/tmp/useradmin.log useradmin
//
// # Structured Logging
//
//	logging.Info("User created",
//	    zap.String("id", user.ID),
//	    zap.String("email", user.Email),
//	)
//
// All logging functions are safe for concurrent use.
package logging
