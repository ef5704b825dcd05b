// Package ui renders the output of the one-shot useradmin commands.
//
// Unlike the interactive console in package tui, these components follow a
// "run once and exit" pattern: a command prints a Header describing what it
// is about to do, does it, and prints a Result box or a table.
//
//   - Header: command banner with the backend and profile in use
//   - Result: success, failure, or warning box with sorted details
//   - Tables: users, dropdown options, and configured profiles
//   - Prompts: hidden password entry and yes/no confirmation
//
// Example:
//
//	fmt.Println(ui.RenderCommandHeader(ui.HeaderConfig{
//	    Title:   "Create user",
//	    Command: "useradmin users create",
//	    Params:  map[string]string{"Backend": baseURL},
//	}))
//	user, err := client.CreateUser(ctx, payload)
//	if err != nil {
//	    fmt.Println(ui.RenderFailure("Create failed", err, nil))
//	    return err
//	}
//	fmt.Println(ui.RenderSuccess("User created", map[string]string{"ID": user.ID}))
//
// # Logging Integration
//
// Zap logging is silent unless --log-level or USERADMIN_LOG_LEVEL is set, so
// the styled output is not interleaved with log lines.
package ui
