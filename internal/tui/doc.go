// Package tui implements the interactive user administration console.
//
// The console is a full-screen Bubble Tea program with two screens:
//   - Users: one page of users from the backend, reloaded on demand, after
//     every successful save, and on remote change events
//   - Form: the user form as a modal over a dimmed screen
//
// The table screen is framed by RenderApplicationContainer (header, content,
// context help footer); the form uses RenderModal.
//
// # Form
//
// All form state lives in userform.Controller. FormModel owns only widgets
// and bookkeeping for background work:
//
//   - Network calls (option searches, avatar upload, create/update) run as
//     tea.Cmds. The controller's split operations keep state changes on the
//     Update goroutine: Prepare/Complete and Begin/Finish run in Update,
//     Execute and Transfer in the command.
//   - Every form session has a generation. Upload and submit results from an
//     earlier session are discarded.
//   - Company and role dropdowns debounce keystrokes and take a ticket from
//     the controller's SearchSequencer for each search, so only the newest
//     response is shown.
//
// # Framework Components
//
//   - bubbles/list: user cards
//   - bubbles/textinput: form fields and dropdown search boxes
//   - bubbles/spinner: loading, uploading and saving indicators
//   - bubbles/help, bubbles/key: context-aware help
//   - lipgloss: styling and layout
//
// # Usage Example
//
//	err := tui.Run(ctx, tui.Options{
//	    Backend:    client,
//	    BackendURL: client.BaseURL,
//	    Category:   "user",
//	})
package tui
