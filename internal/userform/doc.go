// Package userform is the headless model of the user create/update form.
//
// A Controller owns everything the form keeps between keystrokes: whether it
// is visible, the record being edited, the selected company and role, the
// avatar slot and the image preview. Front ends (the terminal UI and the
// non-interactive commands) feed it events and render its state.
//
// Submitting runs in three steps so a front end can keep network I/O off its
// event loop:
//
//	sub, err := ctrl.Prepare(values)        // validate, build payload
//	user, err := ctrl.Execute(ctx, sub)     // network only, no state change
//	err = ctrl.Complete(sub, user, err)     // notify, reset, reload
//
// Submit runs all three in sequence. Uploader splits avatar uploads the same
// way (Begin, Transfer, Finish).
//
// A Controller is not safe for concurrent use. Execute and Transfer only read
// immutable configuration and may run on another goroutine.
package userform
