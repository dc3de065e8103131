// Package ui renders grrctl's loading indicator in the terminal.
//
// Run executes a unit of work while a Bubble Tea program shows a spinner and
// the number of API requests in flight. The program never talks to the API:
// it re-reads a loading.Registry snapshot on a fixed tick, the same way a
// dashboard polls a shared store, and exits as soon as the work returns.
//
//	err := ui.Run(ctx, ui.Options{Registry: registry, Label: "Polling flow"},
//		func(ctx context.Context) error {
//			_, err := handle.Wait(ctx)
//			return err
//		})
//
// ctrl+c cancels the work's context instead of killing the program, so the
// work can unwind and release its loading tokens before Run returns.
package ui
