package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/grr-tools/grrctl/internal/app"
	"github.com/grr-tools/grrctl/internal/poll"
)

func newCmdPoll(w io.Writer, rf *rootFlags) *cobra.Command {
	var field, equals string

	cmd := &cobra.Command{
		Use:   "poll PATH [KEY=VALUE...]",
		Short: "Poll PATH until the operation finishes and print the final response",
		Long: "Poll PATH with GET requests until the response field --field equals " +
			"--equals, then print the response body. A failed request stops polling.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			return rf.withApp(cmd.Context(), app.Options{}, "Polling "+args[0], func(ctx context.Context, a *app.App) error {
				handle := a.Poller.Poll(ctx, args[0], params, poll.FieldEquals(field, equals))
				resp, err := handle.Wait(ctx)
				if err != nil {
					return err
				}
				return writeBody(w, resp)
			})
		},
	}
	cmd.Flags().StringVar(&field, "field", "state", "response field to watch (gjson path)")
	cmd.Flags().StringVar(&equals, "equals", poll.FinishedState, "value of --field that ends polling")
	return cmd
}
