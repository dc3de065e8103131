package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grr-tools/grrctl/internal/apiclient"
	"github.com/grr-tools/grrctl/internal/app"
)

func newCmdGet(w io.Writer, rf *rootFlags) *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:   "get PATH [KEY=VALUE...]",
		Short: "Send a GET request and print the response body",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			return rf.withApp(cmd.Context(), app.Options{}, "GET "+args[0], func(ctx context.Context, a *app.App) error {
				resp, err := a.Client.SendWithoutPayload(ctx, http.MethodGet, args[0], params, apiclient.Settings{Cache: cached})
				if err != nil {
					return err
				}
				return writeBody(w, resp)
			})
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "serve the response from the local cache when possible")
	return cmd
}

func newCmdHead(w io.Writer, rf *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "head PATH [KEY=VALUE...]",
		Short: "Send a HEAD request and print the status and headers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			return rf.withApp(cmd.Context(), app.Options{}, "HEAD "+args[0], func(ctx context.Context, a *app.App) error {
				resp, err := a.Client.Head(ctx, args[0], params)
				if err != nil {
					return err
				}
				return writeHeaders(w, resp)
			})
		},
	}
}

// newCmdSend builds the post, patch and delete commands.
func newCmdSend(w io.Writer, rf *rootFlags, method string) *cobra.Command {
	var (
		data  string
		strip bool
		files []string
	)

	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " PATH",
		Short: fmt.Sprintf("Send a %s request with a JSON payload", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parsePayload(data)
			if err != nil {
				return err
			}
			uploads, closeFiles, err := openFiles(files)
			if err != nil {
				return err
			}
			defer closeFiles()

			opts := apiclient.PayloadOptions{StripTypeInfo: strip, Files: uploads}
			return rf.withApp(cmd.Context(), app.Options{}, method+" "+args[0], func(ctx context.Context, a *app.App) error {
				resp, err := a.Client.SendWithPayload(ctx, method, args[0], payload, opts)
				if err != nil {
					return err
				}
				return writeBody(w, resp)
			})
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON payload, or @file to read it from a file")
	cmd.Flags().BoolVar(&strip, "strip", false, "remove type annotations from the payload before sending")
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "upload a file as KEY=PATH (repeatable)")
	return cmd
}
