package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/grr-tools/grrctl/internal/app"
)

func newCmdDownload(w io.Writer, rf *rootFlags) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "download PATH [KEY=VALUE...]",
		Short: "Download the resource at PATH into the download directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			return rf.withApp(cmd.Context(), app.Options{DownloadDir: dir}, "Downloading "+args[0], func(ctx context.Context, a *app.App) error {
				if err := a.Downloader.Download(ctx, args[0], params); err != nil {
					return err
				}
				_, err := fmt.Fprintf(w, "downloaded %s into %s\n", args[0], a.Config.DownloadDir)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "override the configured download directory")
	return cmd
}
