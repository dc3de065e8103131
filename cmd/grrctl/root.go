package main

import (
	"context"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/grr-tools/grrctl/internal/app"
	"github.com/grr-tools/grrctl/internal/config"
	"github.com/grr-tools/grrctl/internal/logging"
)

type rootFlags struct {
	ConfigPath string
	APIURL     string
	LogLevel   string
	Quiet      bool
}

func newRootCmd(w io.Writer) *cobra.Command {
	rf := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "grrctl",
		Short:         "Talk to a GRR console API from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&rf.ConfigPath, "config", "", "grrctl config path (default "+config.DefaultPath()+")")
	cmd.PersistentFlags().StringVar(&rf.APIURL, "api-url", "", "override the configured API URL")
	cmd.PersistentFlags().StringVar(&rf.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVarP(&rf.Quiet, "quiet", "q", false, "never show the loading indicator")

	cmd.AddCommand(
		newCmdGet(w, rf),
		newCmdHead(w, rf),
		newCmdSend(w, rf, http.MethodPost),
		newCmdSend(w, rf, http.MethodPatch),
		newCmdSend(w, rf, http.MethodDelete),
		newCmdPoll(w, rf),
		newCmdDownload(w, rf),
	)
	return cmd
}

// withApp builds the application, runs fn under the loading indicator and
// tears everything down afterwards.
func (rf *rootFlags) withApp(ctx context.Context, opts app.Options, label string, fn func(context.Context, *app.App) error) error {
	opts.ConfigPath = rf.ConfigPath
	opts.APIURL = rf.APIURL
	opts.LogLevel = rf.LogLevel
	opts.Quiet = rf.Quiet

	a, err := app.New(opts)
	if err != nil {
		return err
	}
	defer logging.Sync(a.Log)()
	defer a.Close()

	return a.Run(ctx, label, func(ctx context.Context) error {
		return fn(ctx, a)
	})
}
