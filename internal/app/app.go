package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/grr-tools/grrctl/internal/apiclient"
	"github.com/grr-tools/grrctl/internal/config"
	"github.com/grr-tools/grrctl/internal/download"
	"github.com/grr-tools/grrctl/internal/events"
	"github.com/grr-tools/grrctl/internal/loading"
	"github.com/grr-tools/grrctl/internal/logging"
	"github.com/grr-tools/grrctl/internal/poll"
	"github.com/grr-tools/grrctl/internal/ui"
)

// Options configure the grrctl application.
type Options struct {
	ConfigPath  string
	LogLevel    string      // overrides the configured level when set
	APIURL      string      // overrides the configured API URL when set
	DownloadDir string      // overrides the configured download dir when set
	Quiet       bool        // never show the loading indicator
	Logger      *zap.Logger // built from the level when nil
}

// App holds every component grrctl commands use.
type App struct {
	Config     config.Config
	Log        *zap.Logger
	Loading    *loading.Registry
	Client     *apiclient.Client
	Events     *events.Bus
	Poller     *poll.Poller
	Downloader *download.Downloader

	quiet        bool
	stopWatching func()
}

// New loads configuration and wires the client, poller and downloader
// together. Close releases what New started.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load grrctl config: %w", err)
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.DownloadDir != "" {
		cfg.DownloadDir = opts.DownloadDir
	}

	log := opts.Logger
	if log == nil {
		log, err = logging.New(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	registry := &loading.Registry{}
	client, err := apiclient.NewClient(cfg.APIURL,
		apiclient.WithLoading(registry),
		apiclient.WithLogger(log.Named("api")),
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithCacheSize(cfg.CacheSize),
		apiclient.WithUserAgent(cfg.UserAgent),
	)
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}

	bus := events.NewBus(0)
	stop := bus.OnUnauthorized(func(u events.Unauthorized) {
		log.Warn("access denied",
			zap.String("subject", u.Subject),
			zap.String("reason", u.Reason),
		)
	})

	loader := &download.FileLoader{
		Dir:       cfg.DownloadDir,
		HTTP:      &http.Client{},
		UserAgent: cfg.UserAgent,
		Saved: func(path string) {
			fields := []zap.Field{zap.String("path", path)}
			if info, err := os.Stat(path); err == nil {
				fields = append(fields, zap.String("size", humanize.Bytes(uint64(info.Size()))))
			}
			log.Info("download saved", fields...)
		},
	}

	return &App{
		Config:  cfg,
		Log:     log,
		Loading: registry,
		Client:  client,
		Events:  bus,
		Poller: poll.New(client,
			poll.WithInterval(cfg.PollInterval),
			poll.WithLogger(log.Named("poll")),
		),
		Downloader: download.New(client, loader,
			download.WithNotifier(bus),
			download.WithInterval(cfg.DownloadCheck),
			download.WithLogger(log.Named("download")),
		),
		quiet:        opts.Quiet,
		stopWatching: stop,
	}, nil
}

// Run executes work, showing the loading indicator on an interactive
// stderr unless the app is quiet.
func (a *App) Run(ctx context.Context, label string, work func(ctx context.Context) error) error {
	if a.quiet || !isTerminal(os.Stderr) {
		return work(ctx)
	}
	return ui.Run(ctx, ui.Options{
		Registry: a.Loading,
		Theme:    a.Config.Theme,
		Label:    label,
		Output:   os.Stderr,
	}, work)
}

// Close stops the unauthorized watcher and shuts the event bus down.
func (a *App) Close() {
	a.stopWatching()
	a.Events.Close()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
