package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/grr-tools/grrctl/internal/apiclient"
)

// DefaultInterval is how often a loading frame is probed for readiness.
const DefaultInterval = 500 * time.Millisecond

// Headers set by the server on a 403 reply.
const (
	HeaderUnauthorizedSubject = "X-GRR-Unauthorized-Access-Subject"
	HeaderUnauthorizedReason  = "X-GRR-Unauthorized-Access-Reason"
)

// Client is the part of the API client the downloader needs.
type Client interface {
	Head(ctx context.Context, path string, params apiclient.Params) (*apiclient.Response, error)
	URL(path string, params apiclient.Params) string
}

// Notifier receives unauthorized-access reports. *events.Bus implements it.
type Notifier interface {
	Notify(subject, reason string)
}

// Frame is a download in progress whose readiness can be probed.
type Frame interface {
	// Ready reports whether the download completed. An error means the
	// frame's content cannot be inspected, which is how a failed download
	// shows up.
	Ready() (bool, error)
	Close() error
}

// FrameLoader starts loading url into a new Frame.
type FrameLoader interface {
	Load(ctx context.Context, url string) (Frame, error)
}

// ErrFrameAccess is reported by frames whose content cannot be inspected,
// typically because the server answered with an error page.
var ErrFrameAccess = errors.New("frame content is not accessible")

// RenderError is returned when a frame could not be probed. The cause is
// kept for logs; callers only learn that the download failed.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return "download failed: unknown error"
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Downloader retrieves files exposed by the API.
type Downloader struct {
	client   Client
	loader   FrameLoader
	notifier Notifier
	interval time.Duration
	log      *zap.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithNotifier sets who hears about 403 replies.
func WithNotifier(n Notifier) Option {
	return func(d *Downloader) { d.notifier = n }
}

// WithInterval overrides DefaultInterval.
func WithInterval(interval time.Duration) Option {
	return func(d *Downloader) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(d *Downloader) {
		if log != nil {
			d.log = log
		}
	}
}

// New returns a Downloader probing through client and loading through loader.
func New(client Client, loader FrameLoader, opts ...Option) *Downloader {
	d := &Downloader{
		client:   client,
		loader:   loader,
		interval: DefaultInterval,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download checks with a HEAD request that path may be fetched, then loads it
// into a frame and waits for the frame to become ready.
//
// A 403 on the HEAD request is reported to the notifier with the subject and
// reason headers before the error is returned. A frame that cannot be probed
// yields a *RenderError.
func (d *Downloader) Download(ctx context.Context, path string, params apiclient.Params) error {
	if _, err := d.client.Head(ctx, path, params); err != nil {
		d.reportUnauthorized(err)
		return err
	}

	target := d.client.URL(path, params)
	frame, err := d.loader.Load(ctx, target)
	if err != nil {
		return fmt.Errorf("load frame: %w", err)
	}
	defer func() {
		if err := frame.Close(); err != nil {
			d.log.Debug("closing frame failed", zap.String("url", target), zap.Error(err))
		}
	}()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			ready, err := frame.Ready()
			if err != nil {
				d.log.Debug("frame not accessible", zap.String("url", target), zap.Error(err))
				return &RenderError{Err: err}
			}
			if ready {
				d.log.Debug("download finished", zap.String("url", target))
				return nil
			}
		}
	}
}

func (d *Downloader) reportUnauthorized(err error) {
	var respErr *apiclient.ResponseError
	if !errors.As(err, &respErr) || respErr.Response == nil || respErr.Response.Status != http.StatusForbidden {
		return
	}
	subject := respErr.Response.Header.Get(HeaderUnauthorizedSubject)
	reason := respErr.Response.Header.Get(HeaderUnauthorizedReason)
	d.log.Info("unauthorized download",
		zap.String("subject", subject),
		zap.String("reason", reason),
	)
	if d.notifier != nil {
		d.notifier.Notify(subject, reason)
	}
}
