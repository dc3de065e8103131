package download

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/grr-tools/grrctl/internal/apiclient"
)

const defaultFileName = "download.bin"

// FileLoader loads frames by streaming the URL into a file under Dir. The
// file is named after the Content-Disposition filename, or after the last
// path segment of the URL.
type FileLoader struct {
	Dir       string
	HTTP      apiclient.Doer
	UserAgent string
	// Saved, when set, is called with the path of every completed file.
	Saved func(path string)
}

var _ FrameLoader = (*FileLoader)(nil)

// Load starts the transfer in the background and returns immediately.
func (l *FileLoader) Load(ctx context.Context, rawURL string) (Frame, error) {
	if strings.TrimSpace(l.Dir) == "" {
		return nil, fmt.Errorf("download dir is empty")
	}
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if l.UserAgent != "" {
		req.Header.Set("User-Agent", l.UserAgent)
	}

	ctx, cancel := context.WithCancel(ctx)
	f := &fileFrame{cancel: cancel, done: make(chan struct{})}
	go f.fetch(l, req.WithContext(ctx))
	return f, nil
}

type fileFrame struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

func (f *fileFrame) Ready() (bool, error) {
	select {
	case <-f.done:
	default:
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

// Close abandons a transfer still in progress. A completed file is kept.
func (f *fileFrame) Close() error {
	f.cancel()
	<-f.done
	return nil
}

func (f *fileFrame) fetch(l *FileLoader, req *http.Request) {
	defer close(f.done)
	saved, err := l.save(req)

	f.mu.Lock()
	f.err = err
	f.mu.Unlock()

	if err == nil && l.Saved != nil {
		l.Saved(saved)
	}
}

func (l *FileLoader) save(req *http.Request) (string, error) {
	doer := l.HTTP
	if doer == nil {
		doer = http.DefaultClient
	}
	resp, err := doer.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: server returned status %d", ErrFrameAccess, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(l.Dir, ".grrctl-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close download: %w", err)
	}

	dest := filepath.Join(l.Dir, fileName(resp.Header.Get("Content-Disposition"), req.URL))
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("move download: %w", err)
	}
	return dest, nil
}

func fileName(disposition string, u *url.URL) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := sanitize(params["filename"]); name != "" {
				return name
			}
		}
	}
	if u != nil {
		if name := sanitize(path.Base(u.Path)); name != "" {
			return name
		}
	}
	return defaultFileName
}

func sanitize(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return ""
	}
	return name
}
