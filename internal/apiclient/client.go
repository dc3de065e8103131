package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/grr-tools/grrctl/internal/loading"
)

// Doer sends a single HTTP request. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Params are query parameters for calls without a payload.
type Params map[string]string

// Settings tune a call without a payload.
type Settings struct {
	// Cache serves GET responses from the local cache and stores successful
	// ones into it. Ignored for HEAD.
	Cache bool
}

// File is one upload in a multipart request.
type File struct {
	Name    string
	Content io.Reader
}

// Files maps multipart field names to uploads.
type Files map[string]File

// PayloadOptions tune a call with a payload.
type PayloadOptions struct {
	// StripTypeInfo passes the params through StripTypeInfo before encoding.
	StripTypeInfo bool
	// Files switches the body to multipart/form-data.
	Files Files
}

// ParamsField is the multipart field that carries the JSON-encoded params
// next to uploaded files.
const ParamsField = "_params_"

const (
	apiPrefix        = "/api/"
	defaultAPIURL    = "127.0.0.1:8000"
	defaultUserAgent = "grrctl/0.1"
	defaultCacheSize = 128
	requestTimeout   = 30 * time.Second
)

// Client dispatches calls against the console's REST API. Every call holds a
// loading token for as long as it is in flight.
type Client struct {
	baseURL   *url.URL
	http      Doer
	loading   loading.Indicator
	cache     *lru.Cache[string, *Response]
	log       *zap.Logger
	userAgent string
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	http      Doer
	timeout   time.Duration
	loading   loading.Indicator
	log       *zap.Logger
	cacheSize int
	userAgent string
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(d Doer) Option {
	return func(o *clientOptions) { o.http = d }
}

// WithTimeout sets the per-request timeout of the default transport.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithLoading attaches a loading indicator.
func WithLoading(ind loading.Indicator) Option {
	return func(o *clientOptions) { o.loading = ind }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *clientOptions) { o.log = log }
}

// WithCacheSize bounds the GET response cache. Zero or less disables it.
func WithCacheSize(n int) Option {
	return func(o *clientOptions) { o.cacheSize = n }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *clientOptions) { o.userAgent = ua }
}

// NewClient builds a Client for the console reachable at apiURL. A bare
// host:port is accepted and defaults to http.
func NewClient(apiURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(apiURL)
	if err != nil {
		return nil, err
	}

	o := clientOptions{
		timeout:   requestTimeout,
		cacheSize: defaultCacheSize,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.http == nil {
		o.http = &http.Client{Timeout: o.timeout}
	}
	if o.loading == nil {
		o.loading = loading.Nop{}
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	if strings.TrimSpace(o.userAgent) == "" {
		o.userAgent = defaultUserAgent
	}

	c := &Client{
		baseURL:   base,
		http:      o.http,
		loading:   o.loading,
		log:       o.log,
		userAgent: o.userAgent,
	}
	if o.cacheSize > 0 {
		cache, err := lru.New[string, *Response](o.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create response cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// URL returns the absolute URL for path with params as a sorted query string.
func (c *Client) URL(path string, params Params) string {
	u := strings.TrimSuffix(c.baseURL.String(), "/") + apiPath(path)
	if query := BuildQuery(params); query != "" {
		u += "?" + query
	}
	return u
}

// Head issues a HEAD request.
func (c *Client) Head(ctx context.Context, path string, params Params) (*Response, error) {
	return c.SendWithoutPayload(ctx, http.MethodHead, path, params, Settings{})
}

// Get issues a GET request that never touches the local cache.
func (c *Client) Get(ctx context.Context, path string, params Params) (*Response, error) {
	return c.SendWithoutPayload(ctx, http.MethodGet, path, params, Settings{})
}

// GetCached issues a GET request served from the local cache when possible.
func (c *Client) GetCached(ctx context.Context, path string, params Params) (*Response, error) {
	return c.SendWithoutPayload(ctx, http.MethodGet, path, params, Settings{Cache: true})
}

// Post issues a POST request with params as payload.
func (c *Client) Post(ctx context.Context, path string, params any, opts PayloadOptions) (*Response, error) {
	return c.SendWithPayload(ctx, http.MethodPost, path, params, opts)
}

// Patch issues a PATCH request with params as payload.
func (c *Client) Patch(ctx context.Context, path string, params any, opts PayloadOptions) (*Response, error) {
	return c.SendWithPayload(ctx, http.MethodPatch, path, params, opts)
}

// Delete issues a DELETE request with params as payload.
func (c *Client) Delete(ctx context.Context, path string, params any, opts PayloadOptions) (*Response, error) {
	return c.SendWithPayload(ctx, http.MethodDelete, path, params, opts)
}

// ClearCache drops every cached GET response.
func (c *Client) ClearCache() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

// SendWithoutPayload issues a HEAD or GET request with params in the query
// string.
func (c *Client) SendWithoutPayload(ctx context.Context, method, path string, params Params, settings Settings) (*Response, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	switch method {
	case http.MethodHead, http.MethodGet:
	default:
		return nil, fmt.Errorf("method %s does not take a query-only request", method)
	}

	reqURL := c.URL(path, params)
	useCache := settings.Cache && method == http.MethodGet && c.cache != nil
	if useCache {
		if cached, ok := c.cache.Get(reqURL); ok {
			c.log.Debug("serving cached response", zap.String("url", reqURL))
			return cached.clone(), nil
		}
	}

	token := c.loading.Start()
	defer c.loading.Stop(token)

	resp, err := c.send(ctx, method, path, reqURL, nil, "")
	if err != nil {
		return nil, err
	}
	if useCache {
		c.cache.Add(reqURL, resp.clone())
	}
	return resp, nil
}

// SendWithPayload issues a POST, PATCH or DELETE request. Without files the
// params are sent as a JSON body; with files the body is multipart with one
// part per file plus the params under ParamsField. Nil params send no body
// and no params part.
func (c *Client) SendWithPayload(ctx context.Context, method, path string, params any, opts PayloadOptions) (*Response, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	switch method {
	case http.MethodPost, http.MethodPatch, http.MethodDelete:
	default:
		return nil, fmt.Errorf("method %s does not take a payload", method)
	}

	var encoded []byte
	if params != nil {
		payload, err := ToTree(params)
		if err != nil {
			return nil, err
		}
		if opts.StripTypeInfo {
			payload = StripTypeInfo(payload)
		}
		encoded, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case len(opts.Files) > 0:
		buf, ct, err := multipartBody(opts.Files, encoded)
		if err != nil {
			return nil, err
		}
		body = buf
		contentType = ct
	case encoded != nil:
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	token := c.loading.Start()
	defer c.loading.Stop(token)

	resp, err := c.send(ctx, method, path, c.URL(path, nil), body, contentType)
	if err != nil {
		return nil, err
	}
	c.ClearCache()
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, path, reqURL string, body io.Reader, contentType string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	started := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("method", method),
			zap.String("url", reqURL),
			zap.Error(err),
		)
		return nil, &ResponseError{Method: method, Path: path, Err: fmt.Errorf("execute request: %w", err)}
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &ResponseError{Method: method, Path: path, Err: fmt.Errorf("read response: %w", err)}
	}
	resp := &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   data,
	}
	c.log.Debug("request settled",
		zap.String("method", method),
		zap.String("url", reqURL),
		zap.Int("status", resp.Status),
		zap.Duration("took", time.Since(started)),
	)
	if !resp.OK() {
		return nil, &ResponseError{Method: method, Path: path, Response: resp}
	}
	return resp, nil
}

func multipartBody(files Files, params []byte) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for field, file := range files {
		name := file.Name
		if name == "" {
			name = field
		}
		part, err := w.CreateFormFile(field, name)
		if err != nil {
			return nil, "", fmt.Errorf("create part %q: %w", field, err)
		}
		if file.Content != nil {
			if _, err := io.Copy(part, file.Content); err != nil {
				return nil, "", fmt.Errorf("write part %q: %w", field, err)
			}
		}
	}
	if params != nil {
		if err := w.WriteField(ParamsField, string(params)); err != nil {
			return nil, "", fmt.Errorf("write params part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func (r *Response) clone() *Response {
	if r == nil {
		return nil
	}
	return &Response{
		Status: r.Status,
		Header: r.Header.Clone(),
		Body:   bytes.Clone(r.Body),
	}
}

func parseBaseURL(apiURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiURL)
	if trimmed == "" {
		trimmed = defaultAPIURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api url %q: %w", apiURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api url %q: missing host", apiURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
