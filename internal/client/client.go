// Package client implements the resilient HTTP layer for the task backend.
// It composes the retry executor, the TTL response cache and per-call
// timeout cancellation around each outbound request, maps failures into
// the apierr taxonomy, and announces connectivity transitions on the
// event bus.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck/internal/apierr"
	"github.com/taskdeck/taskdeck/internal/cache"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/event"
	"github.com/taskdeck/taskdeck/internal/metrics"
	"github.com/taskdeck/taskdeck/internal/retry"
)

// DefaultTimeout bounds a single call when no per-call override is given.
const DefaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	BaseURL    string        // scheme://host:port, no trailing slash
	APIPrefix  string        // e.g. /api/v1, prepended to non-root paths
	Timeout    time.Duration // per-call timeout, DefaultTimeout if zero
	Retry      retry.Options
	// DisableRetry makes every request single-attempt. A zero Retry
	// alone means "use defaults", so no-retry needs an explicit switch.
	DisableRetry bool
	HTTPClient   *http.Client
	Bus        *event.Bus  // optional; connectivity events are dropped if nil
	ErrorLog   *apierr.Log // optional; NewLog(DefaultLogCapacity) if nil
}

// Client issues requests against the backend. Safe for concurrent use.
type Client struct {
	baseURL   string
	apiPrefix string
	timeout   time.Duration
	retryOpts retry.Options
	http      *http.Client
	bus       *event.Bus
	errlog    *apierr.Log
	cache     *cache.Cache[Response]

	mu       sync.Mutex
	failures int // consecutive Do calls that exhausted retries
}

// New creates a client. Zero-value options fall back to defaults.
func New(opts Options) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		apiPrefix: opts.APIPrefix,
		timeout:   opts.Timeout,
		retryOpts: opts.Retry,
		http:      opts.HTTPClient,
		bus:       opts.Bus,
		errlog:    opts.ErrorLog,
		cache:     cache.New[Response](),
	}
	if c.baseURL == "" {
		c.baseURL = "http://localhost:8888"
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if opts.DisableRetry {
		c.retryOpts = retry.Options{ShouldRetry: func(error) bool { return false }}
	} else if c.retryOpts.ShouldRetry == nil && c.retryOpts.MaxRetries == 0 {
		c.retryOpts = retry.DefaultOptions()
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.errlog == nil {
		c.errlog = apierr.NewLog(apierr.DefaultLogCapacity)
	}
	return c
}

// FromConfig builds a client from the loaded configuration.
func FromConfig(cfg config.Config, bus *event.Bus) *Client {
	return New(Options{
		BaseURL:   cfg.Backend.BaseURL,
		APIPrefix: cfg.Backend.APIPrefix,
		Timeout:   cfg.Backend.Timeout(),
		Retry: retry.Options{
			MaxRetries:    cfg.Retry.MaxRetries,
			BaseDelay:     time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
			MaxDelay:      time.Duration(cfg.Retry.MaxDelayMS) * time.Millisecond,
			BackoffFactor: cfg.Retry.BackoffFactor,
			ShouldRetry:   apierr.IsRecoverable,
		},
		Bus: bus,
	})
}

// Request describes one outbound call.
type Request struct {
	Method  string // GET when empty
	Path    string // joined under APIPrefix unless Root is set
	Root    bool   // bypass APIPrefix (the /health endpoint lives at the root)
	Query   url.Values
	Body    any           // JSON-marshaled when non-nil
	Timeout time.Duration // per-call override
}

// CachePolicy opts a GET request into the TTL cache.
type CachePolicy struct {
	TTL time.Duration
}

// Response is the outcome of a successful (2xx) call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Cached     bool // served from the TTL cache, no network I/O
}

// Decode unmarshals the response body into v.
func (r Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// Do executes a request. GETs with a cache policy are served from the
// TTL cache when possible; everything else goes through the retry
// executor with a per-call timeout. Every unrecovered failure is
// recorded to the error log and propagated to the caller.
func (c *Client) Do(ctx context.Context, req Request, cp *CachePolicy) (Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	path := c.requestPath(req)
	cacheable := method == http.MethodGet && cp != nil
	var key string
	if cacheable {
		key = cache.Key(path, req.Query)
		if resp, ok := c.cache.Get(key); ok {
			metrics.CacheHits.Inc()
			resp.Cached = true
			return resp, nil
		}
		metrics.CacheMisses.Inc()
	}

	attempts := 0
	resp, err := retry.Do(ctx, c.retryOpts, func(ctx context.Context) (Response, error) {
		attempts++
		if attempts > 1 {
			metrics.RetriesTotal.Inc()
		}
		return c.once(ctx, method, path, req)
	})
	if err != nil {
		c.errlog.Record(method+" "+path, err)
		c.noteFailure(err)
		return Response{}, err
	}
	c.noteSuccess()

	if cacheable {
		ttl := cp.TTL
		if ttl <= 0 {
			ttl = 30 * time.Second
		}
		c.cache.Set(key, resp, ttl)
	}
	return resp, nil
}

// once performs a single network attempt with its own timeout.
func (c *Client) once(ctx context.Context, method, path string, req Request) (Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	u := c.baseURL + path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return Response{}, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	hr, err := http.NewRequestWithContext(cctx, method, u, body)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	hr.Header.Set("Accept", "application/json")
	hr.Header.Set("X-Request-ID", uuid.NewString())
	if req.Body != nil {
		hr.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	res, err := c.http.Do(hr)
	metrics.RequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		// The caller's own cancellation is not a transport failure.
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.RequestErrors.WithLabelValues("timeout").Inc()
			return Response{}, &apierr.TimeoutError{Timeout: timeout}
		}
		metrics.RequestErrors.WithLabelValues("network").Inc()
		return Response{}, &apierr.NetworkError{Cause: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		metrics.RequestErrors.WithLabelValues("network").Inc()
		return Response{}, &apierr.NetworkError{Cause: err}
	}

	metrics.RequestsTotal.WithLabelValues(method, statusClass(res.StatusCode)).Inc()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		metrics.RequestErrors.WithLabelValues("api").Inc()
		return Response{}, parseAPIError(res, data)
	}

	return Response{StatusCode: res.StatusCode, Header: res.Header, Body: data}, nil
}

// Ping hits the root health endpoint once, bypassing cache and retries.
// Used by the health monitor, which does its own failure accounting.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.once(ctx, http.MethodGet, "/health", Request{Root: true})
	return err
}

// GetJSON is a convenience wrapper for cached JSON GETs.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, cp *CachePolicy, out any) error {
	resp, err := c.Do(ctx, Request{Path: path, Query: query}, cp)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// InvalidateCache removes every cached response whose API path starts
// with prefix (e.g. "/tasks"). Returns the number of entries removed.
func (c *Client) InvalidateCache(prefix string) int {
	n := c.cache.InvalidatePrefix(c.apiPrefix + prefix)
	metrics.CacheInvalidations.Add(float64(n))
	return n
}

// ClearCache drops all cached responses.
func (c *Client) ClearCache() {
	c.cache.Clear()
}

// CacheLen returns the number of cached responses.
func (c *Client) CacheLen() int {
	return c.cache.Len()
}

// ErrorLog exposes the bounded error log for diagnostics surfaces.
func (c *Client) ErrorLog() *apierr.Log {
	return c.errlog
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) requestPath(req Request) string {
	if req.Root {
		return req.Path
	}
	return c.apiPrefix + req.Path
}

// noteFailure publishes an error event after a request exhausted all
// retries, and tracks the failure streak for the reconnect event.
func (c *Client) noteFailure(err error) {
	c.mu.Lock()
	c.failures++
	c.mu.Unlock()
	if c.bus != nil {
		c.bus.Publish(event.Event{Type: event.Error, Err: err, Message: apierr.UserMessage(err)})
	}
}

// noteSuccess publishes a connected event on the first success after at
// least one prior failure.
func (c *Client) noteSuccess() {
	c.mu.Lock()
	hadFailures := c.failures > 0
	c.failures = 0
	c.mu.Unlock()
	if hadFailures && c.bus != nil {
		c.bus.Publish(event.Event{Type: event.Connected, Message: "backend reachable again"})
	}
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// parseAPIError maps a non-2xx response into an APIError. The code comes
// from the X-Error-Code header or the error body; details fall back to
// raw body text when the body is not JSON.
func parseAPIError(res *http.Response, body []byte) *apierr.APIError {
	ae := &apierr.APIError{
		Status: res.StatusCode,
		Code:   res.Header.Get("X-Error-Code"),
	}

	var parsed struct {
		Error *struct {
			Code    string          `json:"code"`
			Message string          `json:"message"`
			Details json.RawMessage `json:"details"`
		} `json:"error"`
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Detail  string          `json:"detail"`
		Details json.RawMessage `json:"details"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		switch {
		case parsed.Error != nil:
			if ae.Code == "" {
				ae.Code = parsed.Error.Code
			}
			ae.Message = parsed.Error.Message
			ae.Details = parsed.Error.Details
		default:
			if ae.Code == "" {
				ae.Code = parsed.Code
			}
			ae.Message = parsed.Message
			if ae.Message == "" {
				ae.Message = parsed.Detail
			}
			ae.Details = parsed.Details
		}
	}
	if ae.Message == "" {
		ae.Message = strings.TrimSpace(string(body))
	}
	if ae.Message == "" {
		ae.Message = http.StatusText(res.StatusCode)
	}
	return ae
}
