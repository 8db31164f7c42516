// Package apiclient is the request layer for the valuation backend API:
// timeouts, retry, response caching, a per-endpoint rate gate, bearer auth
// and uniform success/error envelopes.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/valuation-cli/internal/resilience"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8000/api/v1"

// Options configures a Client. Zero values take the documented defaults.
type Options struct {
	BaseURL string

	// Timeout bounds each attempt. Default: 30s.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt. DELETE
	// never retries. Default: 3; use a negative value for none.
	MaxRetries int

	// RetryBaseDelay is multiplied by the retry number. Default: 1s.
	RetryBaseDelay time.Duration

	// CacheTTL is the lifetime of cached GET responses. Default: 5m.
	CacheTTL time.Duration

	// RateLimit calls per RateWindow per endpoint. Default: 60 per 60s;
	// a negative RateLimit disables the gate.
	RateLimit  int
	RateWindow time.Duration

	UserAgent string

	Tokens TokenStore

	// OnUnauthorized is called with the login path after a 401, once the
	// token has been cleared.
	OnUnauthorized func(loginPath string)
	LoginPath      string

	Interceptors Interceptors
	Metrics      *Metrics
	HTTPClient   *http.Client

	// Now overrides the clock used by the cache and the rate gate.
	Now func() time.Time
}

// RequestOptions configures a single call.
type RequestOptions struct {
	// Body is JSON-encoded unless it is a *MultipartBody, []byte or io.Reader.
	Body    any
	Headers map[string]string
	Query   url.Values

	SkipCache bool
	CacheTTL  time.Duration
	CacheTags []string

	// Retries overrides Options.MaxRetries when non-nil.
	Retries *int
}

// Client performs backend API calls.
type Client struct {
	opts    Options
	http    *http.Client
	cache   *responseCache
	limiter *slidingWindow
	metrics *Metrics
	now     func() time.Time
}

// New creates a Client with the given options.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = 60
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = time.Minute
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "valuation-cli/1.0"
	}
	if opts.LoginPath == "" {
		opts.LoginPath = DefaultLoginPath
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		opts:    opts,
		http:    hc,
		cache:   newResponseCache(opts.Now),
		limiter: newSlidingWindow(opts.RateLimit, opts.RateWindow, opts.Now),
		metrics: opts.Metrics,
		now:     opts.Now,
	}
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.opts.BaseURL
}

// Metrics returns the client's metrics.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// Get performs a cached GET.
func (c *Client) Get(ctx context.Context, endpoint string, opts *RequestOptions) (*Response, error) {
	return c.Request(ctx, http.MethodGet, endpoint, opts)
}

// Post performs a POST with body.
func (c *Client) Post(ctx context.Context, endpoint string, body any, opts *RequestOptions) (*Response, error) {
	return c.Request(ctx, http.MethodPost, endpoint, withBody(opts, body))
}

// Put performs a PUT with body.
func (c *Client) Put(ctx context.Context, endpoint string, body any, opts *RequestOptions) (*Response, error) {
	return c.Request(ctx, http.MethodPut, endpoint, withBody(opts, body))
}

// Patch performs a PATCH with body.
func (c *Client) Patch(ctx context.Context, endpoint string, body any, opts *RequestOptions) (*Response, error) {
	return c.Request(ctx, http.MethodPatch, endpoint, withBody(opts, body))
}

// Delete performs a DELETE. It is never retried.
func (c *Client) Delete(ctx context.Context, endpoint string, opts *RequestOptions) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, endpoint, opts)
}

// InvalidateTag drops all cached responses carrying tag.
func (c *Client) InvalidateTag(tag string) int {
	return c.cache.invalidateTag(tag)
}

// InvalidateEndpoint drops cached responses for endpoint and anything below it.
func (c *Client) InvalidateEndpoint(endpoint string) int {
	return c.cache.invalidateURLPrefix(c.opts.BaseURL + normalizeEndpoint(endpoint))
}

// ClearCache drops every cached response.
func (c *Client) ClearCache() {
	c.cache.clear()
}

// Request performs a call and returns the success envelope, or an *APIError.
func (c *Client) Request(ctx context.Context, method, endpoint string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method = strings.ToUpper(method)
	endpoint = normalizeEndpoint(endpoint)
	start := c.now()

	body, err := encodeBody(opts.Body)
	if err != nil {
		return nil, c.fail(method, endpoint, start, newAPIError(endpoint, StatusNetworkError, "invalid request body", err))
	}

	fullURL := c.opts.BaseURL + endpoint
	if len(opts.Query) > 0 {
		fullURL += "?" + opts.Query.Encode()
	}

	cacheable := method == http.MethodGet && !opts.SkipCache
	key := cacheKey(method, fullURL, body.data)
	if cacheable {
		if resp, ok := c.cache.get(key); ok {
			c.metrics.observeCacheHit(endpoint)
			resp.Cached = true
			return resp, nil
		}
	}

	if !c.limiter.allow(endpoint) {
		c.metrics.observeRateLimited(endpoint)
		apiErr := newAPIError(endpoint, StatusRateLimited, "Rate limit exceeded", nil)
		apiErr.Detail = "too many requests to this endpoint; try again shortly"
		return nil, c.fail(method, endpoint, start, apiErr)
	}

	policy := resilience.Policy{
		MaxRetries: c.opts.MaxRetries,
		BaseDelay:  c.opts.RetryBaseDelay,
		OnRetry: func(attempt int, err error) {
			c.metrics.observeRetry(method, endpoint)
			zap.L().Warn("retrying api request",
				zap.String("method", method),
				zap.String("endpoint", endpoint),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		},
	}
	if opts.Retries != nil {
		policy.MaxRetries = *opts.Retries
	}
	if method == http.MethodDelete {
		policy.MaxRetries = 0
	}

	resp, err := resilience.Do(ctx, policy, func(ctx context.Context) (*Response, error) {
		return c.attempt(ctx, method, endpoint, fullURL, body, opts.Headers)
	})
	if err != nil {
		apiErr, ok := AsAPIError(err)
		if !ok {
			apiErr = newAPIError(endpoint, StatusNetworkError, "Network error", err)
		}
		return nil, c.fail(method, endpoint, start, apiErr)
	}

	status := resp.StatusCode
	resp, err = c.opts.Interceptors.applyResponse(resp)
	if err != nil {
		apiErr, ok := AsAPIError(err)
		if !ok {
			apiErr = newAPIError(endpoint, status, err.Error(), err)
		}
		return nil, c.fail(method, endpoint, start, apiErr)
	}

	if cacheable {
		ttl := c.opts.CacheTTL
		if opts.CacheTTL > 0 {
			ttl = opts.CacheTTL
		}
		c.cache.set(key, resp, ttl, opts.CacheTags)
	}

	c.metrics.observeRequest(method, endpoint, status, c.now().Sub(start))
	return resp, nil
}

// attempt performs one network round trip bounded by the configured timeout.
func (c *Client) attempt(ctx context.Context, method, endpoint, fullURL string, body encodedBody, headers map[string]string) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	var reader io.Reader
	if body.kind != bodyNone {
		reader = bytes.NewReader(body.data)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, fullURL, reader)
	if err != nil {
		return nil, newAPIError(endpoint, StatusNetworkError, "invalid request", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	switch body.kind {
	case bodyJSON:
		if req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", body.contentType)
		}
	case bodyMultipart:
		req.Header.Set("Content-Type", body.contentType)
	}

	if c.opts.Tokens != nil {
		token, err := c.opts.Tokens.Token(ctx)
		if err != nil {
			zap.L().Warn("read auth token", zap.Error(err))
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	if err := c.opts.Interceptors.applyRequest(req); err != nil {
		if apiErr, ok := AsAPIError(err); ok {
			return nil, apiErr
		}
		return nil, newAPIError(endpoint, StatusNetworkError, "request interceptor failed", err)
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, newAPIError(endpoint, StatusNetworkError, "Request cancelled", err)
		case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
			apiErr := newAPIError(endpoint, StatusTimeout, "Request timeout", err)
			apiErr.Detail = "no response within " + c.opts.Timeout.String()
			return nil, apiErr
		default:
			return nil, newAPIError(endpoint, StatusNetworkError, "Network error", err)
		}
	}
	defer httpResp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, newAPIError(endpoint, StatusTimeout, "Request timeout", err)
		}
		return nil, newAPIError(endpoint, StatusNetworkError, "read response body", err)
	}

	if httpResp.StatusCode >= 400 {
		msg, detail := parseErrorBody(data, httpResp.StatusCode)
		apiErr := newAPIError(endpoint, httpResp.StatusCode, msg, nil)
		apiErr.Detail = detail
		if httpResp.StatusCode == http.StatusUnauthorized {
			c.handleUnauthorized(ctx)
		}
		return nil, apiErr
	}

	payload := json.RawMessage("null")
	if len(bytes.TrimSpace(data)) > 0 {
		if json.Valid(data) {
			payload = json.RawMessage(data)
		} else {
			quoted, _ := json.Marshal(string(data))
			payload = quoted
		}
	}

	return &Response{
		Data:       payload,
		Success:    true,
		Timestamp:  c.now().UTC(),
		StatusCode: httpResp.StatusCode,
	}, nil
}

func (c *Client) handleUnauthorized(ctx context.Context) {
	if c.opts.Tokens != nil {
		if err := c.opts.Tokens.ClearToken(ctx); err != nil {
			zap.L().Warn("clear auth token", zap.Error(err))
		}
	}
	if c.opts.OnUnauthorized != nil {
		c.opts.OnUnauthorized(c.opts.LoginPath)
	}
}

func (c *Client) fail(method, endpoint string, start time.Time, apiErr *APIError) error {
	apiErr = c.opts.Interceptors.applyError(apiErr)
	c.metrics.observeRequest(method, endpoint, apiErr.Status, c.now().Sub(start))
	return apiErr
}

func withBody(opts *RequestOptions, body any) *RequestOptions {
	if opts == nil {
		return &RequestOptions{Body: body}
	}
	cp := *opts
	cp.Body = body
	return &cp
}

func normalizeEndpoint(endpoint string) string {
	if endpoint == "" {
		return "/"
	}
	if !strings.HasPrefix(endpoint, "/") {
		return "/" + endpoint
	}
	return endpoint
}
