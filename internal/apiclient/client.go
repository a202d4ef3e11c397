// Package apiclient is the shared HTTP transport of the upstream literature
// API clients: rate limiting, retries and error mapping.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// UserAgent identifies the tool to upstream services.
	UserAgent = "LitScout/0.1 (scientific literature retrieval tool)"

	// DefaultMaxAttempts is the number of tries for a retryable request.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the first retry delay; it doubles on each retry.
	DefaultBaseDelay = 2 * time.Second

	// MaxDelay caps the retry delay.
	MaxDelay = 30 * time.Second

	maxBodyBytes = 64 << 20
)

// Service describes one upstream API.
type Service struct {
	Name           string
	BaseURL        string
	RateLimit      float64 // requests per second without a key
	KeyedRateLimit float64 // requests per second with a key; 0 means same as RateLimit
}

// Client is a rate-limited HTTP client for one upstream service.
type Client struct {
	service     Service
	httpClient  *http.Client
	limiter     *rate.Limiter
	rateLimit   *rate.Limit
	apiKey      string
	baseURL     string
	maxAttempts int
	baseDelay   time.Duration
	log         *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithRateLimit overrides the service rate limit.
func WithRateLimit(l rate.Limit) Option {
	return func(c *Client) {
		c.rateLimit = &l
	}
}

// WithRetry sets the attempt count and the initial backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		c.maxAttempts = maxAttempts
		c.baseDelay = baseDelay
	}
}

// WithLogger sets the logger used for retry and warning messages.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client for svc. The rate limit is chosen after options are
// applied so that a configured API key selects the keyed rate.
func New(svc Service, opts ...Option) *Client {
	c := &Client{
		service:     svc,
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		baseURL:     strings.TrimRight(svc.BaseURL, "/"),
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	limit := rate.Limit(svc.RateLimit)
	if c.apiKey != "" && svc.KeyedRateLimit > 0 {
		limit = rate.Limit(svc.KeyedRateLimit)
	}
	if c.rateLimit != nil {
		limit = *c.rateLimit
	}
	c.limiter = rate.NewLimiter(limit, 1)
	return c
}

// APIKey returns the configured API key.
func (c *Client) APIKey() string { return c.apiKey }

// BaseURL returns the effective base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Logger returns the client's logger.
func (c *Client) Logger() *zap.Logger { return c.log }

// Request describes one call relative to the base URL. An absolute Path
// bypasses the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any // JSON-encoded when non-nil
}

// Response is a fully read HTTP response with a success status.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Do performs req with rate limiting and retries. Non-success statuses are
// returned as errors from CheckHTTPErrors.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, err := c.once(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == c.maxAttempts {
			break
		}

		delay := c.backoffDuration(attempt)
		c.log.Debug("retrying request",
			zap.String("service", c.service.Name),
			zap.String("path", req.Path),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// backoffDuration returns the delay before retry number attempt (1-based):
// base, 2*base, 4*base and so on, capped at MaxDelay.
func (c *Client) backoffDuration(attempt int) time.Duration {
	backoff := c.baseDelay << uint(attempt-1)
	if backoff > MaxDelay || backoff < 0 {
		backoff = MaxDelay
	}
	return backoff
}

func (c *Client) once(ctx context.Context, req Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := req.Path
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	}
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("User-Agent", UserAgent)
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w: %v", c.service.Name, ErrNetwork, err)
	}
	defer resp.Body.Close()

	if err := CheckHTTPErrors(c.service.Name, resp.StatusCode); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: reading body: %v", c.service.Name, ErrNetwork, err)
	}
	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// GetJSON performs a GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, header http.Header, out any) error {
	resp, err := c.Do(ctx, Request{Path: path, Query: query, Header: header})
	if err != nil {
		return err
	}
	return c.decode(resp.Body, out)
}

// PostJSON performs a POST with a JSON body and decodes the JSON reply into out.
func (c *Client) PostJSON(ctx context.Context, path string, query url.Values, header http.Header, body, out any) error {
	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Query: query, Header: header, Body: body})
	if err != nil {
		return err
	}
	return c.decode(resp.Body, out)
}

func (c *Client) decode(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w: %v", c.service.Name, ErrInvalidResponse, err)
	}
	return nil
}
