package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/jonwraymond/leagueops/cache"
	"github.com/jonwraymond/leagueops/resilience"
)

// DefaultBaseURL is the Yahoo Fantasy Sports API root.
const DefaultBaseURL = "https://fantasysports.yahooapis.com/fantasy/v2"

// DefaultMaxResponseBytes caps a single response body (32 MiB).
const DefaultMaxResponseBytes int64 = 32 << 20

// Config configures a Client.
type Config struct {
	// BaseURL is the API root. Default: DefaultBaseURL
	BaseURL string

	// Timeout bounds each attempt. Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt for
	// transient failures. Zero disables retries; negative uses the default.
	// Default: 2
	MaxRetries int

	// RetryDelay is the delay before the first retry. Default: 500ms
	RetryDelay time.Duration

	// MaxConcurrent caps in-flight requests. A request waits up to Timeout
	// for a slot. Default: 4
	MaxConcurrent int

	// BreakerFailures opens the breaker after this many consecutive
	// transient failures. Default: 5
	BreakerFailures int

	// BreakerReset is how long the breaker stays open. Default: 30 seconds
	BreakerReset time.Duration

	// MaxResponseBytes caps the response body. Default: 32 MiB
	MaxResponseBytes int64

	// UserAgent is sent with every request.
	UserAgent string
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 2
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerReset <= 0 {
		c.BreakerReset = 30 * time.Second
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = "leagueops"
	}
	return c
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the base HTTP client. Its transport is wrapped with
// the token source when one is set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTokenSource authenticates every request with tokens from ts.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithLogger sets the logger for retries and breaker transitions.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client fetches raw payloads from the fantasy API.
//
// Every Get runs through a resilience.Executor: a bulkhead caps concurrency,
// a breaker stops calls to a failing upstream, and transient failures are
// retried with exponential backoff. The retries happen inside one Get, so a
// caller admitted once by the rate governor never re-enters it.
type Client struct {
	config   Config
	base     *url.URL
	http     *http.Client
	tokens   oauth2.TokenSource
	logger   *zap.Logger
	breaker  *resilience.CircuitBreaker
	executor *resilience.Executor
}

// NewClient creates a new upstream client.
func NewClient(config Config, opts ...Option) (*Client, error) {
	config = config.withDefaults()

	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", ErrInvalidConfig, config.BaseURL)
	}

	c := &Client{
		config: config,
		base:   base,
		http:   &http.Client{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.tokens != nil {
		transport := c.http.Transport
		if transport == nil {
			transport = http.DefaultTransport
		}
		hc := *c.http
		hc.Transport = &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, c.tokens),
			Base:   transport,
		}
		c.http = &hc
	}

	c.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "upstream",
		MaxFailures:  config.BreakerFailures,
		ResetTimeout: config.BreakerReset,
		IsFailure:    IsTransient,
		OnStateChange: func(from, to resilience.State) {
			c.logger.Warn("upstream circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	execOpts := []resilience.ExecutorOption{
		resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: config.MaxConcurrent,
			MaxWait:       config.Timeout,
		})),
		resilience.WithCircuitBreaker(c.breaker),
		resilience.WithTimeout(config.Timeout),
	}
	if config.MaxRetries > 0 {
		execOpts = append(execOpts, resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  config.MaxRetries + 1,
			InitialDelay: config.RetryDelay,
			Jitter:       true,
			RetryIf:      IsTransient,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				c.logger.Info("retrying upstream request",
					zap.Int("attempt", attempt),
					zap.Duration("delay", delay),
					zap.Error(err),
				)
			},
		})))
	}
	c.executor = resilience.NewExecutor(execOpts...)

	return c, nil
}

// Get fetches path relative to the base URL and returns the response body.
// Failures are returned as *Error.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	err := c.executor.Execute(ctx, func(ctx context.Context) error {
		b, err := c.do(ctx, path)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, wrap(path, err)
	}
	return body, nil
}

// Fetch returns a cache.FetchFunc that calls Get for path.
func (c *Client) Fetch(path string) cache.FetchFunc {
	return func(ctx context.Context) ([]byte, error) {
		return c.Get(ctx, path)
	}
}

// CircuitBreaker returns the client's breaker for health reporting.
func (c *Client) CircuitBreaker() *resilience.CircuitBreaker {
	return c.breaker
}

// Config returns the client configuration with defaults applied.
func (c *Client) Config() Config {
	return c.config
}

// do performs a single attempt.
func (c *Client) do(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return nil, &Error{Kind: KindGeneral, Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, wrap(path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseBytes+1))
	if err != nil {
		return nil, wrap(path, fmt.Errorf("read response body: %w", err))
	}
	if int64(len(data)) > c.config.MaxResponseBytes {
		return nil, &Error{
			Kind:       KindGeneral,
			Path:       path,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("response exceeds %d bytes", c.config.MaxResponseBytes),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Kind:       kindForStatus(resp.StatusCode),
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), 512),
		}
	}
	return data, nil
}

// url joins path to the base URL and requests JSON. Path segments may carry
// matrix parameters such as "scoreboard;week=3".
func (c *Client) url(path string) string {
	u := *c.base
	u.Path = c.base.Path + "/" + strings.TrimLeft(path, "/")
	u.RawPath = ""
	q := u.Query()
	q.Set("format", "json")
	u.RawQuery = q.Encode()
	return u.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
