package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jonwraymond/leagueops/auth"
	"github.com/jonwraymond/leagueops/cache"
	"github.com/jonwraymond/leagueops/league"
	"github.com/jonwraymond/leagueops/observe"
	"github.com/jonwraymond/leagueops/resilience"
	"github.com/jonwraymond/leagueops/upstream"
)

// ErrInvalidConfig is matched by every *ValidationError.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// MinJWTSecretBytes is the shortest accepted admin.jwt_secret.
const MinJWTSecretBytes = 32

// Config is the complete service configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Cache     CacheConfig     `yaml:"cache"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Admin     AdminConfig     `yaml:"admin"`
	Observe   observe.Config  `yaml:"observe"`
	GameIDs   league.GameIDs  `yaml:"game_ids"`
}

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CacheConfig configures the store and the caching policy.
type CacheConfig struct {
	MaxSizeBytes  int64         `yaml:"max_size_bytes"`
	VolatileTTL   time.Duration `yaml:"volatile_ttl"`
	PurgeInterval time.Duration `yaml:"purge_interval"` // 0 disables the janitor

	// Regimes overrides the built-in category table, e.g.
	// {"standings": "permanent"}.
	Regimes map[string]string `yaml:"regimes"`
}

// RateLimitConfig configures the upstream rate governor.
type RateLimitConfig struct {
	MaxCalls int           `yaml:"max_calls"`
	Window   time.Duration `yaml:"window"`
}

// UpstreamConfig configures the fantasy API client.
type UpstreamConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	OAuth         OAuthConfig   `yaml:"oauth"`
}

// OAuthConfig holds upstream credentials. Values may be secret references.
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenURL     string `yaml:"token_url"`
	RefreshToken string `yaml:"refresh_token"`
}

// AdminConfig configures the operator HTTP surface.
type AdminConfig struct {
	Addr      string         `yaml:"addr"`
	APIKeys   []APIKeyConfig `yaml:"api_keys"`
	JWTSecret string         `yaml:"jwt_secret"`
	JWTIssuer string         `yaml:"jwt_issuer"`
}

// APIKeyConfig is one operator API key. Key holds the plaintext key or a
// secret reference; only its hash is kept at runtime.
type APIKeyConfig struct {
	ID        string   `yaml:"id"`
	Key       string   `yaml:"key"`
	Principal string   `yaml:"principal"`
	Scopes    []string `yaml:"scopes"`
}

// DefaultConfig returns a Config with defaults for everything except
// credentials and game ids.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			ShutdownTimeout: 15 * time.Second,
		},
		Cache: CacheConfig{
			MaxSizeBytes:  cache.DefaultStoreConfig().MaxSizeBytes,
			VolatileTTL:   5 * time.Minute,
			PurgeInterval: time.Minute,
		},
		RateLimit: RateLimitConfig{
			MaxCalls: 60,
			Window:   time.Minute,
		},
		Upstream: UpstreamConfig{
			BaseURL:       upstream.DefaultBaseURL,
			Timeout:       10 * time.Second,
			MaxRetries:    2,
			RetryDelay:    500 * time.Millisecond,
			MaxConcurrent: 4,
			OAuth: OAuthConfig{
				TokenURL: upstream.DefaultTokenURL,
			},
		},
		Admin: AdminConfig{
			Addr:      ":8080",
			JWTIssuer: "leagueops",
		},
		Observe: observe.Config{
			ServiceName: "leagueops",
			Tracing:     observe.TracingConfig{Exporter: "none", SamplePct: 1.0},
			Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
		GameIDs: league.GameIDs{},
	}
}

// Policy returns the caching policy: the built-in league category table
// with Regimes applied on top.
func (c CacheConfig) Policy() (cache.Policy, error) {
	regimes := league.DefaultRegimes()
	for category, name := range c.Regimes {
		r, err := cache.ParseRegime(name)
		if err != nil {
			return cache.Policy{}, fmt.Errorf("cache.regimes.%s: %w", category, err)
		}
		regimes[category] = r
	}
	p := cache.Policy{VolatileTTL: c.VolatileTTL, Regimes: regimes}
	if err := p.Validate(); err != nil {
		return cache.Policy{}, err
	}
	return p, nil
}

// StoreConfig returns the store settings.
func (c CacheConfig) StoreConfig() cache.StoreConfig {
	return cache.StoreConfig{MaxSizeBytes: c.MaxSizeBytes}
}

// GovernorConfig returns the rate governor settings.
func (c RateLimitConfig) GovernorConfig() resilience.GovernorConfig {
	return resilience.GovernorConfig{MaxCalls: c.MaxCalls, Window: c.Window}
}

// ClientConfig returns the upstream client settings.
func (c UpstreamConfig) ClientConfig() upstream.Config {
	return upstream.Config{
		BaseURL:       c.BaseURL,
		Timeout:       c.Timeout,
		MaxRetries:    c.MaxRetries,
		RetryDelay:    c.RetryDelay,
		MaxConcurrent: c.MaxConcurrent,
		UserAgent:     "leagueops",
	}
}

// OAuthConfig returns the upstream credentials.
func (c UpstreamConfig) OAuthConfig() upstream.OAuthConfig {
	return upstream.OAuthConfig{
		ClientID:     c.OAuth.ClientID,
		ClientSecret: c.OAuth.ClientSecret,
		TokenURL:     c.OAuth.TokenURL,
		RefreshToken: c.OAuth.RefreshToken,
	}
}

// ValidationError lists every problem found in a Config.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidConfig.Error() + ": " + strings.Join(e.Problems, "; ")
}

// Is reports whether target is ErrInvalidConfig.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Validate checks the whole config and returns a *ValidationError naming
// every problem, or nil.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Service.ShutdownTimeout < 0 {
		add("service.shutdown_timeout must not be negative")
	}

	if c.Cache.MaxSizeBytes <= 0 {
		add("cache.max_size_bytes must be positive")
	}
	if c.Cache.PurgeInterval < 0 {
		add("cache.purge_interval must not be negative")
	}
	if _, err := c.Cache.Policy(); err != nil {
		add("cache: %v", err)
	}

	if err := c.RateLimit.GovernorConfig().Validate(); err != nil {
		add("rate_limit: %v", err)
	}

	if u, err := url.Parse(c.Upstream.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("upstream.base_url %q must be an absolute http(s) URL", c.Upstream.BaseURL)
	}
	if c.Upstream.Timeout < 0 {
		add("upstream.timeout must not be negative")
	}
	if c.Upstream.MaxRetries < 0 {
		add("upstream.max_retries must not be negative")
	}
	if err := c.Upstream.OAuthConfig().Validate(); err != nil {
		add("upstream.oauth: %v", err)
	}

	if c.Admin.Addr == "" {
		add("admin.addr is required")
	}
	if len(c.Admin.APIKeys) == 0 && c.Admin.JWTSecret == "" {
		add("admin: at least one of api_keys or jwt_secret is required")
	}
	if c.Admin.JWTSecret != "" && len(c.Admin.JWTSecret) < MinJWTSecretBytes {
		add("admin.jwt_secret must be at least %d bytes", MinJWTSecretBytes)
	}
	seen := make(map[string]bool, len(c.Admin.APIKeys))
	for i, k := range c.Admin.APIKeys {
		if k.Key == "" || k.Principal == "" {
			add("admin.api_keys[%d]: key and principal are required", i)
		}
		if k.ID != "" && seen[k.ID] {
			add("admin.api_keys[%d]: duplicate id %q", i, k.ID)
		}
		seen[k.ID] = true
		for _, s := range k.Scopes {
			if s != auth.ScopeCacheRead && s != auth.ScopeCacheAdmin {
				add("admin.api_keys[%d]: unknown scope %q", i, s)
			}
		}
	}

	if err := c.Observe.Validate(); err != nil {
		add("observe: %v", err)
	}

	for sport, seasons := range c.GameIDs {
		if strings.TrimSpace(sport) == "" {
			add("game_ids: empty sport")
		}
		for season, id := range seasons {
			if strings.TrimSpace(season) == "" || strings.TrimSpace(id) == "" {
				add("game_ids.%s: season and game id are required", sport)
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}
