package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/leagueops/auth"
	"github.com/jonwraymond/leagueops/cache"
	"github.com/jonwraymond/leagueops/league"
)

const validYAML = `
cache:
  max_size_bytes: 1048576
  volatile_ttl: 2m
  regimes:
    transactions: permanent
rate_limit:
  max_calls: 30
  window: 30s
upstream:
  max_retries: 0
  oauth:
    client_id: client
    client_secret: secret
    refresh_token: refresh
admin:
  addr: "127.0.0.1:9090"
  api_keys:
    - id: ops
      key: plain-key
      principal: ops@example.com
      scopes: ["cache:admin"]
game_ids:
  nfl:
    "2019": "390"
`

// validConfig returns a DefaultConfig with the fields Validate requires.
func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Upstream.OAuth.ClientID = "client"
	cfg.Upstream.OAuth.ClientSecret = "secret"
	cfg.Upstream.OAuth.RefreshToken = "refresh"
	cfg.Admin.APIKeys = []APIKeyConfig{{ID: "ops", Key: "k", Principal: "ops", Scopes: []string{auth.ScopeCacheRead}}}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Cache.MaxSizeBytes != 100<<20 {
		t.Errorf("MaxSizeBytes = %d, want 100 MiB", cfg.Cache.MaxSizeBytes)
	}
	if cfg.Cache.VolatileTTL != 5*time.Minute {
		t.Errorf("VolatileTTL = %v, want 5m", cfg.Cache.VolatileTTL)
	}
	if cfg.RateLimit.MaxCalls != 60 || cfg.RateLimit.Window != time.Minute {
		t.Errorf("RateLimit = %+v, want 60 per minute", cfg.RateLimit)
	}
	if err := validConfig().Validate(); err != nil {
		t.Errorf("defaults plus credentials should validate: %v", err)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse(context.Background(), []byte(validYAML), nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Cache.MaxSizeBytes != 1<<20 || cfg.Cache.VolatileTTL != 2*time.Minute {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.RateLimit.MaxCalls != 30 || cfg.RateLimit.Window != 30*time.Second {
		t.Errorf("RateLimit = %+v", cfg.RateLimit)
	}
	if cfg.Upstream.MaxRetries != 0 {
		t.Errorf("explicit max_retries 0 = %d", cfg.Upstream.MaxRetries)
	}
	if cfg.Upstream.Timeout != 10*time.Second {
		t.Errorf("unset timeout should keep default, got %v", cfg.Upstream.Timeout)
	}
	if cfg.Admin.Addr != "127.0.0.1:9090" || len(cfg.Admin.APIKeys) != 1 {
		t.Errorf("Admin = %+v", cfg.Admin)
	}
	if id, ok := cfg.GameIDs.Lookup("NFL", "2019"); !ok || id != "390" {
		t.Errorf("GameIDs.Lookup = (%q, %v)", id, ok)
	}

	policy, err := cfg.Cache.Policy()
	if err != nil {
		t.Fatalf("Policy() error = %v", err)
	}
	if got := policy.RegimeOf(league.CategoryTransactions); got != cache.RegimePermanent {
		t.Errorf("overridden regime = %v, want permanent", got)
	}
	if got := policy.RegimeOf(league.HistoryCategory(league.CategoryStandings)); got != cache.RegimePermanent {
		t.Errorf("history regime = %v, want permanent", got)
	}
	if got := policy.RegimeOf(league.CategoryStandings); got != cache.RegimeVolatile {
		t.Errorf("standings regime = %v, want volatile", got)
	}
}

func TestParse_EmptyDocumentUsesDefaults(t *testing.T) {
	t.Setenv("LEAGUEOPS_UPSTREAM_OAUTH_CLIENT_ID", "c")
	t.Setenv("LEAGUEOPS_UPSTREAM_OAUTH_CLIENT_SECRET", "s")
	t.Setenv("LEAGUEOPS_UPSTREAM_OAUTH_REFRESH_TOKEN", "r")
	t.Setenv("LEAGUEOPS_ADMIN_JWT_SECRET", strings.Repeat("x", MinJWTSecretBytes))

	cfg, err := Parse(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Parse(nil) error = %v", err)
	}
	if cfg.Admin.Addr != ":8080" {
		t.Errorf("Addr = %q, want default", cfg.Admin.Addr)
	}
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse(context.Background(), []byte("cache:\n  max_size: 10\n"), nil)
	if err == nil || !strings.Contains(err.Error(), "parse yaml") {
		t.Errorf("Parse() error = %v, want yaml error", err)
	}
}

func TestParse_ResolvesSecrets(t *testing.T) {
	t.Setenv("LEAGUEOPS_TEST_CLIENT_ID", "from-env")
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "refresh")
	if err := os.WriteFile(tokenPath, []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	doc := strings.NewReplacer(
		"client_id: client", "client_id: ${LEAGUEOPS_TEST_CLIENT_ID}",
		"refresh_token: refresh", "refresh_token: secretref:file:"+tokenPath,
	).Replace(validYAML)

	cfg, err := Parse(context.Background(), []byte(doc), nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Upstream.OAuth.ClientID != "from-env" {
		t.Errorf("ClientID = %q", cfg.Upstream.OAuth.ClientID)
	}
	if cfg.Upstream.OAuth.RefreshToken != "from-file" {
		t.Errorf("RefreshToken = %q", cfg.Upstream.OAuth.RefreshToken)
	}
}

func TestParse_MissingEnvFails(t *testing.T) {
	doc := strings.Replace(validYAML, "client_id: client", "client_id: ${LEAGUEOPS_TEST_DEFINITELY_UNSET}", 1)
	_, err := Parse(context.Background(), []byte(doc), nil)
	if err == nil || !strings.Contains(err.Error(), "upstream.oauth.client_id") {
		t.Errorf("Parse() error = %v, want failure naming the field", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LEAGUEOPS_ADMIN_ADDR", ":9999")
	t.Setenv("LEAGUEOPS_CACHE_MAX_SIZE_BYTES", "2048")
	t.Setenv("LEAGUEOPS_CACHE_VOLATILE_TTL", "90s")
	t.Setenv("LEAGUEOPS_RATE_LIMIT_MAX_CALLS", "10")
	t.Setenv("LEAGUEOPS_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Admin.Addr != ":9999" || cfg.Cache.MaxSizeBytes != 2048 ||
		cfg.Cache.VolatileTTL != 90*time.Second || cfg.RateLimit.MaxCalls != 10 ||
		cfg.Observe.Logging.Level != "debug" {
		t.Errorf("overrides not applied: %+v", cfg)
	}

	t.Setenv("LEAGUEOPS_RATE_LIMIT_MAX_CALLS", "many")
	if err := ApplyEnv(DefaultConfig()); err == nil {
		t.Error("non-numeric override should fail")
	}
}

func TestValidate_ListsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.MaxSizeBytes = 0
	cfg.Cache.Regimes = map[string]string{"standings": "forever"}
	cfg.RateLimit.MaxCalls = 0
	cfg.Upstream.BaseURL = "ftp://example.com"
	cfg.Upstream.OAuth.RefreshToken = ""
	cfg.Admin.APIKeys = append(cfg.Admin.APIKeys, APIKeyConfig{ID: "ops", Key: "k2", Principal: "p", Scopes: []string{"root"}})
	cfg.Admin.JWTSecret = "short"
	cfg.Observe.Logging.Level = "loud"

	err := cfg.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %T %v, want *ValidationError", err, err)
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("ValidationError should match ErrInvalidConfig")
	}

	wants := []string{
		"cache.max_size_bytes",
		"forever",
		"rate_limit",
		"upstream.base_url",
		"upstream.oauth",
		"duplicate id",
		"unknown scope",
		"admin.jwt_secret",
		"observe",
	}
	msg := err.Error()
	for _, want := range wants {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %q", msg, want)
		}
	}
	if len(verr.Problems) != len(wants) {
		t.Errorf("got %d problems, want %d: %v", len(verr.Problems), len(wants), verr.Problems)
	}
}

func TestValidate_AdminNeedsCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Admin.APIKeys = nil
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "api_keys or jwt_secret") {
		t.Errorf("Validate() error = %v", err)
	}
	cfg.Admin.JWTSecret = strings.Repeat("s", MinJWTSecretBytes)
	if err := cfg.Validate(); err != nil {
		t.Errorf("jwt secret alone should be enough: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leagueops.yaml")
	if err := os.WriteFile(path, []byte(validYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(context.Background(), path, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), nil); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want os.ErrNotExist", err)
	}
}

func TestConversions(t *testing.T) {
	cfg := validConfig()
	if got := cfg.Cache.StoreConfig().MaxSizeBytes; got != cfg.Cache.MaxSizeBytes {
		t.Errorf("StoreConfig().MaxSizeBytes = %d", got)
	}
	if got := cfg.RateLimit.GovernorConfig(); got.MaxCalls != 60 || got.Window != time.Minute {
		t.Errorf("GovernorConfig() = %+v", got)
	}
	cc := cfg.Upstream.ClientConfig()
	if cc.BaseURL != cfg.Upstream.BaseURL || cc.MaxRetries != 2 || cc.UserAgent != "leagueops" {
		t.Errorf("ClientConfig() = %+v", cc)
	}
	if err := cfg.Upstream.OAuthConfig().Validate(); err != nil {
		t.Errorf("OAuthConfig().Validate() = %v", err)
	}
}
