package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/leagueops/secret"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LEAGUEOPS_"

// Load reads the YAML file at path and returns a resolved, validated Config.
// An empty path loads defaults plus environment overrides.
func Load(ctx context.Context, path string, resolver *secret.Resolver) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return Parse(ctx, data, resolver)
}

// Parse decodes YAML over DefaultConfig, applies LEAGUEOPS_* overrides,
// resolves secret-bearing fields and validates the result. Unknown keys are
// rejected. A nil resolver uses secret.NewDefaultResolver.
func Parse(ctx context.Context, data []byte, resolver *secret.Resolver) (*Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if resolver == nil {
		resolver = secret.NewDefaultResolver()
	}
	if err := resolveSecrets(ctx, cfg, resolver); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveSecrets(ctx context.Context, cfg *Config, resolver *secret.Resolver) error {
	names := []string{
		"upstream.base_url",
		"upstream.oauth.client_id",
		"upstream.oauth.client_secret",
		"upstream.oauth.token_url",
		"upstream.oauth.refresh_token",
		"admin.jwt_secret",
	}
	fields := []*string{
		&cfg.Upstream.BaseURL,
		&cfg.Upstream.OAuth.ClientID,
		&cfg.Upstream.OAuth.ClientSecret,
		&cfg.Upstream.OAuth.TokenURL,
		&cfg.Upstream.OAuth.RefreshToken,
		&cfg.Admin.JWTSecret,
	}
	for i := range cfg.Admin.APIKeys {
		names = append(names, fmt.Sprintf("admin.api_keys[%d].key", i))
		fields = append(fields, &cfg.Admin.APIKeys[i].Key)
	}
	return resolver.ResolveFields(ctx, names, fields)
}

// ApplyEnv applies LEAGUEOPS_* environment overrides to cfg. Unset or empty
// variables leave the field alone.
func ApplyEnv(cfg *Config) error {
	strs := map[string]*string{
		"ADMIN_ADDR":                   &cfg.Admin.Addr,
		"ADMIN_JWT_SECRET":             &cfg.Admin.JWTSecret,
		"UPSTREAM_BASE_URL":            &cfg.Upstream.BaseURL,
		"UPSTREAM_OAUTH_CLIENT_ID":     &cfg.Upstream.OAuth.ClientID,
		"UPSTREAM_OAUTH_CLIENT_SECRET": &cfg.Upstream.OAuth.ClientSecret,
		"UPSTREAM_OAUTH_REFRESH_TOKEN": &cfg.Upstream.OAuth.RefreshToken,
		"LOG_LEVEL":                    &cfg.Observe.Logging.Level,
	}
	for name, field := range strs {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*field = v
		}
	}

	if v := os.Getenv(EnvPrefix + "CACHE_MAX_SIZE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: %sCACHE_MAX_SIZE_BYTES: %w", EnvPrefix, err)
		}
		cfg.Cache.MaxSizeBytes = n
	}
	if v := os.Getenv(EnvPrefix + "CACHE_VOLATILE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sCACHE_VOLATILE_TTL: %w", EnvPrefix, err)
		}
		cfg.Cache.VolatileTTL = d
	}
	if v := os.Getenv(EnvPrefix + "RATE_LIMIT_MAX_CALLS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sRATE_LIMIT_MAX_CALLS: %w", EnvPrefix, err)
		}
		cfg.RateLimit.MaxCalls = n
	}
	return nil
}
