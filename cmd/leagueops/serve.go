package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonwraymond/leagueops/admin"
	"github.com/jonwraymond/leagueops/auth"
	"github.com/jonwraymond/leagueops/cache"
	"github.com/jonwraymond/leagueops/config"
	"github.com/jonwraymond/leagueops/health"
	"github.com/jonwraymond/leagueops/league"
	"github.com/jonwraymond/leagueops/observe"
	"github.com/jonwraymond/leagueops/resilience"
	"github.com/jonwraymond/leagueops/upstream"
)

func serveCmd(configFile *string) *cobra.Command {
	var (
		addr     string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the caching gateway and operator API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(ctx, *configFile, nil)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Admin.Addr = addr
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Observe.Logging.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Operator API listen address (overrides admin.addr)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	return cmd
}

// run wires the service from cfg and blocks until ctx is done.
func run(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cfg.Observe.Version = version
	obs, err := observe.NewObserver(ctx, cfg.Observe, observe.WithRegisterer(reg))
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()
	logger := obs.Logger()

	policy, err := cfg.Cache.Policy()
	if err != nil {
		return err
	}
	store, err := cache.NewStore(cfg.Cache.StoreConfig(), cache.WithStoreLogger(logger.Named("store")))
	if err != nil {
		return err
	}
	gov, err := resilience.NewGovernor(cfg.RateLimit.GovernorConfig())
	if err != nil {
		return err
	}
	coord, err := cache.NewCoordinator(store, gov, policy, cache.WithCoordinatorLogger(logger.Named("cache")))
	if err != nil {
		return err
	}
	if _, err := observe.RegisterCacheMetrics(obs.Meter(), coord.Stats, gov.Stats); err != nil {
		return fmt.Errorf("register cache metrics: %w", err)
	}

	mw, err := observe.MiddlewareFromObserver(obs, observe.WithPolicy(policy))
	if err != nil {
		return err
	}
	resolver, err := mw.Wrap(coord)
	if err != nil {
		return err
	}

	ts, err := upstream.NewTokenSource(ctx, cfg.Upstream.OAuthConfig())
	if err != nil {
		return err
	}
	client, err := upstream.NewClient(cfg.Upstream.ClientConfig(),
		upstream.WithTokenSource(ts),
		upstream.WithLogger(logger.Named("upstream")),
	)
	if err != nil {
		return err
	}

	svc, err := league.NewService(resolver, client, cfg.GameIDs, league.WithLogger(logger.Named("league")))
	if err != nil {
		return err
	}

	agg := health.NewAggregator(2 * time.Second)
	agg.Register(health.NewCacheChecker(store.Stats, health.CacheCheckerConfig{}))
	agg.Register(health.NewGovernorChecker(gov.Stats, health.GovernorCheckerConfig{}))
	agg.Register(health.NewUpstreamChecker(client.CircuitBreaker()))

	srv, err := admin.NewServer(cfg.Admin.Addr, coord, newAuthenticator(cfg.Admin),
		admin.WithLogger(logger.Named("admin")),
		admin.WithGovernor(gov),
		admin.WithHealth(agg),
		admin.WithGatherer(reg),
		admin.WithLeagues(svc),
	)
	if err != nil {
		return err
	}

	if cfg.Cache.PurgeInterval > 0 {
		go store.RunJanitor(ctx, cfg.Cache.PurgeInterval)
	}

	logger.Info("leagueops started",
		zap.String("version", version),
		zap.Int64("max_size_bytes", cfg.Cache.MaxSizeBytes),
		zap.Duration("volatile_ttl", policy.VolatileTTL),
		zap.Int("max_calls", cfg.RateLimit.MaxCalls),
		zap.Duration("window", cfg.RateLimit.Window),
	)
	err = srv.Run(ctx, cfg.Service.ShutdownTimeout)
	logger.Info("leagueops stopped", zap.Any("cache", coord.Stats()))
	return err
}

// newAuthenticator accepts any configured API key or an HS256 token signed
// with the admin JWT secret.
func newAuthenticator(cfg config.AdminConfig) auth.Authenticator {
	var auths []auth.Authenticator
	if len(cfg.APIKeys) > 0 {
		ring := auth.NewKeyRing()
		for _, k := range cfg.APIKeys {
			ring.Add(auth.NewOperatorKey(k.ID, k.Key, k.Principal, k.Scopes...))
		}
		auths = append(auths, auth.NewAPIKeyAuthenticator("", ring))
	}
	if cfg.JWTSecret != "" {
		auths = append(auths, auth.NewJWTAuthenticator([]byte(cfg.JWTSecret), auth.WithIssuer(cfg.JWTIssuer)))
	}
	return auth.NewCompositeAuthenticator(auths...)
}
