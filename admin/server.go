package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jonwraymond/leagueops/auth"
	"github.com/jonwraymond/leagueops/cache"
	"github.com/jonwraymond/leagueops/health"
	"github.com/jonwraymond/leagueops/league"
	"github.com/jonwraymond/leagueops/resilience"
)

// ErrInvalidConfig is returned by NewServer for missing collaborators.
var ErrInvalidConfig = errors.New("admin: invalid configuration")

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGovernor includes governor stats in GET /cache/stats.
func WithGovernor(g *resilience.Governor) Option {
	return func(s *Server) {
		s.governor = g
	}
}

// WithHealth mounts the health endpoints for agg.
func WithHealth(agg *health.Aggregator) Option {
	return func(s *Server) {
		s.health = agg
	}
}

// WithGatherer serves g on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLeagues serves read-only league queries under /leagues.
func WithLeagues(svc *league.Service) Option {
	return func(s *Server) {
		s.leagues = svc
	}
}

// Server is the operator HTTP surface.
type Server struct {
	addr     string
	coord    *cache.Coordinator
	authn    auth.Authenticator
	governor *resilience.Governor
	health   *health.Aggregator
	gatherer prometheus.Gatherer
	leagues  *league.Service
	logger   *zap.Logger

	handler http.Handler
	srv     *http.Server
}

// NewServer builds the server. Cache and league routes require authn;
// health and metrics routes are open.
func NewServer(addr string, coord *cache.Coordinator, authn auth.Authenticator, opts ...Option) (*Server, error) {
	if coord == nil || authn == nil {
		return nil, fmt.Errorf("%w: coordinator and authenticator are required", ErrInvalidConfig)
	}
	s := &Server{
		addr:   addr,
		coord:  coord,
		authn:  authn,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	router := httprouter.New()
	read := auth.Middleware(authn, auth.ScopeCacheRead, s.logger)
	admin := auth.Middleware(authn, auth.ScopeCacheAdmin, s.logger)

	router.Handler(http.MethodGet, "/cache/stats", read(http.HandlerFunc(s.handleStats)))
	router.Handler(http.MethodPost, "/cache/clear", admin(http.HandlerFunc(s.handleClear)))
	router.Handler(http.MethodDelete, "/cache/entries/:category", admin(http.HandlerFunc(s.handleInvalidate)))
	router.Handler(http.MethodDelete, "/cache/categories/:category", admin(http.HandlerFunc(s.handleInvalidateCategory)))
	if s.leagues != nil {
		router.Handler(http.MethodGet, "/leagues/:sport/:league/:resource", read(http.HandlerFunc(s.handleLeague)))
	}
	if s.health != nil {
		health.RegisterHandlers(router, s.health)
	}
	if s.gatherer != nil {
		router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		s.logger.Error("admin handler panic",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Any("panic", v),
		)
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}

	s.handler = requestID(s.logger, router)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is done, then shuts down gracefully within
// shutdownTimeout.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin server listening", zap.String("addr", s.addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("admin: shutdown: %w", err)
	}
	return nil
}
