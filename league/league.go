package league

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jonwraymond/leagueops/cache"
)

// Query categories. A season-scoped query uses the category plus
// HistorySuffix.
const (
	CategoryLeagueInfo   = "league_info"
	CategoryStandings    = "standings"
	CategoryDraftResults = "draft_results"
	CategoryRoster       = "roster"
	CategoryMatchups     = "matchups"
	CategoryTransactions = "transactions"
	CategoryPlayers      = "players"

	HistorySuffix = ".history"
)

// Categories lists every current-season category.
var Categories = []string{
	CategoryLeagueInfo,
	CategoryStandings,
	CategoryDraftResults,
	CategoryRoster,
	CategoryMatchups,
	CategoryTransactions,
	CategoryPlayers,
}

// Sentinel errors for league queries.
var (
	ErrInvalidRequest = errors.New("league: invalid request")
	ErrUnknownSeason  = errors.New("league: no game id for season")
)

// HistoryCategory returns the category for a completed season.
func HistoryCategory(category string) string {
	return category + HistorySuffix
}

// DefaultRegimes returns the caching regime of every category: completed
// seasons are permanent, the current season is volatile.
func DefaultRegimes() map[string]cache.Regime {
	regimes := make(map[string]cache.Regime, 2*len(Categories))
	for _, c := range Categories {
		regimes[c] = cache.RegimeVolatile
		regimes[HistoryCategory(c)] = cache.RegimePermanent
	}
	return regimes
}

// GameIDs maps sport to season to the upstream game id, e.g.
// {"nfl": {"2019": "390"}}.
type GameIDs map[string]map[string]string

// Lookup returns the game id for sport and season.
func (g GameIDs) Lookup(sport, season string) (string, bool) {
	id, ok := g[strings.ToLower(sport)][season]
	return id, ok && id != ""
}

// Request scopes a query to one league. An empty Season means the current
// season.
type Request struct {
	Sport    string
	LeagueID string
	Season   string
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Sport) == "" {
		return fmt.Errorf("%w: sport is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.LeagueID) == "" {
		return fmt.Errorf("%w: league id is required", ErrInvalidRequest)
	}
	if strings.ContainsAny(r.LeagueID, "/;?#") {
		return fmt.Errorf("%w: league id %q", ErrInvalidRequest, r.LeagueID)
	}
	return nil
}

// Fetcher builds upstream fetches for API paths. *upstream.Client
// implements it.
type Fetcher interface {
	Fetch(path string) cache.FetchFunc
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service answers league queries through a cache resolver.
type Service struct {
	resolver cache.Resolver
	fetcher  Fetcher
	gameIDs  GameIDs
	logger   *zap.Logger
}

// NewService creates a league service.
func NewService(resolver cache.Resolver, fetcher Fetcher, gameIDs GameIDs, opts ...Option) (*Service, error) {
	if resolver == nil || fetcher == nil {
		return nil, fmt.Errorf("%w: resolver and fetcher are required", ErrInvalidRequest)
	}
	s := &Service{
		resolver: resolver,
		fetcher:  fetcher,
		gameIDs:  gameIDs,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LeagueInfo returns league metadata and settings.
func (s *Service) LeagueInfo(ctx context.Context, req Request) ([]byte, error) {
	return s.leagueResource(ctx, req, CategoryLeagueInfo, "metadata")
}

// Standings returns the league table.
func (s *Service) Standings(ctx context.Context, req Request) ([]byte, error) {
	return s.leagueResource(ctx, req, CategoryStandings, "standings")
}

// DraftResults returns every draft pick.
func (s *Service) DraftResults(ctx context.Context, req Request) ([]byte, error) {
	return s.leagueResource(ctx, req, CategoryDraftResults, "draftresults")
}

// Transactions returns adds, drops and trades.
func (s *Service) Transactions(ctx context.Context, req Request) ([]byte, error) {
	return s.leagueResource(ctx, req, CategoryTransactions, "transactions")
}

// Players returns the league's player pool.
func (s *Service) Players(ctx context.Context, req Request) ([]byte, error) {
	return s.leagueResource(ctx, req, CategoryPlayers, "players")
}

// Roster returns one team's roster.
func (s *Service) Roster(ctx context.Context, req Request, teamID string) ([]byte, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" || strings.ContainsAny(teamID, "/;?#") {
		return nil, fmt.Errorf("%w: team id %q", ErrInvalidRequest, teamID)
	}
	return s.resolve(ctx, req, CategoryRoster, cache.Dimensions{"team": teamID}, func(leagueKey string) string {
		return "team/" + leagueKey + ".t." + teamID + "/roster"
	})
}

// Matchups returns the scoreboard for week. Week 0 is the current week.
func (s *Service) Matchups(ctx context.Context, req Request, week int) ([]byte, error) {
	if week < 0 {
		return nil, fmt.Errorf("%w: week %d", ErrInvalidRequest, week)
	}
	dims := cache.Dimensions{"week": "current"}
	if week > 0 {
		dims["week"] = strconv.Itoa(week)
	}
	return s.resolve(ctx, req, CategoryMatchups, dims, func(leagueKey string) string {
		path := "league/" + leagueKey + "/scoreboard"
		if week > 0 {
			path += ";week=" + strconv.Itoa(week)
		}
		return path
	})
}

func (s *Service) leagueResource(ctx context.Context, req Request, category, resource string) ([]byte, error) {
	return s.resolve(ctx, req, category, nil, func(leagueKey string) string {
		return "league/" + leagueKey + "/" + resource
	})
}

// resolve picks the season-aware category, resolves the league key and
// hands the query to the resolver.
func (s *Service) resolve(ctx context.Context, req Request, category string, extra cache.Dimensions, path func(leagueKey string) string) ([]byte, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	sport := strings.ToLower(strings.TrimSpace(req.Sport))
	game := sport
	if req.Season != "" {
		id, ok := s.gameIDs.Lookup(sport, req.Season)
		if !ok {
			return nil, fmt.Errorf("%w: %s %s", ErrUnknownSeason, sport, req.Season)
		}
		game = id
		category = HistoryCategory(category)
	}

	dims := cache.Dimensions{
		"sport":  sport,
		"league": req.LeagueID,
		"season": req.Season,
	}
	for k, v := range extra {
		dims[k] = v
	}

	leagueKey := game + ".l." + req.LeagueID
	q := cache.Query{Category: category, Dimensions: dims}

	s.logger.Debug("resolving league query",
		zap.String("category", category),
		zap.String("league_key", leagueKey),
	)
	return s.resolver.Resolve(ctx, q, s.fetcher.Fetch(path(leagueKey)))
}
