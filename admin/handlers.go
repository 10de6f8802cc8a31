package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/jonwraymond/leagueops/auth"
	"github.com/jonwraymond/leagueops/cache"
	"github.com/jonwraymond/leagueops/league"
	"github.com/jonwraymond/leagueops/resilience"
	"github.com/jonwraymond/leagueops/upstream"
)

// StatsResponse is the body of GET /cache/stats.
type StatsResponse struct {
	Cache    cache.CoordinatorStats    `json:"cache"`
	Governor *resilience.GovernorStats `json:"governor,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Cache: s.coord.Stats()}
	if s.governor != nil {
		gs := s.governor.Stats()
		resp.Governor = &gs
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleClear drops every entry, or only volatile ones with scope=volatile
// in the form body or the query string.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	scope := r.Form.Get("scope")
	var removed int
	switch scope {
	case "", "all":
		scope = "all"
		removed = s.coord.Store().Len()
		s.coord.ClearAll()
	case "volatile":
		removed = s.coord.ClearVolatile()
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown scope %q", scope))
		return
	}
	s.audit(r, "cache cleared", zap.String("scope", scope), zap.Int("removed", removed))
	writeJSON(w, http.StatusOK, map[string]any{"scope": scope, "removed": removed})
}

// handleInvalidate drops the entry for one query. Query parameters are the
// query's dimensions.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	category := httprouter.ParamsFromContext(r.Context()).ByName("category")
	dims := make(cache.Dimensions)
	for name, values := range r.URL.Query() {
		if len(values) > 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", cache.ErrDimensionClash, name))
			return
		}
		dims[name] = values[0]
	}

	removed, err := s.coord.Invalidate(cache.Query{Category: category, Dimensions: dims})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.audit(r, "cache entry invalidated", zap.String("category", category), zap.Bool("removed", removed))
	writeJSON(w, http.StatusOK, map[string]any{"category": category, "removed": removed})
}

func (s *Server) handleInvalidateCategory(w http.ResponseWriter, r *http.Request) {
	category := httprouter.ParamsFromContext(r.Context()).ByName("category")
	removed := s.coord.InvalidateCategory(category)
	s.audit(r, "cache category invalidated", zap.String("category", category), zap.Int("removed", removed))
	writeJSON(w, http.StatusOK, map[string]any{"category": category, "removed": removed})
}

// handleLeague answers GET /leagues/:sport/:league/:resource. ?season picks a
// completed season, ?team selects a roster and ?week a scoreboard.
func (s *Server) handleLeague(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	q := r.URL.Query()
	req := league.Request{
		Sport:    params.ByName("sport"),
		LeagueID: params.ByName("league"),
		Season:   q.Get("season"),
	}
	ctx := r.Context()

	var (
		data []byte
		err  error
	)
	switch params.ByName("resource") {
	case "info":
		data, err = s.leagues.LeagueInfo(ctx, req)
	case "standings":
		data, err = s.leagues.Standings(ctx, req)
	case "draft":
		data, err = s.leagues.DraftResults(ctx, req)
	case "transactions":
		data, err = s.leagues.Transactions(ctx, req)
	case "players":
		data, err = s.leagues.Players(ctx, req)
	case "roster":
		data, err = s.leagues.Roster(ctx, req, q.Get("team"))
	case "matchups":
		week := 0
		if v := q.Get("week"); v != "" {
			if week, err = strconv.Atoi(v); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("week %q: %w", v, league.ErrInvalidRequest))
				return
			}
		}
		data, err = s.leagues.Matchups(ctx, req, week)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown resource %q", params.ByName("resource")))
		return
	}

	if err != nil {
		code := leagueStatus(err)
		if code >= http.StatusInternalServerError {
			s.logger.Warn("league query failed",
				zap.String("request_id", RequestIDFromContext(ctx)),
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}
		writeError(w, code, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// leagueStatus maps a resolve failure to an HTTP status.
func leagueStatus(err error) int {
	switch {
	case errors.Is(err, league.ErrInvalidRequest), errors.Is(err, league.ErrUnknownSeason):
		return http.StatusBadRequest
	case errors.Is(err, upstream.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, upstream.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, upstream.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	var upErr *upstream.Error
	if errors.As(err, &upErr) && upErr.StatusCode == http.StatusNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

func (s *Server) audit(r *http.Request, msg string, fields ...zap.Field) {
	fields = append(fields,
		zap.String("principal", auth.PrincipalFromContext(r.Context())),
		zap.String("request_id", RequestIDFromContext(r.Context())),
	)
	s.logger.Info(msg, fields...)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
