package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Middleware authenticates each request with a and requires scope. The
// identity is attached to the request context.
//
// Missing or invalid credentials yield 401, a missing scope 403 and an
// authenticator failure 500.
func Middleware(a Authenticator, scope string, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			req := &AuthRequest{Headers: r.Header}

			if !a.Supports(ctx, req) {
				deny(w, http.StatusUnauthorized, ErrMissingCredentials)
				return
			}

			result, err := a.Authenticate(ctx, req)
			if err != nil {
				logger.Error("authentication failed", zap.Error(err))
				deny(w, http.StatusInternalServerError, errors.New("authentication unavailable"))
				return
			}
			if !result.Authenticated {
				logger.Info("rejected operator request",
					zap.String("method", result.Method),
					zap.String("path", r.URL.Path),
					zap.Error(result.Error),
				)
				deny(w, http.StatusUnauthorized, result.Error)
				return
			}
			if scope != "" && !result.Identity.HasScope(scope) {
				logger.Info("operator lacks scope",
					zap.String("principal", result.Identity.Principal),
					zap.String("scope", scope),
				)
				deny(w, http.StatusForbidden, ErrForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, result.Identity)))
		})
	}
}

func deny(w http.ResponseWriter, code int, err error) {
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="leagueops"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
