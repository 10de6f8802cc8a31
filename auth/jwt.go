package auth

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// ScopeList is the scope claim. It decodes from a space separated string
// or a JSON list and encodes as a space separated string.
type ScopeList []string

func (s ScopeList) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.Join(s, " "))
}

func (s *ScopeList) UnmarshalJSON(data []byte) error {
	var joined string
	if err := json.Unmarshal(data, &joined); err == nil {
		*s = strings.Fields(joined)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = list
	return nil
}

// OperatorClaims are the claims of an admin token.
type OperatorClaims struct {
	jwt.RegisteredClaims
	Scope ScopeList `json:"scope,omitempty"`
}

// JWTOption configures a JWTAuthenticator.
type JWTOption func(*jwtOptions)

type jwtOptions struct {
	issuer   string
	audience string
}

// WithIssuer requires the iss claim to equal issuer.
func WithIssuer(issuer string) JWTOption {
	return func(o *jwtOptions) { o.issuer = issuer }
}

// WithAudience requires the aud claim to contain audience.
func WithAudience(audience string) JWTOption {
	return func(o *jwtOptions) { o.audience = audience }
}

// JWTAuthenticator accepts HMAC-signed bearer tokens with an exp claim.
type JWTAuthenticator struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTAuthenticator verifies tokens against secret.
func NewJWTAuthenticator(secret []byte, opts ...JWTOption) *JWTAuthenticator {
	var o jwtOptions
	for _, opt := range opts {
		opt(&o)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if o.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(o.issuer))
	}
	if o.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(o.audience))
	}
	return &JWTAuthenticator{secret: secret, parser: jwt.NewParser(parserOpts...)}
}

func (a *JWTAuthenticator) Name() string { return "jwt" }

// Supports reports whether the request carries a bearer token.
func (a *JWTAuthenticator) Supports(_ context.Context, req *AuthRequest) bool {
	return strings.HasPrefix(req.GetHeader("Authorization"), bearerPrefix)
}

// Authenticate verifies the bearer token and maps its claims to an Identity.
func (a *JWTAuthenticator) Authenticate(_ context.Context, req *AuthRequest) (*AuthResult, error) {
	raw, ok := strings.CutPrefix(req.GetHeader("Authorization"), bearerPrefix)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return AuthFailure(ErrMissingCredentials, a.Name()), nil
	}

	var claims OperatorClaims
	_, err := a.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return AuthFailure(ErrTokenExpired, a.Name()), nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return AuthFailure(ErrTokenMalformed, a.Name()), nil
	case err != nil:
		return AuthFailure(ErrInvalidCredentials, a.Name()), nil
	}

	id := &Identity{
		Principal: claims.Subject,
		Scopes:    claims.Scope,
		Method:    AuthMethodJWT,
		Claims:    map[string]any{"iss": claims.Issuer, "jti": claims.ID},
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return AuthSuccess(id), nil
}

// IssueToken signs an HS256 admin token for principal, valid for ttl. An
// empty issuer omits the iss claim.
func IssueToken(secret []byte, principal string, scopes []string, ttl time.Duration, issuer string) (string, error) {
	now := time.Now()
	claims := OperatorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scope: scopes,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

var _ Authenticator = (*JWTAuthenticator)(nil)
