package upstream

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// DefaultTokenURL is the Yahoo OAuth2 token endpoint.
const DefaultTokenURL = "https://api.login.yahoo.com/oauth2/get_token"

// OAuthConfig holds the application credentials and the long-lived refresh
// token obtained during operator setup.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	RefreshToken string
}

// Validate reports missing credentials.
func (c OAuthConfig) Validate() error {
	switch {
	case c.ClientID == "":
		return fmt.Errorf("%w: oauth client id is required", ErrInvalidConfig)
	case c.ClientSecret == "":
		return fmt.Errorf("%w: oauth client secret is required", ErrInvalidConfig)
	case c.RefreshToken == "":
		return fmt.Errorf("%w: oauth refresh token is required", ErrInvalidConfig)
	}
	return nil
}

// NewTokenSource returns a token source that exchanges the refresh token for
// access tokens and reuses each one until it expires. ctx carries an
// optional *http.Client under oauth2.HTTPClient for the token exchange.
func NewTokenSource(ctx context.Context, config OAuthConfig) (oauth2.TokenSource, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	tokenURL := config.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	oc := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	return oc.TokenSource(ctx, &oauth2.Token{RefreshToken: config.RefreshToken}), nil
}
