// Package auth authenticates operators of the cache admin surface.
//
// Two methods are supported: static API keys, stored as SHA-256 hashes and
// compared in constant time, and HMAC-signed JWTs carrying a scope claim.
// Middleware combines an Authenticator with a required scope:
//
//	authn := auth.NewCompositeAuthenticator(
//	    auth.NewAPIKeyAuthenticator("", ring),
//	    auth.NewJWTAuthenticator(secret),
//	)
//	handler = auth.Middleware(authn, auth.ScopeCacheAdmin, logger)(handler)
package auth
