// Package upstream is the HTTP client for the fantasy sports API.
//
// Client.Get performs one logical fetch: bulkhead, circuit breaker, retries
// of transient failures and a per-attempt timeout all happen inside it.
// Failures come back as *Error, classified into auth, rate_limit, timeout,
// unavailable or general:
//
//	data, err := client.Get(ctx, "league/nfl.l.12345/standings")
//	if errors.Is(err, upstream.ErrRateLimited) {
//	    // back off
//	}
//
// Requests are authenticated through an oauth2.TokenSource built from a
// refresh token with NewTokenSource.
package upstream
