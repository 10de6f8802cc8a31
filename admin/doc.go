// Package admin is the operator HTTP surface of leagueops.
//
// Routes:
//
//	GET    /cache/stats                  cache and governor stats (cache:read)
//	POST   /cache/clear?scope=volatile   drop volatile or all entries (cache:admin)
//	DELETE /cache/entries/:category      drop one query; dimensions as query params (cache:admin)
//	DELETE /cache/categories/:category   drop a whole category (cache:admin)
//	GET    /leagues/:sport/:league/:res  cached league queries (cache:read)
//	GET    /healthz /readyz /health      health checks
//	GET    /metrics                      Prometheus exposition
//
// Every response carries an X-Request-ID header.
package admin
