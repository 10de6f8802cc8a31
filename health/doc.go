// Package health reports the health of the caching layer and its upstream.
//
// A Checker reports a Result with one of three statuses: Healthy, Degraded
// or Unhealthy. Degraded means queries are still answered, possibly from
// cache only; Unhealthy means the process should be taken out of rotation.
//
// # Checkers
//
//   - CacheChecker: store budget and capacity anomalies.
//   - GovernorChecker: callers queued behind the upstream rate ceiling.
//   - UpstreamChecker: the upstream circuit breaker state.
//
// # Aggregating
//
// Checks are registered under their Name and run concurrently under one
// deadline:
//
//	agg := health.NewAggregator(2 * time.Second)
//	agg.Register(health.NewCacheChecker(store.Stats, health.CacheCheckerConfig{}))
//	agg.Register(health.NewGovernorChecker(gov.Stats, health.GovernorCheckerConfig{}))
//	agg.Register(health.NewUpstreamChecker(breaker))
//
//	report := agg.CheckAll(ctx)
//	fmt.Println(report.Status)
//
// # HTTP Endpoints
//
// RegisterHandlers mounts /healthz, /readyz, /health and /health/<name> on
// any router with an http.Handler registration method, such as
// httprouter.Router:
//
//	router := httprouter.New()
//	health.RegisterHandlers(router, agg)
package health
