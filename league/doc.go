// Package league answers fantasy league queries through the cache.
//
// A request without a season reads the current season and is cached under
// a volatile category. A request for an explicit season reads a completed
// season, resolved to its upstream game id through GameIDs, and is cached
// under the category's ".history" variant, which DefaultRegimes marks
// permanent.
package league
