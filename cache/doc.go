// Package cache provides the query cache used in front of the fantasy league API.
//
// It provides a size-budgeted Store with lazy TTL expiry, deterministic key
// derivation from a Query, a category based TTL Policy, and a Coordinator that
// serves cached payloads or performs a rate governed, single-flight fetch.
package cache
