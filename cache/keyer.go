package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Dimensions identify a query within its category, e.g. sport, league,
// season, team or week. Empty values are ignored.
type Dimensions map[string]string

// Query is the logical identity of an upstream request.
type Query struct {
	Category   string
	Dimensions Dimensions
}

// Keyer generates deterministic cache keys from queries.
//
// Contract:
// - Determinism: equivalent queries produce the same key regardless of
// dimension order or casing.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key generates a cache key for q.
	Key(q Query) (string, error)
}

// DefaultKeyer builds readable keys of the form
// <category>/<name>:<value>/<name>:<value> with names sorted.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key generates a deterministic cache key.
func (k *DefaultKeyer) Key(q Query) (string, error) {
	category := NormalizeCategory(q.Category)
	if category == "" {
		return "", ErrInvalidQuery
	}

	dims := make(map[string]string, len(q.Dimensions))
	for name, value := range q.Dimensions {
		name = normalize(name)
		value = normalize(value)
		if name == "" || value == "" {
			continue
		}
		if prev, ok := dims[name]; ok && prev != value {
			return "", fmt.Errorf("%w: %q", ErrDimensionClash, name)
		}
		dims[name] = value
	}

	names := make([]string, 0, len(dims))
	for name := range dims {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(url.QueryEscape(category))
	for _, name := range names {
		b.WriteByte('/')
		b.WriteString(url.QueryEscape(name))
		b.WriteByte(':')
		b.WriteString(url.QueryEscape(dims[name]))
	}

	key := b.String()
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// NormalizeCategory returns the canonical form of a category name.
func NormalizeCategory(category string) string {
	return normalize(category)
}

// InCategory reports whether key was produced for category by DefaultKeyer.
func InCategory(key, category string) bool {
	prefix := url.QueryEscape(NormalizeCategory(category))
	if prefix == "" {
		return false
	}
	return key == prefix || strings.HasPrefix(key, prefix+"/")
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
