package cache

import (
	"fmt"
	"strings"
	"time"
)

// Regime is the freshness class of a query category.
type Regime int

const (
	// RegimeVolatile is for live state such as current standings or rosters.
	RegimeVolatile Regime = iota
	// RegimePermanent is for data that cannot change once its period has ended.
	RegimePermanent
)

// String returns the string representation of the regime.
func (r Regime) String() string {
	switch r {
	case RegimeVolatile:
		return "volatile"
	case RegimePermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// ParseRegime parses "volatile" or "permanent".
func ParseRegime(s string) (Regime, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "volatile":
		return RegimeVolatile, nil
	case "permanent":
		return RegimePermanent, nil
	default:
		return RegimeVolatile, &ConfigError{Field: "regime", Reason: fmt.Sprintf("unknown regime %q", s)}
	}
}

// Policy maps query categories to TTLs.
//
// Classification is a pure function of the category. Categories missing from
// Regimes are volatile.
type Policy struct {
	// VolatileTTL is the TTL attached to volatile entries.
	VolatileTTL time.Duration

	// Regimes maps category names to their regime.
	Regimes map[string]Regime
}

// DefaultPolicy returns the default caching policy.
// VolatileTTL: 5 minutes, no permanent categories.
func DefaultPolicy() Policy {
	return Policy{
		VolatileTTL: 5 * time.Minute,
		Regimes:     map[string]Regime{},
	}
}

// Validate checks the policy at construction time.
func (p Policy) Validate() error {
	if p.VolatileTTL <= 0 {
		return &ConfigError{Field: "volatile_ttl", Reason: "must be positive"}
	}
	for category, regime := range p.Regimes {
		if NormalizeCategory(category) == "" {
			return &ConfigError{Field: "regimes", Reason: "empty category name"}
		}
		if regime != RegimeVolatile && regime != RegimePermanent {
			return &ConfigError{Field: "regimes", Reason: fmt.Sprintf("category %q has unknown regime %d", category, regime)}
		}
	}
	return nil
}

// RegimeOf returns the regime for category.
func (p Policy) RegimeOf(category string) Regime {
	category = NormalizeCategory(category)
	if regime, ok := p.Regimes[category]; ok {
		return regime
	}
	for name, regime := range p.Regimes {
		if NormalizeCategory(name) == category {
			return regime
		}
	}
	return RegimeVolatile
}

// Classify returns the TTL to store a result of category with.
func (p Policy) Classify(category string) time.Duration {
	if p.RegimeOf(category) == RegimePermanent {
		return Permanent
	}
	return p.VolatileTTL
}

// normalized returns a copy with canonical category names so lookups are
// map hits.
func (p Policy) normalized() Policy {
	regimes := make(map[string]Regime, len(p.Regimes))
	for name, regime := range p.Regimes {
		regimes[NormalizeCategory(name)] = regime
	}
	return Policy{VolatileTTL: p.VolatileTTL, Regimes: regimes}
}
