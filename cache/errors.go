package cache

import (
	"errors"
	"fmt"
)

// Sentinel errors for cache operations.
var (
	ErrInvalidKey     = errors.New("cache: key is invalid")
	ErrKeyTooLong     = errors.New("cache: key exceeds max length")
	ErrInvalidTTL     = errors.New("cache: ttl must be positive or Permanent")
	ErrInvalidQuery   = errors.New("cache: query category is required")
	ErrDimensionClash = errors.New("cache: dimension given twice with different values")
	ErrFetchPanic     = errors.New("cache: fetch panicked")

	// ErrInvalidConfig is matched by every *ConfigError.
	ErrInvalidConfig = errors.New("cache: invalid configuration")
)

// ConfigError reports a construction-time configuration problem.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("cache: invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}
