package resilience

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors_DistinctAndWrappable(t *testing.T) {
	sentinels := []error{ErrCircuitOpen, ErrBulkheadFull, ErrTimeout, ErrInvalidConfig}
	for i, err := range sentinels {
		wrapped := fmt.Errorf("fetch league/nfl.l.1/standings: %w", err)
		for j, other := range sentinels {
			if got := errors.Is(wrapped, other); got != (i == j) {
				t.Errorf("errors.Is(%v, %v) = %v", wrapped, other, got)
			}
		}
	}
}
