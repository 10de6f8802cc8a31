package health

import "errors"

var (
	// ErrCheckTimeout marks a check abandoned at the aggregator deadline.
	ErrCheckTimeout = errors.New("health: check did not finish before the deadline")

	// ErrCheckerNotFound is returned by Check for an unregistered name.
	ErrCheckerNotFound = errors.New("health: no checker registered under that name")
)
