package source

import (
	"errors"
)

// Fetch failure kinds. The monitor's recovery policy depends on which of
// these an error wraps, so they are matched with errors.Is.
var (
	// ErrNotFound means the account is no longer resolvable (permanent).
	ErrNotFound = errors.New("account not found")

	// ErrUnauthorized means the API credential is invalid or expired.
	// All accounts share one credential, so this is fatal for a whole cycle.
	ErrUnauthorized = errors.New("invalid source API credentials")

	// ErrRateLimited is surfaced after client-side backoff is exhausted.
	ErrRateLimited = errors.New("source API rate limit exceeded")
)
