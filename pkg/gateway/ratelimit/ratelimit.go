// Package ratelimit provides per-gateway-key token bucket rate limiting with
// pluggable storage backends.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limit is a single request ceiling over a named window.
type Limit struct {
	Unit  string
	Limit int64
}

// Storage stores and consumes token bucket state.
// This abstraction allows single-instance deployments to use in-memory
// buckets and multi-instance deployments to share state through Redis.
type Storage interface {
	// Allow checks if a request is allowed and consumes a token if available.
	// Returns true if allowed, false if rate limited, and any error that occurred.
	Allow(ctx context.Context, keyID string, limit Limit) (allowed bool, err error)
}

// parseUnit converts a rate limit unit string to a time.Duration.
// Supported units: 1min, 1h, 6h, 12h, 1d, 1w, 1mo
func parseUnit(unit string) (time.Duration, error) {
	switch unit {
	case "1min":
		return time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "6h":
		return 6 * time.Hour, nil
	case "12h":
		return 12 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	case "1w":
		return 7 * 24 * time.Hour, nil
	case "1mo":
		return 30 * 24 * time.Hour, nil // Approximate month as 30 days
	default:
		return 0, fmt.Errorf("unsupported rate limit unit: %s", unit)
	}
}
