// Package ratelimit bounds how often a single caller may hit an endpoint.
// State is in-process and keyed by caller address.
package ratelimit

import "time"

// Limiter admits or rejects one request for key at now. When it rejects,
// retryAfter is how long the caller should wait.
type Limiter interface {
	Allow(key string, now time.Time) (ok bool, retryAfter time.Duration)
}
