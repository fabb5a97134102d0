package fetcher

import (
	"time"
)

// defaultRateLimitBackoff matches the source's throttle window, which is on
// the order of tens of seconds; retrying sooner wastes attempts.
const defaultRateLimitBackoff = 30 * time.Second

// rateLimitBackoff returns the wait before retrying a throttled request:
// base * attempt plus up to base of jitter.
func rateLimitBackoff(base time.Duration, attempt int, rng Rand) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = defaultRateLimitBackoff
	}
	delay := base * time.Duration(attempt)
	return delay + jitter(base, rng)
}

// standardBackoff returns the wait before retrying a transient failure:
// base * attempt plus up to half of that as jitter, to desynchronize
// concurrent workers.
func standardBackoff(base time.Duration, attempt int, rng Rand) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = time.Second
	}
	delay := base * time.Duration(attempt)
	return delay + jitter(delay/2, rng)
}

// jitter draws a uniform duration from [0, limit).
func jitter(limit time.Duration, rng Rand) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rng.Int63n(int64(limit)))
}
