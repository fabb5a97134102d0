package fetcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRequestHeadersDrawFromPools(t *testing.T) {
	t.Parallel()

	rng := NewSeededRand(7)
	for i := 0; i < 20; i++ {
		h := requestHeaders(rng)
		require.Contains(t, userAgents, h.Get("User-Agent"))
		require.Contains(t, acceptLanguages, h.Get("Accept-Language"))
		require.NotEmpty(t, h.Get("Accept"))
	}
}

func TestRequestHeadersDeterministicWithSeed(t *testing.T) {
	t.Parallel()

	first := requestHeaders(NewSeededRand(42))
	second := requestHeaders(NewSeededRand(42))
	require.Equal(t, first, second)
}

func TestRateLimitBackoffGrowsWithAttempt(t *testing.T) {
	t.Parallel()

	base := 30 * time.Second
	rng := NewSeededRand(3)
	for attempt := 1; attempt <= 5; attempt++ {
		d := rateLimitBackoff(base, attempt, rng)
		require.GreaterOrEqual(t, d, base*time.Duration(attempt))
		require.Less(t, d, base*time.Duration(attempt+1))
	}
}

func TestStandardBackoffBounds(t *testing.T) {
	t.Parallel()

	base := 2 * time.Second
	rng := NewSeededRand(3)
	for attempt := 1; attempt <= 5; attempt++ {
		d := standardBackoff(base, attempt, rng)
		lower := base * time.Duration(attempt)
		require.GreaterOrEqual(t, d, lower)
		require.Less(t, d, lower+lower/2)
	}
}
