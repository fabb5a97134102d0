package fetcher

import (
	"math/rand"
	"sync"
	"time"
)

// Rand supplies the randomness used for jitter and header rotation. It is
// injectable so retry-timing and header-selection tests are deterministic.
type Rand interface {
	Intn(n int) int
	Int63n(n int64) int64
}

// lockedRand wraps math/rand for safe concurrent use by the worker pool.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a concurrency-safe Rand seeded from the wall clock.
func NewRand() Rand {
	return NewSeededRand(time.Now().UnixNano())
}

// NewSeededRand returns a concurrency-safe Rand with a fixed seed.
func NewSeededRand(seed int64) Rand {
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Int63n(n int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Int63n(n)
}
