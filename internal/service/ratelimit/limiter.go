package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per key. Every key shares the same
// burst and refill rate.
type Limiter struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	limit rate.Limit
	burst int
	now   func() time.Time
}

func New(capacity, refillPerSec float64) *Limiter {
	return &Limiter{
		m:     make(map[string]*rate.Limiter),
		limit: rate.Limit(refillPerSec),
		burst: int(capacity),
		now:   time.Now,
	}
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.m[key]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.m[key] = b
	}
	return b
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).AllowN(l.now(), 1)
}

// RetryAfter is how long key has to wait for its next token. Zero when the
// bucket never refills.
func (l *Limiter) RetryAfter(key string) time.Duration {
	if l.limit <= 0 {
		return 0
	}
	now := l.now()
	r := l.bucket(key).ReserveN(now, 1)
	if !r.OK() {
		return 0
	}
	d := r.DelayFrom(now)
	r.CancelAt(now)
	return d
}

// Prune drops buckets that have refilled to their full burst.
func (l *Limiter) Prune() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, b := range l.m {
		if b.TokensAt(now) >= float64(l.burst) {
			delete(l.m, k)
			n++
		}
	}
	return n
}
