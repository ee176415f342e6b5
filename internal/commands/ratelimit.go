package commands

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleAfter is how long an unused bucket is kept before it is dropped.
const idleAfter = 10 * time.Minute

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// userLimiter keeps one token bucket per user.
type userLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	sweep   time.Time
	now     func() time.Time
}

func newUserLimiter(perSecond float64, burst int) *userLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &userLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		burst:   max(burst, 1),
		now:     time.Now,
	}
}

func (l *userLimiter) allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.sweep) > idleAfter {
		for id, b := range l.buckets {
			if now.Sub(b.seen) > idleAfter {
				delete(l.buckets, id)
			}
		}
		l.sweep = now
	}

	b, ok := l.buckets[userID]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[userID] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}
