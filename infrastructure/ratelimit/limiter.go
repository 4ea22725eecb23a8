package ratelimit

import (
	"context"
	"sync"

	"social-publisher/domain/model"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Limiter bounds outbound platform calls: a process wide concurrency cap
// plus a token bucket per platform.
type Limiter struct {
	global *semaphore.Weighted
	limit  rate.Limit
	burst  int

	mu      sync.Mutex
	buckets map[model.Platform]*rate.Limiter
}

func New(globalConcurrency int, perSecond float64, burst int) *Limiter {
	if globalConcurrency <= 0 {
		globalConcurrency = 1
	}
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Limiter{
		global:  semaphore.NewWeighted(int64(globalConcurrency)),
		limit:   limit,
		burst:   burst,
		buckets: make(map[model.Platform]*rate.Limiter),
	}
}

// Acquire waits for the platform's bucket and a global slot. The returned
// release must be called once the call finishes.
func (l *Limiter) Acquire(ctx context.Context, platform model.Platform) (func(), error) {
	if err := l.bucket(platform).Wait(ctx); err != nil {
		return nil, err
	}
	if err := l.global.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { l.global.Release(1) }) }, nil
}

func (l *Limiter) bucket(platform model.Platform) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[platform]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[platform] = b
	}
	return b
}
