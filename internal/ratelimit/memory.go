package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// MemoryLimiter is an in-process fixed window limiter used when Redis is not
// configured. Limits are per process.
type MemoryLimiter struct {
	mu       sync.Mutex
	store    limiter.Store
	limiters map[string]*limiter.Limiter
}

// NewMemoryLimiter constructs a MemoryLimiter backed by the ulule memory store.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		store:    memory.NewStore(),
		limiters: make(map[string]*limiter.Limiter),
	}
}

// Allow registers an event for key and reports whether it is within max per window.
func (m *MemoryLimiter) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	if max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}
	rateKey := fmt.Sprintf("%d-%d", window, max)
	lim := m.limiterFor(rateKey, window, max)
	lctx, err := lim.Get(ctx, rateKey+":"+key)
	if err != nil {
		return false, 0, time.Now().Add(window), err
	}
	return !lctx.Reached, int(lctx.Remaining), time.Unix(lctx.Reset, 0), nil
}

func (m *MemoryLimiter) limiterFor(rateKey string, window time.Duration, max int) *limiter.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lim, ok := m.limiters[rateKey]; ok {
		return lim
	}
	lim := limiter.New(m.store, limiter.Rate{Period: window, Limit: int64(max)})
	m.limiters[rateKey] = lim
	return lim
}
