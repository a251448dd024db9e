package ratelimit

import (
	"context"
	"sync"
	"time"
)

// memoryLimiter is an in-process token bucket limiter. Tokens refill at
// requests/window per second up to a capacity of requests.
type memoryLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*tokenBucket
	requests int
	window   time.Duration
	now      func() time.Time

	cleanupT *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

type tokenBucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewMemoryLimiter creates a token bucket limiter and starts its stale bucket sweeper.
func NewMemoryLimiter(requests int, window time.Duration) Stoppable {
	l := &memoryLimiter{
		buckets:  make(map[string]*tokenBucket),
		requests: requests,
		window:   window,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	l.cleanupT = time.NewTicker(window * 2)
	go l.cleanup()
	return l
}

func (l *memoryLimiter) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	capacity := float64(l.requests)
	fillRate := capacity / l.window.Seconds()

	b, ok := l.buckets[key]
	if !ok {
		l.buckets[key] = &tokenBucket{tokens: capacity - 1, lastUpdate: now}
		return true
	}

	elapsed := now.Sub(b.lastUpdate).Seconds()
	b.tokens = min(capacity, b.tokens+elapsed*fillRate)
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (l *memoryLimiter) Reset(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

func (l *memoryLimiter) cleanup() {
	for {
		select {
		case <-l.cleanupT.C:
			l.cleanupStale()
		case <-l.stopCh:
			l.cleanupT.Stop()
			return
		}
	}
}

// cleanupStale drops buckets idle for two windows; they would be full anyway.
func (l *memoryLimiter) cleanupStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, b := range l.buckets {
		if now.Sub(b.lastUpdate) > l.window*2 {
			delete(l.buckets, key)
		}
	}
}

func (l *memoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}
