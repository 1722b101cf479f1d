package api

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore counts requests per caller within a fixed window. It is
// injected rather than held as package state so a multi-instance deployment
// can share a Redis-backed store while tests use the in-memory one.
type CounterStore interface {
	// Incr bumps the counter for key, starting a fresh window when none is
	// active, and returns the count within the current window.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter is a CounterStore shared across instances.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a counter store on the provided client.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, "ratelimit:"+key)
		pipe.ExpireNX(ctx, "ratelimit:"+key, window)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// MemoryCounter is a process-local CounterStore for tests and single-instance
// deployments.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*countWindow
	now     func() time.Time
}

type countWindow struct {
	count   int64
	resetAt time.Time
}

// NewMemoryCounter creates an in-memory counter store.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: make(map[string]*countWindow), now: time.Now}
}

func (m *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w := m.windows[key]
	if w == nil || !now.Before(w.resetAt) {
		w = &countWindow{resetAt: now.Add(window)}
		m.windows[key] = w
	}
	w.count++
	return w.count, nil
}
