package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/avatarctic/requirements-evaluator/internal/core/domain/usage"
)

// RateLimitMemoryRepository keeps usage counters in process memory.
// State is local to one replica; use Redis or Postgres when running more than one.
type RateLimitMemoryRepository struct {
	mu      sync.Mutex
	records map[string]usage.Record
}

func NewRateLimitMemoryRepository() *RateLimitMemoryRepository {
	return &RateLimitMemoryRepository{records: make(map[string]usage.Record)}
}

func (m *RateLimitMemoryRepository) Get(_ context.Context, key string) (*usage.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *RateLimitMemoryRepository) ConditionalIncrement(_ context.Context, key string, now time.Time, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if ok && rec.Expired(now, window) {
		return false, nil
	}
	if !ok {
		rec = usage.Record{Key: key, WindowStart: now}
	}
	rec.Count++
	rec.ExpiresAt = usage.ExpiryFor(now, window)
	m.records[key] = rec
	return true, nil
}

func (m *RateLimitMemoryRepository) Reset(_ context.Context, key string, now time.Time, window time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = usage.Record{Key: key, WindowStart: now, Count: 1, ExpiresAt: usage.ExpiryFor(now, window)}
	return nil
}

func (m *RateLimitMemoryRepository) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, rec := range m.records {
		if now.After(rec.ExpiresAt) {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}
