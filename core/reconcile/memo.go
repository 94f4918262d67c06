package reconcile

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Memo caches lookups for the lifetime of one run. Concurrent misses for the
// same key share a single load.
type Memo[V any] struct {
	mu     sync.RWMutex
	values map[string]V
	sf     singleflight.Group
}

// Get returns the cached value for key or loads it once.
// Failed loads are not cached.
func (m *Memo[V]) Get(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (V, error) {
	m.mu.RLock()
	v, ok := m.values[key]
	m.mu.RUnlock()
	if ok {
		return v, nil
	}

	res, err, _ := m.sf.Do(key, func() (any, error) {
		// Double-check after winning the flight
		m.mu.RLock()
		v, ok := m.values[key]
		m.mu.RUnlock()
		if ok {
			return v, nil
		}

		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		if m.values == nil {
			m.values = make(map[string]V)
		}
		m.values[key] = loaded
		m.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ = res.(V)
	return v, nil
}

// Reset drops every cached value.
func (m *Memo[V]) Reset() {
	m.mu.Lock()
	m.values = nil
	m.mu.Unlock()
}
