package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/port/cache"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

type memoryCacheRepository struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryCacheRepository returns a process-local cache. now may be nil.
func NewMemoryCacheRepository(now func() time.Time) cache.CacheRepository {
	if now == nil {
		now = time.Now
	}
	return &memoryCacheRepository{
		entries: make(map[string]entry),
		now:     now,
	}
}

func (r *memoryCacheRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	if !e.expiresAt.IsZero() && !r.now().Before(e.expiresAt) {
		delete(r.entries, key)
		return nil, cache.ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores value; a non-positive ttl keeps it until deleted.
func (r *memoryCacheRepository) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	e := entry{value: stored}
	if ttl > 0 {
		e.expiresAt = r.now().Add(ttl)
	}

	r.mu.Lock()
	r.entries[key] = e
	r.mu.Unlock()
	return nil
}

func (r *memoryCacheRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
	return nil
}

func (r *memoryCacheRepository) DeletePrefix(_ context.Context, prefix string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k := range r.entries {
		if strings.HasPrefix(k, prefix) {
			delete(r.entries, k)
			n++
		}
	}
	return n, nil
}
