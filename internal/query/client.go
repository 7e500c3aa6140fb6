package query

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/port/cache"
	"go.uber.org/zap"
)

// DefaultStaleTime is how long a fetched result is served without refetching.
const DefaultStaleTime = 5 * time.Minute

// Fetcher performs the network call of a query.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Client caches query results and invalidates them by scope.
type Client struct {
	store     cache.CacheRepository
	staleTime time.Duration
	logger    *logger.Logger
	metrics   *metrics.MetricsManager

	mu          sync.Mutex
	generations map[string]uint64
	nextSubID   int
	subs        map[string]map[int]func()
}

type Option func(*Client)

// WithStaleTime sets how long results stay fresh. Zero disables caching.
func WithStaleTime(d time.Duration) Option {
	return func(c *Client) { c.staleTime = d }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *metrics.MetricsManager) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(store cache.CacheRepository, opts ...Option) *Client {
	c := &Client{
		store:       store,
		staleTime:   DefaultStaleTime,
		logger:      logger.NewNop(),
		generations: make(map[string]uint64),
		subs:        make(map[string]map[int]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("QueryClient")
	return c
}

func (c *Client) generation(scope string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[scope]
}

// Fetch returns the cached value for key when it is fresh, otherwise it calls
// fn and caches a successful result. Errors are never cached. A result whose
// scope was invalidated while fn ran is returned but not cached.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn Fetcher[T]) (T, error) {
	if c.staleTime > 0 {
		if data, err := c.store.Get(ctx, key.String()); err == nil {
			var cached T
			if err := json.Unmarshal(data, &cached); err == nil {
				c.observeLookup(key.Scope, "hit")
				return cached, nil
			}
			c.logger.Warn("Dropping undecodable cache entry", zap.String("key", key.String()))
			_ = c.store.Delete(ctx, key.String())
		} else if !errors.Is(err, cache.ErrNotFound) {
			c.logger.Warn("Cache lookup failed, fetching from network", zap.String("key", key.String()), zap.Error(err))
		}
		c.observeLookup(key.Scope, "miss")
	}

	gen := c.generation(key.Scope)
	value, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if c.staleTime > 0 && c.generation(key.Scope) == gen {
		if data, mErr := json.Marshal(value); mErr != nil {
			c.logger.Warn("Failed to marshal query result for caching", zap.String("key", key.String()), zap.Error(mErr))
		} else if sErr := c.store.Set(ctx, key.String(), data, c.staleTime); sErr != nil {
			c.logger.Warn("Failed to cache query result", zap.String("key", key.String()), zap.Error(sErr))
		}
	}
	return value, nil
}

// Invalidate drops every cached result of the given scopes and notifies
// their subscribers. Subscribers are notified even if the store fails.
func (c *Client) Invalidate(ctx context.Context, scopes ...string) error {
	var errs []error
	for _, scope := range scopes {
		c.mu.Lock()
		c.generations[scope]++
		subs := make([]func(), 0, len(c.subs[scope]))
		for _, fn := range c.subs[scope] {
			subs = append(subs, fn)
		}
		c.mu.Unlock()

		n, err := c.store.DeletePrefix(ctx, scopePrefix(scope))
		if err != nil {
			c.logger.Error("Failed to invalidate query scope", zap.String("scope", scope), zap.Error(err))
			errs = append(errs, err)
		} else {
			c.logger.Debug("Invalidated query scope", zap.String("scope", scope), zap.Int("entries", n))
		}
		if c.metrics != nil {
			c.metrics.InvalidationsTotal.WithLabelValues(scope).Inc()
		}

		for _, fn := range subs {
			fn()
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers fn to run after every invalidation of scope.
func (c *Client) Subscribe(scope string, fn func()) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	if c.subs[scope] == nil {
		c.subs[scope] = make(map[int]func())
	}
	c.subs[scope][id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs[scope], id)
			c.mu.Unlock()
		})
	}
}

func (c *Client) observeLookup(scope, result string) {
	if c.metrics != nil {
		c.metrics.CacheLookupsTotal.WithLabelValues(scope, result).Inc()
	}
}
