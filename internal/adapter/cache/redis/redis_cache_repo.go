package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/marketplace-client/internal/port/cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const scanBatch = 100

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type redisCacheRepository struct {
	client    *redis.Client
	keyPrefix string
	logger    *logger.Logger
}

func NewRedisClient(ctx context.Context, cfg RedisConfig, log *logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Error("Failed to connect to Redis", zap.String("address", cfg.Address), zap.Error(err))
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Address, err)
	}
	log.Info("Successfully connected to Redis", zap.String("address", cfg.Address))
	return rdb, nil
}

// NewRedisCacheRepository namespaces every key with keyPrefix so several
// clients can share one Redis database. Per-session queries carry the
// session's cache id in their keys, so sharing never exposes one user's
// results to another session.
func NewRedisCacheRepository(client *redis.Client, keyPrefix string, log *logger.Logger) cache.CacheRepository {
	return &redisCacheRepository{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    log,
	}
}

func (r *redisCacheRepository) key(k string) string {
	return r.keyPrefix + k
}

func (r *redisCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrNotFound
		}
		r.logger.Error("Redis Get operation failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("redisCacheRepository.Get for key '%s': %w", key, err)
	}
	return val, nil
}

func (r *redisCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		r.logger.Error("Redis Set operation failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redisCacheRepository.Set for key '%s': %w", key, err)
	}
	r.logger.Debug("Redis Set operation successful", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

func (r *redisCacheRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.logger.Error("Redis Del operation failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redisCacheRepository.Delete for key '%s': %w", key, err)
	}
	return nil
}

func (r *redisCacheRepository) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	pattern := escapeGlob(r.key(prefix)) + "*"
	iter := r.client.Scan(ctx, 0, pattern, scanBatch).Iterator()

	deleted := 0
	batch := make([]string, 0, scanBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.client.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		deleted += int(n)
		batch = batch[:0]
		return nil
	}

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := flush(); err != nil {
				r.logger.Error("Redis prefix delete failed", zap.String("prefix", prefix), zap.Error(err))
				return deleted, fmt.Errorf("redisCacheRepository.DeletePrefix for '%s': %w", prefix, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		r.logger.Error("Redis scan failed", zap.String("prefix", prefix), zap.Error(err))
		return deleted, fmt.Errorf("redisCacheRepository.DeletePrefix scan for '%s': %w", prefix, err)
	}
	if err := flush(); err != nil {
		r.logger.Error("Redis prefix delete failed", zap.String("prefix", prefix), zap.Error(err))
		return deleted, fmt.Errorf("redisCacheRepository.DeletePrefix for '%s': %w", prefix, err)
	}

	r.logger.Debug("Redis prefix delete", zap.String("prefix", prefix), zap.Int("deleted", deleted))
	return deleted, nil
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
