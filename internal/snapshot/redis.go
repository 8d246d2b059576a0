package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultSnapshotTTL = 14 * 24 * time.Hour

// RedisRepository stores the snapshot slot in Redis, keyed per terminal,
// so counter staff can resume a draft from any station.
type RedisRepository struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisOption customises the repository.
type RedisOption func(*RedisRepository)

// WithTTL overrides how long an untouched draft survives.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisRepository) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRedisRepository constructs a Redis-backed snapshot slot under the
// given key.
func NewRedisRepository(client *redis.Client, key string, opts ...RedisOption) (*RedisRepository, error) {
	if client == nil {
		return nil, errors.New("snapshot: redis client is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("snapshot: slot key is required")
	}
	repo := &RedisRepository{
		client: client,
		key:    key,
		ttl:    defaultSnapshotTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

// Load implements Repository.
func (r *RedisRepository) Load(ctx context.Context) (Snapshot, bool, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("snapshot: load slot %s: %w", r.key, err)
	}
	snap, err := Decode(data)
	if err != nil {
		// Corrupt slot reads as absent.
		return Snapshot{}, false, nil
	}
	return snap, true, nil
}

// Save implements Repository.
func (r *RedisRepository) Save(ctx context.Context, snap Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("snapshot: save slot %s: %w", r.key, err)
	}
	return nil
}

// Clear implements Repository.
func (r *RedisRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("snapshot: clear slot %s: %w", r.key, err)
	}
	return nil
}
