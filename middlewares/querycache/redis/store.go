package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// StoreOption is a function type for configuring a Store.
type StoreOption func(store *Store)

// Store keeps cached row sets in redis, JSON encoded.
type Store struct {
	prefix     string // redis 中 key 的前缀
	client     redis.Cmdable
	expiration time.Duration
}

func NewStore(client redis.Cmdable, opts ...StoreOption) *Store {
	res := &Store{
		client:     client,
		prefix:     "querycache",
		expiration: time.Minute,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

func WithPrefix(prefix string) StoreOption {
	return func(store *Store) {
		store.prefix = prefix
	}
}

func WithExpiration(expiration time.Duration) StoreOption {
	return func(store *Store) {
		store.expiration = expiration
	}
}

func (s *Store) key(k string) string {
	return fmt.Sprintf("%s_%s", s.prefix, k)
}

func (s *Store) Get(ctx context.Context, key string) ([]map[string]any, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rows []map[string]any
	if err = json.Unmarshal(data, &rows); err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func (s *Store) Set(ctx context.Context, key string, rows []map[string]any) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), data, s.expiration).Err()
}
