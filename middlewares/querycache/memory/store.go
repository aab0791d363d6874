package memory

import (
	"context"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// Store keeps cached row sets in process memory.
type Store struct {
	c          *cache.Cache
	expiration time.Duration
}

// NewStore creates a memory store whose entries expire after expiration.
func NewStore(expiration time.Duration) *Store {
	return &Store{
		c:          cache.New(expiration, time.Second),
		expiration: expiration,
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]map[string]any, bool, error) {
	val, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	return val.([]map[string]any), true, nil
}

func (s *Store) Set(ctx context.Context, key string, rows []map[string]any) error {
	s.c.Set(key, rows, s.expiration)
	return nil
}
