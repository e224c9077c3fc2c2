// Package redis stores cached configuration documents in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/go-redis/redis/v8"

	"github.com/hamed0406/endpointresolver/internal/repo"
)

var _ repo.Store = (*Store)(nil)

type Store struct {
	client goredis.UniversalClient
	prefix string
}

// NewClient parses a redis:// URL.
func NewClient(url string) (goredis.UniversalClient, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return goredis.NewClient(opts), nil
}

// New wraps client; every key is stored as "<prefix>:<key>". Values never expire.
func New(client goredis.UniversalClient, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, repo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}
