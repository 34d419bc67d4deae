package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/domain/port"
)

// Options configures the Redis connection.
type Options struct {
	Addr         string
	Password     string
	DB           int
	TLSConfig    *tls.Config
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// CacheStore implements port.CacheStore on a single Redis node.
type CacheStore struct {
	client goredis.UniversalClient
}

var _ port.CacheStore = (*CacheStore)(nil)

// NewCacheStore creates a Redis-backed store. No connection is made until
// the first command; use Ping to verify reachability.
func NewCacheStore(opts Options) *CacheStore {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		TLSConfig:    opts.TLSConfig,
		DialTimeout:  withDefault(opts.DialTimeout, 2*time.Second),
		ReadTimeout:  withDefault(opts.ReadTimeout, 500*time.Millisecond),
		WriteTimeout: withDefault(opts.WriteTimeout, 500*time.Millisecond),
		MaxRetries:   -1,
	})
	return &CacheStore{client: client}
}

// NewCacheStoreFromClient wraps an existing client.
func NewCacheStoreFromClient(client goredis.UniversalClient) *CacheStore {
	return &CacheStore{client: client}
}

func withDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// Get returns the value under key. A missing key is a miss, not an error.
func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return data, true, nil
}

// SetEx stores value under key with an expiry.
func (s *CacheStore) SetEx(ctx context.Context, key string, ttl time.Duration, value []byte) error {
	if err := s.client.SetEx(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis SETEX %s: %w", key, err)
	}
	return nil
}

// Ping checks that the server answers.
func (s *CacheStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis PING: %w", err)
	}
	return nil
}

// Close closes the client and its connection pool.
func (s *CacheStore) Close() error {
	return s.client.Close()
}
