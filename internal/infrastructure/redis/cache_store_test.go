package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enesgulerml/titanic-mlops-k8s/internal/infrastructure/redis"
)

func TestCacheStore_UnreachableServer(t *testing.T) {
	store := redis.NewCacheStore(redis.Options{
		// Port 1 is reserved and never runs Redis.
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	})
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, store.Ping(ctx))

	_, found, err := store.Get(ctx, "titanic:predict:abc")
	assert.Error(t, err)
	assert.False(t, found)

	assert.Error(t, store.SetEx(ctx, "titanic:predict:abc", time.Hour, []byte("{}")))
}

func TestCacheStore_CloseTwice(t *testing.T) {
	store := redis.NewCacheStore(redis.Options{Addr: "127.0.0.1:1"})
	require.NoError(t, store.Close())
	assert.Error(t, store.Close())
}

func TestCacheStore_FromClient(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	})
	store := redis.NewCacheStoreFromClient(client)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.Error(t, store.Ping(ctx))
	require.NoError(t, store.Close())
}
