package leaderboard

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Runs only against a real server: REDIS_ADDR=localhost:6379 go test ./...
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}

	prefix := "test:" + uuid.NewString() + ":"
	t.Cleanup(func() { rdb.Del(context.Background(), prefix+RedisRecordsKey) })
	exerciseStore(t, NewRedisStore(rdb, prefix))
}
