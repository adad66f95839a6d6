package cache

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisJoinLocker implements the per-user advisory lock around contest joins
// with SET NX and a TTL, so a crashed holder cannot wedge a user forever.
type RedisJoinLocker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisJoinLocker(rdb *redis.Client, ttl time.Duration) *RedisJoinLocker {
	return &RedisJoinLocker{rdb: rdb, ttl: ttl}
}

func (l *RedisJoinLocker) AcquireUserLock(ctx context.Context, userID string) (func(), bool, error) {
	key := "join_lock:user:" + userID
	lockValue := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, lockValue, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Only delete the lock we acquired; an expired lock may have been
		// re-acquired by a concurrent request.
		current, err := l.rdb.Get(context.Background(), key).Result()
		if err != nil || current != lockValue {
			return
		}
		if err := l.rdb.Del(context.Background(), key).Err(); err != nil {
			log.Printf("WARN: failed to release join lock for user %s: %v", userID, err)
		}
	}
	return release, true, nil
}
