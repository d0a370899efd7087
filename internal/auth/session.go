package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyFmt = "auth:%d"

// SetSession stores the active token for a user so logout and inactivity
// expiry work even though JWTs are stateless.
func SetSession(rdb *redis.Client, userId uint, token string, duration time.Duration) error {
	ctx := context.Background()
	key := fmt.Sprintf(sessionKeyFmt, userId)
	return rdb.Set(ctx, key, token, duration).Err()
}

func GetSession(rdb *redis.Client, userId uint) (string, error) {
	ctx := context.Background()
	key := fmt.Sprintf(sessionKeyFmt, userId)
	return rdb.Get(ctx, key).Result()
}

func DeleteSession(rdb *redis.Client, userId uint) error {
	ctx := context.Background()
	key := fmt.Sprintf(sessionKeyFmt, userId)
	return rdb.Del(ctx, key).Err()
}
