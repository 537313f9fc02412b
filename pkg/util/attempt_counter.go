package util

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptCounter 基于 Redis 的失败次数计数器，窗口从第一次失败开始计算
type AttemptCounter struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewAttemptCounter(rdb *redis.Client, prefix string, ttl time.Duration) *AttemptCounter {
	return &AttemptCounter{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (a *AttemptCounter) key(subject string) string {
	return fmt.Sprintf("%s:%s", a.prefix, strings.ToLower(subject))
}

// Increment increments the failure count for subject and returns the new count.
func (a *AttemptCounter) Increment(ctx context.Context, subject string) (int64, error) {
	key := a.key(subject)

	count, err := a.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	// 第一次失败时设置窗口
	if count == 1 {
		if err := a.rdb.Expire(ctx, key, a.ttl).Err(); err != nil {
			return count, err
		}
	}

	return count, nil
}

// Get returns the current failure count.
func (a *AttemptCounter) Get(ctx context.Context, subject string) (int64, error) {
	count, err := a.rdb.Get(ctx, a.key(subject)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}

// Reset clears the failure count.
func (a *AttemptCounter) Reset(ctx context.Context, subject string) error {
	return a.rdb.Del(ctx, a.key(subject)).Err()
}
