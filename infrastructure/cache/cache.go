package cache

import (
	"context"
	"time"

	"channel-insight/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// NewCache connects to redis and pings it once
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	logger.GetLogger().WithField("addr", addr).Info("Redis connected")
	return client, nil
}
