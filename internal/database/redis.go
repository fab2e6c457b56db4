package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisDialTimeout = 5 * time.Second

// ConnectRedis opens the Redis instance that holds login attempts and revoked
// sessions, failing fast when it does not answer a PING within ctx.
func ConnectRedis(ctx context.Context, url, clientName string) (*redis.Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("redis url must not be empty")
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if options.ClientName == "" {
		options.ClientName = clientName
	}
	options.DialTimeout = redisDialTimeout

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to reach redis: %w", err)
	}

	return client, nil
}
