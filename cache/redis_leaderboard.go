package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gamerooms/models"

	redis "github.com/redis/go-redis/v9"
)

const leaderboardKey = "gamerooms:leaderboard"

// NewRedisClient connects to Redis and verifies the connection with Ping
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// RedisLeaderboardCache shares one leaderboard snapshot between bot processes
type RedisLeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLeaderboardCache stores snapshots that expire after ttl, so a
// fleet that stopped refreshing falls back to a synchronous query
func NewRedisLeaderboardCache(client *redis.Client, ttl time.Duration) *RedisLeaderboardCache {
	return &RedisLeaderboardCache{client: client, ttl: ttl}
}

// Load returns nil when no snapshot is cached
func (c *RedisLeaderboardCache) Load(ctx context.Context) (*models.Leaderboard, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached leaderboard: %w", err)
	}

	var board models.Leaderboard
	if err := json.Unmarshal(data, &board); err != nil {
		return nil, fmt.Errorf("decode cached leaderboard: %w", err)
	}
	return &board, nil
}

func (c *RedisLeaderboardCache) Store(ctx context.Context, board *models.Leaderboard) error {
	if c == nil || c.client == nil || board == nil {
		return nil
	}

	payload, err := json.Marshal(board)
	if err != nil {
		return fmt.Errorf("encode leaderboard for cache: %w", err)
	}

	if err := c.client.Set(ctx, leaderboardKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached leaderboard: %w", err)
	}
	return nil
}
