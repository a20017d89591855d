package cache

import (
	"context"
	"testing"
	"time"

	"gamerooms/models"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})

	return mr, client
}

func TestRedisLeaderboardCache_ColdLoad(t *testing.T) {
	_, client := setupTestRedis(t)
	cache := NewRedisLeaderboardCache(client, time.Minute)

	board, err := cache.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, board)
}

func TestRedisLeaderboardCache_StoreAndLoad(t *testing.T) {
	_, client := setupTestRedis(t)
	cache := NewRedisLeaderboardCache(client, time.Minute)
	ctx := context.Background()

	asOf := time.Date(2025, 5, 2, 18, 30, 0, 0, time.UTC)
	require.NoError(t, cache.Store(ctx, &models.Leaderboard{
		Entries: []models.LeaderboardEntry{
			{Rank: 1, UserID: "user-2", Points: 90},
			{Rank: 2, UserID: "user-1", Points: 40},
		},
		AsOf: asOf,
	}))

	board, err := cache.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, board)
	assert.True(t, asOf.Equal(board.AsOf))
	require.Len(t, board.Entries, 2)
	assert.Equal(t, "user-2", board.Entries[0].UserID)
	assert.Equal(t, int64(40), board.Entries[1].Points)
}

func TestRedisLeaderboardCache_Expires(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewRedisLeaderboardCache(client, 2*time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, &models.Leaderboard{AsOf: time.Now()}))
	mr.FastForward(3 * time.Minute)

	board, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, board)
}

func TestRedisLeaderboardCache_CorruptSnapshot(t *testing.T) {
	mr, client := setupTestRedis(t)
	cache := NewRedisLeaderboardCache(client, time.Minute)

	require.NoError(t, mr.Set(leaderboardKey, "not json"))

	_, err := cache.Load(context.Background())
	assert.Error(t, err)
}

func TestRedisLeaderboardCache_NilSafe(t *testing.T) {
	var cache *RedisLeaderboardCache

	board, err := cache.Load(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, board)
	assert.NoError(t, cache.Store(context.Background(), &models.Leaderboard{}))
}
