package service

import (
	"context"
	"sync"

	"gamerooms/models"
)

// MemoryLeaderboardCache keeps the snapshot in process
type MemoryLeaderboardCache struct {
	mu    sync.RWMutex
	board *models.Leaderboard
}

// NewMemoryLeaderboardCache creates an empty in-process cache
func NewMemoryLeaderboardCache() *MemoryLeaderboardCache {
	return &MemoryLeaderboardCache{}
}

// Load returns nil until the first Store
func (c *MemoryLeaderboardCache) Load(_ context.Context) (*models.Leaderboard, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.board == nil {
		return nil, nil
	}
	board := *c.board
	board.Entries = append([]models.LeaderboardEntry(nil), c.board.Entries...)
	return &board, nil
}

func (c *MemoryLeaderboardCache) Store(_ context.Context, board *models.Leaderboard) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.board = board
	return nil
}
