package testutil

import (
	"time"

	"gamerooms/models"

	"github.com/google/uuid"
)

// CreateTestLock creates a lock owned by a fresh token that expires after ttl
func CreateTestLock(key models.RoomKey, now time.Time, ttl time.Duration) *models.Lock {
	return &models.Lock{
		CommunityID: key.CommunityID,
		UserID:      key.UserID,
		OwnerToken:  uuid.NewString(),
		GameKey:     models.GameGuess,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
}

// CreateTestLedgerHistory creates a game win history row
func CreateTestLedgerHistory(userID string, before, delta int64) *models.LedgerHistory {
	game := models.GameGuess
	return &models.LedgerHistory{
		UserID:       userID,
		PointsBefore: before,
		PointsAfter:  before + delta,
		Delta:        delta,
		Reason:       models.CreditReasonGameWin,
		GameKey:      &game,
	}
}
