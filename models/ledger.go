package models

import "time"

// LedgerEntry is a user's point balance
type LedgerEntry struct {
	UserID    string    `db:"user_id"`
	Points    int64     `db:"points"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CreditReason represents why points changed
type CreditReason string

const (
	CreditReasonGameWin    CreditReason = "game_win"
	CreditReasonAdminSet   CreditReason = "admin_set"
	CreditReasonAdjustment CreditReason = "adjustment"
)

// LedgerHistory represents a historical balance change
type LedgerHistory struct {
	ID           int64        `db:"id"`
	UserID       string       `db:"user_id"`
	PointsBefore int64        `db:"points_before"`
	PointsAfter  int64        `db:"points_after"`
	Delta        int64        `db:"delta"`
	Reason       CreditReason `db:"reason"`
	GameKey      *GameKey     `db:"game_key"`
	CreatedAt    time.Time    `db:"created_at"`
}

// LeaderboardEntry is one ranked row of the ledger
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"user_id"`
	Points int64  `json:"points"`
}

// Leaderboard is a ranked snapshot and how old it is
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
	AsOf    time.Time          `json:"as_of"`
	Age     time.Duration      `json:"-"`
}
