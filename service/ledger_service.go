package service

import (
	"context"
	"fmt"
	"time"

	"gamerooms/clock"
	"gamerooms/events"
	"gamerooms/models"

	log "github.com/sirupsen/logrus"
)

// LedgerService manages point balances and the leaderboard
type LedgerService interface {
	// Credit atomically adds delta to the user's balance
	Credit(ctx context.Context, userID string, delta int64, reason models.CreditReason, gameKey *models.GameKey) (*models.LedgerHistory, error)

	// SetAbsolute overwrites the balance outside any transaction
	SetAbsolute(ctx context.Context, userID string, value int64) error

	// Balance returns the user's points, zero if the user never scored
	Balance(ctx context.Context, userID string) (int64, error)

	// History returns the user's most recent balance changes
	History(ctx context.Context, userID string, limit int) ([]*models.LedgerHistory, error)

	// TopN returns the cached leaderboard, at most one refresh interval old
	TopN(ctx context.Context, n int) (*models.Leaderboard, error)

	// RefreshLeaderboard rebuilds the cached snapshot from the ledger
	RefreshLeaderboard(ctx context.Context) error
}

type ledgerService struct {
	uowFactory     UnitOfWorkFactory
	ledgerRepo     LedgerRepository
	historyRepo    LedgerHistoryRepository
	eventPublisher EventPublisher
	cache          LeaderboardCache
	clock          clock.Clock
	boardSize      int
}

// NewLedgerService creates a ledger service. ledgerRepo and historyRepo are
// pool-backed and serve the reads and writes that run outside a transaction.
func NewLedgerService(
	uowFactory UnitOfWorkFactory,
	ledgerRepo LedgerRepository,
	historyRepo LedgerHistoryRepository,
	eventPublisher EventPublisher,
	cache LeaderboardCache,
	c clock.Clock,
	boardSize int,
) LedgerService {
	return &ledgerService{
		uowFactory:     uowFactory,
		ledgerRepo:     ledgerRepo,
		historyRepo:    historyRepo,
		eventPublisher: eventPublisher,
		cache:          cache,
		clock:          c,
		boardSize:      boardSize,
	}
}

func (s *ledgerService) Credit(ctx context.Context, userID string, delta int64, reason models.CreditReason, gameKey *models.GameKey) (*models.LedgerHistory, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	before, after, err := uow.LedgerRepository().Increment(ctx, userID, delta)
	if err != nil {
		return nil, err
	}

	history := &models.LedgerHistory{
		UserID:       userID,
		PointsBefore: before,
		PointsAfter:  after,
		Delta:        delta,
		Reason:       reason,
		GameKey:      gameKey,
	}
	if err := uow.LedgerHistoryRepository().Record(ctx, history); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(creditedEvent(history))

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit credit: %w", err)
	}

	log.WithFields(log.Fields{
		"user":   userID,
		"delta":  delta,
		"after":  after,
		"reason": reason,
	}).Debug("Points credited")

	return history, nil
}

// SetAbsolute is last-writer-wins; a concurrent Credit may be overwritten
func (s *ledgerService) SetAbsolute(ctx context.Context, userID string, value int64) error {
	previous, err := s.ledgerRepo.Set(ctx, userID, value)
	if err != nil {
		return err
	}

	history := &models.LedgerHistory{
		UserID:       userID,
		PointsBefore: previous,
		PointsAfter:  value,
		Delta:        value - previous,
		Reason:       models.CreditReasonAdminSet,
	}
	if err := s.historyRepo.Record(ctx, history); err != nil {
		// The balance is already written; the audit row is best effort
		log.WithError(err).WithField("user", userID).Error("Failed to record admin balance change")
		return nil
	}

	if s.eventPublisher != nil {
		s.eventPublisher.Publish(creditedEvent(history))
	}
	return nil
}

func (s *ledgerService) Balance(ctx context.Context, userID string) (int64, error) {
	entry, err := s.ledgerRepo.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	if entry == nil {
		return 0, nil
	}
	return entry.Points, nil
}

func (s *ledgerService) History(ctx context.Context, userID string, limit int) ([]*models.LedgerHistory, error) {
	return s.historyRepo.GetByUser(ctx, userID, limit)
}

func (s *ledgerService) TopN(ctx context.Context, n int) (*models.Leaderboard, error) {
	board, err := s.cache.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	if board == nil {
		if err := s.RefreshLeaderboard(ctx); err != nil {
			return nil, err
		}
		if board, err = s.cache.Load(ctx); err != nil {
			return nil, fmt.Errorf("failed to load leaderboard: %w", err)
		}
		if board == nil {
			return nil, fmt.Errorf("leaderboard cache is empty after refresh")
		}
	}

	result := &models.Leaderboard{
		Entries: board.Entries,
		AsOf:    board.AsOf,
		Age:     s.clock.Now().Sub(board.AsOf),
	}
	if n >= 0 && n < len(result.Entries) {
		result.Entries = result.Entries[:n]
	}

	return result, nil
}

func (s *ledgerService) RefreshLeaderboard(ctx context.Context) error {
	entries, err := s.ledgerRepo.Top(ctx, s.boardSize)
	if err != nil {
		return err
	}

	board := &models.Leaderboard{
		Entries: entries,
		AsOf:    s.clock.Now(),
	}
	if err := s.cache.Store(ctx, board); err != nil {
		return fmt.Errorf("failed to store leaderboard: %w", err)
	}

	return nil
}

func creditedEvent(h *models.LedgerHistory) events.PointsCreditedEvent {
	e := events.PointsCreditedEvent{
		UserID:       h.UserID,
		PointsBefore: h.PointsBefore,
		PointsAfter:  h.PointsAfter,
		Delta:        h.Delta,
		Reason:       h.Reason,
	}
	if h.GameKey != nil {
		e.GameKey = *h.GameKey
	}
	return e
}

// StartLeaderboardRefresher rebuilds the leaderboard snapshot on an interval.
// Returns a cleanup function to stop the worker.
func StartLeaderboardRefresher(ctx context.Context, ledger LedgerService, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	stopChan := make(chan struct{})

	refresh := func() {
		if err := ledger.RefreshLeaderboard(ctx); err != nil {
			log.Errorf("Error refreshing leaderboard: %v", err)
		}
	}

	go func() {
		log.WithField("interval", interval).Info("Leaderboard refresher started")

		refresh()

		for {
			select {
			case <-ctx.Done():
				log.Info("Leaderboard refresher shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Leaderboard refresher shutting down (stop requested)...")
				return
			case <-ticker.C:
				refresh()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stopChan)
	}
}
