package service

import (
	"context"
	"time"

	"gamerooms/events"
	"gamerooms/models"

	"github.com/stretchr/testify/mock"
)

// MockLockRepository is a mock implementation of LockRepository
type MockLockRepository struct {
	mock.Mock
}

func (m *MockLockRepository) TryInsert(ctx context.Context, lock *models.Lock, now time.Time) (bool, error) {
	args := m.Called(ctx, lock, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockLockRepository) Get(ctx context.Context, key models.RoomKey) (*models.Lock, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lock), args.Error(1)
}

func (m *MockLockRepository) Delete(ctx context.Context, key models.RoomKey, ownerToken string) (bool, error) {
	args := m.Called(ctx, key, ownerToken)
	return args.Bool(0), args.Error(1)
}

// MockRoomRepository is a mock implementation of RoomRepository
type MockRoomRepository struct {
	mock.Mock
}

func (m *MockRoomRepository) Get(ctx context.Context, key models.RoomKey) (*models.RoomSession, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoomSession), args.Error(1)
}

func (m *MockRoomRepository) UpsertCreating(ctx context.Context, key models.RoomKey, gameKey models.GameKey, at time.Time) error {
	args := m.Called(ctx, key, gameKey, at)
	return args.Error(0)
}

func (m *MockRoomRepository) Promote(ctx context.Context, key models.RoomKey, channelRef string, at time.Time) error {
	args := m.Called(ctx, key, channelRef, at)
	return args.Error(0)
}

func (m *MockRoomRepository) Touch(ctx context.Context, key models.RoomKey, channelRef string, at time.Time) (bool, error) {
	args := m.Called(ctx, key, channelRef, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoomRepository) Delete(ctx context.Context, key models.RoomKey, channelRef string) (bool, error) {
	args := m.Called(ctx, key, channelRef)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoomRepository) DeleteIfCreating(ctx context.Context, key models.RoomKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockRoomRepository) ListActive(ctx context.Context) ([]*models.RoomSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RoomSession), args.Error(1)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Get(ctx context.Context, userID string) (*models.LedgerEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) Increment(ctx context.Context, userID string, delta int64) (int64, int64, error) {
	args := m.Called(ctx, userID, delta)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerRepository) Set(ctx context.Context, userID string, points int64) (int64, error) {
	args := m.Called(ctx, userID, points)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LeaderboardEntry), args.Error(1)
}

// MockLedgerHistoryRepository is a mock implementation of LedgerHistoryRepository
type MockLedgerHistoryRepository struct {
	mock.Mock
}

func (m *MockLedgerHistoryRepository) Record(ctx context.Context, history *models.LedgerHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockLedgerHistoryRepository) GetByUser(ctx context.Context, userID string, limit int) ([]*models.LedgerHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerHistory), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// plain fields so tests can wire only the ones they use.
type MockUnitOfWork struct {
	mock.Mock
	lockRepo          LockRepository
	roomRepo          RoomRepository
	ledgerRepo        LedgerRepository
	ledgerHistoryRepo LedgerHistoryRepository
	eventBus          EventPublisher
}

// SetRepositories wires the repositories returned by the unit of work
func (m *MockUnitOfWork) SetRepositories(lockRepo LockRepository, roomRepo RoomRepository, ledgerRepo LedgerRepository, ledgerHistoryRepo LedgerHistoryRepository, eventBus EventPublisher) {
	m.lockRepo = lockRepo
	m.roomRepo = roomRepo
	m.ledgerRepo = ledgerRepo
	m.ledgerHistoryRepo = ledgerHistoryRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) LockRepository() LockRepository                   { return m.lockRepo }
func (m *MockUnitOfWork) RoomRepository() RoomRepository                   { return m.roomRepo }
func (m *MockUnitOfWork) LedgerRepository() LedgerRepository               { return m.ledgerRepo }
func (m *MockUnitOfWork) LedgerHistoryRepository() LedgerHistoryRepository { return m.ledgerHistoryRepo }
func (m *MockUnitOfWork) EventBus() EventPublisher                         { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockChatGateway is a mock implementation of ChatGateway
type MockChatGateway struct {
	mock.Mock
}

func (m *MockChatGateway) CreateChannel(ctx context.Context, spec ChannelSpec) (string, error) {
	args := m.Called(ctx, spec)
	return args.String(0), args.Error(1)
}

func (m *MockChatGateway) DeleteChannel(ctx context.Context, channelRef string) error {
	args := m.Called(ctx, channelRef)
	return args.Error(0)
}

func (m *MockChatGateway) SendMessage(ctx context.Context, channelRef, content string) error {
	args := m.Called(ctx, channelRef, content)
	return args.Error(0)
}

func (m *MockChatGateway) SendPrompt(ctx context.Context, channelRef, content string, choices []Choice) error {
	args := m.Called(ctx, channelRef, content, choices)
	return args.Error(0)
}

// MockLockStore is a mock implementation of LockStore
type MockLockStore struct {
	mock.Mock
}

func (m *MockLockStore) TryAcquire(ctx context.Context, key models.RoomKey, gameKey models.GameKey) (*models.Lock, error) {
	args := m.Called(ctx, key, gameKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lock), args.Error(1)
}

func (m *MockLockStore) Release(ctx context.Context, key models.RoomKey, ownerToken string) error {
	args := m.Called(ctx, key, ownerToken)
	return args.Error(0)
}

// MockRoomRegistry is a mock implementation of RoomRegistry
type MockRoomRegistry struct {
	mock.Mock
}

func (m *MockRoomRegistry) GetActive(ctx context.Context, key models.RoomKey) (*models.RoomSession, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoomSession), args.Error(1)
}

func (m *MockRoomRegistry) MarkCreating(ctx context.Context, key models.RoomKey, gameKey models.GameKey) error {
	args := m.Called(ctx, key, gameKey)
	return args.Error(0)
}

func (m *MockRoomRegistry) PromoteActive(ctx context.Context, key models.RoomKey, channelRef, ownerToken string) error {
	args := m.Called(ctx, key, channelRef, ownerToken)
	return args.Error(0)
}

func (m *MockRoomRegistry) Touch(ctx context.Context, key models.RoomKey, channelRef string) error {
	args := m.Called(ctx, key, channelRef)
	return args.Error(0)
}

func (m *MockRoomRegistry) Clear(ctx context.Context, key models.RoomKey, channelRef string) error {
	args := m.Called(ctx, key, channelRef)
	return args.Error(0)
}

func (m *MockRoomRegistry) Abandon(ctx context.Context, key models.RoomKey, ownerToken string) error {
	args := m.Called(ctx, key, ownerToken)
	return args.Error(0)
}

func (m *MockRoomRegistry) ListActive(ctx context.Context) ([]*models.RoomSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RoomSession), args.Error(1)
}

// MockLedgerService is a mock implementation of LedgerService
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Credit(ctx context.Context, userID string, delta int64, reason models.CreditReason, gameKey *models.GameKey) (*models.LedgerHistory, error) {
	args := m.Called(ctx, userID, delta, reason, gameKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerHistory), args.Error(1)
}

func (m *MockLedgerService) SetAbsolute(ctx context.Context, userID string, value int64) error {
	args := m.Called(ctx, userID, value)
	return args.Error(0)
}

func (m *MockLedgerService) Balance(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerService) History(ctx context.Context, userID string, limit int) ([]*models.LedgerHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerHistory), args.Error(1)
}

func (m *MockLedgerService) TopN(ctx context.Context, n int) (*models.Leaderboard, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Leaderboard), args.Error(1)
}

func (m *MockLedgerService) RefreshLeaderboard(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
