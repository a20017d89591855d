package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gamerooms/clock"
	"gamerooms/events"
	"gamerooms/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testRoomKey = models.RoomKey{CommunityID: "guild-1", UserID: "user-1"}

type lockStoreFixture struct {
	store     LockStore
	uow       *MockUnitOfWork
	lockRepo  *MockLockRepository
	roomRepo  *MockRoomRepository
	publisher *MockEventPublisher
	clock     *clock.Fake
}

func newLockStoreFixture() *lockStoreFixture {
	f := &lockStoreFixture{
		uow:       new(MockUnitOfWork),
		lockRepo:  new(MockLockRepository),
		roomRepo:  new(MockRoomRepository),
		publisher: new(MockEventPublisher),
		clock:     clock.NewFake(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)),
	}
	f.uow.SetRepositories(f.lockRepo, f.roomRepo, nil, nil, nil)

	factory := new(MockUnitOfWorkFactory)
	factory.On("Create").Return(f.uow)
	f.store = NewLockStore(factory, f.clock, 15*time.Second, f.publisher)
	return f
}

func TestLockStore_TryAcquire_Granted(t *testing.T) {
	ctx := context.Background()
	f := newLockStoreFixture()
	now := f.clock.Now()

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Commit").Return(nil)
	f.uow.On("Rollback").Return(nil)
	f.lockRepo.On("TryInsert", ctx, mock.MatchedBy(func(l *models.Lock) bool {
		return l.OwnerToken != "" && l.ExpiresAt.Equal(now.Add(15*time.Second)) && l.GameKey == models.GameGuess
	}), now).Return(true, nil)
	f.roomRepo.On("Get", ctx, testRoomKey).Return(nil, nil)

	lock, err := f.store.TryAcquire(ctx, testRoomKey, models.GameGuess)

	require.NoError(t, err)
	assert.Equal(t, testRoomKey, lock.Key())
	assert.False(t, lock.IsExpired(now))
	assert.True(t, lock.IsExpired(now.Add(15*time.Second)))
	f.uow.AssertExpectations(t)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestLockStore_TryAcquire_ActiveRoomExists(t *testing.T) {
	ctx := context.Background()
	f := newLockStoreFixture()

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Rollback").Return(nil)
	f.lockRepo.On("TryInsert", ctx, mock.Anything, mock.Anything).Return(true, nil)
	f.roomRepo.On("Get", ctx, testRoomKey).Return(&models.RoomSession{
		CommunityID: "guild-1",
		UserID:      "user-1",
		ChannelRef:  "chan-9",
		GameKey:     models.GameCounting,
		Status:      models.RoomStatusActive,
	}, nil)
	f.publisher.On("Publish", events.LockDeniedEvent{
		CommunityID: "guild-1",
		UserID:      "user-1",
		Reason:      string(DenialActiveRoomExists),
	}).Return()

	lock, err := f.store.TryAcquire(ctx, testRoomKey, models.GameGuess)

	assert.Nil(t, lock)
	require.ErrorIs(t, err, ErrLockDenied)
	var denied *LockDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, DenialActiveRoomExists, denied.Reason)
	assert.Equal(t, "chan-9", denied.ChannelRef)
	assert.Equal(t, models.GameCounting, denied.GameKey)

	// the taken lock row is rolled back, never committed
	f.uow.AssertNotCalled(t, "Commit")
	f.uow.AssertCalled(t, "Rollback")
	f.publisher.AssertExpectations(t)
}

func TestLockStore_TryAcquire_LockHeld(t *testing.T) {
	ctx := context.Background()
	f := newLockStoreFixture()

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Rollback").Return(nil)
	f.lockRepo.On("TryInsert", ctx, mock.Anything, mock.Anything).Return(false, nil)
	// a creating row does not count as an active room
	f.roomRepo.On("Get", ctx, testRoomKey).Return(&models.RoomSession{
		Status:  models.RoomStatusCreating,
		GameKey: models.GameGuess,
	}, nil)
	f.publisher.On("Publish", mock.Anything).Return()

	_, err := f.store.TryAcquire(ctx, testRoomKey, models.GameGuess)

	var denied *LockDeniedError
	require.True(t, errors.As(err, &denied))
	assert.Equal(t, DenialLockHeld, denied.Reason)
	f.uow.AssertNotCalled(t, "Commit")
}

func TestLockStore_TryAcquire_RepositoryError(t *testing.T) {
	ctx := context.Background()
	f := newLockStoreFixture()

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Rollback").Return(nil)
	f.lockRepo.On("TryInsert", ctx, mock.Anything, mock.Anything).Return(false, errors.New("connection reset"))

	_, err := f.store.TryAcquire(ctx, testRoomKey, models.GameGuess)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockDenied)
	f.roomRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestLockStore_Release(t *testing.T) {
	ctx := context.Background()
	f := newLockStoreFixture()

	f.uow.On("Begin", ctx).Return(nil)
	f.uow.On("Commit").Return(nil)
	f.uow.On("Rollback").Return(nil)
	f.lockRepo.On("Delete", ctx, testRoomKey, "token-1").Return(false, nil)

	// releasing a lock that is already gone is fine
	require.NoError(t, f.store.Release(ctx, testRoomKey, "token-1"))
	f.lockRepo.AssertExpectations(t)
}
