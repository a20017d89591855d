package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gamerooms/clock"
	"gamerooms/events"
	"gamerooms/models"
	"gamerooms/repository"
	"gamerooms/repository/testutil"
	"gamerooms/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(testDB.DB, bus)
	fake := clock.NewFake(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	locks := service.NewLockStore(uowFactory, fake, 15*time.Second, bus)
	registry := service.NewRoomRegistry(uowFactory, fake)
	key := models.RoomKey{CommunityID: "guild-1", UserID: "user-1"}

	t.Run("concurrent requests get exactly one grant", func(t *testing.T) {
		testDB.Reset(t)

		const attempts = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			granted int
			denied  int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := locks.TryAcquire(ctx, key, models.GameGuess)

				mu.Lock()
				defer mu.Unlock()
				var lockDenied *service.LockDeniedError
				switch {
				case err == nil:
					granted++
				case errors.As(err, &lockDenied):
					assert.Equal(t, service.DenialLockHeld, lockDenied.Reason)
					denied++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, granted)
		assert.Equal(t, attempts-1, denied)
	})

	t.Run("active room denies with its channel", func(t *testing.T) {
		testDB.Reset(t)

		lock, err := locks.TryAcquire(ctx, key, models.GameCounting)
		require.NoError(t, err)
		require.NoError(t, registry.MarkCreating(ctx, key, models.GameCounting))
		require.NoError(t, registry.PromoteActive(ctx, key, "chan-1", lock.OwnerToken))

		_, err = locks.TryAcquire(ctx, key, models.GameGuess)

		var denied *service.LockDeniedError
		require.True(t, errors.As(err, &denied))
		assert.Equal(t, service.DenialActiveRoomExists, denied.Reason)
		assert.Equal(t, "chan-1", denied.ChannelRef)
		assert.Equal(t, models.GameCounting, denied.GameKey)

		// the consumed lock must not outlive promotion
		fake.Advance(time.Hour)
		_, err = locks.TryAcquire(ctx, key, models.GameGuess)
		assert.ErrorIs(t, err, service.ErrLockDenied)
	})

	t.Run("clear frees the user for a new room", func(t *testing.T) {
		testDB.Reset(t)

		lock, err := locks.TryAcquire(ctx, key, models.GameGuess)
		require.NoError(t, err)
		require.NoError(t, registry.MarkCreating(ctx, key, models.GameGuess))
		require.NoError(t, registry.PromoteActive(ctx, key, "chan-1", lock.OwnerToken))

		require.NoError(t, registry.Clear(ctx, key, "chan-1"))

		active, err := registry.GetActive(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, active)

		_, err = locks.TryAcquire(ctx, key, models.GameHighLow)
		assert.NoError(t, err)
	})

	t.Run("clearing a replaced room leaves the newer room", func(t *testing.T) {
		testDB.Reset(t)

		lock, err := locks.TryAcquire(ctx, key, models.GameGuess)
		require.NoError(t, err)
		require.NoError(t, registry.MarkCreating(ctx, key, models.GameGuess))
		require.NoError(t, registry.PromoteActive(ctx, key, "chan-1", lock.OwnerToken))
		require.NoError(t, registry.Clear(ctx, key, "chan-1"))

		lock, err = locks.TryAcquire(ctx, key, models.GameCounting)
		require.NoError(t, err)
		require.NoError(t, registry.MarkCreating(ctx, key, models.GameCounting))
		require.NoError(t, registry.PromoteActive(ctx, key, "chan-2", lock.OwnerToken))

		// a late teardown of the first room
		assert.ErrorIs(t, registry.Touch(ctx, key, "chan-1"), service.ErrRoomReplaced)
		assert.ErrorIs(t, registry.Clear(ctx, key, "chan-1"), service.ErrRoomReplaced)

		active, err := registry.GetActive(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, "chan-2", active.ChannelRef)

		_, err = locks.TryAcquire(ctx, key, models.GameGuess)
		var denied *service.LockDeniedError
		require.True(t, errors.As(err, &denied))
		assert.Equal(t, service.DenialActiveRoomExists, denied.Reason)
	})

	t.Run("crashed creation blocks only until the lock expires", func(t *testing.T) {
		testDB.Reset(t)

		_, err := locks.TryAcquire(ctx, key, models.GameGuess)
		require.NoError(t, err)
		require.NoError(t, registry.MarkCreating(ctx, key, models.GameGuess))

		_, err = locks.TryAcquire(ctx, key, models.GameGuess)
		assert.ErrorIs(t, err, service.ErrLockDenied)

		fake.Advance(16 * time.Second)
		lock, err := locks.TryAcquire(ctx, key, models.GameGuess)
		require.NoError(t, err)
		require.NoError(t, registry.MarkCreating(ctx, key, models.GameGuess))
		assert.NoError(t, registry.PromoteActive(ctx, key, "chan-2", lock.OwnerToken))
	})

	t.Run("stale owner cannot promote after takeover", func(t *testing.T) {
		testDB.Reset(t)

		stale, err := locks.TryAcquire(ctx, key, models.GameGuess)
		require.NoError(t, err)
		require.NoError(t, registry.MarkCreating(ctx, key, models.GameGuess))

		fake.Advance(16 * time.Second)
		fresh, err := locks.TryAcquire(ctx, key, models.GameGuess)
		require.NoError(t, err)

		err = registry.PromoteActive(ctx, key, "chan-stale", stale.OwnerToken)
		assert.ErrorIs(t, err, service.ErrLockLost)

		// the stale owner's cleanup leaves the new attempt alone
		require.NoError(t, registry.Abandon(ctx, key, stale.OwnerToken))
		assert.NoError(t, registry.PromoteActive(ctx, key, "chan-fresh", fresh.OwnerToken))

		active, err := registry.GetActive(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, active)
		assert.Equal(t, "chan-fresh", active.ChannelRef)
	})
}

func TestLedger_ConcurrentCredits_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	bus := events.NewBus()
	var credited sync.WaitGroup
	bus.Subscribe(events.EventTypePointsCredited, func(context.Context, events.Event) {
		credited.Done()
	})

	ledger := service.NewLedgerService(
		repository.NewUnitOfWorkFactory(testDB.DB, bus),
		repository.NewLedgerRepository(testDB.DB),
		repository.NewLedgerHistoryRepository(testDB.DB),
		bus,
		service.NewMemoryLeaderboardCache(),
		clock.Real(),
		10,
	)

	const credits = 20
	credited.Add(credits)

	game := models.GameCounting
	var wg sync.WaitGroup
	for i := 0; i < credits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Credit(ctx, "user-1", 5, models.CreditReasonGameWin, &game)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	credited.Wait()

	balance, err := ledger.Balance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(credits*5), balance)

	history, err := ledger.History(ctx, "user-1", credits)
	require.NoError(t, err)
	assert.Len(t, history, credits)

	board, err := ledger.TopN(ctx, 3)
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)
	assert.Equal(t, "user-1", board.Entries[0].UserID)
	assert.Equal(t, int64(credits*5), board.Entries[0].Points)
}
