package repository

import (
	"context"
	"testing"
	"time"

	"gamerooms/models"
	"gamerooms/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomRepository_Lifecycle(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRoomRepository(testDB.DB)
	ctx := context.Background()
	key := models.RoomKey{CommunityID: "guild-1", UserID: "user-1"}
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("missing room", func(t *testing.T) {
		testDB.Reset(t)

		room, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, room)
	})

	t.Run("creating then active", func(t *testing.T) {
		testDB.Reset(t)

		require.NoError(t, repo.UpsertCreating(ctx, key, models.GameHighLow, now))

		room, err := repo.Get(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, room)
		assert.Equal(t, models.RoomStatusCreating, room.Status)
		assert.Empty(t, room.ChannelRef)
		assert.False(t, room.IsLive())

		require.NoError(t, repo.Promote(ctx, key, "chan-42", now.Add(time.Second)))

		room, err = repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, models.RoomStatusActive, room.Status)
		assert.Equal(t, "chan-42", room.ChannelRef)
		assert.Equal(t, models.GameHighLow, room.GameKey)
		assert.True(t, room.IsLive())
	})

	t.Run("creating resets a stale row", func(t *testing.T) {
		testDB.Reset(t)

		require.NoError(t, repo.UpsertCreating(ctx, key, models.GameGuess, now))
		require.NoError(t, repo.Promote(ctx, key, "chan-1", now))
		require.NoError(t, repo.UpsertCreating(ctx, key, models.GameCounting, now.Add(time.Minute)))

		room, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, models.RoomStatusCreating, room.Status)
		assert.Equal(t, models.GameCounting, room.GameKey)
		assert.Empty(t, room.ChannelRef)
	})

	t.Run("promote without a row fails", func(t *testing.T) {
		testDB.Reset(t)

		err := repo.Promote(ctx, key, "chan-1", now)
		assert.ErrorIs(t, err, ErrRoomRowMissing)
	})

	t.Run("delete if creating spares active rooms", func(t *testing.T) {
		testDB.Reset(t)

		require.NoError(t, repo.UpsertCreating(ctx, key, models.GameGuess, now))
		require.NoError(t, repo.Promote(ctx, key, "chan-1", now))
		require.NoError(t, repo.DeleteIfCreating(ctx, key))

		room, err := repo.Get(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, room)

		require.NoError(t, repo.UpsertCreating(ctx, key, models.GameGuess, now))
		require.NoError(t, repo.DeleteIfCreating(ctx, key))

		room, err = repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, room)
	})

	t.Run("touch updates activity", func(t *testing.T) {
		testDB.Reset(t)

		require.NoError(t, repo.UpsertCreating(ctx, key, models.GameGuess, now))
		require.NoError(t, repo.Promote(ctx, key, "chan-1", now))
		later := now.Add(45 * time.Second)
		touched, err := repo.Touch(ctx, key, "chan-1", later)
		require.NoError(t, err)
		assert.True(t, touched)

		room, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.WithinDuration(t, later, room.LastActiveAt, time.Millisecond)

		// a replaced room is not touched through its old channel
		touched, err = repo.Touch(ctx, key, "chan-old", later.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, touched)
	})

	t.Run("delete and list active", func(t *testing.T) {
		testDB.Reset(t)

		other := models.RoomKey{CommunityID: "guild-1", UserID: "user-2"}
		pending := models.RoomKey{CommunityID: "guild-2", UserID: "user-1"}
		require.NoError(t, repo.UpsertCreating(ctx, key, models.GameGuess, now))
		require.NoError(t, repo.Promote(ctx, key, "chan-1", now))
		require.NoError(t, repo.UpsertCreating(ctx, other, models.GameCounting, now.Add(time.Second)))
		require.NoError(t, repo.Promote(ctx, other, "chan-2", now.Add(time.Second)))
		require.NoError(t, repo.UpsertCreating(ctx, pending, models.GameGuess, now))

		rooms, err := repo.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, rooms, 2)
		assert.Equal(t, "chan-1", rooms[0].ChannelRef)
		assert.Equal(t, "chan-2", rooms[1].ChannelRef)

		deleted, err := repo.Delete(ctx, key, "chan-old")
		require.NoError(t, err)
		assert.False(t, deleted, "a stale channel must not delete the current room")

		deleted, err = repo.Delete(ctx, key, "chan-1")
		require.NoError(t, err)
		assert.True(t, deleted)
		rooms, err = repo.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, rooms, 1)
		assert.Equal(t, other, rooms[0].Key())
	})
}
