package persistence

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prgrms-web-devcourse-final-project/WEB1-2-PitchingMate-BE-sub000/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestGormStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	store, err := NewGormStoreWithDB(db)
	require.NoError(t, err)
	return store
}

func appendTestMessage(t *testing.T, store *GormStore, roomID uint, n int, sentAt time.Time) *types.Message {
	t.Helper()
	msg := &types.Message{
		ID:       fmt.Sprintf("msg-%d-%d", roomID, n),
		RoomID:   roomID,
		SenderID: 1,
		Content:  fmt.Sprintf("message %d", n),
		Type:     types.MessageTypeTalk,
		SentAt:   sentAt,
	}
	require.NoError(t, store.AppendMessage(msg))
	return msg
}

func TestGormRoomRoundTrip(t *testing.T) {
	store := newTestGormStore(t)

	room := &types.Room{
		PostID:             7,
		Variant:            types.VariantMate,
		AuthorID:           100,
		State:              types.RoomWaiting,
		CurrentMemberCount: 1,
		Tags:               types.JSONStringMap{"post_title": "doors open 17:00"},
	}
	require.NoError(t, store.SaveRoom(room))
	require.NotZero(t, room.ID)

	got, err := store.GetRoom(room.ID)
	require.NoError(t, err)
	assert.Equal(t, types.RoomWaiting, got.State)
	assert.Equal(t, "doors open 17:00", got.Tags["post_title"])
	assert.False(t, got.AuthorLeft)

	// the author-departure flag is part of the persisted row
	room.AuthorLeft = true
	room.State = types.RoomAuthorLeft
	require.NoError(t, store.SaveRoom(room))
	got, err = store.GetRoom(room.ID)
	require.NoError(t, err)
	assert.True(t, got.AuthorLeft)

	got, err = store.GetRoomByPost(types.VariantMate, 7)
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)

	// the same post id under the other variant is a different room
	_, err = store.GetRoomByPost(types.VariantGoods, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetRoom(9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormMemberships(t *testing.T) {
	store := newTestGormStore(t)
	now := time.Date(2024, 11, 20, 19, 0, 0, 0, time.UTC)

	for i := uint(1); i <= 3; i++ {
		require.NoError(t, store.SaveMembership(&types.Membership{
			RoomID: 1, MemberID: i, IsActive: true, HasEnteredBefore: true, LastEnteredAt: now,
		}))
	}

	count, err := store.CountActiveMemberships(1)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	m, err := store.GetMembership(1, 2)
	require.NoError(t, err)
	m.IsActive = false
	require.NoError(t, store.SaveMembership(m))

	count, err = store.CountActiveMemberships(1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	active, err := store.ActiveMemberships(1)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	_, err = store.GetMembership(1, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormMessageHistory(t *testing.T) {
	store := newTestGormStore(t)
	base := time.Date(2024, 11, 20, 19, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		appendTestMessage(t, store, 1, i, base.Add(time.Duration(i)*time.Minute))
	}
	// another room's log must not leak in
	appendTestMessage(t, store, 2, 99, base.Add(time.Hour))

	t.Run("latest page descending", func(t *testing.T) {
		page, err := store.MessageHistory(1, time.Time{}, time.Time{}, 3)
		require.NoError(t, err)
		require.Len(t, page, 3)
		assert.Equal(t, "message 5", page[0].Content)
		assert.Equal(t, "message 3", page[2].Content)
	})

	t.Run("cursor is exclusive", func(t *testing.T) {
		page, err := store.MessageHistory(1, time.Time{}, base.Add(3*time.Minute), 10)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "message 2", page[0].Content)
		assert.Equal(t, "message 1", page[1].Content)
	})

	t.Run("visibility cutoff is exclusive", func(t *testing.T) {
		page, err := store.MessageHistory(1, base.Add(3*time.Minute), time.Time{}, 10)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "message 5", page[0].Content)
		assert.Equal(t, "message 4", page[1].Content)
	})

	t.Run("latest message", func(t *testing.T) {
		latest, err := store.LatestMessage(1)
		require.NoError(t, err)
		assert.Equal(t, "message 5", latest.Content)

		_, err = store.LatestMessage(42)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGormRoomsByMember(t *testing.T) {
	store := newTestGormStore(t)
	now := time.Date(2024, 11, 20, 19, 0, 0, 0, time.UTC)

	for i := uint(1); i <= 3; i++ {
		room := &types.Room{PostID: i, Variant: types.VariantMate, AuthorID: 100, State: types.RoomActive}
		require.NoError(t, store.SaveRoom(room))
		require.NoError(t, store.SaveMembership(&types.Membership{
			RoomID: room.ID, MemberID: 7, IsActive: i != 2, HasEnteredBefore: true, LastEnteredAt: now,
		}))
	}

	// only rooms with a currently active membership show up
	rooms, err := store.RoomsByMember(7, 0, 10)
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	rooms, err = store.RoomsByMember(7, 0, 1)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
	rooms, err = store.RoomsByMember(7, 1, 1)
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
	rooms, err = store.RoomsByMember(7, 2, 1)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}
