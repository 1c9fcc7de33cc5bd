package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/common-server/server-bootstrap/internal/models"
)

func seed(t *testing.T, r Repository, room string, n int, base time.Time) {
	for i := 0; i < n; i++ {
		m := &models.ChatMessage{
			RoomID:    room,
			SenderID:  fmt.Sprintf("user-%d", i%3),
			Content:   fmt.Sprintf("msg %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, r.Save(context.Background(), m))
		require.False(t, m.ID.IsZero())
	}
}

func TestMemoryRepository_RoomTimeline(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(t, r, "room-1", 60, base)
	seed(t, r, "room-2", 5, base)

	p, err := r.FindByRoom(ctx, "room-1", 0, 10)
	require.NoError(t, err)
	require.Equal(t, int64(60), p.Total)
	require.Len(t, p.Items, 10)
	require.Equal(t, "msg 59", p.Items[0].Content)

	last, err := r.FindByRoom(ctx, "room-1", 5, 10)
	require.NoError(t, err)
	require.Len(t, last.Items, 10)
	require.Equal(t, "msg 0", last.Items[9].Content)

	beyond, err := r.FindByRoom(ctx, "room-1", 9, 10)
	require.NoError(t, err)
	require.Empty(t, beyond.Items)

	recent, err := r.RecentByRoom(ctx, "room-1")
	require.NoError(t, err)
	require.Len(t, recent, RecentLimit)

	after, err := r.FindByRoomAfter(ctx, "room-1", base.Add(57*time.Minute))
	require.NoError(t, err)
	require.Len(t, after, 2)
	require.Equal(t, "msg 58", after[0].Content)

	n, err := r.CountByRoom(ctx, "room-2")
	require.NoError(t, err)
	require.Equal(t, int64(5), n)
}

func TestMemoryRepository_SenderAndDelete(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	seed(t, r, "room-1", 9, time.Now().UTC())

	mine, err := r.FindBySender(ctx, "user-0", 2)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, "msg 6", mine[0].Content)

	n, err := r.DeleteByRoom(ctx, "room-1")
	require.NoError(t, err)
	require.Equal(t, int64(9), n)
	left, err := r.CountByRoom(ctx, "room-1")
	require.NoError(t, err)
	require.Zero(t, left)
}

func TestSave_Validates(t *testing.T) {
	r := NewMemoryRepository()
	err := r.Save(context.Background(), &models.ChatMessage{RoomID: "room-1"})
	require.ErrorIs(t, err, ErrInvalidMessage)

	m := &models.ChatMessage{RoomID: "room-1", SenderID: "u"}
	require.NoError(t, r.Save(context.Background(), m))
	require.Equal(t, models.MessageText, m.Type)
	require.False(t, m.CreatedAt.IsZero())
}
