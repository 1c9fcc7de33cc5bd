package chat

import (
	"context"
	"errors"
	"time"

	"github.com/common-server/server-bootstrap/internal/models"
)

const (
	// RecentLimit is the number of messages returned by RecentByRoom.
	RecentLimit = 50
	maxPageSize = 200
)

var ErrInvalidMessage = errors.New("message needs a room and a sender")

// Page is one page of a room's history, newest first.
type Page struct {
	Items []models.ChatMessage `json:"items"`
	Page  int64                `json:"page"`
	Size  int64                `json:"size"`
	Total int64                `json:"total"`
}

// Repository stores chat messages. Every query is backed by one of the
// chat_messages indexes: (roomId, createdAt desc) for room timelines and
// senderId for per-user lookups.
type Repository interface {
	Save(ctx context.Context, m *models.ChatMessage) error
	FindByRoom(ctx context.Context, roomID string, page, size int64) (*Page, error)
	RecentByRoom(ctx context.Context, roomID string) ([]models.ChatMessage, error)
	FindByRoomAfter(ctx context.Context, roomID string, after time.Time) ([]models.ChatMessage, error)
	FindBySender(ctx context.Context, senderID string, limit int64) ([]models.ChatMessage, error)
	CountByRoom(ctx context.Context, roomID string) (int64, error)
	DeleteByRoom(ctx context.Context, roomID string) (int64, error)
}

// prepare validates a message and stamps its timestamps.
func prepare(m *models.ChatMessage) error {
	if m.RoomID == "" || m.SenderID == "" {
		return ErrInvalidMessage
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	if m.Type == "" {
		m.Type = models.MessageText
	}
	return nil
}

func normalizePage(page, size int64) (int64, int64) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
