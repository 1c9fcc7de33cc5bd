package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/common-server/server-bootstrap/internal/models"
)

// MemoryRepository is an in-process Repository with the same ordering
// rules as the Mongo implementation.
type MemoryRepository struct {
	mu    sync.RWMutex
	store []models.ChatMessage
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Save(ctx context.Context, m *models.ChatMessage) error {
	if err := prepare(m); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	r.store = append(r.store, *m)
	return nil
}

// selectSorted returns matching messages ordered by createdAt.
func (r *MemoryRepository) selectSorted(match func(models.ChatMessage) bool, newestFirst bool) []models.ChatMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.ChatMessage{}
	for _, m := range r.store {
		if match(m) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func inRoom(roomID string) func(models.ChatMessage) bool {
	return func(m models.ChatMessage) bool { return m.RoomID == roomID }
}

func (r *MemoryRepository) FindByRoom(ctx context.Context, roomID string, page, size int64) (*Page, error) {
	page, size = normalizePage(page, size)
	all := r.selectSorted(inRoom(roomID), true)
	total := int64(len(all))
	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return &Page{Items: all[start:end], Page: page, Size: size, Total: total}, nil
}

func (r *MemoryRepository) RecentByRoom(ctx context.Context, roomID string) ([]models.ChatMessage, error) {
	all := r.selectSorted(inRoom(roomID), true)
	if len(all) > RecentLimit {
		all = all[:RecentLimit]
	}
	return all, nil
}

func (r *MemoryRepository) FindByRoomAfter(ctx context.Context, roomID string, after time.Time) ([]models.ChatMessage, error) {
	return r.selectSorted(func(m models.ChatMessage) bool {
		return m.RoomID == roomID && m.CreatedAt.After(after)
	}, false), nil
}

func (r *MemoryRepository) FindBySender(ctx context.Context, senderID string, limit int64) ([]models.ChatMessage, error) {
	all := r.selectSorted(func(m models.ChatMessage) bool { return m.SenderID == senderID }, true)
	if limit > 0 && int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepository) CountByRoom(ctx context.Context, roomID string) (int64, error) {
	return int64(len(r.selectSorted(inRoom(roomID), true))), nil
}

func (r *MemoryRepository) DeleteByRoom(ctx context.Context, roomID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.store[:0]
	var n int64
	for _, m := range r.store {
		if m.RoomID == roomID {
			n++
			continue
		}
		kept = append(kept, m)
	}
	r.store = kept
	return n, nil
}

var _ Repository = (*MemoryRepository)(nil)
