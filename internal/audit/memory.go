package audit

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/common-server/server-bootstrap/internal/models"
)

// MemoryRepository keeps audit entries in process; used by tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []models.AuditLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Record(ctx context.Context, e *models.AuditLog) error {
	prepare(e)
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string, limit int64) ([]models.AuditLog, error) {
	return r.list(func(e models.AuditLog) bool { return e.UserID == userID }, limit), nil
}

func (r *MemoryRepository) ListByAction(ctx context.Context, action string, limit int64) ([]models.AuditLog, error) {
	return r.list(func(e models.AuditLog) bool { return e.Action == action }, limit), nil
}

func (r *MemoryRepository) Recent(ctx context.Context, limit int64) ([]models.AuditLog, error) {
	return r.list(func(models.AuditLog) bool { return true }, limit), nil
}

func (r *MemoryRepository) list(match func(models.AuditLog) bool, limit int64) []models.AuditLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []models.AuditLog{}
	for _, e := range r.entries {
		if match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out
}

var _ Repository = (*MemoryRepository)(nil)
