package audit

import (
	"context"
	"strings"
	"time"

	"github.com/common-server/server-bootstrap/internal/models"
)

const (
	masked       = "[MASKED]"
	maxArgLength = 100
)

var sensitive = []string{"password", "secret", "token"}

// Repository persists audit entries. Queries follow the audit_logs
// indexes: timestamp desc, (userId, timestamp desc) and action.
type Repository interface {
	Record(ctx context.Context, e *models.AuditLog) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit int64) ([]models.AuditLog, error)
	Recent(ctx context.Context, limit int64) ([]models.AuditLog, error)
}

// SanitizeArgs masks arguments that mention credentials and truncates long
// values.
func SanitizeArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	out := make([]string, len(args))
	for i, a := range args {
		lower := strings.ToLower(a)
		hit := false
		for _, s := range sensitive {
			if strings.Contains(lower, s) {
				hit = true
				break
			}
		}
		switch {
		case hit:
			out[i] = masked
		case len(a) > maxArgLength:
			out[i] = a[:maxArgLength] + "..."
		default:
			out[i] = a
		}
	}
	return out
}

func prepare(e *models.AuditLog) {
	now := time.Now().UTC()
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	e.CreatedAt = now
	if e.UserID == "" {
		e.UserID = "anonymous"
	}
	if e.Outcome == "" {
		e.Outcome = models.OutcomeSuccess
	}
	e.Args = SanitizeArgs(e.Args)
}
