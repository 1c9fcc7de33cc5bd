package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/common-server/server-bootstrap/internal/audit"
	"github.com/common-server/server-bootstrap/internal/bootstrap"
	"github.com/common-server/server-bootstrap/internal/models"
)

func TestRun_ExitCodeOnConfigError(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	require.Equal(t, 1, run())
}

func TestLastRun(t *testing.T) {
	ctx := context.Background()
	r := audit.NewMemoryRepository()
	require.NotPanics(t, func() { lastRun(ctx, r) })

	require.NoError(t, r.Record(ctx, &models.AuditLog{
		UserID:    "server-bootstrap",
		Action:    bootstrap.AuditAction,
		Outcome:   models.OutcomeSuccess,
		Timestamp: time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC),
	}))
	require.NotPanics(t, func() { lastRun(ctx, r) })
}
