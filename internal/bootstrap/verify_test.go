package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/common-server/server-bootstrap/internal/schema"
)

func TestVerify_EmptyInstanceReportsEverything(t *testing.T) {
	drift, err := Verify(context.Background(), NewMemoryAdmin(), testPlan())
	require.NoError(t, err)
	// user + 2 collections + 7 indexes
	require.Len(t, drift, 10)
	require.Equal(t, "user server_app: missing", drift[0].String())
	require.Equal(t, "index chat_messages.roomId_1_createdAt_-1: missing", drift[2].String())
}

func TestVerify_RoleAndKeyDrift(t *testing.T) {
	ctx := context.Background()
	admin := NewMemoryAdmin()
	_, err := NewRunner(admin).Run(ctx, testPlan())
	require.NoError(t, err)

	wide := testPlan().User
	wide.Roles = []schema.Role{{Role: "readWrite", DB: "server"}, {Role: "dbAdmin", DB: "server"}}
	require.NoError(t, admin.UpdateUser(ctx, "server", wide))

	drift, err := Verify(ctx, admin, testPlan())
	require.NoError(t, err)
	require.Len(t, drift, 1)
	require.Equal(t, StepUser, drift[0].Kind)
	require.Contains(t, drift[0].Detail, "dbAdmin")
}

func TestVerify_PropagatesAdminErrors(t *testing.T) {
	admin := NewMemoryAdmin()
	admin.FailOn("CollectionNames", errors.New("not authorized"))
	_, err := Verify(context.Background(), admin, testPlan())
	require.Error(t, err)
	require.Contains(t, err.Error(), "not authorized")
}

func TestVerify_MatchesIndexUnderOtherName(t *testing.T) {
	ctx := context.Background()
	admin := NewMemoryAdmin()
	require.NoError(t, admin.CreateCollection(ctx, "server", "audit_logs"))
	expiry := schema.NewTTLIndex("createdAt", schema.AuditLogsTTL)
	expiry.Name = "audit_expiry"
	require.NoError(t, admin.CreateIndex(ctx, "server", "audit_logs", expiry))

	_, err := NewRunner(admin).Run(ctx, testPlan())
	require.NoError(t, err)
	drift, err := Verify(ctx, admin, testPlan())
	require.NoError(t, err)
	require.Empty(t, drift)

	// the alias is compared on TTL like any other index
	require.NoError(t, admin.SetIndexExpiry(ctx, "server", "audit_logs", "audit_expiry", 60))
	drift, err = Verify(ctx, admin, testPlan())
	require.NoError(t, err)
	require.Len(t, drift, 1)
	require.Equal(t, "createdAt_1", drift[0].Name)
	require.Contains(t, drift[0].Detail, "ttl 1m0s")
}
