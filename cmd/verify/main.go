package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/common-server/server-bootstrap/internal/audit"
	"github.com/common-server/server-bootstrap/internal/bootstrap"
	"github.com/common-server/server-bootstrap/internal/chat"
	"github.com/common-server/server-bootstrap/internal/config"
	"github.com/common-server/server-bootstrap/internal/database"
	"github.com/common-server/server-bootstrap/pkg/logger"
)

// verify checks a live instance against the bootstrap plan without changing
// it. Exit status is 1 when anything drifted or a query failed.
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		return 1
	}

	ctx := context.Background()
	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		logger.Errorf("could not connect to MongoDB: %v", err)
		return 1
	}
	defer func() { _ = database.Disconnect(client, 5*time.Second) }()

	plan := cfg.Plan()
	db := client.Database(plan.Database)

	drift, err := bootstrap.Verify(ctx, bootstrap.NewMongoAdmin(client), plan)
	if err != nil {
		logger.Errorf("verification failed: %v", err)
		return 1
	}
	for _, d := range drift {
		fmt.Println(d)
	}
	if len(drift) > 0 {
		return 1
	}

	if err := chat.Check(ctx, chat.NewMongoRepository(db)); err != nil {
		logger.Errorf("chat queries failed: %v", err)
		return 1
	}
	lastRun(ctx, audit.NewMongoRepository(db))

	logger.Infof("database %s matches the bootstrap plan (%d collections, %d indexes)", plan.Database, len(plan.Collections), plan.IndexCount())
	return 0
}

// lastRun logs the most recent bootstrap audit entry, if any.
func lastRun(ctx context.Context, r audit.Repository) {
	entries, err := r.ListByAction(ctx, bootstrap.AuditAction, 1)
	if err != nil {
		logger.Warnf("could not read audit log: %v", err)
		return
	}
	if len(entries) == 0 {
		logger.Infof("no bootstrap run recorded in the audit log")
		return
	}
	e := entries[0]
	logger.Infof("last bootstrap at %s: %s (%s)", e.Timestamp.Format(time.RFC3339), e.Outcome, e.Description)
}
