package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/common-server/server-bootstrap/handlers"
	"github.com/common-server/server-bootstrap/internal/audit"
	"github.com/common-server/server-bootstrap/internal/bootstrap"
	"github.com/common-server/server-bootstrap/internal/config"
	"github.com/common-server/server-bootstrap/internal/database"
	"github.com/common-server/server-bootstrap/internal/lock"
	"github.com/common-server/server-bootstrap/internal/report"
	"github.com/common-server/server-bootstrap/internal/storage"
	"github.com/common-server/server-bootstrap/pkg/logger"
	"github.com/common-server/server-bootstrap/pkg/metrics"
	"github.com/common-server/server-bootstrap/pkg/middleware"
)

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup happens before exit.
func run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		return 1
	}
	logger.Infof("config loaded: database=%s user=%s redis=%v minio=%v status_server=%v",
		cfg.MongoDB.Database, cfg.App.User, cfg.RedisAddr() != "", cfg.MinIO.Endpoint != "", cfg.Server.Enabled)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		logger.Errorf("could not connect to MongoDB: %v", err)
		return 1
	}
	defer func() { _ = database.Disconnect(client, 5*time.Second) }()

	plan := cfg.Plan()
	admin := bootstrap.NewMongoAdmin(client)
	runner := bootstrap.NewRunner(admin,
		bootstrap.WithUserPolicy(bootstrap.UserPolicy(cfg.Bootstrap.ExistingUser)),
		bootstrap.WithAuditRecorder(audit.NewMongoRepository(client.Database(plan.Database))),
	)

	var (
		res   *bootstrap.Result
		drift []bootstrap.Drift
	)
	apply := func(ctx context.Context) error {
		var err error
		res, err = runner.Run(ctx, plan)
		if err != nil {
			return err
		}
		drift, err = bootstrap.Verify(ctx, admin, plan)
		if err != nil {
			return err
		}
		for _, d := range drift {
			logger.Warnf("drift after bootstrap: %s", d)
		}
		return nil
	}

	if addr := cfg.RedisAddr(); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		locker := lock.NewRedisLocker(rdb, "")
		err = locker.WithLock(ctx, cfg.Bootstrap.LockKey, cfg.Bootstrap.LockWait, cfg.Bootstrap.LockLease, apply)
	} else {
		err = apply(ctx)
	}

	rep := report.FromResult(plan.Database, res, err, drift)
	publishReport(ctx, cfg, rep)

	if !cfg.Server.Enabled {
		if !rep.Healthy() {
			logger.Errorf("bootstrap did not complete: status=%s error=%q drift=%d", rep.Status, rep.Error, len(rep.Drift))
			return 1
		}
		return 0
	}

	latest := &report.Latest{}
	latest.Set(rep)
	if err := serveStatus(ctx, cfg, latest); err != nil {
		logger.Errorf("status server failed: %v", err)
		return 1
	}
	return 0
}

// publishReport uploads the report when object storage is configured. Upload
// failures are logged only.
func publishReport(ctx context.Context, cfg *config.Config, rep *report.Report) {
	if cfg.MinIO.Endpoint == "" {
		return
	}
	store, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
	if err != nil {
		logger.Warnf("report not published: %v", err)
		return
	}
	key, err := report.Publish(ctx, store, rep)
	if err != nil {
		logger.Warnf("report not published: %v", err)
		return
	}
	if link, err := store.GetPresignedURL(ctx, key, time.Hour); err == nil {
		logger.Infof("bootstrap report stored at %s (%s)", key, link)
	} else {
		logger.Infof("bootstrap report stored at %s", key)
	}
}

func serveStatus(ctx context.Context, cfg *config.Config, latest *report.Latest) error {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if cfg.Server.RateLimitRPS > 0 {
		r.Use(middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst).Handler())
	}
	handlers.RegisterStatusRoutes(r, latest)
	handlers.RegisterSwagger(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := cfg.ServerAddr()
	logger.Infof("status server listening on %s", addr)
	errc := make(chan error, 1)
	go func() { errc <- r.Run(addr) }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		logger.Infof("shutting down")
		return nil
	}
}
