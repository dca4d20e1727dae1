package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accountstore "roster/internal/account/store"
	jwttoken "roster/internal/jwt_token"
	"roster/internal/platform/config"
	redisclient "roster/internal/platform/redis"
	"roster/internal/sync/checkpoint"
	"roster/internal/sync/coordinator"
	"roster/internal/sync/feed"
	synchandler "roster/internal/sync/handler"
	"roster/internal/sync/metrics"
	"roster/internal/sync/resolver"
	"roster/internal/sync/upsert"
	"roster/pkg/platform/audit"
	auditkafka "roster/pkg/platform/audit/kafka"
	"roster/pkg/platform/audit/publisher"
	auditmemory "roster/pkg/platform/audit/store/memory"
	"roster/pkg/platform/httputil"
	authmw "roster/pkg/platform/middleware/auth"
	request "roster/pkg/platform/middleware/request"
	"roster/pkg/platform/secrets"
)

const auditBufferSize = 1024

type accountRepository interface {
	resolver.AccountFinder
	upsert.AccountStore
	synchandler.AccountLister
}

type healthCheck func(ctx context.Context) error

type application struct {
	router  http.Handler
	closers []func()
	checks  map[string]healthCheck
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// build assembles the sync engine. Postgres, Redis and Kafka are optional;
// each falls back to an in-process implementation when unconfigured.
func build(ctx context.Context, cfg config.Server, log *slog.Logger) (*application, error) {
	app := &application{checks: map[string]healthCheck{}}
	fail := func(err error) (*application, error) {
		app.close()
		return nil, err
	}

	accounts, err := buildAccountStore(ctx, cfg, log, app)
	if err != nil {
		return fail(err)
	}
	checkpoints, err := buildCheckpoints(ctx, cfg, log, app)
	if err != nil {
		return fail(err)
	}
	auditStore, err := buildAuditStore(ctx, cfg, log, app)
	if err != nil {
		return fail(err)
	}
	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
	)
	app.closers = append(app.closers, auditPublisher.Close)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	syncMetrics := metrics.New(registry)

	feedClient := feed.New(cfg.Feed.BaseURL, cfg.Feed.Token, cfg.Feed.PageSize, cfg.Feed.Timeout, feed.WithLogger(log))

	engine, err := upsert.New(accounts, secrets.NewHasher(0),
		upsert.WithLogger(log),
		upsert.WithAuditPublisher(auditPublisher),
		upsert.WithMetrics(syncMetrics),
	)
	if err != nil {
		return fail(err)
	}

	var delay coordinator.DelayPolicy = coordinator.NoDelay{}
	if cfg.Sync.PageDelay > 0 {
		delay = coordinator.FixedDelay(cfg.Sync.PageDelay)
	}
	coord, err := coordinator.New(feedClient, resolver.New(accounts), engine,
		coordinator.WithLogger(log),
		coordinator.WithMetrics(syncMetrics),
		coordinator.WithAuditPublisher(auditPublisher),
		coordinator.WithCheckpoints(checkpoints),
		coordinator.WithDelay(delay),
		coordinator.WithWorkers(cfg.Sync.Workers),
		coordinator.WithMaxPages(cfg.Sync.MaxPages),
	)
	if err != nil {
		return fail(err)
	}

	handler := synchandler.New(coord, cfg.Sync, accounts, cfg.Feed.Validate, log)
	validator := jwttoken.NewJWTServiceAdapter(
		jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience),
	)

	app.router = newRouter(log, handler, validator, registry, app.checks)
	return app, nil
}

func newRouter(log *slog.Logger, handler *synchandler.Handler, validator authmw.TokenValidator, registry *prometheus.Registry, checks map[string]healthCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Logger(log))
	r.Use(request.Recovery(log))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		status, body := http.StatusOK, map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.WarnContext(ctx, "health check failed", "dependency", name, "error", err)
				status, body["status"], body[name] = http.StatusServiceUnavailable, "degraded", "unavailable"
			}
		}
		httputil.WriteJSON(w, status, body)
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(validator, log))
		r.Use(authmw.RequireRole(log, synchandler.PrivilegedRoles...))
		handler.Register(r)
	})
	return r
}

func buildAccountStore(ctx context.Context, cfg config.Server, log *slog.Logger, app *application) (accountRepository, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, accounts are kept in memory")
		return accountstore.NewInMemory(), nil
	}

	db, err := sql.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.closers = append(app.closers, func() { _ = db.Close() })
	app.checks["postgres"] = db.PingContext
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	pg := accountstore.NewPostgres(db)
	if err := pg.Migrate(ctx); err != nil {
		return nil, err
	}
	log.Info("account store ready", "backend", "postgres", "driver", cfg.DatabaseDriver)
	return pg, nil
}

func buildCheckpoints(ctx context.Context, cfg config.Server, log *slog.Logger, app *application) (checkpoint.Store, error) {
	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc == nil {
		log.Warn("REDIS_URL not set, resume checkpoints do not survive restarts")
		return checkpoint.NewInMemory(checkpoint.DefaultTTL), nil
	}
	app.closers = append(app.closers, func() { _ = rc.Close() })
	app.checks["redis"] = rc.Health
	log.Info("checkpoint store ready", "backend", "redis")
	return checkpoint.NewRedis(rc.Client, checkpoint.DefaultTTL), nil
}

func buildAuditStore(ctx context.Context, cfg config.Server, log *slog.Logger, app *application) (audit.Store, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("KAFKA_BROKERS not set, audit events stay in memory")
		return auditmemory.NewInMemoryStore(), nil
	}

	sink, err := auditkafka.New(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, auditkafka.WithLogger(log))
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sink.Close(closeCtx)
	})
	if err := sink.EnsureTopic(ctx, 1, 1); err != nil {
		return nil, err
	}
	log.Info("audit sink ready", "backend", "kafka", "topic", cfg.Kafka.AuditTopic)
	return sink, nil
}
