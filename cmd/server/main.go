package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"payguard/internal/approval"
	approvalhandler "payguard/internal/approval/handler"
	approvalmetrics "payguard/internal/approval/metrics"
	"payguard/internal/audit"
	"payguard/internal/execution"
	"payguard/internal/platform/config"
	"payguard/internal/platform/httpserver"
	"payguard/internal/platform/logger"
	platformmetrics "payguard/internal/platform/metrics"
	platformpostgres "payguard/internal/platform/postgres"
	platformredis "payguard/internal/platform/redis"
	"payguard/internal/policy"
	policyhandler "payguard/internal/policy/handler"
	httptransport "payguard/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages; everything here is assembly.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when a DSN is configured, in-memory otherwise. The
	// in-memory mode exists for local development and tests only.
	var (
		entityStore approval.EntityStore
		auditStore  audit.Store
		policyStore policy.Store
		outboxStore execution.OutboxStore
		txRunner    approval.StoreTx
		checkers    = map[string]httptransport.HealthChecker{}
	)

	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("pgx", cfg.Postgres.DSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := platformpostgres.EnsureSchema(ctx, db); err != nil {
			log.Error("apply schema", "error", err)
			os.Exit(1)
		}

		entityStore = approval.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
		policyStore = policy.NewPostgresStore(db)
		outboxStore = execution.NewPostgresOutbox(db)
		txRunner = newPostgresTx(db)
		checkers["postgres"] = pingChecker{db}
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		entityStore = approval.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		memPolicies := policy.NewInMemoryStore()
		seeded := policy.SeedBootstrapPolicy(memPolicies)
		log.Info("seeded bootstrap policy", "org_id", seeded.OrgID, "currency", seeded.Currency)
		policyStore = memPolicies
		outboxStore = execution.NewInMemoryOutbox()
		txRunner = approval.NewNoopTx()
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	var dedupe execution.Dedupe = execution.NoopDedupe{}
	if redisClient != nil {
		defer redisClient.Close()
		dedupe = execution.NewRedisDedupe(redisClient.Client, 24*time.Hour)
		checkers["redis"] = redisClient
	}

	var publisher execution.Publisher = logPublisher{log}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := execution.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()
		publisher = kafka
	} else {
		log.Warn("no kafka brokers configured, execution signals will only be logged")
	}

	recorder := audit.NewRecorder(auditStore)
	resolver := policy.NewResolver(policyStore, log)
	service := approval.NewService(
		entityStore,
		recorder,
		resolver,
		outboxStore,
		txRunner,
		approvalmetrics.New(),
		log,
	)
	worker := execution.NewWorker(outboxStore, publisher, dedupe, cfg.Execution, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Approval:      approvalhandler.New(service, log),
		Policy:        policyhandler.New(policyStore, resolver, recorder, txRunner, log),
		JWTSigningKey: []byte(cfg.Server.JWTSigningKey),
		Logger:        log,
		HTTPMetrics:   platformmetrics.NewHTTP(),
		Checkers:      checkers,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting payguard", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

type pingChecker struct {
	db *sql.DB
}

func (c pingChecker) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// logPublisher stands in when kafka is not configured; signals are still
// drained from the outbox so local runs behave like production.
type logPublisher struct {
	log *slog.Logger
}

func (p logPublisher) Publish(_ context.Context, signal execution.Signal) error {
	p.log.Info("execution signal (log sink)",
		"entity_id", signal.EntityID,
		"resulting_status", signal.ResultingStatus,
	)
	return nil
}
