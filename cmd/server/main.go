package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"depositgate/internal/audit"
	credmetrics "depositgate/internal/credential/metrics"
	credsvc "depositgate/internal/credential/service"
	credstore "depositgate/internal/credential/store"
	"depositgate/internal/crm"
	"depositgate/internal/platform/config"
	"depositgate/internal/platform/httpserver"
	"depositgate/internal/platform/logger"
	"depositgate/internal/platform/postgres"
	platformredis "depositgate/internal/platform/redis"
	"depositgate/internal/platform/token"
	regmetrics "depositgate/internal/registration/metrics"
	regsvc "depositgate/internal/registration/service"
	regstore "depositgate/internal/registration/store"
	"depositgate/internal/scheme"
	"depositgate/internal/scheme/dps"
	"depositgate/internal/scheme/mydeposits"
	"depositgate/internal/scheme/tds"
	"depositgate/internal/tenancy"
	httptransport "depositgate/internal/transport/http"
	"depositgate/internal/verifycache"
	"depositgate/pkg/secrets"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services packages.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	db, err := postgres.Open(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err := postgres.Migrate(db); err != nil {
		return err
	}

	checks := map[string]httptransport.HealthChecker{
		"postgres": dbHealth{db: db},
	}

	var verifyCache credsvc.VerifyCache
	if cfg.Redis.URL != "" {
		redisClient, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()
		verifyCache = verifycache.New(redisClient, cfg.Redis.VerifyTTL)
		checks["redis"] = redisClient
	}

	cipher, err := secrets.NewCipher(cfg.SecretKey)
	if err != nil {
		return err
	}

	schemes, err := scheme.NewRegistry(
		dps.New(cfg.Schemes.DPSBaseURL),
		mydeposits.New(cfg.Schemes.MyDepositsBaseURL),
		tds.New(cfg.Schemes.TDSBaseURL),
	)
	if err != nil {
		return err
	}
	crms, err := crm.NewRegistry(
		crm.NewPropertyFile(cfg.CRMs.PropertyFileBaseURL, schemes),
		crm.NewFixflo(cfg.CRMs.FixfloBaseURL, schemes),
		crm.NewReapit(cfg.CRMs.ReapitBaseURL, schemes),
		crm.NewJupix(cfg.CRMs.JupixBaseURL, schemes),
	)
	if err != nil {
		return err
	}

	auditStore := audit.NewInMemory()
	auditOpts := []audit.PublisherOption{audit.WithLogger(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer sink.Close()

		inbox := make(chan audit.Event, 256)
		worker := audit.NewWorker(sink, inbox, log)
		go func() { _ = worker.Run(ctx) }()
		auditOpts = append(auditOpts, audit.WithInbox(inbox))
	}
	auditPublisher := audit.NewPublisher(auditStore, auditOpts...)

	registrations := regstore.NewPostgres(db)
	credentials := credstore.NewPostgres(db)

	credService := credsvc.New(credentials, schemes, cipher,
		credsvc.WithLogger(log),
		credsvc.WithMetrics(credmetrics.New()),
		credsvc.WithRegistrationGuard(registrations),
		credsvc.WithVerifyCache(verifyCache),
		credsvc.WithAudit(auditPublisher),
	)

	engine := regsvc.New(registrations, credService, schemes, crms,
		tenancy.NewClient(cfg.TenancyBaseURL),
		regsvc.WithLogger(log),
		regsvc.WithMetrics(regmetrics.New()),
		regsvc.WithSchemeTimeout(cfg.Schemes.CallTimeout),
		regsvc.WithAudit(auditPublisher),
	)

	validator := token.NewValidator(cfg.JWTSigningKey)
	router := httptransport.NewRouter(
		httptransport.NewCredentialHandler(credService, log, validator),
		httptransport.NewRegistrationHandler(engine, log, validator),
		checks,
	)

	srv := httpserver.New(cfg.Server, router, log)
	return srv.Run(ctx)
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}
