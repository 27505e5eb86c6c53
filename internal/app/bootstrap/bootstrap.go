package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	treasuryservice "modelmart/contexts/finance-core/treasury-service"
	treasurypostgres "modelmart/contexts/finance-core/treasury-service/adapters/postgres"
	treasuryapp "modelmart/contexts/finance-core/treasury-service/application"
	treasuryerrors "modelmart/contexts/finance-core/treasury-service/domain/errors"
	treasuryports "modelmart/contexts/finance-core/treasury-service/ports"
	modelexchangeservice "modelmart/contexts/marketplace-core/model-exchange-service"
	exchangepostgres "modelmart/contexts/marketplace-core/model-exchange-service/adapters/postgres"
	workerapp "modelmart/contexts/marketplace-core/model-exchange-service/application/workers"
	"modelmart/contexts/marketplace-core/model-exchange-service/domain/entities"
	exchangeerrors "modelmart/contexts/marketplace-core/model-exchange-service/domain/errors"
	"modelmart/internal/platform/config"
	"modelmart/internal/platform/db"
	"modelmart/internal/platform/httpserver"
	"modelmart/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	outboxRelay  workerapp.OutboxRelay
	relayEnabled bool
	pollInterval time.Duration
	logger       *slog.Logger
}

// treasuryLedger settles fee-split legs against treasury balances.
// The exchange module only sees the Ledger port, never the treasury service.
type treasuryLedger struct {
	service treasuryapp.Service
}

func (l treasuryLedger) Transfer(
	ctx context.Context,
	kind entities.PaymentKind,
	from string,
	to string,
	amount uint64,
) error {
	err := l.service.Transfer(ctx, treasuryports.Kind(kind), from, to, amount)
	if err == nil {
		return nil
	}
	if errors.Is(err, treasuryerrors.ErrInsufficientFunds) {
		return fmt.Errorf("%w: %s", exchangeerrors.ErrLedgerRejected, err.Error())
	}
	return err
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	if err := treasurypostgres.Migrate(pg.DB); err != nil {
		return nil, err
	}
	if err := exchangepostgres.Migrate(pg.DB); err != nil {
		return nil, err
	}

	treasuryRepo := treasurypostgres.NewRepository(pg.DB, logger)
	treasuryModule := treasuryservice.NewModule(treasuryservice.Dependencies{
		Repository: treasuryRepo,
		Logger:     logger,
	})

	exchangeRepo := exchangepostgres.NewRepository(pg.DB, logger)
	exchangeModule := modelexchangeservice.NewModule(modelexchangeservice.Dependencies{
		Marketplace:                     exchangeRepo,
		Assets:                          exchangeRepo,
		Entitlements:                    exchangeRepo,
		Usage:                           exchangeRepo,
		Ledger:                          treasuryLedger{service: treasuryModule.Service},
		Outbox:                          exchangeRepo,
		Clock:                           exchangepostgres.SystemClock{},
		IDGenerator:                     exchangepostgres.UUIDGenerator{},
		DisableMarketplaceEventEmission: !cfg.EnableMarketplaceEventEmission,
		Logger:                          logger,
	})

	server := httpserver.New(exchangeModule, treasuryModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	repo := exchangepostgres.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     exchangepostgres.SystemClock{},
			Topic:     "marketplace.events",
			BatchSize: 100,
			Logger:    logger,
		},
		relayEnabled: cfg.EnableOutboxRelay,
		pollInterval: 2 * time.Second,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"relay_enabled", w.relayEnabled,
	)

	if !w.relayEnabled {
		<-ctx.Done()
		return nil
	}

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
