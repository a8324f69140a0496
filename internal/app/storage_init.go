package app

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/inventory-sync/internal/health"
	"github.com/vladislavdragonenkov/inventory-sync/internal/storage/memory"
	"github.com/vladislavdragonenkov/inventory-sync/internal/storage/postgres"
)

// runtimeDependencies: хранилища, выбранные по StorageDriver.
type runtimeDependencies struct {
	products  domain.ProductRepository
	inventory domain.InventoryStore
	cronJobs  domain.CronJobRepository

	// Чтение инвентаря для /api/v1/products.
	productLookup   domain.ProductLookup
	inventoryReader domain.InventoryReader

	// storageChecker: nil для памяти.
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	if d == nil || d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
		return
	}
	logger.Info("storage closed")
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case "", StorageDriverMemory:
		logger.Warn("using in-memory storage: inventory is lost on restart")
		products := memory.NewProductRepository()
		inventory := memory.NewInventoryStore()
		return &runtimeDependencies{
			products:        products,
			inventory:       inventory,
			cronJobs:        memory.NewCronJobRepository(),
			productLookup:   products,
			inventoryReader: inventory,
		}, nil
	case StorageDriverPostgres:
		return initPostgresDependencies(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initPostgresDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	dsn := strings.TrimSpace(cfg.PostgresDSN)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required for %s storage driver", StorageDriverPostgres)
	}

	store, err := postgres.OpenWithRetry(ctx, dsn, postgres.DefaultConnectAttempts, postgres.DefaultConnectRetryDelay, logger)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply postgres migrations: %w", err)
		}
		logger.Info("postgres schema is up to date")
	}

	products := postgres.NewProductRepository(store)
	inventory := postgres.NewInventoryStore(store)
	return &runtimeDependencies{
		products:        products,
		inventory:       inventory,
		cronJobs:        postgres.NewCronJobRepository(store),
		productLookup:   products,
		inventoryReader: inventory,
		storageChecker:  healthcheck.NewPingChecker("postgres", store.Ping),
		closeFn:         store.Close,
	}, nil
}

// warnIfCatalogEmpty предупреждает, что синхронизировать нечего.
// Движок не создаёт продукты: каталог наполняется через хранилище.
func warnIfCatalogEmpty(ctx context.Context, products domain.ProductRepository, logger *log.Entry) int {
	list, err := products.ListForSync(ctx)
	if err != nil {
		logger.WithError(err).Warn("failed to inspect product catalog")
		return 0
	}
	if len(list) == 0 {
		logger.Warn("product catalog is empty: sync cycles will not fetch anything until products are added")
	}
	return len(list)
}
