package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
	"github.com/vladislavdragonenkov/inventory-sync/internal/storage/memory"
)

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverMemory,
	}, log.WithField("test", "memory-storage"))
	if err != nil {
		t.Fatalf("initRuntimeDependencies(memory) failed: %v", err)
	}
	if deps.products == nil || deps.inventory == nil || deps.cronJobs == nil {
		t.Fatalf("memory dependencies must be initialized: %+v", deps)
	}
	if deps.storageChecker != nil {
		t.Fatal("memory storage has no health checker")
	}
	// close без closeFn не должен паниковать
	deps.close(log.WithField("test", "memory-storage"))
}

func TestInitRuntimeDependencies_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverPostgres,
	}, log.WithField("test", "postgres-missing-dsn"))
	if err == nil {
		t.Fatal("expected error when postgres driver is selected without DSN")
	}
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: "sqlite",
	}, log.WithField("test", "unsupported-driver"))
	if err == nil {
		t.Fatal("expected error for unsupported storage driver")
	}
}

func TestWarnIfCatalogEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		products  domain.ProductRepository
		wantCount int
		wantWarn  bool
	}{
		{name: "empty", products: memory.NewProductRepository(), wantCount: 0, wantWarn: true},
		{name: "seeded", products: memory.NewProductRepository(domain.Product{ID: 1}), wantCount: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, hook := logtest.NewNullLogger()
			got := warnIfCatalogEmpty(context.Background(), tt.products, log.NewEntry(logger))
			if got != tt.wantCount {
				t.Fatalf("expected %d products, got %d", tt.wantCount, got)
			}
			warned := false
			for _, entry := range hook.AllEntries() {
				if entry.Level == log.WarnLevel {
					warned = true
				}
			}
			if warned != tt.wantWarn {
				t.Fatalf("expected warning=%v, got %v", tt.wantWarn, warned)
			}
		})
	}
}

func TestNewCatalogQuery(t *testing.T) {
	t.Parallel()

	if newCatalogQuery(nil) != nil {
		t.Fatal("nil dependencies must not enable catalog routes")
	}
	if newCatalogQuery(&runtimeDependencies{}) != nil {
		t.Fatal("dependencies without readers must not enable catalog routes")
	}

	deps, err := initRuntimeDependencies(context.Background(), Config{StorageDriver: StorageDriverMemory}, log.WithField("test", "catalog"))
	if err != nil {
		t.Fatalf("initRuntimeDependencies(memory) failed: %v", err)
	}
	if newCatalogQuery(deps) == nil {
		t.Fatal("memory storage must enable catalog routes")
	}
}
