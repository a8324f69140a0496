package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
	"github.com/vladislavdragonenkov/inventory-sync/internal/metrics"
)

// OnceRequest описывает разовый запуск: либо именованная задача, либо горизонт в днях.
type OnceRequest struct {
	Job   string
	Days  int
	Force bool
}

// RunOnce выполняет один цикл синхронизации на сконфигурированных хранилище и провайдере
// без HTTP-серверов и планировщика.
func RunOnce(ctx context.Context, cfg Config, req OnceRequest) (domain.SyncResult, error) {
	logger := log.WithField("component", "sync-once")
	if err := cfg.Validate(); err != nil {
		return domain.SyncResult{}, fmt.Errorf("invalid config: %w", err)
	}
	if (req.Job == "") == (req.Days == 0) {
		return domain.SyncResult{}, errors.New("exactly one of job or days must be set")
	}

	tracer, shutdownTracer, err := initTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName, logger)
	if err != nil {
		return domain.SyncResult{}, err
	}
	defer shutdownWithTimeout(shutdownTracer, logger, "tracer")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return domain.SyncResult{}, err
	}
	defer deps.close(logger)
	warnIfCatalogEmpty(ctx, deps.products, logger)

	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	inventoryProvider, err := initProvider(cfg, logger)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("init provider: %w", err)
	}

	components, err := createOrchestrator(cfg, deps, inventoryProvider,
		newSyncPublisher(kafkaProducer, cfg.KafkaTopic), tracer, metrics.NewSyncMetrics(), logger)
	if err != nil {
		return domain.SyncResult{}, err
	}

	if req.Job != "" {
		name, err := domain.ParseJobName(req.Job)
		if err != nil {
			return domain.SyncResult{}, err
		}
		return components.orchestrator.RunJob(ctx, name, req.Force)
	}
	return components.orchestrator.SyncNextXDays(ctx, req.Days)
}
