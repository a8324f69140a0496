package app

import (
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
	"github.com/vladislavdragonenkov/inventory-sync/internal/metrics"
	"github.com/vladislavdragonenkov/inventory-sync/internal/provider"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/fetcher"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/jobgate"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/syncer"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/throttle"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/upsert"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/window"
)

// initProvider возвращает HTTP-клиента провайдера или mock, если base url не задан.
func initProvider(cfg Config, logger *log.Entry) (domain.InventoryProvider, error) {
	if cfg.ProviderBaseURL == "" {
		logger.Warn("provider base url is empty, using mock provider")
		return provider.NewMockProvider(), nil
	}
	return provider.NewHTTPClient(provider.Config{
		BaseURL: cfg.ProviderBaseURL,
		APIKey:  cfg.ProviderAPIKey,
		Timeout: cfg.ProviderTimeout,
	}, provider.WithLogger(logger.WithField("component", "provider-client")))
}

// syncComponents: собранный движок синхронизации.
type syncComponents struct {
	gate         *jobgate.Gate
	orchestrator *syncer.Orchestrator
}

// createOrchestrator связывает fetcher, upserter и gate в один Orchestrator.
// Ограничитель провайдера создаётся здесь и общий для всех циклов процесса.
func createOrchestrator(
	cfg Config,
	deps *runtimeDependencies,
	inventoryProvider domain.InventoryProvider,
	publisher domain.SyncEventPublisher,
	tracer trace.Tracer,
	syncMetrics *metrics.SyncMetrics,
	logger *log.Entry,
) (*syncComponents, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	limiter := throttle.NewMinInterval(cfg.ProviderMinInterval)
	f := fetcher.New(inventoryProvider, limiter,
		fetcher.WithLogger(logger.WithField("component", "fetcher")),
		fetcher.WithMetrics(syncMetrics),
	)
	u := upsert.New(deps.inventory,
		upsert.WithLogger(logger.WithField("component", "upserter")),
		upsert.WithMetrics(syncMetrics),
		upsert.WithTxOptions(cfg.TxOptions()),
	)
	gate := jobgate.NewGate(deps.cronJobs, logger.WithField("component", "jobgate"))

	orchestrator := syncer.New(deps.products, f, u, gate,
		syncer.WithLogger(logger.WithField("component", "syncer")),
		syncer.WithMetrics(syncMetrics),
		syncer.WithCalculator(window.NewCalculator(window.WithLocation(loc))),
		syncer.WithPublisher(publisher),
		syncer.WithTracer(tracer),
	)
	return &syncComponents{gate: gate, orchestrator: orchestrator}, nil
}
