package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/inventory-sync/internal/health"
	"github.com/vladislavdragonenkov/inventory-sync/internal/metrics"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/admin"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/catalog"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/jobgate"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/scheduler"
	"github.com/vladislavdragonenkov/inventory-sync/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/inventory-sync/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run поднимает сервис и блокируется до отмены ctx или ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	tracer, shutdownTracer, err := initTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName, logger)
	if err != nil {
		return err
	}
	defer shutdownWithTimeout(shutdownTracer, logger, "tracer")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.close(logger)
	warnIfCatalogEmpty(ctx, deps.products, logger)

	// Без Kafka сервис работает: события просто не публикуются.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	inventoryProvider, err := initProvider(cfg, logger)
	if err != nil {
		return fmt.Errorf("init provider: %w", err)
	}

	components, err := createOrchestrator(cfg, deps, inventoryProvider,
		newSyncPublisher(kafkaProducer, cfg.KafkaTopic), tracer, metrics.NewSyncMetrics(), logger)
	if err != nil {
		return err
	}

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.storageChecker != nil {
		healthHandler.RegisterChecker("storage", deps.storageChecker)
	}
	if cfg.SchedulerEnabled && cfg.CronSpecs[domain.JobSyncToday] != "" {
		healthHandler.RegisterChecker("sync_today", newSyncFreshnessChecker(components.gate, cfg.SyncFreshnessMaxAge))
	}
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	errCh := make(chan error, 2)

	grpcServer, healthServer, err := startGRPCServer(cfg.GRPCAddr, errCh, logger)
	if err != nil {
		return err
	}
	defer stopGRPCServer(grpcServer, healthServer, logger)

	adminSvc := admin.NewService(ctx, components.gate, components.orchestrator, logger.WithField("component", "admin"))
	router := httpapi.NewRouter(adminSvc, httpapi.Config{
		Catalog:            newCatalogQuery(deps),
		ServiceName:        cfg.ServiceName,
		RateLimitPerMinute: cfg.AdminRateLimitPerMinute,
	}, logger.WithField("component", "admin-http"))
	defer router.Close()

	adminLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen admin http %s: %w", cfg.HTTPAddr, err)
	}
	adminSrv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("admin API слушает %s", adminLis.Addr())
		if err := adminSrv.Serve(adminLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("admin http server: %w", err)
		}
	}()

	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		sched, err = scheduler.New(ctx, components.orchestrator, cfg.CronSpecs, loc, logger.WithField("component", "scheduler"))
		if err != nil {
			shutdownHTTP(adminSrv, logger)
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
	} else {
		logger.Warn("scheduler is disabled, jobs run only on demand")
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем сервис")
		runErr = ctx.Err()
	case runErr = <-errCh:
		logger.WithError(runErr).Error("server failed, shutting down")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if sched != nil {
		if err := sched.Stop(stopCtx); err != nil {
			logger.WithError(err).Warn("scheduler stop timed out, running cycles are abandoned")
		}
	}
	shutdownHTTP(adminSrv, logger)
	waitAdmin(stopCtx, adminSvc, logger)

	return runErr
}

// newSyncFreshnessChecker следит за последним успешным плановым sync_today.
func newSyncFreshnessChecker(gate *jobgate.Gate, maxAge time.Duration) healthcheck.Checker {
	return healthcheck.NewFreshnessChecker("sync_today", maxAge, func(ctx context.Context) (time.Time, bool, error) {
		job, err := gate.Get(ctx, domain.JobSyncToday)
		if err != nil {
			return time.Time{}, false, err
		}
		if !job.Enabled {
			// Выключенная задача не должна ухудшать статус сервиса.
			return time.Now(), true, nil
		}
		if job.LastExecuted == nil {
			return time.Time{}, false, nil
		}
		return *job.LastExecuted, true, nil
	})
}

// waitAdmin ждёт ручные запуски, но не дольше stopCtx.
func waitAdmin(ctx context.Context, svc *admin.Service, logger *log.Entry) {
	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("manual sync runs did not finish before shutdown timeout")
	}
}

// startGRPCServer поднимает gRPC health и reflection; пустой addr отключает сервер.
func startGRPCServer(addr string, errCh chan<- error, logger *log.Entry) (*grpc.Server, *health.Server, error) {
	if addr == "" {
		return nil, nil, nil
	}

	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok2 := are.ExistingCollector.(*promgrpc.ServerMetrics); ok2 {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	grpcMetrics.InitializeMetrics(grpcServer)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen grpc %s: %w", addr, err)
	}
	go func() {
		logger.Infof("gRPC health слушает %s", lis.Addr())
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	return grpcServer, healthServer, nil
}

func stopGRPCServer(grpcServer *grpc.Server, healthServer *health.Server, logger *log.Entry) {
	if grpcServer == nil {
		return
	}
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	stoppedCh := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(shutdownTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		grpcServer.Stop()
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics и health probes.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

func shutdownWithTimeout(fn shutdownFunc, logger *log.Entry, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.WithError(err).WithField("resource", name).Warn("shutdown with error")
	}
}

// newCatalogQuery возвращает nil, если хранилище не умеет читать инвентарь.
func newCatalogQuery(deps *runtimeDependencies) httpapi.CatalogQuery {
	if deps == nil || deps.productLookup == nil || deps.inventoryReader == nil {
		return nil
	}
	return catalog.NewService(deps.productLookup, deps.inventoryReader)
}
