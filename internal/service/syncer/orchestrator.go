// Package syncer координирует цикл синхронизации инвентаря:
// продукты → окна дат → запросы к провайдеру → запись слотов.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
	"github.com/vladislavdragonenkov/inventory-sync/internal/metrics"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/jobgate"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/upsert"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/window"
)

const tracerName = "github.com/vladislavdragonenkov/inventory-sync/internal/service/syncer"

// SlotFetcher запрашивает слоты продукта на дату; false означает «недоступно».
type SlotFetcher interface {
	Fetch(ctx context.Context, productID int64, date time.Time) ([]domain.SlotPayload, bool)
}

// SlotUpserter записывает один слот атомарно.
type SlotUpserter interface {
	Apply(ctx context.Context, productID int64, payload domain.SlotPayload) (upsert.Result, error)
}

// Orchestrator запускает циклы синхронизации.
type Orchestrator struct {
	products  domain.ProductRepository
	fetcher   SlotFetcher
	upserter  SlotUpserter
	gate      *jobgate.Gate
	window    *window.Calculator
	publisher domain.SyncEventPublisher
	metrics   *metrics.SyncMetrics
	tracer    trace.Tracer
	logger    *log.Entry
	now       func() time.Time
}

// Option настраивает Orchestrator.
type Option func(*Orchestrator)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics задаёт метрики.
func WithMetrics(m *metrics.SyncMetrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithCalculator задаёт калькулятор окна дат.
func WithCalculator(c *window.Calculator) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.window = c
		}
	}
}

// WithPublisher задаёт публикацию событий цикла.
func WithPublisher(p domain.SyncEventPublisher) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.publisher = p
		}
	}
}

// WithTracer задаёт tracer; по умолчанию глобальный из otel.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithClock подменяет источник времени для отметок цикла.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New создаёт Orchestrator.
func New(products domain.ProductRepository, fetcher SlotFetcher, upserter SlotUpserter, gate *jobgate.Gate, options ...Option) *Orchestrator {
	o := &Orchestrator{
		products:  products,
		fetcher:   fetcher,
		upserter:  upserter,
		gate:      gate,
		window:    window.NewCalculator(),
		publisher: NoopPublisher{},
		logger:    log.WithField("component", "sync-orchestrator"),
		now:       time.Now,
	}
	for _, option := range options {
		option(o)
	}
	if o.metrics == nil {
		o.metrics = metrics.NewSyncMetrics()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	return o
}

// SyncInventory синхронизирует все продукты на horizonDays дней вперёд.
// Горизонт вне [1, 60] возвращает ErrInvalidHorizon без какой-либо работы.
func (o *Orchestrator) SyncInventory(ctx context.Context, horizonDays int) (domain.SyncResult, error) {
	return o.runCycle(ctx, "", horizonDays, false)
}

// SyncNextXDays: ad hoc синхронизация на произвольный горизонт, без проверки флагов задач.
func (o *Orchestrator) SyncNextXDays(ctx context.Context, days int) (domain.SyncResult, error) {
	return o.SyncInventory(ctx, days)
}

// SyncNext30Days: плановая задача на 30 дней.
func (o *Orchestrator) SyncNext30Days(ctx context.Context) (domain.SyncResult, error) {
	return o.RunJob(ctx, domain.JobSyncNext30Days, false)
}

// SyncNext7Days: плановая задача на 7 дней.
func (o *Orchestrator) SyncNext7Days(ctx context.Context) (domain.SyncResult, error) {
	return o.RunJob(ctx, domain.JobSyncNext7Days, false)
}

// SyncToday: плановая задача на сегодня.
func (o *Orchestrator) SyncToday(ctx context.Context) (domain.SyncResult, error) {
	return o.RunJob(ctx, domain.JobSyncToday, false)
}

// RunJob запускает именованную задачу.
// Без force задача выполняется, только если включена, и после выполнения сохраняется время запуска.
// С force флаг не проверяется и время запуска не сохраняется.
// Время запуска также не сохраняется, если ctx отменён во время цикла.
func (o *Orchestrator) RunJob(ctx context.Context, name domain.JobName, force bool) (domain.SyncResult, error) {
	horizon, ok := name.Horizon()
	if !ok {
		return domain.SyncResult{}, fmt.Errorf("%w: %s", domain.ErrInvalidJobName, name)
	}

	if !force && !o.gate.IsEnabled(ctx, name) {
		return o.skip(ctx, name, horizon), nil
	}

	result, err := o.runCycle(ctx, name, horizon, force)
	if err != nil || force {
		return result, err
	}
	// Прерванный цикл не считается выполнением: данные могли не обновиться.
	if ctx.Err() != nil {
		o.logger.WithField("job", name).Warn("sync cycle interrupted, execution not recorded")
		return result, nil
	}

	if err := o.gate.RecordExecution(ctx, name, result.FinishedAt); err != nil {
		o.logger.WithError(err).WithField("job", name).Warn("failed to record job execution")
	}
	return result, nil
}

func (o *Orchestrator) skip(ctx context.Context, name domain.JobName, horizon int) domain.SyncResult {
	now := o.now().UTC()
	result := domain.SyncResult{
		RunID:      uuid.NewString(),
		Job:        name,
		Horizon:    horizon,
		Skipped:    true,
		StartedAt:  now,
		FinishedAt: now,
	}
	o.metrics.RecordCycleSkipped(string(name))
	o.logger.WithFields(log.Fields{"job": name, "run_id": result.RunID}).Info("job is disabled, skipping")
	o.publish(ctx, result, nil)
	return result
}

type counters struct {
	datesPlanned  atomic.Int64
	fetchFailures atomic.Int64
	emptyFetches  atomic.Int64
	slotsUpserted atomic.Int64
	slotFailures  atomic.Int64
}

func (o *Orchestrator) runCycle(ctx context.Context, name domain.JobName, horizon int, force bool) (domain.SyncResult, error) {
	if err := domain.ValidateHorizon(horizon); err != nil {
		return domain.SyncResult{}, err
	}

	result := domain.SyncResult{
		RunID:     uuid.NewString(),
		Job:       name,
		Horizon:   horizon,
		Forced:    force,
		StartedAt: o.now().UTC(),
	}
	logger := o.logger.WithFields(log.Fields{
		"run_id":  result.RunID,
		"job":     name,
		"horizon": horizon,
		"forced":  force,
	})

	ctx, span := o.tracer.Start(ctx, "inventory.sync", trace.WithAttributes(
		attribute.String("sync.run_id", result.RunID),
		attribute.String("sync.job", string(name)),
		attribute.Int("sync.horizon", horizon),
		attribute.Bool("sync.forced", force),
	))
	defer span.End()

	o.metrics.RecordCycleStarted()
	logger.Info("inventory sync started")

	products, err := o.products.ListForSync(ctx)
	if err != nil {
		err = fmt.Errorf("load products: %w", err)
		result.FinishedAt = o.now().UTC()
		o.metrics.RecordCycleFinished(string(name), metrics.CycleResultFailed, result.Duration())
		span.RecordError(err)
		span.SetStatus(codes.Error, "load products failed")
		logger.WithError(err).Error("inventory sync failed")
		o.publish(ctx, result, err)
		return result, err
	}
	result.Products = len(products)

	var (
		c  counters
		wg sync.WaitGroup
	)
	for _, product := range products {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.syncProduct(ctx, product, horizon, &c)
		}()
	}
	wg.Wait()

	result.DatesPlanned = int(c.datesPlanned.Load())
	result.FetchFailures = int(c.fetchFailures.Load())
	result.EmptyFetches = int(c.emptyFetches.Load())
	result.SlotsUpserted = int(c.slotsUpserted.Load())
	result.SlotFailures = int(c.slotFailures.Load())
	result.FinishedAt = o.now().UTC()

	outcome := metrics.CycleResultOK
	if result.Partial() {
		outcome = metrics.CycleResultPartial
	}
	o.metrics.RecordCycleFinished(string(name), outcome, result.Duration())

	span.SetAttributes(
		attribute.Int("sync.products", result.Products),
		attribute.Int("sync.dates_planned", result.DatesPlanned),
		attribute.Int("sync.fetch_failures", result.FetchFailures),
		attribute.Int("sync.slots_upserted", result.SlotsUpserted),
		attribute.Int("sync.slot_failures", result.SlotFailures),
	)
	span.SetStatus(codes.Ok, outcome)

	logger.WithFields(log.Fields{
		"products":       result.Products,
		"dates_planned":  result.DatesPlanned,
		"fetch_failures": result.FetchFailures,
		"empty_fetches":  result.EmptyFetches,
		"slots_upserted": result.SlotsUpserted,
		"slot_failures":  result.SlotFailures,
		"duration":       result.Duration().String(),
	}).Info("inventory sync completed")

	o.publish(ctx, result, nil)
	return result, nil
}

func (o *Orchestrator) syncProduct(ctx context.Context, product domain.Product, horizon int, c *counters) {
	dates := o.window.ComputeSyncDates(product.AvailableDays, horizon)
	c.datesPlanned.Add(int64(len(dates)))

	var wg sync.WaitGroup
	for _, date := range dates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.syncDate(ctx, product.ID, date, c)
		}()
	}
	wg.Wait()
}

// syncDate записывает слоты одной даты последовательно; сбой слота не прерывает остальные.
func (o *Orchestrator) syncDate(ctx context.Context, productID int64, date time.Time, c *counters) {
	slots, ok := o.fetcher.Fetch(ctx, productID, date)
	if !ok {
		c.fetchFailures.Add(1)
		return
	}
	if len(slots) == 0 {
		c.emptyFetches.Add(1)
		return
	}

	for _, slot := range slots {
		if _, err := o.upserter.Apply(ctx, productID, slot); err != nil {
			c.slotFailures.Add(1)
			o.logger.WithError(err).WithFields(log.Fields{
				"product_id":       productID,
				"date":             date.Format(domain.DateLayout),
				"provider_slot_id": slot.ProviderSlotID,
			}).Error("slot upsert failed")
			continue
		}
		c.slotsUpserted.Add(1)
	}
}

func (o *Orchestrator) publish(ctx context.Context, result domain.SyncResult, cycleErr error) {
	if err := o.publisher.PublishSyncResult(ctx, result, cycleErr); err != nil {
		o.logger.WithError(err).WithField("run_id", result.RunID).Warn("failed to publish sync event")
	}
}

// NoopPublisher отбрасывает события цикла.
type NoopPublisher struct{}

// PublishSyncResult ничего не делает.
func (NoopPublisher) PublishSyncResult(context.Context, domain.SyncResult, error) error {
	return nil
}

var _ domain.SyncEventPublisher = NoopPublisher{}
