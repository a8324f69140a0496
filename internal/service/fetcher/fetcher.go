// Package fetcher выполняет запросы к провайдеру инвентаря через общий ограничитель частоты.
package fetcher

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
	"github.com/vladislavdragonenkov/inventory-sync/internal/metrics"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/throttle"
)

// Fetcher запрашивает слоты продукта на дату. Все вызовы проходят через один Limiter.
type Fetcher struct {
	provider domain.InventoryProvider
	limiter  throttle.Limiter
	logger   *log.Entry
	metrics  *metrics.SyncMetrics
}

// Option настраивает Fetcher.
type Option func(*Fetcher)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMetrics задаёт метрики.
func WithMetrics(m *metrics.SyncMetrics) Option {
	return func(f *Fetcher) {
		if m != nil {
			f.metrics = m
		}
	}
}

// New создаёт Fetcher. Limiter должен быть один на процесс.
func New(provider domain.InventoryProvider, limiter throttle.Limiter, options ...Option) *Fetcher {
	if limiter == nil {
		limiter = throttle.NewMinInterval(throttle.DefaultInterval)
	}
	f := &Fetcher{
		provider: provider,
		limiter:  limiter,
		logger:   log.WithField("component", "inventory-fetcher"),
	}
	for _, option := range options {
		option(f)
	}
	if f.metrics == nil {
		f.metrics = metrics.NewSyncMetrics()
	}
	return f
}

// Fetch возвращает слоты и true при успехе.
// При любом сбое провайдера (или отмене ожидания) сбой логируется, а результат: (nil, false):
// повтор будет только в следующем цикле.
func (f *Fetcher) Fetch(ctx context.Context, productID int64, date time.Time) ([]domain.SlotPayload, bool) {
	logger := f.logger.WithFields(log.Fields{
		"product_id": productID,
		"date":       date.Format(domain.DateLayout),
	})

	queuedAt := time.Now()
	if _, err := f.limiter.Wait(ctx); err != nil {
		f.metrics.RecordFetch("error")
		logger.WithError(err).Warn("fetch aborted while waiting for rate limiter")
		return nil, false
	}
	f.metrics.RecordThrottleWait(time.Since(queuedAt))

	slots, err := f.provider.FetchInventory(ctx, productID, date)
	if err != nil {
		f.metrics.RecordFetch("error")
		entry := logger.WithError(err)
		if errors.Is(err, domain.ErrProviderUnavailable) {
			entry.Warn("inventory not available from provider")
		} else {
			entry.Error("inventory fetch failed")
		}
		return nil, false
	}

	if len(slots) == 0 {
		f.metrics.RecordFetch("empty")
	} else {
		f.metrics.RecordFetch("ok")
	}
	logger.WithField("slots", len(slots)).Debug("inventory fetched")
	return slots, true
}
