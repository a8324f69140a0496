// Package upsert применяет слот от провайдера к хранилищу одной транзакцией.
package upsert

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
	"github.com/vladislavdragonenkov/inventory-sync/internal/metrics"
)

const (
	defaultTxTimeout = 50 * time.Second
	defaultTxMaxWait = 5 * time.Second
)

// DefaultTxOptions: READ COMMITTED, 50s на транзакцию, 5s на ожидание соединения и блокировок.
func DefaultTxOptions() domain.TxOptions {
	return domain.TxOptions{
		Isolation: domain.IsolationReadCommitted,
		Timeout:   defaultTxTimeout,
		MaxWait:   defaultTxMaxWait,
	}
}

// Result описывает применённый слот.
type Result struct {
	Slot       domain.Slot
	PaxApplied int
	PaxSkipped int
}

// Upserter выполняет идемпотентную запись слота и вложенной доступности.
type Upserter struct {
	store   domain.InventoryStore
	txOpts  domain.TxOptions
	logger  *log.Entry
	metrics *metrics.SyncMetrics
}

// Option настраивает Upserter.
type Option func(*Upserter)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(u *Upserter) {
		if logger != nil {
			u.logger = logger
		}
	}
}

// WithMetrics задаёт метрики.
func WithMetrics(m *metrics.SyncMetrics) Option {
	return func(u *Upserter) {
		if m != nil {
			u.metrics = m
		}
	}
}

// WithTxOptions переопределяет параметры транзакции; нулевые поля берутся из DefaultTxOptions.
func WithTxOptions(opts domain.TxOptions) Option {
	return func(u *Upserter) {
		if opts.Isolation != "" {
			u.txOpts.Isolation = opts.Isolation
		}
		if opts.Timeout > 0 {
			u.txOpts.Timeout = opts.Timeout
		}
		if opts.MaxWait > 0 {
			u.txOpts.MaxWait = opts.MaxWait
		}
	}
}

// New создаёт Upserter поверх хранилища инвентаря.
func New(store domain.InventoryStore, options ...Option) *Upserter {
	u := &Upserter{
		store:  store,
		txOpts: DefaultTxOptions(),
		logger: log.WithField("component", "inventory-upserter"),
	}
	for _, option := range options {
		option(u)
	}
	if u.metrics == nil {
		u.metrics = metrics.NewSyncMetrics()
	}
	return u
}

// TxOptions возвращает действующие параметры транзакции.
func (u *Upserter) TxOptions() domain.TxOptions {
	return u.txOpts
}

// Apply записывает слот атомарно:
//  1. слот по providerSlotId (при конфликте обновляется только remaining);
//  2. конкурентно для каждой записи pax со строковым type: pax по type, затем доступность по (slot, pax).
//
// Запись pax без remaining или price делает слот невалидным.
// Любая ошибка откатывает весь слот и возвращается вызывающему.
func (u *Upserter) Apply(ctx context.Context, productID int64, payload domain.SlotPayload) (Result, error) {
	started := time.Now()

	slot, err := payload.ToSlot(productID)
	if err != nil {
		u.metrics.RecordSlotUpsert(false, time.Since(started))
		return Result{}, err
	}

	var (
		result  Result
		applied atomic.Int64
	)
	err = u.store.WithinTx(ctx, u.txOpts, func(ctx context.Context, tx domain.InventoryTx) error {
		saved, err := tx.UpsertSlot(ctx, slot)
		if err != nil {
			return fmt.Errorf("upsert slot %s: %w", slot.ProviderSlotID, err)
		}

		skipped := 0
		g, gctx := errgroup.WithContext(ctx)
		for _, entry := range payload.PaxAvailability {
			code, ok := entry.TypeCode()
			if !ok {
				skipped++
				continue
			}
			g.Go(func() error {
				if err := applyPax(gctx, tx, saved.ID, code, entry); err != nil {
					return err
				}
				applied.Add(1)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		result = Result{Slot: saved, PaxSkipped: skipped}
		return nil
	})
	u.metrics.RecordSlotUpsert(err == nil, time.Since(started))
	if err != nil {
		return Result{}, err
	}

	result.PaxApplied = int(applied.Load())
	for i := 0; i < result.PaxSkipped; i++ {
		u.metrics.RecordPaxSkipped()
	}
	if result.PaxSkipped > 0 {
		u.logger.WithFields(log.Fields{
			"product_id":       productID,
			"provider_slot_id": slot.ProviderSlotID,
			"skipped":          result.PaxSkipped,
		}).Debug("pax entries with non-string type skipped")
	}

	return result, nil
}

func applyPax(ctx context.Context, tx domain.InventoryTx, slotID int64, code string, entry domain.PaxPayload) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("pax %s: %w", code, err)
	}

	pax, err := tx.UpsertPax(ctx, domain.Pax{
		Type:        code,
		Name:        entry.Name,
		Description: entry.Description,
		Min:         entry.Min,
		Max:         entry.Max,
	})
	if err != nil {
		return fmt.Errorf("upsert pax %s: %w", code, err)
	}

	_, err = tx.UpsertPaxAvailability(ctx, domain.PaxAvailability{
		SlotID:        slotID,
		PaxID:         pax.ID,
		Remaining:     *entry.Remaining,
		FinalPrice:    entry.Price.FinalPrice,
		OriginalPrice: entry.Price.OriginalPrice,
		CurrencyCode:  entry.Price.CurrencyCode,
		Discount:      entry.Price.DiscountOrZero(),
	})
	if err != nil {
		return fmt.Errorf("upsert pax availability %s: %w", code, err)
	}
	return nil
}
