package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

type availabilityKey struct {
	slotID int64
	paxID  int64
}

// FailureHook позволяет тестам внедрить ошибку в операцию транзакции.
// op принимает значения "slot", "pax" или "availability", key содержит ключ записи.
type FailureHook func(op, key string) error

// InventoryStore: in-memory хранилище инвентаря.
// Транзакции выполняются по одной и применяются целиком при коммите.
type InventoryStore struct {
	// txSlot сериализует транзакции, аналог блокировок строк в БД.
	txSlot chan struct{}

	mu           sync.RWMutex
	nextID       int64
	slots        map[string]domain.Slot
	pax          map[string]domain.Pax
	availability map[availabilityKey]domain.PaxAvailability
	failureHook  FailureHook
}

// NewInventoryStore создаёт пустое хранилище.
func NewInventoryStore() *InventoryStore {
	return &InventoryStore{
		txSlot:       make(chan struct{}, 1),
		slots:        make(map[string]domain.Slot),
		pax:          make(map[string]domain.Pax),
		availability: make(map[availabilityKey]domain.PaxAvailability),
	}
}

// SetFailureHook задаёт хук ошибок; nil отключает.
func (s *InventoryStore) SetFailureHook(hook FailureHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failureHook = hook
}

// WithinTx выполняет fn в изолированной транзакции.
func (s *InventoryStore) WithinTx(ctx context.Context, opts domain.TxOptions, fn func(ctx context.Context, tx domain.InventoryTx) error) error {
	waitCtx := ctx
	if opts.MaxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, opts.MaxWait)
		defer cancel()
	}
	select {
	case s.txSlot <- struct{}{}:
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.ErrLockWaitTimeout
	}
	defer func() { <-s.txSlot }()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	tx := &inventoryTx{
		store:        s,
		slots:        make(map[string]domain.Slot),
		pax:          make(map[string]domain.Pax),
		availability: make(map[availabilityKey]domain.PaxAvailability),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.commit(tx)
	return nil
}

func (s *InventoryStore) commit(tx *inventoryTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range tx.slots {
		s.slots[k] = v
	}
	for k, v := range tx.pax {
		s.pax[k] = v
	}
	for k, v := range tx.availability {
		s.availability[k] = v
	}
}

func (s *InventoryStore) allocateID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

func (s *InventoryStore) hook(op, key string) error {
	s.mu.RLock()
	hook := s.failureHook
	s.mu.RUnlock()
	if hook == nil {
		return nil
	}
	return hook(op, key)
}

// SlotByProviderID возвращает закоммиченный слот.
func (s *InventoryStore) SlotByProviderID(_ context.Context, providerSlotID string) (domain.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[providerSlotID]
	if !ok {
		return domain.Slot{}, domain.ErrSlotNotFound
	}
	return slot, nil
}

// ListPaxAvailability возвращает доступность слота, отсортированную по PaxID.
func (s *InventoryStore) ListPaxAvailability(_ context.Context, slotID int64) ([]domain.PaxAvailability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.PaxAvailability, 0)
	for key, av := range s.availability {
		if key.slotID == slotID {
			result = append(result, av)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PaxID < result[j].PaxID })
	return result, nil
}

// ListProductSlots возвращает закоммиченные слоты продукта с доступностью.
func (s *InventoryStore) ListProductSlots(ctx context.Context, productID int64, date time.Time) ([]domain.SlotDetails, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	paxByID := make(map[int64]domain.Pax, len(s.pax))
	for _, p := range s.pax {
		paxByID[p.ID] = p
	}

	slots := make([]domain.Slot, 0)
	for _, slot := range s.slots {
		if slot.ProductID != productID {
			continue
		}
		if !date.IsZero() && !sameDay(slot.StartDate, date) {
			continue
		}
		slots = append(slots, slot)
	}
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})

	result := make([]domain.SlotDetails, 0, len(slots))
	for _, slot := range slots {
		details := domain.SlotDetails{Slot: slot, Pax: make([]domain.PaxDetails, 0)}
		for key, av := range s.availability {
			if key.slotID == slot.ID {
				details.Pax = append(details.Pax, domain.PaxDetails{Pax: paxByID[av.PaxID], Availability: av})
			}
		}
		sort.Slice(details.Pax, func(i, j int) bool {
			return details.Pax[i].Availability.ID < details.Pax[j].Availability.ID
		})
		result = append(result, details)
	}
	return result, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// PaxByType возвращает тип пассажира. Используется в тестах и утилитах.
func (s *InventoryStore) PaxByType(paxType string) (domain.Pax, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pax[paxType]
	return p, ok
}

// Counts возвращает количество слотов, типов пассажиров и записей доступности.
func (s *InventoryStore) Counts() (slots, pax, availability int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots), len(s.pax), len(s.availability)
}

// inventoryTx хранит изменения до коммита. Безопасен для конкурентного использования.
type inventoryTx struct {
	store *InventoryStore

	mu           sync.Mutex
	slots        map[string]domain.Slot
	pax          map[string]domain.Pax
	availability map[availabilityKey]domain.PaxAvailability
}

func (tx *inventoryTx) UpsertSlot(ctx context.Context, slot domain.Slot) (domain.Slot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Slot{}, err
	}
	if err := tx.store.hook("slot", slot.ProviderSlotID); err != nil {
		return domain.Slot{}, err
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := tx.slots[slot.ProviderSlotID]
	if !ok {
		existing, ok = tx.store.committedSlot(slot.ProviderSlotID)
	}
	if ok {
		existing.Remaining = slot.Remaining
		existing.UpdatedAt = now
		tx.slots[slot.ProviderSlotID] = existing
		return existing, nil
	}

	slot.ID = tx.store.allocateID()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	tx.slots[slot.ProviderSlotID] = slot
	return slot, nil
}

func (tx *inventoryTx) UpsertPax(ctx context.Context, pax domain.Pax) (domain.Pax, error) {
	if err := ctx.Err(); err != nil {
		return domain.Pax{}, err
	}
	if err := tx.store.hook("pax", pax.Type); err != nil {
		return domain.Pax{}, err
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	existing, ok := tx.pax[pax.Type]
	if !ok {
		existing, ok = tx.store.committedPax(pax.Type)
	}
	if ok {
		pax = mergePax(existing, pax)
	} else {
		pax.ID = tx.store.allocateID()
	}
	tx.pax[pax.Type] = pax
	return pax, nil
}

// mergePax переносит в existing только присланные поля.
func mergePax(existing, update domain.Pax) domain.Pax {
	if update.Name != nil {
		existing.Name = update.Name
	}
	if update.Description != nil {
		existing.Description = update.Description
	}
	if update.Min != nil {
		existing.Min = update.Min
	}
	if update.Max != nil {
		existing.Max = update.Max
	}
	return existing
}

func (tx *inventoryTx) UpsertPaxAvailability(ctx context.Context, av domain.PaxAvailability) (domain.PaxAvailability, error) {
	if err := ctx.Err(); err != nil {
		return domain.PaxAvailability{}, err
	}
	if err := tx.store.hook("availability", fmt.Sprintf("%d:%d", av.SlotID, av.PaxID)); err != nil {
		return domain.PaxAvailability{}, err
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()

	key := availabilityKey{slotID: av.SlotID, paxID: av.PaxID}
	existing, ok := tx.availability[key]
	if !ok {
		existing, ok = tx.store.committedAvailability(key)
	}
	if ok {
		av.ID = existing.ID
	} else {
		av.ID = tx.store.allocateID()
	}
	tx.availability[key] = av
	return av, nil
}

func (s *InventoryStore) committedSlot(providerSlotID string) (domain.Slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.slots[providerSlotID]
	return slot, ok
}

func (s *InventoryStore) committedPax(paxType string) (domain.Pax, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pax[paxType]
	return p, ok
}

func (s *InventoryStore) committedAvailability(key availabilityKey) (domain.PaxAvailability, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	av, ok := s.availability[key]
	return av, ok
}

var (
	_ domain.InventoryStore  = (*InventoryStore)(nil)
	_ domain.InventoryReader = (*InventoryStore)(nil)
)
