package domain

import (
	"context"
	"time"
)

// ProductRepository отдаёт список продуктов для синхронизации.
type ProductRepository interface {
	// ListForSync возвращает все продукты (id, доступные дни, тип слотов).
	ListForSync(ctx context.Context) ([]Product, error)
}

// ProductLookup читает один продукт каталога.
type ProductLookup interface {
	// Get возвращает ErrProductNotFound, если продукта нет.
	Get(ctx context.Context, id int64) (Product, error)
}

// IsolationLevel: уровень изоляции транзакции записи инвентаря.
type IsolationLevel string

const (
	IsolationReadCommitted  IsolationLevel = "read_committed"
	IsolationRepeatableRead IsolationLevel = "repeatable_read"
	IsolationSerializable   IsolationLevel = "serializable"
)

// TxOptions задаёт параметры единицы работы.
type TxOptions struct {
	Isolation IsolationLevel
	// Timeout ограничивает выполнение всей транзакции.
	Timeout time.Duration
	// MaxWait ограничивает ожидание соединения и блокировок; должен быть меньше Timeout.
	MaxWait time.Duration
}

// InventoryTx: операции записи внутри одной транзакции.
// Реализации обязаны допускать конкурентные вызовы из нескольких горутин.
type InventoryTx interface {
	// UpsertSlot создаёт слот или обновляет только remaining по ProviderSlotID.
	UpsertSlot(ctx context.Context, slot Slot) (Slot, error)
	// UpsertPax создаёт тип пассажира или обновляет name/description/min/max по Type.
	UpsertPax(ctx context.Context, pax Pax) (Pax, error)
	// UpsertPaxAvailability создаёт или обновляет остаток и цену по паре (SlotID, PaxID).
	UpsertPaxAvailability(ctx context.Context, availability PaxAvailability) (PaxAvailability, error)
}

// InventoryStore: хранилище слотов и доступности.
type InventoryStore interface {
	// WithinTx выполняет fn атомарно: любая ошибка откатывает все записи.
	WithinTx(ctx context.Context, opts TxOptions, fn func(ctx context.Context, tx InventoryTx) error) error
	// SlotByProviderID читает слот по ключу провайдера.
	SlotByProviderID(ctx context.Context, providerSlotID string) (Slot, error)
	// ListPaxAvailability возвращает доступность по типам пассажиров для слота.
	ListPaxAvailability(ctx context.Context, slotID int64) ([]PaxAvailability, error)
}

// InventoryReader читает синхронизированный инвентарь продукта.
type InventoryReader interface {
	// ListProductSlots возвращает слоты по возрастанию даты, времени начала и id.
	// Нулевая date означает все даты. Pax внутри слота упорядочены по id записи доступности.
	ListProductSlots(ctx context.Context, productID int64, date time.Time) ([]SlotDetails, error)
}

// CronJobRepository хранит флаги включения именованных задач.
type CronJobRepository interface {
	Get(ctx context.Context, name JobName) (CronJob, error)
	// List возвращает страницу задач и общее количество.
	List(ctx context.Context, offset, limit int) ([]CronJob, int, error)
	SetEnabled(ctx context.Context, name JobName, enabled bool) error
	SetLastExecuted(ctx context.Context, name JobName, at time.Time) error
}

// InventoryProvider: клиент upstream API инвентаря.
type InventoryProvider interface {
	FetchInventory(ctx context.Context, productID int64, date time.Time) ([]SlotPayload, error)
}

// SyncEventPublisher публикует события жизненного цикла синхронизации.
type SyncEventPublisher interface {
	// PublishSyncResult публикует итог цикла; cycleErr != nil для упавшего цикла.
	PublishSyncResult(ctx context.Context, result SyncResult, cycleErr error) error
}
