package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

// pgLockNotAvailable: SQLSTATE при срабатывании lock_timeout.
const pgLockNotAvailable = "55P03"

// InventoryStore: запись слотов и доступности в PostgreSQL.
type InventoryStore struct {
	store *Store
}

// NewInventoryStore создаёт InventoryStore поверх пула.
func NewInventoryStore(store *Store) *InventoryStore {
	return &InventoryStore{store: store}
}

// WithinTx выполняет fn в одной транзакции.
// MaxWait ограничивает получение соединения и задаёт lock_timeout, Timeout: всю транзакцию.
func (s *InventoryStore) WithinTx(ctx context.Context, opts domain.TxOptions, fn func(ctx context.Context, tx domain.InventoryTx) error) error {
	if s.store == nil || s.store.db == nil {
		return errStoreNotInitialized
	}

	acquireCtx := ctx
	if opts.MaxWait > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, opts.MaxWait)
		defer cancel()
	}
	conn, err := s.store.db.Conn(acquireCtx)
	if err != nil {
		if ctx.Err() == nil && errors.Is(acquireCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: acquire connection: %v", domain.ErrLockWaitTimeout, err)
		}
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	sqlTx, err := conn.BeginTx(ctx, &sql.TxOptions{Isolation: isolationLevel(opts.Isolation)})
	if err != nil {
		return fmt.Errorf("begin inventory tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if opts.MaxWait > 0 {
		// SET LOCAL не принимает параметры, значение форматируется числом миллисекунд.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", opts.MaxWait.Milliseconds())
		if _, err := sqlTx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("set lock timeout: %w", err)
		}
	}

	if err := fn(ctx, &inventoryTx{tx: sqlTx}); err != nil {
		return classifyTxError(err)
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit inventory tx: %w", classifyTxError(err))
	}
	return nil
}

// SlotByProviderID читает слот по ключу провайдера.
func (s *InventoryStore) SlotByProviderID(ctx context.Context, providerSlotID string) (domain.Slot, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, product_id, start_date, start_time, end_time, provider_slot_id,
		       remaining, currency_code, created_at, updated_at
		FROM slots
		WHERE provider_slot_id = $1
	`, providerSlotID)

	slot, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Slot{}, domain.ErrSlotNotFound
	}
	if err != nil {
		return domain.Slot{}, fmt.Errorf("get slot %s: %w", providerSlotID, err)
	}
	return slot, nil
}

// ListPaxAvailability возвращает доступность слота по типам пассажиров.
func (s *InventoryStore) ListPaxAvailability(ctx context.Context, slotID int64) ([]domain.PaxAvailability, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, slot_id, pax_id, remaining, final_price, original_price, currency_code, discount
		FROM pax_availability
		WHERE slot_id = $1
		ORDER BY pax_id
	`, slotID)
	if err != nil {
		return nil, fmt.Errorf("list pax availability: %w", err)
	}
	defer rows.Close()

	result := make([]domain.PaxAvailability, 0)
	for rows.Next() {
		var av domain.PaxAvailability
		if err := rows.Scan(&av.ID, &av.SlotID, &av.PaxID, &av.Remaining,
			&av.FinalPrice, &av.OriginalPrice, &av.CurrencyCode, &av.Discount); err != nil {
			return nil, fmt.Errorf("scan pax availability: %w", err)
		}
		result = append(result, av)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pax availability: %w", err)
	}
	return result, nil
}

// inventoryTx сериализует запросы: у транзакции одно соединение.
type inventoryTx struct {
	mu sync.Mutex
	tx *sql.Tx
}

func (t *inventoryTx) UpsertSlot(ctx context.Context, slot domain.Slot) (domain.Slot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row := t.tx.QueryRowContext(ctx, `
		INSERT INTO slots (
			product_id, start_date, start_time, end_time, provider_slot_id,
			remaining, currency_code, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (provider_slot_id) DO UPDATE
		SET remaining = EXCLUDED.remaining,
		    updated_at = NOW()
		RETURNING id, product_id, start_date, start_time, end_time, provider_slot_id,
		          remaining, currency_code, created_at, updated_at
	`, slot.ProductID, slot.StartDate, slot.StartTime, slot.EndTime, slot.ProviderSlotID,
		slot.Remaining, slot.CurrencyCode)

	saved, err := scanSlot(row)
	if err != nil {
		return domain.Slot{}, err
	}
	return saved, nil
}

// UpsertPax не затирает сохранённые name, description, min и max, если они не пришли.
func (t *inventoryTx) UpsertPax(ctx context.Context, pax domain.Pax) (domain.Pax, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO pax (type, name, description, min, max, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (type) DO UPDATE
		SET name = COALESCE(EXCLUDED.name, pax.name),
		    description = COALESCE(EXCLUDED.description, pax.description),
		    min = COALESCE(EXCLUDED.min, pax.min),
		    max = COALESCE(EXCLUDED.max, pax.max),
		    updated_at = NOW()
		RETURNING id, name, description, min, max
	`, pax.Type, pax.Name, pax.Description, pax.Min, pax.Max).Scan(&pax.ID, &pax.Name, &pax.Description, &pax.Min, &pax.Max)
	if err != nil {
		return domain.Pax{}, err
	}
	return pax, nil
}

func (t *inventoryTx) UpsertPaxAvailability(ctx context.Context, av domain.PaxAvailability) (domain.PaxAvailability, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO pax_availability (
			slot_id, pax_id, remaining, final_price, original_price,
			currency_code, discount, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (slot_id, pax_id) DO UPDATE
		SET remaining = EXCLUDED.remaining,
		    final_price = EXCLUDED.final_price,
		    original_price = EXCLUDED.original_price,
		    currency_code = EXCLUDED.currency_code,
		    discount = EXCLUDED.discount,
		    updated_at = NOW()
		RETURNING id
	`, av.SlotID, av.PaxID, av.Remaining, av.FinalPrice, av.OriginalPrice,
		av.CurrencyCode, av.Discount).Scan(&av.ID)
	if err != nil {
		return domain.PaxAvailability{}, err
	}
	return av, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ListProductSlots возвращает слоты продукта с доступностью по типам пассажиров.
func (s *InventoryStore) ListProductSlots(ctx context.Context, productID int64, date time.Time) ([]domain.SlotDetails, error) {
	if s.store == nil || s.store.db == nil {
		return nil, errStoreNotInitialized
	}
	dateArg := sql.NullString{String: date.Format(domain.DateLayout), Valid: !date.IsZero()}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, product_id, start_date, start_time, end_time, provider_slot_id,
		       remaining, currency_code, created_at, updated_at
		FROM slots
		WHERE product_id = $1 AND ($2::date IS NULL OR start_date = $2::date)
		ORDER BY start_date, start_time, id
	`, productID, dateArg)
	if err != nil {
		return nil, fmt.Errorf("list product slots: %w", err)
	}
	defer rows.Close()

	result := make([]domain.SlotDetails, 0)
	index := make(map[int64]int)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		index[slot.ID] = len(result)
		result = append(result, domain.SlotDetails{Slot: slot, Pax: make([]domain.PaxDetails, 0)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	if len(result) == 0 {
		return result, nil
	}

	paxRows, err := s.store.db.QueryContext(ctx, `
		SELECT pa.id, pa.slot_id, pa.pax_id, pa.remaining, pa.final_price, pa.original_price,
		       pa.currency_code, pa.discount, p.type, p.name, p.description, p.min, p.max
		FROM pax_availability pa
		JOIN pax p ON p.id = pa.pax_id
		JOIN slots s ON s.id = pa.slot_id
		WHERE s.product_id = $1 AND ($2::date IS NULL OR s.start_date = $2::date)
		ORDER BY pa.id
	`, productID, dateArg)
	if err != nil {
		return nil, fmt.Errorf("list product pax availability: %w", err)
	}
	defer paxRows.Close()

	for paxRows.Next() {
		var d domain.PaxDetails
		av := &d.Availability
		if err := paxRows.Scan(&av.ID, &av.SlotID, &av.PaxID, &av.Remaining, &av.FinalPrice,
			&av.OriginalPrice, &av.CurrencyCode, &av.Discount,
			&d.Pax.Type, &d.Pax.Name, &d.Pax.Description, &d.Pax.Min, &d.Pax.Max); err != nil {
			return nil, fmt.Errorf("scan pax availability: %w", err)
		}
		d.Pax.ID = av.PaxID
		// Слот мог появиться между запросами.
		i, ok := index[av.SlotID]
		if !ok {
			continue
		}
		result[i].Pax = append(result[i].Pax, d)
	}
	if err := paxRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pax availability: %w", err)
	}
	return result, nil
}

func scanSlot(row rowScanner) (domain.Slot, error) {
	var slot domain.Slot
	err := row.Scan(&slot.ID, &slot.ProductID, &slot.StartDate, &slot.StartTime, &slot.EndTime,
		&slot.ProviderSlotID, &slot.Remaining, &slot.CurrencyCode, &slot.CreatedAt, &slot.UpdatedAt)
	if err != nil {
		return domain.Slot{}, err
	}
	slot.StartDate = slot.StartDate.UTC()
	return slot, nil
}

func isolationLevel(level domain.IsolationLevel) sql.IsolationLevel {
	switch level {
	case domain.IsolationRepeatableRead:
		return sql.LevelRepeatableRead
	case domain.IsolationSerializable:
		return sql.LevelSerializable
	default:
		return sql.LevelReadCommitted
	}
}

// classifyTxError приводит ошибки ожидания блокировки к domain.ErrLockWaitTimeout.
func classifyTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return fmt.Errorf("%w: %v", domain.ErrLockWaitTimeout, err)
	}
	return err
}

var (
	_ domain.InventoryStore  = (*InventoryStore)(nil)
	_ domain.InventoryReader = (*InventoryStore)(nil)
)
