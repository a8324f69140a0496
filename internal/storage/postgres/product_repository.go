package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

// ProductRepository читает каталог продуктов.
type ProductRepository struct {
	store *Store
}

// NewProductRepository создаёт репозиторий продуктов.
func NewProductRepository(store *Store) *ProductRepository {
	return &ProductRepository{store: store}
}

// ListForSync возвращает все продукты в порядке id.
func (r *ProductRepository) ListForSync(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, name, array_to_string(available_days, ','), time_slot_type
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		var (
			p    domain.Product
			days string
		)
		if err := rows.Scan(&p.ID, &p.Name, &days, &p.TimeSlotType); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.AvailableDays, err = parseAvailableDays(days)
		if err != nil {
			return nil, fmt.Errorf("product %d: %w", p.ID, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// Get возвращает продукт по id.
func (r *ProductRepository) Get(ctx context.Context, id int64) (domain.Product, error) {
	var (
		p    domain.Product
		days string
	)
	err := r.store.db.QueryRowContext(ctx, `
		SELECT id, name, array_to_string(available_days, ','), time_slot_type
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &days, &p.TimeSlotType)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	if p.AvailableDays, err = parseAvailableDays(days); err != nil {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, err)
	}
	return p, nil
}

// Insert добавляет продукт; используется утилитами наполнения и тестами.
func (r *ProductRepository) Insert(ctx context.Context, p domain.Product) (domain.Product, error) {
	err := r.store.db.QueryRowContext(ctx, `
		INSERT INTO products (name, available_days, time_slot_type)
		VALUES ($1, string_to_array($2, ','), $3)
		RETURNING id
	`, p.Name, strings.Join(p.AvailableDays.Strings(), ","), p.TimeSlotType).Scan(&p.ID)
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func parseAvailableDays(raw string) (domain.DaySet, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return domain.ParseDaySet(strings.Split(raw, ","))
}

var (
	_ domain.ProductRepository = (*ProductRepository)(nil)
	_ domain.ProductLookup     = (*ProductRepository)(nil)
)
