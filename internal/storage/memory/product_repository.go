package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

// productRepositoryInMemory: in-memory каталог продуктов.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[int64]domain.Product
}

// ProductRepository: in-memory каталог с возможностью наполнения.
type ProductRepository interface {
	domain.ProductRepository
	domain.ProductLookup
	Put(product domain.Product)
}

// NewProductRepository возвращает репозиторий, заполненный переданными продуктами.
func NewProductRepository(products ...domain.Product) ProductRepository {
	r := &productRepositoryInMemory{
		items: make(map[int64]domain.Product, len(products)),
	}
	for _, p := range products {
		r.items[p.ID] = p
	}
	return r
}

// Put добавляет или заменяет продукт.
func (r *productRepositoryInMemory) Put(product domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[product.ID] = product
}

// ListForSync возвращает продукты в порядке возрастания ID.
func (r *productRepositoryInMemory) ListForSync(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.items))
	for _, p := range r.items {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Get возвращает продукт по id.
func (r *productRepositoryInMemory) Get(ctx context.Context, id int64) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

var (
	_ domain.ProductRepository = (*productRepositoryInMemory)(nil)
	_ domain.ProductLookup     = (*productRepositoryInMemory)(nil)
)
