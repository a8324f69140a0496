// Package catalog отдаёт синхронизированный инвентарь продуктов для чтения.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

// Service читает даты и слоты продукта.
type Service struct {
	products  domain.ProductLookup
	inventory domain.InventoryReader
}

// NewService создаёт Service.
func NewService(products domain.ProductLookup, inventory domain.InventoryReader) *Service {
	return &Service{products: products, inventory: inventory}
}

// ProductDates возвращает даты с синхронизированными слотами по возрастанию.
// Цена даты берётся из первой записи доступности первого слота этой даты; без записей цена нулевая.
func (s *Service) ProductDates(ctx context.Context, productID int64) (domain.ProductDates, error) {
	if _, err := s.products.Get(ctx, productID); err != nil {
		return domain.ProductDates{}, err
	}

	slots, err := s.inventory.ListProductSlots(ctx, productID, time.Time{})
	if err != nil {
		return domain.ProductDates{}, fmt.Errorf("product %d dates: %w", productID, err)
	}

	dates := make([]domain.DatePrice, 0)
	seen := make(map[string]struct{})
	for _, slot := range slots {
		day := slot.Slot.StartDate.Format(domain.DateLayout)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}

		entry := domain.DatePrice{Date: day}
		if len(slot.Pax) > 0 {
			entry.Price = domain.PriceOf(slot.Pax[0].Availability)
		}
		dates = append(dates, entry)
	}
	return domain.ProductDates{Dates: dates}, nil
}

// ProductSlots возвращает слоты продукта на дату YYYY-MM-DD по времени начала.
func (s *Service) ProductSlots(ctx context.Context, productID int64, rawDate string) (domain.ProductSlots, error) {
	date, err := domain.ParseDate(rawDate)
	if err != nil {
		return domain.ProductSlots{}, err
	}
	if _, err := s.products.Get(ctx, productID); err != nil {
		return domain.ProductSlots{}, err
	}

	slots, err := s.inventory.ListProductSlots(ctx, productID, date)
	if err != nil {
		return domain.ProductSlots{}, fmt.Errorf("product %d slots: %w", productID, err)
	}

	views := make([]domain.SlotView, 0, len(slots))
	for _, slot := range slots {
		view := domain.SlotView{
			StartTime:       slot.Slot.StartTime,
			StartDate:       slot.Slot.StartDate.UTC().Format(time.RFC3339),
			Remaining:       slot.Slot.Remaining,
			PaxAvailability: make([]domain.PaxView, 0, len(slot.Pax)),
		}
		for _, p := range slot.Pax {
			view.PaxAvailability = append(view.PaxAvailability, domain.PaxView{
				Type:        p.Pax.Type,
				Name:        p.Pax.Name,
				Description: p.Pax.Description,
				Min:         p.Pax.Min,
				Max:         p.Pax.Max,
				Remaining:   p.Availability.Remaining,
				Price:       domain.PriceOf(p.Availability),
			})
		}
		views = append(views, view)
	}
	return domain.ProductSlots{Slots: views}, nil
}
