package catalog_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
	"github.com/vladislavdragonenkov/inventory-sync/internal/metrics"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/catalog"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/upsert"
	"github.com/vladislavdragonenkov/inventory-sync/internal/storage/memory"
)

func ptr[T any](v T) *T { return &v }

func pax(code string, remaining int, final, original float64) domain.PaxPayload {
	typ, _ := json.Marshal(code)
	return domain.PaxPayload{
		Type:      typ,
		Name:      ptr(code + " ticket"),
		Remaining: ptr(remaining),
		Price:     &domain.PricePayload{FinalPrice: final, OriginalPrice: original, CurrencyCode: "SGD"},
	}
}

func slot(id, date, start string, entries ...domain.PaxPayload) domain.SlotPayload {
	return domain.SlotPayload{
		StartDate:       date,
		StartTime:       start,
		CurrencyCode:    "SGD",
		ProviderSlotID:  id,
		Remaining:       10,
		PaxAvailability: entries,
	}
}

func seededService(t *testing.T) *catalog.Service {
	t.Helper()

	store := memory.NewInventoryStore()
	u := upsert.New(store, upsert.WithMetrics(metrics.NewSyncMetricsWithRegisterer(prometheus.NewRegistry())))
	ctx := context.Background()
	for _, p := range []domain.SlotPayload{
		slot("b-afternoon", "2024-03-05", "14:00", pax("ADULT", 3, 50, 60)),
		slot("a-morning", "2024-03-05", "09:00", pax("ADULT", 5, 80, 100)),
		// CHILD добавляется отдельным применением, чтобы порядок записей доступности был детерминирован.
		slot("a-morning", "2024-03-05", "09:00", pax("ADULT", 5, 80, 100), pax("CHILD", 2, 40, 50)),
		slot("c-next", "2024-03-06", "09:00"),
	} {
		_, err := u.Apply(ctx, 1, p)
		require.NoError(t, err)
	}
	_, err := u.Apply(ctx, 2, slot("other-product", "2024-03-05", "08:00", pax("ADULT", 1, 1, 1)))
	require.NoError(t, err)

	products := memory.NewProductRepository(domain.Product{ID: 1}, domain.Product{ID: 2}, domain.Product{ID: 3})
	return catalog.NewService(products, store)
}

func TestProductDates_FirstSlotPricePerDate(t *testing.T) {
	svc := seededService(t)

	dates, err := svc.ProductDates(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, dates.Dates, 2)

	assert.Equal(t, "2024-03-05", dates.Dates[0].Date)
	assert.Equal(t, domain.PriceView{FinalPrice: 80, OriginalPrice: 100, CurrencyCode: "SGD"}, dates.Dates[0].Price)
	assert.Equal(t, "2024-03-06", dates.Dates[1].Date)
	assert.Zero(t, dates.Dates[1].Price)
}

func TestProductDates_EmptyAndMissingProduct(t *testing.T) {
	svc := seededService(t)

	dates, err := svc.ProductDates(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, dates.Dates)

	_, err = svc.ProductDates(context.Background(), 99)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProductSlots_OrderedByStartTime(t *testing.T) {
	svc := seededService(t)

	result, err := svc.ProductSlots(context.Background(), 1, "2024-03-05")
	require.NoError(t, err)
	require.Len(t, result.Slots, 2)

	morning := result.Slots[0]
	assert.Equal(t, "09:00", morning.StartTime)
	assert.Equal(t, "2024-03-05T00:00:00Z", morning.StartDate)
	require.Len(t, morning.PaxAvailability, 2)
	assert.Equal(t, "ADULT", morning.PaxAvailability[0].Type)
	assert.Equal(t, 5, morning.PaxAvailability[0].Remaining)
	require.NotNil(t, morning.PaxAvailability[0].Name)
	assert.Equal(t, "ADULT ticket", *morning.PaxAvailability[0].Name)
	assert.Equal(t, "CHILD", morning.PaxAvailability[1].Type)

	assert.Equal(t, "14:00", result.Slots[1].StartTime)
}

func TestProductSlots_Validation(t *testing.T) {
	svc := seededService(t)
	ctx := context.Background()

	for _, raw := range []string{"", "05/03/2024", "tomorrow"} {
		_, err := svc.ProductSlots(ctx, 1, raw)
		require.ErrorIs(t, err, domain.ErrInvalidDate, "date %q", raw)
		assert.True(t, domain.IsValidationError(err))
	}

	_, err := svc.ProductSlots(ctx, 99, "2024-03-05")
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	empty, err := svc.ProductSlots(ctx, 1, "2024-04-01")
	require.NoError(t, err)
	assert.Empty(t, empty.Slots)
}
