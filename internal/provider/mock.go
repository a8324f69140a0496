package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

// MockProvider: детерминированная заглушка провайдера для локального запуска и тестов.
// Если для продукта заданы Slots, отдаются они; иначе генерируются два слота на дату.
type MockProvider struct {
	mu sync.Mutex

	// Err возвращается на любой запрос, если задан.
	Err error
	// FailProducts: ошибки для отдельных продуктов.
	FailProducts map[int64]error
	// Slots: фиксированные ответы по продукту.
	Slots map[int64][]domain.SlotPayload

	calls []MockCall
}

// MockCall фиксирует один вызов провайдера.
type MockCall struct {
	ProductID int64
	Date      string
}

// NewMockProvider возвращает mock с успешным сценарием по умолчанию.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		FailProducts: make(map[int64]error),
		Slots:        make(map[int64][]domain.SlotPayload),
	}
}

// FetchInventory возвращает заранее настроенный ответ и запоминает вызов.
func (m *MockProvider) FetchInventory(ctx context.Context, productID int64, date time.Time) ([]domain.SlotPayload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	day := date.Format(domain.DateLayout)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{ProductID: productID, Date: day})
	if m.Err != nil {
		return nil, m.Err
	}
	if err, ok := m.FailProducts[productID]; ok && err != nil {
		return nil, err
	}
	if slots, ok := m.Slots[productID]; ok {
		return append([]domain.SlotPayload(nil), slots...), nil
	}
	return generateSlots(productID, day), nil
}

// Calls возвращает копию списка вызовов.
func (m *MockProvider) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount возвращает количество вызовов.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func generateSlots(productID int64, day string) []domain.SlotPayload {
	slots := make([]domain.SlotPayload, 0, 2)
	for _, start := range []string{"09:00", "14:00"} {
		id := fmt.Sprintf("mock-%d-%s-%s", productID, day, start)
		remaining := int(seed(id) % 50)
		slots = append(slots, domain.SlotPayload{
			StartDate:      day,
			StartTime:      start,
			EndTime:        "",
			CurrencyCode:   "SGD",
			ProviderSlotID: id,
			Remaining:      remaining,
			PaxAvailability: []domain.PaxPayload{
				mockPax("ADULT", "Adult", remaining, 50),
				mockPax("CHILD", "Child", remaining/2, 30),
			},
		})
	}
	return slots
}

func mockPax(code, name string, remaining int, price float64) domain.PaxPayload {
	typ, _ := json.Marshal(code)
	return domain.PaxPayload{
		Type:      typ,
		Name:      &name,
		Remaining: &remaining,
		Price: &domain.PricePayload{
			FinalPrice:    price,
			OriginalPrice: price,
			CurrencyCode:  "SGD",
		},
	}
}

func seed(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

var _ domain.InventoryProvider = (*MockProvider)(nil)
