package upsert_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
	"github.com/vladislavdragonenkov/inventory-sync/internal/metrics"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/upsert"
	"github.com/vladislavdragonenkov/inventory-sync/internal/storage/memory"
)

func ptr[T any](v T) *T { return &v }

func paxEntry(rawType string, remaining int, discount *float64) domain.PaxPayload {
	return domain.PaxPayload{
		Type:      json.RawMessage(rawType),
		Name:      ptr("Adult"),
		Min:       ptr(1),
		Max:       ptr(10),
		Remaining: ptr(remaining),
		Price: &domain.PricePayload{
			FinalPrice:    90,
			OriginalPrice: 100,
			CurrencyCode:  "SGD",
			Discount:      discount,
		},
	}
}

func newPayload(remaining int, pax ...domain.PaxPayload) domain.SlotPayload {
	return domain.SlotPayload{
		StartDate:       "2024-01-04",
		StartTime:       "09:00",
		EndTime:         "10:00",
		CurrencyCode:    "SGD",
		ProviderSlotID:  "slot-1",
		Remaining:       remaining,
		PaxAvailability: pax,
	}
}

func newUpserter(store domain.InventoryStore) *upsert.Upserter {
	return upsert.New(store, upsert.WithMetrics(metrics.NewSyncMetricsWithRegisterer(prometheus.NewRegistry())))
}

func TestApply_IsIdempotent(t *testing.T) {
	store := memory.NewInventoryStore()
	u := newUpserter(store)
	ctx := context.Background()

	first, err := u.Apply(ctx, 1, newPayload(10, paxEntry(`"ADULT"`, 5, ptr(10.0))))
	require.NoError(t, err)
	require.Equal(t, 1, first.PaxApplied)

	changed := newPayload(3, paxEntry(`"ADULT"`, 2, ptr(10.0)))
	changed.StartTime = "15:00"
	second, err := u.Apply(ctx, 1, changed)
	require.NoError(t, err)
	assert.Equal(t, first.Slot.ID, second.Slot.ID)

	slots, pax, availability := store.Counts()
	assert.Equal(t, 1, slots)
	assert.Equal(t, 1, pax)
	assert.Equal(t, 1, availability)

	slot, err := store.SlotByProviderID(ctx, "slot-1")
	require.NoError(t, err)
	assert.Equal(t, 3, slot.Remaining)
	assert.Equal(t, "09:00", slot.StartTime)

	list, err := store.ListPaxAvailability(ctx, slot.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Remaining)
	assert.Equal(t, 10.0, list[0].Discount)
}

func TestApply_SkipsNonStringPaxType(t *testing.T) {
	store := memory.NewInventoryStore()
	u := newUpserter(store)

	result, err := u.Apply(context.Background(), 1, newPayload(10,
		paxEntry(`"ADULT"`, 5, nil),
		paxEntry(`42`, 5, nil),
		paxEntry(`{"code":"CHILD"}`, 5, nil),
		paxEntry(`null`, 5, nil),
	))
	require.NoError(t, err)
	assert.Equal(t, 1, result.PaxApplied)
	assert.Equal(t, 3, result.PaxSkipped)

	_, pax, availability := store.Counts()
	assert.Equal(t, 1, pax)
	assert.Equal(t, 1, availability)
}

func TestApply_MissingDiscountDefaultsToZero(t *testing.T) {
	store := memory.NewInventoryStore()
	u := newUpserter(store)
	ctx := context.Background()

	result, err := u.Apply(ctx, 1, newPayload(10, paxEntry(`"CHILD"`, 5, nil)))
	require.NoError(t, err)

	list, err := store.ListPaxAvailability(ctx, result.Slot.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Zero(t, list[0].Discount)
	assert.Equal(t, 90.0, list[0].FinalPrice)
	assert.Equal(t, "SGD", list[0].CurrencyCode)
}

func TestApply_RollsBackWholeSlotOnFailure(t *testing.T) {
	store := memory.NewInventoryStore()
	store.SetFailureHook(func(op, key string) error {
		if op == "pax" && key == "CHILD" {
			return errors.New("constraint violation")
		}
		return nil
	})
	u := newUpserter(store)
	ctx := context.Background()

	_, err := u.Apply(ctx, 1, newPayload(10,
		paxEntry(`"ADULT"`, 5, nil),
		paxEntry(`"CHILD"`, 5, nil),
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHILD")

	_, err = store.SlotByProviderID(ctx, "slot-1")
	assert.ErrorIs(t, err, domain.ErrSlotNotFound)
	slots, pax, availability := store.Counts()
	assert.Zero(t, slots+pax+availability)
}

func TestApply_InvalidPayload(t *testing.T) {
	store := memory.NewInventoryStore()
	u := newUpserter(store)

	payload := newPayload(10)
	payload.ProviderSlotID = " "
	_, err := u.Apply(context.Background(), 1, payload)
	require.ErrorIs(t, err, domain.ErrSlotPayloadInvalid)

	slots, _, _ := store.Counts()
	assert.Zero(t, slots)
}

func TestWithTxOptions_MergesNonZeroFields(t *testing.T) {
	u := upsert.New(memory.NewInventoryStore(), upsert.WithTxOptions(domain.TxOptions{MaxWait: 1}))
	opts := u.TxOptions()
	assert.Equal(t, domain.IsolationReadCommitted, opts.Isolation)
	assert.Equal(t, upsert.DefaultTxOptions().Timeout, opts.Timeout)
	assert.EqualValues(t, 1, opts.MaxWait)
}

func TestApply_PaxWithoutPriceOrRemainingKeepsStoredRows(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "no price", raw: `{"type":"ADULT","remaining":1}`},
		{name: "no remaining", raw: `{"type":"ADULT","price":{"finalPrice":1,"originalPrice":1,"currencyCode":"USD"}}`},
		{name: "type only", raw: `{"type":"ADULT"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewInventoryStore()
			u := newUpserter(store)
			ctx := context.Background()

			seeded, err := u.Apply(ctx, 1, newPayload(10, paxEntry(`"ADULT"`, 5, nil)))
			require.NoError(t, err)

			var sparse domain.PaxPayload
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &sparse))

			_, err = u.Apply(ctx, 1, newPayload(4, sparse))
			require.ErrorIs(t, err, domain.ErrSlotPayloadInvalid)

			slot, err := store.SlotByProviderID(ctx, "slot-1")
			require.NoError(t, err)
			assert.Equal(t, 10, slot.Remaining)

			list, err := store.ListPaxAvailability(ctx, seeded.Slot.ID)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, 5, list[0].Remaining)
			assert.Equal(t, 90.0, list[0].FinalPrice)
			assert.Equal(t, 100.0, list[0].OriginalPrice)
			assert.Equal(t, "SGD", list[0].CurrencyCode)
		})
	}
}
