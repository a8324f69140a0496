package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

func TestMockProvider_GeneratesDeterministicSlots(t *testing.T) {
	m := NewMockProvider()
	date := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	first, err := m.FetchInventory(context.Background(), 7, date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := m.FetchInventory(context.Background(), 7, date)

	if len(first) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(first))
	}
	for i := range first {
		if first[i].ProviderSlotID != second[i].ProviderSlotID || first[i].Remaining != second[i].Remaining {
			t.Fatalf("slot %d is not deterministic", i)
		}
		if err := first[i].Validate(); err != nil {
			t.Fatalf("generated slot is invalid: %v", err)
		}
		if code, ok := first[i].PaxAvailability[0].TypeCode(); !ok || code != "ADULT" {
			t.Fatalf("unexpected pax type %q", code)
		}
	}
	if m.CallCount() != 2 {
		t.Fatalf("expected 2 calls, got %d", m.CallCount())
	}
	if calls := m.Calls(); calls[0].ProductID != 7 || calls[0].Date != "2024-03-04" {
		t.Fatalf("unexpected call record: %+v", calls[0])
	}
}

func TestMockProvider_ConfiguredResponses(t *testing.T) {
	m := NewMockProvider()
	boom := errors.New("boom")
	m.FailProducts[1] = boom
	m.Slots[2] = []domain.SlotPayload{{ProviderSlotID: "fixed"}}

	if _, err := m.FetchInventory(context.Background(), 1, time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	slots, err := m.FetchInventory(context.Background(), 2, time.Now())
	if err != nil || len(slots) != 1 || slots[0].ProviderSlotID != "fixed" {
		t.Fatalf("unexpected response: %+v %v", slots, err)
	}

	m.Err = domain.ErrProviderUnavailable
	if _, err := m.FetchInventory(context.Background(), 2, time.Now()); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}
