package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

func seedProductForIntegrationTest(t *testing.T, store *Store) domain.Product {
	t.Helper()

	product, err := NewProductRepository(store).Insert(context.Background(), domain.Product{
		Name:          "Harbour cruise",
		AvailableDays: domain.NewDaySet(domain.Monday, domain.Friday),
		TimeSlotType:  "MULTIPLE",
	})
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	return product
}

func integrationTxOptions() domain.TxOptions {
	return domain.TxOptions{
		Isolation: domain.IsolationReadCommitted,
		Timeout:   10 * time.Second,
		MaxWait:   2 * time.Second,
	}
}

func TestProductRepository_ListForSync(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	seeded := seedProductForIntegrationTest(t, store)

	products, err := NewProductRepository(store).ListForSync(context.Background())
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	if products[0].ID != seeded.ID || products[0].AvailableDays != seeded.AvailableDays {
		t.Fatalf("unexpected product: %+v", products[0])
	}
}

func TestInventoryStore_UpsertIsIdempotent(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	product := seedProductForIntegrationTest(t, store)
	inventory := NewInventoryStore(store)
	ctx := context.Background()

	apply := func(slotRemaining, paxRemaining int) domain.Slot {
		t.Helper()
		var saved domain.Slot
		err := inventory.WithinTx(ctx, integrationTxOptions(), func(ctx context.Context, tx domain.InventoryTx) error {
			var err error
			saved, err = tx.UpsertSlot(ctx, domain.Slot{
				ProductID:      product.ID,
				StartDate:      time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
				StartTime:      "09:00",
				EndTime:        "10:00",
				ProviderSlotID: "slot-1",
				Remaining:      slotRemaining,
				CurrencyCode:   "SGD",
			})
			if err != nil {
				return err
			}

			var wg sync.WaitGroup
			errs := make(chan error, 2)
			for _, code := range []string{"ADULT", "CHILD"} {
				wg.Add(1)
				go func() {
					defer wg.Done()
					pax, err := tx.UpsertPax(ctx, domain.Pax{Type: code})
					if err != nil {
						errs <- err
						return
					}
					_, err = tx.UpsertPaxAvailability(ctx, domain.PaxAvailability{
						SlotID:        saved.ID,
						PaxID:         pax.ID,
						Remaining:     paxRemaining,
						FinalPrice:    90,
						OriginalPrice: 100,
						CurrencyCode:  "SGD",
					})
					if err != nil {
						errs <- err
					}
				}()
			}
			wg.Wait()
			close(errs)
			return <-errs
		})
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
		return saved
	}

	first := apply(10, 5)
	second := apply(3, 1)
	if first.ID != second.ID {
		t.Fatalf("expected stable slot id, got %d and %d", first.ID, second.ID)
	}

	slot, err := inventory.SlotByProviderID(ctx, "slot-1")
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	if slot.Remaining != 3 {
		t.Fatalf("expected remaining 3, got %d", slot.Remaining)
	}

	list, err := inventory.ListPaxAvailability(ctx, slot.ID)
	if err != nil {
		t.Fatalf("list availability: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 availability rows, got %d", len(list))
	}
	for _, av := range list {
		if av.Remaining != 1 || av.Discount != 0 {
			t.Fatalf("unexpected availability: %+v", av)
		}
	}
}

func TestInventoryStore_RollbackOnError(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	product := seedProductForIntegrationTest(t, store)
	inventory := NewInventoryStore(store)
	ctx := context.Background()
	boom := errors.New("boom")

	err := inventory.WithinTx(ctx, integrationTxOptions(), func(ctx context.Context, tx domain.InventoryTx) error {
		if _, err := tx.UpsertSlot(ctx, domain.Slot{
			ProductID:      product.ID,
			StartDate:      time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			StartTime:      "09:00",
			ProviderSlotID: "slot-rollback",
			Remaining:      1,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := inventory.SlotByProviderID(ctx, "slot-rollback"); !errors.Is(err, domain.ErrSlotNotFound) {
		t.Fatalf("expected slot to be rolled back, got %v", err)
	}
}

func TestCronJobRepository_Postgres(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCronJobRepository(store)
	ctx := context.Background()

	jobs, total, err := repo.List(ctx, 0, 10)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if total != 3 || len(jobs) != 3 {
		t.Fatalf("expected 3 seeded jobs, got %d (total %d)", len(jobs), total)
	}

	if err := repo.SetEnabled(ctx, domain.JobSyncToday, false); err != nil {
		t.Fatalf("disable job: %v", err)
	}
	at := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	if err := repo.SetLastExecuted(ctx, domain.JobSyncToday, at); err != nil {
		t.Fatalf("set last executed: %v", err)
	}

	job, err := repo.Get(ctx, domain.JobSyncToday)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Enabled || job.LastExecuted == nil || !job.LastExecuted.Equal(at) {
		t.Fatalf("unexpected job state: %+v", job)
	}

	if _, err := repo.Get(ctx, "unknown"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if err := repo.SetEnabled(ctx, "unknown", true); !errors.Is(err, domain.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestIsolationLevelMapping(t *testing.T) {
	if isolationLevel("") != isolationLevel(domain.IsolationReadCommitted) {
		t.Fatal("expected read committed by default")
	}
	if isolationLevel(domain.IsolationSerializable) == isolationLevel(domain.IsolationReadCommitted) {
		t.Fatal("expected serializable to differ from read committed")
	}
}

func TestInventoryStore_UpsertPaxKeepsMissingFields(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	inventory := NewInventoryStore(store)
	ctx := context.Background()
	name, desc, minPax, maxPax := "Adult", "12+", 1, 9

	upsert := func(p domain.Pax) domain.Pax {
		t.Helper()
		var saved domain.Pax
		err := inventory.WithinTx(ctx, integrationTxOptions(), func(ctx context.Context, tx domain.InventoryTx) error {
			var err error
			saved, err = tx.UpsertPax(ctx, p)
			return err
		})
		if err != nil {
			t.Fatalf("upsert pax: %v", err)
		}
		return saved
	}

	first := upsert(domain.Pax{Type: "ADULT", Name: &name, Description: &desc, Min: &minPax, Max: &maxPax})
	second := upsert(domain.Pax{Type: "ADULT"})
	if second.ID != first.ID {
		t.Fatalf("expected stable pax id, got %d and %d", first.ID, second.ID)
	}

	var (
		gotName, gotDesc string
		gotMin, gotMax   int
	)
	err := store.DB().QueryRowContext(ctx,
		`SELECT name, description, min, max FROM pax WHERE type = 'ADULT'`,
	).Scan(&gotName, &gotDesc, &gotMin, &gotMax)
	if err != nil {
		t.Fatalf("select pax: %v", err)
	}
	if gotName != "Adult" || gotDesc != "12+" || gotMin != 1 || gotMax != 9 {
		t.Fatalf("expected stored metadata to survive, got %q %q %d %d", gotName, gotDesc, gotMin, gotMax)
	}
	if second.Name == nil || *second.Name != "Adult" {
		t.Fatalf("expected returned pax to carry stored name, got %v", second.Name)
	}
}

func TestInventoryStore_ListProductSlots(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	product := seedProductForIntegrationTest(t, store)
	inventory := NewInventoryStore(store)
	ctx := context.Background()
	march5 := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	writeSlot := func(providerID string, date time.Time, start string, paxTypes ...string) {
		t.Helper()
		err := inventory.WithinTx(ctx, integrationTxOptions(), func(ctx context.Context, tx domain.InventoryTx) error {
			slot, err := tx.UpsertSlot(ctx, domain.Slot{
				ProductID:      product.ID,
				StartDate:      date,
				StartTime:      start,
				ProviderSlotID: providerID,
				Remaining:      4,
				CurrencyCode:   "SGD",
			})
			if err != nil {
				return err
			}
			for _, code := range paxTypes {
				pax, err := tx.UpsertPax(ctx, domain.Pax{Type: code})
				if err != nil {
					return err
				}
				if _, err := tx.UpsertPaxAvailability(ctx, domain.PaxAvailability{
					SlotID: slot.ID, PaxID: pax.ID, Remaining: 2, FinalPrice: 80, OriginalPrice: 100, CurrencyCode: "SGD",
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("write slot %s: %v", providerID, err)
		}
	}

	writeSlot("afternoon", march5, "14:00", "ADULT")
	writeSlot("morning", march5, "09:00", "ADULT", "CHILD")
	writeSlot("next-day", march5.AddDate(0, 0, 1), "09:00")

	onDate, err := inventory.ListProductSlots(ctx, product.ID, march5)
	if err != nil {
		t.Fatalf("list slots on date: %v", err)
	}
	if len(onDate) != 2 || onDate[0].Slot.StartTime != "09:00" || onDate[1].Slot.StartTime != "14:00" {
		t.Fatalf("unexpected slots on date: %+v", onDate)
	}
	if len(onDate[0].Pax) != 2 || onDate[0].Pax[0].Pax.Type != "ADULT" || onDate[0].Pax[1].Pax.Type != "CHILD" {
		t.Fatalf("unexpected pax for morning slot: %+v", onDate[0].Pax)
	}

	all, err := inventory.ListProductSlots(ctx, product.ID, time.Time{})
	if err != nil {
		t.Fatalf("list all slots: %v", err)
	}
	if len(all) != 3 || len(all[2].Pax) != 0 {
		t.Fatalf("unexpected slots across dates: %+v", all)
	}

	if _, err := NewProductRepository(store).Get(ctx, product.ID+1000); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
