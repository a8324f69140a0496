package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

func onceConfig() Config {
	cfg := DefaultConfig()
	cfg.ProviderMinInterval = time.Millisecond
	return cfg
}

func TestRunOnce_RequiresExactlyOneTarget(t *testing.T) {
	for _, req := range []OnceRequest{{}, {Job: "sync_today", Days: 3}} {
		if _, err := RunOnce(context.Background(), onceConfig(), req); err == nil {
			t.Fatalf("expected error for %+v", req)
		}
	}
}

func TestRunOnce_UnknownJob(t *testing.T) {
	_, err := RunOnce(context.Background(), onceConfig(), OnceRequest{Job: "sync_forever"})
	if !errors.Is(err, domain.ErrInvalidJobName) {
		t.Fatalf("expected ErrInvalidJobName, got %v", err)
	}
}

func TestRunOnce_InvalidHorizon(t *testing.T) {
	_, err := RunOnce(context.Background(), onceConfig(), OnceRequest{Days: 61})
	if !errors.Is(err, domain.ErrInvalidHorizon) {
		t.Fatalf("expected ErrInvalidHorizon, got %v", err)
	}
}

func TestRunOnce_MemoryJob(t *testing.T) {
	result, err := RunOnce(context.Background(), onceConfig(), OnceRequest{Job: string(domain.JobSyncNext7Days), Force: true})
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	// В памяти каталог пуст: цикл проходит без запросов к провайдеру.
	if result.Horizon != 7 || result.Products != 0 || !result.Forced {
		t.Fatalf("unexpected result: %+v", result)
	}
}
