package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

func noEnv(string) (string, bool) { return "", false }

func TestParseRequest(t *testing.T) {
	req, err := parseRequest([]string{"-job=sync_today", "-force"})
	if err != nil {
		t.Fatalf("parseRequest: %v", err)
	}
	if req.Job != "sync_today" || !req.Force || req.Days != 0 {
		t.Fatalf("unexpected request %+v", req)
	}

	for _, args := range [][]string{nil, {"-job=sync_today", "-days=3"}, {"-days=x"}} {
		if _, err := parseRequest(args); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestRun_PrintsResult(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"-days=3"}, noEnv, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	var result domain.SyncResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if result.Horizon != 3 || result.RunID == "" {
		t.Fatalf("unexpected result %+v", result)
	}
}
