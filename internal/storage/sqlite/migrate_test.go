package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/untoldecay/TaskOrchestrator/internal/storage/sqlite/migrations"
)

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := New(ctx, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening re-runs Migrate against the applied history.
	s, err = New(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s.Close() }()

	applied, err := s.Repair(ctx, false)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	steps := migrations.All()
	if len(applied) != len(steps) {
		t.Fatalf("applied %d steps, want %d", len(applied), len(steps))
	}
	for i, m := range applied {
		if m.Version != steps[i].Version || m.Drift {
			t.Fatalf("step %d: version=%d drift=%v", i, m.Version, m.Drift)
		}
	}
}

func TestRepairDetectsAndFixesDrift(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.db.ExecContext(ctx,
		`UPDATE schema_history SET checksum = 'stale' WHERE version = 1`); err != nil {
		t.Fatalf("seed drift: %v", err)
	}

	applied, err := s.Repair(ctx, false)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if !applied[0].Drift {
		t.Fatal("expected drift on version 1")
	}

	applied, err = s.Repair(ctx, true)
	if err != nil {
		t.Fatalf("Repair fix: %v", err)
	}
	if applied[0].Drift {
		t.Fatal("drift should clear after fix")
	}
	if applied[0].Checksum != migrations.All()[0].Checksum() {
		t.Fatal("checksum not rewritten")
	}
}
