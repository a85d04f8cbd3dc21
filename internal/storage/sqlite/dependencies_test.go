package sqlite

import (
	"context"
	"strings"
	"testing"

	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

func TestAddDependencyRejectsSelfAndDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreateTask(t, s, "a")
	b := mustCreateTask(t, s, "b")

	if err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: a.ID, ToTaskID: a.ID, Type: types.DepBlocks}); !storage.IsValidation(err) {
		t.Fatalf("expected validation error for self-loop, got %v", err)
	}

	edge := &types.Dependency{FromTaskID: a.ID, ToTaskID: b.ID, Type: types.DepBlocks}
	if err := s.AddDependency(ctx, edge); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	dup := &types.Dependency{FromTaskID: a.ID, ToTaskID: b.ID, Type: types.DepBlocks}
	if err := s.AddDependency(ctx, dup); !storage.IsConflict(err) {
		t.Fatalf("expected conflict for duplicate edge, got %v", err)
	}
	// Same endpoints, different type is a distinct edge.
	rel := &types.Dependency{FromTaskID: a.ID, ToTaskID: b.ID, Type: types.DepRelatesTo}
	if err := s.AddDependency(ctx, rel); err != nil {
		t.Fatalf("AddDependency relates-to: %v", err)
	}
}

func TestAddDependencyRejectsUnblockAtOnRelatesTo(t *testing.T) {
	s := newTestStore(t)
	a := mustCreateTask(t, s, "a")
	b := mustCreateTask(t, s, "b")
	err := s.AddDependency(context.Background(), &types.Dependency{
		FromTaskID: a.ID, ToTaskID: b.ID, Type: types.DepRelatesTo,
		UnblockAt: types.RoleWork})
	if !storage.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCycleDetectionNamesPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := mustCreateTask(t, s, "a")
	b := mustCreateTask(t, s, "b")
	c := mustCreateTask(t, s, "c")

	// a blocks b, b blocks c (mixing both edge spellings).
	if err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: a.ID, ToTaskID: b.ID, Type: types.DepBlocks}); err != nil {
		t.Fatalf("a->b: %v", err)
	}
	if err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: c.ID, ToTaskID: b.ID, Type: types.DepIsBlockedBy}); err != nil {
		t.Fatalf("c is-blocked-by b: %v", err)
	}

	// c blocks a closes the loop.
	err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: c.ID, ToTaskID: a.ID, Type: types.DepBlocks})
	if !storage.IsConflict(err) {
		t.Fatalf("expected cycle conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("error should mention the cycle: %v", err)
	}

	// RELATES_TO never participates in cycle checks.
	if err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: c.ID, ToTaskID: a.ID, Type: types.DepRelatesTo}); err != nil {
		t.Fatalf("relates-to should be exempt from cycles: %v", err)
	}
}

func TestBlockersOfResolvesBothSpellings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	target := mustCreateTask(t, s, "target")
	b1 := mustCreateTask(t, s, "b1")
	b2 := mustCreateTask(t, s, "b2")

	if err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: b1.ID, ToTaskID: target.ID, Type: types.DepBlocks}); err != nil {
		t.Fatalf("b1 blocks target: %v", err)
	}
	if err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: target.ID, ToTaskID: b2.ID, Type: types.DepIsBlockedBy,
		UnblockAt: types.RoleWork}); err != nil {
		t.Fatalf("target is-blocked-by b2: %v", err)
	}
	// Informational edge must not appear.
	other := mustCreateTask(t, s, "other")
	if err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: other.ID, ToTaskID: target.ID, Type: types.DepRelatesTo}); err != nil {
		t.Fatalf("relates-to: %v", err)
	}

	blockers, err := s.BlockersOf(ctx, target.ID)
	if err != nil {
		t.Fatalf("BlockersOf: %v", err)
	}
	if len(blockers) != 2 {
		t.Fatalf("expected 2 blockers, got %d", len(blockers))
	}
	byID := map[string]*types.Blocker{}
	for _, b := range blockers {
		byID[b.TaskID] = b
	}
	if byID[b1.ID] == nil || byID[b2.ID] == nil {
		t.Fatalf("wrong blocker set: %v", byID)
	}
	if got := byID[b1.ID].Edge.EffectiveUnblockAt(); got != types.RoleTerminal {
		t.Fatalf("default unblock role = %s, want TERMINAL", got)
	}
	if got := byID[b2.ID].Edge.EffectiveUnblockAt(); got != types.RoleWork {
		t.Fatalf("unblock role = %s, want WORK", got)
	}
}

func TestBlockersOfMissingBlockerFailsClosed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	target := mustCreateTask(t, s, "target")
	ghost := mustCreateTask(t, s, "ghost")
	if err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: ghost.ID, ToTaskID: target.ID, Type: types.DepBlocks}); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}
	// Remove the blocker row while keeping the edge.
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, ghost.ID); err != nil {
		t.Fatalf("raw delete: %v", err)
	}

	blockers, err := s.BlockersOf(ctx, target.ID)
	if err != nil {
		t.Fatalf("BlockersOf: %v", err)
	}
	if len(blockers) != 1 || !blockers[0].Missing {
		t.Fatalf("dangling edge should surface as missing blocker: %+v", blockers)
	}
	if blockers[0].TaskID != ghost.ID {
		t.Fatalf("missing blocker id = %q, want %q", blockers[0].TaskID, ghost.ID)
	}
}

func TestBlockedBy(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	blocker := mustCreateTask(t, s, "blocker")
	d1 := mustCreateTask(t, s, "d1")
	d2 := mustCreateTask(t, s, "d2")

	if err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: blocker.ID, ToTaskID: d1.ID, Type: types.DepBlocks}); err != nil {
		t.Fatalf("blocks: %v", err)
	}
	if err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: d2.ID, ToTaskID: blocker.ID, Type: types.DepIsBlockedBy}); err != nil {
		t.Fatalf("is-blocked-by: %v", err)
	}

	blocked, err := s.BlockedBy(ctx, blocker.ID)
	if err != nil {
		t.Fatalf("BlockedBy: %v", err)
	}
	if len(blocked) != 2 {
		t.Fatalf("expected 2 blocked tasks, got %d", len(blocked))
	}
}
