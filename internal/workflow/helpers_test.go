package workflow

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/untoldecay/TaskOrchestrator/internal/config"
	"github.com/untoldecay/TaskOrchestrator/internal/storage/sqlite"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testConfig() *config.Config { return config.Default() }

// validSummary is within the completion bounds.
var validSummary = strings.Repeat("s", 350)

func createTask(t *testing.T, s *sqlite.Store, task *types.Task) *types.Task {
	t.Helper()
	if task.Status == "" {
		task.Status = "pending"
	}
	if err := s.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

func createFeature(t *testing.T, s *sqlite.Store, f *types.Feature) *types.Feature {
	t.Helper()
	if f.Status == "" {
		f.Status = "draft"
	}
	if err := s.CreateFeature(context.Background(), f); err != nil {
		t.Fatalf("CreateFeature: %v", err)
	}
	return f
}

func createProject(t *testing.T, s *sqlite.Store, p *types.Project) *types.Project {
	t.Helper()
	if p.Status == "" {
		p.Status = "planning"
	}
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func setStatus(t *testing.T, s *sqlite.Store, kind types.EntityKind, id, status string) {
	t.Helper()
	var err error
	switch kind {
	case types.KindProject:
		_, err = s.UpdateProject(context.Background(), id, map[string]any{"status": status})
	case types.KindFeature:
		_, err = s.UpdateFeature(context.Background(), id, map[string]any{"status": status})
	case types.KindTask:
		_, err = s.UpdateTask(context.Background(), id, map[string]any{"status": status})
	}
	if err != nil {
		t.Fatalf("set %s %s to %s: %v", types.WireName(kind), id, status, err)
	}
}
