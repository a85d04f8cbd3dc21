package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	cfgDir := filepath.Join(dir, ConfigDirName)
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(cfgDir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
status_progression:
  tasks:
    flows:
      hotfix: [pending, in_progress, completed]
    tag_flow_mapping:
      urgent: hotfix
status_validation:
  allow_backward: false
auto_cascade:
  max_depth: 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	prog := cfg.For(types.KindTask)
	name, seq := prog.ActiveFlow([]string{"urgent"})
	if name != "hotfix" {
		t.Fatalf("expected hotfix flow, got %s", name)
	}
	// Underscored labels normalize to hyphens.
	if seq[1] != "in-progress" {
		t.Fatalf("expected normalized in-progress, got %q", seq[1])
	}
	if cfg.Validation.AllowBackward {
		t.Fatalf("allow_backward override lost")
	}
	if cfg.Validation.EnforceSequential != true {
		t.Fatalf("untouched default changed")
	}
	if cfg.Cascade.EffectiveMaxDepth() != 2 {
		t.Fatalf("expected max depth 2, got %d", cfg.Cascade.EffectiveMaxDepth())
	}
}

func TestLoadRejectsUnknownFlowStatus(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
status_progression:
  tasks:
    default_flow: [pending, shipping, completed]
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "shipping") {
		t.Fatalf("expected allowed_statuses error naming shipping, got %v", err)
	}
}

func TestLoadRejectsUnknownRole(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
status_progression:
  tasks:
    allowed_statuses: [pending, completed]
    default_flow: [pending, completed]
    status_roles:
      pending: queue
      completed: finished
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "not a valid role") {
		t.Fatalf("expected role error, got %v", err)
	}
}

func TestLoadRejectsTagMappingToMissingFlow(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
status_progression:
  tasks:
    tag_flow_mapping:
      urgent: hotfix
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "hotfix") {
		t.Fatalf("expected missing flow error, got %v", err)
	}
}

func TestEffectiveMaxDepthCaps(t *testing.T) {
	for _, tc := range []struct{ in, want int }{
		{0, 3}, {1, 1}, {3, 3}, {7, 3}, {-1, 3},
	} {
		c := CascadeConfig{MaxDepth: tc.in}
		if got := c.EffectiveMaxDepth(); got != tc.want {
			t.Fatalf("MaxDepth %d: expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, "")
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if got := Discover(nested); got != path {
		t.Fatalf("expected %s, got %s", path, got)
	}
	if got := Discover(t.TempDir()); got != "" {
		t.Fatalf("expected no discovery, got %s", got)
	}
}

func TestLoadFromDirMissingConfigYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFromDir: %v", err)
	}
	if !cfg.Validation.EnforceSequential || len(cfg.For(types.KindTask).DefaultFlow) == 0 {
		t.Fatalf("defaults not applied")
	}
}
