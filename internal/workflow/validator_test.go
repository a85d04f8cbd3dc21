package workflow

import (
	"context"
	"strings"
	"testing"

	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

func TestValidatorFlowRules(t *testing.T) {
	s := newTestStore(t)
	v := NewValidator(testConfig(), s)
	ctx := context.Background()

	check := func(current, target string, wantOK bool) {
		t.Helper()
		res, err := v.Validate(ctx, types.KindTask, "", current, target, nil)
		if err != nil {
			t.Fatalf("Validate(%s -> %s): %v", current, target, err)
		}
		if res.OK != wantOK {
			t.Errorf("Validate(%s -> %s) = %v (%s), want %v", current, target, res.OK, res.Reason, wantOK)
		}
	}

	check("pending", "in-progress", true)   // sequential successor
	check("pending", "completed", false)    // queue cannot jump to completed
	check("in-progress", "completed", true) // review stop is optional
	check("testing", "completed", true)
	check("pending", "cancelled", true) // emergency
	check("pending", "on-hold", true)      // emergency
	check("in-progress", "pending", true)  // backward allowed by default
	check("pending", "nonsense", false)    // unknown status
	check("completed", "pending", false)   // terminal lock
	check("completed", "completed", false) // terminal is sticky even for itself
	check("in-progress", "in-progress", true)
	check("blocked", "in-progress", true) // re-entry from emergency state
}

func TestValidatorSkipMessageNamesNextStatus(t *testing.T) {
	s := newTestStore(t)
	v := NewValidator(testConfig(), s)
	res, err := v.Validate(context.Background(), types.KindTask, "", "pending", "testing", nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.OK {
		t.Fatal("skip should be rejected")
	}
	if !strings.Contains(res.Reason, "Must transition through: in-progress") {
		t.Fatalf("reason should name the next status, got %q", res.Reason)
	}
	if len(res.Suggestions) == 0 {
		t.Fatal("expected a fix suggestion")
	}
}

func TestValidatorDisabledToggles(t *testing.T) {
	cfg := testConfig()
	cfg.Validation.AllowBackward = false
	cfg.Validation.AllowEmergency = false
	v := NewValidator(cfg, nil)
	ctx := context.Background()

	res, _ := v.Validate(ctx, types.KindTask, "", "in-progress", "pending", nil)
	if res.OK {
		t.Fatal("backward move should fail with allow_backward off")
	}
	res, _ = v.Validate(ctx, types.KindTask, "", "pending", "blocked", nil)
	if res.OK {
		t.Fatal("emergency move should fail with allow_emergency off")
	}

	cfg2 := testConfig()
	cfg2.Validation.EnforceSequential = false
	v2 := NewValidator(cfg2, nil)
	res, _ = v2.Validate(ctx, types.KindTask, "", "pending", "testing", nil)
	if !res.OK {
		t.Fatalf("skip should pass with enforce_sequential off: %s", res.Reason)
	}
}

func TestTaskSummaryBoundaries(t *testing.T) {
	s := newTestStore(t)
	v := NewValidator(testConfig(), s)
	ctx := context.Background()

	cases := []struct {
		length int
		wantOK bool
	}{
		{299, false},
		{300, true},
		{500, true},
		{501, false},
	}
	for _, c := range cases {
		task := createTask(t, s, &types.Task{Name: "t", Status: "testing",
			Summary: strings.Repeat("a", c.length)})
		res, err := v.Validate(ctx, types.KindTask, task.ID, "testing", "completed", nil)
		if err != nil {
			t.Fatalf("Validate len=%d: %v", c.length, err)
		}
		if res.OK != c.wantOK {
			t.Errorf("summary length %d: ok=%v (%s), want %v", c.length, res.OK, res.Reason, c.wantOK)
		}
	}

	blank := createTask(t, s, &types.Task{Name: "t", Status: "testing"})
	res, _ := v.Validate(ctx, types.KindTask, blank.ID, "testing", "completed", nil)
	if res.OK {
		t.Fatal("blank summary should be rejected")
	}
}

func TestTaskBlockerPrerequisite(t *testing.T) {
	s := newTestStore(t)
	v := NewValidator(testConfig(), s)
	ctx := context.Background()

	blocker := createTask(t, s, &types.Task{Name: "upstream"})
	blocked := createTask(t, s, &types.Task{Name: "downstream"})
	if err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: blocker.ID, ToTaskID: blocked.ID, Type: types.DepBlocks}); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	res, err := v.Validate(ctx, types.KindTask, blocked.ID, "pending", "in-progress", nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.OK {
		t.Fatal("blocked task should not enter work")
	}
	if !strings.Contains(res.Reason, "upstream") {
		t.Fatalf("reason should name the blocker, got %q", res.Reason)
	}

	setStatus(t, s, types.KindTask, blocker.ID, "completed")
	res, err = v.Validate(ctx, types.KindTask, blocked.ID, "pending", "in-progress", nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !res.OK {
		t.Fatalf("terminal blocker should satisfy default threshold: %s", res.Reason)
	}
}

func TestUnblockAtWorkThreshold(t *testing.T) {
	s := newTestStore(t)
	v := NewValidator(testConfig(), s)
	ctx := context.Background()

	blocker := createTask(t, s, &types.Task{Name: "p"})
	blocked := createTask(t, s, &types.Task{Name: "c"})
	if err := s.AddDependency(ctx, &types.Dependency{
		FromTaskID: blocker.ID, ToTaskID: blocked.ID,
		Type: types.DepBlocks, UnblockAt: types.RoleWork}); err != nil {
		t.Fatalf("AddDependency: %v", err)
	}

	for _, c := range []struct {
		blockerStatus string
		wantOK        bool
	}{
		{"pending", false},     // queue < work
		{"in-progress", true},  // work == work
		{"testing", true},      // review > work
		{"blocked", false},     // blocked never satisfies
	} {
		setStatus(t, s, types.KindTask, blocker.ID, c.blockerStatus)
		res, err := v.Validate(ctx, types.KindTask, blocked.ID, "pending", "in-progress", nil)
		if err != nil {
			t.Fatalf("Validate with blocker %s: %v", c.blockerStatus, err)
		}
		if res.OK != c.wantOK {
			t.Errorf("blocker in %s: ok=%v, want %v", c.blockerStatus, res.OK, c.wantOK)
		}
	}
}

func TestFeaturePrerequisites(t *testing.T) {
	s := newTestStore(t)
	v := NewValidator(testConfig(), s)
	ctx := context.Background()

	f := createFeature(t, s, &types.Feature{Name: "empty", Status: "planning"})
	res, err := v.Validate(ctx, types.KindFeature, f.ID, "planning", "in-development", nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.OK {
		t.Fatal("feature without tasks should not enter work")
	}

	task := createTask(t, s, &types.Task{Name: "t", FeatureID: f.ID})
	res, _ = v.Validate(ctx, types.KindFeature, f.ID, "planning", "in-development", nil)
	if !res.OK {
		t.Fatalf("feature with a task should enter work: %s", res.Reason)
	}

	// Review requires all children terminal.
	setStatus(t, s, types.KindFeature, f.ID, "in-development")
	res, _ = v.Validate(ctx, types.KindFeature, f.ID, "in-development", "testing", nil)
	if res.OK {
		t.Fatal("open child should block review entry")
	}
	setStatus(t, s, types.KindTask, task.ID, "completed")
	res, _ = v.Validate(ctx, types.KindFeature, f.ID, "in-development", "testing", nil)
	if !res.OK {
		t.Fatalf("all-terminal children should allow review: %s", res.Reason)
	}

	// Completion jumps the flow once children are terminal.
	res, _ = v.Validate(ctx, types.KindFeature, f.ID, "in-development", "completed", nil)
	if !res.OK {
		t.Fatalf("completion jump should pass: %s", res.Reason)
	}
}

func TestFeatureVerificationGate(t *testing.T) {
	s := newTestStore(t)
	v := NewValidator(testConfig(), s)
	ctx := context.Background()

	f := createFeature(t, s, &types.Feature{Name: "verify-me",
		Status: "in-development", RequiresVerification: true})
	task := createTask(t, s, &types.Task{Name: "t", FeatureID: f.ID, Status: "completed"})

	res, err := v.Validate(ctx, types.KindFeature, f.ID, "in-development", "completed", nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.OK {
		t.Fatal("verification gate should fail without a review transition")
	}

	if err := s.AddRoleTransition(ctx, &types.RoleTransition{
		EntityType: types.KindTask, EntityID: task.ID,
		FromRole: types.RoleWork, ToRole: types.RoleReview,
		FromStatus: "in-progress", ToStatus: "testing"}); err != nil {
		t.Fatalf("AddRoleTransition: %v", err)
	}
	res, _ = v.Validate(ctx, types.KindFeature, f.ID, "in-development", "completed", nil)
	if !res.OK {
		t.Fatalf("recorded review should satisfy verification: %s", res.Reason)
	}
}

func TestProjectCompletionPrerequisite(t *testing.T) {
	s := newTestStore(t)
	v := NewValidator(testConfig(), s)
	ctx := context.Background()

	p := createProject(t, s, &types.Project{Name: "p", Status: "in-development"})
	f := createFeature(t, s, &types.Feature{Name: "f", ProjectID: p.ID, Status: "in-development"})

	res, _ := v.Validate(ctx, types.KindProject, p.ID, "in-development", "completed", nil)
	if res.OK {
		t.Fatal("open feature should block project completion")
	}
	setStatus(t, s, types.KindFeature, f.ID, "completed")
	res, _ = v.Validate(ctx, types.KindProject, p.ID, "in-development", "completed", nil)
	if !res.OK {
		t.Fatalf("all-terminal features should allow completion: %s", res.Reason)
	}
}
