package types

import "testing"

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]string{
		"In Progress":  "in-progress",
		"IN_PROGRESS":  "in-progress",
		"  pending  ":  "pending",
		"ready for qa": "ready-for-qa",
		"completed":    "completed",
	}
	for in, want := range cases {
		if got := NormalizeStatus(in); got != want {
			t.Fatalf("NormalizeStatus(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWireEnumRoundTrip(t *testing.T) {
	if got := WireName(DepIsBlockedBy); got != "is-blocked-by" {
		t.Fatalf("WireName = %q", got)
	}
	if got := EnumName("is-blocked-by"); got != "IS_BLOCKED_BY" {
		t.Fatalf("EnumName = %q", got)
	}
}

func TestBlockerEndpoints(t *testing.T) {
	blocks := &Dependency{FromTaskID: "A", ToTaskID: "B", Type: DepBlocks}
	if blocker, blocked := blocks.BlockerEndpoints(); blocker != "A" || blocked != "B" {
		t.Fatalf("BLOCKS endpoints = %s, %s", blocker, blocked)
	}
	// IS_BLOCKED_BY(A, B) means B blocks A.
	inverse := &Dependency{FromTaskID: "A", ToTaskID: "B", Type: DepIsBlockedBy}
	if blocker, blocked := inverse.BlockerEndpoints(); blocker != "B" || blocked != "A" {
		t.Fatalf("IS_BLOCKED_BY endpoints = %s, %s", blocker, blocked)
	}
}

func TestEffectiveUnblockAtDefaultsTerminal(t *testing.T) {
	d := &Dependency{Type: DepBlocks}
	if d.EffectiveUnblockAt() != RoleTerminal {
		t.Fatalf("expected terminal default, got %s", d.EffectiveUnblockAt())
	}
	d.UnblockAt = RoleWork
	if d.EffectiveUnblockAt() != RoleWork {
		t.Fatalf("expected explicit work, got %s", d.EffectiveUnblockAt())
	}
}
