package workflow

import (
	"testing"

	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

func TestIsAtOrBeyond(t *testing.T) {
	cases := []struct {
		current, threshold types.Role
		want               bool
	}{
		{types.RoleQueue, types.RoleQueue, true},
		{types.RoleWork, types.RoleQueue, true},
		{types.RoleWork, types.RoleWork, true},
		{types.RoleQueue, types.RoleWork, false},
		{types.RoleReview, types.RoleWork, true},
		{types.RoleTerminal, types.RoleTerminal, true},
		{types.RoleReview, types.RoleTerminal, false},
		// Blocked is lateral: satisfies only a blocked threshold, and a
		// blocked current satisfies nothing else.
		{types.RoleBlocked, types.RoleBlocked, true},
		{types.RoleBlocked, types.RoleQueue, false},
		{types.RoleBlocked, types.RoleTerminal, false},
		{types.RoleTerminal, types.RoleBlocked, false},
	}
	for _, c := range cases {
		if got := IsAtOrBeyond(c.current, c.threshold); got != c.want {
			t.Errorf("IsAtOrBeyond(%s, %s) = %v, want %v", c.current, c.threshold, got, c.want)
		}
	}
}
