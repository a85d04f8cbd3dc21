// Package workflow implements the status-progression engine: transition
// validation, next-status recommendation, cascade detection, and the
// transition executor that ties them together over the storage layer.
package workflow

import "github.com/untoldecay/TaskOrchestrator/internal/types"

// roleOrder positions the progression roles. Blocked is lateral and has no
// position.
func roleOrder(r types.Role) int {
	switch r {
	case types.RoleQueue:
		return 0
	case types.RoleWork:
		return 1
	case types.RoleReview:
		return 2
	case types.RoleTerminal:
		return 3
	}
	return -1
}

// IsAtOrBeyond reports whether current satisfies a role threshold. A blocked
// threshold matches only blocked; a blocked current satisfies nothing else.
func IsAtOrBeyond(current, threshold types.Role) bool {
	if threshold == types.RoleBlocked {
		return current == types.RoleBlocked
	}
	if current == types.RoleBlocked {
		return false
	}
	return roleOrder(current) >= roleOrder(threshold)
}
