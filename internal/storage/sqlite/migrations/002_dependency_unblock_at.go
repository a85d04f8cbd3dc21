package migrations

// DependencyUnblockAt adds the per-edge role threshold. NULL keeps the
// backward-compatible default: blockers must reach terminal.
var DependencyUnblockAt = Step{
	Version: 2,
	Name:    "dependency_unblock_at",
	Statements: []string{
		`ALTER TABLE dependencies ADD COLUMN unblock_at TEXT
			CHECK(unblock_at IS NULL OR unblock_at IN ('QUEUE', 'WORK', 'REVIEW', 'BLOCKED', 'TERMINAL'))`,
	},
}
