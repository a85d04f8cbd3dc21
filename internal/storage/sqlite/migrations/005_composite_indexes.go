package migrations

// CompositeIndexes adds covering indexes for the hot blocker-resolution and
// child-count queries.
var CompositeIndexes = Step{
	Version: 5,
	Name:    "composite_indexes",
	Statements: []string{
		`CREATE INDEX IF NOT EXISTS idx_dependencies_to_type
			ON dependencies(to_task_id, type, from_task_id)`,
		`CREATE INDEX IF NOT EXISTS idx_dependencies_from_type
			ON dependencies(from_task_id, type, to_task_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_feature_status
			ON tasks(feature_id, status)`,
	},
}
