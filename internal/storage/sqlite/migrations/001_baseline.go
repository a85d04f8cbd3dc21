package migrations

// Baseline is the initial schema. Status CHECK constraints enumerate the
// v2 allowed sets as of the version this step was cut; config may narrow
// the working set but the columns accept the full enumeration.
var Baseline = Step{
	Version: 1,
	Name:    "baseline",
	Statements: []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL CHECK(length(name) <= 500),
			summary TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'planning' CHECK(status IN (
				'planning', 'in-development', 'on-hold', 'cancelled',
				'completed', 'archived'
			)),
			priority TEXT NOT NULL DEFAULT 'MEDIUM' CHECK(priority IN ('LOW', 'MEDIUM', 'HIGH')),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			modified_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS features (
			id TEXT PRIMARY KEY,
			project_id TEXT,
			name TEXT NOT NULL CHECK(length(name) <= 500),
			summary TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft' CHECK(status IN (
				'draft', 'planning', 'in-development', 'testing', 'validating',
				'pending-review', 'blocked', 'on-hold', 'completed', 'archived',
				'deployed'
			)),
			priority TEXT NOT NULL DEFAULT 'MEDIUM' CHECK(priority IN ('LOW', 'MEDIUM', 'HIGH')),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			modified_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_features_project ON features(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_features_status ON features(status)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			feature_id TEXT,
			name TEXT NOT NULL CHECK(length(name) <= 500),
			description TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN (
				'backlog', 'pending', 'in-progress', 'in-review',
				'changes-requested', 'testing', 'ready-for-qa', 'investigating',
				'blocked', 'on-hold', 'deployed', 'completed', 'cancelled',
				'deferred'
			)),
			priority TEXT NOT NULL DEFAULT 'MEDIUM' CHECK(priority IN ('LOW', 'MEDIUM', 'HIGH')),
			complexity INTEGER NOT NULL DEFAULT 5 CHECK(complexity >= 1 AND complexity <= 10),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			modified_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_feature ON tasks(feature_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,

		`CREATE TABLE IF NOT EXISTS sections (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL CHECK(entity_type IN ('PROJECT', 'FEATURE', 'TASK', 'TEMPLATE')),
			entity_id TEXT NOT NULL,
			title TEXT NOT NULL,
			usage_description TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			ordinal INTEGER NOT NULL CHECK(ordinal >= 0),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			modified_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(entity_type, entity_id, ordinal)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sections_entity ON sections(entity_type, entity_id)`,

		`CREATE TABLE IF NOT EXISTS dependencies (
			id TEXT PRIMARY KEY,
			from_task_id TEXT NOT NULL,
			to_task_id TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'BLOCKS' CHECK(type IN ('BLOCKS', 'IS_BLOCKED_BY', 'RELATES_TO')),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CHECK(from_task_id <> to_task_id),
			UNIQUE(from_task_id, to_task_id, type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dependencies_from ON dependencies(from_task_id)`,
		`CREATE INDEX IF NOT EXISTS idx_dependencies_to ON dependencies(to_task_id)`,

		`CREATE TABLE IF NOT EXISTS role_transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			entity_type TEXT NOT NULL CHECK(entity_type IN ('PROJECT', 'FEATURE', 'TASK')),
			entity_id TEXT NOT NULL,
			from_role TEXT NOT NULL,
			to_role TEXT NOT NULL,
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			transitioned_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			trigger_name TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_role_transitions_entity
			ON role_transitions(entity_id, transitioned_at DESC)`,

		`CREATE TABLE IF NOT EXISTS tags (
			entity_type TEXT NOT NULL CHECK(entity_type IN ('PROJECT', 'FEATURE', 'TASK', 'SECTION')),
			entity_id TEXT NOT NULL,
			tag TEXT NOT NULL,
			PRIMARY KEY (entity_type, entity_id, tag)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tags_tag ON tags(tag)`,
	},
}
