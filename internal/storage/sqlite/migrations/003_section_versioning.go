package migrations

// SectionVersioning adds the monotonic version column used for optimistic
// concurrency on section text updates.
var SectionVersioning = Step{
	Version: 3,
	Name:    "section_versioning",
	Statements: []string{
		`ALTER TABLE sections ADD COLUMN version INTEGER NOT NULL DEFAULT 1`,
	},
}
