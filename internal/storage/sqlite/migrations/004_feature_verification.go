package migrations

// FeatureVerification adds the advisory flag that makes feature completion
// require at least one child task to have passed through review.
var FeatureVerification = Step{
	Version: 4,
	Name:    "feature_verification",
	Statements: []string{
		`ALTER TABLE features ADD COLUMN requires_verification INTEGER NOT NULL DEFAULT 0`,
	},
}
