// Package migrations holds the versioned DDL steps. Shipped steps are
// append-only: never edit one, always add the next version.
package migrations

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Step is one versioned schema change. Statements run in order inside a
// single transaction; the version and checksum are recorded in
// schema_history on success.
type Step struct {
	Version    int
	Name       string
	Statements []string
}

// Checksum is the hex sha256 over the step's statements, used by repair
// mode to verify history rows without re-running DDL.
func (s Step) Checksum() string {
	h := sha256.Sum256([]byte(strings.Join(s.Statements, ";\n")))
	return hex.EncodeToString(h[:])
}

// All returns every shipped step in version order.
func All() []Step {
	return []Step{
		Baseline,
		DependencyUnblockAt,
		SectionVersioning,
		FeatureVerification,
		CompositeIndexes,
	}
}
