// Package types defines the core entities shared by the storage and
// workflow layers: projects, features, tasks, sections, dependency edges,
// and the role-transition audit log.
package types

import (
	"strings"
	"time"
)

// EntityKind identifies which table an entity or section row belongs to.
// Internal enums are UPPER_SNAKE; the rpc boundary converts to and from
// lowercase-with-hyphens exactly once in each direction.
type EntityKind string

const (
	KindProject  EntityKind = "PROJECT"
	KindFeature  EntityKind = "FEATURE"
	KindTask     EntityKind = "TASK"
	KindTemplate EntityKind = "TEMPLATE"
)

// ValidEntityKind reports whether k is one of the known kinds.
func ValidEntityKind(k EntityKind) bool {
	switch k {
	case KindProject, KindFeature, KindTask, KindTemplate:
		return true
	}
	return false
}

// Priority is the coarse urgency of a container.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Role is the coarse classification of a status label. Progression compares
// roles, not statuses: queue < work < review < terminal, with blocked as a
// lateral state outside the ordering.
type Role string

const (
	RoleQueue    Role = "QUEUE"
	RoleWork     Role = "WORK"
	RoleReview   Role = "REVIEW"
	RoleTerminal Role = "TERMINAL"
	RoleBlocked  Role = "BLOCKED"
)

// ValidRole reports whether r is one of the five roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleQueue, RoleWork, RoleReview, RoleTerminal, RoleBlocked:
		return true
	}
	return false
}

// DependencyType is the kind of a directed edge between two tasks.
type DependencyType string

const (
	// DepBlocks means the edge source blocks the edge target.
	DepBlocks DependencyType = "BLOCKS"
	// DepIsBlockedBy means the edge source is blocked by the edge target.
	DepIsBlockedBy DependencyType = "IS_BLOCKED_BY"
	// DepRelatesTo is informational only: no blocking semantics, excluded
	// from cycle detection and blocker resolution.
	DepRelatesTo DependencyType = "RELATES_TO"
)

// ValidDependencyType reports whether t is a known edge type.
func ValidDependencyType(t DependencyType) bool {
	switch t {
	case DepBlocks, DepIsBlockedBy, DepRelatesTo:
		return true
	}
	return false
}

// Blocking reports whether the edge type carries blocking semantics.
func (t DependencyType) Blocking() bool {
	return t == DepBlocks || t == DepIsBlockedBy
}

// NormalizeStatus canonicalizes a status label to lowercase-with-hyphens.
// Status labels are config-driven, not enums, so this is the one internal
// representation as well as the wire form.
func NormalizeStatus(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.ReplaceAll(s, "_", "-")
	return strings.Join(strings.Fields(s), "-")
}

// WireName converts an internal enum value (UPPER_SNAKE) to its wire form
// (lower-hyphen).
func WireName[T ~string](v T) string {
	return strings.ReplaceAll(strings.ToLower(string(v)), "_", "-")
}

// EnumName converts a wire value (lower-hyphen) to internal enum form
// (UPPER_SNAKE).
func EnumName(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
}

// Project is the root container. Deleting a project orphans its features
// (project_id cleared) rather than deleting them.
type Project struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Summary    string    `json:"summary,omitempty"`
	Status     string    `json:"status"`
	Priority   Priority  `json:"priority"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Feature is the mid-level grouping. ProjectID may be empty: features can be
// standalone or outlive a deleted project.
type Feature struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"projectId,omitempty"`
	Name      string   `json:"name"`
	Summary   string   `json:"summary,omitempty"`
	Status    string   `json:"status"`
	Priority  Priority `json:"priority"`
	Tags      []string `json:"tags,omitempty"`
	// RequiresVerification makes feature completion demand that at least one
	// child task passed through the review role.
	RequiresVerification bool      `json:"requiresVerification,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
	ModifiedAt           time.Time `json:"modifiedAt"`
}

// Task is the leaf unit of work. FeatureID may be empty (standalone task).
// Summary is agent-written and must be 300-500 characters before the task
// can complete.
type Task struct {
	ID          string    `json:"id"`
	FeatureID   string    `json:"featureId,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	Status      string    `json:"status"`
	Priority    Priority  `json:"priority"`
	Complexity  int       `json:"complexity"` // 1-10
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	ModifiedAt  time.Time `json:"modifiedAt"`
}

// Section is an ordered documentation fragment attached to an entity.
// (entityType, entityId, ordinal) is unique; Version increments on every
// write for optimistic concurrency.
type Section struct {
	ID               string     `json:"id"`
	EntityType       EntityKind `json:"entityType"`
	EntityID         string     `json:"entityId"`
	Title            string     `json:"title"`
	UsageDescription string     `json:"usageDescription,omitempty"`
	Content          string     `json:"content"`
	Ordinal          int        `json:"ordinal"`
	Tags             []string   `json:"tags,omitempty"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"createdAt"`
	ModifiedAt       time.Time  `json:"modifiedAt"`
}

// Dependency is a typed directed edge between two tasks.
type Dependency struct {
	ID         string         `json:"id"`
	FromTaskID string         `json:"fromTaskId"`
	ToTaskID   string         `json:"toTaskId"`
	Type       DependencyType `json:"type"`
	// UnblockAt names the role the blocker must reach before the edge is
	// satisfied. Empty means the backward-compatible default, terminal.
	// Never set on RELATES_TO edges.
	UnblockAt Role      `json:"unblockAt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// EffectiveUnblockAt returns the role threshold the blocker must satisfy.
func (d *Dependency) EffectiveUnblockAt() Role {
	if d.UnblockAt != "" {
		return d.UnblockAt
	}
	return RoleTerminal
}

// BlockerEndpoints returns (blocker, blocked) for a blocking edge.
// BLOCKS(A,B): A blocks B. IS_BLOCKED_BY(A,B): B blocks A.
func (d *Dependency) BlockerEndpoints() (blocker, blocked string) {
	if d.Type == DepIsBlockedBy {
		return d.ToTaskID, d.FromTaskID
	}
	return d.FromTaskID, d.ToTaskID
}

// RoleTransition is an append-only audit record, written only when a status
// change crosses a role boundary.
type RoleTransition struct {
	ID             int64      `json:"id"`
	EntityType     EntityKind `json:"entityType"`
	EntityID       string     `json:"entityId"`
	FromRole       Role       `json:"fromRole"`
	ToRole         Role       `json:"toRole"`
	FromStatus     string     `json:"fromStatus"`
	ToStatus       string     `json:"toStatus"`
	TransitionedAt time.Time  `json:"transitionedAt"`
	Trigger        string     `json:"trigger,omitempty"`
	Summary        string     `json:"summary,omitempty"`
}

// Blocker pairs a blocking edge with the blocker task's current state.
// Returned by the graph queries so the workflow layer can apply role
// thresholds without another round trip.
type Blocker struct {
	Edge      *Dependency `json:"edge"`
	TaskID    string      `json:"taskId"`
	Name      string      `json:"name"`
	Status    string      `json:"status"`
	// Missing marks a dangling edge whose blocker row no longer exists.
	// Treated as still blocking (fail-closed).
	Missing bool `json:"missing,omitempty"`
}

// ContainerFilter is a free-form AND of optional filters over projects,
// features, or tasks.
type ContainerFilter struct {
	Query    string   // substring match on name/summary/description
	Status   string   // exact status label
	Priority Priority // exact priority
	Tags     []string // OR-match within the list
	ParentID string   // project id for features, feature id for tasks
	// Standalone limits tasks to feature_id IS NULL (or features to
	// project_id IS NULL) when true.
	Standalone bool
	Limit      int
}

// SectionFilter selects sections for one entity, optionally narrowed by tags
// (OR-match).
type SectionFilter struct {
	EntityType EntityKind
	EntityID   string
	Tags       []string
}

// TransitionFilter selects role-transition audit rows.
type TransitionFilter struct {
	EntityType EntityKind
	EntityID   string
	ToRole     Role
	Limit      int
}

// TagCount is one row of the list_tags aggregation.
type TagCount struct {
	Tag      string `json:"tag"`
	Projects int    `json:"projects"`
	Features int    `json:"features"`
	Tasks    int    `json:"tasks"`
}

// HasTag reports whether tags contains tag (case-sensitive; tags are stored
// as given).
func HasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
