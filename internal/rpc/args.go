package rpc

// ContainerPayload is one entity in a manage_container create/update batch.
// Kind-specific fields are ignored for the kinds they do not apply to.
type ContainerPayload struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Complexity  int      `json:"complexity,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ProjectID   string   `json:"projectId,omitempty"`
	FeatureID   string   `json:"featureId,omitempty"`
	// RequiresVerification is a pointer so updates can distinguish "unset"
	// from "set false".
	RequiresVerification *bool `json:"requiresVerification,omitempty"`
}

// ManageContainerArgs drives create/update/delete over the three kinds.
type ManageContainerArgs struct {
	Operation     string             `json:"operation"`
	ContainerType string             `json:"containerType"`
	Containers    []ContainerPayload `json:"containers,omitempty"`
	ID            string             `json:"id,omitempty"`
}

// QueryContainerArgs drives get/overview/search/export.
type QueryContainerArgs struct {
	Operation       string   `json:"operation"`
	ContainerType   string   `json:"containerType"`
	ID              string   `json:"id,omitempty"`
	Query           string   `json:"query,omitempty"`
	Status          string   `json:"status,omitempty"`
	Priority        string   `json:"priority,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	ParentID        string   `json:"parentId,omitempty"`
	Standalone      bool     `json:"standalone,omitempty"`
	Limit           int      `json:"limit,omitempty"`
	IncludeSections bool     `json:"includeSections,omitempty"`
}

// SectionPayload is one section in an add or bulkCreate call.
type SectionPayload struct {
	Title            string   `json:"title"`
	UsageDescription string   `json:"usageDescription,omitempty"`
	Content          string   `json:"content,omitempty"`
	Ordinal          *int     `json:"ordinal,omitempty"`
	Tags             []string `json:"tags,omitempty"`
}

// SectionTextUpdate is one entry of bulkUpdateText.
type SectionTextUpdate struct {
	ID              string `json:"id"`
	Content         string `json:"content"`
	ExpectedVersion int64  `json:"expectedVersion,omitempty"`
}

// ManageSectionsArgs drives add/update/delete/bulkCreate/bulkUpdateText.
type ManageSectionsArgs struct {
	Operation  string              `json:"operation"`
	EntityType string              `json:"entityType,omitempty"`
	EntityID   string              `json:"entityId,omitempty"`
	ID         string              `json:"id,omitempty"`
	Section    *SectionPayload     `json:"section,omitempty"`
	Sections   []SectionPayload    `json:"sections,omitempty"`
	Updates    []SectionTextUpdate `json:"updates,omitempty"`
	// Update operation fields.
	Title            *string  `json:"title,omitempty"`
	UsageDescription *string  `json:"usageDescription,omitempty"`
	Content          *string  `json:"content,omitempty"`
	Ordinal          *int     `json:"ordinal,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	ExpectedVersion  int64    `json:"expectedVersion,omitempty"`
}

// ManageDependenciesArgs drives create (single or pattern), delete, list.
// Patterns: linear chains taskIds in order; fan-out makes the first id block
// the rest; fan-in makes all but the last id block the last.
type ManageDependenciesArgs struct {
	Operation  string   `json:"operation"`
	FromTaskID string   `json:"fromTaskId,omitempty"`
	ToTaskID   string   `json:"toTaskId,omitempty"`
	Type       string   `json:"type,omitempty"`
	UnblockAt  string   `json:"unblockAt,omitempty"`
	Pattern    string   `json:"pattern,omitempty"`
	TaskIDs    []string `json:"taskIds,omitempty"`
	ID         string   `json:"id,omitempty"`
	TaskID     string   `json:"taskId,omitempty"`
}

// QueryDependenciesArgs drives per-task edge queries.
type QueryDependenciesArgs struct {
	TaskID       string `json:"taskId"`
	Direction    string `json:"direction,omitempty"`
	Type         string `json:"type,omitempty"`
	IncludeTasks bool   `json:"includeTasks,omitempty"`
}

// GetBlockedTasksArgs optionally narrows to one feature.
type GetBlockedTasksArgs struct {
	FeatureID string `json:"featureId,omitempty"`
}

// GetNextTaskArgs optionally narrows to one feature.
type GetNextTaskArgs struct {
	FeatureID string `json:"featureId,omitempty"`
}

// GetNextStatusArgs identifies the entity to recommend for.
type GetNextStatusArgs struct {
	ContainerType string `json:"containerType"`
	ContainerID   string `json:"containerId"`
}

// TransitionItem is one entry of a request_transition batch.
type TransitionItem struct {
	ContainerType string `json:"containerType"`
	ContainerID   string `json:"containerId"`
	Trigger       string `json:"trigger"`
	Summary       string `json:"summary,omitempty"`
}

// RequestTransitionArgs accepts a single transition or a batch; when
// Transitions is non-empty the top-level fields are ignored.
type RequestTransitionArgs struct {
	TransitionItem
	Transitions []TransitionItem `json:"transitions,omitempty"`
}

// QueryRoleTransitionsArgs filters the audit log.
type QueryRoleTransitionsArgs struct {
	EntityType string `json:"entityType,omitempty"`
	EntityID   string `json:"entityId,omitempty"`
	ToRole     string `json:"toRole,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// QueryTemplatesArgs optionally narrows to one template id.
type QueryTemplatesArgs struct {
	ID string `json:"id,omitempty"`
}

// ApplyTemplateArgs clones a template's sections onto a target entity.
type ApplyTemplateArgs struct {
	TemplateID string `json:"templateId"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
}
