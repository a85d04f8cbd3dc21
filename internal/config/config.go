// Package config loads the workflow configuration that drives the status
// machine: allowed statuses, flows, roles, validation toggles, cleanup and
// cascade policy. The configuration is loaded once at startup and treated
// as immutable for the process lifetime.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// Config is the fully-resolved workflow configuration.
type Config struct {
	Progression map[types.EntityKind]*KindProgression
	Validation  ValidationConfig
	Cleanup     CleanupConfig
	Cascade     CascadeConfig
}

// KindProgression holds the status machine for one entity kind.
type KindProgression struct {
	AllowedStatuses      []string
	DefaultFlow          []string
	TerminalStatuses     []string
	EmergencyTransitions []string
	// Flows maps flow name to an ordered status sequence. The default flow
	// is addressable as "default".
	Flows map[string][]string
	// TagFlowMapping routes entity tags to named flows. Lookup iterates the
	// entity's tags in order; first tag with a mapping wins.
	TagFlowMapping map[string]string
	// StatusRoles maps every allowed status label to one of the five roles.
	StatusRoles map[string]types.Role
}

// ValidationConfig toggles the validator's rule set.
type ValidationConfig struct {
	EnforceSequential     bool
	AllowBackward         bool
	AllowEmergency        bool
	ValidatePrerequisites bool
}

// CleanupConfig controls the terminal-feature cleanup hook.
type CleanupConfig struct {
	Enabled    bool
	RetainTags []string
}

// CascadeConfig controls automatic cascade application.
type CascadeConfig struct {
	Enabled  bool
	MaxDepth int
}

// MaxCascadeDepth is the hard cap on cascade recursion. Config may lower it
// but never raise it.
const MaxCascadeDepth = 3

// EffectiveMaxDepth returns the cascade depth bound actually applied.
func (c CascadeConfig) EffectiveMaxDepth() int {
	if c.MaxDepth <= 0 || c.MaxDepth > MaxCascadeDepth {
		return MaxCascadeDepth
	}
	return c.MaxDepth
}

// DefaultFlowName is the reserved name of the default flow.
const DefaultFlowName = "default"

// CompletedStatus is the literal target of the "complete" trigger.
const CompletedStatus = "completed"

// For returns the progression for one kind. Sections of kind TEMPLATE have
// no progression; callers must not ask for one.
func (c *Config) For(kind types.EntityKind) *KindProgression {
	return c.Progression[kind]
}

// IsAllowed reports whether status is in the kind's allowed set.
func (p *KindProgression) IsAllowed(status string) bool {
	return containsStatus(p.AllowedStatuses, status)
}

// IsTerminal reports whether status ends the lifecycle.
func (p *KindProgression) IsTerminal(status string) bool {
	return containsStatus(p.TerminalStatuses, status)
}

// IsEmergency reports whether status is reachable from any non-terminal
// status under the emergency rule.
func (p *KindProgression) IsEmergency(status string) bool {
	return containsStatus(p.EmergencyTransitions, status)
}

// RoleOf resolves the role of a status label. Unknown labels map to queue;
// Validate guarantees every allowed label has a role, so this only matters
// for legacy rows.
func (p *KindProgression) RoleOf(status string) types.Role {
	if r, ok := p.StatusRoles[types.NormalizeStatus(status)]; ok {
		return r
	}
	return types.RoleQueue
}

// ActiveFlow resolves which flow governs an entity with the given tags.
// Returns the flow name and its status sequence.
func (p *KindProgression) ActiveFlow(tags []string) (string, []string) {
	for _, tag := range tags {
		if name, ok := p.TagFlowMapping[tag]; ok {
			if seq, ok := p.Flows[name]; ok {
				return name, seq
			}
		}
	}
	return DefaultFlowName, p.DefaultFlow
}

// FlowIndex returns the position of status in seq, or -1.
func FlowIndex(seq []string, status string) int {
	status = types.NormalizeStatus(status)
	for i, s := range seq {
		if s == status {
			return i
		}
	}
	return -1
}

// InitialStatus is the first status of the kind's default flow.
func (p *KindProgression) InitialStatus() string {
	if len(p.DefaultFlow) == 0 {
		return ""
	}
	return p.DefaultFlow[0]
}

func containsStatus(set []string, status string) bool {
	status = types.NormalizeStatus(status)
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// Validate checks internal consistency: every role name valid, every
// default-flow and named-flow entry allowed, every allowed status mapped to
// a role, tag mappings referring to existing flows.
func (c *Config) Validate() error {
	for kind, p := range c.Progression {
		kname := strings.ToLower(string(kind)) + "s"
		for status, role := range p.StatusRoles {
			if !types.ValidRole(role) {
				return fmt.Errorf("status_progression.%s.status_roles.%s: %q is not a valid role (queue|work|review|blocked|terminal)", kname, status, types.WireName(role))
			}
		}
		for _, status := range p.DefaultFlow {
			if !p.IsAllowed(status) {
				return fmt.Errorf("status_progression.%s.default_flow: %q is not in allowed_statuses", kname, status)
			}
		}
		for name, seq := range p.Flows {
			for _, status := range seq {
				if !p.IsAllowed(status) {
					return fmt.Errorf("status_progression.%s.flows.%s: %q is not in allowed_statuses", kname, name, status)
				}
			}
		}
		for tag, name := range p.TagFlowMapping {
			if _, ok := p.Flows[name]; !ok && name != DefaultFlowName {
				return fmt.Errorf("status_progression.%s.tag_flow_mapping.%s: flow %q is not defined", kname, tag, name)
			}
		}
		var unmapped []string
		for _, status := range p.AllowedStatuses {
			if _, ok := p.StatusRoles[status]; !ok {
				unmapped = append(unmapped, status)
			}
		}
		if len(unmapped) > 0 {
			sort.Strings(unmapped)
			return fmt.Errorf("status_progression.%s.status_roles: missing role for %s", kname, strings.Join(unmapped, ", "))
		}
	}
	return nil
}

// Default returns the shipped "v2" configuration.
func Default() *Config {
	return &Config{
		Progression: map[types.EntityKind]*KindProgression{
			types.KindProject: {
				AllowedStatuses: []string{
					"planning", "in-development", "on-hold", "cancelled",
					"completed", "archived",
				},
				DefaultFlow:          []string{"planning", "in-development", "completed", "archived"},
				TerminalStatuses:     []string{"cancelled", "archived"},
				EmergencyTransitions: []string{"on-hold", "cancelled"},
				Flows:                map[string][]string{},
				TagFlowMapping:       map[string]string{},
				StatusRoles: map[string]types.Role{
					"planning":       types.RoleQueue,
					"in-development": types.RoleWork,
					"on-hold":        types.RoleBlocked,
					"cancelled":      types.RoleTerminal,
					"completed":      types.RoleTerminal,
					"archived":       types.RoleTerminal,
				},
			},
			types.KindFeature: {
				AllowedStatuses: []string{
					"draft", "planning", "in-development", "testing",
					"validating", "pending-review", "blocked", "on-hold",
					"completed", "archived", "deployed",
				},
				DefaultFlow: []string{
					"draft", "planning", "in-development", "testing",
					"validating", "completed",
				},
				TerminalStatuses:     []string{"completed", "archived", "deployed"},
				EmergencyTransitions: []string{"blocked", "on-hold"},
				Flows:                map[string][]string{},
				TagFlowMapping:       map[string]string{},
				StatusRoles: map[string]types.Role{
					"draft":          types.RoleQueue,
					"planning":       types.RoleQueue,
					"in-development": types.RoleWork,
					"testing":        types.RoleReview,
					"validating":     types.RoleReview,
					"pending-review": types.RoleReview,
					"blocked":        types.RoleBlocked,
					"on-hold":        types.RoleBlocked,
					"completed":      types.RoleTerminal,
					"archived":       types.RoleTerminal,
					"deployed":       types.RoleTerminal,
				},
			},
			types.KindTask: {
				AllowedStatuses: []string{
					"backlog", "pending", "in-progress", "in-review",
					"changes-requested", "testing", "ready-for-qa",
					"investigating", "blocked", "on-hold", "deployed",
					"completed", "cancelled", "deferred",
				},
				// deployed is allowed but deliberately absent from the
				// default flow; tagged flows may route through it.
				DefaultFlow:          []string{"pending", "in-progress", "testing", "completed"},
				TerminalStatuses:     []string{"completed", "cancelled", "deployed"},
				EmergencyTransitions: []string{"blocked", "on-hold", "cancelled"},
				Flows: map[string][]string{
					"bug": {"pending", "in-progress", "testing", "completed"},
				},
				TagFlowMapping: map[string]string{
					"bug": "bug",
				},
				StatusRoles: map[string]types.Role{
					"backlog":           types.RoleQueue,
					"pending":           types.RoleQueue,
					"deferred":          types.RoleQueue,
					"in-progress":       types.RoleWork,
					"investigating":     types.RoleWork,
					"changes-requested": types.RoleWork,
					"in-review":         types.RoleReview,
					"testing":           types.RoleReview,
					"ready-for-qa":      types.RoleReview,
					"blocked":           types.RoleBlocked,
					"on-hold":           types.RoleBlocked,
					"deployed":          types.RoleTerminal,
					"completed":         types.RoleTerminal,
					"cancelled":         types.RoleTerminal,
				},
			},
		},
		Validation: ValidationConfig{
			EnforceSequential:     true,
			AllowBackward:         true,
			AllowEmergency:        true,
			ValidatePrerequisites: true,
		},
		Cleanup: CleanupConfig{
			Enabled:    true,
			RetainTags: []string{"bug", "bugfix", "fix", "hotfix", "critical"},
		},
		Cascade: CascadeConfig{
			Enabled:  true,
			MaxDepth: MaxCascadeDepth,
		},
	}
}
