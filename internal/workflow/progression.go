package workflow

import (
	"context"
	"fmt"

	"github.com/untoldecay/TaskOrchestrator/internal/config"
	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// RecommendationState tags the three shapes a next-status recommendation
// can take. Consumers branch exhaustively on it.
type RecommendationState string

const (
	StateReady    RecommendationState = "ready"
	StateBlocked  RecommendationState = "blocked"
	StateTerminal RecommendationState = "terminal"
)

// Recommendation is the read-only output of get_next_status.
type Recommendation struct {
	State RecommendationState `json:"state"`

	CurrentStatus   string   `json:"currentStatus"`
	ActiveFlow      string   `json:"activeFlow"`
	FlowSequence    []string `json:"flowSequence"`
	CurrentPosition int      `json:"currentPosition"`

	// Ready only.
	RecommendedStatus string     `json:"recommendedStatus,omitempty"`
	MatchedTags       []string   `json:"matchedTags,omitempty"`
	CurrentRole       types.Role `json:"currentRole,omitempty"`
	NextRole          types.Role `json:"nextRole,omitempty"`

	// Blocked only.
	Blockers []string `json:"blockers,omitempty"`

	// Terminal only.
	TerminalStatus string `json:"terminalStatus,omitempty"`

	Reason string `json:"reason,omitempty"`
}

// Progression recommends the next status for an entity. Read-only; never
// mutates.
type Progression struct {
	cfg       *config.Config
	store     storage.Storage
	validator *Validator
}

func NewProgression(cfg *config.Config, store storage.Storage) *Progression {
	return &Progression{cfg: cfg, store: store, validator: NewValidator(cfg, store)}
}

// NextStatus resolves the active flow for the entity and classifies what
// should happen next: Ready with a recommended successor, Blocked with the
// failing prerequisites, or Terminal.
func (p *Progression) NextStatus(ctx context.Context, kind types.EntityKind, id string) (*Recommendation, error) {
	status, tags, err := loadEntityState(ctx, p.store, kind, id)
	if err != nil {
		return nil, err
	}
	prog := p.cfg.For(kind)
	flowName, seq := prog.ActiveFlow(tags)
	pos := config.FlowIndex(seq, status)

	rec := &Recommendation{
		CurrentStatus:   status,
		ActiveFlow:      flowName,
		FlowSequence:    seq,
		CurrentPosition: pos,
	}

	if prog.IsTerminal(status) {
		rec.State = StateTerminal
		rec.TerminalStatus = status
		rec.Reason = fmt.Sprintf("%q is a terminal status", status)
		return rec, nil
	}
	if pos < 0 || pos+1 >= len(seq) {
		rec.State = StateTerminal
		rec.TerminalStatus = status
		if pos < 0 {
			rec.Reason = fmt.Sprintf("%q is outside the active flow", status)
		} else {
			rec.Reason = fmt.Sprintf("%q is the last status of flow %q", status, flowName)
		}
		return rec, nil
	}

	next := seq[pos+1]
	res, err := p.validator.Validate(ctx, kind, id, status, next, tags)
	if err != nil {
		return nil, err
	}
	if !res.OK {
		rec.State = StateBlocked
		rec.Blockers = append([]string{res.Reason}, res.Suggestions...)
		rec.Reason = res.Reason
		return rec, nil
	}

	rec.State = StateReady
	rec.RecommendedStatus = next
	rec.MatchedTags = matchedFlowTags(prog, tags)
	rec.CurrentRole = prog.RoleOf(status)
	rec.NextRole = prog.RoleOf(next)
	rec.Reason = fmt.Sprintf("next status in flow %q", flowName)
	return rec, nil
}

// matchedFlowTags lists the entity tags that participate in flow routing.
func matchedFlowTags(p *config.KindProgression, tags []string) []string {
	var matched []string
	for _, tag := range tags {
		if _, ok := p.TagFlowMapping[tag]; ok {
			matched = append(matched, tag)
		}
	}
	return matched
}
