package workflow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/untoldecay/TaskOrchestrator/internal/config"
	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// Trigger names the intent of a request_transition call; the target status
// is resolved from the active flow at call time.
type Trigger string

const (
	TriggerStart    Trigger = "start"
	TriggerComplete Trigger = "complete"
	TriggerCancel   Trigger = "cancel"
	TriggerBlock    Trigger = "block"
	TriggerHold     Trigger = "hold"
)

// ValidTrigger reports whether t is a known trigger.
func ValidTrigger(t Trigger) bool {
	switch t {
	case TriggerStart, TriggerComplete, TriggerCancel, TriggerBlock, TriggerHold:
		return true
	}
	return false
}

// autoCascadeSummary marks audit rows written by cascade application.
const autoCascadeSummary = "auto-cascade"

// TransitionRequest is one unit of work for the executor.
type TransitionRequest struct {
	Kind    types.EntityKind
	ID      string
	Trigger Trigger
	Summary string
}

// AppliedCascade records one attempted cascade application. A validation
// failure never aborts the outer call; it lands here with Applied false.
type AppliedCascade struct {
	Event   CascadeEvent      `json:"event"`
	Applied bool              `json:"applied"`
	Reason  string            `json:"reason,omitempty"`
	Result  *TransitionResult `json:"result,omitempty"`
}

// TransitionResult is the envelope payload of a successful transition.
type TransitionResult struct {
	Kind           types.EntityKind `json:"containerType"`
	ID             string           `json:"containerId"`
	PreviousStatus string           `json:"previousStatus"`
	NewStatus      string           `json:"newStatus"`
	PreviousRole   types.Role       `json:"previousRole"`
	NewRole        types.Role       `json:"newRole"`
	ActiveFlow     string           `json:"activeFlow"`
	FlowSequence   []string         `json:"flowSequence"`
	FlowPosition   int              `json:"flowPosition"`
	NoOp           bool             `json:"noOp,omitempty"`

	CascadeEvents   []CascadeEvent   `json:"cascadeEvents"`
	AppliedCascades []AppliedCascade `json:"appliedCascades,omitempty"`
	UnblockedTasks  []UnblockedTask  `json:"unblockedTasks"`
	Cleanup         *CleanupResult   `json:"cleanup,omitempty"`
}

// BatchOutcome pairs one batch entry with its result or error. Entries are
// independent; one failure never aborts the others.
type BatchOutcome struct {
	Request TransitionRequest
	Result  *TransitionResult
	Err     error
}

// Executor orchestrates request_transition: validate, commit, audit, detect
// cascades, apply them, run completion cleanup, and assemble the result.
type Executor struct {
	cfg       *config.Config
	store     storage.Storage
	validator *Validator
	detector  *Detector
	cleaner   *Cleaner
	log       *slog.Logger
}

func NewExecutor(cfg *config.Config, store storage.Storage, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		cfg:       cfg,
		store:     store,
		validator: NewValidator(cfg, store),
		detector:  NewDetector(cfg, store),
		cleaner:   NewCleaner(cfg, store),
		log:       log,
	}
}

// Execute runs one transition end to end. A validator rejection comes back
// as a ValidationError carrying the reason and fix suggestions.
func (e *Executor) Execute(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	return e.execute(ctx, req, 0)
}

// ExecuteBatch processes requests in input order, each independently.
func (e *Executor) ExecuteBatch(ctx context.Context, reqs []TransitionRequest) []BatchOutcome {
	out := make([]BatchOutcome, 0, len(reqs))
	for _, req := range reqs {
		res, err := e.Execute(ctx, req)
		out = append(out, BatchOutcome{Request: req, Result: res, Err: err})
	}
	return out
}

func (e *Executor) execute(ctx context.Context, req TransitionRequest, depth int) (*TransitionResult, error) {
	if !ValidTrigger(req.Trigger) {
		return nil, storage.Validationf("unknown trigger %q (start|complete|cancel|block|hold)", string(req.Trigger))
	}
	prog := e.cfg.For(req.Kind)
	if prog == nil {
		return nil, storage.Validationf("no status progression for %s", types.WireName(req.Kind))
	}

	current, tags, err := loadEntityState(ctx, e.store, req.Kind, req.ID)
	if err != nil {
		return nil, err
	}
	flowName, seq := prog.ActiveFlow(tags)

	target, err := e.resolveTarget(prog, seq, current, req.Trigger)
	if err != nil {
		return nil, err
	}

	res, err := e.validator.Validate(ctx, req.Kind, req.ID, current, target, tags)
	if err != nil {
		return nil, err
	}
	if !res.OK {
		msg := res.Reason
		if len(res.Suggestions) > 0 {
			msg += ". " + strings.Join(res.Suggestions, ". ")
		}
		return nil, storage.Validationf("%s", msg)
	}

	prevRole := prog.RoleOf(current)
	newRole := prog.RoleOf(target)
	result := &TransitionResult{
		Kind:           req.Kind,
		ID:             req.ID,
		PreviousStatus: current,
		NewStatus:      target,
		PreviousRole:   prevRole,
		NewRole:        newRole,
		ActiveFlow:     flowName,
		FlowSequence:   seq,
		FlowPosition:   config.FlowIndex(seq, target),
		CascadeEvents:  []CascadeEvent{},
		UnblockedTasks: []UnblockedTask{},
	}

	// Re-issuing the current status: validated no-op, nothing to commit.
	if target == current {
		result.NoOp = true
		return result, nil
	}

	err = e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if err := tx.SetStatus(ctx, req.Kind, req.ID, target); err != nil {
			return err
		}
		if newRole == prevRole {
			return nil
		}
		return tx.AddRoleTransition(ctx, &types.RoleTransition{
			EntityType: req.Kind,
			EntityID:   req.ID,
			FromRole:   prevRole,
			ToRole:     newRole,
			FromStatus: current,
			ToStatus:   target,
			Trigger:    string(req.Trigger),
			Summary:    req.Summary,
		})
	})
	if err != nil {
		return nil, err
	}
	e.log.Debug("transition committed",
		"kind", types.WireName(req.Kind), "id", req.ID,
		"from", current, "to", target, "trigger", string(req.Trigger))

	// Detection runs outside the mutation transaction and sees the
	// committed state; cascades are idempotent, so a concurrent reader
	// observing the gap is acceptable.
	events, unblocked, err := e.detector.Detect(ctx, req.Kind, req.ID, target)
	if err != nil {
		return nil, err
	}
	result.CascadeEvents = events
	result.UnblockedTasks = unblocked

	if e.cfg.Cascade.Enabled && depth < e.cfg.Cascade.EffectiveMaxDepth() {
		// Only the immediate parent is applied here; deeper ancestors
		// re-emerge from the recursive call's own detection.
		for _, ev := range events[:min(len(events), 1)] {
			result.AppliedCascades = append(result.AppliedCascades, e.applyCascade(ctx, ev, depth+1))
		}
	}

	if req.Kind == types.KindFeature && prog.IsTerminal(target) {
		cleanup, err := e.cleaner.Run(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		result.Cleanup = cleanup
	}
	return result, nil
}

// applyCascade recurses into execute with trigger complete. Failures are
// swallowed into the outcome; the outer transition already committed.
func (e *Executor) applyCascade(ctx context.Context, ev CascadeEvent, depth int) AppliedCascade {
	child, err := e.execute(ctx, TransitionRequest{
		Kind:    ev.TargetType,
		ID:      ev.TargetID,
		Trigger: TriggerComplete,
		Summary: autoCascadeSummary,
	}, depth)
	if err != nil {
		e.log.Warn("cascade not applied",
			"kind", types.WireName(ev.TargetType), "id", ev.TargetID, "reason", err.Error())
		return AppliedCascade{Event: ev, Applied: false, Reason: err.Error()}
	}
	return AppliedCascade{Event: ev, Applied: true, Result: child}
}

func (e *Executor) resolveTarget(p *config.KindProgression, seq []string, current string, trigger Trigger) (string, error) {
	switch trigger {
	case TriggerStart:
		idx := config.FlowIndex(seq, current)
		if idx < 0 {
			return "", storage.Validationf("current status %q is outside the active flow; cannot resolve start target", current)
		}
		if idx+1 >= len(seq) {
			return "", storage.Validationf("%q is the last status of the active flow; nothing to start", current)
		}
		return seq[idx+1], nil
	case TriggerComplete:
		return config.CompletedStatus, nil
	case TriggerCancel:
		return "cancelled", nil
	case TriggerBlock:
		return "blocked", nil
	case TriggerHold:
		return "on-hold", nil
	}
	return "", storage.Validationf("unknown trigger %q", string(trigger))
}

// loadEntityState fetches the status and tags that drive flow resolution.
func loadEntityState(ctx context.Context, store storage.Storage, kind types.EntityKind, id string) (string, []string, error) {
	switch kind {
	case types.KindProject:
		p, err := store.GetProject(ctx, id)
		if err != nil {
			return "", nil, err
		}
		return p.Status, p.Tags, nil
	case types.KindFeature:
		f, err := store.GetFeature(ctx, id)
		if err != nil {
			return "", nil, err
		}
		return f.Status, f.Tags, nil
	case types.KindTask:
		t, err := store.GetTask(ctx, id)
		if err != nil {
			return "", nil, err
		}
		return t.Status, t.Tags, nil
	}
	return "", nil, storage.Validationf("no status progression for kind %s", types.WireName(kind))
}
