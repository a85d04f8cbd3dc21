package workflow

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/untoldecay/TaskOrchestrator/internal/config"
	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// Result is the validator's verdict. Invalid results carry a single-line
// reason plus fix suggestions for the calling agent; they are values, never
// errors.
type Result struct {
	OK          bool
	Reason      string
	Suggestions []string
}

func valid() Result { return Result{OK: true} }

func invalid(reason string, suggestions ...string) Result {
	return Result{Reason: reason, Suggestions: suggestions}
}

// SummaryMinLen and SummaryMaxLen bound the agent-written completion summary
// in characters.
const (
	SummaryMinLen = 300
	SummaryMaxLen = 500
)

// Validator decides whether a status transition is legal. It is one
// procedure parameterized by the configuration; new flows and statuses are
// config changes, not code changes.
type Validator struct {
	cfg   *config.Config
	store storage.Storage
}

// NewValidator builds a validator. A nil store skips the prerequisite rules
// (pure flow checking only).
func NewValidator(cfg *config.Config, store storage.Storage) *Validator {
	return &Validator{cfg: cfg, store: store}
}

// Validate applies the rule chain in order, fail-fast: known status,
// terminal lock, sequential rule, backward rule, emergency rule,
// prerequisites. The returned error is reserved for repository failures.
func (v *Validator) Validate(ctx context.Context, kind types.EntityKind, id, current, target string, tags []string) (Result, error) {
	p := v.cfg.For(kind)
	if p == nil {
		return invalid(fmt.Sprintf("no status progression defined for %s", types.WireName(kind))), nil
	}
	current = types.NormalizeStatus(current)
	target = types.NormalizeStatus(target)

	if !p.IsAllowed(target) {
		return invalid(
			fmt.Sprintf("invalid status %q for %s", target, types.WireName(kind)),
			"Allowed statuses: "+strings.Join(p.AllowedStatuses, ", ")), nil
	}

	// Terminal is sticky; re-opening requires a manual override outside this
	// path.
	if p.IsTerminal(current) {
		return invalid(
			fmt.Sprintf("cannot transition from terminal status %q", current),
			"Terminal statuses are final; create a new entity to continue work"), nil
	}

	// Re-issuing the current non-terminal status is a no-op.
	if target == current {
		return valid(), nil
	}

	if res := v.checkFlow(p, current, target, tags); !res.OK {
		return res, nil
	}

	if v.cfg.Validation.ValidatePrerequisites && v.store != nil && id != "" {
		return v.checkPrerequisites(ctx, p, kind, id, target)
	}
	return valid(), nil
}

func (v *Validator) checkFlow(p *config.KindProgression, current, target string, tags []string) Result {
	_, seq := p.ActiveFlow(tags)
	curIdx := config.FlowIndex(seq, current)
	tgtIdx := config.FlowIndex(seq, target)

	// Completion jumps the flow from any status at or past work: review
	// statuses are optional stops, queue statuses are not. The prerequisite
	// rules still gate what completion requires per kind.
	if target == config.CompletedStatus && IsAtOrBeyond(p.RoleOf(current), types.RoleWork) {
		return valid()
	}

	if p.IsEmergency(target) {
		if v.cfg.Validation.AllowEmergency {
			return valid()
		}
		return invalid(
			fmt.Sprintf("emergency transitions are disabled; cannot move to %q", target),
			"Enable status_validation.allow_emergency or follow the flow")
	}

	if curIdx >= 0 && tgtIdx >= 0 && tgtIdx < curIdx {
		if v.cfg.Validation.AllowBackward {
			return valid()
		}
		return invalid(
			fmt.Sprintf("backward transitions are disabled; cannot move from %q to %q", current, target),
			"Enable status_validation.allow_backward to permit rework moves")
	}

	if !v.cfg.Validation.EnforceSequential {
		return valid()
	}

	// Outside the flow (an emergency state such as blocked): any flow member
	// is a legal re-entry point.
	if curIdx < 0 {
		if tgtIdx >= 0 {
			return valid()
		}
		return invalid(
			fmt.Sprintf("%q is not part of the active flow", target),
			"Flow sequence: "+strings.Join(seq, " -> "))
	}

	if curIdx+1 < len(seq) && seq[curIdx+1] == target {
		return valid()
	}
	if curIdx+1 < len(seq) {
		return invalid(
			"Cannot skip statuses. Must transition through: "+seq[curIdx+1],
			fmt.Sprintf("Transition to %q first", seq[curIdx+1]))
	}
	return invalid(
		fmt.Sprintf("%q is the last status of the active flow", current),
		"Flow sequence: "+strings.Join(seq, " -> "))
}

func (v *Validator) checkPrerequisites(ctx context.Context, p *config.KindProgression, kind types.EntityKind, id, target string) (Result, error) {
	targetRole := p.RoleOf(target)
	switch kind {
	case types.KindTask:
		if targetRole == types.RoleWork {
			if res, err := v.checkTaskBlockers(ctx, id); err != nil || !res.OK {
				return res, err
			}
		}
		if target == config.CompletedStatus {
			return v.checkTaskSummary(ctx, id)
		}
	case types.KindFeature:
		switch {
		case targetRole == types.RoleWork:
			return v.checkFeatureHasTasks(ctx, id)
		case targetRole == types.RoleReview:
			return v.checkFeatureChildrenTerminal(ctx, id, "enter review")
		case target == config.CompletedStatus:
			if res, err := v.checkFeatureChildrenTerminal(ctx, id, "complete"); err != nil || !res.OK {
				return res, err
			}
			return v.checkFeatureVerification(ctx, id)
		}
	case types.KindProject:
		if target == config.CompletedStatus {
			return v.checkProjectFeaturesTerminal(ctx, id)
		}
	}
	return valid(), nil
}

func (v *Validator) checkTaskBlockers(ctx context.Context, taskID string) (Result, error) {
	blockers, err := v.store.BlockersOf(ctx, taskID)
	if err != nil {
		return Result{}, err
	}
	taskProg := v.cfg.For(types.KindTask)
	var unsatisfied []string
	var suggestions []string
	for _, b := range blockers {
		threshold := b.Edge.EffectiveUnblockAt()
		if b.Missing {
			unsatisfied = append(unsatisfied, fmt.Sprintf("%s (missing)", b.TaskID))
			suggestions = append(suggestions,
				fmt.Sprintf("Delete the dangling dependency %s", b.Edge.ID))
			continue
		}
		role := taskProg.RoleOf(b.Status)
		if !IsAtOrBeyond(role, threshold) {
			unsatisfied = append(unsatisfied,
				fmt.Sprintf("%s (%s)", b.Name, b.Status))
			suggestions = append(suggestions,
				fmt.Sprintf("Advance %q to role %s or remove the dependency",
					b.Name, types.WireName(threshold)))
		}
	}
	if len(unsatisfied) > 0 {
		return invalid(
			fmt.Sprintf("blocked by %d unsatisfied dependencies: %s",
				len(unsatisfied), strings.Join(unsatisfied, ", ")),
			suggestions...), nil
	}
	return valid(), nil
}

func (v *Validator) checkTaskSummary(ctx context.Context, taskID string) (Result, error) {
	task, err := v.store.GetTask(ctx, taskID)
	if err != nil {
		return Result{}, err
	}
	n := utf8.RuneCountInString(task.Summary)
	if strings.TrimSpace(task.Summary) == "" {
		return invalid("task summary is required before completion",
			fmt.Sprintf("Populate summary to %d-%d chars via update", SummaryMinLen, SummaryMaxLen)), nil
	}
	if n < SummaryMinLen || n > SummaryMaxLen {
		return invalid(
			fmt.Sprintf("task summary must be %d-%d characters, got %d",
				SummaryMinLen, SummaryMaxLen, n),
			fmt.Sprintf("Rewrite the summary to %d-%d chars via update", SummaryMinLen, SummaryMaxLen)), nil
	}
	return valid(), nil
}

func (v *Validator) checkFeatureHasTasks(ctx context.Context, featureID string) (Result, error) {
	total, _, err := v.childRoleCounts(ctx, types.KindTask, featureID)
	if err != nil {
		return Result{}, err
	}
	if total == 0 {
		return invalid("feature has no tasks; add at least one before starting work",
			"Create tasks under this feature via manage_container"), nil
	}
	return valid(), nil
}

func (v *Validator) checkFeatureChildrenTerminal(ctx context.Context, featureID, action string) (Result, error) {
	total, open, err := v.childRoleCounts(ctx, types.KindTask, featureID)
	if err != nil {
		return Result{}, err
	}
	if total > 0 && open > 0 {
		return invalid(
			fmt.Sprintf("cannot %s: %d of %d tasks are not terminal", action, open, total),
			"Complete or cancel the remaining tasks first"), nil
	}
	return valid(), nil
}

func (v *Validator) checkFeatureVerification(ctx context.Context, featureID string) (Result, error) {
	feature, err := v.store.GetFeature(ctx, featureID)
	if err != nil {
		return Result{}, err
	}
	if !feature.RequiresVerification {
		return valid(), nil
	}
	tasks, err := v.store.FindTasks(ctx, types.ContainerFilter{ParentID: featureID})
	if err != nil {
		return Result{}, err
	}
	for _, t := range tasks {
		reached, err := v.store.HasReachedRole(ctx, t.ID, types.RoleReview)
		if err != nil {
			return Result{}, err
		}
		if reached {
			return valid(), nil
		}
	}
	return invalid("feature requires verification but no task passed through review",
		"Route at least one task through a review status before completing"), nil
}

func (v *Validator) checkProjectFeaturesTerminal(ctx context.Context, projectID string) (Result, error) {
	total, open, err := v.childRoleCounts(ctx, types.KindFeature, projectID)
	if err != nil {
		return Result{}, err
	}
	if total > 0 && open > 0 {
		return invalid(
			fmt.Sprintf("cannot complete project: %d of %d features are not terminal", open, total),
			"Complete or archive the remaining features first"), nil
	}
	return valid(), nil
}

// childRoleCounts folds a status histogram of the direct children into
// (total, non-terminal) using the child kind's role mapping.
func (v *Validator) childRoleCounts(ctx context.Context, childKind types.EntityKind, parentID string) (total, open int, err error) {
	counts, err := v.store.CountByStatus(ctx, childKind, parentID)
	if err != nil {
		return 0, 0, err
	}
	childProg := v.cfg.For(childKind)
	for status, n := range counts {
		total += n
		if childProg.RoleOf(status) != types.RoleTerminal {
			open += n
		}
	}
	return total, open, nil
}
