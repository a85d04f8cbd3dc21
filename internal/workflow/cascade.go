package workflow

import (
	"context"

	"github.com/untoldecay/TaskOrchestrator/internal/config"
	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// CascadeEvent recommends that a parent entity advance because its children
// collectively reached terminal.
type CascadeEvent struct {
	TargetType     types.EntityKind `json:"targetType"`
	TargetID       string           `json:"targetId"`
	TargetName     string           `json:"targetName"`
	PreviousStatus string           `json:"previousStatus"`
	NewStatus      string           `json:"newStatus"`
	Reason         string           `json:"reason"`
}

// UnblockedTask identifies a downstream task whose blockers all just became
// satisfied.
type UnblockedTask struct {
	TaskID string `json:"taskId"`
	Title  string `json:"title"`
}

// Detector computes, after a committed transition, which parents should
// auto-advance and which downstream tasks are newly unblocked. Read-only.
type Detector struct {
	cfg   *config.Config
	store storage.Storage
}

func NewDetector(cfg *config.Config, store storage.Storage) *Detector {
	return &Detector{cfg: cfg, store: store}
}

// Detect runs both checks for an entity that just moved to newStatus.
// Parent events come back closest-first as a flat list, hard-capped at
// three entries.
func (d *Detector) Detect(ctx context.Context, kind types.EntityKind, id, newStatus string) ([]CascadeEvent, []UnblockedTask, error) {
	var events []CascadeEvent
	var unblocked []UnblockedTask

	if d.cfg.For(kind).RoleOf(newStatus) == types.RoleTerminal {
		parents, err := d.parentRollup(ctx, kind, id)
		if err != nil {
			return nil, nil, err
		}
		events = parents

		if kind == types.KindTask {
			unblocked, err = d.downstreamUnblocked(ctx, id)
			if err != nil {
				return nil, nil, err
			}
		}
	}
	return events, unblocked, nil
}

// parentRollup walks up the containment chain emitting a completion event
// for each parent whose direct children are now all terminal. An emitted
// parent has not been applied yet, so the next level up treats it as
// terminal by assumption.
func (d *Detector) parentRollup(ctx context.Context, kind types.EntityKind, id string) ([]CascadeEvent, error) {
	var events []CascadeEvent
	childKind, childID := kind, id
	assumed := map[string]bool{}

	for len(events) < config.MaxCascadeDepth {
		parentKind, parent, err := d.parentOf(ctx, childKind, childID)
		if err != nil {
			if storage.IsNotFound(err) {
				// Dangling parent reference: fail closed, no cascade.
				return events, nil
			}
			return nil, err
		}
		if parent == nil {
			return events, nil
		}
		if d.cfg.For(parentKind).RoleOf(parent.status) == types.RoleTerminal {
			return events, nil
		}

		done, err := d.childrenTerminal(ctx, childKind, parent.id, assumed)
		if err != nil || !done {
			// Lookup failures emit nothing further (fail-closed).
			return events, nil
		}

		events = append(events, CascadeEvent{
			TargetType:     parentKind,
			TargetID:       parent.id,
			TargetName:     parent.name,
			PreviousStatus: parent.status,
			NewStatus:      config.CompletedStatus,
			Reason:         "all children terminal",
		})
		assumed[parent.id] = true
		childKind, childID = parentKind, parent.id
	}
	return events, nil
}

// childrenTerminal reports whether every direct child of the parent is in a
// terminal role, treating ids in assumed as terminal. Childless parents
// never roll up.
func (d *Detector) childrenTerminal(ctx context.Context, childKind types.EntityKind, parentID string, assumed map[string]bool) (bool, error) {
	prog := d.cfg.For(childKind)
	switch childKind {
	case types.KindTask:
		tasks, err := d.store.FindTasks(ctx, types.ContainerFilter{ParentID: parentID})
		if err != nil {
			return false, err
		}
		if len(tasks) == 0 {
			return false, nil
		}
		for _, t := range tasks {
			if !assumed[t.ID] && prog.RoleOf(t.Status) != types.RoleTerminal {
				return false, nil
			}
		}
		return true, nil
	case types.KindFeature:
		features, err := d.store.FindFeatures(ctx, types.ContainerFilter{ParentID: parentID})
		if err != nil {
			return false, err
		}
		if len(features) == 0 {
			return false, nil
		}
		for _, f := range features {
			if !assumed[f.ID] && prog.RoleOf(f.Status) != types.RoleTerminal {
				return false, nil
			}
		}
		return true, nil
	}
	return false, nil
}

type parentRef struct {
	id, name, status string
}

func (d *Detector) parentOf(ctx context.Context, kind types.EntityKind, id string) (types.EntityKind, *parentRef, error) {
	switch kind {
	case types.KindTask:
		t, err := d.store.GetTask(ctx, id)
		if err != nil {
			return "", nil, err
		}
		if t.FeatureID == "" {
			return "", nil, nil
		}
		f, err := d.store.GetFeature(ctx, t.FeatureID)
		if err != nil {
			return "", nil, err
		}
		return types.KindFeature, &parentRef{id: f.ID, name: f.Name, status: f.Status}, nil
	case types.KindFeature:
		f, err := d.store.GetFeature(ctx, id)
		if err != nil {
			return "", nil, err
		}
		if f.ProjectID == "" {
			return "", nil, nil
		}
		p, err := d.store.GetProject(ctx, f.ProjectID)
		if err != nil {
			return "", nil, err
		}
		return types.KindProject, &parentRef{id: p.ID, name: p.Name, status: p.Status}, nil
	}
	return "", nil, nil
}

// downstreamUnblocked finds every task blocked by the given task whose
// incoming blocking edges are now all satisfied. Missing blocker rows count
// as still blocking.
func (d *Detector) downstreamUnblocked(ctx context.Context, blockerID string) ([]UnblockedTask, error) {
	blocked, err := d.store.BlockedBy(ctx, blockerID)
	if err != nil {
		return nil, err
	}
	taskProg := d.cfg.For(types.KindTask)

	var out []UnblockedTask
	seen := map[string]bool{}
	for _, t := range blocked {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true

		blockers, err := d.store.BlockersOf(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		satisfied := true
		for _, b := range blockers {
			if b.Missing {
				satisfied = false
				break
			}
			if !IsAtOrBeyond(taskProg.RoleOf(b.Status), b.Edge.EffectiveUnblockAt()) {
				satisfied = false
				break
			}
		}
		if satisfied {
			out = append(out, UnblockedTask{TaskID: t.ID, Title: t.Name})
		}
	}
	return out, nil
}
