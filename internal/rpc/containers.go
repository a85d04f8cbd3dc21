package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/untoldecay/TaskOrchestrator/internal/types"
	"github.com/untoldecay/TaskOrchestrator/internal/workflow"
)

// handleManageContainer covers create/update/delete for the three kinds.
// Status changes through update are allowed but bypass cascade detection;
// request_transition is the supported path.
func (s *Server) handleManageContainer(ctx context.Context, raw json.RawMessage) *Response {
	var args ManageContainerArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fail(CodeValidation, "malformed manage_container arguments: "+err.Error(), "")
	}
	kind, err := parseKind(args.ContainerType)
	if err != nil {
		return failErr(err)
	}

	switch args.Operation {
	case "create":
		return s.createContainers(ctx, kind, args.Containers)
	case "update":
		return s.updateContainers(ctx, kind, args.Containers)
	case "delete":
		if args.ID == "" {
			return fail(CodeValidation, "delete requires id", "")
		}
		if err := s.deleteContainer(ctx, kind, args.ID); err != nil {
			return failErr(err)
		}
		return ok(fmt.Sprintf("%s %s deleted", types.WireName(kind), args.ID), nil)
	case "overview", "search":
		// Convenience aliases for the query_container operations.
		var q QueryContainerArgs
		if err := json.Unmarshal(raw, &q); err != nil {
			return fail(CodeValidation, "malformed arguments: "+err.Error(), "")
		}
		if args.Operation == "overview" {
			return s.containerOverview(ctx, kind, q.ID)
		}
		return s.searchContainers(ctx, kind, q)
	}
	return fail(CodeValidation,
		fmt.Sprintf("unknown manage_container operation %q (create|update|delete|overview|search)", args.Operation), "")
}

func (s *Server) createContainers(ctx context.Context, kind types.EntityKind, payloads []ContainerPayload) *Response {
	if len(payloads) == 0 {
		return fail(CodeValidation, "create requires a non-empty containers array", "")
	}
	prog := s.cfg.For(kind)
	created := make([]any, 0, len(payloads))
	for _, p := range payloads {
		status := types.NormalizeStatus(p.Status)
		if status == "" {
			status = prog.InitialStatus()
		} else if !prog.IsAllowed(status) {
			return fail(CodeValidation,
				fmt.Sprintf("status %q is not allowed for %s", status, types.WireName(kind)), "")
		}
		entity, err := s.createOne(ctx, kind, p, status)
		if err != nil {
			return failErr(err)
		}
		created = append(created, entity)
	}
	return ok(fmt.Sprintf("created %d %s(s)", len(created), types.WireName(kind)),
		map[string]any{"containers": created})
}

func (s *Server) createOne(ctx context.Context, kind types.EntityKind, p ContainerPayload, status string) (any, error) {
	switch kind {
	case types.KindProject:
		proj := &types.Project{
			ID: p.ID, Name: p.Name, Summary: p.Summary, Status: status,
			Priority: types.Priority(types.EnumName(p.Priority)), Tags: p.Tags,
		}
		return proj, s.store.CreateProject(ctx, proj)
	case types.KindFeature:
		f := &types.Feature{
			ID: p.ID, ProjectID: p.ProjectID, Name: p.Name, Summary: p.Summary,
			Status: status, Priority: types.Priority(types.EnumName(p.Priority)),
			Tags: p.Tags,
		}
		if p.RequiresVerification != nil {
			f.RequiresVerification = *p.RequiresVerification
		}
		return f, s.store.CreateFeature(ctx, f)
	default:
		t := &types.Task{
			ID: p.ID, FeatureID: p.FeatureID, Name: p.Name,
			Description: p.Description, Summary: p.Summary, Status: status,
			Priority:   types.Priority(types.EnumName(p.Priority)),
			Complexity: p.Complexity, Tags: p.Tags,
		}
		return t, s.store.CreateTask(ctx, t)
	}
}

func (s *Server) updateContainers(ctx context.Context, kind types.EntityKind, payloads []ContainerPayload) *Response {
	if len(payloads) == 0 {
		return fail(CodeValidation, "update requires a non-empty containers array", "")
	}
	updated := make([]any, 0, len(payloads))
	for _, p := range payloads {
		if p.ID == "" {
			return fail(CodeValidation, "update entries require id", "")
		}
		entity, err := s.updateOne(ctx, kind, p)
		if err != nil {
			return failErr(err)
		}
		updated = append(updated, entity)
	}
	return ok(fmt.Sprintf("updated %d %s(s)", len(updated), types.WireName(kind)),
		map[string]any{"containers": updated})
}

func (s *Server) updateOne(ctx context.Context, kind types.EntityKind, p ContainerPayload) (any, error) {
	updates := map[string]any{}
	if p.Name != "" {
		updates["name"] = p.Name
	}
	if p.Summary != "" {
		updates["summary"] = p.Summary
	}
	if p.Status != "" {
		updates["status"] = p.Status
	}
	if p.Priority != "" {
		updates["priority"] = p.Priority
	}
	if p.Tags != nil {
		updates["tags"] = p.Tags
	}
	switch kind {
	case types.KindProject:
		return s.store.UpdateProject(ctx, p.ID, updates)
	case types.KindFeature:
		if p.ProjectID != "" {
			updates["projectId"] = p.ProjectID
		}
		if p.RequiresVerification != nil {
			updates["requiresVerification"] = *p.RequiresVerification
		}
		return s.store.UpdateFeature(ctx, p.ID, updates)
	default:
		if p.Description != "" {
			updates["description"] = p.Description
		}
		if p.FeatureID != "" {
			updates["featureId"] = p.FeatureID
		}
		if p.Complexity != 0 {
			updates["complexity"] = p.Complexity
		}
		return s.store.UpdateTask(ctx, p.ID, updates)
	}
}

func (s *Server) deleteContainer(ctx context.Context, kind types.EntityKind, id string) error {
	switch kind {
	case types.KindProject:
		return s.store.DeleteProject(ctx, id)
	case types.KindFeature:
		return s.deleteFeature(ctx, id)
	default:
		return s.store.DeleteTask(ctx, id)
	}
}

// deleteFeature applies the completion-cleanup retention rules before the
// row goes away: destroying a terminal feature deletes its non-retained
// child tasks, while a non-terminal feature only orphans them.
func (s *Server) deleteFeature(ctx context.Context, id string) error {
	f, err := s.store.GetFeature(ctx, id)
	if err != nil {
		return err
	}
	if s.cfg.For(types.KindFeature).IsTerminal(f.Status) {
		if _, err := workflow.NewCleaner(s.cfg, s.store).Run(ctx, id); err != nil {
			return err
		}
	}
	return s.store.DeleteFeature(ctx, id)
}
