package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// handleQueryContainer covers get/overview/search/export. All operations are
// read-only.
func (s *Server) handleQueryContainer(ctx context.Context, raw json.RawMessage) *Response {
	var args QueryContainerArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fail(CodeValidation, "malformed query_container arguments: "+err.Error(), "")
	}
	kind, err := parseKind(args.ContainerType)
	if err != nil {
		return failErr(err)
	}

	switch args.Operation {
	case "get":
		return s.getContainer(ctx, kind, args)
	case "overview":
		return s.containerOverview(ctx, kind, args.ID)
	case "search":
		return s.searchContainers(ctx, kind, args)
	case "export":
		return s.exportContainer(ctx, kind, args.ID)
	}
	return fail(CodeValidation,
		fmt.Sprintf("unknown query_container operation %q (get|overview|search|export)", args.Operation), "")
}

func (s *Server) getContainer(ctx context.Context, kind types.EntityKind, args QueryContainerArgs) *Response {
	if args.ID == "" {
		return fail(CodeValidation, "get requires id", "")
	}
	entity, err := s.fetchContainer(ctx, kind, args.ID)
	if err != nil {
		return failErr(err)
	}
	data := map[string]any{"container": entity}
	if args.IncludeSections {
		sections, err := s.store.FindSections(ctx, types.SectionFilter{EntityType: kind, EntityID: args.ID})
		if err != nil {
			return failErr(err)
		}
		data["sections"] = emptyIfNil(sections)
	}
	return ok(fmt.Sprintf("%s %s", types.WireName(kind), args.ID), data)
}

// containerOverview returns the entity plus child status counts: features
// by status for a project, tasks by status for a feature, blockers for a
// task. Sections are deliberately omitted; this is the token-cheap read.
func (s *Server) containerOverview(ctx context.Context, kind types.EntityKind, id string) *Response {
	if id == "" {
		return fail(CodeValidation, "overview requires id", "")
	}
	entity, err := s.fetchContainer(ctx, kind, id)
	if err != nil {
		return failErr(err)
	}
	data := map[string]any{
		"container": entity,
	}

	switch kind {
	case types.KindProject:
		counts, err := s.store.CountByStatus(ctx, types.KindFeature, id)
		if err != nil {
			return failErr(err)
		}
		data["featureCounts"] = statusBreakdown(counts)
	case types.KindFeature:
		counts, err := s.store.CountByStatus(ctx, types.KindTask, id)
		if err != nil {
			return failErr(err)
		}
		data["taskCounts"] = statusBreakdown(counts)
	case types.KindTask:
		blockers, err := s.store.BlockersOf(ctx, id)
		if err != nil {
			return failErr(err)
		}
		data["blockers"] = emptyIfNil(blockers)
	}
	return ok(fmt.Sprintf("%s %s overview", types.WireName(kind), id), data)
}

func (s *Server) searchContainers(ctx context.Context, kind types.EntityKind, args QueryContainerArgs) *Response {
	filter := types.ContainerFilter{
		Query:      args.Query,
		Status:     args.Status,
		Priority:   types.Priority(types.EnumName(args.Priority)),
		Tags:       args.Tags,
		ParentID:   args.ParentID,
		Standalone: args.Standalone,
		Limit:      args.Limit,
	}
	if args.Priority == "" {
		filter.Priority = ""
	}
	results, count, err := s.findContainers(ctx, kind, filter)
	if err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("%d %s(s)", count, types.WireName(kind)),
		map[string]any{"containers": results, "count": count})
}

// exportContainer assembles the full subtree: a project with its features
// and their tasks, a feature with its tasks, or one task. Every entity
// carries its sections.
func (s *Server) exportContainer(ctx context.Context, kind types.EntityKind, id string) *Response {
	if id == "" {
		return fail(CodeValidation, "export requires id", "")
	}
	node, err := s.exportNode(ctx, kind, id)
	if err != nil {
		return failErr(err)
	}
	md, err := s.exportMarkdown(ctx, kind, id)
	if err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("%s %s export", types.WireName(kind), id),
		map[string]any{"markdown": md, "tree": node})
}

func (s *Server) exportNode(ctx context.Context, kind types.EntityKind, id string) (map[string]any, error) {
	entity, err := s.fetchContainer(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	sections, err := s.store.FindSections(ctx, types.SectionFilter{EntityType: kind, EntityID: id})
	if err != nil {
		return nil, err
	}
	node := map[string]any{
		"containerType": types.WireName(kind),
		"container":     entity,
		"sections":      emptyIfNil(sections),
	}

	switch kind {
	case types.KindProject:
		features, err := s.store.FindFeatures(ctx, types.ContainerFilter{ParentID: id})
		if err != nil {
			return nil, err
		}
		children := make([]map[string]any, 0, len(features))
		for _, f := range features {
			child, err := s.exportNode(ctx, types.KindFeature, f.ID)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		node["features"] = children
	case types.KindFeature:
		tasks, err := s.store.FindTasks(ctx, types.ContainerFilter{ParentID: id})
		if err != nil {
			return nil, err
		}
		children := make([]map[string]any, 0, len(tasks))
		for _, t := range tasks {
			child, err := s.exportNode(ctx, types.KindTask, t.ID)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		node["tasks"] = children
	case types.KindTask:
		deps, err := s.store.FindDependencies(ctx, id, storage.DirBoth, "")
		if err != nil {
			return nil, err
		}
		node["dependencies"] = emptyIfNil(deps)
	}
	return node, nil
}

func (s *Server) fetchContainer(ctx context.Context, kind types.EntityKind, id string) (any, error) {
	switch kind {
	case types.KindProject:
		return s.store.GetProject(ctx, id)
	case types.KindFeature:
		return s.store.GetFeature(ctx, id)
	default:
		return s.store.GetTask(ctx, id)
	}
}

func (s *Server) findContainers(ctx context.Context, kind types.EntityKind, filter types.ContainerFilter) (any, int, error) {
	switch kind {
	case types.KindProject:
		out, err := s.store.FindProjects(ctx, filter)
		return emptyIfNil(out), len(out), err
	case types.KindFeature:
		out, err := s.store.FindFeatures(ctx, filter)
		return emptyIfNil(out), len(out), err
	default:
		out, err := s.store.FindTasks(ctx, filter)
		return emptyIfNil(out), len(out), err
	}
}

// handleListTags aggregates distinct container tags with per-kind counts.
func (s *Server) handleListTags(ctx context.Context, _ json.RawMessage) *Response {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("%d tag(s)", len(tags)),
		map[string]any{"tags": emptyIfNil(tags), "count": len(tags)})
}

// statusBreakdown shapes a status histogram as {total, byStatus}.
func statusBreakdown(counts map[string]int) map[string]any {
	total := 0
	for _, n := range counts {
		total += n
	}
	if counts == nil {
		counts = map[string]int{}
	}
	return map[string]any{"total": total, "byStatus": counts}
}

// emptyIfNil keeps empty collections serializing as [] instead of null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
