package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// handleManageDependencies covers create (single edge or pattern), delete,
// and list. Cycle rejection happens in the storage layer; a pattern stops at
// the first edge that fails, leaving earlier edges in place.
func (s *Server) handleManageDependencies(ctx context.Context, raw json.RawMessage) *Response {
	var args ManageDependenciesArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fail(CodeValidation, "malformed manage_dependencies arguments: "+err.Error(), "")
	}

	switch args.Operation {
	case "create":
		if args.Pattern != "" {
			return s.createDependencyPattern(ctx, args)
		}
		return s.createDependency(ctx, args)
	case "delete":
		if args.ID == "" {
			return fail(CodeValidation, "delete requires id", "")
		}
		if err := s.store.DeleteDependency(ctx, args.ID); err != nil {
			return failErr(err)
		}
		return ok(fmt.Sprintf("dependency %s deleted", args.ID), nil)
	case "list":
		taskID := args.TaskID
		if taskID == "" {
			taskID = args.FromTaskID
		}
		if taskID == "" {
			return fail(CodeValidation, "list requires taskId", "")
		}
		deps, err := s.store.FindDependencies(ctx, taskID, storage.DirBoth, "")
		if err != nil {
			return failErr(err)
		}
		return ok(fmt.Sprintf("%d dependencies on task %s", len(deps), taskID),
			map[string]any{"dependencies": emptyIfNil(deps), "count": len(deps)})
	}
	return fail(CodeValidation,
		fmt.Sprintf("unknown manage_dependencies operation %q (create|delete|list)", args.Operation), "")
}

func (s *Server) createDependency(ctx context.Context, args ManageDependenciesArgs) *Response {
	dep, err := s.addEdge(ctx, args.FromTaskID, args.ToTaskID, args.Type, args.UnblockAt)
	if err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("%s %s %s", dep.FromTaskID, types.WireName(dep.Type), dep.ToTaskID),
		map[string]any{"dependency": dep})
}

// createDependencyPattern expands a pattern over taskIds into BLOCKS edges:
// linear chains each id to the next; fan-out makes the first id block all
// the rest; fan-in makes every id but the last block the last.
func (s *Server) createDependencyPattern(ctx context.Context, args ManageDependenciesArgs) *Response {
	if len(args.TaskIDs) < 2 {
		return fail(CodeValidation, "pattern create requires at least two taskIds", "")
	}
	var pairs [][2]string
	switch args.Pattern {
	case "linear":
		for i := 0; i+1 < len(args.TaskIDs); i++ {
			pairs = append(pairs, [2]string{args.TaskIDs[i], args.TaskIDs[i+1]})
		}
	case "fan-out":
		for _, id := range args.TaskIDs[1:] {
			pairs = append(pairs, [2]string{args.TaskIDs[0], id})
		}
	case "fan-in":
		last := args.TaskIDs[len(args.TaskIDs)-1]
		for _, id := range args.TaskIDs[:len(args.TaskIDs)-1] {
			pairs = append(pairs, [2]string{id, last})
		}
	default:
		return fail(CodeValidation,
			fmt.Sprintf("unknown pattern %q (linear|fan-out|fan-in)", args.Pattern), "")
	}

	created := make([]*types.Dependency, 0, len(pairs))
	for _, pair := range pairs {
		dep, err := s.addEdge(ctx, pair[0], pair[1], "blocks", args.UnblockAt)
		if err != nil {
			resp := failErr(err)
			resp.Message = fmt.Sprintf("pattern stopped at %s -> %s after %d edge(s): %s",
				pair[0], pair[1], len(created), resp.Message)
			resp.Data = map[string]any{"dependencies": created}
			return resp
		}
		created = append(created, dep)
	}
	return ok(fmt.Sprintf("created %d %s edge(s)", len(created), args.Pattern),
		map[string]any{"dependencies": created})
}

func (s *Server) addEdge(ctx context.Context, from, to, depType, unblockAt string) (*types.Dependency, error) {
	if from == "" || to == "" {
		return nil, storage.Validationf("create requires fromTaskId and toTaskId")
	}
	dep := &types.Dependency{
		FromTaskID: from,
		ToTaskID:   to,
		Type:       types.DependencyType(types.EnumName(depType)),
		UnblockAt:  types.Role(types.EnumName(unblockAt)),
	}
	if depType == "" {
		dep.Type = types.DepBlocks
	}
	if err := s.store.AddDependency(ctx, dep); err != nil {
		return nil, err
	}
	return dep, nil
}

// handleQueryDependencies lists a task's edges, optionally narrowed by
// direction and type, optionally hydrated with the peer tasks.
func (s *Server) handleQueryDependencies(ctx context.Context, raw json.RawMessage) *Response {
	var args QueryDependenciesArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fail(CodeValidation, "malformed query_dependencies arguments: "+err.Error(), "")
	}
	if args.TaskID == "" {
		return fail(CodeValidation, "query_dependencies requires taskId", "")
	}
	dir := storage.Direction(args.Direction)
	switch dir {
	case storage.DirIncoming, storage.DirOutgoing, storage.DirBoth, "":
	default:
		return fail(CodeValidation,
			fmt.Sprintf("invalid direction %q (incoming|outgoing|both)", args.Direction), "")
	}
	var typeFilter types.DependencyType
	if args.Type != "" {
		typeFilter = types.DependencyType(types.EnumName(args.Type))
		if !types.ValidDependencyType(typeFilter) {
			return fail(CodeValidation, fmt.Sprintf("invalid dependency type %q", args.Type), "")
		}
	}

	deps, err := s.store.FindDependencies(ctx, args.TaskID, dir, typeFilter)
	if err != nil {
		return failErr(err)
	}
	data := map[string]any{"dependencies": emptyIfNil(deps), "count": len(deps)}

	if args.IncludeTasks {
		tasks := map[string]*types.Task{}
		for _, d := range deps {
			peer := d.ToTaskID
			if peer == args.TaskID {
				peer = d.FromTaskID
			}
			if _, seen := tasks[peer]; seen {
				continue
			}
			t, err := s.store.GetTask(ctx, peer)
			if err != nil {
				if storage.IsNotFound(err) {
					continue
				}
				return failErr(err)
			}
			tasks[peer] = t
		}
		data["tasks"] = tasks
	}
	return ok(fmt.Sprintf("%d dependencies on task %s", len(deps), args.TaskID), data)
}

// handleGetBlockedTasks lists non-terminal tasks with unsatisfied blockers.
func (s *Server) handleGetBlockedTasks(ctx context.Context, raw json.RawMessage) *Response {
	var args GetBlockedTasksArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fail(CodeValidation, "malformed get_blocked_tasks arguments: "+err.Error(), "")
	}
	blocked, err := s.recommender.BlockedTasks(ctx, args.FeatureID)
	if err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("%d blocked task(s)", len(blocked)),
		map[string]any{"blockedTasks": emptyIfNil(blocked), "count": len(blocked)})
}

// handleGetNextTask recommends the best unblocked queue-role task.
func (s *Server) handleGetNextTask(ctx context.Context, raw json.RawMessage) *Response {
	var args GetNextTaskArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fail(CodeValidation, "malformed get_next_task arguments: "+err.Error(), "")
	}
	task, err := s.recommender.NextTask(ctx, args.FeatureID)
	if err != nil {
		return failErr(err)
	}
	if task == nil {
		return ok("no task is ready to start", map[string]any{"task": nil})
	}
	return ok(fmt.Sprintf("next task: %s", task.Name), map[string]any{"task": task})
}
