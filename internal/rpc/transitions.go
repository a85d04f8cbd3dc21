package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/untoldecay/TaskOrchestrator/internal/types"
	"github.com/untoldecay/TaskOrchestrator/internal/workflow"
)

// handleGetNextStatus is the read-only dry run: what would happen next and
// whether it can.
func (s *Server) handleGetNextStatus(ctx context.Context, raw json.RawMessage) *Response {
	var args GetNextStatusArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fail(CodeValidation, "malformed get_next_status arguments: "+err.Error(), "")
	}
	kind, err := parseKind(args.ContainerType)
	if err != nil {
		return failErr(err)
	}
	if args.ContainerID == "" {
		return fail(CodeValidation, "get_next_status requires containerId", "")
	}

	rec, err := s.progression.NextStatus(ctx, kind, args.ContainerID)
	if err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("%s %s: %s", types.WireName(kind), args.ContainerID, string(rec.State)),
		map[string]any{"recommendation": rec})
}

// handleRequestTransition executes one transition or a batch. Batch entries
// are independent: each gets its own outcome and one failure never rolls
// back the others.
func (s *Server) handleRequestTransition(ctx context.Context, raw json.RawMessage) *Response {
	var args RequestTransitionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fail(CodeValidation, "malformed request_transition arguments: "+err.Error(), "")
	}

	if len(args.Transitions) > 0 {
		return s.runTransitionBatch(ctx, args.Transitions)
	}

	req, err := transitionRequest(args.TransitionItem)
	if err != nil {
		return failErr(err)
	}
	result, err := s.executor.Execute(ctx, req)
	if err != nil {
		return failErr(err)
	}
	return ok(transitionMessage(result), map[string]any{"transition": result})
}

func (s *Server) runTransitionBatch(ctx context.Context, items []TransitionItem) *Response {
	reqs := make([]workflow.TransitionRequest, 0, len(items))
	for _, item := range items {
		req, err := transitionRequest(item)
		if err != nil {
			return failErr(err)
		}
		reqs = append(reqs, req)
	}

	outcomes := s.executor.ExecuteBatch(ctx, reqs)
	results := make([]map[string]any, 0, len(outcomes))
	failures := 0
	for _, o := range outcomes {
		entry := map[string]any{
			"containerType": types.WireName(o.Request.Kind),
			"containerId":   o.Request.ID,
			"trigger":       string(o.Request.Trigger),
		}
		if o.Err != nil {
			failures++
			entry["success"] = false
			entry["error"] = failErr(o.Err).Error
			entry["message"] = oneLine(o.Err.Error())
		} else {
			entry["success"] = true
			entry["transition"] = o.Result
		}
		results = append(results, entry)
	}
	return ok(fmt.Sprintf("%d of %d transition(s) applied", len(outcomes)-failures, len(outcomes)),
		map[string]any{"results": results, "applied": len(outcomes) - failures, "failed": failures})
}

func transitionRequest(item TransitionItem) (workflow.TransitionRequest, error) {
	kind, err := parseKind(item.ContainerType)
	if err != nil {
		return workflow.TransitionRequest{}, err
	}
	return workflow.TransitionRequest{
		Kind:    kind,
		ID:      item.ContainerID,
		Trigger: workflow.Trigger(item.Trigger),
		Summary: item.Summary,
	}, nil
}

func transitionMessage(r *workflow.TransitionResult) string {
	if r.NoOp {
		return fmt.Sprintf("%s %s already %s", types.WireName(r.Kind), r.ID, r.NewStatus)
	}
	msg := fmt.Sprintf("%s %s: %s -> %s", types.WireName(r.Kind), r.ID, r.PreviousStatus, r.NewStatus)
	if n := len(r.CascadeEvents); n > 0 {
		msg += fmt.Sprintf(" (%d cascade event(s))", n)
	}
	return msg
}

// handleQueryRoleTransitions reads the append-only audit log, newest first.
func (s *Server) handleQueryRoleTransitions(ctx context.Context, raw json.RawMessage) *Response {
	var args QueryRoleTransitionsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fail(CodeValidation, "malformed query_role_transitions arguments: "+err.Error(), "")
	}
	filter := types.TransitionFilter{
		EntityID: args.EntityID,
		Limit:    args.Limit,
	}
	if args.EntityType != "" {
		kind, err := parseKind(args.EntityType)
		if err != nil {
			return failErr(err)
		}
		filter.EntityType = kind
	}
	if args.ToRole != "" {
		role := types.Role(types.EnumName(args.ToRole))
		if !types.ValidRole(role) {
			return fail(CodeValidation, fmt.Sprintf("invalid role %q", args.ToRole), "")
		}
		filter.ToRole = role
	}

	transitions, err := s.store.FindRoleTransitions(ctx, filter)
	if err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("%d role transition(s)", len(transitions)),
		map[string]any{"transitions": emptyIfNil(transitions), "count": len(transitions)})
}
