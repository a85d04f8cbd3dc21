package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/untoldecay/TaskOrchestrator/internal/config"
	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
	"github.com/untoldecay/TaskOrchestrator/internal/workflow"
)

// maxLineBytes bounds one stdin request line.
const maxLineBytes = 8 << 20

type handlerFunc func(ctx context.Context, args json.RawMessage) *Response

type handler struct {
	fn handlerFunc
	// readOnly marks handlers that never mutate; surfaced to clients as the
	// idempotency hint.
	readOnly bool
}

// Server owns the stdio pair and the tool registry. Handlers produce a
// single response value; only the writer goroutine-guard touches stdout.
type Server struct {
	cfg         *config.Config
	store       storage.Storage
	executor    *workflow.Executor
	progression *workflow.Progression
	recommender *workflow.Recommender
	log         *slog.Logger

	handlers map[string]handler

	outMu sync.Mutex
	out   io.Writer
}

// NewServer wires the engine services over one store and config.
func NewServer(cfg *config.Config, store storage.Storage, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:         cfg,
		store:       store,
		executor:    workflow.NewExecutor(cfg, store, log),
		progression: workflow.NewProgression(cfg, store),
		recommender: workflow.NewRecommender(cfg, store),
		log:         log,
	}
	s.handlers = map[string]handler{
		ToolManageContainer:      {fn: s.handleManageContainer},
		ToolManageSections:       {fn: s.handleManageSections},
		ToolQueryContainer:       {fn: s.handleQueryContainer, readOnly: true},
		ToolManageDependencies:   {fn: s.handleManageDependencies},
		ToolQueryDependencies:    {fn: s.handleQueryDependencies, readOnly: true},
		ToolGetBlockedTasks:      {fn: s.handleGetBlockedTasks, readOnly: true},
		ToolGetNextTask:          {fn: s.handleGetNextTask, readOnly: true},
		ToolGetNextStatus:        {fn: s.handleGetNextStatus, readOnly: true},
		ToolRequestTransition:    {fn: s.handleRequestTransition},
		ToolQueryRoleTransitions: {fn: s.handleQueryRoleTransitions, readOnly: true},
		ToolQueryTemplates:       {fn: s.handleQueryTemplates, readOnly: true},
		ToolApplyTemplate:        {fn: s.handleApplyTemplate},
		ToolListTags:             {fn: s.handleListTags, readOnly: true},
	}
	return s
}

// Tools lists the registered tool names with their read-only annotation.
func (s *Server) Tools() map[string]bool {
	out := make(map[string]bool, len(s.handlers))
	for name, h := range s.handlers {
		out[name] = h.readOnly
	}
	return out
}

// Run reads requests line by line until EOF. Each request is handled on its
// own goroutine; responses are serialized onto the writer. Closing stdin
// cancels every outstanding handler and Run returns once they drain.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.out = out

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var wg sync.WaitGroup
	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.writeResponse(s.dispatch(ctx, line))
		}()
	}
	cancel()
	wg.Wait()

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading requests: %w", err)
	}
	return nil
}

// dispatch parses one request line and routes it to its handler. A handler
// panic becomes an INTERNAL_ERROR envelope instead of killing the process.
func (s *Server) dispatch(ctx context.Context, line []byte) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("handler panic", "panic", fmt.Sprint(r))
			resp = fail(CodeInternal, "internal error", fmt.Sprint(r))
		}
	}()

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return fail(CodeValidation, "malformed request: "+err.Error(), "")
	}
	h, okTool := s.handlers[req.Tool]
	if !okTool {
		return fail(CodeValidation, fmt.Sprintf("unknown tool %q", req.Tool), "")
	}

	args, err := coerceBoolStrings(req.Arguments)
	if err != nil {
		return fail(CodeValidation, "malformed arguments: "+err.Error(), "")
	}
	s.log.Debug("dispatch", "tool", req.Tool, "readOnly", h.readOnly)
	return h.fn(ctx, args)
}

func (s *Server) writeResponse(resp *Response) {
	payload, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("marshal response", "err", err)
		payload, _ = json.Marshal(fail(CodeInternal, "response serialization failed", err.Error()))
	}
	s.outMu.Lock()
	defer s.outMu.Unlock()
	_, _ = s.out.Write(append(payload, '\n'))
}

// coerceBoolStrings rewrites "true"/"false" string primitives to real
// booleans anywhere in the argument tree; some clients stringify them.
func coerceBoolStrings(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return json.RawMessage("{}"), nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(coerceValue(v))
}

func coerceValue(v any) any {
	switch vv := v.(type) {
	case string:
		if vv == "true" {
			return true
		}
		if vv == "false" {
			return false
		}
	case map[string]any:
		for k, item := range vv {
			vv[k] = coerceValue(item)
		}
	case []any:
		for i, item := range vv {
			vv[i] = coerceValue(item)
		}
	}
	return v
}

// parseKind converts a wire container type ("task") to the internal kind.
func parseKind(wire string) (types.EntityKind, error) {
	kind := types.EntityKind(types.EnumName(wire))
	switch kind {
	case types.KindProject, types.KindFeature, types.KindTask:
		return kind, nil
	}
	return "", storage.Validationf("invalid container type %q (project|feature|task)", wire)
}

// parseEntityKind additionally accepts template, for section targets.
func parseEntityKind(wire string) (types.EntityKind, error) {
	kind := types.EntityKind(types.EnumName(wire))
	if types.ValidEntityKind(kind) {
		return kind, nil
	}
	return "", storage.Validationf("invalid entity type %q (project|feature|task|template)", wire)
}
