// Package rpc implements the stdio tool dispatcher: newline-delimited JSON
// requests in, one-line response envelopes out. Handlers are thin; all
// engine behavior lives in the workflow and storage packages.
package rpc

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/untoldecay/TaskOrchestrator/internal/storage"
)

// Tool name constants for the full dispatch surface.
const (
	ToolManageContainer      = "manage_container"
	ToolManageSections       = "manage_sections"
	ToolQueryContainer       = "query_container"
	ToolManageDependencies   = "manage_dependencies"
	ToolQueryDependencies    = "query_dependencies"
	ToolGetBlockedTasks      = "get_blocked_tasks"
	ToolGetNextTask          = "get_next_task"
	ToolGetNextStatus        = "get_next_status"
	ToolRequestTransition    = "request_transition"
	ToolQueryRoleTransitions = "query_role_transitions"
	ToolQueryTemplates       = "query_templates"
	ToolApplyTemplate        = "apply_template"
	ToolListTags             = "list_tags"
)

// Error codes carried in the response envelope.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "RESOURCE_NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeDatabase   = "DATABASE_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
)

// Request is one line of stdin: a tool name plus its arguments.
type Request struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

// ErrorBody is the structured error half of a failed envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// Response is the envelope written as one line of stdout.
type Response struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

func ok(message string, data any) *Response {
	return &Response{Success: true, Message: message, Data: data}
}

func fail(code, message, details string) *Response {
	return &Response{
		Success: false,
		Message: oneLine(message),
		Error:   &ErrorBody{Code: code, Details: oneLine(details)},
	}
}

// failErr maps the storage error taxonomy onto envelope codes.
func failErr(err error) *Response {
	var dbErr *storage.DatabaseError
	switch {
	case storage.IsValidation(err):
		return fail(CodeValidation, err.Error(), "")
	case storage.IsNotFound(err):
		return fail(CodeNotFound, err.Error(), "")
	case storage.IsConflict(err):
		return fail(CodeConflict, err.Error(), "")
	case errors.As(err, &dbErr):
		return fail(CodeDatabase, "database operation failed", err.Error())
	}
	return fail(CodeInternal, "internal error", err.Error())
}

// oneLine keeps user-visible messages to a single line.
func oneLine(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}
