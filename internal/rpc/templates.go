package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/untoldecay/TaskOrchestrator/internal/storage"
	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// Templates are entities that exist only through their TEMPLATE sections;
// applying one clones those sections onto a real container.

// handleQueryTemplates lists template ids, or one template's sections.
func (s *Server) handleQueryTemplates(ctx context.Context, raw json.RawMessage) *Response {
	var args QueryTemplatesArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fail(CodeValidation, "malformed query_templates arguments: "+err.Error(), "")
	}

	if args.ID == "" {
		ids, err := s.store.ListTemplates(ctx)
		if err != nil {
			return failErr(err)
		}
		return ok(fmt.Sprintf("%d template(s)", len(ids)),
			map[string]any{"templates": emptyIfNil(ids), "count": len(ids)})
	}

	sections, err := s.store.FindSections(ctx, types.SectionFilter{
		EntityType: types.KindTemplate,
		EntityID:   args.ID,
	})
	if err != nil {
		return failErr(err)
	}
	if len(sections) == 0 {
		return failErr(&storage.NotFoundError{Kind: "template", ID: args.ID})
	}
	return ok(fmt.Sprintf("template %s: %d section(s)", args.ID, len(sections)),
		map[string]any{"templateId": args.ID, "sections": sections})
}

// handleApplyTemplate clones a template's sections onto the target entity,
// appending past the target's highest ordinal so existing sections keep
// their positions.
func (s *Server) handleApplyTemplate(ctx context.Context, raw json.RawMessage) *Response {
	var args ApplyTemplateArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fail(CodeValidation, "malformed apply_template arguments: "+err.Error(), "")
	}
	if args.TemplateID == "" {
		return fail(CodeValidation, "apply_template requires templateId", "")
	}
	kind, err := parseKind(args.EntityType)
	if err != nil {
		return failErr(err)
	}
	if args.EntityID == "" {
		return fail(CodeValidation, "apply_template requires entityId", "")
	}
	if _, err := s.fetchContainer(ctx, kind, args.EntityID); err != nil {
		return failErr(err)
	}

	source, err := s.store.FindSections(ctx, types.SectionFilter{
		EntityType: types.KindTemplate,
		EntityID:   args.TemplateID,
	})
	if err != nil {
		return failErr(err)
	}
	if len(source) == 0 {
		return failErr(&storage.NotFoundError{Kind: "template", ID: args.TemplateID})
	}

	base, err := s.store.MaxOrdinal(ctx, kind, args.EntityID)
	if err != nil {
		return failErr(err)
	}
	offset := base + 1
	clones := make([]*types.Section, 0, len(source))
	for i, src := range source {
		clones = append(clones, &types.Section{
			EntityType:       kind,
			EntityID:         args.EntityID,
			Title:            src.Title,
			UsageDescription: src.UsageDescription,
			Content:          src.Content,
			Ordinal:          offset + i,
			Tags:             src.Tags,
		})
	}
	if err := s.store.CreateSections(ctx, clones); err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("applied template %s: %d section(s) added to %s %s",
		args.TemplateID, len(clones), types.WireName(kind), args.EntityID),
		map[string]any{"sections": clones})
}
