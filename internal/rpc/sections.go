package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// handleManageSections covers add/update/delete/bulkCreate/bulkUpdateText.
// Writes are guarded by the section version counter: updates carrying
// expectedVersion fail with CONFLICT when another writer got there first.
func (s *Server) handleManageSections(ctx context.Context, raw json.RawMessage) *Response {
	var args ManageSectionsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fail(CodeValidation, "malformed manage_sections arguments: "+err.Error(), "")
	}

	switch args.Operation {
	case "add":
		return s.addSection(ctx, args)
	case "update":
		return s.updateSection(ctx, args)
	case "delete":
		if args.ID == "" {
			return fail(CodeValidation, "delete requires id", "")
		}
		if err := s.store.DeleteSection(ctx, args.ID); err != nil {
			return failErr(err)
		}
		return ok(fmt.Sprintf("section %s deleted", args.ID), nil)
	case "bulkCreate":
		return s.bulkCreateSections(ctx, args)
	case "bulkUpdateText":
		return s.bulkUpdateSectionText(ctx, args)
	}
	return fail(CodeValidation,
		fmt.Sprintf("unknown manage_sections operation %q (add|update|delete|bulkCreate|bulkUpdateText)", args.Operation), "")
}

func (s *Server) addSection(ctx context.Context, args ManageSectionsArgs) *Response {
	kind, err := parseEntityKind(args.EntityType)
	if err != nil {
		return failErr(err)
	}
	if args.EntityID == "" {
		return fail(CodeValidation, "add requires entityId", "")
	}
	if args.Section == nil {
		return fail(CodeValidation, "add requires a section object", "")
	}

	sec, err := s.buildSection(ctx, kind, args.EntityID, *args.Section)
	if err != nil {
		return failErr(err)
	}
	if err := s.store.CreateSection(ctx, sec); err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("section %q added to %s %s", sec.Title, types.WireName(kind), args.EntityID),
		map[string]any{"section": sec})
}

// buildSection resolves the ordinal: explicit when given, otherwise appended
// past the entity's current maximum.
func (s *Server) buildSection(ctx context.Context, kind types.EntityKind, entityID string, p SectionPayload) (*types.Section, error) {
	ordinal := 0
	if p.Ordinal != nil {
		ordinal = *p.Ordinal
	} else {
		max, err := s.store.MaxOrdinal(ctx, kind, entityID)
		if err != nil {
			return nil, err
		}
		ordinal = max + 1
	}
	return &types.Section{
		EntityType:       kind,
		EntityID:         entityID,
		Title:            p.Title,
		UsageDescription: p.UsageDescription,
		Content:          p.Content,
		Ordinal:          ordinal,
		Tags:             p.Tags,
	}, nil
}

func (s *Server) updateSection(ctx context.Context, args ManageSectionsArgs) *Response {
	if args.ID == "" {
		return fail(CodeValidation, "update requires id", "")
	}
	updates := map[string]any{}
	if args.Title != nil {
		updates["title"] = *args.Title
	}
	if args.UsageDescription != nil {
		updates["usageDescription"] = *args.UsageDescription
	}
	if args.Content != nil {
		updates["content"] = *args.Content
	}
	if args.Ordinal != nil {
		updates["ordinal"] = *args.Ordinal
	}
	if args.Tags != nil {
		updates["tags"] = args.Tags
	}
	if len(updates) == 0 {
		return fail(CodeValidation, "update requires at least one field", "")
	}
	sec, err := s.store.UpdateSection(ctx, args.ID, updates, args.ExpectedVersion)
	if err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("section %s updated to version %d", sec.ID, sec.Version),
		map[string]any{"section": sec})
}

// bulkCreateSections inserts the whole batch atomically; one bad entry
// rolls everything back.
func (s *Server) bulkCreateSections(ctx context.Context, args ManageSectionsArgs) *Response {
	kind, err := parseEntityKind(args.EntityType)
	if err != nil {
		return failErr(err)
	}
	if args.EntityID == "" {
		return fail(CodeValidation, "bulkCreate requires entityId", "")
	}
	if len(args.Sections) == 0 {
		return fail(CodeValidation, "bulkCreate requires a non-empty sections array", "")
	}

	base, err := s.store.MaxOrdinal(ctx, kind, args.EntityID)
	if err != nil {
		return failErr(err)
	}
	next := base + 1
	sections := make([]*types.Section, 0, len(args.Sections))
	for _, p := range args.Sections {
		ordinal := next
		if p.Ordinal != nil {
			ordinal = *p.Ordinal
		} else {
			next++
		}
		sections = append(sections, &types.Section{
			EntityType:       kind,
			EntityID:         args.EntityID,
			Title:            p.Title,
			UsageDescription: p.UsageDescription,
			Content:          p.Content,
			Ordinal:          ordinal,
			Tags:             p.Tags,
		})
	}
	if err := s.store.CreateSections(ctx, sections); err != nil {
		return failErr(err)
	}
	return ok(fmt.Sprintf("created %d section(s) on %s %s", len(sections), types.WireName(kind), args.EntityID),
		map[string]any{"sections": sections})
}

// bulkUpdateSectionText rewrites content across sections. Entries apply in
// order and the call stops at the first failure, reporting what landed.
func (s *Server) bulkUpdateSectionText(ctx context.Context, args ManageSectionsArgs) *Response {
	if len(args.Updates) == 0 {
		return fail(CodeValidation, "bulkUpdateText requires a non-empty updates array", "")
	}
	updated := make([]*types.Section, 0, len(args.Updates))
	for _, u := range args.Updates {
		if u.ID == "" {
			return fail(CodeValidation, "bulkUpdateText entries require id", "")
		}
		sec, err := s.store.UpdateSection(ctx, u.ID, map[string]any{"content": u.Content}, u.ExpectedVersion)
		if err != nil {
			resp := failErr(err)
			resp.Message = fmt.Sprintf("stopped at section %s after %d update(s): %s", u.ID, len(updated), resp.Message)
			resp.Data = map[string]any{"sections": updated}
			return resp
		}
		updated = append(updated, sec)
	}
	return ok(fmt.Sprintf("updated %d section(s)", len(updated)),
		map[string]any{"sections": updated})
}
