package rpc

import (
	"context"
	"fmt"
	"strings"

	"github.com/untoldecay/TaskOrchestrator/internal/types"
)

// Markdown export: the entity tree rendered as a document, sections as the
// body. Heading depth follows the hierarchy.

func (s *Server) exportMarkdown(ctx context.Context, kind types.EntityKind, id string) (string, error) {
	var b strings.Builder
	if err := s.writeMarkdownNode(ctx, &b, kind, id, 1); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeMarkdownNode(ctx context.Context, b *strings.Builder, kind types.EntityKind, id string, depth int) error {
	name, summary, status, priority, err := s.containerHeader(ctx, kind, id)
	if err != nil {
		return err
	}
	heading := strings.Repeat("#", min(depth, 6))
	fmt.Fprintf(b, "%s %s: %s\n\n", heading, types.WireName(kind), name)
	fmt.Fprintf(b, "- status: %s\n- priority: %s\n\n", status, types.WireName(priority))
	if summary != "" {
		fmt.Fprintf(b, "%s\n\n", summary)
	}

	sections, err := s.store.FindSections(ctx, types.SectionFilter{EntityType: kind, EntityID: id})
	if err != nil {
		return err
	}
	for _, sec := range sections {
		fmt.Fprintf(b, "%s# %s\n\n", heading, sec.Title)
		if sec.Content != "" {
			fmt.Fprintf(b, "%s\n\n", sec.Content)
		}
	}

	switch kind {
	case types.KindProject:
		features, err := s.store.FindFeatures(ctx, types.ContainerFilter{ParentID: id})
		if err != nil {
			return err
		}
		for _, f := range features {
			if err := s.writeMarkdownNode(ctx, b, types.KindFeature, f.ID, depth+1); err != nil {
				return err
			}
		}
	case types.KindFeature:
		tasks, err := s.store.FindTasks(ctx, types.ContainerFilter{ParentID: id})
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if err := s.writeMarkdownNode(ctx, b, types.KindTask, t.ID, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Server) containerHeader(ctx context.Context, kind types.EntityKind, id string) (name, summary, status string, priority types.Priority, err error) {
	switch kind {
	case types.KindProject:
		p, e := s.store.GetProject(ctx, id)
		if e != nil {
			return "", "", "", "", e
		}
		return p.Name, p.Summary, p.Status, p.Priority, nil
	case types.KindFeature:
		f, e := s.store.GetFeature(ctx, id)
		if e != nil {
			return "", "", "", "", e
		}
		return f.Name, f.Summary, f.Status, f.Priority, nil
	default:
		t, e := s.store.GetTask(ctx, id)
		if e != nil {
			return "", "", "", "", e
		}
		return t.Name, t.Summary, t.Status, t.Priority, nil
	}
}
