package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table styles shared by the status views.
var (
	TableHeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorAccent).
		Align(lipgloss.Center)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

// StatusOverview is the view model of `orc status`: one row per container
// kind, with a status histogram.
type StatusOverview struct {
	DBPath   string
	Projects map[string]int
	Features map[string]int
	Tasks    map[string]int
	Blocked  int
}

// RenderStatusOverview draws the workspace summary table.
func RenderStatusOverview(o StatusOverview, width int) string {
	var sections []string

	header := lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).
		Render("Task Orchestrator — " + o.DBPath)
	sections = append(sections, header)

	rows := [][]string{
		{"projects", fmt.Sprintf("%d", total(o.Projects)), histogram(o.Projects)},
		{"features", fmt.Sprintf("%d", total(o.Features)), histogram(o.Features)},
		{"tasks", fmt.Sprintf("%d", total(o.Tasks)), histogram(o.Tasks)},
	}
	t := table.New().
		Headers("KIND", "TOTAL", "BY STATUS").
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorMuted)).
		Width(width).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return cellStyle
		})
	sections = append(sections, t.String())

	if o.Blocked > 0 {
		sections = append(sections, RenderWarn(fmt.Sprintf("%d task(s) blocked by open dependencies", o.Blocked)))
	}
	return strings.Join(sections, "\n")
}

// histogram renders a status map as "status: n" pairs, busiest first.
func histogram(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	type pair struct {
		status string
		n      int
	}
	pairs := make([]pair, 0, len(counts))
	for status, n := range counts {
		pairs = append(pairs, pair{status, n})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].n != pairs[j].n {
			return pairs[i].n > pairs[j].n
		}
		return pairs[i].status < pairs[j].status
	})
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s: %d", p.status, p.n)
	}
	return strings.Join(parts, "  ")
}

func total(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

// InitReport is the view model of `orc init`.
type InitReport struct {
	ConfigPath string
	DBPath     string
	Created    bool
	NextSteps  []string
}

// RenderInitReport draws the init summary.
func RenderInitReport(r InitReport) string {
	var sections []string
	verb := "already initialized"
	if r.Created {
		verb = "initialized"
	}
	sections = append(sections,
		lipgloss.NewStyle().Bold(true).Foreground(ColorPass).Render("✓ Workspace "+verb))
	sections = append(sections,
		"  config:   "+r.ConfigPath,
		"  database: "+r.DBPath)
	if len(r.NextSteps) > 0 {
		sections = append(sections, "", "Next steps:")
		for _, step := range r.NextSteps {
			sections = append(sections, "  • "+lipgloss.NewStyle().Foreground(ColorAccent).Render(step))
		}
	}
	return strings.Join(sections, "\n")
}
