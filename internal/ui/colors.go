// Package ui provides terminal styling and output helpers for the orc CLI.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette. Adaptive colors degrade gracefully on light terminals.
var (
	ColorAccent = lipgloss.AdaptiveColor{Light: "#005FAF", Dark: "#5FAFFF"}
	ColorPass   = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#5FD75F"}
	ColorWarn   = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD75F"}
	ColorFail   = lipgloss.AdaptiveColor{Light: "#D70000", Dark: "#FF5F5F"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#6C6C6C", Dark: "#8A8A8A"}
)

var (
	passStyle = lipgloss.NewStyle().Foreground(ColorPass)
	warnStyle = lipgloss.NewStyle().Foreground(ColorWarn)
	failStyle = lipgloss.NewStyle().Foreground(ColorFail)
)

// RenderPass styles s as a success marker.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn styles s as a warning marker.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderFail styles s as a failure marker.
func RenderFail(s string) string { return failStyle.Render(s) }

// HasDarkBackground reports the terminal background; used by callers that
// pick glyphs rather than colors.
func HasDarkBackground() bool {
	return termenv.HasDarkBackground()
}
