// Package cli implements terminal rendering for search results and documents.
package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/hyperjump/terasu/internal/highlight"
)

// Color palette
// - Default: primary text
// - Match (dark on amber): highlighted query terms
// - Muted (gray): ids, scores, hints
var (
	matchStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#1A1A1A")).Background(lipgloss.Color("#FFD866")).Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
)

// Renderer turns segmentations into terminal output. When color is off,
// matched spans are wrapped in text markers instead of styled.
type Renderer struct {
	color bool
}

// NewRenderer creates a renderer for the given color mode: "always", "never",
// or "auto" (color only when stdout is a terminal).
func NewRenderer(mode string) *Renderer {
	var color bool
	switch mode {
	case "always":
		color = true
	case "never":
		color = false
	default:
		color = isatty.IsTerminal(os.Stdout.Fd())
	}
	return &Renderer{color: color}
}

// Colored reports whether styled output is enabled.
func (r *Renderer) Colored() bool {
	return r.color
}

// RenderSegments flattens a segmentation back into one string, marking the
// matched spans.
func (r *Renderer) RenderSegments(seg highlight.Segmentation) string {
	var b strings.Builder
	for _, span := range seg {
		switch {
		case !span.Matched:
			b.WriteString(span.Text)
		case r.color:
			b.WriteString(matchStyle.Render(span.Text))
		default:
			b.WriteString("»")
			b.WriteString(span.Text)
			b.WriteString("«")
		}
	}
	return b.String()
}

// Header styles a result or document heading.
func (r *Renderer) Header(s string) string {
	if !r.color {
		return s
	}
	return headerStyle.Render(s)
}

// Muted styles secondary information such as ids and scores.
func (r *Renderer) Muted(s string) string {
	if !r.color {
		return s
	}
	return mutedStyle.Render(s)
}
