package tui

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	boldRe   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe = regexp.MustCompile(`\*([^*]+)\*`)
	codeRe   = regexp.MustCompile("`([^`]+)`")

	boldStyle    = lipgloss.NewStyle().Bold(true)
	italicStyle  = lipgloss.NewStyle().Italic(true)
	codeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111"))
)

// renderMarkdown applies the lightweight markdown subset the assistant
// uses (headings, bullets, bold/italic/inline code) and wraps the result
// to the given width.
func renderMarkdown(content string, width int) string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, renderLine(line))
	}
	rendered := strings.Join(out, "\n")
	if width > 0 {
		rendered = ansi.Wrap(rendered, width, "")
	}
	return rendered
}

func renderLine(line string) string {
	trimmed := strings.TrimLeft(line, " ")
	indent := line[:len(line)-len(trimmed)]

	switch {
	case strings.HasPrefix(trimmed, "### "):
		return indent + headingStyle.Render(strings.TrimPrefix(trimmed, "### "))
	case strings.HasPrefix(trimmed, "## "):
		return indent + headingStyle.Render(strings.TrimPrefix(trimmed, "## "))
	case strings.HasPrefix(trimmed, "# "):
		return indent + headingStyle.Render(strings.TrimPrefix(trimmed, "# "))
	case strings.HasPrefix(trimmed, "- "):
		trimmed = "• " + strings.TrimPrefix(trimmed, "- ")
	case strings.HasPrefix(trimmed, "* "):
		trimmed = "• " + strings.TrimPrefix(trimmed, "* ")
	}

	return indent + renderInline(trimmed)
}

// Bold runs first so italic never matches the inside of a ** pair.
func renderInline(text string) string {
	text = boldRe.ReplaceAllStringFunc(text, func(m string) string {
		return boldStyle.Render(strings.Trim(m, "*"))
	})
	text = italicRe.ReplaceAllStringFunc(text, func(m string) string {
		return italicStyle.Render(strings.Trim(m, "*"))
	})
	text = codeRe.ReplaceAllStringFunc(text, func(m string) string {
		return codeStyle.Render(strings.Trim(m, "`"))
	})
	return text
}
