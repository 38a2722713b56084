package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"

	"mystic-chat/internal/api"
)

type sessionItem struct {
	data api.SessionInfo
}

func (i sessionItem) Title() string {
	if i.data.Title != "" {
		return i.data.Title
	}
	return shortID(i.data.SessionID)
}

func (i sessionItem) Description() string {
	return fmt.Sprintf("%d messages · %s", i.data.MessageCount, relativeTime(i.data.LastActivity))
}

func (i sessionItem) FilterValue() string { return i.data.Title + " " + i.data.SessionID }

func buildSessionItems(in []api.SessionInfo) []list.Item {
	items := make([]list.Item, 0, len(in))
	for _, session := range in {
		items = append(items, sessionItem{data: session})
	}
	return items
}

type archivedItem struct {
	data api.SessionInfo
}

func (i archivedItem) Title() string {
	if i.data.Title != "" {
		return i.data.Title
	}
	return shortID(i.data.SessionID)
}

func (i archivedItem) Description() string {
	return fmt.Sprintf("%d messages · archived", i.data.MessageCount)
}

func (i archivedItem) FilterValue() string { return i.data.Title + " " + i.data.SessionID }

func buildArchivedItems(in []api.SessionInfo) []list.Item {
	items := make([]list.Item, 0, len(in))
	for _, session := range in {
		items = append(items, archivedItem{data: session})
	}
	return items
}

func shortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func renderLunarDetail(info api.LunarInfo) string {
	lines := []string{
		info.Summary,
		"",
		fmt.Sprintf("Phase: %s", info.Details.Phase),
		fmt.Sprintf("Illumination: %.1f%%", info.Details.IlluminationPercentage),
		fmt.Sprintf("Days from new moon: %.1f", info.Details.DaysFromNewMoon),
		fmt.Sprintf("Days to full moon: %.1f", info.Details.DaysToFullMoon),
	}
	return strings.Join(lines, "\n")
}

func renderStatusDetail(status api.SystemStatus) string {
	lines := []string{
		fmt.Sprintf("Active domains: %s", joinOrNone(status.ActiveDomains)),
		fmt.Sprintf("Available domains: %s", joinOrNone(status.AvailableDomains)),
		fmt.Sprintf("Documents: %d", status.TotalDocuments),
		fmt.Sprintf("Cache entries: %d", status.CacheSize),
	}
	if status.LunarInfo != "" {
		lines = append(lines, "", status.LunarInfo)
	}
	lines = append(lines, "", "press 1-9 to toggle an available domain")
	return strings.Join(lines, "\n")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
