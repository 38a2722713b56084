package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	FocusNext  key.Binding
	Up         key.Binding
	Down       key.Binding
	Open       key.Binding
	NewSession key.Binding
	Rename     key.Binding
	Archive    key.Binding
	Delete     key.Binding
	Archived   key.Binding
	Refresh    key.Binding
	Lunar      key.Binding
	Status     key.Binding
	Command    key.Binding
	Regenerate key.Binding
	Dismiss    key.Binding
	Back       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.FocusNext, k.NewSession, k.Command, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.FocusNext},
		{k.NewSession, k.Rename, k.Archive, k.Delete},
		{k.Archived, k.Refresh, k.Lunar, k.Status},
		{k.Command, k.Regenerate, k.Dismiss, k.Help, k.Quit},
	}
}

var defaultKeyMap = keyMap{
	FocusNext: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch focus"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Open: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open session"),
	),
	NewSession: key.NewBinding(
		key.WithKeys("n", "ctrl+n"),
		key.WithHelp("n", "new session"),
	),
	Rename: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "rename"),
	),
	Archive: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "archive"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	Archived: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "archived sessions"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r", "ctrl+r"),
		key.WithHelp("r", "refresh"),
	),
	Lunar: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "lunar info"),
	),
	Status: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "status/domains"),
	),
	Command: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "command"),
	),
	Regenerate: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "regenerate reply"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "hide suggestions"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "ctrl+q"),
		key.WithHelp("ctrl+c", "quit"),
	),
}
