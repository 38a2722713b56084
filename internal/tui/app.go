package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sirupsen/logrus"

	"mystic-chat/internal/api"
	"mystic-chat/internal/auth"
	"mystic-chat/internal/chat"
	"mystic-chat/internal/config"
	"mystic-chat/internal/suggest"
)

const (
	viewChat = iota
	viewArchived
	viewLunar
	viewStatus
)

const (
	focusInput = iota
	focusSidebar
)

const sidebarWidth = 34

var (
	headerStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("141"))
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	errStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	userStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("141"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("108"))
	confirmStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	sidebarStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, true, false, false).BorderForeground(lipgloss.Color("240"))
	modalStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(1, 2)
)

type (
	sessionsMsg   struct{}
	transcriptMsg struct{}
	chatDoneMsg   struct{}
	actionDoneMsg struct{}

	statusMsg   struct{ data *api.SystemStatus }
	lunarMsg    struct{ data *api.LunarInfo }
	archivedMsg struct{ data []api.SessionInfo }
	authMsg     struct{ data *api.AuthStatus }
	commandMsg  struct{ data *api.CommandResponse }

	domainToggledMsg struct{}

	errMsg struct {
		source string
		err    error
	}
)

type model struct {
	cfg    config.Config
	logger *logrus.Logger
	client *api.Client
	store  *chat.Store
	engine *suggest.Engine

	keys     keyMap
	help     help.Model
	showHelp bool

	sessionList  list.Model
	archivedList list.Model
	transcript   viewport.Model
	input        textarea.Model
	renameInput  textinput.Model
	commandInput textinput.Model
	spin         spinner.Model

	view          int
	focus         int
	renaming      bool
	renameTarget  string
	commandMode   bool
	confirmDelete string

	status      *api.SystemStatus
	lunar       *api.LunarInfo
	authLine    string
	suggestions []string
	notice      string
	errText     string

	width  int
	height int
	ready  bool
}

// Run wires the whole client together, explicit construction top to
// bottom, and hands control to the TUI event loop.
func Run(cfg config.Config, logger *logrus.Logger) error {
	provider := auth.ProviderFromConfig(cfg.Auth)
	tokens := auth.NewTokenCache(provider, cfg.Auth.CacheTTL, logger)
	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, tokens, logger)
	store := chat.NewStore(client, logger)
	engine := suggest.NewEngine(nil)

	p := tea.NewProgram(newModel(cfg, logger, client, store, engine), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func newModel(cfg config.Config, logger *logrus.Logger, client *api.Client, store *chat.Store, engine *suggest.Engine) model {
	input := textarea.New()
	input.Placeholder = "ask for guidance"
	input.Prompt = ""
	input.ShowLineNumbers = false
	input.SetHeight(3)
	input.Focus()

	renameInput := textinput.New()
	renameInput.Placeholder = "new title"

	commandInput := textinput.New()
	commandInput.Placeholder = "command"
	commandInput.Prompt = "/ "

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = dimStyle

	return model{
		cfg:          cfg,
		logger:       logger,
		client:       client,
		store:        store,
		engine:       engine,
		keys:         defaultKeyMap,
		help:         help.New(),
		sessionList:  newListModel(),
		archivedList: newListModel(),
		transcript:   viewport.New(0, 0),
		input:        input,
		renameInput:  renameInput,
		commandInput: commandInput,
		spin:         spin,
		authLine:     "anonymous",
	}
}

func newListModel() list.Model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return l
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spin.Tick,
		refreshSessionsCmd(m.store),
		statusCmd(m.client),
		authStatusCmd(m.client),
	)
}

// Commands. Every remote call runs on its own goroutine and reports back
// as a typed message; the store serializes its own mutations.

func refreshSessionsCmd(store *chat.Store) tea.Cmd {
	return func() tea.Msg {
		if err := store.RefreshSessions(context.Background()); err != nil {
			return errMsg{source: "sessions", err: err}
		}
		return sessionsMsg{}
	}
}

func loadSessionCmd(store *chat.Store, id string) tea.Cmd {
	return func() tea.Msg {
		if err := store.LoadSession(context.Background(), id); err != nil {
			return errMsg{source: "history", err: err}
		}
		return transcriptMsg{}
	}
}

func autoLoadCmd(store *chat.Store) tea.Cmd {
	return func() tea.Msg {
		loaded, err := store.MaybeAutoLoad(context.Background())
		if err != nil {
			return errMsg{source: "history", err: err}
		}
		if !loaded {
			return nil
		}
		return transcriptMsg{}
	}
}

func sendMessageCmd(store *chat.Store, text string) tea.Cmd {
	return func() tea.Msg {
		store.SendMessage(context.Background(), text)
		return chatDoneMsg{}
	}
}

func regenerateCmd(store *chat.Store) tea.Cmd {
	return func() tea.Msg {
		messages := store.Messages()
		for i := len(messages) - 1; i > 0; i-- {
			if messages[i].Role == chat.RoleAssistant {
				store.Regenerate(context.Background(), i)
				break
			}
		}
		return chatDoneMsg{}
	}
}

func statusCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		status, err := client.SystemStatus(context.Background())
		if err != nil {
			return errMsg{source: "status", err: err}
		}
		return statusMsg{data: status}
	}
}

func lunarCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		info, err := client.LunarInfo(context.Background())
		if err != nil {
			return errMsg{source: "lunar", err: err}
		}
		return lunarMsg{data: info}
	}
}

func archivedCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		sessions, err := client.ArchivedSessions(context.Background())
		if err != nil {
			return errMsg{source: "archived", err: err}
		}
		return archivedMsg{data: sessions}
	}
}

func authStatusCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		status, err := client.AuthStatus(context.Background())
		if err != nil {
			// The client works anonymously when auth state is unknown.
			return authMsg{data: nil}
		}
		return authMsg{data: status}
	}
}

func toggleDomainCmd(client *api.Client, name string, enable bool) tea.Cmd {
	return func() tea.Msg {
		if _, err := client.ToggleDomain(context.Background(), name, enable); err != nil {
			return errMsg{source: "domains", err: err}
		}
		return domainToggledMsg{}
	}
}

func renameCmd(store *chat.Store, id, title string) tea.Cmd {
	return func() tea.Msg {
		if err := store.RenameSession(context.Background(), id, title); err != nil {
			return errMsg{source: "rename", err: err}
		}
		return actionDoneMsg{}
	}
}

func archiveCmd(store *chat.Store, id string) tea.Cmd {
	return func() tea.Msg {
		if err := store.ArchiveSession(context.Background(), id); err != nil {
			return errMsg{source: "archive", err: err}
		}
		return actionDoneMsg{}
	}
}

func deleteCmd(store *chat.Store, id string) tea.Cmd {
	return func() tea.Msg {
		if err := store.DeleteSession(context.Background(), id); err != nil {
			return errMsg{source: "delete", err: err}
		}
		return actionDoneMsg{}
	}
}

func unarchiveCmd(store *chat.Store, client *api.Client, id string) tea.Cmd {
	return func() tea.Msg {
		if err := store.UnarchiveSession(context.Background(), id); err != nil {
			return errMsg{source: "unarchive", err: err}
		}
		sessions, err := client.ArchivedSessions(context.Background())
		if err != nil {
			return errMsg{source: "archived", err: err}
		}
		return archivedMsg{data: sessions}
	}
}

func commandCmd(client *api.Client, command, sessionID string) tea.Cmd {
	return func() tea.Msg {
		result, err := client.RunCommand(context.Background(), command, sessionID)
		if err != nil {
			return errMsg{source: "command", err: err}
		}
		return commandMsg{data: result}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		m.refreshTranscript()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		if m.store.Loading() {
			// Pick up the optimistic user entry while a reply is pending.
			m.refreshTranscript()
		}
		return m, cmd

	case sessionsMsg:
		m.sessionList.SetItems(buildSessionItems(m.store.Sessions()))
		return m, autoLoadCmd(m.store)

	case transcriptMsg:
		m.refreshTranscript()
		m.transcript.GotoBottom()
		return m, nil

	case chatDoneMsg:
		m.sessionList.SetItems(buildSessionItems(m.store.Sessions()))
		m.refreshTranscript()
		m.transcript.GotoBottom()
		return m, nil

	case actionDoneMsg:
		m.sessionList.SetItems(buildSessionItems(m.store.Sessions()))
		m.refreshTranscript()
		return m, nil

	case statusMsg:
		m.status = msg.data
		m.suggestions = m.engine.Next(msg.data.ActiveDomains)
		return m, nil

	case lunarMsg:
		m.lunar = msg.data
		m.view = viewLunar
		return m, nil

	case archivedMsg:
		m.archivedList.SetItems(buildArchivedItems(msg.data))
		m.view = viewArchived
		return m, refreshSessionsCmd(m.store)

	case authMsg:
		m.authLine = describeAuth(msg.data)
		return m, nil

	case commandMsg:
		m.notice = msg.data.Message
		return m, nil

	case domainToggledMsg:
		return m, statusCmd(m.client)

	case errMsg:
		m.errText = fmt.Sprintf("%s: %v", msg.source, msg.err)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	m.errText = ""
	m.notice = ""

	if m.commandMode {
		return m.handleCommandMode(msg)
	}
	if m.renaming {
		return m.handleRenameMode(msg)
	}
	if m.confirmDelete != "" {
		return m.handleDeleteConfirm(msg)
	}

	switch m.view {
	case viewArchived:
		return m.handleArchivedKeys(msg)
	case viewLunar, viewStatus:
		return m.handleModalKeys(msg)
	}
	return m.handleChatKeys(msg)
}

func (m model) handleCommandMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.commandMode = false
		m.commandInput.Reset()
		return m, nil
	case msg.Type == tea.KeyEnter:
		command := strings.TrimSpace(m.commandInput.Value())
		m.commandMode = false
		m.commandInput.Reset()
		if command == "" {
			return m, nil
		}
		return m, commandCmd(m.client, command, m.store.CurrentID())
	}
	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	return m, cmd
}

func (m model) handleRenameMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.renaming = false
		m.renameInput.Reset()
		return m, nil
	case msg.Type == tea.KeyEnter:
		title := strings.TrimSpace(m.renameInput.Value())
		target := m.renameTarget
		m.renaming = false
		m.renameInput.Reset()
		if title == "" {
			return m, nil
		}
		return m, renameCmd(m.store, target, title)
	}
	var cmd tea.Cmd
	m.renameInput, cmd = m.renameInput.Update(msg)
	return m, cmd
}

func (m model) handleDeleteConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		target := m.confirmDelete
		m.confirmDelete = ""
		return m, deleteCmd(m.store, target)
	default:
		m.confirmDelete = ""
		return m, nil
	}
}

func (m model) handleArchivedKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.view = viewChat
		return m, nil
	case key.Matches(msg, m.keys.Open):
		if item, ok := m.archivedList.SelectedItem().(archivedItem); ok {
			return m, unarchiveCmd(m.store, m.client, item.data.SessionID)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.archivedList, cmd = m.archivedList.Update(msg)
	return m, cmd
}

func (m model) handleModalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.view = viewChat
		return m, nil
	}
	if m.view == viewStatus && m.status != nil {
		// Digits toggle the corresponding available domain.
		if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(m.status.AvailableDomains) {
			name := m.status.AvailableDomains[n-1]
			enable := !contains(m.status.ActiveDomains, name)
			return m, toggleDomainCmd(m.client, name, enable)
		}
	}
	return m, nil
}

func (m model) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.FocusNext) {
		if m.focus == focusInput {
			m.focus = focusSidebar
			m.input.Blur()
		} else {
			m.focus = focusInput
			m.input.Focus()
		}
		return m, nil
	}

	if m.focus == focusInput {
		if msg.Type == tea.KeyEnter {
			text := m.input.Value()
			if strings.TrimSpace(text) == "" {
				return m, nil
			}
			m.input.Reset()
			return m, tea.Batch(sendMessageCmd(m.store, text), m.spin.Tick)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m.handleSidebarKeys(msg)
}

func (m model) handleSidebarKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.Open):
		if item, ok := m.sessionList.SelectedItem().(sessionItem); ok {
			return m, loadSessionCmd(m.store, item.data.SessionID)
		}
		return m, nil
	case key.Matches(msg, m.keys.NewSession):
		m.store.NewSession()
		m.engine.Regenerate()
		m.suggestions = m.currentSuggestions()
		m.refreshTranscript()
		return m, refreshSessionsCmd(m.store)
	case key.Matches(msg, m.keys.Rename):
		if item, ok := m.sessionList.SelectedItem().(sessionItem); ok {
			m.renaming = true
			m.renameTarget = item.data.SessionID
			m.renameInput.SetValue(item.data.Title)
			m.renameInput.Focus()
		}
		return m, nil
	case key.Matches(msg, m.keys.Archive):
		if item, ok := m.sessionList.SelectedItem().(sessionItem); ok {
			return m, archiveCmd(m.store, item.data.SessionID)
		}
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		// Irreversible, so ask first.
		if item, ok := m.sessionList.SelectedItem().(sessionItem); ok {
			m.confirmDelete = item.data.SessionID
		}
		return m, nil
	case key.Matches(msg, m.keys.Archived):
		return m, archivedCmd(m.client)
	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(refreshSessionsCmd(m.store), statusCmd(m.client), authStatusCmd(m.client))
	case key.Matches(msg, m.keys.Lunar):
		return m, lunarCmd(m.client)
	case key.Matches(msg, m.keys.Status):
		m.view = viewStatus
		return m, statusCmd(m.client)
	case key.Matches(msg, m.keys.Command):
		m.commandMode = true
		m.commandInput.Focus()
		return m, nil
	case key.Matches(msg, m.keys.Regenerate):
		return m, tea.Batch(regenerateCmd(m.store), m.spin.Tick)
	case key.Matches(msg, m.keys.Dismiss):
		m.store.DismissSuggestions()
		return m, nil
	}

	// Digits pick a suggestion into the input.
	if m.showingSuggestions() {
		if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(m.suggestions) {
			m.input.SetValue(m.suggestions[n-1])
			m.focus = focusInput
			m.input.Focus()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.sessionList, cmd = m.sessionList.Update(msg)
	return m, cmd
}

func (m *model) resize() {
	mainWidth := m.width - sidebarWidth - 2
	if mainWidth < 20 {
		mainWidth = 20
	}
	bodyHeight := m.height - 6
	if bodyHeight < 5 {
		bodyHeight = 5
	}

	m.sessionList.SetSize(sidebarWidth, bodyHeight)
	m.archivedList.SetSize(m.width-4, bodyHeight)
	m.transcript.Width = mainWidth
	m.transcript.Height = bodyHeight - m.input.Height() - 1
	m.input.SetWidth(mainWidth)
	m.help.Width = m.width
}

func (m *model) refreshTranscript() {
	m.transcript.SetContent(m.transcriptContent())
}

func (m *model) transcriptContent() string {
	messages := m.store.Messages()
	if len(messages) == 0 {
		welcome := "Welcome, seeker. Start a conversation below."
		if m.showingSuggestions() {
			return welcome + "\n\n" + m.suggestionBlock()
		}
		return welcome
	}

	width := m.transcript.Width
	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		var label string
		switch {
		case msg.IsError:
			label = errStyle.Render("✦ error")
		case msg.Role == chat.RoleUser:
			label = userStyle.Render("you")
		default:
			label = assistantStyle.Render("mentor")
		}
		stamp := ""
		if !msg.Timestamp.IsZero() {
			stamp = dimStyle.Render(" " + msg.Timestamp.Format("15:04"))
		}
		body := renderMarkdown(msg.Content, width)
		if msg.IsError {
			body = errStyle.Render(msg.Content)
		}
		if msg.Metadata != nil && msg.Metadata.MessageType != "" {
			extra := msg.Metadata.MessageType
			if msg.Metadata.CacheHit {
				extra += " · cached"
			}
			stamp += dimStyle.Render(" · " + extra)
		}
		blocks = append(blocks, label+stamp+"\n"+body)
	}
	return strings.Join(blocks, "\n\n")
}

func (m *model) showingSuggestions() bool {
	return m.store.IsNewSession() && !m.store.SuggestionsDismissed() && len(m.suggestions) > 0
}

func (m *model) currentSuggestions() []string {
	if m.status != nil {
		return m.engine.Next(m.status.ActiveDomains)
	}
	return m.engine.Next(nil)
}

func (m model) View() string {
	if !m.ready {
		return "starting..."
	}

	header := m.headerView()
	footer := m.footerView()

	var body string
	switch m.view {
	case viewArchived:
		body = modalStyle.Render("Archived sessions (enter restores, esc closes)\n\n" + m.archivedList.View())
	case viewLunar:
		detail := "no lunar information available"
		if m.lunar != nil {
			detail = renderLunarDetail(*m.lunar)
		}
		body = modalStyle.Render(detail)
	case viewStatus:
		detail := "status unavailable"
		if m.status != nil {
			detail = renderStatusDetail(*m.status)
		}
		body = modalStyle.Render(detail)
	default:
		body = m.chatView()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m model) headerView() string {
	title := headerStyle.Render("✦ mystic mentor")
	domains := "no active domain"
	if m.status != nil && len(m.status.ActiveDomains) > 0 {
		domains = strings.Join(m.status.ActiveDomains, ", ")
	}
	parts := []string{title, dimStyle.Render(domains), dimStyle.Render(m.authLine)}
	if m.store.Loading() {
		parts = append(parts, m.spin.View()+dimStyle.Render("consulting..."))
	}
	return strings.Join(parts, "  ")
}

func (m model) chatView() string {
	sidebar := sidebarStyle.Render(m.sessionList.View())
	main := m.transcript.View()

	var inputView string
	switch {
	case m.commandMode:
		inputView = m.commandInput.View()
	case m.renaming:
		inputView = "rename: " + m.renameInput.View()
	case m.confirmDelete != "":
		inputView = confirmStyle.Render("delete session " + shortID(m.confirmDelete) + "? this cannot be undone (y/N)")
	default:
		inputView = m.input.View()
	}

	main = lipgloss.JoinVertical(lipgloss.Left, main, inputView)
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, main)
}

func (m model) suggestionBlock() string {
	lines := []string{dimStyle.Render("Try asking (press 1-" + strconv.Itoa(len(m.suggestions)) + ", x hides):")}
	for i, s := range m.suggestions {
		lines = append(lines, suggestionStyle.Render(fmt.Sprintf("%d. %s", i+1, s)))
	}
	return strings.Join(lines, "\n")
}

func (m model) footerView() string {
	if m.errText != "" {
		return errStyle.Render(m.errText)
	}
	if m.notice != "" {
		return footerStyle.Render(m.notice)
	}
	if m.showHelp {
		return m.help.FullHelpView(m.keys.FullHelp())
	}
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

func describeAuth(status *api.AuthStatus) string {
	if status == nil || !status.Authenticated {
		return "anonymous"
	}
	if status.User != nil {
		if status.User.Name != "" {
			return "signed in as " + status.User.Name
		}
		if status.User.Email != "" {
			return "signed in as " + status.User.Email
		}
	}
	return "signed in"
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
