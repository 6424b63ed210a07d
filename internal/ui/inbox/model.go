package inbox

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/burnerx/internal/keys"
	"github.com/nhle/burnerx/internal/mailbox"
	"github.com/nhle/burnerx/internal/model"
	"github.com/nhle/burnerx/internal/theme"
)

// OpenMessageMsg is sent when the user opens a message.
type OpenMessageMsg struct {
	Message model.MessageSummary
}

// QueryChangedMsg is sent when the search query is applied or cleared.
type QueryChangedMsg struct {
	Query string
}

// Model is the message list view.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	messages    []model.MessageSummary
	query       string
	hasIdentity bool
	searchMode  bool
	searchInput textinput.Model
	width       int
	height      int
}

// New creates a new inbox model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Inbox"
	l.SetShowStatusBar(true)
	l.SetStatusBarItemName("message", "messages")
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search subject, sender, preview..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		keys:        k,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetMessages replaces the full message list and re-applies the filter.
func (m *Model) SetMessages(msgs []model.MessageSummary, hasIdentity bool) tea.Cmd {
	m.messages = msgs
	m.hasIdentity = hasIdentity
	return m.applyFilter()
}

// SetTitle updates the list title, usually to the active address.
func (m *Model) SetTitle(title string) {
	m.list.Title = title
}

// SetQuery applies q as the search filter.
func (m *Model) SetQuery(q string) tea.Cmd {
	m.query = q
	m.searchInput.SetValue(q)
	return m.applyFilter()
}

// Query returns the applied search query.
func (m Model) Query() string {
	return m.query
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

func (m *Model) applyFilter() tea.Cmd {
	filtered := mailbox.Filter(m.messages, m.query)
	items := make([]list.Item, len(filtered))
	for i, msg := range filtered {
		items[i] = MessageItem{Message: msg}
	}
	return m.list.SetItems(items)
}

// Update handles messages for the inbox view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode. The filter
// follows every keystroke.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		return m, m.queryChanged()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.searchInput.Blur()
		m.query = ""
		return m, tea.Batch(m.applyFilter(), m.queryChanged())
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.query = m.searchInput.Value()
	return m, tea.Batch(cmd, m.applyFilter())
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(MessageItem)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return OpenMessageMsg{Message: item.Message}
		}

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.query)
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.Back):
		if m.query != "" {
			m.query = ""
			m.searchInput.Reset()
			return m, tea.Batch(m.applyFilter(), m.queryChanged())
		}
		return m, nil
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) queryChanged() tea.Cmd {
	q := m.query
	return func() tea.Msg {
		return QueryChangedMsg{Query: q}
	}
}

// View renders the inbox view.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when there is nothing to list.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case !m.hasIdentity:
		return style.Render("No address yet.\n\nPress n to create one.")
	case m.query != "":
		return style.Render("No messages match \"" + m.query + "\".\nPress esc to clear the search.")
	default:
		return style.Render("Waiting for incoming mail...\n\nPress c to copy your address.")
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
