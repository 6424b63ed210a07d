package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/burnerx/internal/keys"
	"github.com/nhle/burnerx/internal/theme"
)

// sectionTitles label the groups returned by KeyMap.FullHelp, in order.
var sectionTitles = []string{"Navigation", "General", "Addresses", "Message", "Preferences"}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	footer string
	width  int
	height int
}

// New creates a new help view model.
func New(k *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   k,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// SetFooter sets a line shown under the shortcuts, e.g. the storage location.
func (m *Model) SetFooter(s string) {
	m.footer = s
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	sectionStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue).Bold(true)

	parts := []string{titleStyle.Render("Keyboard Shortcuts")}
	for i, group := range m.keys.FullHelp() {
		title := ""
		if i < len(sectionTitles) {
			title = sectionTitles[i]
		}
		parts = append(parts, sectionStyle.Render(title), m.renderGroup(group), "")
	}
	if m.footer != "" {
		parts = append(parts, theme.DimmedStyle.Render(m.footer))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

func (m Model) renderGroup(bindings []key.Binding) string {
	m.help.Width = m.width - 4
	return m.help.ShortHelpView(bindings)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
