package message

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/burnerx/internal/keys"
	"github.com/nhle/burnerx/internal/mailbox"
	"github.com/nhle/burnerx/internal/model"
	"github.com/nhle/burnerx/internal/render"
	"github.com/nhle/burnerx/internal/theme"
)

// Actions carried by ActionMsg.
const (
	ActionSource     = "source"
	ActionExportJSON = "export-json"
	ActionExportHTML = "export-html"
	ActionShare      = "share"
	ActionDownload   = "download"
)

// BackMsg signals the parent to navigate back to the inbox.
type BackMsg struct{}

// ActionMsg signals the parent to execute an action on the open message.
// Index is the attachment position for ActionDownload.
type ActionMsg struct {
	Action    string
	MessageID string
	Index     int
}

// Model is the message reading view.
type Model struct {
	snap     mailbox.Snapshot
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new message view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the message view.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetSnapshot re-renders the view from the session state. The scroll
// position is kept unless a different message was opened.
func (m *Model) SetSnapshot(snap mailbox.Snapshot) {
	prevID := ""
	if m.snap.Selected != nil {
		prevID = m.snap.Selected.ID
	}
	prevSource := m.snap.ShowSource
	m.snap = snap

	m.viewport.SetContent(m.renderContent())
	if snap.Selected == nil || snap.Selected.ID != prevID || snap.ShowSource != prevSource {
		m.viewport.GotoTop()
	}
}

// Update handles messages for the message view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.ToggleSource):
			return m, m.action(ActionSource, 0)

		case key.Matches(msg, m.keys.ExportJSON):
			return m, m.action(ActionExportJSON, 0)

		case key.Matches(msg, m.keys.ExportHTML):
			return m, m.action(ActionExportHTML, 0)

		case key.Matches(msg, m.keys.Share):
			return m, m.action(ActionShare, 0)

		case key.Matches(msg, m.keys.Download):
			idx := int(msg.Runes[0] - '1')
			if m.snap.Selected == nil || idx >= len(m.snap.Selected.Attachments) {
				return m, nil
			}
			return m, m.action(ActionDownload, idx)
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) action(name string, index int) tea.Cmd {
	if m.snap.Selected == nil || m.snap.Loading {
		return nil
	}
	id := m.snap.Selected.ID
	return func() tea.Msg {
		return ActionMsg{Action: name, MessageID: id, Index: index}
	}
}

// View renders the message view.
func (m Model) View() string {
	if m.snap.Selected == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No message selected")
	}

	return m.viewport.View()
}

// renderContent builds the full content string for the viewport.
func (m Model) renderContent() string {
	msg := m.snap.Selected
	if msg == nil {
		return ""
	}

	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	subject := msg.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	sections = append(sections, titleStyle.Render(subject))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(7)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	field := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, metaStyle.Render(label)+" "+valStyle.Render(value))
	}

	field("From:", msg.From.String())
	field("To:", joinAddresses(msg.To))
	field("Cc:", joinAddresses(msg.CC))
	if !msg.CreatedAt.IsZero() {
		field("Date:", msg.CreatedAt.Local().Format("2006-01-02 15:04")+
			" ("+render.Age(msg.CreatedAt)+")")
	}
	if msg.Size > 0 {
		field("Size:", render.Size(msg.Size))
	}

	if len(msg.Attachments) > 0 {
		sections = append(sections, "")
		sections = append(sections, theme.AttachmentStyle.Render("Attachments"))
		for i, att := range msg.Attachments {
			label := fmt.Sprintf("  [%d] %s  %s", i+1, att.Filename, render.Size(att.Size))
			if i >= 9 {
				label = fmt.Sprintf("      %s  %s", att.Filename, render.Size(att.Size))
			}
			sections = append(sections, label)
		}
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))
	sections = append(sections, "", separator, "")

	if m.snap.ShowSource {
		sections = append(sections, m.renderSource()...)
	} else {
		sections = append(sections, m.renderBody(msg))
	}

	return lipgloss.NewStyle().Padding(0, 1).Width(m.width).Render(strings.Join(sections, "\n"))
}

func (m Model) renderBody(msg *model.MessageDetail) string {
	italic := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
	switch {
	case m.snap.Loading:
		return italic.Render(m.snap.Body)
	case m.snap.Body == mailbox.FailedBody:
		return lipgloss.NewStyle().Foreground(theme.ColorRed).Render(m.snap.Body)
	case strings.TrimSpace(m.snap.Body) == "":
		return italic.Render("(empty message)")
	}
	return render.Body(msg, m.snap.Body)
}

// renderSource shows the parsed header block, the MIME outline and the
// raw message.
func (m Model) renderSource() []string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	var out []string

	if fields, err := render.SourceHeaders(m.snap.Source); err == nil && len(fields) > 0 {
		keyStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue)
		out = append(out, heading.Render("Headers"))
		for _, f := range fields {
			out = append(out, keyStyle.Render(f.Key+":")+" "+f.Value)
		}
		out = append(out, "")
	}

	if parts, err := render.MIMEOutline(m.snap.Source); err == nil && len(parts) > 0 {
		out = append(out, heading.Render("Structure"))
		out = append(out, theme.DimmedStyle.Render(render.FormatOutline(parts)))
		out = append(out, "")
	}

	out = append(out, heading.Render("Raw"))
	out = append(out, m.snap.Source)
	return out
}

func joinAddresses(addrs []model.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}

// SetSize updates the viewport dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}
