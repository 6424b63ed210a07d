package inbox

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/burnerx/internal/model"
	"github.com/nhle/burnerx/internal/render"
	"github.com/nhle/burnerx/internal/theme"
)

// MessageItem wraps a message summary so it can be used in a bubbles/list.
type MessageItem struct {
	Message model.MessageSummary
}

// FilterValue returns the string used for fuzzy filtering.
func (i MessageItem) FilterValue() string { return i.Message.Subject }

// Title returns the subject, or a placeholder for empty subjects.
func (i MessageItem) Title() string {
	if i.Message.Subject == "" {
		return "(no subject)"
	}
	return i.Message.Subject
}

// Description returns the sender and age.
func (i MessageItem) Description() string {
	return sender(i.Message) + " | " + render.Age(i.Message.CreatedAt)
}

// ItemDelegate renders a message as a two-line entry.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single message entry.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	mi, ok := item.(MessageItem)
	if !ok {
		return
	}
	msg := mi.Message
	width := m.Width() - 4
	if width < 20 {
		width = 20
	}

	marker := " "
	if !msg.Seen {
		marker = "•"
	}
	badge := ""
	if msg.HasAttachments {
		badge = theme.AttachmentStyle.Render(" [att]")
	}

	age := render.Age(msg.CreatedAt)
	from := truncate(sender(msg), width-lipgloss.Width(age)-4)
	gap := width - lipgloss.Width(from) - lipgloss.Width(age) - 2
	if gap < 1 {
		gap = 1
	}
	line1 := fmt.Sprintf("%s %s%s%s", marker, from, strings.Repeat(" ", gap), theme.DimmedStyle.Render(age))

	subject := truncate(mi.Title(), width-lipgloss.Width(badge)-2)
	intro := truncate(msg.Intro, width-lipgloss.Width(subject)-lipgloss.Width(badge)-5)
	line2 := "  " + subject + badge
	if intro != "" {
		line2 += theme.DimmedStyle.Render(" - " + intro)
	}

	if !msg.Seen {
		line1 = theme.UnreadStyle.Render(line1)
	}

	content := line1 + "\n" + line2
	if index == m.Index() {
		fmt.Fprint(w, theme.SelectedItemStyle.Render(content))
		return
	}
	fmt.Fprint(w, theme.ListItemStyle.Render(content))
}

func sender(m model.MessageSummary) string {
	if m.From.Name != "" {
		return m.From.Name
	}
	return m.From.Address
}

// truncate shortens s to at most n cells, ending with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= n {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > n {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
