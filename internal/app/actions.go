package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/nhle/burnerx/internal/export"
	"github.com/nhle/burnerx/internal/model"
	"github.com/nhle/burnerx/internal/provider"
	"github.com/nhle/burnerx/internal/render"
	"github.com/nhle/burnerx/internal/theme"
	"github.com/nhle/burnerx/internal/ui/command"
	"github.com/nhle/burnerx/internal/ui/identities"
	"github.com/nhle/burnerx/internal/ui/message"
)

// autoProvisionedMsg is sent after the first-run identity was created.
type autoProvisionedMsg struct{ err error }

func notice(text string, alert bool) tea.Msg {
	return noticeMsg{text: text, alert: alert}
}

// autoProvision creates a random identity when none is stored.
func (m Model) autoProvision() tea.Cmd {
	ids := m.identities
	return func() tea.Msg {
		_, err := ids.Provision(context.Background(), "", "")
		return autoProvisionedMsg{err: err}
	}
}

func provisionNotice(err error) string {
	return identities.ProvisionErrorText(err)
}

// openMessage loads the full content of summary into the session.
func (m Model) openMessage(summary model.MessageSummary) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		s.OpenMessage(context.Background(), summary)
		return nil
	}
}

// runAction executes a message view action against the current selection.
func (m Model) runAction(msg message.ActionMsg) tea.Cmd {
	snap := m.snap
	detail := snap.Selected
	if detail == nil || detail.ID != msg.MessageID {
		return nil
	}

	switch msg.Action {
	case message.ActionSource:
		s := m.session
		return func() tea.Msg {
			if err := s.ToggleSource(context.Background()); err != nil {
				log.Warn().Str("module", "app").Err(err).Msg("Loading source failed")
				return notice("Failed to load message source: "+provider.UserMessage(err), true)
			}
			return nil
		}

	case message.ActionExportJSON:
		e := m.exporter
		return func() tea.Msg {
			path, err := e.StructuredData(detail)
			if err != nil {
				return notice(fmt.Sprintf("Export failed: %v", err), true)
			}
			return notice("Saved "+path, false)
		}

	case message.ActionExportHTML:
		e := m.exporter
		body := snap.Body
		return func() tea.Msg {
			path, err := e.Document(detail, body)
			if err != nil {
				return notice(fmt.Sprintf("Export failed: %v", err), true)
			}
			return notice("Saved "+path, false)
		}

	case message.ActionShare:
		baseURL := m.cfg.Share.BaseURL
		clip := m.clipboard
		body := render.Body(detail, snap.Body)
		return func() tea.Msg {
			link, err := export.ShareLink(baseURL, detail, body)
			if err != nil {
				return notice(fmt.Sprintf("Share failed: %v", err), true)
			}
			if err := clip.WriteText(link); err != nil {
				log.Warn().Str("module", "app").Err(err).Msg("Copying share link failed")
				return notice(link, false)
			}
			return notice("Share link copied to clipboard", false)
		}

	case message.ActionDownload:
		if msg.Index < 0 || msg.Index >= len(detail.Attachments) {
			return nil
		}
		att := detail.Attachments[msg.Index]
		s := m.session
		return func() tea.Msg {
			path, err := s.DownloadAttachment(context.Background(), att)
			if err != nil {
				return notice("Download failed: "+provider.UserMessage(err), true)
			}
			return notice("Saved "+path, false)
		}
	}
	return nil
}

func (m Model) copyAddress() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		if err := s.CopyAddress(); err != nil {
			return notice(fmt.Sprintf("Copy failed: %v", err), true)
		}
		return nil
	}
}

// toggleTheme flips and persists the colour scheme.
func (m *Model) toggleTheme() tea.Cmd {
	return m.setTheme(m.themeMode.Toggle())
}

func (m *Model) setTheme(mode theme.Mode) tea.Cmd {
	m.themeMode = mode
	theme.Apply(mode)
	m.messageView.SetSnapshot(m.snap)

	kv := m.kv
	return func() tea.Msg {
		if err := theme.Save(context.Background(), kv, mode); err != nil {
			log.Warn().Str("module", "app").Err(err).Msg("Saving theme failed")
		}
		return notice("Theme: "+string(mode), false)
	}
}

func (m *Model) toggleNotifications() tea.Cmd {
	return m.setNotifications(!m.gate.Granted())
}

func (m *Model) setNotifications(on bool) tea.Cmd {
	if on {
		m.gate.Grant()
		return func() tea.Msg { return notice("New mail alerts on", false) }
	}
	m.gate.Revoke()
	return func() tea.Msg { return notice("New mail alerts off", false) }
}

// executeCommand handles a command from the command palette.
func (m Model) executeCommand(c command.CommandMsg) (tea.Model, tea.Cmd) {
	args := c.Args()
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	switch c.Name() {
	case "refresh", "sync":
		m.poller.Trigger()
		return m, nil

	case "quit", "q":
		return m, m.quit()

	case "help":
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case "copy":
		return m, m.copyAddress()

	case "new":
		if len(args) == 0 {
			m.showIdentities()
			var cmd tea.Cmd
			m.identityView, cmd = m.identityView.StartProvision()
			return m, cmd
		}
		ids := m.identities
		prefix, domain := arg(0), arg(1)
		if prefix == "-" {
			prefix = ""
		}
		return m, func() tea.Msg {
			ident, err := ids.Provision(context.Background(), prefix, domain)
			if err != nil {
				return notice(identities.ProvisionErrorText(err), true)
			}
			return notice("Created "+ident.Address, false)
		}

	case "identities", "addresses":
		m.showIdentities()
		return m, nil

	case "use":
		target := strings.ToLower(arg(0))
		for _, ident := range m.identities.List() {
			if strings.ToLower(ident.Address) == target || ident.ID == arg(0) {
				if err := m.identities.Activate(ident.ID); err != nil {
					return m, func() tea.Msg { return notice(err.Error(), true) }
				}
				return m, nil
			}
		}
		return m, func() tea.Msg { return notice("Unknown address "+arg(0), true) }

	case "delete", "backup", "restore":
		m.showIdentities()
		var cmd tea.Cmd
		switch c.Name() {
		case "backup":
			m.identityView, cmd = m.identityView.Backup()
		case "restore":
			m.identityView, cmd = m.identityView.StartRestore()
		default:
			m.identityView, cmd = m.identityView.StartDelete()
		}
		return m, cmd

	case "search":
		q := strings.Join(args, " ")
		m.currentView = ViewInbox
		m.session.SetQuery(q)
		return m, m.inboxView.SetQuery(q)

	case "source":
		return m, m.messageAction(message.ActionSource, 0)

	case "export":
		if strings.EqualFold(arg(0), "html") {
			return m, m.messageAction(message.ActionExportHTML, 0)
		}
		return m, m.messageAction(message.ActionExportJSON, 0)

	case "share":
		return m, m.messageAction(message.ActionShare, 0)

	case "save":
		n, err := strconv.Atoi(arg(0))
		if err != nil || n < 1 {
			return m, func() tea.Msg { return notice("usage: save <attachment number>", true) }
		}
		return m, m.messageAction(message.ActionDownload, n-1)

	case "theme":
		switch mode := theme.Mode(strings.ToLower(arg(0))); mode {
		case theme.Dark, theme.Light:
			return m, m.setTheme(mode)
		}
		return m, m.toggleTheme()

	case "notify", "alerts":
		switch strings.ToLower(arg(0)) {
		case "on":
			return m, m.setNotifications(true)
		case "off":
			return m, m.setNotifications(false)
		}
		return m, m.toggleNotifications()
	}

	name := c.Name()
	return m, func() tea.Msg { return notice("Unknown command: "+name, true) }
}

// messageAction runs a message action from the command palette.
func (m Model) messageAction(action string, index int) tea.Cmd {
	if m.snap.Selected == nil {
		return func() tea.Msg { return notice("No message open", true) }
	}
	return m.runAction(message.ActionMsg{
		Action:    action,
		MessageID: m.snap.Selected.ID,
		Index:     index,
	})
}
