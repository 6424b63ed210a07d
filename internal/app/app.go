package app

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"github.com/nhle/burnerx/internal/export"
	"github.com/nhle/burnerx/internal/identity"
	"github.com/nhle/burnerx/internal/keys"
	"github.com/nhle/burnerx/internal/mailbox"
	"github.com/nhle/burnerx/internal/model"
	"github.com/nhle/burnerx/internal/notify"
	"github.com/nhle/burnerx/internal/platform"
	"github.com/nhle/burnerx/internal/store"
	appsync "github.com/nhle/burnerx/internal/sync"
	"github.com/nhle/burnerx/internal/theme"
	"github.com/nhle/burnerx/internal/ui"
	"github.com/nhle/burnerx/internal/ui/command"
	helpview "github.com/nhle/burnerx/internal/ui/help"
	"github.com/nhle/burnerx/internal/ui/identities"
	"github.com/nhle/burnerx/internal/ui/inbox"
	"github.com/nhle/burnerx/internal/ui/message"
)

// unreadCountMsg carries the number of unread notifications to the UI.
type unreadCountMsg struct {
	count int
}

// noticeMsg replaces the status bar hints with a one-line outcome.
type noticeMsg struct {
	text  string
	alert bool
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewInbox ViewState = iota
	ViewMessage
	ViewIdentities
	ViewHelp
	ViewCommand
)

// Deps are the services the root model drives.
type Deps struct {
	Identities    *identity.Store
	Session       *mailbox.Session
	Gate          *notify.Gate
	Poller        *appsync.Poller
	Exporter      *export.Exporter
	KV            store.KV
	Notifications store.NotificationLog
	Clipboard     platform.ClipboardWriter
	Fs            afero.Fs
	Config        *model.AppConfig
	Theme         theme.Mode
}

// Model is the root Bubble Tea model that manages view routing, layout
// and the mailbox services.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	identities *identity.Store
	session    *mailbox.Session
	gate       *notify.Gate
	poller     *appsync.Poller
	exporter   *export.Exporter
	kv         store.KV
	notifLog   store.NotificationLog
	clipboard  platform.ClipboardWriter
	cfg        *model.AppConfig
	events     *bridge

	inboxView    inbox.Model
	messageView  message.Model
	identityView identities.Model
	helpView     helpview.Model
	commandView  command.Model
	spinner      spinner.Model

	snap        mailbox.Snapshot
	themeMode   theme.Mode
	ready       bool
	unreadCount int
	notice      string
	alert       bool
}

// New creates the root application model.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	m := Model{
		currentView:  ViewInbox,
		keys:         k,
		identities:   d.Identities,
		session:      d.Session,
		gate:         d.Gate,
		poller:       d.Poller,
		exporter:     d.Exporter,
		kv:           d.KV,
		notifLog:     d.Notifications,
		clipboard:    d.Clipboard,
		cfg:          d.Config,
		events:       newBridge(d.Session, d.Identities),
		inboxView:    inbox.New(k, 80, 24),
		messageView:  message.New(k, 80, 24),
		identityView: identities.New(d.Identities, d.Fs, k, 80, 24),
		helpView:     helpview.New(k, 80, 24),
		commandView:  command.New(80, 24),
		spinner:      sp,
		themeMode:    d.Theme,
	}
	m.helpView.SetFooter("Files are saved to " + d.Config.Downloads.Dir)
	m.identityView.Refresh()
	if d.Config.Notifications.Enabled {
		m.gate.Grant()
	}
	theme.Apply(d.Theme)
	return m
}

// Init activates the stored identity, starts polling and begins listening
// for state changes.
func (m Model) Init() tea.Cmd {
	m.session.Activate(m.identities.Active())

	cmds := []tea.Cmd{
		m.events.waitForSnapshot(),
		m.events.waitForChange(),
		m.poller.Start(),
		m.fetchUnreadCount(),
		m.spinner.Tick,
	}
	if m.identities.Active() == nil && m.cfg.Startup.AutoProvision {
		cmds = append(cmds, m.autoProvision())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.inboxView.SetSize(contentWidth, contentHeight)
		m.messageView.SetSize(contentWidth, contentHeight)
		m.identityView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case snapshotMsg:
		m.applySnapshot(mailbox.Snapshot(msg))
		return m, m.events.waitForSnapshot()

	case identitiesChangedMsg:
		m.identityView.Refresh()
		if msg.ActiveChanged {
			m.switchIdentity(msg.Active)
		}
		return m, m.events.waitForChange()

	case appsync.RefreshedMsg:
		cmds := []tea.Cmd{m.poller.WaitForNextResult()}
		if msg.Notification != nil {
			m.notice = msg.Notification.Title + ": " + msg.Notification.Body
			m.alert = false
			cmds = append(cmds, m.fetchUnreadCount())
		}
		return m, tea.Batch(cmds...)

	case unreadCountMsg:
		m.unreadCount = msg.count
		return m, nil

	case noticeMsg:
		m.notice = msg.text
		m.alert = msg.alert
		return m, nil

	case autoProvisionedMsg:
		if msg.err != nil {
			m.notice = provisionNotice(msg.err)
			m.alert = true
		}
		return m, nil

	case inbox.OpenMessageMsg:
		m.previousView = m.currentView
		m.currentView = ViewMessage
		return m, tea.Batch(m.openMessage(msg.Message), m.markNotificationsRead())

	case inbox.QueryChangedMsg:
		m.session.SetQuery(msg.Query)
		return m, nil

	case message.BackMsg:
		m.session.CloseMessage()
		m.currentView = ViewInbox
		return m, nil

	case message.ActionMsg:
		return m, m.runAction(msg)

	case identities.StatusMsg:
		m.notice = msg.Text
		m.alert = msg.Alert
		return m, nil

	case identities.CloseMsg:
		m.currentView = ViewInbox
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(msg)

	case tea.KeyMsg:
		next, cmd, handled := m.handleGlobalKey(msg)
		if handled {
			return next, cmd
		}
		m = next
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that work outside of text inputs. It
// reports whether the key was consumed.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m, m.quit(), true
	}
	if m.inputFocused() {
		return m, nil, false
	}

	// Any key press dismisses a pending notice.
	m.notice = ""
	m.alert = false

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewInbox {
			return m, m.quit(), true
		}

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}

	case key.Matches(msg, m.keys.Refresh):
		if m.currentView == ViewInbox {
			m.poller.Trigger()
			return m, nil, true
		}

	case key.Matches(msg, m.keys.CopyAddress):
		if m.currentView == ViewInbox || m.currentView == ViewMessage {
			return m, m.copyAddress(), true
		}

	case key.Matches(msg, m.keys.Theme):
		if m.currentView != ViewIdentities {
			return m, m.toggleTheme(), true
		}

	case key.Matches(msg, m.keys.Notifications):
		if m.currentView != ViewIdentities {
			return m, m.toggleNotifications(), true
		}

	case key.Matches(msg, m.keys.Identities):
		if m.currentView == ViewInbox {
			m.showIdentities()
			return m, nil, true
		}

	case key.Matches(msg, m.keys.NewIdentity):
		if m.currentView == ViewInbox {
			m.showIdentities()
			var cmd tea.Cmd
			m.identityView, cmd = m.identityView.StartProvision()
			return m, cmd, true
		}

	case key.Matches(msg, m.keys.DeleteIdentity),
		key.Matches(msg, m.keys.Backup),
		key.Matches(msg, m.keys.Restore):
		if m.currentView == ViewInbox {
			// The identity view owns these actions; open it and replay.
			m.showIdentities()
			var cmd tea.Cmd
			m.identityView, cmd = m.identityView.Update(msg)
			return m, cmd, true
		}
	}
	return m, nil, false
}

// inputFocused reports whether a text field owns the keyboard.
func (m Model) inputFocused() bool {
	switch m.currentView {
	case ViewCommand:
		return true
	case ViewInbox:
		return m.inboxView.Searching()
	case ViewIdentities:
		return m.identityView.Editing()
	}
	return false
}

func (m *Model) showIdentities() {
	m.previousView = m.currentView
	m.currentView = ViewIdentities
	m.identityView.Refresh()
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewInbox:
		m.inboxView, cmd = m.inboxView.Update(msg)
	case ViewMessage:
		m.messageView, cmd = m.messageView.Update(msg)
	case ViewIdentities:
		m.identityView, cmd = m.identityView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, m.keys.Back) {
			m.currentView = m.previousView
			return m, nil
		}
		m.commandView, cmd = m.commandView.Update(msg)
	}

	// Identity view results arrive asynchronously; route them even when
	// the view was closed in the meantime.
	if m.currentView != ViewIdentities && identities.IsResult(msg) {
		var extra tea.Cmd
		m.identityView, extra = m.identityView.Update(msg)
		cmd = tea.Batch(cmd, extra)
	}

	return m, cmd
}

// applySnapshot pushes session state into the views.
func (m *Model) applySnapshot(snap mailbox.Snapshot) {
	m.snap = snap
	m.inboxView.SetMessages(snap.Messages, snap.Identity != nil)
	if snap.Identity != nil {
		m.inboxView.SetTitle(snap.Identity.Address)
	} else {
		m.inboxView.SetTitle("Inbox")
	}
	m.messageView.SetSnapshot(snap)
	if snap.Selected == nil && m.currentView == ViewMessage {
		m.currentView = ViewInbox
	}
}

// switchIdentity points the session at ident and starts over: the gate
// forgets the previous count and the poller refreshes right away.
func (m *Model) switchIdentity(ident *model.Identity) {
	m.session.Activate(ident)
	m.gate.Reset(m.session.Generation())
	m.poller.Trigger()
	if m.currentView == ViewMessage {
		m.currentView = ViewInbox
	}
}

func (m Model) quit() tea.Cmd {
	m.poller.Stop()
	m.session.Close()
	m.events.close()
	return tea.Quit
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	headerTitle := "burnerx"
	if m.unreadCount > 0 {
		headerTitle = fmt.Sprintf("burnerx [%d new]", m.unreadCount)
	}
	header := m.layout.RenderHeader(headerTitle, m.headerStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.notice, m.alert)

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewInbox:
		return m.inboxView.View()
	case ViewMessage:
		return m.messageView.View()
	case ViewIdentities:
		return m.identityView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// headerStatus describes the active mailbox: address, copy state and
// activity.
func (m Model) headerStatus() string {
	busy := ""
	if m.identities.Busy() || m.snap.Loading {
		busy = m.spinner.View() + " "
	}
	if m.snap.Identity == nil {
		return busy + "no address"
	}
	alerts := ""
	if !m.gate.Granted() {
		alerts = " | alerts off"
	}
	if m.snap.AuthExpired {
		alerts += " | token expired"
	}
	return fmt.Sprintf("%s%s [%s]%s", busy, m.snap.Identity.Address, m.snap.CopyStatus, alerts)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewMessage:
		return "esc back | s source | e json | E html | l share | 1-9 save attachment | c copy"
	case ViewIdentities:
		if m.identityView.Editing() {
			return "enter submit | esc cancel"
		}
		return "enter use | n new | d delete | b backup | u restore | esc back"
	default:
		if q := m.inboxView.Query(); q != "" {
			return fmt.Sprintf("filter: %q | esc clear", q)
		}
		return "q quit | ? help | n new | i addresses | c copy | / search | r refresh"
	}
}

// fetchUnreadCount returns a tea.Cmd that queries the store for the
// number of unread notifications.
func (m Model) fetchUnreadCount() tea.Cmd {
	s := m.notifLog
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		notifications, err := s.GetUnreadNotifications(context.Background())
		if err != nil {
			return unreadCountMsg{count: 0}
		}
		return unreadCountMsg{count: len(notifications)}
	}
}

// markNotificationsRead clears the unread badge once the user reads mail.
func (m Model) markNotificationsRead() tea.Cmd {
	s := m.notifLog
	if s == nil || m.unreadCount == 0 {
		return nil
	}
	return func() tea.Msg {
		if err := s.MarkAllNotificationsRead(context.Background()); err != nil {
			return nil
		}
		return unreadCountMsg{count: 0}
	}
}
