package identities

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"

	"github.com/nhle/burnerx/internal/identity"
	"github.com/nhle/burnerx/internal/keys"
	"github.com/nhle/burnerx/internal/model"
	"github.com/nhle/burnerx/internal/provider"
	"github.com/nhle/burnerx/internal/theme"
)

// Manager is the identity store API used by this view.
type Manager interface {
	List() []model.Identity
	Active() *model.Identity
	Busy() bool
	Domains(ctx context.Context) ([]provider.Domain, error)
	Provision(ctx context.Context, prefix, domain string) (*model.Identity, error)
	Delete(ctx context.Context, id string, confirm identity.ConfirmFunc) (bool, error)
	Activate(id string) error
	ExportBackup() (string, error)
	ImportBackup(ctx context.Context, r io.Reader) (identity.ImportReport, error)
}

// CloseMsg signals the parent to close the identity view.
type CloseMsg struct{}

// StatusMsg carries a one-line outcome for the parent's status bar. Alert
// marks failures the user should notice.
type StatusMsg struct {
	Text  string
	Alert bool
}

type mode int

const (
	modeList mode = iota
	modeForm
	modeConfirmDelete
	modeRestore
)

type formBindings struct {
	prefix  string
	domain  string
	path    string
	confirm bool
}

type domainsLoadedMsg struct {
	domains []provider.Domain
	err     error
}

type provisionedMsg struct {
	ident *model.Identity
	err   error
}

type deletedMsg struct {
	address string
	removed bool
	err     error
}

type backupMsg struct {
	path string
	err  error
}

type restoredMsg struct {
	report identity.ImportReport
	err    error
}

// Model is the Bubble Tea model for identity management.
type Model struct {
	mode        mode
	manager     Manager
	fs          afero.Fs
	keys        *keys.KeyMap
	items       []model.Identity
	activeID    string
	selectedIdx int
	domains     []provider.Domain
	pending     bool
	form        *huh.Form
	fb          *formBindings
	statusMsg   string
	alert       bool
	width       int
	height      int
}

// New creates a new identity manager model. fs is used to read restore
// files.
func New(m Manager, fs afero.Fs, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:    modeList,
		manager: m,
		fs:      fs,
		keys:    k,
		fb:      &formBindings{},
		width:   width, height: height,
	}
}

// Init syncs the list with the store.
func (m Model) Init() tea.Cmd {
	return nil
}

// Refresh reloads the identity list from the manager.
func (m *Model) Refresh() {
	m.items = m.manager.List()
	m.activeID = ""
	if a := m.manager.Active(); a != nil {
		m.activeID = a.ID
	}
	if m.selectedIdx >= len(m.items) {
		m.selectedIdx = max(len(m.items)-1, 0)
	}
}

// StartProvision opens the new identity form.
func (m Model) StartProvision() (Model, tea.Cmd) {
	if m.pending || m.manager.Busy() {
		m.statusMsg = "Already creating an address..."
		m.alert = false
		return m, nil
	}
	m.pending = true
	m.statusMsg = "Loading domains..."
	m.alert = false
	return m, m.loadDomains()
}

// StartRestore opens the restore path prompt.
func (m Model) StartRestore() (Model, tea.Cmd) {
	m.fb.path = ""
	m.form = m.buildRestoreForm()
	m.mode = modeRestore
	return m, m.form.Init()
}

// StartDelete asks to confirm deletion of the selected identity.
func (m Model) StartDelete() (Model, tea.Cmd) {
	if len(m.items) == 0 {
		return m, nil
	}
	m.fb.confirm = false
	m.form = m.buildConfirmForm()
	m.mode = modeConfirmDelete
	return m, m.form.Init()
}

// Backup writes the backup file.
func (m Model) Backup() (Model, tea.Cmd) {
	return m, m.exportBackup()
}

// Editing reports whether a form has focus.
func (m Model) Editing() bool {
	return m.mode != modeList
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case domainsLoadedMsg:
		if msg.err != nil {
			m.pending = false
			return m.status(provider.UserMessage(msg.err), true)
		}
		if len(msg.domains) == 0 {
			m.pending = false
			return m.status(ProvisionErrorText(identity.ErrNoDomains), true)
		}
		m.domains = msg.domains
		m.fb.prefix = ""
		m.fb.domain = m.domains[0].Domain
		m.statusMsg = ""
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case provisionedMsg:
		m.pending = false
		m.Refresh()
		if msg.err != nil {
			return m.status(ProvisionErrorText(msg.err), true)
		}
		m.selectedIdx = 0
		return m.status("Created "+msg.ident.Address, false)

	case deletedMsg:
		m.mode = modeList
		m.Refresh()
		switch {
		case msg.err != nil:
			return m.status(fmt.Sprintf("Error: %v", msg.err), true)
		case msg.removed:
			return m.status("Deleted "+msg.address, false)
		}
		return m, nil

	case backupMsg:
		if msg.err != nil {
			return m.status(fmt.Sprintf("Backup failed: %v", msg.err), true)
		}
		return m.status("Backup saved to "+msg.path, false)

	case restoredMsg:
		m.mode = modeList
		m.Refresh()
		if msg.err != nil {
			return m.status(fmt.Sprintf("Restore failed: %v", msg.err), true)
		}
		return m.status(msg.report.String(), false)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateForm(msg)
}

func (m Model) status(text string, alert bool) (Model, tea.Cmd) {
	m.statusMsg = text
	m.alert = alert
	return m, func() tea.Msg { return StatusMsg{Text: text, Alert: alert} }
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.mode != modeList {
		return m.updateForm(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(m.items) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.items)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.items) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.items) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if len(m.items) == 0 {
			return m, nil
		}
		if err := m.manager.Activate(m.items[m.selectedIdx].ID); err != nil {
			return m.status(fmt.Sprintf("Error: %v", err), true)
		}
		m.Refresh()
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.NewIdentity):
		return m.StartProvision()

	case key.Matches(msg, m.keys.DeleteIdentity):
		return m.StartDelete()

	case key.Matches(msg, m.keys.Backup):
		return m.Backup()

	case key.Matches(msg, m.keys.Restore):
		return m.StartRestore()
	}
	return m, nil
}

func (m Model) buildForm() *huh.Form {
	options := make([]huh.Option[string], 0, len(m.domains))
	for _, d := range m.domains {
		options = append(options, huh.NewOption("@"+d.Domain, d.Domain))
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Address").
				Description("Leave empty for a random address.").
				Placeholder("random").
				Value(&m.fb.prefix).
				Validate(validatePrefix),
			huh.NewSelect[string]().
				Title("Domain").
				Options(options...).
				Value(&m.fb.domain),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) buildConfirmForm() *huh.Form {
	addr := ""
	if m.selectedIdx < len(m.items) {
		addr = m.items[m.selectedIdx].Address
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Permanently delete %s?", addr)).
				Description("The remote mailbox and all its messages are removed.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) buildRestoreForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Restore from").
				Placeholder("burnerx-backup-20260101-120000.json").
				Value(&m.fb.path).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("path is required")
					}
					return nil
				}),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

// validatePrefix accepts an empty prefix or one made of address-safe
// characters.
func validatePrefix(s string) error {
	s = strings.TrimSpace(s)
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return fmt.Errorf("invalid character %q", r)
		}
	}
	return nil
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil || m.mode == modeList {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.completeForm()
	case huh.StateAborted:
		m.mode = modeList
		m.pending = false
		return m, nil
	}
	return m, cmd
}

func (m Model) completeForm() (Model, tea.Cmd) {
	switch m.mode {
	case modeForm:
		m.mode = modeList
		m.statusMsg = "Creating address..."
		m.alert = false
		return m, m.provision(m.fb.prefix, m.fb.domain)

	case modeConfirmDelete:
		m.mode = modeList
		if !m.fb.confirm {
			return m, nil
		}
		return m, m.deleteIdentity(m.items[m.selectedIdx])

	case modeRestore:
		m.mode = modeList
		return m, m.restore(strings.TrimSpace(m.fb.path))
	}
	return m, nil
}

// View renders the identity manager.
func (m Model) View() string {
	if m.mode != modeList {
		return m.viewForm()
	}
	return m.viewList()
}

func (m Model) viewList() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	b.WriteString(titleStyle.Render(fmt.Sprintf("Addresses (%d/%d)", len(m.items), model.MaxIdentities)))
	b.WriteString("\n\n")

	if len(m.items) == 0 {
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		b.WriteString(emptyStyle.Render("No addresses yet. Press 'n' to create one."))
	} else {
		for i, ident := range m.items {
			label := ident.Address
			if ident.Label != "" && !strings.HasPrefix(ident.Address, strings.ToLower(ident.Label)+"@") {
				label += theme.DimmedStyle.Render("  " + ident.Label)
			}
			if ident.ID == m.activeID {
				label += "  " + theme.ActiveBadgeStyle.Render("active")
			}

			if i == m.selectedIdx {
				b.WriteString(theme.SelectedItemStyle.Render(label))
			} else {
				b.WriteString(theme.ListItemStyle.Render(label))
			}
			b.WriteString("\n")
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		style := lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true)
		if m.alert {
			style = lipgloss.NewStyle().Foreground(theme.ColorRed)
		}
		b.WriteString(style.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorGray).Render(
		"enter use | n new | d delete | b backup | u restore | esc back",
	))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) viewForm() string {
	if m.form == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(m.form.View())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func (m Model) loadDomains() tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		domains, err := mgr.Domains(context.Background())
		return domainsLoadedMsg{domains: domains, err: err}
	}
}

func (m Model) provision(prefix, domain string) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		ident, err := mgr.Provision(context.Background(), prefix, domain)
		return provisionedMsg{ident: ident, err: err}
	}
}

func (m Model) deleteIdentity(ident model.Identity) tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		removed, err := mgr.Delete(context.Background(), ident.ID, identity.Confirmed)
		return deletedMsg{address: ident.Address, removed: removed, err: err}
	}
}

func (m Model) exportBackup() tea.Cmd {
	mgr := m.manager
	return func() tea.Msg {
		path, err := mgr.ExportBackup()
		return backupMsg{path: path, err: err}
	}
}

func (m Model) restore(path string) tea.Cmd {
	mgr := m.manager
	fs := m.fs
	return func() tea.Msg {
		f, err := fs.Open(path)
		if err != nil {
			return restoredMsg{err: err}
		}
		defer f.Close()
		report, err := mgr.ImportBackup(context.Background(), f)
		return restoredMsg{report: report, err: err}
	}
}

// ProvisionErrorText maps a provisioning failure to the text shown to the user.
func ProvisionErrorText(err error) string {
	switch {
	case errors.Is(err, identity.ErrBusy):
		return "Already creating an address..."
	case errors.Is(err, identity.ErrNoDomains):
		return "No domains available."
	case errors.Is(err, identity.ErrUnknownDomain):
		return "That domain is not available."
	}
	return provider.UserMessage(err)
}

// IsResult reports whether msg is the outcome of an operation started by
// this view. Parents forward such messages even when the view is hidden.
func IsResult(msg tea.Msg) bool {
	switch msg.(type) {
	case domainsLoadedMsg, provisionedMsg, deletedMsg, backupMsg, restoredMsg:
		return true
	}
	return false
}
