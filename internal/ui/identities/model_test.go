package identities

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/burnerx/internal/identity"
	"github.com/nhle/burnerx/internal/keys"
	"github.com/nhle/burnerx/internal/model"
	"github.com/nhle/burnerx/internal/provider"
)

type fakeManager struct {
	items     []model.Identity
	activeID  string
	activated []string
	imported  string
	domains   []provider.Domain
}

func (f *fakeManager) List() []model.Identity { return f.items }

func (f *fakeManager) Active() *model.Identity {
	for _, i := range f.items {
		if i.ID == f.activeID {
			return &i
		}
	}
	return nil
}

func (f *fakeManager) Busy() bool { return false }

func (f *fakeManager) Domains(context.Context) ([]provider.Domain, error) {
	return f.domains, nil
}

func (f *fakeManager) Provision(_ context.Context, prefix, domain string) (*model.Identity, error) {
	return &model.Identity{ID: "new", Address: prefix + "@" + domain}, nil
}

func (f *fakeManager) Delete(context.Context, string, identity.ConfirmFunc) (bool, error) {
	return true, nil
}

func (f *fakeManager) Activate(id string) error {
	f.activated = append(f.activated, id)
	f.activeID = id
	return nil
}

func (f *fakeManager) ExportBackup() (string, error) { return "/tmp/backup.json", nil }

func (f *fakeManager) ImportBackup(_ context.Context, r io.Reader) (identity.ImportReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return identity.ImportReport{}, err
	}
	f.imported = string(data)
	return identity.ImportReport{Imported: 1}, nil
}

func newTestView(t *testing.T) (Model, *fakeManager, afero.Fs) {
	t.Helper()
	mgr := &fakeManager{
		items: []model.Identity{
			{ID: "a", Address: "alice@mail.test", CreatedAt: time.Now()},
			{ID: "b", Address: "bob@mail.test", CreatedAt: time.Now()},
		},
		activeID: "a",
	}
	fs := afero.NewMemMapFs()
	m := New(mgr, fs, keys.DefaultKeyMap(), 80, 24)
	m.Refresh()
	return m, mgr, fs
}

func TestSelectActivatesAndCloses(t *testing.T) {
	m, mgr, _ := newTestView(t)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"b"}, mgr.activated)
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())
}

func TestListMarksActive(t *testing.T) {
	m, _, _ := newTestView(t)
	view := m.View()
	assert.Contains(t, view, "alice@mail.test")
	assert.Contains(t, view, "active")
	assert.Contains(t, view, "Addresses (2/10)")
}

func TestProvisionWithoutDomainsAlerts(t *testing.T) {
	m, _, _ := newTestView(t)

	m, cmd := m.StartProvision()
	require.NotNil(t, cmd)
	m, cmd = m.Update(cmd())

	require.NotNil(t, cmd)
	assert.Equal(t, StatusMsg{Text: "No domains available.", Alert: true}, cmd())
	assert.False(t, m.Editing())
}

func TestProvisionedReportsAddress(t *testing.T) {
	m, _, _ := newTestView(t)

	_, cmd := m.Update(provisionedMsg{ident: &model.Identity{Address: "carol@mail.test"}})
	require.NotNil(t, cmd)
	assert.Equal(t, StatusMsg{Text: "Created carol@mail.test"}, cmd())

	_, cmd = m.Update(provisionedMsg{err: &provider.APIError{StatusCode: 422, Description: "address already used"}})
	require.NotNil(t, cmd)
	assert.Equal(t, StatusMsg{Text: "address already used", Alert: true}, cmd())
}

func TestRestoreReadsFile(t *testing.T) {
	m, mgr, fs := newTestView(t)
	require.NoError(t, afero.WriteFile(fs, "/backup.json", []byte(`{"identities":[]}`), 0o600))

	msg := m.restore("/backup.json")()
	_, cmd := m.Update(msg)

	assert.Equal(t, `{"identities":[]}`, mgr.imported)
	require.NotNil(t, cmd)
	assert.Equal(t, StatusMsg{Text: "Imported 1, skipped 0, failed 0"}, cmd())
}

func TestRestoreMissingFile(t *testing.T) {
	m, _, _ := newTestView(t)

	_, cmd := m.Update(m.restore("/nope.json")())
	require.NotNil(t, cmd)
	status := cmd().(StatusMsg)
	assert.True(t, status.Alert)
	assert.Contains(t, status.Text, "Restore failed")
}

func TestValidatePrefix(t *testing.T) {
	assert.NoError(t, validatePrefix(""))
	assert.NoError(t, validatePrefix("john.doe-1_x"))
	assert.Error(t, validatePrefix("john doe"))
	assert.Error(t, validatePrefix("a@b"))
}

func TestProvisionErrorText(t *testing.T) {
	assert.Equal(t, "Already creating an address...", ProvisionErrorText(identity.ErrBusy))
	assert.Equal(t, "That domain is not available.", ProvisionErrorText(identity.ErrUnknownDomain))
	assert.Equal(t, provider.FallbackMessage, ProvisionErrorText(errors.New("dial tcp: refused")))
}

func TestIsResult(t *testing.T) {
	assert.True(t, IsResult(backupMsg{}))
	assert.False(t, IsResult(CloseMsg{}))
}
