package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/burnerx/internal/model"
	"github.com/nhle/burnerx/internal/platform"
	"github.com/nhle/burnerx/internal/provider"
	"github.com/nhle/burnerx/internal/store"
	"github.com/nhle/burnerx/tests/testutil"
)

// fakeProvider is an in-memory stand-in for the provider API.
type fakeProvider struct {
	mu sync.Mutex

	domains     []provider.Domain
	domainCalls int

	// accounts maps address to password.
	accounts map[string]string
	ids      map[string]string
	nextID   int

	createErr error
	deleteErr error
	deleted   []string

	// block, when set, holds CreateAccount until closed.
	block chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		domains:  []provider.Domain{{ID: "d1", Domain: "mail.test"}, {ID: "d2", Domain: "other.test"}},
		accounts: make(map[string]string),
		ids:      make(map[string]string),
	}
}

func (f *fakeProvider) Domains(ctx context.Context) ([]provider.Domain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.domainCalls++
	return f.domains, nil
}

func (f *fakeProvider) CreateAccount(ctx context.Context, address, password string) (*provider.Account, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.addLocked(address, password), nil
}

func (f *fakeProvider) addLocked(address, password string) *provider.Account {
	f.nextID++
	id := fmt.Sprintf("acct-%d", f.nextID)
	f.accounts[address] = password
	f.ids[address] = id
	return &provider.Account{ID: id, Address: address}
}

func (f *fakeProvider) Token(ctx context.Context, address, password string) (*provider.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want, ok := f.accounts[address]
	if !ok || want != password {
		return nil, &provider.APIError{Method: "POST", Path: "/token", StatusCode: 401, Description: "Invalid credentials."}
	}
	return &provider.Token{ID: f.ids[address], Token: "tok-" + address}, nil
}

func (f *fakeProvider) Me(ctx context.Context, token string) (*provider.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	address := strings.TrimPrefix(token, "tok-")
	id, ok := f.ids[address]
	if !ok {
		return nil, &provider.APIError{Method: "GET", Path: "/me", StatusCode: 401}
	}
	return &provider.Account{ID: id, Address: address}, nil
}

func (f *fakeProvider) DeleteAccount(ctx context.Context, token, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

// newTestIdentityStore wires a store to a fake provider, an in-memory
// SQLite KV and an in-memory download directory.
func newTestIdentityStore(t *testing.T) (*Store, *fakeProvider, store.KV, afero.Fs) {
	t.Helper()

	fp := newFakeProvider()
	kv := testutil.NewTestStore(t)
	fs := afero.NewMemMapFs()
	s := New(fp, kv, platform.NewDirSaver(fs, "/downloads"))

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	n := 0
	s.random = func(length int) (string, error) {
		n++
		return fmt.Sprintf("%0*d", length, n), nil
	}

	require.NoError(t, s.Load(context.Background()))
	return s, fp, kv, fs
}

func TestProvision(t *testing.T) {
	s, fp, _, _ := newTestIdentityStore(t)
	ctx := context.Background()

	var changes []Change
	s.OnChange(func(c Change) { changes = append(changes, c) })

	ident, err := s.Provision(ctx, "  Alice ", "")
	require.NoError(t, err)

	assert.Equal(t, "alice@mail.test", ident.Address)
	assert.Equal(t, "Alice", ident.Label)
	assert.Equal(t, "acct-1", ident.ID)
	assert.Equal(t, "tok-alice@mail.test", ident.Token)
	assert.Len(t, ident.Password, passwordLength)

	active := s.Active()
	require.NotNil(t, active)
	assert.Equal(t, ident.ID, active.ID)

	require.Len(t, changes, 1)
	assert.True(t, changes[0].ActiveChanged)
	assert.Equal(t, 1, fp.domainCalls)
}

func TestProvisionRandomAddress(t *testing.T) {
	s, _, _, _ := newTestIdentityStore(t)

	ident, err := s.Provision(context.Background(), "", "other.test")
	require.NoError(t, err)

	local, domain, ok := strings.Cut(ident.Address, "@")
	require.True(t, ok)
	assert.Len(t, local, addressLength)
	assert.Equal(t, "other.test", domain)
	assert.Empty(t, ident.Label)
}

func TestProvisionCachesDomains(t *testing.T) {
	s, fp, _, _ := newTestIdentityStore(t)
	ctx := context.Background()

	_, err := s.Provision(ctx, "a", "")
	require.NoError(t, err)
	_, err = s.Provision(ctx, "b", "")
	require.NoError(t, err)

	assert.Equal(t, 1, fp.domainCalls)
}

func TestProvisionUnknownDomain(t *testing.T) {
	s, _, _, _ := newTestIdentityStore(t)

	_, err := s.Provision(context.Background(), "a", "nowhere.test")
	assert.ErrorIs(t, err, ErrUnknownDomain)
	assert.Empty(t, s.List())
}

func TestProvisionNoDomains(t *testing.T) {
	s, fp, _, _ := newTestIdentityStore(t)
	fp.domains = nil

	_, err := s.Provision(context.Background(), "a", "")
	assert.ErrorIs(t, err, ErrNoDomains)
}

func TestProvisionFailureLeavesStateUnchanged(t *testing.T) {
	s, fp, kv, _ := newTestIdentityStore(t)
	ctx := context.Background()

	first, err := s.Provision(ctx, "first", "")
	require.NoError(t, err)

	fp.createErr = &provider.APIError{Method: "POST", Path: "/accounts", StatusCode: 422, Description: "address: This value is already used."}
	_, err = s.Provision(ctx, "first", "")
	require.Error(t, err)
	assert.Equal(t, "address: This value is already used.", provider.UserMessage(err))

	require.Len(t, s.List(), 1)
	assert.Equal(t, first.ID, s.Active().ID)

	raw, ok, err := kv.Get(ctx, store.KeyIdentities)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, raw, first.Address)
	assert.False(t, s.Busy())
}

func TestProvisionKeepsTenNewestFirst(t *testing.T) {
	s, _, _, _ := newTestIdentityStore(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := s.Provision(ctx, fmt.Sprintf("user%02d", i), "")
		require.NoError(t, err)
	}

	list := s.List()
	require.Len(t, list, model.MaxIdentities)
	assert.Equal(t, "user11@mail.test", list[0].Address)
	assert.Equal(t, "user02@mail.test", list[len(list)-1].Address)
	for i := 1; i < len(list); i++ {
		assert.True(t, list[i-1].CreatedAt.After(list[i].CreatedAt))
	}
	assert.Equal(t, list[0].ID, s.Active().ID)
}

func TestProvisionBusy(t *testing.T) {
	s, fp, _, _ := newTestIdentityStore(t)
	fp.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Provision(context.Background(), "slow", "")
		done <- err
	}()

	require.Eventually(t, s.Busy, time.Second, 5*time.Millisecond)

	_, err := s.Provision(context.Background(), "fast", "")
	assert.ErrorIs(t, err, ErrBusy)

	close(fp.block)
	require.NoError(t, <-done)
	assert.False(t, s.Busy())
	assert.Len(t, s.List(), 1)
}

func TestLoadRestoresPersistedList(t *testing.T) {
	s, fp, kv, fs := newTestIdentityStore(t)
	ctx := context.Background()

	_, err := s.Provision(ctx, "one", "")
	require.NoError(t, err)
	_, err = s.Provision(ctx, "two", "")
	require.NoError(t, err)

	reloaded := New(fp, kv, platform.NewDirSaver(fs, "/downloads"))
	require.NoError(t, reloaded.Load(ctx))

	require.Len(t, reloaded.List(), 2)
	for i, ident := range s.List() {
		assert.Equal(t, ident.ID, reloaded.List()[i].ID)
		assert.Equal(t, ident.Token, reloaded.List()[i].Token)
		assert.True(t, ident.CreatedAt.Equal(reloaded.List()[i].CreatedAt))
	}
	require.NotNil(t, reloaded.Active())
	assert.Equal(t, "two@mail.test", reloaded.Active().Address)
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name       string
		deleteIdx  int
		deleteErr  error
		wantActive string
	}{
		{
			name:       "active identity activates next remaining",
			deleteIdx:  0,
			wantActive: "two@mail.test",
		},
		{
			name:       "inactive identity keeps active",
			deleteIdx:  1,
			wantActive: "three@mail.test",
		},
		{
			name:       "remote failure still removes locally",
			deleteIdx:  0,
			deleteErr:  errors.New("connection refused"),
			wantActive: "two@mail.test",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, fp, _, _ := newTestIdentityStore(t)
			ctx := context.Background()
			for _, p := range []string{"one", "two", "three"} {
				_, err := s.Provision(ctx, p, "")
				require.NoError(t, err)
			}
			fp.deleteErr = tt.deleteErr

			target := s.List()[tt.deleteIdx]
			var prompt string
			removed, err := s.Delete(ctx, target.ID, func(p string) bool {
				prompt = p
				return true
			})
			require.NoError(t, err)
			assert.True(t, removed)
			assert.Equal(t, "Permanently delete "+target.Address+"?", prompt)
			assert.Equal(t, []string{target.ID}, fp.deleted)

			assert.Len(t, s.List(), 2)
			require.NotNil(t, s.Active())
			assert.Equal(t, tt.wantActive, s.Active().Address)
		})
	}
}

func TestDeleteLastClearsActive(t *testing.T) {
	s, _, _, _ := newTestIdentityStore(t)
	ctx := context.Background()

	ident, err := s.Provision(ctx, "solo", "")
	require.NoError(t, err)

	var last Change
	s.OnChange(func(c Change) { last = c })

	removed, err := s.Delete(ctx, ident.ID, Confirmed)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, s.List())
	assert.Nil(t, s.Active())
	assert.True(t, last.ActiveChanged)
	assert.Nil(t, last.Active)
}

func TestDeleteDeclinedOrUnknown(t *testing.T) {
	s, fp, _, _ := newTestIdentityStore(t)
	ctx := context.Background()

	ident, err := s.Provision(ctx, "keep", "")
	require.NoError(t, err)

	removed, err := s.Delete(ctx, ident.ID, func(string) bool { return false })
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = s.Delete(ctx, "missing", Confirmed)
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Len(t, s.List(), 1)
	assert.Empty(t, fp.deleted)
}

func TestActivate(t *testing.T) {
	s, _, _, _ := newTestIdentityStore(t)
	ctx := context.Background()

	first, err := s.Provision(ctx, "first", "")
	require.NoError(t, err)
	_, err = s.Provision(ctx, "second", "")
	require.NoError(t, err)

	var changes []Change
	s.OnChange(func(c Change) { changes = append(changes, c) })

	require.NoError(t, s.Activate(first.ID))
	assert.Equal(t, first.ID, s.Active().ID)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].ActiveChanged)

	// Activating the active identity is silent.
	require.NoError(t, s.Activate(first.ID))
	assert.Len(t, changes, 1)

	assert.Error(t, s.Activate("missing"))
}
