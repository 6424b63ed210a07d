// Package identity manages the locally persisted set of disposable mailbox
// identities: provisioning against the provider, deletion, activation and
// backup export/import.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"

	"github.com/nhle/burnerx/internal/model"
	"github.com/nhle/burnerx/internal/platform"
	"github.com/nhle/burnerx/internal/provider"
	"github.com/nhle/burnerx/internal/store"
)

const (
	randomAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	addressLength  = 10
	passwordLength = 12
)

var (
	// ErrBusy is returned when a provisioning call overlaps another one.
	ErrBusy = errors.New("identity: provisioning already in progress")

	// ErrNoDomains is returned when the provider offers no usable domain.
	ErrNoDomains = errors.New("identity: provider offers no domains")

	// ErrUnknownDomain is returned when a requested domain is not offered.
	ErrUnknownDomain = errors.New("identity: domain not offered by provider")
)

// Provider is the subset of the provider API the store needs.
type Provider interface {
	Domains(ctx context.Context) ([]provider.Domain, error)
	CreateAccount(ctx context.Context, address, password string) (*provider.Account, error)
	Token(ctx context.Context, address, password string) (*provider.Token, error)
	Me(ctx context.Context, token string) (*provider.Account, error)
	DeleteAccount(ctx context.Context, token, id string) error
}

// ConfirmFunc asks the user to approve a destructive action described by
// prompt.
type ConfirmFunc func(prompt string) bool

// Confirmed approves every prompt. Used when the caller already asked.
func Confirmed(string) bool { return true }

// Change is delivered to listeners after every mutation.
type Change struct {
	// Identities is a copy of the list after the mutation.
	Identities []model.Identity

	// Active is the active identity, nil when there is none.
	Active *model.Identity

	// ActiveChanged reports whether the active identity was replaced.
	ActiveChanged bool
}

// Store holds up to model.MaxIdentities identities, newest first, and the
// active one. Every mutation rewrites the full list to the backing KV.
type Store struct {
	provider Provider
	kv       store.KV
	saver    platform.FileSaver

	mu         sync.Mutex
	identities []model.Identity
	activeID   string
	domains    []provider.Domain
	busy       bool
	listeners  []func(Change)

	// now and random are replaced in tests.
	now    func() time.Time
	random func(n int) (string, error)
}

// New creates a store. Call Load to read persisted identities.
func New(p Provider, kv store.KV, saver platform.FileSaver) *Store {
	return &Store{
		provider: p,
		kv:       kv,
		saver:    saver,
		now:      time.Now,
		random: func(n int) (string, error) {
			return gonanoid.Generate(randomAlphabet, n)
		},
	}
}

// OnChange registers a listener called after every mutation, outside the
// store lock.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Load reconstructs the in-memory list from storage. The first identity
// becomes active.
func (s *Store) Load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, store.KeyIdentities)
	if err != nil {
		return fmt.Errorf("loading identities: %w", err)
	}

	var ids []model.Identity
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &ids); err != nil {
			return fmt.Errorf("decoding identities: %w", err)
		}
	}
	if len(ids) > model.MaxIdentities {
		ids = ids[:model.MaxIdentities]
	}

	s.mu.Lock()
	s.identities = ids
	s.activeID = ""
	if len(ids) > 0 {
		s.activeID = ids[0].ID
	}
	change := s.changeLocked(true)
	s.mu.Unlock()

	log.Info().Str("module", "identity").Int("count", len(ids)).Msg("Loaded identities")
	s.emit(change)
	return nil
}

// List returns a copy of the stored identities, newest first.
func (s *Store) List() []model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Identity(nil), s.identities...)
}

// Active returns the active identity, or nil.
func (s *Store) Active() *model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked()
}

// Busy reports whether a provisioning call is in flight.
func (s *Store) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Domains returns the cached domain list, fetching it on first use.
func (s *Store) Domains(ctx context.Context) ([]provider.Domain, error) {
	s.mu.Lock()
	cached := s.domains
	s.mu.Unlock()
	if len(cached) > 0 {
		return cached, nil
	}

	domains, err := s.provider.Domains(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing domains: %w", err)
	}

	usable := make([]provider.Domain, 0, len(domains))
	for _, d := range domains {
		if d.Domain != "" {
			usable = append(usable, d)
		}
	}
	if len(usable) == 0 {
		return nil, ErrNoDomains
	}

	s.mu.Lock()
	s.domains = usable
	s.mu.Unlock()
	return usable, nil
}

// Provision creates a new remote account and makes it the active identity.
// An empty prefix yields a random local part; an empty domain picks the
// first one offered. On failure nothing changes.
func (s *Store) Provision(ctx context.Context, prefix, domain string) (*model.Identity, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	domains, err := s.Domains(ctx)
	if err != nil {
		return nil, err
	}
	chosen, err := pickDomain(domains, domain)
	if err != nil {
		return nil, err
	}

	local := strings.ToLower(strings.TrimSpace(prefix))
	if local == "" {
		if local, err = s.random(addressLength); err != nil {
			return nil, fmt.Errorf("generating address: %w", err)
		}
	}
	password, err := s.random(passwordLength)
	if err != nil {
		return nil, fmt.Errorf("generating password: %w", err)
	}
	address := local + "@" + chosen

	acct, err := s.provider.CreateAccount(ctx, address, password)
	if err != nil {
		return nil, fmt.Errorf("creating account %s: %w", address, err)
	}
	tok, err := s.provider.Token(ctx, address, password)
	if err != nil {
		return nil, fmt.Errorf("issuing token for %s: %w", address, err)
	}

	ident := model.Identity{
		ID:        acct.ID,
		Address:   address,
		Password:  password,
		Token:     tok.Token,
		Label:     strings.TrimSpace(prefix),
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	next := append([]model.Identity{ident}, s.identities...)
	if len(next) > model.MaxIdentities {
		next = next[:model.MaxIdentities]
	}
	if err := s.persistLocked(ctx, next); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.identities = next
	s.activeID = ident.ID
	change := s.changeLocked(true)
	s.mu.Unlock()

	log.Info().Str("module", "identity").Str("address", address).Msg("Provisioned identity")
	s.emit(change)
	return &ident, nil
}

// Delete removes the identity with id after confirm approves it. The
// remote account is deleted best-effort; local removal happens regardless.
// Deleting the active identity activates the next remaining one.
// It reports whether the identity was removed.
func (s *Store) Delete(ctx context.Context, id string, confirm ConfirmFunc) (bool, error) {
	s.mu.Lock()
	target, ok := s.findLocked(id)
	s.mu.Unlock()
	if !ok {
		return false, nil
	}

	if confirm != nil && !confirm(fmt.Sprintf("Permanently delete %s?", target.Address)) {
		return false, nil
	}

	if err := s.provider.DeleteAccount(ctx, target.Token, target.ID); err != nil {
		log.Warn().Str("module", "identity").Str("address", target.Address).Err(err).
			Msg("Remote account deletion failed, removing locally")
	}

	s.mu.Lock()
	next := make([]model.Identity, 0, len(s.identities))
	for _, ident := range s.identities {
		if ident.ID != id {
			next = append(next, ident)
		}
	}
	if err := s.persistLocked(ctx, next); err != nil {
		s.mu.Unlock()
		return false, err
	}
	s.identities = next

	activeChanged := s.activeID == id
	if activeChanged {
		s.activeID = ""
		if len(next) > 0 {
			s.activeID = next[0].ID
		}
	}
	change := s.changeLocked(activeChanged)
	s.mu.Unlock()

	log.Info().Str("module", "identity").Str("address", target.Address).Msg("Deleted identity")
	s.emit(change)
	return true, nil
}

// Activate makes the stored identity with id the active one.
func (s *Store) Activate(id string) error {
	s.mu.Lock()
	if _, ok := s.findLocked(id); !ok {
		s.mu.Unlock()
		return fmt.Errorf("activating identity %s: not found", id)
	}
	if s.activeID == id {
		s.mu.Unlock()
		return nil
	}
	s.activeID = id
	change := s.changeLocked(true)
	s.mu.Unlock()

	s.emit(change)
	return nil
}

// pickDomain returns want when offered, or the first domain when want is
// empty.
func pickDomain(domains []provider.Domain, want string) (string, error) {
	if len(domains) == 0 {
		return "", ErrNoDomains
	}
	want = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(want), "@"))
	if want == "" {
		return domains[0].Domain, nil
	}
	for _, d := range domains {
		if strings.EqualFold(d.Domain, want) {
			return d.Domain, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownDomain, want)
}

// persistLocked serializes the full list. Callers hold s.mu.
func (s *Store) persistLocked(ctx context.Context, ids []model.Identity) error {
	if ids == nil {
		ids = []model.Identity{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encoding identities: %w", err)
	}
	if err := s.kv.Set(ctx, store.KeyIdentities, string(data)); err != nil {
		return fmt.Errorf("saving identities: %w", err)
	}
	return nil
}

func (s *Store) findLocked(id string) (model.Identity, bool) {
	for _, ident := range s.identities {
		if ident.ID == id {
			return ident, true
		}
	}
	return model.Identity{}, false
}

func (s *Store) activeLocked() *model.Identity {
	if s.activeID == "" {
		return nil
	}
	ident, ok := s.findLocked(s.activeID)
	if !ok {
		return nil
	}
	return &ident
}

func (s *Store) changeLocked(activeChanged bool) Change {
	return Change{
		Identities:    append([]model.Identity(nil), s.identities...),
		Active:        s.activeLocked(),
		ActiveChanged: activeChanged,
	}
}

func (s *Store) emit(change Change) {
	s.mu.Lock()
	listeners := append([]func(Change){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
}
