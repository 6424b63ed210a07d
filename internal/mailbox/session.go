// Package mailbox holds the state of the mailbox being viewed: the active
// identity, its message list, the selected message and its raw source.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nhle/burnerx/internal/model"
	"github.com/nhle/burnerx/internal/platform"
	"github.com/nhle/burnerx/internal/provider"
)

// Status texts shown in place of a message body.
const (
	LoadingBody = "Loading content..."
	FailedBody  = "Failed to load message content."
)

// Copy button states.
const (
	CopyIdle   = "Copy"
	CopyDone   = "Copied!"
	copyRevert = 2 * time.Second
)

// ErrNoIdentity is returned by operations that need an active identity.
var ErrNoIdentity = errors.New("mailbox: no active identity")

// Provider is the subset of the provider API a session uses.
type Provider interface {
	Messages(ctx context.Context, token string) ([]model.MessageSummary, error)
	Message(ctx context.Context, token, id string) (*model.MessageDetail, error)
	MessageSource(ctx context.Context, token, id string) (string, error)
	Download(ctx context.Context, token, downloadURL string) ([]byte, error)
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Identity   *model.Identity
	Messages   []model.MessageSummary
	Selected   *model.MessageDetail
	Body       string
	Source     string
	ShowSource bool
	Loading    bool
	Query      string
	CopyStatus string

	// AuthExpired is set when the provider rejected the active token.
	AuthExpired bool
}

// Session owns the mailbox state. All methods are safe for concurrent use;
// observers are called outside the lock.
type Session struct {
	provider  Provider
	saver     platform.FileSaver
	clipboard platform.ClipboardWriter

	mu         sync.Mutex
	identity   *model.Identity
	messages   []model.MessageSummary
	selected   *model.MessageDetail
	body       string
	source     string
	showSource bool
	loading    bool
	query      string
	copyStatus string
	copyTimer  *time.Timer

	authExpired bool

	// listGen changes on every identity switch, selGen on every selection.
	listGen uint64
	selGen  uint64

	observers  map[int]func(Snapshot)
	nextObsID  int
	copyRevert time.Duration
}

// NewSession creates a session with no active identity.
func NewSession(p Provider, saver platform.FileSaver, clip platform.ClipboardWriter) *Session {
	return &Session{
		provider:   p,
		saver:      saver,
		clipboard:  clip,
		copyStatus: CopyIdle,
		observers:  make(map[int]func(Snapshot)),
		copyRevert: copyRevert,
	}
}

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (s *Session) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Identity returns the active identity, or nil.
func (s *Session) Identity() *model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	ident := *s.identity
	return &ident
}

// Activate switches to ident (nil for none) and clears all per-identity
// state. In-flight requests for the previous identity are discarded when
// they complete.
func (s *Session) Activate(ident *model.Identity) {
	s.mu.Lock()
	if ident != nil {
		cp := *ident
		s.identity = &cp
	} else {
		s.identity = nil
	}
	s.messages = nil
	s.authExpired = false
	s.clearSelectionLocked()
	s.listGen++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	addr := ""
	if ident != nil {
		addr = ident.Address
	}
	log.Debug().Str("module", "mailbox").Str("address", addr).Msg("Activated identity")
	s.notify(snap)
}

// RefreshMessages replaces the message list with the provider's current
// one. Failures are logged and the previous list is kept. It reports
// whether a fresh list was applied, and for which activation.
func (s *Session) RefreshMessages(ctx context.Context) (model.Refresh, bool) {
	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return model.Refresh{}, false
	}
	token := s.identity.Token
	address := s.identity.Address
	gen := s.listGen
	s.mu.Unlock()

	msgs, err := s.provider.Messages(ctx, token)
	if err != nil {
		s.refreshFailed(gen, err)
		return model.Refresh{}, false
	}

	s.mu.Lock()
	if gen != s.listGen {
		s.mu.Unlock()
		log.Debug().Str("module", "mailbox").Msg("Discarding stale message list")
		return model.Refresh{}, false
	}
	s.messages = msgs
	s.authExpired = false
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return model.Refresh{
		Address:    address,
		Generation: gen,
		Messages:   append([]model.MessageSummary(nil), msgs...),
	}, true
}

// refreshFailed records a rejected token so the UI can say so. Other
// failures only reach the debug log.
func (s *Session) refreshFailed(gen uint64, err error) {
	if !provider.IsAuthError(err) {
		log.Debug().Str("module", "mailbox").Err(err).Msg("Refreshing messages failed")
		return
	}
	log.Warn().Str("module", "mailbox").Err(err).Msg("Token rejected")

	s.mu.Lock()
	if gen != s.listGen || s.authExpired {
		s.mu.Unlock()
		return
	}
	s.authExpired = true
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Generation returns the current activation counter.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listGen
}

// OpenMessage selects summary and loads its full content. Until the
// detail arrives the body shows LoadingBody; on failure it shows
// FailedBody and the selection is kept.
func (s *Session) OpenMessage(ctx context.Context, summary model.MessageSummary) {
	s.mu.Lock()
	if s.identity == nil {
		s.mu.Unlock()
		return
	}
	token := s.identity.Token
	s.selGen++
	gen := s.selGen
	s.selected = &model.MessageDetail{MessageSummary: summary}
	s.body = LoadingBody
	s.source = ""
	s.showSource = false
	s.loading = true
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	detail, err := s.provider.Message(ctx, token, summary.ID)

	s.mu.Lock()
	if gen != s.selGen {
		s.mu.Unlock()
		return
	}
	s.loading = false
	if err != nil {
		log.Warn().Str("module", "mailbox").Str("message", summary.ID).Err(err).
			Msg("Loading message failed")
		s.body = FailedBody
	} else {
		merged := &model.MessageDetail{MessageSummary: summary}
		merged.Merge(detail)
		s.selected = merged
		s.body = merged.Body()
	}
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// CloseMessage clears the selection.
func (s *Session) CloseMessage() {
	s.mu.Lock()
	s.clearSelectionLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// ToggleSource flips between the rendered body and the raw source. The
// source is fetched on first use; a failed fetch leaves the rendered view.
func (s *Session) ToggleSource(ctx context.Context) error {
	s.mu.Lock()
	if s.selected == nil || s.identity == nil {
		s.mu.Unlock()
		return nil
	}
	if s.source != "" {
		s.showSource = !s.showSource
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return nil
	}
	token := s.identity.Token
	id := s.selected.ID
	gen := s.selGen
	s.mu.Unlock()

	raw, err := s.provider.MessageSource(ctx, token, id)
	if err != nil {
		return fmt.Errorf("fetching source of %s: %w", id, err)
	}

	s.mu.Lock()
	if gen != s.selGen {
		s.mu.Unlock()
		return nil
	}
	s.source = raw
	s.showSource = true
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// DownloadAttachment fetches att with the active token and saves it under
// its declared filename. It returns the saved location.
func (s *Session) DownloadAttachment(ctx context.Context, att model.Attachment) (string, error) {
	ident := s.Identity()
	if ident == nil {
		return "", ErrNoIdentity
	}

	data, err := s.provider.Download(ctx, ident.Token, att.DownloadURL)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", att.Filename, err)
	}
	path, err := s.saver.Save(att.Filename, data)
	if err != nil {
		return "", fmt.Errorf("saving %s: %w", att.Filename, err)
	}
	log.Info().Str("module", "mailbox").Str("path", path).Msg("Saved attachment")
	return path, nil
}

// SetQuery sets the search filter.
func (s *Session) SetQuery(q string) {
	s.mu.Lock()
	s.query = q
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Filtered returns the messages matching the current query.
func (s *Session) Filtered() []model.MessageSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Filter(s.messages, s.query)
}

// Filter returns the messages whose subject, sender or intro contain
// query, ignoring case. An empty query matches everything.
func Filter(msgs []model.MessageSummary, query string) []model.MessageSummary {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.MessageSummary, 0, len(msgs))
	for _, m := range msgs {
		if q == "" || matches(m, q) {
			out = append(out, m)
		}
	}
	return out
}

func matches(m model.MessageSummary, q string) bool {
	for _, field := range []string{m.Subject, m.From.Address, m.From.Name, m.Intro} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// CopyAddress puts the active address on the clipboard and shows CopyDone
// for a short while.
func (s *Session) CopyAddress() error {
	ident := s.Identity()
	if ident == nil {
		return ErrNoIdentity
	}
	if err := s.clipboard.WriteText(ident.Address); err != nil {
		return fmt.Errorf("copying address: %w", err)
	}

	s.mu.Lock()
	s.copyStatus = CopyDone
	if s.copyTimer != nil {
		s.copyTimer.Stop()
	}
	s.copyTimer = time.AfterFunc(s.copyRevert, s.resetCopyStatus)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Close stops pending timers.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.copyTimer != nil {
		s.copyTimer.Stop()
		s.copyTimer = nil
	}
}

func (s *Session) resetCopyStatus() {
	s.mu.Lock()
	s.copyStatus = CopyIdle
	s.copyTimer = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Session) clearSelectionLocked() {
	s.selected = nil
	s.body = ""
	s.source = ""
	s.showSource = false
	s.loading = false
	s.selGen++
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Messages:   append([]model.MessageSummary(nil), s.messages...),
		Body:       s.body,
		Source:     s.source,
		ShowSource: s.showSource,
		Loading:    s.loading,
		Query:      s.query,
		CopyStatus: s.copyStatus,

		AuthExpired: s.authExpired,
	}
	if s.identity != nil {
		ident := *s.identity
		snap.Identity = &ident
	}
	if s.selected != nil {
		sel := *s.selected
		snap.Selected = &sel
	}
	return snap
}

func (s *Session) notify(snap Snapshot) {
	s.mu.Lock()
	fns := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
