package mailbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/burnerx/internal/model"
	"github.com/nhle/burnerx/internal/platform"
	"github.com/nhle/burnerx/internal/provider"
)

// mockProvider answers from maps keyed by token and message id. Any call
// can be held with a gate channel to interleave requests.
type mockProvider struct {
	mu sync.Mutex

	messages map[string][]model.MessageSummary
	details  map[string]*model.MessageDetail
	sources  map[string]string
	files    map[string][]byte

	listErr   error
	detailErr error
	sourceErr error

	listGate   chan struct{}
	detailGate map[string]chan struct{}

	listCalls   int
	sourceCalls int
	tokens      []string
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		messages:   make(map[string][]model.MessageSummary),
		details:    make(map[string]*model.MessageDetail),
		sources:    make(map[string]string),
		files:      make(map[string][]byte),
		detailGate: make(map[string]chan struct{}),
	}
}

func (m *mockProvider) Messages(ctx context.Context, token string) ([]model.MessageSummary, error) {
	m.mu.Lock()
	m.listCalls++
	gate := m.listGate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, token)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.messages[token], nil
}

func (m *mockProvider) Message(ctx context.Context, token, id string) (*model.MessageDetail, error) {
	m.mu.Lock()
	gate := m.detailGate[id]
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.detailErr != nil {
		return nil, m.detailErr
	}
	d, ok := m.details[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *d
	return &cp, nil
}

func (m *mockProvider) MessageSource(ctx context.Context, token, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceCalls++
	if m.sourceErr != nil {
		return "", m.sourceErr
	}
	return m.sources[id], nil
}

func (m *mockProvider) Download(ctx context.Context, token, downloadURL string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[downloadURL]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

var (
	alice = &model.Identity{ID: "a", Address: "alice@mail.test", Token: "tok-a"}
	bob   = &model.Identity{ID: "b", Address: "bob@mail.test", Token: "tok-b"}
)

func newTestSession(t *testing.T) (*Session, *mockProvider, afero.Fs, *platform.MemoryClipboard) {
	t.Helper()
	mp := newMockProvider()
	fs := afero.NewMemMapFs()
	clip := &platform.MemoryClipboard{}
	s := NewSession(mp, platform.NewDirSaver(fs, "/dl"), clip)
	t.Cleanup(s.Close)
	return s, mp, fs, clip
}

func TestRefreshMessages(t *testing.T) {
	s, mp, _, _ := newTestSession(t)
	ctx := context.Background()

	// No identity is a no-op.
	_, ok := s.RefreshMessages(ctx)
	assert.False(t, ok)
	assert.Empty(t, mp.tokens)

	mp.messages["tok-a"] = []model.MessageSummary{{ID: "m2"}, {ID: "m1"}}
	s.Activate(alice)

	r, ok := s.RefreshMessages(ctx)
	require.True(t, ok)
	assert.Len(t, r.Messages, 2)
	assert.Equal(t, "alice@mail.test", r.Address)
	assert.Equal(t, s.Generation(), r.Generation)
	assert.Equal(t, []string{"tok-a"}, mp.tokens)
	assert.Equal(t, "m2", s.Snapshot().Messages[0].ID)
}

func TestRefreshFailureKeepsList(t *testing.T) {
	s, mp, _, _ := newTestSession(t)
	ctx := context.Background()

	mp.messages["tok-a"] = []model.MessageSummary{{ID: "m1"}}
	s.Activate(alice)
	_, ok := s.RefreshMessages(ctx)
	require.True(t, ok)

	mp.listErr = errors.New("connection reset")
	_, ok = s.RefreshMessages(ctx)
	assert.False(t, ok)
	require.Len(t, s.Snapshot().Messages, 1)
	assert.Equal(t, "m1", s.Snapshot().Messages[0].ID)
}

func TestRefreshRejectedTokenMarksSession(t *testing.T) {
	s, mp, _, _ := newTestSession(t)
	ctx := context.Background()
	s.Activate(alice)

	mp.listErr = &provider.APIError{StatusCode: 401, Description: "Invalid JWT Token"}
	_, ok := s.RefreshMessages(ctx)
	assert.False(t, ok)
	assert.True(t, s.Snapshot().AuthExpired)

	mp.listErr = nil
	mp.messages["tok-a"] = []model.MessageSummary{{ID: "m1"}}
	_, ok = s.RefreshMessages(ctx)
	require.True(t, ok)
	assert.False(t, s.Snapshot().AuthExpired)

	mp.listErr = &provider.APIError{StatusCode: 401}
	_, ok = s.RefreshMessages(ctx)
	assert.False(t, ok)
	s.Activate(bob)
	assert.False(t, s.Snapshot().AuthExpired)
}

func TestActivateAdvancesGeneration(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	before := s.Generation()
	s.Activate(alice)
	s.Activate(bob)
	assert.Equal(t, before+2, s.Generation())
}

func TestRefreshDiscardedAfterIdentitySwitch(t *testing.T) {
	s, mp, _, _ := newTestSession(t)
	ctx := context.Background()

	mp.messages["tok-a"] = []model.MessageSummary{{ID: "alice-mail"}}
	mp.listGate = make(chan struct{})
	s.Activate(alice)

	done := make(chan bool, 1)
	go func() {
		_, ok := s.RefreshMessages(ctx)
		done <- ok
	}()

	require.Eventually(t, func() bool {
		mp.mu.Lock()
		defer mp.mu.Unlock()
		return mp.listCalls == 1
	}, time.Second, 5*time.Millisecond)

	s.Activate(bob)
	close(mp.listGate)

	assert.False(t, <-done)
	snap := s.Snapshot()
	assert.Equal(t, "bob@mail.test", snap.Identity.Address)
	assert.Empty(t, snap.Messages)
}

func TestOpenMessage(t *testing.T) {
	s, mp, _, _ := newTestSession(t)
	ctx := context.Background()
	s.Activate(alice)

	summary := model.MessageSummary{ID: "m1", Subject: "Hello", From: model.Address{Address: "x@y.z"}}
	mp.details["m1"] = &model.MessageDetail{
		MessageSummary: model.MessageSummary{ID: "m1"},
		Text:           "plain",
		HTML:           []string{"<p>rich</p>"},
	}

	var bodies []string
	cancel := s.Subscribe(func(snap Snapshot) { bodies = append(bodies, snap.Body) })
	defer cancel()

	s.OpenMessage(ctx, summary)

	require.Len(t, bodies, 2)
	assert.Equal(t, LoadingBody, bodies[0])
	assert.Equal(t, "<p>rich</p>", bodies[1])

	snap := s.Snapshot()
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "Hello", snap.Selected.Subject)
	assert.Equal(t, "x@y.z", snap.Selected.From.Address)
	assert.False(t, snap.Loading)
	assert.False(t, snap.ShowSource)
}

func TestOpenMessageTextFallback(t *testing.T) {
	s, mp, _, _ := newTestSession(t)
	s.Activate(alice)
	mp.details["m1"] = &model.MessageDetail{Text: "just text"}

	s.OpenMessage(context.Background(), model.MessageSummary{ID: "m1"})
	assert.Equal(t, "just text", s.Snapshot().Body)
}

func TestOpenMessageFailureKeepsSelection(t *testing.T) {
	s, mp, _, _ := newTestSession(t)
	s.Activate(alice)
	mp.detailErr = errors.New("boom")

	s.OpenMessage(context.Background(), model.MessageSummary{ID: "m1", Subject: "Kept"})

	snap := s.Snapshot()
	assert.Equal(t, FailedBody, snap.Body)
	require.NotNil(t, snap.Selected)
	assert.Equal(t, "Kept", snap.Selected.Subject)
	assert.False(t, snap.Loading)
}

func TestOpenMessageDiscardsSupersededDetail(t *testing.T) {
	s, mp, _, _ := newTestSession(t)
	ctx := context.Background()
	s.Activate(alice)

	mp.details["slow"] = &model.MessageDetail{Text: "slow body"}
	mp.details["fast"] = &model.MessageDetail{Text: "fast body"}
	gate := make(chan struct{})
	mp.detailGate["slow"] = gate

	done := make(chan struct{})
	go func() {
		s.OpenMessage(ctx, model.MessageSummary{ID: "slow"})
		close(done)
	}()

	require.Eventually(t, func() bool {
		sel := s.Snapshot().Selected
		return sel != nil && sel.ID == "slow"
	}, time.Second, 5*time.Millisecond)

	s.OpenMessage(ctx, model.MessageSummary{ID: "fast"})
	close(gate)
	<-done

	snap := s.Snapshot()
	assert.Equal(t, "fast", snap.Selected.ID)
	assert.Equal(t, "fast body", snap.Body)
}

func TestToggleSource(t *testing.T) {
	s, mp, _, _ := newTestSession(t)
	ctx := context.Background()
	s.Activate(alice)

	// Without a selection nothing happens.
	require.NoError(t, s.ToggleSource(ctx))
	assert.Equal(t, 0, mp.sourceCalls)

	mp.details["m1"] = &model.MessageDetail{Text: "body"}
	mp.sources["m1"] = "Subject: hi\r\n\r\nbody"
	s.OpenMessage(ctx, model.MessageSummary{ID: "m1"})

	require.NoError(t, s.ToggleSource(ctx))
	snap := s.Snapshot()
	assert.True(t, snap.ShowSource)
	assert.Equal(t, "Subject: hi\r\n\r\nbody", snap.Source)

	require.NoError(t, s.ToggleSource(ctx))
	assert.False(t, s.Snapshot().ShowSource)
	require.NoError(t, s.ToggleSource(ctx))
	assert.True(t, s.Snapshot().ShowSource)
	assert.Equal(t, 1, mp.sourceCalls)
}

func TestToggleSourceFailure(t *testing.T) {
	s, mp, _, _ := newTestSession(t)
	ctx := context.Background()
	s.Activate(alice)
	mp.details["m1"] = &model.MessageDetail{Text: "body"}
	mp.sourceErr = errors.New("gone")

	s.OpenMessage(ctx, model.MessageSummary{ID: "m1"})
	assert.Error(t, s.ToggleSource(ctx))
	assert.False(t, s.Snapshot().ShowSource)
	assert.Empty(t, s.Snapshot().Source)
}

func TestActivateResetsSelection(t *testing.T) {
	s, mp, _, _ := newTestSession(t)
	ctx := context.Background()
	s.Activate(alice)

	mp.messages["tok-a"] = []model.MessageSummary{{ID: "m1"}}
	mp.details["m1"] = &model.MessageDetail{Text: "body"}
	mp.sources["m1"] = "raw"
	_, ok := s.RefreshMessages(ctx)
	require.True(t, ok)
	s.OpenMessage(ctx, model.MessageSummary{ID: "m1"})
	require.NoError(t, s.ToggleSource(ctx))

	s.Activate(bob)

	snap := s.Snapshot()
	assert.Equal(t, "bob@mail.test", snap.Identity.Address)
	assert.Empty(t, snap.Messages)
	assert.Nil(t, snap.Selected)
	assert.Empty(t, snap.Body)
	assert.Empty(t, snap.Source)
	assert.False(t, snap.ShowSource)

	s.Activate(nil)
	assert.Nil(t, s.Snapshot().Identity)
}

func TestDownloadAttachment(t *testing.T) {
	s, mp, fs, _ := newTestSession(t)
	ctx := context.Background()

	_, err := s.DownloadAttachment(ctx, model.Attachment{Filename: "a.txt"})
	assert.ErrorIs(t, err, ErrNoIdentity)

	s.Activate(alice)
	mp.files["/messages/m1/attachment/ATTACH1"] = []byte("payload")

	path, err := s.DownloadAttachment(ctx, model.Attachment{
		Filename:    "report.pdf",
		DownloadURL: "/messages/m1/attachment/ATTACH1",
	})
	require.NoError(t, err)
	assert.Equal(t, "/dl/report.pdf", path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = s.DownloadAttachment(ctx, model.Attachment{Filename: "x", DownloadURL: "/missing"})
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	msgs := []model.MessageSummary{
		{ID: "1", Subject: "Verify your ACCOUNT"},
		{ID: "2", From: model.Address{Address: "news@shop.test", Name: "Shop"}},
		{ID: "3", Intro: "Your code is 1234"},
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"1", "2", "3"}},
		{"account", []string{"1"}},
		{"shop", []string{"2"}},
		{"  1234 ", []string{"3"}},
		{"nothing", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := []string{}
			for _, m := range Filter(msgs, tt.query) {
				got = append(got, m.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetQueryFiltersSession(t *testing.T) {
	s, mp, _, _ := newTestSession(t)
	s.Activate(alice)
	mp.messages["tok-a"] = []model.MessageSummary{{ID: "1", Subject: "alpha"}, {ID: "2", Subject: "beta"}}
	_, ok := s.RefreshMessages(context.Background())
	require.True(t, ok)

	s.SetQuery("BET")
	got := s.Filtered()
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "BET", s.Snapshot().Query)
}

func TestCopyAddress(t *testing.T) {
	s, _, _, clip := newTestSession(t)
	s.copyRevert = 20 * time.Millisecond

	assert.ErrorIs(t, s.CopyAddress(), ErrNoIdentity)

	s.Activate(alice)
	require.NoError(t, s.CopyAddress())
	assert.Equal(t, "alice@mail.test", clip.Text())
	assert.Equal(t, CopyDone, s.Snapshot().CopyStatus)

	require.Eventually(t, func() bool {
		return s.Snapshot().CopyStatus == CopyIdle
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribeCancel(t *testing.T) {
	s, _, _, _ := newTestSession(t)

	calls := 0
	cancel := s.Subscribe(func(Snapshot) { calls++ })
	s.Activate(alice)
	cancel()
	s.Activate(bob)

	assert.Equal(t, 1, calls)
}
