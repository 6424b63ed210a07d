package message

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/burnerx/internal/keys"
	"github.com/nhle/burnerx/internal/mailbox"
	"github.com/nhle/burnerx/internal/model"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func openView(loading bool) Model {
	m := New(keys.DefaultKeyMap(), 80, 30)
	m.SetSnapshot(mailbox.Snapshot{
		Selected: &model.MessageDetail{
			MessageSummary: model.MessageSummary{
				ID:      "m1",
				Subject: "Invoice",
				From:    model.Address{Address: "billing@shop.test", Name: "Shop"},
			},
			Attachments: []model.Attachment{
				{ID: "a1", Filename: "invoice.pdf", Size: 2048},
			},
		},
		Body:    "Thanks for your order.",
		Loading: loading,
	})
	return m
}

func TestActionsCarryMessageID(t *testing.T) {
	m := openView(false)

	tests := []struct {
		key  string
		want ActionMsg
	}{
		{"s", ActionMsg{Action: ActionSource, MessageID: "m1"}},
		{"e", ActionMsg{Action: ActionExportJSON, MessageID: "m1"}},
		{"E", ActionMsg{Action: ActionExportHTML, MessageID: "m1"}},
		{"l", ActionMsg{Action: ActionShare, MessageID: "m1"}},
		{"1", ActionMsg{Action: ActionDownload, MessageID: "m1", Index: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, cmd := m.Update(runes(tt.key))
			require.NotNil(t, cmd)
			assert.Equal(t, tt.want, cmd())
		})
	}
}

func TestDownloadOutOfRangeIgnored(t *testing.T) {
	m := openView(false)
	_, cmd := m.Update(runes("2"))
	assert.Nil(t, cmd)
}

func TestNoActionsWhileLoading(t *testing.T) {
	m := openView(true)
	_, cmd := m.Update(runes("e"))
	assert.Nil(t, cmd)
}

func TestEscGoesBack(t *testing.T) {
	m := openView(false)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, BackMsg{}, cmd())
}

func TestViewShowsHeadersAndAttachments(t *testing.T) {
	view := openView(false).renderContent()
	assert.Contains(t, view, "Invoice")
	assert.Contains(t, view, "Shop <billing@shop.test>")
	assert.Contains(t, view, "[1] invoice.pdf")
	assert.Contains(t, view, "Thanks for your order.")
}
