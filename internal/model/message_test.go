package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageDetailBodyPrefersHTML(t *testing.T) {
	d := &MessageDetail{Text: "plain", HTML: []string{"<p>a</p>", "<p>b</p>"}}
	assert.Equal(t, "<p>a</p><p>b</p>", d.Body())

	d.HTML = nil
	assert.Equal(t, "plain", d.Body())
}

func TestMessageDetailMergeKeepsSummaryFallbacks(t *testing.T) {
	d := &MessageDetail{MessageSummary: MessageSummary{
		ID:      "m1",
		Subject: "hello",
		From:    Address{Address: "a@example.com"},
	}}

	d.Merge(&MessageDetail{Text: "body"})

	assert.Equal(t, "m1", d.ID)
	assert.Equal(t, "hello", d.Subject)
	assert.Equal(t, "a@example.com", d.From.Address)
	assert.Equal(t, "body", d.Text)
}

func TestAddressString(t *testing.T) {
	assert.Equal(t, "a@example.com", Address{Address: "a@example.com"}.String())
	assert.Equal(t, "Ann <a@example.com>", Address{Address: "a@example.com", Name: "Ann"}.String())
}
