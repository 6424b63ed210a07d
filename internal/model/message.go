package model

import (
	"strings"
	"time"
)

// Address is a mailbox address with an optional display name.
type Address struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// String formats the address as "Name <address>" or the bare address.
func (a Address) String() string {
	if a.Name == "" {
		return a.Address
	}
	return a.Name + " <" + a.Address + ">"
}

// MessageSummary is the list view of a message as returned by the provider.
type MessageSummary struct {
	// ID is the provider message identifier.
	ID string `json:"id"`

	// AccountID is the owning account.
	AccountID string `json:"accountId"`

	// MsgID is the RFC 5322 Message-ID header.
	MsgID string `json:"msgid"`

	From    Address   `json:"from"`
	To      []Address `json:"to"`
	Subject string    `json:"subject"`

	// Intro is the short preview text of the body.
	Intro string `json:"intro"`

	Seen           bool `json:"seen"`
	Flagged        bool `json:"flagged"`
	IsDeleted      bool `json:"isDeleted"`
	HasAttachments bool `json:"hasAttachments"`

	// Size is the message size in bytes.
	Size int64 `json:"size"`

	// DownloadURL is the provider path for the raw message.
	DownloadURL string `json:"downloadUrl"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Attachment holds metadata about a message attachment.
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Disposition string `json:"disposition"`
	Size        int64  `json:"size"`

	// DownloadURL is relative to the provider base URL.
	DownloadURL string `json:"downloadUrl"`
}

// MessageDetail is a summary enriched with body content and attachments.
type MessageDetail struct {
	MessageSummary

	CC  []Address `json:"cc"`
	BCC []Address `json:"bcc"`

	// Text is the plain text body.
	Text string `json:"text"`

	// HTML holds the HTML body fragments in document order.
	HTML []string `json:"html"`

	Attachments []Attachment `json:"attachments"`
}

// HTMLBody joins the HTML fragments into one document body.
func (d *MessageDetail) HTMLBody() string {
	return strings.Join(d.HTML, "")
}

// Body returns the HTML body when present, otherwise the text body.
func (d *MessageDetail) Body() string {
	if html := d.HTMLBody(); html != "" {
		return html
	}
	return d.Text
}

// Merge overlays the fields of a freshly fetched detail onto d, keeping
// summary fields that the detail response left empty.
func (d *MessageDetail) Merge(other *MessageDetail) {
	if other == nil {
		return
	}
	summary := d.MessageSummary
	*d = *other
	if d.ID == "" {
		d.ID = summary.ID
	}
	if d.Subject == "" {
		d.Subject = summary.Subject
	}
	if d.From.Address == "" {
		d.From = summary.From
	}
	if d.Intro == "" {
		d.Intro = summary.Intro
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = summary.CreatedAt
	}
}

// Refresh is a message list applied to the active mailbox. Generation
// identifies the identity activation it was fetched under; it grows on
// every identity switch.
type Refresh struct {
	Address    string
	Generation uint64
	Messages   []MessageSummary
}
