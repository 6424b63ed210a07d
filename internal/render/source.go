package render

import (
	"fmt"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/jhillyerd/enmime/v2"
)

// HeaderField is a single decoded header line of a raw message.
type HeaderField struct {
	Key   string
	Value string
}

// SourceHeaders decodes the top-level headers of a raw RFC 5322 message.
func SourceHeaders(raw string) ([]HeaderField, error) {
	mr, err := mail.CreateReader(strings.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("reading message header: %w", err)
	}
	defer mr.Close()

	var out []HeaderField
	fields := mr.Header.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		out = append(out, HeaderField{Key: fields.Key(), Value: value})
	}
	return out, nil
}

// MIMEPart describes one node of a message's MIME tree.
type MIMEPart struct {
	Depth       int
	ContentType string
	Disposition string
	Filename    string
	Size        int
}

// MIMEOutline parses raw and returns its MIME tree in depth-first order.
func MIMEOutline(raw string) ([]MIMEPart, error) {
	env, err := enmime.ReadEnvelope(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing mime structure: %w", err)
	}

	var out []MIMEPart
	var walk func(p *enmime.Part, depth int)
	walk = func(p *enmime.Part, depth int) {
		for ; p != nil; p = p.NextSibling {
			out = append(out, MIMEPart{
				Depth:       depth,
				ContentType: p.ContentType,
				Disposition: p.Disposition,
				Filename:    p.FileName,
				Size:        len(p.Content),
			})
			walk(p.FirstChild, depth+1)
		}
	}
	walk(env.Root, 0)
	return out, nil
}

// FormatOutline renders an outline as an indented listing.
func FormatOutline(parts []MIMEPart) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(strings.Repeat("  ", p.Depth))
		b.WriteString(p.ContentType)
		if p.Filename != "" {
			fmt.Fprintf(&b, " %q", p.Filename)
		}
		if p.Size > 0 {
			fmt.Fprintf(&b, " (%s)", Size(int64(p.Size)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
