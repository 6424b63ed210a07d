// Package render turns provider message content into what the terminal
// and exported documents show.
package render

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jaytaylor/html2text"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"

	"github.com/nhle/burnerx/internal/model"
)

var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// Sanitize strips scripts, event handlers and other active content from
// html, keeping ordinary formatting.
func Sanitize(html string) string {
	return ugcPolicy.Sanitize(html)
}

// HTMLToText converts an HTML body into readable plain text. Links are
// kept inline after their anchor text.
func HTMLToText(html string) string {
	text, err := html2text.FromString(html, html2text.Options{})
	if err != nil {
		log.Debug().Str("module", "render").Err(err).Msg("html2text failed, stripping tags")
		return strings.TrimSpace(strictPolicy.Sanitize(html))
	}
	return text
}

// Body returns the terminal rendition of body, which is HTML when the
// message has an HTML part and plain text otherwise.
func Body(detail *model.MessageDetail, body string) string {
	if detail != nil && detail.HTMLBody() != "" && body == detail.HTMLBody() {
		return HTMLToText(body)
	}
	return body
}

// Size formats a byte count, e.g. "12 kB".
func Size(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

// Age formats t relative to now, e.g. "3 minutes ago".
func Age(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}
