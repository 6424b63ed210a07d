package export

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nhle/burnerx/internal/model"
)

// MaxShareBody is the number of body characters kept in a share link.
// Longer bodies are cut and suffixed with "...".
const MaxShareBody = 250

// SharePayload is the compact message summary carried in a share link.
type SharePayload struct {
	Subject string `json:"s"`
	From    string `json:"f"`
	Date    string `json:"d"`
	Body    string `json:"b"`
}

// ShareLink encodes a summary of detail into the fragment of baseURL.
// The fragment is base64 of the URI-component-encoded JSON payload.
func ShareLink(baseURL string, detail *model.MessageDetail, body string) (string, error) {
	if detail == nil {
		return "", fmt.Errorf("sharing message: nothing selected")
	}
	p := SharePayload{
		Subject: detail.Subject,
		From:    detail.From.Address,
		Date:    detail.CreatedAt.UTC().Format(time.RFC3339),
		Body:    truncate(body, MaxShareBody),
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding share payload: %w", err)
	}
	fragment := base64.StdEncoding.EncodeToString([]byte(encodeURIComponent(string(data))))
	return strings.TrimRight(baseURL, "#") + "#" + fragment, nil
}

// DecodeShareLink recovers the payload from a share link or a bare
// fragment.
func DecodeShareLink(link string) (*SharePayload, error) {
	fragment := link
	if i := strings.LastIndex(link, "#"); i >= 0 {
		fragment = link[i+1:]
	}
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return nil, fmt.Errorf("decoding share link: empty fragment")
	}

	raw, err := base64.StdEncoding.DecodeString(fragment)
	if err != nil {
		return nil, fmt.Errorf("decoding share link: %w", err)
	}
	text, err := url.PathUnescape(string(raw))
	if err != nil {
		return nil, fmt.Errorf("unescaping share link: %w", err)
	}

	var p SharePayload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, fmt.Errorf("parsing share payload: %w", err)
	}
	return &p, nil
}

// truncate keeps the first n characters of s, adding "..." when cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// uriUnreserved are left alone by encodeURIComponent but escaped by
// url.QueryEscape.
var uriUnreserved = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeURIComponent escapes s like the JavaScript function of the same
// name.
func encodeURIComponent(s string) string {
	return uriUnreserved.Replace(url.QueryEscape(s))
}
