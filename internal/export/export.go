// Package export writes single messages out as files and share links.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nhle/burnerx/internal/model"
	"github.com/nhle/burnerx/internal/platform"
	"github.com/nhle/burnerx/internal/render"
)

// Record is the exported JSON form of a message.
type Record struct {
	ID          string              `json:"id"`
	From        model.Address       `json:"from"`
	To          []model.Address     `json:"to"`
	CC          []model.Address     `json:"cc"`
	Subject     string              `json:"subject"`
	CreatedAt   time.Time           `json:"createdAt"`
	Text        string              `json:"text"`
	HTML        []string            `json:"html"`
	Attachments []AttachmentSummary `json:"attachments"`
}

// AttachmentSummary lists an attachment without its content.
type AttachmentSummary struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Exporter saves messages through a FileSaver.
type Exporter struct {
	saver platform.FileSaver
}

// New creates an exporter writing through saver.
func New(saver platform.FileSaver) *Exporter {
	return &Exporter{saver: saver}
}

// NewRecord selects the exported fields of detail.
func NewRecord(detail *model.MessageDetail) Record {
	rec := Record{
		ID:          detail.ID,
		From:        detail.From,
		To:          detail.To,
		CC:          detail.CC,
		Subject:     detail.Subject,
		CreatedAt:   detail.CreatedAt,
		Text:        detail.Text,
		HTML:        detail.HTML,
		Attachments: make([]AttachmentSummary, 0, len(detail.Attachments)),
	}
	for _, a := range detail.Attachments {
		rec.Attachments = append(rec.Attachments, AttachmentSummary{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Size:        a.Size,
		})
	}
	return rec
}

// StructuredData saves detail as message-<id>.json and returns the path.
func (e *Exporter) StructuredData(detail *model.MessageDetail) (string, error) {
	if detail == nil {
		return "", fmt.Errorf("exporting message: nothing selected")
	}
	data, err := json.MarshalIndent(NewRecord(detail), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding message %s: %w", detail.ID, err)
	}
	return e.save("message-"+detail.ID+".json", data)
}

// Document saves detail as a standalone HTML page named
// message-<id>.html. body is the displayed body; HTML is sanitized and
// plain text is preformatted.
func (e *Exporter) Document(detail *model.MessageDetail, body string) (string, error) {
	if detail == nil {
		return "", fmt.Errorf("exporting message: nothing selected")
	}
	data, err := RenderDocument(detail, body)
	if err != nil {
		return "", err
	}
	return e.save("message-"+detail.ID+".html", data)
}

func (e *Exporter) save(name string, data []byte) (string, error) {
	path, err := e.saver.Save(name, data)
	if err != nil {
		return "", fmt.Errorf("saving %s: %w", name, err)
	}
	log.Info().Str("module", "export").Str("path", path).Msg("Exported message")
	return path, nil
}

var documentTmpl = template.Must(template.New("message").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Subject}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
dl { color: #555; }
dt { font-weight: bold; float: left; clear: left; width: 4rem; }
pre { white-space: pre-wrap; }
</style>
</head>
<body>
<h1>{{.Subject}}</h1>
<dl>
<dt>From</dt><dd>{{.From}}</dd>
<dt>To</dt><dd>{{.To}}</dd>
<dt>Date</dt><dd>{{.Date}}</dd>
</dl>
<hr>
{{if .IsHTML}}{{.HTML}}{{else}}<pre>{{.Text}}</pre>{{end}}
</body>
</html>
`))

type documentData struct {
	Subject string
	From    string
	To      string
	Date    string
	IsHTML  bool
	HTML    template.HTML
	Text    string
}

// RenderDocument builds the standalone HTML page for detail.
func RenderDocument(detail *model.MessageDetail, body string) ([]byte, error) {
	d := documentData{
		Subject: detail.Subject,
		From:    detail.From.String(),
		To:      joinAddresses(detail.To),
		Date:    detail.CreatedAt.Format(time.RFC1123),
	}
	if detail.HTMLBody() != "" && body == detail.HTMLBody() {
		d.IsHTML = true
		d.HTML = template.HTML(render.Sanitize(body))
	} else {
		d.Text = body
	}

	var buf bytes.Buffer
	if err := documentTmpl.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("rendering message %s: %w", detail.ID, err)
	}
	return buf.Bytes(), nil
}

func joinAddresses(addrs []model.Address) string {
	var buf bytes.Buffer
	for i, a := range addrs {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(a.String())
	}
	return buf.String()
}
