package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/burnerx/internal/model"
)

func TestSanitize(t *testing.T) {
	out := Sanitize(`<p onclick="steal()">hi <a href="https://example.com">there</a></p><script>alert(1)</script>`)

	assert.Contains(t, out, "<p>hi")
	assert.Contains(t, out, `href="https://example.com"`)
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "alert")
}

func TestHTMLToText(t *testing.T) {
	out := HTMLToText(`<h1>Welcome</h1><p>Your code is <b>4711</b>.</p><a href="https://example.com/verify">Verify</a>`)

	assert.Contains(t, out, "Welcome")
	assert.Contains(t, out, "4711")
	assert.Contains(t, out, "https://example.com/verify")
	assert.NotContains(t, out, "<p>")
}

func TestBody(t *testing.T) {
	html := &model.MessageDetail{HTML: []string{"<p>rich</p>"}, Text: "plain"}
	assert.Equal(t, "rich", strings.TrimSpace(Body(html, html.Body())))

	text := &model.MessageDetail{Text: "plain"}
	assert.Equal(t, "plain", Body(text, text.Body()))

	// Status texts pass through untouched.
	assert.Equal(t, "Loading content...", Body(html, "Loading content..."))
	assert.Equal(t, "x", Body(nil, "x"))
}

func TestSize(t *testing.T) {
	assert.Equal(t, "0 B", Size(-1))
	assert.Equal(t, "512 B", Size(512))
	assert.Equal(t, "1.5 kB", Size(1500))
}

func TestAge(t *testing.T) {
	assert.Empty(t, Age(time.Time{}))
	assert.Contains(t, Age(time.Now().Add(-3*time.Hour)), "ago")
}

const rawMessage = "From: Shop <news@shop.test>\r\n" +
	"To: me@mail.test\r\n" +
	"Subject: =?UTF-8?B?SGVsbG8gd29ybGQ=?=\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"XYZ\"\r\n" +
	"\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hello there\r\n" +
	"--XYZ\r\n" +
	"Content-Type: text/plain\r\n" +
	"Content-Disposition: attachment; filename=\"notes.txt\"\r\n" +
	"\r\n" +
	"attached notes\r\n" +
	"--XYZ--\r\n"

func TestSourceHeaders(t *testing.T) {
	fields, err := SourceHeaders(rawMessage)
	require.NoError(t, err)

	got := make(map[string]string)
	for _, f := range fields {
		got[f.Key] = f.Value
	}
	assert.Equal(t, "Hello world", got["Subject"])
	assert.Equal(t, "Shop <news@shop.test>", got["From"])
	assert.Len(t, fields, 5)
}

func TestMIMEOutline(t *testing.T) {
	parts, err := MIMEOutline(rawMessage)
	require.NoError(t, err)
	require.NotEmpty(t, parts)

	assert.Equal(t, "multipart/mixed", parts[0].ContentType)
	assert.Equal(t, 0, parts[0].Depth)

	var attachment *MIMEPart
	for i := range parts {
		if parts[i].Filename == "notes.txt" {
			attachment = &parts[i]
		}
	}
	require.NotNil(t, attachment)
	assert.Equal(t, 1, attachment.Depth)
	assert.Equal(t, "attachment", attachment.Disposition)

	listing := FormatOutline(parts)
	assert.True(t, strings.HasPrefix(listing, "multipart/mixed"))
	assert.Contains(t, listing, `  text/plain "notes.txt"`)
}
