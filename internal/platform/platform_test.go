package platform

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirSaverNeverOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewDirSaver(fs, "/downloads")

	first, err := s.Save("report.pdf", []byte("one"))
	require.NoError(t, err)
	second, err := s.Save("report.pdf", []byte("two"))
	require.NoError(t, err)

	assert.Equal(t, "/downloads/report.pdf", first)
	assert.Equal(t, "/downloads/report (1).pdf", second)

	data, err := afero.ReadFile(fs, first)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
}

func TestSafeFilename(t *testing.T) {
	tests := map[string]string{
		"invoice.pdf":        "invoice.pdf",
		"../../etc/passwd":   "passwd",
		`C:\temp\evil.exe`:   "evil.exe",
		"what?.txt":          "what_.txt",
		"":                   "download",
		"..":                 "download",
		"tab\there.txt":      "tab_here.txt",
		"  spaced name.txt ": "spaced name.txt",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeFilename(in), "input %q", in)
	}
}

func TestMemoryClipboard(t *testing.T) {
	c := &MemoryClipboard{}
	require.NoError(t, c.WriteText("box@x.test"))
	assert.Equal(t, "box@x.test", c.Text())
}
