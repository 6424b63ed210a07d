// Package platform holds the small capability interfaces the mailbox
// components use to reach outside the process: saving files and writing
// to the clipboard.
package platform

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/spf13/afero"
)

// FileSaver persists a named payload and returns where it ended up.
type FileSaver interface {
	Save(name string, data []byte) (string, error)
}

// ClipboardWriter places text on the clipboard.
type ClipboardWriter interface {
	WriteText(text string) error
}

// DirSaver writes files into a directory on an afero filesystem. Existing
// files are never overwritten; a numeric suffix is added instead.
type DirSaver struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
}

// NewDirSaver returns a saver writing into dir on fs.
func NewDirSaver(fs afero.Fs, dir string) *DirSaver {
	return &DirSaver{fs: fs, dir: dir}
}

// NewOSSaver returns a saver writing into dir on the real filesystem.
func NewOSSaver(dir string) *DirSaver {
	return NewDirSaver(afero.NewOsFs(), dir)
}

// Save writes data under a sanitized version of name.
func (s *DirSaver) Save(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating download directory %s: %w", s.dir, err)
	}

	path, err := s.freePath(SafeFilename(name))
	if err != nil {
		return "", err
	}

	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// freePath returns a path in dir for name that does not exist yet.
func (s *DirSaver) freePath(name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < 1000; i++ {
		candidate := name
		if i > 0 {
			candidate = stem + " (" + strconv.Itoa(i) + ")" + ext
		}
		path := filepath.Join(s.dir, candidate)
		exists, err := afero.Exists(s.fs, path)
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", path, err)
		}
		if !exists {
			return path, nil
		}
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, s.dir)
}

// SafeFilename strips directory components and characters that are not
// portable in file names. An empty result becomes "download".
func SafeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, strings.ContainsRune(`<>:"/\|?*`, r):
			return '_'
		default:
			return r
		}
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "download"
	}
	return name
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

// WriteText implements ClipboardWriter.
func (SystemClipboard) WriteText(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard not supported on this system")
	}
	return clipboard.WriteAll(text)
}

// MemoryClipboard records the last written text. Used in tests and when no
// system clipboard is available.
type MemoryClipboard struct {
	mu   sync.Mutex
	text string
}

// WriteText implements ClipboardWriter.
func (c *MemoryClipboard) WriteText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = text
	return nil
}

// Text returns the last written text.
func (c *MemoryClipboard) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}
