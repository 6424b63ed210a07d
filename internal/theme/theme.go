package theme

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/burnerx/internal/store"
)

// Mode is the colour scheme in use.
type Mode string

const (
	Dark  Mode = "dark"
	Light Mode = "light"
)

// Toggle returns the other mode.
func (m Mode) Toggle() Mode {
	if m == Light {
		return Dark
	}
	return Light
}

// Apply makes every adaptive colour resolve to m.
func Apply(m Mode) {
	lipgloss.SetHasDarkBackground(m != Light)
}

// Load resolves the mode to start with: a forced mode from configuration,
// then the stored preference, then the terminal background.
func Load(ctx context.Context, kv store.KV, forced string) (Mode, error) {
	if m := Mode(forced); m == Dark || m == Light {
		return m, nil
	}

	stored, ok, err := kv.Get(ctx, store.KeyTheme)
	if err != nil {
		return Dark, fmt.Errorf("loading theme: %w", err)
	}
	if m := Mode(stored); ok && (m == Dark || m == Light) {
		return m, nil
	}

	if lipgloss.HasDarkBackground() {
		return Dark, nil
	}
	return Light, nil
}

// Save persists m as the preferred mode.
func Save(ctx context.Context, kv store.KV, m Mode) error {
	if err := kv.Set(ctx, store.KeyTheme, string(m)); err != nil {
		return fmt.Errorf("saving theme: %w", err)
	}
	return nil
}

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the application title and active address.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// DetailPanelStyle wraps the message view.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// DimmedStyle is for secondary text such as previews and timestamps.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// UnreadStyle marks messages not yet seen.
var UnreadStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// AttachmentStyle marks attachment names and the attachment badge.
var AttachmentStyle = lipgloss.NewStyle().
	Foreground(ColorMagenta)

// ActiveBadgeStyle marks the active identity in the identity manager.
var ActiveBadgeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGreen)

// AlertStyle is used for blocking error alerts.
var AlertStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorRed).
	Padding(0, 1)

// NoticeStyle is used for new-mail notices in the status bar.
var NoticeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorYellow)
