package store

import (
	"context"

	"github.com/nhle/burnerx/internal/model"
)

// Fixed keys for the persisted application state.
const (
	KeyIdentities = "burnerx_identities"
	KeyTheme      = "burnerx_theme"
)

// KV is the key/value persistence used for the identity list and
// preferences. Every write replaces the whole value.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// NotificationLog persists new-mail alerts so the UI can show an unread count.
type NotificationLog interface {
	CreateNotification(ctx context.Context, n model.Notification) error
	GetUnreadNotifications(ctx context.Context) ([]model.Notification, error)
	MarkAllNotificationsRead(ctx context.Context) error
}
