package model

import "time"

// Notification records a new-mail alert surfaced to the user.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id" db:"id"`

	// MessageID is the provider id of the message that triggered it.
	MessageID string `json:"message_id" db:"message_id"`

	// Address is the mailbox that received the message.
	Address string `json:"address" db:"address"`

	// Title is the short headline, usually the sender.
	Title string `json:"title" db:"title"`

	// Body is the notification text, usually the subject.
	Body string `json:"body" db:"body"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read" db:"read"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
