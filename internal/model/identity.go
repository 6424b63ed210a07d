package model

import (
	"encoding/json"
	"strings"
	"time"
)

// MaxIdentities is the number of identities kept locally. Older ones are
// dropped when a new identity pushes the list past this size.
const MaxIdentities = 10

// Identity is a locally tracked disposable mailbox credential set.
type Identity struct {
	// ID is the account identifier assigned by the provider.
	ID string `json:"id"`

	// Address is the full mailbox address (local part @ domain).
	Address string `json:"address"`

	// Password is the locally generated account password.
	Password string `json:"password"`

	// Token is the bearer token issued by the provider for this account.
	Token string `json:"token"`

	// Label is an optional user-facing name, usually the chosen prefix.
	Label string `json:"label"`

	// CreatedAt is when the identity was provisioned or first imported.
	CreatedAt time.Time `json:"createdAt"`
}

// DisplayName returns the label when set, otherwise the address.
func (i Identity) DisplayName() string {
	if i.Label != "" {
		return i.Label
	}
	return i.Address
}

// BackupEntry is the portable form of an identity written to backup files.
// Provider ids and tokens are left out; both are recovered on import.
type BackupEntry struct {
	Address   string     `json:"address"`
	Password  string     `json:"password"`
	Label     string     `json:"label"`
	CreatedAt BackupTime `json:"createdAt"`
}

// BackupTime is a timestamp in a backup file. Decoding never fails: an
// empty or unrecognised value becomes the zero time, so one damaged entry
// does not spoil the whole file.
type BackupTime struct {
	time.Time
}

var backupTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *BackupTime) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range backupTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return nil
}

// Backup is the top-level document of an identity backup file.
type Backup struct {
	ExportedAt BackupTime    `json:"exportedAt"`
	Identities []BackupEntry `json:"identities"`
}
