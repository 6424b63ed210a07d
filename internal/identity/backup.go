package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/nhle/burnerx/internal/model"
)

// backupTimeLayout formats the timestamp part of backup file names.
const backupTimeLayout = "20060102-150405"

// ImportReport counts the outcome of every entry in a backup file.
type ImportReport struct {
	Imported int
	Skipped  int
	Failed   int
}

// String formats the report for a status line.
func (r ImportReport) String() string {
	return fmt.Sprintf("Imported %d, skipped %d, failed %d", r.Imported, r.Skipped, r.Failed)
}

// BackupFilename returns the file name used for a backup taken at the
// store's current time.
func (s *Store) BackupFilename() string {
	return "burnerx-backup-" + s.now().Format(backupTimeLayout) + ".json"
}

// MarshalBackup encodes the stored identities in the portable backup
// format. Provider ids and tokens are never included.
func (s *Store) MarshalBackup() ([]byte, error) {
	ids := s.List()

	doc := model.Backup{
		ExportedAt: model.BackupTime{Time: s.now().UTC()},
		Identities: make([]model.BackupEntry, 0, len(ids)),
	}
	for _, ident := range ids {
		doc.Identities = append(doc.Identities, model.BackupEntry{
			Address:   ident.Address,
			Password:  ident.Password,
			Label:     ident.Label,
			CreatedAt: model.BackupTime{Time: ident.CreatedAt},
		})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding backup: %w", err)
	}
	return data, nil
}

// ExportBackup writes a backup through the file saver and returns the
// saved location.
func (s *Store) ExportBackup() (string, error) {
	data, err := s.MarshalBackup()
	if err != nil {
		return "", err
	}
	path, err := s.saver.Save(s.BackupFilename(), data)
	if err != nil {
		return "", fmt.Errorf("saving backup: %w", err)
	}
	log.Info().Str("module", "identity").Str("path", path).Msg("Exported backup")
	return path, nil
}

// ImportBackup restores identities from a backup document. Entries whose
// address is already known are skipped; entries without a password or
// rejected by the provider are counted as failed. Restored entries that
// are too old to make the MaxIdentities newest are skipped as well. A
// document that cannot be parsed imports nothing.
func (s *Store) ImportBackup(ctx context.Context, r io.Reader) (ImportReport, error) {
	var report ImportReport

	var doc model.Backup
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return report, fmt.Errorf("parsing backup: %w", err)
	}

	seen := make(map[string]bool)
	for _, ident := range s.List() {
		seen[strings.ToLower(ident.Address)] = true
	}

	var restored []model.Identity
	for _, entry := range doc.Identities {
		key := strings.ToLower(strings.TrimSpace(entry.Address))
		if key == "" {
			report.Failed++
			continue
		}
		if seen[key] {
			report.Skipped++
			continue
		}
		if entry.Password == "" {
			report.Failed++
			continue
		}

		ident, err := s.restore(ctx, entry)
		if err != nil {
			log.Warn().Str("module", "identity").Str("address", entry.Address).Err(err).
				Msg("Backup entry rejected")
			report.Failed++
			continue
		}

		seen[key] = true
		restored = append(restored, ident)
		report.Imported++
	}

	if len(restored) == 0 {
		return report, nil
	}

	s.mu.Lock()
	merged := append(append([]model.Identity(nil), s.identities...), restored...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if len(merged) > model.MaxIdentities {
		merged = merged[:model.MaxIdentities]
	}
	kept := make(map[string]bool, len(merged))
	for _, ident := range merged {
		kept[ident.ID] = true
	}
	for _, ident := range restored {
		if !kept[ident.ID] {
			log.Info().Str("module", "identity").Str("address", ident.Address).
				Msg("Backup entry older than the kept identities")
			report.Imported--
			report.Skipped++
		}
	}
	if err := s.persistLocked(ctx, merged); err != nil {
		s.mu.Unlock()
		return report, err
	}
	s.identities = merged

	activeChanged := false
	if s.activeLocked() == nil {
		s.activeID = merged[0].ID
		activeChanged = true
	}
	change := s.changeLocked(activeChanged)
	s.mu.Unlock()

	log.Info().Str("module", "identity").Int("imported", report.Imported).
		Int("skipped", report.Skipped).Int("failed", report.Failed).Msg("Imported backup")
	s.emit(change)
	return report, nil
}

// restore issues a fresh token for entry and resolves its account id.
func (s *Store) restore(ctx context.Context, entry model.BackupEntry) (model.Identity, error) {
	tok, err := s.provider.Token(ctx, entry.Address, entry.Password)
	if err != nil {
		return model.Identity{}, fmt.Errorf("issuing token: %w", err)
	}
	acct, err := s.provider.Me(ctx, tok.Token)
	if err != nil {
		return model.Identity{}, fmt.Errorf("looking up account: %w", err)
	}

	createdAt := entry.CreatedAt.Time
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}
	address := entry.Address
	if acct.Address != "" {
		address = acct.Address
	}

	return model.Identity{
		ID:        acct.ID,
		Address:   address,
		Password:  entry.Password,
		Token:     tok.Token,
		Label:     entry.Label,
		CreatedAt: createdAt,
	}, nil
}
