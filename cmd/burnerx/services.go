package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/nhle/burnerx/internal/credential"
	"github.com/nhle/burnerx/internal/identity"
	"github.com/nhle/burnerx/internal/model"
	"github.com/nhle/burnerx/internal/platform"
	"github.com/nhle/burnerx/internal/provider"
	"github.com/nhle/burnerx/internal/store"
)

// services holds everything the commands share.
type services struct {
	cfg        *model.AppConfig
	client     *provider.Client
	db         *store.SQLiteStore
	kv         store.KV
	saver      *platform.DirSaver
	identities *identity.Store
	closeLog   func()
}

// openServices loads configuration, logging and storage, and restores the
// persisted identities.
func openServices(ctx context.Context) (*services, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	closeLog, err := openLog(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("opening log: %w", err)
	}

	svc := &services{cfg: cfg, closeLog: closeLog}
	if err := svc.open(ctx); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}

func (s *services) open(ctx context.Context) error {
	cfg := s.cfg

	client, err := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.Timeout())
	if err != nil {
		return err
	}
	s.client = client

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	db, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	s.db = db
	s.kv = db

	if cfg.Storage.Backend == model.StorageKeyring {
		ring, err := credential.Open(filepath.Dir(cfg.Storage.Path))
		if err != nil {
			return err
		}
		s.kv = credential.NewKV(ring)
	}

	s.saver = platform.NewOSSaver(cfg.Downloads.Dir)
	s.identities = identity.New(client, s.kv, s.saver)
	if err := s.identities.Load(ctx); err != nil {
		return err
	}

	log.Info().Str("module", "main").Str("backend", cfg.Storage.Backend).
		Int("identities", len(s.identities.List())).Msg("Storage ready")
	return nil
}

// Close releases storage and flushes the log.
func (s *services) Close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Warn().Str("module", "main").Err(err).Msg("Closing database failed")
		}
	}
	if s.closeLog != nil {
		s.closeLog()
	}
}
