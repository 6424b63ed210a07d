package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nhle/burnerx/internal/model"
)

// openLog points the global logger at cfg.File and returns a func that
// flushes and closes it. The terminal belongs to the UI, so there is no
// console output.
func openLog(cfg model.LogConfig) (close func(), err error) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		return nil, fmt.Errorf("log level %q not one of: debug, info, warn, error", cfg.Level)
	}
	if cfg.File == "" {
		return nil, errors.New("log.file is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
		return nil, err
	}
	logf, err := os.OpenFile(cfg.File, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriter(logf)

	var out io.Writer = zerolog.SyncWriter(bw)
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339}
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	return func() {
		_ = bw.Flush()
		_ = logf.Close()
	}, nil
}
