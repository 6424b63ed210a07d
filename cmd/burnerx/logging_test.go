package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/burnerx/internal/model"
)

func keepLogger(t *testing.T) {
	t.Helper()
	prev, level := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(level)
	})
}

func TestOpenLogWritesFile(t *testing.T) {
	keepLogger(t)
	path := filepath.Join(t.TempDir(), "logs", "burnerx.log")

	closeLog, err := openLog(model.LogConfig{Level: "WARN", File: path, JSON: true})
	require.NoError(t, err)
	log.Info().Msg("hidden")
	log.Warn().Str("module", "main").Msg("shown")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"shown"`)
	assert.Contains(t, string(data), `"module":"main"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestOpenLogRejectsBadConfig(t *testing.T) {
	keepLogger(t)
	dir := t.TempDir()

	_, err := openLog(model.LogConfig{Level: "loud", File: filepath.Join(dir, "a.log")})
	assert.Error(t, err)

	_, err = openLog(model.LogConfig{Level: "", File: filepath.Join(dir, "a.log")})
	assert.Error(t, err)

	_, err = openLog(model.LogConfig{Level: "info"})
	assert.Error(t, err)
}
