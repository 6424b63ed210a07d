package theme_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/burnerx/internal/store"
	"github.com/nhle/burnerx/internal/theme"
	"github.com/nhle/burnerx/tests/testutil"
)

func TestToggle(t *testing.T) {
	assert.Equal(t, theme.Light, theme.Dark.Toggle())
	assert.Equal(t, theme.Dark, theme.Light.Toggle())
	assert.Equal(t, theme.Light, theme.Mode("").Toggle())
}

func TestLoadPrefersForcedThenStored(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, theme.Save(ctx, s, theme.Light))

	m, err := theme.Load(ctx, s, "")
	require.NoError(t, err)
	assert.Equal(t, theme.Light, m)

	m, err = theme.Load(ctx, s, "dark")
	require.NoError(t, err)
	assert.Equal(t, theme.Dark, m)

	raw, ok, err := s.Get(ctx, store.KeyTheme)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "light", raw)
}

func TestLoadIgnoresUnknownStoredValue(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, store.KeyTheme, "sepia"))

	m, err := theme.Load(ctx, s, "")
	require.NoError(t, err)
	assert.Contains(t, []theme.Mode{theme.Dark, theme.Light}, m)
}
