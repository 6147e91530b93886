package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultFile))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
	require.Equal(t, 8*time.Second, cfg.Delay)
	require.Equal(t, 7, cfg.Days)
}

func TestLoadMergesLocalOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)

	base := `{
		// shared settings
		days: 5,
		delay_seconds: 4,
		workdir: "/srv/flights",
		selectors: {option_price: "div.price"},
	}`
	local := `{
		headless: false,
		days: 3,
		history_db: "history.db",
	}`
	require.NoError(t, os.WriteFile(path, []byte(base), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flightscraper.local.json5"), []byte(local), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.False(t, cfg.Headless)
	require.True(t, cfg.BestDay)
	require.Equal(t, 3, cfg.Days)
	require.Equal(t, 4*time.Second, cfg.Delay)
	require.Equal(t, "/srv/flights", cfg.WorkDir)
	require.Equal(t, "history.db", cfg.HistoryDB)
	require.Equal(t, "div.price", cfg.Selectors.OptionPrice)
	require.Equal(t, Default().Selectors.OptionCard, cfg.Selectors.OptionCard)
	require.Equal(t, Default().BaseURL, cfg.BaseURL)
	require.Equal(t, []string{path, filepath.Join(dir, "flightscraper.local.json5")}, cfg.Files)
}

func TestLoadExplicitZeroDurations(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(`{delay_seconds: 0, navigation_interval_seconds: 0}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Zero(t, cfg.Delay)
	require.Zero(t, cfg.NavigationInterval)
	require.Equal(t, 15*time.Second, cfg.ActionTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadDoesNotLog(t *testing.T) {
	var buf bytes.Buffer
	defer func(l zerolog.Logger) { log.Logger = l }(log.Logger)
	log.Logger = zerolog.New(&buf)

	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(`{days: 2}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{path}, cfg.Files)
	require.Empty(t, buf.String())
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(`{days: `), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSetTimeouts(t *testing.T) {
	cfg := Default()
	cfg.SetTimeouts(60, 0, 2, 0)

	require.Equal(t, time.Minute, cfg.GlobalTimeout)
	require.Equal(t, 15*time.Second, cfg.ActionTimeout)
	require.Equal(t, 2*time.Second, cfg.Delay)
	require.Equal(t, 2*time.Second, cfg.NavigationInterval)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		mutate   func(*Config)
		expected error
	}{
		{mutate: func(c *Config) { c.ActionTimeout = 0 }, expected: ErrInvalidTimeout},
		{mutate: func(c *Config) { c.Days = 0 }, expected: ErrInvalidDays},
		{mutate: func(c *Config) { c.NumResults = 0 }, expected: ErrInvalidResults},
		{mutate: func(c *Config) { c.BaseURL = "" }, expected: ErrMissingBaseURL},
	}

	for _, test := range testCases {
		cfg := Default()
		test.mutate(cfg)
		require.ErrorIs(t, cfg.Validate(), test.expected)
	}
}
