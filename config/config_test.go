package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/updown/config"
	"github.com/alejandrodnm/updown/internal/domain"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LOG_LEVEL", "LOG_FORMAT", "HTTP_ADDR", "STORAGE_DSN",
		"ORDER_SIZE_SHARES", "SIM_FILL_PROBABILITY", "ENTRY_WINDOW_START", "ENTRY_WINDOW_END",
		"ENABLE_BTC", "ENABLE_ETH", "ENABLE_SOL", "ENABLE_XRP",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_RepoConfig(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load("config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Interval())
	assert.Equal(t, 0.7, cfg.FillProbability())
	assert.Equal(t, domain.DefaultEntryWindow(), cfg.EntryWindow())
	assert.Equal(t, domain.Instruments(), cfg.EnabledInstruments())

	set, err := cfg.VariantSet()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultVariantSet().Len(), set.Len())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(writeYAML(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Interval())
	assert.Equal(t, cfg.Interval(), cfg.TickTimeout())
	assert.Equal(t, 15*time.Second, cfg.ResolutionRecheck())
	assert.Equal(t, 10.0, cfg.Engine.OrderSizeShares)
	assert.Equal(t, 200, cfg.Engine.RecentTradesLimit)
	assert.Equal(t, 0.7, cfg.FillProbability())
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.HTTPEnabled())
	assert.Equal(t, "updown.db", cfg.Storage.DSN)
	assert.Equal(t, "https://clob.polymarket.com", cfg.API.CLOBBase)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Len(t, cfg.EnabledInstruments(), 4)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("ORDER_SIZE_SHARES", "25")
	t.Setenv("SIM_FILL_PROBABILITY", "0")
	t.Setenv("ENTRY_WINDOW_START", "1200")
	t.Setenv("ENTRY_WINDOW_END", "900")
	t.Setenv("ENABLE_ETH", "false")
	t.Setenv("ENABLE_XRP", "0")
	t.Setenv("HTTP_ADDR", "127.0.0.1:9999")
	t.Setenv("STORAGE_DSN", ":memory:")

	cfg, err := config.Load(writeYAML(t, "coins:\n  btc: true\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 25.0, cfg.Engine.OrderSizeShares)
	assert.Equal(t, 0.0, cfg.FillProbability(), "zero probability is a valid setting")
	assert.Equal(t, 1200*time.Second, cfg.EntryWindow().Start)
	assert.Equal(t, 900*time.Second, cfg.EntryWindow().End)
	assert.Equal(t, []domain.Instrument{domain.BTC, domain.SOL}, cfg.EnabledInstruments())
	assert.Equal(t, "127.0.0.1:9999", cfg.HTTP.Addr)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{name: "probability above one", yaml: "engine:\n  sim_fill_probability: 1.5\n"},
		{name: "entry window inverted", yaml: "engine:\n  entry_window_start: 900\n  entry_window_end: 930\n"},
		{name: "threshold out of range", yaml: "variants:\n  undervalued: [1.2]\n"},
		{name: "duplicate threshold", yaml: "variants:\n  momentum: [0.52, 0.52]\n"},
		{name: "unknown coin", yaml: "coins:\n  doge: true\n"},
		{name: "all coins disabled", env: map[string]string{
			"ENABLE_BTC": "false", "ENABLE_ETH": "false", "ENABLE_SOL": "false", "ENABLE_XRP": "false",
		}},
		{name: "bad log format", yaml: "log:\n  format: xml\n"},
		{name: "bad env number", env: map[string]string{"ORDER_SIZE_SHARES": "ten"}},
		{name: "bad env bool", env: map[string]string{"ENABLE_BTC": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			body := tt.yaml
			if body == "" {
				body = "{}\n"
			}
			_, err := config.Load(writeYAML(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestOnlyInstruments(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(writeYAML(t, "{}\n"))
	require.NoError(t, err)

	cfg.OnlyInstruments([]domain.Instrument{domain.XRP, domain.ETH})
	assert.Equal(t, []domain.Instrument{domain.ETH, domain.XRP}, cfg.EnabledInstruments())
}
