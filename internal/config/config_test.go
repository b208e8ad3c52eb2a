package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SYMBOLS", "DATA_BASE_URL", "DATA_API_KEY", "OUTPUT_PATH", "CSV_PATH",
		"DISTANCE_THRESHOLD", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "CRON_RUN", "SQLITE_PATH",
		"HTTPS_PROXY", "LOG_LEVEL", "SYMBOL_MAP"} {
		t.Setenv(k, "")
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"SOXX", "URA", "GLD", "UGL"}, cfg.Symbols)
	assert.Equal(t, "index.html", cfg.Report.OutputPath)
	assert.True(t, *cfg.Report.ShowDistance)
	assert.Equal(t, 2.0, *cfg.Report.DistanceThreshold)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Database.SQLitePath)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
symbols: [gld, " ura ", GLD, tlt]
report:
  output_path: out/dash.html
  show_distance: false
  distance_threshold: 3.5
schedule:
  run_cron: "0 0 17 * * 1-5"
`), 0644))
	t.Setenv("OUTPUT_PATH", "public/index.html")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, []string{"GLD", "URA", "TLT"}, cfg.Symbols)
	assert.Equal(t, "public/index.html", cfg.Report.OutputPath)
	assert.False(t, *cfg.Report.ShowDistance)
	assert.Equal(t, 3.5, *cfg.Report.DistanceThreshold)
	assert.Equal(t, "0 0 17 * * 1-5", cfg.Schedule.RunCron)
	assert.True(t, cfg.TelegramEnabled())
}

func TestLoad_SymbolsFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SYMBOLS", "spy,qqq")
	cfg, err := Load("nope.yaml")
	require.NoError(t, err)
	assert.Equal(t, []string{"SPY", "QQQ"}, cfg.Symbols)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("symbols: [unclosed"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_BadDistanceThresholdEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISTANCE_THRESHOLD", "2%")
	_, err := Load("nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISTANCE_THRESHOLD")

	t.Setenv("DISTANCE_THRESHOLD", " 1.5 ")
	cfg, err := Load("nope.yaml")
	require.NoError(t, err)
	assert.Equal(t, 1.5, *cfg.Report.DistanceThreshold)

	t.Setenv("DISTANCE_THRESHOLD", "NaN")
	cfg, err = Load("nope.yaml")
	require.NoError(t, err)
	assert.Error(t, cfg.Validate())
}

func TestLoad_SymbolMap(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_source:
  symbol_map:
    gold: GLD
    VIX: "^VIX"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"GOLD": "GLD", "VIX": "^VIX"}, cfg.DataSource.SymbolMap)

	t.Setenv("SYMBOL_MAP", "chips=SOXX, ,brk.b=BRK-B")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"CHIPS": "SOXX", "BRK.B": "BRK-B"}, cfg.DataSource.SymbolMap)

	t.Setenv("SYMBOL_MAP", "GOLD")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("nope.yaml")
	require.NoError(t, err)

	cfg.Telegram.BotToken = "only-token"
	assert.Error(t, cfg.Validate())
	cfg.Telegram.BotToken = ""

	neg := -1.0
	cfg.Report.DistanceThreshold = &neg
	assert.Error(t, cfg.Validate())
	cfg.Report.DistanceThreshold = nil

	cfg.Symbols = nil
	assert.Error(t, cfg.Validate())
}
