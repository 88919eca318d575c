package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "time/tzdata"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ALICE_APP_ID", "ALICE_API_KEY", "ALICE_ACCESS_TOKEN", "ALICE_USER_ID", "DRY_RUN"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsInDryRun(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", "trading:\n  dry_run: true\n")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Trading.DryRun)
	assert.Equal(t, "Asia/Kolkata", cfg.Trading.Timezone)
	assert.Equal(t, "09:00", cfg.Trading.Open)
	assert.Equal(t, "16:00", cfg.Trading.Close)
	assert.Equal(t, []string{"Mon", "Tue", "Wed", "Thu", "Fri"}, cfg.Trading.Weekdays)
	assert.Equal(t, 10*time.Second, cfg.BrokerTimeout())
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, 5*time.Second, cfg.SubscribeInterval())
	assert.Empty(t, cfg.Feed.WSURL)
	assert.Empty(t, cfg.Storage.JournalPath)
}

func TestLoad_FileValues(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
server:
  port: 9090
logging:
  level: debug
  file: bot.log
broker:
  base_url: http://localhost:1234
  app_id: APP
  access_token: TOKEN
  user_id: U1
  timeout_ms: 2500
trading:
  timezone: UTC
  open: "03:45"
  close: "10:00"
  weekdays: []
  holidays: ["2026-01-26"]
feed:
  ws_url: ws://localhost:9000/ticks
  poll_interval_ms: 1000
storage:
  journal_path: journal.db
`)

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "bot.log", cfg.Logging.File)
	assert.Equal(t, "http://localhost:1234", cfg.Broker.BaseURL)
	assert.Equal(t, 2500*time.Millisecond, cfg.BrokerTimeout())
	assert.False(t, cfg.Trading.DryRun)
	assert.Empty(t, cfg.Trading.Weekdays)
	assert.Equal(t, "ws://localhost:9000/ticks", cfg.Feed.WSURL)
	assert.Equal(t, time.Second, cfg.PollInterval())
	assert.Equal(t, "journal.db", cfg.Storage.JournalPath)

	cal, err := cfg.Calendar()
	require.NoError(t, err)
	assert.Nil(t, cal.Weekdays)
	assert.True(t, cal.IsOpen(time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)))
	assert.False(t, cal.IsOpen(time.Date(2026, 1, 26, 4, 0, 0, 0, time.UTC)))
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", "broker:\n  app_id: FROM_FILE\n")
	envFile := writeFile(t, ".env", "ALICE_USER_ID=U9\nALICE_ACCESS_TOKEN=ENVTOKEN\n")
	t.Setenv("ALICE_APP_ID", "FROM_ENV")
	t.Setenv("DRY_RUN", "false")

	os.Unsetenv("ALICE_USER_ID")
	os.Unsetenv("ALICE_ACCESS_TOKEN")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, "FROM_ENV", cfg.Broker.AppID)
	assert.Equal(t, "U9", cfg.Broker.UserID)
	assert.Equal(t, "ENVTOKEN", cfg.Broker.AccessToken)
	assert.False(t, cfg.Trading.DryRun)
}

func TestLoad_MissingFilesUseDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DRY_RUN", "true")
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "absent.yaml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.True(t, cfg.Trading.DryRun)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		dryRun  string
		wantErr string
	}{
		{name: "live without credentials", yaml: "", dryRun: "false", wantErr: "app_id, access_token, user_id"},
		{name: "bad dry run", yaml: "", dryRun: "maybe", wantErr: "DRY_RUN"},
		{name: "bad yaml", yaml: "server: [", dryRun: "true", wantErr: "parse config"},
		{name: "bad timezone", yaml: "trading:\n  timezone: Mars/Olympus\n", dryRun: "true", wantErr: "trading.timezone"},
		{name: "bad open", yaml: "trading:\n  open: \"9am\"\n", dryRun: "true", wantErr: "open"},
		{name: "close before open", yaml: "trading:\n  open: \"15:00\"\n  close: \"09:00\"\n", dryRun: "true", wantErr: "must be after open"},
		{name: "bad weekday", yaml: "trading:\n  weekdays: [Funday]\n", dryRun: "true", wantErr: "Funday"},
		{name: "bad port", yaml: "server:\n  port: 70000\n", dryRun: "true", wantErr: "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("DRY_RUN", tt.dryRun)
			path := writeFile(t, "config.yaml", tt.yaml)

			_, err := Load(path, "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
