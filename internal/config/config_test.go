package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataDir(t *testing.T) {
	tests := []struct {
		name string
		xdg  string
		want string
	}{
		{
			name: "xdg set",
			xdg:  "/custom/data",
			want: "/custom/data/zroster",
		},
		{
			name: "xdg empty falls back to home",
			xdg:  "",
			want: "/.local/share/zroster",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_DATA_HOME", tt.xdg)

			got := DataDir()
			if tt.xdg != "" {
				assert.Equal(t, tt.want, got)
			} else {
				assert.True(t, strings.HasSuffix(got, tt.want), "DataDir() = %s, want suffix %s", got, tt.want)
			}
		})
	}
}

func TestPathHonoursXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/zroster/config.yaml", Path())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("ZROSTER_BACKEND", "")
	t.Setenv("ZROSTER_DATA_DIR", "")
	t.Setenv("ZROSTER_LOG_LEVEL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def, cfg)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, 5*time.Second, cfg.GracePeriod)
	assert.True(t, cfg.WatchExternal)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("ZROSTER_BACKEND", "")
	t.Setenv("ZROSTER_DATA_DIR", "")
	t.Setenv("ZROSTER_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `backend: vault
data_dir: /srv/roster
grace_period: 2s
log_level: debug
watch_external: false
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Backend:       BackendVault,
		DataDir:       "/srv/roster",
		GracePeriod:   2 * time.Second,
		LogLevel:      "debug",
		WatchExternal: false,
	}, cfg)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: sqlite\n"), 0o600))

	t.Setenv("ZROSTER_BACKEND", "vault")
	t.Setenv("ZROSTER_DATA_DIR", "/tmp/roster")
	t.Setenv("ZROSTER_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendVault, cfg.Backend)
	assert.Equal(t, "/tmp/roster", cfg.DataDir)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadOverridesWinOverEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("ZROSTER_BACKEND", "bogus")

	_, err := Load(path)
	require.Error(t, err)

	cfg, err := Load(path, func(c *Config) { c.Backend = BackendSQLite })
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
}

func TestLoadRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: [oops"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default ok", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Backend = "postgres" }, "unknown backend"},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, "data_dir"},
		{"negative grace", func(c *Config) { c.GracePeriod = -time.Second }, "grace_period"},
		{"zero grace ok", func(c *Config) { c.GracePeriod = 0 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("ZROSTER_BACKEND", "")
	t.Setenv("ZROSTER_DATA_DIR", "")
	t.Setenv("ZROSTER_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := Default()
	want.Backend = BackendVault
	want.GracePeriod = 750 * time.Millisecond

	require.NoError(t, want.Save(path))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNewLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()
	log, closer, err := NewLogger(dir, "debug", nil)
	require.NoError(t, err)

	log.Debug().Str("k", "v").Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, LogFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
	assert.Contains(t, string(data), `"k":"v"`)
}

func TestNewLoggerConsole(t *testing.T) {
	var console strings.Builder
	log, closer, err := NewLogger(t.TempDir(), "debug", &console)
	require.NoError(t, err)
	defer closer.Close()

	log.Debug().Msg("hello")
	assert.Contains(t, console.String(), "hello")
}

func TestNewLoggerBadLevelDefaultsToInfo(t *testing.T) {
	dir := t.TempDir()
	log, closer, err := NewLogger(dir, "loud", nil)
	require.NoError(t, err)
	defer closer.Close()

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")

	data, err := os.ReadFile(filepath.Join(dir, LogFile))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}
