package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/javanstorm/dockhand/internal/setup"
	"github.com/javanstorm/dockhand/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(PathsIn(dir))
	require.NoError(t, err)
	return s, dir
}

func TestDefaults(t *testing.T) {
	s, _ := openTemp(t)
	cfg, err := s.Config()
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.MachineName)
	assert.Equal(t, setup.DefaultNativeSocket, cfg.NativeSocket)
	assert.Equal(t, 80, cfg.IPPollAttempts)
	assert.Equal(t, time.Second, cfg.IPPollInterval)
	assert.Equal(t, "warning", cfg.LogLevel)
	assert.False(t, cfg.GUI)
	assert.Empty(t, cfg.TelemetryKey)
	assert.Empty(t, s.ConfigFileUsed())
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "config.yaml", strings.Join([]string{
		"machine_name: dev",
		"ip_poll_attempts: 5",
		"ip_poll_interval: 250ms",
		"gui: true",
	}, "\n"))

	s, err := Open(PathsIn(dir))
	require.NoError(t, err)
	cfg, err := s.Config()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.MachineName)
	assert.Equal(t, 5, cfg.IPPollAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.IPPollInterval)
	assert.True(t, cfg.GUI)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), s.ConfigFileUsed())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DOCKHAND_MACHINE_NAME", "from-env")
	t.Setenv("DOCKHAND_USE_NATIVE", "true")

	s, _ := openTemp(t)
	cfg, err := s.Config()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.MachineName)
	assert.Equal(t, setup.BackendNative, s.Backend(setup.BackendVirtualized))
}

func TestMalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "config.yaml", "machine_name: [unterminated")

	_, err := Open(PathsIn(dir))
	assert.ErrorContains(t, err, "read config")
}

func TestBackendPersistence(t *testing.T) {
	s, dir := openTemp(t)
	assert.Equal(t, setup.BackendVirtualized, s.Backend(setup.BackendVirtualized), "unset falls back")
	assert.Equal(t, setup.BackendNative, s.Backend(setup.BackendNative))

	require.NoError(t, s.Set(KeyUseNative, false))
	assert.Equal(t, setup.BackendVirtualized, s.Backend(setup.BackendNative))

	reopened, err := Open(PathsIn(dir))
	require.NoError(t, err)
	assert.Equal(t, setup.BackendVirtualized, reopened.Backend(setup.BackendNative))

	require.NoError(t, reopened.Set(KeyUseNative, true))
	again, err := Open(PathsIn(dir))
	require.NoError(t, err)
	assert.Equal(t, setup.BackendNative, again.Backend(setup.BackendVirtualized))
}

func TestSetWritesOnlyExplicitKeys(t *testing.T) {
	t.Setenv("DOCKHAND_SENTRY_DSN", "https://secret@example.invalid/1")

	dir := t.TempDir()
	testutil.WriteFile(t, dir, "config.yaml", "machine_name: dev\n")
	s, err := Open(PathsIn(dir))
	require.NoError(t, err)

	cfg, err := s.Config()
	require.NoError(t, err)
	assert.Equal(t, "https://secret@example.invalid/1", cfg.SentryDSN)

	require.NoError(t, s.Set(KeyUseNative, true))

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	written := string(data)
	assert.Contains(t, written, "use_native: true")
	assert.Contains(t, written, "machine_name: dev")
	assert.NotContains(t, written, KeySentryDSN)
	assert.NotContains(t, written, "secret")
	assert.NotContains(t, written, KeyMachineStoragePath)
	assert.NotContains(t, written, KeyLogLevel)

	cfg, err = s.Config()
	require.NoError(t, err)
	assert.Equal(t, "https://secret@example.invalid/1", cfg.SentryDSN, "env still applies after a write")
}

func TestEnsureInstallID(t *testing.T) {
	s, dir := openTemp(t)

	id, err := s.EnsureInstallID()
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	same, err := s.EnsureInstallID()
	require.NoError(t, err)
	assert.Equal(t, id, same)

	reopened, err := Open(PathsIn(dir))
	require.NoError(t, err)
	persisted, err := reopened.EnsureInstallID()
	require.NoError(t, err)
	assert.Equal(t, id, persisted)
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, LoadFrom(PathsIn(dir)))
	require.NotNil(t, Global)
	require.NotNil(t, Default())
	assert.Equal(t, dir, Default().Paths().DataDir)
	assert.Equal(t, "default", Global.MachineName)
}

func TestPathsFor(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")

	linux := pathsFor("/home/me", "linux")
	assert.Equal(t, "/home/me/.dockhand", linux.DataDir)
	assert.Equal(t, "/home/me/.config/dockhand", linux.ConfigDir)
	assert.Equal(t, "/home/me/.dockhand/config.yaml", linux.ConfigFile)

	mac := pathsFor("/Users/me", "darwin")
	assert.Equal(t, "/Users/me/Library/Application Support/Dockhand", mac.ConfigDir)

	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, "/xdg/dockhand", pathsFor("/home/me", "linux").ConfigDir)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
		wantFatal bool
	}{
		{"valid", func(*Config) {}, "", false},
		{"bad machine name", func(c *Config) { c.MachineName = "my vm" }, KeyMachineName, true},
		{"empty machine name", func(c *Config) { c.MachineName = "" }, KeyMachineName, true},
		{"zero attempts", func(c *Config) { c.IPPollAttempts = 0 }, KeyIPPollAttempts, true},
		{"zero interval", func(c *Config) { c.IPPollInterval = 0 }, KeyIPPollInterval, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, KeyLogLevel, true},
		{"relative socket", func(c *Config) { c.NativeSocket = "docker.sock" }, KeyNativeSocket, false},
		{"relative storage", func(c *Config) { c.MachineStoragePath = "machines" }, KeyMachineStoragePath, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.MachineStoragePath = "/store"
			tt.mutate(cfg)

			errs := ValidateConfig(cfg)
			if tt.wantField == "" {
				assert.Empty(t, errs)
				assert.Empty(t, FormatValidationErrors(errs))
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantField, errs[0].Field)
			assert.Equal(t, tt.wantFatal, errs[0].Fatal)
			assert.Equal(t, tt.wantFatal, HasFatal(errs))
			assert.Contains(t, FormatValidationErrors(errs), tt.wantField)
		})
	}
}
