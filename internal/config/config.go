package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/javanstorm/dockhand/internal/machine"
	"github.com/javanstorm/dockhand/internal/setup"
	"github.com/spf13/viper"
)

// Setting keys.
const (
	KeyUseNative          = setup.PrefUseNative
	KeyMachineName        = "machine_name"
	KeyMachineStoragePath = "machine_storage_path"
	KeyNativeSocket       = "native_socket"
	KeyIPPollAttempts     = "ip_poll_attempts"
	KeyIPPollInterval     = "ip_poll_interval"
	KeyTelemetryKey       = "telemetry_key"
	KeyTelemetryEndpoint  = "telemetry_endpoint"
	KeySentryDSN          = "sentry_dsn"
	KeyInstallID          = "install_id"
	KeyLogLevel           = "log_level"
	KeyGUI                = "gui"
)

// Config holds all dockhand configuration.
type Config struct {
	// UseNative selects the host engine over the Docker Machine VM. Unset
	// means the probe decides.
	UseNative bool `mapstructure:"use_native"`

	// MachineName is the docker-machine VM to manage.
	MachineName string `mapstructure:"machine_name"`

	// MachineStoragePath is docker-machine's storage directory.
	MachineStoragePath string `mapstructure:"machine_storage_path"`

	// NativeSocket is the host engine socket.
	NativeSocket string `mapstructure:"native_socket"`

	IPPollAttempts int           `mapstructure:"ip_poll_attempts"`
	IPPollInterval time.Duration `mapstructure:"ip_poll_interval"`

	// TelemetryKey enables PostHog when set.
	TelemetryKey      string `mapstructure:"telemetry_key"`
	TelemetryEndpoint string `mapstructure:"telemetry_endpoint"`

	// SentryDSN enables crash reporting when set.
	SentryDSN string `mapstructure:"sentry_dsn"`

	// InstallID anonymously identifies this installation.
	InstallID string `mapstructure:"install_id"`

	LogLevel string `mapstructure:"log_level"`

	// GUI shows the setup window instead of the console prompt.
	GUI bool `mapstructure:"gui"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		MachineName:        machine.DefaultName,
		MachineStoragePath: machine.DefaultStorePath(),
		NativeSocket:       setup.DefaultNativeSocket,
		IPPollAttempts:     setup.DefaultIPPollAttempts,
		IPPollInterval:     setup.DefaultIPPollInterval,
		LogLevel:           "warning",
	}
}

// Store reads settings from config.yaml, DOCKHAND_* variables and defaults,
// and writes changes back to config.yaml. It implements setup.Preferences.
//
// Writes go through file, which holds only what config.yaml contained plus
// explicit Set calls, so env values and defaults never reach disk.
type Store struct {
	mu    sync.Mutex
	v     *viper.Viper
	file  *viper.Viper
	paths *Paths
}

// Open loads settings rooted at paths. A missing config file is not an error.
func Open(paths *Paths) (*Store, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault(KeyMachineName, defaults.MachineName)
	v.SetDefault(KeyMachineStoragePath, defaults.MachineStoragePath)
	v.SetDefault(KeyNativeSocket, defaults.NativeSocket)
	v.SetDefault(KeyIPPollAttempts, defaults.IPPollAttempts)
	v.SetDefault(KeyIPPollInterval, defaults.IPPollInterval)
	v.SetDefault(KeyTelemetryKey, defaults.TelemetryKey)
	v.SetDefault(KeyTelemetryEndpoint, defaults.TelemetryEndpoint)
	v.SetDefault(KeySentryDSN, defaults.SentryDSN)
	v.SetDefault(KeyInstallID, defaults.InstallID)
	v.SetDefault(KeyLogLevel, defaults.LogLevel)
	v.SetDefault(KeyGUI, defaults.GUI)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(paths.DataDir)
	v.AddConfigPath(paths.ConfigDir)

	// DOCKHAND_MACHINE_NAME, DOCKHAND_USE_NATIVE, ...
	v.SetEnvPrefix("DOCKHAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	file := viper.New()
	file.SetConfigType("yaml")
	if used := v.ConfigFileUsed(); used != "" {
		file.SetConfigFile(used)
		if err := file.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &Store{v: v, file: file, paths: paths}, nil
}

// Config unmarshals the current settings.
func (s *Store) Config() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := &Config{}
	if err := s.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Backend returns the persisted backend, or fallback when none was chosen.
func (s *Store) Backend(fallback setup.Backend) setup.Backend {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.v.IsSet(KeyUseNative) {
		return fallback
	}
	if s.v.GetBool(KeyUseNative) {
		return setup.BackendNative
	}
	return setup.BackendVirtualized
}

// Set stores value under key and writes config.yaml.
func (s *Store) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set(key, value)
	s.file.Set(key, value)
	return s.write()
}

// EnsureInstallID returns the install id, generating and persisting one on
// first use.
func (s *Store) EnsureInstallID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id := s.v.GetString(KeyInstallID); id != "" {
		return id, nil
	}
	id := uuid.NewString()
	s.v.Set(KeyInstallID, id)
	s.file.Set(KeyInstallID, id)
	if err := s.write(); err != nil {
		return "", err
	}
	return id, nil
}

// ConfigFileUsed returns the path of the config file being used, if any.
func (s *Store) ConfigFileUsed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v.ConfigFileUsed()
}

// Paths returns the directories the store was opened with.
func (s *Store) Paths() *Paths {
	return s.paths
}

func (s *Store) write() error {
	if err := s.paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := s.file.WriteConfigAs(s.paths.ConfigFile); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Global holds the loaded configuration.
var (
	Global *Config
	global *Store
)

// Load opens the default store and fills Global.
func Load() error {
	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to determine paths: %w", err)
	}
	return LoadFrom(paths)
}

// LoadFrom is Load with explicit paths.
func LoadFrom(paths *Paths) error {
	store, err := Open(paths)
	if err != nil {
		return err
	}
	cfg, err := store.Config()
	if err != nil {
		return err
	}
	Global, global = cfg, store
	return nil
}

// Default returns the store opened by Load or LoadFrom, or nil before.
func Default() *Store {
	return global
}

var _ setup.Preferences = (*Store)(nil)
