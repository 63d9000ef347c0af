// Package config loads and persists dockhand settings with viper.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Paths holds platform-specific directory paths for dockhand.
type Paths struct {
	// ConfigDir is a secondary location searched for config.yaml.
	// macOS: ~/Library/Application Support/Dockhand
	// Linux: ~/.config/dockhand (or XDG_CONFIG_HOME)
	ConfigDir string

	// DataDir holds config.yaml and the setup history.
	// All platforms: ~/.dockhand
	DataDir string

	// ConfigFile is where settings are written.
	ConfigFile string
}

// GetPaths returns platform-aware paths for dockhand.
func GetPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return pathsFor(home, runtime.GOOS), nil
}

func pathsFor(home, goos string) *Paths {
	p := &Paths{DataDir: filepath.Join(home, ".dockhand")}

	switch goos {
	case "darwin":
		p.ConfigDir = filepath.Join(home, "Library", "Application Support", "Dockhand")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			p.ConfigDir = filepath.Join(xdgConfig, "dockhand")
		} else {
			p.ConfigDir = filepath.Join(home, ".config", "dockhand")
		}
	}

	p.ConfigFile = filepath.Join(p.DataDir, "config.yaml")
	return p
}

// PathsIn roots every path at dir. Used for portable installs and tests.
func PathsIn(dir string) *Paths {
	return &Paths{
		ConfigDir:  dir,
		DataDir:    dir,
		ConfigFile: filepath.Join(dir, "config.yaml"),
	}
}

// EnsureDirectories creates the config and data directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	if err := os.MkdirAll(p.ConfigDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(p.DataDir, 0755)
}
