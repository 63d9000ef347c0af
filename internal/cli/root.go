// Package cli provides the command-line interface for dockhand.
package cli

import (
	"fmt"

	"github.com/javanstorm/dockhand/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	debugMode bool
	dataDir   string
)

var rootCmd = &cobra.Command{
	Use:   "dockhand",
	Short: "dockhand - get a Docker engine ready",
	Long: `dockhand brings a Docker engine into a ready state.

It uses the host's Docker socket when one is available, and otherwise
creates and starts a VirtualBox VM with Docker Machine. When setup fails
it waits for you to retry, remove the VM, or switch to VirtualBox.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		switch cmd.Name() {
		case "version", "completion":
			return nil
		}
		if err := loadConfig(); err != nil {
			return err
		}
		return setupLogging(config.Global.LogLevel, debugMode)
	},
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Keep settings and history in this directory instead of ~/.dockhand")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(backendCmd)
}

func loadConfig() error {
	if dataDir != "" {
		return config.LoadFrom(config.PathsIn(dataDir))
	}
	return config.Load()
}

func setupLogging(level string, debug bool) error {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	if debug {
		lvl = logrus.DebugLevel
	}
	logrus.SetLevel(lvl)
	return nil
}
