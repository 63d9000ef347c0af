package cli

import (
	"fmt"

	"github.com/javanstorm/dockhand/internal/config"
	"github.com/javanstorm/dockhand/internal/diagnostics"
	"github.com/javanstorm/dockhand/internal/engine"
	"github.com/javanstorm/dockhand/internal/history"
	"github.com/javanstorm/dockhand/internal/machine"
	"github.com/javanstorm/dockhand/internal/probe"
	"github.com/javanstorm/dockhand/internal/setup"
	"github.com/javanstorm/dockhand/internal/telemetry"
	"github.com/javanstorm/dockhand/internal/version"
	"github.com/javanstorm/dockhand/internal/virtualbox"
	"github.com/sirupsen/logrus"
)

// crashReporter is what the CLI needs from diagnostics beyond setup's view.
type crashReporter interface {
	setup.Diagnostics
	Recover(v any)
	Flush() bool
}

// deps are the concrete collaborators built from the loaded config.
type deps struct {
	cfg   *config.Config
	store *config.Store

	probe      *probe.Host
	machine    *machine.Machine
	virtualbox *virtualbox.VirtualBox
	engine     *engine.Connector
	history    *history.File

	telemetry   telemetry.Service
	diagnostics crashReporter
}

func loadDeps() (*deps, error) {
	cfg, store := config.Global, config.Default()
	if cfg == nil || store == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	d := &deps{
		cfg:         cfg,
		store:       store,
		probe:       probe.New(cfg.NativeSocket),
		machine:     machine.New(cfg.MachineName, cfg.MachineStoragePath),
		virtualbox:  virtualbox.New(),
		engine:      engine.New(cfg.NativeSocket, cfg.MachineStoragePath),
		history:     history.NewFile(store.Paths().DataDir),
		telemetry:   &telemetry.NoopService{},
		diagnostics: diagnostics.Noop{},
	}

	if cfg.TelemetryKey == "" && cfg.SentryDSN == "" {
		return d, nil
	}

	installID, err := store.EnsureInstallID()
	if err != nil {
		logrus.WithError(err).Warn("failed to persist install id")
	}

	d.telemetry = telemetry.New(cfg.TelemetryKey, cfg.TelemetryEndpoint, installID)
	d.telemetry.Identify(map[string]any{"gui": cfg.GUI})

	if cfg.SentryDSN != "" {
		reporter, err := diagnostics.New(diagnostics.Options{
			DSN:       cfg.SentryDSN,
			Release:   version.Version,
			InstallID: installID,
		})
		if err != nil {
			logrus.WithError(err).Error("failed to init Sentry")
		} else {
			d.diagnostics = reporter
		}
	}
	return d, nil
}

// setupConfig wires the orchestrator to d and the given presenter.
func (d *deps) setupConfig(backend setup.Backend, rep setup.Reporter, nav setup.Navigator, hook func(from, to setup.State)) setup.Config {
	return setup.Config{
		Probe:          d.probe,
		Machine:        d.machine,
		Hypervisor:     d.virtualbox,
		Engine:         d.engine,
		Reporter:       rep,
		Navigator:      nav,
		Telemetry:      d.telemetry,
		Diagnostics:    d.diagnostics,
		Preferences:    d.store,
		Backend:        backend,
		NativeSocket:   d.cfg.NativeSocket,
		IPPollAttempts: d.cfg.IPPollAttempts,
		IPPollInterval: d.cfg.IPPollInterval,
		OnStateChange:  hook,
	}
}

func (d *deps) Close() {
	d.telemetry.Close()
	d.diagnostics.Flush()
	if err := d.engine.Close(); err != nil {
		logrus.WithError(err).Debug("close engine client")
	}
}
