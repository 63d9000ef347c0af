// Package setup brings the container engine into a ready state. It picks the
// native or the virtualized strategy, retries forever and suspends on a gate
// whenever an operator has to decide how to continue.
package setup

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/javanstorm/dockhand/internal/gate"
	"github.com/javanstorm/dockhand/internal/progress"
	"github.com/javanstorm/dockhand/internal/timing"
	"github.com/sirupsen/logrus"
)

// Defaults applied by New.
const (
	DefaultNativeSocket   = "/var/run/docker.sock"
	DefaultIPPollAttempts = 80
	DefaultIPPollInterval = time.Second
)

// Ramp estimates for operations without a progress signal.
const (
	rampCreate  = 60 * time.Second
	rampSaved   = 10 * time.Second
	rampStopped = 25 * time.Second
)

// Telemetry event names.
const (
	EventStartedSetup      = "Started Setup"
	EventSetupFinished     = "Setup Finished"
	EventSetupFailed       = "Setup Failed"
	EventNativeSetupFailed = "Native Setup Failed"
	EventRetriedSetup      = "Retried Setup"
	EventRetriedWithVBox   = "Retried Setup with VBox"
)

var log = logrus.WithField("component", "setup")

// Config wires an Orchestrator to its collaborators.
type Config struct {
	Probe      Probe
	Machine    Machine
	Hypervisor Hypervisor
	Engine     Engine
	Reporter   Reporter
	Navigator  Navigator

	// Optional; no-ops when nil.
	Telemetry   Telemetry
	Diagnostics Diagnostics
	Preferences Preferences

	// Ramp simulates progress; defaults to a progress.Simulator reporting
	// to Reporter.
	Ramp Ramp

	// Backend is the initial selection.
	Backend Backend

	// NativeSocket is the host socket checked before the native strategy.
	NativeSocket string

	// IPPollAttempts bounds IP discovery.
	IPPollAttempts int

	// IPPollInterval is the delay between IP discovery attempts.
	IPPollInterval time.Duration

	// ProgressInterval overrides the ramp cadence (zero keeps 200ms).
	ProgressInterval time.Duration

	// OnStateChange, when set, is called after every state transition.
	OnStateChange func(from, to State)
}

// Orchestrator owns one setup run. Recovery actions may be called from any
// goroutine while Run is suspended.
type Orchestrator struct {
	cfg      Config
	gate     gate.Gate
	progress Ramp
	timer    *timing.Timer
	sleep    func(context.Context, time.Duration) error

	mu      sync.Mutex
	backend Backend
	state   State
	attempt Attempt
}

// New validates cfg and applies defaults.
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.Probe == nil:
		return nil, errors.New("setup: probe is required")
	case cfg.Machine == nil:
		return nil, errors.New("setup: machine is required")
	case cfg.Hypervisor == nil:
		return nil, errors.New("setup: hypervisor is required")
	case cfg.Engine == nil:
		return nil, errors.New("setup: engine is required")
	case cfg.Reporter == nil:
		return nil, errors.New("setup: reporter is required")
	case cfg.Navigator == nil:
		return nil, errors.New("setup: navigator is required")
	}

	if cfg.Telemetry == nil {
		cfg.Telemetry = nopTelemetry{}
	}
	if cfg.Diagnostics == nil {
		cfg.Diagnostics = nopDiagnostics{}
	}
	if cfg.Preferences == nil {
		cfg.Preferences = nopPreferences{}
	}
	if cfg.NativeSocket == "" {
		cfg.NativeSocket = DefaultNativeSocket
	}
	if cfg.IPPollAttempts <= 0 {
		cfg.IPPollAttempts = DefaultIPPollAttempts
	}
	if cfg.IPPollInterval <= 0 {
		cfg.IPPollInterval = DefaultIPPollInterval
	}

	if cfg.Ramp == nil {
		cfg.Ramp = progress.NewSimulator(cfg.Reporter, progress.WithInterval(cfg.ProgressInterval))
	}

	return &Orchestrator{
		cfg:      cfg,
		progress: cfg.Ramp,
		timer:    timing.New(),
		sleep:    sleepContext,
		backend:  cfg.Backend,
		state:    StateProbing,
	}, nil
}

// Run drives setup until the engine is bound. Failures never end it; it
// returns nil on readiness or ctx.Err() when torn down.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.timer.Reset()

	for {
		o.setState(StateProbing)
		backend := o.Backend()
		log.WithField("backend", backend).Info("checking setup type")

		err := o.runBackend(ctx, backend)
		if err == nil {
			o.setState(StateReady)
			log.WithFields(o.timer.Fields()).Debug("setup phases")
			log.WithField("backend", backend).Info("engine ready")
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, errBackendChanged) {
			continue
		}

		log.WithError(err).Warn("setup failed")
		o.cfg.Navigator.GoTo(ScreenSetup, map[string]any{"native": backend == BackendNative})
		o.cfg.Reporter.Error(ErrNoSocket)
		if err := o.pause(ctx); err != nil {
			return err
		}
	}
}

func (o *Orchestrator) runBackend(ctx context.Context, backend Backend) error {
	if backend == BackendVirtualized {
		return o.runVirtualized(ctx)
	}

	if err := o.cfg.Preferences.Set(PrefUseNative, true); err != nil {
		log.WithError(err).Warn("failed to persist backend selection")
	}
	if err := o.cfg.Probe.StatSocket(o.cfg.NativeSocket); err != nil {
		return err
	}
	return o.runNative(ctx)
}

// pause suspends until an operator resumes through one of the recovery
// actions.
func (o *Orchestrator) pause(ctx context.Context) error {
	s, err := o.gate.Pause()
	if err != nil {
		return err
	}
	o.setState(StateAwaitingOperator)
	log.Info("waiting for operator")
	return s.Wait(ctx)
}

// RetryPlain resumes a suspended run without side effects.
// Returns gate.ErrNotPaused when nothing is suspended.
func (o *Orchestrator) RetryPlain() error {
	return o.retry(context.Background(), false)
}

// RetryWithVMRemoval removes the VM, then resumes. The run stays suspended
// until removal has finished so the next attempt never races it.
func (o *Orchestrator) RetryWithVMRemoval(ctx context.Context) error {
	return o.retry(ctx, true)
}

func (o *Orchestrator) retry(ctx context.Context, removeVM bool) error {
	release, err := o.gate.Claim()
	if err != nil {
		return err
	}
	defer release()

	o.cfg.Telemetry.Track(EventRetriedSetup, map[string]any{"removeVM": removeVM})
	o.cfg.Navigator.GoTo(ScreenLoading, nil)

	if removeVM {
		// Best effort: a VM that survives removal is reported by the next attempt.
		if err := o.cfg.Machine.Remove(ctx); err != nil {
			log.WithError(err).Warn("failed to remove machine before retry")
		}
	}
	return nil
}

// SwitchBackend selects the virtualized backend, persists it and resumes.
func (o *Orchestrator) SwitchBackend() error {
	release, err := o.gate.Claim()
	if err != nil {
		return err
	}
	defer release()

	o.cfg.Telemetry.Track(EventRetriedWithVBox, nil)

	o.mu.Lock()
	o.backend = BackendVirtualized
	o.mu.Unlock()

	if err := o.cfg.Preferences.Set(PrefUseNative, false); err != nil {
		log.WithError(err).Warn("failed to persist backend selection")
	}
	o.cfg.Navigator.GoTo(ScreenLoading, nil)
	return nil
}

// Backend returns the current selection.
func (o *Orchestrator) Backend() Backend {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.backend
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastAttempt returns what the virtualized strategy learned most recently.
func (o *Orchestrator) LastAttempt() Attempt {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempt
}

// Phases returns the timed phases of the current run.
func (o *Orchestrator) Phases() []timing.Phase {
	return o.timer.Phases()
}

// Elapsed returns the time since Run started.
func (o *Orchestrator) Elapsed() time.Duration {
	return o.timer.Total()
}

func (o *Orchestrator) setState(to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()

	if from != to && o.cfg.OnStateChange != nil {
		o.cfg.OnStateChange(from, to)
	}
}

func (o *Orchestrator) recordAttempt(a Attempt) {
	o.mu.Lock()
	o.attempt = a
	o.mu.Unlock()
}

type nopTelemetry struct{}

func (nopTelemetry) Track(string, map[string]any) {}

type nopDiagnostics struct{}

func (nopDiagnostics) Notify(string, string, map[string]any, Severity) {}

type nopPreferences struct{}

func (nopPreferences) Set(string, any) error { return nil }
