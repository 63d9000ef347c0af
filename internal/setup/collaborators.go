package setup

import (
	"context"
	"time"
)

// Screen names a presentation-layer destination.
type Screen string

const (
	ScreenLoading Screen = "loading"
	ScreenSetup   Screen = "setup"
)

// MachineState is the power state reported by the VM lifecycle tool.
type MachineState string

const (
	MachineRunning MachineState = "Running"
	MachineSaved   MachineState = "Saved"
	MachineStopped MachineState = "Stopped"
)

// Severity grades a diagnostics report.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// PrefUseNative is the preference key holding the backend selection.
const PrefUseNative = "use_native"

// Probe inspects the host.
type Probe interface {
	// IsNativeCapable reports whether the host socket looks usable.
	IsNativeCapable() bool
	IsLinux() bool
	// StatSocket fails with a SocketNotFoundError when path is missing or
	// is not a unix socket.
	StatSocket(path string) error
}

// Machine drives the VM lifecycle tool.
type Machine interface {
	Name() string
	Installed() bool
	Version(ctx context.Context) (string, error)
	Status(ctx context.Context) (MachineState, error)
	Create(ctx context.Context) error
	Start(ctx context.Context) error
	Remove(ctx context.Context) error
	IP(ctx context.Context) (string, error)
	// VirtualBoxLogs returns the hypervisor log of the VM, or "" when
	// unavailable.
	VirtualBoxLogs() string
	// StorePath is the directory the tool keeps machine state under.
	StorePath() string
}

// Hypervisor reports on the virtualization product itself.
type Hypervisor interface {
	Installed() bool
	Version(ctx context.Context) (string, error)
	VMExists(ctx context.Context, name string) (bool, error)
}

// Engine binds the application to a reachable engine endpoint.
type Engine interface {
	Bind(ctx context.Context, host, machineName string) error
}

// Reporter receives coarse setup status.
type Reporter interface {
	Progress(percent float64)
	Started(started bool)
	Error(err error)
}

// Navigator switches presentation screens.
type Navigator interface {
	GoTo(screen Screen, params map[string]any)
}

// Telemetry records usage events.
type Telemetry interface {
	Track(event string, props map[string]any)
}

// Diagnostics forwards failure details to crash reporting.
type Diagnostics interface {
	Notify(title, summary string, details map[string]any, severity Severity)
}

// Preferences persists user settings.
type Preferences interface {
	Set(key string, value any) error
}

// Ramp shows simulated progress while a slow VM operation runs.
type Ramp interface {
	Simulate(estimate time.Duration)
	Clear()
}
