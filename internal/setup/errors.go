package setup

import (
	"errors"
	"fmt"
)

// User-facing messages.
const (
	msgNoSocket        = "No Docker socket found."
	msgGenericFailure  = "Docker Machine encountered an error."
	msgIPUndetermined  = "Could not determine IP from docker-machine."
	msgInstallTemplate = "%s is not installed. Please install it via the Docker Toolbox."
)

// Tool names used in ToolNotInstalledError.
const (
	ToolVirtualBox    = "VirtualBox"
	ToolDockerMachine = "Docker Machine"
)

var (
	// ErrNoSocket is the generic error reported when the top-level loop
	// fails, whatever the cause.
	ErrNoSocket = errors.New(msgNoSocket)

	// errBackendChanged unwinds a strategy when the operator switched
	// backend while it was suspended.
	errBackendChanged = errors.New("setup: backend changed")
)

// SocketNotFoundError means the native socket is missing or is not a socket.
type SocketNotFoundError struct {
	Path   string
	Reason string
}

func (e *SocketNotFoundError) Error() string {
	return fmt.Sprintf("docker socket %s: %s", e.Path, e.Reason)
}

// ToolNotInstalledError names a missing prerequisite.
type ToolNotInstalledError struct {
	Tool string
}

func (e *ToolNotInstalledError) Error() string {
	return fmt.Sprintf(msgInstallTemplate, e.Tool)
}

// VMTransitionError wraps a failed create, start or remove.
type VMTransitionError struct {
	Op  string
	Err error
}

func (e *VMTransitionError) Error() string {
	return fmt.Sprintf("%s machine: %v", e.Op, e.Err)
}

func (e *VMTransitionError) Unwrap() error { return e.Err }

// IPDiscoveryError means the poll budget ran out without an address.
type IPDiscoveryError struct {
	Attempts int
	Last     error
}

func (e *IPDiscoveryError) Error() string {
	return msgIPUndetermined
}

func (e *IPDiscoveryError) Unwrap() error { return e.Last }

// EngineBindError wraps a connector failure.
type EngineBindError struct {
	Host string
	Err  error
}

func (e *EngineBindError) Error() string {
	return fmt.Sprintf("bind engine at %s: %v", e.Host, e.Err)
}

func (e *EngineBindError) Unwrap() error { return e.Err }
