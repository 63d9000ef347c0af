// Package probe inspects the host to decide which setup strategy can work.
package probe

import (
	"os"
	"runtime"

	"github.com/javanstorm/dockhand/internal/setup"
)

// Host probes the machine the binary runs on.
type Host struct {
	// Socket is the engine socket IsNativeCapable looks at.
	Socket string

	goos string
}

// New returns a Host probe for socket. An empty socket uses the default
// engine socket.
func New(socket string) *Host {
	if socket == "" {
		socket = setup.DefaultNativeSocket
	}
	return &Host{Socket: socket, goos: runtime.GOOS}
}

// IsLinux reports whether the host runs Linux.
func (h *Host) IsLinux() bool {
	return h.goos == "linux"
}

// IsNativeCapable reports whether the default socket is present and is a
// unix socket.
func (h *Host) IsNativeCapable() bool {
	return h.StatSocket(h.Socket) == nil
}

// StatSocket fails with a *setup.SocketNotFoundError when path does not
// exist or is not a socket.
func (h *Host) StatSocket(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		reason := err.Error()
		if os.IsNotExist(err) {
			reason = "no such file or directory"
		}
		return &setup.SocketNotFoundError{Path: path, Reason: reason}
	}
	if info.Mode()&os.ModeSocket == 0 {
		return &setup.SocketNotFoundError{Path: path, Reason: "not a socket"}
	}
	return nil
}

// DefaultBackend picks the native backend when the host socket is usable.
func (h *Host) DefaultBackend() setup.Backend {
	if h.IsNativeCapable() {
		return setup.BackendNative
	}
	return setup.BackendVirtualized
}
