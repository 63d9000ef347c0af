// Package machine drives the docker-machine CLI for one named VirtualBox VM.
package machine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/javanstorm/dockhand/internal/hostexec"
	"github.com/javanstorm/dockhand/internal/setup"
	"github.com/sirupsen/logrus"
)

// Binary is the docker-machine executable name.
const Binary = "docker-machine"

// DefaultName is the machine Docker Toolbox creates.
const DefaultName = "default"

var log = logrus.WithField("component", "machine")

var versionPattern = regexp.MustCompile(`version\s+v?([0-9][0-9A-Za-z.\-+]*)`)

// ErrUnknownVersion is returned when the version banner cannot be parsed.
var ErrUnknownVersion = errors.New("machine: unrecognized version output")

// CommandError carries the stderr of a failed invocation so its last line
// can be shown to the operator.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", Binary, strings.Join(e.Args, " "), e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += "\n" + stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// Machine manages one docker-machine VM.
type Machine struct {
	name      string
	storePath string
	driver    string
	runner    hostexec.Runner
	installed func(string) bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithRunner replaces the command runner.
func WithRunner(r hostexec.Runner) Option {
	return func(m *Machine) { m.runner = r }
}

// WithLookup replaces the PATH lookup used by Installed.
func WithLookup(fn func(string) bool) Option {
	return func(m *Machine) { m.installed = fn }
}

// New returns a Machine named name whose state lives under storePath.
func New(name, storePath string, opts ...Option) *Machine {
	if name == "" {
		name = DefaultName
	}
	m := &Machine{
		name:      name,
		storePath: storePath,
		driver:    "virtualbox",
		runner:    hostexec.Exec{},
		installed: hostexec.Installed,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DefaultStorePath is docker-machine's own default storage directory.
func DefaultStorePath() string {
	if p := os.Getenv("MACHINE_STORAGE_PATH"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docker", "machine")
	}
	return filepath.Join(home, ".docker", "machine")
}

func (m *Machine) Name() string      { return m.name }
func (m *Machine) StorePath() string { return m.storePath }

// Dir is the machine's own directory (certificates, config.json).
func (m *Machine) Dir() string {
	return filepath.Join(m.storePath, "machines", m.name)
}

// Installed reports whether docker-machine is on PATH.
func (m *Machine) Installed() bool {
	return m.installed(Binary)
}

// Version returns the semantic version from `docker-machine version`.
func (m *Machine) Version(ctx context.Context) (string, error) {
	out, err := m.run(ctx, "version")
	if err != nil {
		return "", err
	}
	match := versionPattern.FindStringSubmatch(out)
	if match == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownVersion, out)
	}
	return match[1], nil
}

// Status returns the VM power state.
func (m *Machine) Status(ctx context.Context) (setup.MachineState, error) {
	out, err := m.run(ctx, "status", m.name)
	if err != nil {
		return "", err
	}
	return setup.MachineState(out), nil
}

// Create provisions the VM with the VirtualBox driver.
func (m *Machine) Create(ctx context.Context) error {
	_, err := m.run(ctx, "create", "--driver", m.driver, m.name)
	return err
}

// Start boots a Saved or Stopped VM.
func (m *Machine) Start(ctx context.Context) error {
	_, err := m.run(ctx, "start", m.name)
	return err
}

// Remove deletes the VM without prompting.
func (m *Machine) Remove(ctx context.Context) error {
	_, err := m.run(ctx, "rm", "-f", "-y", m.name)
	return err
}

// IP returns the VM address, or "" when docker-machine printed nothing.
func (m *Machine) IP(ctx context.Context) (string, error) {
	return m.run(ctx, "ip", m.name)
}

// LogPath is where VirtualBox writes the VM log.
func (m *Machine) LogPath() string {
	return filepath.Join(m.Dir(), m.name, "Logs", "VBox.log")
}

// VirtualBoxLogs returns VBox.log, or "" when it cannot be read.
func (m *Machine) VirtualBoxLogs() string {
	data, err := os.ReadFile(m.LogPath())
	if err != nil {
		log.WithError(err).Debug("VirtualBox log unavailable")
		return ""
	}
	return string(data)
}

func (m *Machine) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"--storage-path", m.storePath}, args...)
	log.WithField("args", args).Debug("running docker-machine")

	stdout, stderr, err := m.runner.Run(ctx, Binary, full...)
	if err != nil {
		return "", &CommandError{Args: args, Stderr: string(stderr), Err: err}
	}
	return strings.TrimSpace(string(stdout)), nil
}

var _ setup.Machine = (*Machine)(nil)
