// Package virtualbox queries the VirtualBox installation through VBoxManage.
package virtualbox

import (
	"bufio"
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/javanstorm/dockhand/internal/hostexec"
	"github.com/javanstorm/dockhand/internal/setup"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "virtualbox")

// Manager returns the VBoxManage executable for the host.
func Manager() string {
	if runtime.GOOS == "windows" {
		return "VBoxManage.exe"
	}
	return "VBoxManage"
}

// VirtualBox answers questions about the local hypervisor.
type VirtualBox struct {
	binary    string
	runner    hostexec.Runner
	installed func(string) bool
}

// Option configures a VirtualBox.
type Option func(*VirtualBox)

// WithRunner replaces the command runner.
func WithRunner(r hostexec.Runner) Option {
	return func(v *VirtualBox) { v.runner = r }
}

// WithLookup replaces the PATH lookup used by Installed.
func WithLookup(fn func(string) bool) Option {
	return func(v *VirtualBox) { v.installed = fn }
}

// New returns a VirtualBox backed by VBoxManage.
func New(opts ...Option) *VirtualBox {
	v := &VirtualBox{
		binary:    Manager(),
		runner:    hostexec.Exec{},
		installed: hostexec.Installed,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Installed reports whether VBoxManage is on PATH.
func (v *VirtualBox) Installed() bool {
	return v.installed(v.binary)
}

// Version returns the VirtualBox version without its build revision,
// e.g. "5.0.10" for "5.0.10r104061".
func (v *VirtualBox) Version(ctx context.Context) (string, error) {
	out, err := v.run(ctx, "--version")
	if err != nil {
		return "", err
	}
	if i := strings.IndexByte(out, 'r'); i > 0 {
		out = out[:i]
	}
	if out == "" {
		return "", fmt.Errorf("virtualbox: empty version output")
	}
	return out, nil
}

// VMExists reports whether VirtualBox has a VM registered as name.
func (v *VirtualBox) VMExists(ctx context.Context, name string) (bool, error) {
	out, err := v.run(ctx, "list", "vms")
	if err != nil {
		return false, err
	}
	for _, vm := range ParseVMList(out) {
		if vm == name {
			return true, nil
		}
	}
	return false, nil
}

// ParseVMList extracts names from `VBoxManage list vms` output, where each
// line reads `"name" {uuid}`.
func ParseVMList(out string) []string {
	var names []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, `"`) {
			continue
		}
		end := strings.LastIndex(line, `"`)
		if end <= 0 {
			continue
		}
		names = append(names, line[1:end])
	}
	return names
}

func (v *VirtualBox) run(ctx context.Context, args ...string) (string, error) {
	log.WithField("args", args).Debug("running VBoxManage")
	stdout, stderr, err := v.runner.Run(ctx, v.binary, args...)
	if err != nil {
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			return "", fmt.Errorf("%s %s: %w\n%s", v.binary, strings.Join(args, " "), err, msg)
		}
		return "", fmt.Errorf("%s %s: %w", v.binary, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(stdout)), nil
}

var _ setup.Hypervisor = (*VirtualBox)(nil)
