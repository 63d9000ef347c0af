// Package hostexec runs host tools and captures their output.
package hostexec

import (
	"bytes"
	"context"
	"os/exec"
)

// Runner executes a command and returns what it wrote to stdout and stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// Exec runs commands on the host.
type Exec struct{}

// Run implements Runner with os/exec.
func (Exec) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Installed reports whether name resolves on PATH.
func Installed(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
