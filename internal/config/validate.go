package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

var machineNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9.\-]*$`)

// ValidationError represents a configuration issue.
type ValidationError struct {
	Field   string
	Message string
	Fatal   bool // true = can't proceed, false = will be ignored
}

// ValidateConfig checks settings before they reach the orchestrator.
func ValidateConfig(cfg *Config) []ValidationError {
	var errs []ValidationError

	if !machineNamePattern.MatchString(cfg.MachineName) {
		errs = append(errs, ValidationError{
			Field:   KeyMachineName,
			Message: fmt.Sprintf("invalid machine name %q (letters, digits, dots and dashes only)", cfg.MachineName),
			Fatal:   true,
		})
	}

	if cfg.IPPollAttempts < 1 {
		errs = append(errs, ValidationError{
			Field:   KeyIPPollAttempts,
			Message: "must be at least 1",
			Fatal:   true,
		})
	}

	if cfg.IPPollInterval <= 0 {
		errs = append(errs, ValidationError{
			Field:   KeyIPPollInterval,
			Message: "must be a positive duration such as 1s",
			Fatal:   true,
		})
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, ValidationError{
			Field:   KeyLogLevel,
			Message: err.Error(),
			Fatal:   true,
		})
	}

	if !filepath.IsAbs(cfg.NativeSocket) {
		errs = append(errs, ValidationError{
			Field:   KeyNativeSocket,
			Message: fmt.Sprintf("%q is not absolute; it is resolved against the working directory", cfg.NativeSocket),
		})
	}

	if !filepath.IsAbs(cfg.MachineStoragePath) {
		errs = append(errs, ValidationError{
			Field:   KeyMachineStoragePath,
			Message: fmt.Sprintf("%q is not absolute; docker-machine may not find its machines", cfg.MachineStoragePath),
		})
	}

	return errs
}

// HasFatal reports whether any error prevents setup.
func HasFatal(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Fatal {
			return true
		}
	}
	return false
}

// FormatValidationErrors returns human-readable error summary.
func FormatValidationErrors(errs []ValidationError) string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Configuration problems:\n")
	for _, e := range errs {
		prefix := "Warning"
		if e.Fatal {
			prefix = "Error"
		}
		fmt.Fprintf(&b, "  %s [%s]: %s\n", prefix, e.Field, e.Message)
	}
	return b.String()
}
