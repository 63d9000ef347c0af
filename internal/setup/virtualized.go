package setup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// runVirtualized brings up the Docker Machine VM and binds to it, retrying
// until it succeeds. Versions learned by one iteration are kept for the
// failure reports of later ones.
func (o *Orchestrator) runVirtualized(ctx context.Context) error {
	log.Info("virtualized setup")
	var attempt Attempt

	for {
		o.setState(StateVirtualAttempt)
		o.cfg.Reporter.Started(false)

		if err := o.checkTools(); err != nil {
			log.WithError(err).Warn("prerequisite missing")
			o.progress.Clear()
			o.cfg.Navigator.GoTo(ScreenSetup, nil)
			o.cfg.Reporter.Error(err)
			if err := o.pause(ctx); err != nil {
				return err
			}
			continue
		}

		err := o.bringUp(ctx, &attempt)
		if err == nil {
			attempt.Err = nil
			o.recordAttempt(attempt)
			o.progress.Clear()
			o.cfg.Telemetry.Track(EventSetupFinished, versionProps(attempt))
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		attempt.Err = err
		o.recordAttempt(attempt)
		o.reportFailure(attempt)
		if err := o.pause(ctx); err != nil {
			return err
		}
	}
}

// checkTools verifies VirtualBox first, then Docker Machine.
func (o *Orchestrator) checkTools() error {
	if !o.cfg.Hypervisor.Installed() {
		return &ToolNotInstalledError{Tool: ToolVirtualBox}
	}
	if !o.cfg.Machine.Installed() {
		return &ToolNotInstalledError{Tool: ToolDockerMachine}
	}
	return nil
}

func (o *Orchestrator) bringUp(ctx context.Context, a *Attempt) error {
	a.IP = ""

	vboxVersion, err := o.cfg.Hypervisor.Version(ctx)
	if err != nil {
		return fmt.Errorf("read VirtualBox version: %w", err)
	}
	a.VirtualBoxVersion = vboxVersion

	machineVersion, err := o.cfg.Machine.Version(ctx)
	if err != nil {
		return fmt.Errorf("read Docker Machine version: %w", err)
	}
	a.MachineVersion = machineVersion
	o.timer.Mark("versions")

	o.cfg.Reporter.Started(true)
	o.cfg.Telemetry.Track(EventStartedSetup, versionProps(*a))

	if err := o.ensureRunning(ctx); err != nil {
		return err
	}
	o.timer.Mark("machine")

	ip, err := o.pollIP(ctx)
	if err != nil {
		return err
	}
	a.IP = ip
	o.timer.Mark("ip")

	if err := o.cfg.Engine.Bind(ctx, ip, o.cfg.Machine.Name()); err != nil {
		return &EngineBindError{Host: ip, Err: err}
	}
	o.timer.Mark("bind")
	return nil
}

// machineExists requires both the hypervisor registration and the tool's
// on-disk record.
func (o *Orchestrator) machineExists(ctx context.Context) (bool, error) {
	name := o.cfg.Machine.Name()

	registered, err := o.cfg.Hypervisor.VMExists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("look up VM %s: %w", name, err)
	}
	if !registered {
		return false, nil
	}

	if _, err := os.Stat(filepath.Join(o.cfg.Machine.StorePath(), "machines", name)); err != nil {
		return false, nil
	}
	return true, nil
}

// ensureRunning creates or starts the VM as needed. A running VM (or one in
// any state other than Saved or Stopped) is left alone.
func (o *Orchestrator) ensureRunning(ctx context.Context) error {
	exists, err := o.machineExists(ctx)
	if err != nil {
		return err
	}

	if !exists {
		o.cfg.Navigator.GoTo(ScreenSetup, nil)
		o.cfg.Reporter.Started(true)
		o.progress.Simulate(rampCreate)

		// Best effort: clears a half-registered VM from an earlier create.
		if err := o.cfg.Machine.Remove(ctx); err != nil {
			log.WithError(err).Debug("stale machine removal failed")
		}

		log.WithField("machine", o.cfg.Machine.Name()).Info("creating machine")
		if err := o.cfg.Machine.Create(ctx); err != nil {
			return &VMTransitionError{Op: "create", Err: err}
		}
		return nil
	}

	state, err := o.cfg.Machine.Status(ctx)
	if err != nil {
		return fmt.Errorf("read machine status: %w", err)
	}
	log.WithField("state", state).Debug("machine status")

	switch state {
	case MachineSaved:
		o.cfg.Navigator.GoTo(ScreenSetup, nil)
		o.progress.Simulate(rampSaved)
	case MachineStopped:
		o.cfg.Navigator.GoTo(ScreenSetup, nil)
		o.progress.Simulate(rampStopped)
	default:
		return nil
	}

	log.WithField("machine", o.cfg.Machine.Name()).Info("starting machine")
	if err := o.cfg.Machine.Start(ctx); err != nil {
		return &VMTransitionError{Op: "start", Err: err}
	}
	return nil
}

// reportFailure sends a failed iteration to every observer. Progress is
// cleared first so no ramp value lands on top of the error.
func (o *Orchestrator) reportFailure(a Attempt) {
	log.WithError(a.Err).Warn("virtualized setup failed")

	o.progress.Clear()
	o.cfg.Navigator.GoTo(ScreenSetup, nil)
	o.cfg.Telemetry.Track(EventSetupFailed, versionProps(a))
	o.cfg.Reporter.Error(a.Err)

	o.cfg.Diagnostics.Notify(EventSetupFailed, Summarize(a.Err), map[string]any{
		"Docker Machine Logs": a.Err.Error(),
		"VirtualBox Logs":     o.cfg.Machine.VirtualBoxLogs(),
		"VirtualBox Version":  optional(a.VirtualBoxVersion),
		"Machine Version":     optional(a.MachineVersion),
		"groupingHash":        a.MachineVersion,
	}, SeverityInfo)
}

func versionProps(a Attempt) map[string]any {
	return map[string]any{
		"virtualBoxVersion": optional(a.VirtualBoxVersion),
		"machineVersion":    optional(a.MachineVersion),
	}
}

// optional maps an unknown value to nil.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
