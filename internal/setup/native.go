package setup

import "context"

// Hostnames the native engine answers on.
const (
	nativeHostLinux = "localhost"
	nativeHostOther = "docker.local"
)

func (o *Orchestrator) nativeHost() string {
	if o.cfg.Probe.IsLinux() {
		return nativeHostLinux
	}
	return nativeHostOther
}

// runNative binds to the host engine, retrying until it succeeds. It only
// returns early when ctx ends or the operator switched backend.
func (o *Orchestrator) runNative(ctx context.Context) error {
	host := o.nativeHost()
	log.WithField("host", host).Info("native setup")

	for {
		o.setState(StateNativeAttempt)

		err := o.cfg.Engine.Bind(ctx, host, o.cfg.Machine.Name())
		if err == nil {
			o.timer.Mark("bind")
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = &EngineBindError{Host: host, Err: err}
		log.WithError(err).Warn("native setup failed")

		o.progress.Clear()
		o.cfg.Navigator.GoTo(ScreenSetup, nil)
		o.cfg.Telemetry.Track(EventNativeSetupFailed, nil)
		o.cfg.Reporter.Error(err)
		o.cfg.Diagnostics.Notify(EventNativeSetupFailed, Summarize(err), map[string]any{
			"Docker Machine Logs": err.Error(),
		}, SeverityInfo)

		if err := o.pause(ctx); err != nil {
			return err
		}
		if o.Backend() != BackendNative {
			return errBackendChanged
		}
	}
}
