package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/javanstorm/dockhand/internal/config"
	"github.com/javanstorm/dockhand/internal/console"
	"github.com/javanstorm/dockhand/internal/gui"
	"github.com/javanstorm/dockhand/internal/history"
	"github.com/javanstorm/dockhand/internal/setup"
	"github.com/javanstorm/dockhand/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bring the Docker engine into a ready state",
	Long: `Bring the Docker engine into a ready state.

Uses the host socket when the native backend is selected, otherwise creates
or starts the Docker Machine VM and connects to it. Failures pause setup
until you choose to retry, remove the VM and retry, or switch to VirtualBox.`,
	RunE: runUp,
}

var (
	upGUI     bool
	upBackend string
)

func init() {
	upCmd.Flags().BoolVar(&upGUI, "gui", false, "Show the setup window instead of the console prompt")
	upCmd.Flags().StringVar(&upBackend, "backend", "", "Backend for this run: native or virtualized (default: saved choice)")
}

func runUp(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	defer func() {
		if r := recover(); r != nil {
			d.diagnostics.Recover(r)
			panic(r)
		}
	}()

	if errs := config.ValidateConfig(d.cfg); len(errs) > 0 {
		fmt.Fprint(cmd.ErrOrStderr(), config.FormatValidationErrors(errs))
		if config.HasFatal(errs) {
			return fmt.Errorf("invalid configuration")
		}
	}

	backend, err := resolveBackend(d, upBackend)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"backend": backend, "build": version.String()}).Debug("starting setup")

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var orch *setup.Orchestrator
	if upGUI || d.cfg.GUI {
		orch, err = runWithWindow(ctx, d, backend)
	} else {
		orch, err = runWithConsole(ctx, d, backend, cmd.InOrStdin(), cmd.OutOrStdout(), cancel)
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(cmd.OutOrStdout(), "Setup cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	return finishUp(cmd.OutOrStdout(), d, orch)
}

// resolveBackend picks the flag value, then the saved choice, then what the
// host supports.
func resolveBackend(d *deps, flag string) (setup.Backend, error) {
	if flag != "" {
		b, ok := setup.ParseBackend(flag)
		if !ok {
			return 0, fmt.Errorf("unknown backend %q (want native or virtualized)", flag)
		}
		return b, nil
	}
	return d.store.Backend(d.probe.DefaultBackend()), nil
}

func runWithConsole(ctx context.Context, d *deps, backend setup.Backend, in io.Reader, out io.Writer, quit func()) (*setup.Orchestrator, error) {
	con := console.New(in, out, quit)
	orch, err := setup.New(d.setupConfig(backend, con, con, con.StateChanged(ctx)))
	if err != nil {
		return nil, err
	}
	con.Attach(orch)

	fmt.Fprintf(out, "Setting up Docker (%s)...\n", backend)
	return orch, orch.Run(ctx)
}

func runWithWindow(ctx context.Context, d *deps, backend setup.Backend) (*setup.Orchestrator, error) {
	win := gui.New(ctx, gui.NewApp(), "Dockhand")
	orch, err := setup.New(d.setupConfig(backend, win, win, win.StateChanged))
	if err != nil {
		return nil, err
	}
	win.Attach(orch)
	return orch, win.Run(orch.Run)
}

// finishUp records the run and prints how to reach the engine.
func finishUp(out io.Writer, d *deps, orch *setup.Orchestrator) error {
	attempt := orch.LastAttempt()
	ready := history.Ready{
		Backend:  orch.Backend().String(),
		Duration: orch.Elapsed(),
	}
	if orch.Backend() == setup.BackendVirtualized {
		ready.VirtualBoxVersion = attempt.VirtualBoxVersion
		ready.MachineVersion = attempt.MachineVersion
		ready.IP = attempt.IP
	}
	if err := d.history.RecordReady(ready); err != nil {
		logrus.WithError(err).Warn("failed to record setup history")
	}

	ep := d.engine.Endpoint()
	fmt.Fprintf(out, "Docker is ready at %s", ep.Host)
	if ep.APIVersion != "" {
		fmt.Fprintf(out, " (API %s)", ep.APIVersion)
	}
	fmt.Fprintln(out)
	for _, kv := range ep.Env() {
		fmt.Fprintf(out, "export %s\n", kv)
	}
	return nil
}
