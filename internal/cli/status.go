package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/javanstorm/dockhand/internal/setup"
	"github.com/javanstorm/dockhand/internal/timing"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend, tool and VM status",
	Long:  `Display the selected backend, whether the host socket and the VirtualBox tools are available, the VM state, and the last successful setup.`,
	RunE:  runStatus,
}

const statusTimeout = 15 * time.Second

func runStatus(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
	defer cancel()

	printStatus(ctx, cmd.OutOrStdout(), d)
	return nil
}

func printStatus(ctx context.Context, out io.Writer, d *deps) {
	backend := d.store.Backend(d.probe.DefaultBackend())
	fmt.Fprintf(out, "Backend: %s\n", backend)
	if path := d.store.ConfigFileUsed(); path != "" {
		fmt.Fprintf(out, "Config:  %s\n", path)
	}
	fmt.Fprintln(out)

	if err := d.probe.StatSocket(d.cfg.NativeSocket); err != nil {
		fmt.Fprintf(out, "Host socket:    unavailable (%v)\n", err)
	} else {
		fmt.Fprintf(out, "Host socket:    %s\n", d.cfg.NativeSocket)
	}

	if d.virtualbox.Installed() {
		v, err := d.virtualbox.Version(ctx)
		fmt.Fprintf(out, "VirtualBox:     %s\n", valueOr(v, err))
	} else {
		fmt.Fprintf(out, "VirtualBox:     not installed\n")
	}

	if !d.machine.Installed() {
		fmt.Fprintf(out, "Docker Machine: not installed\n")
	} else {
		v, err := d.machine.Version(ctx)
		fmt.Fprintf(out, "Docker Machine: %s\n", valueOr(v, err))

		state, err := d.machine.Status(ctx)
		fmt.Fprintf(out, "VM %q:    %s\n", d.machine.Name(), valueOr(string(state), err))
	}

	rec, err := d.history.Load()
	fmt.Fprintln(out)
	switch {
	case err != nil:
		fmt.Fprintf(out, "Last setup: unreadable (%v)\n", err)
	case rec.ReadyCount == 0:
		fmt.Fprintln(out, "Last setup: never")
	default:
		fmt.Fprintf(out, "Last setup: %s via %s in %s (%d total)\n",
			rec.LastReady.Format(time.RFC1123), rec.Backend, timing.FormatDuration(rec.LastDuration), rec.ReadyCount)
		if rec.Backend == setup.BackendVirtualized.String() && rec.IP != "" {
			fmt.Fprintf(out, "  VM address: %s\n", rec.IP)
		}
	}
}

func valueOr(v string, err error) string {
	if err != nil {
		return fmt.Sprintf("unknown (%s)", setup.Summarize(err))
	}
	return v
}
