package cli

import (
	"fmt"

	"github.com/javanstorm/dockhand/internal/config"
	"github.com/javanstorm/dockhand/internal/setup"
	"github.com/spf13/cobra"
)

var backendCmd = &cobra.Command{
	Use:   "backend [native|virtualized]",
	Short: "Show or change the saved backend",
	Long: `Without arguments, print the backend "dockhand up" will use.

With an argument, save it: "native" uses the host Docker socket and
"virtualized" uses a Docker Machine VirtualBox VM.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"native", "virtualized"},
	RunE:      runBackend,
}

func runBackend(cmd *cobra.Command, args []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		fmt.Fprintln(out, d.store.Backend(d.probe.DefaultBackend()))
		return nil
	}

	b, ok := setup.ParseBackend(args[0])
	if !ok {
		return fmt.Errorf("unknown backend %q (want native or virtualized)", args[0])
	}
	if err := d.store.Set(config.KeyUseNative, b == setup.BackendNative); err != nil {
		return fmt.Errorf("save backend: %w", err)
	}
	fmt.Fprintf(out, "Backend set to %s\n", b)
	return nil
}
