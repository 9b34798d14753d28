package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/sandbox"
)

// workerCmd is the process unit started by pools with process isolation. It
// reads JSON requests on stdin and answers on stdout until stdin closes.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Run a diagram validation unit on stdin/stdout",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return sandbox.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), sandbox.MermaidValidator())
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
