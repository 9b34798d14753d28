package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/diagram"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
)

var diagramCmd = &cobra.Command{
	Use:   "diagram [file|-]",
	Short: "Check the syntax of a single Mermaid diagram",
	Long: `Check one Mermaid diagram read from a file or standard input.

A syntax error is printed with its line and the exit status is 1. When the
validation units are unavailable the basic checks are used instead.
Rendering issues are printed as warnings and do not change the exit status.

Examples:
  docsmith diagram flow.mmd
  echo "graph TD; A-->B" | docsmith diagram -`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: bindFlags(checkFlags),
	RunE:    runDiagram,
}

func init() {
	rootCmd.AddCommand(diagramCmd)
	diagramCmd.Flags().String("isolation", "goroutine", "Diagram validation units (goroutine, process)")
	diagramCmd.Flags().Duration("timeout", 0, "Validation timeout (default 15s)")
}

func runDiagram(cmd *cobra.Command, args []string) error {
	source := stdinSource
	if len(args) == 1 {
		source = args[0]
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Pool.Size = 1

	content, err := readSource(source, cmd.InOrStdin())
	if err != nil {
		return err
	}

	e, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	for _, f := range diagram.ScanAntiPatterns(content) {
		fmt.Fprintf(out, "warning: line %d: %s (%s)\n", f.Line, f.Message, f.Rule)
	}

	if err := e.diagram.ValidateSyntax(commandContext(cmd), content); err != nil {
		if !errors.IsSyntax(err) {
			return err
		}
		fmt.Fprintf(out, "%s: %s\n", source, errors.Message(err))
		return errFindings
	}

	fmt.Fprintf(out, "%s: diagram is valid\n", source)
	return nil
}
