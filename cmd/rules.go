package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/checker"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/diagram"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/markdown"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the lint rules and diagram checks",
	Long: `List the structural lint rules that can be selected with check.lint_rules,
followed by the Mermaid rendering checks that always run on diagrams.`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Category", "Description"})

	for _, r := range markdown.Rules() {
		t.AppendRow(table.Row{r.ID, r.Name, checker.CategoryLint, r.Description})
	}
	t.AppendSeparator()
	for _, ap := range diagram.AntiPatterns() {
		t.AppendRow(table.Row{"-", ap.Rule, checker.CategoryDiagramPattern, ap.Description})
	}

	t.Render()
	return nil
}
