package cmd

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/logging"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/watcher"
)

// stdinSource is the argument that reads a document from standard input.
const stdinSource = "-"

var checkCmd = &cobra.Command{
	Use:   "check [file|dir|-]...",
	Short: "Check markdown documents for structural and diagram defects",
	Long: `Check markdown documents and print every defect found:

- Dead internal links (with --structure or --allow)
- Unterminated code blocks, single-line or truncated content
- Tables whose rows disagree on the column count
- Invalid Mermaid diagrams and constructs that break rendering
- Structural lint issues (duplicate headings, undefined references, ...)

Directories are searched recursively for .md files. The exit status is 1
when any finding is reported.

Examples:
  docsmith check README.md docs/
  docsmith check --structure structure.yaml docs/
  docsmith check --format table --pool-size 2 docs/
  cat page.md | docsmith check -`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: bindFlags(checkFlags),
	RunE:    runCheck,
}

// checkFlags maps flag names to configuration keys.
var checkFlags = map[string]string{
	"structure": "check.structure",
	"allow":     "check.allowed_links",
	"format":    "output.format",
	"isolation": "pool.isolation",
	"pool-size": "pool.size",
	"timeout":   "pool.timeout",
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addCheckFlags(checkCmd)
	checkCmd.Flags().StringP("format", "f", "text", "Output format (text, json, yaml, table)")
}

func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().String("structure", "", "Structure plan YAML listing the documents links may point to")
	cmd.Flags().StringSlice("allow", nil, "Additional allowed link targets")
	cmd.Flags().String("isolation", "goroutine", "Diagram validation units (goroutine, process)")
	cmd.Flags().Int("pool-size", 0, "Number of diagram validation units (default: CPU count, at most 4)")
	cmd.Flags().Duration("timeout", 0, "Per-diagram validation timeout (default 15s)")
}

// bindFlags binds the flags of the running command to configuration keys.
// Binding happens at run time because several commands share key names.
func bindFlags(flags map[string]string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		for name, key := range flags {
			if f := cmd.Flags().Lookup(name); f != nil {
				if err := viper.BindPFlag(key, f); err != nil {
					return errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "failed to bind flag --"+name)
				}
			}
		}
		return nil
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	e, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	reports, err := checkFiles(commandContext(cmd), e, files, cmd.InOrStdin())
	if err != nil {
		return err
	}

	summary := newSummary(reports)
	if err := renderSummary(cmd.OutOrStdout(), cfg.Output.Format, summary); err != nil {
		return err
	}
	if summary.Findings > 0 {
		return errFindings
	}
	return nil
}

// checkFiles checks files concurrently and returns the reports in input
// order.
func checkFiles(ctx context.Context, e *engine, files []string, stdin io.Reader) ([]FileReport, error) {
	texts := make([]string, len(files))
	for i, file := range files {
		text, err := readSource(file, stdin)
		if err != nil {
			return nil, err
		}
		texts[i] = text
	}

	reports := make([]FileReport, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.pool.Stats().PoolSize)

	for i, file := range files {
		g.Go(func() error {
			op := logging.StartOperation(e.logger, "check_markdown")
			findings := e.check(gctx, texts[i], file)
			op.End(gctx, "source", file, "findings", len(findings))
			if findings == nil {
				findings = []string{}
			}
			reports[i] = FileReport{Source: file, Findings: findings}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func readSource(file string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if file == stdinSource {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to read document").WithContext("path", file)
	}
	return string(data), nil
}

// collectFiles expands directories into the markdown files below them.
// Files named explicitly are kept whatever their extension.
func collectFiles(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		if arg == stdinSource {
			add(arg)
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to read path").WithContext("path", arg)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}

		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && !watcher.NoHiddenFilter(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if watcher.MarkdownFilter(path) && watcher.NoVendorFilter(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.WrapIO(err, errors.ErrCodeFileNotFound, "failed to walk directory").WithContext("path", arg)
		}
		sort.Strings(found)
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}
