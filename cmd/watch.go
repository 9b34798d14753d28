package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/logging"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir...]",
	Short: "Re-check markdown files whenever they change",
	Long: `Watch documentation directories and check every markdown file that is
created or modified. All files are checked once at startup.

Directories default to watch.paths from the configuration.

Examples:
  docsmith watch                         # Watch the configured paths
  docsmith watch docs/ guides/           # Watch specific directories
  docsmith watch --debounce 1s docs/     # Wait longer for editors to settle`,
	PreRunE: bindFlags(watchFlags),
	RunE:    runWatch,
}

var watchFlags = map[string]string{
	"structure": "check.structure",
	"allow":     "check.allowed_links",
	"format":    "output.format",
	"isolation": "pool.isolation",
	"pool-size": "pool.size",
	"timeout":   "pool.timeout",
	"debounce":  "watch.debounce",
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addCheckFlags(watchCmd)
	watchCmd.Flags().StringP("format", "f", "text", "Output format (text, json, yaml, table)")
	watchCmd.Flags().Duration("debounce", 0, "Quiet period before re-checking (default 300ms)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = cfg.Watch.Paths
	}

	e, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer e.Close()

	fileWatcher, err := watcher.NewFileWatcher(cfg.Watch.Debounce, logger)
	if err != nil {
		return err
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.MarkdownFilter)
	fileWatcher.AddFilter(watcher.NoHiddenFilter)
	fileWatcher.AddFilter(watcher.NoVendorFilter)

	out := cmd.OutOrStdout()
	fileWatcher.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		return recheck(ctx, e, out, cfg.Output.Format, changedFiles(events))
	})

	for _, path := range paths {
		if err := fileWatcher.AddRecursive(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s\n", path)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	files, err := collectFiles(paths)
	if err != nil {
		return err
	}
	if err := tolerateRecoverable(ctx, logger, recheck(ctx, e, out, cfg.Output.Format, files)); err != nil {
		return err
	}

	if err := fileWatcher.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// changedFiles returns the paths of events whose file still exists.
func changedFiles(events []watcher.ChangeEvent) []string {
	var files []string
	for _, ev := range events {
		if ev.Type == watcher.EventTypeDeleted || ev.Type == watcher.EventTypeRenamed {
			continue
		}
		if info, err := os.Stat(ev.Path); err == nil && !info.IsDir() {
			files = append(files, ev.Path)
		}
	}
	return files
}

func recheck(ctx context.Context, e *engine, w io.Writer, format string, files []string) error {
	if len(files) == 0 {
		return nil
	}
	reports, err := checkFiles(ctx, e, files, nil)
	if err != nil {
		return err
	}
	return renderSummary(w, format, newSummary(reports))
}

// tolerateRecoverable logs recoverable errors and returns the others.
func tolerateRecoverable(ctx context.Context, logger logging.Logger, err error) error {
	if err == nil || !errors.IsRecoverable(err) {
		return err
	}
	logger.Warn(ctx, err, "Check failed, still watching")
	return nil
}
