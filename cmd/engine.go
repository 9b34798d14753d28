package cmd

import (
	"context"
	"os"
	"time"

	"github.com/li-yechao/aigne-doc-smith-sub000/internal/checker"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/config"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/diagram"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/errors"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/linkset"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/logging"
	"github.com/li-yechao/aigne-doc-smith-sub000/internal/sandbox"
)

const shutdownTimeout = 5 * time.Second

// engine wires the pool, the diagram checker and the document checker for
// one command invocation.
type engine struct {
	pool    *sandbox.Pool
	diagram *diagram.Checker
	checker *checker.Checker
	allowed *linkset.Set
	logger  logging.Logger
}

func newEngine(cfg *config.Config, logger logging.Logger) (*engine, error) {
	factory, err := unitFactory(cfg)
	if err != nil {
		return nil, err
	}

	pool := sandbox.NewPool(cfg.SandboxConfig(), factory, logger)
	syntax := diagram.NewChecker(pool, logger)

	e := &engine{
		pool:    pool,
		diagram: syntax,
		checker: checker.NewChecker(syntax, checker.Config{
			DiagramLanguages: cfg.Check.DiagramLanguages,
			LintRules:        cfg.Check.LintRules,
		}, logger),
		logger: logger,
	}

	allowed, err := allowedLinks(cfg)
	if err != nil {
		return nil, err
	}
	e.allowed = allowed
	return e, nil
}

func unitFactory(cfg *config.Config) (sandbox.UnitFactory, error) {
	if cfg.Pool.Isolation != config.IsolationProcess {
		return sandbox.GoroutineFactory(sandbox.MermaidValidator), nil
	}

	if len(cfg.Pool.WorkerCommand) > 0 {
		return sandbox.ProcessFactory(cfg.Pool.WorkerCommand[0], cfg.Pool.WorkerCommand[1:]...), nil
	}
	self, err := os.Executable()
	if err != nil {
		return nil, errors.WrapInternal(err, errors.ErrCodeWorkerSpawn, "failed to locate docsmith executable for process workers")
	}
	return sandbox.ProcessFactory(self, workerCmd.Name()), nil
}

// allowedLinks merges the structure plan with explicitly allowed links. It
// returns nil when neither is configured so that link checking stays off.
func allowedLinks(cfg *config.Config) (*linkset.Set, error) {
	if cfg.Check.Structure == "" && len(cfg.Check.AllowedLinks) == 0 {
		return nil, nil
	}

	set := linkset.New()
	if cfg.Check.Structure != "" {
		plan, err := linkset.LoadStructureFile(cfg.Check.Structure)
		if err != nil {
			return nil, err
		}
		set = linkset.New(plan.Paths()...)
	}
	for _, link := range cfg.Check.AllowedLinks {
		set.Add(link)
	}
	return set, nil
}

// options returns the per-document options. A nil set must not become a
// non-nil interface.
func (e *engine) options() checker.Options {
	if e.allowed == nil {
		return checker.Options{}
	}
	return checker.Options{AllowedLinks: e.allowed}
}

// check validates one document.
func (e *engine) check(ctx context.Context, text, source string) []string {
	return e.checker.CheckMarkdown(ctx, text, source, e.options())
}

// Close shuts the pool down.
func (e *engine) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.pool.Shutdown(ctx); err != nil {
		e.logger.Warn(ctx, err, "Pool shutdown did not finish")
	}
}
