package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"lectern/internal/discovery"
	"lectern/internal/logging"
	"lectern/internal/plan"
	"lectern/internal/services"
)

// Orchestrator walks a directory tree and drives every resolved unit through
// the Runner. Each directory's three passes finish before its subdirectories
// are visited.
type Orchestrator struct {
	runner *Runner
	logger *slog.Logger
}

// NewOrchestrator constructs an Orchestrator around a Runner.
func NewOrchestrator(runner *Runner, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		runner: runner,
		logger: logging.NewComponentLogger(logger, "orchestrator"),
	}
}

// ProcessTree processes root and its subtree, returning an aggregated report.
// A single unit's failure never aborts the walk; only cancellation or an
// unreadable root stops it early.
func (o *Orchestrator) ProcessTree(ctx context.Context, root string) (*Report, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("process tree: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("process tree: %s is not a directory", root)
	}

	report := &Report{Root: root}
	if runID, ok := services.RunIDFromContext(ctx); ok {
		report.RunID = runID
	}
	if err := o.processDir(ctx, root, report); err != nil {
		return report, err
	}
	return report, nil
}

func (o *Orchestrator) processDir(ctx context.Context, dir string, report *Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dctx := services.WithDirectory(ctx, dir)
	logger := logging.WithContext(dctx, o.logger)

	files, err := discovery.Discover(dir)
	if err != nil {
		logger.Warn("skipping unreadable directory", logging.Error(err))
		report.DirectoryErrors = append(report.DirectoryErrors, DirectoryError{Dir: dir, Err: err})
	} else {
		units := plan.Resolve(dir, discovery.GroupByStem(files))
		if len(units) > 0 {
			logger.Info("processing directory", logging.Int("units", len(units)))
		}
		for _, unit := range units {
			if err := ctx.Err(); err != nil {
				return err
			}
			report.Units = append(report.Units, o.runner.Run(dctx, unit))
		}
	}

	subdirs, err := discovery.Subdirs(dir)
	if err != nil {
		report.DirectoryErrors = append(report.DirectoryErrors, DirectoryError{Dir: dir, Err: err})
		return nil
	}
	for _, subdir := range subdirs {
		if err := o.processDir(ctx, subdir, report); err != nil {
			return err
		}
	}
	return nil
}
