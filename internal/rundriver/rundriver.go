// Package rundriver adapts pkg/worldgen's Driver for a CLI/caller that
// wants structured logging and a per-run identifier: pkg/worldgen itself
// never imports a logging library or a UUID generator, so that it can be
// embedded anywhere without dragging in an opinionated stack. rundriver is
// where that opinion lives.
package rundriver

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gitrdm/aomg-go/pkg/worldgen"
)

// Result is the outcome of one Run: the run's identifier (for correlating
// log lines across a batch of attempts), the completed world, and the
// number of backtracks it took to get there.
type Result struct {
	RunID      string
	World      *worldgen.World
	Backtracks int
}

// Run generates world with a fresh per-run UUID and a zap-backed Driver:
// every deduction/backtrack log line carries the run ID as a structured
// field, and a backtrack increments Result.Backtracks instead of being
// silently swallowed.
func Run(logger *zap.SugaredLogger, world *worldgen.World, seed []byte) (*Result, error) {
	runID := uuid.NewString()
	run := logger.With("run_id", runID)

	result := &Result{RunID: runID}
	d := &worldgen.Driver{
		Logger: func(format string, args ...interface{}) {
			run.Debugf(format, args...)
		},
		OnBacktrack: func(path []string) {
			result.Backtracks++
			run.Warnw("backtracking", "path", fmt.Sprint(path), "attempt", result.Backtracks)
		},
	}

	run.Infow("generation starting", "seeded", len(seed) > 0)
	generated, err := d.Generate(world, seed)
	if err != nil {
		run.Errorw("generation failed", "error", err, "backtracks", result.Backtracks)
		return result, err
	}
	run.Infow("generation complete", "backtracks", result.Backtracks)
	result.World = generated
	return result, nil
}
