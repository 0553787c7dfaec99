// Package milp is an optional, off-ladder refinement stage that can
// polish an already-feasible schedule with a MILP solver. No solver
// binding is vendored here: the only implementation of refine is the
// "!milp" stub, which always reports ErrMILPUnavailable, leaving
// Schedule's fallback ladder as the only path that actually produces a
// result. Building with the "milp" tag leaves refine undefined.
package milp

import (
	"context"
	"errors"

	"tensorsched/internal/schedule"
)

// ErrMILPUnavailable is returned by Refine when no solver binding is
// compiled in.
var ErrMILPUnavailable = errors.New("milp: no solver binding compiled in")

// Refine attempts to improve an already-feasible Result using a
// MILP-backed solver. It must honor schedule.Result's feasibility and
// acceptance contract if it is ever implemented: never return a result
// worse under schedule.Accept than the one it was given.
func Refine(ctx context.Context, p *schedule.Problem, current schedule.Result) (schedule.Result, error) {
	return refine(ctx, p, current)
}
