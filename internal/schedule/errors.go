package schedule

import "errors"

// Construction-time errors. NewProblem rejects a malformed spec outright;
// the core never attempts to schedule around a bad graph.
var (
	ErrCycle         = errors.New("schedule: node graph contains a cycle")
	ErrUnknownInput  = errors.New("schedule: node references an undefined input")
	ErrNegativeCost  = errors.New("schedule: run_mem, output_mem and time_cost must be non-negative")
	ErrDuplicateName = errors.New("schedule: duplicate node name")
)

// ErrInfeasible is returned by Schedule when the fallback ladder exhausts
// itself without finding a complete schedule within total_memory. The
// caller still receives the best-effort Result alongside this error.
var ErrInfeasible = errors.New("schedule: no feasible complete schedule found")
