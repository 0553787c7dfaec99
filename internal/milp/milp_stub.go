//go:build !milp

package milp

import (
	"context"

	"tensorsched/internal/schedule"
)

func refine(_ context.Context, _ *schedule.Problem, current schedule.Result) (schedule.Result, error) {
	return current, ErrMILPUnavailable
}
