package schedule

// Result is the schedule result contract exposed to callers: the derived
// fields a caller needs, detached from the internal State representation.
type Result struct {
	ExecutionOrder []string
	RecomputeFlags []bool
	TotalTime      int64
	MemoryPeak     int64
}

// Feasible reports whether the observed peak respects budget.
func (r Result) Feasible(budget int64) bool { return r.MemoryPeak <= budget }

// Complete reports whether every node in p appears at least once in the
// execution order (recomputations may make ExecutionOrder longer than
// p.NodeCount(), so this checks distinct names, not length).
func (r Result) Complete(p *Problem) bool {
	if len(r.ExecutionOrder) < p.NodeCount() {
		return false
	}
	seen := make(map[string]struct{}, p.NodeCount())
	for _, name := range r.ExecutionOrder {
		seen[name] = struct{}{}
	}
	return len(seen) == p.NodeCount()
}

// Accept implements the schedule acceptance predicate: feasibility beats
// infeasibility, then smaller total_time wins, then smaller memory_peak.
// It reports whether candidate is strictly better than current.
func Accept(candidate, current Result, budget int64) bool {
	cf := candidate.Feasible(budget)
	kf := current.Feasible(budget)
	if cf != kf {
		return cf
	}
	if candidate.TotalTime != current.TotalTime {
		return candidate.TotalTime < current.TotalTime
	}
	return candidate.MemoryPeak < current.MemoryPeak
}
