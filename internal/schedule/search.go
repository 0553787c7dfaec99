package schedule

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Options bundles every tunable named in the external interfaces
// section: search limits, fallback-ladder shape, and instrumentation.
type Options struct {
	MaxExpansions  int64
	TimeLimit      time.Duration
	BeamWidth      int
	LookaheadDepth int
	BranchFactor   int
	Verbose        bool
	Trace          bool
	Debug          bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxExpansions:  200_000,
		TimeLimit:      5 * time.Second,
		BeamWidth:      64,
		LookaheadDepth: 3,
		BranchFactor:   8,
	}
}

// OptionsForSize returns a problem-size-adaptive preset. It's a starting
// point, not a contract — callers may override any field.
func OptionsForSize(nodeCount int) Options {
	if nodeCount > 200_000 {
		return Options{
			MaxExpansions:  200_000,
			TimeLimit:      100 * time.Millisecond,
			BeamWidth:      1,
			LookaheadDepth: 1,
			BranchFactor:   1,
		}
	}
	return DefaultOptions()
}

// TraceEntry is one per-expansion instrumentation record.
type TraceEntry struct {
	Node         string
	TimeCost     int64
	Memory       int64
	Peak         int64
	FrontierSize int
}

// Stats accumulates search-run counters for diagnostics, plus a run
// identifier for correlating a --trace log stream with one invocation.
type Stats struct {
	RunID          string
	Expansions     int64
	MemoryPrunes   int64
	DeadEnds       int64
	ExpansionsUsed int64
	DeadlineHit    bool
	Trace          []TraceEntry
}

type searchFrame struct {
	ctx            context.Context
	opts           Options
	deadline       time.Time
	expansionsLeft int64
	stats          *Stats
	best           Result
	hasBest        bool
	deadlineHit    bool
}

func (f *searchFrame) exhausted() bool {
	if f.expansionsLeft <= 0 {
		return true
	}
	if !f.deadline.IsZero() && time.Now().After(f.deadline) {
		f.deadlineHit = true
		return true
	}
	select {
	case <-f.ctx.Done():
		f.deadlineHit = true
		return true
	default:
		return false
	}
}

func (f *searchFrame) considerComplete(p *Problem, s *State) {
	candidate := s.ToResult(p)
	if !f.hasBest || Accept(candidate, f.best, p.TotalMemory) {
		f.best = candidate
		f.hasBest = true
	}
}

// boundedDFS is the primary search algorithm: garbage collect, compute
// the frontier (falling back to recompute candidates), prune,
// spill-and-retry-once when every candidate exceeds budget, else execute
// each surviving candidate and recurse — all through an undo log so the
// hot loop stays O(frontier) per expansion rather than O(state).
func boundedDFS(p *Problem, s *State, f *searchFrame) {
	if f.exhausted() {
		return
	}

	if s.Complete(p) {
		f.considerComplete(p, s)
		return
	}

	gcDelta := GarbageCollect(p, s)
	defer UndoGC(s, gcDelta)

	ready := ReadySet(p, s)
	if len(ready) == 0 {
		ready = RecomputeCandidates(p, s)
	}
	if len(ready) == 0 {
		f.stats.DeadEnds++
		return
	}

	pruned := PruneNegativeImpact(p, s, ready)

	allExceed := true
	for _, id := range pruned {
		if SequentialPeak(p, s, id) <= p.TotalMemory {
			allExceed = false
			break
		}
	}

	if allExceed {
		spillDelta := Spill(p, s)
		if !spillDelta.ok {
			f.stats.DeadEnds++
			return
		}
		boundedDFS(p, s, f)
		UndoSpill(s, spillDelta)
		return
	}

	for _, id := range pruned {
		if f.exhausted() {
			return
		}
		if SequentialPeak(p, s, id) > p.TotalMemory {
			f.stats.MemoryPrunes++
			continue
		}
		delta := Execute(p, s, id)
		f.expansionsLeft--
		f.stats.Expansions++
		if f.opts.Trace {
			f.stats.Trace = append(f.stats.Trace, TraceEntry{
				Node:         p.Name(id),
				TimeCost:     p.NodeInfo(id).TimeCost,
				Memory:       s.current,
				Peak:         s.peak,
				FrontierSize: len(pruned),
			})
		}
		boundedDFS(p, s, f)
		Undo(s, delta)
	}
}

// Schedule is the single entry point unifying the primary bounded DFS and
// the fallback ladder behind one policy-driven contract. It returns the
// first complete feasible schedule found; if none is feasible, the best
// complete schedule under Accept; ErrInfeasible is returned alongside
// that best-effort Result when no algorithm produced a feasible
// schedule.
func Schedule(ctx context.Context, p *Problem, opts Options) (Result, Stats, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.MaxExpansions <= 0 {
		opts.MaxExpansions = DefaultOptions().MaxExpansions
	}
	if opts.TimeLimit <= 0 {
		opts.TimeLimit = DefaultOptions().TimeLimit
	}

	deadline := time.Now().Add(opts.TimeLimit)
	stats := Stats{RunID: uuid.NewString()}

	state := NewState(p)
	if opts.Debug {
		state = NewDebugState(p)
	}

	frame := &searchFrame{
		ctx:            ctx,
		opts:           opts,
		deadline:       deadline,
		expansionsLeft: opts.MaxExpansions,
		stats:          &stats,
	}
	boundedDFS(p, state, frame)
	stats.ExpansionsUsed = opts.MaxExpansions - frame.expansionsLeft
	stats.DeadlineHit = frame.deadlineHit

	if frame.hasBest && frame.best.Complete(p) && frame.best.Feasible(p.TotalMemory) {
		return frame.best, stats, nil
	}

	candidates := make([]Result, 0, 5)
	if frame.hasBest {
		candidates = append(candidates, frame.best)
	}

	ladder := []func() Result{
		func() Result { return Heuristic(p) },
		func() Result { return DPGreedy(p, opts.LookaheadDepth, opts.BranchFactor) },
		func() Result { return Beam(p, opts.BeamWidth) },
		func() Result { return Greedy(p) },
	}
	for _, alg := range ladder {
		r := alg()
		candidates = append(candidates, r)
		if r.Complete(p) && r.Feasible(p.TotalMemory) {
			return r, stats, nil
		}
	}

	best, found := bestComplete(p, candidates)
	if found {
		return best, stats, ErrInfeasible
	}
	if frame.hasBest {
		return frame.best, stats, ErrInfeasible
	}
	return Result{}, stats, ErrInfeasible
}

func bestComplete(p *Problem, candidates []Result) (Result, bool) {
	var best Result
	found := false
	for _, c := range candidates {
		if !c.Complete(p) {
			continue
		}
		if !found || Accept(c, best, p.TotalMemory) {
			best = c
			found = true
		}
	}
	return best, found
}

// sortByPeakThenTime orders ready candidates by (sequential_peak,
// time_cost, name) ascending — the documented tie-break for otherwise
// ambiguous ranking.
func sortByPeakThenTime(p *Problem, s *State, ready []NodeID) {
	sort.SliceStable(ready, func(i, j int) bool {
		pi, pj := SequentialPeak(p, s, ready[i]), SequentialPeak(p, s, ready[j])
		if pi != pj {
			return pi < pj
		}
		ti, tj := p.NodeInfo(ready[i]).TimeCost, p.NodeInfo(ready[j]).TimeCost
		if ti != tj {
			return ti < tj
		}
		return p.Name(ready[i]) < p.Name(ready[j])
	})
}
