package schedule

// State is the mutable in-progress schedule. The search driver owns one
// State per DFS path and threads it through recursion via an undo-log
// (see accounting.go's StepDelta and spill.go's GCDelta) rather than deep-copying it
// per expansion; Clone is reserved for the fallback ladder's algorithms
// (beam search, DP-greedy lookahead), which must keep several independent
// partial schedules alive at once.
type State struct {
	order         []NodeID
	recompute     []bool
	outputMem     map[NodeID]int64
	current       int64
	peak          int64
	totalTime     int64
	computed      bitset
	computedCount int

	// debug gates the invariant assertions in invariants.go. It is never
	// exposed on Result; it only affects panics during development runs.
	debug bool
}

// NewState returns an empty schedule state for p.
func NewState(p *Problem) *State {
	return &State{
		outputMem: make(map[NodeID]int64),
		computed:  newBitset(p.NodeCount()),
	}
}

// NewDebugState is NewState with invariant assertions enabled.
func NewDebugState(p *Problem) *State {
	s := NewState(p)
	s.debug = true
	return s
}

// Clone returns an independent deep copy. Only the fallback ladder uses
// this; the bounded DFS driver never clones a State.
func (s *State) Clone() *State {
	outputMem := make(map[NodeID]int64, len(s.outputMem))
	for k, v := range s.outputMem {
		outputMem[k] = v
	}
	order := make([]NodeID, len(s.order))
	copy(order, s.order)
	recompute := make([]bool, len(s.recompute))
	copy(recompute, s.recompute)
	return &State{
		order:         order,
		recompute:     recompute,
		outputMem:     outputMem,
		current:       s.current,
		peak:          s.peak,
		totalTime:     s.totalTime,
		computed:      s.computed.clone(),
		computedCount: s.computedCount,
		debug:         s.debug,
	}
}

// Complete reports whether every node in p has executed at least once.
func (s *State) Complete(p *Problem) bool { return s.computedCount == p.NodeCount() }

// CurrentMemory returns the sum of resident output sizes.
func (s *State) CurrentMemory() int64 { return s.current }

// MemoryPeak returns the highest sequential peak observed so far.
func (s *State) MemoryPeak() int64 { return s.peak }

// TotalTime returns the running sum of executed (including recomputed)
// time costs.
func (s *State) TotalTime() int64 { return s.totalTime }

// IsResident reports whether id's output currently occupies memory.
func (s *State) IsResident(id NodeID) bool {
	_, ok := s.outputMem[id]
	return ok
}

// IsComputed reports whether id has executed at least once.
func (s *State) IsComputed(id NodeID) bool { return s.computed.get(int(id)) }

// ToResult converts the state into the exported Result contract.
func (s *State) ToResult(p *Problem) Result {
	names := make([]string, len(s.order))
	for i, id := range s.order {
		names[i] = p.Name(id)
	}
	flags := make([]bool, len(s.recompute))
	copy(flags, s.recompute)
	return Result{
		ExecutionOrder: names,
		RecomputeFlags: flags,
		TotalTime:      s.totalTime,
		MemoryPeak:     s.peak,
	}
}
