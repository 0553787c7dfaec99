package schedule

import "sort"

// Stepper is the uniform "advance one step" abstraction each fallback
// algorithm implements instead of exposing its own separate scheduling
// entry point; runStepper drives any of them to a complete (or stuck)
// State.
type Stepper interface {
	Step(p *Problem, s *State, ready []NodeID) (NodeID, bool)
}

func runStepper(p *Problem, stepper Stepper) Result {
	s := NewState(p)
	for !s.Complete(p) {
		GarbageCollect(p, s)
		ready := ReadySet(p, s)
		if len(ready) == 0 {
			ready = RecomputeCandidates(p, s)
		}
		if len(ready) == 0 {
			break
		}
		id, ok := stepper.Step(p, s, ready)
		if !ok {
			break
		}
		Execute(p, s, id)
	}
	return s.ToResult(p)
}

// heuristicStepper prefers any ready candidate with dynamic_impact <= 0
// (breaking ties by smaller peak); failing that, it minimizes
// (sequential_peak, time_cost).
type heuristicStepper struct{}

func (heuristicStepper) Step(p *Problem, s *State, ready []NodeID) (NodeID, bool) {
	found := false
	var best NodeID
	var bestPeak int64
	for _, id := range ready {
		if DynamicImpact(p, s, id) <= 0 {
			peak := p.NodeInfo(id).Peak
			if !found || peak < bestPeak {
				best, bestPeak, found = id, peak, true
			}
		}
	}
	if found {
		return best, true
	}
	return minSeqPeakThenTime(p, s, ready, false)
}

// Heuristic is the greedy negative-impact-first fallback algorithm.
func Heuristic(p *Problem) Result { return runStepper(p, heuristicStepper{}) }

// greedyStepper minimizes (sequential_peak, time_cost) among candidates
// that fit the budget, excluding infeasible ones entirely.
type greedyStepper struct{}

func (greedyStepper) Step(p *Problem, s *State, ready []NodeID) (NodeID, bool) {
	return minSeqPeakThenTime(p, s, ready, true)
}

// Greedy is the last rung of the fallback ladder.
func Greedy(p *Problem) Result { return runStepper(p, greedyStepper{}) }

func minSeqPeakThenTime(p *Problem, s *State, ready []NodeID, excludeInfeasible bool) (NodeID, bool) {
	found := false
	var best NodeID
	var bestSeq, bestTime int64
	for _, id := range ready {
		seq := SequentialPeak(p, s, id)
		if excludeInfeasible && seq > p.TotalMemory {
			continue
		}
		tc := p.NodeInfo(id).TimeCost
		if !found || seq < bestSeq || (seq == bestSeq && tc < bestTime) {
			best, bestSeq, bestTime, found = id, seq, tc, true
		}
	}
	return best, found
}

// DPGreedy ranks the ready set by (sequential_peak, time_cost), takes the
// top branchFactor, simulates each for up to lookaheadDepth greedy
// extensions, and commits to whichever step's rollout minimizes
// (final_peak, final_time) subject to feasibility.
func DPGreedy(p *Problem, lookaheadDepth, branchFactor int) Result {
	if branchFactor < 1 {
		branchFactor = 1
	}
	if lookaheadDepth < 1 {
		lookaheadDepth = 1
	}

	s := NewState(p)
	for !s.Complete(p) {
		GarbageCollect(p, s)
		ready := ReadySet(p, s)
		if len(ready) == 0 {
			ready = RecomputeCandidates(p, s)
		}
		if len(ready) == 0 {
			break
		}
		sortByPeakThenTime(p, s, ready)
		if len(ready) > branchFactor {
			ready = ready[:branchFactor]
		}

		found := false
		var bestID NodeID
		var bestFeasible bool
		var bestPeak, bestTime int64
		for _, id := range ready {
			clone := s.Clone()
			Execute(p, clone, id)
			peak, timeCost, feasible := rollout(p, clone, lookaheadDepth-1)
			if !found || betterRollout(feasible, peak, timeCost, bestFeasible, bestPeak, bestTime) {
				bestID, bestFeasible, bestPeak, bestTime, found = id, feasible, peak, timeCost, true
			}
		}
		if !found {
			break
		}
		Execute(p, s, bestID)
	}
	return s.ToResult(p)
}

func rollout(p *Problem, s *State, depth int) (peak int64, totalTime int64, feasible bool) {
	for i := 0; i < depth && !s.Complete(p); i++ {
		GarbageCollect(p, s)
		ready := ReadySet(p, s)
		if len(ready) == 0 {
			ready = RecomputeCandidates(p, s)
		}
		if len(ready) == 0 {
			break
		}
		id, ok := (greedyStepper{}).Step(p, s, ready)
		if !ok {
			id, ok = (heuristicStepper{}).Step(p, s, ready)
			if !ok {
				break
			}
		}
		Execute(p, s, id)
	}
	return s.peak, s.totalTime, s.peak <= p.TotalMemory
}

func betterRollout(feasibleA bool, peakA, timeA int64, feasibleB bool, peakB, timeB int64) bool {
	if feasibleA != feasibleB {
		return feasibleA
	}
	if peakA != peakB {
		return peakA < peakB
	}
	return timeA < timeB
}

// Beam keeps the top beamWidth partial schedules ranked by
// (feasibility, time, peak); each round expands every surviving schedule
// by its top-beamWidth ready candidates.
func Beam(p *Problem, beamWidth int) Result {
	if beamWidth < 1 {
		beamWidth = 1
	}

	beam := []*State{NewState(p)}
	for {
		done := true
		for _, st := range beam {
			if !st.Complete(p) {
				done = false
				break
			}
		}
		if done {
			break
		}

		var next []*State
		expanded := false
		for _, st := range beam {
			if st.Complete(p) {
				next = append(next, st)
				continue
			}
			GarbageCollect(p, st)
			ready := ReadySet(p, st)
			if len(ready) == 0 {
				ready = RecomputeCandidates(p, st)
			}
			if len(ready) == 0 {
				next = append(next, st)
				continue
			}
			sortByPeakThenTime(p, st, ready)
			top := ready
			if len(top) > beamWidth {
				top = top[:beamWidth]
			}
			for _, id := range top {
				child := st.Clone()
				Execute(p, child, id)
				next = append(next, child)
				expanded = true
			}
		}
		if !expanded {
			break
		}
		sortStatesByAcceptance(p, next)
		if len(next) > beamWidth {
			next = next[:beamWidth]
		}
		beam = next
	}

	var best *State
	for _, st := range beam {
		if best == nil || Accept(st.ToResult(p), best.ToResult(p), p.TotalMemory) {
			best = st
		}
	}
	if best == nil {
		return Result{}
	}
	return best.ToResult(p)
}

func sortStatesByAcceptance(p *Problem, states []*State) {
	sort.SliceStable(states, func(i, j int) bool {
		si, sj := states[i], states[j]
		fi := si.peak <= p.TotalMemory
		fj := sj.peak <= p.TotalMemory
		if fi != fj {
			return fi
		}
		if si.totalTime != sj.totalTime {
			return si.totalTime < sj.totalTime
		}
		return si.peak < sj.peak
	})
}

// Baseline computes a plain topological order with no freeing at all,
// useful as a reference column showing how much the accounting kernel
// and pruning actually save.
func Baseline(p *Problem) Result {
	n := p.NodeCount()
	indeg := make([]int, n)
	for i := 0; i < n; i++ {
		indeg[i] = len(p.NodeInfo(NodeID(i)).Inputs)
	}
	queue := make([]NodeID, 0, n)
	for i := 0; i < n; i++ {
		if indeg[i] == 0 {
			queue = append(queue, NodeID(i))
		}
	}

	order := make([]NodeID, 0, n)
	var totalTime, current, peak int64
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		order = append(order, u)
		node := p.NodeInfo(u)
		totalTime += node.TimeCost
		current += node.OutputMem
		if current > peak {
			peak = current
		}
		for _, v := range p.Consumers(u) {
			indeg[v]--
			if indeg[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	names := make([]string, len(order))
	for i, id := range order {
		names[i] = p.Name(id)
	}
	flags := make([]bool, len(order))
	return Result{ExecutionOrder: names, RecomputeFlags: flags, TotalTime: totalTime, MemoryPeak: peak}
}
