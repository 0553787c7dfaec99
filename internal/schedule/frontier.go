package schedule

import "math"

// ReadySet returns nodes not yet computed whose every input is currently
// resident. This is stronger than plain topological readiness — it also
// demands the inputs still be in memory, which is what ties readiness to
// the spill/recompute model.
//
// Iteration is by dense id order, i.e. declaration order, which is what
// gives the search its determinism guarantee: the same input always
// walks the ready set in the same order.
func ReadySet(p *Problem, s *State) []NodeID {
	var ready []NodeID
	for i := 0; i < p.NodeCount(); i++ {
		id := NodeID(i)
		if s.IsComputed(id) {
			continue
		}
		if allInputsResident(p, s, id) {
			ready = append(ready, id)
		}
	}
	return ready
}

// RecomputeCandidates returns nodes whose output has been evicted, that
// still have an uncomputed consumer, and whose own inputs are all
// resident again — the only candidates left when ReadySet is empty,
// since any not-yet-computed node with all inputs resident would already
// have appeared there.
func RecomputeCandidates(p *Problem, s *State) []NodeID {
	var candidates []NodeID
	for i := 0; i < p.NodeCount(); i++ {
		id := NodeID(i)
		if s.IsResident(id) {
			continue
		}
		if !s.IsComputed(id) {
			continue
		}
		if !hasUncomputedConsumer(p, s, id) {
			continue
		}
		if allInputsResident(p, s, id) {
			candidates = append(candidates, id)
		}
	}
	return candidates
}

func allInputsResident(p *Problem, s *State, id NodeID) bool {
	for _, in := range p.NodeInfo(id).Inputs {
		if !s.IsResident(in) {
			return false
		}
	}
	return true
}

func hasUncomputedConsumer(p *Problem, s *State, id NodeID) bool {
	for _, c := range p.Consumers(id) {
		if !s.IsComputed(c) {
			return true
		}
	}
	return false
}

// PruneNegativeImpact finds the ready candidate with dynamic_impact <= 0
// and minimum peak. If that candidate's sequential_peak would not raise
// the observed ceiling, it is dominant and the frontier collapses to it
// alone. Otherwise every candidate with a strictly smaller peak survives
// alongside it. With no negative candidate, the ready set passes through
// unchanged.
func PruneNegativeImpact(p *Problem, s *State, ready []NodeID) []NodeID {
	if len(ready) == 0 {
		return ready
	}

	bestIdx := -1
	var bestPeak int64 = math.MaxInt64
	for i, id := range ready {
		if DynamicImpact(p, s, id) <= 0 {
			peak := p.NodeInfo(id).Peak
			if peak < bestPeak {
				bestIdx = i
				bestPeak = peak
			}
		}
	}
	if bestIdx == -1 {
		return ready
	}

	best := ready[bestIdx]
	if SequentialPeak(p, s, best) <= s.peak {
		return []NodeID{best}
	}

	pruned := make([]NodeID, 0, len(ready))
	for _, id := range ready {
		if id == best || p.NodeInfo(id).Peak < bestPeak {
			pruned = append(pruned, id)
		}
	}
	if len(pruned) == 0 {
		return ready
	}
	return pruned
}
