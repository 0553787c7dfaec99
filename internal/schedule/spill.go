package schedule

import "sort"

// GCDelta is the undo record for one opportunistic GarbageCollect pass.
type GCDelta struct {
	removed map[NodeID]int64
}

// GarbageCollect drops every resident output with no remaining
// uncomputed consumer, opportunistically and unconditionally — it is not
// mandatory that an output be collected the instant it becomes garbage,
// but the search driver calls this before computing each frontier.
func GarbageCollect(p *Problem, s *State) GCDelta {
	var removed map[NodeID]int64
	for id, sz := range s.outputMem {
		if !hasUncomputedConsumer(p, s, id) {
			if removed == nil {
				removed = make(map[NodeID]int64)
			}
			removed[id] = sz
		}
	}
	var freed int64
	for id, sz := range removed {
		delete(s.outputMem, id)
		freed += sz
	}
	newCurrent := s.current - freed
	s.assertNonNegative(newCurrent, "current_memory before clamp in GarbageCollect")
	if newCurrent < 0 {
		newCurrent = 0
	}
	s.current = newCurrent
	return GCDelta{removed: removed}
}

// UndoGC restores every entry a GarbageCollect pass removed.
func UndoGC(s *State, d GCDelta) {
	for id, sz := range d.removed {
		s.outputMem[id] = sz
		s.current += sz
	}
}

// SpillDelta is the undo record for one eviction.
type SpillDelta struct {
	node NodeID
	size int64
	ok   bool
}

// ChooseSpillVictim scores each resident output by size divided by
// max(1, time_cost) — bigger and cheaper to recompute is evicted first.
// Candidates are collected into a slice and ranked with a deterministic
// sort rather than compared during map iteration, so ties (on score, then
// size) always resolve the same way regardless of map order: the same
// pattern search.go's sortByPeakThenTime uses for ready-list ties.
func ChooseSpillVictim(p *Problem, s *State) (NodeID, bool) {
	type candidate struct {
		id    NodeID
		size  int64
		score float64
	}
	candidates := make([]candidate, 0, len(s.outputMem))
	for id, sz := range s.outputMem {
		denom := p.NodeInfo(id).TimeCost
		if denom < 1 {
			denom = 1
		}
		candidates = append(candidates, candidate{id: id, size: sz, score: float64(sz) / float64(denom)})
	}
	if len(candidates) == 0 {
		return 0, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.size != b.size {
			return a.size > b.size
		}
		return p.Name(a.id) < p.Name(b.id)
	})
	return candidates[0].id, true
}

// Spill evicts ChooseSpillVictim's pick from s. It reports false if
// nothing is resident to evict — a dead end for the caller, not a fatal
// error.
func Spill(p *Problem, s *State) SpillDelta {
	node, ok := ChooseSpillVictim(p, s)
	if !ok {
		return SpillDelta{ok: false}
	}
	sz := s.outputMem[node]
	delete(s.outputMem, node)
	newCurrent := s.current - sz
	s.assertNonNegative(newCurrent, "current_memory before clamp in Spill")
	if newCurrent < 0 {
		newCurrent = 0
	}
	s.current = newCurrent
	return SpillDelta{node: node, size: sz, ok: true}
}

// UndoSpill restores the evicted entry.
func UndoSpill(s *State, d SpillDelta) {
	if !d.ok {
		return
	}
	s.outputMem[d.node] = d.size
	s.current += d.size
}
