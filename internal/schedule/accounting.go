package schedule

// SequentialPeak returns the memory ceiling if node ran next: everything
// currently resident plus node's own peak (max(run_mem, output_mem)), compared
// against the highest peak already observed.
func SequentialPeak(p *Problem, s *State, node NodeID) int64 {
	n := p.NodeInfo(node)
	candidate := n.Peak + s.current
	if candidate > s.peak {
		return candidate
	}
	return s.peak
}

// FreeableInputs returns node's inputs whose last remaining consumer
// (other than possibly node itself) has already executed — i.e. inputs
// that become garbage the instant node runs. The check is against a
// hypothetical post-state that already includes node, so node consuming
// its own input never blocks that input from being freed.
func FreeableInputs(p *Problem, s *State, node NodeID) []NodeID {
	n := p.NodeInfo(node)
	if len(n.Inputs) == 0 {
		return nil
	}
	freeable := make([]NodeID, 0, len(n.Inputs))
	for _, in := range n.Inputs {
		consumers := p.Consumers(in)
		allDone := true
		for _, c := range consumers {
			if c == node {
				continue
			}
			if !s.IsComputed(c) {
				allDone = false
				break
			}
		}
		if allDone {
			freeable = append(freeable, in)
		}
	}
	return freeable
}

// DynamicImpact is node's output_mem minus the resident size of every
// input that becomes freeable when node runs. It may be negative.
func DynamicImpact(p *Problem, s *State, node NodeID) int64 {
	var freed int64
	for _, in := range FreeableInputs(p, s, node) {
		if sz, ok := s.outputMem[in]; ok {
			freed += sz
		}
	}
	return p.NodeInfo(node).OutputMem - freed
}

// StepDelta is the undo record produced by Execute, letting the search
// driver revert a State in place instead of keeping a full copy per
// recursion frame.
type StepDelta struct {
	node             NodeID
	recompute        bool
	freedInputs      map[NodeID]int64
	prevCurrent      int64
	prevPeak         int64
	prevTotalTime    int64
	prevOutputAtNode int64
	hadOutputAtNode  bool
	firstComputed    bool
}

// Execute mutates s to reflect node running next: it raises memory_peak
// via SequentialPeak, frees every input FreeableInputs reports, adds
// node's own output, appends to the execution trace, and marks node
// computed. It returns the delta needed to undo the mutation.
func Execute(p *Problem, s *State, node NodeID) StepDelta {
	n := p.NodeInfo(node)
	wasComputed := s.IsComputed(node)

	delta := StepDelta{
		node:          node,
		recompute:     wasComputed,
		prevCurrent:   s.current,
		prevPeak:      s.peak,
		prevTotalTime: s.totalTime,
		firstComputed: !wasComputed,
	}

	s.peak = SequentialPeak(p, s, node)

	freeable := FreeableInputs(p, s, node)
	delta.freedInputs = make(map[NodeID]int64, len(freeable))
	var freed int64
	for _, in := range freeable {
		if sz, ok := s.outputMem[in]; ok {
			delta.freedInputs[in] = sz
			freed += sz
			delete(s.outputMem, in)
		}
	}
	s.current -= freed

	delta.prevOutputAtNode, delta.hadOutputAtNode = s.outputMem[node]
	newCurrent := s.current + n.OutputMem
	// current_memory is clamped at zero after subtraction, but debug mode
	// asserts against negative pre-clamp drift instead of hiding it —
	// that only happens on a double-free or a missing produce upstream.
	s.assertNonNegative(newCurrent, "current_memory before clamp in Execute")
	if newCurrent < 0 {
		newCurrent = 0
	}
	s.current = newCurrent
	s.outputMem[node] = n.OutputMem
	s.totalTime += n.TimeCost
	s.order = append(s.order, node)
	s.recompute = append(s.recompute, delta.recompute)

	if delta.firstComputed {
		s.computed.set(int(node))
		s.computedCount++
	}
	return delta
}

// Undo reverts the mutation Execute performed, in exactly the reverse
// order it was applied.
func Undo(s *State, d StepDelta) {
	s.order = s.order[:len(s.order)-1]
	s.recompute = s.recompute[:len(s.recompute)-1]
	if d.firstComputed {
		s.computed.clear(int(d.node))
		s.computedCount--
	}
	s.totalTime = d.prevTotalTime
	if d.hadOutputAtNode {
		s.outputMem[d.node] = d.prevOutputAtNode
	} else {
		delete(s.outputMem, d.node)
	}
	for in, sz := range d.freedInputs {
		s.outputMem[in] = sz
	}
	s.current = d.prevCurrent
	s.peak = d.prevPeak
}
