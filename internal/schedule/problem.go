package schedule

import "fmt"

// NodeID is a dense identifier assigned at Problem construction, in the
// order nodes were declared. Replacing string keys with array indices is
// what keeps the accounting kernel's hot loops O(1) per lookup instead of
// hashing a name on every frontier scan.
type NodeID int32

// Node is the immutable description of one operator: its ordered inputs,
// its transient workspace (RunMem), its persistent result size
// (OutputMem), and its execution cost (TimeCost). Peak and Impact are
// derived once at construction and never recomputed.
type Node struct {
	Name      string
	Inputs    []NodeID
	RunMem    int64
	OutputMem int64
	TimeCost  int64

	// Peak is max(RunMem, OutputMem): the model assumes the output is
	// produced before the workspace is released, so both are resident at
	// the instant of peak.
	Peak int64

	// Impact is the static, no-freeing net memory added by this node,
	// i.e. OutputMem. DynamicImpact (accounting.go) refines this against
	// a particular schedule state.
	Impact int64
}

// NodeSpec is the construction-time contract described in the external
// interfaces: a name, its ordered input names (which must already be
// defined), and its three costs.
type NodeSpec struct {
	Name      string
	Inputs    []string
	RunMem    int64
	OutputMem int64
	TimeCost  int64
}

// Problem is the immutable graph plus its memory budget. Every accessor
// is read-only; nothing in this package mutates a Problem after
// NewProblem returns.
type Problem struct {
	TotalMemory int64

	nodes     []Node
	nameToID  map[string]NodeID
	consumers [][]NodeID // consumers[u] = nodes that take u as an input, in first-seen order
}

// NewProblem validates and builds a Problem from a flat list of node
// specs. It rejects dangling input references, duplicate names, negative
// costs and cyclic graphs — the core never attempts partial scheduling on
// a malformed Problem.
func NewProblem(totalMemory int64, specs []NodeSpec) (*Problem, error) {
	if totalMemory < 0 {
		return nil, fmt.Errorf("%w: total_memory must be non-negative, got %d", ErrNegativeCost, totalMemory)
	}

	nameToID := make(map[string]NodeID, len(specs))
	for i, sp := range specs {
		if _, exists := nameToID[sp.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, sp.Name)
		}
		nameToID[sp.Name] = NodeID(i)
	}

	nodes := make([]Node, len(specs))
	for i, sp := range specs {
		if sp.RunMem < 0 || sp.OutputMem < 0 || sp.TimeCost < 0 {
			return nil, fmt.Errorf("%w: node %q", ErrNegativeCost, sp.Name)
		}
		inputs := make([]NodeID, len(sp.Inputs))
		for j, inName := range sp.Inputs {
			id, ok := nameToID[inName]
			if !ok {
				return nil, fmt.Errorf("%w: node %q references %q", ErrUnknownInput, sp.Name, inName)
			}
			inputs[j] = id
		}
		peak := sp.RunMem
		if sp.OutputMem > peak {
			peak = sp.OutputMem
		}
		nodes[i] = Node{
			Name:      sp.Name,
			Inputs:    inputs,
			RunMem:    sp.RunMem,
			OutputMem: sp.OutputMem,
			TimeCost:  sp.TimeCost,
			Peak:      peak,
			Impact:    sp.OutputMem,
		}
	}

	consumers := make([][]NodeID, len(nodes))
	for i, n := range nodes {
		for _, in := range n.Inputs {
			consumers[in] = append(consumers[in], NodeID(i))
		}
	}

	p := &Problem{TotalMemory: totalMemory, nodes: nodes, nameToID: nameToID, consumers: consumers}
	if err := detectCycle(p); err != nil {
		return nil, err
	}
	return p, nil
}

// detectCycle runs Kahn's algorithm over the consumer graph; a leftover
// node after the queue drains means a cycle exists.
func detectCycle(p *Problem) error {
	indeg := make([]int, p.NodeCount())
	for i, n := range p.nodes {
		indeg[i] = len(n.Inputs)
	}
	queue := make([]NodeID, 0, p.NodeCount())
	for i := range p.nodes {
		if indeg[i] == 0 {
			queue = append(queue, NodeID(i))
		}
	}
	processed := 0
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		processed++
		for _, v := range p.consumers[u] {
			indeg[v]--
			if indeg[v] == 0 {
				queue = append(queue, v)
			}
		}
	}
	if processed != p.NodeCount() {
		return ErrCycle
	}
	return nil
}

// NodeCount returns the number of nodes in the problem.
func (p *Problem) NodeCount() int { return len(p.nodes) }

// Name returns the declared name of id.
func (p *Problem) Name(id NodeID) string { return p.nodes[id].Name }

// ID resolves a node name back to its dense id, for I/O boundaries.
func (p *Problem) ID(name string) (NodeID, bool) {
	id, ok := p.nameToID[name]
	return id, ok
}

// NodeInfo returns the immutable Node record for id.
func (p *Problem) NodeInfo(id NodeID) Node { return p.nodes[id] }

// Consumers returns the nodes that take id as one of their inputs, in the
// order they were first declared.
func (p *Problem) Consumers(id NodeID) []NodeID { return p.consumers[id] }

// Names returns every node's name in declaration order.
func (p *Problem) Names() []string {
	names := make([]string, len(p.nodes))
	for i, n := range p.nodes {
		names[i] = n.Name
	}
	return names
}
