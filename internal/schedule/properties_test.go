package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// replayVerify replays r.ExecutionOrder from an empty State using the
// same GarbageCollect-then-Execute step the search driver uses, and checks the core
// invariants a schedule must satisfy: topological correctness (every
// input already computed and resident when its consumer runs),
// accounting consistency (current_memory == sum(output_memory) after
// every step), the recompute-flag law, and that the replayed
// memory_peak/total_time match the reported Result.
func replayVerify(t *testing.T, p *Problem, r Result) {
	t.Helper()
	s := NewState(p)
	seen := make(map[string]bool)

	for i, name := range r.ExecutionOrder {
		id, ok := p.ID(name)
		require.Truef(t, ok, "step %d: unknown node %q", i, name)

		GarbageCollect(p, s)
		for _, in := range p.NodeInfo(id).Inputs {
			assert.Truef(t, s.IsResident(in), "step %d (%s): input %q must be resident", i, name, p.Name(in))
		}

		wantRecompute := seen[name]
		gotRecompute := i < len(r.RecomputeFlags) && r.RecomputeFlags[i]
		assert.Equalf(t, wantRecompute, gotRecompute, "step %d (%s): recompute flag law violated", i, name)
		seen[name] = true

		Execute(p, s, id)

		var sum int64
		for _, sz := range s.outputMem {
			sum += sz
		}
		assert.Equalf(t, sum, s.current, "step %d (%s): current_memory must equal sum(output_memory)", i, name)
	}

	assert.Equal(t, r.MemoryPeak, s.peak, "replayed memory_peak must match reported value")
	assert.Equal(t, r.TotalTime, s.totalTime, "replayed total_time must match reported value")
}

func mustBuild(t *testing.T, budget int64, specs []NodeSpec) *Problem {
	t.Helper()
	p, err := NewProblem(budget, specs)
	require.NoError(t, err)
	return p
}

func TestScenario1_LinearChain(t *testing.T) {
	p := mustBuild(t, 100, []NodeSpec{
		{Name: "A", RunMem: 10, OutputMem: 20, TimeCost: 1},
		{Name: "B", Inputs: []string{"A"}, RunMem: 10, OutputMem: 20, TimeCost: 1},
		{Name: "C", Inputs: []string{"B"}, RunMem: 10, OutputMem: 20, TimeCost: 1},
	})
	r, _, err := Schedule(context.Background(), p, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, r.Complete(p))
	assert.True(t, r.Feasible(p.TotalMemory))
	replayVerify(t, p, r)
}

func TestScenario2_DiamondSharedProducer(t *testing.T) {
	p := mustBuild(t, 100, []NodeSpec{
		{Name: "A", RunMem: 10, OutputMem: 40, TimeCost: 1},
		{Name: "B", Inputs: []string{"A"}, RunMem: 10, OutputMem: 20, TimeCost: 1},
		{Name: "C", Inputs: []string{"A"}, RunMem: 10, OutputMem: 20, TimeCost: 1},
		{Name: "D", Inputs: []string{"B", "C"}, RunMem: 10, OutputMem: 10, TimeCost: 1},
	})
	r, _, err := Schedule(context.Background(), p, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, r.Complete(p))
	assert.True(t, r.Feasible(p.TotalMemory))
	replayVerify(t, p, r)
}

func TestScenario3_MemoryFreeingPruneFires(t *testing.T) {
	p := mustBuild(t, 50, []NodeSpec{
		{Name: "A", RunMem: 1, OutputMem: 40, TimeCost: 1},
		{Name: "B", RunMem: 1, OutputMem: 5, TimeCost: 1},
		{Name: "C", Inputs: []string{"A"}, RunMem: 1, OutputMem: 5, TimeCost: 1},
	})
	r, _, err := Schedule(context.Background(), p, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, r.Complete(p))
	assert.True(t, r.Feasible(p.TotalMemory))
	replayVerify(t, p, r)

	// The negative-impact prune should make C run before B: once A is
	// resident, C's dynamic_impact is negative (it frees more than it
	// allocates) while B's is not, so the frontier collapses toward C.
	posC, posB := -1, -1
	for i, name := range r.ExecutionOrder {
		if name == "C" {
			posC = i
		}
		if name == "B" {
			posB = i
		}
	}
	assert.Less(t, posC, posB)
}

func TestScenario4_SpillAndRecomputeCandidate(t *testing.T) {
	p := mustBuild(t, 30, []NodeSpec{
		{Name: "A", RunMem: 1, OutputMem: 20, TimeCost: 5},
		{Name: "B", Inputs: []string{"A"}, RunMem: 1, OutputMem: 5, TimeCost: 1},
		{Name: "C", RunMem: 1, OutputMem: 20, TimeCost: 5},
		{Name: "D", Inputs: []string{"B", "C"}, RunMem: 1, OutputMem: 1, TimeCost: 1},
	})
	r, _, err := Schedule(context.Background(), p, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, r.Complete(p))
	assert.True(t, r.Feasible(p.TotalMemory))
	replayVerify(t, p, r)
}

// TestScenario5_SinkOutputsNeverNeedRecomputing covers a tight-budget
// diamond where A feeds two sinks B and C with nothing downstream of
// either. Neither sink has a consumer, so GarbageCollect frees each one
// the instant it finishes running: B is gone again well before C would
// ever need the budget A occupies, so the search never has to spill A
// and recompute it. The schedule stays a plain 3-step run at exactly
// the budget's peak.
func TestScenario5_SinkOutputsNeverNeedRecomputing(t *testing.T) {
	p := mustBuild(t, 25, []NodeSpec{
		{Name: "A", RunMem: 1, OutputMem: 20, TimeCost: 5},
		{Name: "B", Inputs: []string{"A"}, RunMem: 1, OutputMem: 5, TimeCost: 1},
		{Name: "C", Inputs: []string{"A"}, RunMem: 1, OutputMem: 5, TimeCost: 1},
	})
	r, _, err := Schedule(context.Background(), p, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, r.Complete(p))
	assert.True(t, r.Feasible(p.TotalMemory))
	replayVerify(t, p, r)

	assert.Lenf(t, r.ExecutionOrder, 3, "no node should need a second, recomputed execution")
	for _, recomputed := range r.RecomputeFlags {
		assert.False(t, recomputed)
	}
	assert.EqualValues(t, 25, r.MemoryPeak)
	assert.EqualValues(t, 7, r.TotalTime)
}

func TestScenario6_Infeasible(t *testing.T) {
	p := mustBuild(t, 5, []NodeSpec{
		{Name: "A", RunMem: 1, OutputMem: 10, TimeCost: 1},
	})
	r, _, err := Schedule(context.Background(), p, DefaultOptions())
	assert.ErrorIs(t, err, ErrInfeasible)
	assert.False(t, r.Feasible(p.TotalMemory))
}

func TestProperty_DeterminismAcrossRuns(t *testing.T) {
	p := mustBuild(t, 100, []NodeSpec{
		{Name: "A", RunMem: 10, OutputMem: 40, TimeCost: 1},
		{Name: "B", Inputs: []string{"A"}, RunMem: 10, OutputMem: 20, TimeCost: 1},
		{Name: "C", Inputs: []string{"A"}, RunMem: 10, OutputMem: 20, TimeCost: 1},
		{Name: "D", Inputs: []string{"B", "C"}, RunMem: 10, OutputMem: 10, TimeCost: 1},
	})
	r1, _, err1 := Schedule(context.Background(), p, DefaultOptions())
	require.NoError(t, err1)
	r2, _, err2 := Schedule(context.Background(), p, DefaultOptions())
	require.NoError(t, err2)
	assert.Equal(t, r1, r2)
}

func TestProperty_TerminationUnderTightBudgets(t *testing.T) {
	p := mustBuild(t, 100, []NodeSpec{
		{Name: "A", RunMem: 10, OutputMem: 40, TimeCost: 1},
		{Name: "B", Inputs: []string{"A"}, RunMem: 10, OutputMem: 20, TimeCost: 1},
		{Name: "C", Inputs: []string{"A"}, RunMem: 10, OutputMem: 20, TimeCost: 1},
		{Name: "D", Inputs: []string{"B", "C"}, RunMem: 10, OutputMem: 10, TimeCost: 1},
	})
	opts := DefaultOptions()
	opts.MaxExpansions = 5
	opts.TimeLimit = 50 * time.Millisecond

	done := make(chan struct{})
	go func() {
		Schedule(context.Background(), p, opts)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Schedule did not terminate under a tight expansion/time budget")
	}
}

func TestProperty_MonotoneImprovement(t *testing.T) {
	better := Result{TotalTime: 5, MemoryPeak: 10}
	worseTime := Result{TotalTime: 6, MemoryPeak: 5}
	worsePeak := Result{TotalTime: 5, MemoryPeak: 20}
	infeasible := Result{TotalTime: 1, MemoryPeak: 1000}

	assert.True(t, Accept(better, worseTime, 100))
	assert.True(t, Accept(better, worsePeak, 100))
	assert.False(t, Accept(worseTime, better, 100))
	assert.True(t, Accept(better, infeasible, 100))
	assert.False(t, Accept(infeasible, better, 100))
}

func TestProperty_UndoIsExactInverse(t *testing.T) {
	p := mustBuild(t, 100, []NodeSpec{
		{Name: "A", RunMem: 10, OutputMem: 40, TimeCost: 3},
		{Name: "B", Inputs: []string{"A"}, RunMem: 10, OutputMem: 20, TimeCost: 2},
	})
	s := NewState(p)
	before := s.Clone()

	aID, _ := p.ID("A")
	delta := Execute(p, s, aID)
	Undo(s, delta)

	assert.Equal(t, before.current, s.current)
	assert.Equal(t, before.peak, s.peak)
	assert.Equal(t, before.totalTime, s.totalTime)
	assert.Equal(t, before.computedCount, s.computedCount)
	assert.Equal(t, len(before.order), len(s.order))
}

func TestProperty_TrailingGCIsIdempotent(t *testing.T) {
	p := mustBuild(t, 100, []NodeSpec{
		{Name: "A", RunMem: 10, OutputMem: 40, TimeCost: 1},
		{Name: "B", Inputs: []string{"A"}, RunMem: 10, OutputMem: 20, TimeCost: 1},
	})
	s := NewState(p)
	aID, _ := p.ID("A")
	bID, _ := p.ID("B")
	Execute(p, s, aID)
	Execute(p, s, bID)

	afterFirst := GarbageCollect(p, s)
	current1, peak1 := s.current, s.peak
	afterSecond := GarbageCollect(p, s)

	assert.Equal(t, current1, s.current)
	assert.Equal(t, peak1, s.peak)
	assert.Empty(t, afterSecond.removed)
	assert.NotNil(t, afterFirst)
}
