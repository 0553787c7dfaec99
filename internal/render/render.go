// Package render draws a schedule.Problem, or a schedule.Result over it,
// as Graphviz DOT, marking recomputed executions, and can shell out to
// the dot binary for PNG output.
package render

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"tensorsched/internal/schedule"
)

// CheckGraphviz reports whether the dot binary is on PATH.
func CheckGraphviz() error {
	if _, err := exec.LookPath("dot"); err != nil {
		return fmt.Errorf("render: graphviz 'dot' command not found: %w", err)
	}
	return nil
}

// ToPNG shells out to dot to convert a DOT file into a PNG.
func ToPNG(dotFile, pngFile string) error {
	if err := CheckGraphviz(); err != nil {
		return err
	}
	cmd := exec.Command("dot", "-Tpng", dotFile, "-o", pngFile)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("render: graphviz error: %w\noutput: %s", err, output)
	}
	if _, err := os.Stat(pngFile); os.IsNotExist(err) {
		return fmt.Errorf("render: PNG file was not created: %s", pngFile)
	}
	return nil
}

// Problem renders the raw DAG topology: every node as a box, edges from
// each input to its consumer, sources tinted green and sinks tinted blue.
func Problem(p *schedule.Problem) string {
	var sb strings.Builder
	sb.WriteString("digraph DAG {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=\"rounded,filled\", fontname=\"Arial\"];\n\n")

	for i := 0; i < p.NodeCount(); i++ {
		id := schedule.NodeID(i)
		n := p.NodeInfo(id)
		color := "white"
		if len(n.Inputs) == 0 {
			color = "lightgreen"
		} else if len(p.Consumers(id)) == 0 {
			color = "lightblue"
		}
		label := fmt.Sprintf("%s\\nrun=%d out=%d time=%d", n.Name, n.RunMem, n.OutputMem, n.TimeCost)
		fmt.Fprintf(&sb, "  %q [label=%q, fillcolor=%q];\n", n.Name, label, color)
	}
	sb.WriteString("\n")

	for i := 0; i < p.NodeCount(); i++ {
		id := schedule.NodeID(i)
		n := p.NodeInfo(id)
		for _, in := range n.Inputs {
			fmt.Fprintf(&sb, "  %q -> %q;\n", p.Name(in), n.Name)
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// Schedule renders a scheduled DAG: one DOT node per execution step,
// numbered by its position in the execution order, with edges from the
// latest earlier execution of each input. Recomputed executions are
// filled salmon and labeled with a "*" suffix; labels carry only the node
// name, not memory figures. Residency and spills are not drawn. The
// graph label gives the schedule's total_time and memory_peak.
func Schedule(p *schedule.Problem, r schedule.Result) string {
	var sb strings.Builder
	sb.WriteString("digraph Schedule {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=\"rounded,filled\", fontname=\"Arial\"];\n\n")

	firstStep := make(map[string]int, len(r.ExecutionOrder))
	for i, name := range r.ExecutionOrder {
		if _, seen := firstStep[name]; !seen {
			firstStep[name] = i
		}
	}

	for i, name := range r.ExecutionOrder {
		recompute := i < len(r.RecomputeFlags) && r.RecomputeFlags[i]
		color := "lightyellow"
		if recompute {
			color = "salmon"
		}
		nodeID := fmt.Sprintf("step%d", i)
		label := name
		if recompute {
			label = name + "*"
		}
		fmt.Fprintf(&sb, "  %q [label=%q, fillcolor=%q];\n", nodeID, label, color)
	}
	sb.WriteString("\n")

	for i, name := range r.ExecutionOrder {
		id, ok := p.ID(name)
		if !ok {
			continue
		}
		for _, in := range p.NodeInfo(id).Inputs {
			inName := p.Name(in)
			if j, ok := lastStepAtOrBefore(r.ExecutionOrder, inName, i); ok {
				fmt.Fprintf(&sb, "  %q -> %q;\n", fmt.Sprintf("step%d", j), fmt.Sprintf("step%d", i))
			}
		}
	}

	fmt.Fprintf(&sb, "\n  label=%q;\n", fmt.Sprintf("total_time=%d memory_peak=%d", r.TotalTime, r.MemoryPeak))
	sb.WriteString("}\n")
	return sb.String()
}

func lastStepAtOrBefore(order []string, name string, before int) (int, bool) {
	found := -1
	for i := 0; i < before; i++ {
		if order[i] == name {
			found = i
		}
	}
	if found == -1 {
		return 0, false
	}
	return found, true
}

// WriteDOT writes s to path.
func WriteDOT(path, s string) error {
	if err := os.WriteFile(path, []byte(s), 0o644); err != nil {
		return fmt.Errorf("render: writing DOT file: %w", err)
	}
	return nil
}
