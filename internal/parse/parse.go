// Package parse reads DAG problem descriptions in several textual
// formats ("examples", "simple", "yaml", "json") and turns them into
// schedule.NodeSpec slices ready for schedule.NewProblem.
package parse

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"tensorsched/internal/schedule"
)

// Format names one of the supported textual encodings.
type Format string

const (
	FormatExamples Format = "examples"
	FormatSimple   Format = "simple"
	FormatYAML     Format = "yaml"
	FormatJSON     Format = "json"
	FormatAuto     Format = "auto"
)

// Parsed is the intermediate result before Problem construction: the
// memory budget plus the ordered node specs as declared in the source
// text.
type Parsed struct {
	TotalMemory int64
	Specs       []schedule.NodeSpec
}

// Problem builds a schedule.Problem from the parsed specs.
func (p Parsed) Problem() (*schedule.Problem, error) {
	return schedule.NewProblem(p.TotalMemory, p.Specs)
}

// File reads and parses r under the requested format. FormatAuto tries
// examples, then simple, then json, then yaml, in that order.
func File(r io.Reader, format Format) (Parsed, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Parsed{}, fmt.Errorf("parse: reading input: %w", err)
	}

	switch format {
	case FormatExamples:
		return Examples(bytes.NewReader(data))
	case FormatSimple:
		return Simple(bytes.NewReader(data))
	case FormatYAML:
		return YAML(bytes.NewReader(data))
	case FormatJSON:
		return JSON(bytes.NewReader(data))
	case FormatAuto, "":
		if p, err := Examples(bytes.NewReader(data)); err == nil {
			return p, nil
		}
		if p, err := Simple(bytes.NewReader(data)); err == nil {
			return p, nil
		}
		if p, err := JSON(bytes.NewReader(data)); err == nil {
			return p, nil
		}
		return YAML(bytes.NewReader(data))
	default:
		return Parsed{}, fmt.Errorf("parse: unknown format %q", format)
	}
}

// Examples parses the "name: inputs; run, output, time" line format. The
// first non-empty line must be "memory: N"; every following non-empty
// line declares one node.
//
//	memory: 100
//	A: ; 10, 20, 1
//	B: A; 10, 20, 1
//	C: B; 10, 20, 1
func Examples(r io.Reader) (Parsed, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var totalMemory int64
	haveMemory := false
	var specs []schedule.NodeSpec
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !haveMemory {
			key, val, ok := strings.Cut(line, ":")
			if !ok || strings.TrimSpace(key) != "memory" {
				return Parsed{}, fmt.Errorf("parse: examples format: line %d: expected \"memory: N\"", lineNo)
			}
			mem, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
			if err != nil {
				return Parsed{}, fmt.Errorf("parse: examples format: line %d: invalid memory value: %w", lineNo, err)
			}
			totalMemory = mem
			haveMemory = true
			continue
		}

		spec, err := parseExamplesLine(line)
		if err != nil {
			return Parsed{}, fmt.Errorf("parse: examples format: line %d: %w", lineNo, err)
		}
		specs = append(specs, spec)
	}
	if err := scanner.Err(); err != nil {
		return Parsed{}, fmt.Errorf("parse: examples format: %w", err)
	}
	if !haveMemory {
		return Parsed{}, fmt.Errorf("parse: examples format: missing \"memory: N\" header")
	}
	return Parsed{TotalMemory: totalMemory, Specs: specs}, nil
}

func parseExamplesLine(line string) (schedule.NodeSpec, error) {
	name, rest, ok := strings.Cut(line, ":")
	if !ok {
		return schedule.NodeSpec{}, fmt.Errorf("expected \"name: inputs; run, output, time\", got %q", line)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return schedule.NodeSpec{}, fmt.Errorf("empty node name")
	}

	inputsPart, costsPart, ok := strings.Cut(rest, ";")
	if !ok {
		return schedule.NodeSpec{}, fmt.Errorf("node %q: missing ';' before costs", name)
	}

	var inputs []string
	inputsPart = strings.TrimSpace(inputsPart)
	if inputsPart != "" {
		for _, in := range strings.Split(inputsPart, ",") {
			in = strings.TrimSpace(in)
			if in != "" {
				inputs = append(inputs, in)
			}
		}
	}

	costs := strings.Split(costsPart, ",")
	if len(costs) != 3 {
		return schedule.NodeSpec{}, fmt.Errorf("node %q: expected 3 comma-separated costs (run, output, time), got %d", name, len(costs))
	}
	nums := make([]int64, 3)
	for i, c := range costs {
		v, err := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
		if err != nil {
			return schedule.NodeSpec{}, fmt.Errorf("node %q: invalid cost %q: %w", name, c, err)
		}
		nums[i] = v
	}

	return schedule.NodeSpec{
		Name:      name,
		Inputs:    inputs,
		RunMem:    nums[0],
		OutputMem: nums[1],
		TimeCost:  nums[2],
	}, nil
}

// Simple parses a tokenized numeric-id format: a first line
// "Return <mem>", then one line per node:
//
//	<id> <opName> <numInputs> <inputId...> <runMem> <outputMem> <timeCost>
//
// Input ids reference the declaration-order id of a previously declared
// node. Node names are the declared opName; duplicate opNames are
// disambiguated by suffixing the declared id, since nodes are keyed by
// integer id here rather than by name.
func Simple(r io.Reader) (Parsed, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var totalMemory int64
	haveMemory := false
	idToName := make(map[int]string)
	seenNames := make(map[string]bool)
	var specs []schedule.NodeSpec
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if !haveMemory {
			fields := strings.Fields(line)
			if len(fields) != 2 || fields[0] != "Return" {
				return Parsed{}, fmt.Errorf("parse: simple format: line %d: expected \"Return <mem>\"", lineNo)
			}
			mem, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return Parsed{}, fmt.Errorf("parse: simple format: line %d: invalid memory value: %w", lineNo, err)
			}
			totalMemory = mem
			haveMemory = true
			continue
		}

		spec, id, name, err := parseSimpleLine(line, idToName)
		if err != nil {
			return Parsed{}, fmt.Errorf("parse: simple format: line %d: %w", lineNo, err)
		}
		if seenNames[name] {
			name = fmt.Sprintf("%s#%d", name, id)
			spec.Name = name
		}
		seenNames[name] = true
		idToName[id] = name
		specs = append(specs, spec)
	}
	if err := scanner.Err(); err != nil {
		return Parsed{}, fmt.Errorf("parse: simple format: %w", err)
	}
	if !haveMemory {
		return Parsed{}, fmt.Errorf("parse: simple format: missing \"Return <mem>\" header")
	}
	return Parsed{TotalMemory: totalMemory, Specs: specs}, nil
}

func parseSimpleLine(line string, idToName map[int]string) (schedule.NodeSpec, int, string, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 6 {
		return schedule.NodeSpec{}, 0, "", fmt.Errorf("expected at least 6 tokens, got %d", len(tokens))
	}

	id, err := strconv.Atoi(tokens[0])
	if err != nil {
		return schedule.NodeSpec{}, 0, "", fmt.Errorf("invalid node id %q: %w", tokens[0], err)
	}
	name := tokens[1]
	numInputs, err := strconv.Atoi(tokens[2])
	if err != nil || numInputs < 0 {
		return schedule.NodeSpec{}, 0, "", fmt.Errorf("invalid input count %q", tokens[2])
	}
	if len(tokens) < 6+numInputs {
		return schedule.NodeSpec{}, 0, "", fmt.Errorf("not enough tokens for %d inputs", numInputs)
	}

	inputs := make([]string, numInputs)
	for i := 0; i < numInputs; i++ {
		inputID, err := strconv.Atoi(tokens[3+i])
		if err != nil {
			return schedule.NodeSpec{}, 0, "", fmt.Errorf("invalid input id %q: %w", tokens[3+i], err)
		}
		inputName, ok := idToName[inputID]
		if !ok {
			return schedule.NodeSpec{}, 0, "", fmt.Errorf("input id %d refers to an undeclared node", inputID)
		}
		inputs[i] = inputName
	}

	nums := make([]int64, 3)
	for i, tok := range tokens[3+numInputs : 6+numInputs] {
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return schedule.NodeSpec{}, 0, "", fmt.Errorf("invalid cost %q: %w", tok, err)
		}
		nums[i] = v
	}

	spec := schedule.NodeSpec{
		Name:      name,
		Inputs:    inputs,
		RunMem:    nums[0],
		OutputMem: nums[1],
		TimeCost:  nums[2],
	}
	return spec, id, name, nil
}

// yamlProblem is the wire shape for FormatYAML: a structured problem
// description.
type yamlProblem struct {
	TotalMemory int64      `yaml:"total_memory"`
	Nodes       []yamlNode `yaml:"nodes"`
}

type yamlNode struct {
	Name      string   `yaml:"name"`
	Inputs    []string `yaml:"inputs"`
	RunMem    int64    `yaml:"run_mem"`
	OutputMem int64    `yaml:"output_mem"`
	TimeCost  int64    `yaml:"time_cost"`
}

// YAML parses the structured third input format:
//
//	total_memory: 100
//	nodes:
//	  - name: A
//	    run_mem: 10
//	    output_mem: 20
//	    time_cost: 1
//	  - name: B
//	    inputs: [A]
//	    run_mem: 10
//	    output_mem: 20
//	    time_cost: 1
func YAML(r io.Reader) (Parsed, error) {
	var doc yamlProblem
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return Parsed{}, fmt.Errorf("parse: yaml format: %w", err)
	}

	specs := make([]schedule.NodeSpec, len(doc.Nodes))
	for i, n := range doc.Nodes {
		specs[i] = schedule.NodeSpec{
			Name:      n.Name,
			Inputs:    n.Inputs,
			RunMem:    n.RunMem,
			OutputMem: n.OutputMem,
			TimeCost:  n.TimeCost,
		}
	}
	return Parsed{TotalMemory: doc.TotalMemory, Specs: specs}, nil
}

// jsonProblem is the wire shape for FormatJSON: parallel arrays keyed by
// declaration order.
type jsonProblem struct {
	TotalMemory int64      `json:"total_memory"`
	Names       []string   `json:"names"`
	Inputs      [][]string `json:"inputs"`
	RunMem      []int64    `json:"run_mem"`
	OutputMem   []int64    `json:"output_mem"`
	TimeCost    []int64    `json:"time_cost"`
}

// JSON parses the parallel-array wire format:
//
//	{
//	  "total_memory": 100,
//	  "names": ["A", "B"],
//	  "inputs": [[], ["A"]],
//	  "run_mem": [10, 10],
//	  "output_mem": [20, 20],
//	  "time_cost": [1, 1]
//	}
func JSON(r io.Reader) (Parsed, error) {
	var doc jsonProblem
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return Parsed{}, fmt.Errorf("parse: json format: %w", err)
	}

	n := len(doc.Names)
	if len(doc.Inputs) != n || len(doc.RunMem) != n || len(doc.OutputMem) != n || len(doc.TimeCost) != n {
		return Parsed{}, fmt.Errorf("parse: json format: names/inputs/run_mem/output_mem/time_cost must have equal length")
	}

	specs := make([]schedule.NodeSpec, n)
	for i := 0; i < n; i++ {
		specs[i] = schedule.NodeSpec{
			Name:      doc.Names[i],
			Inputs:    doc.Inputs[i],
			RunMem:    doc.RunMem[i],
			OutputMem: doc.OutputMem[i],
			TimeCost:  doc.TimeCost[i],
		}
	}
	return Parsed{TotalMemory: doc.TotalMemory, Specs: specs}, nil
}

// WriteJSON serializes p back to the FormatJSON wire shape.
func WriteJSON(filename string, p *schedule.Problem) error {
	names := p.Names()
	doc := jsonProblem{
		TotalMemory: p.TotalMemory,
		Names:       names,
		Inputs:      make([][]string, len(names)),
		RunMem:      make([]int64, len(names)),
		OutputMem:   make([]int64, len(names)),
		TimeCost:    make([]int64, len(names)),
	}
	for i, name := range names {
		id, _ := p.ID(name)
		info := p.NodeInfo(id)
		inputs := make([]string, len(info.Inputs))
		for j, in := range info.Inputs {
			inputs[j] = p.Name(in)
		}
		doc.Inputs[i] = inputs
		doc.RunMem[i] = info.RunMem
		doc.OutputMem[i] = info.OutputMem
		doc.TimeCost[i] = info.TimeCost
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("parse: marshaling problem: %w", err)
	}
	return os.WriteFile(filename, data, 0644)
}
