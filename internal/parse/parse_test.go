package parse

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamples_LinearChain(t *testing.T) {
	src := `
memory: 100
A: ; 10, 20, 1
B: A; 10, 20, 1
C: B; 10, 20, 1
`
	p, err := Examples(strings.NewReader(src))
	require.NoError(t, err)
	assert.EqualValues(t, 100, p.TotalMemory)
	require.Len(t, p.Specs, 3)
	assert.Equal(t, "A", p.Specs[0].Name)
	assert.Empty(t, p.Specs[0].Inputs)
	assert.Equal(t, []string{"A"}, p.Specs[1].Inputs)
	assert.Equal(t, []string{"B"}, p.Specs[2].Inputs)

	prob, err := p.Problem()
	require.NoError(t, err)
	assert.Equal(t, 3, prob.NodeCount())
}

func TestExamples_Diamond(t *testing.T) {
	src := `memory: 100
A: ; 10, 40, 1
B: A; 10, 20, 1
C: A; 10, 20, 1
D: B,C; 10, 10, 1
`
	p, err := Examples(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, p.Specs, 4)
	assert.Equal(t, []string{"B", "C"}, p.Specs[3].Inputs)
}

func TestExamples_MissingHeader(t *testing.T) {
	_, err := Examples(strings.NewReader("A: ; 1, 2, 3\n"))
	assert.Error(t, err)
}

func TestExamples_BadCosts(t *testing.T) {
	_, err := Examples(strings.NewReader("memory: 10\nA: ; 1, 2\n"))
	assert.Error(t, err)
}

func TestSimple_LinearChain(t *testing.T) {
	src := `Return 100
0 A 0 10 20 1
1 B 1 0 10 20 1
2 C 1 1 10 20 1
`
	p, err := Simple(strings.NewReader(src))
	require.NoError(t, err)
	assert.EqualValues(t, 100, p.TotalMemory)
	require.Len(t, p.Specs, 3)
	assert.Equal(t, "A", p.Specs[0].Name)
	assert.Equal(t, []string{"A"}, p.Specs[1].Inputs)
	assert.Equal(t, []string{"B"}, p.Specs[2].Inputs)
}

func TestSimple_DuplicateOpNamesDisambiguated(t *testing.T) {
	src := `Return 100
0 op 0 10 20 1
1 op 0 10 20 1
`
	p, err := Simple(strings.NewReader(src))
	require.NoError(t, err)
	assert.NotEqual(t, p.Specs[0].Name, p.Specs[1].Name)
}

func TestSimple_UndeclaredInput(t *testing.T) {
	src := `Return 100
0 A 1 5 10 20 1
`
	_, err := Simple(strings.NewReader(src))
	assert.Error(t, err)
}

func TestYAML_ParsesNodes(t *testing.T) {
	src := `
total_memory: 100
nodes:
  - name: A
    run_mem: 10
    output_mem: 20
    time_cost: 1
  - name: B
    inputs: [A]
    run_mem: 10
    output_mem: 20
    time_cost: 1
`
	p, err := YAML(strings.NewReader(src))
	require.NoError(t, err)
	assert.EqualValues(t, 100, p.TotalMemory)
	require.Len(t, p.Specs, 2)
	assert.Equal(t, []string{"A"}, p.Specs[1].Inputs)
}

func TestFile_AutoDetectsExamplesFormat(t *testing.T) {
	src := "memory: 100\nA: ; 10, 20, 1\n"
	p, err := File(strings.NewReader(src), FormatAuto)
	require.NoError(t, err)
	assert.Len(t, p.Specs, 1)
}

func TestFile_AutoDetectsSimpleFormat(t *testing.T) {
	src := "Return 100\n0 A 0 10 20 1\n"
	p, err := File(strings.NewReader(src), FormatAuto)
	require.NoError(t, err)
	assert.Len(t, p.Specs, 1)
}

func TestJSON_RoundTrip(t *testing.T) {
	src := `{
  "total_memory": 100,
  "names": ["A", "B"],
  "inputs": [[], ["A"]],
  "run_mem": [10, 10],
  "output_mem": [20, 20],
  "time_cost": [1, 1]
}`
	p, err := JSON(strings.NewReader(src))
	require.NoError(t, err)
	assert.EqualValues(t, 100, p.TotalMemory)
	require.Len(t, p.Specs, 2)
	assert.Equal(t, []string{"A"}, p.Specs[1].Inputs)

	prob, err := p.Problem()
	require.NoError(t, err)

	dir := t.TempDir()
	out := dir + "/problem.json"
	require.NoError(t, WriteJSON(out, prob))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	roundTripped, err := JSON(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, p.Specs, roundTripped.Specs)
}

func TestJSON_MismatchedArrayLengths(t *testing.T) {
	src := `{"total_memory": 10, "names": ["A", "B"], "inputs": [[]], "run_mem": [1], "output_mem": [1], "time_cost": [1]}`
	_, err := JSON(strings.NewReader(src))
	assert.Error(t, err)
}

func TestFile_AutoDetectsYAML(t *testing.T) {
	src := "total_memory: 100\nnodes:\n  - name: A\n    run_mem: 1\n    output_mem: 2\n    time_cost: 1\n"
	p, err := File(strings.NewReader(src), FormatAuto)
	require.NoError(t, err)
	assert.Len(t, p.Specs, 1)
}

func TestFile_UnknownFormat(t *testing.T) {
	_, err := File(strings.NewReader(""), Format("bogus"))
	assert.Error(t, err)
}
