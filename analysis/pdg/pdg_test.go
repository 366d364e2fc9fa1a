// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pdg

import (
	"embed"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-flow/analysis/config"
	"github.com/awslabs/ar-go-flow/analysis/ir"
	"github.com/awslabs/ar-go-flow/internal/analysistest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

//go:embed testdata
var testfsys embed.FS

func build(t *testing.T, cfg *config.Config, name string) (*Graph, *Builder) {
	t.Helper()
	if cfg == nil {
		cfg = config.NewDefault()
	}
	prog := analysistest.LoadProgram(t, testfsys, "testdata/program.yaml")
	b := NewBuilder(nil, cfg, prog)
	g, err := b.Build(name)
	require.NoError(t, err)
	return g, b
}

// nodeAt returns the node of place written at the location label of the root function
func nodeAt(t *testing.T, g *Graph, b *Builder, function, place, label string) Node {
	t.Helper()
	body := analysistest.Function(t, b.Program, function)
	p := analysistest.Place(t, body, place)
	loc := analysistest.Location(t, body, label)
	for _, n := range g.NodesOf(function, p) {
		if !n.At.Leaf().Start && n.At.Leaf().Location == loc {
			return n
		}
	}
	t.Fatalf("no node for %s at %s", place, label)
	return Node{}
}

func TestStraightLine(t *testing.T) {
	g, b := build(t, nil, "straight")
	body := analysistest.Function(t, b.Program, "straight")
	x := analysistest.Place(t, body, "x")
	xb := nodeAt(t, g, b, "straight", "x", "b")
	yc := nodeAt(t, g, b, "straight", "y", "c")
	zd := nodeAt(t, g, b, "straight", "z", "d")

	assert.Len(t, g.Edges(), 3)
	assert.True(t, g.HasPath(xb, zd))
	assert.True(t, g.HasPath(yc, zd))
	assert.False(t, g.HasPath(zd, xb))
	for _, n := range g.NodesOf("straight", x) {
		assert.Equal(t, "b", analysistest.Labels(body, []ir.Location{n.At.Leaf().Location})[0],
			"overwritten value of x in graph")
	}
	for _, e := range g.Edges() {
		assert.Equal(t, Data, e.Kind)
		assert.True(t, e.At.IsAtRoot())
		assert.Equal(t, e.Dst.At, e.At)
	}
}

func TestArgumentNodes(t *testing.T) {
	g, b := build(t, nil, "use_arg")
	body := analysistest.Function(t, b.Program, "use_arg")
	nodes := g.NodesOf("use_arg", analysistest.Place(t, body, "n"))
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].At.Leaf().Start)
	assert.True(t, g.HasPath(nodes[0], nodeAt(t, g, b, "use_arg", "y", "use")))
}

func TestControlEdges(t *testing.T) {
	g, b := build(t, nil, "branch")
	c := nodeAt(t, g, b, "branch", "c", "init-c")
	x := nodeAt(t, g, b, "branch", "x", "then")
	var kinds []EdgeKind
	for _, e := range g.Edges() {
		if e.Src == c && e.Dst == x {
			kinds = append(kinds, e.Kind)
		}
	}
	assert.Equal(t, []EdgeKind{Control}, kinds)
}

func TestInlinedCallee(t *testing.T) {
	g, b := build(t, nil, "call_add")
	y := nodeAt(t, g, b, "call_add", "y", "init-y")
	z := nodeAt(t, g, b, "call_add", "z", "read-x")
	assert.True(t, g.HasPath(y, z))

	callee := analysistest.Function(t, b.Program, "add_to")
	tmp := g.NodesOf("add_to", analysistest.Place(t, callee, "tmp"))
	require.Len(t, tmp, 1)
	assert.Equal(t, 2, tmp[0].At.Len())
	assert.Equal(t, "call_add", tmp[0].At.Root().Function)
	assert.Equal(t, "call_add", tmp[0].At.Caller().Leaf().Function)
	assert.True(t, g.HasPath(y, tmp[0]))
	assert.True(t, g.HasPath(tmp[0], z))
}

func TestTruncatedCallerUsesSignature(t *testing.T) {
	cfg := config.NewDefault()
	cfg.MaxPlaces = 1
	g, b := build(t, cfg, "call_add")
	y := nodeAt(t, g, b, "call_add", "y", "init-y")
	x := nodeAt(t, g, b, "call_add", "x", "call")
	z := nodeAt(t, g, b, "call_add", "z", "read-x")
	assert.True(t, g.HasPath(y, x))
	assert.True(t, g.HasPath(x, z))

	callee := analysistest.Function(t, b.Program, "add_to")
	assert.Empty(t, g.NodesOf("add_to", analysistest.Place(t, callee, "tmp")))
}

func TestReturnValue(t *testing.T) {
	g, b := build(t, nil, "call_double")
	a := nodeAt(t, g, b, "call_double", "a", "init-a")
	bNode := nodeAt(t, g, b, "call_double", "b", "call")
	assert.True(t, g.HasPath(a, bNode))

	callee := analysistest.Function(t, b.Program, "double")
	ret := g.NodesOf("double", ir.PlaceOf(ir.ReturnLocal))
	require.Len(t, ret, 1)
	assert.True(t, g.HasPath(ret[0], bNode))
	assert.Empty(t, g.NodesOf("double", analysistest.Place(t, callee, "v")))
}

func TestSignatureOnlyGraph(t *testing.T) {
	cfg := config.NewDefault()
	cfg.ContextMode = config.SigOnlyContext
	g, b := build(t, cfg, "call_add")
	for _, n := range g.Nodes() {
		assert.True(t, n.At.IsAtRoot(), "%s", g.NodeString(n))
	}
	y := nodeAt(t, g, b, "call_add", "y", "init-y")
	z := nodeAt(t, g, b, "call_add", "z", "read-x")
	assert.True(t, g.HasPath(y, z))
}

func TestCallStrings(t *testing.T) {
	cs := newCallStrings()
	root := cs.get(nil, GlobalLocation{Function: "main", Location: ir.Location{Block: 0, Statement: 3}})
	leaf := cs.get(root, GlobalLocation{Function: "f", Start: true})
	assert.Same(t, leaf, cs.get(root, GlobalLocation{Function: "f", Start: true}))
	assert.Equal(t, []string{"main::bb0[3]", "f::start"}, leaf.Strings())
	assert.Equal(t, "main::bb0[3] <- f::start", leaf.String())
	assert.Equal(t, root.Leaf(), leaf.Root())
	assert.True(t, root.less(leaf))

	parsed, err := cs.parse(leaf.Strings())
	require.NoError(t, err)
	assert.Same(t, leaf, parsed)
	_, err = cs.parse([]string{"nowhere"})
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	g, _ := build(t, nil, "call_add")
	ex := g.Export()
	assert.Equal(t, "call_add", ex.Root)
	assert.Len(t, ex.Nodes, len(g.Nodes()))
	assert.Len(t, ex.Edges, len(g.Edges()))

	b, err := g.MarshalMsgpack()
	require.NoError(t, err)
	decoded, err := UnmarshalMsgpack(b)
	require.NoError(t, err)
	assert.Equal(t, ex, decoded)

	y, err := g.MarshalYAML()
	require.NoError(t, err)
	var fromYAML ExportedGraph
	require.NoError(t, yaml.Unmarshal(y, &fromYAML))
	assert.Equal(t, ex, fromYAML)

	d, err := g.MarshalDOT()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(d), "digraph"))
	assert.Contains(t, string(d), "tmp @")
}

func TestCallTree(t *testing.T) {
	g, b := build(t, nil, "call_add")
	tree := g.CallTree()
	assert.Equal(t, "call_add", tree.Label.Function)
	require.Len(t, tree.Children, 1)
	site := tree.Children[0].Label
	assert.Equal(t, "add_to", site.Function)
	body := analysistest.Function(t, b.Program, "call_add")
	assert.Equal(t, analysistest.Location(t, body, "call"), site.Location)
	assert.Equal(t, 2, tree.Size())
}
