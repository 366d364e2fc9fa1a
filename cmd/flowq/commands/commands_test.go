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

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-flow/analysis/ir"
	"github.com/awslabs/ar-go-flow/analysis/pdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, logs bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs(append([]string{"--config", "testdata/config.yaml", "--no-color"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func runJSON[T any](t *testing.T, args ...string) T {
	t.Helper()
	out, err := run(t, append(args, "--format", "json")...)
	require.NoError(t, err)
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func labels(locs []LocationOutput) []string {
	var res []string
	for _, l := range locs {
		res = append(res, l.Label)
	}
	return res
}

func TestDeps(t *testing.T) {
	for _, test := range []struct {
		direction string
		want      []string
	}{
		{"backward", []string{"second", "read"}},
		{"forward", []string{"read", "use-y"}},
		{"both", []string{"second", "read", "use-y"}},
	} {
		t.Run(test.direction, func(t *testing.T) {
			out := runJSON[DepsOutput](t, "deps", "strong_update", "--target", "y@read", "-d", test.direction)
			assert.Equal(t, "strong_update", out.Function)
			assert.Equal(t, test.direction, out.Direction)
			assert.Equal(t, test.want, labels(out.Locations))
		})
	}
}

func TestDepsByLocation(t *testing.T) {
	out := runJSON[DepsOutput](t, "deps", "strong_update", "--target", "y@bb0[2]")
	assert.Equal(t, []string{"bb0[1]", "bb0[2]"}, []string{out.Locations[0].Location, out.Locations[1].Location})
}

func TestDepsText(t *testing.T) {
	out, err := run(t, "deps", "strong_update", "--target", "y@read")
	require.NoError(t, err)
	assert.Contains(t, out, "backward dependencies of y@read in strong_update")
	assert.Contains(t, out, "bb0[1] (second)")
}

func TestMutations(t *testing.T) {
	out := runJSON[MutationsOutput](t, "mutations", "borrow_write", "--place", "x")
	assert.Equal(t, []string{"init", "write"}, labels(out.Locations))
}

func TestAliases(t *testing.T) {
	out := runJSON[AliasesOutput](t, "aliases", "borrow_write", "--place", "r.*")
	require.Len(t, out.Places, 1)
	assert.Equal(t, "(*r)", out.Places[0].Place)
	assert.ElementsMatch(t, []string{"(*r)", "x"}, out.Places[0].Aliases)

	all := runJSON[AliasesOutput](t, "aliases", "borrow_write")
	assert.NotEmpty(t, all.Places)
}

func TestCtrl(t *testing.T) {
	out := runJSON[CtrlOutput](t, "ctrl", "branch")
	require.Len(t, out.Blocks, 2)
	for i, blk := range []string{"bb1", "bb2"} {
		assert.Equal(t, blk, out.Blocks[i].Block)
		assert.Equal(t, []string{"bb0"}, out.Blocks[i].DependsOn)
	}
}

func TestPDG(t *testing.T) {
	dot, err := run(t, "pdg", "call_add")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dot, "digraph"))

	g := runJSON[pdg.ExportedGraph](t, "pdg", "call_add")
	assert.Equal(t, "call_add", g.Root)
	inlined := false
	for _, n := range g.Nodes {
		if n.Place == "tmp" && len(n.At) == 2 {
			inlined = true
		}
	}
	assert.True(t, inlined)

	tree, err := run(t, "pdg", "call_add", "--tree")
	require.NoError(t, err)
	assert.Equal(t, "call_add\n  add_to at bb0[3]\n", tree)

	sig := runJSON[CallTreeOutput](t, "pdg", "call_add", "--tree", "--context-mode", "sig-only")
	assert.Equal(t, CallTreeOutput{Function: "call_add"}, sig)
}

func TestCycles(t *testing.T) {
	out := runJSON[CyclesOutput](t, "cycles")
	assert.Equal(t, [][]string{{"countdown", "countdown"}}, out.Cycles)
	assert.Equal(t, []string{"countdown"}, out.Recursive)

	b, err := run(t, "cycles", "--format", "msgpack")
	require.NoError(t, err)
	var decoded CyclesOutput
	require.NoError(t, msgpack.Unmarshal([]byte(b), &decoded))
	assert.Equal(t, out, decoded)
}

func TestStats(t *testing.T) {
	out, err := run(t, "stats", "--format", "yaml")
	require.NoError(t, err)
	var all []StatsOutput
	require.NoError(t, yaml.Unmarshal([]byte(out), &all))
	assert.Len(t, all, 6)
	for _, st := range all {
		assert.Positive(t, st.Locations, st.Function)
	}

	reachable := runJSON[[]StatsOutput](t, "stats", "--reachable-from", "call_add", "-j", "1")
	var names []string
	for _, st := range reachable {
		names = append(names, st.Function)
	}
	assert.Equal(t, []string{"add_to", "call_add"}, names)
}

func TestErrors(t *testing.T) {
	_, err := run(t, "deps", "nowhere", "--target", "x@a")
	assert.ErrorIs(t, err, ir.ErrUnknownFunction)

	_, err = run(t, "deps", "strong_update", "--target", "y-read")
	assert.ErrorContains(t, err, "place@location")

	_, err = run(t, "deps", "strong_update", "--target", "y@bb7[0]")
	assert.ErrorContains(t, err, "out of the bounds")

	_, err = run(t, "cycles", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")

	_, err = run(t, "cycles", "--pointer-mode", "sloppy")
	assert.Error(t, err)

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"cycles"})
	assert.ErrorContains(t, root.Execute(), "no program")
}
