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

package infoflow

import (
	"bytes"
	"embed"
	"fmt"
	"testing"

	"github.com/awslabs/ar-go-flow/analysis/config"
	"github.com/awslabs/ar-go-flow/analysis/engine"
	"github.com/awslabs/ar-go-flow/analysis/ir"
	"github.com/awslabs/ar-go-flow/internal/analysistest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/maps"
)

//go:embed testdata
var testfsys embed.FS

func loadFlowProgram(t *testing.T) *ir.Program {
	return analysistest.LoadProgram(t, testfsys, "testdata/flow.yaml")
}

func analyze(t *testing.T, cfg *config.Config, name string) (*FlowResults, *ir.Body) {
	t.Helper()
	if cfg == nil {
		cfg = config.NewDefault()
	}
	prog := loadFlowProgram(t)
	ctx := NewContext(config.NewLogGroup(cfg), cfg, prog)
	res, err := ctx.Analyze(name)
	require.NoError(t, err)
	return res, res.Body
}

// slice returns the labels of the locations in the dependencies of place at the location label
func slice(t *testing.T, res *FlowResults, place, label string, dir Direction) []string {
	t.Helper()
	target := Target{
		Place:    analysistest.Place(t, res.Body, place),
		Location: analysistest.Location(t, res.Body, label),
	}
	deps := ComputeDependencies(res, [][]Target{{target}}, dir)
	require.Len(t, deps, 1)
	return analysistest.Labels(res.Body, deps[0].Locations)
}

func TestBackwardSlices(t *testing.T) {
	tests := []struct {
		name     string
		function string
		place    string
		at       string
		want     []string
	}{
		{"overwritten value is excluded", "strong_update", "y", "exit", []string{"read", "second"}},
		{"write through reference", "borrow_write", "y", "exit", []string{"borrow", "init", "read", "write"}},
		{"sibling field is independent", "fields", "b", "exit", []string{"build", "read-1"}},
		{"callee effect on caller", "call_add", "x", "read-x", []string{"borrow", "call", "init-x", "init-y"}},
		{"branch controls assignment", "branch", "x", "exit", []string{"init-c", "test", "then"}},
		{"shared reference is not written", "shared_call", "y", "exit", []string{"init", "read"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _ := analyze(t, nil, tt.function)
			assert.Equal(t, tt.want, slice(t, res, tt.place, tt.at, Backward))
		})
	}
}

func TestForwardAndBothSlices(t *testing.T) {
	res, _ := analyze(t, nil, "strong_update")
	assert.Equal(t, []string{"read", "use-y"}, slice(t, res, "y", "read", Forward))
	assert.Equal(t, []string{"read", "second"}, slice(t, res, "y", "read", Backward))
	assert.Equal(t, []string{"read", "second", "use-y"}, slice(t, res, "y", "read", Both))
}

func TestDependencyPlaces(t *testing.T) {
	res, body := analyze(t, nil, "fields")
	target := Target{Place: analysistest.Place(t, body, "b"), Location: analysistest.Location(t, body, "exit")}
	deps := ComputeDependencies(res, [][]Target{{target}}, Backward)
	require.Len(t, deps, 1)
	places := analysistest.PlaceStrings(body, deps[0].Places)
	assert.Contains(t, places, "b")
	assert.Contains(t, places, "t.1")
}

func TestTargetGroups(t *testing.T) {
	res, body := analyze(t, nil, "two_refs")
	exit := analysistest.Location(t, body, "exit")
	groups := [][]Target{
		{{Place: analysistest.Place(t, body, "x"), Location: exit}},
		{{Place: analysistest.Place(t, body, "y"), Location: exit}},
		{
			{Place: analysistest.Place(t, body, "x"), Location: exit},
			{Place: analysistest.Place(t, body, "y"), Location: exit},
		},
	}
	deps := ComputeDependencies(res, groups, Backward)
	require.Len(t, deps, 3)
	assert.Equal(t, []string{"borrow-x", "init-x", "write"}, analysistest.Labels(body, deps[0].Locations))
	assert.Equal(t, []string{"init-y"}, analysistest.Labels(body, deps[1].Locations))
	assert.Equal(t, []string{"borrow-x", "init-x", "init-y", "write"}, analysistest.Labels(body, deps[2].Locations))
}

func TestRecursionIsMorePreciseThanSignatures(t *testing.T) {
	res, _ := analyze(t, nil, "call_first")
	assert.Equal(t, []string{"build", "read"}, slice(t, res, "b", "exit", Backward))

	cfg := config.NewDefault()
	cfg.ContextMode = config.SigOnlyContext
	res, _ = analyze(t, cfg, "call_first")
	assert.Contains(t, slice(t, res, "b", "exit", Backward), "call")
}

func TestSignatureOnlyCall(t *testing.T) {
	cfg := config.NewDefault()
	cfg.ContextMode = config.SigOnlyContext
	res, _ := analyze(t, cfg, "call_add")
	assert.Equal(t, []string{"borrow", "call", "init-x", "init-y"}, slice(t, res, "x", "read-x", Backward))
}

func TestPrivateFieldsDisableRecursion(t *testing.T) {
	res, _ := analyze(t, nil, "call_secret")
	assert.Contains(t, slice(t, res, "a", "exit", Backward), "call")
}

func TestRecursiveFunction(t *testing.T) {
	res, body := analyze(t, nil, "countdown")
	call := analysistest.Location(t, body, "self-call")
	exit := analysistest.Location(t, body, "exit")
	assert.True(t, res.StateAt(exit).Row(ir.PlaceOf(ir.ReturnLocal)).Contains(ir.AtLocation(call)))
	n := analysistest.Place(t, body, "n")
	assert.True(t, res.StateAt(exit).Row(ir.PlaceOf(ir.ReturnLocal)).Contains(ir.AtArg(n.Local)))
}

func TestIgnoreMut(t *testing.T) {
	cfg := config.NewDefault()
	cfg.MutabilityMode = config.IgnoreMut
	res, _ := analyze(t, cfg, "shared_call")
	assert.Equal(t, []string{"borrow", "call", "init", "read"}, slice(t, res, "y", "exit", Backward))
}

func TestConservativePointers(t *testing.T) {
	res, _ := analyze(t, nil, "two_refs")
	assert.Equal(t, []string{"init-y", "read"}, slice(t, res, "z", "exit", Backward))

	cfg := config.NewDefault()
	cfg.PointerMode = config.ConservativePointers
	res, _ = analyze(t, cfg, "two_refs")
	got := slice(t, res, "z", "exit", Backward)
	assert.Contains(t, got, "write")
	assert.Contains(t, got, "init-y")
}

func TestLoopDependencies(t *testing.T) {
	res, _ := analyze(t, nil, "loop")
	got := slice(t, res, "acc", "exit", Backward)
	for _, label := range []string{"init-i", "init-acc", "cond", "test", "accumulate", "incr"} {
		assert.Contains(t, got, label)
	}
	assert.NotContains(t, got, "exit")
}

func TestArgumentsAreInitialDependencies(t *testing.T) {
	res, body := analyze(t, nil, "add_to")
	start := res.EntryAt(ir.Start)
	p := analysistest.Place(t, body, "p")
	q := analysistest.Place(t, body, "q")
	assert.True(t, start.Row(p.Deref()).Contains(ir.AtArg(p.Local)))
	assert.True(t, start.Row(q).Contains(ir.AtArg(q.Local)))
	assert.False(t, start.Row(q).Contains(ir.AtArg(p.Local)))

	write := analysistest.Location(t, body, "write")
	row := res.StateAt(write).Row(p.Deref())
	assert.True(t, row.Contains(ir.AtArg(q.Local)))
	assert.True(t, row.Contains(ir.AtLocation(analysistest.Location(t, body, "sum"))))
}

func TestFindMutations(t *testing.T) {
	res, body := analyze(t, nil, "borrow_write")
	x := analysistest.Place(t, body, "x")
	assert.Equal(t, []string{"init", "write"}, analysistest.Labels(body, FindMutations(res, x)))

	res, body = analyze(t, nil, "shared_call")
	q := analysistest.Place(t, body, "q")
	assert.Empty(t, FindMutations(res, q.Deref()))
}

func TestUnsupportedConstructs(t *testing.T) {
	cfg := config.NewDefault()
	cfg.LogLevel = int(config.WarnLevel)
	logger := config.NewLogGroup(cfg)
	var buf bytes.Buffer
	logger.SetAllOutput(&buf)
	ctx := NewContext(logger, cfg, loadFlowProgram(t))
	res, err := ctx.Analyze("odd")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "unsupported statement")
	assert.Contains(t, buf.String(), "unsupported terminator")

	exit := analysistest.Location(t, res.Body, "exit")
	initLoc := analysistest.Location(t, res.Body, "init")
	x := analysistest.Place(t, res.Body, "x")
	assert.True(t, res.StateAt(exit).Row(x).Contains(ir.AtLocation(initLoc)))
}

func TestLogMessagesAreSingleLine(t *testing.T) {
	cfg := config.NewDefault()
	cfg.LogLevel = int(config.TraceLevel)
	cfg.MaxDepth = 1
	logger := config.NewLogGroup(cfg)
	var buf bytes.Buffer
	logger.SetAllOutput(&buf)
	ctx := NewContext(logger, cfg, loadFlowProgram(t))
	for _, name := range []string{"top", "odd", "call_secret", "countdown"} {
		_, err := ctx.Analyze(name)
		require.NoError(t, err)
	}
	require.NotEmpty(t, buf.String())
	assert.NotContains(t, buf.String(), `\n`)
}

func TestAnalyzeUnknownFunction(t *testing.T) {
	cfg := config.NewDefault()
	ctx := NewContext(nil, cfg, loadFlowProgram(t))
	_, err := ctx.Analyze("missing")
	assert.ErrorIs(t, err, ir.ErrUnknownFunction)

	ctx = NewContext(nil, cfg, nil)
	_, err = ctx.Analyze("strong_update")
	assert.ErrorIs(t, err, ir.ErrUnknownFunction)
}

func TestMemoization(t *testing.T) {
	cfg := config.NewDefault()
	ctx := NewContext(nil, cfg, loadFlowProgram(t))
	a, err := ctx.Analyze("add_to")
	require.NoError(t, err)
	_, err = ctx.Analyze("call_add")
	require.NoError(t, err)
	b, err := ctx.Analyze("add_to")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 0, ctx.Depth())
}

func TestMaxDepth(t *testing.T) {
	tests := []struct {
		maxDepth int
		analyzed []string
	}{
		{1, []string{"mid", "top"}},
		{2, []string{"leaf", "mid", "top"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("max depth %d", tt.maxDepth), func(t *testing.T) {
			cfg := config.NewDefault()
			cfg.MaxDepth = tt.maxDepth
			ctx := NewContext(nil, cfg, loadFlowProgram(t))
			res, err := ctx.Analyze("top")
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.analyzed, maps.Keys(ctx.memo))
			deps := slice(t, res, "x", "read-x", Backward)
			assert.Contains(t, deps, "call")
			assert.Contains(t, deps, "init-y")
			assert.Contains(t, deps, "init-x")
		})
	}
}

func TestMaxPlacesFallsBackToSignatures(t *testing.T) {
	for _, maxPlaces := range []int{1, 2, 3, 0} {
		t.Run(fmt.Sprintf("max places %d", maxPlaces), func(t *testing.T) {
			cfg := config.NewDefault()
			cfg.MaxPlaces = maxPlaces
			res, _ := analyze(t, cfg, "call_add")
			assert.Equal(t, []string{"borrow", "call", "init-x", "init-y"}, slice(t, res, "x", "read-x", Backward))
		})
	}

	cfg := config.NewDefault()
	cfg.MaxPlaces = 2
	ctx := NewContext(nil, cfg, loadFlowProgram(t))
	res, err := ctx.Analyze("add_to")
	require.NoError(t, err)
	assert.True(t, res.Info.Truncated())
}

func TestArityMismatchFallsBackToSignatures(t *testing.T) {
	prog := loadFlowProgram(t)
	caller := analysistest.Function(t, prog, "call_add")
	call := caller.Blocks[0].Terminator.(*ir.Call)
	short := *call
	short.Args = call.Args[:1]

	cfg := config.NewDefault()
	callee, reason := ResolveCallee(cfg, prog, caller, &short, func(string) bool { return false }, 1)
	assert.Nil(t, callee)
	assert.Contains(t, reason, "expects 2 arguments")

	callee, reason = ResolveCallee(cfg, prog, caller, call, func(string) bool { return false }, 1)
	require.NotNil(t, callee, reason)
	assert.Equal(t, "add_to", callee.Name)
}

func TestStats(t *testing.T) {
	res, body := analyze(t, nil, "strong_update")
	s := res.Stats()
	assert.Equal(t, len(body.AllLocations()), s.Locations)
	assert.Greater(t, s.PlaceEntries, 0)
	assert.GreaterOrEqual(t, s.LocationEntries, s.PlaceEntries)
}

// recordingAnalysis records every state computed by the transfer functions
type recordingAnalysis struct {
	*FlowAnalysis
	states map[ir.Location][]*FlowDomain
}

func (r *recordingAnalysis) ApplyStatement(state *FlowDomain, s ir.Statement, loc ir.Location) {
	r.FlowAnalysis.ApplyStatement(state, s, loc)
	r.states[loc] = append(r.states[loc], state.Clone())
}

func (r *recordingAnalysis) ApplyTerminator(state *FlowDomain, term ir.Terminator, loc ir.Location) {
	r.FlowAnalysis.ApplyTerminator(state, term, loc)
	r.states[loc] = append(r.states[loc], state.Clone())
}

func TestTransferIsMonotone(t *testing.T) {
	for _, name := range []string{"loop", "branch", "call_add"} {
		t.Run(name, func(t *testing.T) {
			cfg := config.NewDefault()
			ctx := NewContext(nil, cfg, loadFlowProgram(t))
			body := analysistest.Function(t, ctx.Program, name)
			rec := &recordingAnalysis{FlowAnalysis: newFlowAnalysis(ctx, body), states: map[ir.Location][]*FlowDomain{}}
			res := engine.Iterate[*FlowDomain](ctx.Logger, body, rec)
			for loc, states := range rec.states {
				for i := 1; i < len(states); i++ {
					for _, p := range states[i-1].Rows() {
						assert.True(t, states[i].Row(p).IsSuperset(states[i-1].Row(p)),
							"%s shrinks at %s", body.PlaceString(p), loc)
					}
				}
				last := states[len(states)-1]
				assert.True(t, last.Equal(res.StateAt(loc)), "final state at %s", loc)
			}
		})
	}
}
