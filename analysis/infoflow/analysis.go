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
	"github.com/awslabs/ar-go-flow/analysis/aliases"
	"github.com/awslabs/ar-go-flow/analysis/config"
	"github.com/awslabs/ar-go-flow/analysis/controldeps"
	"github.com/awslabs/ar-go-flow/analysis/engine"
	"github.com/awslabs/ar-go-flow/analysis/ir"
)

// FlowAnalysis is the forward dataflow analysis computing the dependencies of every place at every location of
// one body. It implements engine.Analysis.
type FlowAnalysis struct {
	ctx     *Context
	body    *ir.Body
	info    *aliases.PlaceInfo
	control *controldeps.ControlDependencies
	visitor mutationVisitor
	mode    config.EvalMode
}

func newFlowAnalysis(ctx *Context, body *ir.Body) *FlowAnalysis {
	info := aliases.Build(ctx.Logger, ctx.Config, body)
	return &FlowAnalysis{
		ctx:     ctx,
		body:    body,
		info:    info,
		control: controldeps.Compute(body),
		visitor: mutationVisitor{info: info, logger: ctx.Logger},
		mode:    ctx.Config.EvalMode(),
	}
}

// Direction implements engine.Analysis
func (fa *FlowAnalysis) Direction() engine.Direction {
	return engine.Forward
}

// Bottom implements engine.Analysis
func (fa *FlowAnalysis) Bottom() *FlowDomain {
	return NewFlowDomain(fa.info.LocationDomain())
}

// InitializeStart implements engine.Analysis: every place reachable from an argument depends on the argument.
func (fa *FlowAnalysis) InitializeStart(state *FlowDomain) {
	for _, arg := range fa.info.AllArgs() {
		for _, p := range fa.info.ConflictSet(arg.Place) {
			state.Insert(p, ir.AtArg(arg.Arg))
		}
	}
}

// ApplyStatement implements engine.Analysis
func (fa *FlowAnalysis) ApplyStatement(state *FlowDomain, s ir.Statement, loc ir.Location) {
	fa.ApplyMutations(state, fa.visitor.statementMutations(s, loc), loc)
}

// ApplyTerminator implements engine.Analysis. Calls to local functions are analyzed by recursion when possible.
func (fa *FlowAnalysis) ApplyTerminator(state *FlowDomain, t ir.Terminator, loc ir.Location) {
	if call, ok := t.(*ir.Call); ok && fa.recurseIntoCall(state, call, loc) {
		return
	}
	fa.ApplyMutations(state, fa.visitor.terminatorMutations(t, loc), loc)
}

// ApplyMutations applies the mutations happening at loc to state. The dependencies of each mutation are computed
// before any mutation is applied.
func (fa *FlowAnalysis) ApplyMutations(state *FlowDomain, mutations []Mutation, loc ir.Location) {
	if len(mutations) == 0 {
		return
	}
	control := state.NewLocationSet()
	fa.addControlDependencies(state, loc, control)

	deps := make([]*LocationSet, len(mutations))
	for i, m := range mutations {
		d := state.NewLocationSet()
		d.Insert(ir.AtLocation(loc))
		for _, input := range m.Inputs {
			fa.addInfluences(state, input, d)
		}
		d.Union(control)
		deps[i] = d
	}

	for i, m := range mutations {
		fa.strongUpdate(state, m)
		fa.addInfluences(state, m.Mutated, deps[i])

		var targets []ir.Place
		if m.AliasesOnly {
			targets = fa.info.Aliases(m.Mutated)
		} else {
			targets = fa.info.ConflictSet(m.Mutated)
		}
		for _, p := range targets {
			if fa.mode.Mutability != config.IgnoreMut && fa.info.CrossesImmutableRef(p) {
				continue
			}
			state.UnionInto(p, deps[i])
		}
	}
}

// strongUpdate clears the dependencies of the place overwritten by a definite mutation, when that place is known
func (fa *FlowAnalysis) strongUpdate(state *FlowDomain, m Mutation) {
	if m.Status != Definitely || m.Mutated.HasIndex() || !fa.info.Conflicts(m.Mutated).SinglePointee {
		return
	}
	pointee := fa.info.Pointees(m.Mutated)[0]
	if pointee.HasIndex() {
		return
	}
	for _, p := range fa.info.Children(pointee) {
		state.ClearRow(p)
	}
	for _, p := range fa.info.Children(m.Mutated) {
		state.ClearRow(p)
	}
}

// addInfluences adds to deps the dependencies of every place inside an alias of p, and of the pointers p goes
// through. Writes update the rows of the places containing the written place, so the containers of p are not read.
func (fa *FlowAnalysis) addInfluences(state *FlowDomain, p ir.Place, deps *LocationSet) {
	for _, c := range fa.info.Conflicts(p).Subs {
		deps.Union(state.Row(c))
	}
	for _, ref := range p.RefsInProjection() {
		for _, alias := range fa.info.Aliases(ref.Ptr) {
			deps.Union(state.Row(alias))
		}
	}
}

// addControlDependencies adds to deps the terminators the block of loc depends on, and the values they branch on
func (fa *FlowAnalysis) addControlDependencies(state *FlowDomain, loc ir.Location, deps *LocationSet) {
	blocks := fa.control.DependentOn(loc.Block)
	if blocks == nil {
		return
	}
	for _, b := range blocks.Values() {
		term := fa.body.TerminatorLoc(b)
		deps.Insert(ir.AtLocation(term))
		if sw, ok := fa.body.TerminatorAt(term).(*ir.SwitchInt); ok {
			if discr, ok := sw.Discr.AsPlace(); ok {
				fa.addInfluences(state, discr, deps)
			}
		}
	}
}
