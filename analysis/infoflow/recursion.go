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
	"fmt"

	"github.com/awslabs/ar-go-flow/analysis/config"
	"github.com/awslabs/ar-go-flow/analysis/ir"
)

// recurseIntoCall applies the effect of call to state by analyzing the body of the callee and translating the
// dependencies of its arguments and return place at its exits. It returns false when the call must be handled
// from its signature instead.
func (fa *FlowAnalysis) recurseIntoCall(state *FlowDomain, call *ir.Call, loc ir.Location) bool {
	if fa.ctx.Config.ContextMode != config.RecurseContext {
		return false
	}
	callee, reason := ResolveCallee(fa.ctx.Config, fa.ctx.Program, fa.body, call, fa.ctx.onStack, fa.ctx.Depth())
	if callee == nil {
		fa.ctx.Logger.Tracef("%s: not recursing at %s: %s", fa.body.Name, loc, reason)
		return false
	}
	logger := fa.ctx.Logger
	name := callee.Name
	exits := callee.ReturnLocations()
	results := fa.ctx.AnalyzeBody(callee)
	if results.Info.Truncated() || fa.info.Truncated() {
		logger.Tracef("%s: not recursing at %s: too many places to translate the effects of %s", fa.body.Name,
			loc, name)
		return false
	}
	final := results.JoinAt(exits)
	tr := translator{caller: fa, callee: callee, call: call}

	type effect struct {
		child  ir.Place
		parent ir.Place
	}
	var effects []effect
	for _, child := range results.Info.PlaceDomain().Values() {
		if final.Row(child).Len() <= 1 && child.Local != ir.ReturnLocal {
			continue
		}
		parent, tt := tr.translate(child, true)
		switch tt {
		case private:
			logger.Tracef("%s: %s at %s mutates fields that are private to %s", fa.body.Name, name, loc,
				callee.Module)
			return false
		case untracked:
			logger.Tracef("%s: %s at %s mutates %s, which has no counterpart in the caller", fa.body.Name,
				name, loc, child)
			return false
		case translated:
			effects = append(effects, effect{child: child, parent: parent})
		}
	}

	var mutations []Mutation
	for _, e := range effects {
		row := final.Row(e.child)
		var inputs []ir.Place
		for _, other := range final.Rows() {
			if !row.IsSuperset(final.Row(other)) {
				continue
			}
			input, tt := tr.translate(other, false)
			switch tt {
			case translated:
				inputs = append(inputs, input)
			case untracked:
				logger.Tracef("%s: %s at %s reads %s, which has no counterpart in the caller", fa.body.Name,
					name, loc, other)
				return false
			}
		}
		if e.child.Local == ir.ReturnLocal {
			mutations = append(mutations, Mutation{Mutated: e.parent, Inputs: inputs, Status: Definitely})
		} else {
			mutations = append(mutations, Mutation{Mutated: e.parent, Inputs: inputs, Status: Possibly,
				AliasesOnly: true})
		}
	}
	if len(mutations) == 0 {
		mutations = []Mutation{{Mutated: call.Destination, Status: Definitely}}
	}
	fa.ApplyMutations(state, mutations, loc)
	return true
}

// ResolveCallee returns the body of the function called by call when the call can be analyzed by recursion from
// caller, or nil and the reason why it cannot. onStack reports the functions being analyzed and depth is their
// number.
func ResolveCallee(cfg *config.Config, prog *ir.Program, caller *ir.Body, call *ir.Call, onStack func(string) bool,
	depth int) (*ir.Body, string) {
	if prog == nil {
		return nil, "no program"
	}
	name, ok := call.Func.FnName()
	if !ok {
		return nil, "dynamic call"
	}
	callee, ok := prog.Function(name)
	if !ok {
		return nil, name + " is not defined in the program"
	}
	if callee.Async || callee.Unsafe || ir.IsNever(callee.ReturnType()) {
		return nil, name + " is async, unsafe or never returns"
	}
	for _, p := range ir.OperandPlaces(call.Args...) {
		if ir.ContainsClosure(caller.PlaceType(p), ir.FnMutClosure, ir.FnOnceClosure) {
			return nil, name + " takes a mutable closure"
		}
	}
	if len(call.Args) != callee.ArgCount {
		return nil, fmt.Sprintf("%s expects %d arguments, got %d", name, callee.ArgCount, len(call.Args))
	}
	if onStack(name) {
		return nil, name + " is recursive"
	}
	if cfg.ExceedsMaxDepth(depth) || !cfg.CanRecurseInto(callee.Module, name) {
		return nil, name + " is out of scope"
	}
	if len(callee.ReturnLocations()) == 0 {
		return nil, name + " has no return"
	}
	return callee, ""
}

// translator maps the places of a callee to the places of the caller at a call site
type translator struct {
	caller *FlowAnalysis
	callee *ir.Body
	call   *ir.Call
}

// translation is the outcome of translating a callee place to the caller
type translation int

const (
	translated translation = iota
	// calleeOnly places are locals of the callee, or values it owns
	calleeOnly
	// private places cross a field the caller cannot access
	private
	// untracked places go through a pointer of the caller to a place the caller does not track
	untracked
)

// translate returns the caller place corresponding to the callee place child. The result is calleeOnly if child
// has no counterpart in the caller: a local of the callee, or a value owned by the callee when mutated is true.
func (t translator) translate(child ir.Place, mutated bool) (ir.Place, translation) {
	if child.Local == ir.ReturnLocal {
		if child.Len() > 0 || ir.IsUnit(t.caller.body.PlaceType(t.call.Destination)) {
			return ir.Place{}, calleeOnly
		}
		return t.call.Destination, translated
	}
	if !t.callee.IsArg(child.Local) {
		return ir.Place{}, calleeOnly
	}
	if mutated && !child.HasDeref() {
		return ir.Place{}, calleeOnly
	}
	arg, isPlace := t.call.Args[int(child.Local)-1].AsPlace()
	if !isPlace {
		return ir.Place{}, calleeOnly
	}

	typ := t.callee.LocalType(child.Local)
	for _, e := range child.Projection() {
		if e.Kind == ir.FieldProj && !ir.FieldVisible(typ, e.N, t.caller.body.Module) {
			return ir.Place{}, private
		}
		if typ != nil {
			typ = ir.ProjectType(typ, e)
		}
	}

	parent := arg.Project(child.Projection()...)
	domain := t.caller.info.PlaceDomain()
	for n := parent.Len(); n > arg.Len(); n-- {
		if p := parent.Prefix(n); domain.Contains(p.Normalize()) {
			return p, translated
		}
	}
	if child.HasDeref() {
		return ir.Place{}, untracked
	}
	return arg, translated
}
