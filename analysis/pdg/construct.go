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
	"github.com/awslabs/ar-go-flow/analysis/aliases"
	"github.com/awslabs/ar-go-flow/analysis/config"
	"github.com/awslabs/ar-go-flow/analysis/controldeps"
	"github.com/awslabs/ar-go-flow/analysis/engine"
	"github.com/awslabs/ar-go-flow/analysis/infoflow"
	"github.com/awslabs/ar-go-flow/analysis/ir"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// partialGraph is the state of the construction at one location: the edges built so far, and the call strings of
// the last mutations of every place.
type partialGraph struct {
	edges        map[Edge]bool
	lastMutation map[ir.Place]map[*CallString]bool
}

func newPartialGraph() *partialGraph {
	return &partialGraph{edges: map[Edge]bool{}, lastMutation: map[ir.Place]map[*CallString]bool{}}
}

// Join implements engine.Domain
func (g *partialGraph) Join(o *partialGraph) bool {
	changed := false
	for e := range o.edges {
		if !g.edges[e] {
			g.edges[e] = true
			changed = true
		}
	}
	for p, ats := range o.lastMutation {
		mine, ok := g.lastMutation[p]
		if !ok {
			mine = map[*CallString]bool{}
			g.lastMutation[p] = mine
		}
		for at := range ats {
			if !mine[at] {
				mine[at] = true
				changed = true
			}
		}
	}
	return changed
}

// Clone implements engine.Domain
func (g *partialGraph) Clone() *partialGraph {
	c := &partialGraph{edges: maps.Clone(g.edges), lastMutation: make(map[ir.Place]map[*CallString]bool, len(g.lastMutation))}
	for p, ats := range g.lastMutation {
		c.lastMutation[p] = maps.Clone(ats)
	}
	return c
}

// Builder builds program dependence graphs. Calls to functions of the program are inlined in the graph, with the
// nodes of the callee distinguished by their call strings.
type Builder struct {
	Config  *config.Config
	Logger  *config.LogGroup
	Program *ir.Program

	strings *callStrings
	bodies  map[string]*ir.Body
	stack   []string
}

// NewBuilder returns a builder for the functions of prog
func NewBuilder(logger *config.LogGroup, cfg *config.Config, prog *ir.Program) *Builder {
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	return &Builder{Config: cfg, Logger: logger, Program: prog, strings: newCallStrings()}
}

// Build returns the dependence graph of the function name
func (b *Builder) Build(name string) (*Graph, error) {
	body, err := b.Program.MustFunction(name)
	if err != nil {
		return nil, err
	}
	b.bodies = map[string]*ir.Body{}
	final := b.construct(body, nil, nil)
	g := newGraph(name, b.bodies, final.edges)
	b.Logger.Infof("dependence graph of %s: %d nodes, %d edges", name, len(g.Nodes()), len(g.Edges()))
	return g, nil
}

func (b *Builder) onStack(name string) bool {
	return slices.Contains(b.stack, name)
}

// construct returns the partial graph of body joined over its exits. caller is the call string of the call site,
// and args the nodes flowing into each argument, both nil for the root function.
func (b *Builder) construct(body *ir.Body, caller *CallString, args map[ir.Local][]Node) *partialGraph {
	b.stack = append(b.stack, body.Name)
	defer func() { b.stack = b.stack[:len(b.stack)-1] }()
	b.bodies[body.Name] = body

	c := &constructor{
		b:       b,
		body:    body,
		info:    aliases.Build(b.Logger, b.Config, body),
		control: controldeps.Compute(body),
		caller:  caller,
		args:    args,
	}
	res := engine.Iterate[*partialGraph](b.Logger, body, c)
	exits := body.ReturnLocations()
	if len(exits) == 0 {
		exits = body.AllLocations()
	}
	final := res.JoinAt(exits)
	b.Logger.Debugf("%s: %d edges at %s", body.Name, len(final.edges), caller)
	return final
}

// constructor builds the partial graphs of one body. It implements engine.Analysis.
type constructor struct {
	b       *Builder
	body    *ir.Body
	info    *aliases.PlaceInfo
	control *controldeps.ControlDependencies
	caller  *CallString
	args    map[ir.Local][]Node
}

func (c *constructor) at(loc ir.Location) *CallString {
	return c.b.strings.get(c.caller, GlobalLocation{Function: c.body.Name, Location: loc})
}

func (c *constructor) start() *CallString {
	return c.b.strings.get(c.caller, GlobalLocation{Function: c.body.Name, Start: true})
}

func (c *constructor) Direction() engine.Direction { return engine.Forward }

func (c *constructor) Bottom() *partialGraph { return newPartialGraph() }

// InitializeStart does nothing: arguments are read from the start node when they have not been mutated
func (c *constructor) InitializeStart(*partialGraph) {}

func (c *constructor) ApplyStatement(state *partialGraph, _ ir.Statement, loc ir.Location) {
	c.applyMutations(state, infoflow.MutationsAt(c.info, loc), loc)
}

func (c *constructor) ApplyTerminator(state *partialGraph, t ir.Terminator, loc ir.Location) {
	if call, ok := t.(*ir.Call); ok && c.recurse(state, call, loc) {
		return
	}
	c.applyMutations(state, infoflow.MutationsAt(c.info, loc), loc)
}

// inputNodes returns the nodes whose value is read when input is read: the last mutations of the places
// conflicting with the aliases of input and of the pointers input goes through.
func (c *constructor) inputNodes(state *partialGraph, input ir.Place) []Node {
	sources := append([]ir.Place(nil), c.info.Aliases(input)...)
	for _, ref := range input.RefsInProjection() {
		sources = append(sources, c.info.Aliases(ref.Ptr)...)
	}
	seen := map[Node]bool{}
	var nodes []Node
	add := func(n Node) {
		if !seen[n] {
			seen[n] = true
			nodes = append(nodes, n)
		}
	}
	for _, alias := range sources {
		for _, q := range c.info.ConflictSet(alias) {
			for at := range state.lastMutation[q] {
				add(Node{Place: q, At: at})
			}
		}
		if c.body.IsArg(alias.Local) {
			if c.args == nil {
				add(Node{Place: alias, At: c.start()})
			} else {
				for _, n := range c.args[alias.Local] {
					add(n)
				}
			}
		}
	}
	slices.SortFunc(nodes, lessNode)
	return nodes
}

// controlNodes returns the nodes of the values the branches controlling loc depend on
func (c *constructor) controlNodes(state *partialGraph, loc ir.Location) []Node {
	blocks := c.control.DependentOn(loc.Block)
	if blocks == nil {
		return nil
	}
	var nodes []Node
	for _, b := range blocks.Values() {
		if sw, ok := c.body.TerminatorAt(c.body.TerminatorLoc(b)).(*ir.SwitchInt); ok {
			if discr, ok := sw.Discr.AsPlace(); ok {
				nodes = append(nodes, c.inputNodes(state, discr)...)
			}
		}
	}
	return nodes
}

// applyMutations adds the edges from the inputs of each mutation to the aliases of the mutated place. The inputs
// of every mutation are read before any mutation is applied.
func (c *constructor) applyMutations(state *partialGraph, mutations []infoflow.Mutation, loc ir.Location) {
	if len(mutations) == 0 {
		return
	}
	at := c.at(loc)
	ctrl := c.controlNodes(state, loc)
	inputs := make([][]Node, len(mutations))
	for i, m := range mutations {
		for _, in := range m.Inputs {
			inputs[i] = append(inputs[i], c.inputNodes(state, in)...)
		}
	}
	for i, m := range mutations {
		dsts := c.info.Aliases(m.Mutated)
		strong := len(dsts) == 1 && m.Status == infoflow.Definitely
		for _, dst := range dsts {
			c.write(state, dst, at, inputs[i], ctrl, strong)
		}
	}
}

// write records that dst is written at with a value depending on srcs, under the branches of ctrl
func (c *constructor) write(state *partialGraph, dst ir.Place, at *CallString, srcs, ctrl []Node, strong bool) {
	dstNode := Node{Place: dst, At: at}
	for _, src := range srcs {
		state.edges[Edge{Src: src, Dst: dstNode, Kind: Data, At: at}] = true
	}
	for _, src := range ctrl {
		state.edges[Edge{Src: src, Dst: dstNode, Kind: Control, At: at}] = true
	}
	if strong && !dst.HasIndex() {
		for _, child := range c.info.Children(dst) {
			delete(state.lastMutation, child)
		}
	}
	ats, ok := state.lastMutation[dst]
	if !ok {
		ats = map[*CallString]bool{}
		state.lastMutation[dst] = ats
	}
	ats[at] = true
}

// recurse inlines the graph of the callee of call. It returns false when the call must be handled from its
// signature.
func (c *constructor) recurse(state *partialGraph, call *ir.Call, loc ir.Location) bool {
	if c.b.Config.ContextMode != config.RecurseContext {
		return false
	}
	callee, reason := infoflow.ResolveCallee(c.b.Config, c.b.Program, c.body, call, c.b.onStack, len(c.b.stack))
	if callee == nil {
		c.b.Logger.Tracef("%s: not inlining at %s: %s", c.body.Name, loc, reason)
		return false
	}

	at := c.at(loc)
	args := map[ir.Local][]Node{}
	for i, op := range call.Args {
		p, ok := op.AsPlace()
		if !ok {
			continue
		}
		nodes := c.inputNodes(state, p)
		if _, _, _, ok := ir.Pointee(c.body.PlaceType(p)); ok {
			nodes = append(nodes, c.inputNodes(state, p.Deref())...)
		}
		args[ir.Local(i+1)] = nodes
	}
	final := c.b.construct(callee, at, args)
	changed := maps.Keys(final.lastMutation)
	slices.SortFunc(changed, ir.LessPlace)

	type argWrite struct {
		parent ir.Place
		srcs   []Node
	}
	var writes []argWrite
	for _, q := range changed {
		if !callee.IsArg(q.Local) || !q.HasDeref() {
			continue
		}
		parent, ok, tracked := c.translate(call, q)
		if !tracked {
			c.b.Logger.Tracef("%s: not inlining at %s: %s has no counterpart in the caller", c.body.Name, loc, q)
			return false
		}
		if ok {
			writes = append(writes, argWrite{parent: parent, srcs: nodesOf(q, final.lastMutation[q])})
		}
	}

	for e := range final.edges {
		state.edges[e] = true
	}
	ctrl := c.controlNodes(state, loc)

	var returned []Node
	for _, q := range changed {
		if q.Local == ir.ReturnLocal {
			returned = append(returned, nodesOf(q, final.lastMutation[q])...)
		}
	}
	if len(returned) > 0 {
		dsts := c.info.Aliases(call.Destination)
		for _, dst := range dsts {
			c.write(state, dst, at, returned, ctrl, len(dsts) == 1)
		}
	}

	for _, w := range writes {
		for _, dst := range c.info.Aliases(w.parent) {
			c.write(state, dst, at, w.srcs, ctrl, false)
		}
	}
	return true
}

// translate returns the caller place of the callee argument place q, truncated to a place the caller tracks.
// ok is false if the argument is a constant. tracked is false if the caller tracks no place behind the
// argument's pointer.
func (c *constructor) translate(call *ir.Call, q ir.Place) (parent ir.Place, ok bool, tracked bool) {
	arg, isPlace := call.Args[int(q.Local)-1].AsPlace()
	if !isPlace {
		return ir.Place{}, false, true
	}
	if c.info.Truncated() {
		return ir.Place{}, false, false
	}
	parent = arg.Project(q.Projection()...)
	domain := c.info.PlaceDomain()
	for n := parent.Len(); n > arg.Len(); n-- {
		if p := parent.Prefix(n); domain.Contains(p.Normalize()) {
			return p, true, true
		}
	}
	return ir.Place{}, false, false
}

func nodesOf(p ir.Place, ats map[*CallString]bool) []Node {
	nodes := make([]Node, 0, len(ats))
	for at := range ats {
		nodes = append(nodes, Node{Place: p, At: at})
	}
	slices.SortFunc(nodes, lessNode)
	return nodes
}
