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

// Package controldeps computes the control dependencies between the blocks of a body.
//
// A block Y is control-dependent on a block X if X ends with a branch, one of whose successors always leads to Y
// while another may avoid it. The dependencies are computed from the post-dominator tree, which is the dominator
// tree of the reversed control-flow graph rooted at a synthetic exit node joining every exit of the body.
package controldeps

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-flow/analysis/ir"
	"github.com/awslabs/ar-go-flow/internal/indexed"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/flow"
	"gonum.org/v1/gonum/graph/simple"
)

// ControlDependencies maps each block to the blocks it is control-dependent on
type ControlDependencies struct {
	blocks *indexed.Domain[ir.BlockID]
	deps   map[ir.BlockID]*indexed.Set[ir.BlockID]
	ipdom  []ir.BlockID
}

// Compute returns the control dependencies of body
func Compute(body *ir.Body) *ControlDependencies {
	n := len(body.Blocks)
	blocks := indexed.NewDomain[ir.BlockID]()
	for i := 0; i < n; i++ {
		blocks.Intern(ir.BlockID(i))
	}
	cd := &ControlDependencies{
		blocks: blocks,
		deps:   map[ir.BlockID]*indexed.Set[ir.BlockID]{},
		ipdom:  postDominators(body),
	}
	exit := ir.BlockID(n)

	// For each edge u -> v, every block on the post-dominator tree path from v up to (excluding) the immediate
	// post-dominator of u is control-dependent on u.
	for i := 0; i < n; i++ {
		u := ir.BlockID(i)
		stop := cd.ipdom[u]
		for _, v := range body.Successors(u) {
			for w := v; w != stop && w != exit && w != ir.NoBlock; w = cd.ipdom[w] {
				cd.add(w, u)
			}
		}
	}

	// Loops are lowered with false edges of the form
	//   switch -> (post | false), false -> (body | post)
	// which makes the loop body depend on the false edge block only. Whatever depends on a false edge block also
	// depends on its first predecessor.
	for i := 0; i < n; i++ {
		fe := ir.BlockID(i)
		if _, ok := body.Blocks[i].Terminator.(*ir.FalseEdge); !ok {
			continue
		}
		preds := body.Predecessors(fe)
		if len(preds) == 0 {
			continue
		}
		parent := preds[0]
		for _, b := range cd.Blocks() {
			if cd.deps[b].Contains(fe) {
				cd.add(b, parent)
			}
		}
	}
	return cd
}

// postDominators returns the immediate post-dominator of every block. Blocks post-dominated only by the synthetic
// exit have the exit (len(body.Blocks)) as immediate post-dominator, and blocks that cannot reach an exit have
// NoBlock.
func postDominators(body *ir.Body) []ir.BlockID {
	n := len(body.Blocks)
	g := simple.NewDirectedGraph()
	for i := 0; i <= n; i++ {
		g.AddNode(simple.Node(i))
	}
	exit := simple.Node(n)
	for _, b := range body.Exits() {
		g.SetEdge(g.NewEdge(exit, simple.Node(b)))
	}
	for i := 0; i < n; i++ {
		for _, s := range body.Successors(ir.BlockID(i)) {
			if int(s) == i {
				// self-edges never change dominators, and simple graphs reject them
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(s), simple.Node(i)))
		}
	}
	tree := flow.Dominators(exit, g)
	ipdom := make([]ir.BlockID, n)
	for i := range ipdom {
		ipdom[i] = nodeBlock(tree.DominatorOf(int64(i)))
	}
	return ipdom
}

func nodeBlock(n graph.Node) ir.BlockID {
	if n == nil {
		return ir.NoBlock
	}
	return ir.BlockID(n.ID())
}

func (cd *ControlDependencies) add(block, on ir.BlockID) {
	s, ok := cd.deps[block]
	if !ok {
		s = indexed.NewSet(cd.blocks)
		cd.deps[block] = s
	}
	s.Insert(on)
}

// Blocks returns the blocks that are control-dependent on at least one block, sorted
func (cd *ControlDependencies) Blocks() []ir.BlockID {
	var blocks []ir.BlockID
	for _, b := range cd.blocks.Values() {
		if _, ok := cd.deps[b]; ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// DependentOn returns the blocks that block is control-dependent on, or nil if there are none.
// The returned set must not be modified.
func (cd *ControlDependencies) DependentOn(block ir.BlockID) *indexed.Set[ir.BlockID] {
	return cd.deps[block]
}

// IsDependent returns true if block is control-dependent on the block on
func (cd *ControlDependencies) IsDependent(block, on ir.BlockID) bool {
	s, ok := cd.deps[block]
	return ok && s.Contains(on)
}

// ImmediatePostDominator returns the immediate post-dominator of block. ok is false if block is only
// post-dominated by the exit of the body, or cannot reach it.
func (cd *ControlDependencies) ImmediatePostDominator(block ir.BlockID) (ir.BlockID, bool) {
	d := cd.ipdom[block]
	return d, d != ir.NoBlock && int(d) < len(cd.ipdom)
}

func (cd *ControlDependencies) String() string {
	var b strings.Builder
	for _, blk := range cd.Blocks() {
		fmt.Fprintf(&b, "%s: %s\n", blk, cd.deps[blk])
	}
	return b.String()
}
