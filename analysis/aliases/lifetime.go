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

package aliases

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-flow/analysis/ir"
	"github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/container/intsets"
)

// A LifetimeGraph is the subset graph of the regions of a body: an edge a -> b means that every loan of a is
// also a loan of b. The UnknownRegion is not part of the graph.
type LifetimeGraph struct {
	g *graph.Mutable
	// n is the number of regions, numbered 0 to n-1
	n int
	// components are the strongly connected components, in topological order
	components [][]int
	// componentOf maps each region to the index of its component in components
	componentOf []int
	// reach maps each component to the set of regions reachable from it
	reach []*intsets.Sparse
}

// NewLifetimeGraph builds the subset graph of numRegions regions from the edges. The static region flows into
// every other region.
func NewLifetimeGraph(numRegions int, edges []ir.Outlives) *LifetimeGraph {
	if numRegions < 1 {
		numRegions = 1
	}
	lg := &LifetimeGraph{g: graph.New(numRegions), n: numRegions}
	for r := 1; r < numRegions; r++ {
		lg.g.Add(int(ir.StaticRegion), r)
	}
	for _, e := range edges {
		lg.addEdge(e.From, e.To)
	}
	lg.computeComponents()
	return lg
}

func (lg *LifetimeGraph) addEdge(from, to ir.Region) {
	if from < 0 || to < 0 || int(from) >= lg.n || int(to) >= lg.n || from == to {
		return
	}
	lg.g.Add(int(from), int(to))
}

// computeComponents orders the components topologically and fills the reachability table. The condensation of
// a graph is acyclic, so the topological sort cannot fail.
func (lg *LifetimeGraph) computeComponents() {
	sccs := graph.StrongComponents(lg.g)
	lg.componentOf = make([]int, lg.n)
	for i, c := range sccs {
		for _, r := range c {
			lg.componentOf[r] = i
		}
	}
	dag := graph.New(len(sccs))
	for v := 0; v < lg.n; v++ {
		lg.g.Visit(v, func(w int, _ int64) bool {
			if cv, cw := lg.componentOf[v], lg.componentOf[w]; cv != cw {
				dag.Add(cv, cw)
			}
			return false
		})
	}
	order, ok := graph.TopSort(dag)
	if !ok {
		panic("aliases: condensation of the lifetime graph has a cycle")
	}
	renumber := make([]int, len(sccs))
	lg.components = make([][]int, len(sccs))
	for k, c := range order {
		renumber[c] = k
		lg.components[k] = sccs[c]
	}
	for r := range lg.componentOf {
		lg.componentOf[r] = renumber[lg.componentOf[r]]
	}

	lg.reach = make([]*intsets.Sparse, len(lg.components))
	for k := len(lg.components) - 1; k >= 0; k-- {
		s := &intsets.Sparse{}
		for _, r := range lg.components[k] {
			s.Insert(r)
			lg.g.Visit(r, func(w int, _ int64) bool {
				if cw := lg.componentOf[w]; cw != k {
					s.UnionWith(lg.reach[cw])
				}
				return false
			})
		}
		lg.reach[k] = s
	}
}

// NumRegions returns the number of regions in the graph
func (lg *LifetimeGraph) NumRegions() int {
	return lg.n
}

// Components returns the strongly connected components of the graph in topological order: every loan flows
// from a component to components appearing later.
func (lg *LifetimeGraph) Components() [][]int {
	return lg.components
}

// Successors returns the regions that directly inherit the loans of r, in increasing order
func (lg *LifetimeGraph) Successors(r ir.Region) []ir.Region {
	if r < 0 || int(r) >= lg.n {
		return nil
	}
	var succs []ir.Region
	lg.g.Visit(int(r), func(w int, _ int64) bool {
		succs = append(succs, ir.Region(w))
		return false
	})
	slices.Sort(succs)
	return succs
}

// SameComponent returns true if a and b are in the same strongly connected component
func (lg *LifetimeGraph) SameComponent(a, b ir.Region) bool {
	if a < 0 || b < 0 || int(a) >= lg.n || int(b) >= lg.n {
		return a == b
	}
	return lg.componentOf[a] == lg.componentOf[b]
}

// Outlives returns true if every loan of a is also a loan of b
func (lg *LifetimeGraph) Outlives(a, b ir.Region) bool {
	if a == b {
		return true
	}
	if a < 0 || b < 0 || int(a) >= lg.n || int(b) >= lg.n {
		return false
	}
	return lg.reach[lg.componentOf[a]].Has(int(b))
}

func (lg *LifetimeGraph) String() string {
	var b strings.Builder
	for r := 0; r < lg.n; r++ {
		fmt.Fprintf(&b, "%s -> %v\n", ir.Region(r), lg.Successors(ir.Region(r)))
	}
	return b.String()
}
