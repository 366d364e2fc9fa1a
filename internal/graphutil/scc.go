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

package graphutil

import (
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph/topo"
)

// StronglyConnectedComponents returns the strongly connected components of the graph given by nodes and
// successors, using Tarjan's algorithm. Components are in reverse topological order: the components a component
// calls into come before it.
func StronglyConnectedComponents[T comparable](nodes []T, successors func(T) []T) [][]T {
	t := &tarjan[T]{
		successors: successors,
		index:      map[T]int{},
		lowlink:    map[T]int{},
		onStack:    map[T]bool{},
	}
	for _, v := range nodes {
		if _, ok := t.index[v]; !ok {
			t.visit(v)
		}
	}
	return t.sccs
}

type tarjan[T comparable] struct {
	successors func(T) []T
	index      map[T]int
	lowlink    map[T]int
	onStack    map[T]bool
	stack      []T
	sccs       [][]T
}

func (t *tarjan[T]) visit(v T) {
	n := len(t.index)
	t.index[v] = n
	t.lowlink[v] = n
	t.stack = append(t.stack, v)
	t.onStack[v] = true
	for _, w := range t.successors(v) {
		if _, seen := t.index[w]; !seen {
			t.visit(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] && t.index[w] < t.lowlink[v] {
			t.lowlink[v] = t.index[w]
		}
	}
	if t.lowlink[v] != t.index[v] {
		return
	}
	var scc []T
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		scc = append(scc, w)
		if w == v {
			break
		}
	}
	t.sccs = append(t.sccs, scc)
}

// BottomUp returns the functions of cg grouped by strongly connected component, callees first. Analyzing the
// functions in this order analyzes every callee outside a recursive cycle before its callers.
func BottomUp(cg *CallGraph) [][]string {
	sccs := StronglyConnectedComponents(cg.Names, cg.Callees)
	for _, scc := range sccs {
		slices.Sort(scc)
	}
	return sccs
}

// Recursive returns the functions of cg that belong to a cycle, sorted
func Recursive(cg *CallGraph) []string {
	var res []string
	for _, scc := range topo.TarjanSCC(cg) {
		if len(scc) > 1 || cg.Edges[scc[0].ID()][scc[0].ID()] {
			for _, n := range scc {
				res = append(res, cg.Names[n.ID()])
			}
		}
	}
	slices.Sort(res)
	return res
}
