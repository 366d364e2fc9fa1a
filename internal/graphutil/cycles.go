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
	"github.com/yourbasic/graph"
	"golang.org/x/exp/slices"
)

// ElementaryCycles returns the elementary cycles of cg, using Johnson's algorithm from
// "Finding All The Elementary Circuits of a Directed Graph", 1975.
//
// Each cycle starts and ends with its smallest node id. Self calls are cycles of length one, returned as [x, x].
func ElementaryCycles(cg *CallGraph) [][]int64 {
	keys := append([]int64(nil), cg.Keys...)
	slices.Sort(keys)
	j := &johnson{}
	for i, s := range keys {
		component := componentOf(Subgraph(cg, keys[i:]), s)
		if len(component) == 1 && !cg.Edges[s][s] {
			continue
		}
		j.blocked = map[int64]bool{}
		j.blist = map[int64]map[int64]bool{}
		j.stack = j.stack[:0]
		j.circuit(s, s, Subgraph(cg, component))
	}
	return j.cycles
}

// Cycles returns the elementary cycles of the call graph of the functions, as function names
func Cycles(cg *CallGraph) [][]string {
	var res [][]string
	for _, cycle := range ElementaryCycles(cg) {
		names := make([]string, len(cycle))
		for i, id := range cycle {
			names[i] = cg.Names[id]
		}
		res = append(res, names)
	}
	return res
}

// componentOf returns the strongly connected component of s in g, sorted
func componentOf(g *CallGraph, s int64) []int64 {
	for _, c := range graph.StrongComponents(g) {
		if slices.Contains(c, int(s)) {
			res := make([]int64, len(c))
			for i, v := range c {
				res[i] = int64(v)
			}
			slices.Sort(res)
			return res
		}
	}
	return []int64{s}
}

type johnson struct {
	blocked map[int64]bool
	blist   map[int64]map[int64]bool
	stack   []int64
	cycles  [][]int64
}

func (j *johnson) unblock(u int64) {
	j.blocked[u] = false
	for w := range j.blist[u] {
		delete(j.blist[u], w)
		if j.blocked[w] {
			j.unblock(w)
		}
	}
}

// circuit finds the cycles through s that extend the current stack with v. It returns true if one was found.
func (j *johnson) circuit(v, s int64, g *CallGraph) bool {
	found := false
	j.stack = append(j.stack, v)
	j.blocked[v] = true
	for _, w := range g.Keys {
		if !g.Edges[v][w] {
			continue
		}
		if w == s {
			cycle := make([]int64, len(j.stack), len(j.stack)+1)
			copy(cycle, j.stack)
			j.cycles = append(j.cycles, append(cycle, s))
			found = true
		} else if !j.blocked[w] && j.circuit(w, s, g) {
			found = true
		}
	}
	if found {
		j.unblock(v)
	} else {
		for _, w := range g.Keys {
			if g.Edges[v][w] {
				if j.blist[w] == nil {
					j.blist[w] = map[int64]bool{}
				}
				j.blist[w][v] = true
			}
		}
	}
	j.stack = j.stack[:len(j.stack)-1]
	return found
}
