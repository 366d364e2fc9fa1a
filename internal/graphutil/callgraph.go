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

// Package graphutil provides the call graph of a program and the graph algorithms run on it: strongly connected
// components, elementary cycles and reachability.
package graphutil

import (
	"github.com/awslabs/ar-go-flow/analysis/ir"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"
)

// CallGraph is the static call graph of the functions of a program. Node ids are the indices of the functions in
// the sorted names of the program. Calls to functions outside the program are not represented.
//
// A CallGraph implements both the graph.Iterator of yourbasic and the graph.Directed of gonum.
type CallGraph struct {
	order int

	// Names maps node ids to function names
	Names []string

	// IDs maps function names to node ids
	IDs map[string]int64

	// Keys are the ids of the nodes in the graph
	Keys []int64

	// Edges[x][y] means that function x calls function y
	Edges map[int64]map[int64]bool
}

// NewCallGraph returns the call graph of prog
func NewCallGraph(prog *ir.Program) *CallGraph {
	names := prog.Names()
	cg := &CallGraph{
		order: len(names),
		Names: names,
		IDs:   make(map[string]int64, len(names)),
		Keys:  make([]int64, len(names)),
		Edges: make(map[int64]map[int64]bool, len(names)),
	}
	for i, name := range names {
		cg.IDs[name] = int64(i)
		cg.Keys[i] = int64(i)
	}
	for i, name := range names {
		body, _ := prog.Function(name)
		out := map[int64]bool{}
		for _, callee := range ir.Callees(body) {
			if id, ok := cg.IDs[callee]; ok {
				out[id] = true
			}
		}
		cg.Edges[int64(i)] = out
	}
	return cg
}

// Subgraph returns the subgraph of cg induced by the nodes in include. Node ids are the same as in cg.
func Subgraph(cg *CallGraph, include []int64) *CallGraph {
	sub := &CallGraph{
		order: cg.order,
		Names: cg.Names,
		IDs:   cg.IDs,
		Keys:  append([]int64(nil), include...),
		Edges: make(map[int64]map[int64]bool, len(include)),
	}
	for _, id := range include {
		sub.Edges[id] = map[int64]bool{}
	}
	for _, id := range include {
		for callee := range cg.Edges[id] {
			if _, ok := sub.Edges[callee]; ok {
				sub.Edges[id][callee] = true
			}
		}
	}
	return sub
}

// Name returns the function of node id
func (cg *CallGraph) Name(id int64) string {
	return cg.Names[id]
}

// Callees returns the names of the functions of the program called by name, sorted
func (cg *CallGraph) Callees(name string) []string {
	id, ok := cg.IDs[name]
	if !ok {
		return nil
	}
	var res []string
	for _, k := range cg.Keys {
		if cg.Edges[id][k] {
			res = append(res, cg.Names[k])
		}
	}
	return res
}

// Reachable returns the functions reachable from root through calls, root included, in breadth-first order
func (cg *CallGraph) Reachable(root string) []string {
	id, ok := cg.IDs[root]
	if !ok || !cg.has(id) {
		return nil
	}
	var res []string
	var bfs traverse.BreadthFirst
	bfs.Walk(cg, cg.Node(id), func(n graph.Node, _ int) bool {
		res = append(res, cg.Names[n.ID()])
		return false
	})
	return res
}

func (cg *CallGraph) has(id int64) bool {
	_, ok := cg.Edges[id]
	return ok
}

// Order implements graph.Iterator of yourbasic
func (cg *CallGraph) Order() int {
	return cg.order
}

// Visit implements graph.Iterator of yourbasic. Nodes outside the graph have no successor.
func (cg *CallGraph) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	for _, w := range cg.Keys {
		if cg.Edges[int64(v)][w] && do(int(w), 1) {
			return true
		}
	}
	return false
}

// Node implements graph.Graph. It returns nil for nodes outside the graph.
func (cg *CallGraph) Node(id int64) graph.Node {
	if !cg.has(id) {
		return nil
	}
	return FuncNode{id: id, Name: cg.Names[id]}
}

// Nodes implements graph.Graph
func (cg *CallGraph) Nodes() graph.Nodes {
	return cg.nodeSet(cg.Keys)
}

// From implements graph.Graph: the callees of id
func (cg *CallGraph) From(id int64) graph.Nodes {
	var ids []int64
	for _, k := range cg.Keys {
		if cg.Edges[id][k] {
			ids = append(ids, k)
		}
	}
	return cg.nodeSet(ids)
}

// To implements graph.Directed: the callers of id
func (cg *CallGraph) To(id int64) graph.Nodes {
	var ids []int64
	for _, k := range cg.Keys {
		if cg.Edges[k][id] {
			ids = append(ids, k)
		}
	}
	return cg.nodeSet(ids)
}

// HasEdgeBetween implements graph.Graph
func (cg *CallGraph) HasEdgeBetween(xid, yid int64) bool {
	return cg.Edges[xid][yid] || cg.Edges[yid][xid]
}

// HasEdgeFromTo implements graph.Directed
func (cg *CallGraph) HasEdgeFromTo(uid, vid int64) bool {
	return cg.Edges[uid][vid]
}

// Edge implements graph.Graph. It returns nil if uid does not call vid.
func (cg *CallGraph) Edge(uid, vid int64) graph.Edge {
	if !cg.Edges[uid][vid] {
		return nil
	}
	return CallEdge{from: FuncNode{id: uid, Name: cg.Names[uid]}, to: FuncNode{id: vid, Name: cg.Names[vid]}}
}

func (cg *CallGraph) nodeSet(ids []int64) *NodeSet {
	return &NodeSet{graph: cg, ids: ids, cur: -1}
}

// FuncNode is a function of the call graph
type FuncNode struct {
	id   int64
	Name string
}

// ID implements graph.Node
func (n FuncNode) ID() int64 {
	return n.id
}

func (n FuncNode) String() string {
	return n.Name
}

// NodeSet is an iterator over nodes of a call graph. The iterator is positioned before the first node until Next
// is called.
type NodeSet struct {
	graph *CallGraph
	ids   []int64
	cur   int
}

// Next moves to the next node and returns false if there is none
func (ns *NodeSet) Next() bool {
	if ns.cur+1 >= len(ns.ids) {
		return false
	}
	ns.cur++
	return true
}

// Len returns the number of nodes left to iterate over
func (ns *NodeSet) Len() int {
	return len(ns.ids) - ns.cur - 1
}

// Reset restarts the iteration
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node returns the current node, or nil before the first call to Next
func (ns *NodeSet) Node() graph.Node {
	if ns.cur < 0 || ns.cur >= len(ns.ids) {
		return nil
	}
	return ns.graph.Node(ns.ids[ns.cur])
}

// CallEdge is a call from one function to another
type CallEdge struct {
	from FuncNode
	to   FuncNode
}

// From implements graph.Edge
func (e CallEdge) From() graph.Node { return e.from }

// To implements graph.Edge
func (e CallEdge) To() graph.Node { return e.to }

// ReversedEdge implements graph.Edge
func (e CallEdge) ReversedEdge() graph.Edge { return CallEdge{from: e.to, to: e.from} }
