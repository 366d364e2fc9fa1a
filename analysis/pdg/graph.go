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
	"fmt"

	"github.com/awslabs/ar-go-flow/analysis/ir"
	"github.com/awslabs/ar-go-flow/internal/graphutil"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"
	"gopkg.in/yaml.v3"
)

// A Node is the value of a place at a point of the execution. The place is in the body of the leaf function of
// the call string.
type Node struct {
	Place ir.Place
	At    *CallString
}

// EdgeKind distinguishes data dependencies from control dependencies
type EdgeKind int

const (
	// Data edges go from the inputs of an operation to the places it writes
	Data EdgeKind = iota
	// Control edges go from the values a branch depends on to the places written under the branch
	Control
)

func (k EdgeKind) String() string {
	if k == Data {
		return "data"
	}
	return "control"
}

// An Edge is a dependency of Dst on Src, created by the operation at At
type Edge struct {
	Src  Node
	Dst  Node
	Kind EdgeKind
	At   *CallString
}

// Graph is the program dependence graph of a function, including the bodies of the callees it was built with
type Graph struct {
	// Root is the name of the analyzed function
	Root string

	g      *multi.DirectedGraph
	nodes  []Node
	ids    map[Node]int64
	edges  []Edge
	bodies map[string]*ir.Body
}

func newGraph(root string, bodies map[string]*ir.Body, edges map[Edge]bool) *Graph {
	gr := &Graph{
		Root:   root,
		g:      multi.NewDirectedGraph(),
		ids:    map[Node]int64{},
		bodies: bodies,
	}
	for e := range edges {
		gr.edges = append(gr.edges, e)
	}
	slices.SortFunc(gr.edges, lessEdge)
	for i, e := range gr.edges {
		from, to := gr.node(e.Src), gr.node(e.Dst)
		gr.g.SetLine(&line{from: from, to: to, uid: int64(i), edge: e})
	}
	return gr
}

// node returns the graph node of n, adding it if needed
func (gr *Graph) node(n Node) *node {
	if id, ok := gr.ids[n]; ok {
		return gr.g.Node(id).(*node)
	}
	id := int64(len(gr.nodes))
	gr.ids[n] = id
	gr.nodes = append(gr.nodes, n)
	gn := &node{id: id, label: gr.NodeString(n)}
	gr.g.AddNode(gn)
	return gn
}

// Nodes returns the nodes of the graph
func (gr *Graph) Nodes() []Node {
	return gr.nodes
}

// Edges returns the edges of the graph, sorted
func (gr *Graph) Edges() []Edge {
	return gr.edges
}

// HasNode returns true if n is a node of the graph
func (gr *Graph) HasNode(n Node) bool {
	_, ok := gr.ids[n]
	return ok
}

// HasPath returns true if dst transitively depends on src
func (gr *Graph) HasPath(src, dst Node) bool {
	from, ok1 := gr.ids[src]
	to, ok2 := gr.ids[dst]
	if !ok1 || !ok2 {
		return false
	}
	return topo.PathExistsIn(gr.g, gr.g.Node(from), gr.g.Node(to))
}

// NodesOf returns the nodes of place in the function at the leaf of the call strings
func (gr *Graph) NodesOf(function string, place ir.Place) []Node {
	var res []Node
	for _, n := range gr.nodes {
		if n.Place == place && n.At.Leaf().Function == function {
			res = append(res, n)
		}
	}
	return res
}

// CallTree returns the tree of the calls inlined in the graph. The root is labelled with the root function, and
// every other node with the callee and the location of the call site in its caller.
func (gr *Graph) CallTree() *graphutil.Tree[GlobalLocation] {
	root := graphutil.NewTree(GlobalLocation{Function: gr.Root, Start: true})
	for _, n := range gr.nodes {
		t := root
		locs := n.At.Locations()
		for i := 0; i+1 < len(locs); i++ {
			site := GlobalLocation{Function: locs[i+1].Function, Location: locs[i].Location}
			t = t.Child(site, func(l GlobalLocation) bool { return l == site })
		}
	}
	return root
}

// NodeString prints n with the names of the locals of its function
func (gr *Graph) NodeString(n Node) string {
	place := n.Place.String()
	if body, ok := gr.bodies[n.At.Leaf().Function]; ok {
		place = body.PlaceString(n.Place)
	}
	return fmt.Sprintf("%s @ %s", place, n.At)
}

// MarshalDOT returns the graph in the DOT format
func (gr *Graph) MarshalDOT() ([]byte, error) {
	return dot.MarshalMulti(gr.g, gr.Root, "", "  ")
}

// ExportedGraph is the serializable form of a Graph
type ExportedGraph struct {
	Root  string         `yaml:"root" msgpack:"root" json:"root"`
	Nodes []ExportedNode `yaml:"nodes" msgpack:"nodes" json:"nodes"`
	Edges []ExportedEdge `yaml:"edges" msgpack:"edges" json:"edges"`
}

// ExportedNode is the serializable form of a Node
type ExportedNode struct {
	ID    int64    `yaml:"id" msgpack:"id" json:"id"`
	Place string   `yaml:"place" msgpack:"place" json:"place"`
	At    []string `yaml:"at" msgpack:"at" json:"at"`
}

// ExportedEdge is the serializable form of an Edge. Src and Dst are node ids.
type ExportedEdge struct {
	Src  int64    `yaml:"src" msgpack:"src" json:"src"`
	Dst  int64    `yaml:"dst" msgpack:"dst" json:"dst"`
	Kind string   `yaml:"kind" msgpack:"kind" json:"kind"`
	At   []string `yaml:"at" msgpack:"at" json:"at"`
}

// Export returns the serializable form of the graph
func (gr *Graph) Export() ExportedGraph {
	ex := ExportedGraph{Root: gr.Root}
	for id, n := range gr.nodes {
		place := n.Place.String()
		if body, ok := gr.bodies[n.At.Leaf().Function]; ok {
			place = body.PlaceString(n.Place)
		}
		ex.Nodes = append(ex.Nodes, ExportedNode{ID: int64(id), Place: place, At: n.At.Strings()})
	}
	for _, e := range gr.edges {
		ex.Edges = append(ex.Edges, ExportedEdge{
			Src:  gr.ids[e.Src],
			Dst:  gr.ids[e.Dst],
			Kind: e.Kind.String(),
			At:   e.At.Strings(),
		})
	}
	return ex
}

// MarshalYAML returns the exported graph in YAML
func (gr *Graph) MarshalYAML() ([]byte, error) {
	return yaml.Marshal(gr.Export())
}

// MarshalMsgpack returns the exported graph in msgpack
func (gr *Graph) MarshalMsgpack() ([]byte, error) {
	return msgpack.Marshal(gr.Export())
}

// UnmarshalMsgpack decodes a graph exported with MarshalMsgpack
func UnmarshalMsgpack(b []byte) (ExportedGraph, error) {
	var ex ExportedGraph
	if err := msgpack.Unmarshal(b, &ex); err != nil {
		return ex, fmt.Errorf("decoding graph: %w", err)
	}
	return ex, nil
}

func lessNode(a, b Node) bool {
	if a.At != b.At {
		return a.At.less(b.At)
	}
	return ir.LessPlace(a.Place, b.Place)
}

func lessEdge(a, b Edge) bool {
	switch {
	case a.Src != b.Src:
		return lessNode(a.Src, b.Src)
	case a.Dst != b.Dst:
		return lessNode(a.Dst, b.Dst)
	case a.Kind != b.Kind:
		return a.Kind < b.Kind
	}
	return a.At != b.At && a.At.less(b.At)
}

// node is a node of the gonum graph, labelled with the printed Node
type node struct {
	id    int64
	label string
}

func (n *node) ID() int64 { return n.id }

func (n *node) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "label", Value: n.label}}
}

// line is an edge of the gonum graph
type line struct {
	from, to *node
	uid      int64
	edge     Edge
}

func (l *line) From() graph.Node { return l.from }
func (l *line) To() graph.Node   { return l.to }
func (l *line) ID() int64        { return l.uid }

func (l *line) ReversedLine() graph.Line {
	return &line{from: l.to, to: l.from, uid: l.uid, edge: l.edge}
}

func (l *line) Attributes() []encoding.Attribute {
	attrs := []encoding.Attribute{{Key: "label", Value: l.edge.At.Leaf().String()}}
	if l.edge.Kind == Control {
		attrs = append(attrs, encoding.Attribute{Key: "style", Value: "dashed"})
	}
	return attrs
}
