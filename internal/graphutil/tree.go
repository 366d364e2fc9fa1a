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
	"github.com/awslabs/ar-go-flow/internal/funcutil"
	"golang.org/x/exp/slices"
)

// Tree is a generic tree with labelled nodes
type Tree[T any] struct {
	Parent   *Tree[T]
	Children []*Tree[T]
	Label    T
}

// NewTree returns a tree with a single node labelled rootLabel
func NewTree[T any](rootLabel T) *Tree[T] {
	return &Tree[T]{Label: rootLabel}
}

// Label returns the label of t
func Label[T any](t *Tree[T]) T {
	return t.Label
}

// AddChild adds a child labelled label to t and returns it
func (t *Tree[T]) AddChild(label T) *Tree[T] {
	child := &Tree[T]{Parent: t, Label: label}
	t.Children = append(t.Children, child)
	return child
}

// Child returns the first child of t whose label satisfies match, adding a child labelled label if there is none
func (t *Tree[T]) Child(label T, match func(T) bool) *Tree[T] {
	if i := slices.IndexFunc(t.Children, func(c *Tree[T]) bool { return match(c.Label) }); i >= 0 {
		return t.Children[i]
	}
	return t.AddChild(label)
}

// Ancestors returns the chain of the n closest ancestors of t, t included, from the furthest to t.
// If n < 0, the chain goes up to the root.
func (t *Tree[T]) Ancestors(n int) []*Tree[T] {
	var res []*Tree[T]
	for cur := t; cur != nil && (n < 0 || len(res) < n); cur = cur.Parent {
		res = append(res, cur)
	}
	funcutil.Reverse(res)
	return res
}

// Walk calls f on every node of t in depth-first pre-order, with the depth of the node
func (t *Tree[T]) Walk(f func(node *Tree[T], depth int)) {
	t.walk(f, 0)
}

func (t *Tree[T]) walk(f func(*Tree[T], int), depth int) {
	f(t, depth)
	for _, c := range t.Children {
		c.walk(f, depth+1)
	}
}

// Size returns the number of nodes of t
func (t *Tree[T]) Size() int {
	n := 0
	t.Walk(func(*Tree[T], int) { n++ })
	return n
}
