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

package indexed

import (
	"fmt"
	"strings"

	"golang.org/x/tools/container/intsets"
)

// A Set is a bitset over the indices of a Domain.
// Sets must be manipulated through pointers: the underlying sparse bitset cannot be copied by value.
type Set[T comparable] struct {
	domain *Domain[T]
	bits   intsets.Sparse
}

// NewSet returns an empty set over d, freezing d.
func NewSet[T comparable](d *Domain[T]) *Set[T] {
	d.Freeze()
	return &Set[T]{domain: d}
}

// SetOf returns a set over d containing values.
func SetOf[T comparable](d *Domain[T], values ...T) *Set[T] {
	s := NewSet(d)
	for _, v := range values {
		s.Insert(v)
	}
	return s
}

// Domain returns the domain of the set
func (s *Set[T]) Domain() *Domain[T] {
	return s.domain
}

// Insert adds v to the set and returns true if the set changed.
// It panics if v is not in the domain.
func (s *Set[T]) Insert(v T) bool {
	return s.bits.Insert(s.domain.Index(v))
}

// InsertIndex adds the value with index i to the set
func (s *Set[T]) InsertIndex(i int) bool {
	return s.bits.Insert(i)
}

// Remove removes v from the set and returns true if the set changed
func (s *Set[T]) Remove(v T) bool {
	i, ok := s.domain.Lookup(v)
	return ok && s.bits.Remove(i)
}

// Contains returns true if v is in the set. Values outside the domain are never contained.
func (s *Set[T]) Contains(v T) bool {
	i, ok := s.domain.Lookup(v)
	return ok && s.bits.Has(i)
}

// ContainsIndex returns true if index i is in the set
func (s *Set[T]) ContainsIndex(i int) bool {
	return s.bits.Has(i)
}

// Union adds all the elements of o into s and returns true if s changed
func (s *Set[T]) Union(o *Set[T]) bool {
	if o == nil {
		return false
	}
	s.checkDomain(o)
	return s.bits.UnionWith(&o.bits)
}

// Intersect sets s to the intersection of s and o
func (s *Set[T]) Intersect(o *Set[T]) {
	if o == nil {
		s.bits.Clear()
		return
	}
	s.checkDomain(o)
	s.bits.IntersectionWith(&o.bits)
}

// Subtract removes all elements of o from s
func (s *Set[T]) Subtract(o *Set[T]) {
	if o == nil {
		return
	}
	s.checkDomain(o)
	s.bits.DifferenceWith(&o.bits)
}

// IsSuperset returns true if every element of o is in s
func (s *Set[T]) IsSuperset(o *Set[T]) bool {
	if o == nil {
		return true
	}
	s.checkDomain(o)
	return o.bits.SubsetOf(&s.bits)
}

// IsSubset returns true if every element of s is in o
func (s *Set[T]) IsSubset(o *Set[T]) bool {
	if o == nil {
		return s.IsEmpty()
	}
	return o.IsSuperset(s)
}

// Intersects returns true if s and o have at least one element in common
func (s *Set[T]) Intersects(o *Set[T]) bool {
	if o == nil {
		return false
	}
	s.checkDomain(o)
	return s.bits.Intersects(&o.bits)
}

// Clear removes every element
func (s *Set[T]) Clear() {
	s.bits.Clear()
}

// Len returns the number of elements in the set
func (s *Set[T]) Len() int {
	return s.bits.Len()
}

// IsEmpty returns true if the set has no element
func (s *Set[T]) IsEmpty() bool {
	return s.bits.IsEmpty()
}

// Indices returns the indices of the set in increasing order
func (s *Set[T]) Indices() []int {
	return s.bits.AppendTo(nil)
}

// Values returns the values of the set in increasing index order
func (s *Set[T]) Values() []T {
	indices := s.bits.AppendTo(nil)
	values := make([]T, len(indices))
	for k, i := range indices {
		values[k] = s.domain.Value(i)
	}
	return values
}

// ForEach calls f on every value of the set in increasing index order
func (s *Set[T]) ForEach(f func(T)) {
	for _, i := range s.bits.AppendTo(nil) {
		f(s.domain.Value(i))
	}
}

// Clone returns an owned copy of s
func (s *Set[T]) Clone() *Set[T] {
	c := &Set[T]{domain: s.domain}
	c.bits.Copy(&s.bits)
	return c
}

// Equal returns true if s and o contain the same elements
func (s *Set[T]) Equal(o *Set[T]) bool {
	if o == nil {
		return s.IsEmpty()
	}
	return s.bits.Equals(&o.bits)
}

func (s *Set[T]) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for k, v := range s.Values() {
		if k > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v", v)
	}
	b.WriteByte('}')
	return b.String()
}

func (s *Set[T]) checkDomain(o *Set[T]) {
	if s.domain != o.domain {
		panic("indexed: set operation over different domains")
	}
}
