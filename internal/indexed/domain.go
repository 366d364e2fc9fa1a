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

import "fmt"

// A Domain is a bijection between a finite set of values and the dense indices 0..n.
//
// Values are interned while the domain is being built. The domain is frozen as soon as a Set or a Matrix
// is created over it, and any attempt to intern a new value afterwards panics.
type Domain[T comparable] struct {
	values []T
	index  map[T]int
	frozen bool
}

// NewDomain returns a domain containing values, in order. Duplicates are interned once.
func NewDomain[T comparable](values ...T) *Domain[T] {
	d := &Domain[T]{index: make(map[T]int, len(values))}
	for _, v := range values {
		d.Intern(v)
	}
	return d
}

// Intern returns the index of v, adding it to the domain if it is not present.
// Interning a new value into a frozen domain panics.
func (d *Domain[T]) Intern(v T) int {
	if i, ok := d.index[v]; ok {
		return i
	}
	if d.frozen {
		panic(fmt.Sprintf("indexed: interning %v into a frozen domain", v))
	}
	i := len(d.values)
	d.values = append(d.values, v)
	d.index[v] = i
	return i
}

// Index returns the index of v. It panics if v has never been interned.
func (d *Domain[T]) Index(v T) int {
	i, ok := d.index[v]
	if !ok {
		panic(fmt.Sprintf("indexed: value %v is not in the domain", v))
	}
	return i
}

// Lookup returns the index of v and whether v is in the domain
func (d *Domain[T]) Lookup(v T) (int, bool) {
	i, ok := d.index[v]
	return i, ok
}

// Value resolves an index. It panics if i is out of range.
func (d *Domain[T]) Value(i int) T {
	if i < 0 || i >= len(d.values) {
		panic(fmt.Sprintf("indexed: index %d out of range [0, %d)", i, len(d.values)))
	}
	return d.values[i]
}

// Contains returns true if v has been interned
func (d *Domain[T]) Contains(v T) bool {
	_, ok := d.index[v]
	return ok
}

// Len returns the number of values in the domain
func (d *Domain[T]) Len() int {
	return len(d.values)
}

// Values returns the values of the domain ordered by index. The slice must not be modified.
func (d *Domain[T]) Values() []T {
	return d.values
}

// Freeze prevents any further interning. It is called implicitly by NewSet and NewMatrix.
func (d *Domain[T]) Freeze() {
	d.frozen = true
}

// Frozen returns true if the domain cannot grow anymore
func (d *Domain[T]) Frozen() bool {
	return d.frozen
}
