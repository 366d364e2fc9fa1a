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
)

// A Matrix is a sparse map from row keys to sets over a column domain.
// Rows that were never written are empty.
type Matrix[R comparable, C comparable] struct {
	cols *Domain[C]
	rows map[R]*Set[C]
}

// NewMatrix returns an empty matrix whose rows are sets over cols, freezing cols.
func NewMatrix[R comparable, C comparable](cols *Domain[C]) *Matrix[R, C] {
	cols.Freeze()
	return &Matrix[R, C]{cols: cols, rows: map[R]*Set[C]{}}
}

// ColumnDomain returns the domain of the columns
func (m *Matrix[R, C]) ColumnDomain() *Domain[C] {
	return m.cols
}

func (m *Matrix[R, C]) rowMut(r R) *Set[C] {
	s, ok := m.rows[r]
	if !ok {
		s = NewSet(m.cols)
		m.rows[r] = s
	}
	return s
}

// Insert adds col to row r and returns true if the row changed
func (m *Matrix[R, C]) Insert(r R, col C) bool {
	return m.rowMut(r).Insert(col)
}

// UnionIntoRow adds every element of s to row r and returns true if the row changed
func (m *Matrix[R, C]) UnionIntoRow(r R, s *Set[C]) bool {
	if s == nil || s.IsEmpty() {
		return false
	}
	return m.rowMut(r).Union(s)
}

// Row returns row r. An absent row is returned as a new empty set.
// The returned set is shared with the matrix when the row exists and must not be modified.
func (m *Matrix[R, C]) Row(r R) *Set[C] {
	if s, ok := m.rows[r]; ok {
		return s
	}
	return NewSet(m.cols)
}

// HasRow returns true if row r has at least one element
func (m *Matrix[R, C]) HasRow(r R) bool {
	s, ok := m.rows[r]
	return ok && !s.IsEmpty()
}

// ClearRow empties row r
func (m *Matrix[R, C]) ClearRow(r R) {
	delete(m.rows, r)
}

// Rows returns the keys of the non-empty rows. The order is unspecified.
func (m *Matrix[R, C]) Rows() []R {
	keys := make([]R, 0, len(m.rows))
	for r, s := range m.rows {
		if !s.IsEmpty() {
			keys = append(keys, r)
		}
	}
	return keys
}

// NumRows returns the number of non-empty rows
func (m *Matrix[R, C]) NumRows() int {
	n := 0
	for _, s := range m.rows {
		if !s.IsEmpty() {
			n++
		}
	}
	return n
}

// Join unions every row of o into the corresponding row of m and returns true if m changed.
func (m *Matrix[R, C]) Join(o *Matrix[R, C]) bool {
	changed := false
	for r, s := range o.rows {
		if m.UnionIntoRow(r, s) {
			changed = true
		}
	}
	return changed
}

// Clone returns a deep copy of m
func (m *Matrix[R, C]) Clone() *Matrix[R, C] {
	c := &Matrix[R, C]{cols: m.cols, rows: make(map[R]*Set[C], len(m.rows))}
	for r, s := range m.rows {
		if !s.IsEmpty() {
			c.rows[r] = s.Clone()
		}
	}
	return c
}

// Equal returns true if m and o have the same non-empty rows
func (m *Matrix[R, C]) Equal(o *Matrix[R, C]) bool {
	if m.NumRows() != o.NumRows() {
		return false
	}
	for r, s := range m.rows {
		if !s.Equal(o.Row(r)) {
			return false
		}
	}
	return true
}

func (m *Matrix[R, C]) String() string {
	var b strings.Builder
	for r, s := range m.rows {
		if s.IsEmpty() {
			continue
		}
		fmt.Fprintf(&b, "%v: %s\n", r, s)
	}
	return b.String()
}
