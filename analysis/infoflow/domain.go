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

package infoflow

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-flow/analysis/ir"
	"github.com/awslabs/ar-go-flow/internal/indexed"
	"golang.org/x/exp/slices"
)

// LocationSet is a set of locations and argument entries of one body
type LocationSet = indexed.Set[ir.LocationOrArg]

// FlowDomain is the state of the information flow analysis: for each normalized place, the set of locations and
// arguments its value at this point may depend on.
type FlowDomain struct {
	deps *indexed.Matrix[ir.Place, ir.LocationOrArg]
}

// NewFlowDomain returns an empty state over the locations of a body
func NewFlowDomain(locations *indexed.Domain[ir.LocationOrArg]) *FlowDomain {
	return &FlowDomain{deps: indexed.NewMatrix[ir.Place](locations)}
}

// Join implements engine.Domain
func (d *FlowDomain) Join(o *FlowDomain) bool {
	return d.deps.Join(o.deps)
}

// Clone implements engine.Domain
func (d *FlowDomain) Clone() *FlowDomain {
	return &FlowDomain{deps: d.deps.Clone()}
}

// Locations returns the domain of the locations of the body
func (d *FlowDomain) Locations() *indexed.Domain[ir.LocationOrArg] {
	return d.deps.ColumnDomain()
}

// NewLocationSet returns an empty set over the locations of the state
func (d *FlowDomain) NewLocationSet() *LocationSet {
	return indexed.NewSet(d.deps.ColumnDomain())
}

// Row returns the dependencies of p. The set must not be modified.
func (d *FlowDomain) Row(p ir.Place) *LocationSet {
	return d.deps.Row(p.Normalize())
}

// HasRow returns true if p has at least one dependency
func (d *FlowDomain) HasRow(p ir.Place) bool {
	return d.deps.HasRow(p.Normalize())
}

// Rows returns the places with at least one dependency, in place order
func (d *FlowDomain) Rows() []ir.Place {
	rows := d.deps.Rows()
	slices.SortFunc(rows, ir.LessPlace)
	return rows
}

// NumRows returns the number of places with at least one dependency
func (d *FlowDomain) NumRows() int {
	return d.deps.NumRows()
}

// Insert adds the dependency l to p and returns true if the row changed
func (d *FlowDomain) Insert(p ir.Place, l ir.LocationOrArg) bool {
	return d.deps.Insert(p.Normalize(), l)
}

// UnionInto adds the dependencies in s to p and returns true if the row changed
func (d *FlowDomain) UnionInto(p ir.Place, s *LocationSet) bool {
	return d.deps.UnionIntoRow(p.Normalize(), s)
}

// ClearRow removes all the dependencies of p
func (d *FlowDomain) ClearRow(p ir.Place) {
	d.deps.ClearRow(p.Normalize())
}

// Equal returns true if both states have the same dependencies
func (d *FlowDomain) Equal(o *FlowDomain) bool {
	return d.deps.Equal(o.deps)
}

// Format prints the state with the names of the locals of body, one place per line
func (d *FlowDomain) Format(body *ir.Body) string {
	var b strings.Builder
	for _, p := range d.Rows() {
		fmt.Fprintf(&b, "%s: %s\n", body.PlaceString(p), d.deps.Row(p))
	}
	return b.String()
}

func (d *FlowDomain) String() string {
	var b strings.Builder
	for _, p := range d.Rows() {
		fmt.Fprintf(&b, "%s: %s\n", p, d.deps.Row(p))
	}
	return b.String()
}
