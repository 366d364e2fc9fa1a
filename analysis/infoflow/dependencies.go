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

	"github.com/awslabs/ar-go-flow/analysis/config"
	"github.com/awslabs/ar-go-flow/analysis/ir"
	"golang.org/x/exp/slices"
)

// Direction selects which dependencies of a target are computed
type Direction int

const (
	// Forward finds what the target influences
	Forward Direction = iota
	// Backward finds what influences the target
	Backward
	// Both computes the union of Forward and Backward
	Both
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Both:
		return "both"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// ParseDirection parses the name of a direction
func ParseDirection(s string) (Direction, error) {
	for _, d := range []Direction{Forward, Backward, Both} {
		if d.String() == s {
			return d, nil
		}
	}
	return Forward, fmt.Errorf("unknown direction %q", s)
}

// A Target is a place at a location, e.g. a variable selected by a user
type Target struct {
	Place    ir.Place
	Location ir.Location
}

// A DependencySet is a slice: the locations of the statements that depend on, or influence, a group of targets,
// and the places involved at those locations. Both slices are sorted.
type DependencySet struct {
	Locations []ir.Location
	Places    []ir.Place
}

// Contains returns true if loc is in the set
func (d DependencySet) Contains(loc ir.Location) bool {
	for _, l := range d.Locations {
		if l == loc {
			return true
		}
	}
	return false
}

// ComputeDependencies returns one dependency set per group of targets. A group is handled as a single target
// whose dependencies are the union of the dependencies of its members.
func ComputeDependencies(results *FlowResults, groups [][]Target, dir Direction) []DependencySet {
	sets := make([]DependencySet, len(groups))
	for i, group := range groups {
		if dir == Both {
			fwd := computeGroup(results, group, Forward)
			bwd := computeGroup(results, group, Backward)
			sets[i] = mergeDependencies(fwd, bwd)
		} else {
			sets[i] = computeGroup(results, group, dir)
		}
	}
	return sets
}

func computeGroup(results *FlowResults, group []Target, dir Direction) DependencySet {
	target := results.StateAt(ir.Start).NewLocationSet()
	for _, t := range group {
		target.Union(results.DepsFor(results.StateAt(t.Location), t.Place))
	}
	v := &depVisitor{
		results:   results,
		target:    target,
		direction: dir,
		mutations: mutationVisitor{info: results.Info, quiet: true},
		locations: map[ir.Location]bool{},
		places:    map[ir.Place]bool{},
	}
	if !target.IsEmpty() {
		results.VisitReachable(v)
	}
	return v.dependencySet()
}

func mergeDependencies(a, b DependencySet) DependencySet {
	locs := map[ir.Location]bool{}
	places := map[ir.Place]bool{}
	for _, d := range []DependencySet{a, b} {
		for _, l := range d.Locations {
			locs[l] = true
		}
		for _, p := range d.Places {
			places[p] = true
		}
	}
	return newDependencySet(locs, places)
}

func newDependencySet(locs map[ir.Location]bool, places map[ir.Place]bool) DependencySet {
	d := DependencySet{}
	for l := range locs {
		d.Locations = append(d.Locations, l)
	}
	for p := range places {
		d.Places = append(d.Places, p)
	}
	slices.SortFunc(d.Locations, ir.LessLocation)
	slices.SortFunc(d.Places, ir.LessPlace)
	return d
}

// depVisitor collects the locations where a place is written whose dependencies are related to the target
type depVisitor struct {
	results   *FlowResults
	target    *LocationSet
	direction Direction
	mutations mutationVisitor
	locations map[ir.Location]bool
	places    map[ir.Place]bool
}

func (v *depVisitor) dependencySet() DependencySet {
	return newDependencySet(v.locations, v.places)
}

// BeforeStart checks the arguments, whose dependencies are set before the first location
func (v *depVisitor) BeforeStart(state *FlowDomain) {
	for _, arg := range v.results.Info.AllArgs() {
		for _, p := range v.results.Info.ConflictSet(arg.Place) {
			v.check(state, p, nil, false)
		}
	}
}

// Before does nothing: a location only depends on the state it produces
func (v *depVisitor) Before(*FlowDomain, ir.Location) {}

// After checks the places written at loc, and every place when loc branches
func (v *depVisitor) After(state *FlowDomain, loc ir.Location) {
	for _, m := range v.mutations.mutationsAt(loc) {
		for _, p := range v.results.Info.ConflictSet(m.Mutated) {
			v.check(state, p, &loc, false)
		}
	}
	body := v.results.Body
	if body.IsTerminator(loc) {
		if _, ok := body.TerminatorAt(loc).(*ir.SwitchInt); ok {
			for _, p := range state.Rows() {
				v.check(state, p, &loc, true)
			}
		}
	}
}

func (v *depVisitor) check(state *FlowDomain, p ir.Place, loc *ir.Location, isSwitch bool) {
	row := state.Row(p)
	if row.IsEmpty() {
		return
	}
	var related bool
	switch v.direction {
	case Forward:
		related = row.IsSuperset(v.target)
	case Backward:
		related = v.target.IsSuperset(row)
	default:
		related = row.IsSuperset(v.target) || v.target.IsSuperset(row)
	}
	if !related {
		return
	}
	v.places[p] = true
	if loc == nil {
		return
	}
	at := ir.AtLocation(*loc)
	if row.Contains(at) || (isSwitch && v.target.Contains(at)) {
		v.locations[*loc] = true
	}
}

// FindMutations returns the locations where place may be modified, sorted
func FindMutations(results *FlowResults, place ir.Place) []ir.Location {
	place = place.Normalize()
	info := results.Info
	if info.Mode().Mutability != config.IgnoreMut && info.CrossesImmutableRef(place) {
		return nil
	}
	v := mutationVisitor{info: info, quiet: true}
	var locs []ir.Location
	for _, loc := range results.Body.AllLocations() {
		if !results.IsReachable(loc) {
			continue
		}
		found := false
		for _, m := range v.mutationsAt(loc) {
			for _, p := range info.ConflictSet(m.Mutated) {
				if p.Normalize() == place {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if found {
			locs = append(locs, loc)
		}
	}
	return locs
}
