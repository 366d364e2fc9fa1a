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

	"github.com/awslabs/ar-go-flow/analysis/aliases"
	"github.com/awslabs/ar-go-flow/analysis/config"
	"github.com/awslabs/ar-go-flow/analysis/ir"
)

// MutationStatus tells whether a mutation always overwrites its place
type MutationStatus int

const (
	// Definitely means the place is overwritten
	Definitely MutationStatus = iota
	// Possibly means the place may be modified, or only partially
	Possibly
)

func (s MutationStatus) String() string {
	if s == Definitely {
		return "definitely"
	}
	return "possibly"
}

// A Mutation is a write of a place, whose new value depends on the inputs
type Mutation struct {
	Mutated ir.Place
	Inputs  []ir.Place
	Status  MutationStatus
	// AliasesOnly restricts the write to the aliases of Mutated, excluding the places that contain it
	AliasesOnly bool
}

func (m Mutation) String() string {
	return fmt.Sprintf("%s %s <- %v", m.Status, m.Mutated, m.Inputs)
}

// mutationVisitor computes the mutations of statements and terminators without looking at the bodies of callees:
// a call may write anything reachable from its arguments through mutable pointers.
type mutationVisitor struct {
	info   *aliases.PlaceInfo
	logger *config.LogGroup
	// quiet disables the warnings, for visitors running after the fixpoint
	quiet bool
}

func (v mutationVisitor) warnf(format string, args ...any) {
	if !v.quiet && v.logger != nil {
		v.logger.Warnf(format, args...)
	}
}

// statementMutations returns the places written by s and the places their new values depend on
func (v mutationVisitor) statementMutations(s ir.Statement, loc ir.Location) []Mutation {
	switch s := s.(type) {
	case *ir.Assign:
		inputs := ir.RvaluePlaces(s.Rvalue)
		for _, l := range s.Place.IndexLocals() {
			inputs = append(inputs, ir.PlaceOf(l))
		}
		return []Mutation{{Mutated: s.Place, Inputs: inputs, Status: Definitely}}
	case *ir.StorageLive, *ir.StorageDead, *ir.Nop:
		return nil
	default:
		v.warnf("%s: unsupported statement %v at %s is ignored", v.info.Body().Name, s, loc)
		return nil
	}
}

// terminatorMutations returns the places written by t and the places their new values depend on
func (v mutationVisitor) terminatorMutations(t ir.Terminator, loc ir.Location) []Mutation {
	switch t := t.(type) {
	case *ir.Call:
		return v.callMutations(t)
	case *ir.DropAndReplace:
		return []Mutation{{Mutated: t.Place, Inputs: ir.OperandPlaces(t.Value), Status: Definitely}}
	case *ir.Goto, *ir.SwitchInt, *ir.Return, *ir.Unreachable, *ir.Drop, *ir.Assert, *ir.FalseEdge,
		*ir.FalseUnwind:
		return nil
	default:
		v.warnf("%s: unsupported terminator %v at %s is ignored", v.info.Body().Name, t, loc)
		return nil
	}
}

// callMutations is the effect of a call seen from its signature only. The destination is overwritten with a
// value that depends on every argument, and every place reachable through a mutable pointer in an argument may
// be modified with a value that depends on every argument.
func (v mutationVisitor) callMutations(call *ir.Call) []Mutation {
	body := v.info.Body()
	argPlaces := ir.OperandPlaces(call.Args...)
	var inputs []ir.Place
	for _, p := range argPlaces {
		inputs = append(inputs, p)
		for _, l := range p.IndexLocals() {
			inputs = append(inputs, ir.PlaceOf(l))
		}
		if _, _, _, ok := ir.Pointee(body.PlaceType(p)); ok {
			inputs = append(inputs, p.Deref())
		}
	}

	var destInputs []ir.Place
	if !ir.IsUnit(body.PlaceType(call.Destination)) {
		destInputs = inputs
	}
	muts := []Mutation{{Mutated: call.Destination, Inputs: destInputs, Status: Definitely}}

	for _, arg := range argPlaces {
		normalized := arg.Normalize()
		for _, p := range v.info.ReachableValues(arg, true) {
			if p == normalized {
				continue
			}
			muts = append(muts, Mutation{Mutated: p, Inputs: inputs, Status: Possibly})
		}
	}
	return muts
}

// mutationsAt returns the mutations of the statement or terminator at loc
func (v mutationVisitor) mutationsAt(loc ir.Location) []Mutation {
	body := v.info.Body()
	if body.IsTerminator(loc) {
		return v.terminatorMutations(body.TerminatorAt(loc), loc)
	}
	return v.statementMutations(body.StatementAt(loc), loc)
}

// MutationsAt returns the mutations of the statement or terminator at loc of the body of info, with calls seen
// from their signature. Unsupported constructs have no mutation.
func MutationsAt(info *aliases.PlaceInfo, loc ir.Location) []Mutation {
	return mutationVisitor{info: info, quiet: true}.mutationsAt(loc)
}
