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

// Package engine computes the fixpoint of a dataflow analysis over the control-flow graph of a body.
//
// An analysis defines a lattice of states (the type parameter D), the state at the start of the body and the
// transfer functions of statements and terminators. The engine runs a worklist algorithm over the program
// points of the body and stores, for every reachable point, the state before the point (the entry state) and the
// state after it (the exit state). For backward analyses, "before" and "after" follow the direction of the
// analysis: the entry state of a point is the join of the exit states of its successors.
package engine

import (
	"fmt"
	"time"

	"github.com/awslabs/ar-go-flow/analysis/config"
	"github.com/awslabs/ar-go-flow/analysis/ir"
	"github.com/awslabs/ar-go-flow/internal/queue"
)

// Direction is the direction in which an analysis propagates states
type Direction int

const (
	// Forward analyses propagate states from the entry of the body to its exits
	Forward Direction = iota
	// Backward analyses propagate states from the exits of the body to its entry
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Domain is the interface of the states of an analysis. States are mutable: Join modifies the receiver.
type Domain[D any] interface {
	// Join sets the receiver to the least upper bound of the receiver and other, and returns true if the receiver
	// changed
	Join(other D) bool
	// Clone returns an independent copy of the state
	Clone() D
}

// Analysis is a dataflow analysis with states of type D
type Analysis[D Domain[D]] interface {
	Direction() Direction
	// Bottom returns the least state of the lattice
	Bottom() D
	// InitializeStart modifies the bottom state into the state at the start of the body: the entry location for
	// forward analyses, and every exit for backward analyses.
	InitializeStart(state D)
	// ApplyStatement applies the effect of the statement s at loc to state
	ApplyStatement(state D, s ir.Statement, loc ir.Location)
	// ApplyTerminator applies the effect of the terminator t at loc to state
	ApplyTerminator(state D, t ir.Terminator, loc ir.Location)
}

// Results holds the fixpoint of an analysis over a body
type Results[D Domain[D]] struct {
	Body     *ir.Body
	Analysis Analysis[D]

	entry      map[ir.Location]D
	exit       map[ir.Location]D
	iterations int
}

// Iterate runs analysis on body until a fixpoint is reached. Only the locations reachable from the entry block
// are analyzed.
func Iterate[D Domain[D]](logger *config.LogGroup, body *ir.Body, analysis Analysis[D]) *Results[D] {
	start := time.Now()
	r := &Results[D]{
		Body:     body,
		Analysis: analysis,
		entry:    map[ir.Location]D{},
		exit:     map[ir.Location]D{},
	}
	dir := analysis.Direction()

	var blocks []ir.BlockID
	if dir == Forward {
		blocks = body.ReversePostorder()
	} else {
		blocks = body.Postorder()
	}

	var worklist queue.WorkQueue[ir.Location]
	for _, b := range blocks {
		locs := body.BlockLocations(b)
		if dir == Backward {
			reverse(locs)
		}
		for _, loc := range locs {
			r.entry[loc] = analysis.Bottom()
			worklist.Push(loc)
		}
	}
	if len(blocks) == 0 {
		return r
	}

	if dir == Forward {
		analysis.InitializeStart(r.entry[ir.Start])
	} else {
		for _, b := range body.Exits() {
			if s, ok := r.entry[body.TerminatorLoc(b)]; ok {
				analysis.InitializeStart(s)
			}
		}
	}

	for !worklist.Empty() {
		loc := worklist.Pop()
		r.iterations++
		state := r.entry[loc].Clone()
		r.apply(state, loc)
		r.exit[loc] = state
		for _, next := range r.next(loc) {
			if e, ok := r.entry[next]; ok && e.Join(state) {
				worklist.Push(next)
			}
		}
	}

	if logger != nil && logger.LogsDebug() {
		logger.Debugf("%s analysis of %s: fixpoint after %d iterations over %d locations (%.2f ms)",
			dir, body.Name, r.iterations, len(r.entry), float64(time.Since(start).Microseconds())/1000)
	}
	return r
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func (r *Results[D]) apply(state D, loc ir.Location) {
	if r.Body.IsTerminator(loc) {
		r.Analysis.ApplyTerminator(state, r.Body.TerminatorAt(loc), loc)
	} else {
		r.Analysis.ApplyStatement(state, r.Body.StatementAt(loc), loc)
	}
}

// next returns the locations whose entry state depends on the exit state of loc
func (r *Results[D]) next(loc ir.Location) []ir.Location {
	body := r.Body
	if r.Analysis.Direction() == Forward {
		if !body.IsTerminator(loc) {
			return []ir.Location{{Block: loc.Block, Statement: loc.Statement + 1}}
		}
		var succs []ir.Location
		for _, b := range body.Successors(loc.Block) {
			succs = append(succs, ir.Location{Block: b, Statement: 0})
		}
		return succs
	}
	if loc.Statement > 0 {
		return []ir.Location{{Block: loc.Block, Statement: loc.Statement - 1}}
	}
	var preds []ir.Location
	for _, b := range body.Predecessors(loc.Block) {
		preds = append(preds, body.TerminatorLoc(b))
	}
	return preds
}

// Iterations returns the number of locations processed before the fixpoint was reached
func (r *Results[D]) Iterations() int {
	return r.iterations
}

// NumLocations returns the number of analyzed locations
func (r *Results[D]) NumLocations() int {
	return len(r.exit)
}

// IsReachable returns true if loc was analyzed
func (r *Results[D]) IsReachable(loc ir.Location) bool {
	_, ok := r.exit[loc]
	return ok
}

// StateAt returns the state after loc, in the direction of the analysis. The bottom state is returned for
// unreachable locations. The returned state must not be modified.
func (r *Results[D]) StateAt(loc ir.Location) D {
	if s, ok := r.exit[loc]; ok {
		return s
	}
	return r.Analysis.Bottom()
}

// EntryAt returns the state before loc, in the direction of the analysis. The bottom state is returned for
// unreachable locations. The returned state must not be modified.
func (r *Results[D]) EntryAt(loc ir.Location) D {
	if s, ok := r.entry[loc]; ok {
		return s
	}
	return r.Analysis.Bottom()
}

// JoinAt returns the join of the states after every location in locs
func (r *Results[D]) JoinAt(locs []ir.Location) D {
	state := r.Analysis.Bottom()
	for _, loc := range locs {
		if s, ok := r.exit[loc]; ok {
			state.Join(s)
		}
	}
	return state
}

// A Visitor is called on the states of the results, in program order
type Visitor[D any] interface {
	// BeforeStart is called first, with the state at the start of the entry block
	BeforeStart(state D)
	// Before is called with the state before the effect of loc
	Before(state D, loc ir.Location)
	// After is called with the state after the effect of loc
	After(state D, loc ir.Location)
}

// VisitReachable calls the visitor on every reachable location, following the reverse postorder of the blocks.
// The states are in program order: for backward analyses, Before receives the exit state of the location.
func (r *Results[D]) VisitReachable(v Visitor[D]) {
	rpo := r.Body.ReversePostorder()
	if len(rpo) == 0 {
		return
	}
	before, after := r.entry, r.exit
	if r.Analysis.Direction() == Backward {
		before, after = r.exit, r.entry
	}
	v.BeforeStart(before[ir.Start])
	for _, b := range rpo {
		for _, loc := range r.Body.BlockLocations(b) {
			v.Before(before[loc], loc)
			v.After(after[loc], loc)
		}
	}
}
