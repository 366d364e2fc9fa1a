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

package aliases

import (
	"github.com/awslabs/ar-go-flow/analysis/config"
	"github.com/awslabs/ar-go-flow/analysis/ir"
)

// A Loan is a place a region may refer to, with the mutability of the reference that created it
type Loan struct {
	Place ir.Place
	Mut   bool
}

func (l Loan) String() string {
	if l.Mut {
		return "mut " + l.Place.String()
	}
	return l.Place.String()
}

// loanSet is a set of loans that remembers the insertion order
type loanSet struct {
	loans []Loan
	index map[Loan]bool
}

func newLoanSet() *loanSet {
	return &loanSet{index: map[Loan]bool{}}
}

func (s *loanSet) add(l Loan) bool {
	if s.index[l] {
		return false
	}
	s.index[l] = true
	s.loans = append(s.loans, l)
	return true
}

// definiteBorrow records, for a region created by a borrow, the type of the storage being borrowed and the
// projections applied to it.
type definiteBorrow struct {
	typ  ir.Type
	proj []ir.Projection
}

// loanAnalysis computes the loans of every region of a body
type loanAnalysis struct {
	body     *ir.Body
	mode     config.EvalMode
	graph    *LifetimeGraph
	loans    map[ir.Region]*loanSet
	definite map[ir.Region]definiteBorrow
	pointers []ir.PointerPlace
}

// isDirect returns true if p names storage of the body itself: p has no dereference, or it dereferences an
// argument, whose pointees are treated as their own storage.
func isDirect(b *ir.Body, p ir.Place) bool {
	return !p.HasDeref() || b.IsArg(p.Local)
}

func computeLoans(body *ir.Body, mode config.EvalMode) *loanAnalysis {
	la := &loanAnalysis{
		body:     body,
		mode:     mode,
		loans:    map[ir.Region]*loanSet{},
		definite: map[ir.Region]definiteBorrow{},
	}
	for l := range body.Locals {
		la.pointers = append(la.pointers, ir.InteriorPointers(body, ir.PlaceOf(ir.Local(l)), body.Module)...)
	}
	la.graph = NewLifetimeGraph(la.numRegions(), la.constraints())
	la.seed()
	la.propagate()
	return la
}

func (la *loanAnalysis) regionLoans(r ir.Region) *loanSet {
	s, ok := la.loans[r]
	if !ok {
		s = newLoanSet()
		la.loans[r] = s
	}
	return s
}

func (la *loanAnalysis) numRegions() int {
	maxRegion := ir.StaticRegion
	see := func(r ir.Region) {
		if r > maxRegion {
			maxRegion = r
		}
	}
	for _, p := range la.pointers {
		see(p.Region)
	}
	for _, o := range la.body.Outlives {
		see(o.From)
		see(o.To)
	}
	for _, decl := range la.body.Locals {
		for _, r := range ir.TypeRegions(decl.Type, false) {
			see(r)
		}
	}
	la.forEachBorrow(func(b *ir.Borrow) { see(b.Region) })
	return int(maxRegion) + 1
}

func (la *loanAnalysis) forEachBorrow(f func(*ir.Borrow)) {
	for _, blk := range la.body.Blocks {
		for _, s := range blk.Statements {
			if a, ok := s.(*ir.Assign); ok {
				if b, ok := a.Rvalue.(*ir.Borrow); ok {
					f(b)
				}
			}
		}
	}
}

// constraints returns the outlives constraints of the body. In conservative mode, any two regions of pointers
// to identical types are made equal.
func (la *loanAnalysis) constraints() []ir.Outlives {
	edges := append([]ir.Outlives(nil), la.body.Outlives...)
	if la.mode.Pointer != config.ConservativePointers {
		return edges
	}
	for i, p := range la.pointers {
		for _, q := range la.pointers[i+1:] {
			if p.Region < 0 || q.Region < 0 || p.Region == q.Region {
				continue
			}
			if ir.Identical(p.Elem, q.Elem) {
				edges = append(edges, ir.Outlives{From: p.Region, To: q.Region}, ir.Outlives{From: q.Region, To: p.Region})
			}
		}
	}
	return edges
}

func (la *loanAnalysis) seed() {
	body := la.body
	la.forEachBorrow(func(b *ir.Borrow) {
		if isDirect(body, b.Place) {
			la.regionLoans(b.Region).add(Loan{Place: b.Place.Normalize(), Mut: b.Mut})
		}
		if refs := b.Place.RefsInProjection(); len(refs) > 0 {
			elem, _, _, ok := ir.Pointee(body.PlaceType(refs[0].Ptr))
			if ok {
				la.definite[b.Region] = definiteBorrow{typ: elem, proj: refs[0].After}
			}
		} else {
			la.definite[b.Region] = definiteBorrow{typ: body.LocalType(b.Place.Local), proj: b.Place.Projection()}
		}
	})

	for _, blk := range body.Blocks {
		for _, s := range blk.Statements {
			if a, ok := s.(*ir.Assign); ok {
				if addr, ok := a.Rvalue.(*ir.AddressOf); ok && isDirect(body, addr.Place) {
					la.regionLoans(ir.UnknownRegion).add(Loan{Place: addr.Place.Normalize(), Mut: addr.Mut})
				}
			}
		}
	}

	for _, arg := range body.Args() {
		for _, ptr := range ir.InteriorPointers(body, ir.PlaceOf(arg), body.Module) {
			if ptr.Place.Len() <= 2 && ptr.Region != ir.UnknownRegion {
				la.regionLoans(ptr.Region).add(Loan{Place: ptr.Place.Deref().Normalize(), Mut: ptr.Mut})
			}
		}
	}

	for _, ptr := range la.pointers {
		if ptr.Region == ir.UnknownRegion {
			la.regionLoans(ir.UnknownRegion).add(Loan{Place: ptr.Place.Deref().Normalize(), Mut: true})
		}
	}
}

// propagate pushes loans along the subset edges, one component at a time. A loan crossing an edge into a
// region created by a borrow of a projection of the loan's type is refined by that projection, unless the
// edge is part of a cycle.
func (la *loanAnalysis) propagate() {
	for _, component := range la.graph.Components() {
		for changed := true; changed; {
			changed = false
			for _, r := range component {
				a := ir.Region(r)
				from, ok := la.loans[a]
				if !ok {
					continue
				}
				for _, b := range la.graph.Successors(a) {
					cyclic := la.graph.SameComponent(a, b)
					def, refine := la.definite[b]
					refine = refine && !cyclic
					to := la.regionLoans(b)
					for _, l := range from.loans {
						if refine && ir.Identical(la.body.PlaceType(l.Place), def.typ) {
							l.Place = l.Place.Project(def.proj...).Normalize()
						}
						if to.add(l) && cyclic {
							changed = true
						}
					}
				}
			}
		}
	}
}

// numLoans returns the total number of loans over all regions
func (la *loanAnalysis) numLoans() int {
	n := 0
	for _, s := range la.loans {
		n += len(s.loans)
	}
	return n
}
