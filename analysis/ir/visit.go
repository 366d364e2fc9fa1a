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

package ir

// OperandPlaces returns the places read by the operands, skipping constants
func OperandPlaces(ops ...Operand) []Place {
	var places []Place
	for _, o := range ops {
		if p, ok := o.AsPlace(); ok {
			places = append(places, p)
		}
	}
	return places
}

// withIndexLocals returns the places and the locals used to index them
func withIndexLocals(places []Place) []Place {
	var res []Place
	for _, p := range places {
		res = append(res, p)
		for _, l := range p.IndexLocals() {
			res = append(res, PlaceOf(l))
		}
	}
	return res
}

// RvaluePlaces returns every place read when evaluating r, including the locals used as indices
func RvaluePlaces(r Rvalue) []Place {
	var places []Place
	switch r := r.(type) {
	case *Use:
		places = OperandPlaces(r.Operand)
	case *Borrow:
		places = []Place{r.Place}
	case *AddressOf:
		places = []Place{r.Place}
	case *BinaryOp:
		places = OperandPlaces(r.Left, r.Right)
	case *UnaryOp:
		places = OperandPlaces(r.Operand)
	case *Aggregate:
		places = OperandPlaces(r.Operands...)
	case *Discriminant:
		places = []Place{r.Place}
	case *Len:
		places = []Place{r.Place}
	case *Cast:
		places = OperandPlaces(r.Operand)
	}
	return withIndexLocals(places)
}

// StatementPlaces returns every place mentioned by a statement
func StatementPlaces(s Statement) []Place {
	switch s := s.(type) {
	case *Assign:
		return append(withIndexLocals([]Place{s.Place}), RvaluePlaces(s.Rvalue)...)
	case *StorageLive:
		return []Place{PlaceOf(s.Local)}
	case *StorageDead:
		return []Place{PlaceOf(s.Local)}
	}
	return nil
}

// TerminatorPlaces returns every place mentioned by a terminator
func TerminatorPlaces(t Terminator) []Place {
	var places []Place
	switch t := t.(type) {
	case *SwitchInt:
		places = OperandPlaces(t.Discr)
	case *Call:
		places = append(OperandPlaces(t.Func), OperandPlaces(t.Args...)...)
		places = append(places, t.Destination)
	case *Drop:
		places = []Place{t.Place}
	case *DropAndReplace:
		places = append([]Place{t.Place}, OperandPlaces(t.Value)...)
	case *Assert:
		places = OperandPlaces(t.Cond)
	}
	return withIndexLocals(places)
}

// MentionedPlaces returns the places mentioned anywhere in the body, followed by every local.
// Duplicates are removed, and the order is deterministic.
func MentionedPlaces(b *Body) []Place {
	seen := map[Place]bool{}
	var places []Place
	add := func(ps []Place) {
		for _, p := range ps {
			if !seen[p] {
				seen[p] = true
				places = append(places, p)
			}
		}
	}
	for _, blk := range b.Blocks {
		for _, s := range blk.Statements {
			add(StatementPlaces(s))
		}
		if blk.Terminator != nil {
			add(TerminatorPlaces(blk.Terminator))
		}
	}
	for i := range b.Locals {
		add([]Place{PlaceOf(Local(i))})
	}
	return places
}

// maxTypeDepth bounds the expansion of recursive types
const maxTypeDepth = 8

// InteriorPlaces returns p and every place reachable from p through field, variant and index projections,
// without going through pointers. Fields that are not visible from module are skipped. Index projections
// are normalized.
//
// For example, if x : (i32, (i32, i32)) then InteriorPlaces(x) = {x, x.0, x.1, x.1.0, x.1.1}.
func InteriorPlaces(b *Body, p Place, module string) []Place {
	var places []Place
	var walk func(p Place, t Type, depth int)
	walk = func(p Place, t Type, depth int) {
		places = append(places, p)
		if t == nil || depth >= maxTypeDepth {
			return
		}
		switch t := t.(type) {
		case *Tuple, *Struct, *VariantOf, *Closure:
			for i, f := range FieldsOf(t) {
				if FieldVisible(t, i, module) {
					walk(p.Field(i), f.Type, depth+1)
				}
			}
		case *Enum:
			for v := range t.Variants {
				vt := &VariantOf{Enum: t, Variant: v}
				if len(t.Variants[v].Fields) > 0 {
					walk(p.Downcast(v), vt, depth+1)
				}
			}
		case *Array:
			walk(p.Project(Projection{Kind: IndexProj, N: AnyIndex}), t.Elem, depth+1)
		}
	}
	walk(p, b.PlaceType(p), 0)
	return places
}

// PointerPlace is a place of pointer type, found by InteriorPointers
type PointerPlace struct {
	Place  Place
	Region Region
	Mut    bool
	Elem   Type
}

// InteriorPointers returns every place of pointer type reachable from p through fields, variants and pointers.
// For pointers found behind other pointers, the place goes through the dereference, e.g. (*x).0 for
// x : &(&i32,). Fields that are not visible from module are skipped.
func InteriorPointers(b *Body, p Place, module string) []PointerPlace {
	var ptrs []PointerPlace
	var walk func(p Place, t Type, depth int)
	walk = func(p Place, t Type, depth int) {
		if t == nil || depth >= maxTypeDepth {
			return
		}
		if elem, region, mut, ok := Pointee(t); ok {
			ptrs = append(ptrs, PointerPlace{Place: p, Region: region, Mut: mut, Elem: elem})
			walk(p.Deref(), elem, depth+1)
			return
		}
		switch t := t.(type) {
		case *Tuple, *Struct, *VariantOf, *Closure:
			for i, f := range FieldsOf(t) {
				if FieldVisible(t, i, module) {
					walk(p.Field(i), f.Type, depth+1)
				}
			}
		case *Enum:
			for v := range t.Variants {
				if len(t.Variants[v].Fields) > 0 {
					walk(p.Downcast(v), &VariantOf{Enum: t, Variant: v}, depth+1)
				}
			}
		case *Array:
			walk(p.Project(Projection{Kind: IndexProj, N: AnyIndex}), t.Elem, depth+1)
		}
	}
	walk(p, b.PlaceType(p), 0)
	return ptrs
}
