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

import (
	"fmt"
	"strings"
)

// A Region is the opaque identifier of a borrow's validity scope, as computed by the front end.
type Region int

const (
	// StaticRegion outlives every other region
	StaticRegion Region = 0
	// UnknownRegion is the region of pointers that carry no region information (boxes and raw pointers)
	UnknownRegion Region = -1
)

func (r Region) String() string {
	switch r {
	case StaticRegion:
		return "'static"
	case UnknownRegion:
		return "'?"
	default:
		return fmt.Sprintf("'%d", int(r))
	}
}

// Type is the type of a local or a place. The concrete types are pointers to the structs of this file.
type Type interface {
	fmt.Stringer
	isType()
}

// Scalar is any type with no inner structure (integers, booleans, chars, floats)
type Scalar struct {
	Name string
}

// Never is the type of expressions that never evaluate
type Never struct{}

// Tuple is an anonymous product type. The unit type is the empty tuple.
type Tuple struct {
	Fields []Type
}

// Field is a named field of a struct or an enum variant
type Field struct {
	Name    string
	Type    Type
	Private bool
}

// Struct is a nominal product type, defined in some module. Its private fields are only visible from bodies of
// the same module.
type Struct struct {
	Name   string
	Module string
	Fields []Field
}

// Variant is one case of an Enum
type Variant struct {
	Name   string
	Fields []Field
}

// Enum is a nominal sum type
type Enum struct {
	Name     string
	Module   string
	Variants []Variant
}

// VariantOf is the type of an enum place after a downcast to one of its variants
type VariantOf struct {
	Enum    *Enum
	Variant int
}

// Ref is a reference &'r T or &'r mut T
type Ref struct {
	Region Region
	Mut    bool
	Elem   Type
}

// RawPtr is a raw pointer *const T or *mut T
type RawPtr struct {
	Mut  bool
	Elem Type
}

// Box is an owning pointer to a heap value
type Box struct {
	Elem Type
}

// Array is a fixed-size array when Len > 0, a slice otherwise
type Array struct {
	Elem Type
	Len  int
}

// FnDef is the zero-sized type of a named function
type FnDef struct {
	Name string
}

// ClosureKind is the strongest trait a closure implements
type ClosureKind int

const (
	// FnClosure can be called through a shared reference
	FnClosure ClosureKind = iota
	// FnMutClosure needs a mutable reference to be called
	FnMutClosure
	// FnOnceClosure consumes itself when called
	FnOnceClosure
)

// Closure is the type of a closure with its captured values
type Closure struct {
	Kind   ClosureKind
	Upvars []Type
}

// Opaque is a type whose structure is not known to the analysis
type Opaque struct {
	Name string
}

func (*Scalar) isType()    {}
func (*Never) isType()     {}
func (*Tuple) isType()     {}
func (*Struct) isType()    {}
func (*Enum) isType()      {}
func (*VariantOf) isType() {}
func (*Ref) isType()       {}
func (*RawPtr) isType()    {}
func (*Box) isType()       {}
func (*Array) isType()     {}
func (*FnDef) isType()     {}
func (*Closure) isType()   {}
func (*Opaque) isType()    {}

// Common types
var (
	I32   Type = &Scalar{Name: "i32"}
	U8    Type = &Scalar{Name: "u8"}
	Usize Type = &Scalar{Name: "usize"}
	Bool  Type = &Scalar{Name: "bool"}
	Unit  Type = &Tuple{}
	Bang  Type = &Never{}
)

// TupleOf returns the tuple type of fields
func TupleOf(fields ...Type) *Tuple {
	return &Tuple{Fields: fields}
}

// RefTo returns the reference type &'r T, or &'r mut T when mut is true
func RefTo(r Region, mut bool, elem Type) *Ref {
	return &Ref{Region: r, Mut: mut, Elem: elem}
}

func (t *Scalar) String() string { return t.Name }
func (t *Never) String() string  { return "!" }
func (t *Tuple) String() string {
	var parts []string
	for _, f := range t.Fields {
		parts = append(parts, f.String())
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
func (t *Struct) String() string { return qualified(t.Module, t.Name) }
func (t *Enum) String() string   { return qualified(t.Module, t.Name) }
func (t *VariantOf) String() string {
	return fmt.Sprintf("%s::%s", t.Enum, t.Enum.Variants[t.Variant].Name)
}
func (t *Ref) String() string {
	if t.Mut {
		return fmt.Sprintf("&%s mut %s", t.Region, t.Elem)
	}
	return fmt.Sprintf("&%s %s", t.Region, t.Elem)
}
func (t *RawPtr) String() string {
	if t.Mut {
		return "*mut " + t.Elem.String()
	}
	return "*const " + t.Elem.String()
}
func (t *Box) String() string { return "Box<" + t.Elem.String() + ">" }
func (t *Array) String() string {
	if t.Len > 0 {
		return fmt.Sprintf("[%s; %d]", t.Elem, t.Len)
	}
	return "[" + t.Elem.String() + "]"
}
func (t *FnDef) String() string { return "fn " + t.Name }
func (t *Closure) String() string {
	s := fmt.Sprintf("closure[%s]", [...]string{"Fn", "FnMut", "FnOnce"}[t.Kind])
	if len(t.Upvars) > 0 {
		s += TupleOf(t.Upvars...).String()
	}
	return s
}
func (t *Opaque) String() string { return "opaque " + t.Name }

func qualified(module, name string) string {
	if module == "" {
		return name
	}
	return module + "::" + name
}

// IsUnit returns true if t is the empty tuple
func IsUnit(t Type) bool {
	tup, ok := t.(*Tuple)
	return ok && len(tup.Fields) == 0
}

// IsNever returns true if t is the never type
func IsNever(t Type) bool {
	_, ok := t.(*Never)
	return ok
}

// Pointee returns the type pointed to by t, the region of the pointer and whether the pointer is mutable.
// Boxes and raw pointers have the UnknownRegion. ok is false if t is not a pointer type.
func Pointee(t Type) (elem Type, region Region, mut bool, ok bool) {
	switch t := t.(type) {
	case *Ref:
		return t.Elem, t.Region, t.Mut, true
	case *Box:
		return t.Elem, UnknownRegion, true, true
	case *RawPtr:
		return t.Elem, UnknownRegion, t.Mut, true
	default:
		return nil, 0, false, false
	}
}

// IsImmutableRef returns true if t is a shared reference
func IsImmutableRef(t Type) bool {
	r, ok := t.(*Ref)
	return ok && !r.Mut
}

// Identical returns true if a and b denote the same type, regions included.
// Structs and enums are compared nominally.
func Identical(a, b Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	switch a := a.(type) {
	case *Scalar:
		b, ok := b.(*Scalar)
		return ok && a.Name == b.Name
	case *Never:
		_, ok := b.(*Never)
		return ok
	case *Tuple:
		b, ok := b.(*Tuple)
		if !ok || len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if !Identical(a.Fields[i], b.Fields[i]) {
				return false
			}
		}
		return true
	case *Struct:
		b, ok := b.(*Struct)
		return ok && a.Name == b.Name && a.Module == b.Module
	case *Enum:
		b, ok := b.(*Enum)
		return ok && a.Name == b.Name && a.Module == b.Module
	case *VariantOf:
		b, ok := b.(*VariantOf)
		return ok && a.Variant == b.Variant && Identical(a.Enum, b.Enum)
	case *Ref:
		b, ok := b.(*Ref)
		return ok && a.Region == b.Region && a.Mut == b.Mut && Identical(a.Elem, b.Elem)
	case *RawPtr:
		b, ok := b.(*RawPtr)
		return ok && a.Mut == b.Mut && Identical(a.Elem, b.Elem)
	case *Box:
		b, ok := b.(*Box)
		return ok && Identical(a.Elem, b.Elem)
	case *Array:
		b, ok := b.(*Array)
		return ok && a.Len == b.Len && Identical(a.Elem, b.Elem)
	case *FnDef:
		b, ok := b.(*FnDef)
		return ok && a.Name == b.Name
	case *Closure:
		b, ok := b.(*Closure)
		if !ok || a.Kind != b.Kind || len(a.Upvars) != len(b.Upvars) {
			return false
		}
		for i := range a.Upvars {
			if !Identical(a.Upvars[i], b.Upvars[i]) {
				return false
			}
		}
		return true
	case *Opaque:
		b, ok := b.(*Opaque)
		return ok && a.Name == b.Name
	default:
		return false
	}
}

// TypeRegions returns the regions of the references appearing in t, without going through the referents of
// shared references when onlyMut is true. Named types are expanded once.
func TypeRegions(t Type, onlyMut bool) []Region {
	var regions []Region
	seen := map[Region]bool{}
	visiting := map[Type]bool{}
	var walk func(t Type)
	walk = func(t Type) {
		switch t := t.(type) {
		case *Ref:
			if onlyMut && !t.Mut {
				return
			}
			if !seen[t.Region] {
				seen[t.Region] = true
				regions = append(regions, t.Region)
			}
			walk(t.Elem)
		case *Box:
			walk(t.Elem)
		case *RawPtr:
			walk(t.Elem)
		case *Array:
			walk(t.Elem)
		case *Tuple:
			for _, f := range t.Fields {
				walk(f)
			}
		case *Closure:
			for _, f := range t.Upvars {
				walk(f)
			}
		case *Struct:
			if visiting[t] {
				return
			}
			visiting[t] = true
			for _, f := range t.Fields {
				walk(f.Type)
			}
		case *Enum:
			if visiting[t] {
				return
			}
			visiting[t] = true
			for _, v := range t.Variants {
				for _, f := range v.Fields {
					walk(f.Type)
				}
			}
		case *VariantOf:
			walk(t.Enum)
		}
	}
	walk(t)
	return regions
}

// ContainsClosure returns true if t is, or directly holds by value, a closure of one of the kinds
func ContainsClosure(t Type, kinds ...ClosureKind) bool {
	switch t := t.(type) {
	case *Closure:
		for _, k := range kinds {
			if t.Kind == k {
				return true
			}
		}
	case *Tuple:
		for _, f := range t.Fields {
			if ContainsClosure(f, kinds...) {
				return true
			}
		}
	}
	return false
}
