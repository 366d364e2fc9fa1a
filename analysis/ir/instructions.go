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

// OperandKind distinguishes copies, moves and constants
type OperandKind int

const (
	// CopyOp reads a place without invalidating it
	CopyOp OperandKind = iota
	// MoveOp reads a place and invalidates it
	MoveOp
	// ConstOp is a constant value
	ConstOp
)

// Constant is a constant operand. A constant of type *FnDef names a function.
type Constant struct {
	Type  Type
	Value string
}

// Operand is an input to an rvalue or a terminator
type Operand struct {
	Kind  OperandKind
	Place Place
	Const *Constant
}

// Copy returns the operand copying p
func Copy(p Place) Operand { return Operand{Kind: CopyOp, Place: p} }

// Move returns the operand moving p
func Move(p Place) Operand { return Operand{Kind: MoveOp, Place: p} }

// Const returns a constant operand
func Const(t Type, value string) Operand {
	return Operand{Kind: ConstOp, Const: &Constant{Type: t, Value: value}}
}

// FnRef returns the constant operand naming the function name
func FnRef(name string) Operand {
	return Const(&FnDef{Name: name}, name)
}

// AsPlace returns the place read by o, if any
func (o Operand) AsPlace() (Place, bool) {
	if o.Kind == ConstOp {
		return Place{}, false
	}
	return o.Place, true
}

// FnName returns the name of the function o refers to, if o is a function constant
func (o Operand) FnName() (string, bool) {
	if o.Kind != ConstOp || o.Const == nil {
		return "", false
	}
	if f, ok := o.Const.Type.(*FnDef); ok {
		return f.Name, true
	}
	return "", false
}

func (o Operand) String() string {
	switch o.Kind {
	case CopyOp:
		return "copy " + o.Place.String()
	case MoveOp:
		return "move " + o.Place.String()
	default:
		if o.Const == nil {
			return "const ?"
		}
		return "const " + o.Const.Value
	}
}

// Statement is a non-terminator instruction of a basic block
type Statement interface {
	fmt.Stringer
	isStatement()
}

// Assign writes the value of an rvalue into a place
type Assign struct {
	Place  Place
	Rvalue Rvalue
}

// StorageLive marks the beginning of a local's storage
type StorageLive struct {
	Local Local
}

// StorageDead marks the end of a local's storage
type StorageDead struct {
	Local Local
}

// Nop does nothing
type Nop struct{}

// UnsupportedStatement stands for a statement the front end could not express in this IR
type UnsupportedStatement struct {
	Kind string
}

func (*Assign) isStatement()               {}
func (*StorageLive) isStatement()          {}
func (*StorageDead) isStatement()          {}
func (*Nop) isStatement()                  {}
func (*UnsupportedStatement) isStatement() {}

func (s *Assign) String() string               { return fmt.Sprintf("%s = %s", s.Place, s.Rvalue) }
func (s *StorageLive) String() string          { return fmt.Sprintf("StorageLive(%s)", s.Local) }
func (s *StorageDead) String() string          { return fmt.Sprintf("StorageDead(%s)", s.Local) }
func (s *Nop) String() string                  { return "nop" }
func (s *UnsupportedStatement) String() string { return "unsupported " + s.Kind }

// Rvalue is the right-hand side of an assignment
type Rvalue interface {
	fmt.Stringer
	isRvalue()
}

// Use is the value of an operand
type Use struct {
	Operand Operand
}

// Borrow creates a reference to a place, in a given region
type Borrow struct {
	Region Region
	Mut    bool
	Place  Place
}

// AddressOf creates a raw pointer to a place
type AddressOf struct {
	Mut   bool
	Place Place
}

// BinaryOp applies a binary operator
type BinaryOp struct {
	Op          string
	Left, Right Operand
}

// UnaryOp applies a unary operator
type UnaryOp struct {
	Op      string
	Operand Operand
}

// AggregateKind is the kind of value built by an Aggregate
type AggregateKind int

const (
	// TupleAggregate builds a tuple
	TupleAggregate AggregateKind = iota
	// StructAggregate builds a struct
	StructAggregate
	// EnumAggregate builds one variant of an enum
	EnumAggregate
	// ArrayAggregate builds an array
	ArrayAggregate
	// ClosureAggregate builds a closure from its captures
	ClosureAggregate
)

// Aggregate builds a compound value from operands
type Aggregate struct {
	Kind     AggregateKind
	Variant  int
	Operands []Operand
}

// Discriminant reads the discriminant of an enum place
type Discriminant struct {
	Place Place
}

// Len reads the length of an array place
type Len struct {
	Place Place
}

// Cast converts an operand to another type
type Cast struct {
	Operand Operand
	Type    Type
}

func (*Use) isRvalue()          {}
func (*Borrow) isRvalue()       {}
func (*AddressOf) isRvalue()    {}
func (*BinaryOp) isRvalue()     {}
func (*UnaryOp) isRvalue()      {}
func (*Aggregate) isRvalue()    {}
func (*Discriminant) isRvalue() {}
func (*Len) isRvalue()          {}
func (*Cast) isRvalue()         {}

func (r *Use) String() string { return r.Operand.String() }
func (r *Borrow) String() string {
	if r.Mut {
		return fmt.Sprintf("&%s mut %s", r.Region, r.Place)
	}
	return fmt.Sprintf("&%s %s", r.Region, r.Place)
}
func (r *AddressOf) String() string {
	if r.Mut {
		return "&raw mut " + r.Place.String()
	}
	return "&raw const " + r.Place.String()
}
func (r *BinaryOp) String() string { return fmt.Sprintf("%s(%s, %s)", r.Op, r.Left, r.Right) }
func (r *UnaryOp) String() string  { return fmt.Sprintf("%s(%s)", r.Op, r.Operand) }
func (r *Aggregate) String() string {
	var ops []string
	for _, o := range r.Operands {
		ops = append(ops, o.String())
	}
	kind := [...]string{"tuple", "struct", "enum", "array", "closure"}[r.Kind]
	return fmt.Sprintf("%s(%s)", kind, strings.Join(ops, ", "))
}
func (r *Discriminant) String() string { return fmt.Sprintf("discriminant(%s)", r.Place) }
func (r *Len) String() string          { return fmt.Sprintf("len(%s)", r.Place) }
func (r *Cast) String() string         { return fmt.Sprintf("%s as %s", r.Operand, r.Type) }

// Terminator ends a basic block and transfers control
type Terminator interface {
	fmt.Stringer
	// Successors returns the blocks control may flow to
	Successors() []BlockID
}

// Goto jumps to Target
type Goto struct {
	Target BlockID
}

// SwitchInt jumps to Targets[i] if the discriminant equals Values[i], and to the last target otherwise
type SwitchInt struct {
	Discr   Operand
	Values  []int64
	Targets []BlockID
}

// Return returns from the function
type Return struct{}

// Unreachable marks a block that can never execute
type Unreachable struct{}

// Call calls Func with Args, storing the result in Destination then jumping to Target.
// Target is NoBlock for calls that never return.
type Call struct {
	Func        Operand
	Args        []Operand
	Destination Place
	Target      BlockID
}

// Drop runs the destructor of a place
type Drop struct {
	Place  Place
	Target BlockID
}

// DropAndReplace drops a place and writes a new value into it
type DropAndReplace struct {
	Place  Place
	Value  Operand
	Target BlockID
}

// Assert checks a condition, panicking if it does not hold
type Assert struct {
	Cond     Operand
	Expected bool
	Target   BlockID
}

// FalseEdge is a goto to Real with an extra edge to Imaginary, inserted when lowering match guards and loops
type FalseEdge struct {
	Real      BlockID
	Imaginary BlockID
}

// FalseUnwind is a goto to Real, inserted at loop heads
type FalseUnwind struct {
	Real BlockID
}

// UnsupportedTerminator stands for a terminator the front end could not express in this IR
type UnsupportedTerminator struct {
	Kind    string
	Targets []BlockID
}

func (t *Goto) Successors() []BlockID      { return []BlockID{t.Target} }
func (t *SwitchInt) Successors() []BlockID { return t.Targets }
func (t *Return) Successors() []BlockID    { return nil }
func (t *Unreachable) Successors() []BlockID {
	return nil
}
func (t *Call) Successors() []BlockID {
	if t.Target == NoBlock {
		return nil
	}
	return []BlockID{t.Target}
}
func (t *Drop) Successors() []BlockID           { return []BlockID{t.Target} }
func (t *DropAndReplace) Successors() []BlockID { return []BlockID{t.Target} }
func (t *Assert) Successors() []BlockID         { return []BlockID{t.Target} }
func (t *FalseEdge) Successors() []BlockID      { return []BlockID{t.Real, t.Imaginary} }
func (t *FalseUnwind) Successors() []BlockID    { return []BlockID{t.Real} }
func (t *UnsupportedTerminator) Successors() []BlockID {
	return t.Targets
}

func (t *Goto) String() string { return "goto -> " + t.Target.String() }
func (t *SwitchInt) String() string {
	var arms []string
	for i, v := range t.Values {
		arms = append(arms, fmt.Sprintf("%d: %s", v, t.Targets[i]))
	}
	if n := len(t.Targets); n > 0 {
		arms = append(arms, "otherwise: "+t.Targets[n-1].String())
	}
	return fmt.Sprintf("switchInt(%s) -> [%s]", t.Discr, strings.Join(arms, ", "))
}
func (t *Return) String() string      { return "return" }
func (t *Unreachable) String() string { return "unreachable" }
func (t *Call) String() string {
	var args []string
	for _, a := range t.Args {
		args = append(args, a.String())
	}
	s := fmt.Sprintf("%s = %s(%s)", t.Destination, t.Func, strings.Join(args, ", "))
	if t.Target != NoBlock {
		s += " -> " + t.Target.String()
	}
	return s
}
func (t *Drop) String() string { return fmt.Sprintf("drop(%s) -> %s", t.Place, t.Target) }
func (t *DropAndReplace) String() string {
	return fmt.Sprintf("replace(%s <- %s) -> %s", t.Place, t.Value, t.Target)
}
func (t *Assert) String() string {
	return fmt.Sprintf("assert(%s == %t) -> %s", t.Cond, t.Expected, t.Target)
}
func (t *FalseEdge) String() string {
	return fmt.Sprintf("falseEdge -> [real: %s, imaginary: %s]", t.Real, t.Imaginary)
}
func (t *FalseUnwind) String() string { return "falseUnwind -> " + t.Real.String() }
func (t *UnsupportedTerminator) String() string {
	return "unsupported " + t.Kind
}
