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
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrInvalidBody is returned when a body is not well-formed
	ErrInvalidBody = errors.New("invalid body")
	// ErrUnknownFunction is returned when a function name is not in a program
	ErrUnknownFunction = errors.New("unknown function")
)

// LocalDecl declares a local variable
type LocalDecl struct {
	Name string
	Type Type
}

// BasicBlock is a sequence of statements ending with a terminator
type BasicBlock struct {
	Statements []Statement
	Terminator Terminator
}

// Outlives states that everything the region From may refer to, the region To may also refer to
type Outlives struct {
	From Region
	To   Region
}

// Body is the control-flow graph of one function, with its local declarations and lifetime facts.
// A body must not be modified after it has been analyzed.
type Body struct {
	// Name is the unique name of the function in its program
	Name string
	// Module is the module the function is defined in. It determines which private fields are visible.
	Module string
	// ArgCount is the number of arguments. Locals 1 to ArgCount are the arguments.
	ArgCount int
	// Locals holds the declarations of all locals, starting with the return place
	Locals []LocalDecl
	// Blocks holds the basic blocks. Block 0 is the entry block.
	Blocks []*BasicBlock
	// Outlives holds the region constraints computed by the borrow checker
	Outlives []Outlives
	// Async is true for async functions
	Async bool
	// Unsafe is true if the function contains unsafe code
	Unsafe bool
	// Labels names some locations, for queries and tests
	Labels map[string]Location

	cfgOnce sync.Once
	preds   [][]BlockID
	rpo     []BlockID
}

// Args returns the argument locals
func (b *Body) Args() []Local {
	args := make([]Local, b.ArgCount)
	for i := range args {
		args[i] = Local(i + 1)
	}
	return args
}

// IsArg returns true if l is an argument
func (b *Body) IsArg(l Local) bool {
	return l >= 1 && int(l) <= b.ArgCount
}

// ReturnType returns the type of the return place
func (b *Body) ReturnType() Type {
	return b.LocalType(ReturnLocal)
}

// LocalType returns the declared type of l
func (b *Body) LocalType(l Local) Type {
	if int(l) < 0 || int(l) >= len(b.Locals) {
		return nil
	}
	return b.Locals[l].Type
}

// LocalName returns the name of l, or its index if it has none
func (b *Body) LocalName(l Local) string {
	if int(l) >= 0 && int(l) < len(b.Locals) && b.Locals[l].Name != "" {
		return b.Locals[l].Name
	}
	return l.String()
}

// PlaceString prints p with the names of the locals
func (b *Body) PlaceString(p Place) string {
	return p.format(b.LocalName)
}

// PlaceType returns the type of p, or nil if a projection does not apply to the type it projects.
func (b *Body) PlaceType(p Place) Type {
	t := b.LocalType(p.Local)
	for i := 0; i < p.Len() && t != nil; i++ {
		t = ProjectType(t, p.Elem(i))
	}
	return t
}

// ProjectType returns the type of a place of type t projected with e, or nil if e does not apply to t
func ProjectType(t Type, e Projection) Type {
	switch e.Kind {
	case Deref:
		elem, _, _, ok := Pointee(t)
		if !ok {
			return nil
		}
		return elem
	case FieldProj:
		fields := FieldsOf(t)
		if e.N < 0 || e.N >= len(fields) {
			return nil
		}
		return fields[e.N].Type
	case IndexProj, ConstantIndex:
		if a, ok := t.(*Array); ok {
			return a.Elem
		}
		return nil
	case Downcast:
		if en, ok := t.(*Enum); ok && e.N >= 0 && e.N < len(en.Variants) {
			return &VariantOf{Enum: en, Variant: e.N}
		}
		return nil
	}
	return nil
}

// FieldsOf returns the fields of a tuple, struct, variant or closure type
func FieldsOf(t Type) []Field {
	switch t := t.(type) {
	case *Tuple:
		fields := make([]Field, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = Field{Name: fmt.Sprint(i), Type: f}
		}
		return fields
	case *Struct:
		return t.Fields
	case *VariantOf:
		return t.Enum.Variants[t.Variant].Fields
	case *Closure:
		fields := make([]Field, len(t.Upvars))
		for i, f := range t.Upvars {
			fields[i] = Field{Name: fmt.Sprint(i), Type: f}
		}
		return fields
	}
	return nil
}

// FieldVisible returns true if field i of values of type t can be accessed from code in module
func FieldVisible(t Type, i int, module string) bool {
	var owner string
	switch t := t.(type) {
	case *Struct:
		owner = t.Module
	case *VariantOf:
		// enum variants have no private fields
		return true
	default:
		return true
	}
	fields := FieldsOf(t)
	if i < 0 || i >= len(fields) {
		return false
	}
	return !fields[i].Private || owner == module
}

// Block returns the basic block with the given id
func (b *Body) Block(id BlockID) *BasicBlock {
	return b.Blocks[id]
}

// TerminatorLoc returns the location of the terminator of block id
func (b *Body) TerminatorLoc(id BlockID) Location {
	return Location{Block: id, Statement: len(b.Blocks[id].Statements)}
}

// IsTerminator returns true if l is the location of a terminator
func (b *Body) IsTerminator(l Location) bool {
	return l.Statement == len(b.Blocks[l.Block].Statements)
}

// StatementAt returns the statement at l, or nil if l is a terminator
func (b *Body) StatementAt(l Location) Statement {
	blk := b.Blocks[l.Block]
	if l.Statement < len(blk.Statements) {
		return blk.Statements[l.Statement]
	}
	return nil
}

// TerminatorAt returns the terminator of the block of l
func (b *Body) TerminatorAt(l Location) Terminator {
	return b.Blocks[l.Block].Terminator
}

// AllLocations returns every location of the body, block by block
func (b *Body) AllLocations() []Location {
	var locs []Location
	for i, blk := range b.Blocks {
		for j := 0; j <= len(blk.Statements); j++ {
			locs = append(locs, Location{Block: BlockID(i), Statement: j})
		}
	}
	return locs
}

// BlockLocations returns the locations of block id in order, the terminator last
func (b *Body) BlockLocations(id BlockID) []Location {
	n := len(b.Blocks[id].Statements)
	locs := make([]Location, n+1)
	for j := range locs {
		locs[j] = Location{Block: id, Statement: j}
	}
	return locs
}

func (b *Body) buildCFG() {
	b.cfgOnce.Do(func() {
		b.preds = make([][]BlockID, len(b.Blocks))
		for i, blk := range b.Blocks {
			if blk.Terminator == nil {
				continue
			}
			for _, s := range blk.Terminator.Successors() {
				b.preds[s] = append(b.preds[s], BlockID(i))
			}
		}
		// iterative depth-first search from the entry block
		visited := make([]bool, len(b.Blocks))
		var post []BlockID
		type frame struct {
			block BlockID
			next  int
		}
		if len(b.Blocks) > 0 {
			stack := []frame{{block: 0}}
			visited[0] = true
			for len(stack) > 0 {
				top := &stack[len(stack)-1]
				succs := b.Successors(top.block)
				if top.next < len(succs) {
					s := succs[top.next]
					top.next++
					if !visited[s] {
						visited[s] = true
						stack = append(stack, frame{block: s})
					}
					continue
				}
				post = append(post, top.block)
				stack = stack[:len(stack)-1]
			}
		}
		b.rpo = make([]BlockID, len(post))
		for i, blk := range post {
			b.rpo[len(post)-1-i] = blk
		}
	})
}

// Successors returns the successors of block id
func (b *Body) Successors(id BlockID) []BlockID {
	t := b.Blocks[id].Terminator
	if t == nil {
		return nil
	}
	return t.Successors()
}

// Predecessors returns the predecessors of block id, in block order
func (b *Body) Predecessors(id BlockID) []BlockID {
	b.buildCFG()
	return b.preds[id]
}

// ReversePostorder returns the blocks reachable from the entry block in reverse postorder
func (b *Body) ReversePostorder() []BlockID {
	b.buildCFG()
	return b.rpo
}

// Postorder returns the blocks reachable from the entry block in postorder
func (b *Body) Postorder() []BlockID {
	rpo := b.ReversePostorder()
	post := make([]BlockID, len(rpo))
	for i, blk := range rpo {
		post[len(rpo)-1-i] = blk
	}
	return post
}

// Exits returns the blocks whose terminator has no successor
func (b *Body) Exits() []BlockID {
	var exits []BlockID
	for i, blk := range b.Blocks {
		if blk.Terminator != nil && len(blk.Terminator.Successors()) == 0 {
			exits = append(exits, BlockID(i))
		}
	}
	return exits
}

// ReturnLocations returns the locations of the Return terminators
func (b *Body) ReturnLocations() []Location {
	var locs []Location
	for i, blk := range b.Blocks {
		if _, ok := blk.Terminator.(*Return); ok {
			locs = append(locs, b.TerminatorLoc(BlockID(i)))
		}
	}
	return locs
}

// Validate checks that the body is well-formed: every block has a terminator, every jump targets an existing
// block, and every place refers to a declared local.
func (b *Body) Validate() error {
	if len(b.Blocks) == 0 {
		return fmt.Errorf("%w: %s has no blocks", ErrInvalidBody, b.Name)
	}
	if len(b.Locals) < b.ArgCount+1 {
		return fmt.Errorf("%w: %s declares %d locals for %d arguments", ErrInvalidBody, b.Name, len(b.Locals),
			b.ArgCount)
	}
	for i, decl := range b.Locals {
		if decl.Type == nil {
			return fmt.Errorf("%w: %s: local _%d has no type", ErrInvalidBody, b.Name, i)
		}
	}
	checkPlace := func(loc Location, p Place) error {
		if int(p.Local) < 0 || int(p.Local) >= len(b.Locals) {
			return fmt.Errorf("%w: %s at %s: unknown local %s", ErrInvalidBody, b.Name, loc, p.Local)
		}
		for _, l := range p.IndexLocals() {
			if int(l) < 0 || int(l) >= len(b.Locals) {
				return fmt.Errorf("%w: %s at %s: unknown index local %s", ErrInvalidBody, b.Name, loc, l)
			}
		}
		return nil
	}
	for i, blk := range b.Blocks {
		id := BlockID(i)
		if blk.Terminator == nil {
			return fmt.Errorf("%w: %s: %s has no terminator", ErrInvalidBody, b.Name, id)
		}
		for _, s := range blk.Terminator.Successors() {
			if int(s) < 0 || int(s) >= len(b.Blocks) {
				return fmt.Errorf("%w: %s: %s jumps to unknown block %s", ErrInvalidBody, b.Name, id, s)
			}
		}
		if sw, ok := blk.Terminator.(*SwitchInt); ok && len(sw.Targets) != len(sw.Values)+1 {
			return fmt.Errorf("%w: %s: %s switch has %d values for %d targets", ErrInvalidBody, b.Name, id,
				len(sw.Values), len(sw.Targets))
		}
		for j, stmt := range blk.Statements {
			loc := Location{Block: id, Statement: j}
			for _, p := range StatementPlaces(stmt) {
				if err := checkPlace(loc, p); err != nil {
					return err
				}
			}
		}
		for _, p := range TerminatorPlaces(blk.Terminator) {
			if err := checkPlace(b.TerminatorLoc(id), p); err != nil {
				return err
			}
		}
	}
	for name, loc := range b.Labels {
		if int(loc.Block) < 0 || int(loc.Block) >= len(b.Blocks) ||
			loc.Statement < 0 || loc.Statement > len(b.Blocks[loc.Block].Statements) {
			return fmt.Errorf("%w: %s: label %q points to unknown location %s", ErrInvalidBody, b.Name, name, loc)
		}
	}
	return nil
}

// Location returns the location labelled name
func (b *Body) Location(label string) (Location, bool) {
	l, ok := b.Labels[label]
	return l, ok
}

func (b *Body) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "fn %s(", b.Name)
	for i, a := range b.Args() {
		if i > 0 {
			s.WriteString(", ")
		}
		fmt.Fprintf(&s, "%s: %s", b.LocalName(a), b.LocalType(a))
	}
	fmt.Fprintf(&s, ") -> %s {\n", b.ReturnType())
	for i, blk := range b.Blocks {
		fmt.Fprintf(&s, "  bb%d:\n", i)
		for j, stmt := range blk.Statements {
			fmt.Fprintf(&s, "    [%d] %s\n", j, stmt)
		}
		fmt.Fprintf(&s, "    [%d] %s\n", len(blk.Statements), blk.Terminator)
	}
	s.WriteString("}")
	return s.String()
}
