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

import "fmt"

// BodyBuilder builds a body incrementally. Locals are declared first, arguments before any other local, then
// blocks are created and filled.
type BodyBuilder struct {
	body *Body
}

// BlockBuilder appends statements to one block of a body
type BlockBuilder struct {
	body *Body
	id   BlockID
}

// NewBodyBuilder starts a body for the function name returning values of type ret
func NewBodyBuilder(name string, ret Type) *BodyBuilder {
	return &BodyBuilder{body: &Body{
		Name:   name,
		Locals: []LocalDecl{{Name: "_0", Type: ret}},
		Labels: map[string]Location{},
	}}
}

// Module sets the module of the body
func (b *BodyBuilder) Module(m string) *BodyBuilder {
	b.body.Module = m
	return b
}

// Async marks the body as async
func (b *BodyBuilder) Async() *BodyBuilder {
	b.body.Async = true
	return b
}

// Unsafe marks the body as containing unsafe code
func (b *BodyBuilder) Unsafe() *BodyBuilder {
	b.body.Unsafe = true
	return b
}

// Arg declares the next argument. It panics if a non-argument local has already been declared.
func (b *BodyBuilder) Arg(name string, t Type) Place {
	if len(b.body.Locals) != b.body.ArgCount+1 {
		panic(fmt.Sprintf("ir: argument %s declared after a local in %s", name, b.body.Name))
	}
	b.body.ArgCount++
	return b.Local(name, t)
}

// Local declares a local and returns its place
func (b *BodyBuilder) Local(name string, t Type) Place {
	b.body.Locals = append(b.body.Locals, LocalDecl{Name: name, Type: t})
	return PlaceOf(Local(len(b.body.Locals) - 1))
}

// Outlives adds the constraint that everything from may refer to, to may also refer to
func (b *BodyBuilder) Outlives(from, to Region) *BodyBuilder {
	b.body.Outlives = append(b.body.Outlives, Outlives{From: from, To: to})
	return b
}

// Block creates a new empty block. The first block created is the entry block.
func (b *BodyBuilder) Block() *BlockBuilder {
	b.body.Blocks = append(b.body.Blocks, &BasicBlock{})
	return &BlockBuilder{body: b.body, id: BlockID(len(b.body.Blocks) - 1)}
}

// Build validates and returns the body
func (b *BodyBuilder) Build() (*Body, error) {
	if err := b.body.Validate(); err != nil {
		return nil, err
	}
	return b.body, nil
}

// MustBuild is Build, panicking on error. It is meant for tests and static fixtures.
func (b *BodyBuilder) MustBuild() *Body {
	body, err := b.Build()
	if err != nil {
		panic(err)
	}
	return body
}

// ID returns the id of the block
func (bb *BlockBuilder) ID() BlockID {
	return bb.id
}

// Push appends a statement to the block and returns its location
func (bb *BlockBuilder) Push(s Statement) Location {
	blk := bb.body.Blocks[bb.id]
	blk.Statements = append(blk.Statements, s)
	return Location{Block: bb.id, Statement: len(blk.Statements) - 1}
}

// Assign appends the assignment p = r
func (bb *BlockBuilder) Assign(p Place, r Rvalue) Location {
	return bb.Push(&Assign{Place: p, Rvalue: r})
}

// Label names the location of the last statement of the block, or of the terminator once it is set
func (bb *BlockBuilder) Label(name string) *BlockBuilder {
	blk := bb.body.Blocks[bb.id]
	n := len(blk.Statements)
	if blk.Terminator == nil {
		n--
	}
	bb.body.Labels[name] = Location{Block: bb.id, Statement: n}
	return bb
}

// Terminate sets the terminator of the block and returns its location
func (bb *BlockBuilder) Terminate(t Terminator) Location {
	blk := bb.body.Blocks[bb.id]
	blk.Terminator = t
	return Location{Block: bb.id, Statement: len(blk.Statements)}
}

// Goto terminates the block with a jump to target
func (bb *BlockBuilder) Goto(target *BlockBuilder) Location {
	return bb.Terminate(&Goto{Target: target.id})
}

// Return terminates the block with a return
func (bb *BlockBuilder) Return() Location {
	return bb.Terminate(&Return{})
}

// If terminates the block with a two-way switch on cond: the false branch goes to els, any other value to then.
func (bb *BlockBuilder) If(cond Operand, then, els *BlockBuilder) Location {
	return bb.Terminate(&SwitchInt{Discr: cond, Values: []int64{0}, Targets: []BlockID{els.id, then.id}})
}

// Call terminates the block with a call to the function fn, storing the result in dest and continuing at target.
// A nil target makes the call diverging.
func (bb *BlockBuilder) Call(fn string, args []Operand, dest Place, target *BlockBuilder) Location {
	t := NoBlock
	if target != nil {
		t = target.id
	}
	return bb.Terminate(&Call{Func: FnRef(fn), Args: args, Destination: dest, Target: t})
}
