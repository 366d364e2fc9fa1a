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

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Program is a set of function bodies, indexed by name
type Program struct {
	functions map[string]*Body
}

// NewProgram returns a program containing bodies
func NewProgram(bodies ...*Body) *Program {
	p := &Program{functions: map[string]*Body{}}
	for _, b := range bodies {
		p.Add(b)
	}
	return p
}

// Add adds a body to the program, replacing any body with the same name
func (p *Program) Add(b *Body) {
	p.functions[b.Name] = b
}

// Function returns the body of the function name. ok is false for functions defined outside the program.
func (p *Program) Function(name string) (*Body, bool) {
	b, ok := p.functions[name]
	return b, ok
}

// MustFunction returns the body of the function name, or an error wrapping ErrUnknownFunction
func (p *Program) MustFunction(name string) (*Body, error) {
	if b, ok := p.functions[name]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
}

// Names returns the names of the functions of the program, sorted
func (p *Program) Names() []string {
	names := maps.Keys(p.functions)
	slices.Sort(names)
	return names
}

// Len returns the number of functions in the program
func (p *Program) Len() int {
	return len(p.functions)
}

// Callees returns the names of the functions statically called by b, sorted and without duplicates.
// Callees outside the program are included.
func Callees(b *Body) []string {
	set := map[string]bool{}
	for _, blk := range b.Blocks {
		if call, ok := blk.Terminator.(*Call); ok {
			if name, ok := call.Func.FnName(); ok {
				set[name] = true
			}
		}
	}
	names := maps.Keys(set)
	slices.Sort(names)
	return names
}

// Validate validates every body of the program, and checks that every call to a function of the program passes
// as many arguments as the function declares.
func (p *Program) Validate() error {
	for _, name := range p.Names() {
		if err := p.functions[name].Validate(); err != nil {
			return err
		}
	}
	for _, name := range p.Names() {
		if err := p.validateCalls(p.functions[name]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Program) validateCalls(b *Body) error {
	for i, blk := range b.Blocks {
		call, ok := blk.Terminator.(*Call)
		if !ok {
			continue
		}
		name, ok := call.Func.FnName()
		if !ok {
			continue
		}
		if callee, ok := p.functions[name]; ok && len(call.Args) != callee.ArgCount {
			return fmt.Errorf("%w: %s: %s calls %s with %d arguments, it expects %d", ErrInvalidBody, b.Name,
				BlockID(i), name, len(call.Args), callee.ArgCount)
		}
	}
	return nil
}
