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

package pdg

import (
	"fmt"
	"strings"

	"github.com/awslabs/ar-go-flow/analysis/ir"
)

// A GlobalLocation is a location in the body of a function. Start is the point before the first location, where
// the arguments are defined.
type GlobalLocation struct {
	Function string
	Location ir.Location
	Start    bool
}

func (g GlobalLocation) String() string {
	if g.Start {
		return g.Function + "::start"
	}
	return g.Function + "::" + g.Location.String()
}

// A CallString is a point of the execution of the analyzed function: the call sites leading from the root
// function to the current function, followed by the location in the current function.
//
// Call strings are interned by the builder that created them, so equal call strings are the same pointer and can
// be compared with ==.
type CallString struct {
	caller *CallString
	leaf   GlobalLocation
	depth  int
}

// Leaf returns the location in the innermost function
func (c *CallString) Leaf() GlobalLocation {
	return c.leaf
}

// Caller returns the call string of the call site of the innermost function, or nil at the root
func (c *CallString) Caller() *CallString {
	return c.caller
}

// Root returns the location in the root function
func (c *CallString) Root() GlobalLocation {
	for c.caller != nil {
		c = c.caller
	}
	return c.leaf
}

// IsAtRoot returns true if the call string is a location of the root function
func (c *CallString) IsAtRoot() bool {
	return c.caller == nil
}

// Len returns the number of locations in the call string
func (c *CallString) Len() int {
	return c.depth
}

// Locations returns the locations of the call string, from the root to the leaf
func (c *CallString) Locations() []GlobalLocation {
	locs := make([]GlobalLocation, c.depth)
	for i := c.depth - 1; c != nil; i, c = i-1, c.caller {
		locs[i] = c.leaf
	}
	return locs
}

// Strings returns the printed locations of the call string, from the root to the leaf
func (c *CallString) Strings() []string {
	locs := c.Locations()
	s := make([]string, len(locs))
	for i, l := range locs {
		s[i] = l.String()
	}
	return s
}

func (c *CallString) String() string {
	if c == nil {
		return "<nil>"
	}
	return strings.Join(c.Strings(), " <- ")
}

// less orders call strings by their locations, root first
func (c *CallString) less(o *CallString) bool {
	a, b := c.Locations(), o.Locations()
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		if a[i].Function != b[i].Function {
			return a[i].Function < b[i].Function
		}
		if a[i].Start != b[i].Start {
			return a[i].Start
		}
		return ir.LessLocation(a[i].Location, b[i].Location)
	}
	return len(a) < len(b)
}

type callKey struct {
	caller *CallString
	leaf   GlobalLocation
}

// callStrings interns call strings
type callStrings struct {
	table map[callKey]*CallString
}

func newCallStrings() *callStrings {
	return &callStrings{table: map[callKey]*CallString{}}
}

// get returns the call string made of caller followed by leaf
func (t *callStrings) get(caller *CallString, leaf GlobalLocation) *CallString {
	k := callKey{caller: caller, leaf: leaf}
	if c, ok := t.table[k]; ok {
		return c
	}
	depth := 1
	if caller != nil {
		depth = caller.depth + 1
	}
	c := &CallString{caller: caller, leaf: leaf, depth: depth}
	t.table[k] = c
	return c
}

// parse returns the call string printed by String, interning it. It is the inverse of Strings.
func (t *callStrings) parse(locs []string) (*CallString, error) {
	var c *CallString
	for _, s := range locs {
		i := strings.LastIndex(s, "::")
		if i < 0 {
			return nil, fmt.Errorf("malformed location %q", s)
		}
		g := GlobalLocation{Function: s[:i]}
		if rest := s[i+2:]; rest == "start" {
			g.Start = true
		} else if _, err := fmt.Sscanf(rest, "bb%d[%d]", &g.Location.Block, &g.Location.Statement); err != nil {
			return nil, fmt.Errorf("malformed location %q: %w", s, err)
		}
		c = t.get(c, g)
	}
	return c, nil
}
