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

// BlockID identifies a basic block of a body
type BlockID int

// NoBlock is the target of calls that never return
const NoBlock BlockID = -1

func (b BlockID) String() string {
	return fmt.Sprintf("bb%d", int(b))
}

// Location is a program point: a statement of a block, or its terminator when Statement equals the number of
// statements of the block.
type Location struct {
	Block     BlockID
	Statement int
}

// Start is the first location of every body
var Start = Location{Block: 0, Statement: 0}

func (l Location) String() string {
	return fmt.Sprintf("%s[%d]", l.Block, l.Statement)
}

// LessLocation orders locations by block, then statement index
func LessLocation(a, b Location) bool {
	if a.Block != b.Block {
		return a.Block < b.Block
	}
	return a.Statement < b.Statement
}

// LocationOrArg is either a real program point or the entry point of an argument.
// Arguments have no location in the body, yet the dependencies of a value may start at an argument.
type LocationOrArg struct {
	Location Location
	Arg      Local
	IsArg    bool
}

// AtLocation returns the LocationOrArg of a real location
func AtLocation(l Location) LocationOrArg {
	return LocationOrArg{Location: l}
}

// AtArg returns the LocationOrArg of the entry of argument a
func AtArg(a Local) LocationOrArg {
	return LocationOrArg{Arg: a, IsArg: true}
}

func (l LocationOrArg) String() string {
	if l.IsArg {
		return "arg" + l.Arg.String()
	}
	return l.Location.String()
}
