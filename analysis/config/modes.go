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

package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrInvalidMode is returned when a mode name is not recognized
var ErrInvalidMode = errors.New("invalid mode")

// ContextMode controls how calls are handled by the information flow analysis
type ContextMode int

const (
	// RecurseContext analyzes the body of local callees and translates their effects to the caller
	RecurseContext ContextMode = iota
	// SigOnlyContext only uses the signature of callees: all inputs flow to all mutable outputs
	SigOnlyContext
)

// MutabilityMode controls whether writes through shared references are considered
type MutabilityMode int

const (
	// DistinguishMut never writes to places behind a shared reference
	DistinguishMut MutabilityMode = iota
	// IgnoreMut treats shared references as if they were mutable
	IgnoreMut
)

// PointerMode controls the precision of the alias analysis
type PointerMode int

const (
	// PrecisePointers uses the lifetime constraints to compute aliases
	PrecisePointers PointerMode = iota
	// ConservativePointers also assumes that any two pointers to the same type may alias
	ConservativePointers
)

// EvalMode groups the modes read by the analyses
type EvalMode struct {
	Context    ContextMode
	Mutability MutabilityMode
	Pointer    PointerMode
}

// DefaultEvalMode is the most precise mode
var DefaultEvalMode = EvalMode{Context: RecurseContext, Mutability: DistinguishMut, Pointer: PrecisePointers}

func (m EvalMode) String() string {
	return fmt.Sprintf("context=%s mutability=%s pointer=%s", m.Context, m.Mutability, m.Pointer)
}

var (
	contextModeNames    = []string{"recurse", "sig-only"}
	mutabilityModeNames = []string{"distinguish-mut", "ignore-mut"}
	pointerModeNames    = []string{"precise", "conservative"}
)

func modeName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("mode(%d)", i)
	}
	return names[i]
}

func parseMode(names []string, kind, s string) (int, error) {
	for i, n := range names {
		if n == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s mode %q, expected one of %v", ErrInvalidMode, kind, s, names)
}

func (m ContextMode) String() string    { return modeName(contextModeNames, int(m)) }
func (m MutabilityMode) String() string { return modeName(mutabilityModeNames, int(m)) }
func (m PointerMode) String() string    { return modeName(pointerModeNames, int(m)) }

// ParseContextMode parses the name of a context mode
func ParseContextMode(s string) (ContextMode, error) {
	i, err := parseMode(contextModeNames, "context", s)
	return ContextMode(i), err
}

// ParseMutabilityMode parses the name of a mutability mode
func ParseMutabilityMode(s string) (MutabilityMode, error) {
	i, err := parseMode(mutabilityModeNames, "mutability", s)
	return MutabilityMode(i), err
}

// ParsePointerMode parses the name of a pointer mode
func ParsePointerMode(s string) (PointerMode, error) {
	i, err := parseMode(pointerModeNames, "pointer", s)
	return PointerMode(i), err
}

// UnmarshalYAML reads a context mode from its name
func (m *ContextMode) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseContextMode(node.Value)
	*m = v
	return err
}

// MarshalYAML writes a context mode as its name
func (m ContextMode) MarshalYAML() (interface{}, error) { return m.String(), nil }

// UnmarshalYAML reads a mutability mode from its name
func (m *MutabilityMode) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseMutabilityMode(node.Value)
	*m = v
	return err
}

// MarshalYAML writes a mutability mode as its name
func (m MutabilityMode) MarshalYAML() (interface{}, error) { return m.String(), nil }

// UnmarshalYAML reads a pointer mode from its name
func (m *PointerMode) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParsePointerMode(node.Value)
	*m = v
	return err
}

// MarshalYAML writes a pointer mode as its name
func (m PointerMode) MarshalYAML() (interface{}, error) { return m.String(), nil }
