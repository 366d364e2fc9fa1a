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
	"encoding/binary"
	"fmt"
	"strings"
)

// Local is the index of a local variable in a body. Local 0 is the return place, locals 1 to ArgCount are the
// arguments.
type Local int

// ReturnLocal is the local holding the return value of a function
const ReturnLocal Local = 0

func (l Local) String() string {
	return fmt.Sprintf("_%d", int(l))
}

// ProjKind is the kind of a projection element
type ProjKind uint8

const (
	// Deref dereferences a pointer
	Deref ProjKind = iota + 1
	// FieldProj selects a field of a tuple, struct or variant
	FieldProj
	// IndexProj indexes an array with the value of a local
	IndexProj
	// ConstantIndex indexes an array with a constant offset
	ConstantIndex
	// Downcast views an enum as one of its variants
	Downcast
)

// AnyIndex is the index of the normalized index projection
const AnyIndex = -1

// Projection is one element of a place's projection sequence.
// N is the field number, index local, constant offset or variant number depending on Kind.
type Projection struct {
	Kind ProjKind
	N    int
}

const projWidth = 5

// Place is an access path: a base local and a sequence of projections.
// Places are comparable and can be used as map keys.
type Place struct {
	Local Local
	proj  string
}

// PlaceOf returns the place local.proj...
func PlaceOf(local Local, proj ...Projection) Place {
	return Place{Local: local}.Project(proj...)
}

// Project returns the place extending p with elems
func (p Place) Project(elems ...Projection) Place {
	if len(elems) == 0 {
		return p
	}
	buf := make([]byte, len(p.proj), len(p.proj)+projWidth*len(elems))
	copy(buf, p.proj)
	for _, e := range elems {
		var enc [projWidth]byte
		enc[0] = byte(e.Kind)
		binary.BigEndian.PutUint32(enc[1:], uint32(int32(e.N)))
		buf = append(buf, enc[:]...)
	}
	return Place{Local: p.Local, proj: string(buf)}
}

// Deref returns *p
func (p Place) Deref() Place { return p.Project(Projection{Kind: Deref}) }

// Field returns p.i
func (p Place) Field(i int) Place { return p.Project(Projection{Kind: FieldProj, N: i}) }

// Index returns p[l]
func (p Place) Index(l Local) Place { return p.Project(Projection{Kind: IndexProj, N: int(l)}) }

// ConstIndex returns p[n] for a constant offset n
func (p Place) ConstIndex(n int) Place { return p.Project(Projection{Kind: ConstantIndex, N: n}) }

// Downcast returns (p as variant)
func (p Place) Downcast(variant int) Place { return p.Project(Projection{Kind: Downcast, N: variant}) }

// Len returns the number of projections of p
func (p Place) Len() int {
	return len(p.proj) / projWidth
}

// Elem returns the i-th projection of p
func (p Place) Elem(i int) Projection {
	enc := p.proj[i*projWidth : (i+1)*projWidth]
	return Projection{
		Kind: ProjKind(enc[0]),
		N:    int(int32(binary.BigEndian.Uint32([]byte(enc[1:])))),
	}
}

// Projection returns the projections of p
func (p Place) Projection() []Projection {
	elems := make([]Projection, p.Len())
	for i := range elems {
		elems[i] = p.Elem(i)
	}
	return elems
}

// Prefix returns the place made of the local of p and its first n projections
func (p Place) Prefix(n int) Place {
	return Place{Local: p.Local, proj: p.proj[:n*projWidth]}
}

// Suffix returns the projections of p starting at index n
func (p Place) Suffix(n int) []Projection {
	return p.Projection()[n:]
}

// IsLocal returns true if p has no projection
func (p Place) IsLocal() bool {
	return p.proj == ""
}

// IsPrefixOf returns true if q is p extended with zero or more projections, i.e. q is a sub-path of p.
func (p Place) IsPrefixOf(q Place) bool {
	return p.Local == q.Local && strings.HasPrefix(q.proj, p.proj) && len(p.proj)%projWidth == 0
}

// HasDeref returns true if some projection of p is a dereference
func (p Place) HasDeref() bool {
	for i := 0; i < p.Len(); i++ {
		if p.Elem(i).Kind == Deref {
			return true
		}
	}
	return false
}

// HasIndex returns true if some projection of p indexes an array
func (p Place) HasIndex() bool {
	for i := 0; i < p.Len(); i++ {
		if k := p.Elem(i).Kind; k == IndexProj || k == ConstantIndex {
			return true
		}
	}
	return false
}

// RefPrefix is a pointer dereferenced in a place, with the projections following the dereference
type RefPrefix struct {
	Ptr   Place
	After []Projection
}

// RefsInProjection returns, for each dereference in p, the dereferenced pointer and the projections after it.
// For (*(*x).0).1 this returns (x, [.0 * .1]) and ((*x).0, [.1]).
func (p Place) RefsInProjection() []RefPrefix {
	var refs []RefPrefix
	elems := p.Projection()
	for i, e := range elems {
		if e.Kind == Deref {
			refs = append(refs, RefPrefix{Ptr: p.Prefix(i), After: elems[i+1:]})
		}
	}
	return refs
}

// LastDeref splits p at its last dereference. ok is false if p has no dereference.
func (p Place) LastDeref() (ptr Place, after []Projection, ok bool) {
	refs := p.RefsInProjection()
	if len(refs) == 0 {
		return p, nil, false
	}
	last := refs[len(refs)-1]
	return last.Ptr, last.After, true
}

// Normalize replaces every index projection by the AnyIndex projection. Normalize is idempotent.
func (p Place) Normalize() Place {
	if !p.HasIndex() {
		return p
	}
	elems := p.Projection()
	for i, e := range elems {
		if e.Kind == IndexProj || e.Kind == ConstantIndex {
			elems[i] = Projection{Kind: IndexProj, N: AnyIndex}
		}
	}
	return PlaceOf(p.Local, elems...)
}

// IndexLocals returns the locals used as indices in p
func (p Place) IndexLocals() []Local {
	var locals []Local
	for i := 0; i < p.Len(); i++ {
		if e := p.Elem(i); e.Kind == IndexProj && e.N != AnyIndex {
			locals = append(locals, Local(e.N))
		}
	}
	return locals
}

func (p Place) String() string {
	return p.format(Local.String)
}

func (p Place) format(name func(Local) string) string {
	s := name(p.Local)
	for _, e := range p.Projection() {
		switch e.Kind {
		case Deref:
			s = "(*" + s + ")"
		case FieldProj:
			s = fmt.Sprintf("%s.%d", s, e.N)
		case IndexProj:
			if e.N == AnyIndex {
				s += "[_]"
			} else {
				s = fmt.Sprintf("%s[%s]", s, name(Local(e.N)))
			}
		case ConstantIndex:
			s = fmt.Sprintf("%s[%d]", s, e.N)
		case Downcast:
			s = fmt.Sprintf("(%s as #%d)", s, e.N)
		}
	}
	return s
}

// ComparePlaces orders places by local, then by projections
func ComparePlaces(a, b Place) int {
	if a.Local != b.Local {
		if a.Local < b.Local {
			return -1
		}
		return 1
	}
	return strings.Compare(a.proj, b.proj)
}

// LessPlace is the ordering of ComparePlaces as a less function
func LessPlace(a, b Place) bool {
	return ComparePlaces(a, b) < 0
}
