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
	"strconv"
	"strings"
	"unicode"
)

var scalarNames = map[string]bool{
	"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
	"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
	"bool": true, "char": true, "f32": true, "f64": true, "str": true,
}

func tokenize(s string) []string {
	var toks []string
	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '\'' && i+1 < len(rs) && rs[i+1] == '?':
			toks = append(toks, "'?")
			i += 2
		case r == '\'' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			j := i + 1
			for j < len(rs) && (rs[j] == '_' || rs[j] == ':' || unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j])) {
				j++
			}
			toks = append(toks, string(rs[i:j]))
			i = j
		default:
			toks = append(toks, string(r))
			i++
		}
	}
	return toks
}

type typeParser struct {
	toks  []string
	pos   int
	named map[string]Type
	src   string
}

// ParseType parses the textual form of a type, as printed by Type.String. Named struct and enum types are
// resolved in named.
func ParseType(s string, named map[string]Type) (Type, error) {
	p := &typeParser{toks: tokenize(s), named: named, src: s}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("type %q: unexpected %q", s, p.toks[p.pos])
	}
	return t, nil
}

func (p *typeParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *typeParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *typeParser) expect(tok string) error {
	if got := p.next(); got != tok {
		return fmt.Errorf("type %q: expected %q, got %q", p.src, tok, got)
	}
	return nil
}

func (p *typeParser) parseRegion() (Region, error) {
	tok := p.next()
	if tok == "'static" {
		return StaticRegion, nil
	}
	if tok == "'?" {
		return UnknownRegion, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(tok, "'"))
	if err != nil {
		return 0, fmt.Errorf("type %q: bad region %q", p.src, tok)
	}
	return Region(n), nil
}

//gocyclo:ignore
func (p *typeParser) parse() (Type, error) {
	tok := p.next()
	switch {
	case tok == "!":
		return Bang, nil
	case tok == "(":
		var fields []Type
		for p.peek() != ")" {
			f, err := p.parse()
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
			if p.peek() == "," {
				p.next()
			} else if p.peek() != ")" {
				return nil, fmt.Errorf("type %q: expected , or )", p.src)
			}
		}
		p.next()
		return &Tuple{Fields: fields}, nil
	case tok == "&":
		region := StaticRegion
		if strings.HasPrefix(p.peek(), "'") {
			r, err := p.parseRegion()
			if err != nil {
				return nil, err
			}
			region = r
		}
		mut := false
		if p.peek() == "mut" {
			p.next()
			mut = true
		}
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		return &Ref{Region: region, Mut: mut, Elem: elem}, nil
	case tok == "*":
		kind := p.next()
		if kind != "mut" && kind != "const" {
			return nil, fmt.Errorf("type %q: expected mut or const after *", p.src)
		}
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		return &RawPtr{Mut: kind == "mut", Elem: elem}, nil
	case tok == "[":
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		n := 0
		if p.peek() == ";" {
			p.next()
			n, err = strconv.Atoi(p.next())
			if err != nil {
				return nil, fmt.Errorf("type %q: bad array length", p.src)
			}
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		return &Array{Elem: elem, Len: n}, nil
	case tok == "Box":
		if err := p.expect("<"); err != nil {
			return nil, err
		}
		elem, err := p.parse()
		if err != nil {
			return nil, err
		}
		if err := p.expect(">"); err != nil {
			return nil, err
		}
		return &Box{Elem: elem}, nil
	case tok == "fn":
		return &FnDef{Name: p.next()}, nil
	case tok == "opaque":
		return &Opaque{Name: p.next()}, nil
	case tok == "closure":
		if err := p.expect("["); err != nil {
			return nil, err
		}
		kinds := map[string]ClosureKind{"Fn": FnClosure, "FnMut": FnMutClosure, "FnOnce": FnOnceClosure}
		kind, ok := kinds[p.next()]
		if !ok {
			return nil, fmt.Errorf("type %q: unknown closure kind", p.src)
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		c := &Closure{Kind: kind}
		if p.peek() == "(" {
			up, err := p.parse()
			if err != nil {
				return nil, err
			}
			c.Upvars = up.(*Tuple).Fields
		}
		return c, nil
	case scalarNames[tok]:
		return &Scalar{Name: tok}, nil
	default:
		if t, ok := p.named[tok]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("type %q: unknown type %q", p.src, tok)
	}
}

// ParsePlace parses a place written as a local name followed by dot-separated projections:
// "*" dereferences, a number selects a field, "[i]" indexes with the local i, "[#3]" indexes with a constant,
// "[]" is the normalized index, and "@2" downcasts to a variant. For example "p.*.0" is (*p).0.
// Locals are named by their declared name or by _N.
func ParsePlace(b *Body, s string) (Place, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	local, err := parseLocal(b, parts[0])
	if err != nil {
		return Place{}, fmt.Errorf("place %q: %w", s, err)
	}
	p := PlaceOf(local)
	for _, part := range parts[1:] {
		switch {
		case part == "*":
			p = p.Deref()
		case part == "[]":
			p = p.Project(Projection{Kind: IndexProj, N: AnyIndex})
		case strings.HasPrefix(part, "[#") && strings.HasSuffix(part, "]"):
			n, err := strconv.Atoi(part[2 : len(part)-1])
			if err != nil {
				return Place{}, fmt.Errorf("place %q: bad constant index %q", s, part)
			}
			p = p.ConstIndex(n)
		case strings.HasPrefix(part, "[") && strings.HasSuffix(part, "]"):
			l, err := parseLocal(b, part[1:len(part)-1])
			if err != nil {
				return Place{}, fmt.Errorf("place %q: %w", s, err)
			}
			p = p.Index(l)
		case strings.HasPrefix(part, "@"):
			n, err := strconv.Atoi(part[1:])
			if err != nil {
				return Place{}, fmt.Errorf("place %q: bad variant %q", s, part)
			}
			p = p.Downcast(n)
		default:
			n, err := strconv.Atoi(part)
			if err != nil {
				return Place{}, fmt.Errorf("place %q: bad projection %q", s, part)
			}
			p = p.Field(n)
		}
	}
	return p, nil
}

func parseLocal(b *Body, name string) (Local, error) {
	for i, decl := range b.Locals {
		if decl.Name == name {
			return Local(i), nil
		}
	}
	if strings.HasPrefix(name, "_") {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 0 && n < len(b.Locals) {
			return Local(n), nil
		}
	}
	return 0, fmt.Errorf("unknown local %q", name)
}

// ParseOperand parses "copy <place>", "move <place>", "fn <name>" or "const <value>[: <type>]".
// Constants are of type i32 unless specified.
func ParseOperand(b *Body, s string, named map[string]Type) (Operand, error) {
	kind, rest, _ := strings.Cut(strings.TrimSpace(s), " ")
	rest = strings.TrimSpace(rest)
	switch kind {
	case "copy", "move":
		p, err := ParsePlace(b, rest)
		if err != nil {
			return Operand{}, err
		}
		if kind == "copy" {
			return Copy(p), nil
		}
		return Move(p), nil
	case "fn":
		return FnRef(rest), nil
	case "const":
		value, typ, found := strings.Cut(rest, ":")
		t := I32
		if found {
			var err error
			if t, err = ParseType(typ, named); err != nil {
				return Operand{}, err
			}
		}
		return Const(t, strings.TrimSpace(value)), nil
	}
	return Operand{}, fmt.Errorf("operand %q: expected copy, move, fn or const", s)
}
