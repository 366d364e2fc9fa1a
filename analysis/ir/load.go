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
	"os"

	"gopkg.in/yaml.v3"
)

type yamlField struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Private bool   `yaml:"private"`
}

type yamlVariant struct {
	Name   string      `yaml:"name"`
	Fields []yamlField `yaml:"fields"`
}

type yamlTypeDecl struct {
	Name     string        `yaml:"name"`
	Module   string        `yaml:"module"`
	Fields   []yamlField   `yaml:"fields"`
	Variants []yamlVariant `yaml:"variants"`
}

type yamlStatement struct {
	Label        string   `yaml:"label"`
	Assign       string   `yaml:"assign"`
	Use          string   `yaml:"use"`
	Ref          string   `yaml:"ref"`
	RefMut       string   `yaml:"ref-mut"`
	Region       int      `yaml:"region"`
	AddressOf    string   `yaml:"address-of"`
	Mut          bool     `yaml:"mut"`
	BinOp        string   `yaml:"binop"`
	UnOp         string   `yaml:"unop"`
	Aggregate    string   `yaml:"aggregate"`
	Variant      int      `yaml:"variant"`
	Operands     []string `yaml:"operands"`
	Discriminant string   `yaml:"discriminant"`
	Len          string   `yaml:"len"`
	Cast         string   `yaml:"cast"`
	To           string   `yaml:"to"`
	StorageLive  string   `yaml:"storage-live"`
	StorageDead  string   `yaml:"storage-dead"`
	Nop          bool     `yaml:"nop"`
	Unsupported  string   `yaml:"unsupported"`
}

type yamlTerminator struct {
	Label       string   `yaml:"label"`
	Goto        *int     `yaml:"goto"`
	Switch      string   `yaml:"switch"`
	Values      []int64  `yaml:"values"`
	Targets     []int    `yaml:"targets"`
	Return      bool     `yaml:"return"`
	Unreachable bool     `yaml:"unreachable"`
	Call        string   `yaml:"call"`
	Args        []string `yaml:"args"`
	Dest        string   `yaml:"dest"`
	Target      *int     `yaml:"target"`
	Drop        string   `yaml:"drop"`
	Replace     string   `yaml:"replace"`
	Value       string   `yaml:"value"`
	Assert      string   `yaml:"assert"`
	Expected    bool     `yaml:"expected"`
	FalseEdge   []int    `yaml:"false-edge"`
	FalseUnwind *int     `yaml:"false-unwind"`
	Unsupported string   `yaml:"unsupported"`
}

type yamlBlock struct {
	Statements []yamlStatement `yaml:"statements"`
	Terminator yamlTerminator  `yaml:"terminator"`
}

type yamlFunction struct {
	Name     string      `yaml:"name"`
	Module   string      `yaml:"module"`
	Args     []yamlField `yaml:"args"`
	Return   string      `yaml:"return"`
	Locals   []yamlField `yaml:"locals"`
	Outlives [][2]int    `yaml:"outlives"`
	Async    bool        `yaml:"async"`
	Unsafe   bool        `yaml:"unsafe"`
	Blocks   []yamlBlock `yaml:"blocks"`
}

type yamlProgram struct {
	Types     []yamlTypeDecl `yaml:"types"`
	Functions []yamlFunction `yaml:"functions"`
}

// LoadProgramFile reads and parses a program from a YAML file. See LoadProgram for the format.
func LoadProgramFile(filename string) (*Program, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read program file: %w", err)
	}
	return LoadProgram(b)
}

// LoadProgram parses a program from its YAML representation.
//
// The document has a list of named types and a list of functions. Every function lists its arguments, return
// type, other locals, outlives constraints and blocks. Types use the syntax of Type.String, places the syntax of
// ParsePlace and operands the syntax of ParseOperand. For example:
//
//	functions:
//	  - name: main
//	    return: "()"
//	    locals: [{name: x, type: i32}]
//	    blocks:
//	      - statements:
//	          - {assign: x, use: "const 1", label: init}
//	        terminator: {return: true}
func LoadProgram(content []byte) (*Program, error) {
	var yp yamlProgram
	if err := yaml.Unmarshal(content, &yp); err != nil {
		return nil, fmt.Errorf("could not unmarshal program: %w", err)
	}
	named, err := declareTypes(yp.Types)
	if err != nil {
		return nil, err
	}
	prog := NewProgram()
	for _, yf := range yp.Functions {
		body, err := buildFunction(yf, named)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", yf.Name, err)
		}
		if _, dup := prog.Function(body.Name); dup {
			return nil, fmt.Errorf("function %s is defined twice", body.Name)
		}
		prog.Add(body)
	}
	if err := prog.Validate(); err != nil {
		return nil, err
	}
	return prog, nil
}

// declareTypes creates the named types in two passes, so that they can refer to each other
func declareTypes(decls []yamlTypeDecl) (map[string]Type, error) {
	named := map[string]Type{}
	for _, d := range decls {
		var t Type
		if len(d.Variants) > 0 {
			t = &Enum{Name: d.Name, Module: d.Module}
		} else {
			t = &Struct{Name: d.Name, Module: d.Module}
		}
		named[d.Name] = t
		if d.Module != "" {
			named[d.Module+"::"+d.Name] = t
		}
	}
	parseFields := func(yfs []yamlField) ([]Field, error) {
		var fields []Field
		for _, yf := range yfs {
			t, err := ParseType(yf.Type, named)
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Name: yf.Name, Type: t, Private: yf.Private})
		}
		return fields, nil
	}
	for _, d := range decls {
		switch t := named[d.Name].(type) {
		case *Struct:
			fields, err := parseFields(d.Fields)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", d.Name, err)
			}
			t.Fields = fields
		case *Enum:
			for _, v := range d.Variants {
				fields, err := parseFields(v.Fields)
				if err != nil {
					return nil, fmt.Errorf("type %s: %w", d.Name, err)
				}
				t.Variants = append(t.Variants, Variant{Name: v.Name, Fields: fields})
			}
		}
	}
	return named, nil
}

func buildFunction(yf yamlFunction, named map[string]Type) (*Body, error) {
	ret := Unit
	if yf.Return != "" {
		var err error
		if ret, err = ParseType(yf.Return, named); err != nil {
			return nil, err
		}
	}
	b := NewBodyBuilder(yf.Name, ret).Module(yf.Module)
	b.body.Async = yf.Async
	b.body.Unsafe = yf.Unsafe
	for _, a := range yf.Args {
		t, err := ParseType(a.Type, named)
		if err != nil {
			return nil, err
		}
		b.Arg(a.Name, t)
	}
	for _, l := range yf.Locals {
		t, err := ParseType(l.Type, named)
		if err != nil {
			return nil, err
		}
		b.Local(l.Name, t)
	}
	for _, o := range yf.Outlives {
		b.Outlives(Region(o[0]), Region(o[1]))
	}
	blocks := make([]*BlockBuilder, len(yf.Blocks))
	for i := range yf.Blocks {
		blocks[i] = b.Block()
	}
	body := b.body
	for i, yb := range yf.Blocks {
		for j, ys := range yb.Statements {
			s, err := buildStatement(body, ys, named)
			if err != nil {
				return nil, fmt.Errorf("bb%d[%d]: %w", i, j, err)
			}
			blocks[i].Push(s)
			if ys.Label != "" {
				blocks[i].Label(ys.Label)
			}
		}
		t, err := buildTerminator(body, yb.Terminator, named)
		if err != nil {
			return nil, fmt.Errorf("bb%d terminator: %w", i, err)
		}
		blocks[i].Terminate(t)
		if yb.Terminator.Label != "" {
			blocks[i].Label(yb.Terminator.Label)
		}
	}
	return b.Build()
}

func parseOperands(b *Body, ss []string, named map[string]Type) ([]Operand, error) {
	var ops []Operand
	for _, s := range ss {
		o, err := ParseOperand(b, s, named)
		if err != nil {
			return nil, err
		}
		ops = append(ops, o)
	}
	return ops, nil
}

var aggregateKinds = map[string]AggregateKind{
	"tuple": TupleAggregate, "struct": StructAggregate, "enum": EnumAggregate, "array": ArrayAggregate,
	"closure": ClosureAggregate,
}

//gocyclo:ignore
func buildStatement(b *Body, ys yamlStatement, named map[string]Type) (Statement, error) {
	switch {
	case ys.StorageLive != "":
		l, err := parseLocal(b, ys.StorageLive)
		return &StorageLive{Local: l}, err
	case ys.StorageDead != "":
		l, err := parseLocal(b, ys.StorageDead)
		return &StorageDead{Local: l}, err
	case ys.Nop:
		return &Nop{}, nil
	case ys.Unsupported != "":
		return &UnsupportedStatement{Kind: ys.Unsupported}, nil
	case ys.Assign == "":
		return nil, fmt.Errorf("statement has no known kind")
	}
	lhs, err := ParsePlace(b, ys.Assign)
	if err != nil {
		return nil, err
	}
	var rv Rvalue
	switch {
	case ys.Use != "":
		o, err := ParseOperand(b, ys.Use, named)
		if err != nil {
			return nil, err
		}
		rv = &Use{Operand: o}
	case ys.Ref != "" || ys.RefMut != "":
		src, mut := ys.Ref, false
		if ys.RefMut != "" {
			src, mut = ys.RefMut, true
		}
		p, err := ParsePlace(b, src)
		if err != nil {
			return nil, err
		}
		rv = &Borrow{Region: Region(ys.Region), Mut: mut, Place: p}
	case ys.AddressOf != "":
		p, err := ParsePlace(b, ys.AddressOf)
		if err != nil {
			return nil, err
		}
		rv = &AddressOf{Mut: ys.Mut, Place: p}
	case ys.BinOp != "":
		ops, err := parseOperands(b, ys.Operands, named)
		if err != nil {
			return nil, err
		}
		if len(ops) != 2 {
			return nil, fmt.Errorf("binop %s needs 2 operands", ys.BinOp)
		}
		rv = &BinaryOp{Op: ys.BinOp, Left: ops[0], Right: ops[1]}
	case ys.UnOp != "":
		ops, err := parseOperands(b, ys.Operands, named)
		if err != nil {
			return nil, err
		}
		if len(ops) != 1 {
			return nil, fmt.Errorf("unop %s needs 1 operand", ys.UnOp)
		}
		rv = &UnaryOp{Op: ys.UnOp, Operand: ops[0]}
	case ys.Aggregate != "":
		kind, ok := aggregateKinds[ys.Aggregate]
		if !ok {
			return nil, fmt.Errorf("unknown aggregate kind %q", ys.Aggregate)
		}
		ops, err := parseOperands(b, ys.Operands, named)
		if err != nil {
			return nil, err
		}
		rv = &Aggregate{Kind: kind, Variant: ys.Variant, Operands: ops}
	case ys.Discriminant != "":
		p, err := ParsePlace(b, ys.Discriminant)
		if err != nil {
			return nil, err
		}
		rv = &Discriminant{Place: p}
	case ys.Len != "":
		p, err := ParsePlace(b, ys.Len)
		if err != nil {
			return nil, err
		}
		rv = &Len{Place: p}
	case ys.Cast != "":
		o, err := ParseOperand(b, ys.Cast, named)
		if err != nil {
			return nil, err
		}
		t, err := ParseType(ys.To, named)
		if err != nil {
			return nil, err
		}
		rv = &Cast{Operand: o, Type: t}
	default:
		return nil, fmt.Errorf("assignment to %s has no rvalue", ys.Assign)
	}
	return &Assign{Place: lhs, Rvalue: rv}, nil
}

//gocyclo:ignore
func buildTerminator(b *Body, yt yamlTerminator, named map[string]Type) (Terminator, error) {
	target := func() BlockID {
		if yt.Target == nil {
			return NoBlock
		}
		return BlockID(*yt.Target)
	}
	switch {
	case yt.Goto != nil:
		return &Goto{Target: BlockID(*yt.Goto)}, nil
	case yt.Return:
		return &Return{}, nil
	case yt.Unreachable:
		return &Unreachable{}, nil
	case yt.Switch != "":
		o, err := ParseOperand(b, yt.Switch, named)
		if err != nil {
			return nil, err
		}
		sw := &SwitchInt{Discr: o, Values: yt.Values}
		for _, t := range yt.Targets {
			sw.Targets = append(sw.Targets, BlockID(t))
		}
		return sw, nil
	case yt.Call != "":
		args, err := parseOperands(b, yt.Args, named)
		if err != nil {
			return nil, err
		}
		dest := PlaceOf(ReturnLocal)
		if yt.Dest != "" {
			if dest, err = ParsePlace(b, yt.Dest); err != nil {
				return nil, err
			}
		}
		return &Call{Func: FnRef(yt.Call), Args: args, Destination: dest, Target: target()}, nil
	case yt.Drop != "":
		p, err := ParsePlace(b, yt.Drop)
		if err != nil {
			return nil, err
		}
		return &Drop{Place: p, Target: target()}, nil
	case yt.Replace != "":
		p, err := ParsePlace(b, yt.Replace)
		if err != nil {
			return nil, err
		}
		v, err := ParseOperand(b, yt.Value, named)
		if err != nil {
			return nil, err
		}
		return &DropAndReplace{Place: p, Value: v, Target: target()}, nil
	case yt.Assert != "":
		o, err := ParseOperand(b, yt.Assert, named)
		if err != nil {
			return nil, err
		}
		return &Assert{Cond: o, Expected: yt.Expected, Target: target()}, nil
	case len(yt.FalseEdge) == 2:
		return &FalseEdge{Real: BlockID(yt.FalseEdge[0]), Imaginary: BlockID(yt.FalseEdge[1])}, nil
	case yt.FalseUnwind != nil:
		return &FalseUnwind{Real: BlockID(*yt.FalseUnwind)}, nil
	case yt.Unsupported != "":
		t := &UnsupportedTerminator{Kind: yt.Unsupported}
		for _, tg := range yt.Targets {
			t.Targets = append(t.Targets, BlockID(tg))
		}
		return t, nil
	}
	return nil, fmt.Errorf("terminator has no known kind")
}
