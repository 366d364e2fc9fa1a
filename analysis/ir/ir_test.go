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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	a := PlaceOf(1)
	tests := []struct {
		name string
		p    Place
		want Place
	}{
		{"local", a, a},
		{"field", a.Field(2), a.Field(2)},
		{"const index", a.ConstIndex(0), a.Project(Projection{Kind: IndexProj, N: AnyIndex})},
		{"local index", a.Index(3), a.Project(Projection{Kind: IndexProj, N: AnyIndex})},
		{"nested", a.Deref().Index(2).Field(1), a.Deref().Project(Projection{Kind: IndexProj, N: AnyIndex}).Field(1)},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			n := test.p.Normalize()
			assert.Equal(t, test.want, n)
			assert.Equal(t, n, n.Normalize(), "normalization must be idempotent")
		})
	}
	assert.Equal(t, a.ConstIndex(0).Normalize(), a.Index(2).Normalize())
	assert.Empty(t, a.Index(2).Normalize().IndexLocals())
}

func TestPlaceProjections(t *testing.T) {
	x := PlaceOf(2)
	p := x.Deref().Field(0).Deref().Field(1)
	assert.Equal(t, 4, p.Len())
	assert.True(t, p.HasDeref())
	assert.False(t, p.HasIndex())
	assert.Equal(t, Projection{Kind: FieldProj, N: 1}, p.Elem(3))
	assert.Equal(t, x.Deref(), p.Prefix(1))
	assert.Equal(t, []Projection{{Kind: Deref}, {Kind: FieldProj, N: 1}}, p.Suffix(2))
	assert.Equal(t, "(*(*_2).0).1", p.String())

	refs := p.RefsInProjection()
	require.Len(t, refs, 2)
	assert.Equal(t, x, refs[0].Ptr)
	assert.Len(t, refs[0].After, 3)
	assert.Equal(t, x.Deref().Field(0), refs[1].Ptr)
	assert.Equal(t, []Projection{{Kind: FieldProj, N: 1}}, refs[1].After)

	ptr, after, ok := p.LastDeref()
	assert.True(t, ok)
	assert.Equal(t, refs[1].Ptr, ptr)
	assert.Equal(t, refs[1].After, after)
	_, _, ok = x.Field(1).LastDeref()
	assert.False(t, ok)
}

func TestIsPrefixOf(t *testing.T) {
	x := PlaceOf(1)
	assert.True(t, x.IsPrefixOf(x))
	assert.True(t, x.IsPrefixOf(x.Field(0).Deref()))
	assert.True(t, x.Field(0).IsPrefixOf(x.Field(0).Field(1)))
	assert.False(t, x.Field(0).IsPrefixOf(x))
	assert.False(t, x.Field(0).IsPrefixOf(x.Field(1)))
	assert.False(t, x.IsPrefixOf(PlaceOf(2).Field(0)))
}

func TestPlaceOrdering(t *testing.T) {
	x := PlaceOf(1)
	assert.True(t, LessPlace(x, x.Field(0)))
	assert.True(t, LessPlace(x.Field(0), x.Field(1)))
	assert.True(t, LessPlace(x.Field(9), PlaceOf(2)))
	assert.Equal(t, 0, ComparePlaces(x.Deref(), x.Deref()))
}

func TestTypes(t *testing.T) {
	named := map[string]Type{}
	tests := []struct {
		src  string
		want Type
	}{
		{"i32", I32},
		{"()", Unit},
		{"!", Bang},
		{"(i32,)", TupleOf(I32)},
		{"(i32, bool)", TupleOf(I32, Bool)},
		{"&'1 mut i32", RefTo(1, true, I32)},
		{"&'static u8", RefTo(StaticRegion, false, U8)},
		{"&'? i32", RefTo(UnknownRegion, false, I32)},
		{"*mut i32", &RawPtr{Mut: true, Elem: I32}},
		{"[i32; 4]", &Array{Elem: I32, Len: 4}},
		{"[u8]", &Array{Elem: U8}},
		{"Box<(i32, i32)>", &Box{Elem: TupleOf(I32, I32)}},
		{"fn helper", &FnDef{Name: "helper"}},
		{"closure[FnMut](&'2 mut i32)", &Closure{Kind: FnMutClosure, Upvars: []Type{RefTo(2, true, I32)}}},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			got, err := ParseType(test.src, named)
			require.NoError(t, err)
			assert.True(t, Identical(test.want, got), "got %s", got)
			reparsed, err := ParseType(got.String(), named)
			require.NoError(t, err)
			assert.True(t, Identical(got, reparsed))
		})
	}
	for _, bad := range []string{"Foo", "&'x i32", "(i32", "*i32", "closure[Other]"} {
		_, err := ParseType(bad, named)
		assert.Error(t, err, bad)
	}
}

func TestTypeRegions(t *testing.T) {
	ty := TupleOf(RefTo(1, false, RefTo(2, true, I32)), RefTo(3, true, RefTo(4, false, I32)))
	assert.ElementsMatch(t, []Region{1, 2, 3, 4}, TypeRegions(ty, false))
	assert.ElementsMatch(t, []Region{3}, TypeRegions(ty, true))
	assert.Empty(t, TypeRegions(I32, false))
}

func TestIdenticalIsNominal(t *testing.T) {
	a := &Struct{Name: "S", Module: "m", Fields: []Field{{Name: "f", Type: I32}}}
	b := &Struct{Name: "S", Module: "m"}
	c := &Struct{Name: "S", Module: "other"}
	assert.True(t, Identical(a, b))
	assert.False(t, Identical(a, c))
	assert.False(t, Identical(RefTo(1, true, I32), RefTo(2, true, I32)))
	assert.False(t, Identical(RefTo(1, true, I32), RefTo(1, false, I32)))
}

func TestBuilderAndPlaceTypes(t *testing.T) {
	b := NewBodyBuilder("f", I32)
	pair := b.Arg("pair", RefTo(1, true, TupleOf(I32, RefTo(2, false, Bool))))
	arr := b.Local("arr", &Array{Elem: I32, Len: 3})
	i := b.Local("i", Usize)
	entry := b.Block()
	exit := b.Block()
	entry.Assign(pair.Deref().Field(0), &Use{Operand: Copy(arr.Index(i.Local))})
	entry.Label("write")
	entry.Goto(exit)
	exit.Assign(PlaceOf(ReturnLocal), &Use{Operand: Copy(pair.Deref().Field(0))})
	exit.Return()
	exit.Label("ret")
	body := b.MustBuild()

	assert.Equal(t, []Local{1}, body.Args())
	assert.True(t, body.IsArg(1))
	assert.False(t, body.IsArg(2))
	assert.Equal(t, I32, body.PlaceType(pair.Deref().Field(0)))
	assert.Equal(t, Bool, body.PlaceType(pair.Deref().Field(1).Deref()))
	assert.Equal(t, I32, body.PlaceType(arr.Index(i.Local)))
	assert.Nil(t, body.PlaceType(arr.Deref()))
	assert.Equal(t, "(*pair).0", body.PlaceString(pair.Deref().Field(0)))
	assert.Equal(t, "arr[i]", body.PlaceString(arr.Index(i.Local)))

	loc, ok := body.Location("write")
	assert.True(t, ok)
	assert.Equal(t, Location{Block: 0, Statement: 0}, loc)
	loc, ok = body.Location("ret")
	assert.True(t, ok)
	assert.True(t, body.IsTerminator(loc))
	assert.Equal(t, []Location{{Block: 1, Statement: 1}}, body.ReturnLocations())
	assert.Len(t, body.AllLocations(), 4)
	assert.Equal(t, []BlockID{1}, body.Exits())
}

func TestValidateErrors(t *testing.T) {
	t.Run("no terminator", func(t *testing.T) {
		b := NewBodyBuilder("f", Unit)
		b.Block()
		_, err := b.Build()
		assert.ErrorIs(t, err, ErrInvalidBody)
	})
	t.Run("bad target", func(t *testing.T) {
		b := NewBodyBuilder("f", Unit)
		b.Block().Terminate(&Goto{Target: 4})
		_, err := b.Build()
		assert.ErrorIs(t, err, ErrInvalidBody)
	})
	t.Run("unknown local", func(t *testing.T) {
		b := NewBodyBuilder("f", Unit)
		blk := b.Block()
		blk.Assign(PlaceOf(7), &Use{Operand: Const(I32, "1")})
		blk.Return()
		_, err := b.Build()
		assert.ErrorIs(t, err, ErrInvalidBody)
	})
	t.Run("switch arity", func(t *testing.T) {
		b := NewBodyBuilder("f", Unit)
		blk := b.Block()
		blk.Terminate(&SwitchInt{Discr: Const(I32, "0"), Values: []int64{0, 1}, Targets: []BlockID{0}})
		_, err := b.Build()
		assert.ErrorIs(t, err, ErrInvalidBody)
	})
	t.Run("argument after local", func(t *testing.T) {
		b := NewBodyBuilder("f", Unit)
		b.Local("x", I32)
		assert.Panics(t, func() { b.Arg("a", I32) })
	})
}

func TestTraversalOrders(t *testing.T) {
	// bb0 -> bb1, bb2; bb1 -> bb3; bb2 -> bb3; bb4 is unreachable
	b := NewBodyBuilder("f", Unit)
	c := b.Arg("c", Bool)
	bbs := []*BlockBuilder{b.Block(), b.Block(), b.Block(), b.Block(), b.Block()}
	bbs[0].If(Copy(c), bbs[1], bbs[2])
	bbs[1].Goto(bbs[3])
	bbs[2].Goto(bbs[3])
	bbs[3].Return()
	bbs[4].Goto(bbs[3])
	body := b.MustBuild()

	rpo := body.ReversePostorder()
	require.Len(t, rpo, 4)
	assert.Equal(t, BlockID(0), rpo[0])
	assert.Equal(t, BlockID(3), rpo[3])
	post := body.Postorder()
	assert.Equal(t, BlockID(3), post[0])
	assert.Equal(t, BlockID(0), post[3])
	assert.ElementsMatch(t, []BlockID{1, 2, 4}, body.Predecessors(3))
}

func TestInteriorPlaces(t *testing.T) {
	prog := loadTestProgram(t)
	point := prog.MustFunctionT(t, "main")
	pt, err := ParsePlace(point, "pt")
	require.NoError(t, err)

	assert.Equal(t, []Place{pt, pt.Field(0)}, InteriorPlaces(point, pt, "app"),
		"private fields are invisible outside their module")
	assert.Equal(t, []Place{pt, pt.Field(0), pt.Field(1)}, InteriorPlaces(point, pt, "geom"))
}

func TestInteriorPointers(t *testing.T) {
	b := NewBodyBuilder("f", Unit)
	x := b.Arg("x", RefTo(1, false, TupleOf(RefTo(2, true, I32), I32)))
	b.Block().Return()
	body := b.MustBuild()
	ptrs := InteriorPointers(body, x, "")
	require.Len(t, ptrs, 2)
	assert.Equal(t, PointerPlace{Place: x, Region: 1, Mut: false, Elem: body.PlaceType(x.Deref())}, ptrs[0])
	assert.Equal(t, x.Deref().Field(0), ptrs[1].Place)
	assert.Equal(t, Region(2), ptrs[1].Region)
	assert.True(t, ptrs[1].Mut)
}

func TestParsePlace(t *testing.T) {
	prog := loadTestProgram(t)
	body := prog.MustFunctionT(t, "add_to")
	tests := []struct {
		src  string
		want Place
	}{
		{"p", PlaceOf(1)},
		{"_2", PlaceOf(2)},
		{"p.*", PlaceOf(1).Deref()},
		{"tmp.0.[q]", PlaceOf(3).Field(0).Index(2)},
		{"tmp.[#4]", PlaceOf(3).ConstIndex(4)},
		{"tmp.[]", PlaceOf(3).Project(Projection{Kind: IndexProj, N: AnyIndex})},
		{"tmp.@1.0", PlaceOf(3).Downcast(1).Field(0)},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			p, err := ParsePlace(body, test.src)
			require.NoError(t, err)
			assert.Equal(t, test.want, p)
		})
	}
	for _, bad := range []string{"nope", "p.x", "p.[#a]", "p.@z", "_9"} {
		_, err := ParsePlace(body, bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadProgram(t *testing.T) {
	prog := loadTestProgram(t)
	assert.Equal(t, []string{"add_to", "main"}, prog.Names())
	require.NoError(t, prog.Validate())

	main := prog.MustFunctionT(t, "main")
	assert.Equal(t, "app", main.Module)
	assert.Equal(t, 0, main.ArgCount)
	assert.Equal(t, I32, main.ReturnType())
	assert.Equal(t, []string{"add_to"}, Callees(main))

	call, ok := main.Blocks[0].Terminator.(*Call)
	require.True(t, ok)
	name, ok := call.Func.FnName()
	assert.True(t, ok)
	assert.Equal(t, "add_to", name)
	assert.Equal(t, BlockID(1), call.Target)
	assert.Len(t, call.Args, 2)

	borrow, ok := main.Blocks[0].Statements[2].(*Assign).Rvalue.(*Borrow)
	require.True(t, ok)
	assert.True(t, borrow.Mut)
	assert.Equal(t, Region(3), borrow.Region)

	loc, ok := main.Location("read-x")
	assert.True(t, ok)
	assert.Equal(t, Location{Block: 1, Statement: 0}, loc)

	addTo := prog.MustFunctionT(t, "add_to")
	assert.Equal(t, []Outlives{{From: 1, To: 2}}, addTo.Outlives)
	assert.True(t, IsUnit(addTo.ReturnType()))
	exit, ok := addTo.Location("exit")
	assert.True(t, ok)
	assert.True(t, addTo.IsTerminator(exit))

	_, err := prog.MustFunction("missing")
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestLoadProgramErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bad yaml", "functions: ["},
		{"unknown type", "functions: [{name: f, locals: [{name: x, type: Foo}], blocks: [{terminator: {return: true}}]}]"},
		{"unknown local", "functions: [{name: f, blocks: [{statements: [{assign: y, use: 'const 1'}], terminator: {return: true}}]}]"},
		{"missing terminator", "functions: [{name: f, blocks: [{statements: []}]}]"},
		{"bad target", "functions: [{name: f, blocks: [{terminator: {goto: 3}}]}]"},
		{"duplicate", "functions: [{name: f, blocks: [{terminator: {return: true}}]}, " +
			"{name: f, blocks: [{terminator: {return: true}}]}]"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := LoadProgram([]byte(test.src))
			assert.Error(t, err)
		})
	}
	_, err := LoadProgram([]byte("functions: [{name: f, blocks: [{terminator: {goto: 3}}]}]"))
	assert.ErrorIs(t, err, ErrInvalidBody)
}

func TestValidateCallArity(t *testing.T) {
	src := `
functions:
  - name: leaf
    args: [{name: p, type: i32}, {name: v, type: i32}]
    blocks:
      - terminator: {return: true}
  - name: short
    locals: [{name: a, type: i32}, {name: u, type: "()"}]
    blocks:
      - terminator: {call: leaf, args: ["copy a"], dest: u, target: 1}
      - terminator: {return: true}
`
	_, err := LoadProgram([]byte(src))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidBody)
	assert.Contains(t, err.Error(), "calls leaf with 1 arguments, it expects 2")

	leaf := NewBodyBuilder("leaf", Unit)
	leaf.Arg("p", I32)
	leaf.Block().Return()
	caller := NewBodyBuilder("caller", Unit)
	a := caller.Local("a", I32)
	u := caller.Local("u", Unit)
	caller.Block().Terminate(&Call{Func: FnRef("leaf"), Args: []Operand{Copy(a), Copy(a)}, Destination: u,
		Target: 1})
	caller.Block().Return()
	prog := NewProgram(leaf.MustBuild(), caller.MustBuild())
	assert.ErrorIs(t, prog.Validate(), ErrInvalidBody)
}
