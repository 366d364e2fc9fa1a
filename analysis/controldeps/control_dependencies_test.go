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

package controldeps

import (
	"testing"

	"github.com/awslabs/ar-go-flow/analysis/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blocksOf(cd *ControlDependencies, b ir.BlockID) []ir.BlockID {
	s := cd.DependentOn(b)
	if s == nil {
		return nil
	}
	return s.Values()
}

func TestBranch(t *testing.T) {
	b := ir.NewBodyBuilder("f", ir.Unit)
	c := b.Arg("c", ir.Bool)
	x := b.Local("x", ir.I32)
	bb0, bb1, bb2, bb3 := b.Block(), b.Block(), b.Block(), b.Block()
	bb0.If(ir.Copy(c), bb1, bb2)
	bb1.Assign(x, &ir.Use{Operand: ir.Const(ir.I32, "1")})
	bb1.Goto(bb3)
	bb2.Goto(bb3)
	bb3.Return()
	cd := Compute(b.MustBuild())

	tests := []struct {
		block ir.BlockID
		deps  []ir.BlockID
	}{
		{0, nil},
		{1, []ir.BlockID{0}},
		{2, []ir.BlockID{0}},
		{3, nil},
	}
	for _, test := range tests {
		t.Run(test.block.String(), func(t *testing.T) {
			assert.Equal(t, test.deps, blocksOf(cd, test.block))
		})
	}
	assert.True(t, cd.IsDependent(1, 0))
	assert.False(t, cd.IsDependent(3, 0))
	assert.False(t, cd.IsDependent(0, 1))

	d, ok := cd.ImmediatePostDominator(0)
	assert.True(t, ok)
	assert.Equal(t, ir.BlockID(3), d)
	_, ok = cd.ImmediatePostDominator(3)
	assert.False(t, ok, "the exit block is only post-dominated by the synthetic exit")
}

func TestWhileLoopFalseEdge(t *testing.T) {
	b := ir.NewBodyBuilder("f", ir.Unit)
	c := b.Arg("c", ir.Bool)
	x := b.Local("x", ir.I32)
	bbs := make([]*ir.BlockBuilder, 6)
	for i := range bbs {
		bbs[i] = b.Block()
	}
	bbs[0].Goto(bbs[1])
	bbs[1].Terminate(&ir.FalseUnwind{Real: 2})
	bbs[2].Terminate(&ir.SwitchInt{Discr: ir.Copy(c), Values: []int64{0}, Targets: []ir.BlockID{4, 3}})
	bbs[3].Terminate(&ir.FalseEdge{Real: 5, Imaginary: 4})
	bbs[4].Return()
	bbs[5].Assign(x, &ir.Use{Operand: ir.Const(ir.I32, "4")})
	bbs[5].Goto(bbs[1])
	cd := Compute(b.MustBuild())

	assert.Equal(t, []ir.BlockID{2}, blocksOf(cd, 3))
	assert.True(t, cd.IsDependent(5, 3))
	assert.True(t, cd.IsDependent(5, 2), "the loop body depends on the loop condition")
	assert.True(t, cd.IsDependent(1, 2))
	assert.Nil(t, cd.DependentOn(0))
	assert.Nil(t, cd.DependentOn(4))
}

func TestDivergingCall(t *testing.T) {
	b := ir.NewBodyBuilder("f", ir.Unit)
	c := b.Arg("c", ir.Bool)
	u := b.Local("u", ir.Bang)
	bb0, bb1, bb2 := b.Block(), b.Block(), b.Block()
	bb0.If(ir.Copy(c), bb1, bb2)
	bb1.Call("panic", nil, u, nil)
	bb2.Return()
	cd := Compute(b.MustBuild())

	assert.Equal(t, []ir.BlockID{0}, blocksOf(cd, 1))
	assert.Equal(t, []ir.BlockID{0}, blocksOf(cd, 2))
}

func TestInfiniteLoop(t *testing.T) {
	b := ir.NewBodyBuilder("f", ir.Unit)
	c := b.Arg("c", ir.Bool)
	bb0, bb1, bb2 := b.Block(), b.Block(), b.Block()
	bb0.If(ir.Copy(c), bb1, bb2)
	bb1.Goto(bb1)
	bb2.Return()
	body := b.MustBuild()

	var cd *ControlDependencies
	require.NotPanics(t, func() { cd = Compute(body) })
	assert.True(t, cd.IsDependent(1, 0))
	assert.Nil(t, cd.DependentOn(2))
	_, ok := cd.ImmediatePostDominator(1)
	assert.False(t, ok)
	assert.Contains(t, cd.String(), "bb1: {bb0")
}
