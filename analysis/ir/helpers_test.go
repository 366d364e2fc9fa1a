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
	"embed"
	"testing"

	"github.com/stretchr/testify/require"
)

//go:embed testdata
var testfsys embed.FS

func loadTestProgram(t *testing.T) *testProgram {
	b, err := testfsys.ReadFile("testdata/programs.yaml")
	require.NoError(t, err)
	prog, err := LoadProgram(b)
	require.NoError(t, err)
	return &testProgram{prog}
}

type testProgram struct {
	*Program
}

func (p *testProgram) MustFunctionT(t *testing.T, name string) *Body {
	b, err := p.MustFunction(name)
	require.NoError(t, err)
	return b
}
