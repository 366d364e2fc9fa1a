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
	"bytes"
	"embed"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata
var testfsys embed.FS

func loadFromTestDir(t *testing.T, filename string) (*Config, error) {
	filename = filepath.Join("testdata", filename)
	b, err := testfsys.ReadFile(filename)
	require.NoError(t, err)
	return LoadFromBytes(filename, b)
}

func TestNewDefault(t *testing.T) {
	c := NewDefault()
	assert.Equal(t, DefaultMaxCallDepth, c.MaxDepth)
	assert.Equal(t, int(InfoLevel), c.LogLevel)
	assert.Equal(t, DefaultEvalMode, c.EvalMode())
	assert.NoError(t, c.Validate())
	assert.True(t, c.IsTarget("any", "function"))
	assert.True(t, c.CanRecurseInto("any", "function"))
}

func TestLoadFullConfig(t *testing.T) {
	c, err := loadFromTestDir(t, "full_config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 4, c.LogLevel)
	assert.Equal(t, 3, c.MaxDepth)
	assert.Equal(t, EvalMode{Context: SigOnlyContext, Mutability: IgnoreMut, Pointer: ConservativePointers},
		c.EvalMode())
	assert.Equal(t, filepath.Join("testdata", "program.yaml"), c.RelPath(c.Program))

	assert.True(t, c.IsTarget("main", "handleRequest"))
	assert.False(t, c.IsTarget("main", "run"))
	assert.False(t, c.IsTarget("lib", "handleRequest"))
	assert.False(t, c.CanRecurseInto("util", "log"))
	assert.True(t, c.CanRecurseInto("util", "logger"))
}

func TestLoadDefaults(t *testing.T) {
	c, err := loadFromTestDir(t, "defaults.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxCallDepth, c.MaxDepth)
	assert.Equal(t, DefaultMaxPlaces, c.MaxPlaces)
	assert.Equal(t, int(InfoLevel), c.LogLevel)
	assert.Equal(t, DefaultEvalMode, c.EvalMode())
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		file    string
		invalid bool
	}{
		{"bad_mode.yaml", true},
		{"bad_format.yaml", false},
		{"bad_level.yaml", false},
	}
	for _, test := range tests {
		t.Run(test.file, func(t *testing.T) {
			c, err := loadFromTestDir(t, test.file)
			assert.Nil(t, c)
			require.Error(t, err)
			assert.Equal(t, test.invalid, errors.Is(err, ErrInvalidMode))
		})
	}
}

func TestLoadNonExistentFileReturnsError(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "does_not_exist.yaml"))
	assert.Nil(t, c)
	assert.Error(t, err)
}

func TestModeNames(t *testing.T) {
	for _, name := range []string{"recurse", "sig-only"} {
		m, err := ParseContextMode(name)
		require.NoError(t, err)
		assert.Equal(t, name, m.String())
	}
	for _, name := range []string{"distinguish-mut", "ignore-mut"} {
		m, err := ParseMutabilityMode(name)
		require.NoError(t, err)
		assert.Equal(t, name, m.String())
	}
	for _, name := range []string{"precise", "conservative"} {
		m, err := ParsePointerMode(name)
		require.NoError(t, err)
		assert.Equal(t, name, m.String())
	}
	_, err := ParsePointerMode("fast")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestFunctionIdentifierMatches(t *testing.T) {
	tests := []struct {
		name   string
		fid    FunctionIdentifier
		module string
		fn     string
		match  bool
	}{
		{"empty matches any", FunctionIdentifier{}, "m", "f", true},
		{"exact name", FunctionIdentifier{Name: "f"}, "m", "f", true},
		{"name is anchored", FunctionIdentifier{Name: "f"}, "m", "ff", false},
		{"regex name", FunctionIdentifier{Name: "get.*"}, "m", "getX", true},
		{"module mismatch", FunctionIdentifier{Module: "a|b", Name: "f"}, "c", "f", false},
		{"module alternative", FunctionIdentifier{Module: "a|b", Name: "f"}, "b", "f", true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.match, CompileRegexes(test.fid).Matches(test.module, test.fn))
		})
	}
	// identifiers that do not compile are compared as strings
	bad := CompileRegexes(FunctionIdentifier{Name: "f("})
	assert.True(t, bad.Matches("m", "f("))
	assert.False(t, bad.Matches("m", "f"))
}

func TestLogGroupLevels(t *testing.T) {
	c := NewDefault()
	c.LogLevel = int(WarnLevel)
	l := NewLogGroup(c)
	var buf bytes.Buffer
	l.SetAllOutput(&buf)

	l.Infof("hidden %d", 1)
	l.Warnf("shown %d", 2)
	assert.False(t, l.LogsDebug())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 2")

	l.SetLevel(TraceLevel)
	l.Tracef("traced")
	assert.True(t, l.LogsTrace())
	assert.Equal(t, 1, strings.Count(buf.String(), "traced"))
}
