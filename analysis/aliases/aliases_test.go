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

package aliases

import (
	"embed"
	"testing"

	"github.com/awslabs/ar-go-flow/analysis/config"
	"github.com/awslabs/ar-go-flow/analysis/ir"
	"github.com/awslabs/ar-go-flow/internal/analysistest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata
var testfsys embed.FS

func buildFor(t *testing.T, name string, cfg *config.Config) (*PlaceInfo, *ir.Body) {
	prog := analysistest.LoadProgram(t, testfsys, "testdata/aliases.yaml")
	body := analysistest.Function(t, prog, name)
	if cfg == nil {
		cfg = config.NewDefault()
	}
	return Build(config.NewLogGroup(cfg), cfg, body), body
}

func placeStrings(body *ir.Body, places []ir.Place) []string {
	return analysistest.PlaceStrings(body, places)
}

func TestLifetimeGraph(t *testing.T) {
	g := NewLifetimeGraph(5, []ir.Outlives{{From: 1, To: 2}, {From: 2, To: 1}, {From: 2, To: 3}})
	assert.Equal(t, 5, g.NumRegions())
	tests := []struct {
		a, b ir.Region
		want bool
	}{
		{1, 2, true},
		{2, 1, true},
		{1, 3, true},
		{3, 1, false},
		{0, 4, true},
		{4, 0, false},
		{3, 3, true},
		{ir.UnknownRegion, 1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, g.Outlives(tt.a, tt.b), "%s outlives %s", tt.a, tt.b)
	}
	assert.True(t, g.SameComponent(1, 2))
	assert.False(t, g.SameComponent(2, 3))
	assert.Equal(t, []ir.Region{1, 3}, g.Successors(2))

	position := map[int]int{}
	for k, c := range g.Components() {
		for _, r := range c {
			position[r] = k
		}
	}
	assert.Less(t, position[0], position[1])
	assert.Less(t, position[2], position[3])
	assert.Equal(t, position[1], position[2])
}

func TestLifetimeGraphIgnoresBadEdges(t *testing.T) {
	g := NewLifetimeGraph(0, []ir.Outlives{{From: 3, To: 1}, {From: ir.UnknownRegion, To: 0}})
	assert.Equal(t, 1, g.NumRegions())
	assert.Len(t, g.Components(), 1)
}

func TestSelfAliasing(t *testing.T) {
	for _, name := range []string{"borrow", "reborrow", "two_refs", "reachable", "fields"} {
		t.Run(name, func(t *testing.T) {
			pi, body := buildFor(t, name, nil)
			for _, p := range pi.PlaceDomain().Values() {
				if p.HasDeref() {
					continue
				}
				assert.Equal(t, []ir.Place{p}, pi.Aliases(p), body.PlaceString(p))
				assert.True(t, pi.Conflicts(p).SinglePointee, body.PlaceString(p))
			}
		})
	}
}

func TestAliasesThroughReference(t *testing.T) {
	pi, body := buildFor(t, "borrow", nil)
	s := analysistest.Place(t, body, "s.*")
	assert.Equal(t, []string{"(*s)", "x"}, placeStrings(body, pi.Aliases(s)))
	assert.Equal(t, []string{"x"}, placeStrings(body, pi.Pointees(s)))
	assert.True(t, pi.Conflicts(s).SinglePointee)
	assert.ElementsMatch(t, []string{"(*s)", "x"}, placeStrings(body, pi.ConflictSet(s)))
	assert.Equal(t, []Loan{{Place: analysistest.Place(t, body, "x"), Mut: true}}, pi.Loans(1))
	assert.True(t, pi.LifetimeGraph().Outlives(1, 2))
	assert.False(t, pi.LifetimeGraph().Outlives(2, 1))
}

func TestReborrowRefinesLoans(t *testing.T) {
	pi, body := buildFor(t, "reborrow", nil)
	b := analysistest.Place(t, body, "b.*")
	assert.Equal(t, []string{"t.0"}, placeStrings(body, pi.Pointees(b)))
	assert.Equal(t, []string{"(*a)", "t"}, placeStrings(body, pi.Aliases(analysistest.Place(t, body, "a.*"))))
	assert.Equal(t, []string{"t"}, placeStrings(body, pi.Pointees(analysistest.Place(t, body, "a.*"))))
}

func TestConservativePointers(t *testing.T) {
	tests := []struct {
		mode     config.PointerMode
		pointees []string
		single   bool
	}{
		{config.PrecisePointers, []string{"x"}, true},
		{config.ConservativePointers, []string{"x", "y"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			cfg := config.NewDefault()
			cfg.PointerMode = tt.mode
			pi, body := buildFor(t, "two_refs", cfg)
			r := analysistest.Place(t, body, "r.*")
			assert.Equal(t, tt.pointees, placeStrings(body, pi.Pointees(r)))
			assert.Equal(t, tt.single, pi.Conflicts(r).SinglePointee)
			assert.Equal(t, !tt.single, pi.LifetimeGraph().SameComponent(1, 2))
		})
	}
}

func TestReachableValues(t *testing.T) {
	tests := []struct {
		name       string
		mutability config.MutabilityMode
		place      string
		mut        bool
		want       []string
	}{
		{"mutable only", config.DistinguishMut, "pair", true, []string{"pair", "x"}},
		{"any", config.DistinguishMut, "pair", false, []string{"pair", "x", "y"}},
		{"ignore mutability", config.IgnoreMut, "pair", true, []string{"pair", "x", "y"}},
		{"shared ref", config.DistinguishMut, "q", true, []string{"q"}},
		{"box", config.DistinguishMut, "bx", true, []string{"(*bx)", "bx"}},
		{"scalar", config.DistinguishMut, "x", true, []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewDefault()
			cfg.MutabilityMode = tt.mutability
			pi, body := buildFor(t, "reachable", cfg)
			got := pi.ReachableValues(analysistest.Place(t, body, tt.place), tt.mut)
			assert.Equal(t, tt.want, placeStrings(body, got))
		})
	}
}

func TestAllArgs(t *testing.T) {
	pi, body := buildFor(t, "with_args", nil)
	byArg := map[ir.Local][]ir.Place{}
	for _, a := range pi.AllArgs() {
		byArg[a.Arg] = append(byArg[a.Arg], a.Place)
	}
	require.Len(t, byArg, 2)
	assert.Equal(t, []string{"(*p)", "(*p).0", "(*p).1", "p"}, placeStrings(body, byArg[1]))
	assert.Equal(t, []string{"pt", "pt.0", "pt.1"}, placeStrings(body, byArg[2]))

	p := analysistest.Place(t, body, "p.*")
	assert.Equal(t, []ir.Place{p}, pi.Aliases(p))
	assert.True(t, pi.IsDirect(p))
	assert.Equal(t, []Loan{{Place: p, Mut: true}}, pi.Loans(1))
	for _, a := range pi.AllArgs() {
		assert.True(t, pi.PlaceDomain().Contains(a.Place))
		assert.True(t, pi.LocationDomain().Contains(ir.AtArg(a.Arg)))
	}
}

func TestChildrenRespectPrivacy(t *testing.T) {
	pi, body := buildFor(t, "fields", nil)
	tests := []struct {
		place string
		want  []string
	}{
		{"pt", []string{"pt", "pt.0"}},
		{"n", []string{"n", "n.0", "n.1", "n.1.0", "n.1.1"}},
		{"n.1", []string{"n.1", "n.1.0", "n.1.1"}},
		{"arr", []string{"arr", "arr[_]"}},
		{"arr.[i]", []string{"arr[_]"}},
	}
	for _, tt := range tests {
		t.Run(tt.place, func(t *testing.T) {
			got := pi.Children(analysistest.Place(t, body, tt.place))
			assert.Equal(t, tt.want, placeStrings(body, got))
		})
	}
}

func TestConflicts(t *testing.T) {
	pi, body := buildFor(t, "fields", nil)
	c := pi.Conflicts(analysistest.Place(t, body, "n.1"))
	assert.Equal(t, []string{"n.1", "n.1.0", "n.1.1"}, placeStrings(body, c.Subs))
	assert.Equal(t, []string{"n", "n.1"}, placeStrings(body, c.Supers))
	assert.Equal(t, []string{"n", "n.1", "n.1.0", "n.1.1"},
		placeStrings(body, pi.ConflictSet(analysistest.Place(t, body, "n.1"))))

	indexed := pi.Conflicts(analysistest.Place(t, body, "arr.[i]"))
	assert.Equal(t, []string{"arr", "arr[_]"}, placeStrings(body, indexed.Supers))
	assert.Equal(t, pi.Conflicts(analysistest.Place(t, body, "arr.[#2]")), indexed)
}

func TestConflictSymmetry(t *testing.T) {
	for _, name := range []string{"fields", "with_args", "reachable"} {
		t.Run(name, func(t *testing.T) {
			pi, body := buildFor(t, name, nil)
			for _, p := range pi.PlaceDomain().Values() {
				if !pi.IsDirect(p) {
					continue
				}
				for _, q := range pi.Conflicts(p).Subs {
					assert.Contains(t, pi.Conflicts(q).Supers, p,
						"%s is inside %s", body.PlaceString(q), body.PlaceString(p))
				}
			}
		})
	}
}

func TestDomains(t *testing.T) {
	pi, body := buildFor(t, "fields", nil)
	assert.Equal(t, len(body.AllLocations()), pi.LocationDomain().Len())
	assert.True(t, pi.PlaceDomain().Contains(analysistest.Place(t, body, "n.1.0")))
	assert.True(t, pi.PlaceDomain().Contains(analysistest.Place(t, body, "arr.[]")))
	assert.False(t, pi.PlaceDomain().Contains(analysistest.Place(t, body, "arr.[i]")))
	for _, p := range pi.PlaceDomain().Values() {
		assert.Equal(t, p, pi.Normalize(p))
	}
}

func TestMaxPlaces(t *testing.T) {
	cfg := config.NewDefault()
	cfg.MaxPlaces = 3
	pi, _ := buildFor(t, "fields", cfg)
	assert.LessOrEqual(t, pi.PlaceDomain().Len(), 3+8)
	assert.Greater(t, pi.PlaceDomain().Len(), 0)
}
