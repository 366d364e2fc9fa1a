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
	"github.com/awslabs/ar-go-flow/analysis/config"
	"github.com/awslabs/ar-go-flow/analysis/ir"
	"github.com/awslabs/ar-go-flow/internal/indexed"
	"golang.org/x/exp/slices"
)

// PlaceInfo answers the alias queries of one body: which places a place may refer to, which places overlap
// with it, and which places are reachable through its pointers. Query results are cached.
//
// A PlaceInfo is not safe for concurrent use.
type PlaceInfo struct {
	body   *ir.Body
	module string
	mode   config.EvalMode
	logger *config.LogGroup
	loans  *loanAnalysis

	locations *indexed.Domain[ir.LocationOrArg]
	places    *indexed.Domain[ir.Place]
	truncated bool
	allArgs   []ArgPlace

	aliasCache     map[ir.Place]aliasEntry
	childrenCache  map[ir.Place][]ir.Place
	conflictsCache map[ir.Place]Conflicts
	reachableCache map[reachKey][]ir.Place
}

// ArgPlace is a place reachable from an argument at the entry of the function
type ArgPlace struct {
	Place ir.Place
	Arg   ir.Local
}

// Conflicts holds the places that overlap with some alias of a place
type Conflicts struct {
	// Subs are the places inside an alias, the aliases included
	Subs []ir.Place
	// Supers are the places that contain an alias, up to its last dereference, the aliases included
	Supers []ir.Place
	// SinglePointee is true if the place names exactly one storage location
	SinglePointee bool
}

type aliasEntry struct {
	aliases  []ir.Place
	pointees []ir.Place
}

type reachKey struct {
	place ir.Place
	mut   bool
}

// Build computes the loans of body and returns the PlaceInfo answering its alias queries.
// The location and place domains of the body are built eagerly.
func Build(logger *config.LogGroup, cfg *config.Config, body *ir.Body) *PlaceInfo {
	pi := &PlaceInfo{
		body:           body,
		module:         body.Module,
		mode:           cfg.EvalMode(),
		logger:         logger,
		aliasCache:     map[ir.Place]aliasEntry{},
		childrenCache:  map[ir.Place][]ir.Place{},
		conflictsCache: map[ir.Place]Conflicts{},
		reachableCache: map[reachKey][]ir.Place{},
	}
	pi.loans = computeLoans(body, pi.mode)
	pi.allArgs = pi.computeAllArgs()
	pi.locations = buildLocationDomain(body)
	pi.places = pi.buildPlaceDomain(cfg.MaxPlaces)
	if logger.LogsDebug() {
		logger.Debugf("%s: %d regions, %d loans, %d places",
			body.Name, pi.loans.graph.NumRegions(), pi.loans.numLoans(), pi.places.Len())
	}
	return pi
}

func buildLocationDomain(body *ir.Body) *indexed.Domain[ir.LocationOrArg] {
	d := indexed.NewDomain[ir.LocationOrArg]()
	for _, l := range body.AllLocations() {
		d.Intern(ir.AtLocation(l))
	}
	for _, a := range body.Args() {
		d.Intern(ir.AtArg(a))
	}
	return d
}

// buildPlaceDomain collects the places the analyses may track: the places mentioned in the body, the places
// inside every local and behind every pointer, the loans and the argument places.
func (pi *PlaceInfo) buildPlaceDomain(maxPlaces int) *indexed.Domain[ir.Place] {
	d := indexed.NewDomain[ir.Place]()
	add := func(p ir.Place) {
		if pi.truncated {
			return
		}
		if maxPlaces > 0 && d.Len() >= maxPlaces && !d.Contains(p.Normalize()) {
			pi.truncated = true
			pi.logger.Warnf("%s: more than %d places, calls to and from it are analyzed from their signatures",
				pi.body.Name, maxPlaces)
			return
		}
		for _, c := range pi.Children(p) {
			d.Intern(c)
		}
	}
	for _, p := range ir.MentionedPlaces(pi.body) {
		add(p)
	}
	for _, ptr := range pi.loans.pointers {
		add(ptr.Place)
		add(ptr.Place.Deref())
	}
	for _, r := range sortedRegions(pi.loans.loans) {
		for _, l := range pi.loans.loans[r].loans {
			add(l.Place)
		}
	}
	for _, a := range pi.allArgs {
		add(a.Place)
	}
	return d
}

func sortedRegions(m map[ir.Region]*loanSet) []ir.Region {
	regions := make([]ir.Region, 0, len(m))
	for r := range m {
		regions = append(regions, r)
	}
	slices.Sort(regions)
	return regions
}

// Body returns the body the information is about
func (pi *PlaceInfo) Body() *ir.Body {
	return pi.body
}

// Mode returns the evaluation mode the information was computed with
func (pi *PlaceInfo) Mode() config.EvalMode {
	return pi.mode
}

// LifetimeGraph returns the subset graph of the regions of the body
func (pi *PlaceInfo) LifetimeGraph() *LifetimeGraph {
	return pi.loans.graph
}

// Loans returns the loans of region r
func (pi *PlaceInfo) Loans(r ir.Region) []Loan {
	if s, ok := pi.loans.loans[r]; ok {
		return s.loans
	}
	return nil
}

// LocationDomain returns the domain of the locations and argument entries of the body
func (pi *PlaceInfo) LocationDomain() *indexed.Domain[ir.LocationOrArg] {
	return pi.locations
}

// PlaceDomain returns the domain of the normalized places of the body
func (pi *PlaceInfo) PlaceDomain() *indexed.Domain[ir.Place] {
	return pi.places
}

// Truncated returns true if the place domain was cut short by the max-places option. A truncated domain misses
// places of the body, so effects cannot be translated through it.
func (pi *PlaceInfo) Truncated() bool {
	return pi.truncated
}

// Normalize returns the normalized version of p
func (pi *PlaceInfo) Normalize(p ir.Place) ir.Place {
	return p.Normalize()
}

// IsDirect returns true if p does not go through a pointer, or only through an argument's pointer
func (pi *PlaceInfo) IsDirect(p ir.Place) bool {
	return isDirect(pi.body, p)
}

// Aliases returns the places p may refer to. A place without dereference only aliases itself. The result always
// contains p, normalized.
func (pi *PlaceInfo) Aliases(p ir.Place) []ir.Place {
	return pi.aliases(p.Normalize()).aliases
}

// Pointees returns the places p may refer to, without p itself when p goes through a pointer
func (pi *PlaceInfo) Pointees(p ir.Place) []ir.Place {
	return pi.aliases(p.Normalize()).pointees
}

func (pi *PlaceInfo) aliases(p ir.Place) aliasEntry {
	if e, ok := pi.aliasCache[p]; ok {
		return e
	}
	e := pi.computeAliases(p)
	pi.aliasCache[p] = e
	return e
}

func (pi *PlaceInfo) computeAliases(p ir.Place) aliasEntry {
	if pi.IsDirect(p) {
		return aliasEntry{aliases: []ir.Place{p}, pointees: []ir.Place{p}}
	}
	ptr, after, _ := p.LastDeref()
	elem, region, _, ok := ir.Pointee(pi.body.PlaceType(ptr))
	if !ok {
		return aliasEntry{aliases: []ir.Place{p}}
	}
	seen := map[ir.Place]bool{}
	var pointees []ir.Place
	for _, l := range pi.Loans(region) {
		alias := l.Place
		if ir.Identical(pi.body.PlaceType(l.Place), elem) {
			alias = alias.Project(after...).Normalize()
		}
		if !seen[alias] {
			seen[alias] = true
			pointees = append(pointees, alias)
		}
	}
	slices.SortFunc(pointees, ir.LessPlace)
	aliases := pointees
	if !seen[p] {
		aliases = append(append([]ir.Place(nil), pointees...), p)
	}
	return aliasEntry{aliases: aliases, pointees: pointees}
}

// Children returns p and the places inside p, through fields, variants and indices but not through pointers.
// Fields that are not visible from the module of the body are skipped.
func (pi *PlaceInfo) Children(p ir.Place) []ir.Place {
	p = p.Normalize()
	if c, ok := pi.childrenCache[p]; ok {
		return c
	}
	c := ir.InteriorPlaces(pi.body, p, pi.module)
	pi.childrenCache[p] = c
	return c
}

// parents returns p and the places containing p, up to the last dereference: *x and (*x).0 contain (*x).0.1,
// but x does not.
func parents(p ir.Place) []ir.Place {
	start := 0
	for i := 0; i < p.Len(); i++ {
		if p.Elem(i).Kind == ir.Deref {
			start = i + 1
		}
	}
	var ps []ir.Place
	for i := start; i < p.Len(); i++ {
		ps = append(ps, p.Prefix(i))
	}
	return append(ps, p)
}

// Conflicts returns the places overlapping with any alias of p
func (pi *PlaceInfo) Conflicts(p ir.Place) Conflicts {
	p = p.Normalize()
	if c, ok := pi.conflictsCache[p]; ok {
		return c
	}
	entry := pi.aliases(p)
	c := Conflicts{SinglePointee: len(entry.pointees) == 1}
	subs := map[ir.Place]bool{}
	supers := map[ir.Place]bool{}
	for _, alias := range entry.aliases {
		for _, child := range pi.Children(alias) {
			if !subs[child] {
				subs[child] = true
				c.Subs = append(c.Subs, child)
			}
		}
		for _, parent := range parents(alias) {
			if !supers[parent] {
				supers[parent] = true
				c.Supers = append(c.Supers, parent)
			}
		}
	}
	pi.conflictsCache[p] = c
	return c
}

// ConflictSet returns the union of the sub-places and super-places of the aliases of p
func (pi *PlaceInfo) ConflictSet(p ir.Place) []ir.Place {
	c := pi.Conflicts(p)
	set := append([]ir.Place(nil), c.Subs...)
	for _, q := range c.Supers {
		if !slices.Contains(c.Subs, q) {
			set = append(set, q)
		}
	}
	return set
}

// CrossesImmutableRef returns true if some strict prefix of p is a shared reference, i.e. p cannot be written
func (pi *PlaceInfo) CrossesImmutableRef(p ir.Place) bool {
	for i := 0; i < p.Len(); i++ {
		if ir.IsImmutableRef(pi.body.PlaceType(p.Prefix(i))) {
			return true
		}
	}
	return false
}

// ReachableValues returns p and the places reachable through the pointers held in p. If mut is true, only places
// that can be written through p are returned, unless the mutability mode ignores mutability.
func (pi *PlaceInfo) ReachableValues(p ir.Place, mut bool) []ir.Place {
	p = p.Normalize()
	key := reachKey{place: p, mut: mut}
	if r, ok := pi.reachableCache[key]; ok {
		return r
	}
	values := []ir.Place{p}
	seen := map[ir.Place]bool{p: true}
	for _, l := range pi.collectLoans(pi.body.PlaceType(p), mut) {
		if !seen[l] && pi.keepReachable(l) {
			seen[l] = true
			values = append(values, l)
		}
	}
	pi.reachableCache[key] = values
	return values
}

// keepReachable returns true if l names its own storage, or storage behind a box or raw pointer
func (pi *PlaceInfo) keepReachable(l ir.Place) bool {
	ptr, _, ok := l.LastDeref()
	if !ok {
		return true
	}
	switch pi.body.PlaceType(ptr).(type) {
	case *ir.Box, *ir.RawPtr:
		return true
	}
	return pi.IsDirect(l)
}

// collectLoans returns the loans of the regions appearing in t. A loan reached under a shared reference is
// considered shared.
func (pi *PlaceInfo) collectLoans(t ir.Type, mut bool) []ir.Place {
	var places []ir.Place
	visiting := map[ir.Type]bool{}
	ignoreMut := pi.mode.Mutability == config.IgnoreMut
	visitRegion := func(r ir.Region, underShared bool) {
		for _, l := range pi.Loans(r) {
			if ignoreMut || !mut || (l.Mut && !underShared) {
				places = append(places, l.Place)
			}
		}
	}
	var walk func(t ir.Type, underShared bool)
	walk = func(t ir.Type, underShared bool) {
		switch t := t.(type) {
		case *ir.Ref:
			shared := underShared || !t.Mut
			visitRegion(t.Region, shared)
			walk(t.Elem, shared)
		case *ir.Box:
			visitRegion(ir.UnknownRegion, underShared)
			walk(t.Elem, underShared)
		case *ir.RawPtr:
			visitRegion(ir.UnknownRegion, underShared || !t.Mut)
			walk(t.Elem, underShared || !t.Mut)
		case *ir.Array:
			walk(t.Elem, underShared)
		case *ir.Tuple:
			for _, f := range t.Fields {
				walk(f, underShared)
			}
		case *ir.Closure:
			for _, f := range t.Upvars {
				walk(f, underShared)
			}
		case *ir.Struct:
			if visiting[t] {
				return
			}
			visiting[t] = true
			for _, f := range t.Fields {
				walk(f.Type, underShared)
			}
		case *ir.Enum:
			if visiting[t] {
				return
			}
			visiting[t] = true
			for _, v := range t.Variants {
				for _, f := range v.Fields {
					walk(f.Type, underShared)
				}
			}
		case *ir.VariantOf:
			walk(t.Enum, underShared)
		}
	}
	walk(t, false)
	return places
}

// AllArgs returns the places reachable from the arguments at the entry of the function: the places inside each
// argument and inside the pointees of its pointers.
func (pi *PlaceInfo) AllArgs() []ArgPlace {
	return pi.allArgs
}

func (pi *PlaceInfo) computeAllArgs() []ArgPlace {
	var res []ArgPlace
	seen := map[ir.Place]bool{}
	for _, arg := range pi.body.Args() {
		roots := []ir.Place{ir.PlaceOf(arg)}
		for _, ptr := range ir.InteriorPointers(pi.body, ir.PlaceOf(arg), pi.module) {
			if ptr.Place.Len() <= 2 {
				roots = append(roots, ptr.Place.Deref())
			}
		}
		for _, root := range roots {
			for _, p := range pi.Children(root) {
				if !seen[p] {
					seen[p] = true
					res = append(res, ArgPlace{Place: p, Arg: arg})
				}
			}
		}
	}
	return res
}
