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

package infoflow

import (
	"fmt"
	"time"

	"github.com/awslabs/ar-go-flow/analysis/aliases"
	"github.com/awslabs/ar-go-flow/analysis/config"
	"github.com/awslabs/ar-go-flow/analysis/controldeps"
	"github.com/awslabs/ar-go-flow/analysis/engine"
	"github.com/awslabs/ar-go-flow/analysis/ir"
	"golang.org/x/exp/slices"
)

// Context holds the state of one top-level analysis request: the program, the configuration, the stack of the
// functions being analyzed and the results of the functions already analyzed. A context must not be shared
// between goroutines.
type Context struct {
	Config  *config.Config
	Logger  *config.LogGroup
	Program *ir.Program

	stack []string
	memo  map[string]*FlowResults
}

// NewContext returns a context for analyzing functions of prog. prog may be nil, in which case calls are never
// analyzed by recursion. A nil logger is replaced by a log group configured by cfg.
func NewContext(logger *config.LogGroup, cfg *config.Config, prog *ir.Program) *Context {
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	return &Context{
		Config:  cfg,
		Logger:  logger,
		Program: prog,
		memo:    map[string]*FlowResults{},
	}
}

// Analyze runs the information flow analysis on the function name of the program
func (c *Context) Analyze(name string) (*FlowResults, error) {
	if c.Program == nil {
		return nil, fmt.Errorf("no program to analyze %s: %w", name, ir.ErrUnknownFunction)
	}
	body, err := c.Program.MustFunction(name)
	if err != nil {
		return nil, err
	}
	return c.AnalyzeBody(body), nil
}

// AnalyzeBody runs the information flow analysis on body. Results are memoized by function name.
func (c *Context) AnalyzeBody(body *ir.Body) *FlowResults {
	if r, ok := c.memo[body.Name]; ok {
		return r
	}
	c.stack = append(c.stack, body.Name)
	defer func() { c.stack = c.stack[:len(c.stack)-1] }()

	start := time.Now()
	fa := newFlowAnalysis(c, body)
	r := &FlowResults{
		Results:  engine.Iterate[*FlowDomain](c.Logger, body, fa),
		Info:     fa.info,
		Control:  fa.control,
		analysis: fa,
	}
	c.memo[body.Name] = r
	if c.Logger.Level() >= config.InfoLevel {
		s := r.Stats()
		c.Logger.Infof("%s: over %d locations, total number of place entries: %d (avg %.1f/loc), "+
			"total size of location sets: %d (avg %.1f/loc) (%.2f ms)",
			body.Name, s.Locations, s.PlaceEntries, s.avg(s.PlaceEntries), s.LocationEntries,
			s.avg(s.LocationEntries), float64(time.Since(start).Microseconds())/1000)
	}
	return r
}

// Depth returns the number of functions being analyzed
func (c *Context) Depth() int {
	return len(c.stack)
}

// onStack returns true if the function name is being analyzed
func (c *Context) onStack(name string) bool {
	return slices.Contains(c.stack, name)
}

// FlowResults is the fixpoint of the information flow analysis on one body, with the alias and control
// dependence information it was computed with. Results are read-only.
type FlowResults struct {
	*engine.Results[*FlowDomain]
	Info    *aliases.PlaceInfo
	Control *controldeps.ControlDependencies

	analysis *FlowAnalysis
}

// DepsFor returns the locations the value of place may depend on in state, including the values reachable through
// the pointers of place.
func (r *FlowResults) DepsFor(state *FlowDomain, place ir.Place) *LocationSet {
	deps := state.NewLocationSet()
	for _, p := range r.Info.ReachableValues(place, false) {
		r.analysis.addInfluences(state, p, deps)
	}
	return deps
}

// Mutations returns the mutations of the statement or terminator at loc, as seen from the signature of callees
func (r *FlowResults) Mutations(loc ir.Location) []Mutation {
	v := r.analysis.visitor
	v.quiet = true
	return v.mutationsAt(loc)
}

// Stats summarizes the size of the results
type Stats struct {
	// Locations is the number of analyzed locations
	Locations int
	// PlaceEntries is the total number of places with dependencies, over all locations
	PlaceEntries int
	// LocationEntries is the total size of the dependency sets, over all locations
	LocationEntries int
}

func (s Stats) avg(n int) float64 {
	if s.Locations == 0 {
		return 0
	}
	return float64(n) / float64(s.Locations)
}

// Stats computes the size of the results
func (r *FlowResults) Stats() Stats {
	var s Stats
	for _, loc := range r.Body.AllLocations() {
		if !r.IsReachable(loc) {
			continue
		}
		state := r.StateAt(loc)
		s.Locations++
		for _, p := range state.Rows() {
			s.PlaceEntries++
			s.LocationEntries += state.Row(p).Len()
		}
	}
	return s
}
