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

package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/awslabs/ar-go-flow/analysis/infoflow"
	"github.com/awslabs/ar-go-flow/internal/formatutil"
	"github.com/awslabs/ar-go-flow/internal/funcutil"
	"github.com/awslabs/ar-go-flow/internal/graphutil"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

// CyclesOutput is the result of the cycles command
type CyclesOutput struct {
	Cycles    [][]string `yaml:"cycles" json:"cycles" msgpack:"cycles"`
	Recursive []string   `yaml:"recursive" json:"recursive" msgpack:"recursive"`
	BottomUp  [][]string `yaml:"bottom-up" json:"bottom-up" msgpack:"bottom-up"`
}

func newCyclesCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "cycles",
		Short: "Print the elementary cycles of the call graph of the program",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cg := graphutil.NewCallGraph(s.prog)
			out := CyclesOutput{
				Cycles:    graphutil.Cycles(cg),
				Recursive: graphutil.Recursive(cg),
				BottomUp:  graphutil.BottomUp(cg),
			}
			return s.emit(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "%d cycles\n", len(out.Cycles))
				for _, c := range out.Cycles {
					fmt.Fprintf(w, "  %s\n", strings.Join(c, " -> "))
				}
				fmt.Fprintf(w, "recursive functions: %s\n", joinStrings(out.Recursive))
			})
		},
	}
}

// StatsOutput is the size of the results of the analysis of one function
type StatsOutput struct {
	Function        string `yaml:"function" json:"function" msgpack:"function"`
	Locations       int    `yaml:"locations" json:"locations" msgpack:"locations"`
	PlaceEntries    int    `yaml:"place-entries" json:"place-entries" msgpack:"place-entries"`
	LocationEntries int    `yaml:"location-entries" json:"location-entries" msgpack:"location-entries"`
}

func newStatsCmd(s *session) *cobra.Command {
	var jobs int
	var reachableFrom string
	cmd := &cobra.Command{
		Use:   "stats [function...]",
		Short: "Analyze functions and print the size of their results",
		Long: `Analyze functions in parallel and print the size of their results. Without arguments, the functions
of the program matching the targets of the config are analyzed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := s.targets(args)
			if err != nil {
				return err
			}
			if reachableFrom != "" {
				if _, err := s.function(reachableFrom); err != nil {
					return err
				}
				reachable := graphutil.NewCallGraph(s.prog).Reachable(reachableFrom)
				names = funcutil.Filter(names, func(n string) bool { return slices.Contains(reachable, n) })
			}
			out, err := funcutil.MapParallel(cmd.Context(), names,
				func(_ context.Context, name string) (StatsOutput, error) {
					results, err := infoflow.NewContext(s.logger, s.cfg, s.prog).Analyze(name)
					if err != nil {
						return StatsOutput{}, err
					}
					st := results.Stats()
					return StatsOutput{
						Function:        name,
						Locations:       st.Locations,
						PlaceEntries:    st.PlaceEntries,
						LocationEntries: st.LocationEntries,
					}, nil
				}, jobs)
			if err != nil {
				return err
			}
			return s.emit(cmd.OutOrStdout(), out, func(w io.Writer) {
				for _, st := range out {
					fmt.Fprintf(w, "%s: %d locations, %d place entries, %d location entries\n",
						formatutil.Bold(st.Function), st.Locations, st.PlaceEntries, st.LocationEntries)
				}
			})
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "maximum number of functions analyzed at the same time")
	cmd.Flags().StringVar(&reachableFrom, "reachable-from", "", "only analyze functions reachable from this one")
	return cmd
}
