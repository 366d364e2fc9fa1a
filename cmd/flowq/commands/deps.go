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
	"fmt"
	"io"

	"github.com/awslabs/ar-go-flow/analysis/infoflow"
	"github.com/awslabs/ar-go-flow/analysis/ir"
	"github.com/awslabs/ar-go-flow/internal/formatutil"
	"github.com/spf13/cobra"
)

// DepsOutput is the result of the deps command
type DepsOutput struct {
	Function  string           `yaml:"function" json:"function" msgpack:"function"`
	Targets   []string         `yaml:"targets" json:"targets" msgpack:"targets"`
	Direction string           `yaml:"direction" json:"direction" msgpack:"direction"`
	Locations []LocationOutput `yaml:"locations" json:"locations" msgpack:"locations"`
	Places    []string         `yaml:"places" json:"places" msgpack:"places"`
}

func newDepsCmd(s *session) *cobra.Command {
	var targets []string
	var direction string
	cmd := &cobra.Command{
		Use:   "deps <function> --target place@location... [--direction backward|forward|both]",
		Short: "Compute the locations a group of targets depends on, or influences",
		Long: `Compute the dependencies of a group of targets, each written place@location.

backward: the locations that may influence the value of the targets.
forward:  the locations whose values may be influenced by the targets.
both:     the union of backward and forward.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := infoflow.ParseDirection(direction)
			if err != nil {
				return err
			}
			body, err := s.function(args[0])
			if err != nil {
				return err
			}
			group := make([]infoflow.Target, 0, len(targets))
			for _, t := range targets {
				p, loc, err := parseTarget(body, t)
				if err != nil {
					return err
				}
				group = append(group, infoflow.Target{Place: p, Location: loc})
			}
			results, err := infoflow.NewContext(s.logger, s.cfg, s.prog).Analyze(body.Name)
			if err != nil {
				return err
			}
			deps := infoflow.ComputeDependencies(results, [][]infoflow.Target{group}, dir)[0]
			out := DepsOutput{
				Function:  body.Name,
				Targets:   targets,
				Direction: dir.String(),
				Locations: locationOutputs(body, deps.Locations),
				Places:    placeStrings(body, deps.Places),
			}
			return s.emit(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "%s dependencies of %s in %s\n", out.Direction, joinStrings(targets),
					formatutil.Bold(out.Function))
				for _, l := range out.Locations {
					fmt.Fprintf(w, "  %s\n", l)
				}
				fmt.Fprintf(w, "places: %s\n", joinStrings(out.Places))
			})
		},
	}
	cmd.Flags().StringArrayVarP(&targets, "target", "t", nil, "target written place@location, repeatable")
	cmd.Flags().StringVarP(&direction, "direction", "d", infoflow.Backward.String(),
		"backward, forward or both")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

// MutationsOutput is the result of the mutations command
type MutationsOutput struct {
	Function  string           `yaml:"function" json:"function" msgpack:"function"`
	Place     string           `yaml:"place" json:"place" msgpack:"place"`
	Locations []LocationOutput `yaml:"locations" json:"locations" msgpack:"locations"`
}

func newMutationsCmd(s *session) *cobra.Command {
	var place string
	cmd := &cobra.Command{
		Use:   "mutations <function> --place place",
		Short: "List the locations where a place, or a place overlapping it, may be modified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := s.function(args[0])
			if err != nil {
				return err
			}
			p, err := ir.ParsePlace(body, place)
			if err != nil {
				return err
			}
			results, err := infoflow.NewContext(s.logger, s.cfg, s.prog).Analyze(body.Name)
			if err != nil {
				return err
			}
			out := MutationsOutput{
				Function:  body.Name,
				Place:     body.PlaceString(p),
				Locations: locationOutputs(body, infoflow.FindMutations(results, p)),
			}
			return s.emit(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "mutations of %s in %s\n", out.Place, formatutil.Bold(out.Function))
				for _, l := range out.Locations {
					fmt.Fprintf(w, "  %s\n", l)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&place, "place", "p", "", "the mutated place")
	_ = cmd.MarkFlagRequired("place")
	return cmd
}
