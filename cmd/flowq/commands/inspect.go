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

	"github.com/awslabs/ar-go-flow/analysis/aliases"
	"github.com/awslabs/ar-go-flow/analysis/controldeps"
	"github.com/awslabs/ar-go-flow/analysis/ir"
	"github.com/awslabs/ar-go-flow/internal/formatutil"
	"github.com/spf13/cobra"
)

// AliasOutput lists the aliases of one place
type AliasOutput struct {
	Place   string   `yaml:"place" json:"place" msgpack:"place"`
	Aliases []string `yaml:"aliases" json:"aliases" msgpack:"aliases"`
}

// AliasesOutput is the result of the aliases command
type AliasesOutput struct {
	Function string        `yaml:"function" json:"function" msgpack:"function"`
	Places   []AliasOutput `yaml:"places" json:"places" msgpack:"places"`
}

func newAliasesCmd(s *session) *cobra.Command {
	var places []string
	cmd := &cobra.Command{
		Use:   "aliases <function> [--place place...]",
		Short: "Print the places that places of a function may refer to",
		Long: `Print the aliases of places of a function. Without --place, every place tracked by the analysis of
the function is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := s.function(args[0])
			if err != nil {
				return err
			}
			info := aliases.Build(s.logger, s.cfg, body)
			var queried []ir.Place
			for _, ps := range places {
				p, err := ir.ParsePlace(body, ps)
				if err != nil {
					return err
				}
				queried = append(queried, p)
			}
			if len(queried) == 0 {
				queried = info.PlaceDomain().Values()
			}
			out := AliasesOutput{Function: body.Name}
			for _, p := range queried {
				out.Places = append(out.Places, AliasOutput{
					Place:   body.PlaceString(p),
					Aliases: placeStrings(body, info.Aliases(p)),
				})
			}
			return s.emit(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "aliases in %s\n", formatutil.Bold(out.Function))
				for _, a := range out.Places {
					fmt.Fprintf(w, "  %s -> %s\n", a.Place, joinStrings(a.Aliases))
				}
			})
		},
	}
	cmd.Flags().StringArrayVarP(&places, "place", "p", nil, "place to print the aliases of, repeatable")
	return cmd
}

// ControlOutput lists the blocks one block is control-dependent on
type ControlOutput struct {
	Block         string   `yaml:"block" json:"block" msgpack:"block"`
	DependsOn     []string `yaml:"depends-on" json:"depends-on" msgpack:"depends-on"`
	PostDominator string   `yaml:"post-dominator,omitempty" json:"post-dominator,omitempty" msgpack:"post-dominator,omitempty"`
}

// CtrlOutput is the result of the ctrl command
type CtrlOutput struct {
	Function string          `yaml:"function" json:"function" msgpack:"function"`
	Blocks   []ControlOutput `yaml:"blocks" json:"blocks" msgpack:"blocks"`
}

func newCtrlCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "ctrl <function>",
		Short: "Print the control dependencies between the blocks of a function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := s.function(args[0])
			if err != nil {
				return err
			}
			cd := controldeps.Compute(body)
			out := CtrlOutput{Function: body.Name}
			for _, blk := range cd.Blocks() {
				c := ControlOutput{Block: blk.String()}
				for _, on := range cd.DependentOn(blk).Values() {
					c.DependsOn = append(c.DependsOn, on.String())
				}
				if d, ok := cd.ImmediatePostDominator(blk); ok {
					c.PostDominator = d.String()
				}
				out.Blocks = append(out.Blocks, c)
			}
			return s.emit(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "control dependencies in %s\n", formatutil.Bold(out.Function))
				for _, c := range out.Blocks {
					fmt.Fprintf(w, "  %s -> %s\n", formatutil.Cyan(c.Block), joinStrings(c.DependsOn))
				}
			})
		},
	}
}
