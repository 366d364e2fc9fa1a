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
	"os"
	"path/filepath"
	"strings"

	"github.com/awslabs/ar-go-flow/analysis/pdg"
	"github.com/awslabs/ar-go-flow/internal/graphutil"
	"github.com/spf13/cobra"
)

// CallTreeOutput is a call inlined in a dependence graph, with the calls inlined in its callee
type CallTreeOutput struct {
	Function string           `yaml:"function" json:"function" msgpack:"function"`
	At       string           `yaml:"at,omitempty" json:"at,omitempty" msgpack:"at,omitempty"`
	Calls    []CallTreeOutput `yaml:"calls,omitempty" json:"calls,omitempty" msgpack:"calls,omitempty"`
}

func callTreeOutput(t *graphutil.Tree[pdg.GlobalLocation], root bool) CallTreeOutput {
	out := CallTreeOutput{Function: t.Label.Function}
	if !root {
		out.At = t.Label.Location.String()
	}
	for _, c := range t.Children {
		out.Calls = append(out.Calls, callTreeOutput(c, false))
	}
	return out
}

func newPDGCmd(s *session) *cobra.Command {
	var tree bool
	cmd := &cobra.Command{
		Use:   "pdg <function> [--tree]",
		Short: "Build the program dependence graph of a function",
		Long: `Build the program dependence graph of a function, with the calls to the functions of the program
inlined. The text format is DOT. With --tree, only the tree of the inlined calls is printed.

If the config sets report-graphs, the DOT graph is also written to the reports directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b := pdg.NewBuilder(s.logger, s.cfg, s.prog)
			g, err := b.Build(args[0])
			if err != nil {
				return err
			}
			if s.cfg.ReportGraphs && s.cfg.ReportsDir != "" {
				if err := writeReport(s, g); err != nil {
					return err
				}
			}
			if tree {
				t := g.CallTree()
				return s.emit(cmd.OutOrStdout(), callTreeOutput(t, true), func(w io.Writer) {
					t.Walk(func(n *graphutil.Tree[pdg.GlobalLocation], depth int) {
						if depth == 0 {
							fmt.Fprintln(w, n.Label.Function)
							return
						}
						fmt.Fprintf(w, "%s%s at %s\n", strings.Repeat("  ", depth), n.Label.Function, n.Label.Location)
					})
				})
			}
			if s.format == "text" {
				dot, err := g.MarshalDOT()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", dot)
				return err
			}
			return s.emit(cmd.OutOrStdout(), g.Export(), nil)
		},
	}
	cmd.Flags().BoolVar(&tree, "tree", false, "print the tree of inlined calls only")
	return cmd
}

func writeReport(s *session, g *pdg.Graph) error {
	dot, err := g.MarshalDOT()
	if err != nil {
		return err
	}
	filename := filepath.Join(s.cfg.ReportsDir, g.Root+".dot")
	if err := os.WriteFile(filename, dot, 0600); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	s.logger.Infof("dependence graph of %s written to %s", g.Root, filename)
	return nil
}
