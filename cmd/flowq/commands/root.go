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

// Package commands implements the subcommands of flowq.
package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/awslabs/ar-go-flow/analysis/config"
	"github.com/awslabs/ar-go-flow/analysis/ir"
	"github.com/awslabs/ar-go-flow/internal/formatutil"
	"github.com/awslabs/ar-go-flow/internal/graphutil"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

// Version is the version of flowq
const Version = "0.1.0"

var formats = []string{"text", "yaml", "json", "msgpack"}

// session holds the global flags and the state loaded before any subcommand runs
type session struct {
	configPath     string
	programPath    string
	logLevel       int
	format         string
	noColor        bool
	contextMode    string
	mutabilityMode string
	pointerMode    string

	cfg    *config.Config
	logger *config.LogGroup
	prog   *ir.Program
}

// NewRootCmd returns the flowq command with all its subcommands
func NewRootCmd() *cobra.Command {
	s := &session{}
	root := &cobra.Command{
		Use:   "flowq",
		Short: "flowq - information flow queries on programs",
		Long: `flowq loads a program and answers information flow queries on its functions.

Commands:
  deps        Locations a place depends on, or influences
  mutations   Locations where a place is modified
  aliases     Places the pointers of a function may refer to
  ctrl        Control dependencies between blocks
  pdg         Program dependence graph of a function
  cycles      Recursive cycles of the call graph
  stats       Size of the analysis results

The program is read from the "program" entry of the config file, or from --program.
Locations are given by label, or as bbN[M] for statement M of block N.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.load(cmd.ErrOrStderr())
		},
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&s.configPath, "config", "c", "", "config file path")
	flags.StringVar(&s.programPath, "program", "", "program file path, overriding the config")
	flags.IntVar(&s.logLevel, "log-level", 0, "log level from 1 (errors) to 5 (trace), overriding the config")
	flags.StringVarP(&s.format, "format", "f", "text", "output format: text, yaml, json or msgpack")
	flags.BoolVar(&s.noColor, "no-color", false, "disable colors in text output")
	flags.StringVar(&s.contextMode, "context-mode", "", "recurse or sig-only, overriding the config")
	flags.StringVar(&s.mutabilityMode, "mutability-mode", "", "distinguish-mut or ignore-mut, overriding the config")
	flags.StringVar(&s.pointerMode, "pointer-mode", "", "precise or conservative, overriding the config")

	root.AddCommand(
		newDepsCmd(s),
		newMutationsCmd(s),
		newAliasesCmd(s),
		newCtrlCmd(s),
		newPDGCmd(s),
		newCyclesCmd(s),
		newStatsCmd(s),
	)
	return root
}

// load reads the config and the program and applies the global flags
func (s *session) load(logs io.Writer) error {
	if !slices.Contains(formats, s.format) {
		return fmt.Errorf("unknown format %q, expected one of %v", s.format, formats)
	}
	if s.noColor || s.format != "text" {
		formatutil.Enabled = false
	}

	cfg := config.NewDefault()
	if s.configPath != "" {
		loaded, err := config.Load(s.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := s.applyOverrides(cfg); err != nil {
		return err
	}
	s.cfg = cfg
	s.logger = config.NewLogGroup(cfg)
	s.logger.SetAllOutput(logs)

	programPath := s.programPath
	if programPath == "" && cfg.Program != "" {
		programPath = cfg.RelPath(cfg.Program)
	}
	if programPath == "" {
		return errors.New("no program to analyze: set program in the config file or use --program")
	}
	prog, err := ir.LoadProgramFile(programPath)
	if err != nil {
		return err
	}
	s.prog = prog
	s.logger.Debugf("loaded %d functions from %s", prog.Len(), programPath)
	return nil
}

func (s *session) applyOverrides(cfg *config.Config) error {
	if s.logLevel != 0 {
		cfg.LogLevel = s.logLevel
	}
	if s.contextMode != "" {
		m, err := config.ParseContextMode(s.contextMode)
		if err != nil {
			return err
		}
		cfg.ContextMode = m
	}
	if s.mutabilityMode != "" {
		m, err := config.ParseMutabilityMode(s.mutabilityMode)
		if err != nil {
			return err
		}
		cfg.MutabilityMode = m
	}
	if s.pointerMode != "" {
		m, err := config.ParsePointerMode(s.pointerMode)
		if err != nil {
			return err
		}
		cfg.PointerMode = m
	}
	return cfg.Validate()
}

// function returns the body of the function name
func (s *session) function(name string) (*ir.Body, error) {
	return s.prog.MustFunction(name)
}

// targets returns the functions named in args or, if there are none, the functions of the program matching the
// targets of the config, callees first.
func (s *session) targets(args []string) ([]string, error) {
	if len(args) > 0 {
		for _, name := range args {
			if _, err := s.function(name); err != nil {
				return nil, err
			}
		}
		return args, nil
	}
	var names []string
	for _, scc := range graphutil.BottomUp(graphutil.NewCallGraph(s.prog)) {
		for _, name := range scc {
			body, _ := s.prog.Function(name)
			if s.cfg.IsTarget(body.Module, name) {
				names = append(names, name)
			}
		}
	}
	return names, nil
}
