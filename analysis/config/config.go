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
	"fmt"
	"os"
	"path"

	"github.com/awslabs/ar-go-flow/internal/funcutil"
	"gopkg.in/yaml.v3"
)

// Config contains the options of the analyses and the functions they should target.
// To add elements to a config file, add fields to this struct.
// If some field is not defined in the config file, it will be empty/zero in the struct.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options `yaml:"options"`

	sourceFile string

	// Program is the path of the YAML program to analyze, relative to the config file
	Program string `yaml:"program"`

	// Targets lists the functions analyzed when no function is given on the command line
	Targets []FunctionIdentifier `yaml:"targets"`

	// NoRecurse lists the callees that are never analyzed by recursion, even when they could be. Calls to them
	// are handled by their signature only.
	NoRecurse []FunctionIdentifier `yaml:"no-recurse"`
}

// Options holds the options of the analyses
type Options struct {
	// ReportsDir is the directory where the reports will be stored. If the yaml config file this config struct has
	// been loaded does not specify a ReportsDir but sets ReportGraphs, then ReportsDir will be created
	// in the folder of the config file.
	ReportsDir string `yaml:"reports-dir"`

	// ReportGraphs specifies whether dependence graphs should be written to the reports directory
	ReportGraphs bool `yaml:"report-graphs"`

	// MaxDepth sets a limit for the number of nested callees analyzed by recursion.
	// If provided MaxDepth is <= 0, then the default is used.
	MaxDepth int `yaml:"max-depth"`

	// MaxPlaces bounds the place domain of one function, which is used to translate effects across calls.
	// Calls involving a function with more places are analyzed from their signatures.
	MaxPlaces int `yaml:"max-places"`

	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// ContextMode is either recurse (default) or sig-only
	ContextMode ContextMode `yaml:"context-mode"`

	// MutabilityMode is either distinguish-mut (default) or ignore-mut
	MutabilityMode MutabilityMode `yaml:"mutability-mode"`

	// PointerMode is either precise (default) or conservative
	PointerMode PointerMode `yaml:"pointer-mode"`
}

// NewDefault returns an empty default config.
func NewDefault() *Config {
	return &Config{
		sourceFile: "",
		Targets:    nil,
		NoRecurse:  nil,
		Options: Options{
			ReportsDir:     "",
			ReportGraphs:   false,
			MaxDepth:       DefaultMaxCallDepth,
			MaxPlaces:      DefaultMaxPlaces,
			LogLevel:       int(InfoLevel),
			ContextMode:    RecurseContext,
			MutabilityMode: DistinguishMut,
			PointerMode:    PrecisePointers,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return LoadFromBytes(filename, b)
}

// LoadFromBytes parses the content of the config file filename
func LoadFromBytes(filename string, b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}
	cfg.sourceFile = filename

	if cfg.ReportGraphs {
		if err := setReportsDir(cfg, filename); err != nil {
			return nil, err
		}
	}

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	// Set the MaxDepth default if it is <= 0
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxCallDepth
	}

	if cfg.MaxPlaces <= 0 {
		cfg.MaxPlaces = DefaultMaxPlaces
	}

	funcutil.MapInPlace(cfg.Targets, CompileRegexes)
	funcutil.MapInPlace(cfg.NoRecurse, CompileRegexes)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the ranges of the options
func (c *Config) Validate() error {
	if c.LogLevel < int(ErrLevel) || c.LogLevel > int(TraceLevel) {
		return fmt.Errorf("log-level must be between %d and %d, got %d", ErrLevel, TraceLevel, c.LogLevel)
	}
	if c.ContextMode < RecurseContext || c.ContextMode > SigOnlyContext {
		return fmt.Errorf("%w: context mode %d", ErrInvalidMode, c.ContextMode)
	}
	if c.MutabilityMode < DistinguishMut || c.MutabilityMode > IgnoreMut {
		return fmt.Errorf("%w: mutability mode %d", ErrInvalidMode, c.MutabilityMode)
	}
	if c.PointerMode < PrecisePointers || c.PointerMode > ConservativePointers {
		return fmt.Errorf("%w: pointer mode %d", ErrInvalidMode, c.PointerMode)
	}
	return nil
}

func setReportsDir(c *Config, filename string) error {
	if c.ReportsDir == "" {
		tmpdir, err := os.MkdirTemp(path.Dir(filename), "*-report")
		if err != nil {
			return fmt.Errorf("could not create temp dir for reports")
		}
		c.ReportsDir = tmpdir
	} else {
		err := os.Mkdir(c.ReportsDir, 0750)
		if err != nil {
			if !os.IsExist(err) {
				return fmt.Errorf("could not create directory %s", c.ReportsDir)
			}
		}
	}
	return nil
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	return path.Join(path.Dir(c.sourceFile), filename)
}

// EvalMode returns the modes of the analyses
func (c Config) EvalMode() EvalMode {
	return EvalMode{Context: c.ContextMode, Mutability: c.MutabilityMode, Pointer: c.PointerMode}
}

// IsTarget returns true if the function matches the targets of the config. An empty list of targets matches
// every function.
func (c Config) IsTarget(module, name string) bool {
	return len(c.Targets) == 0 || MatchesAny(c.Targets, module, name)
}

// CanRecurseInto returns true if the config does not prevent analyzing the function by recursion
func (c Config) CanRecurseInto(module, name string) bool {
	return !MatchesAny(c.NoRecurse, module, name)
}

// ExceedsMaxDepth returns true if depth exceeds the maximum recursion depth
func (c Config) ExceedsMaxDepth(depth int) bool {
	return c.MaxDepth > 0 && depth > c.MaxDepth
}
