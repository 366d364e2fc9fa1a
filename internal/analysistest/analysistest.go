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

// Package analysistest contains helpers shared by the tests of the analyses: loading programs and configurations
// from test data, and resolving the labels and places written in the test programs.
package analysistest

import (
	"errors"
	"io/fs"
	"path"
	"sort"
	"testing"

	"github.com/awslabs/ar-go-flow/analysis/config"
	"github.com/awslabs/ar-go-flow/analysis/ir"
)

// LoadTest loads the program in the directory dir of fsys, looking for a program.yaml and an optional
// config.yaml. When there is no config.yaml, the default configuration is returned.
func LoadTest(t *testing.T, fsys fs.FS, dir string) (*ir.Program, *config.Config) {
	t.Helper()
	b, err := fs.ReadFile(fsys, path.Join(dir, "program.yaml"))
	if err != nil {
		t.Fatalf("error reading program of %s: %v", dir, err)
	}
	prog, err := ir.LoadProgram(b)
	if err != nil {
		t.Fatalf("error loading program of %s: %v", dir, err)
	}
	cfg := config.NewDefault()
	configFile := path.Join(dir, "config.yaml")
	cb, err := fs.ReadFile(fsys, configFile)
	switch {
	case err == nil:
		cfg, err = config.LoadFromBytes(configFile, cb)
		if err != nil {
			t.Fatalf("error loading config of %s: %v", dir, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		t.Fatalf("error reading config of %s: %v", dir, err)
	}
	return prog, cfg
}

// LoadProgram loads a single program file of fsys
func LoadProgram(t *testing.T, fsys fs.FS, filename string) *ir.Program {
	t.Helper()
	b, err := fs.ReadFile(fsys, filename)
	if err != nil {
		t.Fatalf("error reading %s: %v", filename, err)
	}
	prog, err := ir.LoadProgram(b)
	if err != nil {
		t.Fatalf("error loading %s: %v", filename, err)
	}
	return prog
}

// Function returns the body of the function name, failing the test if there is none
func Function(t *testing.T, prog *ir.Program, name string) *ir.Body {
	t.Helper()
	b, err := prog.MustFunction(name)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return b
}

// Location returns the location labelled label in body, failing the test if there is none
func Location(t *testing.T, body *ir.Body, label string) ir.Location {
	t.Helper()
	loc, ok := body.Location(label)
	if !ok {
		t.Fatalf("no location labelled %q in %s", label, body.Name)
	}
	return loc
}

// Place parses a place of body, failing the test if it is malformed
func Place(t *testing.T, body *ir.Body, s string) ir.Place {
	t.Helper()
	p, err := ir.ParsePlace(body, s)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return p
}

// Places parses places of body
func Places(t *testing.T, body *ir.Body, ss ...string) []ir.Place {
	t.Helper()
	places := make([]ir.Place, len(ss))
	for i, s := range ss {
		places[i] = Place(t, body, s)
	}
	return places
}

// Labels returns the labels of the locations in locs, sorted. Locations without a label are skipped.
func Labels(body *ir.Body, locs []ir.Location) []string {
	names := map[ir.Location]string{}
	for name, loc := range body.Labels {
		names[loc] = name
	}
	var labels []string
	for _, loc := range locs {
		if name, ok := names[loc]; ok {
			labels = append(labels, name)
		}
	}
	sort.Strings(labels)
	return labels
}

// PlaceStrings prints places with the names of the locals of body, sorted
func PlaceStrings(body *ir.Body, places []ir.Place) []string {
	res := make([]string, len(places))
	for i, p := range places {
		res[i] = body.PlaceString(p)
	}
	sort.Strings(res)
	return res
}
