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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/awslabs/ar-go-flow/analysis/ir"
	"github.com/awslabs/ar-go-flow/internal/formatutil"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// emit writes v in the format of the session. text prints v in the text format.
func (s *session) emit(w io.Writer, v any, text func(io.Writer)) error {
	switch s.format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "msgpack":
		b, err := msgpack.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding msgpack: %w", err)
		}
		_, err = w.Write(b)
		return err
	default:
		text(w)
		return nil
	}
}

// LocationOutput is a location of a function, with its label if it has one
type LocationOutput struct {
	Location string `yaml:"location" json:"location" msgpack:"location"`
	Label    string `yaml:"label,omitempty" json:"label,omitempty" msgpack:"label,omitempty"`
}

func (l LocationOutput) String() string {
	if l.Label == "" {
		return formatutil.Cyan(l.Location)
	}
	return formatutil.Cyan(l.Location) + " " + formatutil.Faint("("+l.Label+")")
}

func locationOutputs(body *ir.Body, locs []ir.Location) []LocationOutput {
	labels := make(map[ir.Location]string, len(body.Labels))
	for name, loc := range body.Labels {
		if prev, ok := labels[loc]; !ok || name < prev {
			labels[loc] = name
		}
	}
	res := make([]LocationOutput, len(locs))
	for i, loc := range locs {
		res[i] = LocationOutput{Location: loc.String(), Label: labels[loc]}
	}
	return res
}

func placeStrings(body *ir.Body, places []ir.Place) []string {
	res := make([]string, len(places))
	for i, p := range places {
		res[i] = body.PlaceString(p)
	}
	return res
}

// parseLocation parses a location given by its label, or as bbN[M]
func parseLocation(body *ir.Body, s string) (ir.Location, error) {
	if loc, ok := body.Location(s); ok {
		return loc, nil
	}
	var loc ir.Location
	var block int
	if _, err := fmt.Sscanf(s, "bb%d[%d]", &block, &loc.Statement); err != nil {
		return loc, fmt.Errorf("%s has no location %q", body.Name, s)
	}
	loc.Block = ir.BlockID(block)
	if block < 0 || block >= len(body.Blocks) || loc.Statement < 0 ||
		loc.Statement > len(body.Blocks[block].Statements) {
		return loc, fmt.Errorf("location %s is out of the bounds of %s", s, body.Name)
	}
	return loc, nil
}

// parseTarget parses a target written place@location
func parseTarget(body *ir.Body, s string) (ir.Place, ir.Location, error) {
	i := strings.LastIndex(s, "@")
	if i < 0 {
		return ir.Place{}, ir.Location{}, fmt.Errorf("target %q should be written place@location", s)
	}
	p, err := ir.ParsePlace(body, s[:i])
	if err != nil {
		return ir.Place{}, ir.Location{}, err
	}
	loc, err := parseLocation(body, s[i+1:])
	if err != nil {
		return ir.Place{}, ir.Location{}, err
	}
	return p, loc, nil
}

func joinStrings(ss []string) string {
	if len(ss) == 0 {
		return formatutil.Faint("none")
	}
	return strings.Join(ss, ", ")
}
