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

import "regexp"

// FunctionIdentifier identifies functions by module and name. Each field is a regex if it compiles to one,
// otherwise a plain string. An empty field matches anything.
type FunctionIdentifier struct {
	Module string `yaml:"module"`
	Name   string `yaml:"name"`
	// This will not be part of the yaml config
	computedRegexs *functionIdentifierRegex
}

type functionIdentifierRegex struct {
	moduleRegex *regexp.Regexp
	nameRegex   *regexp.Regexp
}

// CompileRegexes compiles the strings in the identifier into regexes. It compiles all fields into regexes
// or none.
func CompileRegexes(fid FunctionIdentifier) FunctionIdentifier {
	moduleRegex, err := regexp.Compile("^(" + fid.Module + ")$")
	if err != nil {
		return fid
	}
	nameRegex, err := regexp.Compile("^(" + fid.Name + ")$")
	if err != nil {
		return fid
	}
	fid.computedRegexs = &functionIdentifierRegex{moduleRegex, nameRegex}
	return fid
}

// Matches returns true if the function name defined in module matches the identifier
func (fid FunctionIdentifier) Matches(module, name string) bool {
	if fid.computedRegexs != nil {
		return (fid.Module == "" || fid.computedRegexs.moduleRegex.MatchString(module)) &&
			(fid.Name == "" || fid.computedRegexs.nameRegex.MatchString(name))
	}
	return (fid.Module == "" || fid.Module == module) && (fid.Name == "" || fid.Name == name)
}

// MatchesAny returns true if some identifier in fids matches the function
func MatchesAny(fids []FunctionIdentifier, module, name string) bool {
	for _, fid := range fids {
		if fid.Matches(module, name) {
			return true
		}
	}
	return false
}
