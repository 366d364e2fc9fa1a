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

/*
Package config provides a simple way to manage configuration files.

Use [Load](filename) to load a configuration from a specific filename.

A config file should be in yaml format. The top-level fields can be any of the fields defined in the Config
struct type. The other fields are defined by the types of the fields of [Config] and nested struct types.
For example, a valid config file is as follows:

	options:
	  log-level: 4
	  max-depth: 3
	  context-mode: recurse
	  pointer-mode: conservative
	program: program.yaml
	targets:
	  - module: main
	    name: "handle.*"
	no-recurse:
	  - name: log

# Identifying functions

The config uses [FunctionIdentifier] to identify functions by module and name. The strings are seen as regexes
if they can be compiled to regexes, otherwise they are strings.

# Modes

The [EvalMode] groups the modes that trade precision for soundness: the [ContextMode] decides whether callees are
analyzed, the [MutabilityMode] whether shared references can be written through, and the [PointerMode] whether
pointers to the same type are assumed to alias.
*/
package config
