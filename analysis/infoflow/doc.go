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

// Package infoflow computes, at every location of a body, the locations and arguments the value of each place
// may depend on.
//
// The analysis is a forward dataflow analysis over the FlowDomain. At each location, the places written by the
// instruction receive the dependencies of the places it reads, plus the dependencies of the branches the location
// is control dependent on. Writes through pointers are applied to every alias of the pointer; a write to a place
// that has a single alias overwrites its previous dependencies.
//
// Calls to functions of the program are analyzed recursively when the configuration allows it, and the effects of
// the callee on its arguments are translated back into the caller. Other calls are modeled from their signature.
//
// The dependencies of a set of targets are computed by ComputeDependencies, in the Backward direction (what the
// targets depend on), the Forward direction (what depends on the targets), or both.
package infoflow
