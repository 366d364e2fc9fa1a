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

// Package pdg builds program dependence graphs whose nodes are the values of places at points of the execution.
//
// A point of the execution is a CallString: calls to functions of the program are inlined, and the nodes of a
// callee are distinguished by the call sites that lead to them. Edges are data dependencies, from the inputs of an
// instruction to the places it writes, or control dependencies, from the values a branch reads to the places
// written under it.
//
// Graphs can be queried for paths, printed in DOT, and exported in YAML or msgpack.
package pdg
