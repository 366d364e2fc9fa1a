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

// Package ir defines the intermediate representation consumed by the analyses: function bodies made of basic
// blocks over typed locals, access paths (places) into those locals, and the lifetime facts (regions and
// outlives constraints) computed by the borrow checker.
//
// Bodies are built with a BodyBuilder or loaded from a YAML description with LoadProgram. Once built, a body is
// read-only and can be shared by concurrent analyses.
package ir
