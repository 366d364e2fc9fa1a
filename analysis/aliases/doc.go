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

// Package aliases computes which places the pointers of a body may refer to.
//
// The analysis is driven by the region constraints of the body. Every borrow creates a loan in the region of the
// resulting reference, and loans flow along the outlives constraints: a constraint from region a to region b
// makes every loan of a a loan of b. The loans of the region of a pointer are the places the pointer may refer to.
//
// A PlaceInfo built from a body answers the queries of the flow analysis: the aliases of a place, the places
// that overlap with it (conflicts) and the places reachable through its pointers.
package aliases
