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

// Package indexed maps values to dense indices and provides bitset-backed sets and sparse matrices over those
// indices.
//
// A [Domain] is built once by interning values, and becomes immutable as soon as a [Set] or [Matrix] refers
// to it. Resolving a value or index that is not in a domain is an internal error and panics. All the other
// operations are total: an absent matrix row is an empty set.
package indexed
