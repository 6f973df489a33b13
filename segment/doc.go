// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package segment splits normalized text into overlapping, ordered chunks.
//
// Splitting is sentence-aware: text is divided into sentence-terminator
// delimited units which are packed greedily into chunks of a configured
// maximum size, with a configurable character overlap carried between
// consecutive chunks. Emitted pieces record their offsets into the
// normalized text, so concatenating them with overlaps stripped
// reconstructs the normalized input exactly.
package segment
