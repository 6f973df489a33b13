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


// Package archive implements the archival pipeline: segmenting content
// bundles into chunks, embedding them, and persisting document plus chunk
// rows behind an idempotent identity key.
//
// Archivals of the same identity key are serialized with a per-key lock,
// since re-archiving replaces the document's chunk set with a
// delete-then-insert sequence rather than a single transaction. Concurrent
// archivals of different keys run in parallel, and embedding work fans out
// over a bounded ants worker pool.
//
// Archival is best-effort: embedding failures degrade a document to fewer
// (possibly zero) chunks rather than failing the call, and a partial
// failure leaves already-written rows in place.
package archive
