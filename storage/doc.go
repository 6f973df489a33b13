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


// Package storage provides the storage abstraction layer for chronicle.
//
// This package defines the repository interface that decouples storage
// implementation from archival and search logic, so different backends
// (BadgerDB, in-memory, etc.) can be used interchangeably.
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.ArchiveRepository interface to
// enforce abstraction:
//
//	repo, err := badger.NewRepository(path)  // returns storage.ArchiveRepository
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Architecture
//
// The storage layer follows the Repository pattern. ArchiveRepository
// combines document/chunk persistence, filtered vector search, retention
// maintenance and transaction support.
//
// # Consistency
//
// Chunk replacement (delete old generation, insert new) is a compensating
// action rather than a cross-call transaction. Readers running concurrently
// with a re-archival may observe a document with zero or a partial chunk
// set; they must treat that as eventual consistency, not corruption.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support concurrent
// access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and timeout
// support. Pass context.Background() for operations without specific timeout
// requirements.
package storage
