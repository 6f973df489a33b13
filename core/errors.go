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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidBundle indicates a Bundle failed validation.
	ErrInvalidBundle = errors.New("invalid bundle")

	// ErrInvalidDocType indicates an invalid DocType value.
	ErrInvalidDocType = errors.New("invalid document type")

	// ErrEmptyTitle indicates the Title field is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrEmptyContent indicates the content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidDocDate indicates a document date is missing.
	ErrInvalidDocDate = errors.New("document date must be set")

	// ErrInvalidChunkNo indicates a chunk number outside 1..N.
	ErrInvalidChunkNo = errors.New("chunk number must be positive")
)
