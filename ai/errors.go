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


package ai

import "errors"

var (
	// ErrEmbeddingUnavailable indicates the embedding model failed to load.
	// Once it occurs, every call returns it without retrying the load until
	// Reset is called.
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")

	// ErrEmptyInput indicates blank text was passed where content is required.
	ErrEmptyInput = errors.New("embedding input is empty")

	// ErrInvalidVector indicates an embedding of the wrong dimension or
	// containing non-finite values.
	ErrInvalidVector = errors.New("invalid embedding vector")

	// ErrConfigRequired is returned when a Config is not provided.
	ErrConfigRequired = errors.New("ai config required")

	// ErrFactoryRequired is returned when an embedder factory is not provided.
	ErrFactoryRequired = errors.New("embedder factory required")
)
