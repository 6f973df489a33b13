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


// Package ai provides the embedding layer for chronicle.
//
// The package defines the Embedder interface for text embedding backends and
// the Service type that wraps a backend with the behavior the archive and
// search layers rely on:
//
//   - Lazy once-only model initialization. The first Generate or
//     GenerateBatch call triggers the load; a load failure is cached and
//     reported as ErrEmbeddingUnavailable on every subsequent call until
//     Reset is invoked explicitly.
//   - Vector validation (dimension and finiteness checks).
//   - Cosine similarity with a zero-norm guard.
//   - Batch generation that maps blank inputs to nil slots instead of
//     aborting the batch.
//
// # Implementation Packages
//
// Two Embedder implementations ship with the module:
//
//   - ai/openai: production implementation for OpenAI-compatible APIs
//   - ai/mock: deterministic test double with injectable behavior
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithEmbeddingModel("embeddinggemma"))
//	svc, err := ai.NewService(cfg, openai.NewEmbedder)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vector, err := svc.Generate(ctx, "Ports reopened across the region")
//
// Service values are safe for concurrent use.
package ai
