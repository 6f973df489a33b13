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

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Title must not be empty
//   - DocType must be one of the defined variants
//   - DocDate must be set
//
// NOT validated (populated by the archiver):
//   - Tokens (advisory, may be zero)
//   - Metadata (optional)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyTitle)
	}

	if err := ValidateDocType(doc.DocType); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if doc.DocDate.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidDocDate)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - ChunkNo must be positive
//   - DocumentId must be set
//
// NOT validated here:
//   - Embedding (dimension and finiteness are checked by the embedding service)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.ChunkNo < 1 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrInvalidChunkNo)
	}

	if chunk.DocumentId == 0 {
		return fmt.Errorf("%w: document id must be set", ErrInvalidChunk)
	}

	return nil
}

// ValidateBundle validates an archival Bundle.
//
// Validation rules:
//   - Title must not be empty
//   - At least one section must carry non-blank text
func ValidateBundle(bundle *Bundle) error {
	if bundle == nil {
		return fmt.Errorf("%w: bundle is nil", ErrInvalidBundle)
	}

	if bundle.Title == "" {
		return fmt.Errorf("%w: %w", ErrInvalidBundle, ErrEmptyTitle)
	}

	for _, section := range bundle.Sections {
		if section.Text != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: %w", ErrInvalidBundle, ErrEmptyContent)
}

// ValidateDocType validates that a DocType has a defined value.
func ValidateDocType(dt DocType) error {
	if dt != DocTypeDailySummary && dt != DocTypeArticle && dt != DocTypeFullCorpus {
		return fmt.Errorf("%w: value %d", ErrInvalidDocType, dt)
	}
	return nil
}
