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


package archive

import "errors"

var (
	// ErrArchiveFailed indicates an archival aborted partway. Rows already
	// written remain; there is no automatic rollback.
	ErrArchiveFailed = errors.New("archive failed")

	// ErrRepositoryRequired indicates the archiver was created without a repository.
	ErrRepositoryRequired = errors.New("repository is required")

	// ErrEmbeddingServiceRequired indicates the archiver was created without an embedding service.
	ErrEmbeddingServiceRequired = errors.New("embedding service is required")

	// ErrNoArticles indicates an article batch with nothing in it.
	ErrNoArticles = errors.New("no articles to archive")
)
