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


// Package search provides filtered semantic retrieval over the archive:
// similarity-ranked chunk search, trend aggregation over recent chunks, and
// related-content lookups through shared tags.
//
// Every entry point fails closed. Search results are advisory, so an
// embedding or storage failure produces an empty result set and a log line
// rather than an error the caller must handle.
package search
