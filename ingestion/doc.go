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

// Package ingestion runs the article ingest pipeline.
//
// A run resolves sitemaps into article URLs, skips URLs the ledger already holds,
// fetches the rest with a bounded worker pool and then, one article at a time:
//   - parses the page into an article (non-articles are skipped)
//   - splits the body into overlapping chunks
//   - embeds the chunks in batches
//   - upserts the chunks and appends the article to the ledger
//
// Per-article failures are recorded in the run Summary and never stop the run.
// Cancelling the context stops new fetches; an article already being written is
// finished, and the ledger is flushed before Run returns.
package ingestion
