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

// Package ai provides abstractions for the AI services used by gleaner.
//
// Two capabilities are needed: turning chunk text into vectors at ingest
// time, and composing an answer from retrieved excerpts at query time.
//
//   - Embedder: Generates vector embeddings from text
//   - ChatModel: Completes a prompt under system instructions
//   - AIProvider: Aggregates both for convenient initialization
//
// # Error Kinds
//
// Implementations wrap failures in ErrRateLimited, ErrTransient or ErrFatal.
// KindOf maps any error to a retry.Kind, which the retry package uses to choose
// between waiting out a quota window, backing off, or giving up.
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// interface types. Mock constructors return concrete types so tests can
// inject behavior and inspect call counts.
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithAPIKey(key)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vectors, err := provider.Embedder().EmbedTexts(ctx, texts)
//	reply, err := provider.ChatModel().Complete(ctx, system, prompt)
package ai
