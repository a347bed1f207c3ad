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

// Package answer retrieves indexed chunks for a question and asks a chat model to
// answer from them.
//
// The Retriever embeds the question and queries the vector index. The Answerer
// formats the retrieved chunks as numbered excerpts and sends them to the chat
// model together with a system prompt that restricts the model to the excerpts.
package answer
