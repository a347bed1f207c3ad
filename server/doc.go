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

// Package server exposes the answerer over HTTP.
//
// Routes:
//
//	POST /ask     {"query": "...", "n_chunks": 5, "where": {"section": "Essays"}}
//	GET  /health  chunk count of the index, 503 when it cannot be read
//	GET  /api     route listing
//
// Upstream model failures map to 401 (rejected API key), 429 (rate limited)
// and 502 (any other model error). A blank query is 422.
package server
