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

package answer

import (
	"fmt"
	"strings"

	"github.com/poiesic/gleaner/core"
)

const snippetRunes = 300

// snippet shortens text to at most 300 runes, marking the cut with "...".
func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetRunes {
		return text
	}
	return string(runes[:snippetRunes]) + "..."
}

// buildContext formats hits as numbered excerpts, one paragraph each.
func buildContext(hits []core.SearchHit) string {
	parts := make([]string, len(hits))
	for i, hit := range hits {
		parts[i] = fmt.Sprintf("[%d] From %q by %s:\n%s", i+1, hit.Chunk.Title, hit.Chunk.Author, hit.Chunk.Text)
	}
	return strings.Join(parts, "\n\n")
}

func buildPrompt(publication, query string, hits []core.SearchHit) string {
	return fmt.Sprintf("Use the following excerpts from %s to answer the question.\n\nExcerpts:\n%s\n\nQuestion: %s",
		publication, buildContext(hits), query)
}

func systemPrompt(publication string) string {
	return "You answer questions based only on the provided excerpts from " + publication +
		". If the excerpts do not contain enough information, say so. " +
		"Keep answers concise and cite the articles (by title or author) when relevant."
}
