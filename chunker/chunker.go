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

// Package chunker splits article bodies into overlapping fixed-size windows.
//
// Windows are measured in runes. Window k covers [k*(size-overlap), k*(size-overlap)+size)
// clipped to the body length, and the last window is the first one that reaches the end of
// the body. Consecutive windows share exactly overlap runes, so the original body can always
// be rebuilt with Reconstruct.
package chunker

import (
	"fmt"
	"strings"

	"github.com/poiesic/gleaner/core"
)

const (
	DefaultSize    = 2400
	DefaultOverlap = 400
)

// Chunker is immutable and safe for concurrent use.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidOverlap, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits the article body. Every chunk carries the article's canonical URL and
// metadata, and its ID is derived from (canonical URL, seq) only.
func (c *Chunker) Chunk(article *core.Article) []core.Chunk {
	if article == nil {
		return nil
	}
	runes := []rune(article.Body)
	spans := c.spans(len(runes))

	chunks := make([]core.Chunk, 0, len(spans))
	for seq, span := range spans {
		chunks = append(chunks, core.Chunk{
			ID:        core.ChunkID(article.CanonicalURL, seq),
			SourceURL: article.CanonicalURL,
			Seq:       seq,
			Start:     span[0],
			End:       span[1],
			Text:      string(runes[span[0]:span[1]]),
			Title:     article.Title,
			Author:    article.Author,
			Section:   article.Section,
			Published: article.Published,
		})
	}
	return chunks
}

// spans returns the [start, end) rune offsets of every window over a body of n runes.
func (c *Chunker) spans(n int) [][2]int {
	if n == 0 {
		return nil
	}
	step := c.size - c.overlap
	var out [][2]int
	for start := 0; ; start += step {
		end := min(start+c.size, n)
		out = append(out, [2]int{start, end})
		if end == n {
			return out
		}
	}
}

// Reconstruct rebuilds a body from its chunks in sequence order. The first chunk is taken
// whole; each later chunk contributes its text after the first overlap runes.
func Reconstruct(chunks []core.Chunk, overlap int) string {
	var b strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			b.WriteString(ch.Text)
			continue
		}
		runes := []rune(ch.Text)
		if overlap < len(runes) {
			b.WriteString(string(runes[overlap:]))
		}
	}
	return b.String()
}
