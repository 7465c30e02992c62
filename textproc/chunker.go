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

package textproc

import (
	"strings"
	"time"

	"github.com/poiesic/ragbase/core"
)

const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 1000

	// DefaultOverlap is how many runes consecutive chunks share.
	DefaultOverlap = 200

	// Rough chars-per-token ratio used to estimate token counts
	// without a tokenizer.
	charsPerToken = 4
)

// Chunker splits cleaned text into overlapping chunks.
type Chunker struct {
	chunkSize int
	overlap   int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker) error

// WithChunkSize sets the maximum chunk length in runes.
func WithChunkSize(size int) ChunkerOption {
	return func(c *Chunker) error {
		if size <= 0 {
			return ErrInvalidChunkSize
		}
		c.chunkSize = size
		return nil
	}
}

// WithOverlap sets how many runes consecutive chunks share.
func WithOverlap(overlap int) ChunkerOption {
	return func(c *Chunker) error {
		if overlap < 0 {
			return ErrInvalidOverlap
		}
		c.overlap = overlap
		return nil
	}
}

// NewChunker creates a Chunker with the given options.
func NewChunker(opts ...ChunkerOption) (*Chunker, error) {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.overlap >= c.chunkSize {
		return nil, ErrInvalidOverlap
	}
	return c, nil
}

// Chunk splits text into overlapping chunks belonging to the given
// document. Offsets are rune positions into the input text. Chunk
// boundaries prefer sentence endings, then word boundaries, within the
// final quarter of the window. Chunks are linked via Prev/NextChunkId.
func (c *Chunker) Chunk(documentID core.ID, text string) ([]core.TextChunk, error) {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil, ErrEmptyText
	}

	now := time.Now().UTC()
	var chunks []core.TextChunk

	start := 0
	for start < len(runes) {
		end := start + c.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.breakPoint(runes, start, end)
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			chunks = append(chunks, core.TextChunk{
				Id:         core.IDFromContent(content),
				DocumentId: documentID,
				Content:    content,
				Index:      len(chunks),
				StartChar:  start,
				EndChar:    end,
				TokenCount: estimateTokens(content),
				CreatedAt:  now,
			})
		}

		if end == len(runes) {
			break
		}
		next := end - c.overlap
		if next <= start {
			// A short cut plus a large overlap must not stall the window.
			next = end
		}
		start = next
	}

	for i := range chunks {
		if i > 0 {
			chunks[i].PrevChunkId = chunks[i-1].Id
		}
		if i < len(chunks)-1 {
			chunks[i].NextChunkId = chunks[i+1].Id
		}
	}

	return chunks, nil
}

// breakPoint picks a cut position at or before end. Sentence endings
// win over spaces; both are only considered in the last quarter of the
// window so chunks stay close to the target size.
func (c *Chunker) breakPoint(runes []rune, start, end int) int {
	floor := end - c.chunkSize/4
	if floor < start+1 {
		floor = start + 1
	}

	lastSpace := -1
	for i := end - 1; i >= floor; i-- {
		switch runes[i] {
		case '.', '!', '?':
			return i + 1
		case ' ', '\t', '\n':
			if lastSpace < 0 {
				lastSpace = i
			}
		}
	}
	if lastSpace > 0 {
		return lastSpace
	}
	return end
}

func estimateTokens(content string) int {
	n := (len(content) + charsPerToken - 1) / charsPerToken
	if n == 0 {
		n = 1
	}
	return n
}
