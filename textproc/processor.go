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
	"html"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	sentencePattern   = regexp.MustCompile(`[.!?]+`)
	urlPattern        = regexp.MustCompile(`https?://[^\s<>"']+`)
	emailPattern      = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

// Stats summarizes the measurable properties of a piece of text.
type Stats struct {
	Characters int
	Words      int
	Sentences  int
	URLs       []string
	Emails     []string
}

// Processor cleans and analyzes raw text content.
//
// The zero value is not usable. Construct with New.
type Processor struct {
	normalizeWhitespace bool
	stripHTML           bool
	decodeEntities      bool
}

// Option configures a Processor.
type Option func(*Processor)

// WithoutWhitespaceNormalization preserves the original whitespace runs.
func WithoutWhitespaceNormalization() Option {
	return func(p *Processor) {
		p.normalizeWhitespace = false
	}
}

// WithoutHTMLStripping leaves HTML tags in place.
func WithoutHTMLStripping() Option {
	return func(p *Processor) {
		p.stripHTML = false
	}
}

// WithoutEntityDecoding leaves HTML entities encoded.
func WithoutEntityDecoding() Option {
	return func(p *Processor) {
		p.decodeEntities = false
	}
}

// New creates a Processor. By default it strips HTML tags, decodes
// HTML entities, and collapses whitespace runs.
func New(opts ...Option) *Processor {
	p := &Processor{
		normalizeWhitespace: true,
		stripHTML:           true,
		decodeEntities:      true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Clean normalizes raw text for embedding.
//
// Steps, in order: percent-decoding, HTML entity decoding, HTML tag
// removal, Unicode NFKD normalization, whitespace collapsing, and a
// final trim. Steps disabled by options are skipped.
func (p *Processor) Clean(text string) string {
	if text == "" {
		return ""
	}

	if decoded, err := url.QueryUnescape(text); err == nil {
		text = decoded
	}

	if p.decodeEntities {
		text = html.UnescapeString(text)
	}

	if p.stripHTML {
		text = htmlTagPattern.ReplaceAllString(text, " ")
	}

	text = norm.NFKD.String(text)

	if p.normalizeWhitespace {
		text = whitespacePattern.ReplaceAllString(text, " ")
	}

	return strings.TrimSpace(text)
}

// Sentences splits text on terminal punctuation. Empty fragments are
// dropped.
func (p *Processor) Sentences(text string) []string {
	parts := sentencePattern.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Analyze computes basic statistics and extracts URLs and email
// addresses from text.
func (p *Processor) Analyze(text string) Stats {
	return Stats{
		Characters: len([]rune(text)),
		Words:      len(strings.Fields(text)),
		Sentences:  len(p.Sentences(text)),
		URLs:       urlPattern.FindAllString(text, -1),
		Emails:     emailPattern.FindAllString(text, -1),
	}
}

// Truncate shortens text to at most maxLength runes, appending "..."
// when truncation happens. When preserveWords is set the cut moves back
// to the last word boundary unless that would drop more than 20% of the
// window.
func (p *Processor) Truncate(text string, maxLength int, preserveWords bool) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}

	if preserveWords {
		window := string(runes[:maxLength])
		if cut := strings.LastIndex(window, " "); cut > maxLength*4/5 {
			return window[:cut] + "..."
		}
	}

	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}
