// Package textproc cleans, analyzes, and chunks raw text pulled from
// crawled documents so it can be embedded and retrieved.
//
// Processor handles normalization (HTML stripping, entity decoding,
// Unicode and whitespace normalization) and lightweight analysis.
// Chunker splits cleaned text into overlapping chunks with stable
// character offsets and prev/next links.
package textproc
