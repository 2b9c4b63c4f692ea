// Package chunker splits raw document text into overlapping,
// sentence-aligned chunks sized for embedding and retrieval.
package chunker

import (
	"strings"

	"github.com/seanblong/lernsearch/pkg/models"
)

const (
	// DefaultTargetTokens is the approximate size of one chunk.
	DefaultTargetTokens = 300
	// DefaultOverlapTokens is the approximate overlap between adjacent chunks (20%).
	DefaultOverlapTokens = 60

	// Token estimation: ~4 characters per token on average.
	charsPerToken = 4
)

// Options controls chunk sizing. Zero values fall back to the defaults.
type Options struct {
	TargetTokens  int
	OverlapTokens int

	// PageBreaks holds cumulative byte offsets at which pages end, sorted
	// ascending. Empty means page numbers are unknown.
	PageBreaks []int
}

// EstimateTokens approximates the token count of text as ceil(len/4).
func EstimateTokens(text string) int {
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// Split cuts text into overlapping chunks that respect sentence boundaries.
// Whitespace-only input yields no chunks; a document shorter than one chunk
// yields a single chunk.
func Split(text string, opts Options) []models.Chunk {
	if opts.TargetTokens <= 0 {
		opts.TargetTokens = DefaultTargetTokens
	}
	if opts.OverlapTokens <= 0 {
		opts.OverlapTokens = DefaultOverlapTokens
	}
	targetChars := opts.TargetTokens * charsPerToken
	overlapChars := opts.OverlapTokens * charsPerToken

	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []models.Chunk
	currentChars := 0
	startIdx := 0

	for i := 0; i < len(sentences); i++ {
		currentChars += len(sentences[i])

		if currentChars < targetChars && i != len(sentences)-1 {
			continue
		}

		content := strings.TrimSpace(strings.Join(sentences[startIdx:i+1], " "))
		if content != "" {
			startOffset := charOffset(sentences, startIdx)
			chunks = append(chunks, models.Chunk{
				Content:    content,
				ChunkIndex: len(chunks),
				PageNumber: pageNumber(startOffset, opts.PageBreaks),
				TokenCount: EstimateTokens(content),
			})
		}

		// Rewind the start pointer far enough back to seed the next chunk
		// with at least overlapChars of already-consumed sentences.
		overlap := 0
		newStart := i + 1
		for j := i; j > startIdx; j-- {
			overlap += len(sentences[j])
			if overlap >= overlapChars {
				newStart = j
				break
			}
		}

		startIdx = newStart
		currentChars = 0
		for _, s := range sentences[startIdx : i+1] {
			currentChars += len(s)
		}
	}

	return chunks
}

// splitSentences splits text on sentence-ending punctuation followed by
// whitespace, dropping empty fragments. The punctuation stays attached to
// the sentence it ends.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 < len(text) && isSpace(text[i+1]) {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

// charOffset is the byte offset of sentence idx in the joined sentence
// stream (one space between sentences).
func charOffset(sentences []string, idx int) int {
	offset := 0
	for i := 0; i < idx; i++ {
		offset += len(sentences[i]) + 1
	}
	return offset
}

// pageNumber maps a byte offset to a 1-based page via the cumulative
// page-break offsets, or nil when no breaks are known.
func pageNumber(offset int, pageBreaks []int) *int {
	if len(pageBreaks) == 0 {
		return nil
	}
	for i, brk := range pageBreaks {
		if offset < brk {
			p := i + 1
			return &p
		}
	}
	p := len(pageBreaks)
	return &p
}
