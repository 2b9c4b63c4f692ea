package models

import "time"

// Document is one ingested source document.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is a contiguous, sentence-aligned slice of a document's text.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
	ChunkIndex int    `json:"chunk_index"`
	PageNumber *int   `json:"page_number"`
	TokenCount int    `json:"token_count"`
}

// RetrievedChunk is a chunk enriched with a similarity score for one query.
// Similarity is 1 - cosine distance, in [0, 1].
type RetrievedChunk struct {
	ID            string  `json:"id"`
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	Content       string  `json:"content"`
	ChunkIndex    int     `json:"chunk_index"`
	PageNumber    *int    `json:"page_number"`
	Similarity    float64 `json:"similarity"`
}

// Citation resolves a marker in generated text back to the context chunk
// it references. Index is 1-based, as numbered in the context block.
type Citation struct {
	Index         int    `json:"index"`
	DocumentID    string `json:"document_id"`
	DocumentTitle string `json:"document_title"`
	PageNumber    *int   `json:"page_number"`
	ChunkID       string `json:"chunk_id"`
	Snippet       string `json:"snippet"`
	Content       string `json:"content"`
}

// ReviewState holds the SM-2 scheduling parameters for one learnable item.
type ReviewState struct {
	EaseFactor   float64   `json:"ease_factor"`
	Interval     int       `json:"interval"`
	Repetitions  int       `json:"repetitions"`
	NextReviewAt time.Time `json:"next_review_at"`
}

// Span is a half-open [Start, End) byte range into normalized chunk text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Position says roughly where a match window sits inside its chunk.
type Position string

const (
	PositionStart  Position = "start"
	PositionMiddle Position = "middle"
	PositionEnd    Position = "end"
)

// Match is the phrase localizer's result. Offsets refer to Text, the
// whitespace-normalized chunk. When NoMatch is set the window is just the
// leading slice of the chunk and Spans is empty.
type Match struct {
	Text        string   `json:"text"`
	WindowStart int      `json:"window_start"`
	WindowEnd   int      `json:"window_end"`
	Spans       []Span   `json:"spans"`
	Badge       Position `json:"badge"`
	Exact       bool     `json:"exact"`
	NoMatch     bool     `json:"no_match"`
}
