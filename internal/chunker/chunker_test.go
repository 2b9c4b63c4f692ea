package chunker

import (
	"fmt"
	"strings"
	"testing"
)

func TestSplit_EmptyInput(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty string", ""},
		{"whitespace only", "   \n\t  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, Options{})
			if len(got) != 0 {
				t.Errorf("Expected no chunks, got %d", len(got))
			}
		})
	}
}

func TestSplit_SingleShortDocument(t *testing.T) {
	text := "Das ist ein kurzer Satz. Und noch einer!"
	chunks := Split(text, Options{})

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != "Das ist ein kurzer Satz. Und noch einer!" {
		t.Errorf("Unexpected content: %q", chunks[0].Content)
	}
	if chunks[0].ChunkIndex != 0 {
		t.Errorf("Expected chunk index 0, got %d", chunks[0].ChunkIndex)
	}
	if chunks[0].PageNumber != nil {
		t.Errorf("Expected nil page number without page breaks, got %v", *chunks[0].PageNumber)
	}
	want := (len(chunks[0].Content) + 3) / 4
	if chunks[0].TokenCount != want {
		t.Errorf("Expected token count %d, got %d", want, chunks[0].TokenCount)
	}
}

// makeSentences builds n sentences of identical byte length.
func makeSentences(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("Dieser Satz hier ist mit Nummer %04d fertig.", i))
	}
	return out
}

func TestSplit_OrderingAndNoGaps(t *testing.T) {
	sentences := makeSentences(40)
	text := strings.Join(sentences, " ")

	chunks := Split(text, Options{TargetTokens: 40, OverlapTokens: 10})
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("Chunk %d has index %d", i, c.ChunkIndex)
		}
		if strings.TrimSpace(c.Content) == "" {
			t.Errorf("Chunk %d is empty", i)
		}
	}
}

func TestSplit_AdjacentOverlap(t *testing.T) {
	sentences := makeSentences(40)
	text := strings.Join(sentences, " ")

	opts := Options{TargetTokens: 40, OverlapTokens: 10}
	overlapChars := opts.OverlapTokens * 4
	chunks := Split(text, opts)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1].Content, chunks[i].Content
		// The current chunk must start with a suffix of the previous chunk
		// covering at least the configured overlap.
		shared := 0
		max := len(cur)
		if len(prev) < max {
			max = len(prev)
		}
		for k := max; k > 0; k-- {
			if strings.HasSuffix(prev, cur[:k]) {
				shared = k
				break
			}
		}
		if shared < overlapChars {
			// Overlap may legitimately be missing only at the very end,
			// where the final chunk is the leftover tail.
			if i != len(chunks)-1 {
				t.Errorf("Chunks %d/%d share %d chars, want >= %d", i-1, i, shared, overlapChars)
			}
		}
	}
}

func TestSplit_CoverageReconstruction(t *testing.T) {
	sentences := makeSentences(25)
	text := strings.Join(sentences, " ")

	chunks := Split(text, Options{TargetTokens: 50, OverlapTokens: 10})
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	// No sentence may be lost: every sentence appears in some chunk, the
	// first chunk starts the document and the last chunk ends it.
	for _, s := range sentences {
		found := false
		for _, c := range chunks {
			if strings.Contains(c.Content, s) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("Sentence lost during chunking: %q", s)
		}
	}
	if !strings.HasPrefix(chunks[0].Content, sentences[0]) {
		t.Error("First chunk does not start with the first sentence")
	}
	if !strings.HasSuffix(chunks[len(chunks)-1].Content, sentences[len(sentences)-1]) {
		t.Error("Last chunk does not end with the last sentence")
	}

	// Sentences appear in order: each chunk's first sentence index never
	// jumps past the previous chunk's last sentence.
	prevEnd := -1
	for i, c := range chunks {
		first := -1
		for si, s := range sentences {
			if strings.HasPrefix(c.Content, s) || strings.Contains(c.Content, s) {
				first = si
				break
			}
		}
		if first == -1 {
			t.Fatalf("Chunk %d contains no known sentence", i)
		}
		if first > prevEnd+1 {
			t.Errorf("Gap before chunk %d: previous ended at sentence %d, chunk starts at %d", i, prevEnd, first)
		}
		for si := first; si < len(sentences); si++ {
			if strings.Contains(c.Content, sentences[si]) {
				prevEnd = si
			} else {
				break
			}
		}
	}
}

func TestSplit_PageNumbers(t *testing.T) {
	sentences := makeSentences(10)
	text := strings.Join(sentences, " ")

	// Page 1 ends after the third sentence, page 2 after the sixth.
	sentLen := len(sentences[0]) + 1
	breaks := []int{3 * sentLen, 6 * sentLen, len(text)}

	chunks := Split(text, Options{TargetTokens: 30, OverlapTokens: 5, PageBreaks: breaks})
	if len(chunks) == 0 {
		t.Fatal("Expected chunks")
	}

	if chunks[0].PageNumber == nil || *chunks[0].PageNumber != 1 {
		t.Errorf("First chunk should start on page 1, got %v", chunks[0].PageNumber)
	}
	last := chunks[len(chunks)-1]
	if last.PageNumber == nil {
		t.Fatal("Last chunk should carry a page number")
	}
	if *last.PageNumber < 2 || *last.PageNumber > 3 {
		t.Errorf("Last chunk page out of range: %d", *last.PageNumber)
	}

	// Page numbers never decrease along the chunk sequence.
	prev := 0
	for i, c := range chunks {
		if c.PageNumber == nil {
			t.Fatalf("Chunk %d missing page number", i)
		}
		if *c.PageNumber < prev {
			t.Errorf("Page number decreased at chunk %d: %d -> %d", i, prev, *c.PageNumber)
		}
		prev = *c.PageNumber
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "simple sentences",
			text: "Erster Satz. Zweiter Satz! Dritter Satz?",
			want: []string{"Erster Satz.", "Zweiter Satz!", "Dritter Satz?"},
		},
		{
			name: "no trailing punctuation",
			text: "Erster Satz. Rest ohne Punkt",
			want: []string{"Erster Satz.", "Rest ohne Punkt"},
		},
		{
			name: "punctuation without following space stays inside",
			text: "Siehe Abschnitt 3.1 im Anhang. Danach weiter.",
			want: []string{"Siehe Abschnitt 3.1 im Anhang.", "Danach weiter."},
		},
		{
			name: "newlines as separators",
			text: "Zeile eins.\nZeile zwei.",
			want: []string{"Zeile eins.", "Zeile zwei."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d sentences, got %d: %v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Sentence %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d chars): expected %d, got %d", len(tt.text), tt.want, got)
		}
	}
}

func BenchmarkSplit(b *testing.B) {
	text := strings.Join(makeSentences(500), " ")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Split(text, Options{})
	}
}
