// Package highlight locates a short search phrase inside a long chunk of
// text and describes the best-matching window for display and scoring.
package highlight

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/seanblong/lernsearch/pkg/models"
)

const (
	// MinContextChars is the minimum context shown around an exact match.
	MinContextChars = 100
	// MinWindowChars is the minimum sliding-window size for the fallback.
	MinWindowChars = 200

	// windowStep is the stride of the fallback window scan.
	windowStep = 10
	// minWordRunes: phrase words this short carry no signal and are dropped.
	minWordRunes = 2
	// fallbackPreview is how much leading text a no-match result exposes.
	fallbackPreview = 200
)

// Localize finds where phrase appears in chunkText. Whitespace runs in the
// chunk collapse to single spaces without trimming, the phrase is
// additionally trimmed; all offsets in the result refer to the normalized
// text. It never fails: a phrase that cannot be located yields a no-match
// result exposing the leading 200 characters.
func Localize(chunkText, phrase string) models.Match {
	text := normalizeSpace(chunkText)
	phrase = strings.TrimSpace(normalizeSpace(phrase))

	if phrase == "" {
		return noMatch(text)
	}

	if m, ok := exactMatch(text, phrase); ok {
		return m
	}

	words := phraseWords(phrase)
	if len(words) == 0 {
		return noMatch(text)
	}

	hits := collectHits(text, words)
	if len(hits) == 0 {
		return noMatch(text)
	}

	return windowMatch(text, hits)
}

type hit struct {
	pos  int
	len  int
	word string
}

// exactMatch is the fast path: a case-insensitive substring search with a
// context margin of max(100, 25% of the chunk) on both sides.
func exactMatch(text, phrase string) (models.Match, bool) {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(phrase))
	if idx < 0 {
		return models.Match{}, false
	}

	matchEnd := idx + len(phrase)
	ctx := MinContextChars
	if scaled := int(math.Round(float64(len(text)) * 0.25)); scaled > ctx {
		ctx = scaled
	}
	start := idx - ctx
	if start < 0 {
		start = 0
	}
	end := matchEnd + ctx
	if end > len(text) {
		end = len(text)
	}

	return models.Match{
		Text:        text,
		WindowStart: start,
		WindowEnd:   end,
		Spans:       []models.Span{{Start: idx, End: matchEnd}},
		Badge:       positionBadge(idx, len(text)),
		Exact:       true,
	}, true
}

// phraseWords tokenizes the phrase into lowercase words stripped of
// non-alphanumeric runes, keeping only words longer than two runes.
func phraseWords(phrase string) []string {
	var words []string
	for _, raw := range strings.Fields(phrase) {
		var b strings.Builder
		for _, r := range strings.ToLower(raw) {
			if unicode.IsLetter(r) || unicode.IsNumber(r) {
				b.WriteRune(r)
			}
		}
		w := b.String()
		if utf8.RuneCountInString(w) > minWordRunes {
			words = append(words, w)
		}
	}
	return words
}

// collectHits finds every occurrence of every phrase word in the text,
// case-insensitively.
func collectHits(text string, words []string) []hit {
	lower := strings.ToLower(text)
	var hits []hit
	for _, w := range words {
		from := 0
		for {
			found := strings.Index(lower[from:], w)
			if found < 0 {
				break
			}
			pos := from + found
			hits = append(hits, hit{pos: pos, len: len(w), word: w})
			from = pos + 1
		}
	}
	return hits
}

// windowMatch slides a window of max(200, 50% of the chunk) across the text
// in steps of 10 and keeps the first window containing the most distinct
// phrase words. Word hits inside the winner are merged into disjoint spans.
func windowMatch(text string, hits []hit) models.Match {
	size := MinWindowChars
	if scaled := int(math.Round(float64(len(text)) * 0.5)); scaled > size {
		size = scaled
	}

	limit := len(text) - size
	if limit < 0 {
		limit = 0
	}

	bestStart, bestScore := 0, 0
	for start := 0; start <= limit; start += windowStep {
		end := start + size
		distinct := map[string]struct{}{}
		for _, h := range hits {
			if h.pos >= start && h.pos+h.len <= end {
				distinct[h.word] = struct{}{}
			}
		}
		// Strictly greater keeps the first window on ties.
		if len(distinct) > bestScore {
			bestScore = len(distinct)
			bestStart = start
		}
	}

	windowEnd := bestStart + size
	if windowEnd > len(text) {
		windowEnd = len(text)
	}

	var inWindow []hit
	for _, h := range hits {
		if h.pos >= bestStart && h.pos+h.len <= windowEnd {
			inWindow = append(inWindow, h)
		}
	}
	sortHits(inWindow)

	var spans []models.Span
	for _, h := range inWindow {
		end := h.pos + h.len
		if n := len(spans); n > 0 && h.pos < spans[n-1].End {
			if end > spans[n-1].End {
				spans[n-1].End = end
			}
			continue
		}
		spans = append(spans, models.Span{Start: h.pos, End: end})
	}

	return models.Match{
		Text:        text,
		WindowStart: bestStart,
		WindowEnd:   windowEnd,
		Spans:       spans,
		Badge:       positionBadge(bestStart, len(text)),
	}
}

func sortHits(hits []hit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}

func noMatch(text string) models.Match {
	end := fallbackPreview
	if end > len(text) {
		end = len(text)
	} else {
		// Back off to a rune boundary so the preview stays valid UTF-8.
		for end > 0 && !utf8.RuneStart(text[end]) {
			end--
		}
	}
	return models.Match{
		Text:        text,
		WindowStart: 0,
		WindowEnd:   end,
		Badge:       models.PositionStart,
		NoMatch:     true,
	}
}

func positionBadge(start, textLen int) models.Position {
	if textLen == 0 {
		return models.PositionStart
	}
	frac := float64(start) / float64(textLen)
	switch {
	case frac < 0.2:
		return models.PositionStart
	case frac > 0.8:
		return models.PositionEnd
	default:
		return models.PositionMiddle
	}
}

// normalizeSpace collapses every whitespace run to a single space. Leading
// and trailing runs become one space each; nothing is trimmed.
func normalizeSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			pending = true
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		b.WriteRune(r)
	}
	if pending {
		b.WriteByte(' ')
	}
	return b.String()
}
