package retrieval

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/seanblong/lernsearch/pkg/models"
)

// snippetChars is how much chunk content a citation carries for preview.
const snippetChars = 200

// maxRangeWidth bounds range expansion; indices past the context size get
// dropped anyway, so a runaway "Quelle 1-999999" must not allocate.
const maxRangeWidth = 100

// markerRule is one shape of citation marker. Rules run in order; a match
// claims its span of the answer text, and later rules skip anything that
// overlaps an already-claimed span. That ordering replaces the lookarounds
// the marker shapes would otherwise need: ranges swallow their digits
// before the single-marker rules see them, and bracketed markers swallow
// theirs before the bare rule does.
type markerRule struct {
	name   string
	re     *regexp.Regexp
	expand func(groups []string) []int
}

var markerRules = []markerRule{
	{
		// [Quelle 2–5], Quelle 2-5, Quelle 2 – Quelle 5
		name: "range",
		re:   regexp.MustCompile(`\[?Quelle\s+(\d+)\s*[–-]\s*(?:Quelle\s+)?(\d+)\]?`),
		expand: func(groups []string) []int {
			lo, err1 := strconv.Atoi(groups[0])
			hi, err2 := strconv.Atoi(groups[1])
			if err1 != nil || err2 != nil {
				return nil
			}
			if hi-lo > maxRangeWidth {
				hi = lo + maxRangeWidth
			}
			var out []int
			for i := lo; i <= hi; i++ {
				out = append(out, i)
			}
			return out
		},
	},
	{
		// [Quelle 3]
		name: "bracketed",
		re:   regexp.MustCompile(`\[Quelle\s+(\d+)\]`),
		expand: func(groups []string) []int {
			n, err := strconv.Atoi(groups[0])
			if err != nil {
				return nil
			}
			return []int{n}
		},
	},
	{
		// Quelle 3 (no brackets; bracketed occurrences were claimed above)
		name: "bare",
		re:   regexp.MustCompile(`Quelle\s+(\d+)`),
		expand: func(groups []string) []int {
			n, err := strconv.Atoi(groups[0])
			if err != nil {
				return nil
			}
			return []int{n}
		},
	},
}

type interval struct{ start, end int }

func overlapsAny(claimed []interval, start, end int) bool {
	for _, iv := range claimed {
		if start < iv.end && end > iv.start {
			return true
		}
	}
	return false
}

// ExtractCitations scans generated answer text for citation markers and
// resolves them against the numbered context block. Indices outside
// [1, len(contexts)] are dropped silently; the result is deduplicated and
// sorted ascending. Malformed text never produces an error, only fewer
// citations.
func ExtractCitations(answer string, contexts []models.RetrievedChunk) []models.Citation {
	if answer == "" || len(contexts) == 0 {
		return nil
	}

	found := map[int]struct{}{}
	var claimed []interval

	for _, rule := range markerRules {
		for _, m := range rule.re.FindAllStringSubmatchIndex(answer, -1) {
			if overlapsAny(claimed, m[0], m[1]) {
				continue
			}
			groups := make([]string, 0, len(m)/2-1)
			for g := 1; g < len(m)/2; g++ {
				if m[2*g] < 0 {
					groups = append(groups, "")
					continue
				}
				groups = append(groups, answer[m[2*g]:m[2*g+1]])
			}
			idxs := rule.expand(groups)
			if idxs == nil {
				continue
			}
			claimed = append(claimed, interval{m[0], m[1]})
			for _, idx := range idxs {
				if idx >= 1 && idx <= len(contexts) {
					found[idx] = struct{}{}
				}
			}
		}
	}

	if len(found) == 0 {
		return nil
	}

	indices := make([]int, 0, len(found))
	for idx := range found {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	out := make([]models.Citation, 0, len(indices))
	for _, idx := range indices {
		ctx := contexts[idx-1]
		out = append(out, models.Citation{
			Index:         idx,
			DocumentID:    ctx.DocumentID,
			DocumentTitle: ctx.DocumentTitle,
			PageNumber:    ctx.PageNumber,
			ChunkID:       ctx.ID,
			Snippet:       truncateRunes(ctx.Content, snippetChars),
			Content:       ctx.Content,
		})
	}
	return out
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
