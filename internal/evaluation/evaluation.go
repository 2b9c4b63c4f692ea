// Package evaluation scores retrieval quality against a set of test
// phrases with known expected chunks.
package evaluation

import (
	"context"
	"math"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/lernsearch/internal/retrieval"
	"github.com/seanblong/lernsearch/pkg/models"
)

// Phrase is one labeled evaluation query: a short search phrase and the
// chunk it is expected to retrieve.
type Phrase struct {
	Text            string
	Category        string
	ExpectedChunkID string
}

// PhraseResult is the retrieval outcome for one phrase.
type PhraseResult struct {
	Phrase       Phrase
	Retrieved    []models.RetrievedChunk
	ExpectedRank int // 1-based rank of the expected chunk, 0 = miss
}

// Metrics summarizes an evaluation run over labeled phrases.
type Metrics struct {
	Phrases       int     `json:"phrases"`
	HitAt1        float64 `json:"hit_at_1"`
	HitAt3        float64 `json:"hit_at_3"`
	HitAt5        float64 `json:"hit_at_5"`
	MRR           float64 `json:"mrr"`
	NDCG          float64 `json:"ndcg"`
	AvgSimilarity float64 `json:"avg_similarity"` // mean top-1 similarity
}

// Rank returns the 1-based position of the expected chunk in the retrieved
// list, or 0 when it was not retrieved.
func Rank(retrieved []models.RetrievedChunk, expectedChunkID string) int {
	for i, r := range retrieved {
		if r.ID == expectedChunkID {
			return i + 1
		}
	}
	return 0
}

// Compute aggregates per-phrase ranks into retrieval-quality metrics.
// Top-k accuracy is the fraction of phrases whose expected chunk appears
// within the first k results; MRR is the mean reciprocal rank; nDCG uses
// the standard log2 discount (with one relevant chunk per phrase the ideal
// DCG is 1, so per-phrase nDCG is 1/log2(rank+1)).
func Compute(results []PhraseResult) Metrics {
	m := Metrics{Phrases: len(results)}
	if len(results) == 0 {
		return m
	}

	var hits1, hits3, hits5 int
	var rrSum, ndcgSum, simSum float64

	for _, r := range results {
		if r.ExpectedRank > 0 {
			if r.ExpectedRank <= 1 {
				hits1++
			}
			if r.ExpectedRank <= 3 {
				hits3++
			}
			if r.ExpectedRank <= 5 {
				hits5++
			}
			rrSum += 1 / float64(r.ExpectedRank)
			ndcgSum += 1 / math.Log2(float64(r.ExpectedRank)+1)
		}
		if len(r.Retrieved) > 0 {
			simSum += r.Retrieved[0].Similarity
		}
	}

	n := float64(len(results))
	m.HitAt1 = float64(hits1) / n
	m.HitAt3 = float64(hits3) / n
	m.HitAt5 = float64(hits5) / n
	m.MRR = rrSum / n
	m.NDCG = ndcgSum / n
	m.AvgSimilarity = simSum / n
	return m
}

// Run retrieves every phrase through the given retriever and computes the
// aggregate metrics. Phrases without an expected chunk are skipped.
func Run(ctx context.Context, r *retrieval.Retriever, phrases []Phrase, opts retrieval.Options) ([]PhraseResult, Metrics, error) {
	var results []PhraseResult
	for _, p := range phrases {
		if p.ExpectedChunkID == "" {
			continue
		}
		retrieved, err := r.Retrieve(ctx, p.Text, opts)
		if err != nil {
			return nil, Metrics{}, err
		}
		rank := Rank(retrieved, p.ExpectedChunkID)
		log.Debug().Str("phrase", p.Text).Int("rank", rank).Msg("phrase evaluated")
		results = append(results, PhraseResult{
			Phrase:       p,
			Retrieved:    retrieved,
			ExpectedRank: rank,
		})
	}
	return results, Compute(results), nil
}
