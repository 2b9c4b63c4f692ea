// Package retrieval ranks chunks against a query via an injected embedding
// provider and vector store, builds the numbered context block handed to
// the language model, and maps citation markers in generated answers back
// to the chunks that justify them.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/seanblong/lernsearch/internal/ai"
	"github.com/seanblong/lernsearch/internal/store"
	"github.com/seanblong/lernsearch/pkg/models"
)

const (
	// DefaultTopK is the number of chunks retrieved per query.
	DefaultTopK = 5
	// DefaultDistanceThreshold is the cosine-distance cutoff; only chunks
	// strictly below it are returned.
	DefaultDistanceThreshold = 0.8
	// CrossDocumentThreshold is the tightened cutoff for searches spanning
	// all documents.
	CrossDocumentThreshold = 0.5
)

// VectorSearcher is the slice of the store the retriever depends on.
type VectorSearcher interface {
	SimilaritySearch(ctx context.Context, queryVec []float32, k int, distanceThreshold float64, documentIDs []string) ([]store.SearchHit, error)
}

// Options tunes one retrieval call. Zero values fall back to the defaults.
type Options struct {
	TopK              int
	DistanceThreshold float64
	// DocumentIDs restricts the search to the given documents, e.g. for
	// per-document chat. Empty searches everything.
	DocumentIDs []string
}

// Retriever embeds queries and ranks stored chunks by similarity.
type Retriever struct {
	Client ai.Client
	Store  VectorSearcher
}

// NewRetriever creates a retriever with the provided embedding client and store.
func NewRetriever(client ai.Client, searcher VectorSearcher) *Retriever {
	return &Retriever{
		Client: client,
		Store:  searcher,
	}
}

// Retrieve embeds the query, delegates nearest-neighbor search to the
// store, and returns the top chunks sorted by similarity descending.
// Embedding must complete before the search; both honor ctx cancellation.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) ([]models.RetrievedChunk, error) {
	query = strings.TrimSpace(query)
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.DistanceThreshold <= 0 {
		opts.DistanceThreshold = DefaultDistanceThreshold
	}

	vec, err := r.Client.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.Store.SimilaritySearch(ctx, vec, opts.TopK, opts.DistanceThreshold, opts.DocumentIDs)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	out := make([]models.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		// The store already applies the cutoff; enforce it here too so a
		// permissive store implementation cannot widen the contract.
		if h.Distance >= opts.DistanceThreshold {
			continue
		}
		out = append(out, models.RetrievedChunk{
			ID:            h.ChunkID,
			DocumentID:    h.DocumentID,
			DocumentTitle: h.DocumentTitle,
			Content:       h.Content,
			ChunkIndex:    h.ChunkIndex,
			PageNumber:    h.PageNumber,
			Similarity:    1 - h.Distance,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	if len(out) > opts.TopK {
		out = out[:opts.TopK]
	}

	log.Debug().Str("query", query).Int("results", len(out)).Msg("retrieval done")
	return out, nil
}

// BuildContextPrompt renders the numbered context block for the language
// model. The numbering is the contract citation extraction depends on;
// callers must not reorder chunks between generation and extraction.
func BuildContextPrompt(contexts []models.RetrievedChunk) string {
	if len(contexts) == 0 {
		return "Kein relevanter Kontext gefunden."
	}

	blocks := make([]string, 0, len(contexts))
	for i, ctx := range contexts {
		pageInfo := ""
		if ctx.PageNumber != nil {
			pageInfo = fmt.Sprintf(", Seite: %d", *ctx.PageNumber)
		}
		blocks = append(blocks, fmt.Sprintf("[Quelle %d] (Dokument: %q%s):\n%s", i+1, ctx.DocumentTitle, pageInfo, ctx.Content))
	}
	return strings.Join(blocks, "\n\n")
}

// FormatCitationLabel renders a citation as a short readable label.
func FormatCitationLabel(c models.Citation) string {
	pageInfo := ""
	if c.PageNumber != nil {
		pageInfo = fmt.Sprintf(", S. %d", *c.PageNumber)
	}
	return fmt.Sprintf("[Quelle: %s%s]", c.DocumentTitle, pageInfo)
}
